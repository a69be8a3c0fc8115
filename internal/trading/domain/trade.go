package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade 成交记录实体
// 与订单更新在同一事务内创建，落库后不再修改、不删除
type Trade struct {
	gorm.Model
	// 成交号（业务主键），全局唯一
	TradeNo string `gorm:"column:trade_no;type:varchar(32);uniqueIndex;not null" json:"trade_no"`
	// 所属订单号
	OrderNo string `gorm:"column:order_no;type:varchar(32);index;not null" json:"order_no"`
	// 用户 ID
	UserID uint64 `gorm:"column:user_id;index;not null" json:"user_id"`
	// 股票代码
	Symbol string `gorm:"column:symbol;type:varchar(20);index;not null" json:"symbol"`
	// 买卖方向
	Side OrderSide `gorm:"column:side;type:varchar(10);not null" json:"side"`
	// 成交数量
	Quantity decimal.Decimal `gorm:"column:quantity;type:decimal(32,18);not null" json:"quantity"`
	// 成交价格
	Price decimal.Decimal `gorm:"column:price;type:decimal(32,18);not null" json:"price"`
	// 手续费
	Fee decimal.Decimal `gorm:"column:fee;type:decimal(32,18);not null;default:0" json:"fee"`
	// 成交时间
	ExecutedAt time.Time `gorm:"column:executed_at;type:datetime;not null" json:"executed_at"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}

// TradeRepository 成交仓储接口
type TradeRepository interface {
	// Create 创建成交记录
	Create(ctx context.Context, trade *Trade) error
	// ListByOrderNo 获取订单全部成交，按成交时间升序
	ListByOrderNo(ctx context.Context, orderNo string) ([]*Trade, error)
	// ListByUser 分页查询用户成交，symbol 为空表示不过滤
	ListByUser(ctx context.Context, userID uint64, symbol string, limit, offset int) ([]*Trade, int64, error)
}
