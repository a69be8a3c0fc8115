package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	// REJECTED / EXPIRED 为保留状态，当前流程不会产生
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusExpired  OrderStatus = "EXPIRED"
)

// OrderSide 买卖方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType 订单类型
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Order 订单实体
// 下单即同步尝试全量成交；限价条件不满足时保持 NEW 并占用锁定资源，直至撤单
type Order struct {
	gorm.Model
	// 订单号（业务主键），全局唯一
	OrderNo string `gorm:"column:order_no;type:varchar(32);uniqueIndex;not null" json:"order_no"`
	// 用户 ID
	UserID uint64 `gorm:"column:user_id;index;uniqueIndex:uk_user_client_order,priority:1;not null" json:"user_id"`
	// 股票代码
	Symbol string `gorm:"column:symbol;type:varchar(20);index;not null" json:"symbol"`
	// 买卖方向
	Side OrderSide `gorm:"column:side;type:varchar(10);not null" json:"side"`
	// 订单类型
	Type OrderType `gorm:"column:type;type:varchar(10);not null" json:"type"`
	// 委托数量
	Quantity decimal.Decimal `gorm:"column:quantity;type:decimal(32,18);not null" json:"quantity"`
	// 限价（LIMIT 单必填）
	LimitPrice decimal.NullDecimal `gorm:"column:limit_price;type:decimal(32,18)" json:"limit_price"`
	// 订单状态
	Status OrderStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 已成交数量
	FilledQuantity decimal.Decimal `gorm:"column:filled_quantity;type:decimal(32,18);not null;default:0" json:"filled_quantity"`
	// 成交均价（成交量加权）
	AvgFilledPrice decimal.Decimal `gorm:"column:avg_filled_price;type:decimal(32,18);not null;default:0" json:"avg_filled_price"`
	// 累计手续费
	FeeTotal decimal.Decimal `gorm:"column:fee_total;type:decimal(32,18);not null;default:0" json:"fee_total"`
	// 下单时刻的市场价快照
	PriceSnapshot decimal.Decimal `gorm:"column:price_snapshot;type:decimal(32,18);not null;default:0" json:"price_snapshot"`
	// 客户端订单 ID（幂等键）。可空：未提供时不参与唯一约束，
	// 提供时由 (user_id, client_order_id) 唯一索引兜底并发重复下单
	ClientOrderID *string `gorm:"column:client_order_id;type:varchar(64);uniqueIndex:uk_user_client_order,priority:2" json:"client_order_id,omitempty"`
	// 撤单时间
	CanceledAt *time.Time `gorm:"column:canceled_at;type:datetime" json:"canceled_at"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// NewOrder 创建 NEW 状态订单
func NewOrder(orderNo string, userID uint64, symbol string, side OrderSide, orderType OrderType, quantity decimal.Decimal, limitPrice decimal.NullDecimal, priceSnapshot decimal.Decimal, clientOrderID string) *Order {
	var cid *string
	if clientOrderID != "" {
		cid = &clientOrderID
	}
	return &Order{
		OrderNo:        orderNo,
		UserID:         userID,
		Symbol:         symbol,
		Side:           side,
		Type:           orderType,
		Quantity:       quantity,
		LimitPrice:     limitPrice,
		Status:         OrderStatusNew,
		FilledQuantity: decimal.Zero,
		AvgFilledPrice: decimal.Zero,
		FeeTotal:       decimal.Zero,
		PriceSnapshot:  priceSnapshot,
		ClientOrderID:  cid,
	}
}

// RemainingQuantity 剩余未成交数量
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsActive 是否仍在挂单中
func (o *Order) IsActive() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled
}

// CanCancel 是否可以撤单
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled
}

// Fill 记录一次成交，重算成交均价并推进状态
// 状态单调：NEW → PARTIALLY_FILLED → FILLED
func (o *Order) Fill(qty, price, fee decimal.Decimal) error {
	if qty.GreaterThan(o.RemainingQuantity()) {
		return NewInvalidOrderError("fill quantity exceeds remaining", map[string]any{
			"order_no":  o.OrderNo,
			"remaining": o.RemainingQuantity().String(),
			"fill":      qty.String(),
		})
	}

	totalValue := o.FilledQuantity.Mul(o.AvgFilledPrice).Add(qty.Mul(price))
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.AvgFilledPrice = totalValue.Div(o.FilledQuantity)
	o.FeeTotal = o.FeeTotal.Add(fee)

	if o.FilledQuantity.GreaterThanOrEqual(o.Quantity) {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
	return nil
}

// Cancel 撤单，仅允许从 NEW / PARTIALLY_FILLED 状态撤出
func (o *Order) Cancel() error {
	if !o.CanCancel() {
		return NewOrderNotCancelableError(o.OrderNo, string(o.Status))
	}
	now := time.Now()
	o.Status = OrderStatusCanceled
	o.CanceledAt = &now
	return nil
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Create 创建订单
	Create(ctx context.Context, order *Order) error
	// Update 持久化订单状态
	Update(ctx context.Context, order *Order) error
	// GetByUserAndNo 校验归属地获取订单，不存在或不属于该用户时返回 nil
	GetByUserAndNo(ctx context.Context, userID uint64, orderNo string) (*Order, error)
	// GetByUserAndNoForUpdate 行锁获取订单
	GetByUserAndNoForUpdate(ctx context.Context, userID uint64, orderNo string) (*Order, error)
	// GetByClientOrderID 按幂等键查询，不存在时返回 nil
	GetByClientOrderID(ctx context.Context, userID uint64, clientOrderID string) (*Order, error)
	// ListByUser 分页查询用户订单，status/symbol 为空表示不过滤
	ListByUser(ctx context.Context, userID uint64, status OrderStatus, symbol string, limit, offset int) ([]*Order, int64, error)
}
