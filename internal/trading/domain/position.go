package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Position 持仓实体
// 每个用户每个标的一行，首次买入成交时懒创建，数量清零后保留（便于查历史）
type Position struct {
	gorm.Model
	// 用户 ID
	UserID uint64 `gorm:"column:user_id;uniqueIndex:uk_user_symbol;not null" json:"user_id"`
	// 股票代码
	Symbol string `gorm:"column:symbol;type:varchar(20);uniqueIndex:uk_user_symbol;not null" json:"symbol"`
	// 持有总数量
	Quantity decimal.Decimal `gorm:"column:quantity;type:decimal(32,18);not null;default:0" json:"quantity"`
	// 锁定数量（挂卖单冻结中）
	LockedQuantity decimal.Decimal `gorm:"column:locked_quantity;type:decimal(32,18);not null;default:0" json:"locked_quantity"`
	// 成本均价（成交量加权）
	AvgPrice decimal.Decimal `gorm:"column:avg_price;type:decimal(32,18);not null;default:0" json:"avg_price"`
}

// TableName 指定表名
func (Position) TableName() string {
	return "positions"
}

// NewPosition 创建空持仓
func NewPosition(userID uint64, symbol string) *Position {
	return &Position{
		UserID:         userID,
		Symbol:         symbol,
		Quantity:       decimal.Zero,
		LockedQuantity: decimal.Zero,
		AvgPrice:       decimal.Zero,
	}
}

// AvailableQuantity 可卖数量
func (p *Position) AvailableQuantity() decimal.Decimal {
	return p.Quantity.Sub(p.LockedQuantity)
}

// CanLock 可卖数量是否足够锁定
func (p *Position) CanLock(qty decimal.Decimal) bool {
	return p.AvailableQuantity().GreaterThanOrEqual(qty)
}

// Lock 锁定持仓，可卖不足时返回 ErrInsufficientPosition
func (p *Position) Lock(qty decimal.Decimal) error {
	if !p.CanLock(qty) {
		return NewInsufficientPositionError(p.Symbol, qty, p.AvailableQuantity())
	}
	p.LockedQuantity = p.LockedQuantity.Add(qty)
	return nil
}

// Unlock 解锁持仓，下限截断到零
func (p *Position) Unlock(qty decimal.Decimal) {
	p.LockedQuantity = p.LockedQuantity.Sub(qty)
	if p.LockedQuantity.IsNegative() {
		p.LockedQuantity = decimal.Zero
	}
}

// Add 买入成交后加仓，成本均价按成交量加权重算
func (p *Position) Add(qty, price decimal.Decimal) {
	if p.Quantity.IsZero() {
		p.Quantity = qty
		p.AvgPrice = price
		return
	}
	totalValue := p.Quantity.Mul(p.AvgPrice).Add(qty.Mul(price))
	p.Quantity = p.Quantity.Add(qty)
	p.AvgPrice = totalValue.Div(p.Quantity)
}

// Remove 卖出成交后减仓，清零时重置成本均价
func (p *Position) Remove(qty decimal.Decimal) {
	p.Quantity = p.Quantity.Sub(qty)
	if p.Quantity.LessThanOrEqual(decimal.Zero) {
		p.Quantity = decimal.Zero
		p.AvgPrice = decimal.Zero
	}
}

// PositionRepository 持仓仓储接口
type PositionRepository interface {
	// GetByUserAndSymbol 获取单个持仓，不存在时返回 nil
	GetByUserAndSymbol(ctx context.Context, userID uint64, symbol string) (*Position, error)
	// GetByUserAndSymbolForUpdate 行锁获取单个持仓
	GetByUserAndSymbolForUpdate(ctx context.Context, userID uint64, symbol string) (*Position, error)
	// ListByUser 获取用户全部非零持仓
	ListByUser(ctx context.Context, userID uint64) ([]*Position, error)
	// Create 创建持仓
	Create(ctx context.Context, position *Position) error
	// Update 持久化持仓状态
	Update(ctx context.Context, position *Position) error
}
