// Package domain 模拟交易服务的领域模型
// 生成摘要：
// 1) 定义钱包、持仓、订单、成交、流水五个核心实体
// 2) 资金/持仓的锁定、解锁、扣减等领域逻辑（不仅是CRUD）
// 3) 仓储接口与外部行情接口
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet 资金钱包实体
// 每个用户唯一一个，余额只能由交易服务在行锁保护下修改
type Wallet struct {
	gorm.Model
	// 用户 ID，1:1 关联
	UserID uint64 `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	// 总余额 = 可用余额 + 锁定余额
	Balance decimal.Decimal `gorm:"column:balance;type:decimal(32,18);not null;default:0" json:"balance"`
	// 锁定余额（挂单冻结中的资金）
	Locked decimal.Decimal `gorm:"column:locked;type:decimal(32,18);not null;default:0" json:"locked"`
	// 货币
	Currency string `gorm:"column:currency;type:varchar(10);not null;default:VND" json:"currency"`
	// 首次发放体验金时间，非空代表已发放
	FirstGrantAt *time.Time `gorm:"column:first_grant_at;type:datetime" json:"first_grant_at"`
}

// TableName 指定表名
func (Wallet) TableName() string {
	return "wallets"
}

// NewWallet 创建空钱包
func NewWallet(userID uint64) *Wallet {
	return &Wallet{
		UserID:   userID,
		Balance:  decimal.Zero,
		Locked:   decimal.Zero,
		Currency: "VND",
	}
}

// Available 可用余额
func (w *Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.Locked)
}

// CanLock 可用余额是否足够锁定
func (w *Wallet) CanLock(amount decimal.Decimal) bool {
	return w.Available().GreaterThanOrEqual(amount)
}

// Lock 锁定资金，可用不足时返回 ErrInsufficientBalance
func (w *Wallet) Lock(amount decimal.Decimal) error {
	if !w.CanLock(amount) {
		return NewInsufficientBalanceError(amount, w.Available())
	}
	w.Locked = w.Locked.Add(amount)
	return nil
}

// Unlock 解锁资金，下限截断到零以吸收舍入残差
func (w *Wallet) Unlock(amount decimal.Decimal) {
	w.Locked = w.Locked.Sub(amount)
	if w.Locked.IsNegative() {
		w.Locked = decimal.Zero
	}
}

// Deduct 扣减余额（成交结算后）
func (w *Wallet) Deduct(amount decimal.Decimal) {
	w.Balance = w.Balance.Sub(amount)
}

// Credit 增加余额
func (w *Wallet) Credit(amount decimal.Decimal) {
	w.Balance = w.Balance.Add(amount)
}

// WalletRepository 钱包仓储接口
type WalletRepository interface {
	// GetByUserID 根据用户获取钱包，不存在时返回 nil
	GetByUserID(ctx context.Context, userID uint64) (*Wallet, error)
	// GetByUserIDForUpdate 行锁获取钱包（SELECT ... FOR UPDATE）
	GetByUserIDForUpdate(ctx context.Context, userID uint64) (*Wallet, error)
	// Create 创建钱包
	Create(ctx context.Context, wallet *Wallet) error
	// Update 持久化钱包状态
	Update(ctx context.Context, wallet *Wallet) error
}
