package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntryType 流水类型
type LedgerEntryType string

const (
	LedgerEntryTypeGrant         LedgerEntryType = "GRANT"
	LedgerEntryTypeBuy           LedgerEntryType = "BUY"
	LedgerEntryTypeSell          LedgerEntryType = "SELL"
	LedgerEntryTypeFee           LedgerEntryType = "FEE"
	LedgerEntryTypeLock          LedgerEntryType = "LOCK"
	LedgerEntryTypeUnlock        LedgerEntryType = "UNLOCK"
	LedgerEntryTypeCancelRelease LedgerEntryType = "CANCEL_RELEASE"
)

// 流水引用对象类型
const (
	LedgerRefTypeOrder  = "ORDER"
	LedgerRefTypeTrade  = "TRADE"
	LedgerRefTypeSystem = "SYSTEM"
)

// LedgerEntry 资金流水实体，仅追加
// GRANT/BUY/SELL/FEE 影响总余额，其金额之和恒等于钱包余额；
// LOCK/UNLOCK/CANCEL_RELEASE 记录可用额度的冻结变动，仅作审计
type LedgerEntry struct {
	gorm.Model
	// 用户 ID
	UserID uint64 `gorm:"column:user_id;index;not null" json:"user_id"`
	// 流水类型
	EntryType LedgerEntryType `gorm:"column:entry_type;type:varchar(20);index;not null" json:"entry_type"`
	// 变动金额（带符号）
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null" json:"amount"`
	// 变动后余额（冻结类流水记录变动后可用余额）
	BalanceAfter decimal.Decimal `gorm:"column:balance_after;type:decimal(32,18);not null" json:"balance_after"`
	// 引用对象类型（ORDER / TRADE / SYSTEM）
	RefType string `gorm:"column:ref_type;type:varchar(10)" json:"ref_type"`
	// 引用对象业务主键
	RefID string `gorm:"column:ref_id;type:varchar(32);index" json:"ref_id"`
	// 附加信息
	Meta string `gorm:"column:meta;type:json" json:"meta"`
}

// TableName 指定表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// LedgerRepository 流水仓储接口，只增不改
type LedgerRepository interface {
	// Create 追加一条流水
	Create(ctx context.Context, entry *LedgerEntry) error
	// ListByUser 分页查询用户流水，entryType 为空表示不过滤
	ListByUser(ctx context.Context, userID uint64, entryType LedgerEntryType, limit, offset int) ([]*LedgerEntry, int64, error)
}
