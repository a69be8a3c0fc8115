// Package domain 行情服务的领域模型、实体、仓储接口
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quote 实时行情读模型
// 由行情消费者写入 Redis，交易侧按最新成交价取价
type Quote struct {
	// Symbol 股票代码（如 VNM、FPT）
	Symbol string `json:"symbol"`
	// LastPrice 最新成交价
	LastPrice decimal.Decimal `json:"last_price"`
	// LastSize 最新成交量
	LastSize decimal.Decimal `json:"last_size"`
	// Timestamp 行情时间戳（毫秒）
	Timestamp int64 `json:"timestamp"`
	// Source 数据来源
	Source string `json:"source"`
}

// QuoteRepository 实时行情仓储接口
type QuoteRepository interface {
	// Save 保存最新行情
	Save(ctx context.Context, quote *Quote) error
	// GetLatest 获取最新行情，不存在时返回 nil
	GetLatest(ctx context.Context, symbol string) (*Quote, error)
}

// DailyClose 日线收盘价实体
// 收盘后由同步任务落库，盘外时段作为取价回退
type DailyClose struct {
	gorm.Model
	// Symbol 股票代码
	Symbol string `gorm:"column:symbol;type:varchar(20);uniqueIndex:uk_symbol_date;not null" json:"symbol"`
	// TradingDate 交易日
	TradingDate time.Time `gorm:"column:trading_date;type:date;uniqueIndex:uk_symbol_date;not null" json:"trading_date"`
	// Close 收盘价
	Close decimal.Decimal `gorm:"column:close;type:decimal(32,18);not null" json:"close"`
}

// TableName 指定表名
func (DailyClose) TableName() string {
	return "daily_closes"
}

// DailyCloseRepository 日线收盘价仓储接口
type DailyCloseRepository interface {
	// Save 保存或更新某交易日的收盘价
	Save(ctx context.Context, dc *DailyClose) error
	// GetLatest 获取最近一个交易日的收盘价，不存在时返回 nil
	GetLatest(ctx context.Context, symbol string) (*DailyClose, error)
}
