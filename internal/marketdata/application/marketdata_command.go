package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
)

// MarketDataCommandService 处理所有行情写入操作（Commands）。
type MarketDataCommandService struct {
	quotes domain.QuoteRepository
	closes domain.DailyCloseRepository
	logger *slog.Logger
}

// NewMarketDataCommandService 构造函数。
func NewMarketDataCommandService(quotes domain.QuoteRepository, closes domain.DailyCloseRepository, logger *slog.Logger) *MarketDataCommandService {
	return &MarketDataCommandService{
		quotes: quotes,
		closes: closes,
		logger: logger,
	}
}

// SaveQuoteCommand 保存行情命令
type SaveQuoteCommand struct {
	Symbol    string
	LastPrice decimal.Decimal
	LastSize  decimal.Decimal
	Timestamp int64
	Source    string
}

// SaveQuote 保存最新行情到读模型
func (s *MarketDataCommandService) SaveQuote(ctx context.Context, cmd SaveQuoteCommand) error {
	quote := &domain.Quote{
		Symbol:    cmd.Symbol,
		LastPrice: cmd.LastPrice,
		LastSize:  cmd.LastSize,
		Timestamp: cmd.Timestamp,
		Source:    cmd.Source,
	}
	if quote.Timestamp <= 0 {
		quote.Timestamp = time.Now().UnixMilli()
	}

	if err := s.quotes.Save(ctx, quote); err != nil {
		s.logger.ErrorContext(ctx, "保存行情失败", "symbol", cmd.Symbol, "error", err)
		return err
	}
	return nil
}

// SaveDailyCloseCommand 保存日线收盘价命令
type SaveDailyCloseCommand struct {
	Symbol      string
	TradingDate time.Time
	Close       decimal.Decimal
}

// SaveDailyClose 保存某交易日的收盘价
func (s *MarketDataCommandService) SaveDailyClose(ctx context.Context, cmd SaveDailyCloseCommand) error {
	dc := &domain.DailyClose{
		Symbol:      cmd.Symbol,
		TradingDate: cmd.TradingDate,
		Close:       cmd.Close,
	}
	if err := s.closes.Save(ctx, dc); err != nil {
		s.logger.ErrorContext(ctx, "保存收盘价失败", "symbol", cmd.Symbol, "error", err)
		return err
	}
	return nil
}
