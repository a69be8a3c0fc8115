package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	marketdata "github.com/wyfcoding/papertrading/internal/marketdata/domain"
)

const defaultCacheTTL = 60 * time.Second

// Oracle 带缓存的行情取价器。
// 盘中优先读实时行情流，流里没有时回退最近收盘价；盘外只认收盘价。
// 每个标的带 TTL 的内存缓存；行情源出错时退回已过期的缓存价，避免抖动打断交易。
type Oracle struct {
	quotes   marketdata.QuoteRepository
	closes   marketdata.DailyCloseRepository
	calendar *TradingCalendar
	now      func() time.Time
	ttl      time.Duration
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]cachedPrice
}

type cachedPrice struct {
	price    decimal.Decimal
	cachedAt time.Time
}

// Option Oracle 可选配置
type Option func(*Oracle)

// WithClock 注入时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) { o.now = now }
}

// WithTTL 覆盖缓存有效期。
func WithTTL(ttl time.Duration) Option {
	return func(o *Oracle) { o.ttl = ttl }
}

// NewOracle 创建行情取价器。
func NewOracle(quotes marketdata.QuoteRepository, closes marketdata.DailyCloseRepository, calendar *TradingCalendar, logger *slog.Logger, opts ...Option) *Oracle {
	o := &Oracle{
		quotes:   quotes,
		closes:   closes,
		calendar: calendar,
		now:      time.Now,
		ttl:      defaultCacheTTL,
		logger:   logger,
		cache:    make(map[string]cachedPrice),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetPrice 返回某标的的当前参考价。
// ok 为 false 表示行情源和缓存都给不出价格。
func (o *Oracle) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	now := o.now()

	o.mu.RLock()
	cached, hasCached := o.cache[symbol]
	o.mu.RUnlock()
	if hasCached && now.Sub(cached.cachedAt) < o.ttl {
		return cached.price, true, nil
	}

	price, ok, err := o.fetch(ctx, symbol, now)
	if err != nil {
		if hasCached {
			o.logger.WarnContext(ctx, "行情源不可用，沿用过期缓存价",
				"symbol", symbol, "cached_at", cached.cachedAt, "error", err)
			return cached.price, true, nil
		}
		return decimal.Zero, false, err
	}
	if !ok {
		return decimal.Zero, false, nil
	}

	o.mu.Lock()
	o.cache[symbol] = cachedPrice{price: price, cachedAt: now}
	o.mu.Unlock()
	return price, true, nil
}

func (o *Oracle) fetch(ctx context.Context, symbol string, now time.Time) (decimal.Decimal, bool, error) {
	if o.calendar.IsOpen(now) {
		quote, err := o.quotes.GetLatest(ctx, symbol)
		if err != nil {
			return decimal.Zero, false, err
		}
		if quote != nil && quote.LastPrice.IsPositive() {
			return quote.LastPrice, true, nil
		}
	}

	dailyClose, err := o.closes.GetLatest(ctx, symbol)
	if err != nil {
		return decimal.Zero, false, err
	}
	if dailyClose == nil || !dailyClose.Close.IsPositive() {
		return decimal.Zero, false, nil
	}
	return dailyClose.Close, true, nil
}
