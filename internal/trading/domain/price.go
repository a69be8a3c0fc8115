package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarketPriceProvider 外部行情报价接口
// 交易服务只依赖这一个方法：给出某标的当前可成交的参考价
type MarketPriceProvider interface {
	// GetPrice 返回参考价；ok 为 false 表示行情源暂时给不出任何价格
	GetPrice(ctx context.Context, symbol string) (price decimal.Decimal, ok bool, err error)
}

// TxManager 事务管理接口
// 回调内拿到的 ctx 携带事务句柄，仓储通过它路由到同一事务
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
