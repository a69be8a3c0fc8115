package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/pkg/xerrors"
)

func TestGrantInitialCash_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.GrantInitialCash(ctx, 1)
	require.NoError(t, err)
	assert.True(t, first.Granted)
	assert.Equal(t, InitialCash.String(), first.Wallet.Balance)
	assert.Positive(t, first.Wallet.FirstGrantAt)

	second, err := env.svc.GrantInitialCash(ctx, 1)
	require.NoError(t, err)
	assert.False(t, second.Granted)
	assert.Equal(t, InitialCash.String(), second.Wallet.Balance)
	assert.Equal(t, first.Wallet.FirstGrantAt, second.Wallet.FirstGrantAt)

	grants := env.ledger.byType(domain.LedgerEntryTypeGrant)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].Amount.Equal(InitialCash))
	assert.Equal(t, domain.LedgerRefTypeSystem, grants[0].RefType)
}

func TestPlaceOrder_MarketBuySettlesImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "1000000")
	env.prices.prices["ABC"] = d("50000")

	order, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:   1,
		Symbol:   "ABC",
		Side:     "BUY",
		Type:     "MARKET",
		Quantity: d("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusFilled), order.Status)
	assert.Equal(t, "10", order.FilledQuantity)
	assert.Equal(t, "50000", order.AvgFilledPrice)
	assert.Equal(t, "500", order.FeeTotal)

	wallet := env.wallets.wallets[1]
	assert.True(t, wallet.Balance.Equal(d("499500")), "balance = %s", wallet.Balance)
	assert.True(t, wallet.Locked.IsZero())

	position := env.positions.positions[positionKey{1, "ABC"}]
	require.NotNil(t, position)
	assert.True(t, position.Quantity.Equal(d("10")))
	assert.True(t, position.AvgPrice.Equal(d("50000")))

	// 冻结流水记录的是冻结金额的负值与冻结后可用余额
	locks := env.ledger.byType(domain.LedgerEntryTypeLock)
	require.Len(t, locks, 1)
	assert.True(t, locks[0].Amount.Equal(d("-500500")))
	assert.True(t, locks[0].BalanceAfter.Equal(d("499500")))

	buys := env.ledger.byType(domain.LedgerEntryTypeBuy)
	require.Len(t, buys, 1)
	assert.True(t, buys[0].Amount.Equal(d("-500000")))
	assert.True(t, buys[0].BalanceAfter.Equal(d("500000")))

	fees := env.ledger.byType(domain.LedgerEntryTypeFee)
	require.Len(t, fees, 1)
	assert.True(t, fees[0].Amount.Equal(d("-500")))
	assert.True(t, fees[0].BalanceAfter.Equal(d("499500")))

	require.Len(t, env.trades.trades, 1)
	assert.True(t, env.trades.trades[0].Price.Equal(d("50000")))
}

func TestPlaceOrder_LimitSellAboveMarketStaysOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "0")
	env.seedPosition(1, "ABC", "10", "0", "50000")
	env.prices.prices["ABC"] = d("55000")

	order, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:     1,
		Symbol:     "ABC",
		Side:       "SELL",
		Type:       "LIMIT",
		Quantity:   d("5"),
		LimitPrice: decimal.NewNullDecimal(d("60000")),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusNew), order.Status)

	position := env.positions.positions[positionKey{1, "ABC"}]
	assert.True(t, position.LockedQuantity.Equal(d("5")))
	assert.True(t, position.AvailableQuantity().Equal(d("5")))
	assert.Empty(t, env.trades.trades)

	canceled, err := env.svc.CancelOrder(ctx, CancelOrderCommand{UserID: 1, OrderNo: order.OrderNo})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusCanceled), canceled.Status)
	assert.NotZero(t, canceled.CanceledAt)

	assert.True(t, position.LockedQuantity.IsZero())
	assert.True(t, position.AvailableQuantity().Equal(d("10")))

	// 撤卖单写零金额释放流水，meta 记录释放数量
	releases := env.ledger.byType(domain.LedgerEntryTypeCancelRelease)
	require.Len(t, releases, 1)
	assert.True(t, releases[0].Amount.IsZero())

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(releases[0].Meta), &meta))
	assert.Equal(t, "ABC", meta["symbol"])
	assert.Equal(t, "5", meta["released_quantity"])
}

func TestPlaceOrder_LimitBuyExecutesAtLimitPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "1000000")
	env.prices.prices["ABC"] = d("50000")

	order, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:     1,
		Symbol:     "ABC",
		Side:       "BUY",
		Type:       "LIMIT",
		Quantity:   d("10"),
		LimitPrice: decimal.NewNullDecimal(d("51000")),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusFilled), order.Status)

	// 限价买单按限价成交，不按行情价
	require.Len(t, env.trades.trades, 1)
	assert.True(t, env.trades.trades[0].Price.Equal(d("51000")))

	wallet := env.wallets.wallets[1]
	// 1,000,000 − 510,000 − 510
	assert.True(t, wallet.Balance.Equal(d("489490")), "balance = %s", wallet.Balance)
	assert.True(t, wallet.Locked.IsZero())
}

func TestPlaceOrder_LimitBuyBelowMarketStaysOpenAndCancelRestores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "1000000")
	env.prices.prices["ABC"] = d("50000")

	order, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:     1,
		Symbol:     "ABC",
		Side:       "BUY",
		Type:       "LIMIT",
		Quantity:   d("10"),
		LimitPrice: decimal.NewNullDecimal(d("49000")),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusNew), order.Status)

	wallet := env.wallets.wallets[1]
	// 冻结 10 × 49,000 × 1.001
	assert.True(t, wallet.Locked.Equal(d("490490")), "locked = %s", wallet.Locked)
	assert.True(t, wallet.Balance.Equal(d("1000000")))

	_, err = env.svc.CancelOrder(ctx, CancelOrderCommand{UserID: 1, OrderNo: order.OrderNo})
	require.NoError(t, err)
	assert.True(t, wallet.Locked.IsZero())
	assert.True(t, wallet.Balance.Equal(d("1000000")))

	releases := env.ledger.byType(domain.LedgerEntryTypeCancelRelease)
	require.Len(t, releases, 1)
	assert.True(t, releases[0].Amount.Equal(d("490490")))
}

func TestPlaceOrder_DuplicateClientOrderID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "1000000")
	env.prices.prices["ABC"] = d("50000")

	cmd := PlaceOrderCommand{
		UserID:        1,
		Symbol:        "ABC",
		Side:          "BUY",
		Type:          "MARKET",
		Quantity:      d("1"),
		ClientOrderID: "X",
	}
	_, err := env.svc.PlaceOrder(ctx, cmd)
	require.NoError(t, err)

	orderCount := len(env.orders.orders)
	tradeCount := len(env.trades.trades)
	ledgerCount := len(env.ledger.entries)

	_, err = env.svc.PlaceOrder(ctx, cmd)
	require.Error(t, err)
	assertErrorCode(t, err, domain.CodeDuplicateClientOrder)

	assert.Len(t, env.orders.orders, orderCount)
	assert.Len(t, env.trades.trades, tradeCount)
	assert.Len(t, env.ledger.entries, ledgerCount)
}

// blindPrecheckOrderRepo 让幂等前置查询永远落空，
// 模拟两个并发请求都在对方落库前完成了查询的窗口。
type blindPrecheckOrderRepo struct {
	*fakeOrderRepo
}

func (r *blindPrecheckOrderRepo) GetByClientOrderID(_ context.Context, _ uint64, _ string) (*domain.Order, error) {
	return nil, nil
}

func TestPlaceOrder_DuplicateClientOrderIDEnforcedOnInsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "1000000")
	env.prices.prices["ABC"] = d("50000")

	orders := &blindPrecheckOrderRepo{fakeOrderRepo: env.orders}
	command := NewTradingCommandService(
		env.wallets, env.positions, env.orders, env.trades, env.ledger,
		env.prices, fakeTxManager{}, slog.New(slog.DiscardHandler))
	command.orders = orders

	cmd := PlaceOrderCommand{
		UserID:        1,
		Symbol:        "ABC",
		Side:          "BUY",
		Type:          "MARKET",
		Quantity:      d("1"),
		ClientOrderID: "X",
	}
	_, err := command.PlaceOrder(ctx, cmd)
	require.NoError(t, err)

	// 前置查询看不到已落库的订单，唯一索引仍然拦下第二单
	_, err = command.PlaceOrder(ctx, cmd)
	require.Error(t, err)
	assertErrorCode(t, err, domain.CodeDuplicateClientOrder)
	assert.Len(t, env.orders.orders, 1)
}

func TestPlaceOrder_InsufficientPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "0")
	env.seedPosition(1, "ABC", "10", "6", "50000")
	env.prices.prices["ABC"] = d("50000")

	_, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:   1,
		Symbol:   "ABC",
		Side:     "SELL",
		Type:     "MARKET",
		Quantity: d("5"),
	})
	require.Error(t, err)
	assertErrorCode(t, err, domain.CodeInsufficientPosition)

	var xe *xerrors.Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, "5", xe.Context["required"])
	assert.Equal(t, "4", xe.Context["available"])

	assert.Empty(t, env.orders.orders)
	assert.Empty(t, env.trades.trades)
	assert.Empty(t, env.ledger.entries)
}

func TestPlaceOrder_SequentialBuysShareOneBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "600000")
	env.prices.prices["ABC"] = d("50000")

	cmd := PlaceOrderCommand{
		UserID:   1,
		Symbol:   "ABC",
		Side:     "BUY",
		Type:     "MARKET",
		Quantity: d("10"),
	}
	_, err := env.svc.PlaceOrder(ctx, cmd)
	require.NoError(t, err)

	// 余额只够一单，第二单必须失败
	_, err = env.svc.PlaceOrder(ctx, cmd)
	require.Error(t, err)
	assertErrorCode(t, err, domain.CodeInsufficientBalance)

	require.Len(t, env.orders.orders, 1)
	wallet := env.wallets.wallets[1]
	assert.True(t, wallet.Balance.Equal(d("99500")), "balance = %s", wallet.Balance)
}

func TestPlaceOrder_MarketPriceNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "1000000")

	_, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:   1,
		Symbol:   "ZZZ",
		Side:     "BUY",
		Type:     "MARKET",
		Quantity: d("1"),
	})
	require.Error(t, err)
	assertErrorCode(t, err, domain.CodeMarketPriceNotFound)
	assert.Empty(t, env.orders.orders)
}

func TestPlaceOrder_RejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  PlaceOrderCommand
	}{
		{"missing symbol", PlaceOrderCommand{UserID: 1, Side: "BUY", Type: "MARKET", Quantity: d("1")}},
		{"zero quantity", PlaceOrderCommand{UserID: 1, Symbol: "ABC", Side: "BUY", Type: "MARKET", Quantity: d("0")}},
		{"negative quantity", PlaceOrderCommand{UserID: 1, Symbol: "ABC", Side: "BUY", Type: "MARKET", Quantity: d("-1")}},
		{"bad side", PlaceOrderCommand{UserID: 1, Symbol: "ABC", Side: "HOLD", Type: "MARKET", Quantity: d("1")}},
		{"bad type", PlaceOrderCommand{UserID: 1, Symbol: "ABC", Side: "BUY", Type: "STOP", Quantity: d("1")}},
		{"limit without price", PlaceOrderCommand{UserID: 1, Symbol: "ABC", Side: "BUY", Type: "LIMIT", Quantity: d("1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.PlaceOrder(ctx, tc.cmd)
			require.Error(t, err)
			assertErrorCode(t, err, domain.CodeInvalidOrder)
		})
	}
}

func TestCancelOrder_NotFoundAndNotCancelable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "1000000")
	env.prices.prices["ABC"] = d("50000")

	_, err := env.svc.CancelOrder(ctx, CancelOrderCommand{UserID: 1, OrderNo: "O-missing"})
	require.Error(t, err)
	assertErrorCode(t, err, domain.CodeOrderNotFound)

	filled, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:   1,
		Symbol:   "ABC",
		Side:     "BUY",
		Type:     "MARKET",
		Quantity: d("1"),
	})
	require.NoError(t, err)

	_, err = env.svc.CancelOrder(ctx, CancelOrderCommand{UserID: 1, OrderNo: filled.OrderNo})
	require.Error(t, err)
	assertErrorCode(t, err, domain.CodeOrderNotCancelable)
}

func TestSellSettlementLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedWallet(1, "0")
	env.seedPosition(1, "ABC", "10", "0", "50000")
	env.prices.prices["ABC"] = d("50000")

	_, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:   1,
		Symbol:   "ABC",
		Side:     "SELL",
		Type:     "MARKET",
		Quantity: d("10"),
	})
	require.NoError(t, err)

	wallet := env.wallets.wallets[1]
	// 500,000 − 500
	assert.True(t, wallet.Balance.Equal(d("499500")))

	// 卖出本金流水先于手续费入账，余额快照含未扣的手续费
	sells := env.ledger.byType(domain.LedgerEntryTypeSell)
	require.Len(t, sells, 1)
	assert.True(t, sells[0].Amount.Equal(d("500000")))
	assert.True(t, sells[0].BalanceAfter.Equal(d("500000")))

	fees := env.ledger.byType(domain.LedgerEntryTypeFee)
	require.Len(t, fees, 1)
	assert.True(t, fees[0].BalanceAfter.Equal(d("499500")))

	position := env.positions.positions[positionKey{1, "ABC"}]
	assert.True(t, position.Quantity.IsZero())
	assert.True(t, position.AvgPrice.IsZero())
}

func TestLedgerConservationAcrossCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.prices.prices["ABC"] = d("50000")

	_, err := env.svc.GrantInitialCash(ctx, 1)
	require.NoError(t, err)

	_, err = env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID: 1, Symbol: "ABC", Side: "BUY", Type: "MARKET", Quantity: d("10"),
	})
	require.NoError(t, err)

	open, err := env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID: 1, Symbol: "ABC", Side: "SELL", Type: "LIMIT",
		Quantity: d("5"), LimitPrice: decimal.NewNullDecimal(d("60000")),
	})
	require.NoError(t, err)

	_, err = env.svc.CancelOrder(ctx, CancelOrderCommand{UserID: 1, OrderNo: open.OrderNo})
	require.NoError(t, err)

	_, err = env.svc.PlaceOrder(ctx, PlaceOrderCommand{
		UserID: 1, Symbol: "ABC", Side: "SELL", Type: "MARKET", Quantity: d("10"),
	})
	require.NoError(t, err)

	wallet := env.wallets.wallets[1]
	// 1,000,000,000 − 500 − 500（买卖各一笔手续费）
	assert.True(t, wallet.Balance.Equal(d("999999000")), "balance = %s", wallet.Balance)
	assert.True(t, wallet.Locked.IsZero())

	// 影响余额的流水之和等于钱包余额
	assert.True(t, env.ledger.balanceAffectingSum().Equal(wallet.Balance),
		"ledger sum = %s, balance = %s", env.ledger.balanceAffectingSum(), wallet.Balance)

	position := env.positions.positions[positionKey{1, "ABC"}]
	assert.True(t, position.Quantity.IsZero())
	assert.True(t, position.LockedQuantity.IsZero())
}

func assertErrorCode(t *testing.T, err error, code int) {
	t.Helper()
	var xe *xerrors.Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, code, xe.Code)
}
