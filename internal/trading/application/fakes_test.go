package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/trading/domain"
)

// 内存仓储与桩行情源，服务层测试不依赖数据库。

type fakeTxManager struct{}

func (fakeTxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeWalletRepo struct {
	wallets map[uint64]*domain.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[uint64]*domain.Wallet)}
}

func (r *fakeWalletRepo) GetByUserID(_ context.Context, userID uint64) (*domain.Wallet, error) {
	return r.wallets[userID], nil
}

func (r *fakeWalletRepo) GetByUserIDForUpdate(ctx context.Context, userID uint64) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *fakeWalletRepo) Create(_ context.Context, wallet *domain.Wallet) error {
	if _, exists := r.wallets[wallet.UserID]; exists {
		return errors.New("duplicate wallet")
	}
	r.wallets[wallet.UserID] = wallet
	return nil
}

func (r *fakeWalletRepo) Update(_ context.Context, wallet *domain.Wallet) error {
	r.wallets[wallet.UserID] = wallet
	return nil
}

type positionKey struct {
	userID uint64
	symbol string
}

type fakePositionRepo struct {
	positions map[positionKey]*domain.Position
}

func newFakePositionRepo() *fakePositionRepo {
	return &fakePositionRepo{positions: make(map[positionKey]*domain.Position)}
}

func (r *fakePositionRepo) GetByUserAndSymbol(_ context.Context, userID uint64, symbol string) (*domain.Position, error) {
	return r.positions[positionKey{userID, symbol}], nil
}

func (r *fakePositionRepo) GetByUserAndSymbolForUpdate(ctx context.Context, userID uint64, symbol string) (*domain.Position, error) {
	return r.GetByUserAndSymbol(ctx, userID, symbol)
}

func (r *fakePositionRepo) ListByUser(_ context.Context, userID uint64) ([]*domain.Position, error) {
	var out []*domain.Position
	for key, p := range r.positions {
		if key.userID == userID && p.Quantity.IsPositive() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePositionRepo) Create(_ context.Context, position *domain.Position) error {
	r.positions[positionKey{position.UserID, position.Symbol}] = position
	return nil
}

func (r *fakePositionRepo) Update(_ context.Context, position *domain.Position) error {
	r.positions[positionKey{position.UserID, position.Symbol}] = position
	return nil
}

type fakeOrderRepo struct {
	orders []*domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{}
}

// Create 模拟 (user_id, client_order_id) 唯一索引
func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	if order.ClientOrderID != nil {
		for _, o := range r.orders {
			if o.UserID == order.UserID && o.ClientOrderID != nil && *o.ClientOrderID == *order.ClientOrderID {
				return domain.NewDuplicateClientOrderIDError(*order.ClientOrderID)
			}
		}
	}
	r.orders = append(r.orders, order)
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, _ *domain.Order) error {
	return nil
}

func (r *fakeOrderRepo) GetByUserAndNo(_ context.Context, userID uint64, orderNo string) (*domain.Order, error) {
	for _, o := range r.orders {
		if o.UserID == userID && o.OrderNo == orderNo {
			return o, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) GetByUserAndNoForUpdate(ctx context.Context, userID uint64, orderNo string) (*domain.Order, error) {
	return r.GetByUserAndNo(ctx, userID, orderNo)
}

func (r *fakeOrderRepo) GetByClientOrderID(_ context.Context, userID uint64, clientOrderID string) (*domain.Order, error) {
	for _, o := range r.orders {
		if o.UserID == userID && o.ClientOrderID != nil && *o.ClientOrderID == clientOrderID {
			return o, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID uint64, status domain.OrderStatus, symbol string, limit, offset int) ([]*domain.Order, int64, error) {
	var matched []*domain.Order
	for _, o := range r.orders {
		if o.UserID != userID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		matched = append(matched, o)
	}
	return paginate(matched, limit, offset), int64(len(matched)), nil
}

type fakeTradeRepo struct {
	trades []*domain.Trade
}

func newFakeTradeRepo() *fakeTradeRepo {
	return &fakeTradeRepo{}
}

func (r *fakeTradeRepo) Create(_ context.Context, trade *domain.Trade) error {
	r.trades = append(r.trades, trade)
	return nil
}

func (r *fakeTradeRepo) ListByOrderNo(_ context.Context, orderNo string) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for _, t := range r.trades {
		if t.OrderNo == orderNo {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTradeRepo) ListByUser(_ context.Context, userID uint64, symbol string, limit, offset int) ([]*domain.Trade, int64, error) {
	var matched []*domain.Trade
	for _, t := range r.trades {
		if t.UserID != userID {
			continue
		}
		if symbol != "" && t.Symbol != symbol {
			continue
		}
		matched = append(matched, t)
	}
	return paginate(matched, limit, offset), int64(len(matched)), nil
}

type fakeLedgerRepo struct {
	entries []*domain.LedgerEntry
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{}
}

func (r *fakeLedgerRepo) Create(_ context.Context, entry *domain.LedgerEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLedgerRepo) ListByUser(_ context.Context, userID uint64, entryType domain.LedgerEntryType, limit, offset int) ([]*domain.LedgerEntry, int64, error) {
	var matched []*domain.LedgerEntry
	for _, e := range r.entries {
		if e.UserID != userID {
			continue
		}
		if entryType != "" && e.EntryType != entryType {
			continue
		}
		matched = append(matched, e)
	}
	return paginate(matched, limit, offset), int64(len(matched)), nil
}

// byType 按类型过滤全部流水，测试断言用。
func (r *fakeLedgerRepo) byType(entryType domain.LedgerEntryType) []*domain.LedgerEntry {
	var out []*domain.LedgerEntry
	for _, e := range r.entries {
		if e.EntryType == entryType {
			out = append(out, e)
		}
	}
	return out
}

// balanceAffectingSum GRANT/BUY/SELL/FEE 流水金额之和。
func (r *fakeLedgerRepo) balanceAffectingSum() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range r.entries {
		switch e.EntryType {
		case domain.LedgerEntryTypeGrant, domain.LedgerEntryTypeBuy,
			domain.LedgerEntryTypeSell, domain.LedgerEntryTypeFee:
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

type fakePriceProvider struct {
	prices map[string]decimal.Decimal
	err    error
}

func newFakePriceProvider() *fakePriceProvider {
	return &fakePriceProvider{prices: make(map[string]decimal.Decimal)}
}

func (p *fakePriceProvider) GetPrice(_ context.Context, symbol string) (decimal.Decimal, bool, error) {
	if p.err != nil {
		return decimal.Zero, false, p.err
	}
	price, ok := p.prices[symbol]
	return price, ok, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type testEnv struct {
	wallets   *fakeWalletRepo
	positions *fakePositionRepo
	orders    *fakeOrderRepo
	trades    *fakeTradeRepo
	ledger    *fakeLedgerRepo
	prices    *fakePriceProvider
	svc       *TradingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		wallets:   newFakeWalletRepo(),
		positions: newFakePositionRepo(),
		orders:    newFakeOrderRepo(),
		trades:    newFakeTradeRepo(),
		ledger:    newFakeLedgerRepo(),
		prices:    newFakePriceProvider(),
	}
	logger := slog.New(slog.DiscardHandler)
	command := NewTradingCommandService(
		env.wallets, env.positions, env.orders, env.trades, env.ledger,
		env.prices, fakeTxManager{}, logger)
	query := NewTradingQueryService(
		env.wallets, env.positions, env.orders, env.trades, env.ledger,
		env.prices, logger)
	env.svc = NewTradingService(command, query)
	return env
}

func (env *testEnv) seedWallet(userID uint64, balance string) *domain.Wallet {
	wallet := domain.NewWallet(userID)
	wallet.Balance = d(balance)
	env.wallets.wallets[userID] = wallet
	return wallet
}

func (env *testEnv) seedPosition(userID uint64, symbol, quantity, locked, avgPrice string) *domain.Position {
	position := domain.NewPosition(userID, symbol)
	position.Quantity = d(quantity)
	position.LockedQuantity = d(locked)
	position.AvgPrice = d(avgPrice)
	env.positions.positions[positionKey{userID, symbol}] = position
	return position
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}
