// Package application 模拟交易服务应用层
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/pkg/idgen"
)

// 模拟盘资金参数
var (
	// InitialCash 开户体验金，10 亿越南盾
	InitialCash = decimal.NewFromInt(1_000_000_000)
	// FeeRate 双边成交手续费率
	FeeRate = decimal.NewFromFloat(0.001)
)

// TradingCommandService 处理所有交易写入操作（Commands）。
// 每个命令是一个数据库事务：行锁校验、状态变更、流水落库要么全部生效要么全部回滚。
type TradingCommandService struct {
	wallets   domain.WalletRepository
	positions domain.PositionRepository
	orders    domain.OrderRepository
	trades    domain.TradeRepository
	ledger    domain.LedgerRepository
	prices    domain.MarketPriceProvider
	txManager domain.TxManager
	logger    *slog.Logger
}

// NewTradingCommandService 构造函数。
func NewTradingCommandService(
	wallets domain.WalletRepository,
	positions domain.PositionRepository,
	orders domain.OrderRepository,
	trades domain.TradeRepository,
	ledger domain.LedgerRepository,
	prices domain.MarketPriceProvider,
	txManager domain.TxManager,
	logger *slog.Logger,
) *TradingCommandService {
	return &TradingCommandService{
		wallets:   wallets,
		positions: positions,
		orders:    orders,
		trades:    trades,
		ledger:    ledger,
		prices:    prices,
		txManager: txManager,
		logger:    logger,
	}
}

// GrantInitialCash 发放开户体验金，幂等：每个用户最多发放一次。
func (s *TradingCommandService) GrantInitialCash(ctx context.Context, userID uint64) (*GrantResultDTO, error) {
	var result *GrantResultDTO
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		wallet, err := s.wallets.GetByUserIDForUpdate(txCtx, userID)
		if err != nil {
			return err
		}
		if wallet == nil {
			wallet = domain.NewWallet(userID)
			if err := s.wallets.Create(txCtx, wallet); err != nil {
				return err
			}
		}

		if wallet.FirstGrantAt != nil {
			result = &GrantResultDTO{Granted: false, Wallet: toWalletDTO(wallet)}
			return nil
		}

		now := time.Now()
		wallet.Credit(InitialCash)
		wallet.FirstGrantAt = &now
		if err := s.wallets.Update(txCtx, wallet); err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			UserID:       userID,
			EntryType:    domain.LedgerEntryTypeGrant,
			Amount:       InitialCash,
			BalanceAfter: wallet.Balance,
			RefType:      domain.LedgerRefTypeSystem,
			Meta:         mustMeta(map[string]any{"reason": "initial_grant"}),
		}
		if err := s.ledger.Create(txCtx, entry); err != nil {
			return err
		}

		result = &GrantResultDTO{Granted: true, Wallet: toWalletDTO(wallet)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "体验金发放处理完成", "user_id", userID, "granted", result.Granted)
	return result, nil
}

// PlaceOrderCommand 下单命令
type PlaceOrderCommand struct {
	UserID        uint64
	Symbol        string
	Side          string
	Type          string
	Quantity      decimal.Decimal
	LimitPrice    decimal.NullDecimal
	ClientOrderID string
}

// PlaceOrder 下单并同步尝试全量成交。
// 流程：参数校验 → 幂等检查 → 取行情快照 → 事务内冻结资源、建单、按价格条件立即成交。
func (s *TradingCommandService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*OrderDTO, error) {
	side, orderType, err := validatePlaceOrder(cmd)
	if err != nil {
		return nil, err
	}

	if cmd.ClientOrderID != "" {
		existing, err := s.orders.GetByClientOrderID(ctx, cmd.UserID, cmd.ClientOrderID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.NewDuplicateClientOrderIDError(cmd.ClientOrderID)
		}
	}

	marketPrice, ok, err := s.prices.GetPrice(ctx, cmd.Symbol)
	if err != nil {
		s.logger.WarnContext(ctx, "获取行情失败", "symbol", cmd.Symbol, "error", err)
		return nil, domain.NewMarketPriceNotFoundError(cmd.Symbol)
	}
	if !ok || !marketPrice.IsPositive() {
		return nil, domain.NewMarketPriceNotFoundError(cmd.Symbol)
	}

	// 市价单不携带限价
	if orderType == domain.OrderTypeMarket {
		cmd.LimitPrice = decimal.NullDecimal{}
	}

	order := domain.NewOrder(idgen.GenOrderNo(), cmd.UserID, cmd.Symbol, side, orderType,
		cmd.Quantity, cmd.LimitPrice, marketPrice, cmd.ClientOrderID)

	err = s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if side == domain.OrderSideBuy {
			if err := s.reserveFunds(txCtx, order, marketPrice); err != nil {
				return err
			}
		} else {
			if err := s.reservePosition(txCtx, order); err != nil {
				return err
			}
		}

		if err := s.orders.Create(txCtx, order); err != nil {
			return err
		}

		execPrice, executable := executionPrice(order, marketPrice)
		if !executable {
			return nil
		}
		return s.execute(txCtx, order, execPrice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "下单完成",
		"user_id", cmd.UserID, "order_no", order.OrderNo,
		"symbol", order.Symbol, "side", order.Side, "status", order.Status)
	return toOrderDTO(order), nil
}

// CancelOrderCommand 撤单命令
type CancelOrderCommand struct {
	UserID  uint64
	OrderNo string
}

// CancelOrder 撤销挂单并释放冻结的资源。
func (s *TradingCommandService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*OrderDTO, error) {
	var order *domain.Order
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orders.GetByUserAndNoForUpdate(txCtx, cmd.UserID, cmd.OrderNo)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.NewOrderNotFoundError(cmd.OrderNo)
		}

		remaining := order.RemainingQuantity()
		if err := order.Cancel(); err != nil {
			return err
		}

		if order.Side == domain.OrderSideBuy {
			if err := s.releaseFunds(txCtx, order, remaining); err != nil {
				return err
			}
		} else {
			if err := s.releasePosition(txCtx, order, remaining); err != nil {
				return err
			}
		}

		return s.orders.Update(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "撤单完成", "user_id", cmd.UserID, "order_no", cmd.OrderNo)
	return toOrderDTO(order), nil
}

// reserveFunds 冻结买单所需资金：数量 × 预估成交价 × (1 + 费率)。
// 预估成交价：限价买单取限价，市价买单取行情快照。
func (s *TradingCommandService) reserveFunds(ctx context.Context, order *domain.Order, marketPrice decimal.Decimal) error {
	reservePrice := marketPrice
	if order.Type == domain.OrderTypeLimit {
		reservePrice = order.LimitPrice.Decimal
	}
	required := order.Quantity.Mul(reservePrice).Mul(onePlusFee())

	wallet, err := s.wallets.GetByUserIDForUpdate(ctx, order.UserID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return domain.NewInsufficientBalanceError(required, decimal.Zero)
	}
	if err := wallet.Lock(required); err != nil {
		return err
	}
	if err := s.wallets.Update(ctx, wallet); err != nil {
		return err
	}

	// 冻结流水记录的是冻结后的可用余额
	return s.ledger.Create(ctx, &domain.LedgerEntry{
		UserID:       order.UserID,
		EntryType:    domain.LedgerEntryTypeLock,
		Amount:       required.Neg(),
		BalanceAfter: wallet.Available(),
		RefType:      domain.LedgerRefTypeOrder,
		RefID:        order.OrderNo,
		Meta:         mustMeta(map[string]any{"symbol": order.Symbol}),
	})
}

// reservePosition 冻结卖单所需持仓数量。
func (s *TradingCommandService) reservePosition(ctx context.Context, order *domain.Order) error {
	position, err := s.positions.GetByUserAndSymbolForUpdate(ctx, order.UserID, order.Symbol)
	if err != nil {
		return err
	}
	if position == nil {
		return domain.NewInsufficientPositionError(order.Symbol, order.Quantity, decimal.Zero)
	}
	if err := position.Lock(order.Quantity); err != nil {
		return err
	}
	return s.positions.Update(ctx, position)
}

// releaseFunds 撤买单：按挂单价解冻剩余量占用的资金。
func (s *TradingCommandService) releaseFunds(ctx context.Context, order *domain.Order, remaining decimal.Decimal) error {
	releasePrice := order.PriceSnapshot
	if order.LimitPrice.Valid {
		releasePrice = order.LimitPrice.Decimal
	}
	release := remaining.Mul(releasePrice).Mul(onePlusFee())

	wallet, err := s.wallets.GetByUserIDForUpdate(ctx, order.UserID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return domain.NewOrderNotFoundError(order.OrderNo)
	}
	wallet.Unlock(release)
	if err := s.wallets.Update(ctx, wallet); err != nil {
		return err
	}

	return s.ledger.Create(ctx, &domain.LedgerEntry{
		UserID:       order.UserID,
		EntryType:    domain.LedgerEntryTypeCancelRelease,
		Amount:       release,
		BalanceAfter: wallet.Available(),
		RefType:      domain.LedgerRefTypeOrder,
		RefID:        order.OrderNo,
		Meta:         mustMeta(map[string]any{"symbol": order.Symbol}),
	})
}

// releasePosition 撤卖单：解冻剩余持仓并写一条零金额释放流水对齐审计。
func (s *TradingCommandService) releasePosition(ctx context.Context, order *domain.Order, remaining decimal.Decimal) error {
	position, err := s.positions.GetByUserAndSymbolForUpdate(ctx, order.UserID, order.Symbol)
	if err != nil {
		return err
	}
	if position != nil {
		position.Unlock(remaining)
		if err := s.positions.Update(ctx, position); err != nil {
			return err
		}
	}

	wallet, err := s.wallets.GetByUserID(ctx, order.UserID)
	if err != nil {
		return err
	}
	available := decimal.Zero
	if wallet != nil {
		available = wallet.Available()
	}

	return s.ledger.Create(ctx, &domain.LedgerEntry{
		UserID:       order.UserID,
		EntryType:    domain.LedgerEntryTypeCancelRelease,
		Amount:       decimal.Zero,
		BalanceAfter: available,
		RefType:      domain.LedgerRefTypeOrder,
		RefID:        order.OrderNo,
		Meta: mustMeta(map[string]any{
			"symbol":            order.Symbol,
			"released_quantity": remaining.String(),
		}),
	})
}

// execute 以成交价全量成交订单，并完成钱包/持仓/流水结算。
func (s *TradingCommandService) execute(ctx context.Context, order *domain.Order, execPrice decimal.Decimal) error {
	qty := order.RemainingQuantity()
	gross := qty.Mul(execPrice)
	fee := gross.Mul(FeeRate)

	trade := &domain.Trade{
		TradeNo:    fmt.Sprintf("T%d", idgen.GenID()),
		OrderNo:    order.OrderNo,
		UserID:     order.UserID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   qty,
		Price:      execPrice,
		Fee:        fee,
		ExecutedAt: time.Now(),
	}
	if err := s.trades.Create(ctx, trade); err != nil {
		return err
	}

	if err := order.Fill(qty, execPrice, fee); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return err
	}

	if order.Side == domain.OrderSideBuy {
		return s.settleBuy(ctx, order, trade, qty, execPrice, gross, fee)
	}
	return s.settleSell(ctx, order, trade, qty, gross, fee)
}

// settleBuy 买入结算：解冻预估占用、扣本金和手续费、加仓。
func (s *TradingCommandService) settleBuy(ctx context.Context, order *domain.Order, trade *domain.Trade, qty, execPrice, gross, fee decimal.Decimal) error {
	reservePrice := order.PriceSnapshot
	if order.Type == domain.OrderTypeLimit {
		reservePrice = order.LimitPrice.Decimal
	}
	reserved := qty.Mul(reservePrice).Mul(onePlusFee())

	wallet, err := s.wallets.GetByUserIDForUpdate(ctx, order.UserID)
	if err != nil {
		return err
	}
	wallet.Unlock(reserved)

	wallet.Deduct(gross)
	if err := s.ledger.Create(ctx, &domain.LedgerEntry{
		UserID:       order.UserID,
		EntryType:    domain.LedgerEntryTypeBuy,
		Amount:       gross.Neg(),
		BalanceAfter: wallet.Balance,
		RefType:      domain.LedgerRefTypeTrade,
		RefID:        trade.TradeNo,
		Meta:         mustMeta(map[string]any{"symbol": order.Symbol, "order_no": order.OrderNo}),
	}); err != nil {
		return err
	}

	wallet.Deduct(fee)
	if err := s.ledger.Create(ctx, &domain.LedgerEntry{
		UserID:       order.UserID,
		EntryType:    domain.LedgerEntryTypeFee,
		Amount:       fee.Neg(),
		BalanceAfter: wallet.Balance,
		RefType:      domain.LedgerRefTypeTrade,
		RefID:        trade.TradeNo,
		Meta:         mustMeta(map[string]any{"symbol": order.Symbol, "order_no": order.OrderNo}),
	}); err != nil {
		return err
	}

	if err := s.wallets.Update(ctx, wallet); err != nil {
		return err
	}

	position, err := s.positions.GetByUserAndSymbolForUpdate(ctx, order.UserID, order.Symbol)
	if err != nil {
		return err
	}
	if position == nil {
		position = domain.NewPosition(order.UserID, order.Symbol)
		position.Add(qty, execPrice)
		return s.positions.Create(ctx, position)
	}
	position.Add(qty, execPrice)
	return s.positions.Update(ctx, position)
}

// settleSell 卖出结算：解冻并减掉持仓、入账卖出款、扣手续费。
func (s *TradingCommandService) settleSell(ctx context.Context, order *domain.Order, trade *domain.Trade, qty, gross, fee decimal.Decimal) error {
	position, err := s.positions.GetByUserAndSymbolForUpdate(ctx, order.UserID, order.Symbol)
	if err != nil {
		return err
	}
	if position == nil {
		return domain.NewInsufficientPositionError(order.Symbol, qty, decimal.Zero)
	}
	position.Unlock(qty)
	position.Remove(qty)
	if err := s.positions.Update(ctx, position); err != nil {
		return err
	}

	wallet, err := s.wallets.GetByUserIDForUpdate(ctx, order.UserID)
	if err != nil {
		return err
	}
	if wallet == nil {
		wallet = domain.NewWallet(order.UserID)
		if err := s.wallets.Create(ctx, wallet); err != nil {
			return err
		}
	}

	wallet.Credit(gross)
	if err := s.ledger.Create(ctx, &domain.LedgerEntry{
		UserID:       order.UserID,
		EntryType:    domain.LedgerEntryTypeSell,
		Amount:       gross,
		BalanceAfter: wallet.Balance,
		RefType:      domain.LedgerRefTypeTrade,
		RefID:        trade.TradeNo,
		Meta:         mustMeta(map[string]any{"symbol": order.Symbol, "order_no": order.OrderNo}),
	}); err != nil {
		return err
	}

	wallet.Deduct(fee)
	if err := s.ledger.Create(ctx, &domain.LedgerEntry{
		UserID:       order.UserID,
		EntryType:    domain.LedgerEntryTypeFee,
		Amount:       fee.Neg(),
		BalanceAfter: wallet.Balance,
		RefType:      domain.LedgerRefTypeTrade,
		RefID:        trade.TradeNo,
		Meta:         mustMeta(map[string]any{"symbol": order.Symbol, "order_no": order.OrderNo}),
	}); err != nil {
		return err
	}

	return s.wallets.Update(ctx, wallet)
}

// executionPrice 判定订单是否立即成交及成交价。
// 市价单按行情价成交；限价买单在行情价不高于限价时按限价成交；
// 限价卖单在行情价不低于限价时按行情价成交。
func executionPrice(order *domain.Order, marketPrice decimal.Decimal) (decimal.Decimal, bool) {
	if order.Type == domain.OrderTypeMarket {
		return marketPrice, true
	}
	limit := order.LimitPrice.Decimal
	if order.Side == domain.OrderSideBuy {
		if marketPrice.LessThanOrEqual(limit) {
			return limit, true
		}
		return decimal.Zero, false
	}
	if marketPrice.GreaterThanOrEqual(limit) {
		return marketPrice, true
	}
	return decimal.Zero, false
}

func validatePlaceOrder(cmd PlaceOrderCommand) (domain.OrderSide, domain.OrderType, error) {
	if cmd.Symbol == "" {
		return "", "", domain.NewInvalidOrderError("symbol is required", nil)
	}
	if !cmd.Quantity.IsPositive() {
		return "", "", domain.NewInvalidOrderError("quantity must be positive", map[string]any{
			"quantity": cmd.Quantity.String(),
		})
	}

	side := domain.OrderSide(cmd.Side)
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		return "", "", domain.NewInvalidOrderError("side must be BUY or SELL", map[string]any{
			"side": cmd.Side,
		})
	}

	orderType := domain.OrderType(cmd.Type)
	switch orderType {
	case domain.OrderTypeMarket:
	case domain.OrderTypeLimit:
		if !cmd.LimitPrice.Valid || !cmd.LimitPrice.Decimal.IsPositive() {
			return "", "", domain.NewInvalidOrderError("limit order requires a positive limit price", nil)
		}
	default:
		return "", "", domain.NewInvalidOrderError("type must be MARKET or LIMIT", map[string]any{
			"type": cmd.Type,
		})
	}

	return side, orderType, nil
}

func onePlusFee() decimal.Decimal {
	return decimal.NewFromInt(1).Add(FeeRate)
}

func mustMeta(fields map[string]any) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}
