package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/trading/domain"
)

// TradingQueryService 处理所有交易查询操作（Queries）。
type TradingQueryService struct {
	wallets   domain.WalletRepository
	positions domain.PositionRepository
	orders    domain.OrderRepository
	trades    domain.TradeRepository
	ledger    domain.LedgerRepository
	prices    domain.MarketPriceProvider
	logger    *slog.Logger
}

// NewTradingQueryService 构造函数。
func NewTradingQueryService(
	wallets domain.WalletRepository,
	positions domain.PositionRepository,
	orders domain.OrderRepository,
	trades domain.TradeRepository,
	ledger domain.LedgerRepository,
	prices domain.MarketPriceProvider,
	logger *slog.Logger,
) *TradingQueryService {
	return &TradingQueryService{
		wallets:   wallets,
		positions: positions,
		orders:    orders,
		trades:    trades,
		ledger:    ledger,
		prices:    prices,
		logger:    logger,
	}
}

// GetWallet 获取用户钱包，首次访问时懒创建空钱包。
func (s *TradingQueryService) GetWallet(ctx context.Context, userID uint64) (*WalletDTO, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		wallet = domain.NewWallet(userID)
		if err := s.wallets.Create(ctx, wallet); err != nil {
			return nil, err
		}
	}
	return toWalletDTO(wallet), nil
}

// GetPositions 获取用户全部非零持仓，尽力附上行情市值与浮动盈亏。
// 行情不可得时持仓照常返回，市值字段留空。
func (s *TradingQueryService) GetPositions(ctx context.Context, userID uint64) (*PositionListDTO, error) {
	positions, err := s.positions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &PositionListDTO{
		Positions:        make([]*PositionDTO, 0, len(positions)),
		TotalMarketValue: decimal.Zero.String(),
	}
	total := decimal.Zero
	for _, p := range positions {
		dto := &PositionDTO{
			Symbol:         p.Symbol,
			Quantity:       p.Quantity.String(),
			LockedQuantity: p.LockedQuantity.String(),
			AvailableQty:   p.AvailableQuantity().String(),
			AvgPrice:       p.AvgPrice.String(),
		}
		if price, ok, err := s.prices.GetPrice(ctx, p.Symbol); err == nil && ok {
			marketValue := p.Quantity.Mul(price)
			dto.MarketPrice = price.String()
			dto.MarketValue = marketValue.String()
			dto.UnrealizedPnL = price.Sub(p.AvgPrice).Mul(p.Quantity).String()
			total = total.Add(marketValue)
		} else if err != nil {
			s.logger.WarnContext(ctx, "持仓估值获取行情失败", "symbol", p.Symbol, "error", err)
		}
		result.Positions = append(result.Positions, dto)
	}
	result.TotalMarketValue = total.String()
	return result, nil
}

// GetOrders 分页查询用户订单。非法的状态过滤值按未过滤处理。
func (s *TradingQueryService) GetOrders(ctx context.Context, userID uint64, status, symbol string, limit, offset int) (*OrderListDTO, error) {
	orders, total, err := s.orders.ListByUser(ctx, userID, normalizeStatus(status), symbol, normalizeLimit(limit), offset)
	if err != nil {
		return nil, err
	}

	result := &OrderListDTO{Orders: make([]*OrderDTO, 0, len(orders)), Total: total}
	for _, o := range orders {
		result.Orders = append(result.Orders, toOrderDTO(o))
	}
	return result, nil
}

// GetOrder 获取订单详情及其全部成交明细。
func (s *TradingQueryService) GetOrder(ctx context.Context, userID uint64, orderNo string) (*OrderDetailDTO, error) {
	order, err := s.orders.GetByUserAndNo(ctx, userID, orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.NewOrderNotFoundError(orderNo)
	}

	trades, err := s.trades.ListByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	detail := &OrderDetailDTO{Order: toOrderDTO(order), Trades: make([]*TradeDTO, 0, len(trades))}
	for _, t := range trades {
		detail.Trades = append(detail.Trades, toTradeDTO(t))
	}
	return detail, nil
}

// GetTrades 分页查询用户成交。
func (s *TradingQueryService) GetTrades(ctx context.Context, userID uint64, symbol string, limit, offset int) (*TradeListDTO, error) {
	trades, total, err := s.trades.ListByUser(ctx, userID, symbol, normalizeLimit(limit), offset)
	if err != nil {
		return nil, err
	}

	result := &TradeListDTO{Trades: make([]*TradeDTO, 0, len(trades)), Total: total}
	for _, t := range trades {
		result.Trades = append(result.Trades, toTradeDTO(t))
	}
	return result, nil
}

// GetLedger 分页查询用户资金流水。非法的类型过滤值按未过滤处理。
func (s *TradingQueryService) GetLedger(ctx context.Context, userID uint64, entryType string, limit, offset int) (*LedgerListDTO, error) {
	entries, total, err := s.ledger.ListByUser(ctx, userID, normalizeEntryType(entryType), normalizeLimit(limit), offset)
	if err != nil {
		return nil, err
	}

	result := &LedgerListDTO{Entries: make([]*LedgerEntryDTO, 0, len(entries)), Total: total}
	for _, e := range entries {
		result.Entries = append(result.Entries, toLedgerEntryDTO(e))
	}
	return result, nil
}

func normalizeStatus(status string) domain.OrderStatus {
	switch s := domain.OrderStatus(status); s {
	case domain.OrderStatusNew, domain.OrderStatusPartiallyFilled, domain.OrderStatusFilled,
		domain.OrderStatusCanceled, domain.OrderStatusRejected, domain.OrderStatusExpired:
		return s
	default:
		return ""
	}
}

func normalizeEntryType(entryType string) domain.LedgerEntryType {
	switch t := domain.LedgerEntryType(entryType); t {
	case domain.LedgerEntryTypeGrant, domain.LedgerEntryTypeBuy, domain.LedgerEntryTypeSell,
		domain.LedgerEntryTypeFee, domain.LedgerEntryTypeLock, domain.LedgerEntryTypeUnlock,
		domain.LedgerEntryTypeCancelRelease:
		return t
	default:
		return ""
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 200 {
		return 200
	}
	return limit
}
