package application

import "context"

// TradingService 作为模拟交易操作的门面。
type TradingService struct {
	Command *TradingCommandService
	Query   *TradingQueryService
}

// NewTradingService 创建并返回一个新的 TradingService 门面实例。
func NewTradingService(command *TradingCommandService, query *TradingQueryService) *TradingService {
	return &TradingService{
		Command: command,
		Query:   query,
	}
}

// --- 写操作（委托给 Command） ---

func (s *TradingService) GrantInitialCash(ctx context.Context, userID uint64) (*GrantResultDTO, error) {
	return s.Command.GrantInitialCash(ctx, userID)
}

func (s *TradingService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*OrderDTO, error) {
	return s.Command.PlaceOrder(ctx, cmd)
}

func (s *TradingService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*OrderDTO, error) {
	return s.Command.CancelOrder(ctx, cmd)
}

// --- 读操作（委托给 Query） ---

func (s *TradingService) GetWallet(ctx context.Context, userID uint64) (*WalletDTO, error) {
	return s.Query.GetWallet(ctx, userID)
}

func (s *TradingService) GetPositions(ctx context.Context, userID uint64) (*PositionListDTO, error) {
	return s.Query.GetPositions(ctx, userID)
}

func (s *TradingService) GetOrders(ctx context.Context, userID uint64, status, symbol string, limit, offset int) (*OrderListDTO, error) {
	return s.Query.GetOrders(ctx, userID, status, symbol, limit, offset)
}

func (s *TradingService) GetOrder(ctx context.Context, userID uint64, orderNo string) (*OrderDetailDTO, error) {
	return s.Query.GetOrder(ctx, userID, orderNo)
}

func (s *TradingService) GetTrades(ctx context.Context, userID uint64, symbol string, limit, offset int) (*TradeListDTO, error) {
	return s.Query.GetTrades(ctx, userID, symbol, limit, offset)
}

func (s *TradingService) GetLedger(ctx context.Context, userID uint64, entryType string, limit, offset int) (*LedgerListDTO, error) {
	return s.Query.GetLedger(ctx, userID, entryType, limit, offset)
}
