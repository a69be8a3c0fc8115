package application

import (
	"github.com/wyfcoding/papertrading/internal/trading/domain"
)

// WalletDTO 钱包传输对象
type WalletDTO struct {
	UserID    uint64 `json:"user_id"`
	Balance   string `json:"balance"`
	Locked    string `json:"locked"`
	Available string `json:"available"`
	Currency  string `json:"currency"`
	Granted   bool   `json:"granted"`
	// FirstGrantAt 体验金发放时刻（Unix 秒），未发放时省略
	FirstGrantAt int64 `json:"first_grant_at,omitempty"`
}

// GrantResultDTO 体验金发放结果
type GrantResultDTO struct {
	Granted bool       `json:"granted"`
	Wallet  *WalletDTO `json:"wallet"`
}

// PositionDTO 持仓传输对象
type PositionDTO struct {
	Symbol         string `json:"symbol"`
	Quantity       string `json:"quantity"`
	LockedQuantity string `json:"locked_quantity"`
	AvailableQty   string `json:"available_quantity"`
	AvgPrice       string `json:"avg_price"`
	// MarketPrice 为空表示行情暂不可得，市值与浮动盈亏同样为空
	MarketPrice    string `json:"market_price,omitempty"`
	MarketValue    string `json:"market_value,omitempty"`
	UnrealizedPnL  string `json:"unrealized_pnl,omitempty"`
}

// PositionListDTO 持仓列表（含总市值）
type PositionListDTO struct {
	Positions        []*PositionDTO `json:"positions"`
	TotalMarketValue string         `json:"total_market_value"`
}

// OrderDTO 订单传输对象
type OrderDTO struct {
	OrderNo        string `json:"order_no"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	Quantity       string `json:"quantity"`
	LimitPrice     string `json:"limit_price,omitempty"`
	Status         string `json:"status"`
	FilledQuantity string `json:"filled_quantity"`
	AvgFilledPrice string `json:"avg_filled_price"`
	FeeTotal       string `json:"fee_total"`
	PriceSnapshot  string `json:"price_snapshot"`
	ClientOrderID  string `json:"client_order_id,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	CanceledAt     int64  `json:"canceled_at,omitempty"`
}

// OrderDetailDTO 订单详情（含成交明细）
type OrderDetailDTO struct {
	Order  *OrderDTO   `json:"order"`
	Trades []*TradeDTO `json:"trades"`
}

// OrderListDTO 订单列表
type OrderListDTO struct {
	Orders []*OrderDTO `json:"orders"`
	Total  int64       `json:"total"`
}

// TradeDTO 成交传输对象
type TradeDTO struct {
	TradeNo    string `json:"trade_no"`
	OrderNo    string `json:"order_no"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Quantity   string `json:"quantity"`
	Price      string `json:"price"`
	Fee        string `json:"fee"`
	ExecutedAt int64  `json:"executed_at"`
}

// TradeListDTO 成交列表
type TradeListDTO struct {
	Trades []*TradeDTO `json:"trades"`
	Total  int64       `json:"total"`
}

// LedgerEntryDTO 流水传输对象
type LedgerEntryDTO struct {
	EntryType    string `json:"entry_type"`
	Amount       string `json:"amount"`
	BalanceAfter string `json:"balance_after"`
	RefType      string `json:"ref_type"`
	RefID        string `json:"ref_id"`
	Meta         string `json:"meta,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// LedgerListDTO 流水列表
type LedgerListDTO struct {
	Entries []*LedgerEntryDTO `json:"entries"`
	Total   int64             `json:"total"`
}

func toWalletDTO(w *domain.Wallet) *WalletDTO {
	dto := &WalletDTO{
		UserID:    w.UserID,
		Balance:   w.Balance.String(),
		Locked:    w.Locked.String(),
		Available: w.Available().String(),
		Currency:  w.Currency,
		Granted:   w.FirstGrantAt != nil,
	}
	if w.FirstGrantAt != nil {
		dto.FirstGrantAt = w.FirstGrantAt.Unix()
	}
	return dto
}

func toOrderDTO(o *domain.Order) *OrderDTO {
	dto := &OrderDTO{
		OrderNo:        o.OrderNo,
		Symbol:         o.Symbol,
		Side:           string(o.Side),
		Type:           string(o.Type),
		Quantity:       o.Quantity.String(),
		Status:         string(o.Status),
		FilledQuantity: o.FilledQuantity.String(),
		AvgFilledPrice: o.AvgFilledPrice.String(),
		FeeTotal:       o.FeeTotal.String(),
		PriceSnapshot:  o.PriceSnapshot.String(),
		CreatedAt:      o.CreatedAt.Unix(),
	}
	if o.ClientOrderID != nil {
		dto.ClientOrderID = *o.ClientOrderID
	}
	if o.LimitPrice.Valid {
		dto.LimitPrice = o.LimitPrice.Decimal.String()
	}
	if o.CanceledAt != nil {
		dto.CanceledAt = o.CanceledAt.Unix()
	}
	return dto
}

func toTradeDTO(t *domain.Trade) *TradeDTO {
	return &TradeDTO{
		TradeNo:    t.TradeNo,
		OrderNo:    t.OrderNo,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Quantity:   t.Quantity.String(),
		Price:      t.Price.String(),
		Fee:        t.Fee.String(),
		ExecutedAt: t.ExecutedAt.Unix(),
	}
}

func toLedgerEntryDTO(e *domain.LedgerEntry) *LedgerEntryDTO {
	return &LedgerEntryDTO{
		EntryType:    string(e.EntryType),
		Amount:       e.Amount.String(),
		BalanceAfter: e.BalanceAfter.String(),
		RefType:      e.RefType,
		RefID:        e.RefID,
		Meta:         e.Meta,
		CreatedAt:    e.CreatedAt.Unix(),
	}
}
