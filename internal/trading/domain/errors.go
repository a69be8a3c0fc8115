package domain

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/xerrors"
)

// 交易域业务错误码，前三位与 HTTP 状态对齐
const (
	CodeInvalidOrder          = 400101
	CodeInsufficientBalance   = 400102
	CodeInsufficientPosition  = 400103
	CodeOrderNotFound         = 404101
	CodeOrderNotCancelable    = 409101
	CodeDuplicateClientOrder  = 409102
	CodeMarketPriceNotFound   = 503101
)

// NewInvalidOrderError 请求参数不构成合法订单
func NewInvalidOrderError(detail string, fields map[string]any) *xerrors.Error {
	e := xerrors.New(xerrors.ErrInvalidArg, CodeInvalidOrder, "INVALID_ORDER", detail, nil)
	for k, v := range fields {
		e = e.WithContext(k, v)
	}
	return e
}

// NewInsufficientBalanceError 可用余额不足以冻结买单所需资金
func NewInsufficientBalanceError(required, available decimal.Decimal) *xerrors.Error {
	return xerrors.New(xerrors.ErrInvalidArg, CodeInsufficientBalance, "INSUFFICIENT_BALANCE",
		"insufficient available balance", nil).
		WithContext("required", required.String()).
		WithContext("available", available.String())
}

// NewInsufficientPositionError 可卖数量不足以冻结卖单所需持仓
func NewInsufficientPositionError(symbol string, required, available decimal.Decimal) *xerrors.Error {
	return xerrors.New(xerrors.ErrInvalidArg, CodeInsufficientPosition, "INSUFFICIENT_POSITION",
		"insufficient available position", nil).
		WithContext("symbol", symbol).
		WithContext("required", required.String()).
		WithContext("available", available.String())
}

// NewOrderNotFoundError 订单不存在或不属于当前用户
func NewOrderNotFoundError(orderNo string) *xerrors.Error {
	return xerrors.New(xerrors.ErrNotFound, CodeOrderNotFound, "ORDER_NOT_FOUND",
		"order not found", nil).
		WithContext("order_no", orderNo)
}

// NewOrderNotCancelableError 订单已处于终态，不可撤销
func NewOrderNotCancelableError(orderNo, status string) *xerrors.Error {
	return xerrors.New(xerrors.ErrAlreadyExists, CodeOrderNotCancelable, "ORDER_NOT_CANCELABLE",
		"order is in a terminal status", nil).
		WithContext("order_no", orderNo).
		WithContext("status", status)
}

// NewMarketPriceNotFoundError 行情源无法给出参考价，订单不会创建
func NewMarketPriceNotFoundError(symbol string) *xerrors.Error {
	return xerrors.New(xerrors.ErrUnavailable, CodeMarketPriceNotFound, "MARKET_PRICE_NOT_FOUND",
		"no market price available", nil).
		WithContext("symbol", symbol)
}

// NewDuplicateClientOrderIDError 客户端订单 ID 幂等冲突
func NewDuplicateClientOrderIDError(clientOrderID string) *xerrors.Error {
	return xerrors.New(xerrors.ErrAlreadyExists, CodeDuplicateClientOrder, "DUPLICATE_CLIENT_ORDER_ID",
		"client order id already used", nil).
		WithContext("client_order_id", clientOrderID)
}
