// Package http 模拟交易服务 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/trading/application"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/middleware"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/pkg/xerrors"
)

// writeError 输出错误响应。
// 行情不可用属于临时故障，补充映射到 503，提示客户端稍后重试。
func writeError(c *gin.Context, err error) {
	var xe *xerrors.Error
	if errors.As(err, &xe) && xe.Type == xerrors.ErrUnavailable {
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, xe.Message, xe.Detail)
		return
	}
	response.Error(c, err)
}

// TradingHandler 负责处理 HTTP 请求
type TradingHandler struct {
	service *application.TradingService
}

func NewTradingHandler(service *application.TradingService) *TradingHandler {
	return &TradingHandler{service: service}
}

func (h *TradingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/trading")
	{
		api.GET("/wallet", h.GetWallet)
		api.GET("/positions", h.GetPositions)
		api.POST("/bootstrap/grant-initial-cash", h.GrantInitialCash)
		api.POST("/orders", h.PlaceOrder)
		api.GET("/orders", h.GetOrders)
		api.GET("/orders/:order_no", h.GetOrder)
		api.DELETE("/orders/:order_no", h.CancelOrder)
		api.GET("/trades", h.GetTrades)
		api.GET("/ledger", h.GetLedger)
	}
}

// GetWallet 查询当前用户钱包。
func (h *TradingHandler) GetWallet(c *gin.Context) {
	wallet, err := h.service.GetWallet(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		logging.Error(c.Request.Context(), "failed to get wallet", "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, wallet)
}

// GetPositions 查询当前用户全部持仓及估值。
func (h *TradingHandler) GetPositions(c *gin.Context) {
	positions, err := h.service.GetPositions(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		logging.Error(c.Request.Context(), "failed to get positions", "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, positions)
}

// GrantInitialCash 发放开户体验金（幂等）。
func (h *TradingHandler) GrantInitialCash(c *gin.Context) {
	result, err := h.service.GrantInitialCash(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		logging.Error(c.Request.Context(), "failed to grant initial cash", "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	Symbol        string `json:"symbol" binding:"required"`
	Side          string `json:"side" binding:"required"`
	Type          string `json:"type" binding:"required"`
	Quantity      string `json:"quantity" binding:"required"`
	LimitPrice    string `json:"limit_price"`
	ClientOrderID string `json:"client_order_id"`
}

// PlaceOrder 下单并同步尝试成交。
func (h *TradingHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid quantity", err.Error())
		return
	}

	var limitPrice decimal.NullDecimal
	if req.LimitPrice != "" {
		price, err := decimal.NewFromString(req.LimitPrice)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit_price", err.Error())
			return
		}
		limitPrice = decimal.NewNullDecimal(price)
	}

	order, err := h.service.PlaceOrder(c.Request.Context(), application.PlaceOrderCommand{
		UserID:        middleware.MustGetUserID(c),
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      quantity,
		LimitPrice:    limitPrice,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to place order", "symbol", req.Symbol, "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrders 分页查询订单。
func (h *TradingHandler) GetOrders(c *gin.Context) {
	limit, offset := parsePage(c)
	orders, err := h.service.GetOrders(c.Request.Context(), middleware.MustGetUserID(c),
		c.Query("status"), c.Query("symbol"), limit, offset)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to list orders", "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, orders)
}

// GetOrder 查询订单详情及成交明细。
func (h *TradingHandler) GetOrder(c *gin.Context) {
	detail, err := h.service.GetOrder(c.Request.Context(), middleware.MustGetUserID(c), c.Param("order_no"))
	if err != nil {
		logging.Error(c.Request.Context(), "failed to get order", "order_no", c.Param("order_no"), "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, detail)
}

// CancelOrder 撤单。
func (h *TradingHandler) CancelOrder(c *gin.Context) {
	order, err := h.service.CancelOrder(c.Request.Context(), application.CancelOrderCommand{
		UserID:  middleware.MustGetUserID(c),
		OrderNo: c.Param("order_no"),
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to cancel order", "order_no", c.Param("order_no"), "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// GetTrades 分页查询成交。
func (h *TradingHandler) GetTrades(c *gin.Context) {
	limit, offset := parsePage(c)
	trades, err := h.service.GetTrades(c.Request.Context(), middleware.MustGetUserID(c),
		c.Query("symbol"), limit, offset)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to list trades", "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, trades)
}

// GetLedger 分页查询资金流水。
func (h *TradingHandler) GetLedger(c *gin.Context) {
	limit, offset := parsePage(c)
	entries, err := h.service.GetLedger(c.Request.Context(), middleware.MustGetUserID(c),
		c.Query("entry_type"), limit, offset)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to list ledger entries", "error", err)
		writeError(c, err)
		return
	}
	response.Success(c, entries)
}

func parsePage(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
