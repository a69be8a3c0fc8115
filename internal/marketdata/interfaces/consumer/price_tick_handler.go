package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/papertrading/internal/marketdata/application"
)

// PriceTickHandler 消费行情推送并更新行情读模型。
type PriceTickHandler struct {
	command *application.MarketDataCommandService
	logger  *slog.Logger
}

func NewPriceTickHandler(command *application.MarketDataCommandService, logger *slog.Logger) *PriceTickHandler {
	return &PriceTickHandler{command: command, logger: logger}
}

// HandlePriceTick 处理一条行情消息。
// 消息体格式：{"symbol":"VNM","price":"65000","size":"100","timestamp":1700000000000}
func (h *PriceTickHandler) HandlePriceTick(ctx context.Context, msg kafkago.Message) error {
	var event struct {
		Symbol    string `json:"symbol"`
		Price     string `json:"price"`
		Size      string `json:"size"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Warn("丢弃无法解析的行情消息", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if event.Symbol == "" {
		h.logger.Warn("丢弃缺少股票代码的行情消息", "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}

	price, err := decimal.NewFromString(event.Price)
	if err != nil || !price.IsPositive() {
		h.logger.Warn("丢弃价格非法的行情消息", "symbol", event.Symbol, "price", event.Price)
		return nil
	}
	size, _ := decimal.NewFromString(event.Size)

	if err := h.command.SaveQuote(ctx, application.SaveQuoteCommand{
		Symbol:    event.Symbol,
		LastPrice: price,
		LastSize:  size,
		Timestamp: event.Timestamp,
		Source:    "exchange-feed",
	}); err != nil {
		return fmt.Errorf("save quote for %s: %w", event.Symbol, err)
	}
	return nil
}
