package mysql

import (
	"context"

	"github.com/wyfcoding/papertrading/internal/trading/domain"
	"gorm.io/gorm"
)

// TradeRepository GORM 成交仓储实现
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository 创建成交仓储
func NewTradeRepository(db *gorm.DB) domain.TradeRepository {
	return &TradeRepository{db: db}
}

func (r *TradeRepository) Create(ctx context.Context, trade *domain.Trade) error {
	return getDB(ctx, r.db).WithContext(ctx).Create(trade).Error
}

func (r *TradeRepository) ListByOrderNo(ctx context.Context, orderNo string) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := getDB(ctx, r.db).WithContext(ctx).
		Where("order_no = ?", orderNo).
		Order("executed_at ASC").
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *TradeRepository) ListByUser(ctx context.Context, userID uint64, symbol string, limit, offset int) ([]*domain.Trade, int64, error) {
	query := getDB(ctx, r.db).WithContext(ctx).Model(&domain.Trade{}).Where("user_id = ?", userID)
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var trades []*domain.Trade
	if err := query.Order("executed_at DESC").Offset(offset).Limit(limit).Find(&trades).Error; err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}
