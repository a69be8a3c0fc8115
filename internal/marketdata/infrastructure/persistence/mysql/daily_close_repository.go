package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type dailyCloseRepository struct {
	db *gorm.DB
}

// NewDailyCloseRepository 创建日线收盘价仓储。
func NewDailyCloseRepository(db *gorm.DB) domain.DailyCloseRepository {
	return &dailyCloseRepository{db: db}
}

func (r *dailyCloseRepository) Save(ctx context.Context, dc *domain.DailyClose) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "trading_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"close", "updated_at"}),
		}).
		Create(dc).Error
}

func (r *dailyCloseRepository) GetLatest(ctx context.Context, symbol string) (*domain.DailyClose, error) {
	var dc domain.DailyClose
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("trading_date desc").
		First(&dc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dc, nil
}
