package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/papertrading/internal/trading/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PositionRepository GORM 持仓仓储实现
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository 创建持仓仓储
func NewPositionRepository(db *gorm.DB) domain.PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) GetByUserAndSymbol(ctx context.Context, userID uint64, symbol string) (*domain.Position, error) {
	var position domain.Position
	err := getDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

func (r *PositionRepository) GetByUserAndSymbolForUpdate(ctx context.Context, userID uint64, symbol string) (*domain.Position, error) {
	var position domain.Position
	err := getDB(ctx, r.db).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

func (r *PositionRepository) ListByUser(ctx context.Context, userID uint64) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := getDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND quantity > 0", userID).
		Order("symbol asc").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *PositionRepository) Create(ctx context.Context, position *domain.Position) error {
	return getDB(ctx, r.db).WithContext(ctx).Create(position).Error
}

func (r *PositionRepository) Update(ctx context.Context, position *domain.Position) error {
	return getDB(ctx, r.db).WithContext(ctx).Save(position).Error
}
