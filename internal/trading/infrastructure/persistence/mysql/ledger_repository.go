package mysql

import (
	"context"

	"github.com/wyfcoding/papertrading/internal/trading/domain"
	"gorm.io/gorm"
)

// LedgerRepository GORM 资金流水仓储实现，只增不改
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建流水仓储
func NewLedgerRepository(db *gorm.DB) domain.LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	return getDB(ctx, r.db).WithContext(ctx).Create(entry).Error
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID uint64, entryType domain.LedgerEntryType, limit, offset int) ([]*domain.LedgerEntry, int64, error) {
	query := getDB(ctx, r.db).WithContext(ctx).Model(&domain.LedgerEntry{}).Where("user_id = ?", userID)
	if entryType != "" {
		query = query.Where("entry_type = ?", entryType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.LedgerEntry
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
