package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/papertrading/internal/trading/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository GORM 钱包仓储实现
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) domain.WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID uint64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := getDB(ctx, r.db).WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, userID uint64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	// SELECT * FROM wallets WHERE user_id = ? FOR UPDATE
	err := getDB(ctx, r.db).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	return getDB(ctx, r.db).WithContext(ctx).Create(wallet).Error
}

func (r *WalletRepository) Update(ctx context.Context, wallet *domain.Wallet) error {
	return getDB(ctx, r.db).WithContext(ctx).Save(wallet).Error
}
