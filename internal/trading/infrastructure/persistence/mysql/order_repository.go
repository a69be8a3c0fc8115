package mysql

import (
	"context"
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/wyfcoding/papertrading/internal/trading/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository GORM 订单仓储实现
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	err := getDB(ctx, r.db).WithContext(ctx).Create(order).Error
	if order.ClientOrderID != nil && isClientOrderIDConflict(err) {
		return domain.NewDuplicateClientOrderIDError(*order.ClientOrderID)
	}
	return err
}

// isClientOrderIDConflict 识别幂等键唯一索引冲突。
// 应用层的前置查询只是快速路径，并发下单时以该唯一索引为最终约束。
func isClientOrderIDConflict(err error) bool {
	var mysqlErr *mysqldriver.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	return mysqlErr.Number == 1062 && strings.Contains(mysqlErr.Message, "uk_user_client_order")
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return getDB(ctx, r.db).WithContext(ctx).Save(order).Error
}

func (r *OrderRepository) GetByUserAndNo(ctx context.Context, userID uint64, orderNo string) (*domain.Order, error) {
	var order domain.Order
	err := getDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND order_no = ?", userID, orderNo).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetByUserAndNoForUpdate(ctx context.Context, userID uint64, orderNo string) (*domain.Order, error) {
	var order domain.Order
	err := getDB(ctx, r.db).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND order_no = ?", userID, orderNo).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetByClientOrderID(ctx context.Context, userID uint64, clientOrderID string) (*domain.Order, error) {
	var order domain.Order
	err := getDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND client_order_id = ?", userID, clientOrderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uint64, status domain.OrderStatus, symbol string, limit, offset int) ([]*domain.Order, int64, error) {
	query := getDB(ctx, r.db).WithContext(ctx).Model(&domain.Order{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []*domain.Order
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
