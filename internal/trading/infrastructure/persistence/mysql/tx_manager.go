// Package mysql 模拟交易服务的 GORM 持久化实现
package mysql

import (
	"context"

	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

// TxManager 基于 GORM 的事务管理器。
// 回调内的 ctx 携带事务句柄，各仓储通过 getDB 路由到同一事务。
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器。
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 在一个数据库事务中执行回调，回调返回错误时整体回滚。
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

// getDB 优先取 context 中的事务句柄，没有则退回连接池句柄。
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return db
}
