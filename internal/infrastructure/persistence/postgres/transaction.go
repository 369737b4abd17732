package postgres

import (
	"context"

	"gorm.io/gorm"

	"serial-novel-api/internal/domain/repository"
)

// TxManager 事务管理器
type TxManager struct {
	client *Client
}

var _ repository.Transactor = (*TxManager)(nil)

// NewTxManager 创建事务管理器
func NewTxManager(client *Client) *TxManager {
	return &TxManager{client: client}
}

// WithTransaction 在事务中执行操作。
// 已处于事务中时直接复用外层事务，不再嵌套开启。
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := getTxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	return m.client.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, repository.TxKey{}, tx)
		return fn(txCtx)
	})
}

// getTxFromContext 从上下文获取事务
func getTxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(repository.TxKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// getDB 根据上下文选择事务或普通连接
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := getTxFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
