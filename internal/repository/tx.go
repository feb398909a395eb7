package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Users    UserRepository
	Products ProductRepository
	Orders   OrderRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    NewUserRepository(db),
		Products: NewProductRepository(db),
		Orders:   NewOrderRepository(db),
	}
}

// TxManager runs a unit of work atomically.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

// NewTxManager creates a transaction manager over db.
func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

// WithTransaction commits when fn returns nil and rolls back otherwise.
// Repositories handed to fn must not be used after it returns.
func (m *gormTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}
