package database

import (
	"context"

	"gorm.io/gorm"
)

// Executor runs repository work, either as a single step or as one atomic unit
type Executor interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// GormExecutor runs work on the pool against a gorm connection
type GormExecutor struct {
	db   *gorm.DB
	pool *Pool
}

// NewGormExecutor creates an executor backed by db
func NewGormExecutor(db *gorm.DB, pool *Pool) *GormExecutor {
	return &GormExecutor{db: db, pool: pool}
}

// Execute runs fn on the pool
func (e *GormExecutor) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.pool.Run(ctx, fn)
}

// ExecuteTransaction runs fn on the pool inside a database transaction.
// Repositories reached through Conn see the transaction; any error rolls it back.
func (e *GormExecutor) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.pool.Run(ctx, func(ctx context.Context) error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
	})
}

// Conn returns the transaction bound to ctx, or db when there is none
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
