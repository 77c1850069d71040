// Package sqlite provides the context-carried transaction manager shared by
// all repositories.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"go.uber.org/zap"
)

type txKey struct{}

// txState is carried in the context for the lifetime of a transaction.
// hooks is only touched by the goroutine running the transaction; done may be
// read by anyone still holding the context.
type txState struct {
	tx    *sql.Tx
	base  context.Context
	hooks []func(ctx context.Context)
	done  atomic.Bool
}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB wraps sql.DB and implements port.TransactionManager
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database wrapper
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     sqlDB,
		logger: logger,
	}
}

// WithTransaction runs fn inside a transaction carried by the context.
// Nested calls join the outer transaction.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	state := &txState{tx: tx, base: ctx}
	txCtx := context.WithValue(ctx, txKey{}, state)

	defer func() {
		state.done.Store(true)
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	state.done.Store(true)
	for _, hook := range state.hooks {
		hook(state.base)
	}
	return nil
}

// AfterCommit defers fn until the context transaction commits. fn receives
// the context the outermost transaction was started with, so nothing it
// starts can reach the finished transaction.
func (db *DB) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok && !state.done.Load() {
		state.hooks = append(state.hooks, fn)
		return
	}
	fn(ctx)
}

// TxFrom returns the open transaction carried by ctx, if any. A context
// kept past commit or rollback yields nil.
func TxFrom(ctx context.Context) *sql.Tx {
	if state, ok := ctx.Value(txKey{}).(*txState); ok && !state.done.Load() {
		return state.tx
	}
	return nil
}

// ExecutorFor returns the context transaction, or db when there is none
func ExecutorFor(ctx context.Context, db *sql.DB) Executor {
	if tx := TxFrom(ctx); tx != nil {
		return tx
	}
	return db
}

var _ port.TransactionManager = (*DB)(nil)
