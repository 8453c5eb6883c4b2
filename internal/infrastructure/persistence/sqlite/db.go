// Package sqlite carries transactions on the context so repositories can
// join a unit of work without knowing about it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
)

type txKey struct{}

// DB runs units of work against one *sql.DB
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a transaction manager on sqlDB
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: sqlDB, logger: logger}
}

// WithTransaction runs fn with a transaction carried on its context.
// A call inside an existing unit of work joins it; only the outermost
// call commits. An error or panic from fn rolls everything back.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		p := recover()
		db.rollback(tx, p)
		if p != nil {
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		finished = true
		db.rollback(tx, nil)
		return err
	}

	finished = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (db *DB) rollback(tx *sql.Tx, cause any) {
	err := tx.Rollback()
	if cause != nil {
		db.logger.Error("Unit of work panicked, rolled back", zap.Any("panic", cause))
	}
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.Error("Rollback failed", zap.Error(err))
	}
}

// TxFromContext returns the transaction started by WithTransaction, if any
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// Executor is the query surface shared by *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ExecutorFor returns the context's transaction, falling back to db
func ExecutorFor(ctx context.Context, db *sql.DB) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

var _ port.TransactionManager = (*DB)(nil)
