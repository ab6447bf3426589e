// Package postgres implements the durable storage layer on pgx: a shared
// pool handle, transaction propagation through the context, and the order
// and outbox repositories.
package postgres

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type txKey struct{}

// dbpool is a helper interface to work with pgxpool.Pool.
type dbpool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// executor is the subset of operations shared by the pool and an open
// transaction.
type executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps a pgx pool and owns transaction propagation for the
// repositories built on it.
type DB struct {
	pool dbpool
}

func New(pool dbpool) *DB {
	if pool == nil || reflect.ValueOf(pool).IsNil() {
		panic("pool is mandatory")
	}
	return &DB{pool: pool}
}

// WithinTransaction begins a transaction, stores it in the context passed
// to fn, and commits when fn succeeds; any fn error rolls everything
// back, so callers observe all-or-nothing semantics.
func (db *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// executor returns the transaction carried in the context, or the pool
// when the caller runs outside one.
func (db *DB) executor(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.pool
}

// tx returns the transaction carried in the context, for operations that
// must not run outside one.
func (db *DB) tx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}
