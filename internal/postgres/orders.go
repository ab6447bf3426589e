package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"orderflow/internal/order"
)

const (
	insertOrderSql   = "INSERT INTO orders (id, user_id, product, quantity, price, idempotency_key) VALUES ($1, $2, $3, $4, $5, $6)"
	getOrderByIdSql  = "SELECT id, user_id, product, quantity, price, idempotency_key FROM orders WHERE id=$1"
	getOrderByKeySql = "SELECT id, user_id, product, quantity, price, idempotency_key FROM orders WHERE idempotency_key=$1"
)

// OrderRepository persists orders. Create participates in the caller's
// transaction when one is carried in the context.
type OrderRepository struct {
	db *DB
}

var _ order.Repository = (*OrderRepository)(nil)

func NewOrderRepository(db *DB) *OrderRepository {
	if db == nil {
		panic("db is mandatory")
	}
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.executor(ctx).Exec(ctx, insertOrderSql,
		o.ID, o.UserID, o.Product, o.Quantity, o.Price, o.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("could not persist the order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.scanOrder(r.db.executor(ctx).QueryRow(ctx, getOrderByIdSql, id))
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	return r.scanOrder(r.db.executor(ctx).QueryRow(ctx, getOrderByKeySql, key))
}

func (r *OrderRepository) scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Product, &o.Quantity, &o.Price, &o.IdempotencyKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("scanning order row: %w", err)
	}
	return &o, nil
}
