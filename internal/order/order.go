// Package order implements the order command handling of the service:
// validation, the soft known-user precondition, idempotent creation and
// the atomic write of an order together with its outbox record.
package order

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Order is immutable once created: this service exposes no update or
// delete path for it.
type Order struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"userId"`
	Product        string    `json:"product"`
	Quantity       int       `json:"quantity"`
	Price          float64   `json:"price"`
	IdempotencyKey string    `json:"idempotencyKey"`
}

// CreateOrderInput is the creation command. IdempotencyKey is optional;
// when empty a deterministic key is derived from the other fields.
type CreateOrderInput struct {
	UserID         uuid.UUID
	Product        string
	Quantity       int
	Price          float64
	IdempotencyKey string
}

const maxProductLength = 200

func (in *CreateOrderInput) validate() error {
	if in.UserID == uuid.Nil {
		return &ValidationError{Field: "userId", Reason: "is required"}
	}
	if in.Product == "" {
		return &ValidationError{Field: "product", Reason: "is required"}
	}
	if len(in.Product) > maxProductLength {
		return &ValidationError{Field: "product", Reason: fmt.Sprintf("must be at most %d characters", maxProductLength)}
	}
	if in.Quantity < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if in.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "must be greater than zero"}
	}
	return nil
}

// DeriveIdempotencyKey builds the fallback dedup key for requests that
// carry none. The field order is fixed (userId:product:quantity:price,
// price with two decimals) so identical requests always collapse to the
// same key.
func DeriveIdempotencyKey(userID uuid.UUID, product string, quantity int, price float64) string {
	return fmt.Sprintf("%s:%s:%d:%s", userID, product, quantity, strconv.FormatFloat(price, 'f', 2, 64))
}
