package outbox

import (
	"context"
)

// Repository manages outbox records persistent operations.
type Repository interface {

	// Save persists a new pending record. It must be called inside an
	// existing business transaction carried in the context, so that the
	// record and the entity it describes commit or roll back together.
	Save(ctx context.Context, topic string, payload []byte) error

	// FindPending retrieves records that have no publish timestamp and
	// fewer attempts than maxAttempts, oldest first, up to batchSize.
	// Records at or above the ceiling are exhausted and never returned.
	FindPending(ctx context.Context, batchSize int, maxAttempts int) ([]*Record, error)

	// UpdateBatch persists the delivery outcome (publish timestamp,
	// attempt counter, last error) of every record in a single
	// transaction.
	UpdateBatch(ctx context.Context, records []*Record) error
}
