package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/outbox"
)

const (
	insertOutboxSql     = "INSERT INTO outbox (id, topic, payload, created_at, attempts) VALUES ($1, $2, $3, $4, $5)"
	getPendingOutboxSql = "SELECT id, topic, payload, created_at, published_at, attempts, last_error FROM outbox WHERE published_at IS NULL AND attempts < $1 ORDER BY created_at ASC LIMIT $2"
	updateOutboxRowSql  = "UPDATE outbox SET published_at=$1, attempts=$2, last_error=$3 WHERE id=$4"
)

// OutboxRepository persists outbox records. Rows are never deleted: they
// are retained for audit and so the relay can resume after a restart.
type OutboxRepository struct {
	db *DB
}

var _ outbox.Repository = (*OutboxRepository)(nil)

func NewOutboxRepository(db *DB) *OutboxRepository {
	if db == nil {
		panic("db is mandatory")
	}
	return &OutboxRepository{db: db}
}

// Save persists a pending record inside the business transaction carried
// in the context. Calling it outside one is a programming error: the
// record would not commit atomically with its entity.
func (r *OutboxRepository) Save(ctx context.Context, topic string, payload []byte) error {
	tx, ok := r.db.tx(ctx)
	if !ok {
		return errors.New("an open transaction was expected in the context")
	}
	_, err := tx.Exec(ctx, insertOutboxSql, uuid.New(), topic, payload, time.Now().UTC(), 0)
	if err != nil {
		return fmt.Errorf("could not persist the outbox record: %w", err)
	}
	return nil
}

func (r *OutboxRepository) FindPending(ctx context.Context, batchSize int, maxAttempts int) ([]*outbox.Record, error) {
	rows, err := r.db.executor(ctx).Query(ctx, getPendingOutboxSql, maxAttempts, batchSize)
	if err != nil {
		return nil, fmt.Errorf("querying pending outbox records: %w", err)
	}
	defer rows.Close()

	var records []*outbox.Record
	for rows.Next() {
		var rec outbox.Record
		err := rows.Scan(&rec.ID, &rec.Topic, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Attempts, &rec.LastError)
		if err != nil {
			return nil, fmt.Errorf("scanning outbox row: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateBatch persists the delivery outcome of every record in one
// transaction, so a batch commits or retries as a unit.
func (r *OutboxRepository) UpdateBatch(ctx context.Context, records []*outbox.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning outbox batch transaction: %w", err)
	}

	for _, rec := range records {
		if _, err := tx.Exec(ctx, updateOutboxRowSql, rec.PublishedAt, rec.Attempts, rec.LastError, rec.ID); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("updating outbox record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing outbox batch: %w", err)
	}
	return nil
}
