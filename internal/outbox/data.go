// Package outbox implements the polling publisher variant of the
// transactional outbox pattern: records are written in the same database
// transaction as the business state they describe, and a background relay
// later delivers them to the broker with at-least-once semantics.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Record is a single outbox row. The payload is serialized once, when the
// record is written, and is delivered verbatim; later changes to the
// originating entity never alter the published event.
type Record struct {
	ID          uuid.UUID
	Topic       string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Attempts    int
	LastError   *string
}

// Published reports whether the record has been acknowledged by the broker.
func (r *Record) Published() bool {
	return r.PublishedAt != nil
}
