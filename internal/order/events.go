package order

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent is the payload published on orders.created. It is
// serialized once, when the order is stored, and delivered verbatim.
type OrderCreatedEvent struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	Product    string    `json:"product"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	OccurredAt time.Time `json:"occurredAt"`
}

// UserCreatedEvent is the payload consumed from users.created, produced
// by the user service.
type UserCreatedEvent struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurredAt"`
}
