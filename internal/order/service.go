package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"orderflow/internal/outbox"
)

// Repository manages order persistent operations.
type Repository interface {
	// Create inserts a new order. It must run inside an existing
	// transaction carried in the context.
	Create(ctx context.Context, o *Order) error

	// FindByID returns the order with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIdempotencyKey returns the order stored under the given
	// dedup key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
}

// Transactor runs a function inside a database transaction carried in
// the context it passes down.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// KnownUsers is the membership query of the user cache.
type KnownUsers interface {
	IsKnown(id uuid.UUID) bool
}

// Service handles order creation commands.
type Service struct {
	orders Repository
	outbox outbox.Repository
	tx     Transactor
	users  KnownUsers
	topic  string
	logger zerolog.Logger
}

func NewService(orders Repository, ob outbox.Repository, tx Transactor, users KnownUsers, topic string, logger zerolog.Logger) *Service {
	return &Service{
		orders: orders,
		outbox: ob,
		tx:     tx,
		users:  users,
		topic:  topic,
		logger: logger,
	}
}

// CreateOrder validates the command, checks the known-user precondition
// against the local cache, and either replays the order already stored
// under the effective dedup key or persists a new order together with
// its orders.created outbox record in one transaction. The returned
// boolean is true only when a new order was created.
//
// A replay returns the stored order unchanged; differing attributes in
// the replayed command are discarded.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	// Soft precondition: the cache may lag the user service, so a very
	// recent user can be rejected here. That gap is accepted.
	if !s.users.IsKnown(in.UserID) {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownUser, in.UserID)
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = DeriveIdempotencyKey(in.UserID, in.Product, in.Quantity, in.Price)
	}

	existing, err := s.orders.FindByIdempotencyKey(ctx, key)
	if err == nil {
		s.logger.Debug().
			Str("order_id", existing.ID.String()).
			Str("idempotency_key", key).
			Msg("idempotent replay, returning stored order")
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("looking up idempotency key: %w", err)
	}

	o := &Order{
		ID:             uuid.New(),
		UserID:         in.UserID,
		Product:        in.Product,
		Quantity:       in.Quantity,
		Price:          in.Price,
		IdempotencyKey: key,
	}

	payload, err := json.Marshal(OrderCreatedEvent{
		ID:         o.ID,
		UserID:     o.UserID,
		Product:    o.Product,
		Quantity:   o.Quantity,
		Price:      o.Price,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("serializing order created event: %w", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, o); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		if err := s.outbox.Save(ctx, s.topic, payload); err != nil {
			return fmt.Errorf("inserting outbox record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("storing order: %w", err)
	}

	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", o.UserID.String()).
		Msg("order created")

	return o, true, nil
}

// GetOrder returns the order with the given id, or ErrNotFound.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}
