package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"orderflow/internal/order"
	"orderflow/internal/usercache"
)

const (
	pollTimeout = 250 * time.Millisecond
	idleDelay   = 50 * time.Millisecond
	errorDelay  = 500 * time.Millisecond
)

// messageReader abstracts the confluent consumer for testability.
type messageReader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	Close() error
}

// UserConsumer ingests users.created events and marks each user as known
// in the local cache. Applying an event is idempotent, so redeliveries
// are harmless.
//
// Offsets are auto-committed by the underlying consumer, decoupled from
// the cache update: a crash after an offset advances but before the
// matching Observe call loses that update for this process lifetime.
type UserConsumer struct {
	reader messageReader
	cache  *usercache.Cache
	logger zerolog.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

func NewUserConsumer(r messageReader, cache *usercache.Cache, logger zerolog.Logger) *UserConsumer {
	if r == nil {
		panic("reader is mandatory")
	}
	if cache == nil {
		panic("cache is mandatory")
	}
	return &UserConsumer{
		reader: r,
		cache:  cache,
		logger: logger,
	}
}

// Start launches the consume loop. Cancellation is checked between
// polls; an in-flight read is bounded by the poll timeout.
func (c *UserConsumer) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("consumer already started")
	}

	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.logger.Debug().Msg("user consumer started")
		for {
			select {
			case <-ctx.Done():
				c.logger.Debug().Msg("user consumer stopped")
				return
			default:
			}

			msg, err := c.reader.ReadMessage(pollTimeout)
			if err != nil {
				if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrTimedOut {
					sleep(ctx, idleDelay)
					continue
				}
				c.logger.Warn().Err(err).Msg("reading users.created message")
				sleep(ctx, errorDelay)
				continue
			}

			c.handleMessage(msg.Value)
		}
	}()

	return nil
}

// Shutdown stops the consume loop and closes the underlying reader.
func (c *UserConsumer) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		if err := c.reader.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("closing consumer")
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleMessage decodes one users.created payload and applies it to the
// cache. Undecodable messages are logged and dropped; there is no
// dead-letter sink.
func (c *UserConsumer) handleMessage(raw []byte) {
	evt, err := decodeUserCreated(raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping undecodable users.created message")
		return
	}

	c.cache.Observe(evt.ID)
	c.logger.Debug().Str("user_id", evt.ID.String()).Msg("user observed")
}

// decodeUserCreated parses a users.created payload. Some producers wrap
// the document in a JSON string literal (double encoding); one level of
// wrapping is unwrapped before the structural decode.
func decodeUserCreated(raw []byte) (*order.UserCreatedEvent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	if raw[0] == '"' {
		var unwrapped string
		if err := json.Unmarshal(raw, &unwrapped); err != nil {
			return nil, fmt.Errorf("unwrapping double-encoded payload: %w", err)
		}
		raw = []byte(unwrapped)
	}

	var evt order.UserCreatedEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("decoding user created event: %w", err)
	}
	if evt.ID == uuid.Nil {
		return nil, fmt.Errorf("user created event is missing an id")
	}
	return &evt, nil
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
