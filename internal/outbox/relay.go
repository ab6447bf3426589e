package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"orderflow/internal/metrics"
)

// Relay polls the outbox table for pending records and dispatches them to
// the configured emitter. One relay runs per storage context; if two
// instances ever poll the same table they may select overlapping batches
// and publish duplicates, which downstream consumers must tolerate.
//
// Batch outcomes are committed in a single transaction after the whole
// batch has been dispatched. A crash between broker acknowledgment and
// that commit makes the acknowledged records eligible again on restart:
// delivery is at-least-once, never exactly-once.
type Relay struct {
	settings   Settings
	logger     zerolog.Logger
	emitter    Emitter
	repository Repository
	successCtr metrics.Counter
	errorCtr   metrics.Counter

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

// Option allows optional relay configuration.
type Option func(r *Relay)

// WithCounters allows clients to configure optional counters for
// observability.
func WithCounters(success metrics.Counter, error metrics.Counter) Option {
	return func(r *Relay) {
		if success != nil {
			r.successCtr = success
		}
		if error != nil {
			r.errorCtr = error
		}
	}
}

// NewRelay creates a relay bound to its own repository and emitter
// handles.
func NewRelay(s Settings, r Repository, e Emitter, logger zerolog.Logger, options ...Option) *Relay {
	if r == nil || e == nil {
		panic("you must provide an emitter and a repository")
	}
	validateSettings(&s)

	relay := &Relay{
		settings:   s,
		logger:     logger,
		emitter:    e,
		repository: r,
		successCtr: &metrics.NopCounter{},
		errorCtr:   &metrics.NopCounter{},
	}
	for _, o := range options {
		o(relay)
	}
	return relay
}

// Start launches the polling loop. Cancellation is cooperative and only
// checked between iterations: an in-flight broker call is never
// interrupted once started.
func (r *Relay) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return fmt.Errorf("relay already started")
	}

	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.settings.PollInterval)
		defer ticker.Stop()

		r.logger.Debug().Msg("outbox relay started")
		for {
			select {
			case <-ctx.Done():
				r.logger.Debug().Msg("outbox relay stopped")
				return
			case <-ticker.C:
				r.processOutbox(ctx)
			}
		}
	}()

	return nil
}

// Shutdown stops the polling loop and waits for the current iteration to
// finish, up to the context deadline.
func (r *Relay) Shutdown(ctx context.Context) error {
	if !r.started.Load() {
		return nil
	}
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// processOutbox runs one relay cycle: select a batch of pending records,
// dispatch each one, collect the delivery reports and persist all
// outcomes at once.
func (r *Relay) processOutbox(ctx context.Context) {
	pending, err := r.repository.FindPending(ctx, r.settings.BatchSize, r.settings.MaxAttempts)
	if err != nil {
		r.logger.Error().Err(err).Msg("querying pending outbox records")
		return
	}
	if len(pending) == 0 {
		return
	}

	var published int
	var failed int
	var notSent int
	var wg sync.WaitGroup
	deliveryChan := make(chan *DeliveryReport, len(pending))

	go func() {
		for dr := range deliveryChan {
			rec := dr.Record
			rec.Attempts++
			if dr.Error != nil {
				failed++
				r.recordFailure(rec, dr.Error)
			} else {
				published++
				now := time.Now().UTC()
				rec.PublishedAt = &now
				rec.LastError = nil
				r.successCtr.Inc(1)
				r.logger.Debug().Str("record_id", rec.ID.String()).Msg(dr.Details)
			}
			wg.Done()
		}
	}()

	for _, rec := range pending {
		wg.Add(1)
		if err := r.emitter.Emit(rec, deliveryChan); err != nil {
			// The send never reached the broker; no report will arrive
			// for this record.
			wg.Done()
			rec.Attempts++
			notSent++
			r.recordFailure(rec, err)
		}
	}

	// Wait until every delivery report has been applied, then persist the
	// whole batch outcome in one transaction.
	wg.Wait()
	close(deliveryChan)
	failed += notSent

	if err := r.repository.UpdateBatch(ctx, pending); err != nil {
		r.logger.Error().Err(err).Msg("persisting outbox batch outcome")
		return
	}

	r.logger.Info().
		Int("published", published).
		Int("failed", failed).
		Int("total", len(pending)).
		Msg("outbox batch processed")
}

func (r *Relay) recordFailure(rec *Record, err error) {
	msg := err.Error()
	rec.LastError = &msg
	r.errorCtr.Inc(1)
	if rec.Attempts >= r.settings.MaxAttempts {
		r.logger.Warn().
			Str("record_id", rec.ID.String()).
			Int("attempts", rec.Attempts).
			Str("error", msg).
			Msg("outbox record exhausted, operator intervention required")
	} else {
		r.logger.Warn().
			Str("record_id", rec.ID.String()).
			Int("attempts", rec.Attempts).
			Err(err).
			Msg("outbox delivery failed")
	}
}
