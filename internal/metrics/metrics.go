package metrics

import (
	tally "github.com/uber-go/tally/v4"
)

// Counter defines the contract for counters.
type Counter interface {
	// Inc increments the counter by a delta.
	Inc(delta int64)
}

type NopCounter struct{}

var _ Counter = (*NopCounter)(nil)

func (*NopCounter) Inc(delta int64) {} //nolint:all

// TallyCounter adapts a tally counter to the Counter contract.
type TallyCounter struct {
	Counter tally.Counter
}

var _ Counter = (*TallyCounter)(nil)

func (c *TallyCounter) Inc(delta int64) {
	c.Counter.Inc(delta)
}
