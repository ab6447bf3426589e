package outbox

import (
	"time"
)

const (
	defaultPollInterval time.Duration = time.Millisecond * 500
	defaultBatchSize    int           = 50
	defaultMaxAttempts  int           = 5
)

// Settings holds the relay configuration.
type Settings struct {
	PollInterval time.Duration // interval between database pollings; also the latency floor on publish visibility
	BatchSize    int           // maximum number of records selected per poll
	MaxAttempts  int           // delivery attempt ceiling after which a record is exhausted
}

// validateSettings validates the established settings and sets defaults
// if needed.
func validateSettings(s *Settings) {
	if s.PollInterval <= 0 {
		s.PollInterval = defaultPollInterval
	}
	if s.BatchSize <= 0 {
		s.BatchSize = defaultBatchSize
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = defaultMaxAttempts
	}
}
