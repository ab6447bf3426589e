package order

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownUser rejects a creation command whose user id has not
	// been observed in the local cache. The check can false-negative
	// while the users.created stream lags the user service.
	ErrUnknownUser = errors.New("unknown user")

	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("order not found")
)

// ValidationError describes a malformed creation command.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
