// Package usercache holds the set of user identifiers this service has
// observed through users.created events. The set is insert-only: entries
// are never removed for the lifetime of the process, so memory grows with
// the number of distinct users ever seen. Membership reflects locally
// applied consumer state and may lag the user service.
package usercache

import (
	"sync"

	"github.com/google/uuid"
)

// Cache is a concurrency-safe, insert-only membership set.
type Cache struct {
	mu    sync.RWMutex
	known map[uuid.UUID]struct{}
}

func New() *Cache {
	return &Cache{
		known: make(map[uuid.UUID]struct{}),
	}
}

// Observe records a user identifier. Calling it again with the same id
// is a no-op.
func (c *Cache) Observe(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[id] = struct{}{}
}

// IsKnown reports whether the user id has been observed. The answer is
// based on local state only and can be a false negative while the
// users.created stream is catching up.
func (c *Cache) IsKnown(id uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.known[id]
	return ok
}

// Len returns the number of distinct users observed so far.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.known)
}
