// Package cache provides the redirect cache placed in front of the link store.
// Entries are a pure optimisation: an absent or expired entry means "ask the
// store", and an error from a cache must be treated the same way.
package cache

import (
	"context"
	"time"
)

// KeyPrefix namespaces redirect entries.
const KeyPrefix = "redir:"

// DefaultTTL is how long a redirect stays cached.
const DefaultTTL = time.Hour

// RedirectKey returns the cache key for a short code.
func RedirectKey(shortCode string) string {
	return KeyPrefix + shortCode
}

// Cache is a time-bounded key/value store safe for concurrent use.
type Cache interface {
	// Get reports whether a live entry exists for key.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}
