// Package cache stores pipeline results keyed by content hashes.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for servers and CI runners
//   - [NullCache]: stores nothing, for --no-cache and tests
//
// # Keys
//
// A [Keyer] turns content hashes into cache keys. [DefaultKeyer] namespaces
// keys by kind ("run:", "order:"); [NewScopedKeyer] adds a prefix on top,
// which separates tenants sharing one Redis:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "ci:")
//	key := keyer.RunKey(cache.Hash(configJSON), cache.Hash(graphJSON))
package cache

import (
	"context"
	"time"
)

// Entry lifetimes. Results are content-addressed, so they only expire to
// bound the cache's size.
const (
	TTLRun   = 7 * 24 * time.Hour
	TTLOrder = 30 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// RunKey identifies the result of running a pipeline config over a graph.
	RunKey(configHash, graphHash string) string

	// OrderKey identifies the resolved pass order of a pipeline config.
	OrderKey(configHash string) string
}

// DefaultKeyer namespaces keys by kind.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RunKey implements Keyer.
func (DefaultKeyer) RunKey(configHash, graphHash string) string {
	return hashKey("run", configHash, graphHash)
}

// OrderKey implements Keyer.
func (DefaultKeyer) OrderKey(configHash string) string {
	return hashKey("order", configHash)
}
