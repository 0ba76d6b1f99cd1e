// Package cache provides the expiring key-value store used for external
// metadata and cover lookups. Keys are request URLs or other stable
// identifiers; values are opaque bytes.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/bookworms/internal/config"
)

// Store is an expiring key-value cache.
type Store interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New builds the store selected by cfg.Backend.
func New(cfg config.Cache) (Store, error) {
	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		return NewMemoryStore(), nil
	case config.CacheBackendRedis:
		return NewRedisStore(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
