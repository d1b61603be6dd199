package ports

import (
	"context"
	"time"
)

// Cache is a small key-value store with per-key expiry. Event intake uses it
// to remember idempotency keys. A zero ttl never expires.
//
// Adapters backed by the record store must join the unit of work carried by
// ctx so a key and the event it names commit together.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Purge drops expired entries and reports how many were removed.
	Purge(ctx context.Context) (int64, error)
}
