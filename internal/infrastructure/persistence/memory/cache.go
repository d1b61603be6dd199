package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"safetrail/internal/ports"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Cache is the process-local ports.Cache used with the memory driver.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

var _ ports.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	key, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	key, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	entry := cacheEntry{value: value}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var purged int64
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			purged++
		}
	}
	return purged, nil
}

func checkKey(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("key is required")
	}
	return key, nil
}
