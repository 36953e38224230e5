package cachesvc

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/elimu/core"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero: never
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// memoryCache is a process local core.Cache for DEV and tests.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ core.Cache = (*memoryCache)(nil)

func NewMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if now := c.now(); entry.expired(now) {
		c.mu.Lock()
		// the key may have been Set again since the read
		if cur, ok := c.entries[key]; ok && cur.expired(now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string) error {
	entry := memoryEntry{value: value}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}
