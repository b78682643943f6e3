package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/WailSalutem-Health-Care/emr-service/internal/cache"
)

// MemoryCache is an in-process cache.Cache for tests. TTLs are ignored.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	Locks   int
	Deleted []string
}

var _ cache.Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, out interface{}) (bool, error) {
	c.mu.Lock()
	b, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = b
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.Deleted = append(c.Deleted, k)
	}
	return nil
}

func (c *MemoryCache) Lock(context.Context, string) (cache.ReleaseLock, error) {
	c.mu.Lock()
	c.Locks++
	c.mu.Unlock()
	return func() error { return nil }, nil
}

func (c *MemoryCache) Close() error { return nil }

// Has reports whether key is cached.
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
