// Package memorycache provides an in-memory flowcache.Cache backed by a
// bounded LRU, for tests and single-process runs. Capacity pressure
// evicts the least recently started flow, which for abandoned flows is
// exactly the entry we want gone first.
package memorycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/grl-racing/grlbot/flowcache"
)

const cleanupInterval = time.Minute

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache implements flowcache.Cache in memory.
type Cache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, entry]
	done  chan struct{}
	once  sync.Once
}

// New creates a Cache holding at most maxEntries live flows.
func New(maxEntries int) (*Cache, error) {
	c, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create LRU cache: %w", err)
	}
	mc := &Cache{cache: c, done: make(chan struct{})}
	go mc.cleanupExpired()
	return mc, nil
}

// Put stores value under key for at most ttl.
func (c *Cache) Put(ctx context.Context, key flowcache.Key, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = flowcache.DefaultTTL
	}
	data := make([]byte, len(value))
	copy(data, value)

	c.mu.Lock()
	c.cache.Add(key.String(), entry{data: data, expiresAt: time.Now().Add(ttl)})
	c.mu.Unlock()
	return nil
}

// Take returns and removes the value for key, or (nil, nil) when absent
// or expired.
func (c *Cache) Take(ctx context.Context, key flowcache.Key) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache.Get(key.String())
	if !ok {
		return nil, nil
	}
	c.cache.Remove(key.String())
	if time.Now().After(e.expiresAt) {
		return nil, nil
	}
	return e.data, nil
}

// Close stops the background cleanup goroutine.
func (c *Cache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *Cache) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for _, key := range c.cache.Keys() {
				if e, ok := c.cache.Peek(key); ok && now.After(e.expiresAt) {
					c.cache.Remove(key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Interface compliance
var _ flowcache.Cache = (*Cache)(nil)
