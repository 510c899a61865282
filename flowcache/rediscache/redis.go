// Package rediscache provides a Redis-backed flowcache.Cache so pending
// flow state survives a process restart and is shared across shards.
// Expiry rides on Redis key TTLs; Take uses GETDEL so a flow entry is
// consumed atomically even when two component interactions race.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grl-racing/grlbot/flowcache"
)

const defaultKeyPrefix = "grlbot:flows:"

// Config contains configuration options for the Redis cache.
type Config struct {
	// Client is the Redis client instance.
	Client *redis.Client
	// KeyPrefix for all cache keys. Default: "grlbot:flows:".
	KeyPrefix string
}

// Cache implements flowcache.Cache on Redis.
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

// New creates a Redis-backed cache and verifies connectivity.
func New(cfg Config) (*Cache, error) {
	if cfg.Client == nil {
		return nil, errors.New("rediscache: redis client is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if err := cfg.Client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{client: cfg.Client, keyPrefix: cfg.KeyPrefix}, nil
}

// Put stores value under key for at most ttl.
func (c *Cache) Put(ctx context.Context, key flowcache.Key, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = flowcache.DefaultTTL
	}
	if err := c.client.Set(ctx, c.keyPrefix+key.String(), value, ttl).Err(); err != nil {
		return fmt.Errorf("set flow entry %s: %w", key, err)
	}
	return nil
}

// Take returns and removes the value for key, or (nil, nil) when absent
// or expired.
func (c *Cache) Take(ctx context.Context, key flowcache.Key) ([]byte, error) {
	val, err := c.client.GetDel(ctx, c.keyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take flow entry %s: %w", key, err)
	}
	return val, nil
}

// Close closes the Redis client.
func (c *Cache) Close() error { return c.client.Close() }

// Interface compliance
var _ flowcache.Cache = (*Cache)(nil)
