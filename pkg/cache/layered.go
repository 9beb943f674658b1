package cache

import (
	"context"
	"errors"
	"time"
)

// DefaultL1TTL caps how long a value lives in the local layer, so instances
// sharing Redis converge quickly after a write elsewhere.
const DefaultL1TTL = 5 * time.Second

// LayeredCache reads through a local memory layer to Redis and writes
// through to both. Locks always go to Redis.
type LayeredCache struct {
	l1    *MemoryCache
	l2    *RedisCache
	l1TTL time.Duration
}

func NewLayeredCache(l2 *RedisCache, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{l1: NewMemoryCache(opts...), l2: l2, l1TTL: DefaultL1TTL}
}

func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := c.l1.getRaw(key); ok {
		return decode(data, dest)
	}
	data, err := c.l2.getRaw(ctx, key)
	if err != nil {
		return err
	}
	c.l1.setRaw(key, data, c.localTTL(c.l2.ttl(ctx, key)))
	return decode(data, dest)
}

// GetFresh skips the local layer and refreshes it from Redis. Use it under
// a lease, where a local copy written by this instance may hide another
// instance's write.
func (c *LayeredCache) GetFresh(ctx context.Context, key string, dest interface{}) error {
	data, err := c.l2.getRaw(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		_ = c.l1.Delete(ctx, key)
	}
	if err != nil {
		return err
	}
	c.l1.setRaw(key, data, c.localTTL(c.l2.ttl(ctx, key)))
	return decode(data, dest)
}

func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := c.l2.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	c.l1.setRaw(key, data, c.localTTL(ttl))
	return nil
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.l1.Delete(ctx, keys...)
	return c.l2.Delete(ctx, keys...)
}

func (c *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	return c.l2.TryLock(ctx, key, ttl)
}

// Close stops the local layer. The Redis connection has its own owner.
func (c *LayeredCache) Close() error { return c.l1.Close() }

func (c *LayeredCache) localTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > c.l1TTL {
		return c.l1TTL
	}
	return ttl
}

var (
	_ Service = (*MemoryCache)(nil)
	_ Service = (*RedisCache)(nil)
	_ Service = (*LayeredCache)(nil)
)
