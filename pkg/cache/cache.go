// Package cache stores JSON values by key in memory, in Redis, or in both.
// Strings and byte slices are stored as-is so other tools can read them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrLockHeld  = errors.New("lock held")
)

// Service is what the application needs from a cache. A zero ttl keeps the
// value until it is deleted; such values are never evicted.
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// TryLock takes a short lease on key. It returns ErrLockHeld when someone
	// else owns the lease.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// GetFresh reads key from the shared layer of c when c keeps a local copy,
// and is a plain Get otherwise.
func GetFresh(ctx context.Context, c Service, key string, dest interface{}) error {
	if f, ok := c.(interface {
		GetFresh(ctx context.Context, key string, dest interface{}) error
	}); ok {
		return f.GetFresh(ctx, key, dest)
	}
	return c.Get(ctx, key, dest)
}

// Unlock releases a lease taken by TryLock. Releasing an expired lease is
// not an error.
type Unlock func(ctx context.Context) error

func encode(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	case json.RawMessage:
		return t, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache encode: %w", err)
	}
	return data, nil
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	case *string:
		*d = string(data)
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}
