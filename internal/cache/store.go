package cache

import (
	"context"
	"time"
)

// Counter backs fixed-window rate limiting. The TTL is set when the key is created
// and is not extended by later increments.
type Counter interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Lease backs the sweep lock. Both calls are atomic with respect to other holders.
type Lease interface {
	// SetIfAbsent writes value when key is missing or expired and reports whether it did.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// DeleteIfValue removes key only while it still holds value.
	DeleteIfValue(ctx context.Context, key string, value []byte) (bool, error)
}

// Store is implemented by RedisStore and DatabaseStore.
type Store interface {
	Counter
	Lease

	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
