package cache

import (
	"context"
	"time"
)

// KeyHasher reduces an argument list to a fixed length digest.
// Implementations must be pure and sensitive to argument order.
type KeyHasher interface {
	Hash(args ...any) string
}

// FetchFn is the unit of work executed on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Store is the contract over the external key-value store holding cache entries.
// Values are opaque bytes; adapters may compress them transparently.
//
// A zero or negative TTL means the entry must not be written.
type Store interface {
	// Get returns the stored value and true, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	// Flush removes every entry owned by the store.
	Flush(ctx context.Context) error
}

// Locker runs a unit of work with single-flight semantics per key.
// Callers arriving while an execution for key is active receive
// that execution's result instead of starting a new one.
type Locker interface {
	RunExclusive(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error)
}

// RunExclusive is a type-safe wrapper around Locker.RunExclusive.
func RunExclusive[T any](ctx context.Context, locker Locker, key string, fn FetchFn[T]) (T, error) {
	result, err := locker.RunExclusive(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if result == nil {
		var zero T
		return zero, nil
	}
	return result.(T), nil
}
