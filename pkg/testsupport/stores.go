package testsupport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-model-cache/cache"
	"github.com/goliatone/go-model-cache/internal/cacheinfra"
)

// ErrStoreDown is returned by FailingStore.
var ErrStoreDown = errors.New("testsupport: store unavailable")

// FailingStore wraps a store and fails reads and writes while switched on.
// With a nil inner store every operation misses or fails.
type FailingStore struct {
	Inner cache.Store

	failGet atomic.Bool
	failSet atomic.Bool

	Gets atomic.Int32
	Sets atomic.Int32
}

// NewFailingStore wraps inner. Both failure switches start off.
func NewFailingStore(inner cache.Store) *FailingStore {
	return &FailingStore{Inner: inner}
}

// FailGets toggles read failures.
func (s *FailingStore) FailGets(fail bool) { s.failGet.Store(fail) }

// FailSets toggles write failures.
func (s *FailingStore) FailSets(fail bool) { s.failSet.Store(fail) }

// FailAll toggles read and write failures together.
func (s *FailingStore) FailAll(fail bool) {
	s.FailGets(fail)
	s.FailSets(fail)
}

func (s *FailingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.Gets.Add(1)
	if s.failGet.Load() || s.Inner == nil {
		return nil, false, ErrStoreDown
	}
	return s.Inner.Get(ctx, key)
}

func (s *FailingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.Sets.Add(1)
	if s.failSet.Load() || s.Inner == nil {
		return ErrStoreDown
	}
	return s.Inner.Set(ctx, key, value, ttl)
}

func (s *FailingStore) Delete(ctx context.Context, keys ...string) error {
	if s.failSet.Load() || s.Inner == nil {
		return ErrStoreDown
	}
	return s.Inner.Delete(ctx, keys...)
}

func (s *FailingStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	if s.failSet.Load() || s.Inner == nil {
		return ErrStoreDown
	}
	return s.Inner.DeleteByPrefix(ctx, prefix)
}

func (s *FailingStore) Flush(ctx context.Context) error {
	if s.failSet.Load() || s.Inner == nil {
		return ErrStoreDown
	}
	return s.Inner.Flush(ctx)
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// NewMemoryStore returns a small sturdyc store driven by clock.
func NewMemoryStore(t *testing.T, clock *Clock) *cacheinfra.MemoryStore {
	t.Helper()

	cfg := cacheinfra.DefaultMemoryConfig()
	cfg.Capacity = 1000
	cfg.NumShards = 4

	store, err := cacheinfra.NewMemoryStore(cfg)
	if err != nil {
		t.Fatalf("failed to create memory store: %v", err)
	}
	if clock != nil {
		store = store.WithClock(clock.Now)
	}
	return store
}

// NewRedis starts a miniredis server and a client for it, both closed on cleanup.
func NewRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
