package cacheinfra

import (
	"context"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemoryStore(t *testing.T) (*MemoryStore, *manualClock) {
	t.Helper()
	cfg := DefaultMemoryConfig()
	cfg.Capacity = 100
	cfg.NumShards = 2

	store, err := NewMemoryStore(cfg)
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	clock := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return store.WithClock(clock.Now), clock
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) (storeUnderTest, func(time.Duration)) {
		store, clock := newTestMemoryStore(t)
		return store, clock.Advance
	})
}

func TestNewMemoryStore_InvalidConfig(t *testing.T) {
	cfg := DefaultMemoryConfig()
	cfg.Capacity = 0

	store, err := NewMemoryStore(cfg)
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if err.Error() != "config error in field Capacity: must be greater than 0" {
		t.Errorf("unexpected error message %q", err.Error())
	}
	if store != nil {
		t.Error("expected store to be nil when error occurs")
	}
}

func TestMemoryStore_ValuesAreCompressed(t *testing.T) {
	store, _ := newTestMemoryStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, ok := store.client.Get("k")
	if !ok {
		t.Fatal("expected raw entry in sturdyc client")
	}
	if string(entry.value) == "value" {
		t.Error("expected stored bytes to be compressed")
	}
	if store.Size() != 1 {
		t.Errorf("expected size 1, got %d", store.Size())
	}
}

func TestMemoryStore_ExpiryBoundary(t *testing.T) {
	store, clock := newTestMemoryStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	clock.Advance(999 * time.Millisecond)
	if _, ok, _ := store.Get(ctx, "k"); !ok {
		t.Error("expected entry before its ttl elapsed")
	}

	clock.Advance(time.Millisecond)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("expected entry to expire exactly at its ttl")
	}
}
