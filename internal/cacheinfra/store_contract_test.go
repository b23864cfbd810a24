package cacheinfra

import (
	"context"
	"testing"
	"time"
)

// storeUnderTest is the method set shared by the store adapters.
type storeUnderTest interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Flush(ctx context.Context) error
}

// runStoreContract exercises behaviour both adapters must share.
// advance moves the store's notion of time forward.
func runStoreContract(t *testing.T, newStore func(t *testing.T) (storeUnderTest, func(time.Duration))) {
	ctx := context.Background()

	t.Run("miss on unknown key", func(t *testing.T) {
		store, _ := newStore(t)
		value, ok, err := store.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if ok || value != nil {
			t.Errorf("expected miss, got %q ok=%v", value, ok)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		store, _ := newStore(t)
		if err := store.Set(ctx, "file:getOne:---:abc:", []byte(`{"id":1}`), time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		value, ok, err := store.Get(ctx, "file:getOne:---:abc:")
		if err != nil || !ok {
			t.Fatalf("Get() = ok=%v err=%v", ok, err)
		}
		if string(value) != `{"id":1}` {
			t.Errorf("Get() = %q", value)
		}
	})

	t.Run("entries expire after ttl", func(t *testing.T) {
		store, advance := newStore(t)
		if err := store.Set(ctx, "short", []byte("1"), time.Second); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		advance(2 * time.Second)
		if _, ok, _ := store.Get(ctx, "short"); ok {
			t.Error("expected entry to expire")
		}
	})

	t.Run("zero ttl is not written", func(t *testing.T) {
		store, _ := newStore(t)
		if err := store.Set(ctx, "zero", []byte("1"), 0); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if _, ok, _ := store.Get(ctx, "zero"); ok {
			t.Error("expected zero ttl entry to be skipped")
		}
	})

	t.Run("delete and delete by prefix", func(t *testing.T) {
		store, _ := newStore(t)
		for _, key := range []string{"file:a", "file:b", "package:a"} {
			if err := store.Set(ctx, key, []byte(key), time.Minute); err != nil {
				t.Fatalf("Set(%s) error = %v", key, err)
			}
		}

		if err := store.Delete(ctx, "file:a"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, ok, _ := store.Get(ctx, "file:a"); ok {
			t.Error("expected file:a to be deleted")
		}

		if err := store.DeleteByPrefix(ctx, "file:"); err != nil {
			t.Fatalf("DeleteByPrefix() error = %v", err)
		}
		if _, ok, _ := store.Get(ctx, "file:b"); ok {
			t.Error("expected file:b to be deleted by prefix")
		}
		if _, ok, _ := store.Get(ctx, "package:a"); !ok {
			t.Error("expected package:a to survive prefix deletion")
		}
	})

	t.Run("flush removes everything", func(t *testing.T) {
		store, _ := newStore(t)
		for _, key := range []string{"a", "b", "c"} {
			if err := store.Set(ctx, key, []byte(key), time.Minute); err != nil {
				t.Fatalf("Set(%s) error = %v", key, err)
			}
		}
		if err := store.Flush(ctx); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		for _, key := range []string{"a", "b", "c"} {
			if _, ok, _ := store.Get(ctx, key); ok {
				t.Errorf("expected %s to be flushed", key)
			}
		}
	})
}
