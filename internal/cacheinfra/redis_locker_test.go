package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func fastLockConfig() RedisLockConfig {
	cfg := DefaultRedisLockConfig()
	cfg.WaitTimeout = 200 * time.Millisecond
	cfg.RetryInterval = 10 * time.Millisecond
	return cfg
}

func TestNewRedisLocker_InvalidConfig(t *testing.T) {
	_, client := newMiniredisClient(t)
	cfg := fastLockConfig()
	cfg.LeaseTTL = 0

	if _, err := NewRedisLocker(client, cfg); err == nil {
		t.Fatal("expected error but got none")
	}
}

func TestRedisLocker_RunsAndReleases(t *testing.T) {
	mr, client := newMiniredisClient(t)
	locker, err := NewRedisLocker(client, fastLockConfig())
	if err != nil {
		t.Fatalf("NewRedisLocker() error = %v", err)
	}

	v, err := locker.RunExclusive(context.Background(), "file:getOne", func(context.Context) (any, error) {
		if !mr.Exists("lock:file:getOne") {
			t.Error("expected lease to be held while fn runs")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RunExclusive() error = %v", err)
	}
	if v != "ok" {
		t.Errorf("RunExclusive() = %v", v)
	}
	if mr.Exists("lock:file:getOne") {
		t.Error("expected lease to be released")
	}
}

func TestRedisLocker_LeaseHeldByPeerTimesOut(t *testing.T) {
	mr, client := newMiniredisClient(t)
	locker, err := NewRedisLocker(client, fastLockConfig())
	if err != nil {
		t.Fatalf("NewRedisLocker() error = %v", err)
	}

	if err := mr.Set("lock:k", "peer-token"); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	var ran atomic.Bool
	_, err = locker.RunExclusive(context.Background(), "k", func(context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	})
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("RunExclusive() error = %v, want ErrLockTimeout", err)
	}
	if ran.Load() {
		t.Error("fn must not run without the lease")
	}
	if got, _ := mr.Get("lock:k"); got != "peer-token" {
		t.Errorf("peer lease must be untouched, got %q", got)
	}
}

func TestRedisLocker_WaitsForPeerRelease(t *testing.T) {
	mr, client := newMiniredisClient(t)
	locker, err := NewRedisLocker(client, fastLockConfig())
	if err != nil {
		t.Fatalf("NewRedisLocker() error = %v", err)
	}

	if err := mr.Set("lock:k", "peer-token"); err != nil {
		t.Fatalf("seed error = %v", err)
	}
	go func() {
		time.Sleep(40 * time.Millisecond)
		mr.Del("lock:k")
	}()

	v, err := locker.RunExclusive(context.Background(), "k", func(context.Context) (any, error) {
		return "after peer", nil
	})
	if err != nil {
		t.Fatalf("RunExclusive() error = %v", err)
	}
	if v != "after peer" {
		t.Errorf("RunExclusive() = %v", v)
	}
}

func TestRedisLocker_ReleaseOnlyByOwner(t *testing.T) {
	mr, client := newMiniredisClient(t)
	locker, err := NewRedisLocker(client, fastLockConfig())
	if err != nil {
		t.Fatalf("NewRedisLocker() error = %v", err)
	}

	_, err = locker.RunExclusive(context.Background(), "k", func(context.Context) (any, error) {
		// Simulate the lease expiring and a peer taking it over.
		if err := mr.Set("lock:k", "peer-token"); err != nil {
			t.Fatalf("seed error = %v", err)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("RunExclusive() error = %v", err)
	}
	if got, _ := mr.Get("lock:k"); got != "peer-token" {
		t.Errorf("release must not delete a peer's lease, got %q", got)
	}
}

func TestRedisLocker_BackendUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	locker, err := NewRedisLocker(client, fastLockConfig())
	if err != nil {
		t.Fatalf("NewRedisLocker() error = %v", err)
	}
	_, err = locker.RunExclusive(context.Background(), "k", func(context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrLockUnavailable) {
		t.Errorf("RunExclusive() error = %v, want ErrLockUnavailable", err)
	}
}

func TestRedisLocker_CoalescesInProcess(t *testing.T) {
	_, client := newMiniredisClient(t)
	locker, err := NewRedisLocker(client, fastLockConfig())
	if err != nil {
		t.Fatalf("NewRedisLocker() error = %v", err)
	}

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := locker.RunExclusive(context.Background(), "k", func(context.Context) (any, error) {
				calls.Add(1)
				time.Sleep(30 * time.Millisecond)
				return nil, nil
			})
			if err != nil {
				t.Errorf("RunExclusive() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// Late arrivals can start a second flight after the first finishes; they must never time out.
	if got := calls.Load(); got < 1 || got > 10 {
		t.Errorf("unexpected execution count %d", got)
	}
}
