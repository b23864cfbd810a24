package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/goliatone/go-model-cache/internal/cacheinfra"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DefaultTTL != 24*time.Hour {
		t.Errorf("expected DefaultTTL 24h, got %v", cfg.DefaultTTL)
	}
	if cfg.Invalidation != InvalidateTTLOnly {
		t.Errorf("expected ttl invalidation by default, got %q", cfg.Invalidation)
	}
	if cfg.Lock.Scope != LockLocal {
		t.Errorf("expected local lock scope, got %q", cfg.Lock.Scope)
	}
	if cfg.Memory.Capacity != 10000 {
		t.Errorf("expected Capacity 10000, got %d", cfg.Memory.Capacity)
	}
	if cfg.UsesRedis() {
		t.Error("expected memory store by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown invalidation", mutate: func(c *Config) { c.Invalidation = "sometimes" }, wantErr: true},
		{name: "missing invalidation", mutate: func(c *Config) { c.Invalidation = "" }, wantErr: true},
		{name: "sub-second ttl", mutate: func(c *Config) { c.DefaultTTL = time.Millisecond }, wantErr: true},
		{name: "unknown lock scope", mutate: func(c *Config) { c.Lock.Scope = "global" }, wantErr: true},
		{name: "cluster lock without redis", mutate: func(c *Config) { c.Lock.Scope = LockCluster }, wantErr: true},
		{name: "zero capacity", mutate: func(c *Config) { c.Memory.Capacity = 0 }, wantErr: true},
		{name: "zero capacity ignored with redis", mutate: func(c *Config) {
			c.RedisURL = "redis://localhost:6379/0"
			c.Memory.Capacity = 0
		}},
		{name: "cluster lock with bad timings", mutate: func(c *Config) {
			c.RedisURL = "redis://localhost:6379/0"
			c.Lock.Scope = LockCluster
			c.Lock.RetryInterval = time.Minute
		}, wantErr: true},
		{name: "prefix invalidation", mutate: func(c *Config) { c.Invalidation = InvalidatePrefix }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("MODELCACHE_KEY_PREFIX", "app")
	t.Setenv("MODELCACHE_DEFAULT_TTL", "90s")
	t.Setenv("MODELCACHE_INVALIDATION", "flush")
	t.Setenv("MODELCACHE_MEMORY_CAPACITY", "500")

	cfg, err := LoadConfig("MODELCACHE")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.KeyPrefix != "app" {
		t.Errorf("KeyPrefix = %q", cfg.KeyPrefix)
	}
	if cfg.DefaultTTL != 90*time.Second {
		t.Errorf("DefaultTTL = %v", cfg.DefaultTTL)
	}
	if cfg.Invalidation != InvalidateFlush {
		t.Errorf("Invalidation = %q", cfg.Invalidation)
	}
	if cfg.Memory.Capacity != 500 {
		t.Errorf("Memory.Capacity = %d", cfg.Memory.Capacity)
	}
	if cfg.Memory.NumShards != 256 {
		t.Errorf("expected untouched defaults to survive, NumShards = %d", cfg.Memory.NumShards)
	}
}

func TestLoadConfig_InvalidEnvironment(t *testing.T) {
	t.Setenv("MODELCACHE_DEFAULT_TTL", "soon")
	if _, err := LoadConfig("MODELCACHE"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewBackend_Memory(t *testing.T) {
	backend, err := NewBackend(context.Background(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	defer backend.Close()

	if _, ok := backend.Store.(*cacheinfra.MemoryStore); !ok {
		t.Errorf("expected memory store, got %T", backend.Store)
	}
	if _, ok := backend.Locker.(*cacheinfra.LocalLocker); !ok {
		t.Errorf("expected local locker, got %T", backend.Locker)
	}
	if err := backend.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNewBackend_RedisCluster(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.KeyPrefix = "app"
	cfg.Lock.Scope = LockCluster

	backend, err := NewBackend(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	defer backend.Close()

	if _, ok := backend.Store.(*cacheinfra.RedisStore); !ok {
		t.Errorf("expected redis store, got %T", backend.Store)
	}
	if _, ok := backend.Locker.(*cacheinfra.RedisLocker); !ok {
		t.Errorf("expected redis locker, got %T", backend.Locker)
	}

	if err := backend.Store.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("app:k") {
		t.Error("expected key prefix to be applied")
	}
	if err := backend.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNewBackend_RedisUnreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	if _, err := NewBackend(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected connection error")
	}
}
