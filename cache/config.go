package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-model-cache/internal/cacheinfra"
)

// InvalidationStrategy names how mutations invalidate cached entries.
type InvalidationStrategy string

const (
	// InvalidateTTLOnly leaves entries to expire on their own.
	InvalidateTTLOnly InvalidationStrategy = "ttl"
	// InvalidateFlush clears the whole store after every mutation.
	InvalidateFlush InvalidationStrategy = "flush"
	// InvalidatePrefix removes the mutated collaborator's keys only.
	InvalidatePrefix InvalidationStrategy = "prefix"
)

// LockScope selects the single-flight backend.
type LockScope string

const (
	// LockLocal coalesces populations within this process.
	LockLocal LockScope = "local"
	// LockCluster coalesces populations across every node sharing the Redis instance.
	LockCluster LockScope = "cluster"
)

// Config exposes cache configuration options for consumers of the cache package.
// Without a RedisURL the in-process sturdyc store is used.
type Config struct {
	RedisURL     string               `envconfig:"REDIS_URL"`
	KeyPrefix    string               `envconfig:"KEY_PREFIX"`
	DefaultTTL   time.Duration        `envconfig:"DEFAULT_TTL"`
	Invalidation InvalidationStrategy `envconfig:"INVALIDATION"`
	Memory       MemoryConfig         `envconfig:"MEMORY"`
	Lock         LockConfig           `envconfig:"LOCK"`
}

// MemoryConfig sizes the in-process store.
type MemoryConfig struct {
	Capacity           int           `envconfig:"CAPACITY"`
	NumShards          int           `envconfig:"NUM_SHARDS"`
	MaxTTL             time.Duration `envconfig:"MAX_TTL"`
	EvictionPercentage int           `envconfig:"EVICTION_PERCENTAGE"`
	EvictionInterval   time.Duration `envconfig:"EVICTION_INTERVAL"`
}

// LockConfig configures single-flight population.
type LockConfig struct {
	Scope         LockScope     `envconfig:"SCOPE"`
	LeaseTTL      time.Duration `envconfig:"LEASE_TTL"`
	WaitTimeout   time.Duration `envconfig:"WAIT_TIMEOUT"`
	RetryInterval time.Duration `envconfig:"RETRY_INTERVAL"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	mem := cacheinfra.DefaultMemoryConfig()
	lock := cacheinfra.DefaultRedisLockConfig()
	return Config{
		DefaultTTL:   DefaultExpiration,
		Invalidation: InvalidateTTLOnly,
		Memory: MemoryConfig{
			Capacity:           mem.Capacity,
			NumShards:          mem.NumShards,
			MaxTTL:             mem.MaxTTL,
			EvictionPercentage: mem.EvictionPercentage,
		},
		Lock: LockConfig{
			Scope:         LockLocal,
			LeaseTTL:      lock.LeaseTTL,
			WaitTimeout:   lock.WaitTimeout,
			RetryInterval: lock.RetryInterval,
		},
	}
}

// LoadConfig overlays environment variables named {prefix}_{FIELD} on DefaultConfig,
// e.g. MODELCACHE_REDIS_URL or MODELCACHE_LOCK_SCOPE, and validates the result.
func LoadConfig(prefix string) (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.DefaultTTL, validation.Min(time.Second)),
		validation.Field(&c.Invalidation, validation.Required,
			validation.In(InvalidateTTLOnly, InvalidateFlush, InvalidatePrefix)),
		validation.Field(&c.Lock),
	)
	if err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	if c.RedisURL == "" {
		if err := c.memoryConfig().Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
		if c.Lock.Scope == LockCluster {
			return fmt.Errorf("%w: lock scope %q requires a redis url", ErrInvalidConfig, LockCluster)
		}
		return nil
	}

	if c.Lock.Scope == LockCluster {
		if err := c.lockConfig(nil).Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}
	return nil
}

// Validate implements validation.Validatable so Config can validate it as a nested field.
func (l LockConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Scope, validation.Required, validation.In(LockLocal, LockCluster)),
	)
}

// UsesRedis reports whether the configuration selects the Redis store.
func (c Config) UsesRedis() bool {
	return c.RedisURL != ""
}

// Backend owns the store and locker built from a Config.
type Backend struct {
	Store  Store
	Locker Locker
	redis  redis.UniversalClient
}

// Close releases the Redis connection when one was opened.
func (b *Backend) Close() error {
	if b == nil || b.redis == nil {
		return nil
	}
	return b.redis.Close()
}

// Ping checks the store connection. The in-process store is always reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b == nil || b.redis == nil {
		return nil
	}
	return b.redis.Ping(ctx).Err()
}

// NewBackend constructs the store and locker selected by cfg.
func NewBackend(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.UsesRedis() {
		store, err := cacheinfra.NewMemoryStore(cfg.memoryConfig())
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		return &Backend{Store: store, Locker: cacheinfra.NewLocalLocker()}, nil
	}

	client, err := cacheinfra.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return newRedisBackend(client, cfg, logger)
}

// NewRedisBackend builds a Redis backed store and locker over an existing client.
func NewRedisBackend(client redis.UniversalClient, cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return newRedisBackend(client, cfg, logger)
}

func newRedisBackend(client redis.UniversalClient, cfg Config, logger *slog.Logger) (*Backend, error) {
	backend := &Backend{
		Store: cacheinfra.NewRedisStore(client, cfg.KeyPrefix),
		redis: client,
	}

	if cfg.Lock.Scope != LockCluster {
		backend.Locker = cacheinfra.NewLocalLocker()
		return backend, nil
	}

	locker, err := cacheinfra.NewRedisLocker(client, cfg.lockConfig(logger))
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	backend.Locker = locker
	return backend, nil
}

func (c Config) memoryConfig() cacheinfra.MemoryConfig {
	return cacheinfra.MemoryConfig{
		Capacity:           c.Memory.Capacity,
		NumShards:          c.Memory.NumShards,
		MaxTTL:             c.Memory.MaxTTL,
		EvictionPercentage: c.Memory.EvictionPercentage,
		EvictionInterval:   c.Memory.EvictionInterval,
	}
}

func (c Config) lockConfig(logger *slog.Logger) cacheinfra.RedisLockConfig {
	lock := cacheinfra.DefaultRedisLockConfig()
	if c.KeyPrefix != "" {
		lock.KeyPrefix = c.KeyPrefix + ":" + lock.KeyPrefix
	}
	lock.LeaseTTL = c.Lock.LeaseTTL
	lock.WaitTimeout = c.Lock.WaitTimeout
	lock.RetryInterval = c.Lock.RetryInterval
	lock.Logger = logger
	return lock
}
