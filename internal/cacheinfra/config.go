package cacheinfra

import (
	"log/slog"
	"time"

	"github.com/viccon/sturdyc"
)

// MemoryConfig holds the configuration for the sturdyc backed in-process store.
type MemoryConfig struct {
	// Capacity defines the maximum number of entries that the store can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// MaxTTL caps the lifetime of every entry regardless of the TTL passed to Set.
	// Must be greater than 0. Default: 24h
	MaxTTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the store reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc scans for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults for most use cases.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          256,
		MaxTTL:             24 * time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional parts of the config to sturdyc options.
// Capacity, NumShards, MaxTTL and EvictionPercentage are constructor arguments.
func (c MemoryConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.MaxTTL <= 0 {
		return &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// RedisLockConfig configures the Redis backed single-flight lock.
type RedisLockConfig struct {
	// KeyPrefix is prepended to every lock key. Default: "lock:"
	KeyPrefix string

	// LeaseTTL bounds how long a crashed holder can keep a key locked.
	// Must exceed the slowest expected population.
	LeaseTTL time.Duration

	// WaitTimeout is how long a node waits for a peer's lock before failing.
	WaitTimeout time.Duration

	// RetryInterval is the delay between acquisition attempts.
	RetryInterval time.Duration

	// Logger receives release failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultRedisLockConfig returns the default lock timings.
func DefaultRedisLockConfig() RedisLockConfig {
	return RedisLockConfig{
		KeyPrefix:     "lock:",
		LeaseTTL:      30 * time.Second,
		WaitTimeout:   10 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// Validate checks if the lock timings are usable.
func (c RedisLockConfig) Validate() error {
	if c.LeaseTTL <= 0 {
		return &ConfigError{Field: "LeaseTTL", Message: "must be greater than 0"}
	}
	if c.WaitTimeout <= 0 {
		return &ConfigError{Field: "WaitTimeout", Message: "must be greater than 0"}
	}
	if c.RetryInterval <= 0 {
		return &ConfigError{Field: "RetryInterval", Message: "must be greater than 0"}
	}
	if c.RetryInterval > c.WaitTimeout {
		return &ConfigError{Field: "RetryInterval", Message: "must not exceed WaitTimeout"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
