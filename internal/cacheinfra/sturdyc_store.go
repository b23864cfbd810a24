package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// memoryEntry carries its own expiry because sturdyc applies one TTL per client.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process store backed by a sturdyc client.
// Values are compressed like the Redis store so both adapters hold identical bytes.
type MemoryStore struct {
	client *sturdyc.Client[memoryEntry]
	now    func() time.Time
}

// NewMemoryStore creates a sturdyc backed store.
// It validates the configuration before building the client:
// Capacity, NumShards, MaxTTL and EvictionPercentage go to sturdyc.New(),
// the rest is applied via ToSturdycOptions().
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[memoryEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryStore{client: client, now: time.Now}, nil
}

// WithClock replaces the time source used for per-entry expiry. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Get returns the value for key if present and not expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}

	if !s.now().Before(entry.expiresAt) {
		s.client.Delete(key)
		return nil, false, nil
	}

	value, err := Decompress(entry.value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value for ttl. A non-positive ttl skips the write.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	compressed, err := Compress(value)
	if err != nil {
		return err
	}

	s.client.Set(key, memoryEntry{value: compressed, expiresAt: s.now().Add(ttl)})
	return nil
}

// Delete removes the given keys.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// DeleteByPrefix removes all entries whose key starts with prefix.
func (s *MemoryStore) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Flush removes every entry.
func (s *MemoryStore) Flush(_ context.Context) error {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	return nil
}

// Size returns the number of entries currently held, including expired ones not yet evicted.
func (s *MemoryStore) Size() int {
	return s.client.Size()
}
