package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrEmptyConnectionURL is returned when no Redis URL is configured.
	ErrEmptyConnectionURL = errors.New("cacheinfra: empty redis connection url")
	// ErrConnectionFailed is returned when Redis cannot be reached.
	ErrConnectionFailed = errors.New("cacheinfra: redis connection failed")
)

// scanBatch is the COUNT hint used when scanning keys for deletion.
const scanBatch = 100

// OpenRedis parses a redis:// or rediss:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (redis.UniversalClient, error) {
	if url == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return client, nil
}

// RedisStore stores zstd compressed values in Redis with per-key expiration.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. Keys are stored as "{prefix}:{key}"
// when prefix is set; Flush then only removes keys under the prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) prefixedKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get returns the decompressed value for key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefixedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	value, err := Decompress(data)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set writes value with ttl. Redis rejects EX 0, so non-positive TTLs skip the write.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	compressed, err := Compress(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefixedKey(key), compressed, ttl).Err()
}

// Delete removes the given keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefixedKey(key)
	}
	return s.client.Del(ctx, prefixed...).Err()
}

// DeleteByPrefix removes all keys starting with prefix using SCAN.
func (s *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	return s.deleteMatching(ctx, escapeGlob(s.prefixedKey(prefix))+"*")
}

// Flush removes all entries. Without a prefix the whole database is flushed.
func (s *RedisStore) Flush(ctx context.Context) error {
	if s.prefix == "" {
		return s.client.FlushDB(ctx).Err()
	}
	return s.deleteMatching(ctx, escapeGlob(s.prefix)+":*")
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) deleteMatching(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= scanBatch {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return s.client.Del(ctx, keys...).Err()
	}
	return nil
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes SCAN MATCH metacharacters so prefixes match literally.
func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
