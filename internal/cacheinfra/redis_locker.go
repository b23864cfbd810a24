package cacheinfra

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrLockTimeout is returned when a lock held by a peer is not released within WaitTimeout.
	ErrLockTimeout = errors.New("cacheinfra: timed out waiting for lock")
	// ErrLockUnavailable is returned when the lock backend cannot be reached.
	ErrLockUnavailable = errors.New("cacheinfra: lock backend unavailable")
)

// releaseScript deletes the lock only if it is still owned by the caller's token.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker provides cluster-wide single-flight execution.
//
// Callers in the same process are coalesced with singleflight; the leader then
// takes a Redis lease (SET NX PX) so only one node computes a key at a time.
// Nodes that lose the race poll until the lease is released and then run their
// own unit of work, which is expected to re-check the cache first.
type RedisLocker struct {
	client redis.UniversalClient
	cfg    RedisLockConfig
	group  singleflight.Group
	logger *slog.Logger
}

// NewRedisLocker creates a Redis backed lock.
func NewRedisLocker(client redis.UniversalClient, cfg RedisLockConfig) (*RedisLocker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{client: client, cfg: cfg, logger: logger}, nil
}

// RunExclusive runs fn while holding the Redis lease for key.
func (l *RedisLocker) RunExclusive(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	v, err, _ := l.group.Do(key, func() (any, error) {
		lockKey := l.cfg.KeyPrefix + key
		token := uuid.NewString()

		if err := l.acquire(ctx, lockKey, token); err != nil {
			return nil, err
		}
		defer l.release(lockKey, token)

		return fn(ctx)
	})
	return v, err
}

func (l *RedisLocker) acquire(ctx context.Context, lockKey, token string) error {
	deadline := time.Now().Add(l.cfg.WaitTimeout)
	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.cfg.LeaseTTL).Result()
		if err != nil {
			return errors.Join(ErrLockUnavailable, err)
		}
		if ok {
			return nil
		}

		if !time.Now().Add(l.cfg.RetryInterval).Before(deadline) {
			return ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.RetryInterval):
		}
	}
}

// release runs on a detached context so a cancelled caller never strands the lease.
func (l *RedisLocker) release(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.RetryInterval+time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
		l.logger.Warn("failed to release cache lock", "key", lockKey, "error", err)
	}
}
