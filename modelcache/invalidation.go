package modelcache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-model-cache/cache"
)

// InvalidationPolicy decides what a mutation on collaborator removes from the store.
type InvalidationPolicy interface {
	Invalidate(ctx context.Context, store cache.Store, collaborator string) error
	Name() string
}

// TTLOnly leaves every entry to expire on its own. It is the default policy.
type TTLOnly struct{}

// Invalidate is a no-op.
func (TTLOnly) Invalidate(context.Context, cache.Store, string) error { return nil }

// Name returns "ttl".
func (TTLOnly) Name() string { return string(cache.InvalidateTTLOnly) }

// CoarseFlush clears the whole store on every mutation of any collaborator.
type CoarseFlush struct{}

// Invalidate flushes the store regardless of collaborator.
func (CoarseFlush) Invalidate(ctx context.Context, store cache.Store, _ string) error {
	return store.Flush(ctx)
}

// Name returns "flush".
func (CoarseFlush) Name() string { return string(cache.InvalidateFlush) }

// PrefixInvalidation removes only the mutated collaborator's entries.
type PrefixInvalidation struct{}

// Invalidate deletes every key under the "collaborator:" prefix.
func (PrefixInvalidation) Invalidate(ctx context.Context, store cache.Store, collaborator string) error {
	return store.DeleteByPrefix(ctx, collaborator+":")
}

// Name returns "prefix".
func (PrefixInvalidation) Name() string { return string(cache.InvalidatePrefix) }

// PolicyFor maps a configured strategy to its policy.
func PolicyFor(strategy cache.InvalidationStrategy) (InvalidationPolicy, error) {
	switch strategy {
	case "", cache.InvalidateTTLOnly:
		return TTLOnly{}, nil
	case cache.InvalidateFlush:
		return CoarseFlush{}, nil
	case cache.InvalidatePrefix:
		return PrefixInvalidation{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown invalidation strategy %q", cache.ErrInvalidConfig, strategy)
	}
}
