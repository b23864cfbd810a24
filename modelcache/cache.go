package modelcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-model-cache/cache"
	"github.com/goliatone/go-model-cache/internal/cacheinfra"
)

// Cache holds the store and lock handles shared by every cached call.
// It is safe for concurrent use.
type Cache struct {
	store      cache.Store
	locker     cache.Locker
	hasher     cache.KeyHasher
	codec      *cache.Codec
	policy     InvalidationPolicy
	metrics    cache.Metrics
	logger     *slog.Logger
	now        func() time.Time
	expiration cache.Expiration
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger receiving swallowed store and invalidation failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics cache.Metrics) Option {
	return func(c *Cache) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithClock sets the time source used to resolve absolute expirations.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithInvalidation selects the invalidation policy. TTLOnly is the default.
func WithInvalidation(policy InvalidationPolicy) Option {
	return func(c *Cache) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// WithHasher replaces the argument digest.
func WithHasher(hasher cache.KeyHasher) Option {
	return func(c *Cache) {
		if hasher != nil {
			c.hasher = hasher
		}
	}
}

// WithCodec replaces the value codec.
func WithCodec(codec *cache.Codec) Option {
	return func(c *Cache) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithDefaultExpiration sets the expiration used by calls that configure none.
func WithDefaultExpiration(exp cache.Expiration) Option {
	return func(c *Cache) {
		if !exp.IsZero() {
			c.expiration = exp
		}
	}
}

// New creates a Cache over store. A nil locker uses a process-local single-flight lock.
func New(store cache.Store, locker cache.Locker, opts ...Option) *Cache {
	if locker == nil {
		locker = cacheinfra.NewLocalLocker()
	}
	c := &Cache{
		store:      store,
		locker:     locker,
		hasher:     cache.NewDefaultKeyHasher(),
		codec:      cache.NewCodec(),
		policy:     TTLOnly{},
		metrics:    cache.NoopMetrics{},
		logger:     slog.Default(),
		now:        time.Now,
		expiration: cache.ExpireIn(cache.DefaultExpiration),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying store.
func (c *Cache) Store() cache.Store { return c.store }

// Policy returns the active invalidation policy.
func (c *Cache) Policy() InvalidationPolicy { return c.policy }

// Wrap starts configuring a cached call to method on collaborator.
func (c *Cache) Wrap(collaborator Collaborator, method string) *Builder {
	b := &Builder{cache: c, collaborator: collaborator, method: method}
	if checker, ok := collaborator.(MethodChecker); ok && !checker.HasMethod(method) {
		b.err = fmt.Errorf("%w: %s.%s", cache.ErrUnknownMethod, collaborator.Name(), method)
	}
	return b
}

// Get wraps method with a tag, an expiration and a hit deserializer.
// A zero expiration uses the cache default; a nil deserialize decodes hits
// into generic JSON values (any, or []any in array mode).
func (c *Cache) Get(collaborator Collaborator, method, tag string, exp cache.Expiration, deserialize DeserializeFunc) *Builder {
	return c.Wrap(collaborator, method).Tag(tag).Expire(exp).Deserialize(deserialize)
}

// GetOne wraps a method returning one instance. Hits are rebuilt with the
// collaborator's FromJSON. callback post-processes fresh results and may be nil.
func (c *Cache) GetOne(collaborator Collaborator, method, tag string, callback TransformFunc, exp cache.Expiration) *Builder {
	return c.Wrap(collaborator, method).
		Tag(tag).
		Transform(callback).
		Expire(exp).
		Deserialize(func(v any) (any, error) {
			raw, err := asDocument(v)
			if err != nil {
				return nil, err
			}
			return collaborator.FromJSON(raw)
		})
}

// GetMany wraps a method returning a sequence. Each element of a hit is
// rebuilt with the collaborator's FromJSON.
func (c *Cache) GetMany(collaborator Collaborator, method, tag string, callback TransformFunc, exp cache.Expiration) *Builder {
	return c.Wrap(collaborator, method).
		Tag(tag).
		Transform(callback).
		Expire(exp).
		Deserialize(func(v any) (any, error) {
			elements, err := asElements(v)
			if err != nil {
				return nil, err
			}
			out := make([]any, len(elements))
			for i, element := range elements {
				if out[i], err = collaborator.FromJSON(element); err != nil {
					return nil, err
				}
			}
			return out, nil
		})
}

// Invalidate applies the invalidation policy for collaborator.
func (c *Cache) Invalidate(ctx context.Context, collaborator string) error {
	if err := c.policy.Invalidate(context.WithoutCancel(ctx), c.store, collaborator); err != nil {
		c.logger.Warn("cache invalidation failed",
			"collaborator", collaborator,
			"policy", c.policy.Name(),
			"error", err,
		)
		return err
	}
	return nil
}

// Flush removes every entry regardless of the policy. Failures are logged and swallowed.
func (c *Cache) Flush(ctx context.Context) {
	if err := c.store.Flush(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("cache flush failed", "error", err)
	}
}

func asDocument(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case json.RawMessage:
		return t, nil
	case []byte:
		return json.RawMessage(t), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func asElements(v any) ([]json.RawMessage, error) {
	if elements, ok := v.([]json.RawMessage); ok {
		return elements, nil
	}
	doc, err := asDocument(v)
	if err != nil {
		return nil, err
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(doc, &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrCorruptEntry, err)
	}
	return elements, nil
}
