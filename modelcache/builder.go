package modelcache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-model-cache/cache"
)

// TransformFunc post-processes a fresh collaborator result before it is cached and returned.
type TransformFunc func(ctx context.Context, result any) (any, error)

// DeserializeFunc converts a decoded hit into the value returned to the caller.
// It receives json.RawMessage in scalar and raw modes and []json.RawMessage in array mode.
type DeserializeFunc func(decoded any) (any, error)

// Config is the immutable configuration of one cached call site.
type Config struct {
	Tag         string
	Transform   TransformFunc
	Expiration  cache.Expiration
	Deserialize DeserializeFunc
	Options     cache.Options
}

// Builder configures a cached call. Its methods mutate and return the same
// builder; configure it fully before the first Invoke.
type Builder struct {
	cache        *Cache
	collaborator Collaborator
	method       string
	cfg          Config
	err          error
}

// Tag adds key diversity, e.g. per tenant variants of the same call.
func (b *Builder) Tag(tag string) *Builder {
	b.cfg.Tag = tag
	return b
}

// Transform sets the result post-processing callback.
func (b *Builder) Transform(fn TransformFunc) *Builder {
	b.cfg.Transform = fn
	return b
}

// Expire sets the entry lifetime. A zero Expiration keeps the cache default.
func (b *Builder) Expire(exp cache.Expiration) *Builder {
	b.cfg.Expiration = exp
	return b
}

// Deserialize sets the hit deserializer.
func (b *Builder) Deserialize(fn DeserializeFunc) *Builder {
	b.cfg.Deserialize = fn
	return b
}

// AsArray stores the sequence result in fragments.
func (b *Builder) AsArray() *Builder {
	b.cfg.Options.AsArray = true
	return b
}

// AsRawArray stores the sequence as one JSON array and returns its text.
func (b *Builder) AsRawArray() *Builder {
	b.cfg.Options.AsArray = true
	b.cfg.Options.Raw = true
	return b
}

// Raw returns serialized JSON text instead of the computed value.
func (b *Builder) Raw() *Builder {
	b.cfg.Options.Raw = true
	return b
}

// WithLock runs populations under single-flight per key.
func (b *Builder) WithLock() *Builder {
	b.cfg.Options.WithLock = true
	return b
}

// Config returns a copy of the current configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build freezes the configuration into an Operation.
func (b *Builder) Build() (*Operation, error) {
	if b.err != nil {
		return nil, b.err
	}
	cfg := b.cfg
	if cfg.Expiration.IsZero() {
		cfg.Expiration = b.cache.expiration
	}
	return &Operation{
		cache:        b.cache,
		collaborator: b.collaborator,
		method:       b.method,
		cfg:          cfg,
	}, nil
}

// Invoke builds the operation and runs it once.
func (b *Builder) Invoke(ctx context.Context, args ...any) (any, error) {
	op, err := b.Build()
	if err != nil {
		return nil, err
	}
	return op.Invoke(ctx, args...)
}

// Operation is a configured cached call. It is safe for concurrent use.
type Operation struct {
	cache        *Cache
	collaborator Collaborator
	method       string
	cfg          Config
}

// Config returns the frozen configuration.
func (o *Operation) Config() Config { return o.cfg }

// Key returns the cache key for args.
func (o *Operation) Key(args ...any) string {
	return strings.Join([]string{
		o.collaborator.Name(),
		o.method,
		o.cfg.Options.Flags(),
		o.cache.hasher.Hash(args...),
		o.cfg.Tag,
	}, ":")
}

// Invoke serves the call from the store or computes and populates it.
//
// Store failures are logged and treated as misses. Collaborator errors are
// returned unchanged and nothing is cached. Cancelling ctx does not stop a
// population already under way.
func (o *Operation) Invoke(ctx context.Context, args ...any) (any, error) {
	ctx = context.WithoutCancel(ctx)
	key := o.Key(args...)

	if value, ok, err := o.lookup(ctx, key); err != nil || ok {
		return value, err
	}

	if !o.cfg.Options.WithLock {
		return o.populate(ctx, key, args)
	}

	return cache.RunExclusive(ctx, o.cache.locker, key, func(ctx context.Context) (any, error) {
		// A peer may have populated the key while this caller waited for the lock.
		if value, ok, err := o.lookup(ctx, key); err != nil || ok {
			return value, err
		}
		return o.populate(ctx, key, args)
	})
}

func (o *Operation) lookup(ctx context.Context, key string) (any, bool, error) {
	data, ok, err := o.cache.store.Get(ctx, key)
	if err != nil {
		o.storeFailed(ctx, key, "get", err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}

	var decoded any
	if o.cfg.Options.Raw {
		if !json.Valid(data) {
			return nil, false, cache.ErrCorruptEntry
		}
		decoded = json.RawMessage(data)
	} else {
		decoded, err = o.cache.codec.Decode(data, o.cfg.Options)
		if err != nil {
			return nil, false, err
		}
	}

	value, err := o.deserialize(decoded)
	if err != nil {
		return nil, false, err
	}
	o.cache.metrics.RecordHit(ctx, o.collaborator.Name(), o.method)
	return value, true, nil
}

func (o *Operation) populate(ctx context.Context, key string, args []any) (result any, err error) {
	name := o.collaborator.Name()
	o.cache.metrics.RecordMiss(ctx, name, o.method)
	start := o.cache.now()
	defer func() {
		o.cache.metrics.RecordPopulate(ctx, name, o.method, o.cache.now().Sub(start), err)
	}()

	result, err = o.collaborator.Invoke(ctx, o.method, args)
	if err != nil {
		return nil, err
	}
	if o.cfg.Transform != nil {
		if result, err = o.cfg.Transform(ctx, result); err != nil {
			return nil, err
		}
	}

	if !truthy(result) {
		if o.cfg.Options.Raw {
			return o.rawEmpty(result)
		}
		return result, nil
	}

	encoded, err := o.cache.codec.Encode(result, o.cfg.Options)
	if err != nil {
		return nil, err
	}

	ttl := o.cfg.Expiration.TTL(o.cache.now())
	if err := o.cache.store.Set(ctx, key, encoded, ttl); err != nil {
		o.storeFailed(ctx, key, "set", err)
	}

	if o.cfg.Options.Raw {
		return json.RawMessage(encoded), nil
	}
	return result, nil
}

// rawEmpty renders an uncached falsy result as JSON text.
func (o *Operation) rawEmpty(result any) (any, error) {
	if result == nil {
		return json.RawMessage("null"), nil
	}
	encoded, err := o.cache.codec.Encode(result, o.cfg.Options)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(encoded), nil
}

func (o *Operation) deserialize(decoded any) (any, error) {
	if o.cfg.Deserialize != nil {
		return o.cfg.Deserialize(decoded)
	}
	if o.cfg.Options.Raw {
		return decoded, nil
	}

	switch v := decoded.(type) {
	case []json.RawMessage:
		out := make([]any, len(v))
		for i, element := range v {
			if err := json.Unmarshal(element, &out[i]); err != nil {
				return nil, cache.ErrCorruptEntry
			}
		}
		return out, nil
	case json.RawMessage:
		var out any
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, cache.ErrCorruptEntry
		}
		return out, nil
	default:
		return decoded, nil
	}
}

func (o *Operation) storeFailed(ctx context.Context, key, op string, err error) {
	o.cache.metrics.RecordStoreError(ctx, o.collaborator.Name(), o.method, op)
	o.cache.logger.Warn("cache store "+op+" failed",
		"key", key,
		"collaborator", o.collaborator.Name(),
		"method", o.method,
		"error", err,
	)
}

// InvokeAs runs op and converts its result to T. Hits decoded into generic
// JSON values are converted through a JSON round trip.
func InvokeAs[T any](ctx context.Context, op *Operation, args ...any) (T, error) {
	var zero T
	value, err := op.Invoke(ctx, args...)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}
	if typed, ok := value.(T); ok {
		return typed, nil
	}

	data, err := asDocument(value)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, err
	}
	return out, nil
}
