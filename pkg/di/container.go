package di

import (
	"context"
	"errors"
	"log/slog"

	repository "github.com/goliatone/go-repository-bun"
	"go.opentelemetry.io/otel/metric"

	"github.com/goliatone/go-model-cache/cache"
	"github.com/goliatone/go-model-cache/modelcache"
	"github.com/goliatone/go-model-cache/repositorycache"
)

// Container wires the cache backend, metrics and the model cache from a single
// configuration, and provides factory methods for cached repositories.
type Container struct {
	config  cache.Config
	backend *cache.Backend
	cache   *modelcache.Cache
	metrics cache.Metrics
	logger  *slog.Logger
	meter   metric.Meter
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMeter sets the OpenTelemetry meter used for cache metrics.
func WithMeter(meter metric.Meter) Option {
	return func(c *Container) { c.meter = meter }
}

// NewContainer creates a container from config. The backend is Redis when a
// URL is configured and the in-process store otherwise.
func NewContainer(ctx context.Context, config cache.Config, opts ...Option) (*Container, error) {
	c := &Container{config: config, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	policy, err := modelcache.PolicyFor(config.Invalidation)
	if err != nil {
		return nil, err
	}

	metrics, err := cache.NewMetrics(c.meter)
	if err != nil {
		return nil, err
	}

	backend, err := cache.NewBackend(ctx, config, c.logger)
	if err != nil {
		return nil, err
	}

	c.backend = backend
	c.metrics = metrics
	c.cache = modelcache.New(backend.Store, backend.Locker,
		modelcache.WithLogger(c.logger),
		modelcache.WithMetrics(metrics),
		modelcache.WithInvalidation(policy),
		modelcache.WithDefaultExpiration(cache.ExpireIn(config.DefaultTTL)),
	)
	return c, nil
}

// NewContainerWithDefaults creates a container over the in-process backend.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, cache.DefaultConfig(), opts...)
}

// Cache returns the shared model cache.
func (c *Container) Cache() *modelcache.Cache {
	return c.cache
}

// Store returns the store behind the cache.
func (c *Container) Store() cache.Store {
	return c.backend.Store
}

// Metrics returns the recorder used by the cache.
func (c *Container) Metrics() cache.Metrics {
	return c.metrics
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Healthcheck reports whether the backend is reachable.
func (c *Container) Healthcheck(ctx context.Context) error {
	if err := c.backend.Ping(ctx); err != nil {
		return errors.Join(errors.New("di: cache backend unhealthy"), err)
	}
	return nil
}

// Close releases the backend connection.
func (c *Container) Close() error {
	return c.backend.Close()
}

// NewCachedRepository wraps base with the container's cache.
//
// Writes follow the configured flush or prefix invalidation. With ttl, the
// repository keeps its own prefix default so writes never serve stale reads.
// Options passed by the caller take precedence.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	defaults := []repositorycache.Option{
		repositorycache.WithLogger(container.logger),
		repositorycache.WithExpiration(cache.ExpireIn(container.config.DefaultTTL)),
	}
	if container.config.Invalidation != cache.InvalidateTTLOnly {
		defaults = append(defaults, repositorycache.WithInvalidation(container.cache.Policy()))
	}
	opts = append(defaults, opts...)
	return repositorycache.New(base, container.cache, opts...)
}
