package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used by NewMetrics when no meter is given.
const MeterName = "github.com/goliatone/go-model-cache"

// Metrics records cache lookups.
//
// Implementations must be safe for concurrent use and must not panic.
type Metrics interface {
	RecordHit(ctx context.Context, collaborator, method string)
	RecordMiss(ctx context.Context, collaborator, method string)
	RecordStoreError(ctx context.Context, collaborator, method, op string)
	RecordPopulate(ctx context.Context, collaborator, method string, duration time.Duration, err error)
}

type otelMetrics struct {
	hits     metric.Int64Counter
	misses   metric.Int64Counter
	errors   metric.Int64Counter
	populate metric.Float64Histogram
}

// NewMetrics creates OpenTelemetry instruments on meter.
// A nil meter uses the global provider, which is a no-op until one is installed.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	hits, err := meter.Int64Counter(
		"modelcache.lookup.hits",
		metric.WithDescription("Cached calls served from the store"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"modelcache.lookup.misses",
		metric.WithDescription("Cached calls that invoked the collaborator"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	storeErrors, err := meter.Int64Counter(
		"modelcache.store.errors",
		metric.WithDescription("Swallowed store failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	populate, err := meter.Float64Histogram(
		"modelcache.populate.duration_ms",
		metric.WithDescription("Time spent computing and storing a missed entry"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{hits: hits, misses: misses, errors: storeErrors, populate: populate}, nil
}

func callAttrs(collaborator, method string, extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := append([]attribute.KeyValue{
		attribute.String("cache.collaborator", collaborator),
		attribute.String("cache.method", method),
	}, extra...)
	return metric.WithAttributes(attrs...)
}

func (m *otelMetrics) RecordHit(ctx context.Context, collaborator, method string) {
	m.hits.Add(ctx, 1, callAttrs(collaborator, method))
}

func (m *otelMetrics) RecordMiss(ctx context.Context, collaborator, method string) {
	m.misses.Add(ctx, 1, callAttrs(collaborator, method))
}

func (m *otelMetrics) RecordStoreError(ctx context.Context, collaborator, method, op string) {
	m.errors.Add(ctx, 1, callAttrs(collaborator, method, attribute.String("cache.op", op)))
}

func (m *otelMetrics) RecordPopulate(ctx context.Context, collaborator, method string, duration time.Duration, err error) {
	m.populate.Record(ctx, float64(duration.Milliseconds()),
		callAttrs(collaborator, method, attribute.Bool("cache.error", err != nil)))
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordHit(context.Context, string, string) {}
func (NoopMetrics) RecordMiss(context.Context, string, string) {}
func (NoopMetrics) RecordStoreError(context.Context, string, string, string) {}
func (NoopMetrics) RecordPopulate(context.Context, string, string, time.Duration, error) {}
