package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the site core's operational signals.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic; recording is best-effort.
type Metrics interface {
	// RecordCacheLookup records one cache lookup and its outcome.
	RecordCacheLookup(ctx context.Context, category string, hit bool)

	// RecordGeneration records one artifact generation with duration
	// and error status.
	RecordGeneration(ctx context.Context, generationType string, duration time.Duration, err error)

	// RecordSweep records one expiry sweep and the removed count.
	RecordSweep(ctx context.Context, removed int)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	lookupCount  metric.Int64Counter
	hitCount     metric.Int64Counter
	genCount     metric.Int64Counter
	genErrors    metric.Int64Counter
	genDuration  metric.Float64Histogram
	sweepRemoved metric.Int64Counter
}

// NewMetrics creates a Metrics instance over the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookupCount, err := meter.Int64Counter(
		"site.cache.lookups",
		metric.WithDescription("Total cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	hitCount, err := meter.Int64Counter(
		"site.cache.hits",
		metric.WithDescription("Cache lookups served from the store"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	genCount, err := meter.Int64Counter(
		"site.generation.total",
		metric.WithDescription("Total artifact generations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	genErrors, err := meter.Int64Counter(
		"site.generation.errors",
		metric.WithDescription("Failed artifact generations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	genDuration, err := meter.Float64Histogram(
		"site.generation.duration_ms",
		metric.WithDescription("Artifact generation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sweepRemoved, err := meter.Int64Counter(
		"site.cache.sweep_removed",
		metric.WithDescription("Entries removed by expiry sweeps"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookupCount:  lookupCount,
		hitCount:     hitCount,
		genCount:     genCount,
		genErrors:    genErrors,
		genDuration:  genDuration,
		sweepRemoved: sweepRemoved,
	}, nil
}

// RecordCacheLookup records one cache lookup and its outcome.
func (m *metricsImpl) RecordCacheLookup(ctx context.Context, category string, hit bool) {
	opt := metric.WithAttributes(attribute.String("cache.category", category))
	m.lookupCount.Add(ctx, 1, opt)
	if hit {
		m.hitCount.Add(ctx, 1, opt)
	}
}

// RecordGeneration records one artifact generation.
func (m *metricsImpl) RecordGeneration(ctx context.Context, generationType string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("generation.type", generationType))
	m.genCount.Add(ctx, 1, opt)
	if err != nil {
		m.genErrors.Add(ctx, 1, opt)
	}
	m.genDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordSweep records one expiry sweep.
func (m *metricsImpl) RecordSweep(ctx context.Context, removed int) {
	m.sweepRemoved.Add(ctx, int64(removed))
}

// noopMetrics discards all recordings.
type noopMetrics struct{}

func (noopMetrics) RecordCacheLookup(context.Context, string, bool)                {}
func (noopMetrics) RecordGeneration(context.Context, string, time.Duration, error) {}
func (noopMetrics) RecordSweep(context.Context, int)                               {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

// Ensure implementations satisfy Metrics
var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = noopMetrics{}
)
