package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pool's instruments. Counters are per-instance, not
// process globals, so pools stay testable in isolation.
type Metrics struct {
	processed metric.Int64Counter
	failed    metric.Int64Counter
	retried   metric.Int64Counter
	duration  metric.Float64Histogram

	processedTotal atomic.Int64
	failedTotal    atomic.Int64
	retriedTotal   atomic.Int64
}

// NewMetrics creates the pool's instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	processed, err := meter.Int64Counter("scribe.worker.segments.processed",
		metric.WithDescription("Segments transcribed successfully"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating segments.processed counter: %w", err)
	}
	failed, err := meter.Int64Counter("scribe.worker.segments.failed",
		metric.WithDescription("Segments that exhausted all decode tiers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating segments.failed counter: %w", err)
	}
	retried, err := meter.Int64Counter("scribe.worker.segments.retried",
		metric.WithDescription("Segment attempts that moved to the next tier"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating segments.retried counter: %w", err)
	}
	duration, err := meter.Float64Histogram("scribe.worker.segment.duration",
		metric.WithDescription("Wall time per segment in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating segment.duration histogram: %w", err)
	}
	return &Metrics{
		processed: processed,
		failed:    failed,
		retried:   retried,
		duration:  duration,
	}, nil
}

// NopMetrics returns metrics that only keep in-memory totals. Used in tests
// and when no meter provider is configured.
func NopMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordProcessed(ctx context.Context, seconds float64) {
	m.processedTotal.Add(1)
	if m.processed != nil {
		m.processed.Add(ctx, 1)
		m.duration.Record(ctx, seconds)
	}
}

func (m *Metrics) recordFailed(ctx context.Context, index int) {
	m.failedTotal.Add(1)
	if m.failed != nil {
		m.failed.Add(ctx, 1, metric.WithAttributes(attribute.Int("segment_index", index)))
	}
}

func (m *Metrics) recordRetried(ctx context.Context, attempt int) {
	m.retriedTotal.Add(1)
	if m.retried != nil {
		m.retried.Add(ctx, 1, metric.WithAttributes(attribute.Int("attempt", attempt)))
	}
}

// Stats is a point-in-time snapshot of the pool's counters.
type Stats struct {
	Processed int64 `json:"segments_processed"`
	Failed    int64 `json:"segments_failed"`
	Retried   int64 `json:"segments_retried"`
}

// Snapshot returns the current counter totals.
func (m *Metrics) Snapshot() Stats {
	return Stats{
		Processed: m.processedTotal.Load(),
		Failed:    m.failedTotal.Load(),
		Retried:   m.retriedTotal.Load(),
	}
}
