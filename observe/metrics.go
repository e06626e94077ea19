package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records stream source activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording is never blocking.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRead records n bytes handed to a consumer.
	RecordRead(ctx context.Context, meta SourceMeta, n int)

	// RecordReconnect records a (re)connection whose request started at offset.
	RecordReconnect(ctx context.Context, meta SourceMeta, offset int64)

	// RecordRetry records a retry of op scheduled after delay.
	RecordRetry(ctx context.Context, meta SourceMeta, op string, delay time.Duration)

	// RecordOperation records a completed lifecycle operation (open, probe, connect, close).
	RecordOperation(ctx context.Context, meta SourceMeta, op string, duration time.Duration, err error)
}

type metricsImpl struct {
	readBytes    metric.Int64Counter
	reconnects   metric.Int64Counter
	retries      metric.Int64Counter
	backoffHist  metric.Float64Histogram
	opCount      metric.Int64Counter
	opErrors     metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the source instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	if m.readBytes, err = meter.Int64Counter(
		"source.read.bytes",
		metric.WithDescription("Bytes delivered to consumers"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if m.reconnects, err = meter.Int64Counter(
		"source.reconnects",
		metric.WithDescription("Connections established, including the first"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}

	if m.retries, err = meter.Int64Counter(
		"source.retries",
		metric.WithDescription("Failed attempts that were retried"),
		metric.WithUnit("{retry}"),
	); err != nil {
		return nil, err
	}

	if m.backoffHist, err = meter.Float64Histogram(
		"source.backoff.duration_ms",
		metric.WithDescription("Backoff delay before a retry in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.opCount, err = meter.Int64Counter(
		"source.op.total",
		metric.WithDescription("Lifecycle operations performed"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.opErrors, err = meter.Int64Counter(
		"source.op.errors",
		metric.WithDescription("Lifecycle operations that failed"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.durationHist, err = meter.Float64Histogram(
		"source.op.duration_ms",
		metric.WithDescription("Lifecycle operation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordRead(ctx context.Context, meta SourceMeta, n int) {
	if n <= 0 {
		return
	}
	m.readBytes.Add(ctx, int64(n), metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordReconnect(ctx context.Context, meta SourceMeta, offset int64) {
	attrs := append(meta.attributes(), attribute.Bool("source.resumed", offset > 0))
	m.reconnects.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordRetry(ctx context.Context, meta SourceMeta, op string, delay time.Duration) {
	opt := metric.WithAttributes(append(meta.attributes(), attribute.String("source.op", op))...)
	m.retries.Add(ctx, 1, opt)
	m.backoffHist.Record(ctx, float64(delay.Milliseconds()), opt)
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta SourceMeta, op string, duration time.Duration, err error) {
	opt := metric.WithAttributes(append(meta.attributes(), attribute.String("source.op", op))...)

	m.opCount.Add(ctx, 1, opt)
	if err != nil {
		m.opErrors.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

type noopMetrics struct{}

func (noopMetrics) RecordRead(context.Context, SourceMeta, int)                    {}
func (noopMetrics) RecordReconnect(context.Context, SourceMeta, int64)             {}
func (noopMetrics) RecordRetry(context.Context, SourceMeta, string, time.Duration) {}
func (noopMetrics) RecordOperation(context.Context, SourceMeta, string, time.Duration, error) {
}
