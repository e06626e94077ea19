package observe

import (
	"context"
	"time"
)

// OpFunc is a lifecycle step wrapped by Middleware.
type OpFunc func(ctx context.Context) error

// Middleware wraps source lifecycle operations with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Run is safe for concurrent use.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that only runs the wrapped function.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Metrics exposes the metrics sink so sources can record reads and retries.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger exposes the underlying logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Run executes fn inside a span named for meta and op.
func (m *Middleware) Run(ctx context.Context, meta SourceMeta, op string, fn OpFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, meta, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordOperation(ctx, meta, op, duration, err)

	log := m.logger.WithSource(meta)
	fields := []Field{
		F("op", op),
		F("duration_ms", float64(duration.Milliseconds())),
	}
	if err != nil {
		fields = append(fields, Err(err))
		log.Warn(ctx, "source operation failed", fields...)
	} else {
		log.Debug(ctx, "source operation completed", fields...)
	}

	return err
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
