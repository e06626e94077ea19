package observe

import (
	"context"

	"github.com/rs/zerolog"
)

// zerologLogger adapts a zerolog.Logger to Logger. Redaction rules match the
// JSON logger.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps zl.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) WithSource(meta SourceMeta) Logger {
	c := l.zl.With().Str("source.kind", meta.Kind)
	if meta.Locator != "" {
		c = c.Str("source.locator", meta.Locator)
	}
	if meta.Name != "" {
		c = c.Str("source.name", meta.Name)
	}
	return &zerologLogger{zl: c.Logger()}
}

func (l *zerologLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.emit(l.from(ctx).Info(), msg, fields)
}

func (l *zerologLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.emit(l.from(ctx).Warn(), msg, fields)
}

func (l *zerologLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.emit(l.from(ctx).Error(), msg, fields)
}

func (l *zerologLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.emit(l.from(ctx).Debug(), msg, fields)
}

func (l *zerologLogger) from(_ context.Context) *zerolog.Logger {
	return &l.zl
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		switch v := redactValue(f.Key, f.Value).(type) {
		case error:
			ev = ev.AnErr(f.Key, v)
		case string:
			ev = ev.Str(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}

var _ Logger = (*zerologLogger)(nil)
