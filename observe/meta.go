package observe

import (
	"go.opentelemetry.io/otel/attribute"
)

// SourceMeta identifies a stream source for telemetry purposes.
type SourceMeta struct {
	Kind    string // Source kind: file, handle, remote, resilient, tee, concat, gzip (required)
	Locator string // Path or URL, credentials stripped (optional)
	Name    string // Caller supplied label (optional)
}

// SpanName returns the deterministic span name for an operation on this source.
// Format: source.<kind>.<op>
func (m SourceMeta) SpanName(op string) string {
	return "source." + m.Kind + "." + op
}

// Validate checks that the meta carries a kind.
func (m SourceMeta) Validate() error {
	if m.Kind == "" {
		return ErrMissingSourceKind
	}
	return nil
}

func (m SourceMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("source.kind", m.Kind),
	}
	if m.Locator != "" {
		attrs = append(attrs, attribute.String("source.locator", m.Locator))
	}
	if m.Name != "" {
		attrs = append(attrs, attribute.String("source.name", m.Name))
	}
	return attrs
}
