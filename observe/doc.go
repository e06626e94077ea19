// Package observe provides the diagnostic sink and telemetry used by stream
// sources.
//
// Sources never reach for a global logger. Each one is handed a Logger (and
// optionally Metrics and a Tracer) at construction; a nil Logger is replaced
// by a no-op. An Observer wires all three from a single Config, exporting
// through stdout, OTLP or Prometheus.
package observe
