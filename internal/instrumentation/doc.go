// Package instrumentation wires OpenTelemetry metrics with a Prometheus
// exporter. When disabled, every recorder is a no-op so call sites never
// need nil checks.
package instrumentation
