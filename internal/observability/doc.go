// Package observability provides structured logging, Prometheus metrics and
// OpenTelemetry tracing for the agent loop.
//
// Logs are written through a redacting slog wrapper so API keys and inline
// screenshots never reach the output. Metrics are registered on a
// caller-supplied registerer; a nil *Metrics or *Tracer turns the
// corresponding instrumentation off.
package observability
