// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics and structured logging across the triage engine, the
// LLM clients and the HTTP server.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics]
// and [Logger] into a single injectable dependency. Components take a Provider
// through their options and treat a nil Provider as "observability disabled".
// An active Provider and [Span] travel through a [context.Context] via
// [ContextWithObserver] and [ContextWithSpan].
//
// Implementations live in subpackages: slogobs (log/slog), otelobs
// (OpenTelemetry) and promobs (Prometheus metrics).
package observability
