// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans and metrics are rendered as debug log records, which makes it the
// default provider for local runs and the CLI. Output format and level come
// from TRIAGE_LOG_FORMAT (compact, pretty, json) and TRIAGE_LOG_LEVEL unless
// set explicitly through options.
package slogobs
