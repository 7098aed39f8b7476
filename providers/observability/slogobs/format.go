package slogobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format is the rendering used for log records.
type Format string

const (
	// FormatCompact renders one logfmt line per record.
	FormatCompact Format = "compact"
	// FormatPretty renders the message on one line and each attribute on its own indented line.
	FormatPretty Format = "pretty"
	// FormatJSON renders one JSON object per record.
	FormatJSON Format = "json"
)

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

// ParseFormat parses a format name. Unknown names fall back to FormatCompact.
func ParseFormat(s string) Format {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads TRIAGE_LOG_FORMAT, then LOG_FORMAT.
func GetFormatFromEnv() Format {
	if format := os.Getenv("TRIAGE_LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	return FormatCompact
}

// ParseLogLevel parses trace, debug, info, warn/warning and error. Unknown
// values return slog.LevelInfo.
func ParseLogLevel(s string) slog.Level {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogLevelFromEnv reads TRIAGE_LOG_LEVEL, then LOG_LEVEL.
func GetLogLevelFromEnv() slog.Level {
	if level := os.Getenv("TRIAGE_LOG_LEVEL"); level != "" {
		return ParseLogLevel(level)
	}
	return ParseLogLevel(os.Getenv("LOG_LEVEL"))
}

// newHandler builds the slog.Handler for format.
func newHandler(format Format, level slog.Level, output io.Writer) slog.Handler {
	handlerOptions := &slog.HandlerOptions{Level: level}
	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(output, handlerOptions)
	case FormatPretty:
		return &prettyHandler{level: level, output: output, mu: &sync.Mutex{}}
	default:
		return slog.NewTextHandler(output, handlerOptions)
	}
}

// prettyHandler writes human-oriented multi-line records.
type prettyHandler struct {
	level  slog.Level
	output io.Writer
	attrs  []slog.Attr
	group  string
	mu     *sync.Mutex
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s %-5s %s\n", record.Time.Format("15:04:05.000"), levelName(record.Level), record.Message)

	writeAttr := func(attr slog.Attr) {
		key := attr.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&builder, "    %s: %v\n", key, attr.Value.Resolve().Any())
	}
	for _, attr := range h.attrs {
		writeAttr(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(attr)
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, builder.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func levelName(level slog.Level) string {
	if level < slog.LevelDebug {
		return "TRACE"
	}
	return level.String()
}
