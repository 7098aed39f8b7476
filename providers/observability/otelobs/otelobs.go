// Package otelobs implements observability.Provider with OpenTelemetry.
//
// Spans go to the configured trace.TracerProvider and counters and histograms
// to a metric.MeterProvider. OpenTelemetry has no stable logging bridge in the
// API module, so log calls are delegated to another Provider (usually slogobs).
package otelobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

const instrumentationName = "github.com/antagligen/agent-triage-ralph-antigravity"

// Observer bridges observability.Provider to OpenTelemetry.
type Observer struct {
	observability.Logger

	tracer trace.Tracer
	meter  metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

var _ observability.Provider = (*Observer)(nil)

// Option configures an Observer.
type Option func(*Observer)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observer) {
		o.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observer) {
		o.meter = provider.Meter(instrumentationName)
	}
}

// New creates an Observer that logs through logger. Without options the
// global otel providers are used.
func New(logger observability.Logger, opts ...Option) *Observer {
	observer := &Observer{
		Logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
	for _, opt := range opts {
		opt(observer)
	}
	return observer
}

// StartSpan starts an OpenTelemetry span. The wrapped span is attached to the
// returned context so utilities reading observability.SpanFromContext see it.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	ctx, otelSpan := o.tracer.Start(ctx, name, trace.WithAttributes(convertAttributes(attrs)...))
	wrapped := &span{span: otelSpan}
	return observability.ContextWithSpan(ctx, wrapped), wrapped
}

type span struct {
	span trace.Span
}

func (s *span) End() { s.span.End() }

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.span.SetAttributes(convertAttributes(attrs)...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	switch code {
	case observability.StatusOK:
		s.span.SetStatus(codes.Ok, description)
	case observability.StatusError:
		s.span.SetStatus(codes.Error, description)
	default:
		s.span.SetStatus(codes.Unset, description)
	}
}

func (s *span) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(convertAttributes(attrs)...))
}

// Counter returns an Int64Counter instrument, created once per name.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()

	instrument, found := o.counters[name]
	if !found {
		var err error
		instrument, err = o.meter.Int64Counter(name)
		if err != nil {
			o.Warn(context.Background(), "failed to create otel counter", observability.String("metric", name), observability.Error(err))
			return noopCounter{}
		}
		o.counters[name] = instrument
	}
	return counter{instrument: instrument}
}

// Histogram returns a Float64Histogram instrument, created once per name.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()

	instrument, found := o.histograms[name]
	if !found {
		var err error
		instrument, err = o.meter.Float64Histogram(name, metric.WithUnit("s"))
		if err != nil {
			o.Warn(context.Background(), "failed to create otel histogram", observability.String("metric", name), observability.Error(err))
			return noopHistogram{}
		}
		o.histograms[name] = instrument
	}
	return histogram{instrument: instrument}
}

type counter struct {
	instrument metric.Int64Counter
}

func (c counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.instrument.Add(ctx, value, metric.WithAttributes(convertAttributes(attrs)...))
}

type histogram struct {
	instrument metric.Float64Histogram
}

func (h histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.instrument.Record(ctx, value, metric.WithAttributes(convertAttributes(attrs)...))
}

type noopCounter struct{}

func (noopCounter) Add(context.Context, int64, ...observability.Attribute) {}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...observability.Attribute) {}

func convertAttributes(attrs []observability.Attribute) []attribute.KeyValue {
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		converted = append(converted, convertAttribute(attr))
	}
	return converted
}

func convertAttribute(attr observability.Attribute) attribute.KeyValue {
	switch value := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, value)
	case []string:
		return attribute.StringSlice(attr.Key, value)
	case int:
		return attribute.Int(attr.Key, value)
	case int64:
		return attribute.Int64(attr.Key, value)
	case float64:
		return attribute.Float64(attr.Key, value)
	case bool:
		return attribute.Bool(attr.Key, value)
	case time.Duration:
		return attribute.String(attr.Key, value.String())
	default:
		return attribute.String(attr.Key, fmt.Sprint(value))
	}
}
