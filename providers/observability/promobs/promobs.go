// Package promobs implements the metrics half of observability.Provider with
// Prometheus collectors. Tracing and logging are delegated to another Provider.
//
// Metric names are converted to Prometheus form (dots become underscores) and
// attribute keys become label names. The label set of a metric is fixed by its
// first observation: later observations fill missing labels with "" and drop
// unknown ones.
package promobs

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// Observer serves metrics from a Prometheus registerer.
type Observer struct {
	observability.Tracer
	observability.Logger

	registerer prometheus.Registerer
	namespace  string
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*counterVec
	histograms map[string]*histogramVec
}

var _ observability.Provider = (*Observer)(nil)

// Option configures an Observer.
type Option func(*Observer)

// WithNamespace prefixes every metric name.
func WithNamespace(namespace string) Option {
	return func(o *Observer) {
		o.namespace = namespace
	}
}

// WithBuckets sets histogram buckets. Defaults to prometheus.DefBuckets.
func WithBuckets(buckets []float64) Option {
	return func(o *Observer) {
		o.buckets = buckets
	}
}

// New creates an Observer registering collectors in registerer and
// delegating spans and logs to inner.
func New(inner observability.Provider, registerer prometheus.Registerer, opts ...Option) *Observer {
	observer := &Observer{
		Tracer:     inner,
		Logger:     inner,
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		counters:   make(map[string]*counterVec),
		histograms: make(map[string]*histogramVec),
	}
	for _, opt := range opts {
		opt(observer)
	}
	return observer
}

// Counter returns a counter bound to a lazily registered CounterVec.
func (o *Observer) Counter(name string) observability.Counter {
	return &lazyCounter{observer: o, name: name}
}

// Histogram returns a histogram bound to a lazily registered HistogramVec.
func (o *Observer) Histogram(name string) observability.Histogram {
	return &lazyHistogram{observer: o, name: name}
}

type counterVec struct {
	vec    *prometheus.CounterVec
	labels []string
}

type histogramVec struct {
	vec    *prometheus.HistogramVec
	labels []string
}

type lazyCounter struct {
	observer *Observer
	name     string
}

func (c *lazyCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	vec, err := c.observer.counterFor(c.name, attrs)
	if err != nil {
		c.observer.Warn(ctx, "failed to register prometheus counter", observability.String("metric", c.name), observability.Error(err))
		return
	}
	vec.vec.WithLabelValues(labelValues(vec.labels, attrs)...).Add(float64(value))
}

type lazyHistogram struct {
	observer *Observer
	name     string
}

func (h *lazyHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	vec, err := h.observer.histogramFor(h.name, attrs)
	if err != nil {
		h.observer.Warn(ctx, "failed to register prometheus histogram", observability.String("metric", h.name), observability.Error(err))
		return
	}
	vec.vec.WithLabelValues(labelValues(vec.labels, attrs)...).Observe(value)
}

func (o *Observer) counterFor(name string, attrs []observability.Attribute) (*counterVec, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, found := o.counters[name]; found {
		return existing, nil
	}

	labels := labelNames(attrs)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: o.namespace,
		Name:      MetricName(name) + "_total",
		Help:      fmt.Sprintf("Counter %s.", name),
	}, labels)
	if err := o.registerer.Register(vec); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if !asAlreadyRegistered(err, &alreadyRegistered) {
			return nil, err
		}
		existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}

	created := &counterVec{vec: vec, labels: labels}
	o.counters[name] = created
	return created, nil
}

func (o *Observer) histogramFor(name string, attrs []observability.Attribute) (*histogramVec, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, found := o.histograms[name]; found {
		return existing, nil
	}

	labels := labelNames(attrs)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: o.namespace,
		Name:      MetricName(name) + "_seconds",
		Help:      fmt.Sprintf("Histogram %s.", name),
		Buckets:   o.buckets,
	}, labels)
	if err := o.registerer.Register(vec); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if !asAlreadyRegistered(err, &alreadyRegistered) {
			return nil, err
		}
		existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}

	created := &histogramVec{vec: vec, labels: labels}
	o.histograms[name] = created
	return created, nil
}

func asAlreadyRegistered(err error, target *prometheus.AlreadyRegisteredError) bool {
	alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError)
	if ok {
		*target = alreadyRegistered
	}
	return ok
}

// MetricName converts a dotted name into a valid Prometheus metric name.
func MetricName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == ':' {
			return r
		}
		return '_'
	}, name)
	if sanitized != "" && unicode.IsDigit(rune(sanitized[0])) {
		sanitized = "_" + sanitized
	}
	return sanitized
}

func labelNames(attrs []observability.Attribute) []string {
	names := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		name := MetricName(attr.Key)
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func labelValues(labels []string, attrs []observability.Attribute) []string {
	values := make([]string, len(labels))
	for _, attr := range attrs {
		if index := slices.Index(labels, MetricName(attr.Key)); index != -1 {
			values[index] = fmt.Sprint(attr.Value)
		}
	}
	return values
}
