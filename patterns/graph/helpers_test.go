package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// --- Fakes ---

// countingPlanner returns a fixed decision or error and records every request.
type countingPlanner struct {
	mu       sync.Mutex
	decision Decision
	err      error
	requests []PlanRequest
}

func (planner *countingPlanner) Plan(_ context.Context, request PlanRequest) (Decision, error) {
	planner.mu.Lock()
	defer planner.mu.Unlock()
	planner.requests = append(planner.requests, request)
	if planner.err != nil {
		return Decision{}, planner.err
	}
	return planner.decision, nil
}

func (planner *countingPlanner) calls() int {
	planner.mu.Lock()
	defer planner.mu.Unlock()
	return len(planner.requests)
}

// recordingSummarizer returns a fixed report or error and records requests.
type recordingSummarizer struct {
	mu       sync.Mutex
	report   Report
	err      error
	requests []SummaryRequest
}

func (summarizer *recordingSummarizer) Summarize(_ context.Context, request SummaryRequest) (Report, error) {
	summarizer.mu.Lock()
	defer summarizer.mu.Unlock()
	summarizer.requests = append(summarizer.requests, request)
	if summarizer.err != nil {
		return Report{}, summarizer.err
	}
	return summarizer.report, nil
}

func (summarizer *recordingSummarizer) calls() int {
	summarizer.mu.Lock()
	defer summarizer.mu.Unlock()
	return len(summarizer.requests)
}

// staticEnricher adds fixed keys and counts its calls.
type staticEnricher struct {
	values map[string]any
	err    error
	count  atomic.Int32
}

func (enricher *staticEnricher) Enrich(_ context.Context, _ []ai.Message, incidentData map[string]any) (map[string]any, error) {
	enricher.count.Add(1)
	for key, value := range enricher.values {
		incidentData[key] = value
	}
	return incidentData, enricher.err
}

func succeedingWorker(summary string) Worker {
	return WorkerFunc(func(_ context.Context, _ View) (WorkerResult, error) {
		return WorkerResult{Status: StatusSuccess, Summary: summary}, nil
	})
}

func failingWorker(message string) Worker {
	return WorkerFunc(func(_ context.Context, _ View) (WorkerResult, error) {
		return WorkerResult{}, errors.New(message)
	})
}

// memoryStore is a CheckpointStore kept in a map.
type memoryStore struct {
	mu          sync.Mutex
	checkpoints map[string]Checkpoint
	saves       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{checkpoints: make(map[string]Checkpoint)}
}

func (store *memoryStore) Load(_ context.Context, threadID string) (*Checkpoint, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	checkpoint, found := store.checkpoints[threadID]
	if !found {
		return nil, ErrCheckpointNotFound
	}
	return &checkpoint, nil
}

func (store *memoryStore) Save(_ context.Context, checkpoint Checkpoint) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.checkpoints[checkpoint.ThreadID] = checkpoint
	store.saves++
	return nil
}

// recordingEmitter keeps every event in order of arrival.
type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (emitter *recordingEmitter) Emit(event Event) {
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	emitter.events = append(emitter.events, event)
}

func (emitter *recordingEmitter) snapshot() []Event {
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	return append([]Event(nil), emitter.events...)
}

// testObserver implements observability.Provider and records log messages and
// metric totals.
type testObserver struct {
	mu      sync.Mutex
	spans   []string
	logs    []string
	metrics map[string]float64
}

var _ observability.Provider = (*testObserver)(nil)

func newTestObserver() *testObserver {
	return &testObserver{metrics: make(map[string]float64)}
}

func (observer *testObserver) StartSpan(ctx context.Context, name string, _ ...observability.Attribute) (context.Context, observability.Span) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.spans = append(observer.spans, name)
	return ctx, testSpan{}
}

func (observer *testObserver) log(msg string) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.logs = append(observer.logs, msg)
}

func (observer *testObserver) Trace(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Debug(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Info(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Warn(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Error(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Counter(name string) observability.Counter {
	return &testMetric{name: name, observer: observer}
}

func (observer *testObserver) Histogram(name string) observability.Histogram {
	return &testMetric{name: name, observer: observer}
}

func (observer *testObserver) hasLog(msg string) bool {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	for _, logged := range observer.logs {
		if logged == msg {
			return true
		}
	}
	return false
}

func (observer *testObserver) metric(name string) float64 {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	return observer.metrics[name]
}

type testSpan struct{}

func (testSpan) End()                                            {}
func (testSpan) SetAttributes(_ ...observability.Attribute)      {}
func (testSpan) SetStatus(_ observability.StatusCode, _ string)  {}
func (testSpan) RecordError(_ error)                             {}
func (testSpan) AddEvent(_ string, _ ...observability.Attribute) {}

// testMetric sums counter values and keeps the observation count of histograms.
type testMetric struct {
	name     string
	observer *testObserver
}

func (metric *testMetric) Add(_ context.Context, value int64, _ ...observability.Attribute) {
	metric.observer.mu.Lock()
	defer metric.observer.mu.Unlock()
	metric.observer.metrics[metric.name] += float64(value)
}

func (metric *testMetric) Record(_ context.Context, _ float64, _ ...observability.Attribute) {
	metric.observer.mu.Lock()
	defer metric.observer.mu.Unlock()
	metric.observer.metrics[metric.name]++
}

// --- Helpers ---

func completeIncident() map[string]any {
	return map[string]any{KeySourceIP: "10.0.0.1", KeyDestinationIP: "10.0.0.2"}
}

func userMessages(content string) []ai.Message {
	return []ai.Message{{Role: ai.RoleUser, Content: content}}
}
