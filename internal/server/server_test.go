package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/app"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/config"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/sse"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability/slogobs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRunner replays a fixed event sequence and records each request.
type fakeRunner struct {
	mu       sync.Mutex
	requests []app.Request
	events   []graph.Event
	state    graph.State
	err      error
}

func (r *fakeRunner) Run(_ context.Context, request app.Request, emitter graph.Emitter) (graph.State, error) {
	r.mu.Lock()
	r.requests = append(r.requests, request)
	r.mu.Unlock()

	for _, event := range r.events {
		emitter.Emit(event)
	}
	return r.state, r.err
}

func (r *fakeRunner) lastRequest() app.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[len(r.requests)-1]
}

func runEvents() []graph.Event {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []graph.Event{
		{Type: graph.EventNodeStart, Node: graph.NodeRouter, Timestamp: now},
		{Type: graph.EventRouting, Node: graph.NodeRouter, Decision: &graph.Decision{NextSteps: []string{"aci"}, Reasoning: "fabric"}, Timestamp: now},
		{Type: graph.EventNodeToolCall, Node: "aci", Tool: "ping", Input: `{"target":"10.0.0.2"}`, Timestamp: now},
		{Type: graph.EventReport, Node: graph.NodeAggregator, Report: &graph.Report{RootCause: "Link down", Details: "eth1/1", RecommendedAction: "replace optic"}, Timestamp: now},
	}
}

func testSummary() config.Summary {
	return config.Summary{OrchestratorModel: "gpt-4o", SubAgentsCount: 2, SubAgents: []string{"aci", "infoblox"}}
}

func postChat(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestHealth(t *testing.T) {
	s := New(&fakeRunner{}, testSummary())

	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok","service":"ai-troubleshoot-agent"}`, recorder.Body.String())
}

func TestConfig(t *testing.T) {
	s := New(&fakeRunner{}, testSummary())

	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/config", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"orchestrator_model":"gpt-4o","sub_agents_count":2,"sub_agents":["aci","infoblox"]}`, recorder.Body.String())
}

func TestChatStreamsRunEvents(t *testing.T) {
	runner := &fakeRunner{events: runEvents()}
	s := New(runner, testSummary())

	recorder := postChat(t, s.Handler(), ChatRequest{
		Message:      "10.0.0.1 cannot reach 10.0.0.2",
		ThreadID:     "thread-7",
		ModelName:    "gemini-2.0-flash",
		IncidentData: map[string]any{"source_ip": "10.0.0.1"},
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, sse.ContentType, recorder.Header().Get("Content-Type"))
	assert.Equal(t, "thread-7", recorder.Header().Get(ThreadIDHeader))

	frames, err := sse.NewDecoder(recorder.Body).All()
	require.NoError(t, err)
	require.Len(t, frames, 4)

	var names []string
	for _, frame := range frames {
		names = append(names, frame.Event)
	}
	assert.Equal(t, []string{sse.EventThought, sse.EventRouting, sse.EventThought, sse.EventTriageReport}, names)

	routing, err := frames[1].Routing()
	require.NoError(t, err)
	assert.Equal(t, []string{"aci"}, routing.Routing)

	toolCall, err := frames[2].Thought()
	require.NoError(t, err)
	assert.Equal(t, sse.StatusToolStart, toolCall.Status)
	assert.Equal(t, "ping", toolCall.Tool)

	report, err := frames[3].Report()
	require.NoError(t, err)
	assert.Equal(t, "Link down", report.RootCause)

	request := runner.lastRequest()
	assert.Equal(t, "thread-7", request.ThreadID)
	assert.Equal(t, "gemini-2.0-flash", request.ModelName)
	assert.Equal(t, "10.0.0.1", request.IncidentData["source_ip"])
}

func TestChatAlwaysEndsWithReport(t *testing.T) {
	report := &graph.Report{RootCause: "Link down", Details: "eth1/1", RecommendedAction: "replace optic"}
	var events []graph.Event
	for i := 0; i < 200; i++ {
		events = append(events, graph.Event{Type: graph.EventNodeToolCall, Node: "aci", Tool: "ping", Timestamp: time.Now()})
	}
	events = append(events, graph.Event{Type: graph.EventReport, Node: graph.NodeAggregator, Report: report, Timestamp: time.Now()})
	runner := &fakeRunner{events: events, state: graph.State{Report: report}}
	s := New(runner, testSummary(), WithEventBuffer(1))

	recorder := postChat(t, s.Handler(), ChatRequest{Message: "10.0.0.1 cannot reach 10.0.0.2"})

	frames, err := sse.NewDecoder(recorder.Body).All()
	require.NoError(t, err)
	require.NotEmpty(t, frames)

	reports := 0
	for _, frame := range frames {
		if frame.Event == sse.EventTriageReport {
			reports++
		}
	}
	assert.Equal(t, 1, reports)

	last := frames[len(frames)-1]
	require.Equal(t, sse.EventTriageReport, last.Event)
	payload, err := last.Report()
	require.NoError(t, err)
	assert.Equal(t, "Link down", payload.RootCause)
	assert.Equal(t, "replace optic", payload.RecommendedAction)
}

func TestChatGeneratesThreadID(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, testSummary())

	recorder := postChat(t, s.Handler(), ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, recorder.Code)

	threadID := recorder.Header().Get(ThreadIDHeader)
	_, err := uuid.Parse(threadID)
	assert.NoError(t, err)
	assert.Equal(t, threadID, runner.lastRequest().ThreadID)
}

func TestChatRunFailureEndsWithErrorFrame(t *testing.T) {
	runner := &fakeRunner{events: runEvents()[:2], err: errors.New("graph: cancellation requested")}
	s := New(runner, testSummary())

	recorder := postChat(t, s.Handler(), ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, recorder.Code)

	frames, err := sse.NewDecoder(recorder.Body).All()
	require.NoError(t, err)
	require.Len(t, frames, 3)

	last := frames[len(frames)-1]
	assert.Equal(t, sse.EventError, last.Event)
	failure, err := last.Failure()
	require.NoError(t, err)
	assert.Equal(t, "graph: cancellation requested", failure.Error)
}

func TestChatRejectsBadRequests(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"message": `},
		{name: "missing message", body: `{"thread_id": "t"}`},
		{name: "blank message", body: `{"message": "   "}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			runner := &fakeRunner{}
			s := New(runner, testSummary())

			request := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(testCase.body))
			request.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()
			s.Handler().ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Contains(t, recorder.Body.String(), "error")
			assert.Empty(t, runner.requests)
		})
	}
}

func TestChatRateLimit(t *testing.T) {
	s := New(&fakeRunner{}, testSummary(), WithRateLimit(0.001, 1))

	first := postChat(t, s.Handler(), ChatRequest{Message: "one"})
	second := postChat(t, s.Handler(), ChatRequest{Message: "two"})

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, second.Body.String())
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "triage_test_total", Help: "test counter"})
	registry.MustRegister(counter)
	counter.Inc()

	s := New(&fakeRunner{}, testSummary(), WithGatherer(registry))

	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "triage_test_total 1")
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	s := New(&fakeRunner{}, testSummary())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRequestsAreObserved(t *testing.T) {
	var logs bytes.Buffer
	observer := slogobs.New(slogobs.WithOutput(&logs), slogobs.WithLevel(slog.LevelDebug))
	s := New(&fakeRunner{err: errors.New("boom")}, testSummary(), WithObserver(observer))

	postChat(t, s.Handler(), ChatRequest{Message: "hello", ThreadID: "thread-9"})

	output := logs.String()
	assert.Contains(t, output, "http request")
	assert.Contains(t, output, "/chat")
	assert.Contains(t, output, "triage run failed")
	assert.Contains(t, output, "thread-9")
}
