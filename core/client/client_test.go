package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// fakeProvider records requests and replies from a queue.
type fakeProvider struct {
	mu        sync.Mutex
	requests  []ai.ChatRequest
	responses []*ai.ChatResponse
	err       error
}

func (f *fakeProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &ai.ChatResponse{Content: "ok"}, nil
	}
	response := f.responses[0]
	f.responses = f.responses[1:]
	return response, nil
}

func (f *fakeProvider) IsStopMessage(message *ai.ChatResponse) bool { return len(message.ToolCalls) == 0 }
func (f *fakeProvider) Name() string                                { return "fake" }
func (f *fakeProvider) WithAPIKey(string) ai.Provider               { return f }
func (f *fakeProvider) WithBaseURL(string) ai.Provider              { return f }
func (f *fakeProvider) WithHttpClient(*http.Client) ai.Provider     { return f }

func TestNewRejectsNilProvider(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestSendAppliesClientDefaults(t *testing.T) {
	provider := &fakeProvider{}
	c, err := New(provider,
		WithSystemPrompt("You are the Request Orchestrator."),
		WithDefaultModel("gpt-4o"),
		WithTemperature(0),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	history := []ai.Message{{Role: ai.RoleUser, Content: "first"}, {Role: ai.RoleAssistant, Content: "second"}}
	if _, err := c.Send(context.Background(), history); err != nil {
		t.Fatalf("Send: %v", err)
	}

	request := provider.requests[0]
	if request.SystemPrompt != "You are the Request Orchestrator." {
		t.Errorf("system prompt = %q", request.SystemPrompt)
	}
	if request.Model != "gpt-4o" {
		t.Errorf("model = %q", request.Model)
	}
	if request.GenerationConfig == nil || request.GenerationConfig.Temperature == nil || *request.GenerationConfig.Temperature != 0 {
		t.Errorf("temperature not forwarded: %+v", request.GenerationConfig)
	}
	if len(request.Messages) != 2 {
		t.Errorf("history not forwarded: %+v", request.Messages)
	}
	if request.ResponseFormat != nil {
		t.Error("plain client must not request structured output")
	}
}

func TestSendMessageOptionsOverrideDefaults(t *testing.T) {
	provider := &fakeProvider{}
	c, _ := New(provider, WithDefaultModel("gpt-4o"), WithSystemPrompt("default"))

	_, err := c.SendMessage(context.Background(), "hello",
		WithModel("gemini-2.0-flash"),
		WithTools(ai.ToolDescription{Name: "ping"}),
		WithInstructions("Current Incident Data: {}"),
	)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	request := provider.requests[0]
	if request.Model != "gemini-2.0-flash" {
		t.Errorf("model override ignored: %q", request.Model)
	}
	if len(request.Tools) != 1 || request.Tools[0].Name != "ping" {
		t.Errorf("tools not forwarded: %+v", request.Tools)
	}
	if request.SystemPrompt != "Current Incident Data: {}" {
		t.Errorf("instructions override ignored: %q", request.SystemPrompt)
	}
}

func TestSendMessageRejectsEmptyPrompt(t *testing.T) {
	c, _ := New(&fakeProvider{})
	if _, err := c.SendMessage(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	record := func(name string) Middleware {
		return func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				order = append(order, name+":in")
				response, err := next(ctx, request)
				order = append(order, name+":out")
				return response, err
			}
		}
	}

	c, _ := New(&fakeProvider{}, WithMiddleware(record("first"), record("second")))
	if _, err := c.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	got := strings.Join(order, ",")
	want := "first:in,second:in,second:out,first:out"
	if got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

// recordingObserver counts what the observability middleware emits.
type recordingObserver struct {
	mu       sync.Mutex
	spans    []*recordingSpan
	counters map[string][]observability.Attribute
	errors   int
}

type recordingSpan struct {
	name   string
	status observability.StatusCode
	ended  bool
}

func (s *recordingSpan) End()                                              { s.ended = true }
func (s *recordingSpan) SetAttributes(...observability.Attribute)          {}
func (s *recordingSpan) SetStatus(code observability.StatusCode, _ string) { s.status = code }
func (s *recordingSpan) RecordError(error)                                 {}
func (s *recordingSpan) AddEvent(string, ...observability.Attribute)       {}

type recordingCounter struct {
	observer *recordingObserver
	name     string
}

func (c recordingCounter) Add(_ context.Context, _ int64, attrs ...observability.Attribute) {
	c.observer.mu.Lock()
	defer c.observer.mu.Unlock()
	c.observer.counters[c.name] = attrs
}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...observability.Attribute) {}

func (o *recordingObserver) StartSpan(ctx context.Context, name string, _ ...observability.Attribute) (context.Context, observability.Span) {
	span := &recordingSpan{name: name}
	o.spans = append(o.spans, span)
	return ctx, span
}
func (o *recordingObserver) Counter(name string) observability.Counter {
	return recordingCounter{observer: o, name: name}
}
func (o *recordingObserver) Histogram(string) observability.Histogram                 { return noopHistogram{} }
func (o *recordingObserver) Trace(context.Context, string, ...observability.Attribute) {}
func (o *recordingObserver) Debug(context.Context, string, ...observability.Attribute) {}
func (o *recordingObserver) Info(context.Context, string, ...observability.Attribute)  {}
func (o *recordingObserver) Warn(context.Context, string, ...observability.Attribute)  {}
func (o *recordingObserver) Error(context.Context, string, ...observability.Attribute) {
	o.errors++
}

func statusOf(attrs []observability.Attribute) string {
	for _, attr := range attrs {
		if attr.Key == observability.AttrStatus {
			return attr.Value.(string)
		}
	}
	return ""
}

func TestObservabilityMiddleware(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus string
		wantSpan   observability.StatusCode
		wantErrors int
	}{
		{name: "success", wantStatus: "success", wantSpan: observability.StatusOK},
		{name: "failure", err: errors.New("non-2xx status 401: bad key"), wantStatus: "error", wantSpan: observability.StatusError, wantErrors: 1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			observer := &recordingObserver{counters: map[string][]observability.Attribute{}}
			c, _ := New(&fakeProvider{err: testCase.err}, WithObserver(observer))

			_, err := c.SendMessage(context.Background(), "hi")
			if (err != nil) != (testCase.err != nil) {
				t.Fatalf("unexpected error state: %v", err)
			}

			if len(observer.spans) != 1 || !observer.spans[0].ended {
				t.Fatalf("expected one ended span, got %+v", observer.spans)
			}
			if observer.spans[0].status != testCase.wantSpan {
				t.Errorf("span status = %v, want %v", observer.spans[0].status, testCase.wantSpan)
			}
			if got := statusOf(observer.counters[observability.MetricLLMRequestCount]); got != testCase.wantStatus {
				t.Errorf("counter status = %q, want %q", got, testCase.wantStatus)
			}
			if observer.errors != testCase.wantErrors {
				t.Errorf("error logs = %d, want %d", observer.errors, testCase.wantErrors)
			}
		})
	}
}
