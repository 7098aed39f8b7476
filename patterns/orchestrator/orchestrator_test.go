package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/antagligen/agent-triage-ralph-antigravity/core/client"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

type scriptedProvider struct {
	requests []ai.ChatRequest
	content  string
	err      error
}

func (p *scriptedProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	p.requests = append(p.requests, request)
	if p.err != nil {
		return nil, p.err
	}
	return &ai.ChatResponse{Content: p.content}, nil
}

func (p *scriptedProvider) IsStopMessage(*ai.ChatResponse) bool     { return true }
func (p *scriptedProvider) Name() string                            { return "scripted" }
func (p *scriptedProvider) WithAPIKey(string) ai.Provider           { return p }
func (p *scriptedProvider) WithBaseURL(string) ai.Provider          { return p }
func (p *scriptedProvider) WithHttpClient(*http.Client) ai.Provider { return p }

func newBase(t *testing.T, provider ai.Provider) *client.Client {
	t.Helper()
	base, err := client.New(provider, client.WithTemperature(0), client.WithSystemPrompt("default prompt"))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return base
}

func TestPlannerPlan(t *testing.T) {
	provider := &scriptedProvider{content: `{"next_steps": [" aci ", "", "firewall"], "reasoning": "both IPs present"}`}
	planner, err := NewPlanner(newBase(t, provider))
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}

	decision, err := planner.Plan(context.Background(), graph.PlanRequest{
		SystemContext: "You are the Request Orchestrator.",
		Messages:      []ai.Message{{Role: ai.RoleUser, Content: "10.0.0.1 cannot reach 10.0.0.2"}},
		Workers:       []string{"aci", "firewall"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if got := strings.Join(decision.NextSteps, ","); got != "aci,firewall" {
		t.Errorf("next steps = %q, want aci,firewall", got)
	}
	if decision.Reasoning != "both IPs present" {
		t.Errorf("reasoning = %q", decision.Reasoning)
	}

	request := provider.requests[0]
	if request.SystemPrompt != "You are the Request Orchestrator." {
		t.Errorf("system context not sent as instructions: %q", request.SystemPrompt)
	}
	if len(request.Messages) != 1 {
		t.Errorf("messages = %+v", request.Messages)
	}
	if request.ResponseFormat == nil || request.ResponseFormat.OutputSchema == nil {
		t.Error("decision schema not requested")
	}
}

func TestPlannerErrors(t *testing.T) {
	testCases := []struct {
		name     string
		provider *scriptedProvider
		messages []ai.Message
	}{
		{name: "no messages", provider: &scriptedProvider{content: `{"next_steps": [], "reasoning": ""}`}},
		{name: "provider failure", provider: &scriptedProvider{err: errors.New("rate limited")}, messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}},
		{name: "unparseable", provider: &scriptedProvider{content: "run aci please"}, messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			planner, err := NewPlanner(newBase(t, testCase.provider))
			if err != nil {
				t.Fatalf("NewPlanner: %v", err)
			}
			if _, err := planner.Plan(context.Background(), graph.PlanRequest{Messages: testCase.messages}); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestNewRejectsNilClient(t *testing.T) {
	if _, err := NewPlanner(nil); err == nil {
		t.Error("planner accepted a nil client")
	}
	if _, err := NewSummarizer(nil); err == nil {
		t.Error("summarizer accepted a nil client")
	}
}

func TestSummarizerSummarize(t *testing.T) {
	provider := &scriptedProvider{content: `{"root_cause": "ACL deny on firewall", "details": "policy 42 drops tcp/443", "recommended_action": "add an allow rule"}`}
	summarizer, err := NewSummarizer(newBase(t, provider))
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}

	report, err := summarizer.Summarize(context.Background(), graph.SummaryRequest{
		SuccessBrief: "Worker: firewall\nStatus: SUCCESS\nSummary: deny rule hit",
		IncidentData: map[string]any{graph.KeySourceIP: "10.0.0.1"},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if report.RootCause != "ACL deny on firewall" || report.RecommendedAction != "add an allow rule" {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.FailedWorkers != nil {
		t.Errorf("failed workers must be left to the graph: %v", report.FailedWorkers)
	}

	request := provider.requests[0]
	if request.SystemPrompt != TriageInstruction {
		t.Errorf("system prompt = %q", request.SystemPrompt)
	}
	prompt := request.Messages[0].Content
	for _, want := range []string{`"source_ip":"10.0.0.1"`, "deny rule hit", "Failed Sub-Agent Reports:\nNone"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSummarizerRejectsEmptyRootCause(t *testing.T) {
	provider := &scriptedProvider{content: `{"root_cause": " ", "details": "", "recommended_action": ""}`}
	summarizer, _ := NewSummarizer(newBase(t, provider))

	if _, err := summarizer.Summarize(context.Background(), graph.SummaryRequest{}); err == nil {
		t.Fatal("expected an error for an empty root cause")
	}
}
