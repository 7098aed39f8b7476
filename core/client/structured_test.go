package client

import (
	"context"
	"testing"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

type decision struct {
	NextSteps []string `json:"next_steps"`
	Reasoning string   `json:"reasoning"`
}

func TestStructuredClientParsesAnswer(t *testing.T) {
	provider := &fakeProvider{responses: []*ai.ChatResponse{{
		Content: "```json\n{\"next_steps\": [\"aci\", \"firewall\"], \"reasoning\": \"both IPs known\"}\n```",
	}}}

	planner, err := NewStructured[decision](provider)
	if err != nil {
		t.Fatalf("NewStructured: %v", err)
	}

	response, err := planner.Send(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "check"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(response.Data.NextSteps) != 2 || response.Data.NextSteps[1] != "firewall" {
		t.Errorf("unexpected data: %+v", response.Data)
	}
	if response.Raw == nil {
		t.Error("raw response missing")
	}

	request := provider.requests[0]
	if request.ResponseFormat == nil || request.ResponseFormat.OutputSchema != planner.Schema() {
		t.Error("schema of T must be requested")
	}
}

func TestStructuredClientErrors(t *testing.T) {
	testCases := []struct {
		name     string
		response *ai.ChatResponse
	}{
		{name: "not json", response: &ai.ChatResponse{Content: "I think you should run aci"}},
		{name: "refusal", response: &ai.ChatResponse{Refusal: "cannot help"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			planner, _ := NewStructured[decision](&fakeProvider{responses: []*ai.ChatResponse{testCase.response}})
			if _, err := planner.SendMessage(context.Background(), "check"); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestFromBaseClientNil(t *testing.T) {
	if _, err := FromBaseClient[decision](nil); err == nil {
		t.Fatal("expected an error for a nil base client")
	}
}
