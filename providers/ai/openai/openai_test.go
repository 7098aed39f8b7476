package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/jsonschema"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

func TestSendMessageBuildsChatCompletionRequest(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", request.URL.Path)
		}
		if err := json.NewDecoder(request.Body).Decode(&captured); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		_, _ = writer.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"next_steps\":[\"aci\"]}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	temperature := float32(0)
	provider := NewOpenAIProvider().WithAPIKey("sk-test").WithBaseURL(server.URL)
	response, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Model:        "gpt-4o",
		SystemPrompt: "You are the Request Orchestrator.",
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: "10.0.0.1 cannot reach 10.0.0.2"}},
		Tools:        []ai.ToolDescription{{Name: "ping", Parameters: &jsonschema.Schema{Type: "object"}}},
		ResponseFormat: &ai.ResponseFormat{
			Name:         "decision",
			OutputSchema: &jsonschema.Schema{Type: "object"},
			Strict:       true,
		},
		GenerationConfig: &ai.GenerationConfig{Temperature: &temperature},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if response.Content != `{"next_steps":["aci"]}` || response.Usage.TotalTokens != 15 {
		t.Errorf("unexpected response: %+v", response)
	}
	if !provider.IsStopMessage(response) {
		t.Error("a stop response should be a stop message")
	}

	messages := captured["messages"].([]any)
	if len(messages) != 2 || messages[0].(map[string]any)["role"] != "system" {
		t.Errorf("system prompt should be the first message: %v", messages)
	}
	format := captured["response_format"].(map[string]any)
	if format["type"] != "json_schema" || format["json_schema"].(map[string]any)["name"] != "decision" {
		t.Errorf("unexpected response_format: %v", format)
	}
	if _, hasTemperature := captured["temperature"]; !hasTemperature {
		t.Error("zero temperature must still be sent")
	}
	tools := captured["tools"].([]any)
	if tools[0].(map[string]any)["type"] != "function" {
		t.Errorf("unexpected tools: %v", tools)
	}
}

func TestToolCallResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte(`{
			"id": "chatcmpl-2",
			"choices": [{"finish_reason": "tool_calls", "message": {"role": "assistant", "content": null,
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "ping", "arguments": "{\"target\":\"10.0.0.2\"}"}}]}}]
		}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider().WithAPIKey("sk-test").WithBaseURL(server.URL)
	response, err := provider.SendMessage(context.Background(), ai.ChatRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.ToolCalls) != 1 || response.ToolCalls[0].Function.Name != "ping" {
		t.Fatalf("unexpected tool calls: %+v", response.ToolCalls)
	}
	if provider.IsStopMessage(response) {
		t.Error("pending tool calls must not be a stop message")
	}
}

func TestMessageFromGenericToolMessages(t *testing.T) {
	assistant := messageFromGeneric(ai.Message{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{ID: "c1"}}})
	if assistant.Content != nil {
		t.Error("tool-call-only assistant messages must send null content")
	}

	tool := messageFromGeneric(ai.Message{Role: ai.RoleTool, Name: "ping", ToolCallID: "c1", Content: "ok"})
	if tool.Name != "" || tool.ToolCallID != "c1" || *tool.Content != "ok" {
		t.Errorf("unexpected tool message: %+v", tool)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewOpenAIProvider().SendMessage(context.Background(), ai.ChatRequest{}); err == nil {
		t.Fatal("expected an error without an API key")
	}
}

func TestRegisteredUnderOpenAI(t *testing.T) {
	provider, err := ai.NewProvider("OpenAI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "openai" {
		t.Errorf("unexpected provider %q", provider.Name())
	}
}
