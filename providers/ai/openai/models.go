package openai

import (
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/jsonschema"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Tools          []chatTool      `json:"tools,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_completion_tokens,omitempty"`
}

type chatMessage struct {
	Role       string        `json:"role"`
	Content    *string       `json:"content"`
	Name       string        `json:"name,omitempty"`
	ToolCalls  []ai.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Refusal    string        `json:"refusal,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string             `json:"name"`
	Schema *jsonschema.Schema `json:"schema"`
	Strict bool               `json:"strict,omitempty"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func requestFromGeneric(request ai.ChatRequest) chatCompletionRequest {
	converted := chatCompletionRequest{
		Model:    request.Model,
		Messages: make([]chatMessage, 0, len(request.Messages)+1),
	}

	if request.SystemPrompt != "" {
		converted.Messages = append(converted.Messages, chatMessage{Role: string(ai.RoleSystem), Content: stringPointer(request.SystemPrompt)})
	}
	for _, message := range request.Messages {
		converted.Messages = append(converted.Messages, messageFromGeneric(message))
	}

	for _, tool := range request.Tools {
		converted.Tools = append(converted.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if format := request.ResponseFormat; format != nil {
		if format.OutputSchema != nil {
			name := format.Name
			if name == "" {
				name = "response"
			}
			converted.ResponseFormat = &responseFormat{
				Type:       "json_schema",
				JSONSchema: &jsonSchema{Name: name, Schema: format.OutputSchema, Strict: format.Strict},
			}
		} else {
			converted.ResponseFormat = &responseFormat{Type: "json_object"}
		}
	}

	if config := request.GenerationConfig; config != nil {
		converted.Temperature = config.Temperature
		converted.MaxTokens = config.MaxTokens
	}

	return converted
}

func messageFromGeneric(message ai.Message) chatMessage {
	converted := chatMessage{
		Role:       string(message.Role),
		Name:       message.Name,
		ToolCalls:  message.ToolCalls,
		ToolCallID: message.ToolCallID,
	}
	// Assistant messages that only carry tool calls send a null content.
	if message.Content != "" || len(message.ToolCalls) == 0 {
		converted.Content = stringPointer(message.Content)
	}
	if message.Role == ai.RoleTool {
		// Chat Completions rejects "name" on tool messages.
		converted.Name = ""
	}
	return converted
}

func responseToGeneric(response chatCompletionResponse) *ai.ChatResponse {
	choice := response.Choices[0]

	converted := &ai.ChatResponse{
		Id:           response.ID,
		Model:        response.Model,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
		Refusal:      choice.Message.Refusal,
	}
	if choice.Message.Content != nil {
		converted.Content = *choice.Message.Content
	}
	if response.Usage != nil {
		converted.Usage = &ai.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
	}
	return converted
}

func stringPointer(value string) *string {
	return &value
}
