package client

import (
	"context"
	"fmt"

	"github.com/antagligen/agent-triage-ralph-antigravity/core/parse"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/jsonschema"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

// StructuredResponse pairs the parsed answer with the raw provider response.
type StructuredResponse[T any] struct {
	Data T
	Raw  *ai.ChatResponse
}

// StructuredClient is a single-shot extractor: every call requests JSON that
// follows the schema of T and parses the answer into T.
//
//	type Decision struct {
//	    NextSteps []string `json:"next_steps"`
//	    Reasoning string   `json:"reasoning"`
//	}
//
//	planner, err := client.NewStructured[Decision](provider, client.WithTemperature(0))
//	resp, err := planner.Send(ctx, messages)
//	fmt.Println(resp.Data.NextSteps)
type StructuredClient[T any] struct {
	*Client
	schema *jsonschema.Schema
}

// FromBaseClient wraps base. The schema of T is generated once here.
func FromBaseClient[T any](base *Client) (*StructuredClient[T], error) {
	if base == nil {
		return nil, fmt.Errorf("client: base client is nil")
	}
	schema, err := jsonschema.GenerateJSONSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("client: cannot derive output schema: %w", err)
	}
	base.SetDefaultOutputSchema(schema)
	return &StructuredClient[T]{Client: base, schema: schema}, nil
}

// NewStructured creates the base Client and wraps it.
func NewStructured[T any](llmProvider ai.Provider, opts ...func(*ClientOptions)) (*StructuredClient[T], error) {
	base, err := New(llmProvider, opts...)
	if err != nil {
		return nil, err
	}
	return FromBaseClient[T](base)
}

// SendMessage sends prompt as the only user message and parses the answer.
func (sc *StructuredClient[T]) SendMessage(ctx context.Context, prompt string, opts ...SendMessageOption) (*StructuredResponse[T], error) {
	response, err := sc.Client.SendMessage(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	return sc.parseResponse(response)
}

// Send sends the conversation and parses the answer.
func (sc *StructuredClient[T]) Send(ctx context.Context, messages []ai.Message, opts ...SendMessageOption) (*StructuredResponse[T], error) {
	response, err := sc.Client.Send(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return sc.parseResponse(response)
}

// Schema returns the JSON schema used for structured output.
func (sc *StructuredClient[T]) Schema() *jsonschema.Schema {
	return sc.schema
}

func (sc *StructuredClient[T]) parseResponse(response *ai.ChatResponse) (*StructuredResponse[T], error) {
	if response == nil {
		return nil, fmt.Errorf("response is nil")
	}
	if response.Refusal != "" {
		return nil, fmt.Errorf("model refused to answer: %s", response.Refusal)
	}
	data, err := parse.ParseStringAs[T](response.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse structured output: %w", err)
	}
	return &StructuredResponse[T]{Data: data, Raw: response}, nil
}
