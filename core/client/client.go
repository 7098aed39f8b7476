package client

import (
	"context"
	"errors"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/jsonschema"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// Client sends chat requests through the configured middleware chain.
type Client struct {
	llmProvider      ai.Provider
	observer         observability.Provider
	systemPrompt     string
	defaultModel     string
	generationConfig *ai.GenerationConfig
	outputSchema     *jsonschema.Schema
	send             SendFunc
}

// ClientOptions is filled by the With* functions passed to New.
type ClientOptions struct {
	Observer     observability.Provider
	SystemPrompt string
	DefaultModel string
	Temperature  *float32
	MaxTokens    int
	Middlewares  []Middleware
}

// WithObserver enables spans, metrics and logs for every request. The
// observability middleware becomes the outermost wrapper.
func WithObserver(observer observability.Provider) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.Observer = observer
	}
}

// WithSystemPrompt sets the instruction sent in the provider's system slot.
func WithSystemPrompt(prompt string) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.SystemPrompt = prompt
	}
}

// WithDefaultModel sets the model used when a call does not name one.
func WithDefaultModel(model string) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.DefaultModel = model
	}
}

// WithTemperature fixes the sampling temperature. Routing uses 0.
func WithTemperature(temperature float32) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.Temperature = &temperature
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(maxTokens int) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.MaxTokens = maxTokens
	}
}

// WithMiddleware appends middlewares. The first one is the outermost.
func WithMiddleware(middlewares ...Middleware) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.Middlewares = append(options.Middlewares, middlewares...)
	}
}

// New builds a Client around llmProvider.
func New(llmProvider ai.Provider, opts ...func(*ClientOptions)) (*Client, error) {
	if llmProvider == nil {
		return nil, errors.New("client: llm provider is nil")
	}

	options := &ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	middlewares := options.Middlewares
	if options.Observer != nil {
		middlewares = append([]Middleware{NewObservabilityMiddleware(options.Observer, llmProvider.Name(), options.DefaultModel)}, middlewares...)
	}

	client := &Client{
		llmProvider:  llmProvider,
		observer:     options.Observer,
		systemPrompt: options.SystemPrompt,
		defaultModel: options.DefaultModel,
		send:         buildSendChain(llmProvider, middlewares),
	}
	if options.Temperature != nil || options.MaxTokens > 0 {
		client.generationConfig = &ai.GenerationConfig{
			Temperature: options.Temperature,
			MaxTokens:   options.MaxTokens,
		}
	}

	return client, nil
}

// SendMessageOption customizes a single call.
type SendMessageOption func(*sendMessageOptions)

type sendMessageOptions struct {
	model        string
	systemPrompt string
	outputSchema *jsonschema.Schema
	tools        []ai.ToolDescription
}

// WithModel overrides the default model for one call.
func WithModel(model string) SendMessageOption {
	return func(options *sendMessageOptions) {
		options.model = model
	}
}

// WithInstructions replaces the client's system prompt for one call. The
// planner uses it because its instruction embeds the current incident data.
func WithInstructions(systemPrompt string) SendMessageOption {
	return func(options *sendMessageOptions) {
		options.systemPrompt = systemPrompt
	}
}

// WithOutputSchema requests a JSON answer following schema.
func WithOutputSchema(schema *jsonschema.Schema) SendMessageOption {
	return func(options *sendMessageOptions) {
		options.outputSchema = schema
	}
}

// WithTools advertises tools for one call.
func WithTools(tools ...ai.ToolDescription) SendMessageOption {
	return func(options *sendMessageOptions) {
		options.tools = append(options.tools, tools...)
	}
}

// SendMessage sends prompt as the only user message.
func (c *Client) SendMessage(ctx context.Context, prompt string, opts ...SendMessageOption) (*ai.ChatResponse, error) {
	if prompt == "" {
		return nil, errors.New("client: prompt must not be empty")
	}
	return c.Send(ctx, []ai.Message{{Role: ai.RoleUser, Content: prompt}}, opts...)
}

// Send sends the whole conversation. messages is not modified.
func (c *Client) Send(ctx context.Context, messages []ai.Message, opts ...SendMessageOption) (*ai.ChatResponse, error) {
	options := &sendMessageOptions{
		model:        c.defaultModel,
		systemPrompt: c.systemPrompt,
		outputSchema: c.outputSchema,
	}
	for _, opt := range opts {
		opt(options)
	}

	request := ai.ChatRequest{
		Model:            options.model,
		Messages:         messages,
		SystemPrompt:     options.systemPrompt,
		Tools:            options.tools,
		GenerationConfig: c.generationConfig,
	}
	if options.outputSchema != nil {
		request.ResponseFormat = &ai.ResponseFormat{OutputSchema: options.outputSchema}
	}

	return c.send(ctx, request)
}

// Provider returns the wrapped LLM provider.
func (c *Client) Provider() ai.Provider {
	return c.llmProvider
}

// Observer returns the configured observer, or nil.
func (c *Client) Observer() observability.Provider {
	return c.observer
}

// SetDefaultOutputSchema makes every call request structured output unless
// overridden with WithOutputSchema.
func (c *Client) SetDefaultOutputSchema(schema *jsonschema.Schema) {
	c.outputSchema = schema
}
