package react

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/antagligen/agent-triage-ralph-antigravity/core/client"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/memory/inmemory"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool"
)

// DefaultMaxIterations bounds the loop when WithMaxIterations is not used.
const DefaultMaxIterations = 10

// ErrMaxIterations is returned when the model keeps calling tools past the
// iteration limit.
var ErrMaxIterations = errors.New("react: maximum iterations reached without a final answer")

// ReAct is a tool-using agent bound to one tool catalog.
type ReAct struct {
	name          string
	client        *client.Client
	catalog       *tool.Catalog
	maxIterations int
	stopOnError   bool
}

var _ graph.Worker = (*ReAct)(nil)

// Option configures a ReAct agent.
type Option func(*ReAct)

// WithMaxIterations sets how many model calls the loop may make.
func WithMaxIterations(maxIterations int) Option {
	return func(agent *ReAct) {
		agent.maxIterations = maxIterations
	}
}

// WithStopOnError aborts the loop on the first failing or unknown tool. By
// default the failure is sent back to the model as the tool output.
func WithStopOnError(stopOnError bool) Option {
	return func(agent *ReAct) {
		agent.stopOnError = stopOnError
	}
}

// New builds an agent named name. The client's system prompt carries the
// agent's role; catalog holds the tools it may call.
func New(name string, baseClient *client.Client, catalog *tool.Catalog, opts ...Option) (*ReAct, error) {
	if baseClient == nil {
		return nil, errors.New("react: client is required")
	}
	if catalog == nil {
		catalog = tool.NewCatalog()
	}

	agent := &ReAct{
		name:          name,
		client:        baseClient,
		catalog:       catalog,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(agent)
	}
	if agent.maxIterations <= 0 {
		return nil, fmt.Errorf("react: max iterations must be positive, got %d", agent.maxIterations)
	}

	return agent, nil
}

// Name returns the agent name.
func (agent *ReAct) Name() string {
	return agent.name
}

// Result is the outcome of Execute.
type Result struct {
	// Answer is the content of the final model response.
	Answer string
	// Messages is the full transcript including the input history.
	Messages   []ai.Message
	Iterations int
	// ToolCalls counts calls per tool name.
	ToolCalls map[string]int
}

// Execute runs the loop over history. On ErrMaxIterations the partial result
// is returned along with the error.
func (agent *ReAct) Execute(ctx context.Context, history []ai.Message) (*Result, error) {
	observer := agent.observer(ctx)
	transcript := inmemory.NewWithMessages(history)
	descriptions := agent.catalog.Descriptions()
	result := &Result{ToolCalls: make(map[string]int)}

	for iteration := 1; iteration <= agent.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Iterations = iteration
		agent.observeIteration(ctx, observer, iteration)

		messages, _ := transcript.AllMessages(ctx)
		var sendOptions []client.SendMessageOption
		if len(descriptions) > 0 {
			sendOptions = append(sendOptions, client.WithTools(descriptions...))
		}

		response, err := agent.client.Send(ctx, messages, sendOptions...)
		if err != nil {
			return nil, fmt.Errorf("react %s: iteration %d: %w", agent.name, iteration, err)
		}

		transcript.AppendMessage(ctx, &ai.Message{
			Role:      ai.RoleAssistant,
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		if agent.client.Provider().IsStopMessage(response) || len(response.ToolCalls) == 0 {
			result.Answer = response.Content
			result.Messages, _ = transcript.AllMessages(ctx)
			return result, nil
		}

		for _, toolCall := range response.ToolCalls {
			result.ToolCalls[toolCall.Function.Name]++
			graph.EmitToolCall(ctx, toolCall.Function.Name, toolCall.Function.Arguments)

			output, err := agent.callTool(ctx, toolCall)
			if err != nil {
				agent.observeToolError(ctx, observer, toolCall.Function.Name, err)
				if agent.stopOnError {
					return nil, fmt.Errorf("react %s: %w", agent.name, err)
				}
				output = "Error: " + err.Error()
			}

			transcript.AppendMessage(ctx, &ai.Message{
				Role:       ai.RoleTool,
				Content:    output,
				ToolCallID: toolCall.ID,
				Name:       toolCall.Function.Name,
			})
		}
	}

	agent.observeMaxIterations(ctx, observer)
	result.Messages, _ = transcript.AllMessages(ctx)
	return result, ErrMaxIterations
}

func (agent *ReAct) callTool(ctx context.Context, toolCall ai.ToolCall) (string, error) {
	genericTool, found := agent.catalog.Get(toolCall.Function.Name)
	if !found {
		return "", fmt.Errorf("tool %q not found", toolCall.Function.Name)
	}

	arguments := toolCall.Function.Arguments
	if arguments == "" {
		arguments = "{}"
	}
	output, err := genericTool.Call(ctx, arguments)
	if err != nil {
		return "", fmt.Errorf("tool %q failed: %w", toolCall.Function.Name, err)
	}
	return output, nil
}

// Run executes the agent as a graph worker. The incident data is appended to
// the conversation as a user message so the model can use the addresses
// found so far. Hitting the iteration limit yields an UNKNOWN result.
func (agent *ReAct) Run(ctx context.Context, view graph.View) (graph.WorkerResult, error) {
	history := append([]ai.Message(nil), view.Messages...)
	if len(view.IncidentData) > 0 {
		encoded, err := json.Marshal(view.IncidentData)
		if err == nil {
			history = append(history, ai.Message{
				Role:    ai.RoleUser,
				Content: "Current Incident Data: " + string(encoded),
			})
		}
	}

	result, err := agent.Execute(ctx, history)
	if errors.Is(err, ErrMaxIterations) {
		return graph.WorkerResult{
			WorkerName: agent.name,
			Status:     graph.StatusUnknown,
			Summary:    fmt.Sprintf("No conclusion after %d iterations.", result.Iterations),
			RawData:    result.rawData(),
		}, nil
	}
	if err != nil {
		return graph.WorkerResult{}, err
	}

	return graph.WorkerResult{
		WorkerName: agent.name,
		Status:     graph.StatusSuccess,
		Summary:    result.Answer,
		RawData:    result.rawData(),
	}, nil
}

func (result *Result) rawData() map[string]any {
	return map[string]any{
		"messages":   result.Messages,
		"iterations": result.Iterations,
		"tool_calls": result.ToolCalls,
	}
}
