package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antagligen/agent-triage-ralph-antigravity/core/parse"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/jsonschema"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// GenericTool is the type-erased view of a tool used by catalogs and workers.
type GenericTool interface {
	// ToolInfo returns the name, description and parameter schema advertised
	// to the model.
	ToolInfo() ai.ToolDescription

	// Call runs the tool with JSON-encoded arguments and returns its output as
	// text for the model.
	Call(ctx context.Context, inputJson string) (string, error)
}

// Tool is a typed tool. String outputs are returned verbatim; any other output
// type is JSON encoded.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

var _ GenericTool = (*Tool[struct{}, string])(nil)

type funcToolOptions struct {
	Description string
}

// WithDescription sets the description the model uses to decide when to call
// the tool.
func WithDescription(description string) func(tool *funcToolOptions) {
	return func(s *funcToolOptions) {
		s.Description = description
	}
}

// NewTool builds a Tool, deriving the parameter schema from I. It panics if I
// cannot be described as JSON schema; tool input types are fixed at compile
// time so this surfaces during development.
//
//	ping := tool.NewTool("ping", pingFunc,
//	    tool.WithDescription("Ping a target IP address."),
//	)
func NewTool[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...func(tool *funcToolOptions)) *Tool[I, O] {
	toolOptions := &funcToolOptions{}
	for _, option := range options {
		option(toolOptions)
	}

	parameters, err := jsonschema.GenerateJSONSchema[I]()
	if err != nil {
		panic(fmt.Sprintf("tool %s: invalid input type: %v", name, err))
	}

	return &Tool[I, O]{
		Name:        name,
		Description: toolOptions.Description,
		Parameters:  parameters,
		Function:    function,
	}
}

// ToolInfo implements GenericTool.
func (t *Tool[I, O]) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call implements GenericTool. Span events are recorded when ctx carries a span.
func (t *Tool[I, O]) Call(ctx context.Context, inputJson string) (string, error) {
	return observeCall(ctx, t.Name, inputJson, func() (string, error) {
		if inputJson == "" {
			inputJson = "{}"
		}
		parsedInput, err := parse.ParseStringAs[I](inputJson)
		if err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", t.Name, err)
		}

		output, err := t.Function(ctx, parsedInput)
		if err != nil {
			return "", err
		}

		if text, isString := any(output).(string); isString {
			return text, nil
		}
		outputBytes, err := json.Marshal(output)
		if err != nil {
			return "", err
		}
		return string(outputBytes), nil
	})
}

// observeCall wraps a tool execution with span events. Shared by typed and
// dynamic tools.
func observeCall(ctx context.Context, name, inputJson string, execute func() (string, error)) (string, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventToolExecutionStart,
			observability.String(observability.AttrToolName, name),
			observability.String(observability.AttrToolInput, inputJson),
		)
		defer span.AddEvent(observability.EventToolExecutionEnd)
	}

	start := time.Now()
	output, err := execute()
	duration := time.Since(start)

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(
				observability.String(observability.AttrToolError, err.Error()),
				observability.Duration(observability.AttrToolDuration, duration),
			)
		} else {
			span.SetAttributes(
				observability.String(observability.AttrToolOutput, observability.TruncateStringDefault(output)),
				observability.Duration(observability.AttrToolDuration, duration),
			)
		}
	}

	return output, err
}

// FuncTool adapts a function over raw arguments, for tools whose schema is
// only known at runtime.
type FuncTool struct {
	Info     ai.ToolDescription
	Function func(ctx context.Context, arguments map[string]any) (string, error)
}

var _ GenericTool = (*FuncTool)(nil)

// ToolInfo implements GenericTool.
func (f *FuncTool) ToolInfo() ai.ToolDescription {
	return f.Info
}

// Call implements GenericTool.
func (f *FuncTool) Call(ctx context.Context, inputJson string) (string, error) {
	return observeCall(ctx, f.Info.Name, inputJson, func() (string, error) {
		arguments := map[string]any{}
		if inputJson != "" {
			parsed, err := parse.ParseStringAs[map[string]any](inputJson)
			if err != nil {
				return "", fmt.Errorf("invalid arguments for %s: %w", f.Info.Name, err)
			}
			arguments = parsed
		}
		return f.Function(ctx, arguments)
	})
}
