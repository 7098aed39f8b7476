package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/jsonschema"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool"
)

// Endpoint is one entry of an endpoints file.
type Endpoint struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Path        string      `json:"path"`
	Method      string      `json:"method"`
	Parameters  []Parameter `json:"parameters,omitempty"`
}

// Parameter declares one tool argument. Type is one of str, int, float, bool.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// LoadEndpoints reads a JSON array of endpoint definitions.
func LoadEndpoints(path string) ([]Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading endpoints file: %w", err)
	}

	var endpoints []Endpoint
	if err := json.Unmarshal(data, &endpoints); err != nil {
		return nil, fmt.Errorf("parsing endpoints file %s: %w", path, err)
	}

	for i, endpoint := range endpoints {
		if endpoint.Name == "" || endpoint.Path == "" || endpoint.Method == "" {
			return nil, fmt.Errorf("endpoint %d in %s: name, path and method are required", i, path)
		}
	}
	return endpoints, nil
}

// NewEndpointTool turns an endpoint definition into a tool executed by runner.
func NewEndpointTool(endpoint Endpoint, runner *Runner) tool.GenericTool {
	parameters := make([]jsonschema.Parameter, 0, len(endpoint.Parameters))
	for _, parameter := range endpoint.Parameters {
		parameters = append(parameters, jsonschema.Parameter{
			Name:        parameter.Name,
			Type:        parameter.Type,
			Description: parameter.Description,
		})
	}

	return &tool.FuncTool{
		Info: ai.ToolDescription{
			Name:        endpoint.Name,
			Description: endpoint.Description,
			Parameters:  jsonschema.FromParameters(parameters),
		},
		Function: func(ctx context.Context, arguments map[string]any) (string, error) {
			return runner.Execute(ctx, endpoint.Method, endpoint.Path, arguments), nil
		},
	}
}

// NewEndpointTools builds one tool per endpoint.
func NewEndpointTools(endpoints []Endpoint, runner *Runner) []tool.GenericTool {
	tools := make([]tool.GenericTool, 0, len(endpoints))
	for _, endpoint := range endpoints {
		tools = append(tools, NewEndpointTool(endpoint, runner))
	}
	return tools
}
