package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/antagligen/agent-triage-ralph-antigravity/core/client"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
)

// Planner asks the model for a routing decision.
type Planner struct {
	client *client.StructuredClient[graph.Decision]
}

var _ graph.Planner = (*Planner)(nil)

// NewPlanner wraps baseClient, which should run at temperature 0.
func NewPlanner(baseClient *client.Client) (*Planner, error) {
	structured, err := client.FromBaseClient[graph.Decision](baseClient)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: planner: %w", err)
	}
	return &Planner{client: structured}, nil
}

// Plan sends the system context as the instruction and the conversation as
// the messages. Step names are trimmed and blank ones dropped; a decision with
// no steps left is still valid and means every worker.
func (planner *Planner) Plan(ctx context.Context, request graph.PlanRequest) (graph.Decision, error) {
	if len(request.Messages) == 0 {
		return graph.Decision{}, fmt.Errorf("orchestrator: no conversation to plan from")
	}

	response, err := planner.client.Send(ctx, request.Messages, client.WithInstructions(request.SystemContext))
	if err != nil {
		return graph.Decision{}, err
	}

	decision := response.Data
	steps := make([]string, 0, len(decision.NextSteps))
	for _, step := range decision.NextSteps {
		if step = strings.TrimSpace(step); step != "" {
			steps = append(steps, step)
		}
	}
	decision.NextSteps = steps
	return decision, nil
}
