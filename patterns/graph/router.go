package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

const (
	missingAddressReasoning = "Missing source_ip or destination_ip. Routing to enrichment for IPAM lookup."
	plannerFailedReasoning  = "Planner failed, defaulting to full scan. Error: "
)

// Router produces the Decision for the current state.
type Router struct {
	planner      Planner
	workers      []string
	systemPrompt string
}

// NewRouter returns a Router that falls back to every name in workers when
// the planner fails.
func NewRouter(planner Planner, workers []string, systemPrompt string) *Router {
	return &Router{
		planner:      planner,
		workers:      slices.Clone(workers),
		systemPrompt: systemPrompt,
	}
}

// Decide never fails. Without both IP addresses it routes to enrichment and
// skips the planner; a planner error becomes the full scan decision.
func (router *Router) Decide(ctx context.Context, state State) Decision {
	if !hasIncidentKey(state.IncidentData, KeySourceIP) || !hasIncidentKey(state.IncidentData, KeyDestinationIP) {
		return Decision{
			NextSteps: []string{NodeEnrichment},
			Reasoning: missingAddressReasoning,
		}
	}

	request := PlanRequest{
		SystemContext: router.systemContext(state.IncidentData),
		IncidentData:  cloneIncidentData(state.IncidentData),
		Messages:      cloneMessages(state.Messages),
		Workers:       slices.Clone(router.workers),
	}

	decision, err := router.planner.Plan(ctx, request)
	if err != nil {
		planningError := &PlanningError{Err: err}
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Warn(ctx, "planner failed, running every worker",
				observability.Error(planningError),
				observability.Strings(observability.AttrNextSteps, router.workers),
			)
		}
		return Decision{
			NextSteps: slices.Clone(router.workers),
			Reasoning: plannerFailedReasoning + err.Error(),
		}
	}
	return decision
}

func (router *Router) systemContext(incidentData map[string]any) string {
	encoded, err := json.Marshal(incidentData)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", incidentData))
	}

	var builder strings.Builder
	if router.systemPrompt != "" {
		builder.WriteString(router.systemPrompt)
		builder.WriteString("\n\n")
	}
	builder.WriteString("You are the Request Orchestrator.\n")
	fmt.Fprintf(&builder, "Current Incident Data: %s\n", encoded)
	builder.WriteString("The user has provided sufficient IP information. Analyze the request to confirm if we should proceed with firewall checks.\n")
	fmt.Fprintf(&builder, "If standard diagnostics are needed, route to '%s'.\n", CatchAll)
	if len(router.workers) > 0 {
		fmt.Fprintf(&builder, "Available diagnostic agents: %s.\n", strings.Join(router.workers, ", "))
	}
	return builder.String()
}
