package graph

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestRouterRoutesToEnrichmentWithoutPlanner(t *testing.T) {
	testCases := []struct {
		name         string
		incidentData map[string]any
	}{
		{name: "nil incident data", incidentData: nil},
		{name: "missing source", incidentData: map[string]any{KeyDestinationIP: "10.0.0.2"}},
		{name: "missing destination", incidentData: map[string]any{KeySourceIP: "10.0.0.1"}},
		{name: "empty source", incidentData: map[string]any{KeySourceIP: "", KeyDestinationIP: "10.0.0.2"}},
		{name: "nil destination", incidentData: map[string]any{KeySourceIP: "10.0.0.1", KeyDestinationIP: nil}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			planner := &countingPlanner{decision: Decision{NextSteps: []string{"aci"}}}
			router := NewRouter(planner, []string{"aci", "palo_alto"}, "")

			decision := router.Decide(context.Background(), State{IncidentData: testCase.incidentData})

			if !slices.Equal(decision.NextSteps, []string{NodeEnrichment}) {
				t.Errorf("NextSteps = %v, want [%s]", decision.NextSteps, NodeEnrichment)
			}
			if decision.Reasoning != "Missing source_ip or destination_ip. Routing to enrichment for IPAM lookup." {
				t.Errorf("unexpected reasoning %q", decision.Reasoning)
			}
			if planner.calls() != 0 {
				t.Errorf("planner called %d times, want 0", planner.calls())
			}
		})
	}
}

func TestRouterReturnsPlannerDecision(t *testing.T) {
	planner := &countingPlanner{decision: Decision{NextSteps: []string{"palo_alto"}, Reasoning: "firewall first"}}
	router := NewRouter(planner, []string{"aci", "palo_alto"}, "You are a network assistant.")
	state := State{
		Messages:     userMessages("10.0.0.1 cannot reach 10.0.0.2 on 443"),
		IncidentData: completeIncident(),
	}

	decision := router.Decide(context.Background(), state)

	if !slices.Equal(decision.NextSteps, []string{"palo_alto"}) || decision.Reasoning != "firewall first" {
		t.Fatalf("decision = %+v, want the planner's decision", decision)
	}
	if planner.calls() != 1 {
		t.Fatalf("planner called %d times, want 1", planner.calls())
	}

	request := planner.requests[0]
	for _, fragment := range []string{
		"You are a network assistant.",
		"You are the Request Orchestrator.",
		`"source_ip":"10.0.0.1"`,
		"route to 'sub_agents'",
		"aci, palo_alto",
	} {
		if !strings.Contains(request.SystemContext, fragment) {
			t.Errorf("system context missing %q:\n%s", fragment, request.SystemContext)
		}
	}
	if len(request.Messages) != 1 || request.Messages[0].Content != state.Messages[0].Content {
		t.Errorf("planner did not receive the message history: %+v", request.Messages)
	}
	if !slices.Equal(request.Workers, []string{"aci", "palo_alto"}) {
		t.Errorf("Workers = %v", request.Workers)
	}
}

func TestRouterFallsBackToFullScan(t *testing.T) {
	planner := &countingPlanner{err: errors.New("model returned malformed JSON")}
	router := NewRouter(planner, []string{"aci", "palo_alto"}, "")

	decision := router.Decide(context.Background(), State{IncidentData: completeIncident()})

	if !slices.Equal(decision.NextSteps, []string{"aci", "palo_alto"}) {
		t.Errorf("NextSteps = %v, want every worker", decision.NextSteps)
	}
	want := "Planner failed, defaulting to full scan. Error: model returned malformed JSON"
	if decision.Reasoning != want {
		t.Errorf("Reasoning = %q, want %q", decision.Reasoning, want)
	}
}

func TestRouterDoesNotLeakIncidentData(t *testing.T) {
	planner := PlannerFunc(func(_ context.Context, request PlanRequest) (Decision, error) {
		request.IncidentData[KeySourceIP] = "overwritten"
		return Decision{NextSteps: []string{CatchAll}}, nil
	})
	router := NewRouter(planner, []string{"aci"}, "")
	state := State{IncidentData: completeIncident()}

	router.Decide(context.Background(), state)

	if state.IncidentData[KeySourceIP] != "10.0.0.1" {
		t.Errorf("planner mutated the run's incident data: %v", state.IncidentData)
	}
}
