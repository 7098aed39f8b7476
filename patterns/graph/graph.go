package graph

import (
	"context"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

// Node identifiers used in routing decisions and emitted events.
const (
	// NodeRouter is the entry decision node.
	NodeRouter = "orchestrator"
	// NodeEnrichment fills missing incident data before planning again.
	NodeEnrichment = "enrichment"
	// NodeAggregator turns worker results into the final report.
	NodeAggregator = "triage"
	// CatchAll expands to every registered diagnostic worker.
	CatchAll = "sub_agents"
)

// Worker is one diagnostic step. It reads a snapshot of the run state and
// returns its result; it never writes to the state directly.
type Worker interface {
	Run(ctx context.Context, view View) (WorkerResult, error)
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx context.Context, view View) (WorkerResult, error)

// Run calls f(ctx, view).
func (f WorkerFunc) Run(ctx context.Context, view View) (WorkerResult, error) {
	return f(ctx, view)
}

// NamedWorker registers a Worker under the identifier used by routing
// decisions. Registration order defines the catch-all expansion order.
type NamedWorker struct {
	Name   string
	Worker Worker
}

// PlanRequest is the input of a planning call.
type PlanRequest struct {
	// SystemContext holds the static instruction followed by the incident data.
	SystemContext string
	IncidentData  map[string]any
	Messages      []ai.Message
	// Workers lists the registered diagnostic worker names.
	Workers []string
}

// Planner chooses the next steps once the incident data is complete.
type Planner interface {
	Plan(ctx context.Context, request PlanRequest) (Decision, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, request PlanRequest) (Decision, error)

func (f PlannerFunc) Plan(ctx context.Context, request PlanRequest) (Decision, error) {
	return f(ctx, request)
}

// SummaryRequest is the input of a summarization call.
type SummaryRequest struct {
	SuccessBrief string
	FailureBrief string
	IncidentData map[string]any
}

// Summarizer writes the root-cause analysis from the worker briefs. Only
// RootCause, Details and RecommendedAction of the returned report are used.
type Summarizer interface {
	Summarize(ctx context.Context, request SummaryRequest) (Report, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, request SummaryRequest) (Report, error)

func (f SummarizerFunc) Summarize(ctx context.Context, request SummaryRequest) (Report, error) {
	return f(ctx, request)
}

// Enricher fills in missing incident data, usually from an IPAM system.
// It receives a copy of the incident data and returns the updated map; keys it
// returns replace the existing ones. A partial result may accompany an error.
type Enricher interface {
	Enrich(ctx context.Context, messages []ai.Message, incidentData map[string]any) (map[string]any, error)
}

// EnricherFunc adapts a function to the Enricher interface.
type EnricherFunc func(ctx context.Context, messages []ai.Message, incidentData map[string]any) (map[string]any, error)

func (f EnricherFunc) Enrich(ctx context.Context, messages []ai.Message, incidentData map[string]any) (map[string]any, error) {
	return f(ctx, messages, incidentData)
}

// Config is everything the engine needs to run. There are no package level
// defaults; every collaborator is passed here.
type Config struct {
	// Workers are the diagnostic workers, in catch-all order.
	Workers []NamedWorker
	// Enricher is required: the Router routes to enrichment whenever an IP is
	// missing.
	Enricher   Enricher
	Planner    Planner
	Summarizer Summarizer
	// Aliases map extra routing names to worker names, for example
	// "firewall" to ["palo_alto"].
	Aliases map[string][]string
	// SystemPrompt is prepended to the planner instruction.
	SystemPrompt string
}
