package graph

import (
	"slices"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

// Incident data keys the Router requires before planning.
const (
	KeySourceIP      = "source_ip"
	KeyDestinationIP = "destination_ip"
)

// Status is the outcome of one worker invocation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusUnknown Status = "UNKNOWN"
)

// State is the context carried through a run.
//
// Each field has a single writer: Messages are appended by the decision and
// enrichment phases, IncidentData keys are replaced by enrichment, Decision is
// the last Router output, WorkerResults only grow through Merge and Report is
// written once by the Aggregator.
type State struct {
	Messages      []ai.Message   `json:"messages"`
	IncidentData  map[string]any `json:"incident_data"`
	Decision      *Decision      `json:"decision,omitempty"`
	WorkerResults []WorkerResult `json:"worker_results"`
	Report        *Report        `json:"report,omitempty"`
}

// Decision is the Router output.
type Decision struct {
	NextSteps []string `json:"next_steps" jsonschema:"description=Names of the agents to run next. Use 'sub_agents' to run every diagnostic agent"`
	// Reasoning is logged and emitted only. It never affects control flow.
	Reasoning string `json:"reasoning" jsonschema:"description=Short explanation of the routing decision"`
}

// WorkerResult is the immutable outcome of one worker invocation.
type WorkerResult struct {
	WorkerName string         `json:"worker_name"`
	Status     Status         `json:"status"`
	Summary    string         `json:"summary"`
	RawData    map[string]any `json:"raw_data,omitempty"`
}

// Report is the terminal output of a run.
type Report struct {
	RootCause         string `json:"root_cause"`
	Details           string `json:"details"`
	RecommendedAction string `json:"recommended_action"`
	// FailedWorkers is computed from the worker results, never taken from
	// model output.
	FailedWorkers []string `json:"failed_workers"`
}

// Merge appends incoming to existing. The relative order of incoming is kept,
// nothing is deduplicated and neither input is modified.
func Merge(existing, incoming []WorkerResult) []WorkerResult {
	merged := make([]WorkerResult, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	return append(merged, incoming...)
}

// hasIncidentKey reports whether key holds a non-empty value.
func hasIncidentKey(incidentData map[string]any, key string) bool {
	value, found := incidentData[key]
	if !found || value == nil {
		return false
	}
	if text, isString := value.(string); isString {
		return text != ""
	}
	return true
}

// View is the read-only snapshot handed to a worker at fan-out time.
type View struct {
	ThreadID     string
	Messages     []ai.Message
	IncidentData map[string]any
	Decision     Decision
}

// snapshot deep-copies the parts of state a worker may read, so concurrent
// workers never share mutable data with the run.
func snapshot(state State, threadID string) View {
	view := View{
		ThreadID:     threadID,
		Messages:     cloneMessages(state.Messages),
		IncidentData: cloneIncidentData(state.IncidentData),
	}
	if state.Decision != nil {
		view.Decision = Decision{
			NextSteps: slices.Clone(state.Decision.NextSteps),
			Reasoning: state.Decision.Reasoning,
		}
	}
	return view
}

func cloneMessages(messages []ai.Message) []ai.Message {
	cloned := make([]ai.Message, len(messages))
	for i, message := range messages {
		cloned[i] = message
		cloned[i].ToolCalls = slices.Clone(message.ToolCalls)
	}
	return cloned
}

// cloneIncidentData deep-copies nested maps and slices. Other values are
// copied as is. It never returns nil.
func cloneIncidentData(incidentData map[string]any) map[string]any {
	cloned := make(map[string]any, len(incidentData))
	for key, value := range incidentData {
		cloned[key] = cloneValue(value)
	}
	return cloned
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneIncidentData(typed)
	case []any:
		cloned := make([]any, len(typed))
		for i, item := range typed {
			cloned[i] = cloneValue(item)
		}
		return cloned
	case []string:
		return slices.Clone(typed)
	default:
		return value
	}
}
