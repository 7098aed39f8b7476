package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antagligen/agent-triage-ralph-antigravity/core/client"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
)

// TriageInstruction is the system prompt of the summarization call.
const TriageInstruction = "You are a Senior Site Reliability Engineer (SRE). " +
	"Your task is to analyze the following connectivity triage reports from various sub-agents " +
	"and determine the root cause of the issue.\n\n" +
	"Provide a concise Root Cause, Detailed Explanation, and Recommended Action."

// analysis is the structured answer requested from the model. The list of
// failed agents is not part of it: the graph computes that itself.
type analysis struct {
	RootCause         string `json:"root_cause" jsonschema:"description=Most likely root cause of the connectivity issue"`
	Details           string `json:"details" jsonschema:"description=Explanation supported by the agent reports"`
	RecommendedAction string `json:"recommended_action" jsonschema:"description=Next action for the operator"`
}

// Summarizer asks the model for the root-cause analysis.
type Summarizer struct {
	client *client.StructuredClient[analysis]
}

var _ graph.Summarizer = (*Summarizer)(nil)

// NewSummarizer wraps baseClient. The triage instruction is sent with every
// call, whatever system prompt baseClient carries.
func NewSummarizer(baseClient *client.Client) (*Summarizer, error) {
	structured, err := client.FromBaseClient[analysis](baseClient)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: summarizer: %w", err)
	}
	return &Summarizer{client: structured}, nil
}

// Summarize sends the incident data and both briefs in one user message.
func (summarizer *Summarizer) Summarize(ctx context.Context, request graph.SummaryRequest) (graph.Report, error) {
	response, err := summarizer.client.SendMessage(ctx, summaryPrompt(request), client.WithInstructions(TriageInstruction))
	if err != nil {
		return graph.Report{}, err
	}

	if strings.TrimSpace(response.Data.RootCause) == "" {
		return graph.Report{}, fmt.Errorf("orchestrator: model returned an empty root cause")
	}
	return graph.Report{
		RootCause:         response.Data.RootCause,
		Details:           response.Data.Details,
		RecommendedAction: response.Data.RecommendedAction,
	}, nil
}

func summaryPrompt(request graph.SummaryRequest) string {
	incidentData, err := json.Marshal(request.IncidentData)
	if err != nil {
		incidentData = []byte("{}")
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Incident Data: %s\n\n", incidentData)
	builder.WriteString("Successful Sub-Agent Reports:\n")
	builder.WriteString(orNone(request.SuccessBrief))
	builder.WriteString("\n\nFailed Sub-Agent Reports:\n")
	builder.WriteString(orNone(request.FailureBrief))
	return builder.String()
}

func orNone(brief string) string {
	if brief == "" {
		return "None"
	}
	return brief
}
