package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

const (
	briefSeparator       = "\n---\n"
	failedRootCause      = "Analysis Failed"
	failedRecommendation = "Manual investigation required"
)

// Aggregator builds the final Report from the worker results.
type Aggregator struct {
	summarizer Summarizer
}

func NewAggregator(summarizer Summarizer) *Aggregator {
	return &Aggregator{summarizer: summarizer}
}

// Aggregate partitions the results into successes and failures, asks the
// summarizer for the analysis and fills FailedWorkers itself. A summarizer
// failure yields the "Analysis Failed" report; Aggregate never fails.
func (aggregator *Aggregator) Aggregate(ctx context.Context, state State) Report {
	var succeeded, failed []WorkerResult
	failedWorkers := []string{}
	for _, result := range state.WorkerResults {
		if result.Status == StatusFailure {
			failed = append(failed, result)
			failedWorkers = append(failedWorkers, result.WorkerName)
			continue
		}
		succeeded = append(succeeded, result)
	}

	request := SummaryRequest{
		SuccessBrief: brief(succeeded),
		FailureBrief: brief(failed),
		IncidentData: cloneIncidentData(state.IncidentData),
	}

	report, err := aggregator.summarizer.Summarize(ctx, request)
	if err != nil {
		summarizationError := &SummarizationError{Err: err}
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Error(ctx, "summarizer failed, returning fallback report", observability.Error(summarizationError))
		}
		report = Report{
			RootCause:         failedRootCause,
			Details:           err.Error(),
			RecommendedAction: failedRecommendation,
		}
	}

	report.FailedWorkers = failedWorkers
	return report
}

// brief renders results as "Worker/Status/Summary" blocks.
func brief(results []WorkerResult) string {
	entries := make([]string, 0, len(results))
	for _, result := range results {
		entries = append(entries, fmt.Sprintf("Worker: %s\nStatus: %s\nSummary: %s", result.WorkerName, result.Status, result.Summary))
	}
	return strings.Join(entries, briefSeparator)
}
