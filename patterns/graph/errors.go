package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrCancellationRequested is returned when the run's context is cancelled
	// or its deadline passes. It wraps the context error.
	ErrCancellationRequested = errors.New("graph: cancellation requested")
	// ErrUnknownNode marks a routing name that resolves to no worker. It is
	// logged and the name is skipped.
	ErrUnknownNode = errors.New("graph: unknown node")
	// ErrEnrichmentReentry is returned when a run asks for enrichment a
	// second time.
	ErrEnrichmentReentry = errors.New("graph: enrichment already ran for this request")
	// ErrNoEnricher is returned by New when Config.Enricher is nil.
	ErrNoEnricher = errors.New("graph: no enricher configured")
	// ErrInvalidConfig is returned by New for a malformed Config.
	ErrInvalidConfig = errors.New("graph: invalid config")
)

// PlanningError wraps a planner failure. The Router recovers from it with the
// full scan decision.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// WorkerError wraps the error or panic of a single worker.
type WorkerError struct {
	Worker string
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %s failed: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// SummarizationError wraps a summarizer failure. The Aggregator recovers from
// it with the "Analysis Failed" report.
type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// cancellation wraps the context error into ErrCancellationRequested.
func cancellation(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancellationRequested, cause)
}
