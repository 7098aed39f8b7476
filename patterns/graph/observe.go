package graph

import (
	"context"
	"time"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/utils"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

const (
	// spanGraphRun covers a whole RunGraph call.
	spanGraphRun = "graph.run"

	// spanGraphNode covers one node: decision, enrichment, worker or aggregation.
	spanGraphNode = "graph.node"

	// attrGraphNode identifies the node.
	attrGraphNode = "graph.node"

	// metricGraphRunDuration is the histogram of whole run durations.
	metricGraphRunDuration = "triage.graph.run.duration"

	// metricGraphNodeDuration is the histogram of node durations.
	metricGraphNodeDuration = "triage.graph.node.duration"

	// metricGraphWorkerCount counts worker results by status.
	metricGraphWorkerCount = "triage.graph.worker.count"

	// metricGraphUnknownNodeCount counts routing names that resolved to nothing.
	metricGraphUnknownNodeCount = "triage.graph.unknown_node.count"
)

// observeRunStart opens the run span and attaches the observer to the context
// so that collaborators can log through observability.ObserverFromContext.
func (engine *Engine) observeRunStart(ctx context.Context, threadID string) (context.Context, observability.Span) {
	observer := engine.config.observer
	if observer == nil {
		return ctx, nil
	}

	ctx, span := observer.StartSpan(ctx, spanGraphRun, observability.String(observability.AttrThreadID, threadID))
	ctx = observability.ContextWithSpan(ctx, span)
	ctx = observability.ContextWithObserver(ctx, observer)

	observer.Info(ctx, "triage run started",
		observability.String(observability.AttrThreadID, threadID),
		observability.Int(observability.AttrWorkerCount, len(engine.workerNames)),
	)
	return ctx, span
}

func (engine *Engine) observeRunCompleted(ctx context.Context, span observability.Span, state State, duration time.Duration) {
	observer := engine.config.observer
	if observer == nil {
		return
	}

	status := "completed"
	if state.Report == nil {
		status = "no_report"
	}
	observer.Histogram(metricGraphRunDuration).Record(ctx, duration.Seconds(), observability.String(observability.AttrStatus, status))
	observer.Info(ctx, "triage run completed",
		observability.String(observability.AttrStatus, status),
		observability.Int(observability.AttrWorkerCount, len(state.WorkerResults)),
		observability.Duration(observability.AttrDuration, duration),
	)

	if span != nil {
		span.SetStatus(observability.StatusOK, "triage run "+status)
		span.End()
	}
}

func (engine *Engine) observeRunFailed(ctx context.Context, span observability.Span, runError error, duration time.Duration) {
	observer := engine.config.observer
	if observer == nil {
		return
	}

	observer.Histogram(metricGraphRunDuration).Record(ctx, duration.Seconds(), observability.String(observability.AttrStatus, "failed"))
	observer.Error(ctx, "triage run failed",
		observability.Error(runError),
		observability.Duration(observability.AttrDuration, duration),
	)

	if span != nil {
		span.RecordError(runError)
		span.SetStatus(observability.StatusError, "triage run failed")
		span.End()
	}
}

// observeNodeStart opens a child span for node.
func (engine *Engine) observeNodeStart(ctx context.Context, node string, phase string) (context.Context, observability.Span) {
	observer := engine.config.observer
	if observer == nil {
		return ctx, nil
	}

	ctx, span := observer.StartSpan(ctx, spanGraphNode,
		observability.String(attrGraphNode, node),
		observability.String(observability.AttrPhase, phase),
	)
	ctx = observability.ContextWithSpan(ctx, span)

	observer.Debug(ctx, "node started",
		observability.String(attrGraphNode, node),
		observability.String(observability.AttrPhase, phase),
	)
	return ctx, span
}

// observeNodeEnd closes the node span. A non-nil nodeError marks it failed.
func (engine *Engine) observeNodeEnd(ctx context.Context, span observability.Span, node string, nodeError error, duration time.Duration, attrs ...observability.Attribute) {
	observer := engine.config.observer
	if observer == nil {
		return
	}

	observer.Histogram(metricGraphNodeDuration).Record(ctx, duration.Seconds(), observability.String(attrGraphNode, node))

	logAttrs := append([]observability.Attribute{
		observability.String(attrGraphNode, node),
		observability.Duration(observability.AttrDuration, duration),
	}, attrs...)

	if nodeError != nil {
		logAttrs = append(logAttrs, observability.Error(nodeError))
		observer.Warn(ctx, "node failed", logAttrs...)
		if span != nil {
			span.RecordError(nodeError)
			span.SetStatus(observability.StatusError, "node failed")
			span.End()
		}
		return
	}

	observer.Debug(ctx, "node completed", logAttrs...)
	if span != nil {
		span.SetAttributes(attrs...)
		span.SetStatus(observability.StatusOK, "node completed")
		span.End()
	}
}

func (engine *Engine) observeDecision(ctx context.Context, decision Decision) {
	observer := engine.config.observer
	if observer == nil {
		return
	}

	observer.Info(ctx, "routing decision",
		observability.Strings(observability.AttrNextSteps, decision.NextSteps),
		observability.String(observability.AttrReasoning, utils.TruncateString(decision.Reasoning, 200)),
	)
}

func (engine *Engine) observeWorkerResult(ctx context.Context, result WorkerResult) {
	observer := engine.config.observer
	if observer == nil {
		return
	}

	observer.Counter(metricGraphWorkerCount).Add(ctx, 1,
		observability.String(observability.AttrWorkerName, result.WorkerName),
		observability.String(observability.AttrStatus, string(result.Status)),
	)
}

func (engine *Engine) observeUnknownNodes(ctx context.Context, unknown []string) {
	observer := engine.config.observer
	if observer == nil || len(unknown) == 0 {
		return
	}

	observer.Counter(metricGraphUnknownNodeCount).Add(ctx, int64(len(unknown)))
	observer.Warn(ctx, "skipping routing names without a worker",
		observability.Error(ErrUnknownNode),
		observability.Strings(observability.AttrNextSteps, unknown),
	)
}

func (engine *Engine) observeCheckpointError(ctx context.Context, operation string, checkpointError error) {
	observer := engine.config.observer
	if observer == nil {
		return
	}

	observer.Error(ctx, "checkpoint "+operation+" failed", observability.Error(checkpointError))
}
