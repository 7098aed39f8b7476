package react

import (
	"context"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

const (
	// attrReactIteration is the 1-based iteration number of the loop.
	attrReactIteration = "react.iteration"

	// metricReactToolErrorCount counts failed or unknown tool calls.
	metricReactToolErrorCount = "triage.react.tool_error.count"
)

// observer prefers the client's observer and falls back to the one carried by
// ctx, which the graph engine attaches to every worker.
func (agent *ReAct) observer(ctx context.Context) observability.Provider {
	if observer := agent.client.Observer(); observer != nil {
		return observer
	}
	return observability.ObserverFromContext(ctx)
}

func (agent *ReAct) observeIteration(ctx context.Context, observer observability.Provider, iteration int) {
	if observer == nil {
		return
	}
	observer.Debug(ctx, "react iteration",
		observability.String(observability.AttrWorkerName, agent.name),
		observability.Int(attrReactIteration, iteration),
	)
}

func (agent *ReAct) observeToolError(ctx context.Context, observer observability.Provider, toolName string, toolError error) {
	if observer == nil {
		return
	}
	observer.Counter(metricReactToolErrorCount).Add(ctx, 1,
		observability.String(observability.AttrWorkerName, agent.name),
		observability.String(observability.AttrToolName, toolName),
	)
	observer.Warn(ctx, "tool call failed",
		observability.String(observability.AttrWorkerName, agent.name),
		observability.String(observability.AttrToolName, toolName),
		observability.Error(toolError),
	)
}

func (agent *ReAct) observeMaxIterations(ctx context.Context, observer observability.Provider) {
	if observer == nil {
		return
	}
	observer.Warn(ctx, "max iterations reached",
		observability.String(observability.AttrWorkerName, agent.name),
		observability.Int(attrReactIteration, agent.maxIterations),
	)
}
