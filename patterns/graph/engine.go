package graph

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// Engine runs the triage graph. It is safe for concurrent use; every
// RunGraph call owns its State.
type Engine struct {
	router      *Router
	aggregator  *Aggregator
	enricher    Enricher
	workers     map[string]Worker
	workerNames []string
	fanOut      fanOutTable
	config      engineConfig
}

// New validates config and builds the fan-out table once.
func New(config Config, opts ...Option) (*Engine, error) {
	if config.Enricher == nil {
		return nil, ErrNoEnricher
	}
	if config.Planner == nil {
		return nil, fmt.Errorf("%w: planner is required", ErrInvalidConfig)
	}
	if config.Summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer is required", ErrInvalidConfig)
	}

	table, err := buildFanOutTable(config.Workers, config.Aliases)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		aggregator:  NewAggregator(config.Summarizer),
		enricher:    config.Enricher,
		workers:     make(map[string]Worker, len(config.Workers)),
		workerNames: slices.Clone(table[CatchAll]),
		fanOut:      table,
	}
	for _, worker := range config.Workers {
		engine.workers[worker.Name] = worker.Worker
	}
	engine.router = NewRouter(config.Planner, engine.workerNames, config.SystemPrompt)

	for _, opt := range opts {
		opt(&engine.config)
	}
	if engine.config.maxConcurrency < 0 {
		return nil, fmt.Errorf("%w: negative max concurrency", ErrInvalidConfig)
	}

	return engine, nil
}

// Workers returns the registered worker names in registration order.
func (engine *Engine) Workers() []string {
	return slices.Clone(engine.workerNames)
}

// RunGraph executes one request: decide, optionally enrich and decide again,
// fan out to the resolved workers and aggregate their results.
//
// The returned error is nil for every completed run, including one whose
// routing resolved to no worker (State.Report is nil then). Cancellation of
// ctx or the run deadline yields ErrCancellationRequested; a second
// enrichment yields ErrEnrichmentReentry. Collaborator failures never surface
// here: they are recovered inside the Router, the workers and the Aggregator.
func (engine *Engine) RunGraph(ctx context.Context, initial State, runConfig RunConfig) (State, error) {
	if !runConfig.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, runConfig.Deadline)
		defer cancel()
	}
	emitter := runConfig.Emitter
	if emitter == nil {
		emitter = nopEmitter{}
	}

	start := time.Now()
	ctx, span := engine.observeRunStart(ctx, runConfig.ThreadID)

	state, err := engine.run(ctx, initial, runConfig.ThreadID, emitter)
	if err != nil {
		engine.observeRunFailed(ctx, span, err, time.Since(start))
		return state, err
	}

	engine.observeRunCompleted(ctx, span, state, time.Since(start))
	return state, nil
}

func (engine *Engine) run(ctx context.Context, initial State, threadID string, emitter Emitter) (State, error) {
	state := engine.resume(ctx, initial, threadID)

	enrichmentRuns := 0
	var enrichmentError error
	for {
		if err := ctx.Err(); err != nil {
			return state, cancellation(err)
		}

		decision := engine.decide(ctx, state, emitter)
		state.Decision = &decision
		if err := ctx.Err(); err != nil {
			return state, cancellation(err)
		}

		if !slices.Contains(decision.NextSteps, NodeEnrichment) {
			break
		}
		if enrichmentRuns > 0 {
			if enrichmentError != nil {
				return state, fmt.Errorf("%w: last enrichment error: %w", ErrEnrichmentReentry, enrichmentError)
			}
			return state, ErrEnrichmentReentry
		}
		enrichmentRuns++
		enrichmentError = engine.enrich(ctx, &state, emitter)
	}

	workerNames, unknown := engine.fanOut.resolve(state.Decision.NextSteps)
	engine.observeUnknownNodes(ctx, unknown)
	if len(workerNames) == 0 {
		engine.saveCheckpoint(ctx, state, threadID)
		return state, nil
	}

	results, err := engine.runWorkers(ctx, state, workerNames, threadID, emitter)
	if err != nil {
		return state, err
	}
	state.WorkerResults = Merge(state.WorkerResults, results)

	if err := ctx.Err(); err != nil {
		return state, cancellation(err)
	}
	report := engine.aggregate(ctx, state, emitter)
	if err := ctx.Err(); err != nil {
		return state, cancellation(err)
	}
	state.Report = &report

	engine.saveCheckpoint(ctx, state, threadID)
	return state, nil
}

// resume copies initial so the caller's values are never shared with the run,
// then prepends the thread's checkpoint when one exists.
func (engine *Engine) resume(ctx context.Context, initial State, threadID string) State {
	state := State{
		Messages:      cloneMessages(initial.Messages),
		IncidentData:  cloneIncidentData(initial.IncidentData),
		WorkerResults: slices.Clone(initial.WorkerResults),
	}
	if initial.Decision != nil {
		decision := *initial.Decision
		state.Decision = &decision
	}

	store := engine.config.checkpointStore
	if store == nil || threadID == "" {
		return state
	}

	checkpoint, err := store.Load(ctx, threadID)
	if err != nil {
		if !errors.Is(err, ErrCheckpointNotFound) {
			engine.observeCheckpointError(ctx, "load", err)
		}
		return state
	}
	if checkpoint == nil {
		return state
	}

	state.Messages = append(cloneMessages(checkpoint.Messages), state.Messages...)
	incidentData := cloneIncidentData(checkpoint.IncidentData)
	maps.Copy(incidentData, state.IncidentData)
	state.IncidentData = incidentData
	return state
}

func (engine *Engine) saveCheckpoint(ctx context.Context, state State, threadID string) {
	store := engine.config.checkpointStore
	if store == nil || threadID == "" {
		return
	}

	checkpoint := Checkpoint{
		ThreadID:     threadID,
		Messages:     state.Messages,
		IncidentData: state.IncidentData,
		Report:       state.Report,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := store.Save(ctx, checkpoint); err != nil {
		engine.observeCheckpointError(ctx, "save", err)
	}
}

func (engine *Engine) decide(ctx context.Context, state State, emitter Emitter) Decision {
	emitter.Emit(Event{Type: EventNodeStart, Node: NodeRouter, Timestamp: time.Now()})
	nodeCtx, span := engine.observeNodeStart(ctx, NodeRouter, "decide")
	start := time.Now()

	decision := engine.router.Decide(nodeCtx, state)

	engine.observeDecision(nodeCtx, decision)
	engine.observeNodeEnd(nodeCtx, span, NodeRouter, nil, time.Since(start),
		observability.Strings(observability.AttrNextSteps, decision.NextSteps),
	)
	emitter.Emit(Event{
		Type:      EventRouting,
		Node:      NodeRouter,
		Decision:  &Decision{NextSteps: slices.Clone(decision.NextSteps), Reasoning: decision.Reasoning},
		Timestamp: time.Now(),
	})
	emitter.Emit(Event{Type: EventNodeEnd, Node: NodeRouter, Content: decision.Reasoning, Timestamp: time.Now()})
	return decision
}

// enrich merges the enricher's output into state. Its error is returned for
// diagnostics only: the run goes back to the Router either way.
func (engine *Engine) enrich(ctx context.Context, state *State, emitter Emitter) error {
	emitter.Emit(Event{Type: EventNodeStart, Node: NodeEnrichment, Timestamp: time.Now()})
	nodeCtx, span := engine.observeNodeStart(ctx, NodeEnrichment, "enrich")
	start := time.Now()

	updated, err := engine.enricher.Enrich(nodeCtx, cloneMessages(state.Messages), cloneIncidentData(state.IncidentData))

	keys := make([]string, 0, len(updated))
	for key, value := range updated {
		if existing, found := state.IncidentData[key]; !found || fmt.Sprint(existing) != fmt.Sprint(value) {
			keys = append(keys, key)
		}
		state.IncidentData[key] = value
	}
	slices.Sort(keys)

	content := "No incident data added"
	if len(keys) > 0 {
		content = "Updated incident data: " + strings.Join(keys, ", ")
	}
	if err != nil {
		content += ". Error: " + err.Error()
	}

	engine.observeNodeEnd(nodeCtx, span, NodeEnrichment, err, time.Since(start))
	emitter.Emit(Event{Type: EventNodeEnd, Node: NodeEnrichment, Content: content, Timestamp: time.Now()})
	return err
}

// runWorkers launches every named worker and waits for all of them. Each
// worker gets its own snapshot of state and sends its result over a channel.
// Results are placed by resolution index rather than arrival, so the merged
// order is stable across runs while the set is the same either way.
func (engine *Engine) runWorkers(ctx context.Context, state State, names []string, threadID string, emitter Emitter) ([]WorkerResult, error) {
	type indexedResult struct {
		index  int
		result WorkerResult
	}

	resultChannel := make(chan indexedResult, len(names))
	var group errgroup.Group
	if engine.config.maxConcurrency > 0 {
		group.SetLimit(engine.config.maxConcurrency)
	}

	for index, name := range names {
		view := snapshot(state, threadID)
		group.Go(func() error {
			resultChannel <- indexedResult{index: index, result: engine.runWorker(ctx, name, view, emitter)}
			return nil
		})
	}
	_ = group.Wait()
	close(resultChannel)

	if err := ctx.Err(); err != nil {
		return nil, cancellation(err)
	}

	results := make([]WorkerResult, len(names))
	for indexed := range resultChannel {
		results[indexed.index] = indexed.result
	}
	return results, nil
}

// runWorker converts an error or panic of the worker into a FAILURE result.
func (engine *Engine) runWorker(ctx context.Context, name string, view View, emitter Emitter) (result WorkerResult) {
	emitter.Emit(Event{Type: EventNodeStart, Node: name, Timestamp: time.Now()})
	workerCtx := ContextWithEmitter(ctx, emitter, name)
	workerCtx, span := engine.observeNodeStart(workerCtx, name, "diagnose")
	start := time.Now()

	var workerError *WorkerError
	defer func() {
		if recovered := recover(); recovered != nil {
			workerError = &WorkerError{Worker: name, Err: fmt.Errorf("panic: %v", recovered)}
			result = failedResult(name, workerError)
		}

		var nodeError error
		if workerError != nil {
			nodeError = workerError
		}
		engine.observeWorkerResult(workerCtx, result)
		engine.observeNodeEnd(workerCtx, span, name, nodeError, time.Since(start),
			observability.String(observability.AttrStatus, string(result.Status)),
		)
		emitter.Emit(Event{Type: EventNodeEnd, Node: name, Content: result.Summary, Timestamp: time.Now()})
	}()

	if err := ctx.Err(); err != nil {
		workerError = &WorkerError{Worker: name, Err: err}
		return failedResult(name, workerError)
	}

	output, err := engine.workers[name].Run(workerCtx, view)
	if err != nil {
		workerError = &WorkerError{Worker: name, Err: err}
		return failedResult(name, workerError)
	}

	output.WorkerName = name
	if output.Status == "" {
		output.Status = StatusUnknown
	}
	return output
}

func failedResult(name string, workerError *WorkerError) WorkerResult {
	return WorkerResult{
		WorkerName: name,
		Status:     StatusFailure,
		Summary:    workerError.Err.Error(),
	}
}

func (engine *Engine) aggregate(ctx context.Context, state State, emitter Emitter) Report {
	emitter.Emit(Event{Type: EventNodeStart, Node: NodeAggregator, Timestamp: time.Now()})
	nodeCtx, span := engine.observeNodeStart(ctx, NodeAggregator, "aggregate")
	start := time.Now()

	report := engine.aggregator.Aggregate(nodeCtx, state)

	engine.observeNodeEnd(nodeCtx, span, NodeAggregator, nil, time.Since(start),
		observability.Int(observability.AttrWorkerCount, len(state.WorkerResults)),
	)
	// A summarizer interrupted by cancellation yields a fallback report that
	// is never published.
	if ctx.Err() == nil {
		emitted := report
		emitted.FailedWorkers = slices.Clone(report.FailedWorkers)
		emitter.Emit(Event{Type: EventReport, Node: NodeAggregator, Report: &emitted, Timestamp: time.Now()})
	}
	emitter.Emit(Event{Type: EventNodeEnd, Node: NodeAggregator, Content: report.RootCause, Timestamp: time.Now()})
	return report
}
