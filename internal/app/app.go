package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/antagligen/agent-triage-ralph-antigravity/core/client"
	"github.com/antagligen/agent-triage-ralph-antigravity/core/client/middleware"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/config"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/orchestrator"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/react"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	_ "github.com/antagligen/agent-triage-ralph-antigravity/providers/ai/gemini"
	_ "github.com/antagligen/agent-triage-ralph-antigravity/providers/ai/openai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability/otelobs"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability/promobs"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability/slogobs"
)

// LLMTimeout bounds a single provider call, retries excluded.
const LLMTimeout = 90 * time.Second

// ErrEmptyMessage is returned by Run when the request has no text.
var ErrEmptyMessage = errors.New("app: message is empty")

// Request is one user turn.
type Request struct {
	Message      string
	ThreadID     string
	IncidentData map[string]any
	// ModelName and ModelProvider override the configured orchestrator model
	// for this request only.
	ModelName     string
	ModelProvider string
}

// App owns the long-lived resources shared by every run.
type App struct {
	config   *config.AppConfig
	observer observability.Provider
	logger   *slog.Logger
	registry *prometheus.Registry
	store    graph.CheckpointStore
	provider ai.Provider

	mu      sync.Mutex
	engines map[engineKey]*graph.Engine
	closers []func(context.Context) error
}

type engineKey struct {
	provider string
	model    string
}

// Option configures New.
type Option func(*App)

// WithObserver replaces the default slog, OpenTelemetry and Prometheus stack.
func WithObserver(observer observability.Provider) Option {
	return func(a *App) {
		a.observer = observer
	}
}

// WithProvider makes every engine use provider instead of looking the
// configured vendor up in the registry.
func WithProvider(provider ai.Provider) Option {
	return func(a *App) {
		a.provider = provider
	}
}

// WithCheckpointStore replaces the store selected by the configuration.
func WithCheckpointStore(store graph.CheckpointStore) Option {
	return func(a *App) {
		a.store = store
	}
}

// New builds the App. The default engine is created eagerly so configuration
// mistakes surface at startup.
func New(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: configuration is nil")
	}

	a := &App{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		engines:  map[engineKey]*graph.Engine{},
	}
	for _, opt := range opts {
		opt(a)
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if a.observer == nil {
		a.observer = a.defaultObserver()
	}

	if a.store == nil {
		store, closer, err := openCheckpointStore(ctx, cfg.Checkpoint, a.observer)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.store = store
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	if _, err := a.Engine(cfg); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// defaultObserver logs through slog, traces through an OpenTelemetry SDK
// tracer provider and records metrics in the App's Prometheus registry.
func (a *App) defaultObserver() observability.Provider {
	logs := slogobs.New()
	a.logger = logs.Logger()

	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())))
	a.closers = append(a.closers, tracerProvider.Shutdown)

	traced := otelobs.New(logs, otelobs.WithTracerProvider(tracerProvider))
	return promobs.New(traced, a.registry)
}

// Config returns the startup configuration.
func (a *App) Config() *config.AppConfig { return a.config }

// Observer returns the observability provider.
func (a *App) Observer() observability.Provider { return a.observer }

// Registry returns the Prometheus registry served at /metrics.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Engine returns the engine for cfg, building it on first use. Engines are
// cached per orchestrator provider and model.
func (a *App) Engine(cfg *config.AppConfig) (*graph.Engine, error) {
	key := engineKey{provider: cfg.OrchestratorProvider, model: cfg.OrchestratorModel}

	a.mu.Lock()
	defer a.mu.Unlock()

	if engine, found := a.engines[key]; found {
		return engine, nil
	}
	engine, err := a.buildEngine(cfg)
	if err != nil {
		return nil, err
	}
	a.engines[key] = engine
	return engine, nil
}

// Run executes one triage run for request, sending events to emitter.
func (a *App) Run(ctx context.Context, request Request, emitter graph.Emitter) (graph.State, error) {
	message := strings.TrimSpace(request.Message)
	if message == "" {
		return graph.State{}, ErrEmptyMessage
	}

	cfg, err := a.config.WithOverrides(request.ModelName, request.ModelProvider)
	if err != nil {
		return graph.State{}, fmt.Errorf("app: invalid override: %w", err)
	}
	engine, err := a.Engine(cfg)
	if err != nil {
		return graph.State{}, err
	}

	initial := graph.State{
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: message}},
		IncidentData: request.IncidentData,
	}
	return engine.RunGraph(ctx, initial, graph.RunConfig{ThreadID: request.ThreadID, Emitter: emitter})
}

// Close releases the checkpoint store and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) buildEngine(cfg *config.AppConfig) (*graph.Engine, error) {
	provider, err := a.llmProvider(cfg.OrchestratorProvider)
	if err != nil {
		return nil, err
	}
	newClient := func(systemPrompt string) (*client.Client, error) {
		return client.New(provider,
			client.WithDefaultModel(cfg.OrchestratorModel),
			client.WithTemperature(0),
			client.WithSystemPrompt(systemPrompt),
			client.WithObserver(a.observer),
			client.WithMiddleware(a.middlewares()...),
		)
	}

	tools, err := newToolset(cfg, a.observer)
	if err != nil {
		return nil, err
	}

	var workers []graph.NamedWorker
	for _, agent := range cfg.DiagnosticAgents() {
		catalog, err := tools.catalog(agent)
		if err != nil {
			return nil, err
		}
		agentClient, err := newClient(agentPrompt(agent))
		if err != nil {
			return nil, err
		}
		worker, err := react.New(agent.Name, agentClient, catalog, react.WithMaxIterations(cfg.MaxIterations))
		if err != nil {
			return nil, fmt.Errorf("app: agent %q: %w", agent.Name, err)
		}
		workers = append(workers, graph.NamedWorker{Name: agent.Name, Worker: worker})
	}

	plannerClient, err := newClient(cfg.SystemPrompt)
	if err != nil {
		return nil, err
	}
	planner, err := orchestrator.NewPlanner(plannerClient)
	if err != nil {
		return nil, err
	}

	summarizerClient, err := newClient(orchestrator.TriageInstruction)
	if err != nil {
		return nil, err
	}
	summarizer, err := orchestrator.NewSummarizer(summarizerClient)
	if err != nil {
		return nil, err
	}

	engine, err := graph.New(graph.Config{
		Workers:      workers,
		Enricher:     tools.enricher(),
		Planner:      planner,
		Summarizer:   summarizer,
		Aliases:      cfg.Aliases,
		SystemPrompt: cfg.SystemPrompt,
	},
		graph.WithObserver(a.observer),
		graph.WithMaxConcurrency(cfg.MaxConcurrency),
		graph.WithCheckpointStore(a.store),
	)
	if err != nil {
		return nil, fmt.Errorf("app: building graph: %w", err)
	}
	return engine, nil
}

func (a *App) llmProvider(name string) (ai.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	return ai.NewProvider(name)
}

func (a *App) middlewares() []client.Middleware {
	middlewares := []client.Middleware{
		middleware.NewRetryMiddleware(middleware.RetryConfig{}),
		middleware.NewTimeoutMiddleware(LLMTimeout),
	}
	if a.logger != nil {
		middlewares = append(middlewares, middleware.NewLoggingMiddleware(a.logger, middleware.LogLevelMinimal))
	}
	return middlewares
}

func agentPrompt(agent config.SubAgent) string {
	return fmt.Sprintf("You are the %s diagnostic agent. %s\n"+
		"Investigate the connectivity issue described by the user with your tools, "+
		"then answer with a short diagnosis of what you found.", agent.Name, agent.Description)
}
