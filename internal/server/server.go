package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/app"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/config"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// ServiceName is reported by GET /health.
const ServiceName = "ai-troubleshoot-agent"

// ThreadIDHeader carries the thread id of a /chat stream.
const ThreadIDHeader = "X-Thread-ID"

const (
	defaultEventBuffer = 256
	shutdownTimeout    = 10 * time.Second
)

// Runner executes one triage request. *app.App implements it.
type Runner interface {
	Run(ctx context.Context, request app.Request, emitter graph.Emitter) (graph.State, error)
}

// Server is the HTTP front end.
type Server struct {
	runner      Runner
	summary     config.Summary
	gatherer    prometheus.Gatherer
	observer    observability.Provider
	limiter     *rate.Limiter
	eventBuffer int
	router      *gin.Engine
}

// Option configures New.
type Option func(*Server)

// WithGatherer serves gatherer at /metrics instead of the default registry.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithObserver sets the provider used for request logs and metrics.
func WithObserver(observer observability.Provider) Option {
	return func(s *Server) {
		s.observer = observer
	}
}

// WithRateLimit limits POST /chat to limit requests per second with the
// given burst. A non-positive limit disables limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(s *Server) {
		if limit <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(limit), max(burst, 1))
	}
}

// WithEventBuffer sets how many run events may queue before new ones are
// dropped.
func WithEventBuffer(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.eventBuffer = size
		}
	}
}

// New builds the router. summary is served as is by GET /config.
func New(runner Runner, summary config.Summary, opts ...Option) *Server {
	s := &Server{
		runner:      runner,
		summary:     summary,
		gatherer:    prometheus.DefaultGatherer,
		eventBuffer: defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.observe())

	router.GET("/health", s.handleHealth)
	router.GET("/config", s.handleConfig)
	router.POST("/chat", s.rateLimit(), s.handleChat)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	s.router = router
	return s
}

// FromApp wires a Server to application, its Prometheus registry and its
// configured rate limit.
func FromApp(application *app.App, opts ...Option) *Server {
	cfg := application.Config()
	base := []Option{
		WithGatherer(application.Registry()),
		WithObserver(application.Observer()),
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst),
	}
	return New(application, cfg.Summary(), append(base, opts...)...)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. Streams still open get shutdownTimeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.info(ctx, "http server listening", observability.String(observability.AttrHTTPURL, addr))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.summary)
}

func (s *Server) info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if s.observer != nil {
		s.observer.Info(ctx, msg, attrs...)
	}
}
