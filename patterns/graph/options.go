package graph

import (
	"time"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// Option configures an Engine. Options are applied by New.
type Option func(*engineConfig)

type engineConfig struct {
	observer        observability.Provider
	maxConcurrency  int
	checkpointStore CheckpointStore
}

// WithObserver enables tracing, metrics and logging for every run. The
// provider is also attached to the context handed to workers, the planner and
// the summarizer.
func WithObserver(observer observability.Provider) Option {
	return func(config *engineConfig) {
		config.observer = observer
	}
}

// WithMaxConcurrency limits how many workers of a fan-out run at once. A
// value of 0 (default) means every resolved worker starts immediately.
//
// Example:
//
//	graph.New(config,
//	    graph.WithMaxConcurrency(2), // at most 2 device backends queried at once
//	)
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(config *engineConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithCheckpointStore persists each completed run under its thread id and
// seeds later runs of the same thread with the stored messages and incident
// data.
func WithCheckpointStore(store CheckpointStore) Option {
	return func(config *engineConfig) {
		config.checkpointStore = store
	}
}

// RunConfig identifies and bounds a single run.
type RunConfig struct {
	// ThreadID correlates the run with its caller and keys checkpoints.
	ThreadID string
	// Deadline, when not zero, cancels the run at that instant.
	Deadline time.Time
	// Emitter receives the run's events. Nil discards them.
	Emitter Emitter
}
