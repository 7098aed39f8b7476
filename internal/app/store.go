package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/config"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/checkpoint"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/checkpoint/badgercheckpoint"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/checkpoint/inmemory"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/checkpoint/pgcheckpoint"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// openCheckpointStore opens the configured driver. The returned closer may be
// nil.
func openCheckpointStore(ctx context.Context, cfg config.Checkpoint, observer observability.Provider) (graph.CheckpointStore, func(context.Context) error, error) {
	switch cfg.Driver {
	case "", checkpoint.DriverMemory:
		return checkpoint.Instrument(inmemory.New(), checkpoint.DriverMemory, observer), nil, nil

	case checkpoint.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("app: postgres checkpoint store: %w", err)
		}
		store := pgcheckpoint.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		closer := func(context.Context) error {
			pool.Close()
			return nil
		}
		return checkpoint.Instrument(store, checkpoint.DriverPostgres, observer), closer, nil

	case checkpoint.DriverBadger:
		store, err := badgercheckpoint.Open(badgercheckpoint.Options{Path: cfg.Path, TTL: cfg.TTL, Observer: observer})
		if err != nil {
			return nil, nil, err
		}
		closer := func(context.Context) error { return store.Close() }
		return checkpoint.Instrument(store, checkpoint.DriverBadger, observer), closer, nil

	default:
		return nil, nil, fmt.Errorf("app: unknown checkpoint driver %q", cfg.Driver)
	}
}
