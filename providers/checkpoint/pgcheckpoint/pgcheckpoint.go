package pgcheckpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/checkpoint"
)

const defaultTableName = "triage_checkpoints"

// Querier is the subset of pgx shared by pools, connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a graph.CheckpointStore backed by PostgreSQL.
type Store struct {
	db        Querier
	tableName string
}

var _ graph.CheckpointStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTableName overrides the table name. The name is quoted as an identifier.
func WithTableName(name string) Option {
	return func(s *Store) {
		s.tableName = pgx.Identifier{name}.Sanitize()
	}
}

// New returns a Store using db.
func New(db Querier, opts ...Option) *Store {
	store := &Store{db: db, tableName: defaultTableName}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Load reads the thread's document. A missing row is graph.ErrCheckpointNotFound.
func (s *Store) Load(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	if err := checkpoint.ValidateThreadID(threadID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT document FROM %s WHERE thread_id = $1`, s.tableName)

	var document []byte
	if err := s.db.QueryRow(ctx, query, threadID).Scan(&document); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, graph.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("pgcheckpoint: load %s: %w", threadID, err)
	}
	return checkpoint.Unmarshal(document)
}

// Save upserts the thread's row.
func (s *Store) Save(ctx context.Context, saved graph.Checkpoint) error {
	document, err := checkpoint.Marshal(saved)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (thread_id, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (thread_id) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`, s.tableName)

	if _, err := s.db.Exec(ctx, query, saved.ThreadID, document); err != nil {
		return fmt.Errorf("pgcheckpoint: save %s: %w", saved.ThreadID, err)
	}
	return nil
}

// Delete removes the thread's row. Deleting a missing thread is not an error.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	if err := checkpoint.ValidateThreadID(threadID); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE thread_id = $1`, s.tableName)
	if _, err := s.db.Exec(ctx, query, threadID); err != nil {
		return fmt.Errorf("pgcheckpoint: delete %s: %w", threadID, err)
	}
	return nil
}
