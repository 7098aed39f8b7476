// Package inmemory is a process-local checkpoint store.
package inmemory

import (
	"context"
	"sync"

	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/checkpoint"
)

// Store keeps encoded checkpoints in a map, so callers never share state with
// what is stored.
type Store struct {
	mu        sync.RWMutex
	documents map[string][]byte
}

var _ graph.CheckpointStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{documents: map[string][]byte{}}
}

// Load returns graph.ErrCheckpointNotFound for an unknown thread.
func (s *Store) Load(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	if err := checkpoint.ValidateThreadID(threadID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	document, found := s.documents[threadID]
	s.mu.RUnlock()

	if !found {
		return nil, graph.ErrCheckpointNotFound
	}
	return checkpoint.Unmarshal(document)
}

// Save replaces the thread's checkpoint.
func (s *Store) Save(ctx context.Context, saved graph.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	document, err := checkpoint.Marshal(saved)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.documents[saved.ThreadID] = document
	s.mu.Unlock()
	return nil
}

// Len returns the number of threads stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}
