package graph

import (
	"context"
	"errors"
	"time"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

// ErrCheckpointNotFound is returned by CheckpointStore.Load when the thread
// has no checkpoint yet.
var ErrCheckpointNotFound = errors.New("graph: checkpoint not found")

// Checkpoint is what a store keeps for a thread between requests.
type Checkpoint struct {
	ThreadID     string         `json:"thread_id"`
	Messages     []ai.Message   `json:"messages"`
	IncidentData map[string]any `json:"incident_data"`
	Report       *Report        `json:"report,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CheckpointStore persists run state keyed by thread id. It is the only state
// shared between runs, so implementations must be safe for concurrent use.
type CheckpointStore interface {
	Load(ctx context.Context, threadID string) (*Checkpoint, error)
	Save(ctx context.Context, checkpoint Checkpoint) error
}
