package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// Driver names accepted in configuration.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// ErrEmptyThreadID is returned when a store is asked for the blank thread.
var ErrEmptyThreadID = errors.New("checkpoint: thread id is empty")

// Marshal encodes a checkpoint into the document kept by every store.
func Marshal(checkpoint graph.Checkpoint) ([]byte, error) {
	if strings.TrimSpace(checkpoint.ThreadID) == "" {
		return nil, ErrEmptyThreadID
	}
	if checkpoint.UpdatedAt.IsZero() {
		checkpoint.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode %s: %w", checkpoint.ThreadID, err)
	}
	return data, nil
}

// Unmarshal decodes a stored document. Numbers in the incident data come back
// as json.Number so integers keep their exact value.
func Unmarshal(data []byte) (*graph.Checkpoint, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var checkpoint graph.Checkpoint
	if err := decoder.Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("checkpoint: decode: %w", err)
	}
	if checkpoint.IncidentData == nil {
		checkpoint.IncidentData = map[string]any{}
	}
	return &checkpoint, nil
}

// ValidateThreadID rejects blank thread ids.
func ValidateThreadID(threadID string) error {
	if strings.TrimSpace(threadID) == "" {
		return ErrEmptyThreadID
	}
	return nil
}

type instrumented struct {
	store    graph.CheckpointStore
	driver   string
	observer observability.Provider
}

// Instrument wraps store so each operation gets a span, a duration sample and
// an error log. A nil observer returns store unchanged.
func Instrument(store graph.CheckpointStore, driver string, observer observability.Provider) graph.CheckpointStore {
	if observer == nil {
		return store
	}
	return &instrumented{store: store, driver: driver, observer: observer}
}

func (s *instrumented) Load(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	var checkpoint *graph.Checkpoint
	err := s.observe(ctx, "load", threadID, func(ctx context.Context) error {
		var err error
		checkpoint, err = s.store.Load(ctx, threadID)
		return err
	})
	return checkpoint, err
}

func (s *instrumented) Save(ctx context.Context, checkpoint graph.Checkpoint) error {
	return s.observe(ctx, "save", checkpoint.ThreadID, func(ctx context.Context) error {
		return s.store.Save(ctx, checkpoint)
	})
}

func (s *instrumented) observe(ctx context.Context, operation, threadID string, call func(context.Context) error) error {
	attrs := []observability.Attribute{
		observability.String(observability.AttrCheckpointOperation, operation),
		observability.String(observability.AttrCheckpointDriver, s.driver),
		observability.String(observability.AttrThreadID, threadID),
	}

	spanCtx, span := s.observer.StartSpan(ctx, observability.SpanCheckpoint, attrs...)
	defer span.End()

	start := time.Now()
	err := call(observability.ContextWithSpan(spanCtx, span))
	duration := time.Since(start)

	status := "success"
	switch {
	case errors.Is(err, graph.ErrCheckpointNotFound):
		status = "not_found"
		span.SetStatus(observability.StatusOK, "no checkpoint")
	case err != nil:
		status = "error"
		span.RecordError(err)
		span.SetStatus(observability.StatusError, err.Error())
		s.observer.Error(spanCtx, "checkpoint operation failed", append(attrs, observability.Error(err))...)
	default:
		span.SetStatus(observability.StatusOK, "")
	}

	s.observer.Histogram(observability.MetricCheckpointDuration).Record(spanCtx, duration.Seconds(),
		observability.String(observability.AttrCheckpointOperation, operation),
		observability.String(observability.AttrCheckpointDriver, s.driver),
		observability.String(observability.AttrStatus, status),
	)
	return err
}
