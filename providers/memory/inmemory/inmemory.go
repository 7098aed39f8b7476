package inmemory

import (
	"context"
	"sync"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/memory"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// ArrayMemory is a concurrency-safe in-memory message store.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
}

// New returns an empty ArrayMemory.
func New() *ArrayMemory {
	return &ArrayMemory{
		messages: []ai.Message{},
	}
}

// NewWithMessages returns an ArrayMemory seeded with a copy of messages.
func NewWithMessages(messages []ai.Message) *ArrayMemory {
	seeded := make([]ai.Message, len(messages))
	copy(seeded, messages)
	return &ArrayMemory{messages: seeded}
}

var _ memory.Provider = (*ArrayMemory)(nil)

// AppendMessage stores a copy of message at the end of the history.
// When a span is present in ctx an append event is recorded on it.
func (m *ArrayMemory) AppendMessage(ctx context.Context, message *ai.Message) {
	if message == nil {
		return
	}

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventMemoryAppend,
			observability.String(observability.AttrMemoryMessageRole, string(message.Role)),
			observability.Int(observability.AttrMemoryMessageLength, len(message.Content)),
		)
	}

	stored := *message
	stored.ToolCalls = append([]ai.ToolCall(nil), message.ToolCalls...)

	m.mu.Lock()
	m.messages = append(m.messages, stored)
	totalMessages := len(m.messages)
	m.mu.Unlock()

	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrMemoryTotalMessages, totalMessages))
	}
}

// Count returns the number of stored messages. The error is always nil.
func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages), nil
}

// AllMessages returns a copy of the history. The error is always nil.
func (m *ArrayMemory) AllMessages(_ context.Context) ([]ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ai.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

// LastMessages returns up to n of the newest messages as a new slice. It is
// empty, never nil, when n is not positive.
func (m *ArrayMemory) LastMessages(_ context.Context, n int) ([]ai.Message, error) {
	if n <= 0 {
		return []ai.Message{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n = min(n, len(m.messages))
	out := make([]ai.Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	return out, nil
}

// ClearMessages removes every message but keeps the slice capacity.
func (m *ArrayMemory) ClearMessages(ctx context.Context) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}

	m.mu.Lock()
	m.messages = m.messages[:0]
	m.mu.Unlock()
}
