package graph

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// EventType tags an Event.
type EventType string

const (
	EventNodeStart    EventType = "node_start"
	EventNodeToolCall EventType = "node_tool_call"
	EventNodeEnd      EventType = "node_end"
	EventRouting      EventType = "routing"
	EventReport       EventType = "report"
)

// Event is a lifecycle notification. A node's start always precedes its own
// end; events of concurrent workers interleave in no particular order.
type Event struct {
	Type EventType
	Node string
	// Content is a short human readable description, such as the end summary.
	Content string
	// Tool and Input are set on EventNodeToolCall.
	Tool  string
	Input string
	// Decision is set on EventRouting.
	Decision *Decision
	// Report is set on EventReport.
	Report    *Report
	Timestamp time.Time
}

// Emitter receives engine events. Emit must not block.
type Emitter interface {
	Emit(event Event)
}

// ChannelEmitter is a buffered Emitter. When the buffer is full new events are
// dropped and counted, so a slow or gone consumer never stalls a run.
type ChannelEmitter struct {
	events  chan Event
	dropped atomic.Int64

	mutex  sync.RWMutex
	closed bool
}

// NewChannelEmitter returns an emitter buffering up to size events.
func NewChannelEmitter(size int) *ChannelEmitter {
	if size < 0 {
		size = 0
	}
	return &ChannelEmitter{events: make(chan Event, size)}
}

// Emit queues event, or drops it if the buffer is full or the emitter closed.
func (emitter *ChannelEmitter) Emit(event Event) {
	emitter.mutex.RLock()
	defer emitter.mutex.RUnlock()

	if emitter.closed {
		emitter.dropped.Add(1)
		return
	}
	select {
	case emitter.events <- event:
	default:
		emitter.dropped.Add(1)
	}
}

// Events returns the receive side. It is closed by Close.
func (emitter *ChannelEmitter) Events() <-chan Event {
	return emitter.events
}

// Dropped reports how many events were discarded.
func (emitter *ChannelEmitter) Dropped() int64 {
	return emitter.dropped.Load()
}

// Close closes the event channel. It is safe to call more than once and
// later Emit calls are counted as dropped.
func (emitter *ChannelEmitter) Close() {
	emitter.mutex.Lock()
	defer emitter.mutex.Unlock()

	if !emitter.closed {
		emitter.closed = true
		close(emitter.events)
	}
}

type nopEmitter struct{}

func (nopEmitter) Emit(Event) {}

var (
	_ Emitter = (*ChannelEmitter)(nil)
	_ Emitter = nopEmitter{}
)

type emitterContextKey struct{}

type nodeContextKey struct{}

// ContextWithEmitter attaches emitter and the emitting node's name to ctx.
// The engine does this for every worker it runs.
func ContextWithEmitter(ctx context.Context, emitter Emitter, node string) context.Context {
	ctx = context.WithValue(ctx, emitterContextKey{}, emitter)
	return context.WithValue(ctx, nodeContextKey{}, node)
}

// EmitterFromContext returns the emitter attached to ctx, or one that discards
// everything.
func EmitterFromContext(ctx context.Context) Emitter {
	if emitter, found := ctx.Value(emitterContextKey{}).(Emitter); found && emitter != nil {
		return emitter
	}
	return nopEmitter{}
}

// NodeFromContext returns the node name attached by ContextWithEmitter.
func NodeFromContext(ctx context.Context) string {
	node, _ := ctx.Value(nodeContextKey{}).(string)
	return node
}

// EmitToolCall reports that the current worker is calling a tool.
func EmitToolCall(ctx context.Context, tool, input string) {
	EmitterFromContext(ctx).Emit(Event{
		Type:      EventNodeToolCall,
		Node:      NodeFromContext(ctx),
		Tool:      tool,
		Input:     input,
		Timestamp: time.Now(),
	})
}
