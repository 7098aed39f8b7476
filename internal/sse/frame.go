package sse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
)

// Frame types.
const (
	EventThought      = "thought"
	EventRouting      = "routing"
	EventTriageReport = "triage_report"
	EventError        = "error"
)

// Thought statuses, named after the node lifecycle stage they report.
const (
	StatusChainStart = "chain_start"
	StatusToolStart  = "tool_start"
	StatusChainEnd   = "chain_end"
)

// Frame is one SSE event. Data is the JSON payload exactly as sent.
type Frame struct {
	Event string
	Data  json.RawMessage
}

// Thought is the payload of a thought frame.
type Thought struct {
	Node      string `json:"node"`
	Status    string `json:"status"`
	Content   string `json:"content,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Input     string `json:"input,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Routing is the payload of a routing frame.
type Routing struct {
	Routing   []string `json:"routing"`
	Reasoning string   `json:"reasoning"`
}

// ErrorPayload is the payload of an error frame.
type ErrorPayload struct {
	Error string `json:"error"`
}

// FromEvent converts a graph event into its frame.
func FromEvent(event graph.Event) (Frame, error) {
	switch event.Type {
	case graph.EventNodeStart:
		return newFrame(EventThought, thought(event, StatusChainStart))
	case graph.EventNodeToolCall:
		return newFrame(EventThought, thought(event, StatusToolStart))
	case graph.EventNodeEnd:
		return newFrame(EventThought, thought(event, StatusChainEnd))
	case graph.EventRouting:
		routing := Routing{Routing: []string{}}
		if event.Decision != nil {
			routing.Reasoning = event.Decision.Reasoning
			if event.Decision.NextSteps != nil {
				routing.Routing = event.Decision.NextSteps
			}
		}
		return newFrame(EventRouting, routing)
	case graph.EventReport:
		if event.Report == nil {
			return Frame{}, fmt.Errorf("sse: report event without a report")
		}
		return newFrame(EventTriageReport, event.Report)
	default:
		return Frame{}, fmt.Errorf("sse: unsupported event type %q", event.Type)
	}
}

// ErrorFrame builds the frame sent when a run fails.
func ErrorFrame(err error) Frame {
	frame, _ := newFrame(EventError, ErrorPayload{Error: err.Error()})
	return frame
}

// Thought decodes a thought frame.
func (frame Frame) Thought() (Thought, error) {
	var payload Thought
	return payload, frame.decode(EventThought, &payload)
}

// Routing decodes a routing frame.
func (frame Frame) Routing() (Routing, error) {
	var payload Routing
	return payload, frame.decode(EventRouting, &payload)
}

// Report decodes a triage_report frame.
func (frame Frame) Report() (graph.Report, error) {
	var payload graph.Report
	return payload, frame.decode(EventTriageReport, &payload)
}

// Failure decodes an error frame.
func (frame Frame) Failure() (ErrorPayload, error) {
	var payload ErrorPayload
	return payload, frame.decode(EventError, &payload)
}

func (frame Frame) decode(want string, target any) error {
	if frame.Event != want {
		return fmt.Errorf("sse: frame is %q, not %q", frame.Event, want)
	}
	if err := json.Unmarshal(frame.Data, target); err != nil {
		return fmt.Errorf("sse: invalid %s payload: %w", want, err)
	}
	return nil
}

func thought(event graph.Event, status string) Thought {
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	return Thought{
		Node:      event.Node,
		Status:    status,
		Content:   event.Content,
		Tool:      event.Tool,
		Input:     event.Input,
		Timestamp: timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func newFrame(name string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("sse: cannot encode %s payload: %w", name, err)
	}
	return Frame{Event: name, Data: data}, nil
}
