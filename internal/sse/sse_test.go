package sse

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
)

func TestReportRoundTrip(t *testing.T) {
	reports := []graph.Report{
		{
			RootCause:         "Firewall policy \"deny-all\" drops tcp/443",
			Details:           "ACI path is healthy.\nPalo Alto logs show a deny at 10:02.\n\tSee rule 42, unicode ✓ <ok> & more",
			RecommendedAction: "Add an allow rule for 10.0.0.1 -> 10.0.0.2:443",
			FailedWorkers:     []string{"infoblox"},
		},
		{RootCause: "Unknown", FailedWorkers: []string{}},
		{RootCause: "Unknown"},
	}

	for _, report := range reports {
		var buffer bytes.Buffer
		require.NoError(t, NewEncoder(&buffer).Encode(graph.Event{Type: graph.EventReport, Report: &report}))

		lines := strings.Split(strings.TrimSuffix(buffer.String(), "\n\n"), "\n")
		require.Len(t, lines, 2, "frame must be one event line and one data line")
		assert.Equal(t, "event: triage_report", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "data: {"))

		frame, err := NewDecoder(&buffer).Next()
		require.NoError(t, err)
		decoded, err := frame.Report()
		require.NoError(t, err)
		assert.Equal(t, report, decoded)
	}
}

func TestThoughtFrames(t *testing.T) {
	timestamp := time.Date(2025, 3, 1, 10, 2, 3, 0, time.UTC)
	testCases := []struct {
		name   string
		event  graph.Event
		status string
	}{
		{name: "start", event: graph.Event{Type: graph.EventNodeStart, Node: "aci", Timestamp: timestamp}, status: StatusChainStart},
		{name: "tool", event: graph.Event{Type: graph.EventNodeToolCall, Node: "aci", Tool: "ping", Input: `{"target":"10.0.0.2"}`, Timestamp: timestamp}, status: StatusToolStart},
		{name: "end", event: graph.Event{Type: graph.EventNodeEnd, Node: "aci", Content: "path healthy", Timestamp: timestamp}, status: StatusChainEnd},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			frame, err := FromEvent(testCase.event)
			require.NoError(t, err)
			assert.Equal(t, EventThought, frame.Event)

			thought, err := frame.Thought()
			require.NoError(t, err)
			assert.Equal(t, "aci", thought.Node)
			assert.Equal(t, testCase.status, thought.Status)
			assert.Equal(t, testCase.event.Content, thought.Content)
			assert.Equal(t, testCase.event.Tool, thought.Tool)
			assert.Equal(t, testCase.event.Input, thought.Input)
			assert.Equal(t, "2025-03-01T10:02:03Z", thought.Timestamp)
		})
	}
}

func TestRoutingFrame(t *testing.T) {
	frame, err := FromEvent(graph.Event{
		Type:     graph.EventRouting,
		Node:     graph.NodeRouter,
		Decision: &graph.Decision{NextSteps: []string{"aci", "palo_alto"}, Reasoning: "both IPs known"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"routing":["aci","palo_alto"],"reasoning":"both IPs known"}`, string(frame.Data))

	empty, err := FromEvent(graph.Event{Type: graph.EventRouting})
	require.NoError(t, err)
	assert.JSONEq(t, `{"routing":[],"reasoning":""}`, string(empty.Data))
}

func TestFromEventErrors(t *testing.T) {
	_, err := FromEvent(graph.Event{Type: graph.EventReport})
	assert.Error(t, err)

	_, err = FromEvent(graph.Event{Type: "unknown"})
	assert.Error(t, err)
}

func TestErrorFrame(t *testing.T) {
	var buffer bytes.Buffer
	require.NoError(t, NewEncoder(&buffer).EncodeError(errors.New("cancellation requested: context canceled")))

	frame, err := NewDecoder(&buffer).Next()
	require.NoError(t, err)
	payload, err := frame.Failure()
	require.NoError(t, err)
	assert.Equal(t, "cancellation requested: context canceled", payload.Error)

	_, err = frame.Report()
	assert.Error(t, err, "an error frame is not a report")
}

func TestWriteFrameRejectsMultilinePayload(t *testing.T) {
	err := NewEncoder(io.Discard).WriteFrame(Frame{Event: EventThought, Data: []byte("{\n}")})
	assert.Error(t, err)

	err = NewEncoder(io.Discard).WriteFrame(Frame{Data: []byte("{}")})
	assert.Error(t, err)
}

func TestEncoderFlushes(t *testing.T) {
	recorder := httptest.NewRecorder()
	SetHeaders(recorder.Header())

	require.NoError(t, NewEncoder(recorder).Encode(graph.Event{Type: graph.EventNodeStart, Node: graph.NodeRouter}))

	assert.True(t, recorder.Flushed)
	assert.Equal(t, ContentType, recorder.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(recorder.Body.String(), "event: thought\ndata: "))
}

func TestDecoderStream(t *testing.T) {
	stream := ": keep-alive\n\n" +
		"event: thought\ndata: {\"node\":\"orchestrator\",\"status\":\"chain_start\",\"timestamp\":\"t\"}\n\n" +
		"data: {\"a\":1}\ndata: {\"b\":2}\n\n" +
		"event: routing\ndata: {\"routing\":[\"aci\"],\"reasoning\":\"r\"}"

	frames, err := NewDecoder(strings.NewReader(stream)).All()
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, EventThought, frames[0].Event)
	assert.Equal(t, "message", frames[1].Event)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}", string(frames[1].Data))

	routing, err := frames[2].Routing()
	require.NoError(t, err)
	assert.Equal(t, []string{"aci"}, routing.Routing)
}

func TestEventStreamOfARun(t *testing.T) {
	report := graph.Report{RootCause: "Unknown", Details: "no agent answered", RecommendedAction: "retry", FailedWorkers: []string{"aci"}}
	events := []graph.Event{
		{Type: graph.EventNodeStart, Node: graph.NodeRouter},
		{Type: graph.EventRouting, Node: graph.NodeRouter, Decision: &graph.Decision{NextSteps: []string{"sub_agents"}}},
		{Type: graph.EventNodeEnd, Node: graph.NodeRouter},
		{Type: graph.EventNodeStart, Node: "aci"},
		{Type: graph.EventNodeToolCall, Node: "aci", Tool: "ping"},
		{Type: graph.EventNodeEnd, Node: "aci"},
		{Type: graph.EventReport, Node: graph.NodeAggregator, Report: &report},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, event := range events {
		require.NoError(t, encoder.Encode(event))
	}

	frames, err := NewDecoder(&buffer).All()
	require.NoError(t, err)
	require.Len(t, frames, len(events))

	var names []string
	for _, frame := range frames {
		names = append(names, frame.Event)
	}
	assert.Equal(t, []string{"thought", "routing", "thought", "thought", "thought", "thought", "triage_report"}, names)

	decoded, err := frames[len(frames)-1].Report()
	require.NoError(t, err)
	assert.Equal(t, report, decoded)
}
