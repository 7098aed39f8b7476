package sse

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
)

// ContentType is the media type of an SSE response.
const ContentType = "text/event-stream"

// Encoder writes frames to w and flushes after each one when w is an
// http.Flusher. It is safe for concurrent use.
type Encoder struct {
	mutex   sync.Mutex
	writer  io.Writer
	flusher http.Flusher
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	encoder := &Encoder{writer: w}
	if flusher, ok := w.(http.Flusher); ok {
		encoder.flusher = flusher
	}
	return encoder
}

// SetHeaders prepares an HTTP response for streaming.
func SetHeaders(header http.Header) {
	header.Set("Content-Type", ContentType)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
}

// Encode converts event and writes it.
func (encoder *Encoder) Encode(event graph.Event) error {
	frame, err := FromEvent(event)
	if err != nil {
		return err
	}
	return encoder.WriteFrame(frame)
}

// EncodeError writes an error frame for err.
func (encoder *Encoder) EncodeError(err error) error {
	return encoder.WriteFrame(ErrorFrame(err))
}

// WriteFrame writes one frame. The payload must be a single line.
func (encoder *Encoder) WriteFrame(frame Frame) error {
	if frame.Event == "" {
		return fmt.Errorf("sse: frame without event name")
	}
	if bytes.ContainsAny(frame.Data, "\r\n") {
		return fmt.Errorf("sse: %s payload spans several lines", frame.Event)
	}

	encoder.mutex.Lock()
	defer encoder.mutex.Unlock()

	if _, err := fmt.Fprintf(encoder.writer, "event: %s\ndata: %s\n\n", frame.Event, frame.Data); err != nil {
		return fmt.Errorf("sse: write %s frame: %w", frame.Event, err)
	}
	if encoder.flusher != nil {
		encoder.flusher.Flush()
	}
	return nil
}
