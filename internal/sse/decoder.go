package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// maxLineSize bounds a single SSE line; reports with long details exceed the
// bufio default of 64 KiB.
const maxLineSize = 1 << 20

// Decoder reads frames written by an Encoder.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next frame, or io.EOF when the stream ends. Comment lines
// are skipped. Several data lines in one frame are joined with newlines, and a
// frame without an event name is reported as "message".
func (decoder *Decoder) Next() (Frame, error) {
	var (
		event string
		data  []string
	)

	for decoder.scanner.Scan() {
		line := decoder.scanner.Text()

		if line == "" {
			if event == "" && len(data) == 0 {
				continue
			}
			return buildFrame(event, data), nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		}
	}

	if err := decoder.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("sse: read stream: %w", err)
	}
	if event != "" || len(data) > 0 {
		return buildFrame(event, data), nil
	}
	return Frame{}, io.EOF
}

// All reads frames until the end of the stream.
func (decoder *Decoder) All() ([]Frame, error) {
	var frames []Frame
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

func buildFrame(event string, data []string) Frame {
	if event == "" {
		event = "message"
	}
	return Frame{Event: event, Data: json.RawMessage(strings.Join(data, "\n"))}
}
