package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/app"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/sse"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message       string         `json:"message" binding:"required"`
	ModelName     string         `json:"model_name,omitempty"`
	ModelProvider string         `json:"model_provider,omitempty"`
	ThreadID      string         `json:"thread_id,omitempty"`
	IncidentData  map[string]any `json:"incident_data,omitempty"`
}

func (s *Server) handleChat(c *gin.Context) {
	var body ChatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	threadID := strings.TrimSpace(body.ThreadID)
	if threadID == "" {
		threadID = uuid.NewString()
	}

	ctx := c.Request.Context()
	sse.SetHeaders(c.Writer.Header())
	c.Header(ThreadIDHeader, threadID)
	c.Status(http.StatusOK)

	encoder := sse.NewEncoder(c.Writer)
	emitter := graph.NewChannelEmitter(s.eventBuffer)

	// The stream is written only by this goroutine until it is drained.
	drained := make(chan struct{})
	reportWritten := false
	go func() {
		defer close(drained)
		for event := range emitter.Events() {
			err := encoder.Encode(event)
			if err == nil && event.Type == graph.EventReport {
				reportWritten = true
			}
			if err != nil && s.observer != nil {
				s.observer.Debug(ctx, "sse event not written",
					observability.String(observability.AttrThreadID, threadID),
					observability.Error(err),
				)
			}
		}
	}()

	final, runErr := s.runner.Run(ctx, app.Request{
		Message:       body.Message,
		ThreadID:      threadID,
		IncidentData:  body.IncidentData,
		ModelName:     body.ModelName,
		ModelProvider: body.ModelProvider,
	}, emitter)
	emitter.Close()
	<-drained

	if dropped := emitter.Dropped(); dropped > 0 && s.observer != nil {
		s.observer.Warn(ctx, "run events dropped",
			observability.String(observability.AttrThreadID, threadID),
			observability.Int64("dropped", dropped),
		)
	}

	// The emitter drops events when its buffer is full; the report frame
	// must still reach the client.
	if !reportWritten && final.Report != nil {
		_ = encoder.Encode(graph.Event{Type: graph.EventReport, Node: graph.NodeAggregator, Report: final.Report, Timestamp: time.Now()})
	}

	if runErr != nil {
		if s.observer != nil {
			s.observer.Error(ctx, "triage run failed",
				observability.String(observability.AttrThreadID, threadID),
				observability.Error(runErr),
			)
		}
		_ = encoder.EncodeError(runErr)
	}
}
