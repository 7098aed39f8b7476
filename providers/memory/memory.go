package memory

import (
	"context"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

// Provider stores the message history of one conversation.
type Provider interface {
	// AppendMessage stores a copy of message. A nil message is ignored.
	AppendMessage(ctx context.Context, message *ai.Message)
	Count(ctx context.Context) (int, error)
	// AllMessages returns the history oldest first. The slice is a copy.
	AllMessages(ctx context.Context) ([]ai.Message, error)
	// LastMessages returns up to n of the newest messages, oldest first.
	LastMessages(ctx context.Context, n int) ([]ai.Message, error)
	ClearMessages(ctx context.Context)
}
