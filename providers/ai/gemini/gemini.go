// Package gemini implements ai.Provider against the Google Gemini
// generateContent REST API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/utils"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

func init() {
	ai.Register(func() ai.Provider { return NewGeminiProvider() }, "google", "gemini")
}

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ ai.Provider = (*GeminiProvider)(nil)

// NewGeminiProvider reads GEMINI_API_KEY, falling back to GOOGLE_API_KEY, and
// GEMINI_API_BASE_URL.
func NewGeminiProvider() *GeminiProvider {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name returns "google".
func (p *GeminiProvider) Name() string { return "google" }

func (p *GeminiProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

func (p *GeminiProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// SendMessage implements the Provider interface
func (p *GeminiProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if request.Model == "" {
		return nil, fmt.Errorf("gemini requires a model name")
	}

	model := strings.TrimPrefix(request.Model, "models/")
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(p.baseURL, "/"), model)

	// Gemini authenticates with its own header instead of a bearer token.
	_, response, err := utils.DoPostSync[generateContentResponse](ctx, p.client, url, "", requestFromGeneric(request),
		map[string]string{"x-goog-api-key": p.apiKey})
	if err != nil {
		return nil, err
	}
	if len(response.Candidates) == 0 {
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("gemini blocked the prompt: %s", response.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("no candidates in Gemini response")
	}

	return responseToGeneric(*response, model), nil
}

// IsStopMessage reports whether the response needs no further tool round.
func (p *GeminiProvider) IsStopMessage(message *ai.ChatResponse) bool {
	return message == nil || len(message.ToolCalls) == 0
}
