package ai

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Provider is implemented by every LLM backend.
type Provider interface {
	// SendMessage performs one completion request.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// IsStopMessage reports whether the response ends the turn, i.e. no tool
	// calls are pending.
	IsStopMessage(message *ChatResponse) bool

	// Name identifies the vendor in logs and metrics.
	Name() string

	WithAPIKey(apiKey string) Provider
	WithBaseURL(baseURL string) Provider
	WithHttpClient(httpClient *http.Client) Provider
}

// Constructor builds a Provider with credentials taken from the environment.
type Constructor func() Provider

var (
	registryMu   sync.RWMutex
	constructors = map[string]Constructor{}
)

// Register makes a vendor available to NewProvider under each name. Vendor
// packages call it from init.
func Register(constructor Constructor, names ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, name := range names {
		constructors[strings.ToLower(name)] = constructor
	}
}

// NewProvider returns the registered vendor for name (case-insensitive).
func NewProvider(name string) (Provider, error) {
	registryMu.RLock()
	constructor, found := constructors[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()

	if !found {
		return nil, fmt.Errorf("unsupported LLM provider: %s. Supported providers: %s", name, strings.Join(SupportedProviders(), ", "))
	}
	return constructor(), nil
}

// SupportedProviders lists registered vendor names in sorted order.
func SupportedProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
