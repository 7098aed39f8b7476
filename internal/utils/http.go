package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// maxResponseBodySize caps how much of a response body is read (10 MB).
const maxResponseBodySize int64 = 10 * 1024 * 1024

// Request describes an HTTP call made through DoRequest.
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
	// Username and Password enable basic auth when both are set.
	Username string
	Password string
}

// DoRequest executes request and returns the response with its body already
// read and closed. Non-2xx statuses are NOT treated as errors here; callers
// decide how to present them. When a span is present in ctx, request and
// response events are recorded on it.
func DoRequest(ctx context.Context, client *http.Client, request Request) (*http.Response, []byte, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var bodyReader io.Reader
	if request.Body != nil {
		bodyReader = bytes.NewReader(request.Body)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, request.URL, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	for key, value := range request.Headers {
		httpRequest.Header.Set(key, value)
	}
	if request.Username != "" && request.Password != "" {
		httpRequest.SetBasicAuth(request.Username, request.Password)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, request.Method),
			observability.String(observability.AttrHTTPURL, request.URL),
			observability.Int(observability.AttrHTTPRequestBodySize, len(request.Body)),
		)
	}

	requestStart := time.Now()
	response, err := httpClient.Do(httpRequest)
	requestDuration := time.Since(requestStart)
	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration(observability.AttrDuration, requestDuration),
			)
		}
		return nil, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr.Error(), "url", request.URL)
		}
	}()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
	if err != nil {
		return response, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(responseBody)),
			observability.Duration(observability.AttrDuration, requestDuration),
		)
	}

	return response, responseBody, nil
}

// DoPostSync sends body as JSON and decodes a 2xx JSON response into
// OutputStruct. The API key is sent as a bearer token unless headers already
// carry the provider's own authentication header.
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...map[string]string) (*http.Response, *OutputStruct, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	requestHeaders := map[string]string{"Content-Type": "application/json"}
	if apiKey != "" {
		requestHeaders["Authorization"] = "Bearer " + apiKey
	}
	for _, extra := range headers {
		for key, value := range extra {
			requestHeaders[key] = value
		}
	}

	response, responseBody, err := DoRequest(ctx, client, Request{
		Method:  http.MethodPost,
		URL:     url,
		Body:    jsonBody,
		Headers: requestHeaders,
	})
	if err != nil {
		return response, nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, nil, fmt.Errorf("non-2xx status %d: %s", response.StatusCode, TruncateString(string(responseBody), DefaultMaxStringLength))
	}

	var decoded OutputStruct
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		return response, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", response.StatusCode, err, TruncateString(string(responseBody), DefaultMaxStringLength))
	}

	return response, &decoded, nil
}
