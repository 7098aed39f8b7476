package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/utils"
)

// DefaultTimeout bounds each device call.
const DefaultTimeout = 10 * time.Second

// Connection describes how to reach a device API.
type Connection struct {
	BaseURL            string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Runner executes calls against one device. The zero value simulates.
type Runner struct {
	connection Connection
	client     *http.Client
}

// NewRunner builds a Runner. An empty BaseURL yields a simulating runner.
func NewRunner(connection Connection) *Runner {
	if connection.Timeout <= 0 {
		connection.Timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if connection.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // lab devices use self-signed certificates
	}

	return &Runner{
		connection: connection,
		client:     &http.Client{Timeout: connection.Timeout, Transport: transport},
	}
}

// WithHttpClient replaces the HTTP client, mainly for tests.
func (r *Runner) WithHttpClient(client *http.Client) *Runner {
	r.client = client
	return r
}

// Configured reports whether calls reach a real device.
func (r *Runner) Configured() bool {
	return r != nil && r.connection.BaseURL != ""
}

// Execute interpolates params into path and performs the call. Parameters
// not consumed by the path are sent as the query string for GET and DELETE and
// as a JSON body otherwise. The result is always text for the model.
func (r *Runner) Execute(ctx context.Context, method, path string, params map[string]any) string {
	method = strings.ToUpper(method)
	formattedPath, remaining := Interpolate(path, params)

	if !r.Configured() {
		return fmt.Sprintf("Executed %s on %s. [SIMULATION] Success. (No config provided)", method, formattedPath)
	}

	target := strings.TrimRight(r.connection.BaseURL, "/") + formattedPath
	request := utils.Request{
		Method:   method,
		URL:      target,
		Headers:  map[string]string{"Accept": "application/json"},
		Username: r.connection.Username,
		Password: r.connection.Password,
	}

	if len(remaining) > 0 {
		switch method {
		case http.MethodGet, http.MethodDelete:
			request.URL = appendQuery(target, remaining)
		default:
			body, err := json.Marshal(remaining)
			if err != nil {
				return fmt.Sprintf("Failed to execute %s on %s: %v", method, target, err)
			}
			request.Body = body
			request.Headers["Content-Type"] = "application/json"
		}
	}

	response, body, err := utils.DoRequest(ctx, r.client, request)
	if err != nil {
		return fmt.Sprintf("Failed to execute %s on %s: %v", method, target, err)
	}

	if response.StatusCode >= 300 {
		return fmt.Sprintf("Error %d: %s", response.StatusCode, string(body))
	}
	return formatBody(response.Header.Get("Content-Type"), body)
}

// Interpolate replaces {name} placeholders in path with escaped parameter
// values and returns the parameters that were not used.
func Interpolate(path string, params map[string]any) (string, map[string]any) {
	remaining := make(map[string]any, len(params))
	formatted := path
	for key, value := range params {
		placeholder := "{" + key + "}"
		if strings.Contains(formatted, placeholder) {
			formatted = strings.ReplaceAll(formatted, placeholder, url.PathEscape(fmt.Sprint(value)))
			continue
		}
		remaining[key] = value
	}
	return formatted, remaining
}

func appendQuery(target string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, key := range keys {
		values.Set(key, fmt.Sprint(params[key]))
	}

	separator := "?"
	if strings.Contains(target, "?") {
		separator = "&"
	}
	return target + separator + values.Encode()
}

func formatBody(contentType string, body []byte) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if mediaType == "text/html" {
		markdown, err := htmltomarkdown.ConvertString(string(body))
		if err == nil {
			return strings.TrimSpace(markdown)
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err == nil {
		return pretty.String()
	}

	return string(body)
}
