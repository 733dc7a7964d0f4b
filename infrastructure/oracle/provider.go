// Package oracle provides reasoning oracles backed by LLM providers, plus
// scripted and function-based oracles for tests and demos.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
)

// Provider sends chat completions to an LLM backend.
type Provider interface {
	// Complete sends a chat completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Name returns the provider name for logging.
	Name() string
}

// CompletionRequest represents a chat completion request.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`

	// JSONMode asks providers that support it for a JSON object response.
	JSONMode bool `json:"-"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionResponse represents a chat completion response.
type CompletionResponse struct {
	ID      string  `json:"id"`
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Usage   Usage   `json:"usage"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrEmptyCompletion indicates a provider answered without any content.
var ErrEmptyCompletion = errors.New("empty completion")

// ProviderError is a non-success answer from a provider API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s error (status %d, %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether repeating the request may succeed.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Unwrap maps retryable failures to oracle unavailability.
func (e *ProviderError) Unwrap() error {
	if e.Retryable() {
		return domainoracle.ErrOracleUnavailable
	}
	return nil
}

// ProviderConfig contains the settings shared by HTTP providers.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// Timeout bounds one HTTP exchange. Default 120s.
	Timeout time.Duration

	// Client overrides the HTTP client.
	Client *http.Client
}

func (c ProviderConfig) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c ProviderConfig) baseURL(def string) string {
	if c.BaseURL == "" {
		return def
	}
	return c.BaseURL
}

// postJSON sends body as JSON and decodes a 200 answer into out. Other
// statuses become a *ProviderError carrying the message extracted by
// errMessage.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any, errMessage func([]byte) (string, string)) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s request failed: %w: %w", provider, domainoracle.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		pe := &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Message: string(respBody)}
		if errMessage != nil {
			if typ, msg := errMessage(respBody); msg != "" {
				pe.Type, pe.Message = typ, msg
			}
		}
		return pe
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %s response is not JSON: %v", domainoracle.ErrMalformedResponse, provider, err)
	}
	return nil
}

// openAIStyleError extracts {"error": {"type", "message"}} bodies used by
// OpenAI, Anthropic and Gemini (which names the type "status").
func openAIStyleError(body []byte) (string, string) {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return "", ""
	}
	typ := e.Error.Type
	if typ == "" {
		typ = e.Error.Status
	}
	return typ, e.Error.Message
}
