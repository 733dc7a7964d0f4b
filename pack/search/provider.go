package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider defines the interface for web search backends.
// Implementations exist for SerpAPI, DuckDuckGo and in-memory fixtures.
type Provider interface {
	// Name returns the provider name (e.g., "serpapi", "duckduckgo").
	Name() string

	// Search executes a web search query.
	Search(ctx context.Context, query Query) ([]Result, error)
}

// Query represents a web search request.
type Query struct {
	// Text is the search query string.
	Text string `json:"text"`

	// Num is the number of results wanted.
	Num int `json:"num"`

	// Language is the result language (hl), e.g. "vi".
	Language string `json:"language,omitempty"`

	// Country is the result country (gl), e.g. "vn".
	Country string `json:"country,omitempty"`
}

// Result is one organic search hit.
type Result struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

// Provider errors.
var (
	// ErrEmptyQuery indicates a search without query text.
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrMissingAPIKey indicates a provider that needs a key was built without one.
	ErrMissingAPIKey = errors.New("search api key is required")
)

// StatusError reports a non-2xx response from a search backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

const maxErrorBody = 512

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// readError drains a failed response into a StatusError.
func readError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// limit trims results to n and renumbers positions from 1.
func limit(results []Result, n int) []Result {
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	for i := range results {
		if results[i].Position == 0 {
			results[i].Position = i + 1
		}
	}
	return results
}
