package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultSerpAPIURL is the SerpAPI JSON endpoint.
const DefaultSerpAPIURL = "https://serpapi.com/search.json"

// SerpAPIProvider searches Google through SerpAPI.
type SerpAPIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// SerpAPIOption configures a SerpAPIProvider.
type SerpAPIOption func(*SerpAPIProvider)

// WithSerpAPIBaseURL overrides the endpoint.
func WithSerpAPIBaseURL(u string) SerpAPIOption {
	return func(p *SerpAPIProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithSerpAPIClient sets the HTTP client.
func WithSerpAPIClient(c *http.Client) SerpAPIOption {
	return func(p *SerpAPIProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// NewSerpAPIProvider creates a SerpAPI provider.
func NewSerpAPIProvider(apiKey string, opts ...SerpAPIOption) (*SerpAPIProvider, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	p := &SerpAPIProvider{
		apiKey:  apiKey,
		baseURL: DefaultSerpAPIURL,
		client:  defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider name.
func (p *SerpAPIProvider) Name() string {
	return "serpapi"
}

type serpAPIResponse struct {
	OrganicResults []Result `json:"organic_results"`
	Error          string   `json:"error"`
}

// Search executes a Google search.
func (p *SerpAPIProvider) Search(ctx context.Context, query Query) ([]Result, error) {
	if query.Text == "" {
		return nil, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query.Text)
	params.Set("api_key", p.apiKey)
	if query.Num > 0 {
		params.Set("num", strconv.Itoa(query.Num))
	}
	if query.Language != "" {
		params.Set("hl", query.Language)
	}
	if query.Country != "" {
		params.Set("gl", query.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readError(p.Name(), resp)
	}

	var body serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}
	if body.Error != "" && len(body.OrganicResults) == 0 {
		// SerpAPI reports "no results" as an error string on a 200.
		if body.Error == "Google hasn't returned any results for this query." {
			return []Result{}, nil
		}
		return nil, fmt.Errorf("serpapi: %s", body.Error)
	}

	return limit(body.OrganicResults, query.Num), nil
}
