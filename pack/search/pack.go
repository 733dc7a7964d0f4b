// Package search provides web search tools.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/pack"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// Tool names.
const (
	SearchToolName  = "search_action"
	WeatherToolName = "extract_weather_data"
)

// Config configures the search pack.
type Config struct {
	// Provider is the search provider (required).
	Provider Provider

	// Language is the result language (hl).
	Language string

	// Country is the result country (gl).
	Country string

	// NumResults is the default number of results.
	NumResults int

	// MaxResults caps num_results.
	MaxResults int

	// WeatherResults is the number of results weather extraction inspects.
	WeatherResults int

	// Timeout for provider calls.
	Timeout time.Duration
}

// Option configures the search pack.
type Option func(*Config)

// WithLocale sets the result language and country.
func WithLocale(language, country string) Option {
	return func(c *Config) {
		c.Language = language
		c.Country = country
	}
}

// WithNumResults sets the default number of results.
func WithNumResults(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.NumResults = n
		}
	}
}

// WithTimeout sets the provider call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// New creates the search pack.
func New(provider Provider, opts ...Option) (*pack.Pack, error) {
	if provider == nil {
		return nil, errors.New("search provider is required")
	}

	cfg := Config{
		Provider:       provider,
		Language:       "vi",
		Country:        "vn",
		NumResults:     10,
		MaxResults:     100,
		WeatherResults: 3,
		Timeout:        30 * time.Second,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	p := pack.New("search", fmt.Sprintf("Web search (%s)", provider.Name()),
		searchTool(&cfg),
		weatherTool(&cfg),
	)
	if provider.Name() != "memory" {
		p.BackedBy(provider.Name())
	}
	return p, nil
}

// searchInput is the input for the search_action tool.
type searchInput struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
}

// Output is the output of the search_action tool.
type Output struct {
	Query        string   `json:"query"`
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

func searchTool(cfg *Config) tool.Tool {
	return tool.NewBuilder(SearchToolName).
		WithDescription("Search the web for information. Returns titles, links and snippets").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"query":       tool.Prop("string", "Search query"),
			"num_results": tool.Prop("integer", "Number of results (default 10)"),
		}, []string{"query"})).
		ReadOnly().
		Idempotent().
		Cacheable().
		WithHandler(tool.Typed(func(ctx context.Context, in searchInput) (tool.Result, error) {
			if strings.TrimSpace(in.Query) == "" {
				return tool.Result{}, fmt.Errorf("%w: query is required", tool.ErrInvalidInput)
			}

			results, err := cfg.search(ctx, in.Query, in.NumResults)
			if err != nil {
				return tool.Result{}, fmt.Errorf("search failed: %w", err)
			}

			out := Output{
				Query:        in.Query,
				Results:      results,
				TotalResults: len(results),
			}
			data, err := encodeOutput(SearchToolName, out)
			if err != nil {
				return tool.Result{}, err
			}
			return tool.Success(string(data), data), nil
		})).
		MustBuild()
}

func (c *Config) search(ctx context.Context, text string, num int) ([]Result, error) {
	if num <= 0 {
		num = c.NumResults
	}
	if c.MaxResults > 0 && num > c.MaxResults {
		num = c.MaxResults
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	results, err := c.Provider.Search(ctx, Query{
		Text:     text,
		Num:      num,
		Language: c.Language,
		Country:  c.Country,
	})
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// weatherMarkers flag snippets that carry weather information.
var weatherMarkers = []string{"°c", "nhiệt độ", "thời tiết", "độ c", "temperature", "weather"}

// weatherInput is the input for the extract_weather_data tool.
type weatherInput struct {
	Location string `json:"location"`
	City     string `json:"city"`
}

// WeatherInfo is one weather snippet.
type WeatherInfo struct {
	Source      string `json:"source"`
	Information string `json:"information"`
	Link        string `json:"link"`
}

// WeatherOutput is the output of the extract_weather_data tool.
type WeatherOutput struct {
	Location    string        `json:"location"`
	WeatherData []WeatherInfo `json:"weather_data"`
	SearchQuery string        `json:"search_query"`
}

func weatherTool(cfg *Config) tool.Tool {
	return tool.NewBuilder(WeatherToolName).
		WithDescription("Find today's weather for a location").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"location": tool.Prop("string", "City or place name"),
			"city":     tool.Prop("string", "Alias of location"),
		}, nil)).
		ReadOnly().
		Cacheable().
		WithHandler(tool.Typed(func(ctx context.Context, in weatherInput) (tool.Result, error) {
			location := strings.TrimSpace(in.Location)
			if location == "" {
				location = strings.TrimSpace(in.City)
			}
			if location == "" {
				return tool.Result{}, fmt.Errorf("%w: location or city is required", tool.ErrInvalidInput)
			}

			query := fmt.Sprintf("thời tiết %s hôm nay", location)
			results, err := cfg.search(ctx, query, cfg.WeatherResults)
			if err != nil {
				return tool.Result{}, fmt.Errorf("weather search failed: %w", err)
			}

			out := WeatherOutput{
				Location:    location,
				WeatherData: ExtractWeather(results),
				SearchQuery: query,
			}
			data, err := encodeOutput(WeatherToolName, out)
			if err != nil {
				return tool.Result{}, err
			}

			if len(out.WeatherData) == 0 {
				return tool.Success(fmt.Sprintf("no weather information found for %s", location), data), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Weather for %s:", location)
			for _, w := range out.WeatherData {
				fmt.Fprintf(&b, "\n- %s: %s", w.Source, w.Information)
			}
			return tool.Success(b.String(), data), nil
		})).
		MustBuild()
}

func encodeOutput(name string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s output: %w", name, err)
	}
	return data, nil
}

// ExtractWeather keeps results whose snippet mentions a weather marker.
func ExtractWeather(results []Result) []WeatherInfo {
	info := make([]WeatherInfo, 0)
	for _, r := range results {
		snippet := strings.ToLower(r.Snippet)
		for _, marker := range weatherMarkers {
			if strings.Contains(snippet, marker) {
				info = append(info, WeatherInfo{
					Source:      r.Title,
					Information: r.Snippet,
					Link:        r.Link,
				})
				break
			}
		}
	}
	return info
}
