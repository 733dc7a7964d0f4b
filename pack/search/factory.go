package search

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/react-agent/domain/config"
	"github.com/felixgeelhaar/react-agent/domain/pack"
)

// ErrUnknownProvider indicates an unsupported search provider name.
var ErrUnknownProvider = errors.New("unknown search provider")

// NewProvider builds the configured provider, throttled to cfg.RequestsPerSecond.
func NewProvider(cfg config.SearchConfig) (Provider, error) {
	var provider Provider
	switch cfg.Provider {
	case "serpapi", "":
		p, err := NewSerpAPIProvider(cfg.APIKey, WithSerpAPIBaseURL(cfg.BaseURL))
		if err != nil {
			return nil, err
		}
		provider = p
	case "duckduckgo":
		provider = NewDuckDuckGoProvider(WithDuckDuckGoBaseURL(cfg.BaseURL))
	case "memory":
		provider = NewMemoryProvider()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	return Throttle(provider, cfg.RequestsPerSecond, 1), nil
}

// FromConfig builds the search pack from configuration.
func FromConfig(cfg config.SearchConfig) (*pack.Pack, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return New(provider, WithLocale(cfg.Language, cfg.Country), WithNumResults(cfg.NumResults))
}
