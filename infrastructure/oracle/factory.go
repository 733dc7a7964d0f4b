package oracle

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/react-agent/domain/config"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
)

// Provider names accepted by NewProvider.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderScripted  = "scripted"
)

// Errors returned by the factory.
var (
	ErrUnknownProvider = errors.New("unknown oracle provider")
	ErrMissingAPIKey   = errors.New("oracle api key is required")
)

// NewProvider builds the provider named by cfg, wrapped with retries and
// throttling.
func NewProvider(cfg config.OracleConfig) (Provider, error) {
	pc := ProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}

	var p Provider
	switch cfg.Provider {
	case ProviderGemini, "":
		p = NewGeminiProvider(pc)
	case ProviderOpenAI:
		p = NewOpenAIProvider(pc)
	case ProviderAnthropic:
		p = NewAnthropicProvider(pc)
	case ProviderOllama:
		p = NewOllamaProvider(pc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	if cfg.APIKey == "" && cfg.Provider != ProviderOllama {
		return nil, fmt.Errorf("%w for %s", ErrMissingAPIKey, p.Name())
	}

	return NewResilientProvider(p, ResilienceConfig{
		Retries:           cfg.Retries,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}), nil
}

// NewFromConfig builds the oracle described by cfg. The scripted provider
// yields the offline demo oracle.
func NewFromConfig(cfg config.OracleConfig) (domainoracle.Oracle, error) {
	if cfg.Provider == ProviderScripted {
		return NewDemoOracle(), nil
	}

	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	renderer := DefaultTranscriptRenderer()
	if cfg.MaxTranscriptSteps > 0 {
		renderer.MaxSteps = cfg.MaxTranscriptSteps
	}
	if cfg.MaxTranscriptTokens > 0 {
		renderer.MaxTokens = cfg.MaxTranscriptTokens
	}

	return NewLLMOracle(LLMOracleConfig{
		Provider:    p,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Renderer:    renderer,
	})
}

// NewRefinerFromConfig builds the answer refiner described by cfg. It
// returns nil when refinement is off or the provider is scripted.
func NewRefinerFromConfig(cfg config.OracleConfig) (domainoracle.Refiner, error) {
	if !cfg.Refine || cfg.Provider == ProviderScripted {
		return nil, nil
	}
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewLLMRefiner(LLMRefinerConfig{Provider: p, Model: cfg.Model})
}
