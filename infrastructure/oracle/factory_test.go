package oracle

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/react-agent/domain/config"
)

func TestNewProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.OracleConfig
		wantName string
		wantErr  error
	}{
		{"gemini", config.OracleConfig{Provider: "gemini", APIKey: "k"}, "gemini", nil},
		{"default is gemini", config.OracleConfig{APIKey: "k"}, "gemini", nil},
		{"openai", config.OracleConfig{Provider: "openai", APIKey: "k"}, "openai", nil},
		{"anthropic", config.OracleConfig{Provider: "anthropic", APIKey: "k"}, "anthropic", nil},
		{"ollama needs no key", config.OracleConfig{Provider: "ollama"}, "ollama", nil},
		{"missing key", config.OracleConfig{Provider: "openai"}, "", ErrMissingAPIKey},
		{"unknown", config.OracleConfig{Provider: "mystery", APIKey: "k"}, "", ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewProvider(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewProvider() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if _, ok := p.(*ResilientProvider); !ok {
				t.Errorf("NewProvider() = %T, want *ResilientProvider", p)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("scripted", func(t *testing.T) {
		t.Parallel()

		o, err := NewFromConfig(config.OracleConfig{Provider: ProviderScripted})
		if err != nil || o == nil {
			t.Fatalf("NewFromConfig() = %v, %v", o, err)
		}
	})

	t.Run("llm with transcript bounds", func(t *testing.T) {
		t.Parallel()

		o, err := NewFromConfig(config.OracleConfig{
			Provider:            "openai",
			APIKey:              "k",
			MaxTranscriptSteps:  3,
			MaxTranscriptTokens: 500,
		})
		if err != nil {
			t.Fatalf("NewFromConfig() error = %v", err)
		}
		llm, ok := o.(*LLMOracle)
		if !ok {
			t.Fatalf("NewFromConfig() = %T, want *LLMOracle", o)
		}
		if llm.renderer.MaxSteps != 3 || llm.renderer.MaxTokens != 500 {
			t.Errorf("renderer = %+v, want 3 steps and 500 tokens", llm.renderer)
		}
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()

		if _, err := NewFromConfig(config.OracleConfig{Provider: "openai"}); err == nil {
			t.Error("NewFromConfig() error = nil, want missing key")
		}
	})
}
