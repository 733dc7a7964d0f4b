package config

import (
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/react-agent/domain/config"
)

// Environment variables applied on top of the loaded file.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvSerpAPIKey      = "SERPAPI_KEY"
	EnvMaxIterations   = "REACT_AGENT_MAX_ITERATIONS"
	EnvLogLevel        = "REACT_AGENT_LOG_LEVEL"
)

// applyOverlay fills credentials from the environment when the file leaves
// them empty, and lets operator variables override loop and log settings.
func applyOverlay(cfg *config.Config, lookup func(string) (string, bool)) error {
	if cfg.Oracle.APIKey == "" {
		var key string
		switch cfg.Oracle.Provider {
		case "gemini":
			key = EnvGeminiAPIKey
		case "openai":
			key = EnvOpenAIAPIKey
		case "anthropic":
			key = EnvAnthropicAPIKey
		}
		if v, ok := lookup(key); ok && key != "" {
			cfg.Oracle.APIKey = v
		}
	}

	if cfg.Search.APIKey == "" {
		if v, ok := lookup(EnvSerpAPIKey); ok {
			cfg.Search.APIKey = v
		}
	}

	if v, ok := lookup(EnvMaxIterations); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", config.ErrInvalidFormat, EnvMaxIterations, v)
		}
		cfg.Agent.MaxIterations = n
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
