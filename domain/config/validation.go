package config

import (
	"errors"
	"fmt"
	"strings"
)

// Loading errors. Callers match them with errors.Is.
var (
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidFormat     = errors.New("malformed config")
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrValidationFailed  = errors.New("invalid config")
	ErrMissingEnvVar     = errors.New("environment variable not set")
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the YAML path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Known option values.
var (
	OracleProviders = []string{"gemini", "openai", "anthropic", "ollama", "scripted"}
	SearchProviders = []string{"serpapi", "duckduckgo", "memory"}
	CacheBackends   = []string{"none", "memory", "redis", "sqlite", "badger"}
	StorageBackends = []string{"none", "memory", "file", "sqlite", "postgres", "badger", "mongodb"}
	LogLevels       = []string{"trace", "debug", "info", "warn", "error"}
	LogFormats      = []string{"json", "console"}
	TraceExporters  = []string{"stdout", "otlp"}
)

// Validate checks the configuration and returns nil or ValidationErrors.
func Validate(cfg *Config) error {
	if errs := NewValidator().Validate(cfg); errs.HasErrors() {
		return errs
	}
	return nil
}

// Validator validates runtime configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns every error found.
func (v *Validator) Validate(cfg *Config) ValidationErrors {
	v.errors = nil

	v.validateAgent(cfg.Agent)
	v.validateOracle(cfg.Oracle)
	v.validateSearch(cfg.Search)
	v.validateTools(cfg.Tools)
	v.validateStorage(cfg.Storage)
	v.validateLogging(cfg.Logging)
	v.validateTelemetry(cfg.Telemetry)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) oneOf(path, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.addError(path, fmt.Sprintf("invalid value %q (want one of %s)", value, strings.Join(allowed, ", ")))
}

func (v *Validator) validateAgent(a AgentSettings) {
	if a.MaxIterations < 1 {
		v.addError("agent.max_iterations", "max_iterations must be at least 1")
	}
	if a.OracleTimeout <= 0 {
		v.addError("agent.oracle_timeout", "oracle_timeout must be positive")
	}
	if a.ToolTimeout <= 0 {
		v.addError("agent.tool_timeout", "tool_timeout must be positive")
	}
	if a.MaxObservationChars < 0 {
		v.addError("agent.max_observation_chars", "max_observation_chars must be non-negative")
	}
	if a.FallbackAfter < 0 {
		v.addError("agent.fallback_after", "fallback_after must be non-negative")
	}
	for i, name := range a.FatalTools {
		if strings.TrimSpace(name) == "" {
			v.addError(fmt.Sprintf("agent.fatal_tools[%d]", i), "tool name is required")
		}
	}
}

func (v *Validator) validateOracle(o OracleConfig) {
	v.oneOf("oracle.provider", o.Provider, OracleProviders)
	if o.Temperature < 0 || o.Temperature > 2 {
		v.addError("oracle.temperature", "temperature must be between 0 and 2")
	}
	if o.MaxTokens < 1 {
		v.addError("oracle.max_tokens", "max_tokens must be positive")
	}
	if o.MaxTranscriptSteps < 1 {
		v.addError("oracle.max_transcript_steps", "max_transcript_steps must be positive")
	}
	if o.MaxTranscriptTokens < 0 {
		v.addError("oracle.max_transcript_tokens", "max_transcript_tokens must be non-negative")
	}
	if o.Retries < 0 {
		v.addError("oracle.retries", "retries must be non-negative")
	}
	if o.RequestsPerSecond < 0 {
		v.addError("oracle.requests_per_second", "requests_per_second must be non-negative")
	}
}

func (v *Validator) validateSearch(s SearchConfig) {
	v.oneOf("search.provider", s.Provider, SearchProviders)
	if s.NumResults < 1 || s.NumResults > 100 {
		v.addError("search.num_results", "num_results must be between 1 and 100")
	}
	if s.RequestsPerSecond < 0 {
		v.addError("search.requests_per_second", "requests_per_second must be non-negative")
	}
}

func (v *Validator) validateTools(t ToolsConfig) {
	if t.Timeout < 0 {
		v.addError("tools.timeout", "timeout must be non-negative")
	}
	if t.Bulkhead < 1 {
		v.addError("tools.bulkhead", "bulkhead must be positive")
	}
	if t.Retries < 0 {
		v.addError("tools.retries", "retries must be non-negative")
	}
	if t.BreakerThreshold < 1 {
		v.addError("tools.breaker_threshold", "breaker_threshold must be positive")
	}

	if t.RateLimit.Enabled {
		if t.RateLimit.Rate <= 0 {
			v.addError("tools.rate_limit.rate", "rate must be positive when enabled")
		}
		if t.RateLimit.Burst <= 0 {
			v.addError("tools.rate_limit.burst", "burst must be positive when enabled")
		}
	}
	for name, r := range t.RateLimit.ToolRates {
		if r.Rate <= 0 || r.Burst <= 0 {
			v.addError("tools.rate_limit.tool_rates."+name, "rate and burst must be positive")
		}
	}

	v.oneOf("tools.cache.backend", t.Cache.Backend, CacheBackends)
	switch t.Cache.Backend {
	case "memory":
		if t.Cache.Size < 1 {
			v.addError("tools.cache.size", "size must be positive for the memory cache")
		}
	case "redis":
		if t.Cache.RedisAddr == "" {
			v.addError("tools.cache.redis_addr", "redis_addr is required for the redis cache")
		}
	case "sqlite", "badger":
		if t.Cache.Path == "" {
			v.addError("tools.cache.path", "path is required for the "+t.Cache.Backend+" cache")
		}
	}
	if t.Cache.TTL < 0 {
		v.addError("tools.cache.ttl", "ttl must be non-negative")
	}
}

func (v *Validator) validateStorage(s StorageConfig) {
	v.oneOf("storage.backend", s.Backend, StorageBackends)
	switch s.Backend {
	case "file", "badger":
		if s.Path == "" {
			v.addError("storage.path", "path is required for the "+s.Backend+" backend")
		}
	case "sqlite", "postgres", "mongodb":
		if s.DSN == "" {
			v.addError("storage.dsn", "dsn is required for the "+s.Backend+" backend")
		}
	}
}

func (v *Validator) validateLogging(l LoggingConfig) {
	v.oneOf("logging.level", l.Level, LogLevels)
	v.oneOf("logging.format", l.Format, LogFormats)
}

func (v *Validator) validateTelemetry(t TelemetryConfig) {
	if !t.Tracing.Enabled {
		return
	}
	v.oneOf("telemetry.tracing.exporter", t.Tracing.Exporter, TraceExporters)
	if t.Tracing.Exporter == "otlp" && t.Tracing.Endpoint == "" {
		v.addError("telemetry.tracing.endpoint", "endpoint is required for the otlp exporter")
	}
	if t.Tracing.SampleRate < 0 || t.Tracing.SampleRate > 1 {
		v.addError("telemetry.tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}
