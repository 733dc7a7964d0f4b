// Package config provides the configuration model of the agent runtime.
package config

import "time"

// Config is the complete runtime configuration.
type Config struct {
	// Agent contains control loop settings.
	Agent AgentSettings `json:"agent" yaml:"agent"`
	// Oracle selects and tunes the reasoning oracle.
	Oracle OracleConfig `json:"oracle" yaml:"oracle"`
	// Search configures the web search capability.
	Search SearchConfig `json:"search" yaml:"search"`
	// Tools configures tool execution.
	Tools ToolsConfig `json:"tools" yaml:"tools"`
	// Storage selects where results are persisted.
	Storage StorageConfig `json:"storage" yaml:"storage"`
	// Logging configures the logger.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	// Telemetry configures tracing and metrics.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// AgentSettings contains control loop settings.
type AgentSettings struct {
	// MaxIterations is the iteration budget per task.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// OracleTimeout bounds a single oracle consultation.
	OracleTimeout Duration `json:"oracle_timeout" yaml:"oracle_timeout"`
	// ToolTimeout bounds a single tool invocation.
	ToolTimeout Duration `json:"tool_timeout" yaml:"tool_timeout"`
	// MaxObservationChars truncates observations kept in history (0 = no limit).
	MaxObservationChars int `json:"max_observation_chars" yaml:"max_observation_chars"`
	// FallbackAfter redirects to the fallback tool after this many
	// consecutive failures (0 = never).
	FallbackAfter int `json:"fallback_after" yaml:"fallback_after"`
	// FatalTools lists tools whose faults end the run.
	FatalTools []string `json:"fatal_tools,omitempty" yaml:"fatal_tools,omitempty"`
}

// OracleConfig selects and tunes the reasoning oracle.
type OracleConfig struct {
	// Provider is one of gemini, openai, anthropic, ollama, scripted.
	Provider string `json:"provider" yaml:"provider"`
	// Model is the provider model name.
	Model string `json:"model" yaml:"model"`
	// APIKey authenticates against the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature"`
	// MaxTokens caps the response length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
	// MaxTranscriptSteps is how many recent steps are rendered verbatim.
	MaxTranscriptSteps int `json:"max_transcript_steps" yaml:"max_transcript_steps"`
	// MaxTranscriptTokens caps the rendered transcript.
	MaxTranscriptTokens int `json:"max_transcript_tokens" yaml:"max_transcript_tokens"`
	// Retries is the number of retries after a failed provider call.
	Retries int `json:"retries" yaml:"retries"`
	// RequestsPerSecond throttles provider calls (0 = unlimited).
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	// Refine rewrites finished answers with one more provider call.
	Refine bool `json:"refine" yaml:"refine"`
}

// SearchConfig configures the web search capability.
type SearchConfig struct {
	// Provider is one of serpapi, duckduckgo, memory.
	Provider string `json:"provider" yaml:"provider"`
	// APIKey authenticates against SerpAPI.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Language is the result language (hl).
	Language string `json:"language" yaml:"language"`
	// Country is the result country (gl).
	Country string `json:"country" yaml:"country"`
	// NumResults is the default number of results.
	NumResults int `json:"num_results" yaml:"num_results"`
	// RequestsPerSecond throttles provider calls.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// ToolsConfig configures tool execution.
type ToolsConfig struct {
	// Timeout is the executor's default per-call timeout.
	Timeout Duration `json:"timeout" yaml:"timeout"`
	// Bulkhead is the maximum number of concurrent tool calls.
	Bulkhead int `json:"bulkhead" yaml:"bulkhead"`
	// Retries is the number of attempts for retryable tools.
	Retries int `json:"retries" yaml:"retries"`
	// BreakerThreshold is the failure count that opens a tool's circuit.
	BreakerThreshold int `json:"breaker_threshold" yaml:"breaker_threshold"`
	// BreakerTimeout is how long an open circuit stays open.
	BreakerTimeout Duration `json:"breaker_timeout" yaml:"breaker_timeout"`
	// RateLimit configures tool call rate limiting.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	// Cache configures the observation cache.
	Cache CacheConfig `json:"cache" yaml:"cache"`
}

// RateLimitConfig configures rate limiting.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Rate is the tokens per second.
	Rate int `json:"rate,omitempty" yaml:"rate,omitempty"`
	// Burst is the maximum burst size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
	// ToolRates maps tool names to rate/burst.
	ToolRates map[string]ToolRateLimitConfig `json:"tool_rates,omitempty" yaml:"tool_rates,omitempty"`
}

// ToolRateLimitConfig configures per-tool rate limiting.
type ToolRateLimitConfig struct {
	// Rate is tokens per second.
	Rate int `json:"rate" yaml:"rate"`
	// Burst is maximum burst size.
	Burst int `json:"burst" yaml:"burst"`
}

// CacheConfig configures the observation cache.
type CacheConfig struct {
	// Backend is one of none, memory, redis, sqlite, badger.
	Backend string `json:"backend" yaml:"backend"`
	// TTL is the entry lifetime.
	TTL Duration `json:"ttl" yaml:"ttl"`
	// Size is the memory cache capacity.
	Size int `json:"size" yaml:"size"`
	// RedisAddr is the redis address for the redis backend.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	// Path is the database location for the sqlite and badger backends.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// StorageConfig selects where results are persisted.
type StorageConfig struct {
	// Backend is one of none, memory, file, sqlite, postgres, badger, mongodb.
	Backend string `json:"backend" yaml:"backend"`
	// DSN is the connection string for sqlite, postgres and mongodb.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Path is the directory for the file and badger backends.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Database is the MongoDB database name.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	// Collection is the MongoDB collection or the postgres schema.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
	// Format is json or console.
	Format string `json:"format" yaml:"format"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
	// MetricsAddr is the Prometheus listen address (empty disables it).
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns tracing on.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Exporter is stdout or otlp.
	Exporter string `json:"exporter" yaml:"exporter"`
	// Endpoint is the OTLP collector address.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// SampleRate is the fraction of runs traced.
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`
	// ServiceName names the service in exported telemetry.
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Agent: AgentSettings{
			MaxIterations:       10,
			OracleTimeout:       Duration(60 * time.Second),
			ToolTimeout:         Duration(30 * time.Second),
			MaxObservationChars: 2000,
			FallbackAfter:       3,
		},
		Oracle: OracleConfig{
			Provider:            "gemini",
			Model:               "gemini-2.0-flash-exp",
			Temperature:         0.7,
			MaxTokens:           1024,
			MaxTranscriptSteps:  6,
			MaxTranscriptTokens: 3000,
			Retries:             2,
			Refine:              true,
		},
		Search: SearchConfig{
			Provider:          "serpapi",
			Language:          "vi",
			Country:           "vn",
			NumResults:        10,
			RequestsPerSecond: 1,
		},
		Tools: ToolsConfig{
			Timeout:          Duration(30 * time.Second),
			Bulkhead:         10,
			Retries:          2,
			BreakerThreshold: 5,
			BreakerTimeout:   Duration(30 * time.Second),
			Cache: CacheConfig{
				Backend: "memory",
				TTL:     Duration(10 * time.Minute),
				Size:    1000,
			},
		},
		Storage: StorageConfig{
			Backend: "none",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Tracing: TracingConfig{
				Exporter:    "stdout",
				SampleRate:  1,
				ServiceName: "react-agent",
			},
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements the yaml.v2-style unmarshaler honoured by yaml.v3.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
