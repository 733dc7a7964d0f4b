package config

import (
	"time"

	"github.com/felixgeelhaar/react-agent/application"
	"github.com/felixgeelhaar/react-agent/domain/config"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
	"github.com/felixgeelhaar/react-agent/infrastructure/middleware"
	"github.com/felixgeelhaar/react-agent/infrastructure/resilience"
)

// EngineConfig derives the per-run loop limits.
func EngineConfig(cfg *config.Config) application.Config {
	return application.Config{
		MaxIterations:       cfg.Agent.MaxIterations,
		OracleTimeout:       cfg.Agent.OracleTimeout.Duration(),
		ToolTimeout:         cfg.Agent.ToolTimeout.Duration(),
		MaxObservationChars: cfg.Agent.MaxObservationChars,
		FallbackAfter:       cfg.Agent.FallbackAfter,
	}
}

// Classifier derives the fault classifier, marking configured tools fatal.
func Classifier(cfg *config.Config) application.FaultClassifier {
	if len(cfg.Agent.FatalTools) == 0 {
		return application.DefaultClassifier{}
	}
	return application.WithFatalTools(application.DefaultClassifier{}, cfg.Agent.FatalTools...)
}

// ExecutorOptions derives the resilient tool executor settings. Unset
// fields keep the executor defaults.
func ExecutorOptions(cfg *config.Config) []resilience.Option {
	t := cfg.Tools
	return []resilience.Option{
		resilience.WithMaxConcurrent(t.Bulkhead),
		resilience.WithBreaker(t.BreakerThreshold, t.BreakerTimeout.Duration()),
		resilience.WithRetryAttempts(t.Retries),
		resilience.WithTimeout(t.Timeout.Duration()),
	}
}

// RateLimit derives the rate limit middleware settings. The boolean is
// false when rate limiting is disabled.
func RateLimit(cfg *config.Config) (middleware.RateLimitConfig, bool) {
	rl := cfg.Tools.RateLimit
	if !rl.Enabled {
		return middleware.RateLimitConfig{}, false
	}

	out := middleware.RateLimitConfig{
		Scope:    middleware.ScopePerTool,
		Rate:     rl.Rate,
		Burst:    rl.Burst,
		FailOpen: true,
	}
	if len(rl.ToolRates) > 0 {
		out.ToolRates = make(map[string]int, len(rl.ToolRates))
		for name, r := range rl.ToolRates {
			out.ToolRates[name] = r.Rate
		}
	}
	return out, true
}

// CacheTTL returns the observation cache entry lifetime.
func CacheTTL(cfg *config.Config) time.Duration {
	return cfg.Tools.Cache.TTL.Duration()
}

// Logging derives the logger settings.
func Logging(cfg *config.Config) logging.Config {
	lc := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		lc.Level = cfg.Logging.Level
	}
	if cfg.Logging.Format != "" {
		lc.Format = cfg.Logging.Format
	}
	return lc
}
