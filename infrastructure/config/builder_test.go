package config

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/react-agent/application"
	"github.com/felixgeelhaar/react-agent/domain/config"
	"github.com/felixgeelhaar/react-agent/infrastructure/middleware"
	"github.com/felixgeelhaar/react-agent/infrastructure/resilience"
)

func TestEngineConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	got := EngineConfig(&cfg)
	if got != application.DefaultConfig() {
		t.Errorf("EngineConfig(Default()) = %+v, want %+v", got, application.DefaultConfig())
	}

	cfg.Agent.MaxIterations = 2
	cfg.Agent.ToolTimeout = config.Duration(time.Second)
	got = EngineConfig(&cfg)
	if got.MaxIterations != 2 || got.ToolTimeout != time.Second {
		t.Errorf("EngineConfig() = %+v, want max 2, tool timeout 1s", got)
	}
}

func TestClassifier(t *testing.T) {
	t.Parallel()

	toolFault := application.Fault{
		Source:   application.SourceTool,
		Kind:     application.FaultToolError,
		ToolName: "search_action",
		Err:      errors.New("boom"),
	}

	cfg := config.Default()
	if got := Classifier(&cfg).Classify(toolFault); got != application.Recoverable {
		t.Errorf("Classify() = %v, want recoverable", got)
	}

	cfg.Agent.FatalTools = []string{"search_action"}
	if got := Classifier(&cfg).Classify(toolFault); got != application.Fatal {
		t.Errorf("Classify() with fatal tool = %v, want fatal", got)
	}
}

func TestExecutorOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Tools.Bulkhead = 3
	cfg.Tools.Retries = 4
	cfg.Tools.BreakerThreshold = 6
	cfg.Tools.BreakerTimeout = config.Duration(time.Minute)
	cfg.Tools.Timeout = config.Duration(5 * time.Second)

	got := resilience.NewExecutorWithOptions(ExecutorOptions(&cfg)...).Config()
	if got.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", got.MaxConcurrent)
	}
	if got.RetryMaxAttempts != 4 {
		t.Errorf("RetryMaxAttempts = %d, want 4", got.RetryMaxAttempts)
	}
	if got.CircuitBreakerThreshold != 6 {
		t.Errorf("CircuitBreakerThreshold = %d, want 6", got.CircuitBreakerThreshold)
	}
	if got.CircuitBreakerTimeout != time.Minute {
		t.Errorf("CircuitBreakerTimeout = %v, want 1m", got.CircuitBreakerTimeout)
	}
	if got.DefaultTimeout != 5*time.Second {
		t.Errorf("DefaultTimeout = %v, want 5s", got.DefaultTimeout)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if _, ok := RateLimit(&cfg); ok {
		t.Error("RateLimit() enabled by default, want disabled")
	}

	cfg.Tools.RateLimit = config.RateLimitConfig{
		Enabled:   true,
		Rate:      5,
		Burst:     10,
		ToolRates: map[string]config.ToolRateLimitConfig{"search_action": {Rate: 1, Burst: 1}},
	}
	got, ok := RateLimit(&cfg)
	if !ok {
		t.Fatal("RateLimit() disabled, want enabled")
	}
	if got.Scope != middleware.ScopePerTool || got.Rate != 5 || got.Burst != 10 {
		t.Errorf("RateLimit() = %+v, want per_tool 5/10", got)
	}
	if got.ToolRates["search_action"] != 1 {
		t.Errorf("ToolRates[search_action] = %d, want 1", got.ToolRates["search_action"])
	}
}

func TestLogging(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	got := Logging(&cfg)
	if got.Level != "debug" || got.Format != "json" {
		t.Errorf("Logging() = %+v, want debug/json", got)
	}
	if got.Output == nil {
		t.Error("Logging().Output = nil, want stderr")
	}
}
