package resilience

import (
	"testing"
	"time"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opt   Option
		check func(ExecutorConfig) bool
	}{
		{"max concurrent", WithMaxConcurrent(20), func(c ExecutorConfig) bool { return c.MaxConcurrent == 20 }},
		{"breaker", WithBreaker(3, time.Minute), func(c ExecutorConfig) bool {
			return c.CircuitBreakerThreshold == 3 && c.CircuitBreakerTimeout == time.Minute
		}},
		{"retry attempts", WithRetryAttempts(4), func(c ExecutorConfig) bool { return c.RetryMaxAttempts == 4 }},
		{"retry delay", WithRetryDelay(time.Second), func(c ExecutorConfig) bool { return c.RetryInitialDelay == time.Second }},
		{"timeout", WithTimeout(time.Second), func(c ExecutorConfig) bool { return c.DefaultTimeout == time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := DefaultExecutorConfig()
			tt.opt(&config)
			if !tt.check(config) {
				t.Errorf("%s not applied: %+v", tt.name, config)
			}
		})
	}
}

func TestOptionsKeepDefaultsOnZero(t *testing.T) {
	t.Parallel()

	want := DefaultExecutorConfig()
	got := NewExecutorWithOptions(
		WithMaxConcurrent(0),
		WithBreaker(0, 0),
		WithRetryAttempts(0),
		WithRetryDelay(0),
		WithTimeout(0),
	).Config()
	if got != want {
		t.Errorf("Config() = %+v, want %+v", got, want)
	}
}

func TestNewExecutorWithOptions(t *testing.T) {
	t.Parallel()

	executor := NewExecutorWithOptions(WithMaxConcurrent(4), WithTimeout(time.Second))
	cfg := executor.Config()
	if cfg.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", cfg.MaxConcurrent)
	}
	if cfg.DefaultTimeout != time.Second {
		t.Errorf("DefaultTimeout = %v, want 1s", cfg.DefaultTimeout)
	}
}
