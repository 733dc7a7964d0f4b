package application

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.MaxIterations)
	}
	if cfg.OracleTimeout != 60*time.Second {
		t.Errorf("OracleTimeout = %v, want 60s", cfg.OracleTimeout)
	}
	if cfg.ToolTimeout != 30*time.Second {
		t.Errorf("ToolTimeout = %v, want 30s", cfg.ToolTimeout)
	}
	if cfg.MaxObservationChars != 2000 {
		t.Errorf("MaxObservationChars = %d, want 2000", cfg.MaxObservationChars)
	}
	if cfg.FallbackAfter != 3 {
		t.Errorf("FallbackAfter = %d, want 3", cfg.FallbackAfter)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"one iteration", func(c *Config) { c.MaxIterations = 1 }, false},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }, true},
		{"unbounded timeouts", func(c *Config) { c.OracleTimeout, c.ToolTimeout = 0, 0 }, false},
		{"negative oracle timeout", func(c *Config) { c.OracleTimeout = -time.Second }, true},
		{"negative tool timeout", func(c *Config) { c.ToolTimeout = -time.Second }, true},
		{"negative observation limit", func(c *Config) { c.MaxObservationChars = -1 }, true},
		{"negative fallback threshold", func(c *Config) { c.FallbackAfter = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	engine, err := NewEngineWithOptions(
		WithRegistry(newTestRegistry()),
		WithOracle(nil),
	)
	if !errors.Is(err, ErrNoOracle) || engine != nil {
		t.Errorf("NewEngineWithOptions() = %v, %v; want ErrNoOracle", engine, err)
	}

	var cfg EngineConfig
	WithMaxIterations(4)(&cfg)
	WithTimeouts(time.Second, 2*time.Second)(&cfg)
	if cfg.Config.MaxIterations != 4 || cfg.Config.OracleTimeout != time.Second || cfg.Config.ToolTimeout != 2*time.Second {
		t.Errorf("Config = %+v", cfg.Config)
	}
	if cfg.Config.FallbackAfter != DefaultConfig().FallbackAfter {
		t.Errorf("FallbackAfter = %d, want the default", cfg.Config.FallbackAfter)
	}
}
