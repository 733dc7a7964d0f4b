package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/felixgeelhaar/react-agent/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict bool
	print  string
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate an agent configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Field types and constraints
  - Environment variable references (in strict mode)

Without -c the defaults plus the environment overlay are validated.

Examples:
  # Validate a configuration file
  react-agent validate -c config.yaml

  # Strict validation (fail on missing env vars)
  react-agent validate -c config.yaml --strict

  # Print the effective configuration
  react-agent validate -c config.yaml --print yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().StringVar(&opts.print, "print", "", "Print the effective configuration (yaml or json)")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	loader := infraconfig.NewLoader(
		infraconfig.WithValidation(true),
		infraconfig.WithStrictEnv(opts.strict),
	)
	cfg, err := loader.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if opts.print != "" {
		out, err := infraconfig.Marshal(cfg, infraconfig.Format(opts.print))
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(out)
		return err
	}

	p := a.printer()
	fmt.Fprintf(a.stdout, "%s Configuration is valid\n", p.green("✓"))

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Max iterations: %d\n", cfg.Agent.MaxIterations)
	fmt.Fprintf(a.stdout, "  Oracle: %s (%s)\n", cfg.Oracle.Provider, cfg.Oracle.Model)
	fmt.Fprintf(a.stdout, "  Search: %s (%s-%s, %d results)\n",
		cfg.Search.Provider, cfg.Search.Language, cfg.Search.Country, cfg.Search.NumResults)
	fmt.Fprintf(a.stdout, "  Cache: %s\n", cfg.Tools.Cache.Backend)
	fmt.Fprintf(a.stdout, "  Storage: %s\n", cfg.Storage.Backend)

	if len(cfg.Agent.FatalTools) > 0 {
		fmt.Fprintf(a.stdout, "  Fatal tools: %v\n", cfg.Agent.FatalTools)
	}
	if cfg.Tools.RateLimit.Enabled {
		fmt.Fprintf(a.stdout, "  Rate limiting: enabled (rate=%d, burst=%d)\n",
			cfg.Tools.RateLimit.Rate, cfg.Tools.RateLimit.Burst)
	}
	if cfg.Telemetry.Tracing.Enabled {
		fmt.Fprintf(a.stdout, "  Tracing: %s\n", cfg.Telemetry.Tracing.Exporter)
	}
	if cfg.Telemetry.MetricsAddr != "" {
		fmt.Fprintf(a.stdout, "  Metrics: %s/metrics\n", cfg.Telemetry.MetricsAddr)
	}

	return nil
}
