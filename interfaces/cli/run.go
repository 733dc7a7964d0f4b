package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/react-agent/infrastructure/storage"
)

// ErrNoAnswer is returned when a task ends without a final answer.
var ErrNoAnswer = errors.New("task ended without an answer")

// runFlags are shared by commands that execute tasks.
type runFlags struct {
	maxIterations int
	scripted      bool
	storage       string
	save          bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.maxIterations, "max-iterations", "n", 0, "Iteration budget per task (default from config)")
	cmd.Flags().BoolVar(&f.scripted, "scripted", false, "Use the offline scripted oracle instead of an LLM")
	cmd.Flags().StringVar(&f.storage, "storage", "", "Override the result storage backend (none, memory, file, sqlite, postgres, badger, mongodb)")
	cmd.Flags().BoolVar(&f.save, "save", false, "Save each result as a JSON file (same as --storage file)")
}

func (f *runFlags) options() runtimeOptions {
	opts := runtimeOptions{
		scripted:      f.scripted,
		maxIterations: f.maxIterations,
		storage:       f.storage,
	}
	if f.save && opts.storage == "" {
		opts.storage = storage.BackendFile
	}
	return opts
}

// newRunCmd creates the run command.
func (a *App) newRunCmd() *cobra.Command {
	var (
		flags   runFlags
		jsonOut bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Answer a single question",
		Long: `Run the agent loop on one question and print the final answer.

Examples:
  react-agent run "Thời tiết Hà Nội hôm nay thế nào?"
  react-agent run --scripted --verbose "latest Go release"
  react-agent run --json -n 5 "who won the 2022 world cup"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			rt, err := a.buildRuntime(ctx, flags.options())
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			result, err := rt.execute(ctx, query)
			if err != nil && result.RunID == "" {
				return fmt.Errorf("run: %w", err)
			}

			if jsonOut {
				if err := writeJSON(a.stdout, result); err != nil {
					return err
				}
			} else {
				a.printer().result(result, verbose)
			}

			if err != nil {
				return err
			}
			if !result.Succeeded() {
				return fmt.Errorf("%w: %s", ErrNoAnswer, result.Status)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every reasoning step")

	return cmd
}
