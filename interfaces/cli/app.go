// Package cli provides the command-line interface of the ReAct agent.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	reactagent "github.com/felixgeelhaar/react-agent"
	"github.com/felixgeelhaar/react-agent/domain/oracle"
	"github.com/felixgeelhaar/react-agent/pack/search"
)

// Version information set at build time.
var (
	Version   = reactagent.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	noColor    bool

	// Overrides used instead of the configured backends.
	oracle         oracle.Oracle
	searchProvider search.Provider
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "react-agent",
		Short: "Answer questions with a reason-and-act agent loop",
		Long: `react-agent answers questions by alternating between reasoning and acting.

Each iteration a reasoning oracle (an LLM) reads the transcript and either
invokes a tool (web search, weather lookup, summarization) or finishes with
an answer. The loop ends with an answer, a fatal error, or when the
iteration budget is spent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := app.root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Path to configuration file (YAML or JSON)")
	flags.BoolVar(&app.noColor, "no-color", false, "Disable colored output")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newRunCmd(),
		app.newChatCmd(),
		app.newBatchCmd(),
		app.newToolsCmd(),
		app.newHistoryCmd(),
		app.newMCPCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets the reader interactive commands read from.
func (a *App) WithInput(stdin io.Reader) *App {
	a.stdin = stdin
	a.root.SetIn(stdin)
	return a
}

// WithOracle replaces the configured reasoning oracle.
func (a *App) WithOracle(o oracle.Oracle) *App {
	a.oracle = o
	return a
}

// WithSearchProvider replaces the configured search backend.
func (a *App) WithSearchProvider(p search.Provider) *App {
	a.searchProvider = p
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "react-agent version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
