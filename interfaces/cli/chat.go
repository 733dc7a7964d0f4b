package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newChatCmd creates the interactive chat command.
func (a *App) newChatCmd() *cobra.Command {
	var (
		flags   runFlags
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Answer questions interactively",
		Long: `Read questions from standard input and answer each one in turn.

Type "exit" or "quit" (or send EOF) to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := a.buildRuntime(ctx, flags.options())
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			p := a.printer()
			fmt.Fprintln(a.stdout, p.bold("ReAct agent ready. Type exit to quit."))

			scanner := bufio.NewScanner(a.stdin)
			for {
				fmt.Fprint(a.stdout, p.cyan("> "))
				if !scanner.Scan() {
					fmt.Fprintln(a.stdout)
					return scanner.Err()
				}

				query := strings.TrimSpace(scanner.Text())
				switch strings.ToLower(query) {
				case "":
					continue
				case "exit", "quit":
					fmt.Fprintln(a.stdout, "Goodbye!")
					return nil
				}

				result, err := rt.execute(ctx, query)
				if err != nil && result.RunID == "" {
					fmt.Fprintf(a.stdout, "%s %v\n", p.red("Error:"), err)
					continue
				}
				p.result(result, verbose)

				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every reasoning step")

	return cmd
}
