package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
	"github.com/felixgeelhaar/react-agent/infrastructure/inspector"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage"
)

// ErrNoStorage is returned by history when results are not persisted.
var ErrNoStorage = errors.New("no result storage configured")

// newHistoryCmd creates the history command.
func (a *App) newHistoryCmd() *cobra.Command {
	var (
		backend string
		status  string
		query   string
		limit   int
		jsonOut bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show persisted task results",
		Long: `List stored results, newest first, or show one result in full.

Results are stored when storage.backend is set in the configuration
or --storage is given to run, chat or batch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if backend != "" {
				cfg.Storage.Backend = backend
			}
			if cfg.Storage.Backend == storage.BackendFile && cfg.Storage.Path == "" {
				cfg.Storage.Path = storage.DefaultResultDir
			}

			store, err := storage.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			if store == nil {
				return ErrNoStorage
			}
			defer storage.Close(store)

			if len(args) == 1 {
				result, err := store.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("get %s: %w", args[0], err)
				}
				if jsonOut {
					return writeJSON(a.stdout, result)
				}
				if format != "" {
					formatter, err := inspector.NewFormatter(inspector.Format(format))
					if err != nil {
						return err
					}
					out, err := formatter.Format(result)
					if err != nil {
						return fmt.Errorf("export %s: %w", args[0], err)
					}
					_, err = a.stdout.Write(out)
					return err
				}
				fmt.Fprintf(a.stdout, "Query: %s\n\n", result.Query)
				a.printer().result(result, true)
				return nil
			}

			filter := run.ListFilter{
				QueryContains: query,
				Limit:         limit,
				OrderBy:       run.OrderByStartedAt,
				Descending:    true,
			}
			if status != "" {
				s := agent.Status(status)
				if !s.IsValid() {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Statuses = []agent.Status{s}
			}

			results, err := store.List(ctx, filter)
			if err != nil {
				return fmt.Errorf("list results: %w", err)
			}
			if jsonOut {
				return writeJSON(a.stdout, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(a.stdout, "No results stored.")
				return nil
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tITERATIONS\tQUERY")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					r.RunID,
					r.StartedAt.Local().Format(time.DateTime),
					r.Status,
					r.IterationCount,
					preview(r.Query, 50),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&backend, "storage", "", "Override the result storage backend")
	cmd.Flags().StringVar(&status, "status", "", "Only show results with this status (finished, failed, exhausted)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only show results whose query contains this text")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum results to list (0 = all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Export one result as json, csv, mermaid or dot")

	return cmd
}
