package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// ErrNoQueries is returned when a batch file holds no questions.
var ErrNoQueries = errors.New("no queries to run")

// batchItem is the outcome of one question in a batch.
type batchItem struct {
	Query  string        `json:"query"`
	Result *agent.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// newBatchCmd creates the batch command.
func (a *App) newBatchCmd() *cobra.Command {
	var (
		flags       runFlags
		concurrency int
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Answer every question in a file",
		Long: `Run the agent on each line of a file ("-" reads standard input).

Blank lines and lines starting with # are skipped. Questions run
concurrently, each with its own run state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			queries, err := a.readQueries(args[0])
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				return ErrNoQueries
			}

			rt, err := a.buildRuntime(ctx, flags.options())
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			items := runBatch(ctx, rt, queries, concurrency)

			if jsonOut {
				return writeJSON(a.stdout, items)
			}
			return a.printBatch(items)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Maximum questions answered at once")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the results as JSON")

	return cmd
}

// runBatch answers queries with at most concurrency runs in flight. Items
// keep the order of queries.
func runBatch(ctx context.Context, rt *runtime, queries []string, concurrency int) []batchItem {
	if concurrency < 1 {
		concurrency = 1
	}
	items := make([]batchItem, len(queries))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, q := range queries {
		g.Go(func() error {
			items[i].Query = q
			result, err := rt.execute(ctx, q)
			if result.RunID != "" {
				items[i].Result = &result
			}
			if err != nil {
				items[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	return items
}

func (a *App) readQueries(path string) ([]string, error) {
	var r io.Reader = a.stdin
	if path != "-" {
		f, err := os.Open(path) // #nosec G304 -- path is supplied by the operator
		if err != nil {
			return nil, fmt.Errorf("open queries: %w", err)
		}
		defer f.Close()
		r = f
	}

	var queries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	return queries, nil
}

func (a *App) printBatch(items []batchItem) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATUS\tITERATIONS\tELAPSED\tQUERY\tANSWER")

	finished := 0
	for i, item := range items {
		status, iterations, elapsed, answer := "error", "-", "-", item.Error
		if r := item.Result; r != nil {
			status = r.Status.String()
			iterations = fmt.Sprint(r.IterationCount)
			elapsed = r.ElapsedTime.Round(time.Millisecond).String()
			answer = r.FinalAnswer
			if answer == "" {
				answer = r.Error
			}
			if r.Succeeded() {
				finished++
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, status, iterations, elapsed, preview(item.Query, 40), preview(answer, 60))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "\n%d/%d answered\n", finished, len(items))
	return nil
}
