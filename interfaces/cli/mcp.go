package cli

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/react-agent/infrastructure/mcp"
)

// newMCPCmd creates the command that serves the agent's tools over MCP.
func (a *App) newMCPCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the agent's tools over the Model Context Protocol",
		Long: `Expose search, weather, summarization and answer tools to MCP clients.

The server speaks over stdin/stdout unless --addr is given, in which case
it serves HTTP with server-sent events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := a.buildRuntime(ctx, runtimeOptions{noEngine: true})
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			srv := mcp.NewToolServer(mcp.ToolServerConfig{
				Name:         "react-agent",
				Version:      Version,
				Registry:     rt.registry,
				Description:  "Web search and text tools of the ReAct agent",
				Instructions: "Call search_action first, then answer_question with its output.",
				Timeout:      rt.cfg.Agent.ToolTimeout.Duration(),
			})

			if addr != "" {
				return srv.ServeHTTP(ctx, addr)
			}
			return srv.ServeStdio(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Serve HTTP on this address instead of stdio")

	return cmd
}
