package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// toolInfo is the listing form of a registered tool.
type toolInfo struct {
	Pack        string          `json:"pack"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ReadOnly    bool            `json:"read_only"`
	Cacheable   bool            `json:"cacheable"`
	Schema      json.RawMessage `json:"input_schema,omitempty"`
}

// newToolsCmd creates the tools command.
func (a *App) newToolsCmd() *cobra.Command {
	var (
		jsonOut bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.buildRuntime(cmd.Context(), runtimeOptions{noEngine: true})
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			order, err := rt.packs.Plan()
			if err != nil {
				return err
			}

			var infos []toolInfo
			headers := make(map[string]string)
			for _, p := range order {
				switch {
				case p.Backend != "":
					headers[p.Name] = fmt.Sprintf("%s (%s)", p.Name, p.Backend)
				case p.Offline():
					headers[p.Name] = p.Name + " (offline)"
				default:
					headers[p.Name] = p.Name
				}
				for _, t := range p.Tools {
					ann := t.Annotations()
					infos = append(infos, toolInfo{
						Pack:        p.Name,
						Name:        t.Name(),
						Description: t.Description(),
						ReadOnly:    ann.ReadOnly,
						Cacheable:   ann.CanCache(),
						Schema:      t.InputSchema().Raw(),
					})
				}
			}

			if jsonOut {
				return writeJSON(a.stdout, infos)
			}

			pr := a.printer()
			current := ""
			for _, info := range infos {
				if info.Pack != current {
					current = info.Pack
					fmt.Fprintf(a.stdout, "%s\n", pr.bold(headers[current]))
				}
				fmt.Fprintf(a.stdout, "  %s  %s\n", pr.cyan(info.Name), info.Description)
				if verbose && len(info.Schema) > 0 {
					fmt.Fprintf(a.stdout, "    %s %s\n", pr.gray("schema:"), info.Schema)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the tools as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include input schemas")

	return cmd
}
