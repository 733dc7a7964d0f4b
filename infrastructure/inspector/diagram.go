package inspector

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/react-agent/application"
	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// Maximum label lengths in diagrams.
const (
	maxQueryLabel  = 60
	maxActionLabel = 80
)

// MermaidFormatter formats a run as a Mermaid sequence diagram between the
// user, the agent loop and each tool it invoked.
type MermaidFormatter struct{}

// Format formats the result as Mermaid.
func (MermaidFormatter) Format(result agent.Result) ([]byte, error) {
	var b strings.Builder

	b.WriteString("sequenceDiagram\n")
	b.WriteString("  participant User\n")
	b.WriteString("  participant Agent\n")
	for _, name := range result.Summary().ToolsUsed {
		fmt.Fprintf(&b, "  participant %s\n", mermaidID(name))
	}

	fmt.Fprintf(&b, "  User->>Agent: %s\n", mermaidText(label(result.Query, maxQueryLabel)))
	for i, st := range result.History {
		switch {
		case st.IsFinish():
			fmt.Fprintf(&b, "  Agent-->>User: %s\n", mermaidText(label(st.Observation, maxActionLabel)))
		case st.Action == application.ActionOracleFault:
			fmt.Fprintf(&b, "  Note over Agent: step %d oracle error\n", i+1)
		default:
			arrow := "-->>"
			if !st.Succeeded {
				arrow = "--x"
			}
			tool := mermaidID(st.Action)
			fmt.Fprintf(&b, "  Agent->>%s: step %d\n", tool, i+1)
			fmt.Fprintf(&b, "  %s%sAgent: %s\n", tool, arrow, mermaidText(label(st.Observation, maxActionLabel)))
		}
	}
	if !result.Succeeded() {
		fmt.Fprintf(&b, "  Note over Agent: %s\n", mermaidText(result.Status.String()+" "+label(result.Error, maxActionLabel)))
	}

	return []byte(b.String()), nil
}

// FormatType returns the format type.
func (MermaidFormatter) FormatType() Format { return FormatMermaid }

func mermaidID(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '.' {
			return '_'
		}
		return r
	}, s)
}

func mermaidText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.NewReplacer(";", ",", "#", "", ":", " -").Replace(s)
}

// DOTFormatter formats a run as a Graphviz digraph, one node per step.
type DOTFormatter struct{}

// Format formats the result as DOT.
func (DOTFormatter) Format(result agent.Result) ([]byte, error) {
	var b strings.Builder

	b.WriteString("digraph AgentRun {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "  query [label=%q, shape=ellipse];\n", label(result.Query, maxQueryLabel))

	prev := "query"
	for i, st := range result.History {
		id := fmt.Sprintf("step%d", i+1)
		attrs := []string{fmt.Sprintf("label=%q", fmt.Sprintf("%d. %s", i+1, st.Action))}
		switch {
		case st.IsFinish():
			attrs = append(attrs, `style="rounded,filled"`, "fillcolor=lightgreen")
		case !st.Succeeded:
			attrs = append(attrs, `style="rounded,filled"`, "fillcolor=lightcoral")
		}
		fmt.Fprintf(&b, "  %s [%s];\n", id, strings.Join(attrs, ", "))
		fmt.Fprintf(&b, "  %s -> %s;\n", prev, id)
		prev = id
	}

	fmt.Fprintf(&b, "  result [label=%q, shape=ellipse];\n", result.Status.String())
	fmt.Fprintf(&b, "  %s -> result;\n", prev)
	b.WriteString("}\n")

	return []byte(b.String()), nil
}

// FormatType returns the format type.
func (DOTFormatter) FormatType() Format { return FormatDOT }
