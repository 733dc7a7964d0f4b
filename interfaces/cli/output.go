package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// printer renders results for a terminal.
type printer struct {
	w io.Writer

	bold   func(a ...any) string
	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	gray   func(a ...any) string
}

func (a *App) printer() *printer {
	paint := func(attr color.Attribute) func(a ...any) string {
		c := color.New(attr)
		if a.noColor {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return &printer{
		w:      a.stdout,
		bold:   paint(color.Bold),
		green:  paint(color.FgGreen),
		red:    paint(color.FgRed),
		yellow: paint(color.FgYellow),
		cyan:   paint(color.FgCyan),
		gray:   paint(color.FgHiBlack),
	}
}

func (p *printer) status(s agent.Status) string {
	switch s {
	case agent.StatusFinished:
		return p.green(s.String())
	case agent.StatusFailed:
		return p.red(s.String())
	case agent.StatusExhausted:
		return p.yellow(s.String())
	default:
		return s.String()
	}
}

// step prints one history entry.
func (p *printer) step(i int, st agent.Step) {
	mark := p.green("ok")
	if !st.Succeeded {
		mark = p.red("failed")
	}
	fmt.Fprintf(p.w, "%s %s [%s]\n", p.bold(fmt.Sprintf("Step %d:", i)), p.cyan(st.Action), mark)
	if st.Reasoning != "" {
		fmt.Fprintf(p.w, "  %s %s\n", p.gray("thought:"), st.Reasoning)
	}
	if len(st.Args) > 0 {
		args, _ := json.Marshal(st.Args)
		fmt.Fprintf(p.w, "  %s %s\n", p.gray("args:"), args)
	}
	fmt.Fprintf(p.w, "  %s %s\n", p.gray("observation:"), preview(st.Observation, 300))
}

// result prints the answer, optionally preceded by the history.
func (p *printer) result(r agent.Result, verbose bool) {
	if verbose {
		for i, st := range r.History {
			p.step(i+1, st)
		}
		fmt.Fprintln(p.w)
	}

	switch {
	case r.Succeeded():
		fmt.Fprintf(p.w, "%s %s\n", p.bold("Answer:"), r.FinalAnswer)
	case r.Error != "":
		fmt.Fprintf(p.w, "%s %s\n", p.red("Error:"), r.Error)
	default:
		fmt.Fprintf(p.w, "%s no answer within %d iterations\n", p.yellow("Exhausted:"), r.IterationCount)
	}

	sum := r.Summary()
	fmt.Fprintf(p.w, "%s status=%s iterations=%d elapsed=%s tools=%s\n",
		p.gray("run "+r.RunID),
		p.status(r.Status),
		r.IterationCount,
		r.ElapsedTime.Round(time.Millisecond),
		strings.Join(sum.ToolsUsed, ","),
	)
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func preview(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
