package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// CountTokens counts text in cl100k_base tokens, or estimates from runes and
// words when the encoding cannot be loaded.
func CountTokens(text string) int {
	encodingOnce.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			encoding = enc
		}
	})
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return EstimateTokens(text)
}

// EstimateTokens returns max(runes/4, words), at least 1 for non-blank text.
func EstimateTokens(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len([]rune(trimmed)) / 4
	if words := len(strings.Fields(trimmed)); estimate < words {
		estimate = words
	}
	return max(estimate, 1)
}

// TranscriptRenderer turns a transcript into the user message sent to the
// model. The newest MaxSteps steps are rendered in full and older ones are
// folded into a one-line summary. The result is kept within MaxTokens by
// folding more steps.
type TranscriptRenderer struct {
	// MaxSteps is the number of recent steps rendered in full. Default 6.
	MaxSteps int

	// MaxTokens bounds the rendered text. Zero disables the bound.
	MaxTokens int

	// MaxObservationChars truncates each rendered observation. Default 300.
	MaxObservationChars int

	// Count measures text. Defaults to CountTokens.
	Count func(string) int
}

// DefaultTranscriptRenderer returns the renderer used by LLMOracle.
func DefaultTranscriptRenderer() TranscriptRenderer {
	return TranscriptRenderer{MaxSteps: 6, MaxTokens: 3000, MaxObservationChars: 300}
}

// Render serializes t.
func (r TranscriptRenderer) Render(t domainoracle.Transcript) string {
	maxSteps := r.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 6
	}
	count := r.Count
	if count == nil {
		count = CountTokens
	}

	folded := max(len(t.Steps)-maxSteps, 0)
	text := r.render(t, folded)
	for r.MaxTokens > 0 && folded < len(t.Steps) && count(text) > r.MaxTokens {
		folded++
		text = r.render(t, folded)
	}
	return text
}

func (r TranscriptRenderer) render(t domainoracle.Transcript, folded int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Question\n%s\n\n", t.Query)
	fmt.Fprintf(&sb, "## Progress\nIteration %d of %d (%d remaining)\n\n", t.Iteration+1, t.MaxIterations, t.Remaining())

	if len(t.Steps) == 0 {
		sb.WriteString("## Previous Steps\nNone yet.\n\n")
	} else {
		sb.WriteString("## Previous Steps\n")
		if folded > 0 {
			fmt.Fprintf(&sb, "Earlier: %s\n", summarizeSteps(t.Steps[:folded]))
		}
		for i := folded; i < len(t.Steps); i++ {
			r.renderStep(&sb, i+1, t.Steps[i])
		}
		sb.WriteString("\n")
	}

	sb.WriteString("What is your next step? Respond with the JSON object only.")
	return sb.String()
}

func (r TranscriptRenderer) renderStep(sb *strings.Builder, n int, s agent.Step) {
	limit := r.MaxObservationChars
	if limit <= 0 {
		limit = 300
	}
	status := "success"
	if !s.Succeeded {
		status = "failed"
	}

	fmt.Fprintf(sb, "Step %d:\n", n)
	if s.Reasoning != "" {
		fmt.Fprintf(sb, "  Thought: %s\n", s.Reasoning)
	}
	fmt.Fprintf(sb, "  Action: %s", s.Action)
	if len(s.Args) > 0 {
		if args, err := json.Marshal(s.Args); err == nil {
			fmt.Fprintf(sb, " %s", args)
		}
	}
	fmt.Fprintf(sb, "\n  Observation (%s): %s\n", status, clip(s.Observation, limit))
}

// summarizeSteps renders steps as "3 steps: search_action ok, summarize_action failed, ...".
func summarizeSteps(steps []agent.Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		outcome := "ok"
		if !s.Succeeded {
			outcome = "failed"
		}
		parts[i] = s.Action + " " + outcome
	}
	return fmt.Sprintf("%d steps: %s", len(steps), strings.Join(parts, ", "))
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
