package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
)

// Refiner defaults.
const (
	DefaultRefineTemperature = 0.3
	DefaultRefineMaxTokens   = 512
	DefaultRefineSteps       = 6
	refineClip               = 100
)

// LLMRefiner rewrites a finished answer into a short reply to the user,
// grounded on the query and the last few steps.
type LLMRefiner struct {
	provider    Provider
	model       string
	temperature float64
	maxTokens   int
	steps       int
}

// LLMRefinerConfig configures the LLM refiner.
type LLMRefinerConfig struct {
	Provider    Provider
	Model       string
	Temperature float64
	MaxTokens   int

	// Steps is how many trailing steps are summarized in the prompt.
	Steps int
}

// NewLLMRefiner creates a refiner on p.
func NewLLMRefiner(cfg LLMRefinerConfig) (*LLMRefiner, error) {
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultRefineTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultRefineMaxTokens
	}
	if cfg.Steps == 0 {
		cfg.Steps = DefaultRefineSteps
	}
	return &LLMRefiner{
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		steps:       cfg.Steps,
	}, nil
}

// Refine implements domain oracle.Refiner.
func (r *LLMRefiner) Refine(ctx context.Context, query string, steps []agent.Step, answer string) (string, error) {
	resp, err := r.provider.Complete(ctx, CompletionRequest{
		Model:       r.model,
		Messages:    []Message{{Role: RoleUser, Content: r.prompt(query, steps, answer)}},
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		return "", &domainoracle.Error{Oracle: r.provider.Name(), Err: err}
	}
	refined := strings.TrimSpace(resp.Message.Content)
	if refined == "" {
		return "", &domainoracle.Error{Oracle: r.provider.Name(), Err: ErrEmptyCompletion}
	}
	return refined, nil
}

func (r *LLMRefiner) prompt(query string, steps []agent.Step, answer string) string {
	var sb strings.Builder
	sb.WriteString("Based on the following search and analysis:\n\n")
	fmt.Fprintf(&sb, "User question: %s\n\nReasoning:\n", query)
	for _, st := range steps[max(0, len(steps)-r.steps):] {
		if st.Reasoning != "" {
			fmt.Fprintf(&sb, "- %s\n", clip(st.Reasoning, refineClip))
		}
		if st.Observation != "" {
			fmt.Fprintf(&sb, "- %s\n", clip(st.Observation, refineClip))
		}
	}
	fmt.Fprintf(&sb, "\nAnswer found: %s\n\n", answer)
	sb.WriteString(`Write a short, clear and helpful final reply to the user.
The reply should:
1. Answer the question directly
2. Give the most important information
3. Use the language of the question
4. Stay concise`)
	return sb.String()
}

var _ domainoracle.Refiner = (*LLMRefiner)(nil)
