package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// LLMOracle asks a chat model for each next step using a JSON protocol:
//
//	{"thought": "...", "action": {"name": "...", "parameters": {...}},
//	 "should_continue": true, "final_answer": ""}
type LLMOracle struct {
	provider     Provider
	renderer     TranscriptRenderer
	model        string
	temperature  float64
	maxTokens    int
	systemPrompt string
	finishing    map[string]bool

	mu      sync.Mutex
	pending map[string]struct{}
}

// LLMOracleConfig configures the LLM oracle.
type LLMOracleConfig struct {
	Provider    Provider
	Model       string
	Temperature float64
	MaxTokens   int

	// SystemPrompt replaces the built-in protocol description. The tool
	// catalogue is appended either way.
	SystemPrompt string

	// Renderer serializes the transcript. Zero value uses the defaults.
	Renderer TranscriptRenderer

	// FinishingTools end the run with their observation once they succeed.
	// Defaults to answer_question.
	FinishingTools []string
}

// DefaultSystemPrompt describes the decision protocol to the model.
const DefaultSystemPrompt = `You are a search agent using the ReAct (Reasoning + Acting) method.
Answer the user's question by reasoning step by step and calling tools to gather facts.

Respond with exactly one JSON object:
{
  "thought": "your reasoning about the current situation",
  "action": {"name": "<tool name>", "parameters": {"<param>": "<value>"}},
  "should_continue": true,
  "final_answer": ""
}

Rules:
- When you have enough information, set "should_continue" to false, omit "action" and put the answer in "final_answer".
- Otherwise choose one tool from the catalogue and set "should_continue" to true.
- Only call tools from the catalogue, with parameters matching their schema.
- Respond with JSON only, no other text.`

// ErrNoProvider indicates the oracle was built without a provider.
var ErrNoProvider = errors.New("provider is required")

// NewLLMOracle creates a new LLM oracle.
func NewLLMOracle(cfg LLMOracleConfig) (*LLMOracle, error) {
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Renderer.MaxSteps == 0 && cfg.Renderer.MaxTokens == 0 {
		cfg.Renderer = DefaultTranscriptRenderer()
	}
	if cfg.FinishingTools == nil {
		cfg.FinishingTools = []string{"answer_question"}
	}

	finishing := make(map[string]bool, len(cfg.FinishingTools))
	for _, name := range cfg.FinishingTools {
		finishing[name] = true
	}

	return &LLMOracle{
		provider:     cfg.Provider,
		renderer:     cfg.Renderer,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		systemPrompt: cfg.SystemPrompt,
		finishing:    finishing,
		pending:      make(map[string]struct{}),
	}, nil
}

// Decide implements domain oracle.Oracle.
func (o *LLMOracle) Decide(ctx context.Context, t domainoracle.Transcript) (agent.Decision, error) {
	if d, ok := o.carryOver(t); ok {
		return d, nil
	}

	req := CompletionRequest{
		Model: o.model,
		Messages: []Message{
			{Role: RoleSystem, Content: o.systemMessage(t)},
			{Role: RoleUser, Content: o.renderer.Render(t)},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		JSONMode:    true,
	}

	logging.ForRun(t.RunID).Debug().
		Add(logging.Iteration(t.Iteration)).
		Add(logging.Str("provider", o.provider.Name())).
		Msg("requesting decision")

	resp, err := o.provider.Complete(ctx, req)
	if err != nil {
		return agent.Decision{}, &domainoracle.Error{Oracle: o.provider.Name(), Err: err}
	}

	r, err := parseResponse(resp.Message.Content)
	if err != nil {
		return agent.Decision{}, &domainoracle.Error{Oracle: o.provider.Name(), Err: err}
	}

	d, err := o.decision(t, r)
	if err != nil {
		return agent.Decision{}, &domainoracle.Error{Oracle: o.provider.Name(), Err: err}
	}

	logging.ForRun(t.RunID).Debug().
		Add(logging.Decision(d.Kind)).
		Add(logging.Int("total_tokens", resp.Usage.TotalTokens)).
		Msg("decision received")
	return d, nil
}

// carryOver finishes runs whose previous step already settled the answer,
// without consulting the model. A stop deferred behind an action only
// settles when that action succeeded; otherwise the model decides again.
func (o *LLMOracle) carryOver(t domainoracle.Transcript) (agent.Decision, bool) {
	o.mu.Lock()
	_, pending := o.pending[t.RunID]
	delete(o.pending, t.RunID)
	o.mu.Unlock()

	last, ok := t.LastStep()
	if !ok || !last.Succeeded || strings.TrimSpace(last.Observation) == "" {
		return agent.Decision{}, false
	}
	switch {
	case o.finishing[last.Action]:
		return agent.NewFinishDecision(last.Observation, last.Action+" produced the answer"), true
	case pending:
		return agent.NewFinishDecision(last.Observation, "answer settled by the previous step"), true
	}
	return agent.Decision{}, false
}

func (o *LLMOracle) systemMessage(t domainoracle.Transcript) string {
	var sb strings.Builder
	sb.WriteString(o.systemPrompt)
	sb.WriteString("\n\n## Tools\n")
	for _, info := range t.Tools {
		fmt.Fprintf(&sb, "- %s: %s\n", info.Name, info.Description)
		if !info.Parameters.IsEmpty() {
			fmt.Fprintf(&sb, "  parameters (%s): %s\n", info.Parameters.Describe(), info.Parameters.Raw())
		}
	}
	return sb.String()
}

// llmResponse is the JSON object the model is asked to produce.
type llmResponse struct {
	Thought        string     `json:"thought"`
	Action         *llmAction `json:"action"`
	ShouldContinue *bool      `json:"should_continue"`
	FinalAnswer    string     `json:"final_answer"`
}

type llmAction struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

func (r llmResponse) continues() bool {
	return r.ShouldContinue == nil || *r.ShouldContinue
}

func (o *LLMOracle) decision(t domainoracle.Transcript, r llmResponse) (agent.Decision, error) {
	hasAction := r.Action != nil && strings.TrimSpace(r.Action.Name) != ""

	if hasAction && (r.Action.Name == agent.ActionFinish || r.Action.Name == "final_answer") {
		answer := r.FinalAnswer
		if answer == "" {
			answer, _ = r.Action.Parameters["answer"].(string)
		}
		if answer == "" {
			return agent.Decision{}, fmt.Errorf("%w: finish without an answer", domainoracle.ErrMalformedResponse)
		}
		return agent.NewFinishDecision(answer, r.Thought), nil
	}

	if !r.continues() {
		if r.FinalAnswer != "" {
			return agent.NewFinishDecision(r.FinalAnswer, r.Thought), nil
		}
		if hasAction {
			o.mu.Lock()
			o.pending[t.RunID] = struct{}{}
			o.mu.Unlock()
			return agent.NewInvokeToolDecision(r.Action.Name, r.Action.Parameters, r.Thought), nil
		}
		last, ok := t.LastStep()
		if !ok || !last.Succeeded || strings.TrimSpace(last.Observation) == "" {
			return agent.Decision{}, fmt.Errorf("%w: stopped without a final answer", domainoracle.ErrMalformedResponse)
		}
		return agent.NewFinishDecision(last.Observation, r.Thought), nil
	}

	if !hasAction {
		return agent.Decision{}, fmt.Errorf("%w: no action while continuing", domainoracle.ErrMalformedResponse)
	}
	return agent.NewInvokeToolDecision(r.Action.Name, r.Action.Parameters, r.Thought), nil
}

// Forget drops per-run bookkeeping, for runs that ended before consuming it.
func (o *LLMOracle) Forget(runID string) {
	o.mu.Lock()
	delete(o.pending, runID)
	o.mu.Unlock()
}

// parseResponse extracts the decision object from model output, stripping
// code fences and repairing malformed JSON.
func parseResponse(content string) (llmResponse, error) {
	body := extractJSON(content)
	if body == "" {
		return llmResponse{}, fmt.Errorf("%w: no JSON object in %q", domainoracle.ErrMalformedResponse, clip(content, 200))
	}

	var r llmResponse
	if err := json.Unmarshal([]byte(body), &r); err == nil {
		return r, nil
	}

	repaired, err := jsonrepair.JSONRepair(body)
	if err != nil {
		return llmResponse{}, fmt.Errorf("%w: %v (content: %s)", domainoracle.ErrMalformedResponse, err, clip(body, 200))
	}
	if err := json.Unmarshal([]byte(repaired), &r); err != nil {
		return llmResponse{}, fmt.Errorf("%w: %v (content: %s)", domainoracle.ErrMalformedResponse, err, clip(body, 200))
	}

	logging.Debug().
		Add(logging.Component("oracle")).
		Msg("repaired malformed decision JSON")
	return r, nil
}

// extractJSON strips markdown fences and surrounding prose.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	if end := strings.LastIndex(s, "}"); end > start {
		return s[start : end+1]
	}
	// Unterminated object: leave it to the repairer.
	return s[start:]
}

var _ domainoracle.Oracle = (*LLMOracle)(nil)
