package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// recordingProvider answers with fixed contents in order and records requests.
type recordingProvider struct {
	mu       sync.Mutex
	contents []string
	err      error
	requests []CompletionRequest
}

func (p *recordingProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return CompletionResponse{}, p.err
	}
	i := min(len(p.requests)-1, len(p.contents)-1)
	return reply(p.contents[i]), nil
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func testTranscript(steps ...agent.Step) domainoracle.Transcript {
	return domainoracle.Transcript{
		RunID:         "run-1",
		Query:         "What is the weather in Hanoi?",
		Steps:         steps,
		Iteration:     len(steps),
		MaxIterations: 10,
		Tools: []domainoracle.ToolInfo{
			{
				Name:        "search_action",
				Description: "Search the web",
				Parameters: tool.ObjectSchema(map[string]json.RawMessage{
					"query": json.RawMessage(`{"type": "string"}`),
				}, []string{"query"}),
			},
			{Name: "answer_question", Description: "Answer from search results"},
		},
	}
}

func newTestLLMOracle(t *testing.T, p Provider) *LLMOracle {
	t.Helper()
	o, err := NewLLMOracle(LLMOracleConfig{
		Provider: p,
		Renderer: TranscriptRenderer{MaxSteps: 6, Count: EstimateTokens},
	})
	if err != nil {
		t.Fatalf("NewLLMOracle() error = %v", err)
	}
	return o
}

func TestNewLLMOracle_RequiresProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewLLMOracle(LLMOracleConfig{}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("NewLLMOracle() error = %v, want ErrNoProvider", err)
	}
}

func TestLLMOracle_Decide(t *testing.T) {
	t.Parallel()

	searched := agent.Step{Action: "search_action", Observation: "Hanoi: 28°C, sunny", Succeeded: true}

	tests := []struct {
		name       string
		content    string
		steps      []agent.Step
		wantKind   agent.DecisionKind
		wantTool   string
		wantArg    string
		wantAnswer string
	}{
		{
			name:     "invoke tool",
			content:  `{"thought": "search first", "action": {"name": "search_action", "parameters": {"query": "Hanoi weather"}}, "should_continue": true}`,
			wantKind: agent.DecisionInvokeTool,
			wantTool: "search_action",
			wantArg:  "Hanoi weather",
		},
		{
			name:       "finish with final answer",
			content:    `{"thought": "done", "should_continue": false, "final_answer": "It is 28°C and sunny in Hanoi."}`,
			wantKind:   agent.DecisionFinish,
			wantAnswer: "It is 28°C and sunny in Hanoi.",
		},
		{
			name:     "fenced json",
			content:  "Here you go:\n```json\n{\"thought\": \"t\", \"action\": {\"name\": \"search_action\", \"parameters\": {\"query\": \"q\"}}, \"should_continue\": true}\n```",
			wantKind: agent.DecisionInvokeTool,
			wantTool: "search_action",
			wantArg:  "q",
		},
		{
			name:       "trailing comma repaired",
			content:    `{"thought": "t", "should_continue": false, "final_answer": "42",}`,
			wantKind:   agent.DecisionFinish,
			wantAnswer: "42",
		},
		{
			name:       "finish action",
			content:    `{"thought": "t", "action": {"name": "finish", "parameters": {"answer": "from params"}}}`,
			wantKind:   agent.DecisionFinish,
			wantAnswer: "from params",
		},
		{
			name:       "stop without answer uses last observation",
			content:    `{"thought": "enough", "should_continue": false}`,
			steps:      []agent.Step{searched},
			wantKind:   agent.DecisionFinish,
			wantAnswer: "Hanoi: 28°C, sunny",
		},
		{
			name:     "missing should_continue means continue",
			content:  `{"action": {"name": "search_action", "parameters": {"query": "x"}}}`,
			wantKind: agent.DecisionInvokeTool,
			wantTool: "search_action",
			wantArg:  "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := newTestLLMOracle(t, &recordingProvider{contents: []string{tt.content}})
			d, err := o.Decide(context.Background(), testTranscript(tt.steps...))
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if d.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s", d.Kind, tt.wantKind)
			}
			if err := d.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.wantTool != "" {
				if d.InvokeTool.ToolName != tt.wantTool {
					t.Errorf("ToolName = %s, want %s", d.InvokeTool.ToolName, tt.wantTool)
				}
				if got := d.InvokeTool.Args["query"]; got != tt.wantArg {
					t.Errorf("Args[query] = %v, want %s", got, tt.wantArg)
				}
			}
			if tt.wantAnswer != "" && d.Finish.Answer != tt.wantAnswer {
				t.Errorf("Answer = %q, want %q", d.Finish.Answer, tt.wantAnswer)
			}
		})
	}
}

func TestLLMOracle_MalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"prose", "I think the weather is nice."},
		{"continue without action", `{"thought": "hmm", "should_continue": true}`},
		{"stop without any answer", `{"thought": "hmm", "should_continue": false}`},
		{"finish action without answer", `{"action": {"name": "finish"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := newTestLLMOracle(t, &recordingProvider{contents: []string{tt.content}})
			_, err := o.Decide(context.Background(), testTranscript())
			if !errors.Is(err, domainoracle.ErrMalformedResponse) {
				t.Fatalf("Decide() error = %v, want ErrMalformedResponse", err)
			}
			var oe *domainoracle.Error
			if !errors.As(err, &oe) || oe.Oracle != "recording" {
				t.Errorf("error = %v, want *oracle.Error from recording", err)
			}
		})
	}
}

func TestLLMOracle_ProviderFailure(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{err: &ProviderError{Provider: "recording", StatusCode: http.StatusServiceUnavailable}}
	o := newTestLLMOracle(t, p)

	_, err := o.Decide(context.Background(), testTranscript())
	if !errors.Is(err, domainoracle.ErrOracleUnavailable) {
		t.Errorf("Decide() error = %v, want ErrOracleUnavailable", err)
	}
}

func TestLLMOracle_StopWithAnswerSkipsAction(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{contents: []string{
		`{"thought": "enough", "action": {"name": "do_nothing"}, "should_continue": false, "final_answer": "28C sunny"}`,
	}}
	o := newTestLLMOracle(t, p)

	d, err := o.Decide(context.Background(), testTranscript())
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.Kind != agent.DecisionFinish || d.Finish.Answer != "28C sunny" {
		t.Errorf("Decision = %v, want finish with 28C sunny", d)
	}
}

func TestLLMOracle_StopBehindActionFinishesNextTurn(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{contents: []string{
		`{"thought": "one last lookup", "action": {"name": "search_action", "parameters": {"query": "Hanoi"}}, "should_continue": false, "final_answer": ""}`,
	}}
	o := newTestLLMOracle(t, p)

	d, err := o.Decide(context.Background(), testTranscript())
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.Kind != agent.DecisionInvokeTool {
		t.Fatalf("Kind = %s, want invoke_tool", d.Kind)
	}

	step := agent.Step{Action: "search_action", Observation: "Hanoi: 28°C", Succeeded: true}
	d, err = o.Decide(context.Background(), testTranscript(step))
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.Kind != agent.DecisionFinish || d.Finish.Answer != "Hanoi: 28°C" {
		t.Errorf("Decision = %v, want finish with the observation", d)
	}
	if p.calls() != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls())
	}
}

func TestLLMOracle_StopBehindFailedActionAsksAgain(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{contents: []string{
		`{"thought": "one last lookup", "action": {"name": "search_action", "parameters": {"query": "Hanoi"}}, "should_continue": false}`,
		`{"thought": "retry", "action": {"name": "search_action", "parameters": {"query": "Hanoi weather"}}, "should_continue": true}`,
	}}
	o := newTestLLMOracle(t, p)

	if _, err := o.Decide(context.Background(), testTranscript()); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	steps := []agent.Step{
		{Action: "do_nothing", Observation: "No action performed", Succeeded: true},
		{Action: "search_action", Observation: "search failed: quota exceeded"},
	}
	d, err := o.Decide(context.Background(), testTranscript(steps...))
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.Kind != agent.DecisionInvokeTool || d.InvokeTool.Args["query"] != "Hanoi weather" {
		t.Errorf("Decision = %v, want a fresh search", d)
	}
	if p.calls() != 2 {
		t.Errorf("provider calls = %d, want 2", p.calls())
	}
}

func TestLLMOracle_StopAfterFailedStepIsMalformed(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{contents: []string{`{"thought": "enough", "should_continue": false}`}}
	o := newTestLLMOracle(t, p)

	steps := []agent.Step{
		{Action: "search_action", Observation: `{"results": []}`, Succeeded: true},
		{Action: "answer_question", Observation: "no usable results"},
	}
	if _, err := o.Decide(context.Background(), testTranscript(steps...)); !errors.Is(err, domainoracle.ErrMalformedResponse) {
		t.Errorf("Decide() error = %v, want ErrMalformedResponse", err)
	}
}

func TestLLMOracle_FinishingToolEndsRun(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{contents: []string{`{}`}}
	o := newTestLLMOracle(t, p)

	step := agent.Step{Action: "answer_question", Observation: "It is 28°C and sunny in Hanoi.", Succeeded: true}
	d, err := o.Decide(context.Background(), testTranscript(step))
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.Kind != agent.DecisionFinish || d.Finish.Answer != step.Observation {
		t.Errorf("Decision = %v, want finish with the answer", d)
	}
	if p.calls() != 0 {
		t.Errorf("provider calls = %d, want 0", p.calls())
	}
}

func TestLLMOracle_Request(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{contents: []string{`{"should_continue": false, "final_answer": "x"}`}}
	o, err := NewLLMOracle(LLMOracleConfig{
		Provider:    p,
		Model:       "m",
		Temperature: 0.2,
		MaxTokens:   99,
		Renderer:    TranscriptRenderer{MaxSteps: 6, Count: EstimateTokens},
	})
	if err != nil {
		t.Fatalf("NewLLMOracle() error = %v", err)
	}
	if _, err := o.Decide(context.Background(), testTranscript()); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	req := p.requests[0]
	if req.Model != "m" || req.Temperature != 0.2 || req.MaxTokens != 99 || !req.JSONMode {
		t.Errorf("request = %+v, want model m, temperature 0.2, 99 tokens, JSON mode", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem || req.Messages[1].Role != RoleUser {
		t.Fatalf("Messages = %+v, want system then user", req.Messages)
	}
	system := req.Messages[0].Content
	for _, want := range []string{"should_continue", "- search_action: Search the web", "query: string", "- answer_question:"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if !strings.Contains(req.Messages[1].Content, "What is the weather in Hanoi?") {
		t.Error("user message missing the query")
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding prose", `Sure! {"a": 1} Hope it helps.`, `{"a": 1}`},
		{"unterminated", `{"a": 1`, `{"a": 1`},
		{"no object", "nothing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
