package oracle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/oracle"
)

func TestNewTranscript(t *testing.T) {
	t.Parallel()

	state, _ := agent.NewState("Weather in Hanoi today")
	_ = state.AppendStep(agent.Step{Action: "search_action", Args: map[string]any{"query": "hanoi"}, Observation: "hot"})

	tools := []oracle.ToolInfo{{Name: "search_action"}, {Name: "do_nothing"}}
	tr := oracle.NewTranscript("run-1", state.Snapshot(), 3, tools)

	if tr.Query != "Weather in Hanoi today" || tr.Iteration != 1 || tr.MaxIterations != 3 {
		t.Errorf("NewTranscript() = %+v", tr)
	}
	if tr.Remaining() != 2 {
		t.Errorf("Remaining() = %d, want 2", tr.Remaining())
	}
	if !tr.HasTool("do_nothing") || tr.HasTool("missing") {
		t.Error("HasTool() mismatch")
	}

	tr.Steps[0].Args["query"] = "tampered"
	snapStep, _ := state.Snapshot().Step(0)
	if snapStep.Args["query"] != "hanoi" {
		t.Error("transcript shares storage with the state")
	}

	last, ok := tr.LastStep()
	if !ok || last.Action != "search_action" {
		t.Errorf("LastStep() = %+v, %v", last, ok)
	}
}

func TestFunc(t *testing.T) {
	t.Parallel()

	o := oracle.Func(func(_ context.Context, tr oracle.Transcript) (agent.Decision, error) {
		return agent.NewFinishDecision("answer to "+tr.Query, ""), nil
	})
	d, err := o.Decide(context.Background(), oracle.Transcript{Query: "q"})
	if err != nil || d.Finish.Answer != "answer to q" {
		t.Errorf("Decide() = %+v, %v", d, err)
	}
}

func TestError(t *testing.T) {
	t.Parallel()

	err := &oracle.Error{Oracle: "gemini", Err: oracle.ErrOracleUnavailable}
	if !errors.Is(err, oracle.ErrOracleUnavailable) {
		t.Error("errors.Is() = false")
	}
	if err.Error() != "oracle gemini: oracle unavailable" {
		t.Errorf("Error() = %q", err.Error())
	}
}
