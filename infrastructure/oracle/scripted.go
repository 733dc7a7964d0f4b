package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
)

// ScriptStep defines the answer for one Decide call.
type ScriptStep struct {
	// Decision is returned when Err is nil.
	Decision agent.Decision

	// Err is returned instead of a decision.
	Err error

	// Delay holds the call back, honoring cancellation.
	Delay time.Duration

	// ExpectSteps asserts the transcript length when non-negative.
	ExpectSteps int

	// Condition is an optional check on the transcript.
	Condition func(domainoracle.Transcript) bool
}

// Say returns a step answering with d.
func Say(d agent.Decision) ScriptStep {
	return ScriptStep{Decision: d, ExpectSteps: -1}
}

// Fail returns a step answering with err.
func Fail(err error) ScriptStep {
	return ScriptStep{Err: err, ExpectSteps: -1}
}

// Stall returns a step that waits for d before answering with decision.
func Stall(d time.Duration, decision agent.Decision) ScriptStep {
	return ScriptStep{Decision: decision, Delay: d, ExpectSteps: -1}
}

// ScriptedOracle replays a fixed sequence of answers for deterministic runs.
type ScriptedOracle struct {
	steps      []ScriptStep
	index      int
	repeatLast bool
	seen       []domainoracle.Transcript
	mu         sync.Mutex
}

// NewScriptedOracle creates a scripted oracle with the given steps.
func NewScriptedOracle(steps ...ScriptStep) *ScriptedOracle {
	return &ScriptedOracle{steps: steps}
}

// RepeatLast keeps answering with the final step once the script runs out.
func (o *ScriptedOracle) RepeatLast() *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.repeatLast = true
	return o
}

// Decide returns the next scripted answer.
func (o *ScriptedOracle) Decide(ctx context.Context, t domainoracle.Transcript) (agent.Decision, error) {
	o.mu.Lock()
	o.seen = append(o.seen, t)
	if o.index >= len(o.steps) && (!o.repeatLast || len(o.steps) == 0) {
		o.mu.Unlock()
		return agent.Decision{}, domainoracle.ErrScriptExhausted
	}
	i := min(o.index, len(o.steps)-1)
	step := o.steps[i]
	o.index++
	o.mu.Unlock()

	if step.ExpectSteps >= 0 && step.ExpectSteps != len(t.Steps) {
		return agent.Decision{}, &UnexpectedTranscriptError{StepIndex: i, Expected: step.ExpectSteps, Actual: len(t.Steps)}
	}
	if step.Condition != nil && !step.Condition(t) {
		return agent.Decision{}, &UnexpectedTranscriptError{StepIndex: i, Expected: -1, Actual: len(t.Steps)}
	}

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return agent.Decision{}, ctx.Err()
		case <-timer.C:
		}
	}

	if step.Err != nil {
		return agent.Decision{}, step.Err
	}
	return step.Decision, nil
}

// Calls returns the number of Decide calls so far.
func (o *ScriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.seen)
}

// Transcripts returns every transcript the oracle was handed.
func (o *ScriptedOracle) Transcripts() []domainoracle.Transcript {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domainoracle.Transcript(nil), o.seen...)
}

// Reset rewinds the script.
func (o *ScriptedOracle) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.index = 0
	o.seen = nil
}

// IsComplete returns true if every step was consumed.
func (o *ScriptedOracle) IsComplete() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.index >= len(o.steps)
}

// UnexpectedTranscriptError indicates a step's expectation did not hold.
type UnexpectedTranscriptError struct {
	StepIndex int
	Expected  int
	Actual    int
}

func (e *UnexpectedTranscriptError) Error() string {
	if e.Expected < 0 {
		return fmt.Sprintf("condition failed at script step %d", e.StepIndex)
	}
	return fmt.Sprintf("unexpected transcript at script step %d: want %d steps, got %d", e.StepIndex, e.Expected, e.Actual)
}

var _ domainoracle.Oracle = (*ScriptedOracle)(nil)
