package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// Lifecycle tracks one run's status in a statekit interpreter.
// It mirrors agent.State transitions and rejects anything the chart does not allow.
type Lifecycle struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewLifecycle builds and starts a lifecycle interpreter for a run.
func NewLifecycle(runID string, maxIterations int) (*Lifecycle, error) {
	machine, err := NewLifecycleMachine()
	if err != nil {
		return nil, fmt.Errorf("build lifecycle machine: %w", err)
	}

	ctx := &Context{RunID: runID, MaxIterations: maxIterations}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	interp.Start()

	return &Lifecycle{interp: interp, ctx: ctx}, nil
}

// Status returns the current status of the chart.
func (l *Lifecycle) Status() agent.Status {
	return StatusFromMachine(l.interp.State().Value)
}

// Done returns true once a final state has been entered.
func (l *Lifecycle) Done() bool {
	return l.interp.Done()
}

// Step sends STEP, counting a completed iteration. Only legal while running.
func (l *Lifecycle) Step() error {
	from, before := l.Status(), l.ctx.Iteration
	if l.Done() {
		return &agent.TransitionError{Op: string(EventStep), From: from}
	}
	l.interp.Send(statekit.Event{Type: EventStep})
	if l.Status() != agent.StatusRunning || l.ctx.Iteration != before+1 {
		return &agent.TransitionError{Op: string(EventStep), From: from}
	}
	return nil
}

// Finish moves the chart to finished.
func (l *Lifecycle) Finish(reason string) error {
	return l.fire(agent.StatusFinished, reason)
}

// Fail moves the chart to failed.
func (l *Lifecycle) Fail(reason string) error {
	return l.fire(agent.StatusFailed, reason)
}

// Exhaust moves the chart to exhausted. The chart's guard refuses the move
// while iteration budget remains.
func (l *Lifecycle) Exhaust() error {
	return l.fire(agent.StatusExhausted, "iteration budget spent")
}

func (l *Lifecycle) fire(to agent.Status, reason string) error {
	from := l.Status()
	if l.Done() {
		return &agent.TransitionError{Op: string(EventFor(to)), From: from, To: to}
	}

	l.interp.Send(statekit.Event{
		Type:    EventFor(to),
		Payload: TransitionPayload{To: to, Reason: reason},
	})

	if l.Status() != to {
		return &agent.TransitionError{Op: string(EventFor(to)), From: from, To: to}
	}
	return nil
}

// Iteration returns the number of counted steps.
func (l *Lifecycle) Iteration() int {
	return l.ctx.Iteration
}

// Transitions returns the recorded status changes.
func (l *Lifecycle) Transitions() []Transition {
	return append([]Transition(nil), l.ctx.Transitions...)
}

// Stop stops the interpreter.
func (l *Lifecycle) Stop() {
	l.interp.Stop()
}
