// Package statemachine provides the statekit lifecycle chart for a run.
package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// MachineID identifies the lifecycle chart.
const MachineID = "react-run"

// Context carries run bookkeeping through the statechart.
type Context struct {
	RunID         string
	Iteration     int
	MaxIterations int
	Transitions   []Transition
}

// Transition is one recorded status change.
type Transition struct {
	From   agent.Status       `json:"from"`
	To     agent.Status       `json:"to"`
	Event  statekit.EventType `json:"event"`
	Reason string             `json:"reason,omitempty"`
	At     time.Time          `json:"at"`
}

// TransitionPayload carries additional data with a terminal event.
type TransitionPayload struct {
	To     agent.Status
	Reason string
}

// Event types understood by the chart.
const (
	EventStep    statekit.EventType = "STEP"
	EventFinish  statekit.EventType = "FINISH"
	EventFail    statekit.EventType = "FAIL"
	EventExhaust statekit.EventType = "EXHAUST"
)

const (
	stateRunning   statekit.StateID = statekit.StateID(agent.StatusRunning)
	stateFinished  statekit.StateID = statekit.StateID(agent.StatusFinished)
	stateFailed    statekit.StateID = statekit.StateID(agent.StatusFailed)
	stateExhausted statekit.StateID = statekit.StateID(agent.StatusExhausted)
)

// NewLifecycleMachine creates the run lifecycle statechart:
// running -> finished | failed | exhausted, all three final. STEP is a
// self-transition on running that counts an iteration.
func NewLifecycleMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](MachineID).
		WithInitial(stateRunning).
		WithContext(&Context{}).
		WithAction("logEntry", logStateEntry).
		WithAction("recordTransition", recordTransition).
		WithAction("countStep", countStep).
		WithGuard("budgetSpent", guardBudgetSpent).
		State(stateRunning).
			OnEntry("logEntry").
			On(EventStep).Target(stateRunning).Do("countStep").
			On(EventFinish).Target(stateFinished).Do("recordTransition").
			On(EventFail).Target(stateFailed).Do("recordTransition").
			On(EventExhaust).Target(stateExhausted).Guard("budgetSpent").Do("recordTransition").
			Done().
		State(stateFinished).
			Final().
			OnEntry("logEntry").
			Done().
		State(stateFailed).
			Final().
			OnEntry("logEntry").
			Done().
		State(stateExhausted).
			Final().
			OnEntry("logEntry").
			Done().
		Build()
}

// EventFor returns the event that moves a running chart to the given status.
func EventFor(to agent.Status) statekit.EventType {
	switch to {
	case agent.StatusFinished:
		return EventFinish
	case agent.StatusFailed:
		return EventFail
	case agent.StatusExhausted:
		return EventExhaust
	default:
		return statekit.EventType(to)
	}
}

// StatusFromMachine converts the machine state ID to a domain status.
func StatusFromMachine(stateID statekit.StateID) agent.Status {
	return agent.Status(stateID)
}

// statusFromEvent derives the target status from an event type.
func statusFromEvent(eventType statekit.EventType) agent.Status {
	switch eventType {
	case EventStep:
		return agent.StatusRunning
	case EventFinish:
		return agent.StatusFinished
	case EventFail:
		return agent.StatusFailed
	case EventExhaust:
		return agent.StatusExhausted
	default:
		return agent.Status(eventType)
	}
}
