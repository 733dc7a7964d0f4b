package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// In statekit, actions receive a pointer to the context. Since our context is
// *Context, actions receive **Context and guards receive *Context.

func logStateEntry(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx

	if event.Type == EventStep {
		logging.ForRun(c.RunID).Debug().
			Add(logging.Iteration(c.Iteration)).
			Msg("iteration counted")
		return
	}

	status := agent.StatusRunning
	if event.Type != "" {
		status = statusFromEvent(event.Type)
	}

	logging.ForRun(c.RunID).Debug().
		Add(logging.Status(status)).
		Add(logging.Iteration(c.Iteration)).
		Msg("lifecycle entered")
}

func countStep(ctx **Context, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Iteration++
}

func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx

	t := Transition{
		From:  agent.StatusRunning,
		To:    statusFromEvent(event.Type),
		Event: event.Type,
		At:    time.Now(),
	}
	if payload, ok := event.Payload.(TransitionPayload); ok {
		t.To = payload.To
		t.Reason = payload.Reason
	}
	c.Transitions = append(c.Transitions, t)
}

// guardBudgetSpent allows exhaustion only once the iteration budget is used up.
func guardBudgetSpent(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return ctx.MaxIterations > 0 && ctx.Iteration >= ctx.MaxIterations
}
