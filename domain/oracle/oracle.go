// Package oracle defines the contract between the control loop and the
// reasoning collaborator that chooses each next action.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// Oracle decides the next action given the transcript so far.
// Implementations must return either a decision or an error; the loop bounds
// every call with a timeout.
type Oracle interface {
	Decide(ctx context.Context, transcript Transcript) (agent.Decision, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, transcript Transcript) (agent.Decision, error)

// Decide calls f.
func (f Func) Decide(ctx context.Context, transcript Transcript) (agent.Decision, error) {
	return f(ctx, transcript)
}

// Refiner rewrites the answer of a finished task for presentation, given
// the query and the steps that produced it. A failed refinement leaves the
// answer as it was.
type Refiner interface {
	Refine(ctx context.Context, query string, steps []agent.Step, answer string) (string, error)
}

// RefinerFunc adapts a function to the Refiner interface.
type RefinerFunc func(ctx context.Context, query string, steps []agent.Step, answer string) (string, error)

// Refine calls f.
func (f RefinerFunc) Refine(ctx context.Context, query string, steps []agent.Step, answer string) (string, error) {
	return f(ctx, query, steps, answer)
}

// Errors surfaced by oracles.
var (
	// ErrOracleUnavailable indicates the oracle could not be reached.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrMalformedResponse indicates the oracle answered with something that is not a decision.
	ErrMalformedResponse = errors.New("malformed oracle response")

	// ErrScriptExhausted indicates a scripted oracle ran out of decisions.
	ErrScriptExhausted = errors.New("oracle script exhausted")
)

// Error carries the name of the oracle that failed.
type Error struct {
	Oracle string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Oracle, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ToolInfo describes a tool for the oracle's catalogue.
type ToolInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  tool.Schema `json:"parameters"`
}

// Transcript is the serialized input handed to the oracle each iteration.
type Transcript struct {
	RunID         string       `json:"run_id"`
	Query         string       `json:"query"`
	Steps         []agent.Step `json:"steps"`
	Iteration     int          `json:"iteration"`
	MaxIterations int          `json:"max_iterations"`
	Tools         []ToolInfo   `json:"tools"`
}

// NewTranscript builds a transcript from a state snapshot and a tool catalogue.
func NewTranscript(runID string, snap agent.Snapshot, maxIterations int, tools []ToolInfo) Transcript {
	return Transcript{
		RunID:         runID,
		Query:         snap.Query(),
		Steps:         snap.History(),
		Iteration:     snap.Iteration(),
		MaxIterations: maxIterations,
		Tools:         tools,
	}
}

// Catalogue lists every tool of the registry in name order.
func Catalogue(r tool.Registry) []ToolInfo {
	tools := r.List()
	infos := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, ToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		})
	}
	return infos
}

// Remaining returns the number of iterations left in the budget.
func (t Transcript) Remaining() int {
	if t.MaxIterations <= t.Iteration {
		return 0
	}
	return t.MaxIterations - t.Iteration
}

// LastStep returns the most recent step, if any.
func (t Transcript) LastStep() (agent.Step, bool) {
	if len(t.Steps) == 0 {
		return agent.Step{}, false
	}
	return t.Steps[len(t.Steps)-1], true
}

// HasTool reports whether the catalogue lists the named tool.
func (t Transcript) HasTool(name string) bool {
	for _, info := range t.Tools {
		if info.Name == name {
			return true
		}
	}
	return false
}
