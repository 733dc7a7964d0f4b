package oracle

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
)

// MockOracle returns a predefined sequence of decisions and finishes with
// "completed" once they run out.
type MockOracle struct {
	decisions []agent.Decision
	index     int
	mu        sync.Mutex
}

// NewMockOracle creates a mock oracle with the given decisions.
func NewMockOracle(decisions ...agent.Decision) *MockOracle {
	return &MockOracle{decisions: decisions}
}

// Decide returns the next decision in the sequence.
func (o *MockOracle) Decide(_ context.Context, _ domainoracle.Transcript) (agent.Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.index >= len(o.decisions) {
		return agent.NewFinishDecision("completed", ""), nil
	}
	d := o.decisions[o.index]
	o.index++
	return d, nil
}

// Reset rewinds the sequence.
func (o *MockOracle) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.index = 0
}

// Remaining returns the number of unused decisions.
func (o *MockOracle) Remaining() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.decisions) - o.index
}

// AddDecision appends a decision to the sequence.
func (o *MockOracle) AddDecision(d agent.Decision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, d)
}

var _ domainoracle.Oracle = (*MockOracle)(nil)
