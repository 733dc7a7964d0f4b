// Package agent provides the core domain model for the ReAct control loop.
package agent

// Status is the lifecycle status of a single task.
type Status string

const (
	StatusRunning   Status = "running"   // Loop still consulting the oracle
	StatusFinished  Status = "finished"  // Oracle produced a final answer
	StatusFailed    Status = "failed"    // Fatal error or cancellation
	StatusExhausted Status = "exhausted" // Iteration budget consumed
)

// IsTerminal returns true for every status other than running.
// Terminal statuses are absorbing.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusFailed || s == StatusExhausted
}

// IsValid returns true if the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusFinished, StatusFailed, StatusExhausted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// AllStatuses returns every known status.
func AllStatuses() []Status {
	return []Status{StatusRunning, StatusFinished, StatusFailed, StatusExhausted}
}

// TerminalStatuses returns the absorbing statuses.
func TerminalStatuses() []Status {
	return []Status{StatusFinished, StatusFailed, StatusExhausted}
}
