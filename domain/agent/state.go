package agent

import (
	"strings"
	"time"
	"unicode/utf8"
)

// State is the append-only record of one task's progress.
// It is owned by a single control loop and is not safe for concurrent mutation.
type State struct {
	query         string
	history       []Step
	iteration     int
	status        Status
	finalAnswer   string
	failureReason string
	startedAt     time.Time
	endedAt       time.Time
}

// NewState initializes a running state for the given query.
func NewState(query string) (*State, error) {
	if !utf8.ValidString(query) {
		return nil, &InputError{Field: "query", Reason: "not valid text"}
	}
	if strings.TrimSpace(query) == "" {
		return nil, &InputError{Field: "query", Reason: "empty"}
	}
	return &State{
		query:     query,
		history:   make([]Step, 0),
		status:    StatusRunning,
		startedAt: time.Now(),
	}, nil
}

// AppendStep records a completed iteration. Only legal while running.
func (s *State) AppendStep(step Step) error {
	if s.status != StatusRunning {
		return &TransitionError{Op: "append_step", From: s.status}
	}
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	s.history = append(s.history, step.Clone())
	s.iteration++
	return nil
}

// MarkFinished moves the state to finished with the given answer.
func (s *State) MarkFinished(answer string) error {
	if err := s.terminate("mark_finished", StatusFinished); err != nil {
		return err
	}
	if strings.TrimSpace(answer) == "" {
		return &InputError{Field: "answer", Reason: "empty"}
	}
	s.commit(StatusFinished)
	s.finalAnswer = answer
	return nil
}

// MarkFailed moves the state to failed, recording why.
func (s *State) MarkFailed(reason string) error {
	if err := s.terminate("mark_failed", StatusFailed); err != nil {
		return err
	}
	s.commit(StatusFailed)
	s.failureReason = reason
	return nil
}

// MarkExhausted moves the state to exhausted.
func (s *State) MarkExhausted() error {
	if err := s.terminate("mark_exhausted", StatusExhausted); err != nil {
		return err
	}
	s.commit(StatusExhausted)
	return nil
}

func (s *State) terminate(op string, to Status) error {
	if s.status != StatusRunning {
		return &TransitionError{Op: op, From: s.status, To: to}
	}
	return nil
}

func (s *State) commit(to Status) {
	s.status = to
	s.endedAt = time.Now()
}

// Query returns the original task query.
func (s *State) Query() string { return s.query }

// Iteration returns the number of completed steps.
func (s *State) Iteration() int { return s.iteration }

// Status returns the current status.
func (s *State) Status() Status { return s.status }

// FinalAnswer returns the answer. It is empty unless the status is finished.
func (s *State) FinalAnswer() string { return s.finalAnswer }

// HasFinalAnswer reports whether a final answer has been recorded.
func (s *State) HasFinalAnswer() bool { return s.status == StatusFinished }

// FailureReason returns the reason passed to MarkFailed.
func (s *State) FailureReason() string { return s.failureReason }

// IsTerminal returns true once the state has left running.
func (s *State) IsTerminal() bool { return s.status.IsTerminal() }

// Elapsed returns time since the state was created, frozen at termination.
func (s *State) Elapsed() time.Duration {
	if s.endedAt.IsZero() {
		return time.Since(s.startedAt)
	}
	return s.endedAt.Sub(s.startedAt)
}

// Snapshot returns an immutable view of the state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		query:       s.query,
		history:     cloneSteps(s.history),
		iteration:   s.iteration,
		status:      s.status,
		finalAnswer: s.finalAnswer,
	}
}

// Snapshot is a read-only view of a State at a point in time.
// Every accessor returns copies, so holders cannot mutate the original.
type Snapshot struct {
	query       string
	history     []Step
	iteration   int
	status      Status
	finalAnswer string
}

// Query returns the original task query.
func (v Snapshot) Query() string { return v.query }

// Iteration returns the number of completed steps at snapshot time.
func (v Snapshot) Iteration() int { return v.iteration }

// Status returns the status at snapshot time.
func (v Snapshot) Status() Status { return v.status }

// FinalAnswer returns the final answer, if any.
func (v Snapshot) FinalAnswer() string { return v.finalAnswer }

// Len returns the number of steps in the view.
func (v Snapshot) Len() int { return len(v.history) }

// History returns a fresh copy of the steps.
func (v Snapshot) History() []Step { return cloneSteps(v.history) }

// Step returns a copy of the i-th step.
func (v Snapshot) Step(i int) (Step, bool) {
	if i < 0 || i >= len(v.history) {
		return Step{}, false
	}
	return v.history[i].Clone(), true
}

// LastStep returns a copy of the most recent step.
func (v Snapshot) LastStep() (Step, bool) {
	return v.Step(len(v.history) - 1)
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, st := range steps {
		out[i] = st.Clone()
	}
	return out
}
