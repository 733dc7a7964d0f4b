package agent

import (
	"errors"
	"fmt"
)

// Domain errors for the agent state model.
var (
	// ErrInvalidInput indicates a query or answer that cannot be accepted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIllegalState indicates a mutation attempted on a state that does not allow it.
	ErrIllegalState = errors.New("illegal state")

	// ErrMalformedDecision indicates a decision whose payload does not match its kind.
	ErrMalformedDecision = errors.New("malformed decision")
)

// InputError describes a rejected input value.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// TransitionError describes an operation rejected because of the current status.
type TransitionError struct {
	Op   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("illegal state: %s not allowed in status %s", e.Op, e.From)
	}
	return fmt.Sprintf("illegal state: %s cannot move %s -> %s", e.Op, e.From, e.To)
}

// Unwrap lets errors.Is match ErrIllegalState.
func (e *TransitionError) Unwrap() error {
	return ErrIllegalState
}
