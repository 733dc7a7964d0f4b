package run

import "errors"

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunExists    = errors.New("run already stored")
	ErrInvalidRunID = errors.New("empty run ID")
	// ErrNotTerminal rejects results of runs still in progress.
	ErrNotTerminal = errors.New("run still in progress")

	ErrConnectionFailed = errors.New("result store unreachable")
	ErrOperationTimeout = errors.New("result store call timed out")
)
