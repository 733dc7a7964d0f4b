package tool

import (
	"encoding/json"
	"time"
)

// Result is the normalized outcome of one capability invocation.
type Result struct {
	// Succeeded reports whether the capability achieved its purpose.
	Succeeded bool `json:"succeeded"`

	// Observation is the text folded back into the transcript.
	Observation string `json:"observation"`

	// Data is an optional structured payload.
	Data json.RawMessage `json:"data,omitempty"`

	// Duration is how long the execution took.
	Duration time.Duration `json:"duration"`

	// Cached indicates if this result was served from cache.
	Cached bool `json:"cached,omitempty"`
}

// Success creates a successful result.
func Success(observation string, data json.RawMessage) Result {
	return Result{Succeeded: true, Observation: observation, Data: data}
}

// SuccessJSON creates a successful result, marshaling v as the data payload.
// A marshal failure yields a failed result describing it.
func SuccessJSON(observation string, v any) Result {
	data, err := json.Marshal(v)
	if err != nil {
		return Failure("encode result: " + err.Error())
	}
	return Success(observation, data)
}

// Failure creates a failed result with a description of what went wrong.
func Failure(observation string) Result {
	return Result{Succeeded: false, Observation: observation}
}

// WithDuration returns a copy with the duration set.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// DataString returns the data payload as a string for convenience.
func (r Result) DataString() string {
	return string(r.Data)
}
