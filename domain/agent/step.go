package agent

import (
	"encoding/json"
	"time"
)

// ActionFinish is the action name recorded for the step that carries the final answer.
const ActionFinish = "finish"

// Step records the outcome of one iteration of the loop.
// Once appended to a State it is never modified.
type Step struct {
	Reasoning   string         `json:"reasoning"`
	Action      string         `json:"action"`
	Args        map[string]any `json:"args,omitempty"`
	Observation string         `json:"observation"`
	Succeeded   bool           `json:"succeeded"`
	Duration    time.Duration  `json:"duration_ns"`
	Timestamp   time.Time      `json:"timestamp"`
}

// IsFinish returns true if the step records a finish decision.
func (s Step) IsFinish() bool {
	return s.Action == ActionFinish
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	s.Args = CloneArgs(s.Args)
	return s
}

// CloneArgs deep-copies an argument map. Nested maps and slices are copied
// so callers cannot reach shared storage through the result.
func CloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneArgs(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case json.RawMessage:
		return append(json.RawMessage(nil), val...)
	default:
		return val
	}
}
