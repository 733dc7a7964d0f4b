package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// Field applies one key to a bolt event.
type Field func(*bolt.Event) *bolt.Event

func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str(key, value) }
}

func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int(key, value) }
}

func Bool(key string, value bool) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Bool(key, value) }
}

func text[S ~string](key string, value S) Field { return Str(key, string(value)) }

// Keys shared by the engine, dispatcher and middleware, so one run can be
// followed across components with a single filter.
func RunID(id string) Field               { return Str("run_id", id) }
func Query(q string) Field                { return Str("query", q) }
func Iteration(n int) Field               { return Int("iteration", n) }
func Status(s agent.Status) Field         { return text("status", s) }
func FromStatus(s agent.Status) Field     { return text("from_status", s) }
func ToStatus(s agent.Status) Field       { return text("to_status", s) }
func Decision(k agent.DecisionKind) Field { return text("decision", k) }
func ToolName(name string) Field          { return Str("tool", name) }
func Outcome(o string) Field              { return Str("outcome", o) }
func Cached(cached bool) Field            { return Bool("cached", cached) }
func Succeeded(ok bool) Field             { return Bool("succeeded", ok) }
func Reason(reason string) Field          { return Str("reason", reason) }
func Component(name string) Field         { return Str("component", name) }
func Operation(op string) Field           { return Str("operation", op) }

// Duration logs d as whole milliseconds under duration_ms.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int64("duration_ms", d.Milliseconds()) }
}

// ErrorField adds nothing for a nil error.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}
