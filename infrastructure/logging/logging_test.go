package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Config{Level: "trace", Format: "json", Output: buf}), buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stderr {
		t.Errorf("Output = %v, want os.Stderr", config.Output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if result := parseLevel(tt.input); result != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := New(Config{Level: "warn", Format: "json", Output: buf})
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Errorf("info message logged at warn level: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("warn message missing: %s", buf.String())
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"run id", RunID("run-123"), `"run_id":"run-123"`},
		{"status", Status(agent.StatusExhausted), `"status":"exhausted"`},
		{"from status", FromStatus(agent.StatusRunning), `"from_status":"running"`},
		{"to status", ToStatus(agent.StatusFinished), `"to_status":"finished"`},
		{"tool", ToolName("search_action"), `"tool":"search_action"`},
		{"decision", Decision(agent.DecisionInvokeTool), `"decision":"invoke_tool"`},
		{"iteration", Iteration(3), `"iteration":3`},
		{"duration", Duration(100 * time.Millisecond), `"duration_ms":100`},
		{"cached", Cached(true), `"cached":true`},
		{"succeeded", Succeeded(false), `"succeeded":false`},
		{"outcome", Outcome("not_found"), `"outcome":"not_found"`},
		{"error", ErrorField(errors.New("test error")), `"error":"test error"`},
		{"query", Query("weather"), `"query":"weather"`},
		{"reason", Reason("budget"), `"reason":"budget"`},
		{"component", Component("engine"), `"component":"engine"`},
		{"operation", Operation("dispatch"), `"operation":"dispatch"`},
		{"str", Str("k", "v"), `"k":"v"`},
		{"int", Int("n", 7), `"n":7`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			NewEvent(logger.Info()).Add(tt.field).Msg("test")

			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("expected %s in output: %s", tt.want, buf.String())
			}
		})
	}
}

func TestErrorField_Nil(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	NewEvent(logger.Info()).Add(ErrorField(nil)).Msg("test")

	if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
		t.Errorf("unexpected error field in output: %s", buf.String())
	}
}

func TestScope(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	run := NewScope(logger, RunID("run-9"))
	tool := run.With(ToolName("search_action"))

	tool.Warn().Add(Iteration(2)).Msg("tool failed")
	run.Info().Msg("run finished")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	for _, want := range []string{`"run_id":"run-9"`, `"tool":"search_action"`, `"iteration":2`} {
		if !bytes.Contains(lines[0], []byte(want)) {
			t.Errorf("first line missing %s: %s", want, lines[0])
		}
	}
	if !bytes.Contains(lines[1], []byte(`"run_id":"run-9"`)) || bytes.Contains(lines[1], []byte(`"tool"`)) {
		t.Errorf("With() leaked into parent scope: %s", lines[1])
	}
}

func TestGlobalHelpers(t *testing.T) {
	// Exercises the package-level logger; not parallel because it is shared.
	if Get() == nil {
		t.Fatal("Get() returned nil")
	}
	SetLevel("error")
	Info().Add(RunID("x")).Msg("suppressed")
	ForRun("x").Debug().Send()
	Debug().Send()
	SetLevel("info")
}
