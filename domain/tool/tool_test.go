package tool_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/tool"
)

func echoHandler(_ context.Context, input json.RawMessage) (tool.Result, error) {
	return tool.Success(string(input), input), nil
}

func TestToolBuilder_Basic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		toolName string
		handler  tool.Handler
		wantErr  error
	}{
		{"valid tool", "test_tool", echoHandler, nil},
		{"empty name fails", "", echoHandler, tool.ErrEmptyName},
		{"missing handler fails", "no_handler", nil, tool.ErrNoHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			built, err := tool.NewBuilder(tt.toolName).
				WithDescription("A test tool").
				WithHandler(tt.handler).
				Build()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if built.Name() != tt.toolName {
				t.Errorf("Name() = %v, want %v", built.Name(), tt.toolName)
			}
			if built.Description() != "A test tool" {
				t.Errorf("Description() = %v", built.Description())
			}
		})
	}
}

func TestToolBuilder_Annotations(t *testing.T) {
	t.Parallel()

	built := tool.NewBuilder("search").
		ReadOnly().
		Idempotent().
		Cacheable().
		WithTimeout(5 * time.Second).
		WithHandler(echoHandler).
		MustBuild()

	a := built.Annotations()
	if !a.ReadOnly || !a.Idempotent || !a.Cacheable {
		t.Errorf("Annotations() = %+v", a)
	}
	if !a.CanCache() || !a.CanRetry() {
		t.Error("read-only cacheable tool should be cacheable and retryable")
	}
	if a.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", a.Timeout)
	}
	if a.Fallback {
		t.Error("Fallback = true, want false")
	}
}

func TestToolBuilder_InvalidSchema(t *testing.T) {
	t.Parallel()

	_, err := tool.NewBuilder("bad").
		WithInputSchema(tool.NewSchema(json.RawMessage(`{"type":"string"}`))).
		WithHandler(echoHandler).
		Build()
	if !errors.Is(err, tool.ErrInvalidSchema) {
		t.Errorf("Build() error = %v, want ErrInvalidSchema", err)
	}
}

func TestTyped(t *testing.T) {
	t.Parallel()

	type args struct {
		Query string `json:"query"`
	}
	h := tool.Typed(func(_ context.Context, in args) (tool.Result, error) {
		return tool.Success("q="+in.Query, nil), nil
	})

	tests := []struct {
		name    string
		input   string
		want    string
		invalid bool
	}{
		{"decodes object", `{"query":"weather"}`, "q=weather", false},
		{"empty input", ``, "q=", false},
		{"wrong type", `{"query":1}`, "", true},
		{"malformed", `{"query":`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := h(context.Background(), json.RawMessage(tt.input))
			if got := errors.Is(err, tool.ErrInvalidInput); got != tt.invalid {
				t.Fatalf("error = %v, want invalid input %v", err, tt.invalid)
			}
			if err == nil && result.Observation != tt.want {
				t.Errorf("Observation = %q, want %q", result.Observation, tt.want)
			}
		})
	}
}

func TestToolBuilder_MustBuildPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("MustBuild() did not panic for empty name")
		}
	}()
	tool.NewBuilder("").WithHandler(echoHandler).MustBuild()
}

func TestDefinition_Execute(t *testing.T) {
	t.Parallel()

	built := tool.NewBuilder("echo").WithHandler(echoHandler).MustBuild()
	result, err := built.Execute(context.Background(), json.RawMessage(`{"a":1}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Succeeded || result.Observation != `{"a":1}` {
		t.Errorf("Execute() = %+v", result)
	}
}

func TestResultHelpers(t *testing.T) {
	t.Parallel()

	ok := tool.SuccessJSON("found 2", []string{"a", "b"})
	if !ok.Succeeded || ok.DataString() != `["a","b"]` {
		t.Errorf("SuccessJSON() = %+v", ok)
	}

	bad := tool.SuccessJSON("x", make(chan int))
	if bad.Succeeded {
		t.Error("SuccessJSON() with unencodable data should fail")
	}

	fail := tool.Failure("no results").WithDuration(time.Second)
	if fail.Succeeded || fail.Duration != time.Second {
		t.Errorf("Failure() = %+v", fail)
	}
}
