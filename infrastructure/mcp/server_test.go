package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/infrastructure/mcp"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/memory"
)

func newEchoTool() tool.Tool {
	return tool.NewBuilder("echo").
		WithDescription("Echo a message").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"message": tool.Prop("string", "Message to echo"),
		}, []string{"message"})).
		WithHandler(func(_ context.Context, input json.RawMessage) (tool.Result, error) {
			var in struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}
			return tool.Success(in.Message, nil), nil
		}).
		MustBuild()
}

func newTestServer(t *testing.T, tools ...tool.Tool) *mcp.ToolServer {
	t.Helper()

	registry := memory.NewToolRegistry()
	for _, tl := range tools {
		if err := registry.Register(tl); err != nil {
			t.Fatalf("Register(%s) error = %v", tl.Name(), err)
		}
	}
	return mcp.NewToolServer(mcp.ToolServerConfig{
		Name:     "test-server",
		Version:  "1.0.0",
		Registry: registry,
		Timeout:  time.Second,
	})
}

func TestNewToolServer(t *testing.T) {
	t.Parallel()

	t.Run("creates server with registry", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, newEchoTool())
		if srv.Server() == nil {
			t.Error("Server() returned nil")
		}
		if srv.Info().Name != "test-server" || !srv.Info().Capabilities.Tools {
			t.Errorf("Info() = %+v", srv.Info())
		}
	})

	t.Run("creates server with instructions", func(t *testing.T) {
		t.Parallel()

		srv := mcp.NewToolServer(mcp.ToolServerConfig{
			Name:         "test-server",
			Version:      "1.0.0",
			Instructions: "Use this server for testing",
		})
		if srv == nil {
			t.Fatal("NewToolServer() returned nil")
		}
	})
}

func TestToolServer_Call(t *testing.T) {
	t.Parallel()

	failing := tool.NewBuilder("broken").
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Result, error) {
			return tool.Failure("backend down"), nil
		}).
		MustBuild()

	erroring := tool.NewBuilder("erroring").
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Result, error) {
			return tool.Result{}, errors.New("boom")
		}).
		MustBuild()

	structured := tool.NewBuilder("structured").
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Result, error) {
			return tool.SuccessJSON("done", map[string]int{"count": 2}), nil
		}).
		MustBuild()

	slow := tool.NewBuilder("slow").
		WithTimeout(10 * time.Millisecond).
		WithHandler(func(ctx context.Context, _ json.RawMessage) (tool.Result, error) {
			<-ctx.Done()
			return tool.Result{}, ctx.Err()
		}).
		MustBuild()

	srv := newTestServer(t, newEchoTool(), failing, erroring, structured, slow)

	tests := []struct {
		name    string
		tool    string
		input   string
		want    string
		wantErr error
		errText string
	}{
		{name: "success", tool: "echo", input: `{"message":"hi"}`, want: "hi"},
		{name: "data payload", tool: "structured", input: `{}`, want: `{"count":2}`},
		{name: "unknown tool", tool: "missing", input: `{}`, wantErr: mcp.ErrToolNotFound},
		{name: "invalid arguments", tool: "echo", input: `{}`, wantErr: &tool.ValidationError{}, errText: "message"},
		{name: "failed result", tool: "broken", input: `{}`, wantErr: mcp.ErrToolFailed, errText: "backend down"},
		{name: "handler error", tool: "erroring", input: `{}`, errText: "boom"},
		{name: "tool timeout", tool: "slow", input: `{}`, wantErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := srv.Call(context.Background(), tt.tool, json.RawMessage(tt.input))
			if tt.wantErr == nil && tt.errText == "" {
				if err != nil {
					t.Fatalf("Call() error = %v", err)
				}
				if got != tt.want {
					t.Errorf("Call() = %q, want %q", got, tt.want)
				}
				return
			}

			if err == nil {
				t.Fatal("expected error")
			}
			if ve, ok := tt.wantErr.(*tool.ValidationError); ok {
				if !errors.As(err, &ve) {
					t.Errorf("error = %v, want *ValidationError", err)
				}
			} else if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.errText != "" && !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error = %v, want it to mention %q", err, tt.errText)
			}
		})
	}
}

func TestToolServer_AddTool(t *testing.T) {
	t.Parallel()

	t.Run("adds tool to registry", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		if err := srv.AddTool(newEchoTool()); err != nil {
			t.Fatalf("AddTool() error = %v", err)
		}

		got, err := srv.Call(context.Background(), "echo", json.RawMessage(`{"message":"added"}`))
		if err != nil || got != "added" {
			t.Errorf("Call() = %q, %v, want added", got, err)
		}
	})

	t.Run("rejects duplicate", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, newEchoTool())
		if err := srv.AddTool(newEchoTool()); !errors.Is(err, tool.ErrDuplicateTool) {
			t.Errorf("AddTool() error = %v, want ErrDuplicateTool", err)
		}
	})

	t.Run("requires registry", func(t *testing.T) {
		t.Parallel()

		srv := mcp.NewToolServer(mcp.ToolServerConfig{Name: "test-server"})
		if err := srv.AddTool(newEchoTool()); err == nil {
			t.Error("expected error without registry")
		}
	})
}
