package pack_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/react-agent/domain/pack"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

type mockTool struct {
	name     string
	readOnly bool
}

func (m mockTool) Name() string        { return m.name }
func (m mockTool) Description() string { return "mock tool" }
func (m mockTool) Annotations() tool.Annotations {
	return tool.Annotations{ReadOnly: m.readOnly}
}
func (m mockTool) InputSchema() tool.Schema { return tool.Schema{} }
func (m mockTool) Execute(context.Context, json.RawMessage) (tool.Result, error) {
	return tool.Result{}, nil
}

func TestNew(t *testing.T) {
	t.Parallel()

	p := pack.New("search", "Web search",
		mockTool{name: "search_action"},
		mockTool{name: "extract_weather_data"},
	).DependsOn("core").BackedBy("serpapi")

	if p.Name != "search" || p.Description != "Web search" || p.Version != pack.DefaultVersion {
		t.Errorf("pack = %+v", p)
	}
	names := p.ToolNames()
	if len(names) != 2 || names[0] != "search_action" || names[1] != "extract_weather_data" {
		t.Errorf("ToolNames() = %v", names)
	}
	if len(p.Dependencies) != 1 || p.Dependencies[0] != "core" {
		t.Errorf("Dependencies = %v, want [core]", p.Dependencies)
	}
	if p.Backend != "serpapi" {
		t.Errorf("Backend = %q, want serpapi", p.Backend)
	}
}

func TestPack_Tool(t *testing.T) {
	t.Parallel()

	p := pack.New("core", "", mockTool{name: "do_nothing"})

	if got, ok := p.Tool("do_nothing"); !ok || got.Name() != "do_nothing" {
		t.Errorf("Tool(do_nothing) = %v, %v", got, ok)
	}
	if _, ok := p.Tool("missing"); ok {
		t.Error("Tool(missing) ok = true, want false")
	}
}

func TestPack_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pack    *pack.Pack
		wantErr bool
	}{
		{"valid", pack.New("core", "", mockTool{name: "do_nothing"}), false},
		{"no tools", pack.New("empty", ""), false},
		{"nil", nil, true},
		{"no name", pack.New("", "", mockTool{name: "do_nothing"}), true},
		{"nil tool", pack.New("core", "", nil), true},
		{"duplicate", pack.New("core", "", mockTool{name: "a"}, mockTool{name: "a"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.pack.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, pack.ErrInvalidPack) {
				t.Errorf("Validate() error = %v, want ErrInvalidPack", err)
			}
		})
	}
}

func TestPack_Offline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pack *pack.Pack
		want bool
	}{
		{"read-only local", pack.New("text", "", mockTool{name: "summarize_action", readOnly: true}), true},
		{"side effects", pack.New("core", "", mockTool{name: "send"}), false},
		{"backend", pack.New("search", "", mockTool{name: "search_action", readOnly: true}).BackedBy("serpapi"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.pack.Offline(); got != tt.want {
				t.Errorf("Offline() = %v, want %v", got, tt.want)
			}
		})
	}
}
