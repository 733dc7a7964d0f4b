package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
	mcpgo "github.com/felixgeelhaar/mcp-go"
	mcpserver "github.com/felixgeelhaar/mcp-go/server"
)

// Errors returned by tool calls served over MCP.
var (
	// ErrToolNotFound indicates a call for a tool the registry does not hold.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolFailed indicates the tool ran but reported failure.
	ErrToolFailed = errors.New("tool failed")
)

// ToolServer wraps an MCP server to expose a tool registry.
type ToolServer struct {
	srv      *mcpgo.Server
	registry tool.Registry
	timeout  time.Duration
	info     mcpgo.ServerInfo
}

// ToolServerConfig configures a tool MCP server.
type ToolServerConfig struct {
	// Name is the server name.
	Name string

	// Version is the server version.
	Version string

	// Registry is the tool registry containing tools to expose.
	Registry tool.Registry

	// Description is an optional server description.
	Description string

	// Instructions provides usage instructions for clients.
	Instructions string

	// Timeout bounds each tool call (0 = tool or caller decides).
	Timeout time.Duration
}

// NewToolServer creates a new MCP server that exposes registry tools.
func NewToolServer(cfg ToolServerConfig) *ToolServer {
	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}

	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	s := &ToolServer{
		srv:      mcpgo.NewServer(info, opts...),
		registry: cfg.Registry,
		timeout:  cfg.Timeout,
		info:     info,
	}

	if cfg.Registry != nil {
		for _, t := range cfg.Registry.List() {
			s.registerTool(t)
		}
	}

	return s
}

// registerTool registers a single tool with the MCP server.
func (s *ToolServer) registerTool(t tool.Tool) {
	name := t.Name()
	handler := func(ctx context.Context, input json.RawMessage) (string, error) {
		return s.Call(ctx, name, input)
	}

	s.srv.Tool(name).
		Description(describe(t)).
		Handler(handler)
}

// describe appends the argument summary so clients see the schema.
func describe(t tool.Tool) string {
	schema := t.InputSchema()
	if schema.IsEmpty() {
		return t.Description()
	}
	return fmt.Sprintf("%s (arguments: %s)", t.Description(), schema.Describe())
}

// Call validates input against the tool's schema, executes it and
// returns its observation. A failed result is reported as ErrToolFailed
// carrying the observation.
func (s *ToolServer) Call(ctx context.Context, name string, input json.RawMessage) (string, error) {
	if s.registry == nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	t, ok := s.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if err := t.InputSchema().Validate(input); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
	}

	timeout := s.timeout
	if d := t.Annotations().Timeout; d > 0 {
		timeout = d
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := t.Execute(ctx, input)
	duration := time.Since(start)
	if err != nil {
		logging.Warn().
			Add(logging.Component("mcp")).
			Add(logging.ToolName(name)).
			Add(logging.Duration(duration)).
			Add(logging.ErrorField(err)).
			Msg("tool call failed")
		return "", err
	}

	logging.Debug().
		Add(logging.Component("mcp")).
		Add(logging.ToolName(name)).
		Add(logging.Duration(duration)).
		Add(logging.Outcome(outcome(result))).
		Msg("tool call served")

	if !result.Succeeded {
		return "", fmt.Errorf("%w: %s", ErrToolFailed, result.Observation)
	}
	if len(result.Data) > 0 {
		return string(result.Data), nil
	}
	return result.Observation, nil
}

func outcome(r tool.Result) string {
	if r.Succeeded {
		return "success"
	}
	return "failure"
}

// Server returns the underlying mcp-go server.
func (s *ToolServer) Server() *mcpgo.Server {
	return s.srv
}

// Info returns the advertised server metadata.
func (s *ToolServer) Info() mcpgo.ServerInfo {
	return s.info
}

// Use adds middleware to the server.
func (s *ToolServer) Use(middlewares ...mcpserver.Middleware) {
	s.srv.Use(middlewares...)
}

// ServeStdio runs the server over stdin/stdout.
func (s *ToolServer) ServeStdio(ctx context.Context, opts ...ServeOption) error {
	return mcpgo.ServeStdio(ctx, s.srv, opts...)
}

// ServeHTTP runs the server over HTTP with SSE.
func (s *ToolServer) ServeHTTP(ctx context.Context, addr string, opts ...mcpgo.HTTPOption) error {
	return mcpgo.ServeHTTP(ctx, s.srv, addr, opts...)
}

// AddTool adds a tool to the registry and the server.
func (s *ToolServer) AddTool(t tool.Tool) error {
	if s.registry == nil {
		return errors.New("server has no registry")
	}
	if err := s.registry.Register(t); err != nil {
		return fmt.Errorf("register tool: %w", err)
	}
	s.registerTool(t)
	return nil
}
