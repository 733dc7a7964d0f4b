// Package mcp exposes the agent's tool registry over the Model Context
// Protocol. It wraps github.com/felixgeelhaar/mcp-go.
package mcp

import (
	mcpgo "github.com/felixgeelhaar/mcp-go"
)

// ServeOption configures server behavior.
type ServeOption = mcpgo.ServeOption
