package agent

import (
	"fmt"
	"strings"
)

// DecisionKind identifies the kind of decision made by the oracle.
type DecisionKind string

const (
	DecisionInvokeTool DecisionKind = "invoke_tool" // Execute a registered tool
	DecisionFinish     DecisionKind = "finish"      // Complete with a final answer
)

// Decision is the oracle's output for one iteration. Exactly one payload is set.
type Decision struct {
	Kind       DecisionKind        `json:"kind"`
	Reasoning  string              `json:"reasoning,omitempty"`
	InvokeTool *InvokeToolDecision `json:"invoke_tool,omitempty"`
	Finish     *FinishDecision     `json:"finish,omitempty"`
}

// InvokeToolDecision instructs the loop to dispatch a tool.
type InvokeToolDecision struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"tool_args"`
}

// FinishDecision ends the task with an answer.
type FinishDecision struct {
	Answer string `json:"answer"`
}

// NewInvokeToolDecision creates a decision to execute a tool.
func NewInvokeToolDecision(toolName string, args map[string]any, reasoning string) Decision {
	if args == nil {
		args = map[string]any{}
	}
	return Decision{
		Kind:      DecisionInvokeTool,
		Reasoning: reasoning,
		InvokeTool: &InvokeToolDecision{
			ToolName: toolName,
			Args:     args,
		},
	}
}

// NewFinishDecision creates a decision to complete the task.
func NewFinishDecision(answer string, reasoning string) Decision {
	return Decision{
		Kind:      DecisionFinish,
		Reasoning: reasoning,
		Finish:    &FinishDecision{Answer: answer},
	}
}

// IsTerminal returns true if the decision ends the task.
func (d Decision) IsTerminal() bool {
	return d.Kind == DecisionFinish
}

// Validate checks that the populated payload is consistent with Kind.
func (d Decision) Validate() error {
	switch d.Kind {
	case DecisionInvokeTool:
		if d.InvokeTool == nil || d.Finish != nil {
			return fmt.Errorf("%w: invoke_tool requires exactly the tool payload", ErrMalformedDecision)
		}
		if strings.TrimSpace(d.InvokeTool.ToolName) == "" {
			return fmt.Errorf("%w: empty tool name", ErrMalformedDecision)
		}
	case DecisionFinish:
		if d.Finish == nil || d.InvokeTool != nil {
			return fmt.Errorf("%w: finish requires exactly the answer payload", ErrMalformedDecision)
		}
		if strings.TrimSpace(d.Finish.Answer) == "" {
			return fmt.Errorf("%w: empty answer", ErrMalformedDecision)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedDecision, d.Kind)
	}
	return nil
}

// String returns a short human readable form used in logs.
func (d Decision) String() string {
	switch {
	case d.Kind == DecisionInvokeTool && d.InvokeTool != nil:
		return fmt.Sprintf("invoke_tool(%s)", d.InvokeTool.ToolName)
	case d.Kind == DecisionFinish:
		return "finish"
	default:
		return string(d.Kind)
	}
}
