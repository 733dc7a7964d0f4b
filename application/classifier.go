package application

import (
	"fmt"
)

// FaultSource names the collaborator a fault came from.
type FaultSource string

const (
	SourceOracle FaultSource = "oracle"
	SourceTool   FaultSource = "tool"
	SourceCaller FaultSource = "caller"
)

// FaultKind identifies what went wrong.
type FaultKind string

const (
	FaultUnknownTool       FaultKind = "unknown_tool"
	FaultInvalidArgs       FaultKind = "invalid_args"
	FaultToolError         FaultKind = "tool_error"
	FaultToolTimeout       FaultKind = "tool_timeout"
	FaultOracleError       FaultKind = "oracle_error"
	FaultOracleTimeout     FaultKind = "oracle_timeout"
	FaultMalformedDecision FaultKind = "malformed_decision"
	FaultCancelled         FaultKind = "cancelled"
)

// Severity decides whether a fault ends the run.
type Severity int

const (
	// Recoverable faults become failed observations and the loop continues.
	Recoverable Severity = iota
	// Fatal faults fail the run.
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// Fault describes one failure seen by the control loop.
type Fault struct {
	Source   FaultSource
	Kind     FaultKind
	ToolName string
	Err      error
}

func (f Fault) Error() string {
	if f.ToolName != "" {
		return fmt.Sprintf("%s %s (%s): %v", f.Source, f.Kind, f.ToolName, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Source, f.Kind, f.Err)
}

// Unwrap returns the underlying error.
func (f Fault) Unwrap() error {
	return f.Err
}

// FaultClassifier maps faults to severities.
type FaultClassifier interface {
	Classify(f Fault) Severity
}

// ClassifierFunc adapts a function to FaultClassifier.
type ClassifierFunc func(f Fault) Severity

// Classify calls fn.
func (fn ClassifierFunc) Classify(f Fault) Severity {
	return fn(f)
}

// DefaultClassifier treats tool faults as recoverable and everything else as fatal.
type DefaultClassifier struct{}

// Classify implements FaultClassifier.
func (DefaultClassifier) Classify(f Fault) Severity {
	if f.Kind == FaultCancelled {
		return Fatal
	}
	if f.Source == SourceTool {
		return Recoverable
	}
	return Fatal
}

// OverrideClassifier consults Override first and falls back to Base when
// Override reports no opinion.
type OverrideClassifier struct {
	Base     FaultClassifier
	Override func(f Fault) (Severity, bool)
}

// Classify implements FaultClassifier.
func (c OverrideClassifier) Classify(f Fault) Severity {
	if c.Override != nil {
		if sev, ok := c.Override(f); ok {
			return sev
		}
	}
	if c.Base == nil {
		return DefaultClassifier{}.Classify(f)
	}
	return c.Base.Classify(f)
}

// WithFatalTools returns a classifier that fails the run on any fault of the
// named tools and otherwise defers to base (DefaultClassifier when nil).
func WithFatalTools(base FaultClassifier, tools ...string) FaultClassifier {
	fatal := make(map[string]bool, len(tools))
	for _, name := range tools {
		fatal[name] = true
	}
	return OverrideClassifier{
		Base: base,
		Override: func(f Fault) (Severity, bool) {
			if f.Source == SourceTool && fatal[f.ToolName] {
				return Fatal, true
			}
			return Recoverable, false
		},
	}
}
