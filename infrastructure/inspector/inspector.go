// Package inspector renders completed task results for humans and tools.
package inspector

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// Format identifies an export format.
type Format string

const (
	// FormatJSON exports the result as indented JSON.
	FormatJSON Format = "json"

	// FormatCSV exports one row per step.
	FormatCSV Format = "csv"

	// FormatMermaid exports the steps as a Mermaid sequence diagram.
	FormatMermaid Format = "mermaid"

	// FormatDOT exports the steps as a Graphviz digraph.
	FormatDOT Format = "dot"
)

// ErrUnsupportedFormat is returned for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Formatter renders a result.
type Formatter interface {
	Format(result agent.Result) ([]byte, error)
	FormatType() Format
}

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatMermaid, FormatDOT}
}

// NewFormatter returns the formatter for name.
func NewFormatter(name Format) (Formatter, error) {
	switch name {
	case FormatJSON, "":
		return JSONFormatter{}, nil
	case FormatCSV:
		return NewCSVFormatter(), nil
	case FormatMermaid:
		return MermaidFormatter{}, nil
	case FormatDOT:
		return DOTFormatter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// JSONFormatter formats results as JSON alongside the step summary.
type JSONFormatter struct{}

// Format formats the result as JSON.
func (JSONFormatter) Format(result agent.Result) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(struct {
		Result  json.RawMessage `json:"result"`
		Summary agent.Summary   `json:"summary"`
	}{raw, result.Summary()}, "", "  ")
}

// FormatType returns the format type.
func (JSONFormatter) FormatType() Format { return FormatJSON }

// label shortens text for diagram labels.
func label(s string, limit int) string {
	r := []rune(s)
	if len(r) > limit {
		s = string(r[:limit]) + "..."
	}
	return s
}

var (
	_ Formatter = JSONFormatter{}
	_ Formatter = (*CSVFormatter)(nil)
	_ Formatter = MermaidFormatter{}
	_ Formatter = DOTFormatter{}
)
