package inspector

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// CSVFormatter formats results as CSV, one row per step.
type CSVFormatter struct {
	includeHeaders bool
	delimiter      rune
}

// CSVFormatterOption configures the CSV formatter.
type CSVFormatterOption func(*CSVFormatter)

// WithoutCSVHeaders omits the header row.
func WithoutCSVHeaders() CSVFormatterOption {
	return func(f *CSVFormatter) {
		f.includeHeaders = false
	}
}

// WithDelimiter sets a custom delimiter (default is comma).
func WithDelimiter(d rune) CSVFormatterOption {
	return func(f *CSVFormatter) {
		f.delimiter = d
	}
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(opts ...CSVFormatterOption) *CSVFormatter {
	f := &CSVFormatter{
		includeHeaders: true,
		delimiter:      ',',
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats the result as CSV.
func (f *CSVFormatter) Format(result agent.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = f.delimiter

	if f.includeHeaders {
		header := []string{"run_id", "step", "timestamp", "action", "succeeded", "duration_ms", "args", "reasoning", "observation"}
		if err := w.Write(header); err != nil {
			return nil, err
		}
	}

	for i, st := range result.History {
		args := ""
		if len(st.Args) > 0 {
			b, err := json.Marshal(st.Args)
			if err != nil {
				return nil, fmt.Errorf("encode args of step %d: %w", i+1, err)
			}
			args = string(b)
		}

		row := []string{
			result.RunID,
			strconv.Itoa(i + 1),
			formatTime(st.Timestamp),
			st.Action,
			strconv.FormatBool(st.Succeeded),
			strconv.FormatInt(st.Duration.Milliseconds(), 10),
			args,
			st.Reasoning,
			st.Observation,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv write error: %w", err)
	}

	return buf.Bytes(), nil
}

// FormatType returns the format type.
func (f *CSVFormatter) FormatType() Format { return FormatCSV }

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
