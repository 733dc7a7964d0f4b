// Package text provides summarization and answer composition tools.
package text

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/pack"
	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/pack/core"
)

// Tool names.
const (
	SummarizeToolName = "summarize_action"
	AnswerToolName    = "answer_question"
)

// DefaultMaxLength is summarize_action's default summary length.
const DefaultMaxLength = 150

// Config configures the text pack.
type Config struct {
	// Clock supplies current_date when the caller omits it.
	Clock func() time.Time
}

// Option configures the text pack.
type Option func(*Config)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// New creates the text pack.
func New(opts ...Option) *pack.Pack {
	cfg := Config{Clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	return pack.New("text", "Extractive summarization and answers from search results",
		summarizeTool(),
		answerTool(&cfg),
	)
}

type summarizeInput struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length,omitempty"`
}

func summarizeTool() tool.Tool {
	return tool.NewBuilder(SummarizeToolName).
		WithDescription("Summarize a text by keeping its key sentences").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"text":       tool.Prop("string", "Text to summarize"),
			"max_length": tool.Prop("integer", "Maximum summary length in characters (default 150)"),
		}, []string{"text"})).
		ReadOnly().
		Idempotent().
		Cacheable().
		WithHandler(tool.Typed(func(_ context.Context, in summarizeInput) (tool.Result, error) {
			if in.MaxLength <= 0 {
				in.MaxLength = DefaultMaxLength
			}

			summary, err := Summarize(in.Text, in.MaxLength)
			if err != nil {
				return tool.Result{}, err
			}
			return tool.SuccessJSON(summary.Summary, summary), nil
		})).
		MustBuild()
}

type answerInput struct {
	Question      string          `json:"question"`
	SearchResults json.RawMessage `json:"search_results"`
	CurrentDate   string          `json:"current_date,omitempty"`
}

func answerTool(cfg *Config) tool.Tool {
	return tool.NewBuilder(AnswerToolName).
		WithDescription("Answer a question from search results. Use it as the final step").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"question":       tool.Prop("string", "The question to answer"),
			"search_results": json.RawMessage(`{"description":"Results from search_action: an array of {title, link, snippet} or its observation text"}`),
			"current_date":   tool.Prop("string", "Date the answer refers to (default now)"),
		}, []string{"question", "search_results"})).
		ReadOnly().
		Idempotent().
		WithHandler(tool.Typed(func(_ context.Context, in answerInput) (tool.Result, error) {
			if in.Question == "" {
				return tool.Result{}, fmt.Errorf("%w: question is required", tool.ErrInvalidInput)
			}

			results, err := ParseResults(in.SearchResults)
			if err != nil {
				return tool.Result{}, err
			}

			date := in.CurrentDate
			if date == "" {
				date = cfg.Clock().Format(core.DateLayout)
			}

			answer, err := Compose(in.Question, results, date)
			if errors.Is(err, ErrNoResults) {
				return tool.Failure(fmt.Sprintf("no search results to answer %q", in.Question)), nil
			}
			if err != nil {
				return tool.Result{}, err
			}
			return tool.SuccessJSON(answer.Answer, answer), nil
		})).
		MustBuild()
}
