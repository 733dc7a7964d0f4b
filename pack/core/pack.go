// Package core provides the tools every agent registry carries.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/pack"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// DateLayout is the format get_current_date reports.
const DateLayout = "02/01/2006 15:04:05"

// Config configures the core pack.
type Config struct {
	// Clock returns the current time.
	Clock func() time.Time

	// Location is the default timezone for get_current_date.
	Location *time.Location
}

// Option configures the core pack.
type Option func(*Config)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLocation sets the default timezone.
func WithLocation(loc *time.Location) Option {
	return func(c *Config) {
		c.Location = loc
	}
}

// New creates the core pack.
func New(opts ...Option) *pack.Pack {
	cfg := Config{
		Clock:    time.Now,
		Location: time.Local,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return pack.New("core", "Fallback and clock tools",
		DoNothing(),
		currentDateTool(&cfg),
	)
}

type doNothingOutput struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// DoNothing returns the neutral no-op tool the loop falls back to.
func DoNothing() tool.Tool {
	return tool.NewBuilder(tool.FallbackName).
		WithDescription("Do nothing. Use when no action is needed").
		ReadOnly().
		Idempotent().
		Fallback().
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Result, error) {
			return tool.SuccessJSON("No action performed", doNothingOutput{
				Action:  tool.FallbackName,
				Message: "No action performed",
			}), nil
		}).
		MustBuild()
}

type currentDateInput struct {
	Timezone string `json:"timezone,omitempty"`
}

type currentDateOutput struct {
	Date     string `json:"date"`
	Timezone string `json:"timezone"`
	Unix     int64  `json:"unix"`
}

func currentDateTool(cfg *Config) tool.Tool {
	return tool.NewBuilder("get_current_date").
		WithDescription("Get the current date and time as DD/MM/YYYY HH:MM:SS").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"timezone": tool.Prop("string", "IANA timezone, e.g. Asia/Ho_Chi_Minh"),
		}, nil)).
		ReadOnly().
		WithHandler(func(_ context.Context, input json.RawMessage) (tool.Result, error) {
			var in currentDateInput
			if len(input) > 0 {
				if err := json.Unmarshal(input, &in); err != nil {
					return tool.Failure("invalid input: " + err.Error()), nil
				}
			}

			loc := cfg.Location
			if in.Timezone != "" {
				l, err := time.LoadLocation(in.Timezone)
				if err != nil {
					return tool.Failure(fmt.Sprintf("unknown timezone %q", in.Timezone)), nil
				}
				loc = l
			}

			now := cfg.Clock().In(loc)
			date := now.Format(DateLayout)
			return tool.SuccessJSON(date, currentDateOutput{
				Date:     date,
				Timezone: loc.String(),
				Unix:     now.Unix(),
			}), nil
		}).
		MustBuild()
}
