package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// ValidationConfig configures the input validation middleware.
type ValidationConfig struct {
	// RejectEmpty rejects empty or null inputs instead of treating them as {}.
	RejectEmpty bool
}

// Validation returns middleware that checks tool input against the tool's
// input schema before the tool runs. Failures wrap tool.ErrInvalidInput.
func Validation(cfg ValidationConfig) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			if err := validateInput(execCtx.Tool, execCtx.Input, cfg.RejectEmpty); err != nil {
				return tool.Result{}, err
			}
			return next(ctx, execCtx)
		}
	}
}

func validateInput(t tool.Tool, input json.RawMessage, rejectEmpty bool) error {
	if len(input) == 0 || string(input) == "null" {
		if rejectEmpty {
			return fmt.Errorf("%w: input is empty", tool.ErrInvalidInput)
		}
		input = json.RawMessage(`{}`)
	}
	if !json.Valid(input) {
		return fmt.Errorf("%w: input is not valid JSON", tool.ErrInvalidInput)
	}

	err := t.InputSchema().Validate(input)
	if err == nil {
		return nil
	}
	if errors.Is(err, tool.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %v", tool.ErrInvalidInput, err)
}
