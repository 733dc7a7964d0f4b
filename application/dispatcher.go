package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
	"github.com/felixgeelhaar/react-agent/infrastructure/resilience"
)

// OutcomeKind classifies the result of a dispatch.
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeNotFound    OutcomeKind = "not_found"
	OutcomeInvalidArgs OutcomeKind = "invalid_args"
	OutcomeFault       OutcomeKind = "fault"
	OutcomeTimeout     OutcomeKind = "timeout"
	OutcomeRedirected  OutcomeKind = "redirected"
)

// FaultKind maps an outcome to the fault kind the classifier sees.
func (k OutcomeKind) FaultKind() FaultKind {
	switch k {
	case OutcomeNotFound:
		return FaultUnknownTool
	case OutcomeInvalidArgs:
		return FaultInvalidArgs
	case OutcomeTimeout:
		return FaultToolTimeout
	default:
		return FaultToolError
	}
}

// ErrInvalidArgs indicates arguments that do not match a tool's schema.
var ErrInvalidArgs = errors.New("invalid arguments")

// ErrPanicked indicates a collaborator panicked and was recovered.
var ErrPanicked = errors.New("panic recovered")

// ToolFault describes a failed tool invocation.
type ToolFault struct {
	Tool string
	Kind OutcomeKind
	Err  error
}

func (e *ToolFault) Error() string {
	return fmt.Sprintf("tool %s %s: %v", e.Tool, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ToolFault) Unwrap() error {
	return e.Err
}

// Call is one tool invocation requested by the oracle.
type Call struct {
	RunID     string
	Iteration int
	ToolName  string
	Args      map[string]any
	Reasoning string
}

// Outcome is the normalized result of a dispatch. The Result observation is
// always populated so it can be folded into the transcript.
type Outcome struct {
	Kind   OutcomeKind
	Result tool.Result
	Fault  *ToolFault
}

// Succeeded reports whether the tool achieved its purpose.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

// Dispatcher looks up, validates and executes tools on behalf of the loop.
// It never returns Go errors; every failure becomes an Outcome.
type Dispatcher struct {
	registry   tool.Registry
	executor   *resilience.Executor
	middleware *middleware.Registry
	timeout    time.Duration
	maxChars   int
}

// NewDispatcher creates a dispatcher. A nil executor runs tools directly; a
// nil middleware registry means no middleware.
func NewDispatcher(registry tool.Registry, executor *resilience.Executor, mw *middleware.Registry, cfg Config) *Dispatcher {
	if mw == nil {
		mw = middleware.NewRegistry()
	}
	return &Dispatcher{
		registry:   registry,
		executor:   executor,
		middleware: mw,
		timeout:    cfg.ToolTimeout,
		maxChars:   cfg.MaxObservationChars,
	}
}

// Dispatch executes the call and normalizes whatever happens.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Outcome {
	start := time.Now()
	outcome := d.dispatch(ctx, call)
	if outcome.Result.Duration == 0 {
		outcome.Result.Duration = time.Since(start)
	}
	outcome.Result.Observation = Truncate(outcome.Result.Observation, d.maxChars)

	logging.ForRun(call.RunID).With(logging.ToolName(call.ToolName)).Debug().
		Add(logging.Outcome(string(outcome.Kind))).
		Add(logging.Duration(outcome.Result.Duration)).
		Msg("tool dispatched")

	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, call Call) Outcome {
	t, ok := d.registry.Get(call.ToolName)
	if !ok {
		err := fmt.Errorf("%w: %s", tool.ErrToolNotFound, call.ToolName)
		return failed(call.ToolName, OutcomeNotFound, err,
			fmt.Sprintf("unknown tool: %s (available: %s)", call.ToolName, strings.Join(d.registry.Names(), ", ")))
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	input, err := json.Marshal(args)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		return failed(call.ToolName, OutcomeInvalidArgs, err,
			fmt.Sprintf("invalid arguments for %s: %v", call.ToolName, err))
	}
	if err := t.InputSchema().Validate(input); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidArgs, err)
		return failed(call.ToolName, OutcomeInvalidArgs, err,
			fmt.Sprintf("invalid arguments for %s: %v (expected %s)", call.ToolName, err, t.InputSchema().Describe()))
	}

	execCtx := &middleware.ExecutionContext{
		RunID:     call.RunID,
		Iteration: call.Iteration,
		Tool:      t,
		Input:     input,
		Reasoning: call.Reasoning,
	}

	tctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	handler := d.middleware.Chain()(d.execute)
	result, err := callGuarded(tctx, func(c context.Context) (tool.Result, error) {
		return handler(c, execCtx)
	})

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		err = fmt.Errorf("%w: %w", tool.ErrExecutionTimeout, err)
		obs := fmt.Sprintf("tool %s timed out", call.ToolName)
		if limit := d.limitFor(t); limit > 0 {
			obs += " after " + limit.String()
		}
		return failed(call.ToolName, OutcomeTimeout, err, obs)
	case err != nil && (errors.Is(err, ErrInvalidArgs) || errors.Is(err, tool.ErrInvalidInput)):
		return failed(call.ToolName, OutcomeInvalidArgs, err,
			fmt.Sprintf("invalid arguments for %s: %v", call.ToolName, err))
	case err != nil:
		return failed(call.ToolName, OutcomeFault, err,
			fmt.Sprintf("tool %s failed: %v", call.ToolName, err))
	case !result.Succeeded:
		if result.Observation == "" {
			result.Observation = fmt.Sprintf("tool %s reported failure", call.ToolName)
		}
		return Outcome{
			Kind:   OutcomeFault,
			Result: result,
			Fault:  &ToolFault{Tool: call.ToolName, Kind: OutcomeFault, Err: errors.New(result.Observation)},
		}
	}

	return Outcome{Kind: OutcomeSuccess, Result: result}
}

// Redirect runs the fallback tool in place of a tool that kept failing.
// The outcome is always a failure explaining the redirection.
func (d *Dispatcher) Redirect(ctx context.Context, call Call, failures int) Outcome {
	fb := d.Dispatch(ctx, Call{
		RunID:     call.RunID,
		Iteration: call.Iteration,
		ToolName:  tool.FallbackName,
		Reasoning: call.Reasoning,
	})
	obs := fmt.Sprintf("tool %s disabled after %d consecutive failures; redirected to %s: %s",
		call.ToolName, failures, tool.FallbackName, fb.Result.Observation)

	logging.ForRun(call.RunID).With(logging.ToolName(call.ToolName)).Warn().
		Add(logging.Int("failures", failures)).
		Msg("tool redirected to fallback")

	return Outcome{
		Kind:   OutcomeRedirected,
		Result: tool.Failure(Truncate(obs, d.maxChars)).WithDuration(fb.Result.Duration),
	}
}

// limitFor returns the tightest deadline a call to t runs under.
func (d *Dispatcher) limitFor(t tool.Tool) time.Duration {
	limit := d.timeout
	if d.executor != nil {
		if own := d.executor.TimeoutFor(t); own > 0 && (limit <= 0 || own < limit) {
			limit = own
		}
	}
	return limit
}

// execute is the core handler at the end of the middleware chain.
func (d *Dispatcher) execute(ctx context.Context, ec *middleware.ExecutionContext) (tool.Result, error) {
	if d.executor == nil {
		return ec.Tool.Execute(ctx, ec.Input)
	}
	return d.executor.Execute(ctx, ec.Tool, ec.Input)
}

func failed(name string, kind OutcomeKind, err error, observation string) Outcome {
	return Outcome{
		Kind:   kind,
		Result: tool.Failure(observation),
		Fault:  &ToolFault{Tool: name, Kind: kind, Err: err},
	}
}

type guardedResult[T any] struct {
	val T
	err error
}

// callGuarded runs fn in its own goroutine, recovering panics and returning
// as soon as ctx is done even if fn does not observe ctx.
func callGuarded[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	done := make(chan guardedResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- guardedResult[T]{val: zero, err: fmt.Errorf("%w: %v", ErrPanicked, r)}
			}
		}()
		v, err := fn(ctx)
		done <- guardedResult[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Truncate shortens s to at most limit runes, marking the cut with an
// ellipsis. A non-positive limit returns s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	const ellipsis = "..."
	if limit <= len(ellipsis) {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-len(ellipsis)]) + ellipsis
}

// fallbackGuard counts consecutive failures per tool within one run.
type fallbackGuard struct {
	threshold int
	failures  map[string]int
}

func newFallbackGuard(threshold int) *fallbackGuard {
	return &fallbackGuard{threshold: threshold, failures: make(map[string]int)}
}

// tripped reports whether requests for name should be redirected.
func (g *fallbackGuard) tripped(name string) bool {
	return g.threshold > 0 && g.failures[name] >= g.threshold
}

func (g *fallbackGuard) record(name string, succeeded bool) {
	if succeeded {
		delete(g.failures, name)
		return
	}
	g.failures[name]++
}

func (g *fallbackGuard) count(name string) int {
	return g.failures[name]
}
