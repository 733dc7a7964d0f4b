// Package application provides the control loop that drives a reasoning
// oracle and a tool registry to an answer.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/oracle"
	"github.com/felixgeelhaar/react-agent/domain/telemetry"
	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
	inframw "github.com/felixgeelhaar/react-agent/infrastructure/middleware"
	"github.com/felixgeelhaar/react-agent/infrastructure/resilience"
	"github.com/felixgeelhaar/react-agent/infrastructure/statemachine"
)

// ActionOracleFault is the action recorded when a recoverable oracle fault
// consumes an iteration.
const ActionOracleFault = "oracle_error"

// Observer is notified as a run progresses.
type Observer interface {
	OnStep(ctx context.Context, runID string, step agent.Step)
	OnComplete(ctx context.Context, result agent.Result)
}

// StepFunc adapts a function to an Observer that only watches steps.
type StepFunc func(ctx context.Context, runID string, step agent.Step)

// OnStep calls f.
func (f StepFunc) OnStep(ctx context.Context, runID string, step agent.Step) { f(ctx, runID, step) }

// OnComplete does nothing.
func (f StepFunc) OnComplete(context.Context, agent.Result) {}

// Engine runs tasks. It is safe for concurrent use; each Run owns its state.
type Engine struct {
	registry   tool.Registry
	oracle     oracle.Oracle
	refiner    oracle.Refiner
	executor   *resilience.Executor
	middleware *middleware.Registry
	classifier FaultClassifier
	tracer     telemetry.Tracer
	observers  []Observer
	config     Config

	runs       telemetry.Counter
	iterations telemetry.Histogram
	toolCalls  telemetry.Counter
}

// EngineConfig contains the collaborators and limits of the engine.
type EngineConfig struct {
	Registry   tool.Registry
	Oracle     oracle.Oracle
	Executor   *resilience.Executor
	Middleware *middleware.Registry
	Classifier FaultClassifier
	Tracer     telemetry.Tracer
	Meter      telemetry.Meter
	Observers  []Observer
	Config     Config

	// Refiner, when set, rewrites the answer of finished runs.
	Refiner oracle.Refiner
}

// NewEngine creates a new engine with the given configuration.
// A zero Config is replaced by DefaultConfig.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Registry == nil {
		return nil, ErrNoRegistry
	}
	if config.Oracle == nil {
		return nil, ErrNoOracle
	}

	e := &Engine{
		registry:   config.Registry,
		oracle:     config.Oracle,
		refiner:    config.Refiner,
		executor:   config.Executor,
		middleware: config.Middleware,
		classifier: config.Classifier,
		tracer:     config.Tracer,
		observers:  config.Observers,
		config:     config.Config,
	}

	if e.config == (Config{}) {
		e.config = DefaultConfig()
	}
	if e.executor == nil {
		e.executor = resilience.NewDefaultExecutor()
	}
	if e.middleware == nil {
		e.middleware = defaultMiddleware()
	}
	if e.classifier == nil {
		e.classifier = DefaultClassifier{}
	}
	if e.tracer == nil {
		e.tracer = telemetry.NoopTracer{}
	}

	meter := config.Meter
	if meter == nil {
		meter = telemetry.NoopMeter{}
	}
	e.runs = meter.Counter(telemetry.MetricRuns,
		telemetry.WithDescription("Completed runs by terminal status"),
		telemetry.WithUnit("{run}"))
	e.iterations = meter.Histogram(telemetry.MetricIterations,
		telemetry.WithDescription("Iterations used per run"),
		telemetry.WithUnit("{iteration}"))
	e.toolCalls = meter.Counter(telemetry.MetricToolCalls,
		telemetry.WithDescription("Tool dispatches by outcome"),
		telemetry.WithUnit("{call}"))

	return e, nil
}

func defaultMiddleware() *middleware.Registry {
	return middleware.NewRegistry().
		Use("logging", inframw.Logging(inframw.LoggingConfig{}))
}

// Config returns the engine's default run limits.
func (e *Engine) Config() Config {
	return e.config
}

// Registry returns the tool registry.
func (e *Engine) Registry() tool.Registry {
	return e.registry
}

// Run executes a task with the engine's default limits.
func (e *Engine) Run(ctx context.Context, query string) (agent.Result, error) {
	return e.RunWithConfig(ctx, query, e.config)
}

// RunWithConfig executes a task with the given limits.
//
// The returned error is non-nil only when the task could not start (invalid
// configuration, empty query, no fallback tool) or when an internal state
// invariant was violated. Task-level failure is reported in the result.
func (e *Engine) RunWithConfig(ctx context.Context, query string, cfg Config) (agent.Result, error) {
	if err := cfg.Validate(); err != nil {
		return agent.Result{}, err
	}
	state, err := agent.NewState(query)
	if err != nil {
		return agent.Result{}, err
	}
	if !tool.HasFallback(e.registry) {
		return agent.Result{}, fmt.Errorf("%w: %s", ErrNoFallbackTool, tool.FallbackName)
	}

	runID := uuid.NewString()
	lifecycle, err := statemachine.NewLifecycle(runID, cfg.MaxIterations)
	if err != nil {
		return agent.Result{}, err
	}
	defer lifecycle.Stop()

	ctx, span := e.tracer.StartSpan(ctx, telemetry.SpanRun,
		telemetry.WithAttributes(
			telemetry.String(telemetry.AttrRunID, runID),
			telemetry.Int("react.max_iterations", cfg.MaxIterations),
		),
		telemetry.WithSpanKind(telemetry.SpanKindInternal),
	)
	defer span.End()

	log := logging.ForRun(runID)
	log.Info().
		Add(logging.Query(query)).
		Add(logging.Int("max_iterations", cfg.MaxIterations)).
		Msg("run started")

	r := &runLoop{
		engine:     e,
		cfg:        cfg,
		runID:      runID,
		log:        log,
		state:      state,
		lifecycle:  lifecycle,
		dispatcher: NewDispatcher(e.registry, e.executor, e.middleware, cfg),
		guard:      newFallbackGuard(cfg.FallbackAfter),
	}
	loopErr := r.loop(ctx)
	if loopErr != nil && !state.IsTerminal() {
		_ = state.MarkFailed("internal error: " + loopErr.Error())
	}

	result := state.Result(runID)
	if loopErr == nil && result.Status == agent.StatusFinished {
		result.FinalAnswer = e.refine(ctx, cfg, log, result)
	}
	e.complete(ctx, span, log, result, loopErr)
	return result, loopErr
}

func (e *Engine) complete(ctx context.Context, span telemetry.Span, log logging.Scope, result agent.Result, err error) {
	log = log.With(logging.Status(result.Status))
	status := telemetry.String(telemetry.AttrStatus, result.Status.String())
	e.runs.Add(ctx, 1, status)
	e.iterations.Record(ctx, float64(result.IterationCount), status)

	span.SetAttributes(status, telemetry.Int(telemetry.AttrIteration, result.IterationCount))
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(telemetry.StatusCodeError, err.Error())
		log.Error().
			Add(logging.ErrorField(err)).
			Msg("run aborted on invariant violation")
	case result.Status == agent.StatusFailed:
		span.SetStatus(telemetry.StatusCodeError, result.Error)
		log.Warn().
			Add(logging.Reason(result.Error)).
			Add(logging.Iteration(result.IterationCount)).
			Add(logging.Duration(result.ElapsedTime)).
			Msg("run failed")
	default:
		span.SetStatus(telemetry.StatusCodeOK, "")
		log.Info().
			Add(logging.Iteration(result.IterationCount)).
			Add(logging.Duration(result.ElapsedTime)).
			Msg("run completed")
	}

	for _, o := range e.observers {
		o.OnComplete(ctx, result)
	}
}

// refine returns the refined answer of a finished run, or the raw answer
// when no refiner is set or refinement fails.
func (e *Engine) refine(ctx context.Context, cfg Config, log logging.Scope, result agent.Result) string {
	if e.refiner == nil {
		return result.FinalAnswer
	}
	if cfg.OracleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OracleTimeout)
		defer cancel()
	}
	ctx, span := e.tracer.StartSpan(ctx, telemetry.SpanRefine,
		telemetry.WithAttributes(telemetry.String(telemetry.AttrRunID, result.RunID)),
		telemetry.WithSpanKind(telemetry.SpanKindClient),
	)
	defer span.End()

	refined, err := callGuarded(ctx, func(c context.Context) (string, error) {
		return e.refiner.Refine(c, result.Query, result.History, result.FinalAnswer)
	})
	if err == nil && strings.TrimSpace(refined) == "" {
		err = errors.New("empty refinement")
	}
	if err != nil {
		span.RecordError(err)
		log.Warn().
			Add(logging.ErrorField(err)).
			Msg("answer refinement failed, keeping raw answer")
		return result.FinalAnswer
	}
	return strings.TrimSpace(refined)
}

// runLoop holds the per-run collaborators of one Run call.
type runLoop struct {
	engine     *Engine
	cfg        Config
	runID      string
	log        logging.Scope
	state      *agent.State
	lifecycle  *statemachine.Lifecycle
	dispatcher *Dispatcher
	guard      *fallbackGuard
}

func (r *runLoop) loop(ctx context.Context) error {
	for r.state.Status() == agent.StatusRunning && r.state.Iteration() < r.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return r.fail(cancelled(err))
		}
		if err := r.iterate(ctx); err != nil {
			return err
		}
	}

	if r.state.Status() != agent.StatusRunning {
		return nil
	}
	if err := r.state.MarkExhausted(); err != nil {
		return err
	}
	return r.lifecycle.Exhaust()
}

func (r *runLoop) iterate(ctx context.Context) error {
	transcript := oracle.NewTranscript(r.runID, r.state.Snapshot(), r.cfg.MaxIterations, oracle.Catalogue(r.engine.registry))

	decision, fault := r.decide(ctx, transcript)
	if fault != nil {
		if fault.Kind == FaultCancelled || r.engine.classifier.Classify(*fault) == Fatal {
			return r.fail(*fault)
		}
		r.log.Warn().
			Add(logging.ErrorField(fault)).
			Msg("recoverable oracle fault")
		return r.appendStep(ctx, agent.Step{
			Action:      ActionOracleFault,
			Observation: Truncate(fault.Error(), r.cfg.MaxObservationChars),
		})
	}

	r.log.Debug().
		Add(logging.Iteration(r.state.Iteration())).
		Add(logging.Decision(decision.Kind)).
		Msg("oracle decision")

	if decision.Kind == agent.DecisionFinish {
		return r.finish(ctx, decision)
	}
	return r.invoke(ctx, decision)
}

func (r *runLoop) decide(ctx context.Context, transcript oracle.Transcript) (agent.Decision, *Fault) {
	octx := ctx
	if r.cfg.OracleTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, r.cfg.OracleTimeout)
		defer cancel()
	}

	octx, span := r.engine.tracer.StartSpan(octx, telemetry.SpanOracle,
		telemetry.WithAttributes(
			telemetry.String(telemetry.AttrRunID, r.runID),
			telemetry.Int(telemetry.AttrIteration, transcript.Iteration),
		),
		telemetry.WithSpanKind(telemetry.SpanKindClient),
	)
	defer span.End()

	decision, err := callGuarded(octx, func(c context.Context) (agent.Decision, error) {
		return r.engine.oracle.Decide(c, transcript)
	})
	if err == nil {
		err = decision.Validate()
		if err != nil {
			err = fmt.Errorf("%w: %w", oracle.ErrMalformedResponse, err)
		}
	}
	if err == nil {
		span.SetAttributes(telemetry.String(telemetry.AttrDecision, string(decision.Kind)))
		return decision, nil
	}

	span.RecordError(err)
	span.SetStatus(telemetry.StatusCodeError, err.Error())

	switch {
	case ctx.Err() != nil:
		f := cancelled(ctx.Err())
		return agent.Decision{}, &f
	case errors.Is(err, context.DeadlineExceeded):
		return agent.Decision{}, &Fault{
			Source: SourceOracle,
			Kind:   FaultOracleTimeout,
			Err:    fmt.Errorf("no decision within %s: %w", r.cfg.OracleTimeout, err),
		}
	case errors.Is(err, oracle.ErrMalformedResponse), errors.Is(err, agent.ErrMalformedDecision):
		return agent.Decision{}, &Fault{Source: SourceOracle, Kind: FaultMalformedDecision, Err: err}
	default:
		return agent.Decision{}, &Fault{Source: SourceOracle, Kind: FaultOracleError, Err: err}
	}
}

func (r *runLoop) finish(ctx context.Context, decision agent.Decision) error {
	answer := decision.Finish.Answer
	step := agent.Step{
		Reasoning:   decision.Reasoning,
		Action:      agent.ActionFinish,
		Observation: answer,
		Succeeded:   true,
	}
	if err := r.appendStep(ctx, step); err != nil {
		return err
	}
	if err := r.state.MarkFinished(answer); err != nil {
		return err
	}
	return r.lifecycle.Finish("oracle finished")
}

func (r *runLoop) invoke(ctx context.Context, decision agent.Decision) error {
	call := Call{
		RunID:     r.runID,
		Iteration: r.state.Iteration(),
		ToolName:  decision.InvokeTool.ToolName,
		Args:      decision.InvokeTool.Args,
		Reasoning: decision.Reasoning,
	}

	tctx, span := r.engine.tracer.StartSpan(ctx, telemetry.SpanTool,
		telemetry.WithAttributes(
			telemetry.String(telemetry.AttrRunID, r.runID),
			telemetry.String(telemetry.AttrTool, call.ToolName),
			telemetry.Int(telemetry.AttrIteration, call.Iteration),
		),
	)
	var outcome Outcome
	if r.guard.tripped(call.ToolName) {
		outcome = r.dispatcher.Redirect(tctx, call, r.guard.count(call.ToolName))
	} else {
		outcome = r.dispatcher.Dispatch(tctx, call)
		r.guard.record(call.ToolName, outcome.Succeeded())
	}
	span.SetAttributes(telemetry.String(telemetry.AttrOutcome, string(outcome.Kind)))
	if outcome.Fault != nil {
		span.RecordError(outcome.Fault)
	}
	span.End()

	r.engine.toolCalls.Add(ctx, 1,
		telemetry.String(telemetry.AttrTool, call.ToolName),
		telemetry.String(telemetry.AttrOutcome, string(outcome.Kind)))

	// The caller gave up while the tool was running: drop the result.
	if err := ctx.Err(); err != nil {
		return r.fail(cancelled(err))
	}

	step := agent.Step{
		Reasoning:   decision.Reasoning,
		Action:      call.ToolName,
		Args:        call.Args,
		Observation: outcome.Result.Observation,
		Succeeded:   outcome.Succeeded(),
		Duration:    outcome.Result.Duration,
	}
	if err := r.appendStep(ctx, step); err != nil {
		return err
	}

	if outcome.Fault == nil {
		return nil
	}
	fault := Fault{
		Source:   SourceTool,
		Kind:     outcome.Kind.FaultKind(),
		ToolName: call.ToolName,
		Err:      outcome.Fault,
	}
	if r.engine.classifier.Classify(fault) == Fatal {
		return r.fail(fault)
	}
	r.log.Warn().
		Add(logging.ToolName(call.ToolName)).
		Add(logging.Outcome(string(outcome.Kind))).
		Add(logging.ErrorField(outcome.Fault)).
		Msg("recoverable tool fault")
	return nil
}

func (r *runLoop) appendStep(ctx context.Context, step agent.Step) error {
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	if err := r.state.AppendStep(step); err != nil {
		return err
	}
	if err := r.lifecycle.Step(); err != nil {
		return err
	}
	for _, o := range r.engine.observers {
		o.OnStep(ctx, r.runID, step)
	}
	return nil
}

// fail records a fatal fault. The returned error is only non-nil on an
// invariant violation.
func (r *runLoop) fail(f Fault) error {
	reason := f.Error()
	if f.Kind == FaultCancelled {
		reason = "cancelled: " + f.Err.Error()
	}
	if err := r.state.MarkFailed(reason); err != nil {
		return err
	}
	return r.lifecycle.Fail(reason)
}

func cancelled(err error) Fault {
	return Fault{Source: SourceCaller, Kind: FaultCancelled, Err: err}
}
