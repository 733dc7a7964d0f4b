package telemetry

// Span names.
const (
	SpanRun    = "react.run"
	SpanOracle = "react.oracle.decide"
	SpanTool   = "react.tool.execute"
	SpanRefine = "react.oracle.refine"
)

// Attribute keys.
const (
	AttrRunID     = "react.run_id"
	AttrIteration = "react.iteration"
	AttrStatus    = "react.status"
	AttrTool      = "react.tool"
	AttrOutcome   = "react.outcome"
	AttrDecision  = "react.decision"
	AttrOracle    = "react.oracle"
)

// Instrument names.
const (
	MetricRuns         = "react_agent.runs"
	MetricIterations   = "react_agent.iterations"
	MetricToolCalls    = "react_agent.tool_calls"
	MetricToolDuration = "react_agent.tool_duration"
	MetricOracleCalls  = "react_agent.oracle_calls"
)
