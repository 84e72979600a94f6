// Package flowmesh provides the high level entry point for executing
// dynamically described workflows. A Service bundles the agent provider, the
// graph builder, the runner and the run history behind a small API: hand it a
// workflow description plus an input message and get back the output, the
// trace id and the full ordered step log.
package flowmesh

import (
	"context"
	"time"

	"github.com/hupe1980/flowmesh/engine"
	"github.com/hupe1980/flowmesh/history"
	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/model"
	"github.com/hupe1980/flowmesh/observability"
	"github.com/hupe1980/flowmesh/provider"
	"github.com/hupe1980/flowmesh/ratelimit"
	"github.com/hupe1980/flowmesh/tool"
	"github.com/hupe1980/flowmesh/workflow"
)

// Options configure a Service.
type Options struct {
	// Logger receives service activity. Defaults to a no-op logger.
	Logger logging.Logger

	// Spans traces workflow runs. Defaults to no tracing.
	Spans observability.SpanManager

	// Limiter spaces out model calls across all concurrent runs. Defaults to
	// a limiter with the standard one second interval.
	Limiter *ratelimit.Limiter

	// Tools is the registry agent tool names resolve against. Defaults to a
	// registry holding the built-in command tool.
	Tools *tool.Registry

	// Functions is the registry function executors resolve against. Defaults
	// to a registry holding execute_command.
	Functions *engine.FunctionRegistry

	// History stores completed runs. Defaults to an in-memory store.
	History history.Store

	// WorkDir is the default working directory for command execution.
	WorkDir string

	// MaxSteps bounds executor invocations per run.
	MaxSteps int
}

// Result is the outcome of one workflow execution. On failure Output is empty
// but Steps still holds everything recorded up to the failure.
type Result struct {
	Output     string          `json:"output"`
	TraceID    string          `json:"trace_id"`
	WorkflowID string          `json:"workflow_id"`
	RunID      string          `json:"run_id"`
	Steps      []workflow.Step `json:"execution_steps"`
}

// Service executes workflows and ad-hoc agent runs against a single model
// backend. It is safe for concurrent use; runs share only the agent handle
// cache and the rate limiter.
type Service struct {
	provider *provider.ModelProvider
	builder  *engine.Builder
	runner   *engine.Runner
	history  history.Store
	logger   logging.Logger
	spans    observability.SpanManager
}

// New creates a Service on top of the given model.
func New(m model.Model, optFns ...func(o *Options)) *Service {
	opts := Options{
		Logger:  logging.NoOpLogger{},
		Spans:   observability.NoopSpanManager{},
		WorkDir: ".",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Spans == nil {
		opts.Spans = observability.NoopSpanManager{}
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New()
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry()
		opts.Tools.Register(tool.NewCommandTool(opts.WorkDir))
	}
	if opts.Functions == nil {
		opts.Functions = engine.NewDefaultFunctionRegistry(opts.WorkDir)
	}
	if opts.History == nil {
		opts.History = history.NewInMemoryStore()
	}

	p := provider.NewModelProvider(m, func(o *provider.Options) {
		o.Tools = opts.Tools
		o.Limiter = opts.Limiter
		o.Logger = opts.Logger
	})

	builder := engine.NewBuilder(p, func(o *engine.BuilderOptions) {
		o.Functions = opts.Functions
		o.Logger = opts.Logger
	})

	runner := engine.NewRunner(func(o *engine.RunnerOptions) {
		o.Logger = opts.Logger
		o.Spans = opts.Spans
		o.MaxSteps = opts.MaxSteps
	})

	return &Service{
		provider: p,
		builder:  builder,
		runner:   runner,
		history:  opts.History,
		logger:   opts.Logger,
		spans:    opts.Spans,
	}
}

// ExecuteWorkflow builds and runs the described workflow against input. On a
// run failure the returned Result still carries the accumulated steps
// alongside the error; on a validation failure no Result is returned.
func (s *Service) ExecuteWorkflow(ctx context.Context, spec *workflow.Spec, input string) (*Result, error) {
	return s.execute(ctx, spec, input, nil)
}

// ExecuteWorkflowStreaming behaves like ExecuteWorkflow but additionally
// delivers each step to notify as soon as it is recorded. notify is called
// synchronously from the executing goroutine.
func (s *Service) ExecuteWorkflowStreaming(ctx context.Context, spec *workflow.Spec, input string, notify func(workflow.Step)) (*Result, error) {
	return s.execute(ctx, spec, input, notify)
}

func (s *Service) execute(ctx context.Context, spec *workflow.Spec, input string, notify func(workflow.Step)) (*Result, error) {
	log := workflow.NewStepLog()
	if notify != nil {
		log.SetNotify(notify)
	}

	startedAt := time.Now().UTC()

	graph, err := s.builder.Build(spec, log)
	if err != nil {
		return nil, err
	}

	run, runErr := s.runner.Run(ctx, graph, input, log)

	result := &Result{
		Output:     run.Output,
		TraceID:    run.TraceID,
		WorkflowID: spec.Name,
		RunID:      run.RunID,
		Steps:      log.Steps(),
	}

	s.saveHistory(spec, input, run, result, runErr, startedAt)

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

func (s *Service) saveHistory(spec *workflow.Spec, input string, run *engine.RunResult, result *Result, runErr error, startedAt time.Time) {
	rec := &history.RunRecord{
		RunID:     run.RunID,
		Workflow:  spec.Name,
		TraceID:   run.TraceID,
		Input:     input,
		Output:    result.Output,
		Status:    "completed",
		Steps:     result.Steps,
		StartedAt: startedAt,
		EndedAt:   time.Now().UTC(),
	}
	if runErr != nil {
		rec.Status = "failed"
		rec.Error = runErr.Error()
	}

	// History is best effort; a storage failure never fails the run.
	if err := s.history.Save(context.Background(), rec); err != nil {
		s.logger.Warn("Failed to save run history", "run_id", run.RunID, "error", err)
	}
}

// RunAgent runs a one-off agent outside any workflow and returns the response
// plus the trace id of the run. The handle is cached like any workflow agent,
// so repeated calls with the same identity reuse it.
func (s *Service) RunAgent(ctx context.Context, name, instructions string, tools []string, input string) (string, string, error) {
	if instructions == "" {
		instructions = workflow.DefaultInstructions
	}

	handle, err := s.provider.GetOrCreateAgent(name, name, instructions, tools)
	if err != nil {
		return "", "", engine.NewValidationError("agent %q: %v", name, err)
	}

	ctx, span := s.spans.StartExecutorSpan(ctx, name, string(workflow.ExecutorKindAgent))
	traceID := observability.TraceID(ctx)

	out, err := handle.Run(ctx, input)
	s.spans.EndSpanWithError(span, err)

	return out, traceID, err
}

// History exposes the run store for inspection endpoints.
func (s *Service) History() history.Store { return s.history }

// Provider exposes the underlying agent provider.
func (s *Service) Provider() *provider.ModelProvider { return s.provider }
