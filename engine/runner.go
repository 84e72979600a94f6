package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/observability"
	"github.com/hupe1980/flowmesh/workflow"
)

// DefaultMaxSteps bounds executor invocations within one run. Cycles are not
// rejected at build time, so the budget keeps a self-loop from running forever.
const DefaultMaxSteps = 1000

// RunResult carries the outcome of one workflow run. Output is empty when the
// run failed; the step log still holds everything that happened up to the
// failure.
type RunResult struct {
	Output  string
	RunID   string
	TraceID string
}

// Runner executes built graphs. A single Runner serves all requests; each Run
// call owns its graph and step log exclusively.
type Runner struct {
	logger   logging.Logger
	spans    observability.SpanManager
	maxSteps int
}

// RunnerOptions configure a Runner.
type RunnerOptions struct {
	// Logger receives run activity.
	Logger logging.Logger

	// Spans traces runs and executor invocations.
	Spans observability.SpanManager

	// MaxSteps bounds executor invocations per run.
	MaxSteps int
}

// NewRunner creates a Runner.
func NewRunner(optFns ...func(o *RunnerOptions)) *Runner {
	opts := RunnerOptions{
		Logger:   logging.NoOpLogger{},
		Spans:    observability.NoopSpanManager{},
		MaxSteps: DefaultMaxSteps,
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
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}

	return &Runner{
		logger:   opts.Logger,
		spans:    opts.Spans,
		maxSteps: opts.MaxSteps,
	}
}

// Run drives the graph from its start executor to completion. Each node's
// output becomes the input of every Direct-edge successor, visited depth
// first in edge insertion order. A node with no successors is terminal; when
// several terminals exist, the last one executed provides the result.
//
// Any executor failure aborts the whole run. Cancellation takes effect at the
// next node boundary; the in-flight executor call is never preempted, and the
// accumulated steps remain in log.
func (r *Runner) Run(ctx context.Context, g *Graph, input string, log *workflow.StepLog) (*RunResult, error) {
	runID := uuid.NewString()

	ctx, span := r.spans.StartWorkflowSpan(ctx, g.Name(), runID)

	result := &RunResult{
		RunID:   runID,
		TraceID: observability.TraceID(ctx),
	}

	log.Append(workflow.Step{
		Kind:        workflow.StepExecutionStarted,
		InputLength: len(input),
	})

	start := time.Now()

	state := &runState{
		runner: r,
		graph:  g,
		log:    log,
		budget: r.maxSteps,
	}

	err := state.visit(ctx, g.Start(), input)
	if err != nil {
		log.Append(workflow.Step{
			Kind:      workflow.StepExecutionFailed,
			Error:     err.Error(),
			ErrorKind: errorKind(err),
		})
		r.spans.EndSpanWithError(span, err)
		r.logger.Error("Workflow execution failed", "workflow", g.Name(), "run_id", runID, "duration", time.Since(start), "error", err)

		return result, err
	}

	result.Output = state.output

	log.Append(workflow.Step{
		Kind:         workflow.StepExecutionCompleted,
		Status:       "success",
		OutputLength: len(state.output),
	})
	r.spans.EndSpanWithError(span, nil)
	r.logger.Info("Workflow execution completed", "workflow", g.Name(), "run_id", runID, "duration", time.Since(start), "steps", log.Len())

	return result, nil
}

// runState is the per-run traversal state. It is confined to one goroutine.
type runState struct {
	runner *Runner
	graph  *Graph
	log    *workflow.StepLog
	budget int
	output string
}

func (s *runState) visit(ctx context.Context, name, input string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.budget <= 0 {
		return fmt.Errorf("step budget exhausted after %d executor invocations", s.runner.maxSteps)
	}
	s.budget--

	exec, ok := s.graph.Executor(name)
	if !ok {
		return fmt.Errorf("graph has no executor %q", name)
	}

	s.log.Append(workflow.Step{
		Kind:         workflow.StepExecutorStart,
		Executor:     name,
		ExecutorKind: exec.Kind(),
		InputLength:  len(input),
	})

	ectx, span := s.runner.spans.StartExecutorSpan(ctx, name, string(exec.Kind()))
	nodeStart := time.Now()

	out, err := exec.Invoke(ectx, input)

	s.runner.spans.EndSpanWithError(span, err)
	if l, ok := s.runner.logger.(interface {
		LogExecutorRun(string, string, time.Duration, bool, error)
	}); ok {
		l.LogExecutorRun(name, string(exec.Kind()), time.Since(nodeStart), err == nil, err)
	}

	if err != nil {
		s.log.Append(workflow.Step{
			Kind:         workflow.StepExecutorError,
			Executor:     name,
			ExecutorKind: exec.Kind(),
			Error:        err.Error(),
			ErrorKind:    errorKind(err),
		})
		return err
	}

	s.log.Append(workflow.Step{
		Kind:         workflow.StepExecutorSuccess,
		Executor:     name,
		ExecutorKind: exec.Kind(),
		Status:       "success",
		OutputLength: len(out),
	})

	next := s.graph.Downstream(name)
	if len(next) == 0 {
		s.output = out
		return nil
	}

	for _, succ := range next {
		if err := s.visit(ctx, succ, out); err != nil {
			return err
		}
	}

	return nil
}

// errorKind maps an error to the short type tag recorded in the step log.
func errorKind(err error) string {
	var (
		vErr *ValidationError
		aErr *AgentInvocationError
		fErr *FunctionExecutionError
	)

	switch {
	case errors.As(err, &vErr):
		return "ValidationError"
	case errors.As(err, &aErr):
		return "AgentInvocationError"
	case errors.As(err, &fErr):
		return "FunctionExecutionError"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "DeadlineExceeded"
	}

	kind := fmt.Sprintf("%T", err)
	if i := strings.LastIndex(kind, "."); i >= 0 {
		kind = kind[i+1:]
	}
	return strings.TrimPrefix(kind, "*")
}
