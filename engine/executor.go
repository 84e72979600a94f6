package engine

import (
	"context"

	"github.com/hupe1980/flowmesh/provider"
	"github.com/hupe1980/flowmesh/workflow"
)

// Executor is one live node of an executable graph. The two variants are
// AgentExecutor and FunctionExecutor; the set is closed.
type Executor interface {
	// Name returns the node's unique name within the workflow.
	Name() string

	// Kind reports whether this node is agent or function backed.
	Kind() workflow.ExecutorKind

	// Invoke processes the input text and returns the node's output text.
	Invoke(ctx context.Context, input string) (string, error)
}

// AgentExecutor delegates its input to an LLM agent handle.
type AgentExecutor struct {
	name   string
	handle *provider.Handle
}

// NewAgentExecutor wraps an agent handle as a graph node.
func NewAgentExecutor(name string, handle *provider.Handle) *AgentExecutor {
	return &AgentExecutor{name: name, handle: handle}
}

// Name returns the node name.
func (e *AgentExecutor) Name() string { return e.name }

// Kind returns workflow.ExecutorKindAgent.
func (e *AgentExecutor) Kind() workflow.ExecutorKind { return workflow.ExecutorKindAgent }

// Handle exposes the underlying agent handle.
func (e *AgentExecutor) Handle() *provider.Handle { return e.handle }

// Invoke runs the agent against the input. Provider failures are wrapped as
// AgentInvocationError; there is no local retry.
func (e *AgentExecutor) Invoke(ctx context.Context, input string) (string, error) {
	out, err := e.handle.Run(ctx, input)
	if err != nil {
		return "", &AgentInvocationError{Executor: e.name, Err: err}
	}
	return out, nil
}

// FunctionExecutor dispatches its input to a registered local function with
// the static parameters from the workflow description.
type FunctionExecutor struct {
	name     string
	function string
	fn       Func
	params   map[string]any
}

// NewFunctionExecutor wraps a registry function as a graph node.
func NewFunctionExecutor(name, function string, fn Func, params map[string]any) *FunctionExecutor {
	return &FunctionExecutor{name: name, function: function, fn: fn, params: params}
}

// Name returns the node name.
func (e *FunctionExecutor) Name() string { return e.name }

// Kind returns workflow.ExecutorKindFunction.
func (e *FunctionExecutor) Kind() workflow.ExecutorKind { return workflow.ExecutorKindFunction }

// Invoke calls the function. Failures are wrapped as FunctionExecutionError.
func (e *FunctionExecutor) Invoke(ctx context.Context, input string) (string, error) {
	out, err := e.fn(ctx, input, e.params)
	if err != nil {
		return "", &FunctionExecutionError{Executor: e.name, Function: e.function, Err: err}
	}
	return out, nil
}
