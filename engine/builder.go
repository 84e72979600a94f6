package engine

import (
	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/provider"
	"github.com/hupe1980/flowmesh/workflow"
)

// Builder validates workflow descriptions and materializes them into
// executable graphs. A single Builder serves all requests; per-run state
// lives in the Graph and StepLog it produces.
type Builder struct {
	provider  provider.Provider
	functions *FunctionRegistry
	logger    logging.Logger
}

// BuilderOptions configure a Builder.
type BuilderOptions struct {
	// Functions is the registry function executors resolve against.
	Functions *FunctionRegistry

	// Logger receives build activity.
	Logger logging.Logger
}

// NewBuilder creates a Builder using the given agent provider.
func NewBuilder(p provider.Provider, optFns ...func(o *BuilderOptions)) *Builder {
	opts := BuilderOptions{
		Functions: NewFunctionRegistry(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Functions == nil {
		opts.Functions = NewFunctionRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Builder{
		provider:  p,
		functions: opts.Functions,
		logger:    opts.Logger,
	}
}

// Build validates spec and constructs the executable graph, appending
// executor_created, edge_added and workflow_built steps to log. Validation
// failures return a *ValidationError and no graph.
func (b *Builder) Build(spec *workflow.Spec, log *workflow.StepLog) (*Graph, error) {
	if err := b.validate(spec); err != nil {
		return nil, err
	}

	g := &Graph{
		spec:      spec,
		executors: make(map[string]Executor, len(spec.Executors)),
		adjacency: make(map[string][]string),
		start:     spec.StartExecutor,
	}

	for i := range spec.Executors {
		es := &spec.Executors[i]

		exec, err := b.instantiate(es)
		if err != nil {
			return nil, err
		}

		g.executors[es.Name] = exec
		log.Append(workflow.Step{
			Kind:         workflow.StepExecutorCreated,
			Executor:     es.Name,
			ExecutorKind: es.Kind,
		})
	}

	for _, edge := range spec.Edges {
		// Only Direct edges become executable transitions. Other edge kinds
		// are recorded in the log but never evaluated by the runner.
		if edge.EdgeType == workflow.EdgeTypeDirect {
			g.adjacency[edge.From] = append(g.adjacency[edge.From], edge.To)
		}

		log.Append(workflow.Step{
			Kind:     workflow.StepEdgeAdded,
			From:     edge.From,
			To:       edge.To,
			EdgeType: edge.EdgeType,
		})
	}

	log.Append(workflow.Step{
		Kind:   workflow.StepWorkflowBuilt,
		Status: "success",
	})

	b.logger.Info("Workflow built", "workflow", spec.Name, "executors", len(spec.Executors), "edges", len(spec.Edges))

	return g, nil
}

// validate checks the description's structural invariants before anything is
// instantiated, so failures leave no partial graph behind.
func (b *Builder) validate(spec *workflow.Spec) error {
	if spec.Name == "" {
		return NewValidationError("workflow name must not be empty")
	}
	if len(spec.Executors) == 0 {
		return NewValidationError("workflow has no executors")
	}

	names := make(map[string]struct{}, len(spec.Executors))
	for _, es := range spec.Executors {
		if es.Name == "" {
			return NewValidationError("executor name must not be empty")
		}
		if _, dup := names[es.Name]; dup {
			return NewValidationError("duplicate executor name %q", es.Name)
		}
		names[es.Name] = struct{}{}

		switch es.Kind {
		case workflow.ExecutorKindAgent:
		case workflow.ExecutorKindFunction:
			if es.FunctionName == "" {
				return NewValidationError("executor %q: function_name must not be empty", es.Name)
			}
			if _, ok := b.functions.Lookup(es.FunctionName); !ok {
				return NewValidationError("executor %q: unknown function %q", es.Name, es.FunctionName)
			}
		default:
			return NewValidationError("executor %q: unknown kind %q", es.Name, es.Kind)
		}
	}

	if spec.StartExecutor == "" {
		return NewValidationError("start_executor must not be empty")
	}
	if _, ok := names[spec.StartExecutor]; !ok {
		return NewValidationError("start_executor %q does not match any executor", spec.StartExecutor)
	}

	for _, edge := range spec.Edges {
		if _, ok := names[edge.From]; !ok {
			return NewValidationError("edge references unknown executor %q", edge.From)
		}
		if _, ok := names[edge.To]; !ok {
			return NewValidationError("edge references unknown executor %q", edge.To)
		}
	}

	return nil
}

// instantiate turns one executor description into a live node. Agent handles
// are cached by the provider, so identical configurations share one handle.
func (b *Builder) instantiate(es *workflow.ExecutorSpec) (Executor, error) {
	switch es.Kind {
	case workflow.ExecutorKindAgent:
		handle, err := b.provider.GetOrCreateAgent(
			es.EffectiveAgentName(),
			es.EffectiveAgentID(),
			es.EffectiveInstructions(),
			es.Tools,
		)
		if err != nil {
			// Unknown tool names are a hard validation error, not a
			// warn-and-drop.
			return nil, NewValidationError("executor %q: %v", es.Name, err)
		}
		return NewAgentExecutor(es.Name, handle), nil

	case workflow.ExecutorKindFunction:
		fn, ok := b.functions.Lookup(es.FunctionName)
		if !ok {
			return nil, NewValidationError("executor %q: unknown function %q", es.Name, es.FunctionName)
		}
		return NewFunctionExecutor(es.Name, es.FunctionName, fn, es.Parameters), nil

	default:
		return nil, NewValidationError("executor %q: unknown kind %q", es.Name, es.Kind)
	}
}
