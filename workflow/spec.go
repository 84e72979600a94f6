package workflow

// ExecutorKind discriminates the two executor variants.
type ExecutorKind string

const (
	// ExecutorKindAgent delegates work to an LLM-backed agent.
	ExecutorKindAgent ExecutorKind = "agent"
	// ExecutorKindFunction invokes a registered local function.
	ExecutorKindFunction ExecutorKind = "function"
)

// EdgeType describes how a message travels between two executors. Only
// EdgeTypeDirect is executable; the remaining kinds are accepted and recorded
// in the step log but carry no transition logic yet.
type EdgeType string

const (
	// EdgeTypeDirect is a plain directed connection.
	EdgeTypeDirect EdgeType = "direct"
	// EdgeTypeConditional carries an optional condition. Not evaluated.
	EdgeTypeConditional EdgeType = "conditional"
	// EdgeTypeFanOut distributes a message to multiple executors. Not executed.
	EdgeTypeFanOut EdgeType = "fan_out"
	// EdgeTypeFanIn combines results from multiple executors. Not executed.
	EdgeTypeFanIn EdgeType = "fan_in"
)

// Type is an informational label for the overall workflow shape. The runner
// always performs sequential fan-out-free traversal regardless of this value.
type Type string

const (
	// TypeSequential executors run one after another.
	TypeSequential Type = "sequential"
	// TypeParallel declares parallel intent (informational).
	TypeParallel Type = "parallel"
	// TypeConditional declares conditional routing intent (informational).
	TypeConditional Type = "conditional"
	// TypeDynamic declares context-adaptive intent (informational).
	TypeDynamic Type = "dynamic"
)

// Condition is a field/operator/value triple attached to conditional edges.
// It is parsed and retained for future routing support but never evaluated.
type Condition struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value" yaml:"value"`
}

// ExecutorSpec declaratively describes one processing node. The Kind field
// selects which variant-specific fields apply; unrelated fields are ignored.
type ExecutorSpec struct {
	Kind ExecutorKind `json:"type" yaml:"type"`
	Name string       `json:"name" yaml:"name"`

	// Agent variant fields.
	AgentName    string   `json:"agent_name,omitempty" yaml:"agent_name,omitempty"`
	AgentID      string   `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	Instructions string   `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Tools        []string `json:"tools,omitempty" yaml:"tools,omitempty"`

	// Function variant fields.
	FunctionName string         `json:"function_name,omitempty" yaml:"function_name,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// DefaultInstructions is applied to agent executors that omit instructions.
const DefaultInstructions = "You are a helpful assistant."

// EffectiveAgentName returns the logical agent name, falling back to the
// executor name.
func (e ExecutorSpec) EffectiveAgentName() string {
	if e.AgentName != "" {
		return e.AgentName
	}
	return e.Name
}

// EffectiveAgentID returns the agent id, falling back to the executor name.
func (e ExecutorSpec) EffectiveAgentID() string {
	if e.AgentID != "" {
		return e.AgentID
	}
	return e.Name
}

// EffectiveInstructions returns the configured instructions or the default.
func (e ExecutorSpec) EffectiveInstructions() string {
	if e.Instructions != "" {
		return e.Instructions
	}
	return DefaultInstructions
}

// EdgeSpec is a directed connection between two named executors.
type EdgeSpec struct {
	From      string     `json:"from_executor" yaml:"from_executor"`
	To        string     `json:"to_executor" yaml:"to_executor"`
	EdgeType  EdgeType   `json:"edge_type" yaml:"edge_type"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Spec is the full declarative graph supplied with each request. It is parsed
// once, validated and consumed by the engine builder, then discarded.
type Spec struct {
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Executors     []ExecutorSpec `json:"executors" yaml:"executors"`
	Edges         []EdgeSpec     `json:"edges,omitempty" yaml:"edges,omitempty"`
	StartExecutor string         `json:"start_executor" yaml:"start_executor"`
	Type          Type           `json:"workflow_type,omitempty" yaml:"workflow_type,omitempty"`
}

// Executor returns the executor spec with the given name, or false when the
// name is unknown.
func (s *Spec) Executor(name string) (ExecutorSpec, bool) {
	for _, e := range s.Executors {
		if e.Name == name {
			return e, true
		}
	}
	return ExecutorSpec{}, false
}
