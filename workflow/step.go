package workflow

import (
	"sync"
	"time"
)

// StepKind tags one entry in the execution step log.
type StepKind string

const (
	// StepExecutorCreated is emitted once per instantiated executor.
	StepExecutorCreated StepKind = "executor_created"
	// StepEdgeAdded is emitted once per edge inserted into the graph.
	StepEdgeAdded StepKind = "edge_added"
	// StepWorkflowBuilt closes the build phase.
	StepWorkflowBuilt StepKind = "workflow_built"
	// StepExecutionStarted opens the run phase.
	StepExecutionStarted StepKind = "workflow_execution_started"
	// StepExecutorStart is emitted before a node is invoked.
	StepExecutorStart StepKind = "executor_start"
	// StepExecutorSuccess is emitted after a node produced output.
	StepExecutorSuccess StepKind = "executor_success"
	// StepExecutorError is emitted when a node invocation failed.
	StepExecutorError StepKind = "executor_error"
	// StepExecutionCompleted closes a successful run.
	StepExecutionCompleted StepKind = "workflow_execution_completed"
	// StepExecutionFailed closes a failed or cancelled run.
	StepExecutionFailed StepKind = "workflow_execution_failed"
)

// Step is one structured, ordered entry describing a build or run event.
// Event-specific fields are populated depending on Kind; absent fields are
// omitted from serialized output.
type Step struct {
	Kind         StepKind     `json:"step"`
	Timestamp    time.Time    `json:"timestamp"`
	Executor     string       `json:"executor,omitempty"`
	ExecutorKind ExecutorKind `json:"executor_type,omitempty"`
	From         string       `json:"from,omitempty"`
	To           string       `json:"to,omitempty"`
	EdgeType     EdgeType     `json:"edge_type,omitempty"`
	Status       string       `json:"status,omitempty"`
	InputLength  int          `json:"input_length,omitempty"`
	OutputLength int          `json:"output_length,omitempty"`
	Error        string       `json:"error,omitempty"`
	ErrorKind    string       `json:"error_type,omitempty"`
}

// StepLog is the append-only ordered sequence of Steps for a single build and
// run. It is owned by one execution but guarded by a mutex so an optional
// notify sink (used for streaming delivery) can be flushed safely while the
// run goroutine keeps appending.
type StepLog struct {
	mu     sync.Mutex
	steps  []Step
	notify func(Step)
}

// NewStepLog constructs an empty log.
func NewStepLog() *StepLog { return &StepLog{} }

// SetNotify installs a sink invoked synchronously for every appended step.
// Must be set before the log is shared with a builder or runner.
func (l *StepLog) SetNotify(fn func(Step)) { l.notify = fn }

// Append stamps the step with the current UTC time and records it.
func (l *StepLog) Append(s Step) {
	s.Timestamp = time.Now().UTC()
	l.mu.Lock()
	l.steps = append(l.steps, s)
	notify := l.notify
	l.mu.Unlock()
	if notify != nil {
		notify(s)
	}
}

// Steps returns a copy of the recorded steps in append order.
func (l *StepLog) Steps() []Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Step, len(l.steps))
	copy(out, l.steps)
	return out
}

// Len returns the number of recorded steps.
func (l *StepLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.steps)
}

// Kinds returns just the ordered step kinds. Convenience for assertions and
// compact logging.
func (l *StepLog) Kinds() []StepKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]StepKind, len(l.steps))
	for i, s := range l.steps {
		out[i] = s.Kind
	}
	return out
}
