package engine

import "fmt"

// ValidationError reports a malformed or inconsistent workflow description.
// It is raised by the Builder before any executor runs.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AgentInvocationError reports the failure of a single agent executor during
// a run. It wraps whatever the provider raised.
type AgentInvocationError struct {
	Executor string
	Err      error
}

func (e *AgentInvocationError) Error() string {
	return fmt.Sprintf("agent executor %q failed: %v", e.Executor, e.Err)
}

func (e *AgentInvocationError) Unwrap() error { return e.Err }

// FunctionExecutionError reports the failure of a single function executor
// during a run.
type FunctionExecutionError struct {
	Executor string
	Function string
	Err      error
}

func (e *FunctionExecutionError) Error() string {
	return fmt.Sprintf("function executor %q (%s) failed: %v", e.Executor, e.Function, e.Err)
}

func (e *FunctionExecutionError) Unwrap() error { return e.Err }
