package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/flowmesh/tool"
)

// Func is a local callable a function executor can dispatch to. It receives
// the upstream node's output as input plus the static parameters declared in
// the workflow description.
type Func func(ctx context.Context, input string, params map[string]any) (string, error)

// FunctionRegistry is the closed set of callables available to function
// executors. It is populated at startup and read-only afterwards from the
// Builder's perspective, but Register is still safe for concurrent use.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewFunctionRegistry creates an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: make(map[string]Func)}
}

// NewDefaultFunctionRegistry creates a registry with the built-in functions.
// workDir is the default working directory for execute_command.
func NewDefaultFunctionRegistry(workDir string) *FunctionRegistry {
	r := NewFunctionRegistry()
	r.Register("execute_command", ExecuteCommandFunc(workDir))
	return r
}

// Register adds a function, replacing any previous one with the same name.
func (r *FunctionRegistry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *FunctionRegistry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the sorted names of all registered functions.
func (r *FunctionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteCommandFunc returns the built-in shell command function. The command
// comes from the "command" parameter when present, otherwise from the node's
// input; "working_directory" overrides the default working directory.
func ExecuteCommandFunc(workDir string) Func {
	return func(ctx context.Context, input string, params map[string]any) (string, error) {
		command := input
		if c, ok := params["command"].(string); ok && c != "" {
			command = c
		}
		if command == "" {
			return "", fmt.Errorf("no command provided")
		}

		dir := workDir
		if wd, ok := params["working_directory"].(string); ok && wd != "" {
			dir = wd
		}

		return tool.RunCommand(ctx, command, dir)
	}
}
