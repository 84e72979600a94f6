package tool

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandTimeout bounds how long a single shell command may run.
const CommandTimeout = 5 * time.Minute

// RunCommand executes a shell command through `sh -c` in the given working
// directory (empty dir means the process working directory). It always returns
// a human-readable transcript: combined stdout/stderr on success, a formatted
// failure message on non-zero exit, and a timeout notice when the deadline is
// exceeded. The error return is reserved for failures to start the process.
func RunCommand(ctx context.Context, command, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	stdout := &strings.Builder{}
	stderr := &strings.Builder{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return "Command timed out after 5 minutes", nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Sprintf("Command failed (exit code %d):\n%s\n%s",
				exitErr.ExitCode(), stdout.String(), stderr.String()), nil
		}
		return "", fmt.Errorf("failed to run command: %w", err)
	}

	out := stdout.String()
	if stderr.Len() > 0 {
		out += stderr.String()
	}
	return out, nil
}

// NewCommandTool returns a tool that lets agents run shell commands. The
// working directory defaults to workDir when the model omits one.
func NewCommandTool(workDir string) *FunctionTool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"working_directory": map[string]any{
				"type":        "string",
				"description": "Directory to run the command in (optional)",
			},
		},
		"required": []string{"command"},
	}

	return NewFunctionTool(
		"execute_command",
		"Execute a shell command and return its output. Use for running builds, tests, file inspection and other local operations.",
		schema,
		func(ctx context.Context, args map[string]any) (any, error) {
			command, _ := args["command"].(string)
			if strings.TrimSpace(command) == "" {
				return nil, NewToolError("execute_command", "command must not be empty", "VALIDATION_ERROR")
			}

			dir := workDir
			if wd, ok := args["working_directory"].(string); ok && wd != "" {
				dir = wd
			}

			out, err := RunCommand(ctx, command, dir)
			if err != nil {
				return nil, NewToolError("execute_command", err.Error(), "EXECUTION_ERROR")
			}
			return out, nil
		},
	)
}
