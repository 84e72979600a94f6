package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/flowmesh/model"
	"github.com/hupe1980/flowmesh/tool"
)

// DefaultMaxToolTurns bounds the tool calling loop within a single Run.
const DefaultMaxToolTurns = 10

// Handle is a runnable agent: a fixed identity (name, id, instructions) bound
// to a model and a resolved set of tools. Handles are created by a Provider
// and shared between workflow runs, so Run must be safe for concurrent use.
type Handle struct {
	provider     *ModelProvider
	name         string
	id           string
	instructions string
	tools        []tool.Tool
	toolDefs     []model.ToolDefinition
}

func newHandle(p *ModelProvider, name, id, instructions string, tools []tool.Tool) *Handle {
	defs := make([]model.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}

	return &Handle{
		provider:     p,
		name:         name,
		id:           id,
		instructions: instructions,
		tools:        tools,
		toolDefs:     defs,
	}
}

// Name returns the agent name.
func (h *Handle) Name() string { return h.name }

// ID returns the agent id.
func (h *Handle) ID() string { return h.id }

// Instructions returns the system instructions this handle was created with.
func (h *Handle) Instructions() string { return h.instructions }

// Run sends the input to the model and drives the tool calling loop until the
// model produces a final text answer or the turn budget is exhausted.
func (h *Handle) Run(ctx context.Context, input string) (string, error) {
	messages := []model.Message{{Role: "user", Text: input}}

	for turn := 0; turn < h.provider.maxToolTurns(); turn++ {
		resp, err := h.generate(ctx, messages)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}

		messages = append(messages, model.Message{
			Role:      "assistant",
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		results := make([]model.ToolResult, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			results = append(results, h.callTool(ctx, tc))
		}

		messages = append(messages, model.Message{Role: "tool", ToolResults: results})
	}

	return "", fmt.Errorf("agent %q: tool calling did not converge within %d turns", h.name, h.provider.maxToolTurns())
}

// generate issues one model call through the shared rate limiter. Rate limit
// rejections are reported back so subsequent calls slow down.
func (h *Handle) generate(ctx context.Context, messages []model.Message) (*model.Response, error) {
	if h.provider.limiter != nil {
		if err := h.provider.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := h.provider.model.Generate(ctx, model.Request{
		Instructions: h.instructions,
		Messages:     messages,
		Tools:        h.toolDefs,
	})

	tokens := 0
	if resp != nil && resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	if l, ok := h.provider.logger.(interface {
		LogModelCall(string, int, time.Duration, bool, error)
	}); ok {
		l.LogModelCall(h.provider.model.Info().Name, tokens, time.Since(start), err == nil, err)
	}

	if err != nil {
		if model.IsRateLimitError(err) && h.provider.limiter != nil {
			h.provider.limiter.RecordError()
		}
		return nil, fmt.Errorf("agent %q: %w", h.name, err)
	}

	return resp, nil
}

// callTool executes a single requested tool call, converting any failure into
// a result string so the model can react instead of aborting the whole run.
func (h *Handle) callTool(ctx context.Context, tc model.ToolCall) model.ToolResult {
	result := model.ToolResult{ID: tc.ID, Name: tc.Name}

	var target tool.Tool
	for _, t := range h.tools {
		if t.Name() == tc.Name {
			target = t
			break
		}
	}
	if target == nil {
		result.Content = fmt.Sprintf("Error: unknown tool %q", tc.Name)
		return result
	}

	args := map[string]any{}
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			result.Content = fmt.Sprintf("Error: invalid tool arguments: %v", err)
			return result
		}
	}

	out, err := target.Call(ctx, args)
	if err != nil {
		result.Content = fmt.Sprintf("Error: %v", err)
		return result
	}

	switch v := out.(type) {
	case string:
		result.Content = v
	default:
		if b, err := json.Marshal(v); err == nil {
			result.Content = string(b)
		} else {
			result.Content = fmt.Sprintf("%v", v)
		}
	}

	return result
}

func (p *ModelProvider) maxToolTurns() int {
	if p.maxTurns > 0 {
		return p.maxTurns
	}
	return DefaultMaxToolTurns
}
