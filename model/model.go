package model

import (
	"context"
	"fmt"
	"strings"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolResult carries the outcome of a previously requested tool call back to
// the model on the next turn.
type ToolResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Message is one turn of the conversation replayed to the provider.
// Role is "user", "assistant" or "tool"; ToolCalls is populated on assistant
// turns that requested functions, ToolResults on tool turns answering them.
type Message struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Request captures the normalized model input produced by agent handles.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion returned by a provider.
type Response struct {
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// IsRateLimitError reports whether a provider error looks like a quota /
// rate-limit rejection. Providers do not share a structured error shape, so
// the check matches the signals vendors put in their error text.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(strings.ToLower(msg), "rate limit")
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Canned completions are keyed by the text of the last user message; scripted
// tool calls fire once per registered prompt before the final completion.
type MockModel struct {
	info      Info
	responses map[string]string
	toolCalls map[string][]ToolCall
	err       error
	calls     int
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: make(map[string]string),
		toolCalls: make(map[string][]ToolCall),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// AddToolCalls registers tool calls emitted on the first turn for a prompt.
func (m *MockModel) AddToolCalls(prompt string, calls ...ToolCall) {
	m.toolCalls[prompt] = calls
}

// Fail makes every subsequent Generate call return err.
func (m *MockModel) Fail(err error) { m.err = err }

// Calls returns how many times Generate has been invoked.
func (m *MockModel) Calls() int { return m.calls }

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	var prompt string
	sawToolResult := false
	for _, msg := range req.Messages {
		if msg.Role == "user" && msg.Text != "" {
			prompt = msg.Text
		}
		if len(msg.ToolResults) > 0 {
			sawToolResult = true
		}
	}

	if calls, ok := m.toolCalls[prompt]; ok && !sawToolResult {
		return &Response{ToolCalls: calls, FinishReason: "tool_calls"}, nil
	}

	full := m.responses[prompt]
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", prompt)
	}
	return &Response{Text: full, FinishReason: "stop"}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
