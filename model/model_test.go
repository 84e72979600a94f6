package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("test")
	m.AddResponse("hi", "hello there")

	resp, err := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 1, m.Calls())
}

func TestMockModel_DefaultResponse(t *testing.T) {
	m := NewMockModel("test")

	resp, err := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Text: "anything"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: anything", resp.Text)
}

func TestMockModel_ToolCallsFireOnce(t *testing.T) {
	m := NewMockModel("test")
	m.AddToolCalls("run it", ToolCall{ID: "1", Name: "execute_command", Arguments: `{"command":"ls"}`})
	m.AddResponse("run it", "done")

	first, err := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Text: "run it"}},
	})
	require.NoError(t, err)
	require.Len(t, first.ToolCalls, 1)
	assert.Equal(t, "tool_calls", first.FinishReason)

	second, err := m.Generate(context.Background(), Request{
		Messages: []Message{
			{Role: "user", Text: "run it"},
			{Role: "assistant", ToolCalls: first.ToolCalls},
			{Role: "tool", ToolResults: []ToolResult{{ID: "1", Name: "execute_command", Content: "a.txt"}}},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, second.ToolCalls)
	assert.Equal(t, "done", second.Text)
}

func TestMockModel_Fail(t *testing.T) {
	m := NewMockModel("test")
	m.Fail(errors.New("provider down"))

	_, err := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Text: "hi"}},
	})
	assert.EqualError(t, err, "provider down")
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))

	assert.True(t, IsRateLimitError(errors.New("status 429 from upstream")))
	assert.True(t, IsRateLimitError(errors.New("Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("Rate limit exceeded, retry later")))
}
