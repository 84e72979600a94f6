package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowmesh/model"
	"github.com/hupe1980/flowmesh/ratelimit"
	"github.com/hupe1980/flowmesh/tool"
)

func newTestRegistry() *tool.Registry {
	r := tool.NewRegistry()
	r.Register(tool.NewFunctionTool("shout", "uppercases text", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}, func(_ context.Context, args map[string]any) (any, error) {
		text, _ := args["text"].(string)
		return text + "!", nil
	}))
	return r
}

func TestModelProvider_CacheIdentity(t *testing.T) {
	p := NewModelProvider(model.NewMockModel("test"), func(o *Options) {
		o.Tools = newTestRegistry()
	})

	h1, err := p.GetOrCreateAgent("writer", "w1", "Write.", []string{"shout"})
	require.NoError(t, err)

	h2, err := p.GetOrCreateAgent("writer", "w1", "Write.", []string{"shout"})
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, p.CachedAgents())
}

func TestModelProvider_CacheKeyCoversAllFields(t *testing.T) {
	p := NewModelProvider(model.NewMockModel("test"), func(o *Options) {
		o.Tools = newTestRegistry()
	})

	base, err := p.GetOrCreateAgent("writer", "w1", "Write.", nil)
	require.NoError(t, err)

	otherID, err := p.GetOrCreateAgent("writer", "w2", "Write.", nil)
	require.NoError(t, err)
	assert.NotSame(t, base, otherID)

	otherInstructions, err := p.GetOrCreateAgent("writer", "w1", "Summarize.", nil)
	require.NoError(t, err)
	assert.NotSame(t, base, otherInstructions)

	otherTools, err := p.GetOrCreateAgent("writer", "w1", "Write.", []string{"shout"})
	require.NoError(t, err)
	assert.NotSame(t, base, otherTools)

	assert.Equal(t, 4, p.CachedAgents())
}

func TestModelProvider_ToolOrderInsensitiveKey(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(tool.NewFunctionTool("echo", "echoes", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) { return "", nil }))

	p := NewModelProvider(model.NewMockModel("test"), func(o *Options) {
		o.Tools = reg
	})

	h1, err := p.GetOrCreateAgent("a", "a", "x", []string{"shout", "echo"})
	require.NoError(t, err)
	h2, err := p.GetOrCreateAgent("a", "a", "x", []string{"echo", "shout"})
	require.NoError(t, err)

	assert.Same(t, h1, h2)
}

func TestModelProvider_UnknownTool(t *testing.T) {
	p := NewModelProvider(model.NewMockModel("test"))

	_, err := p.GetOrCreateAgent("writer", "w1", "Write.", []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tool "nope"`)
}

func TestHandle_Run(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddResponse("hi", "hello back")

	p := NewModelProvider(m)

	h, err := p.GetOrCreateAgent("greeter", "g1", "Greet.", nil)
	require.NoError(t, err)

	out, err := h.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello back", out)
}

func TestHandle_RunToolLoop(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddToolCalls("shout hi", model.ToolCall{ID: "1", Name: "shout", Arguments: `{"text":"hi"}`})
	m.AddResponse("shout hi", "the tool said hi!")

	p := NewModelProvider(m, func(o *Options) {
		o.Tools = newTestRegistry()
	})

	h, err := p.GetOrCreateAgent("shouter", "s1", "Use the tool.", []string{"shout"})
	require.NoError(t, err)

	out, err := h.Run(context.Background(), "shout hi")
	require.NoError(t, err)
	assert.Equal(t, "the tool said hi!", out)
	assert.Equal(t, 2, m.Calls())
}

func TestHandle_RunRecordsRateLimitError(t *testing.T) {
	m := model.NewMockModel("test")
	m.Fail(errors.New("429 Too Many Requests"))

	limiter := ratelimit.New(func(o *ratelimit.Options) {
		o.MinInterval = time.Millisecond
	})

	p := NewModelProvider(m, func(o *Options) {
		o.Limiter = limiter
	})

	h, err := p.GetOrCreateAgent("writer", "w1", "Write.", nil)
	require.NoError(t, err)

	_, err = h.Run(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 1, limiter.RecentErrors())
}

func TestHandle_Accessors(t *testing.T) {
	p := NewModelProvider(model.NewMockModel("test"))

	h, err := p.GetOrCreateAgent("writer", "w1", "Write things.", nil)
	require.NoError(t, err)

	assert.Equal(t, "writer", h.Name())
	assert.Equal(t, "w1", h.ID())
	assert.Equal(t, "Write things.", h.Instructions())
}
