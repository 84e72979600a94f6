package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMermaid_Nodes(t *testing.T) {
	spec := &Spec{
		Name: "demo",
		Executors: []ExecutorSpec{
			{Kind: ExecutorKindAgent, Name: "writer", Tools: []string{"execute_command"}},
			{Kind: ExecutorKindFunction, Name: "run step", FunctionName: "execute_command"},
		},
		Edges: []EdgeSpec{
			{From: "writer", To: "run step", EdgeType: EdgeTypeDirect},
		},
		StartExecutor: "writer",
	}

	out := Mermaid(spec)

	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Contains(t, out, "🤖 writer")
	assert.Contains(t, out, "⚙️ run step")
	assert.Contains(t, out, "execute_command")
	// Names with spaces are sanitized into node identifiers.
	assert.Contains(t, out, "writer --> run_step")
}

func TestMermaid_EdgeArrows(t *testing.T) {
	spec := &Spec{
		Name: "demo",
		Executors: []ExecutorSpec{
			{Kind: ExecutorKindAgent, Name: "a"},
			{Kind: ExecutorKindAgent, Name: "b"},
			{Kind: ExecutorKindAgent, Name: "c"},
		},
		Edges: []EdgeSpec{
			{From: "a", To: "b", EdgeType: EdgeTypeConditional, Condition: &Condition{Field: "score", Operator: ">", Value: 5}},
			{From: "b", To: "c", EdgeType: EdgeTypeFanOut},
		},
		StartExecutor: "a",
	}

	out := Mermaid(spec)

	assert.Contains(t, out, "-.->")
	assert.Contains(t, out, "|score > 5|")
	assert.Contains(t, out, "b ==> c")
}

func TestMermaid_ToolListTruncated(t *testing.T) {
	spec := &Spec{
		Name: "demo",
		Executors: []ExecutorSpec{
			{Kind: ExecutorKindAgent, Name: "a", Tools: []string{"t1", "t2", "t3", "t4"}},
		},
		StartExecutor: "a",
	}

	out := Mermaid(spec)

	assert.Contains(t, out, "t1, t2, t3...")
	assert.NotContains(t, out, "t4")
}

func TestMermaidHTML(t *testing.T) {
	spec := &Spec{
		Name:          "demo",
		Description:   "two step chain",
		Executors:     []ExecutorSpec{{Kind: ExecutorKindAgent, Name: "a"}},
		StartExecutor: "a",
	}

	out := MermaidHTML(spec)

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "class=\"mermaid\"")
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "two step chain")
}
