package engine

import "github.com/hupe1980/flowmesh/workflow"

// Graph is the executable form of a workflow description: live executors plus
// the Direct-edge adjacency in insertion order. A Graph is owned by exactly
// one run and never shared or reused across requests.
type Graph struct {
	spec      *workflow.Spec
	executors map[string]Executor
	adjacency map[string][]string
	start     string
}

// Name returns the workflow name.
func (g *Graph) Name() string { return g.spec.Name }

// Start returns the name of the start executor.
func (g *Graph) Start() string { return g.start }

// Spec returns the description this graph was built from.
func (g *Graph) Spec() *workflow.Spec { return g.spec }

// Executor returns the live executor registered under name.
func (g *Graph) Executor(name string) (Executor, bool) {
	e, ok := g.executors[name]
	return e, ok
}

// Executors returns how many nodes the graph holds.
func (g *Graph) Executors() int { return len(g.executors) }

// Downstream returns the Direct-edge successors of name in insertion order.
func (g *Graph) Downstream(name string) []string {
	return g.adjacency[name]
}
