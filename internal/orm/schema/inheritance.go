package schema

import (
	"fmt"
	"sort"
)

// InheritanceGraph represents base-type edges between structural types
type InheritanceGraph struct {
	nodes map[string]*StructuralType
	edges map[string][]string // type -> base type
}

// NewInheritanceGraph creates a graph over types. baseOf returns the
// qualified name of a node's base type, or "" when it has none or the base
// lies outside the graph.
func NewInheritanceGraph(types map[string]*StructuralType, baseOf func(*StructuralType) string) *InheritanceGraph {
	graph := &InheritanceGraph{
		nodes: types,
		edges: make(map[string][]string),
	}

	for name, t := range types {
		base := baseOf(t)
		if base == "" {
			continue
		}
		if _, ok := types[base]; ok {
			graph.edges[name] = append(graph.edges[name], base)
		}
	}

	return graph
}

// sortedNodes returns node names in a stable order
func (g *InheritanceGraph) sortedNodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectCycles detects circular base-type chains
func (g *InheritanceGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	var dfs func(node string, path []string) bool
	dfs = func(node string, path []string) bool {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				if dfs(neighbor, path) {
					return true
				}
			} else if recursionStack[neighbor] {
				cycleStart := -1
				for i, n := range path {
					if n == neighbor {
						cycleStart = i
						break
					}
				}
				if cycleStart >= 0 {
					cycle := make([]string, len(path)-cycleStart)
					copy(cycle, path[cycleStart:])
					cycles = append(cycles, cycle)
				}
				return true
			}
		}

		recursionStack[node] = false
		return false
	}

	for _, node := range g.sortedNodes() {
		if !visited[node] {
			dfs(node, []string{})
		}
	}

	return cycles
}

// TopologicalSort returns types with every base type before its subtypes
func (g *InheritanceGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int)
	for node := range g.nodes {
		outDegree[node] = len(g.edges[node])
	}

	reverseEdges := make(map[string][]string)
	for _, source := range g.sortedNodes() {
		for _, target := range g.edges[source] {
			reverseEdges[target] = append(reverseEdges[target], source)
		}
	}

	queue := []string{}
	for _, node := range g.sortedNodes() {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := []string{}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range reverseEdges[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		cycles := g.DetectCycles()
		if len(cycles) > 0 {
			return nil, &UnresolvedTypeReferenceError{Cycles: cycles}
		}
		return nil, fmt.Errorf("%w: unable to order types", ErrInheritanceCycle)
	}

	return result, nil
}

// GetSubtypes returns the nodes whose base type is the given node
func (g *InheritanceGraph) GetSubtypes(name string) []string {
	subtypes := []string{}
	for _, node := range g.sortedNodes() {
		for _, base := range g.edges[node] {
			if base == name {
				subtypes = append(subtypes, node)
				break
			}
		}
	}
	return subtypes
}

// Depth returns the number of base types above name within the graph
func (g *InheritanceGraph) Depth(name string) int {
	depth := 0
	seen := map[string]bool{name: true}
	for {
		bases := g.edges[name]
		if len(bases) == 0 || seen[bases[0]] {
			return depth
		}
		name = bases[0]
		seen[name] = true
		depth++
	}
}
