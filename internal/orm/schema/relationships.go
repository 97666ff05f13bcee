package schema

import (
	"fmt"
	"strings"
)

// RelationshipGraph is the dependency graph induced by many-to-one relations.
// An entity depends on every entity it references.
type RelationshipGraph struct {
	nodes []string
	edges map[string][]string // entity -> dependencies
}

// NewRelationshipGraph builds the graph for a registry
func NewRelationshipGraph(reg *Registry) *RelationshipGraph {
	graph := &RelationshipGraph{
		nodes: reg.Names(),
		edges: make(map[string][]string),
	}

	for _, name := range graph.nodes {
		for _, rel := range reg.entities[name].relations {
			// Self references are satisfied by a nullable column and do not order tables
			if rel.Cardinality != CardinalityOne || rel.Target == name {
				continue
			}
			if !contains(graph.edges[name], rel.Target) {
				graph.edges[name] = append(graph.edges[name], rel.Target)
			}
		}
	}

	return graph
}

// DetectCycles detects circular dependencies in the graph
func (g *RelationshipGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				dfs(neighbor, path)
			} else if onStack[neighbor] {
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		onStack[node] = false
	}

	for _, node := range g.nodes {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

// TopologicalSort returns entities with dependencies first. Ties keep
// registration order.
func (g *RelationshipGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string)
	for _, node := range g.nodes {
		outDegree[node] = len(g.edges[node])
		for _, dep := range g.edges[node] {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range dependents[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		if cycles := g.DetectCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("circular dependency detected:\n%s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular dependency detected")
	}

	return result, nil
}

// Dependencies returns the direct dependencies of an entity
func (g *RelationshipGraph) Dependencies(entity string) []string {
	deps := g.edges[entity]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  Cycle %d: %s -> %s", i+1, strings.Join(cycle, " -> "), cycle[0])
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
