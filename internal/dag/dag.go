// Package dag provides the directed graph behind broadcast merges.
// Nodes are table names and an edge cast -> onto means rows of cast are
// merged onto rows of onto. It supports cycle detection and reachability.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph over string IDs. Edge order is insertion order.
type Graph struct {
	nodes map[string]struct{}
	order []string
	out   map[string][]string // from -> to
	in    map[string][]string // to -> from
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if _, exists := g.nodes[id]; exists {
		return
	}
	g.nodes[id] = struct{}{}
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from -> to.
func (g *Graph) AddEdge(from, to string) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("node %q does not exist", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("node %q does not exist", to)
	}
	if from == to {
		return fmt.Errorf("self-loop detected: %s", from)
	}

	if !contains(g.out[from], to) {
		g.out[from] = append(g.out[from], to)
	}
	if !contains(g.in[to], from) {
		g.in[to] = append(g.in[to], from)
	}
	return nil
}

// Has reports whether id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Incoming returns the nodes with an edge into id, in insertion order.
func (g *Graph) Incoming(id string) []string {
	return g.in[id]
}

// Outgoing returns the nodes id has an edge to, in insertion order.
func (g *Graph) Outgoing(id string) []string {
	return g.out[id]
}

// Nodes returns all node IDs in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, to := range g.out {
		count += len(to)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle
// path (first node repeated at the end).
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	parent := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, next := range g.out[id] {
			if !visited[next] {
				parent[next] = id
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cyclePath = []string{id}
				for curr := id; curr != next; {
					curr = parent[curr]
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append(cyclePath, next)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Upstream returns every node with a path into id, sorted.
func (g *Graph) Upstream(id string) []string {
	seen := make(map[string]bool)

	var walk func(nodeID string)
	walk = func(nodeID string) {
		for _, from := range g.in[nodeID] {
			if !seen[from] {
				seen[from] = true
				walk(from)
			}
		}
	}
	walk(id)

	result := make([]string, 0, len(seen))
	for nodeID := range seen {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
