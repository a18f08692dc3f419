package structural

import (
	"sort"
)

// Graph is an undirected weighted graph over node identifiers, used only for
// centrality. Repeated edges overwrite the stored weight, so replaying the
// same neighbor observation does not create parallel edges.
type Graph struct {
	adj map[string]map[string]float64
}

// NewGraph creates an empty topology graph
func NewGraph() *Graph {
	return &Graph{adj: make(map[string]map[string]float64)}
}

// AddEdge adds an undirected edge. Non-positive weights fall back to 1.0.
func (g *Graph) AddEdge(source, target string, weight float64) {
	if weight <= 0 {
		weight = 1.0
	}
	g.addHalf(source, target, weight)
	g.addHalf(target, source, weight)
}

func (g *Graph) addHalf(from, to string, weight float64) {
	if g.adj[from] == nil {
		g.adj[from] = make(map[string]float64)
	}
	g.adj[from][to] = weight
}

// Has reports whether the node appears in the graph
func (g *Graph) Has(node string) bool {
	_, ok := g.adj[node]
	return ok
}

// Nodes returns all node identifiers in sorted order for determinism
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.adj))
	for node := range g.adj {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// neighbors returns a node's adjacency in sorted order
func (g *Graph) neighbors(node string) []string {
	adj := g.adj[node]
	neighbors := make([]string, 0, len(adj))
	for neighbor := range adj {
		neighbors = append(neighbors, neighbor)
	}
	sort.Strings(neighbors)
	return neighbors
}

// weight returns the stored edge weight
func (g *Graph) weight(from, to string) float64 {
	return g.adj[from][to]
}
