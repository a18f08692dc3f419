package structural

import (
	"container/heap"
)

// pqItem is one entry in the Dijkstra priority queue.
type pqItem struct {
	node     string
	distance float64
}

// distanceHeap implements a min-heap over tentative distances.
type distanceHeap []pqItem

func (h distanceHeap) Len() int            { return len(h) }
func (h distanceHeap) Less(i, j int) bool  { return h[i].distance < h[j].distance }
func (h distanceHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *distanceHeap) Push(x any)         { *h = append(*h, x.(pqItem)) }
func (h *distanceHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// BetweennessCentrality computes normalized weighted betweenness for every
// node: one Brandes pass per source with Dijkstra relaxation, then
// back-propagation of pair dependencies.
func BetweennessCentrality(g *Graph) map[string]float64 {
	nodes := g.Nodes()
	betweenness := make(map[string]float64, len(nodes))
	for _, node := range nodes {
		betweenness[node] = 0.0
	}

	for _, source := range nodes {
		stack, predecessors, sigma := shortestPathCounts(g, source)

		// Back-propagation: accumulate pair dependencies onto intermediates
		delta := make(map[string]float64, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, pred := range predecessors[w] {
				delta[pred] += (sigma[pred] / sigma[w]) * (1.0 + delta[w])
			}
			if w != source {
				betweenness[w] += delta[w]
			}
		}
	}

	// Each unordered pair was counted from both endpoints
	n := len(nodes)
	if n > 2 {
		normFactor := 1.0 / float64((n-1)*(n-2))
		for node := range betweenness {
			betweenness[node] *= normFactor
		}
	}
	return betweenness
}

// AttackerBetweenness is the attacker's normalized betweenness centrality,
// 0.0 when the attacker does not appear in the topology.
func AttackerBetweenness(g *Graph, attackerID string) float64 {
	if !g.Has(attackerID) {
		return 0.0
	}
	return BetweennessCentrality(g)[attackerID]
}

// shortestPathCounts runs weighted single-source shortest paths, returning
// settled nodes in non-decreasing distance order, predecessor lists, and
// shortest-path counts.
func shortestPathCounts(g *Graph, source string) (stack []string, predecessors map[string][]string, sigma map[string]float64) {
	predecessors = make(map[string][]string)
	sigma = map[string]float64{source: 1.0}
	settled := make(map[string]float64)
	seen := map[string]float64{source: 0}

	pq := &distanceHeap{{node: source, distance: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		if _, done := settled[item.node]; done {
			continue
		}
		settled[item.node] = item.distance
		stack = append(stack, item.node)

		for _, neighbor := range g.neighbors(item.node) {
			candidate := item.distance + g.weight(item.node, neighbor)
			if _, done := settled[neighbor]; done {
				continue
			}
			best, reached := seen[neighbor]
			switch {
			case !reached || candidate < best:
				seen[neighbor] = candidate
				heap.Push(pq, pqItem{node: neighbor, distance: candidate})
				sigma[neighbor] = sigma[item.node]
				predecessors[neighbor] = []string{item.node}
			case candidate == best:
				sigma[neighbor] += sigma[item.node]
				predecessors[neighbor] = append(predecessors[neighbor], item.node)
			}
		}
	}
	return stack, predecessors, sigma
}
