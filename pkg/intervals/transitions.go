package intervals

// Distribution maps parent id to the fraction of a node's residency time spent
// under that parent. Probabilities sum to 1 for any node with positive total
// duration.
type Distribution map[int]float64

// TransitionDistributions computes, per node, the time-weighted probability of
// each parent. Nodes whose total residency duration is not positive are
// excluded from the result entirely.
func TransitionDistributions(ivs []Interval) map[int]Distribution {
	durations := make(map[int]map[int]int64)
	totals := make(map[int]int64)
	for _, iv := range ivs {
		byParent, ok := durations[iv.Node]
		if !ok {
			byParent = make(map[int]int64)
			durations[iv.Node] = byParent
		}
		byParent[iv.Parent] += iv.Duration
		totals[iv.Node] += iv.Duration
	}

	result := make(map[int]Distribution, len(durations))
	for node, byParent := range durations {
		total := totals[node]
		if total <= 0 {
			continue
		}
		dist := make(Distribution, len(byParent))
		for parent, duration := range byParent {
			dist[parent] = float64(duration) / float64(total)
		}
		result[node] = dist
	}
	return result
}

// NeighborPairs returns the distinct (node, parent) pairs that appear in any
// transition distribution, for the neighbors output table.
func NeighborPairs(dists map[int]Distribution) [][2]int {
	var pairs [][2]int
	for node, dist := range dists {
		for parent := range dist {
			pairs = append(pairs, [2]int{node, parent})
		}
	}
	return pairs
}
