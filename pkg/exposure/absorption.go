// Package exposure estimates the probability that sender traffic passes
// through the attacker node, from two independent models: a Markov absorption
// chain over empirical parent transitions (E_mix) and the last-known routing
// tree snapshot (E_tree).
package exposure

import (
	"math"
	"sort"

	"github.com/dd0wney/mesh-exposure/pkg/intervals"
)

// pivotTolerance rejects near-zero pivots during elimination. A rejected row
// is left at its partially-eliminated value rather than failing the run.
const pivotTolerance = 1e-12

// MixResult is the absorption-model exposure estimate for one run.
type MixResult struct {
	// Q maps every observed node to its probability of absorption at the
	// attacker. q(attacker)=1 and q(root)=0 by construction.
	Q map[int]float64
	// EMix is the mean of Q over the sender set, 0 when the set is empty.
	EMix float64
	// Unresolved counts rows skipped for a sub-tolerance pivot.
	Unresolved int
	// Clamped counts solutions pulled back into [0,1].
	Clamped int
}

// NodeSet collects every node id appearing in the distributions, as switcher
// or as parent.
func NodeSet(dists map[int]intervals.Distribution) map[int]bool {
	nodes := make(map[int]bool)
	for node, dist := range dists {
		nodes[node] = true
		for parent := range dist {
			nodes[parent] = true
		}
	}
	return nodes
}

// DefaultSenders is every observed node except the root and the attacker.
func DefaultSenders(nodes map[int]bool, attacker, root int) map[int]bool {
	senders := make(map[int]bool, len(nodes))
	for node := range nodes {
		if node != attacker && node != root {
			senders[node] = true
		}
	}
	return senders
}

// SolveMix computes absorption probabilities for every non-boundary node and
// aggregates them into E_mix over the sender set. The empirical transition
// graph is treated as an absorbing Markov chain with q(attacker)=1 and
// q(root)=0 as boundary conditions.
func SolveMix(dists map[int]intervals.Distribution, nodes map[int]bool, attacker, root int, senders map[int]bool) MixResult {
	normalized := normalizeRows(dists)

	unknowns := make([]int, 0, len(nodes))
	for node := range nodes {
		if node != attacker && node != root {
			unknowns = append(unknowns, node)
		}
	}
	sort.Ints(unknowns)

	index := make(map[int]int, len(unknowns))
	for i, node := range unknowns {
		index[node] = i
	}

	n := len(unknowns)
	a := make([][]float64, n)
	b := make([]float64, n)
	for i, node := range unknowns {
		a[i] = make([]float64, n)
		a[i][i] = 1.0
		dist, ok := normalized[node]
		if !ok {
			// Never observed switching parents: no information, the row
			// resolves toward the root.
			continue
		}
		for parent, p := range dist {
			switch {
			case parent == attacker:
				b[i] += p
			case parent == root:
				// absorbed at root, contributes 0
			default:
				if j, known := index[parent]; known {
					a[i][j] -= p
				}
				// Transitions to parents outside this run's node set vanish
				// rather than being renormalized; inherited approximation.
			}
		}
	}

	solution, unresolved := gaussJordan(a, b)

	q := map[int]float64{attacker: 1.0, root: 0.0}
	clamped := 0
	for i, node := range unknowns {
		value := solution[i]
		if value < 0 || value > 1 {
			clamped++
		}
		q[node] = math.Max(0.0, math.Min(1.0, value))
	}

	eMix := 0.0
	if len(senders) > 0 {
		for node := range senders {
			eMix += q[node]
		}
		eMix /= float64(len(senders))
	}

	return MixResult{Q: q, EMix: eMix, Unresolved: unresolved, Clamped: clamped}
}

// normalizeRows re-normalizes each node's parent probabilities. Distributions
// straight from the interval extractor already sum to 1; rows re-aggregated
// from interchange files may not.
func normalizeRows(dists map[int]intervals.Distribution) map[int]intervals.Distribution {
	normalized := make(map[int]intervals.Distribution, len(dists))
	for node, dist := range dists {
		total := 0.0
		for _, p := range dist {
			total += p
		}
		row := make(intervals.Distribution, len(dist))
		for parent, p := range dist {
			if total > 0 {
				row[parent] = p / total
			} else {
				row[parent] = p
			}
		}
		normalized[node] = row
	}
	return normalized
}

// gaussJordan solves a*x = b by Gauss-Jordan elimination with partial pivoting
// on magnitude. Rows whose best pivot is below tolerance are skipped and their
// variable keeps its partially-eliminated value; the skip count is returned.
func gaussJordan(a [][]float64, b []float64) ([]float64, int) {
	n := len(b)
	if n == 0 {
		return nil, 0
	}

	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	skipped := 0
	for i := 0; i < n; i++ {
		pivot := i
		for j := i; j < n; j++ {
			if math.Abs(m[j][i]) > math.Abs(m[pivot][i]) {
				pivot = j
			}
		}
		if math.Abs(m[pivot][i]) < pivotTolerance {
			skipped++
			continue
		}
		m[i], m[pivot] = m[pivot], m[i]

		div := m[i][i]
		for k := range m[i] {
			m[i][k] /= div
		}

		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			factor := m[j][i]
			if math.Abs(factor) < pivotTolerance {
				continue
			}
			for k := 0; k <= n; k++ {
				m[j][k] -= factor * m[i][k]
			}
		}
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = m[i][n]
	}
	return x, skipped
}
