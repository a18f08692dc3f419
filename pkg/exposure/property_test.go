package exposure

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/mesh-exposure/pkg/intervals"
)

// genDistributions builds a random transition map over a small node domain.
// Raw weights are normalized by the solver, so any positive weights are valid.
func genDistributions() gopter.Gen {
	nodeGen := gen.IntRange(2, 8)
	return gen.MapOf(nodeGen, gen.MapOf(
		gen.IntRange(1, 9), // parents may include root (1) and attacker (9)
		gen.Float64Range(0.05, 1.0),
	)).Map(func(raw map[int]map[int]float64) map[int]intervals.Distribution {
		dists := make(map[int]intervals.Distribution, len(raw))
		for node, row := range raw {
			if len(row) == 0 {
				continue
			}
			dists[node] = intervals.Distribution(row)
		}
		return dists
	})
}

// TestAbsorptionInvariants verifies the solver's output invariants for
// arbitrary empirical transition graphs, including singular ones.
func TestAbsorptionInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("all q values lie in [0,1]", prop.ForAll(
		func(dists map[int]intervals.Distribution) bool {
			nodes := NodeSet(dists)
			nodes[attackerID] = true
			nodes[rootID] = true
			result := SolveMix(dists, nodes, attackerID, rootID, DefaultSenders(nodes, attackerID, rootID))
			for _, q := range result.Q {
				if q < 0 || q > 1 {
					return false
				}
			}
			return true
		},
		genDistributions(),
	))

	properties.Property("boundary conditions hold exactly", prop.ForAll(
		func(dists map[int]intervals.Distribution) bool {
			nodes := NodeSet(dists)
			nodes[attackerID] = true
			nodes[rootID] = true
			result := SolveMix(dists, nodes, attackerID, rootID, DefaultSenders(nodes, attackerID, rootID))
			return result.Q[attackerID] == 1.0 && result.Q[rootID] == 0.0
		},
		genDistributions(),
	))

	properties.Property("E_mix lies in [0,1] and is 0 for empty senders", prop.ForAll(
		func(dists map[int]intervals.Distribution) bool {
			nodes := NodeSet(dists)
			nodes[attackerID] = true
			nodes[rootID] = true
			withSenders := SolveMix(dists, nodes, attackerID, rootID, DefaultSenders(nodes, attackerID, rootID))
			if withSenders.EMix < 0 || withSenders.EMix > 1 {
				return false
			}
			empty := SolveMix(dists, nodes, attackerID, rootID, map[int]bool{})
			return empty.EMix == 0.0
		},
		genDistributions(),
	))

	properties.Property("E_tree lies in [0,1]", prop.ForAll(
		func(dists map[int]intervals.Distribution) bool {
			var ivs []intervals.Interval
			start := int64(0)
			for node, dist := range dists {
				for parent := range dist {
					ivs = append(ivs, intervals.Interval{
						Node: node, Parent: parent,
						Start: start, End: start + 10, Duration: 10,
					})
					start += 10
				}
			}
			nodes := NodeSet(dists)
			nodes[attackerID] = true
			nodes[rootID] = true
			result := SolveTree(ivs, attackerID, DefaultSenders(nodes, attackerID, rootID))
			return result.ETree >= 0 && result.ETree <= 1
		},
		genDistributions(),
	))

	properties.TestingRun(t)
}
