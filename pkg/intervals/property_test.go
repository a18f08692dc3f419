package intervals

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genObservations produces a random observation sequence with small parent and
// timestamp domains so coalescing and ties actually occur.
func genObservations() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(
		gen.Int64Range(0, 1000),
		gen.IntRange(1, 8),
	).Map(func(values []interface{}) Observation {
		return Observation{TS: values[0].(int64), Parent: values[1].(int)}
	}))
}

// TestIntervalInvariants verifies the structural invariants of interval
// extraction. These properties should ALWAYS hold for any observation sequence.
func TestIntervalInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("intervals are contiguous and cover up to run end", prop.ForAll(
		func(observations []Observation) bool {
			result := BuildNodeIntervals(1, observations, 2000)
			if len(observations) == 0 {
				return len(result) == 0
			}
			for i, iv := range result {
				if iv.End < iv.Start || iv.Duration != iv.End-iv.Start {
					return false
				}
				if i+1 < len(result) && result[i+1].Start != iv.End {
					return false
				}
			}
			// With endTS beyond every observation the last interval reaches it
			return len(result) == 0 || result[len(result)-1].End == 2000
		},
		genObservations(),
	))

	properties.Property("consecutive intervals never share a parent", prop.ForAll(
		func(observations []Observation) bool {
			result := BuildNodeIntervals(1, observations, 2000)
			for i := 1; i < len(result); i++ {
				if result[i].Parent == result[i-1].Parent {
					return false
				}
			}
			return true
		},
		genObservations(),
	))

	properties.Property("extraction is idempotent", prop.ForAll(
		func(observations []Observation) bool {
			first := BuildNodeIntervals(1, observations, 2000)
			second := BuildNodeIntervals(1, observations, 2000)
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					return false
				}
			}
			return true
		},
		genObservations(),
	))

	properties.Property("transition probabilities sum to 1", prop.ForAll(
		func(observations []Observation) bool {
			result := BuildNodeIntervals(1, observations, 2000)
			dists := TransitionDistributions(result)
			for _, dist := range dists {
				sum := 0.0
				for _, p := range dist {
					sum += p
				}
				if math.Abs(sum-1.0) > 1e-9 {
					return false
				}
			}
			return true
		},
		genObservations(),
	))

	properties.TestingRun(t)
}
