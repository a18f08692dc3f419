// Package intervals turns raw parent-switch observations into coalesced
// residency intervals and time-weighted transition distributions.
package intervals

import (
	"sort"
)

// Observation is one PARENT event for a node: at TS the node's parent pointer
// was parentID.
type Observation struct {
	TS     int64
	Parent int
}

// Interval is a maximal span during which a node's parent pointer stayed fixed.
type Interval struct {
	Node     int
	Parent   int
	Start    int64
	End      int64
	Duration int64
}

// BuildNodeIntervals converts one node's observations into residency intervals.
// Observations are stably sorted by timestamp, consecutive same-parent entries
// are coalesced, and each interval ends where the next begins. The last
// interval ends at endTS. Intervals whose end would precede their start (an
// endTS override older than the last observation) are dropped.
func BuildNodeIntervals(node int, observations []Observation, endTS int64) []Interval {
	if len(observations) == 0 {
		return nil
	}

	sorted := make([]Observation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TS < sorted[j].TS
	})

	coalesced := make([]Observation, 0, len(sorted))
	for _, obs := range sorted {
		if len(coalesced) == 0 || coalesced[len(coalesced)-1].Parent != obs.Parent {
			coalesced = append(coalesced, obs)
		}
	}

	result := make([]Interval, 0, len(coalesced))
	for i, obs := range coalesced {
		end := endTS
		if i+1 < len(coalesced) {
			end = coalesced[i+1].TS
		}
		if end < obs.TS {
			continue
		}
		result = append(result, Interval{
			Node:     node,
			Parent:   obs.Parent,
			Start:    obs.TS,
			End:      end,
			Duration: end - obs.TS,
		})
	}
	return result
}

// BuildIntervals extracts residency intervals for every node, ordered by
// ascending node id for deterministic output.
func BuildIntervals(observations map[int][]Observation, endTS int64) []Interval {
	nodes := make([]int, 0, len(observations))
	for node := range observations {
		nodes = append(nodes, node)
	}
	sort.Ints(nodes)

	var result []Interval
	for _, node := range nodes {
		result = append(result, BuildNodeIntervals(node, observations[node], endTS)...)
	}
	return result
}
