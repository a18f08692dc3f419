package exposure

import (
	"container/list"

	"github.com/dd0wney/mesh-exposure/pkg/intervals"
)

// TreeResult is the snapshot-model exposure estimate for one run.
type TreeResult struct {
	ETree       float64
	SubtreeSize int
}

// SnapshotForest reduces a run's intervals to each node's most recent parent
// (maximum interval end time). Only a strictly greater end time replaces an
// earlier entry, so the first-seen parent wins exact ties. The second return
// value is every node id appearing in the intervals, as child or parent.
func SnapshotForest(ivs []intervals.Interval) (map[int]int, map[int]bool) {
	type entry struct {
		end    int64
		parent int
	}
	last := make(map[int]entry)
	nodes := make(map[int]bool)
	for _, iv := range ivs {
		nodes[iv.Node] = true
		nodes[iv.Parent] = true
		if prev, seen := last[iv.Node]; !seen || iv.End > prev.end {
			last[iv.Node] = entry{end: iv.End, parent: iv.Parent}
		}
	}

	lastParent := make(map[int]int, len(last))
	for node, e := range last {
		lastParent[node] = e.parent
	}
	return lastParent, nodes
}

// Descendants computes the set of nodes whose snapshot path leads to start.
// The parent pointers form a plain directed graph, not a guaranteed tree; the
// visited set makes cyclic snapshots terminate (under-reporting descendants
// instead of looping).
func Descendants(lastParent map[int]int, start int) map[int]bool {
	children := make(map[int][]int, len(lastParent))
	for node, parent := range lastParent {
		children[parent] = append(children[parent], node)
	}

	descendants := make(map[int]bool)
	queue := list.New()
	queue.PushBack(start)
	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(int)
		for _, child := range children[current] {
			if !descendants[child] {
				descendants[child] = true
				queue.PushBack(child)
			}
		}
	}
	return descendants
}

// SolveTree computes E_tree: the fraction of senders that sit below the
// attacker in the last-known routing forest.
func SolveTree(ivs []intervals.Interval, attacker int, senders map[int]bool) TreeResult {
	lastParent, _ := SnapshotForest(ivs)
	descendants := Descendants(lastParent, attacker)

	eTree := 0.0
	if len(senders) > 0 {
		hits := 0
		for node := range senders {
			if descendants[node] {
				hits++
			}
		}
		eTree = float64(hits) / float64(len(senders))
	}

	return TreeResult{ETree: eTree, SubtreeSize: len(descendants)}
}
