// Package observability joins per-window structural metrics with externally
// collected performance metrics into one summary table.
package observability

import (
	"sort"
	"strconv"

	"github.com/dd0wney/mesh-exposure/pkg/events"
	"github.com/dd0wney/mesh-exposure/pkg/structural"
)

// Config selects the attacker and the path token separator.
type Config struct {
	AttackerID    string
	PathSeparator string
}

// SummaryRow is one (time window, node) observation row. Performance is nil
// when no performance row matched the structural key.
type SummaryRow struct {
	Window                string
	NodeID                string
	AvgPathLength         float64
	PathDiversity         int
	AttackExposure        float64
	BetweennessCentrality float64
	Performance           *events.PerformanceMetric
}

type groupKey struct {
	window string
	nodeID string
}

// BuildSummary groups routing paths by (window, node), computes the path
// metrics per group, broadcasts the attacker's betweenness centrality over the
// whole topology, and left-joins performance metrics. Performance rows without
// a structural match are dropped; structural rows without performance keep a
// nil Performance.
func BuildSummary(
	topology []events.TopologyEdge,
	paths []events.RoutingPath,
	performance []events.PerformanceMetric,
	cfg Config,
) []SummaryRow {
	if cfg.PathSeparator == "" {
		cfg.PathSeparator = ">"
	}

	groups := make(map[groupKey][][]string)
	for _, p := range paths {
		key := groupKey{window: p.Window, nodeID: strconv.Itoa(p.NodeID)}
		groups[key] = append(groups[key], structural.ParsePath(p.Path, cfg.PathSeparator))
	}

	graph := structural.NewGraph()
	for _, edge := range topology {
		graph.AddEdge(strconv.Itoa(edge.Source), strconv.Itoa(edge.Target), edge.Weight)
	}
	centrality := structural.AttackerBetweenness(graph, cfg.AttackerID)

	perfByKey := make(map[groupKey]*events.PerformanceMetric, len(performance))
	for i := range performance {
		key := groupKey{window: performance[i].Window, nodeID: strconv.Itoa(performance[i].NodeID)}
		perfByKey[key] = &performance[i]
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].window != keys[j].window {
			return keys[i].window < keys[j].window
		}
		return keys[i].nodeID < keys[j].nodeID
	})

	rows := make([]SummaryRow, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		rows = append(rows, SummaryRow{
			Window:                key.window,
			NodeID:                key.nodeID,
			AvgPathLength:         structural.AveragePathLength(group),
			PathDiversity:         structural.PathDiversity(group, cfg.PathSeparator),
			AttackExposure:        structural.AttackExposure(group, cfg.AttackerID),
			BetweennessCentrality: centrality,
			Performance:           perfByKey[key],
		})
	}
	return rows
}
