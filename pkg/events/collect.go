package events

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dd0wney/mesh-exposure/pkg/intervals"
)

// TopologyEdge is one observed radio link with a signal-quality weight.
type TopologyEdge struct {
	Source int
	Target int
	Weight float64
}

// RoutingPath is one reconstructed node-to-root path within a time window.
type RoutingPath struct {
	Window string
	NodeID int
	Path   string
}

// PerformanceMetric aggregates per-node delivery counters for one run.
type PerformanceMetric struct {
	Window      string
	NodeID      int
	PDR         float64
	DelayMS     float64
	JitterMS    float64
	TxCount     int
	RxCount     int
	DropCount   int
	ParentChurn int
	AttackRate  float64
	Scenario    string
}

// GroundTruth is the per-window traffic-counted exposure at the attacker,
// the E_log proxy the estimators are validated against.
type GroundTruth struct {
	Window      string
	AttackerID  int
	RecvData    int
	FwdData     int
	DropData    int
	RootRxTotal int
	Exposure    float64
}

// Trace is everything one streaming pass derives from a single run's log.
// All state is local to the pass; nothing is retained between runs.
type Trace struct {
	Observations map[int][]intervals.Observation
	Topology     []TopologyEdge
	Paths        []RoutingPath
	Performance  []PerformanceMetric
	GroundTruth  []GroundTruth

	RootID         int
	RootObserved   bool
	AttackerID     int
	AttackRate     float64
	AttackObserved bool
	MaxTS          int64

	EventCount   int
	SkippedLines int
}

// CollectOptions configures one collection pass.
type CollectOptions struct {
	Scenario      string
	WindowSeconds int
	PathSeparator string
}

// windowLabel buckets a timestamp into a 1-based window label (t1, t2, ...).
func windowLabel(tsMS int64, windowSeconds int) string {
	idx := tsMS / (int64(windowSeconds) * 1000)
	return fmt.Sprintf("t%d", idx+1)
}

// Collect folds a trace stream into its derived structures in a single pass.
func Collect(r io.Reader, opts CollectOptions) (*Trace, error) {
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = 600
	}
	if opts.PathSeparator == "" {
		opts.PathSeparator = ">"
	}

	trace := &Trace{Observations: make(map[int][]intervals.Observation)}

	txCounts := make(map[int]int)
	rxCounts := make(map[int]int)
	dropCounts := make(map[int]int)
	delays := make(map[int][]float64)
	parentMap := make(map[string]map[int]int) // window -> node -> parent
	parentChurn := make(map[int]int)
	lastParent := make(map[int]int)
	attackerRx := make(map[string]int)
	attackerFwd := make(map[string]int)
	attackerDrop := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ev, ok := ParseLine(scanner.Text())
		if !ok {
			trace.SkippedLines++
			continue
		}
		trace.EventCount++

		if ev.TS > trace.MaxTS {
			trace.MaxTS = ev.TS
		}
		window := windowLabel(ev.TS, opts.WindowSeconds)

		switch ev.Kind {
		case KindRoot:
			trace.RootID = ev.Node
			trace.RootObserved = true

		case KindNeighbor:
			neighbor := ev.Int("neighbor", 0)
			rssi := ev.Int("rssi", -100)
			weight := math.Max(0.1, math.Min(1.0, float64(rssi+100)/50))
			trace.Topology = append(trace.Topology, TopologyEdge{
				Source: ev.Node,
				Target: neighbor,
				Weight: weight,
			})

		case KindParent:
			parent := ev.Int("parent", 0)
			trace.Observations[ev.Node] = append(trace.Observations[ev.Node], intervals.Observation{
				TS:     ev.TS,
				Parent: parent,
			})
			if parentMap[window] == nil {
				parentMap[window] = make(map[int]int)
			}
			parentMap[window][ev.Node] = parent
			if prev, seen := lastParent[ev.Node]; seen && prev != parent {
				parentChurn[ev.Node]++
			}
			lastParent[ev.Node] = parent

		case KindDataTx:
			txCounts[ev.Node]++

		case KindRootRx:
			rxCounts[ev.Int("src", 0)]++

		case KindDelay:
			src := ev.Int("src", 0)
			delays[src] = append(delays[src], ev.Float("delay_ms", 0))

		case KindDataRx:
			attackerRx[window]++

		case KindDataFwd:
			attackerFwd[window]++

		case KindDataDrop:
			attackerDrop[window]++
			dropCounts[ev.Node]++

		case KindAttackStart:
			trace.AttackerID = ev.Node
			trace.AttackRate = ev.Float("rate", 0)
			trace.AttackObserved = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	trace.Paths = buildPaths(parentMap, opts.PathSeparator)
	trace.Performance = buildPerformance(txCounts, rxCounts, dropCounts, delays, parentChurn, trace, opts.Scenario)
	trace.GroundTruth = buildGroundTruth(attackerRx, attackerFwd, attackerDrop, rxCounts, trace)
	return trace, nil
}

// buildPaths follows parent pointers within each window's snapshot. A visited
// set and a 100-hop cap keep inconsistent snapshots from looping.
func buildPaths(parentMap map[string]map[int]int, separator string) []RoutingPath {
	windows := make([]string, 0, len(parentMap))
	for window := range parentMap {
		windows = append(windows, window)
	}
	sort.Strings(windows)

	var paths []RoutingPath
	for _, window := range windows {
		windowParents := parentMap[window]
		nodes := make([]int, 0, len(windowParents))
		for node := range windowParents {
			nodes = append(nodes, node)
		}
		sort.Ints(nodes)

		for _, node := range nodes {
			paths = append(paths, RoutingPath{
				Window: window,
				NodeID: node,
				Path:   constructPath(node, windowParents, separator),
			})
		}
	}
	return paths
}

func constructPath(node int, parents map[int]int, separator string) string {
	hops := []string{strconv.Itoa(node)}
	visited := make(map[int]bool)
	current := node
	for {
		parent, ok := parents[current]
		if !ok || visited[current] {
			break
		}
		visited[current] = true
		hops = append(hops, strconv.Itoa(parent))
		current = parent
		if len(hops) > 100 {
			break
		}
	}
	return strings.Join(hops, separator)
}

func buildPerformance(
	txCounts, rxCounts, dropCounts map[int]int,
	delays map[int][]float64,
	parentChurn map[int]int,
	trace *Trace,
	scenario string,
) []PerformanceMetric {
	nodeSet := make(map[int]bool)
	for node := range txCounts {
		nodeSet[node] = true
	}
	for node := range rxCounts {
		nodeSet[node] = true
	}
	for node := range dropCounts {
		nodeSet[node] = true
	}
	nodes := make([]int, 0, len(nodeSet))
	for node := range nodeSet {
		nodes = append(nodes, node)
	}
	sort.Ints(nodes)

	metrics := make([]PerformanceMetric, 0, len(nodes))
	for _, node := range nodes {
		tx := txCounts[node]
		rx := rxCounts[node]

		pdr := 0.0
		if tx > 0 {
			pdr = float64(rx) / float64(tx)
		}

		nodeDelays := delays[node]
		avgDelay := 0.0
		jitter := 0.0
		if len(nodeDelays) > 0 {
			for _, d := range nodeDelays {
				avgDelay += d
			}
			avgDelay /= float64(len(nodeDelays))
			variance := 0.0
			for _, d := range nodeDelays {
				variance += (d - avgDelay) * (d - avgDelay)
			}
			jitter = math.Sqrt(variance / float64(len(nodeDelays)))
		}

		attackRate := 0.0
		if trace.AttackObserved && node == trace.AttackerID {
			attackRate = trace.AttackRate
		}

		metrics = append(metrics, PerformanceMetric{
			Window:      "t1",
			NodeID:      node,
			PDR:         pdr,
			DelayMS:     avgDelay,
			JitterMS:    jitter,
			TxCount:     tx,
			RxCount:     rx,
			DropCount:   dropCounts[node],
			ParentChurn: parentChurn[node],
			AttackRate:  attackRate,
			Scenario:    scenario,
		})
	}
	return metrics
}

func buildGroundTruth(
	attackerRx, attackerFwd, attackerDrop map[string]int,
	rxCounts map[int]int,
	trace *Trace,
) []GroundTruth {
	rootTotal := 0
	for _, count := range rxCounts {
		rootTotal += count
	}

	windows := make([]string, 0, len(attackerRx))
	for window := range attackerRx {
		windows = append(windows, window)
	}
	sort.Strings(windows)

	rows := make([]GroundTruth, 0, len(windows))
	for _, window := range windows {
		recv := attackerRx[window]
		exposure := 0.0
		if rootTotal > 0 {
			exposure = float64(recv) / float64(rootTotal)
		}
		rows = append(rows, GroundTruth{
			Window:      window,
			AttackerID:  trace.AttackerID,
			RecvData:    recv,
			FwdData:     attackerFwd[window],
			DropData:    attackerDrop[window],
			RootRxTotal: rootTotal,
			Exposure:    exposure,
		})
	}
	return rows
}
