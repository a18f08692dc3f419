// Package dataset reads and writes the CSV artifact tables. Column names and
// order are fixed so artifacts interoperate with the wider analysis tooling.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dd0wney/mesh-exposure/pkg/events"
	"github.com/dd0wney/mesh-exposure/pkg/exposure"
	"github.com/dd0wney/mesh-exposure/pkg/intervals"
	"github.com/dd0wney/mesh-exposure/pkg/observability"
	"github.com/dd0wney/mesh-exposure/pkg/reconcile"
)

// Table file names within a store directory.
const (
	TopologyFile      = "topology_edges.csv"
	RoutingFile       = "routing_paths.csv"
	PerformanceFile   = "performance_metrics.csv"
	GroundTruthFile   = "attack_exposure.csv"
	IntervalsFile     = "parent_intervals.csv"
	PiFile            = "parent_pi.csv"
	NeighborsFile     = "neighbors.csv"
	MixFile           = "exposure_mix.csv"
	QValuesFile       = "q_values.csv"
	TreeFile          = "exposure_tree.csv"
	ObservabilityFile = "observability_summary.csv"
	SummaryFile       = "run_summary.csv"
	ComparisonFile    = "exposure_comparison.csv"
)

// RunMeta tags run-scoped rows with their originating run.
type RunMeta struct {
	RunID      string
	Scenario   string
	AttackRate *float64
}

// IntervalRow is one parent-residency interval tagged with its run.
type IntervalRow struct {
	RunMeta
	Interval intervals.Interval
}

// PiRow is one time-weighted parent probability tagged with its run.
type PiRow struct {
	RunMeta
	Node   int
	Parent int
	Pi     float64
}

// NeighborRow is one observed (node, parent) pair tagged with its run.
type NeighborRow struct {
	RunMeta
	Node     int
	Neighbor int
}

// Store writes and reads the artifact tables under one directory.
type Store struct {
	dir string
}

// NewStore creates the output directory if needed and returns a store for it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of a table file within the store.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) writeTable(name string, header []string, rows [][]string) error {
	f, err := os.Create(s.Path(name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write %s row: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatRate renders an optional attack rate; absent stays an empty cell.
func formatRate(rate *float64) string {
	if rate == nil {
		return ""
	}
	return formatFloat(*rate)
}

// formatOpt renders an optional measurement; absent stays an empty cell.
func formatOpt(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// WriteTopology writes the observed radio links table.
func (s *Store) WriteTopology(edges []events.TopologyEdge) error {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{
			strconv.Itoa(e.Source),
			strconv.Itoa(e.Target),
			formatFloat(e.Weight),
		})
	}
	return s.writeTable(TopologyFile, []string{"source", "target", "weight"}, rows)
}

// WriteRoutingPaths writes the per-window reconstructed paths table.
func (s *Store) WriteRoutingPaths(paths []events.RoutingPath) error {
	rows := make([][]string, 0, len(paths))
	for _, p := range paths {
		rows = append(rows, []string{p.Window, strconv.Itoa(p.NodeID), p.Path})
	}
	return s.writeTable(RoutingFile, []string{"time_window", "node_id", "path"}, rows)
}

// WritePerformance writes the per-node delivery counters table.
func (s *Store) WritePerformance(metrics []events.PerformanceMetric) error {
	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []string{
			m.Window,
			strconv.Itoa(m.NodeID),
			formatFloat(m.PDR),
			formatFloat(m.DelayMS),
			formatFloat(m.JitterMS),
			strconv.Itoa(m.TxCount),
			strconv.Itoa(m.RxCount),
			strconv.Itoa(m.DropCount),
			strconv.Itoa(m.ParentChurn),
			formatFloat(m.AttackRate),
			m.Scenario,
		})
	}
	header := []string{
		"time_window", "node_id", "pdr", "delay_ms", "jitter_ms",
		"tx_count", "rx_count", "drop_count", "parent_churn", "attack_rate", "scenario",
	}
	return s.writeTable(PerformanceFile, header, rows)
}

// WriteGroundTruth writes the traffic-counted exposure table.
func (s *Store) WriteGroundTruth(truth []events.GroundTruth) error {
	rows := make([][]string, 0, len(truth))
	for _, g := range truth {
		rows = append(rows, []string{
			g.Window,
			strconv.Itoa(g.AttackerID),
			strconv.Itoa(g.RecvData),
			strconv.Itoa(g.FwdData),
			strconv.Itoa(g.DropData),
			strconv.Itoa(g.RootRxTotal),
			formatFloat(g.Exposure),
		})
	}
	header := []string{
		"time_window", "attacker_id", "recv_data", "fwd_data", "drop_data",
		"root_rx_total", "exposure",
	}
	return s.writeTable(GroundTruthFile, header, rows)
}

// WriteIntervals writes the parent-residency intervals table.
func (s *Store) WriteIntervals(rows []IntervalRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.RunID,
			r.Scenario,
			formatRate(r.AttackRate),
			strconv.Itoa(r.Interval.Node),
			strconv.Itoa(r.Interval.Parent),
			strconv.FormatInt(r.Interval.Start, 10),
			strconv.FormatInt(r.Interval.End, 10),
			strconv.FormatInt(r.Interval.Duration, 10),
		})
	}
	header := []string{"run_id", "scenario", "attack_rate", "node", "parent", "t_start", "t_end", "duration"}
	return s.writeTable(IntervalsFile, header, out)
}

// WritePi writes the time-weighted parent probabilities table.
func (s *Store) WritePi(rows []PiRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.RunID,
			r.Scenario,
			formatRate(r.AttackRate),
			strconv.Itoa(r.Node),
			strconv.Itoa(r.Parent),
			formatFloat(r.Pi),
		})
	}
	header := []string{"run_id", "scenario", "attack_rate", "node", "parent", "pi"}
	return s.writeTable(PiFile, header, out)
}

// WriteNeighbors writes the distinct (node, parent) pairs table.
func (s *Store) WriteNeighbors(rows []NeighborRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.RunID,
			r.Scenario,
			formatRate(r.AttackRate),
			strconv.Itoa(r.Node),
			strconv.Itoa(r.Neighbor),
		})
	}
	header := []string{"run_id", "scenario", "attack_rate", "node", "neighbor"}
	return s.writeTable(NeighborsFile, header, out)
}

// WriteMixRecords writes the absorption-model results table.
func (s *Store) WriteMixRecords(records []exposure.MixRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.RunID,
			r.Scenario,
			formatRate(r.AttackRate),
			strconv.Itoa(r.Attacker),
			formatFloat(r.EMix),
		})
	}
	header := []string{"run_id", "scenario", "attack_rate", "attacker", "E_mix"}
	return s.writeTable(MixFile, header, rows)
}

// WriteQValues writes the per-node absorption probabilities table.
func (s *Store) WriteQValues(values []exposure.QValue) error {
	rows := make([][]string, 0, len(values))
	for _, q := range values {
		rows = append(rows, []string{
			q.RunID,
			q.Scenario,
			formatRate(q.AttackRate),
			strconv.Itoa(q.Node),
			formatFloat(q.Q),
		})
	}
	header := []string{"run_id", "scenario", "attack_rate", "node", "q"}
	return s.writeTable(QValuesFile, header, rows)
}

// WriteTreeRecords writes the snapshot-model results table.
func (s *Store) WriteTreeRecords(records []exposure.TreeRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.RunID,
			r.Scenario,
			formatRate(r.AttackRate),
			strconv.Itoa(r.Attacker),
			formatFloat(r.ETree),
			strconv.Itoa(r.SubtreeSize),
		})
	}
	header := []string{"run_id", "scenario", "attack_rate", "attacker", "E_tree", "subtree_size"}
	return s.writeTable(TreeFile, header, rows)
}

// WriteObservability writes the per-(window, node) structural summary joined
// with performance metrics. Rows without a performance match keep empty cells.
func (s *Store) WriteObservability(rows []observability.SummaryRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		record := []string{
			r.Window,
			r.NodeID,
			formatFloat(r.AvgPathLength),
			strconv.Itoa(r.PathDiversity),
			formatFloat(r.AttackExposure),
			formatFloat(r.BetweennessCentrality),
		}
		if p := r.Performance; p != nil {
			record = append(record,
				formatFloat(p.PDR),
				formatFloat(p.DelayMS),
				formatFloat(p.JitterMS),
				strconv.Itoa(p.TxCount),
				strconv.Itoa(p.RxCount),
				strconv.Itoa(p.DropCount),
				strconv.Itoa(p.ParentChurn),
				formatFloat(p.AttackRate),
			)
		} else {
			record = append(record, "", "", "", "", "", "", "", "")
		}
		out = append(out, record)
	}
	header := []string{
		"time_window", "node_id", "avg_path_length", "path_diversity",
		"attack_exposure", "betweenness_centrality",
		"pdr", "delay_ms", "jitter_ms", "tx_count", "rx_count", "drop_count",
		"parent_churn", "attack_rate",
	}
	return s.writeTable(ObservabilityFile, header, out)
}

// WriteRunSummaries writes the per-run proxy signals table.
func (s *Store) WriteRunSummaries(summaries []reconcile.RunSummary) error {
	rows := make([][]string, 0, len(summaries))
	for _, r := range summaries {
		rows = append(rows, []string{
			r.Scenario,
			formatRate(r.AttackRate),
			formatOpt(r.ELog),
			formatOpt(r.PDRClipped),
		})
	}
	header := []string{"scenario", "attack_rate", "E_log", "pdr_clipped"}
	return s.writeTable(SummaryFile, header, rows)
}

// WriteComparison writes the reconciled exposure comparison table.
func (s *Store) WriteComparison(rows []reconcile.ComparisonRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Scenario,
			r.AttackRate,
			formatOpt(r.ELog),
			formatOpt(r.EMix),
			formatOpt(r.ETree),
			formatOpt(r.PDRStar),
		})
	}
	header := []string{"scenario", "attack_rate", "E_log", "E_mix", "E_tree", "PDR_star"}
	return s.writeTable(ComparisonFile, header, out)
}
