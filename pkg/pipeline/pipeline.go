// Package pipeline orchestrates the full per-run analysis: trace parsing,
// interval extraction, the two exposure estimators, structural metrics, and
// the cross-run reconciliation, with CSV artifacts and an optional database
// sink at the end.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/mesh-exposure/pkg/config"
	"github.com/dd0wney/mesh-exposure/pkg/dataset"
	"github.com/dd0wney/mesh-exposure/pkg/events"
	"github.com/dd0wney/mesh-exposure/pkg/exposure"
	"github.com/dd0wney/mesh-exposure/pkg/intervals"
	"github.com/dd0wney/mesh-exposure/pkg/logging"
	"github.com/dd0wney/mesh-exposure/pkg/metrics"
	"github.com/dd0wney/mesh-exposure/pkg/observability"
	"github.com/dd0wney/mesh-exposure/pkg/reconcile"
)

// ResultSink receives batch results for persistence. The PostgreSQL sink
// implements it; a nil sink disables persistence.
type ResultSink interface {
	InsertMixRecords(ctx context.Context, batchID string, records []exposure.MixRecord) error
	InsertQValues(ctx context.Context, batchID string, values []exposure.QValue) error
	InsertTreeRecords(ctx context.Context, batchID string, records []exposure.TreeRecord) error
	InsertComparison(ctx context.Context, batchID string, rows []reconcile.ComparisonRow) error
}

// Pipeline runs the analysis for one or more traces.
type Pipeline struct {
	cfg     config.Config
	log     logging.Logger
	metrics *metrics.Registry
	sink    ResultSink
}

// New creates a pipeline. The sink may be nil.
func New(cfg config.Config, log logging.Logger, reg *metrics.Registry, sink ResultSink) *Pipeline {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Pipeline{cfg: cfg, log: log, metrics: reg, sink: sink}
}

// RunResult holds everything one trace produced.
type RunResult struct {
	Meta          dataset.RunMeta
	Trace         *events.Trace
	Intervals     []intervals.Interval
	Distributions map[int]intervals.Distribution
	Mix           exposure.MixResult
	Tree          exposure.TreeResult
	Summary       []observability.SummaryRow
	RunSummary    reconcile.RunSummary
}

// BatchResult aggregates one pipeline invocation over multiple traces.
type BatchResult struct {
	BatchID      string
	Runs         []*RunResult
	Failed       int
	Comparison   []reconcile.ComparisonRow
	Correlations reconcile.Correlations
}

// AnalyzeRun processes a single trace end to end and writes its per-run
// artifact tables under <output>/<run id>/.
func (p *Pipeline) AnalyzeRun(path string, senders map[int]bool) (*RunResult, error) {
	runID := events.RunIDFromPath(path)
	scenario := events.ScenarioFromRunID(runID)
	log := p.log.With(logging.RunID(runID), logging.Scenario(scenario))

	reader, err := events.OpenTrace(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	parseStart := time.Now()
	trace, err := events.Collect(reader, events.CollectOptions{
		Scenario:      scenario,
		WindowSeconds: p.cfg.WindowSeconds,
		PathSeparator: p.cfg.PathSeparator,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect trace %s: %w", runID, err)
	}
	p.metrics.RecordParse(time.Since(parseStart), trace.EventCount, trace.SkippedLines)
	log.Info("trace parsed",
		logging.Int("events", trace.EventCount),
		logging.Int("skipped_lines", trace.SkippedLines),
		logging.Int64("max_ts", trace.MaxTS))

	attacker := p.cfg.AttackerID
	if trace.AttackObserved {
		if attacker != trace.AttackerID {
			log.Warn("configured attacker differs from observed attacker",
				logging.Int("configured", attacker),
				logging.Int("observed", trace.AttackerID))
		}
		attacker = trace.AttackerID
	}
	root := p.cfg.RootID
	if trace.RootObserved {
		root = trace.RootID
	}

	endTS := trace.MaxTS
	if p.cfg.EndTimestampMS != nil {
		endTS = *p.cfg.EndTimestampMS
	}

	ivs := intervals.BuildIntervals(trace.Observations, endTS)
	dists := intervals.TransitionDistributions(ivs)
	nodes := exposure.NodeSet(dists)
	if senders == nil {
		senders = exposure.DefaultSenders(nodes, attacker, root)
	}

	solveStart := time.Now()
	mix := exposure.SolveMix(dists, nodes, attacker, root, senders)
	p.metrics.RecordSolve(time.Since(solveStart), mix.Unresolved, mix.Clamped)
	if mix.Unresolved > 0 {
		log.Warn("absorption solve left rows unresolved", logging.Int("unresolved", mix.Unresolved))
	}

	tree := exposure.SolveTree(ivs, attacker, senders)

	summary := observability.BuildSummary(trace.Topology, trace.Paths, trace.Performance, observability.Config{
		AttackerID:    strconv.Itoa(attacker),
		PathSeparator: p.cfg.PathSeparator,
	})

	var rate *float64
	if trace.AttackObserved {
		r := trace.AttackRate
		rate = &r
	}
	meta := dataset.RunMeta{RunID: runID, Scenario: scenario, AttackRate: rate}

	result := &RunResult{
		Meta:          meta,
		Trace:         trace,
		Intervals:     ivs,
		Distributions: dists,
		Mix:           mix,
		Tree:          tree,
		Summary:       summary,
		RunSummary:    buildRunSummary(meta, trace),
	}

	if err := p.writeRunArtifacts(result); err != nil {
		return nil, err
	}

	log.Info("run analyzed",
		logging.Float64("e_mix", mix.EMix),
		logging.Float64("e_tree", tree.ETree),
		logging.Int("subtree_size", tree.SubtreeSize))
	return result, nil
}

// buildRunSummary condenses a trace into the proxy signals the reconciler
// consumes: mean traffic-counted exposure and mean delivery ratio clipped
// into [0,1].
func buildRunSummary(meta dataset.RunMeta, trace *events.Trace) reconcile.RunSummary {
	summary := reconcile.RunSummary{Scenario: meta.Scenario, AttackRate: meta.AttackRate}

	if len(trace.GroundTruth) > 0 {
		sum := 0.0
		for _, g := range trace.GroundTruth {
			sum += g.Exposure
		}
		eLog := sum / float64(len(trace.GroundTruth))
		summary.ELog = &eLog
	}

	if len(trace.Performance) > 0 {
		sum := 0.0
		for _, m := range trace.Performance {
			sum += math.Max(0.0, math.Min(1.0, m.PDR))
		}
		pdr := sum / float64(len(trace.Performance))
		summary.PDRClipped = &pdr
	}
	return summary
}

// writeRunArtifacts writes the tables scoped to a single run.
func (p *Pipeline) writeRunArtifacts(result *RunResult) error {
	store, err := dataset.NewStore(filepath.Join(p.cfg.OutputDir, result.Meta.RunID))
	if err != nil {
		return err
	}
	if err := store.WriteTopology(result.Trace.Topology); err != nil {
		return err
	}
	if err := store.WriteRoutingPaths(result.Trace.Paths); err != nil {
		return err
	}
	if err := store.WritePerformance(result.Trace.Performance); err != nil {
		return err
	}
	if err := store.WriteGroundTruth(result.Trace.GroundTruth); err != nil {
		return err
	}
	return store.WriteObservability(result.Summary)
}

// Run analyzes every trace, reconciles the results, and writes the combined
// artifact tables. Runs are independent: one failed trace is logged and
// counted but does not stop the batch. Run fails only when configuration is
// unusable or every trace failed.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*BatchResult, error) {
	batchID := uuid.NewString()
	log := p.log.With(logging.String("batch_id", batchID))
	log.Info("starting analysis batch", logging.Int("traces", len(paths)))

	store, err := dataset.NewStore(p.cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	var senders map[int]bool
	if p.cfg.SendersFile != "" {
		ids, err := dataset.LoadSenders(p.cfg.SendersFile)
		if err != nil {
			return nil, err
		}
		senders = make(map[int]bool, len(ids))
		for _, id := range ids {
			senders[id] = true
		}
	}

	batch := &BatchResult{BatchID: batchID}
	for _, path := range paths {
		result, err := p.AnalyzeRun(path, senders)
		if err != nil {
			p.metrics.TracesFailed.Inc()
			batch.Failed++
			log.Error("trace analysis failed", logging.String("path", path), logging.Error(err))
			continue
		}
		batch.Runs = append(batch.Runs, result)
	}
	if len(batch.Runs) == 0 && len(paths) > 0 {
		return nil, fmt.Errorf("all %d traces failed analysis", len(paths))
	}

	var (
		intervalRows []dataset.IntervalRow
		piRows       []dataset.PiRow
		neighborRows []dataset.NeighborRow
		mixRecords   []exposure.MixRecord
		qValues      []exposure.QValue
		treeRecords  []exposure.TreeRecord
		summaries    []reconcile.RunSummary
	)
	for _, run := range batch.Runs {
		meta := run.Meta
		for _, iv := range run.Intervals {
			intervalRows = append(intervalRows, dataset.IntervalRow{RunMeta: meta, Interval: iv})
		}
		piRows = append(piRows, piRowsForRun(meta, run.Distributions)...)
		for _, pair := range intervals.NeighborPairs(run.Distributions) {
			neighborRows = append(neighborRows, dataset.NeighborRow{RunMeta: meta, Node: pair[0], Neighbor: pair[1]})
		}
		attacker := attackerForRun(run, p.cfg.AttackerID)
		mixRecords = append(mixRecords, exposure.MixRecord{
			RunID:      meta.RunID,
			Scenario:   meta.Scenario,
			AttackRate: meta.AttackRate,
			Attacker:   attacker,
			EMix:       run.Mix.EMix,
		})
		qValues = append(qValues, qValuesForRun(meta, run.Mix)...)
		treeRecords = append(treeRecords, exposure.TreeRecord{
			RunID:       meta.RunID,
			Scenario:    meta.Scenario,
			AttackRate:  meta.AttackRate,
			Attacker:    attacker,
			ETree:       run.Tree.ETree,
			SubtreeSize: run.Tree.SubtreeSize,
		})
		summaries = append(summaries, run.RunSummary)
	}

	batch.Comparison, batch.Correlations = reconcile.Reconcile(summaries, mixRecords, treeRecords)
	logCorrelations(log, batch.Correlations)

	if err := store.WriteIntervals(intervalRows); err != nil {
		return nil, err
	}
	if err := store.WritePi(piRows); err != nil {
		return nil, err
	}
	if err := store.WriteNeighbors(neighborRows); err != nil {
		return nil, err
	}
	if err := store.WriteMixRecords(mixRecords); err != nil {
		return nil, err
	}
	if err := store.WriteQValues(qValues); err != nil {
		return nil, err
	}
	if err := store.WriteTreeRecords(treeRecords); err != nil {
		return nil, err
	}
	if err := store.WriteRunSummaries(summaries); err != nil {
		return nil, err
	}
	if err := store.WriteComparison(batch.Comparison); err != nil {
		return nil, err
	}

	if p.sink != nil {
		if err := p.persist(ctx, batchID, mixRecords, qValues, treeRecords, batch.Comparison); err != nil {
			return nil, err
		}
	}

	log.Info("analysis batch complete",
		logging.Int("runs", len(batch.Runs)),
		logging.Int("failed", batch.Failed))
	return batch, nil
}

// ReconcileOnly recomputes the comparison table from previously written
// artifact tables, without re-analyzing any traces.
func (p *Pipeline) ReconcileOnly(ctx context.Context) ([]reconcile.ComparisonRow, reconcile.Correlations, error) {
	store, err := dataset.NewStore(p.cfg.OutputDir)
	if err != nil {
		return nil, reconcile.Correlations{}, err
	}

	summaries, err := store.LoadRunSummaries()
	if err != nil {
		return nil, reconcile.Correlations{}, err
	}
	mixRecords, err := store.LoadMixRecords()
	if err != nil {
		return nil, reconcile.Correlations{}, err
	}
	treeRecords, err := store.LoadTreeRecords()
	if err != nil {
		return nil, reconcile.Correlations{}, err
	}

	rows, corr := reconcile.Reconcile(summaries, mixRecords, treeRecords)
	logCorrelations(p.log, corr)

	if err := store.WriteComparison(rows); err != nil {
		return nil, reconcile.Correlations{}, err
	}
	if p.sink != nil {
		if err := p.sink.InsertComparison(ctx, uuid.NewString(), rows); err != nil {
			return nil, reconcile.Correlations{}, fmt.Errorf("failed to persist comparison: %w", err)
		}
	}
	return rows, corr, nil
}

func (p *Pipeline) persist(
	ctx context.Context,
	batchID string,
	mixRecords []exposure.MixRecord,
	qValues []exposure.QValue,
	treeRecords []exposure.TreeRecord,
	comparison []reconcile.ComparisonRow,
) error {
	if err := p.sink.InsertMixRecords(ctx, batchID, mixRecords); err != nil {
		return fmt.Errorf("failed to persist mix records: %w", err)
	}
	if err := p.sink.InsertQValues(ctx, batchID, qValues); err != nil {
		return fmt.Errorf("failed to persist q values: %w", err)
	}
	if err := p.sink.InsertTreeRecords(ctx, batchID, treeRecords); err != nil {
		return fmt.Errorf("failed to persist tree records: %w", err)
	}
	if err := p.sink.InsertComparison(ctx, batchID, comparison); err != nil {
		return fmt.Errorf("failed to persist comparison: %w", err)
	}
	return nil
}

func piRowsForRun(meta dataset.RunMeta, dists map[int]intervals.Distribution) []dataset.PiRow {
	nodes := make([]int, 0, len(dists))
	for node := range dists {
		nodes = append(nodes, node)
	}
	sort.Ints(nodes)

	var rows []dataset.PiRow
	for _, node := range nodes {
		parents := make([]int, 0, len(dists[node]))
		for parent := range dists[node] {
			parents = append(parents, parent)
		}
		sort.Ints(parents)
		for _, parent := range parents {
			rows = append(rows, dataset.PiRow{RunMeta: meta, Node: node, Parent: parent, Pi: dists[node][parent]})
		}
	}
	return rows
}

func qValuesForRun(meta dataset.RunMeta, mix exposure.MixResult) []exposure.QValue {
	nodes := make([]int, 0, len(mix.Q))
	for node := range mix.Q {
		nodes = append(nodes, node)
	}
	sort.Ints(nodes)

	values := make([]exposure.QValue, 0, len(nodes))
	for _, node := range nodes {
		values = append(values, exposure.QValue{
			RunID:      meta.RunID,
			Scenario:   meta.Scenario,
			AttackRate: meta.AttackRate,
			Node:       node,
			Q:          mix.Q[node],
		})
	}
	return values
}

func attackerForRun(run *RunResult, configured int) int {
	if run.Trace.AttackObserved {
		return run.Trace.AttackerID
	}
	return configured
}

func logCorrelations(log logging.Logger, corr reconcile.Correlations) {
	if corr.LogMixOK {
		log.Info("correlation E_log vs E_mix", logging.Float64("r", corr.LogMix))
	} else {
		log.Warn("correlation E_log vs E_mix undefined")
	}
	if corr.LogTreeOK {
		log.Info("correlation E_log vs E_tree", logging.Float64("r", corr.LogTree))
	} else {
		log.Warn("correlation E_log vs E_tree undefined")
	}
}

