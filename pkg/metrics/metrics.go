package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the analysis pipeline
type Registry struct {
	// Trace ingestion
	TracesAnalyzed prometheus.Counter
	TracesFailed   prometheus.Counter
	EventsParsed   prometheus.Counter
	LinesSkipped   prometheus.Counter
	ParseDuration  prometheus.Histogram

	// Exposure estimation
	SolveDuration        prometheus.Histogram
	SolverUnresolvedRows prometheus.Counter
	QValuesClamped       prometheus.Counter
}

// NewRegistry creates all pipeline metrics and registers them with reg.
// Passing prometheus.NewRegistry() keeps tests isolated from the default registry.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		TracesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exposure_traces_analyzed_total",
			Help: "Number of simulation traces analyzed",
		}),
		TracesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exposure_traces_failed_total",
			Help: "Number of simulation traces that failed analysis",
		}),
		EventsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exposure_events_parsed_total",
			Help: "Number of structured OBS events parsed",
		}),
		LinesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exposure_lines_skipped_total",
			Help: "Number of trace lines without a recognizable OBS event",
		}),
		ParseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exposure_parse_duration_seconds",
			Help:    "Time spent parsing one trace",
			Buckets: prometheus.DefBuckets,
		}),
		SolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exposure_solve_duration_seconds",
			Help:    "Time spent solving the absorption system for one run",
			Buckets: prometheus.DefBuckets,
		}),
		SolverUnresolvedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exposure_solver_unresolved_rows_total",
			Help: "Rows left unresolved because the pivot fell below tolerance",
		}),
		QValuesClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exposure_q_values_clamped_total",
			Help: "Absorption probabilities clamped into [0,1]",
		}),
	}

	reg.MustRegister(
		r.TracesAnalyzed,
		r.TracesFailed,
		r.EventsParsed,
		r.LinesSkipped,
		r.ParseDuration,
		r.SolveDuration,
		r.SolverUnresolvedRows,
		r.QValuesClamped,
	)

	return r
}

// RecordParse records one parsed trace with its duration and line accounting
func (r *Registry) RecordParse(duration time.Duration, events, skipped int) {
	r.TracesAnalyzed.Inc()
	r.ParseDuration.Observe(duration.Seconds())
	r.EventsParsed.Add(float64(events))
	r.LinesSkipped.Add(float64(skipped))
}

// RecordSolve records one absorption solve with its duration and degradations
func (r *Registry) RecordSolve(duration time.Duration, unresolved, clamped int) {
	r.SolveDuration.Observe(duration.Seconds())
	r.SolverUnresolvedRows.Add(float64(unresolved))
	r.QValuesClamped.Add(float64(clamped))
}
