// Package reconcile joins the three exposure signals per (scenario, attack
// rate) and reports their central tendency and cross-correlation.
package reconcile

import (
	"math"
	"sort"
	"strconv"

	"github.com/dd0wney/mesh-exposure/pkg/exposure"
)

// RunSummary carries the log-derived proxy exposure and clipped delivery
// ratio for one run. Nil values mean the run did not produce that signal.
type RunSummary struct {
	Scenario   string
	AttackRate *float64
	ELog       *float64
	PDRClipped *float64
}

// ComparisonRow is the reconciled view for one (scenario, attack rate) key.
// Nil means no runs contributed that signal; missing stays missing, not zero.
type ComparisonRow struct {
	Scenario   string
	AttackRate string
	ELog       *float64
	EMix       *float64
	ETree      *float64
	PDRStar    *float64
}

// Correlations holds Pearson correlations of the proxy against each
// estimator. OK is false when fewer than two paired points exist or the
// denominator degenerates.
type Correlations struct {
	LogMix    float64
	LogMixOK  bool
	LogTree   float64
	LogTreeOK bool
}

type key struct {
	scenario string
	rate     string
}

func rateKey(rate *float64) string {
	if rate == nil {
		return ""
	}
	return strconv.FormatFloat(*rate, 'g', -1, 64)
}

// Reconcile aggregates each signal by (scenario, attack rate) and correlates
// the proxy with the estimators across keys.
func Reconcile(summaries []RunSummary, mix []exposure.MixRecord, tree []exposure.TreeRecord) ([]ComparisonRow, Correlations) {
	eLogs := make(map[key][]float64)
	pdrs := make(map[key][]float64)
	for _, s := range summaries {
		k := key{scenario: s.Scenario, rate: rateKey(s.AttackRate)}
		if s.ELog != nil {
			eLogs[k] = append(eLogs[k], *s.ELog)
		}
		if s.PDRClipped != nil {
			pdrs[k] = append(pdrs[k], *s.PDRClipped)
		}
		if _, seen := eLogs[k]; !seen {
			eLogs[k] = nil
		}
	}

	eMixes := make(map[key][]float64)
	for _, m := range mix {
		k := key{scenario: m.Scenario, rate: rateKey(m.AttackRate)}
		eMixes[k] = append(eMixes[k], m.EMix)
	}
	eTrees := make(map[key][]float64)
	for _, r := range tree {
		k := key{scenario: r.Scenario, rate: rateKey(r.AttackRate)}
		eTrees[k] = append(eTrees[k], r.ETree)
	}

	keys := make([]key, 0, len(eLogs))
	for k := range eLogs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].scenario != keys[j].scenario {
			return keys[i].scenario < keys[j].scenario
		}
		return keys[i].rate < keys[j].rate
	})

	rows := make([]ComparisonRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, ComparisonRow{
			Scenario:   k.scenario,
			AttackRate: k.rate,
			ELog:       mean(eLogs[k]),
			EMix:       mean(eMixes[k]),
			ETree:      mean(eTrees[k]),
			PDRStar:    mean(pdrs[k]),
		})
	}

	var corr Correlations
	logValues := make([]*float64, len(rows))
	mixValues := make([]*float64, len(rows))
	treeValues := make([]*float64, len(rows))
	for i, row := range rows {
		logValues[i] = row.ELog
		mixValues[i] = row.EMix
		treeValues[i] = row.ETree
	}
	corr.LogMix, corr.LogMixOK = Pearson(logValues, mixValues)
	corr.LogTree, corr.LogTreeOK = Pearson(logValues, treeValues)

	return rows, corr
}

// mean returns nil for an empty sample
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

// Pearson computes the correlation over pairs where both sides are present.
// It is undefined (ok=false) with fewer than two pairs or a zero denominator.
func Pearson(x, y []*float64) (float64, bool) {
	var xs, ys []float64
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	for i := 0; i < n; i++ {
		if x[i] == nil || y[i] == nil {
			continue
		}
		xs = append(xs, *x[i])
		ys = append(ys, *y[i])
	}
	if len(xs) < 2 {
		return 0, false
	}

	mx := 0.0
	my := 0.0
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(len(xs))
	my /= float64(len(ys))

	num := 0.0
	dx := 0.0
	dy := 0.0
	for i := range xs {
		num += (xs[i] - mx) * (ys[i] - my)
		dx += (xs[i] - mx) * (xs[i] - mx)
		dy += (ys[i] - my) * (ys[i] - my)
	}
	den := math.Sqrt(dx * dy)
	if den == 0 {
		return 0, false
	}
	return num / den, true
}
