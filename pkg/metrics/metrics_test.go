package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			if len(mf.Metric) != 1 {
				t.Fatalf("Expected 1 metric for %s, got %d", name, len(mf.Metric))
			}
			return mf.Metric[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("Metric %s not found", name)
	return 0
}

func gatherHistogram(t *testing.T, reg *prometheus.Registry, name string) *dto.Histogram {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.Metric[0].GetHistogram()
		}
	}
	t.Fatalf("Metric %s not found", name)
	return nil
}

func TestRegistry_RecordParse(t *testing.T) {
	promReg := prometheus.NewRegistry()
	r := NewRegistry(promReg)

	r.RecordParse(50*time.Millisecond, 120, 7)
	r.RecordParse(10*time.Millisecond, 30, 0)

	if got := gatherCounter(t, promReg, "exposure_traces_analyzed_total"); got != 2 {
		t.Errorf("Expected 2 traces analyzed, got %f", got)
	}
	if got := gatherCounter(t, promReg, "exposure_events_parsed_total"); got != 150 {
		t.Errorf("Expected 150 events parsed, got %f", got)
	}
	if got := gatherCounter(t, promReg, "exposure_lines_skipped_total"); got != 7 {
		t.Errorf("Expected 7 lines skipped, got %f", got)
	}

	hist := gatherHistogram(t, promReg, "exposure_parse_duration_seconds")
	if hist.GetSampleCount() != 2 {
		t.Errorf("Expected 2 parse duration samples, got %d", hist.GetSampleCount())
	}
}

func TestRegistry_RecordSolve(t *testing.T) {
	promReg := prometheus.NewRegistry()
	r := NewRegistry(promReg)

	r.RecordSolve(time.Millisecond, 3, 1)

	if got := gatherCounter(t, promReg, "exposure_solver_unresolved_rows_total"); got != 3 {
		t.Errorf("Expected 3 unresolved rows, got %f", got)
	}
	if got := gatherCounter(t, promReg, "exposure_q_values_clamped_total"); got != 1 {
		t.Errorf("Expected 1 clamped q value, got %f", got)
	}
}
