package events

import (
	"math"
	"strconv"
	"strings"
	"testing"
)

const sampleTrace = `
OBS ts=0 node=1 ev=ROOT
OBS ts=100 node=2 ev=PARENT parent=1
OBS ts=100 node=3 ev=PARENT parent=2
OBS ts=200 node=2 ev=NEIGHBOR neighbor=1 rssi=-60
OBS ts=300 node=2 ev=NEIGHBOR neighbor=3 rssi=-95
OBS ts=1000 node=3 ev=DATA_TX
OBS ts=1100 node=1 ev=ROOT_RX src=3
OBS ts=1200 node=1 ev=DELAY src=3 delay_ms=40.0
OBS ts=1300 node=1 ev=DELAY src=3 delay_ms=60.0
OBS ts=2000 node=4 ev=ATTACK_START rate=0.5
OBS ts=2500 node=4 ev=DATA_RX
OBS ts=2600 node=4 ev=DATA_FWD
OBS ts=700000 node=3 ev=PARENT parent=4
not an event line
`

func collectSample(t *testing.T) *Trace {
	t.Helper()

	trace, err := Collect(strings.NewReader(sampleTrace), CollectOptions{
		Scenario:      "grid",
		WindowSeconds: 600,
		PathSeparator: ">",
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	return trace
}

func TestCollect_Identities(t *testing.T) {
	trace := collectSample(t)

	if !trace.RootObserved || trace.RootID != 1 {
		t.Errorf("Expected root 1, got %d (observed=%v)", trace.RootID, trace.RootObserved)
	}
	if !trace.AttackObserved || trace.AttackerID != 4 {
		t.Errorf("Expected attacker 4, got %d", trace.AttackerID)
	}
	if trace.AttackRate != 0.5 {
		t.Errorf("Expected attack rate 0.5, got %f", trace.AttackRate)
	}
	if trace.MaxTS != 700000 {
		t.Errorf("Expected max ts 700000, got %d", trace.MaxTS)
	}
	if trace.SkippedLines != 1 {
		t.Errorf("Expected 1 skipped line, got %d", trace.SkippedLines)
	}
}

func TestCollect_TopologyWeights(t *testing.T) {
	trace := collectSample(t)

	if len(trace.Topology) != 2 {
		t.Fatalf("Expected 2 topology edges, got %d", len(trace.Topology))
	}
	// rssi=-60 -> (40)/50 = 0.8
	if math.Abs(trace.Topology[0].Weight-0.8) > 1e-9 {
		t.Errorf("Expected weight 0.8 for rssi -60, got %f", trace.Topology[0].Weight)
	}
	// rssi=-95 -> 0.1 after clamping
	if math.Abs(trace.Topology[1].Weight-0.1) > 1e-9 {
		t.Errorf("Expected clamped weight 0.1 for rssi -95, got %f", trace.Topology[1].Weight)
	}
}

func TestCollect_PathsPerWindow(t *testing.T) {
	trace := collectSample(t)

	byKey := make(map[string]string)
	for _, p := range trace.Paths {
		byKey[p.Window+"/"+strconv.Itoa(p.NodeID)] = p.Path
	}

	// Window t1: 2->1, 3->2->1
	if byKey["t1/3"] != "3>2>1" {
		t.Errorf("Expected t1 path 3>2>1, got %q", byKey["t1/3"])
	}
	if byKey["t1/2"] != "2>1" {
		t.Errorf("Expected t1 path 2>1, got %q", byKey["t1/2"])
	}
	// Window t2 (ts=700000): node 3 switched to parent 4; 4 has no parent entry
	if byKey["t2/3"] != "3>4" {
		t.Errorf("Expected t2 path 3>4, got %q", byKey["t2/3"])
	}
}

func TestCollect_PathCycleTerminates(t *testing.T) {
	cyclic := `
OBS ts=0 node=2 ev=PARENT parent=3
OBS ts=0 node=3 ev=PARENT parent=2
`
	trace, err := Collect(strings.NewReader(cyclic), CollectOptions{WindowSeconds: 600, PathSeparator: ">"})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, p := range trace.Paths {
		if len(p.Path) > 20 {
			t.Errorf("Cycle produced runaway path: %q", p.Path)
		}
	}
}

func TestCollect_Performance(t *testing.T) {
	trace := collectSample(t)

	var node3 *PerformanceMetric
	for i := range trace.Performance {
		if trace.Performance[i].NodeID == 3 {
			node3 = &trace.Performance[i]
		}
	}
	if node3 == nil {
		t.Fatal("Expected performance row for node 3")
	}
	if node3.PDR != 1.0 {
		t.Errorf("Expected PDR 1.0 (1 tx, 1 rx), got %f", node3.PDR)
	}
	if math.Abs(node3.DelayMS-50.0) > 1e-9 {
		t.Errorf("Expected mean delay 50, got %f", node3.DelayMS)
	}
	if math.Abs(node3.JitterMS-10.0) > 1e-9 {
		t.Errorf("Expected jitter 10, got %f", node3.JitterMS)
	}
	if node3.ParentChurn != 1 {
		t.Errorf("Expected 1 parent switch for node 3, got %d", node3.ParentChurn)
	}
}

func TestCollect_GroundTruthExposure(t *testing.T) {
	trace := collectSample(t)

	if len(trace.GroundTruth) != 1 {
		t.Fatalf("Expected 1 ground-truth window, got %d", len(trace.GroundTruth))
	}
	row := trace.GroundTruth[0]
	if row.Window != "t1" {
		t.Errorf("Expected window t1, got %s", row.Window)
	}
	if row.RecvData != 1 || row.FwdData != 1 || row.RootRxTotal != 1 {
		t.Errorf("Unexpected counters: %+v", row)
	}
	if row.Exposure != 1.0 {
		t.Errorf("Expected exposure 1.0, got %f", row.Exposure)
	}
}

func TestCollect_ParentObservations(t *testing.T) {
	trace := collectSample(t)

	obs := trace.Observations[3]
	if len(obs) != 2 {
		t.Fatalf("Expected 2 observations for node 3, got %d", len(obs))
	}
	if obs[0].Parent != 2 || obs[1].Parent != 4 {
		t.Errorf("Unexpected observations: %+v", obs)
	}
}
