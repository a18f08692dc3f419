package structural

import (
	"math"
	"reflect"
	"testing"
)

func TestParsePath(t *testing.T) {
	if got := ParsePath("3>2>1", ">"); !reflect.DeepEqual(got, []string{"3", "2", "1"}) {
		t.Errorf("Expected [3 2 1], got %v", got)
	}
	if got := ParsePath(" 3 > 2 >> 1 ", ">"); !reflect.DeepEqual(got, []string{"3", "2", "1"}) {
		t.Errorf("Expected trimmed tokens [3 2 1], got %v", got)
	}
	if got := ParsePath("", ">"); len(got) != 0 {
		t.Errorf("Expected empty sequence for missing path, got %v", got)
	}
}

func TestPathMetrics_SpecScenario(t *testing.T) {
	paths := [][]string{
		ParsePath("s1>r", ">"),
		ParsePath("s1>attacker>r", ">"),
		ParsePath("s2>r", ">"),
	}

	exposure := AttackExposure(paths, "attacker")
	want := 1.0 / 3.0
	if math.Abs(exposure-want) > 1e-9 {
		t.Errorf("Expected exposure %f, got %f", want, exposure)
	}

	if diversity := PathDiversity(paths, ">"); diversity != 3 {
		t.Errorf("Expected diversity 3, got %d", diversity)
	}

	apl := AveragePathLength(paths)
	wantAPL := (1.0 + 2.0 + 1.0) / 3.0
	if math.Abs(apl-wantAPL) > 1e-9 {
		t.Errorf("Expected average path length %f, got %f", wantAPL, apl)
	}
}

func TestPathMetrics_EmptyGroup(t *testing.T) {
	empty := [][]string{nil, {}}

	if apl := AveragePathLength(empty); apl != 0.0 {
		t.Errorf("Expected APL 0 for only-empty group, got %f", apl)
	}
	if diversity := PathDiversity(empty, ">"); diversity != 0 {
		t.Errorf("Expected diversity 0, got %d", diversity)
	}
	if exposure := AttackExposure(empty, "attacker"); exposure != 0.0 {
		t.Errorf("Expected exposure 0, got %f", exposure)
	}
}

func TestPathDiversity_NeverExceedsNonEmptyCount(t *testing.T) {
	paths := [][]string{
		{"a", "b"},
		{"a", "b"},
		{"c"},
		nil,
	}
	nonEmpty := 3
	if diversity := PathDiversity(paths, ">"); diversity > nonEmpty {
		t.Errorf("Diversity %d exceeds non-empty path count %d", diversity, nonEmpty)
	}
	if diversity := PathDiversity(paths, ">"); diversity != 2 {
		t.Errorf("Expected diversity 2, got %d", diversity)
	}
}

func TestAttackExposure_OrderedTokens(t *testing.T) {
	// The attacker must match a whole token, not a substring.
	paths := [][]string{{"10", "100", "1"}}
	if exposure := AttackExposure(paths, "10"); exposure != 1.0 {
		t.Errorf("Expected exposure 1.0, got %f", exposure)
	}
	if exposure := AttackExposure(paths, "0"); exposure != 0.0 {
		t.Errorf("Expected exposure 0.0 for non-token id, got %f", exposure)
	}
}
