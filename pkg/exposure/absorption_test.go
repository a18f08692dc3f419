package exposure

import (
	"math"
	"testing"

	"github.com/dd0wney/mesh-exposure/pkg/intervals"
)

const (
	attackerID = 9
	rootID     = 1
)

func TestSolveMix_ChainScenario(t *testing.T) {
	// A -> B with certainty; B splits evenly between attacker and root.
	dists := map[int]intervals.Distribution{
		2: {3: 1.0},                       // A
		3: {attackerID: 0.5, rootID: 0.5}, // B
	}
	nodes := NodeSet(dists)
	senders := DefaultSenders(nodes, attackerID, rootID)

	result := SolveMix(dists, nodes, attackerID, rootID, senders)

	if math.Abs(result.Q[3]-0.5) > 1e-9 {
		t.Errorf("Expected q(B)=0.5, got %f", result.Q[3])
	}
	if math.Abs(result.Q[2]-0.5) > 1e-9 {
		t.Errorf("Expected q(A)=0.5, got %f", result.Q[2])
	}
	if math.Abs(result.EMix-0.5) > 1e-9 {
		t.Errorf("Expected E_mix 0.5, got %f", result.EMix)
	}
}

func TestSolveMix_BoundaryValuesFixed(t *testing.T) {
	dists := map[int]intervals.Distribution{
		2: {attackerID: 0.3, rootID: 0.7},
	}
	nodes := NodeSet(dists)

	result := SolveMix(dists, nodes, attackerID, rootID, DefaultSenders(nodes, attackerID, rootID))

	if result.Q[attackerID] != 1.0 {
		t.Errorf("Expected q(attacker)=1 exactly, got %f", result.Q[attackerID])
	}
	if result.Q[rootID] != 0.0 {
		t.Errorf("Expected q(root)=0 exactly, got %f", result.Q[rootID])
	}
	if math.Abs(result.Q[2]-0.3) > 1e-9 {
		t.Errorf("Expected q=0.3, got %f", result.Q[2])
	}
}

func TestSolveMix_NoDistributionResolvesToRoot(t *testing.T) {
	// Node 4 appears only as a parent; it has no distribution of its own.
	dists := map[int]intervals.Distribution{
		2: {4: 1.0},
	}
	nodes := NodeSet(dists)

	result := SolveMix(dists, nodes, attackerID, rootID, DefaultSenders(nodes, attackerID, rootID))

	if result.Q[4] != 0.0 {
		t.Errorf("Expected uninformed node to resolve to 0, got %f", result.Q[4])
	}
	if result.Q[2] != 0.0 {
		t.Errorf("Expected q through uninformed node to be 0, got %f", result.Q[2])
	}
}

func TestSolveMix_UnobservedParentMassVanishes(t *testing.T) {
	// Parent 77 is not in the node set; its mass contributes nothing.
	dists := map[int]intervals.Distribution{
		2: {attackerID: 0.5, 77: 0.5},
	}
	nodes := map[int]bool{2: true, attackerID: true, rootID: true}

	result := SolveMix(dists, nodes, attackerID, rootID, map[int]bool{2: true})

	if math.Abs(result.Q[2]-0.5) > 1e-9 {
		t.Errorf("Expected vanished mass to leave q=0.5, got %f", result.Q[2])
	}
}

func TestSolveMix_EmptySenders(t *testing.T) {
	dists := map[int]intervals.Distribution{
		2: {attackerID: 1.0},
	}
	nodes := NodeSet(dists)

	result := SolveMix(dists, nodes, attackerID, rootID, map[int]bool{})

	if result.EMix != 0.0 {
		t.Errorf("Expected E_mix 0 for empty sender set, got %f", result.EMix)
	}
}

func TestSolveMix_SingularRowLeftUnresolved(t *testing.T) {
	// Nodes 2 and 3 point only at each other with certainty: after
	// elimination one pivot collapses below tolerance.
	dists := map[int]intervals.Distribution{
		2: {3: 1.0},
		3: {2: 1.0},
	}
	nodes := map[int]bool{2: true, 3: true, attackerID: true, rootID: true}

	result := SolveMix(dists, nodes, attackerID, rootID, DefaultSenders(nodes, attackerID, rootID))

	if result.Unresolved == 0 {
		t.Error("Expected at least one unresolved row for a singular system")
	}
	for node, q := range result.Q {
		if q < 0 || q > 1 {
			t.Errorf("q(%d)=%f escaped [0,1]", node, q)
		}
	}
}

func TestSolveMix_SendersOutsideQContributeZero(t *testing.T) {
	dists := map[int]intervals.Distribution{
		2: {attackerID: 1.0},
	}
	nodes := NodeSet(dists)
	senders := map[int]bool{2: true, 55: true}

	result := SolveMix(dists, nodes, attackerID, rootID, senders)

	if math.Abs(result.EMix-0.5) > 1e-9 {
		t.Errorf("Expected E_mix 0.5 with one unknown sender, got %f", result.EMix)
	}
}

func TestNodeSet(t *testing.T) {
	dists := map[int]intervals.Distribution{
		2: {3: 0.5, attackerID: 0.5},
	}
	nodes := NodeSet(dists)
	for _, id := range []int{2, 3, attackerID} {
		if !nodes[id] {
			t.Errorf("Expected node %d in node set", id)
		}
	}
}

func TestDefaultSenders_ExcludesBoundary(t *testing.T) {
	nodes := map[int]bool{rootID: true, 2: true, 3: true, attackerID: true}
	senders := DefaultSenders(nodes, attackerID, rootID)
	if len(senders) != 2 || !senders[2] || !senders[3] {
		t.Errorf("Expected senders {2,3}, got %v", senders)
	}
}
