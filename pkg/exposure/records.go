package exposure

// MixRecord is one run's absorption-model result row.
type MixRecord struct {
	RunID      string
	Scenario   string
	AttackRate *float64
	Attacker   int
	EMix       float64
}

// QValue is one node's absorption probability within a run.
type QValue struct {
	RunID      string
	Scenario   string
	AttackRate *float64
	Node       int
	Q          float64
}

// TreeRecord is one run's snapshot-model result row.
type TreeRecord struct {
	RunID       string
	Scenario    string
	AttackRate  *float64
	Attacker    int
	ETree       float64
	SubtreeSize int
}
