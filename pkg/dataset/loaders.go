package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/dd0wney/mesh-exposure/pkg/exposure"
	"github.com/dd0wney/mesh-exposure/pkg/reconcile"
)

// LoadSenders reads sender node ids from a one-id-per-row CSV file. Empty rows
// are skipped. An unreadable file is a fatal input error.
func LoadSenders(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open senders file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read senders file: %w", err)
	}

	var senders []int
	for _, record := range records {
		if len(record) == 0 || record[0] == "" {
			continue
		}
		id, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("invalid sender id %q: %w", record[0], err)
		}
		senders = append(senders, id)
	}
	return senders, nil
}

// table is a header-indexed view over one CSV file.
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}
	if len(records) == 0 {
		return &table{columns: map[string]int{}}, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[name] = i
	}
	return &table{columns: columns, rows: records[1:]}, nil
}

func (t *table) cell(row []string, column string) string {
	idx, ok := t.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (t *table) intCell(row []string, column string) (int, error) {
	v, err := strconv.Atoi(t.cell(row, column))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", column, err)
	}
	return v, nil
}

func (t *table) floatCell(row []string, column string) (float64, error) {
	v, err := strconv.ParseFloat(t.cell(row, column), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", column, err)
	}
	return v, nil
}

// optFloatCell treats empty and "None" cells as absent.
func (t *table) optFloatCell(row []string, column string) (*float64, error) {
	raw := t.cell(row, column)
	if raw == "" || raw == "None" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", column, err)
	}
	return &v, nil
}

// LoadMixRecords reads an absorption-model results table.
func (s *Store) LoadMixRecords() ([]exposure.MixRecord, error) {
	t, err := readTable(s.Path(MixFile))
	if err != nil {
		return nil, err
	}

	records := make([]exposure.MixRecord, 0, len(t.rows))
	for _, row := range t.rows {
		attacker, err := t.intCell(row, "attacker")
		if err != nil {
			return nil, err
		}
		eMix, err := t.floatCell(row, "E_mix")
		if err != nil {
			return nil, err
		}
		rate, err := t.optFloatCell(row, "attack_rate")
		if err != nil {
			return nil, err
		}
		records = append(records, exposure.MixRecord{
			RunID:      t.cell(row, "run_id"),
			Scenario:   t.cell(row, "scenario"),
			AttackRate: rate,
			Attacker:   attacker,
			EMix:       eMix,
		})
	}
	return records, nil
}

// LoadTreeRecords reads a snapshot-model results table.
func (s *Store) LoadTreeRecords() ([]exposure.TreeRecord, error) {
	t, err := readTable(s.Path(TreeFile))
	if err != nil {
		return nil, err
	}

	records := make([]exposure.TreeRecord, 0, len(t.rows))
	for _, row := range t.rows {
		attacker, err := t.intCell(row, "attacker")
		if err != nil {
			return nil, err
		}
		eTree, err := t.floatCell(row, "E_tree")
		if err != nil {
			return nil, err
		}
		size, err := t.intCell(row, "subtree_size")
		if err != nil {
			return nil, err
		}
		rate, err := t.optFloatCell(row, "attack_rate")
		if err != nil {
			return nil, err
		}
		records = append(records, exposure.TreeRecord{
			RunID:       t.cell(row, "run_id"),
			Scenario:    t.cell(row, "scenario"),
			AttackRate:  rate,
			Attacker:    attacker,
			ETree:       eTree,
			SubtreeSize: size,
		})
	}
	return records, nil
}

// LoadRunSummaries reads the per-run proxy signals table.
func (s *Store) LoadRunSummaries() ([]reconcile.RunSummary, error) {
	t, err := readTable(s.Path(SummaryFile))
	if err != nil {
		return nil, err
	}

	summaries := make([]reconcile.RunSummary, 0, len(t.rows))
	for _, row := range t.rows {
		rate, err := t.optFloatCell(row, "attack_rate")
		if err != nil {
			return nil, err
		}
		eLog, err := t.optFloatCell(row, "E_log")
		if err != nil {
			return nil, err
		}
		pdr, err := t.optFloatCell(row, "pdr_clipped")
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, reconcile.RunSummary{
			Scenario:   t.cell(row, "scenario"),
			AttackRate: rate,
			ELog:       eLog,
			PDRClipped: pdr,
		})
	}
	return summaries, nil
}
