// Package sink persists analysis results to PostgreSQL. It is optional: the
// pipeline only opens a sink when a DSN is configured.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/mesh-exposure/pkg/exposure"
	"github.com/dd0wney/mesh-exposure/pkg/reconcile"
)

// PGSink handles result persistence using PostgreSQL
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink creates a new PostgreSQL-backed results sink
func NewPGSink(ctx context.Context, databaseURL string) (*PGSink, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGSink{pool: pool}

	// Create tables if they don't exist
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// Ping checks database connectivity
func (s *PGSink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGSink) Close() error {
	s.pool.Close()
	return nil
}

// InsertMixRecords stores absorption-model results for one batch.
func (s *PGSink) InsertMixRecords(ctx context.Context, batchID string, records []exposure.MixRecord) error {
	query := `
		INSERT INTO exposure_mix (batch_id, run_id, scenario, attack_rate, attacker, e_mix)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if _, err := tx.Exec(ctx, query, batchID, r.RunID, r.Scenario, r.AttackRate, r.Attacker, r.EMix); err != nil {
			return fmt.Errorf("failed to insert mix record for run %s: %w", r.RunID, err)
		}
	}
	return tx.Commit(ctx)
}

// InsertQValues stores per-node absorption probabilities for one batch.
func (s *PGSink) InsertQValues(ctx context.Context, batchID string, values []exposure.QValue) error {
	query := `
		INSERT INTO q_values (batch_id, run_id, scenario, attack_rate, node, q)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range values {
		if _, err := tx.Exec(ctx, query, batchID, q.RunID, q.Scenario, q.AttackRate, q.Node, q.Q); err != nil {
			return fmt.Errorf("failed to insert q value for run %s: %w", q.RunID, err)
		}
	}
	return tx.Commit(ctx)
}

// InsertTreeRecords stores snapshot-model results for one batch.
func (s *PGSink) InsertTreeRecords(ctx context.Context, batchID string, records []exposure.TreeRecord) error {
	query := `
		INSERT INTO exposure_tree (batch_id, run_id, scenario, attack_rate, attacker, e_tree, subtree_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if _, err := tx.Exec(ctx, query, batchID, r.RunID, r.Scenario, r.AttackRate, r.Attacker, r.ETree, r.SubtreeSize); err != nil {
			return fmt.Errorf("failed to insert tree record for run %s: %w", r.RunID, err)
		}
	}
	return tx.Commit(ctx)
}

// InsertComparison stores reconciled comparison rows for one batch.
func (s *PGSink) InsertComparison(ctx context.Context, batchID string, rows []reconcile.ComparisonRow) error {
	query := `
		INSERT INTO exposure_comparison (batch_id, scenario, attack_rate, e_log, e_mix, e_tree, pdr_star)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range rows {
		if _, err := tx.Exec(ctx, query, batchID, r.Scenario, r.AttackRate, r.ELog, r.EMix, r.ETree, r.PDRStar); err != nil {
			return fmt.Errorf("failed to insert comparison row for scenario %s: %w", r.Scenario, err)
		}
	}
	return tx.Commit(ctx)
}
