package sink

import "context"

// migrate creates the necessary database tables
func (s *PGSink) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS exposure_mix (
		id BIGSERIAL PRIMARY KEY,
		batch_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		scenario TEXT,
		attack_rate DOUBLE PRECISION,
		attacker INTEGER NOT NULL,
		e_mix DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS q_values (
		id BIGSERIAL PRIMARY KEY,
		batch_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		scenario TEXT,
		attack_rate DOUBLE PRECISION,
		node INTEGER NOT NULL,
		q DOUBLE PRECISION NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exposure_tree (
		id BIGSERIAL PRIMARY KEY,
		batch_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		scenario TEXT,
		attack_rate DOUBLE PRECISION,
		attacker INTEGER NOT NULL,
		e_tree DOUBLE PRECISION NOT NULL,
		subtree_size INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exposure_comparison (
		id BIGSERIAL PRIMARY KEY,
		batch_id TEXT NOT NULL,
		scenario TEXT NOT NULL,
		attack_rate TEXT,
		e_log DOUBLE PRECISION,
		e_mix DOUBLE PRECISION,
		e_tree DOUBLE PRECISION,
		pdr_star DOUBLE PRECISION
	);

	CREATE INDEX IF NOT EXISTS idx_exposure_mix_batch ON exposure_mix(batch_id);
	CREATE INDEX IF NOT EXISTS idx_exposure_mix_run ON exposure_mix(run_id);
	CREATE INDEX IF NOT EXISTS idx_q_values_batch ON q_values(batch_id);
	CREATE INDEX IF NOT EXISTS idx_exposure_tree_batch ON exposure_tree(batch_id);
	CREATE INDEX IF NOT EXISTS idx_exposure_comparison_batch ON exposure_comparison(batch_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
