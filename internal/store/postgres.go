package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/clearline-health/claimscan/internal/model"
)

// PgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres connects to Postgres and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (or mock).
func NewPostgresFromPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	threshold      DOUBLE PRECISION NOT NULL,
	provider_count INTEGER NOT NULL DEFAULT 0,
	flag_count     INTEGER NOT NULL DEFAULT 0,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_results (
	run_id        TEXT NOT NULL REFERENCES scan_runs(id),
	rank          INTEGER NOT NULL,
	provider_id   TEXT NOT NULL,
	overall_score DOUBLE PRECISION NOT NULL,
	red_flags     JSONB NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_scan_results_provider ON scan_results(provider_id);
CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveScan(ctx context.Context, run model.ScanRun, results []model.ScanResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO scan_runs (id, status, threshold, provider_count, flag_count, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, string(run.Status), run.Threshold, run.ProviderCount, run.FlagCount,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	for rank, result := range results {
		flagsJSON, err := json.Marshal(result.RedFlags)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal flags for %s", result.ProviderID)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO scan_results (run_id, rank, provider_id, overall_score, red_flags)
			 VALUES ($1, $2, $3, $4, $5)`,
			run.ID, rank+1, result.ProviderID, result.OverallScore, flagsJSON,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert result for %s", result.ProviderID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit scan")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ScanRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, threshold, provider_count, flag_count, started_at, finished_at
		 FROM scan_runs WHERE id = $1`, runID)

	var run model.ScanRun
	var status string
	err := row.Scan(&run.ID, &status, &run.Threshold, &run.ProviderCount, &run.FlagCount,
		&run.StartedAt, &run.FinishedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	run.Status = model.ScanRunStatus(status)
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.ScanRun, error) {
	query := `SELECT id, status, threshold, provider_count, flag_count, started_at, finished_at
		FROM scan_runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var run model.ScanRun
		var status string
		if err := rows.Scan(&run.ID, &status, &run.Threshold, &run.ProviderCount,
			&run.FlagCount, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run row")
		}
		run.Status = model.ScanRunStatus(status)
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) ResultsForRun(ctx context.Context, runID string) ([]model.ScanResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT provider_id, overall_score, red_flags
		 FROM scan_results WHERE run_id = $1 ORDER BY rank`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: results for run %s", runID)
	}
	defer rows.Close()

	var results []model.ScanResult
	for rows.Next() {
		var result model.ScanResult
		var flagsJSON []byte
		if err := rows.Scan(&result.ProviderID, &result.OverallScore, &flagsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result row")
		}
		if err := json.Unmarshal(flagsJSON, &result.RedFlags); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal flags")
		}
		results = append(results, result)
	}
	return results, eris.Wrap(rows.Err(), "postgres: iterate results")
}

func (s *PostgresStore) LatestResultForProvider(ctx context.Context, providerID string) (*model.ScanResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT r.provider_id, r.overall_score, r.red_flags
		 FROM scan_results r
		 JOIN scan_runs sr ON sr.id = r.run_id
		 WHERE r.provider_id = $1
		 ORDER BY sr.started_at DESC
		 LIMIT 1`, providerID)

	var result model.ScanResult
	var flagsJSON []byte
	err := row.Scan(&result.ProviderID, &result.OverallScore, &flagsJSON)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest result for %s", providerID)
	}
	if err := json.Unmarshal(flagsJSON, &result.RedFlags); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal flags")
	}
	return &result, nil
}
