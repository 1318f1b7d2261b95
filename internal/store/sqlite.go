package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/clearline-health/claimscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	threshold      REAL NOT NULL,
	provider_count INTEGER NOT NULL DEFAULT 0,
	flag_count     INTEGER NOT NULL DEFAULT 0,
	started_at     DATETIME NOT NULL,
	finished_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_results (
	run_id        TEXT NOT NULL REFERENCES scan_runs(id),
	rank          INTEGER NOT NULL,
	provider_id   TEXT NOT NULL,
	overall_score REAL NOT NULL,
	red_flags     TEXT NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_scan_results_provider ON scan_results(provider_id);
CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveScan(ctx context.Context, run model.ScanRun, results []model.ScanResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scan_runs (id, status, threshold, provider_count, flag_count, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.Threshold, run.ProviderCount, run.FlagCount,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	for rank, result := range results {
		flagsJSON, err := json.Marshal(result.RedFlags)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal flags for %s", result.ProviderID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO scan_results (run_id, rank, provider_id, overall_score, red_flags)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID, rank+1, result.ProviderID, result.OverallScore, string(flagsJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result for %s", result.ProviderID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit scan")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ScanRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, threshold, provider_count, flag_count, started_at, finished_at
		 FROM scan_runs WHERE id = ?`, runID)

	var run model.ScanRun
	var status string
	err := row.Scan(&run.ID, &status, &run.Threshold, &run.ProviderCount, &run.FlagCount,
		&run.StartedAt, &run.FinishedAt)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	run.Status = model.ScanRunStatus(status)
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.ScanRun, error) {
	query := `SELECT id, status, threshold, provider_count, flag_count, started_at, finished_at
		FROM scan_runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var run model.ScanRun
		var status string
		if err := rows.Scan(&run.ID, &status, &run.Threshold, &run.ProviderCount,
			&run.FlagCount, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		run.Status = model.ScanRunStatus(status)
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) ResultsForRun(ctx context.Context, runID string) ([]model.ScanResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider_id, overall_score, red_flags
		 FROM scan_results WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: results for run %s", runID)
	}
	defer rows.Close()

	return scanResults(rows)
}

func (s *SQLiteStore) LatestResultForProvider(ctx context.Context, providerID string) (*model.ScanResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT r.provider_id, r.overall_score, r.red_flags
		 FROM scan_results r
		 JOIN scan_runs sr ON sr.id = r.run_id
		 WHERE r.provider_id = ?
		 ORDER BY sr.started_at DESC
		 LIMIT 1`, providerID)

	result, err := scanResult(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest result for %s", providerID)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*model.ScanResult, error) {
	var result model.ScanResult
	var flagsJSON string
	if err := row.Scan(&result.ProviderID, &result.OverallScore, &flagsJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(flagsJSON), &result.RedFlags); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal flags")
	}
	return &result, nil
}

func scanResults(rows *sql.Rows) ([]model.ScanResult, error) {
	var results []model.ScanResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan result row")
		}
		results = append(results, *result)
	}
	return results, eris.Wrap(rows.Err(), "store: iterate results")
}
