package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"spool/internal/config"
	"spool/internal/pipeline"
	"spool/internal/staging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes shape; the history
// database is disposable, so a mismatch just asks the user to delete it.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt *time.Time
	DryRun     bool
	Summary    pipeline.Summary
}

// Outcome is one recorded per-file disposition.
type Outcome struct {
	Source     string
	Target     string
	Status     string
	Detail     string
	RecordedAt time.Time
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordRunStart inserts a new run row.
func (s *Store) RecordRunStart(ctx context.Context, runID, root string, dryRun bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, root, started_at, dry_run) VALUES (?, ?, ?, ?)`,
		runID, root, time.Now().UTC().Format(time.RFC3339Nano), boolToInt(dryRun))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordRunFinish stamps the end time and final counters on a run.
func (s *Store) RecordRunFinish(ctx context.Context, runID string, summary pipeline.Summary) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, ok = ?, skip = ?, manual = ?, fail = ?, dry = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		summary.OK, summary.Skip, summary.Manual, summary.Fail, summary.DryRun,
		runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordOutcomes appends per-file dispositions for a run in one transaction.
func (s *Store) RecordOutcomes(ctx context.Context, runID string, results []staging.Result) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outcomes tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, result := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO file_outcomes (run_id, source, target, status, detail, recorded_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			runID, result.Source, nullableString(result.Target), result.Status,
			nullableString(result.Detail), stamp); err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcomes: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first, at most limit rows.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, started_at, finished_at, dry_run, ok, skip, manual, fail, dry
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		var finished sql.NullString
		var dryRun int
		if err := rows.Scan(&run.ID, &run.Root, &started, &finished, &dryRun,
			&run.Summary.OK, &run.Summary.Skip, &run.Summary.Manual,
			&run.Summary.Fail, &run.Summary.DryRun); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseStamp(started)
		if finished.Valid {
			stamp := parseStamp(finished.String)
			run.FinishedAt = &stamp
		}
		run.DryRun = dryRun != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunOutcomes returns the per-file dispositions of one run in insertion order.
func (s *Store) RunOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, status, detail, recorded_at
         FROM file_outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var outcome Outcome
		var target, detail sql.NullString
		var recorded string
		if err := rows.Scan(&outcome.Source, &target, &outcome.Status, &detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcome.Target = target.String
		outcome.Detail = detail.String
		outcome.RecordedAt = parseStamp(recorded)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseStamp(value string) time.Time {
	stamp, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return stamp
}
