// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite ledger of driver runs and the converter
// invocations each run made.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/feed2pdf/pkg/types"
)

// Store manages the history SQLite database.
type Store struct {
	db *sql.DB
}

// RunRow is one run as listed by Recent.
type RunRow struct {
	RunID         string
	FeedsFile     string
	OutputDir     string
	FailurePolicy types.FailurePolicy
	State         types.RunState
	StartedAt     time.Time
	FinishedAt    time.Time
	Invoked       int
	Succeeded     int
	Failed        int
	Blank         int
}

// Open opens or creates the history database at path, creating its parent
// directory and schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			feeds_file TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			failure_policy TEXT NOT NULL,
			state TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			invoked INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			blank INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invocations (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			line INTEGER NOT NULL,
			url TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			exit_code INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_url ON invocations(url)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores summary and its invocations in a single transaction.
// Recording the same run ID twice replaces the earlier record.
func (s *Store) RecordRun(ctx context.Context, summary types.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invocations WHERE run_id = ?`, summary.RunID); err != nil {
		return fmt.Errorf("clearing invocations for %s: %w", summary.RunID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
			(id, feeds_file, output_dir, failure_policy, state, started_at, finished_at, invoked, succeeded, failed, blank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.FeedsFile, summary.OutputDir, string(summary.FailurePolicy), string(summary.State),
		formatTime(summary.StartedAt), formatTime(summary.FinishedAt),
		summary.Invoked, summary.Succeeded, summary.Failed, summary.Blank,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", summary.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO invocations
			(run_id, seq, line, url, output_dir, started_at, duration_ms, exit_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing invocation insert: %w", err)
	}
	defer stmt.Close()

	for i, inv := range summary.Invocations {
		_, err := stmt.ExecContext(ctx,
			summary.RunID, i, inv.Line, inv.URL, inv.OutputDir,
			formatTime(inv.StartedAt), inv.Duration.Milliseconds(), inv.ExitCode, nullString(inv.Error),
		)
		if err != nil {
			return fmt.Errorf("inserting invocation %d of %s: %w", i, summary.RunID, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first. A limit <= 0 means 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, feeds_file, output_dir, failure_policy, state, started_at, finished_at,
			invoked, succeeded, failed, blank
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			r             RunRow
			policy, state string
			started       string
			finished      sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.FeedsFile, &r.OutputDir, &policy, &state, &started, &finished,
			&r.Invoked, &r.Succeeded, &r.Failed, &r.Blank); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.FailurePolicy = types.FailurePolicy(policy)
		r.State = types.RunState(state)
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Invocations returns the invocations of runID in file order. When
// failedOnly is set, successful invocations are left out.
func (s *Store) Invocations(ctx context.Context, runID string, failedOnly bool) ([]types.Invocation, error) {
	query := `SELECT line, url, output_dir, started_at, duration_ms, exit_code, error
		FROM invocations WHERE run_id = ?`
	if failedOnly {
		query += ` AND error IS NOT NULL`
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying invocations for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []types.Invocation
	for rows.Next() {
		var (
			inv        types.Invocation
			started    string
			durationMS int64
			errText    sql.NullString
		)
		if err := rows.Scan(&inv.Line, &inv.URL, &inv.OutputDir, &started, &durationMS, &inv.ExitCode, &errText); err != nil {
			return nil, fmt.Errorf("scanning invocation: %w", err)
		}
		inv.StartedAt = parseTime(started)
		inv.Duration = time.Duration(durationMS) * time.Millisecond
		inv.Error = errText.String
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Failures returns the failed invocations of runID.
func (s *Store) Failures(ctx context.Context, runID string) ([]types.Invocation, error) {
	return s.Invocations(ctx, runID, true)
}

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
