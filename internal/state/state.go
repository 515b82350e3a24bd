// Package state persists regeneration run history in a small SQLite
// database next to the artifacts. Recording the modification time of every
// input a run consumed is what lets a later trigger decide "inputs
// unchanged, nothing to do" even across process restarts.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcomes a run can end in.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeDisabled  = "disabled"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	domain      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	artifacts   INTEGER NOT NULL,
	errors      INTEGER NOT NULL,
	warnings    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain, finished_at);

CREATE TABLE IF NOT EXISTS run_inputs (
	run_id TEXT NOT NULL,
	path   TEXT NOT NULL,
	mtime  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_inputs_run ON run_inputs(run_id);

CREATE TABLE IF NOT EXISTS run_errors (
	run_id  TEXT NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_errors_run ON run_errors(run_id);
`

// Run is one recorded regeneration.
type Run struct {
	ID        string
	Domain    string
	Started   time.Time
	Finished  time.Time
	Outcome   string
	Artifacts int
	Errors    int
	Warnings  int
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init state schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// RecordRun stores a run, its consumed inputs, and its error messages in one
// transaction.
func (s *Store) RecordRun(run Run, inputs map[string]time.Time, messages []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, domain, started_at, finished_at, outcome, artifacts, errors, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Domain, run.Started.UnixMilli(), run.Finished.UnixMilli(),
		run.Outcome, run.Artifacts, run.Errors, run.Warnings,
	)
	if err != nil {
		return err
	}
	for path, mtime := range inputs {
		if _, err := tx.Exec(`INSERT INTO run_inputs (run_id, path, mtime) VALUES (?, ?, ?)`,
			run.ID, path, mtime.UnixNano()); err != nil {
			return err
		}
	}
	for _, msg := range messages {
		if _, err := tx.Exec(`INSERT INTO run_errors (run_id, message) VALUES (?, ?)`,
			run.ID, msg); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LastRun returns the most recent run for a domain, or nil when the domain
// has never run.
func (s *Store) LastRun(domain string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, domain, started_at, finished_at, outcome, artifacts, errors, warnings
		 FROM runs WHERE domain = ? ORDER BY finished_at DESC, rowid DESC LIMIT 1`, domain)

	var run Run
	var started, finished int64
	err := row.Scan(&run.ID, &run.Domain, &started, &finished, &run.Outcome, &run.Artifacts, &run.Errors, &run.Warnings)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.Started = time.UnixMilli(started)
	run.Finished = time.UnixMilli(finished)
	return &run, nil
}

// LastInputs returns the input mtimes recorded by the domain's most recent
// committed run. An empty map means no committed run exists yet.
func (s *Store) LastInputs(domain string) (map[string]time.Time, error) {
	row := s.db.QueryRow(
		`SELECT id FROM runs WHERE domain = ? AND outcome = ?
		 ORDER BY finished_at DESC, rowid DESC LIMIT 1`, domain, OutcomeCommitted)

	var runID string
	err := row.Scan(&runID)
	if err == sql.ErrNoRows {
		return map[string]time.Time{}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT path, mtime FROM run_inputs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var path string
		var mtime int64
		if err := rows.Scan(&path, &mtime); err != nil {
			return nil, err
		}
		out[path] = time.Unix(0, mtime)
	}
	return out, rows.Err()
}

// RecentMessages returns up to n error/warning messages from the domain's
// most recent run.
func (s *Store) RecentMessages(domain string, n int) ([]string, error) {
	last, err := s.LastRun(domain)
	if err != nil || last == nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT message FROM run_errors WHERE run_id = ? LIMIT ?`, last.ID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
