// Package history keeps a SQLite log of every apply attempt.
//
// The database is opened with the usual production pragmas:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	_ "modernc.org/sqlite"

	"github.com/entrhq/quickapply/pkg/apply"
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	id            TEXT PRIMARY KEY,
	job_url       TEXT NOT NULL,
	job_id        TEXT NOT NULL DEFAULT '',
	outcome       TEXT NOT NULL,
	reason        TEXT NOT NULL DEFAULT '',
	steps         INTEGER NOT NULL DEFAULT 0,
	evidence_path TEXT NOT NULL DEFAULT '',
	applied_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_applied_at ON applications(applied_at);
CREATE INDEX IF NOT EXISTS idx_applications_job_id ON applications(job_id);
`

// Entry is one stored attempt.
type Entry struct {
	ID           string        `json:"id"`
	JobURL       string        `json:"job_url"`
	JobID        string        `json:"job_id"`
	Outcome      apply.Outcome `json:"outcome"`
	Reason       apply.Reason  `json:"reason,omitempty"`
	Steps        int           `json:"steps"`
	EvidencePath string        `json:"evidence_path,omitempty"`
	AppliedAt    time.Time     `json:"applied_at"`
}

// Store is a SQLite-backed apply.Recorder.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories as needed. Use ":memory:" for a throwaway store.
//
// SQLite opens real files, so the directory is always created on the OS
// filesystem.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := afero.NewOsFs().MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	// Pragmas are per connection and a single CLI writer is all we need.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: exec schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished attempt. Recording the same attempt twice
// overwrites the earlier row.
func (s *Store) Record(ctx context.Context, a *apply.Attempt) error {
	at := a.FinishedAt
	if at.IsZero() {
		at = a.StartedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO applications
			(id, job_url, job_id, outcome, reason, steps, evidence_path, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.JobURL, JobID(a.JobURL), string(a.Outcome), string(a.Reason),
		a.Steps, a.EvidencePath, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", a.ID, err)
	}
	return nil
}

// List returns the most recent entries first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_url, job_id, outcome, reason, steps, evidence_path, applied_at
		FROM applications
		ORDER BY applied_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			outcome   string
			reason    string
			appliedAt int64
		)
		if err := rows.Scan(&e.ID, &e.JobURL, &e.JobID, &outcome, &reason, &e.Steps, &e.EvidencePath, &appliedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Outcome = apply.Outcome(outcome)
		e.Reason = apply.Reason(reason)
		e.AppliedAt = time.UnixMilli(appliedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return entries, nil
}

// JobID extracts the job identifier from a job URL: its last path
// segment, without query or fragment.
func JobID(jobURL string) string {
	u, err := url.Parse(jobURL)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
