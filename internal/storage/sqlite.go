// Package storage persists the most recent dispatch record in SQLite so the
// /logs endpoint survives a restart. Only the latest record is kept, a
// singleton row, not a history.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mattjoyce/pushgate/internal/execlog"
)

// Open opens (and creates if needed) the SQLite database at path and
// ensures the last_run table exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := validateFilesystem(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS last_run (
  id        INTEGER PRIMARY KEY CHECK (id = 1),
  hook      TEXT NOT NULL,
  branch    TEXT NOT NULL,
  exit_code INTEGER NOT NULL,
  stdout    TEXT NOT NULL,
  stderr    TEXT NOT NULL,
  ran_at    TEXT NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap sqlite: %w", err)
	}

	return db, nil
}

// LastRunStore reads and writes the singleton last-run row.
type LastRunStore struct {
	db *sql.DB
}

// NewLastRunStore wraps an open database.
func NewLastRunStore(db *sql.DB) *LastRunStore {
	return &LastRunStore{db: db}
}

// SaveLastRun upserts the record into the singleton row.
func (s *LastRunStore) SaveLastRun(ctx context.Context, rec execlog.Record) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO last_run(id, hook, branch, exit_code, stdout, stderr, ran_at)
VALUES(1, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  hook      = excluded.hook,
  branch    = excluded.branch,
  exit_code = excluded.exit_code,
  stdout    = excluded.stdout,
  stderr    = excluded.stderr,
  ran_at    = excluded.ran_at;
`, rec.Hook, rec.Branch, rec.ExitCode, rec.Stdout, rec.Stderr,
		rec.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save last run: %w", err)
	}
	return nil
}

// LoadLastRun returns the persisted record, or ok=false when none exists.
func (s *LastRunStore) LoadLastRun(ctx context.Context) (execlog.Record, bool, error) {
	var (
		rec    execlog.Record
		ranAtS string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT hook, branch, exit_code, stdout, stderr, ran_at FROM last_run WHERE id = 1;",
	).Scan(&rec.Hook, &rec.Branch, &rec.ExitCode, &rec.Stdout, &rec.Stderr, &ranAtS)
	if errors.Is(err, sql.ErrNoRows) {
		return execlog.Record{}, false, nil
	}
	if err != nil {
		return execlog.Record{}, false, fmt.Errorf("load last run: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, ranAtS); err == nil {
		rec.At = t
	}
	return rec, true, nil
}
