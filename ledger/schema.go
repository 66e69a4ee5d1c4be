// Package ledger keeps a SQLite history of upgrade sessions and of every
// flash they performed.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
-- One row per upgrade run
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	firmware TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	outcome TEXT NOT NULL DEFAULT 'running' CHECK(outcome IN ('running', 'ok', 'failed')),
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

-- One row per flash attempt
CREATE TABLE IF NOT EXISTS flashes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	device_id INTEGER NOT NULL,
	block_type TEXT NOT NULL,
	role TEXT NOT NULL,
	hop_count INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	outcome TEXT NOT NULL CHECK(outcome IN ('ok', 'failed')),
	error TEXT,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_flashes_session ON flashes(session_id);
CREATE INDEX IF NOT EXISTS idx_flashes_device ON flashes(device_id);
`

// Store is a ledger database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path, creating its directory. The
// path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates any missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
