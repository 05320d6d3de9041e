// Package store provides SQLite persistence for suggestion candidates and
// query history. A single database file backs both, opened with one
// connection since the pure-Go driver serializes writers anyway.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

// DB wraps the shared SQLite handle.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, kerrors.New(kerrors.ErrCodeStoreOpen, "database path is required", nil)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeStoreOpen, "open database", err)
	}

	// The driver serializes writes; a single connection avoids SQLITE_BUSY
	// and keeps :memory: databases on one handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, kerrors.New(kerrors.ErrCodeStoreOpen, "apply pragmas", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{sql: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	-- Suggestion candidates from all sources. Uniqueness mirrors the
	-- engine's merge key.
	CREATE TABLE IF NOT EXISTS suggestions (
		text            TEXT NOT NULL,
		normalized_text TEXT NOT NULL,
		source          TEXT NOT NULL,
		origin_document TEXT NOT NULL DEFAULT '',
		frequency       INTEGER NOT NULL DEFAULT 1,
		last_seen       INTEGER NOT NULL,
		PRIMARY KEY (normalized_text, source, origin_document)
	);
	CREATE INDEX IF NOT EXISTS idx_suggestions_origin ON suggestions(origin_document);

	-- Query history, append-only until pruned.
	CREATE TABLE IF NOT EXISTS history (
		id           TEXT PRIMARY KEY,
		query        TEXT NOT NULL,
		intent       TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		top_score    REAL,
		duration_ns  INTEGER NOT NULL,
		executed_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_executed_at ON history(executed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_history_zero ON history(result_count) WHERE result_count = 0;
	`

	if _, err := db.Exec(schema); err != nil {
		return kerrors.New(kerrors.ErrCodeStoreOpen, fmt.Sprintf("create schema: %v", err), err)
	}
	return nil
}

// Suggestions returns the suggestion candidate store.
func (d *DB) Suggestions() *SuggestionStore {
	return &SuggestionStore{db: d.sql}
}

// History returns the query history store.
func (d *DB) History() *HistoryStore {
	return &HistoryStore{db: d.sql}
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.sql.Close()
}
