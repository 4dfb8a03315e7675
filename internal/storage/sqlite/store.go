// Package sqlite implements the Definition Store and Instance Store on top
// of a pure-Go SQLite driver, following the raw-SQL, fmt.Errorf-wrapped
// style of the beads example's storage layer.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/finrisk/checkpointengine/internal/storage/sqlite/migrations"
)

// Store wraps a database/sql handle shared by the Definition Store and
// Instance Store implementations in this package.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path, applies
// pending migrations, and sets the pragmas the engine relies on: foreign
// keys and WAL mode for concurrent request handlers.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}

	// The pure-Go sqlite driver doesn't support concurrent writers over one
	// connection well without WAL; a single shared *sql.DB connection pool
	// with busy_timeout covers the engine's short-lived request handlers.
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for callers that need it directly.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }
