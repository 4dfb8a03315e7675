// Package migrations holds the checkpoint engine's schema changes, one
// function per numbered file, applied in order by Run.
package migrations

import (
	"database/sql"
	"fmt"
)

type migration struct {
	name  string
	apply func(*sql.DB) error
}

// all lists every migration in application order. Each function must be
// idempotent (CREATE TABLE/INDEX IF NOT EXISTS) since Run also re-applies
// against a database that already has some migrations recorded, as a
// defense against partially-applied upgrades.
var all = []migration{
	{name: "001_initial_schema", apply: InitialSchema},
}

// Run creates the schema_migrations bookkeeping table if needed and applies
// every migration not yet recorded there, in order. Migrations run directly
// on db, not inside a transaction; each is recorded after it succeeds.
func Run(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name        TEXT PRIMARY KEY,
			applied_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range all {
		var applied bool
		err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = ?)`, m.name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.name, err)
		}
		if applied {
			continue
		}

		if err := m.apply(db); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}

		if _, err := db.Exec(`INSERT INTO schema_migrations (name) VALUES (?)`, m.name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
	}

	return nil
}
