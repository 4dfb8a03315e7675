package migrations

import (
	"database/sql"
	"fmt"
)

// InitialSchema creates the checkpoint_definitions and checkpoint_instances
// tables. field_schema, applicable_modes, payload, and submit_result are
// stored as JSON text columns, matching the engine's storage convention.
func InitialSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoint_definitions (
			id                              TEXT PRIMARY KEY,
			control_type                    TEXT NOT NULL UNIQUE,
			label                           TEXT NOT NULL,
			description                     TEXT NOT NULL DEFAULT '',
			field_schema                    TEXT NOT NULL DEFAULT '[]',
			pipeline_position               TEXT NOT NULL,
			sort_order                      INTEGER NOT NULL DEFAULT 0,
			applicable_modes                TEXT NOT NULL DEFAULT '[]',
			required                        INTEGER NOT NULL DEFAULT 0,
			timeout_seconds                 INTEGER,
			max_retries                     INTEGER NOT NULL DEFAULT 0,
			circuit_breaker_threshold       INTEGER NOT NULL DEFAULT 0,
			circuit_breaker_window_minutes  INTEGER NOT NULL DEFAULT 0,
			enabled                         INTEGER NOT NULL DEFAULT 1,
			created_at                      TEXT NOT NULL,
			updated_at                      TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create checkpoint_definitions: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_checkpoint_definitions_position
		ON checkpoint_definitions(pipeline_position, sort_order, created_at)
	`)
	if err != nil {
		return fmt.Errorf("create checkpoint_definitions position index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoint_instances (
			id             TEXT PRIMARY KEY,
			task_id        TEXT NOT NULL,
			definition_id  TEXT NOT NULL,
			control_type   TEXT NOT NULL,
			field_schema   TEXT NOT NULL DEFAULT '[]',
			state          TEXT NOT NULL,
			payload        TEXT,
			submit_result  TEXT,
			attempt_count  INTEGER NOT NULL DEFAULT 0,
			last_error     TEXT NOT NULL DEFAULT '',
			failed_at      TEXT,
			offered_at     TEXT,
			submitted_at   TEXT,
			created_at     TEXT NOT NULL,
			UNIQUE(task_id, definition_id),
			FOREIGN KEY (definition_id) REFERENCES checkpoint_definitions(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("create checkpoint_instances: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_checkpoint_instances_task
		ON checkpoint_instances(task_id)
	`)
	if err != nil {
		return fmt.Errorf("create checkpoint_instances task index: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_checkpoint_instances_failures
		ON checkpoint_instances(definition_id, state, failed_at)
	`)
	if err != nil {
		return fmt.Errorf("create checkpoint_instances failures index: %w", err)
	}

	return nil
}
