package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
)

// DefinitionStore is the sqlite-backed checkpoint.DefinitionStore.
type DefinitionStore struct {
	db *sql.DB
}

func NewDefinitionStore(s *Store) *DefinitionStore {
	return &DefinitionStore{db: s.db}
}

func (s *DefinitionStore) Create(ctx context.Context, def checkpoint.Definition) (checkpoint.Definition, error) {
	def.ID = uuid.NewString()
	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now

	schemaJSON, err := json.Marshal(def.FieldSchema)
	if err != nil {
		return checkpoint.Definition{}, fmt.Errorf("marshal field_schema: %w", err)
	}
	modesJSON, err := json.Marshal(def.ApplicableModes)
	if err != nil {
		return checkpoint.Definition{}, fmt.Errorf("marshal applicable_modes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoint_definitions (
			id, control_type, label, description, field_schema, pipeline_position,
			sort_order, applicable_modes, required, timeout_seconds, max_retries,
			circuit_breaker_threshold, circuit_breaker_window_minutes, enabled,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, def.ID, def.ControlType, def.Label, def.Description, string(schemaJSON), string(def.PipelinePosition),
		def.SortOrder, string(modesJSON), boolToInt(def.Required), def.TimeoutSeconds, def.MaxRetries,
		def.CircuitBreakerThreshold, def.CircuitBreakerWindowMinutes, boolToInt(def.Enabled),
		formatTime(def.CreatedAt), formatTime(def.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return checkpoint.Definition{}, checkpoint.ErrDuplicateControlType
		}
		return checkpoint.Definition{}, fmt.Errorf("insert checkpoint_definition: %w", err)
	}

	return def, nil
}

func (s *DefinitionStore) Update(ctx context.Context, id string, patch checkpoint.DefinitionPatch) (checkpoint.Definition, error) {
	def, err := s.GetByID(ctx, id)
	if err != nil {
		return checkpoint.Definition{}, err
	}

	if patch.Label != nil {
		def.Label = *patch.Label
	}
	if patch.Description != nil {
		def.Description = *patch.Description
	}
	if patch.FieldSchemaSet {
		def.FieldSchema = patch.FieldSchema
	}
	if patch.PipelinePosition != nil {
		def.PipelinePosition = *patch.PipelinePosition
	}
	if patch.SortOrder != nil {
		def.SortOrder = *patch.SortOrder
	}
	if patch.ApplicableModesSet {
		def.ApplicableModes = patch.ApplicableModes
	}
	if patch.Required != nil {
		def.Required = *patch.Required
	}
	if patch.TimeoutSeconds != nil {
		def.TimeoutSeconds = *patch.TimeoutSeconds
	}
	if patch.MaxRetries != nil {
		def.MaxRetries = *patch.MaxRetries
	}
	if patch.CircuitBreakerThreshold != nil {
		def.CircuitBreakerThreshold = *patch.CircuitBreakerThreshold
	}
	if patch.CircuitBreakerWindowMinutes != nil {
		def.CircuitBreakerWindowMinutes = *patch.CircuitBreakerWindowMinutes
	}
	def.UpdatedAt = time.Now().UTC()

	schemaJSON, err := json.Marshal(def.FieldSchema)
	if err != nil {
		return checkpoint.Definition{}, fmt.Errorf("marshal field_schema: %w", err)
	}
	modesJSON, err := json.Marshal(def.ApplicableModes)
	if err != nil {
		return checkpoint.Definition{}, fmt.Errorf("marshal applicable_modes: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE checkpoint_definitions SET
			label = ?, description = ?, field_schema = ?, pipeline_position = ?,
			sort_order = ?, applicable_modes = ?, required = ?, timeout_seconds = ?,
			max_retries = ?, circuit_breaker_threshold = ?, circuit_breaker_window_minutes = ?,
			updated_at = ?
		WHERE id = ?
	`, def.Label, def.Description, string(schemaJSON), string(def.PipelinePosition),
		def.SortOrder, string(modesJSON), boolToInt(def.Required), def.TimeoutSeconds,
		def.MaxRetries, def.CircuitBreakerThreshold, def.CircuitBreakerWindowMinutes,
		formatTime(def.UpdatedAt), id)
	if err != nil {
		return checkpoint.Definition{}, fmt.Errorf("update checkpoint_definition: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return checkpoint.Definition{}, checkpoint.ErrNotFound
	}

	return def, nil
}

func (s *DefinitionStore) Toggle(ctx context.Context, id string, enabled bool) (checkpoint.Definition, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE checkpoint_definitions SET enabled = ?, updated_at = ? WHERE id = ?
	`, boolToInt(enabled), formatTime(now), id)
	if err != nil {
		return checkpoint.Definition{}, fmt.Errorf("toggle checkpoint_definition: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return checkpoint.Definition{}, checkpoint.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

const definitionColumns = `
	id, control_type, label, description, field_schema, pipeline_position,
	sort_order, applicable_modes, required, timeout_seconds, max_retries,
	circuit_breaker_threshold, circuit_breaker_window_minutes, enabled,
	created_at, updated_at
`

func (s *DefinitionStore) GetByID(ctx context.Context, id string) (checkpoint.Definition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM checkpoint_definitions WHERE id = ?`, id)
	return scanDefinition(row)
}

func (s *DefinitionStore) GetByControlType(ctx context.Context, controlType string) (checkpoint.Definition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM checkpoint_definitions WHERE control_type = ?`, controlType)
	return scanDefinition(row)
}

func (s *DefinitionStore) List(ctx context.Context, includeDisabled bool) ([]checkpoint.Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM checkpoint_definitions`
	if !includeDisabled {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY pipeline_position ASC, sort_order ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list checkpoint_definitions: %w", err)
	}
	defer rows.Close()

	var out []checkpoint.Definition
	for rows.Next() {
		def, err := scanDefinitionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (checkpoint.Definition, error) {
	def, err := scanDefinitionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return checkpoint.Definition{}, checkpoint.ErrNotFound
	}
	return def, err
}

func scanDefinitionRow(row rowScanner) (checkpoint.Definition, error) {
	var (
		def                          checkpoint.Definition
		position                     string
		schemaJSON, modesJSON        string
		requiredInt, enabledInt      int
		timeoutSeconds               sql.NullInt64
		createdAt, updatedAt         string
	)

	err := row.Scan(
		&def.ID, &def.ControlType, &def.Label, &def.Description, &schemaJSON, &position,
		&def.SortOrder, &modesJSON, &requiredInt, &timeoutSeconds, &def.MaxRetries,
		&def.CircuitBreakerThreshold, &def.CircuitBreakerWindowMinutes, &enabledInt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return checkpoint.Definition{}, err
	}

	def.PipelinePosition = checkpoint.PipelinePosition(position)
	def.Required = requiredInt != 0
	def.Enabled = enabledInt != 0
	if timeoutSeconds.Valid {
		v := int(timeoutSeconds.Int64)
		def.TimeoutSeconds = &v
	}
	if err := json.Unmarshal([]byte(schemaJSON), &def.FieldSchema); err != nil {
		return checkpoint.Definition{}, fmt.Errorf("unmarshal field_schema: %w", err)
	}
	if err := json.Unmarshal([]byte(modesJSON), &def.ApplicableModes); err != nil {
		return checkpoint.Definition{}, fmt.Errorf("unmarshal applicable_modes: %w", err)
	}
	def.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return checkpoint.Definition{}, err
	}
	def.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return checkpoint.Definition{}, err
	}

	return def, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
