package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
)

// InstanceStore is the sqlite-backed checkpoint.InstanceStore.
type InstanceStore struct {
	db *sql.DB
}

func NewInstanceStore(s *Store) *InstanceStore {
	return &InstanceStore{db: s.db}
}

const instanceColumns = `
	id, task_id, definition_id, control_type, field_schema, state,
	payload, submit_result, attempt_count, last_error,
	failed_at, offered_at, submitted_at, created_at
`

func (s *InstanceStore) Find(ctx context.Context, taskID, definitionID string) (checkpoint.Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+instanceColumns+` FROM checkpoint_instances WHERE task_id = ? AND definition_id = ?
	`, taskID, definitionID)
	return scanInstance(row)
}

func (s *InstanceStore) GetByID(ctx context.Context, taskID, instanceID string) (checkpoint.Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+instanceColumns+` FROM checkpoint_instances WHERE id = ? AND task_id = ?
	`, instanceID, taskID)
	return scanInstance(row)
}

// Create inserts a new instance in state pending. On a concurrent duplicate
// insert for the same (task_id, definition_id), the UNIQUE constraint
// rejects the loser, which then re-reads and returns the winner's row —
// uniqueness as concurrency control, no explicit locking required.
func (s *InstanceStore) Create(ctx context.Context, taskID string, def checkpoint.Definition, payload map[string]any) (checkpoint.Instance, error) {
	schemaJSON, err := json.Marshal(def.FieldSchema)
	if err != nil {
		return checkpoint.Instance{}, fmt.Errorf("marshal field_schema: %w", err)
	}

	var payloadJSON sql.NullString
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return checkpoint.Instance{}, fmt.Errorf("marshal payload: %w", err)
		}
		payloadJSON = sql.NullString{String: string(b), Valid: true}
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoint_instances (
			id, task_id, definition_id, control_type, field_schema, state,
			payload, attempt_count, last_error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, '', ?)
	`, id, taskID, def.ID, def.ControlType, string(schemaJSON), string(checkpoint.StatePending),
		payloadJSON, formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return s.Find(ctx, taskID, def.ID)
		}
		return checkpoint.Instance{}, fmt.Errorf("insert checkpoint_instance: %w", err)
	}

	return s.Find(ctx, taskID, def.ID)
}

func (s *InstanceStore) Transition(ctx context.Context, instanceID string, patch checkpoint.InstancePatch) (checkpoint.Instance, error) {
	var taskID string
	if err := s.db.QueryRowContext(ctx, `SELECT task_id FROM checkpoint_instances WHERE id = ?`, instanceID).Scan(&taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return checkpoint.Instance{}, checkpoint.ErrNotFound
		}
		return checkpoint.Instance{}, fmt.Errorf("lookup checkpoint_instance: %w", err)
	}

	setClauses := []string{"state = ?"}
	args := []any{string(patch.State)}

	if patch.PayloadSet {
		b, err := json.Marshal(patch.Payload)
		if err != nil {
			return checkpoint.Instance{}, fmt.Errorf("marshal payload: %w", err)
		}
		setClauses = append(setClauses, "payload = ?")
		args = append(args, string(b))
	}
	if patch.SubmitResult != nil {
		b, err := json.Marshal(patch.SubmitResult)
		if err != nil {
			return checkpoint.Instance{}, fmt.Errorf("marshal submit_result: %w", err)
		}
		setClauses = append(setClauses, "submit_result = ?")
		args = append(args, string(b))
	}
	if patch.AttemptCount != nil {
		setClauses = append(setClauses, "attempt_count = ?")
		args = append(args, *patch.AttemptCount)
	}
	if patch.ClearError {
		setClauses = append(setClauses, "last_error = ''")
	} else if patch.LastError != nil {
		setClauses = append(setClauses, "last_error = ?")
		args = append(args, *patch.LastError)
	}
	if patch.FailedAt != nil {
		setClauses = append(setClauses, "failed_at = ?")
		args = append(args, formatTime(*patch.FailedAt))
	}
	if patch.OfferedAt != nil {
		setClauses = append(setClauses, "offered_at = ?")
		args = append(args, formatTime(*patch.OfferedAt))
	}
	if patch.SubmittedAt != nil {
		setClauses = append(setClauses, "submitted_at = ?")
		args = append(args, formatTime(*patch.SubmittedAt))
	}

	query := "UPDATE checkpoint_instances SET " + joinSet(setClauses) + " WHERE id = ?"
	args = append(args, instanceID)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return checkpoint.Instance{}, fmt.Errorf("update checkpoint_instance: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM checkpoint_instances WHERE id = ?`, instanceID)
	return scanInstance(row)
}

func (s *InstanceStore) ListForTask(ctx context.Context, taskID string, position *checkpoint.PipelinePosition) ([]checkpoint.Instance, error) {
	query := `
		SELECT i.id, i.task_id, i.definition_id, i.control_type, i.field_schema, i.state,
			i.payload, i.submit_result, i.attempt_count, i.last_error,
			i.failed_at, i.offered_at, i.submitted_at, i.created_at
		FROM checkpoint_instances i
	`
	args := []any{taskID}
	if position != nil {
		query += ` JOIN checkpoint_definitions d ON d.id = i.definition_id WHERE i.task_id = ? AND d.pipeline_position = ?`
		args = append(args, string(*position))
	} else {
		query += ` WHERE i.task_id = ?`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checkpoint_instances: %w", err)
	}
	defer rows.Close()

	var out []checkpoint.Instance
	for rows.Next() {
		inst, err := scanInstanceRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *InstanceStore) CountRecentFailures(ctx context.Context, definitionID string, windowMinutes int) (int, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(windowMinutes) * time.Minute)
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM checkpoint_instances
		WHERE definition_id = ?
			AND state IN (?, ?)
			AND failed_at IS NOT NULL
			AND failed_at >= ?
	`, definitionID, string(checkpoint.StateFailed), string(checkpoint.StateTimedOut), formatTime(cutoff)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent failures: %w", err)
	}
	return count, nil
}

func scanInstance(row rowScanner) (checkpoint.Instance, error) {
	inst, err := scanInstanceRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return checkpoint.Instance{}, checkpoint.ErrNotFound
	}
	return inst, err
}

func scanInstanceRow(row rowScanner) (checkpoint.Instance, error) {
	var (
		inst                                checkpoint.Instance
		state                               string
		schemaJSON                          string
		payloadJSON, submitResultJSON       sql.NullString
		lastError                           string
		failedAt, offeredAt, submittedAt    sql.NullString
		createdAt                           string
	)

	err := row.Scan(
		&inst.ID, &inst.TaskID, &inst.DefinitionID, &inst.ControlType, &schemaJSON, &state,
		&payloadJSON, &submitResultJSON, &inst.AttemptCount, &lastError,
		&failedAt, &offeredAt, &submittedAt, &createdAt,
	)
	if err != nil {
		return checkpoint.Instance{}, err
	}

	inst.State = checkpoint.InstanceState(state)
	inst.LastError = lastError

	if err := json.Unmarshal([]byte(schemaJSON), &inst.FieldSchema); err != nil {
		return checkpoint.Instance{}, fmt.Errorf("unmarshal field_schema: %w", err)
	}
	if payloadJSON.Valid {
		if err := json.Unmarshal([]byte(payloadJSON.String), &inst.Payload); err != nil {
			return checkpoint.Instance{}, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if submitResultJSON.Valid {
		if err := json.Unmarshal([]byte(submitResultJSON.String), &inst.SubmitResult); err != nil {
			return checkpoint.Instance{}, fmt.Errorf("unmarshal submit_result: %w", err)
		}
	}

	inst.FailedAt, err = nullableTime(failedAt)
	if err != nil {
		return checkpoint.Instance{}, err
	}
	inst.OfferedAt, err = nullableTime(offeredAt)
	if err != nil {
		return checkpoint.Instance{}, err
	}
	inst.SubmittedAt, err = nullableTime(submittedAt)
	if err != nil {
		return checkpoint.Instance{}, err
	}
	inst.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return checkpoint.Instance{}, err
	}

	return inst, nil
}

func nullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func joinSet(clauses []string) string {
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
