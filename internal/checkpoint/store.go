package checkpoint

import (
	"context"
	"time"
)

// DefinitionStore persists CheckpointDefinition records.
type DefinitionStore interface {
	// Create inserts a new definition. Returns ErrDuplicateControlType if
	// control_type already exists.
	Create(ctx context.Context, def Definition) (Definition, error)

	// Update applies a partial patch. Returns ErrNotFound if id is unknown.
	Update(ctx context.Context, id string, patch DefinitionPatch) (Definition, error)

	// Toggle flips enabled to the given value and refreshes updated_at.
	Toggle(ctx context.Context, id string, enabled bool) (Definition, error)

	// GetByID returns ErrNotFound if id is unknown.
	GetByID(ctx context.Context, id string) (Definition, error)

	// GetByControlType returns ErrNotFound if no such definition exists.
	GetByControlType(ctx context.Context, controlType string) (Definition, error)

	// List returns definitions ordered by (pipeline_position, sort_order,
	// created_at). When includeDisabled is false, enabled=false rows are
	// omitted.
	List(ctx context.Context, includeDisabled bool) ([]Definition, error)
}

// InstancePatch carries the fields a transition may update. Nil pointer
// fields are left unchanged by the store; the caller sets only the
// timestamp appropriate to the target state.
type InstancePatch struct {
	State        InstanceState
	Payload      map[string]any
	PayloadSet   bool
	SubmitResult map[string]any
	AttemptCount *int
	LastError    *string
	ClearError   bool
	FailedAt     *time.Time
	OfferedAt    *time.Time
	SubmittedAt  *time.Time
}

// InstanceStore persists CheckpointInstance rows and their transitions.
type InstanceStore interface {
	// Find returns ErrNotFound if no instance exists for (taskID, definitionID).
	Find(ctx context.Context, taskID, definitionID string) (Instance, error)

	// GetByID returns ErrNotFound if id is unknown.
	GetByID(ctx context.Context, taskID, instanceID string) (Instance, error)

	// Create inserts a new instance in state pending, freezing schema at
	// call time. It is idempotent under the (task_id, definition_id)
	// uniqueness constraint: on a concurrent duplicate insert, Create
	// returns the row that won the race rather than an error.
	Create(ctx context.Context, taskID string, def Definition, payload map[string]any) (Instance, error)

	// Transition is the sole mutator for instance state.
	Transition(ctx context.Context, instanceID string, patch InstancePatch) (Instance, error)

	// ListForTask returns instances for a task, optionally filtered to one
	// pipeline position's definitions.
	ListForTask(ctx context.Context, taskID string, position *PipelinePosition) ([]Instance, error)

	// CountRecentFailures counts transitions to failed/timed_out for
	// definitionID with failed_at within the last windowMinutes, for use by
	// the Failure Tracker's scan strategy.
	CountRecentFailures(ctx context.Context, definitionID string, windowMinutes int) (int, error)
}
