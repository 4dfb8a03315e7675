// Package checkpoint implements the checkpoint definition registry, the
// per-task instance state machine, the resolver, and the lifecycle
// controller that together drive the human-in-the-loop pipeline.
package checkpoint

import (
	"time"

	"github.com/finrisk/checkpointengine/internal/fieldschema"
)

// PipelinePosition is one of the fixed seams in the chat pipeline at which
// checkpoints may be offered.
type PipelinePosition string

const (
	AfterRetrieval  PipelinePosition = "after_retrieval"
	AfterGeneration PipelinePosition = "after_generation"
	PostGeneration  PipelinePosition = "post_generation"
)

func (p PipelinePosition) Valid() bool {
	switch p {
	case AfterRetrieval, AfterGeneration, PostGeneration:
		return true
	}
	return false
}

// AnyMode is the wildcard applicable_modes entry meaning "every mode".
const AnyMode = "*"

// InstanceState is a node in the per-task checkpoint instance state machine.
type InstanceState string

const (
	StatePending   InstanceState = "pending"
	StateOffered   InstanceState = "offered"
	StateActive    InstanceState = "active"
	StateSubmitted InstanceState = "submitted"
	StateSkipped   InstanceState = "skipped"
	StateFailed    InstanceState = "failed"
	StateTimedOut  InstanceState = "timed_out"
	StateCollapsed InstanceState = "collapsed"
)

// Terminal reports whether the state admits no further transitions.
func (s InstanceState) Terminal() bool {
	switch s {
	case StateSubmitted, StateSkipped, StateCollapsed:
		return true
	}
	return false
}

// Definition is an admin-owned template describing one checkpoint kind.
type Definition struct {
	ID                          string            `json:"id"`
	ControlType                 string            `json:"control_type"`
	Label                       string            `json:"label"`
	Description                 string            `json:"description"`
	FieldSchema                 fieldschema.Schema `json:"field_schema"`
	PipelinePosition            PipelinePosition  `json:"pipeline_position"`
	SortOrder                   int               `json:"sort_order"`
	ApplicableModes             []string          `json:"applicable_modes"`
	Required                    bool              `json:"required"`
	TimeoutSeconds              *int              `json:"timeout_seconds"`
	MaxRetries                  int               `json:"max_retries"`
	CircuitBreakerThreshold     int               `json:"circuit_breaker_threshold"`
	CircuitBreakerWindowMinutes int               `json:"circuit_breaker_window_minutes"`
	Enabled                     bool              `json:"enabled"`
	CreatedAt                   time.Time         `json:"created_at"`
	UpdatedAt                   time.Time         `json:"updated_at"`
}

// AppliesToMode reports whether the definition is offered in the given task
// mode, honoring the "*" wildcard.
func (d Definition) AppliesToMode(mode string) bool {
	for _, m := range d.ApplicableModes {
		if m == AnyMode || m == mode {
			return true
		}
	}
	return false
}

// DefinitionPatch carries a partial update to a Definition. Nil fields are
// left unchanged; control_type is immutable and has no patch field.
type DefinitionPatch struct {
	Label                       *string
	Description                 *string
	FieldSchema                 fieldschema.Schema
	FieldSchemaSet              bool
	PipelinePosition            *PipelinePosition
	SortOrder                   *int
	ApplicableModes             []string
	ApplicableModesSet          bool
	Required                    *bool
	TimeoutSeconds              **int
	MaxRetries                  *int
	CircuitBreakerThreshold     *int
	CircuitBreakerWindowMinutes *int
}

// Instance is a per-task execution record for one definition.
type Instance struct {
	ID           string             `json:"id"`
	TaskID       string             `json:"task_id"`
	DefinitionID string             `json:"definition_id"`
	ControlType  string             `json:"control_type"`
	FieldSchema  fieldschema.Schema `json:"field_schema"`

	State InstanceState `json:"state"`

	Payload      map[string]any `json:"payload,omitempty"`
	SubmitResult map[string]any `json:"submit_result,omitempty"`

	AttemptCount int        `json:"attempt_count"`
	LastError    string     `json:"last_error,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	OfferedAt    *time.Time `json:"offered_at,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RetryExhausted reports whether the instance has used up its retry budget
// in a failure state, per the definition's max_retries.
func (i Instance) RetryExhausted(maxRetries int) bool {
	return (i.State == StateFailed || i.State == StateTimedOut) && i.AttemptCount >= maxRetries
}
