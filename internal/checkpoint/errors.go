package checkpoint

import "errors"

// Sentinel errors surfaced by the definition/instance stores and the
// lifecycle controller. Callers map these to HTTP status via errors.Is.
var (
	// ErrNotFound is returned when a definition or instance id is unknown.
	ErrNotFound = errors.New("checkpoint: not found")

	// ErrDuplicateControlType is returned by Definition Store create when
	// control_type already exists.
	ErrDuplicateControlType = errors.New("checkpoint: control_type already exists")

	// ErrValidationFailure wraps a field-schema validation failure; the
	// issues are attached by the caller (see ValidationError below).
	ErrValidationFailure = errors.New("checkpoint: submission failed validation")

	// ErrSkipNotAllowed is returned when skip is attempted on a required
	// definition's instance.
	ErrSkipNotAllowed = errors.New("checkpoint: skip not allowed on a required checkpoint")

	// ErrAlreadyFinalized is returned when a transition is attempted from a
	// terminal instance state.
	ErrAlreadyFinalized = errors.New("checkpoint: instance already finalized")

	// ErrRetryExhausted is returned when submit is attempted on an instance
	// that has exhausted its retry budget in a failure state.
	ErrRetryExhausted = errors.New("checkpoint: retry budget exhausted")

	// ErrInvalidTransition is returned when retry is attempted from a
	// non-failure state.
	ErrInvalidTransition = errors.New("checkpoint: invalid state transition")
)

// ValidationError carries the field-level issues produced by a failed
// submission, alongside the retry bookkeeping the caller needs to render a
// 422 response per the external interface contract.
type ValidationError struct {
	Issues        []FieldIssue
	AttemptCount  int
	MaxRetries    int
	RetryAvailable bool
}

// FieldIssue mirrors fieldschema.Issue at the checkpoint-domain boundary so
// this package does not leak the fieldschema type into error handling
// callers that only care about key/message pairs.
type FieldIssue struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return "checkpoint: submission failed validation"
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailure
}
