package httpapi

import (
	"errors"
	"net/http"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
)

// errorBody is the uniform error envelope written by writeError (except for
// validation failures, which carry their own 422 body).
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// writeError maps a checkpoint/guards error to its HTTP status via a single
// errors.Is switch (rather than per-handler string matching) and writes the
// uniform error body.
func writeError(w http.ResponseWriter, logger logFunc, err error) {
	var verr *checkpoint.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message":         verr.Issues[0].Message,
			"issues":          verr.Issues,
			"attempt_count":   verr.AttemptCount,
			"max_retries":     verr.MaxRetries,
			"retry_available": verr.RetryAvailable,
		})
		return
	}

	status, kind := statusFor(err)
	if status == http.StatusInternalServerError {
		logger("unhandled error", "error", err)
	}
	writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, checkpoint.ErrDuplicateControlType):
		return http.StatusConflict, "duplicate_control_type"
	case errors.Is(err, checkpoint.ErrSkipNotAllowed):
		return http.StatusConflict, "skip_not_allowed"
	case errors.Is(err, checkpoint.ErrAlreadyFinalized):
		return http.StatusConflict, "already_finalized"
	case errors.Is(err, checkpoint.ErrRetryExhausted):
		return http.StatusConflict, "retry_exhausted"
	case errors.Is(err, checkpoint.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, checkpoint.ErrValidationFailure):
		return http.StatusUnprocessableEntity, "validation_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// logFunc lets writeError log without pulling *slog.Logger into every
// caller's signature.
type logFunc func(msg string, args ...any)
