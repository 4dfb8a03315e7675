package checkpoint

import (
	"context"
	"log/slog"
	"time"

	"github.com/finrisk/checkpointengine/internal/breaker"
	"github.com/finrisk/checkpointengine/internal/fieldschema"
)

// toggleAdapter narrows a DefinitionStore to breaker.DefinitionToggler,
// discarding the updated row the lifecycle controller doesn't need here.
type toggleAdapter struct {
	store DefinitionStore
}

func (a toggleAdapter) Toggle(ctx context.Context, id string, enabled bool) error {
	_, err := a.store.Toggle(ctx, id, enabled)
	return err
}

// Controller executes submit/skip/retry/timeout/fail transitions against
// the Instance Store and notifies the Failure Tracker on terminal failures.
type Controller struct {
	Definitions DefinitionStore
	Instances   InstanceStore
	Tracker     *breaker.Tracker
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewController wires a Controller, constructing its own Failure Tracker
// from defs/instances so callers don't have to know about the breaker
// adapter shim.
func NewController(defs DefinitionStore, instances InstanceStore, scanFallback bool, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	tracker := breaker.New(toggleAdapter{store: defs}, instances, scanFallback, logger)
	return &Controller{
		Definitions: defs,
		Instances:   instances,
		Tracker:     tracker,
		Now:         time.Now,
		Logger:      logger,
	}
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Submit validates data against the instance's frozen schema and, on
// success, finalizes the instance as submitted.
func (c *Controller) Submit(ctx context.Context, inst Instance, def Definition, data map[string]any) (Instance, error) {
	if inst.State.Terminal() {
		return Instance{}, ErrAlreadyFinalized
	}
	if inst.RetryExhausted(def.MaxRetries) {
		return Instance{}, ErrRetryExhausted
	}

	normalized, issues := fieldschema.Validate(inst.FieldSchema, data, fieldschema.ValidateOptions{})
	if len(issues) > 0 {
		fieldIssues := make([]FieldIssue, len(issues))
		for i, is := range issues {
			fieldIssues[i] = FieldIssue{Key: is.Key, Message: is.Message}
		}

		summary := issues[0].Message
		now := c.now()
		updated, err := c.Instances.Transition(ctx, inst.ID, InstancePatch{
			State:     StateFailed,
			LastError: &summary,
			FailedAt:  &now,
		})
		if err != nil {
			return Instance{}, err
		}

		return updated, &ValidationError{
			Issues:         fieldIssues,
			AttemptCount:   updated.AttemptCount,
			MaxRetries:     def.MaxRetries,
			RetryAvailable: updated.AttemptCount < def.MaxRetries,
		}
	}

	now := c.now()
	return c.Instances.Transition(ctx, inst.ID, InstancePatch{
		State:        StateSubmitted,
		SubmitResult: normalized,
		SubmittedAt:  &now,
	})
}

// Skip transitions a non-required instance to skipped. Required definitions
// reject skip with ErrSkipNotAllowed.
func (c *Controller) Skip(ctx context.Context, inst Instance, def Definition) (Instance, error) {
	if !isAllowedTransition(inst.State, StateSkipped) {
		return Instance{}, ErrAlreadyFinalized
	}
	if def.Required {
		return Instance{}, ErrSkipNotAllowed
	}
	return c.Instances.Transition(ctx, inst.ID, InstancePatch{State: StateSkipped})
}

// Retry returns a failed/timed_out instance to offered, clearing its last
// error without touching attempt_count (the prior failure already counted).
func (c *Controller) Retry(ctx context.Context, inst Instance) (Instance, error) {
	if !isAllowedTransition(inst.State, StateOffered) {
		return Instance{}, ErrInvalidTransition
	}
	return c.Instances.Transition(ctx, inst.ID, InstancePatch{
		State:      StateOffered,
		ClearError: true,
	})
}

// Timeout increments attempt_count and marks the instance timed_out.
// Idempotent: a second call on an already-timed_out instance is a no-op.
// Notifies the Failure Tracker when the resulting attempt exhausts retries.
func (c *Controller) Timeout(ctx context.Context, inst Instance, def Definition) (Instance, error) {
	if inst.State == StateTimedOut {
		return inst, nil
	}
	if !isAllowedTransition(inst.State, StateTimedOut) {
		return Instance{}, ErrAlreadyFinalized
	}

	next := inst.AttemptCount + 1
	msg := "timed out"
	now := c.now()
	updated, err := c.Instances.Transition(ctx, inst.ID, InstancePatch{
		State:        StateTimedOut,
		AttemptCount: &next,
		LastError:    &msg,
		FailedAt:     &now,
	})
	if err != nil {
		return Instance{}, err
	}

	if updated.AttemptCount >= def.MaxRetries {
		c.notifyTracker(ctx, def, now)
	}
	return updated, nil
}

// Fail is the internal path for non-validation submission errors (e.g. a
// schema-internal exception). It increments attempt_count, records the
// error, and notifies the Failure Tracker on exhaustion, mirroring Timeout.
func (c *Controller) Fail(ctx context.Context, inst Instance, def Definition, cause error) (Instance, error) {
	if inst.State.Terminal() {
		return Instance{}, ErrAlreadyFinalized
	}

	next := inst.AttemptCount + 1
	msg := cause.Error()
	now := c.now()
	updated, err := c.Instances.Transition(ctx, inst.ID, InstancePatch{
		State:        StateFailed,
		AttemptCount: &next,
		LastError:    &msg,
		FailedAt:     &now,
	})
	if err != nil {
		return Instance{}, err
	}

	if updated.AttemptCount >= def.MaxRetries {
		c.notifyTracker(ctx, def, now)
	}
	return updated, nil
}

func (c *Controller) notifyTracker(ctx context.Context, def Definition, at time.Time) {
	if def.CircuitBreakerThreshold <= 0 {
		return
	}
	tripped, err := c.Tracker.RecordFailure(ctx, def.ID, breaker.Policy{
		Threshold:     def.CircuitBreakerThreshold,
		WindowMinutes: def.CircuitBreakerWindowMinutes,
	}, at)
	if err != nil {
		c.Logger.Error("failure tracker update failed", "definition_id", def.ID, "error", err)
		return
	}
	if tripped {
		c.Logger.Warn("checkpoint definition disabled by circuit breaker", "control_type", def.ControlType)
	}
}
