// Package breaker implements the checkpoint engine's Failure Tracker: a
// per-definition circuit breaker that counts terminal failures within a
// sliding window and force-disables a definition once its threshold trips.
//
// Unlike a general-purpose request circuit breaker (which reopens after a
// sleep window and probes recovery in a half-open state), this breaker trips
// one-way: once disabled, a definition stays disabled until an admin
// re-enables it explicitly. There is no half-open state because checkpoint
// definitions are not a request path to retry against — they are a human
// decision to re-activate.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefinitionToggler is the subset of checkpoint.DefinitionStore the tracker
// needs to force-disable a definition on trip. Declared locally to avoid an
// import cycle with the checkpoint package, which depends on breaker.
type DefinitionToggler interface {
	Toggle(ctx context.Context, id string, enabled bool) error
}

// FailureScanner counts recent failures from durable storage (instances of
// the definition currently failed or timed_out with failed_at inside the
// window), used instead of the in-memory counters when the tracker is
// configured for the scan fallback strategy.
type FailureScanner interface {
	CountRecentFailures(ctx context.Context, definitionID string, windowMinutes int) (int, error)
}

// Policy is the per-definition breaker configuration, mirroring the
// circuit_breaker_threshold / circuit_breaker_window_minutes fields on
// CheckpointDefinition.
type Policy struct {
	Threshold     int
	WindowMinutes int
}

// Tracker counts terminal failures per definition and trips the breaker
// (force-disabling the definition) when a definition's threshold is reached
// within its configured window.
type Tracker struct {
	toggler DefinitionToggler
	scanner FailureScanner
	// scanFallback makes RecordFailure consult the durable scanner rather
	// than the in-memory counters, for multi-process deployments sharing
	// one database.
	scanFallback bool
	logger       *slog.Logger

	mu      sync.Mutex
	windows map[string][]time.Time // definitionID -> recent failure timestamps
}

// New constructs a Tracker. toggler force-disables a definition on trip;
// scanner is consulted only when scanFallback is true.
func New(toggler DefinitionToggler, scanner FailureScanner, scanFallback bool, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		toggler:      toggler,
		scanner:      scanner,
		scanFallback: scanFallback,
		logger:       logger,
		windows:      make(map[string][]time.Time),
	}
}

// RecordFailure registers one terminal failure (a transition to failed or
// timed_out where attempt_count >= max_retries after increment) for
// definitionID at occurredAt, and trips the breaker if the count within the
// policy window reaches the threshold. Returns whether this call caused a
// trip.
func (t *Tracker) RecordFailure(ctx context.Context, definitionID string, policy Policy, occurredAt time.Time) (bool, error) {
	if policy.Threshold <= 0 {
		return false, nil
	}

	count, err := t.recordAndCount(ctx, definitionID, policy, occurredAt)
	if err != nil {
		return false, err
	}

	if count < policy.Threshold {
		return false, nil
	}

	if err := t.toggler.Toggle(ctx, definitionID, false); err != nil {
		return false, err
	}

	t.logger.Warn("checkpoint definition circuit breaker tripped",
		"definition_id", definitionID,
		"failure_count", count,
		"threshold", policy.Threshold,
		"window_minutes", policy.WindowMinutes,
	)
	return true, nil
}

func (t *Tracker) recordAndCount(ctx context.Context, definitionID string, policy Policy, occurredAt time.Time) (int, error) {
	if t.scanFallback {
		if t.scanner == nil {
			return 0, nil
		}
		return t.scanner.CountRecentFailures(ctx, definitionID, policy.WindowMinutes)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := occurredAt.Add(-time.Duration(policy.WindowMinutes) * time.Minute)
	kept := t.windows[definitionID][:0]
	for _, ts := range t.windows[definitionID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, occurredAt)
	t.windows[definitionID] = kept

	return len(kept), nil
}

// Reset clears the in-memory window for a definition, used after an admin
// re-enables a tripped definition so stale counts don't immediately re-trip it.
func (t *Tracker) Reset(definitionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, definitionID)
}
