package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToggler struct {
	disabled map[string]bool
}

func newFakeToggler() *fakeToggler { return &fakeToggler{disabled: make(map[string]bool)} }

func (f *fakeToggler) Toggle(ctx context.Context, id string, enabled bool) error {
	f.disabled[id] = !enabled
	return nil
}

func TestTracker_TripsAtThreshold(t *testing.T) {
	toggler := newFakeToggler()
	tracker := New(toggler, nil, false, nil)

	now := time.Now()
	policy := Policy{Threshold: 3, WindowMinutes: 60}

	tripped, err := tracker.RecordFailure(context.Background(), "def-1", policy, now)
	require.NoError(t, err)
	assert.False(t, tripped)

	tripped, err = tracker.RecordFailure(context.Background(), "def-1", policy, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, tripped)

	tripped, err = tracker.RecordFailure(context.Background(), "def-1", policy, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, tripped)
	assert.True(t, toggler.disabled["def-1"])
}

func TestTracker_WindowExpiry(t *testing.T) {
	toggler := newFakeToggler()
	tracker := New(toggler, nil, false, nil)

	now := time.Now()
	policy := Policy{Threshold: 2, WindowMinutes: 10}

	_, err := tracker.RecordFailure(context.Background(), "def-2", policy, now)
	require.NoError(t, err)

	// Second failure falls outside the 10-minute window relative to now,
	// so the first failure should have aged out and this alone shouldn't trip.
	tripped, err := tracker.RecordFailure(context.Background(), "def-2", policy, now.Add(20*time.Minute))
	require.NoError(t, err)
	assert.False(t, tripped)
}

func TestTracker_ZeroThresholdNeverTrips(t *testing.T) {
	toggler := newFakeToggler()
	tracker := New(toggler, nil, false, nil)

	tripped, err := tracker.RecordFailure(context.Background(), "def-3", Policy{Threshold: 0, WindowMinutes: 60}, time.Now())
	require.NoError(t, err)
	assert.False(t, tripped)
}

type fakeScanner struct{ count int }

func (f *fakeScanner) CountRecentFailures(ctx context.Context, definitionID string, windowMinutes int) (int, error) {
	return f.count, nil
}

func TestTracker_ScanFallback(t *testing.T) {
	toggler := newFakeToggler()
	scanner := &fakeScanner{count: 5}
	tracker := New(toggler, scanner, true, nil)

	tripped, err := tracker.RecordFailure(context.Background(), "def-4", Policy{Threshold: 3, WindowMinutes: 60}, time.Now())
	require.NoError(t, err)
	assert.True(t, tripped)
}

func TestTracker_Reset(t *testing.T) {
	toggler := newFakeToggler()
	tracker := New(toggler, nil, false, nil)
	now := time.Now()
	policy := Policy{Threshold: 2, WindowMinutes: 60}

	_, _ = tracker.RecordFailure(context.Background(), "def-5", policy, now)
	tracker.Reset("def-5")

	tripped, err := tracker.RecordFailure(context.Background(), "def-5", policy, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, tripped, "reset should clear the counted window")
}
