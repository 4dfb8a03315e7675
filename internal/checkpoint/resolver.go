package checkpoint

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Resolver decides which definitions apply at a pipeline position for a
// task's mode, creating or reusing instances as needed.
type Resolver struct {
	Definitions DefinitionStore
	Instances   InstanceStore
	Now         func() time.Time
}

func NewResolver(defs DefinitionStore, instances InstanceStore) *Resolver {
	return &Resolver{Definitions: defs, Instances: instances, Now: time.Now}
}

// Resolve loads the enabled, mode-applicable definitions at position,
// sorted by (sort_order asc, created_at asc), and for each one either
// reuses the existing (task, definition) instance or creates a fresh one in
// state offered. The returned slice is in stable, deterministic order.
func (r *Resolver) Resolve(ctx context.Context, taskID string, position PipelinePosition, mode string) ([]Instance, error) {
	defs, err := r.Definitions.List(ctx, false)
	if err != nil {
		return nil, err
	}

	candidates := make([]Definition, 0, len(defs))
	for _, d := range defs {
		if d.PipelinePosition != position {
			continue
		}
		if !d.Enabled {
			continue
		}
		if !d.AppliesToMode(mode) {
			continue
		}
		candidates = append(candidates, d)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].SortOrder != candidates[j].SortOrder {
			return candidates[i].SortOrder < candidates[j].SortOrder
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	out := make([]Instance, 0, len(candidates))
	for _, def := range candidates {
		inst, err := r.resolveOne(ctx, taskID, def)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (r *Resolver) resolveOne(ctx context.Context, taskID string, def Definition) (Instance, error) {
	existing, err := r.Instances.Find(ctx, taskID, def.ID)
	if err == nil {
		// Present and terminal: return as-is so the UI can show the
		// finalized summary. Present and failed/timed_out with retries
		// left: leave unchanged, the Lifecycle Controller performs the
		// explicit retry on user action.
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Instance{}, err
	}

	created, err := r.Instances.Create(ctx, taskID, def, nil)
	if err != nil {
		return Instance{}, err
	}

	now := r.now()
	updated, err := r.Instances.Transition(ctx, created.ID, InstancePatch{
		State:     StateOffered,
		OfferedAt: &now,
	})
	if err != nil {
		return Instance{}, err
	}
	return updated, nil
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// HasPending reports whether any instance resolved for (task, position) is
// not in a terminal state — used by the orchestrator to gate progression.
func HasPending(instances []Instance) bool {
	for _, inst := range instances {
		if !inst.State.Terminal() {
			return true
		}
	}
	return false
}
