package checkpoint

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memDefinitionStore is an in-memory DefinitionStore used by tests in this
// package. It mirrors the uniqueness and ordering contracts the sqlite
// implementation provides, without touching a database.
type memDefinitionStore struct {
	mu      sync.Mutex
	byID    map[string]Definition
	nextSeq int
}

func newMemDefinitionStore() *memDefinitionStore {
	return &memDefinitionStore{byID: make(map[string]Definition)}
}

func (s *memDefinitionStore) Create(ctx context.Context, def Definition) (Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.ControlType == def.ControlType {
			return Definition{}, ErrDuplicateControlType
		}
	}

	s.nextSeq++
	def.ID = seqID("def", s.nextSeq)
	def.CreatedAt = time.Now()
	def.UpdatedAt = def.CreatedAt
	s.byID[def.ID] = def
	return def, nil
}

func (s *memDefinitionStore) Update(ctx context.Context, id string, patch DefinitionPatch) (Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.byID[id]
	if !ok {
		return Definition{}, ErrNotFound
	}
	if patch.Label != nil {
		def.Label = *patch.Label
	}
	if patch.FieldSchemaSet {
		def.FieldSchema = patch.FieldSchema
	}
	if patch.Required != nil {
		def.Required = *patch.Required
	}
	if patch.MaxRetries != nil {
		def.MaxRetries = *patch.MaxRetries
	}
	def.UpdatedAt = time.Now()
	s.byID[id] = def
	return def, nil
}

func (s *memDefinitionStore) Toggle(ctx context.Context, id string, enabled bool) (Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.byID[id]
	if !ok {
		return Definition{}, ErrNotFound
	}
	def.Enabled = enabled
	def.UpdatedAt = time.Now()
	s.byID[id] = def
	return def, nil
}

func (s *memDefinitionStore) GetByID(ctx context.Context, id string) (Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.byID[id]
	if !ok {
		return Definition{}, ErrNotFound
	}
	return def, nil
}

func (s *memDefinitionStore) GetByControlType(ctx context.Context, controlType string) (Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, def := range s.byID {
		if def.ControlType == controlType {
			return def, nil
		}
	}
	return Definition{}, ErrNotFound
}

func (s *memDefinitionStore) List(ctx context.Context, includeDisabled bool) ([]Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Definition, 0, len(s.byID))
	for _, def := range s.byID {
		if !includeDisabled && !def.Enabled {
			continue
		}
		out = append(out, def)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PipelinePosition != out[j].PipelinePosition {
			return out[i].PipelinePosition < out[j].PipelinePosition
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type memInstanceStore struct {
	mu      sync.Mutex
	byID    map[string]Instance
	byKey   map[string]string // taskID|definitionID -> instance id
	nextSeq int
}

func newMemInstanceStore() *memInstanceStore {
	return &memInstanceStore{byID: make(map[string]Instance), byKey: make(map[string]string)}
}

func key(taskID, definitionID string) string { return taskID + "|" + definitionID }

func (s *memInstanceStore) Find(ctx context.Context, taskID, definitionID string) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[key(taskID, definitionID)]
	if !ok {
		return Instance{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *memInstanceStore) GetByID(ctx context.Context, taskID, instanceID string) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.byID[instanceID]
	if !ok || inst.TaskID != taskID {
		return Instance{}, ErrNotFound
	}
	return inst, nil
}

func (s *memInstanceStore) Create(ctx context.Context, taskID string, def Definition, payload map[string]any) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(taskID, def.ID)
	if id, ok := s.byKey[k]; ok {
		return s.byID[id], nil // loser observes the winner's row
	}

	s.nextSeq++
	inst := Instance{
		ID:           seqID("inst", s.nextSeq),
		TaskID:       taskID,
		DefinitionID: def.ID,
		ControlType:  def.ControlType,
		FieldSchema:  def.FieldSchema,
		State:        StatePending,
		Payload:      payload,
		CreatedAt:    time.Now(),
	}
	s.byID[inst.ID] = inst
	s.byKey[k] = inst.ID
	return inst, nil
}

func (s *memInstanceStore) Transition(ctx context.Context, instanceID string, patch InstancePatch) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.byID[instanceID]
	if !ok {
		return Instance{}, ErrNotFound
	}

	inst.State = patch.State
	if patch.PayloadSet {
		inst.Payload = patch.Payload
	}
	if patch.SubmitResult != nil {
		inst.SubmitResult = patch.SubmitResult
	}
	if patch.AttemptCount != nil {
		inst.AttemptCount = *patch.AttemptCount
	}
	if patch.ClearError {
		inst.LastError = ""
	} else if patch.LastError != nil {
		inst.LastError = *patch.LastError
	}
	if patch.FailedAt != nil {
		t := *patch.FailedAt
		inst.FailedAt = &t
	}
	if patch.OfferedAt != nil {
		t := *patch.OfferedAt
		inst.OfferedAt = &t
	}
	if patch.SubmittedAt != nil {
		t := *patch.SubmittedAt
		inst.SubmittedAt = &t
	}

	s.byID[instanceID] = inst
	return inst, nil
}

func (s *memInstanceStore) ListForTask(ctx context.Context, taskID string, position *PipelinePosition) ([]Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Instance
	for _, inst := range s.byID {
		if inst.TaskID == taskID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (s *memInstanceStore) CountRecentFailures(ctx context.Context, definitionID string, windowMinutes int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)
	count := 0
	for _, inst := range s.byID {
		if inst.DefinitionID != definitionID {
			continue
		}
		if inst.State != StateFailed && inst.State != StateTimedOut {
			continue
		}
		if inst.FailedAt != nil && inst.FailedAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func seqID(prefix string, n int) string {
	return prefix + "-" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}
