package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
	"github.com/finrisk/checkpointengine/internal/fieldschema"
	"github.com/finrisk/checkpointengine/internal/guards"
)

// definitionRequest is the wire shape for POST/PUT bodies: a definition
// without id/timestamps, plus an admin override for soft-blocking guards.
type definitionRequest struct {
	ControlType                 string             `json:"control_type,omitempty"`
	Label                       string             `json:"label"`
	Description                 string             `json:"description"`
	FieldSchema                 fieldschema.Schema `json:"field_schema"`
	PipelinePosition             checkpoint.PipelinePosition `json:"pipeline_position"`
	SortOrder                   int                `json:"sort_order"`
	ApplicableModes              []string           `json:"applicable_modes"`
	Required                    bool               `json:"required"`
	TimeoutSeconds               *int               `json:"timeout_seconds"`
	MaxRetries                   int                `json:"max_retries"`
	CircuitBreakerThreshold      int                `json:"circuit_breaker_threshold"`
	CircuitBreakerWindowMinutes  int                `json:"circuit_breaker_window_minutes"`
	Force                       bool               `json:"force"`
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	includeDisabled, _ := strconv.ParseBool(r.URL.Query().Get("include_disabled"))
	defs, err := s.definitions.List(r.Context(), includeDisabled)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	def := checkpoint.Definition{
		ControlType:                 req.ControlType,
		Label:                       req.Label,
		Description:                 req.Description,
		FieldSchema:                 req.FieldSchema,
		PipelinePosition:            req.PipelinePosition,
		SortOrder:                   req.SortOrder,
		ApplicableModes:             req.ApplicableModes,
		Required:                    req.Required,
		TimeoutSeconds:              req.TimeoutSeconds,
		MaxRetries:                  req.MaxRetries,
		CircuitBreakerThreshold:     req.CircuitBreakerThreshold,
		CircuitBreakerWindowMinutes: req.CircuitBreakerWindowMinutes,
		Enabled:                     true,
	}

	if outcome := runGuards(r.Context(), def, false, req.Force); outcome.Blocked {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "guard_blocked",
			Message: outcome.FormatBlockMessage(),
			Details: outcome.Results,
		})
		return
	}

	created, err := s.definitions.Create(r.Context(), def)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.definitions.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.definitions.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	var req definitionRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	// present tracks which top-level keys the client actually sent, so that
	// an omitted field leaves the existing value untouched instead of being
	// clobbered by its JSON zero value (PUT is a partial update).
	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	merged := existing
	patch := checkpoint.DefinitionPatch{}

	if _, ok := present["label"]; ok {
		merged.Label = req.Label
		patch.Label = &merged.Label
	}
	if _, ok := present["description"]; ok {
		merged.Description = req.Description
		patch.Description = &merged.Description
	}
	if _, ok := present["field_schema"]; ok {
		merged.FieldSchema = req.FieldSchema
		patch.FieldSchema = merged.FieldSchema
		patch.FieldSchemaSet = true
	}
	if _, ok := present["pipeline_position"]; ok {
		merged.PipelinePosition = req.PipelinePosition
		patch.PipelinePosition = &merged.PipelinePosition
	}
	if _, ok := present["sort_order"]; ok {
		merged.SortOrder = req.SortOrder
		patch.SortOrder = &merged.SortOrder
	}
	if _, ok := present["applicable_modes"]; ok {
		merged.ApplicableModes = req.ApplicableModes
		patch.ApplicableModes = merged.ApplicableModes
		patch.ApplicableModesSet = true
	}
	if _, ok := present["required"]; ok {
		merged.Required = req.Required
		patch.Required = &merged.Required
	}
	if _, ok := present["timeout_seconds"]; ok {
		merged.TimeoutSeconds = req.TimeoutSeconds
		patch.TimeoutSeconds = &merged.TimeoutSeconds
	}
	if _, ok := present["max_retries"]; ok {
		merged.MaxRetries = req.MaxRetries
		patch.MaxRetries = &merged.MaxRetries
	}
	if _, ok := present["circuit_breaker_threshold"]; ok {
		merged.CircuitBreakerThreshold = req.CircuitBreakerThreshold
		patch.CircuitBreakerThreshold = &merged.CircuitBreakerThreshold
	}
	if _, ok := present["circuit_breaker_window_minutes"]; ok {
		merged.CircuitBreakerWindowMinutes = req.CircuitBreakerWindowMinutes
		patch.CircuitBreakerWindowMinutes = &merged.CircuitBreakerWindowMinutes
	}

	if outcome := runGuards(r.Context(), merged, true, req.Force); outcome.Blocked {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "guard_blocked",
			Message: outcome.FormatBlockMessage(),
			Details: outcome.Results,
		})
		return
	}

	updated, err := s.definitions.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleToggleDefinition(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}
	updated, err := s.definitions.Toggle(r.Context(), r.PathValue("id"), req.Enabled)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	if req.Enabled && s.controller != nil && s.controller.Tracker != nil {
		s.controller.Tracker.Reset(updated.ID)
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteDefinition implements the spec's "soft delete": toggle off
// and return the updated row, rather than removing it.
func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	updated, err := s.definitions.Toggle(r.Context(), r.PathValue("id"), false)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func runGuards(ctx context.Context, def checkpoint.Definition, isUpdate, force bool) *guards.Outcome {
	gctx := &guards.GuardContext{Definition: def.GuardView(), IsUpdate: isUpdate, Force: force}
	return guards.NewRunner().Run(ctx, gctx, guards.DefinitionGuards())
}
