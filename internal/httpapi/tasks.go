package httpapi

import (
	"net/http"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
)

// resolvedCheckpoints is the wire shape for GET /tasks/{task_id}/checkpoints.
type resolvedCheckpoints struct {
	TaskID           string                `json:"task_id"`
	PipelinePosition checkpoint.PipelinePosition `json:"pipeline_position"`
	Checkpoints      []checkpoint.Instance `json:"checkpoints"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	position := checkpoint.PipelinePosition(r.URL.Query().Get("pipeline_position"))
	if !position.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "bad_request",
			Message: "pipeline_position must be one of after_retrieval, after_generation, post_generation",
		})
		return
	}
	mode := r.URL.Query().Get("mode")

	instances, err := s.orchestrator.Resolve(r.Context(), taskID, position, mode)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}

	writeJSON(w, http.StatusOK, resolvedCheckpoints{
		TaskID:           taskID,
		PipelinePosition: position,
		Checkpoints:      instances,
	})
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.orchestrator.Get(r.Context(), r.PathValue("task_id"), r.PathValue("instance_id"))
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// lookupInstanceAndDefinition loads the instance and its owning definition, the pair
// every lifecycle handler needs.
func (s *Server) lookupInstanceAndDefinition(r *http.Request) (checkpoint.Instance, checkpoint.Definition, error) {
	inst, err := s.orchestrator.Get(r.Context(), r.PathValue("task_id"), r.PathValue("instance_id"))
	if err != nil {
		return checkpoint.Instance{}, checkpoint.Definition{}, err
	}
	def, err := s.definitions.GetByID(r.Context(), inst.DefinitionID)
	if err != nil {
		return checkpoint.Instance{}, checkpoint.Definition{}, err
	}
	return inst, def, nil
}

type submitRequest struct {
	Data map[string]any `json:"data"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	inst, def, err := s.lookupInstanceAndDefinition(r)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}

	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	updated, err := s.controller.Submit(r.Context(), inst, def, req.Data)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	inst, def, err := s.lookupInstanceAndDefinition(r)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	updated, err := s.controller.Skip(r.Context(), inst, def)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	inst, _, err := s.lookupInstanceAndDefinition(r)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	updated, err := s.controller.Retry(r.Context(), inst)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleTimeout(w http.ResponseWriter, r *http.Request) {
	inst, def, err := s.lookupInstanceAndDefinition(r)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	updated, err := s.controller.Timeout(r.Context(), inst, def)
	if err != nil {
		writeError(w, s.logger.Error, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
