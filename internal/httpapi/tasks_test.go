package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
)

func resolveOnce(t *testing.T, handler http.Handler, taskID string, position checkpoint.PipelinePosition, mode string) resolvedCheckpoints {
	t.Helper()
	rec := doJSON(t, handler, http.MethodGet,
		"/tasks/"+taskID+"/checkpoints?pipeline_position="+string(position)+"&mode="+mode, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved resolvedCheckpoints
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	return resolved
}

func TestHappyPathOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	resolved := resolveOnce(t, handler, "task-1", checkpoint.AfterRetrieval, "hitl_full")
	require.Len(t, resolved.Checkpoints, 1)
	inst := resolved.Checkpoints[0]
	require.Equal(t, "chunk_selector", inst.ControlType)
	require.Equal(t, checkpoint.StateOffered, inst.State)

	rec := doJSON(t, handler, http.MethodPost,
		"/tasks/task-1/checkpoints/"+inst.ID+"/submit",
		submitRequest{Data: map[string]any{"selected_node_ids": []string{"n1", "n2"}}},
	)
	require.Equal(t, http.StatusOK, rec.Code)

	var submitted checkpoint.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.Equal(t, checkpoint.StateSubmitted, submitted.State)
}

func TestNonApplicableModeReturnsEmptyOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	resolved := resolveOnce(t, srv.Handler(), "task-2", checkpoint.AfterRetrieval, "baseline")
	require.Empty(t, resolved.Checkpoints)
}

func TestSkipForbiddenOnRequiredOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	resolved := resolveOnce(t, handler, "task-3", checkpoint.AfterRetrieval, "hitl_full")
	require.Len(t, resolved.Checkpoints, 1)
	inst := resolved.Checkpoints[0]

	rec := doJSON(t, handler, http.MethodPost, "/tasks/task-3/checkpoints/"+inst.ID+"/skip", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestValidationFailureDoesNotBurnRetryOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	resolved := resolveOnce(t, handler, "task-4", checkpoint.AfterGeneration, "hitl_full")
	require.Len(t, resolved.Checkpoints, 1)
	inst := resolved.Checkpoints[0]
	require.Equal(t, "summary_editor", inst.ControlType)

	rec := doJSON(t, handler, http.MethodPost,
		"/tasks/task-4/checkpoints/"+inst.ID+"/submit",
		submitRequest{Data: map[string]any{"edited_text": ""}},
	)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		AttemptCount int `json:"attempt_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 0, body.AttemptCount)

	rec = doJSON(t, handler, http.MethodPost,
		"/tasks/task-4/checkpoints/"+inst.ID+"/submit",
		submitRequest{Data: map[string]any{"edited_text": "Final text."}},
	)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTimeoutThenSkipOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	resolved := resolveOnce(t, handler, "task-5", checkpoint.PostGeneration, "hitl_full")
	require.Len(t, resolved.Checkpoints, 1)
	inst := resolved.Checkpoints[0]
	require.Equal(t, "questionnaire", inst.ControlType)

	rec := doJSON(t, handler, http.MethodPost, "/tasks/task-5/checkpoints/"+inst.ID+"/timeout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var timedOut checkpoint.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &timedOut))
	require.Equal(t, checkpoint.StateTimedOut, timedOut.State)

	rec = doJSON(t, handler, http.MethodPost, "/tasks/task-5/checkpoints/"+inst.ID+"/skip", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var skipped checkpoint.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &skipped))
	require.Equal(t, checkpoint.StateSkipped, skipped.State)
}
