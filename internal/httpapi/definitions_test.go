package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
	"github.com/finrisk/checkpointengine/internal/fieldschema"
)

func TestCreateDefinition_DuplicateControlTypeConflict(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	body := definitionRequest{
		ControlType:      "chunk_selector",
		Label:            "dup",
		PipelinePosition: checkpoint.AfterRetrieval,
		ApplicableModes:  []string{"*"},
	}
	rec := doJSON(t, handler, http.MethodPost, "/checkpoints/definitions", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateDefinition_GuardBlocksMalformedControlType(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	body := definitionRequest{
		ControlType:      "Not-A-Slug",
		Label:            "bad",
		PipelinePosition: checkpoint.AfterRetrieval,
		ApplicableModes:  []string{"*"},
	}
	rec := doJSON(t, handler, http.MethodPost, "/checkpoints/definitions", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateUpdateToggleDeleteDefinition(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	create := definitionRequest{
		ControlType:      "reviewer_note",
		Label:            "Reviewer note",
		PipelinePosition: checkpoint.PostGeneration,
		ApplicableModes:  []string{"hitl_full"},
		MaxRetries:       2,
		FieldSchema: fieldschema.Schema{
			{Key: "note", Type: fieldschema.Textarea, Required: true},
		},
	}
	rec := doJSON(t, handler, http.MethodPost, "/checkpoints/definitions", create)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created checkpoint.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.Enabled)

	update := create
	update.Label = "Reviewer note (updated)"
	rec = doJSON(t, handler, http.MethodPut, "/checkpoints/definitions/"+created.ID, update)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated checkpoint.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Reviewer note (updated)", updated.Label)

	rec = doJSON(t, handler, http.MethodPost, "/checkpoints/definitions/"+created.ID+"/toggle", toggleRequest{Enabled: false})
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled checkpoint.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	require.False(t, toggled.Enabled)

	rec = doJSON(t, handler, http.MethodPost, "/checkpoints/definitions/"+created.ID+"/toggle", toggleRequest{Enabled: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/checkpoints/definitions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted checkpoint.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	require.False(t, deleted.Enabled)
}

func TestUpdateDefinition_OmittedFieldsAreUnchanged(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	create := definitionRequest{
		ControlType:      "reviewer_note",
		Label:            "Reviewer note",
		Description:      "Leave a note for the reviewer",
		PipelinePosition: checkpoint.PostGeneration,
		ApplicableModes:  []string{"hitl_full"},
		MaxRetries:       2,
		FieldSchema: fieldschema.Schema{
			{Key: "note", Type: fieldschema.Textarea, Required: true},
		},
	}
	rec := doJSON(t, handler, http.MethodPost, "/checkpoints/definitions", create)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created checkpoint.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Send only "label" — every other field must survive untouched, matching
	// PUT's partial-update contract.
	rec = doJSON(t, handler, http.MethodPut, "/checkpoints/definitions/"+created.ID, map[string]any{
		"label": "Reviewer note (renamed)",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated checkpoint.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))

	require.Equal(t, "Reviewer note (renamed)", updated.Label)
	require.Equal(t, created.Description, updated.Description)
	require.Equal(t, created.ApplicableModes, updated.ApplicableModes)
	require.Equal(t, created.MaxRetries, updated.MaxRetries)
	require.Equal(t, created.FieldSchema, updated.FieldSchema)
	require.Equal(t, created.PipelinePosition, updated.PipelinePosition)
}

func TestGetDefinition_NotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/checkpoints/definitions/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
