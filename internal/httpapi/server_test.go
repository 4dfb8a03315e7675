package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
	"github.com/finrisk/checkpointengine/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	defs := sqlite.NewDefinitionStore(store)
	instances := sqlite.NewInstanceStore(store)
	require.NoError(t, checkpoint.Seed(context.Background(), defs))

	resolver := checkpoint.NewResolver(defs, instances)
	orchestrator := checkpoint.NewOrchestrator(resolver, instances)
	controller := checkpoint.NewController(defs, instances, false, nil)

	return New(defs, orchestrator, controller, "*", nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFieldTypesCatalog(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/checkpoints/field-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog []fieldTypeDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	require.Len(t, catalog, 9)
}

func TestListDefinitionsAfterSeed(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/checkpoints/definitions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var defs []checkpoint.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defs))
	require.Len(t, defs, 3)
}
