// Package httpapi implements the checkpoint engine's REST surface on
// net/http, following the CORS-header and JSON-response-helper style of the
// teacher's MCP HTTP transport, stripped of JSON-RPC framing and session
// headers: this is a plain per-route REST contract.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
)

// Server wires the definition admin, per-task pipeline, and field-type
// catalog handlers onto one mux.
type Server struct {
	definitions checkpoint.DefinitionStore
	orchestrator *checkpoint.Orchestrator
	controller  *checkpoint.Controller
	cors        string
	logger      *slog.Logger
}

// New builds a Server. cors is a comma-separated allow-list, or "*".
func New(definitions checkpoint.DefinitionStore, orchestrator *checkpoint.Orchestrator, controller *checkpoint.Controller, cors string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		definitions:  definitions,
		orchestrator: orchestrator,
		controller:   controller,
		cors:         cors,
		logger:       logger,
	}
}

// Handler returns the top-level http.Handler, wrapped in CORS and a
// request-logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /checkpoints/field-types", s.handleFieldTypes)

	mux.HandleFunc("GET /checkpoints/definitions", s.handleListDefinitions)
	mux.HandleFunc("POST /checkpoints/definitions", s.handleCreateDefinition)
	mux.HandleFunc("GET /checkpoints/definitions/{id}", s.handleGetDefinition)
	mux.HandleFunc("PUT /checkpoints/definitions/{id}", s.handleUpdateDefinition)
	mux.HandleFunc("POST /checkpoints/definitions/{id}/toggle", s.handleToggleDefinition)
	mux.HandleFunc("DELETE /checkpoints/definitions/{id}", s.handleDeleteDefinition)

	mux.HandleFunc("GET /tasks/{task_id}/checkpoints", s.handleResolve)
	mux.HandleFunc("GET /tasks/{task_id}/checkpoints/{instance_id}", s.handleGetInstance)
	mux.HandleFunc("POST /tasks/{task_id}/checkpoints/{instance_id}/submit", s.handleSubmit)
	mux.HandleFunc("POST /tasks/{task_id}/checkpoints/{instance_id}/skip", s.handleSkip)
	mux.HandleFunc("POST /tasks/{task_id}/checkpoints/{instance_id}/retry", s.handleRetry)
	mux.HandleFunc("POST /tasks/{task_id}/checkpoints/{instance_id}/timeout", s.handleTimeout)

	return s.withMiddleware(mux)
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.setCORS(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFieldTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fieldTypeCatalog())
}

// setCORS mirrors the teacher's HTTP transport: with "*" the header is "*";
// otherwise a request Origin found in the allow-list is reflected back.
func (s *Server) setCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	if s.cors == "*" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		for _, allowed := range strings.Split(s.cors, ",") {
			if strings.TrimSpace(allowed) == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}
	}

	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
