// Package api exposes the pulse system over HTTP: outreach lifecycle,
// funnels, chat import, observation ingress and the decision approval
// workflow.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/behavior"
	"github.com/salesflow-ai/pulse/internal/brain"
	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/pulse"
	"github.com/salesflow-ai/pulse/internal/resilience"
	"github.com/salesflow-ai/pulse/internal/store"
)

// Server holds the HTTP surface's collaborators.
type Server struct {
	engine   *pulse.Engine
	analyzer *behavior.Analyzer
	brain    *brain.Brain
	origins  []string
}

// NewServer wires the HTTP surface.
func NewServer(engine *pulse.Engine, analyzer *behavior.Analyzer, br *brain.Brain, origins []string) *Server {
	return &Server{engine: engine, analyzer: analyzer, brain: br, origins: origins}
}

// Router builds the chi router with CORS and logging middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/outreach", func(r chi.Router) {
		r.Post("/", s.handleCreateOutreach)
		r.Patch("/{id}/status", s.handleUpdateStatus)
		r.Post("/bulk/status", s.handleBulkStatus)
		r.Post("/bulk/skip", s.handleBulkSkip)
	})

	r.Get("/funnel/accurate", s.handleAccurateFunnel)
	r.Get("/funnel/intents", s.handleIntentFunnel)

	r.Post("/import/chat", s.handleChatImport)
	r.Post("/webhooks/leadads", s.handleLeadAdWebhook)
	r.Post("/observations", s.handleObservation)

	r.Post("/decisions/{id}/approve", s.handleApprove)
	r.Post("/decisions/{id}/reject", s.handleReject)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("response encoding failed", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, pulse.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errBody(err))
	case eris.Is(err, pulse.ErrInvalidTransition):
		writeJSON(w, http.StatusUnprocessableEntity, errBody(err))
	case eris.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody(err))
	case eris.Is(err, resilience.ErrCircuitOpen):
		w.Header().Set("Retry-After", "30")
		writeJSON(w, http.StatusServiceUnavailable, errBody(err))
	case store.IsUnavailable(err):
		writeJSON(w, http.StatusServiceUnavailable, errBody(err))
	case eris.Is(err, behavior.ErrAnalysisFailed):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "could not analyze, try again"})
	case eris.Is(err, llm.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errBody(err))
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func errBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

// decode reads a JSON body, rejecting unknown payload shapes early.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return eris.Wrap(err, "invalid request body")
	}
	return nil
}
