package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/pulse"
)

type createOutreachRequest struct {
	UserID          string `json:"user_id"`
	LeadID          string `json:"lead_id,omitempty"`
	Text            string `json:"text"`
	Channel         string `json:"channel"`
	MessageType     string `json:"message_type"`
	Intent          string `json:"intent"`
	TemplateID      string `json:"template_id,omitempty"`
	TemplateVariant string `json:"template_variant,omitempty"`
	InitialStatus   string `json:"initial_status,omitempty"`
}

func (s *Server) handleCreateOutreach(w http.ResponseWriter, r *http.Request) {
	var req createOutreachRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err))
		return
	}
	if req.UserID == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and text are required"})
		return
	}

	msgType := model.MessageType(req.MessageType)
	if msgType == "" {
		msgType = model.MessageInitial
	}

	msg, err := s.engine.Create(r.Context(), pulse.CreateRequest{
		UserID:          req.UserID,
		LeadID:          req.LeadID,
		Text:            req.Text,
		Channel:         model.Channel(req.Channel),
		Type:            msgType,
		Intent:          model.Intent(req.Intent),
		TemplateID:      req.TemplateID,
		TemplateVariant: req.TemplateVariant,
		InitialStatus:   model.OutreachStatus(req.InitialStatus),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type updateStatusRequest struct {
	UserID          string `json:"user_id"`
	Status          string `json:"status"`
	Source          string `json:"source,omitempty"`
	LeadOnlineSince bool   `json:"lead_online_since,omitempty"`
	LeadPostedSince bool   `json:"lead_posted_since,omitempty"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err))
		return
	}
	if req.UserID == "" || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and status are required"})
		return
	}

	msg, err := s.engine.UpdateStatus(r.Context(), pulse.TransitionRequest{
		UserID:          req.UserID,
		ID:              chi.URLParam(r, "id"),
		To:              model.OutreachStatus(req.Status),
		Source:          model.StatusSource(req.Source),
		LeadOnlineSince: req.LeadOnlineSince,
		LeadPostedSince: req.LeadPostedSince,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

type bulkStatusRequest struct {
	UserID string   `json:"user_id"`
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

func (s *Server) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err))
		return
	}
	if req.UserID == "" || len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and ids are required"})
		return
	}

	res := s.engine.BulkUpdateStatus(r.Context(), req.UserID, req.IDs, model.OutreachStatus(req.Status))
	writeJSON(w, http.StatusOK, res)
}

type bulkSkipRequest struct {
	UserID string   `json:"user_id"`
	IDs    []string `json:"ids"`
}

func (s *Server) handleBulkSkip(w http.ResponseWriter, r *http.Request) {
	var req bulkSkipRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err))
		return
	}
	if req.UserID == "" || len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and ids are required"})
		return
	}

	res := s.engine.BulkSkip(r.Context(), req.UserID, req.IDs)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAccurateFunnel(w http.ResponseWriter, r *http.Request) {
	userID, days, ok := funnelQuery(w, r)
	if !ok {
		return
	}
	accurate, _, err := s.engine.Funnels(r.Context(), userID, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accurate)
}

func (s *Server) handleIntentFunnel(w http.ResponseWriter, r *http.Request) {
	userID, days, ok := funnelQuery(w, r)
	if !ok {
		return
	}
	_, intents, err := s.engine.Funnels(r.Context(), userID, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intents)
}

func funnelQuery(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return "", 0, false
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be a positive integer"})
			return "", 0, false
		}
		days = parsed
	}
	return userID, days, true
}
