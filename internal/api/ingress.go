package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/behavior"
	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/pulse"
)

type chatImportRequest struct {
	UserID             string `json:"user_id"`
	LeadID             string `json:"lead_id"`
	Transcript         string `json:"transcript"`
	Channel            string `json:"channel,omitempty"`
	LatestSenderIsLead bool   `json:"latest_sender_is_lead"`
	HasUnreadInbound   bool   `json:"has_unread_inbound"`
}

// handleChatImport runs smart status inference over the lead's pending
// outreaches, then the behavioral analysis. Inference results survive even
// when the analysis is unavailable or fails.
func (s *Server) handleChatImport(w http.ResponseWriter, r *http.Request) {
	var req chatImportRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err))
		return
	}
	if req.UserID == "" || req.LeadID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and lead_id are required"})
		return
	}

	inferred, err := s.engine.InferFromImport(r.Context(), pulse.ImportSignal{
		UserID:             req.UserID,
		LeadID:             req.LeadID,
		LatestSenderIsLead: req.LatestSenderIsLead,
		HasUnreadInbound:   req.HasUnreadInbound,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response := map[string]any{"inferred_transitions": inferred}

	if req.Transcript != "" {
		profile, err := s.analyzer.Analyze(r.Context(), behavior.AnalyzeRequest{
			UserID:       req.UserID,
			LeadID:       req.LeadID,
			Conversation: req.Transcript,
			Context:      map[string]any{"channel": req.Channel},
		})
		switch {
		case eris.Is(err, llm.ErrNotConfigured):
			response["analysis"] = "unavailable"
		case eris.Is(err, behavior.ErrAnalysisFailed):
			writeError(w, err)
			return
		case err != nil:
			writeError(w, err)
			return
		default:
			response["profile"] = profile
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// leadAdPayload is the normalized subset we read from lead-ad providers.
type leadAdPayload struct {
	UserID    string         `json:"user_id"`
	CompanyID string         `json:"company_id,omitempty"`
	LeadID    string         `json:"lead_id,omitempty"`
	FormID    string         `json:"form_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// handleLeadAdWebhook normalizes a lead-ad submission into a high-priority
// observation and queues it for the brain.
func (s *Server) handleLeadAdWebhook(w http.ResponseWriter, r *http.Request) {
	var payload leadAdPayload
	if err := decode(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err))
		return
	}
	if payload.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	obs := &model.Observation{
		Type: "lead_ad_submission",
		Data: map[string]any{
			"lead_id": payload.LeadID,
			"form_id": payload.FormID,
			"fields":  payload.Fields,
		},
		UserID:    payload.UserID,
		CompanyID: payload.CompanyID,
		Source:    "leadads_webhook",
		Priority:  model.PriorityHigh,
	}
	if err := s.brain.Observe(r.Context(), obs); err != nil {
		writeError(w, err)
		return
	}

	zap.L().Info("lead ad observation queued",
		zap.String("user_id", payload.UserID),
		zap.String("lead_id", payload.LeadID))
	writeJSON(w, http.StatusAccepted, map[string]string{"observation_id": obs.ID})
}

type observationRequest struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	UserID    string         `json:"user_id"`
	CompanyID string         `json:"company_id,omitempty"`
	Source    string         `json:"source,omitempty"`
	Priority  string         `json:"priority,omitempty"`
}

func (s *Server) handleObservation(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err))
		return
	}
	if req.Type == "" || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type and user_id are required"})
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	obs := &model.Observation{
		Type:      req.Type,
		Data:      req.Data,
		UserID:    req.UserID,
		CompanyID: req.CompanyID,
		Source:    source,
		Priority:  model.Priority(req.Priority),
	}
	if err := s.brain.Observe(r.Context(), obs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"observation_id": obs.ID})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	d, err := s.brain.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errBody(err))
			return
		}
	}
	if err := s.brain.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
