package pulse

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// FollowUpRequest asks for a ghost-buster follow-up on a ghosted outreach.
type FollowUpRequest struct {
	UserID     string
	OutreachID string

	// Text overrides the stored suggestion; empty falls back to the
	// strategy text stamped at ghost detection.
	Text string

	TemplateID      string
	TemplateVariant string
	CampaignID      string
}

// CreateGhostFollowUp creates the follow-up outreach for a ghosted row and
// links the two. When a template is involved, the assignment event is
// recorded before the send counter moves.
func (e *Engine) CreateGhostFollowUp(ctx context.Context, req FollowUpRequest) (*model.OutreachMessage, error) {
	original, err := e.store.GetOutreach(ctx, req.UserID, req.OutreachID)
	if err != nil {
		return nil, err
	}
	if original.Status != model.StatusGhosted {
		return nil, eris.Wrapf(ErrValidation, "outreach %s is %s, not ghosted", original.ID, original.Status)
	}
	if original.FollowUpSent {
		return nil, eris.Wrapf(ErrValidation, "outreach %s already has follow-up %s", original.ID, original.FollowUpMessageID)
	}

	text := req.Text
	if text == "" {
		text = original.SuggestedFollowUp
	}
	if text == "" {
		return nil, eris.Wrap(ErrValidation, "no follow-up text given and none suggested")
	}

	followUp, err := e.Create(ctx, CreateRequest{
		UserID:          req.UserID,
		LeadID:          original.LeadID,
		Text:            text,
		Channel:         original.Channel,
		Type:            model.MessageGhostBuster,
		Intent:          model.IntentReactivation,
		TemplateID:      req.TemplateID,
		TemplateVariant: req.TemplateVariant,
	})
	if err != nil {
		return nil, err
	}

	original.FollowUpSent = true
	original.FollowUpMessageID = followUp.ID
	if err := e.store.UpdateOutreach(ctx, original); err != nil {
		return nil, err
	}

	if req.TemplateID != "" {
		mood := model.MoodUnknown
		if profile, err := e.store.GetProfile(ctx, req.UserID, original.LeadID); err == nil {
			mood = profile.Mood
		}
		if err := e.RecordAssignment(ctx, &store.ABAssignment{
			UserID:     req.UserID,
			LeadID:     original.LeadID,
			TemplateID: req.TemplateID,
			Variant:    req.TemplateVariant,
			Mood:       mood,
			CampaignID: req.CampaignID,
		}); err != nil {
			// The follow-up itself is durable; the assignment event is not
			// worth failing the send over.
			zap.L().Warn("follow-up assignment not recorded",
				zap.String("template_id", req.TemplateID), zap.Error(err))
		}
	}

	zap.L().Info("ghost follow-up created",
		zap.String("original_id", original.ID),
		zap.String("follow_up_id", followUp.ID),
		zap.String("template_id", req.TemplateID))
	return followUp, nil
}
