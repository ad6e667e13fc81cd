// Package pulse implements the outreach lifecycle: creation with dynamic
// check-in timing, the status state machine, ghost detection, follow-up
// template ranking and funnel analytics.
package pulse

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// ErrInvalidTransition is returned when a status change is outside the
// transition graph. Nothing is persisted.
var ErrInvalidTransition = eris.New("pulse: invalid status transition")

// ErrValidation is returned when a request carries an unknown enum value.
var ErrValidation = eris.New("pulse: invalid request")

// Engine drives outreach lifecycle operations against the store.
type Engine struct {
	store   store.Store
	nowFunc func() time.Time
}

// NewEngine creates the engine.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st, nowFunc: time.Now}
}

// WithNow injects a clock for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.nowFunc = now
	return e
}

// CreateRequest describes a new outbound contact to track.
type CreateRequest struct {
	UserID          string
	LeadID          string
	Text            string
	Channel         model.Channel
	Type            model.MessageType
	Intent          model.Intent
	TemplateID      string
	TemplateVariant string
	InitialStatus   model.OutreachStatus // defaults to sent
}

// Create persists a new outreach row. The check-in interval comes from the
// lead's behavior profile when one exists, otherwise the 24 h default.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*model.OutreachMessage, error) {
	if !req.Channel.Valid() {
		return nil, eris.Wrapf(ErrValidation, "unknown channel %q", req.Channel)
	}
	if !req.Intent.Valid() {
		return nil, eris.Wrapf(ErrValidation, "unknown intent %q", req.Intent)
	}
	status := req.InitialStatus
	if status == "" {
		status = model.StatusSent
	}
	if !status.Valid() {
		return nil, eris.Wrapf(ErrValidation, "unknown status %q", status)
	}

	checkInHours := model.DefaultCheckInHours
	if req.LeadID != "" {
		profile, err := e.store.GetProfile(ctx, req.UserID, req.LeadID)
		switch {
		case err == nil && profile.PredictedCheckInHours > 0:
			checkInHours = profile.PredictedCheckInHours
		case err != nil && !eris.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	now := e.nowFunc().UTC()
	msg := &model.OutreachMessage{
		UserID:  req.UserID,
		LeadID:  req.LeadID,
		Channel: req.Channel,
		Text:    req.Text,
		Type:    req.Type,
		Intent:  req.Intent,

		Status:          status,
		StatusSource:    model.SourceUser,
		StatusUpdatedAt: now,

		SentAt:           now,
		CheckInDueAt:     now.Add(time.Duration(checkInHours * float64(time.Hour))),
		CheckInHoursUsed: checkInHours,

		TemplateID:      req.TemplateID,
		TemplateVariant: req.TemplateVariant,
	}
	if err := e.store.CreateOutreach(ctx, msg); err != nil {
		return nil, err
	}

	zap.L().Info("outreach created",
		zap.String("id", msg.ID),
		zap.String("user_id", msg.UserID),
		zap.String("lead_id", msg.LeadID),
		zap.Float64("check_in_hours", checkInHours),
	)
	return msg, nil
}

// TransitionRequest asks for one status change on one outreach row.
type TransitionRequest struct {
	UserID string
	ID     string
	To     model.OutreachStatus
	Source model.StatusSource

	// Lead activity signals feeding ghost classification.
	LeadOnlineSince bool
	LeadPostedSince bool
}

// UpdateStatus applies a transition through the state machine. Updating to
// seen after the lead's ghost threshold has elapsed silently promotes the
// row to ghosted with a classified ghost type.
func (e *Engine) UpdateStatus(ctx context.Context, req TransitionRequest) (*model.OutreachMessage, error) {
	msg, err := e.store.GetOutreach(ctx, req.UserID, req.ID)
	if err != nil {
		return nil, err
	}

	now := e.nowFunc().UTC()
	to := req.To
	if !to.Valid() {
		return nil, eris.Wrapf(ErrInvalidTransition, "unknown status %q", to)
	}

	if to == model.StatusSeen {
		threshold, err := e.ghostThreshold(ctx, req.UserID, msg.LeadID)
		if err != nil {
			return nil, err
		}
		if now.Sub(msg.SentAt).Hours() >= threshold {
			zap.L().Info("late seen promoted to ghosted",
				zap.String("id", msg.ID),
				zap.Float64("threshold_hours", threshold))
			to = model.StatusGhosted
		}
	}

	if !model.CanTransition(msg.Status, to) {
		return nil, eris.Wrapf(ErrInvalidTransition, "%s → %s", msg.Status, to)
	}

	source := req.Source
	if source == "" {
		source = model.SourceUser
	}

	msg.Status = to
	msg.StatusSource = source
	msg.StatusUpdatedAt = now
	if source == model.SourceBulkSkip {
		msg.CheckInSkipped = true
	} else {
		msg.CheckInCompleted = true
	}

	switch to {
	case model.StatusDelivered:
		if msg.DeliveredAt == nil {
			msg.DeliveredAt = &now
		}
	case model.StatusSeen:
		if msg.SeenAt == nil {
			msg.SeenAt = &now
		}
	case model.StatusReplied:
		if msg.RepliedAt == nil {
			msg.RepliedAt = &now
		}
		// Reactivation clears the ghost classification.
		msg.GhostType = ""
		msg.GhostDetectedAt = nil
	case model.StatusGhosted:
		e.classifyGhost(msg, now, req.LeadOnlineSince, req.LeadPostedSince)
	}

	if err := e.store.UpdateOutreach(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// classifyGhost stamps ghost_type, detection time and the recommended
// follow-up strategy onto a freshly ghosted row.
func (e *Engine) classifyGhost(msg *model.OutreachMessage, now time.Time, online, posted bool) {
	var hoursSinceSeen float64
	if msg.SeenAt != nil {
		hoursSinceSeen = now.Sub(*msg.SeenAt).Hours()
	}
	msg.GhostType = ClassifyGhost(hoursSinceSeen, online, posted)
	msg.GhostDetectedAt = &now
	msg.SuggestedStrategy, msg.SuggestedFollowUp = RecommendStrategy(msg.GhostType)
}

// ghostThreshold returns the lead's predicted ghost threshold in hours, or
// the 48 h default when no profile exists.
func (e *Engine) ghostThreshold(ctx context.Context, userID, leadID string) (float64, error) {
	if leadID == "" {
		return model.DefaultGhostThresholdHours, nil
	}
	profile, err := e.store.GetProfile(ctx, userID, leadID)
	if eris.Is(err, store.ErrNotFound) {
		return model.DefaultGhostThresholdHours, nil
	}
	if err != nil {
		return 0, err
	}
	if profile.PredictedGhostThresholdHrs <= 0 {
		return model.DefaultGhostThresholdHours, nil
	}
	return profile.PredictedGhostThresholdHrs, nil
}

// Get returns one outreach row.
func (e *Engine) Get(ctx context.Context, userID, id string) (*model.OutreachMessage, error) {
	return e.store.GetOutreach(ctx, userID, id)
}

// List returns outreach rows matching the filter.
func (e *Engine) List(ctx context.Context, f store.OutreachFilter) ([]model.OutreachMessage, error) {
	return e.store.ListOutreach(ctx, f)
}
