package brain

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/pulse"
	"github.com/salesflow-ai/pulse/pkg/whatsapp"
)

// ErrUnknownAction is returned when no handler exists for a decision's
// action type.
var ErrUnknownAction = eris.New("brain: unknown action type")

// HandlerFunc executes one decision and returns the action result.
type HandlerFunc func(ctx context.Context, d *model.Decision) (map[string]any, error)

// Executor dispatches decisions to per-action handlers.
type Executor struct {
	engine             *pulse.Engine
	gateway            *llm.Gateway
	sender             whatsapp.Sender
	defaultCountryCode string
	handlers           map[model.ActionType]HandlerFunc
}

// NewExecutor wires the default handler set.
func NewExecutor(engine *pulse.Engine, gateway *llm.Gateway, sender whatsapp.Sender, defaultCountryCode string) *Executor {
	e := &Executor{
		engine:             engine,
		gateway:            gateway,
		sender:             sender,
		defaultCountryCode: defaultCountryCode,
	}
	e.handlers = map[model.ActionType]HandlerFunc{
		model.ActionSendMessage:        e.sendMessage,
		model.ActionSendEmail:          e.escalate, // no email provider wired; a human sends it
		model.ActionUpdateLeadStatus:   e.updateLeadStatus,
		model.ActionCreateFollowup:     e.createFollowup,
		model.ActionScoreLead:          e.scoreLead,
		model.ActionGenerateContent:    e.generateContent,
		model.ActionPersonalizeMessage: e.generateContent,
		model.ActionEscalateToHuman:    e.escalate,
		model.ActionScheduleCheckIn:    e.scheduleCheckIn,
		model.ActionNoOp:               e.noOp,
	}
	return e
}

// Register overrides or adds a handler, for tests and extensions.
func (e *Executor) Register(at model.ActionType, h HandlerFunc) {
	e.handlers[at] = h
}

// Execute runs the decision's handler and measures execution time.
func (e *Executor) Execute(ctx context.Context, d *model.Decision) (map[string]any, int64, error) {
	handler, ok := e.handlers[d.ActionType]
	if !ok {
		return nil, 0, eris.Wrapf(ErrUnknownAction, "%q", d.ActionType)
	}

	start := time.Now()
	result, err := handler(ctx, d)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, elapsed, err
	}
	if result == nil {
		result = map[string]any{}
	}
	result["success"] = true
	return result, elapsed, nil
}

func (e *Executor) sendMessage(ctx context.Context, d *model.Decision) (map[string]any, error) {
	to, _ := d.ActionParams["to"].(string)
	text, _ := d.ActionParams["text"].(string)
	mediaURL, _ := d.ActionParams["media_url"].(string)
	if to == "" || text == "" {
		return nil, eris.New("send_message: to and text are required")
	}

	res, err := e.sender.Send(ctx, whatsapp.NormalizePhone(to, e.defaultCountryCode), text, mediaURL)
	if err != nil {
		return nil, err
	}

	result := map[string]any{"provider_message_id": res.ProviderMessageID}

	// Track the send as an outreach so the pulse engine owns its lifecycle.
	leadID, _ := d.ActionParams["lead_id"].(string)
	msg, err := e.engine.Create(ctx, pulse.CreateRequest{
		UserID:  d.UserID,
		LeadID:  leadID,
		Text:    text,
		Channel: model.ChannelWhatsApp,
		Type:    model.MessageFollowUp,
		Intent:  model.IntentFollowUp,
	})
	if err != nil {
		zap.L().Warn("sent message not tracked as outreach", zap.Error(err))
		return result, nil
	}
	result["outreach_id"] = msg.ID
	return result, nil
}

func (e *Executor) updateLeadStatus(ctx context.Context, d *model.Decision) (map[string]any, error) {
	outreachID, _ := d.ActionParams["outreach_id"].(string)
	status, _ := d.ActionParams["status"].(string)
	if outreachID == "" || status == "" {
		return nil, eris.New("update_lead_status: outreach_id and status are required")
	}

	msg, err := e.engine.UpdateStatus(ctx, pulse.TransitionRequest{
		UserID: d.UserID,
		ID:     outreachID,
		To:     model.OutreachStatus(status),
		Source: model.SourceAutoInferred,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"outreach_id": msg.ID, "status": string(msg.Status)}, nil
}

func (e *Executor) createFollowup(ctx context.Context, d *model.Decision) (map[string]any, error) {
	leadID, _ := d.ActionParams["lead_id"].(string)
	text, _ := d.ActionParams["text"].(string)

	// A decision naming a ghosted outreach gets the linked ghost-buster
	// flow; text may then fall back to the stored suggestion.
	if outreachID, _ := d.ActionParams["outreach_id"].(string); outreachID != "" {
		templateID, _ := d.ActionParams["template_id"].(string)
		variant, _ := d.ActionParams["template_variant"].(string)
		msg, err := e.engine.CreateGhostFollowUp(ctx, pulse.FollowUpRequest{
			UserID:          d.UserID,
			OutreachID:      outreachID,
			Text:            text,
			TemplateID:      templateID,
			TemplateVariant: variant,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"outreach_id": msg.ID, "check_in_due_at": msg.CheckInDueAt}, nil
	}

	if text == "" {
		return nil, eris.New("create_followup: text is required")
	}

	msg, err := e.engine.Create(ctx, pulse.CreateRequest{
		UserID:  d.UserID,
		LeadID:  leadID,
		Text:    text,
		Channel: model.ChannelWhatsApp,
		Type:    model.MessageFollowUp,
		Intent:  model.IntentFollowUp,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"outreach_id": msg.ID, "check_in_due_at": msg.CheckInDueAt}, nil
}

// generateContent serves the content-producing action types. The produced
// text lands in the result for a human to use; nothing is sent.
func (e *Executor) generateContent(ctx context.Context, d *model.Decision) (map[string]any, error) {
	leadID, _ := d.ActionParams["lead_id"].(string)
	res, err := e.gateway.Complete(ctx, llm.CallRequest{
		Skill:     llm.SkillMessageGeneration,
		Input:     d.ActionParams,
		UserID:    d.UserID,
		CompanyID: d.CompanyID,
		LeadID:    leadID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"content":        res.Content,
		"interaction_id": res.Interaction.ID(),
	}, nil
}

// scoreLead asks the Hunter profile for a qualification read on the lead.
func (e *Executor) scoreLead(ctx context.Context, d *model.Decision) (map[string]any, error) {
	leadID, _ := d.ActionParams["lead_id"].(string)
	res, err := e.gateway.Complete(ctx, llm.CallRequest{
		Skill:     llm.SkillAgentHunter,
		Input:     d.ActionParams,
		UserID:    d.UserID,
		CompanyID: d.CompanyID,
		LeadID:    leadID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"assessment":     res.Content,
		"interaction_id": res.Interaction.ID(),
	}, nil
}

func (e *Executor) scheduleCheckIn(ctx context.Context, d *model.Decision) (map[string]any, error) {
	leadID, _ := d.ActionParams["lead_id"].(string)
	if leadID == "" {
		return nil, eris.New("schedule_check_in: lead_id is required")
	}
	profile, err := e.engine.RefreshTiming(ctx, d.UserID, leadID, floatSlice(d.ActionParams["response_times_hours"]))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"check_in_hours":        profile.PredictedCheckInHours,
		"ghost_threshold_hours": profile.PredictedGhostThresholdHrs,
	}, nil
}

func (e *Executor) escalate(ctx context.Context, d *model.Decision) (map[string]any, error) {
	zap.L().Info("decision escalated to human",
		zap.String("decision_id", d.ID),
		zap.String("action_type", string(d.ActionType)),
		zap.String("reasoning", d.Reasoning),
	)
	return map[string]any{"escalated": true}, nil
}

func (e *Executor) noOp(ctx context.Context, d *model.Decision) (map[string]any, error) {
	return map[string]any{}, nil
}

func floatSlice(v any) []float64 {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		if f, ok := item.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}
