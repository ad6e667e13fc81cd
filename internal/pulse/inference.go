package pulse

import (
	"context"

	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// ImportSignal is what a chat import tells us about the lead's side of the
// conversation.
type ImportSignal struct {
	UserID string
	LeadID string

	// LatestSenderIsLead is true when the most recent imported message came
	// from the lead.
	LatestSenderIsLead bool

	// HasUnreadInbound is true when the import contains unread messages from
	// the lead.
	HasUnreadInbound bool
}

// InferFromImport transitions every pending outreach for the lead to
// replied when the imported chat shows the lead has responded. Returns the
// number of rows transitioned.
func (e *Engine) InferFromImport(ctx context.Context, sig ImportSignal) (int, error) {
	if !sig.LatestSenderIsLead && !sig.HasUnreadInbound {
		return 0, nil
	}

	rows, err := e.store.ListOutreach(ctx, store.OutreachFilter{
		UserID: sig.UserID,
		LeadID: sig.LeadID,
		Statuses: []model.OutreachStatus{
			model.StatusSent, model.StatusDelivered, model.StatusSeen,
		},
		CheckInIncomplete: true,
	})
	if err != nil {
		return 0, err
	}

	now := e.nowFunc().UTC()
	inferred := 0
	for i := range rows {
		msg := &rows[i]
		msg.Status = model.StatusReplied
		msg.StatusSource = model.SourceChatImport
		msg.StatusUpdatedAt = now
		msg.AutoInferred = true
		msg.InferenceReason = "Lead replied in imported chat"
		msg.RepliedAt = &now
		msg.CheckInCompleted = true
		if err := e.store.UpdateOutreach(ctx, msg); err != nil {
			zap.L().Warn("import inference update failed",
				zap.String("id", msg.ID), zap.Error(err))
			continue
		}
		inferred++
	}

	if inferred > 0 {
		zap.L().Info("statuses inferred from chat import",
			zap.String("lead_id", sig.LeadID), zap.Int("inferred", inferred))
	}
	return inferred, nil
}
