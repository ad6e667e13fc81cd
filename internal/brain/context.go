package brain

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// DecisionContext is everything the decision director sees besides the
// observation itself.
type DecisionContext struct {
	UserState     map[string]any             `json:"user_state"`
	LeadSnapshot  *model.LeadBehaviorProfile `json:"lead_snapshot,omitempty"`
	RecentComms   []commSummary              `json:"recent_communications,omitempty"`
	Hour          int                        `json:"hour"`
	Weekday       string                     `json:"weekday"`
	BusinessHours bool                       `json:"business_hours"`
}

// commSummary is the compact view of one recent outreach handed to the
// model.
type commSummary struct {
	Status  model.OutreachStatus `json:"status"`
	Intent  model.Intent         `json:"intent"`
	Channel model.Channel        `json:"channel"`
	SentAt  time.Time            `json:"sent_at"`
	Text    string               `json:"text"`
}

// gatherContext assembles the decision context: aggregates over the last
// 100 observations, the lead snapshot, the last 5 communications and
// clock flags. Partial failures degrade to a thinner context rather than
// aborting the decision.
func (b *Brain) gatherContext(ctx context.Context, obs model.Observation) DecisionContext {
	now := b.nowFunc().UTC()
	dc := DecisionContext{
		UserState:     map[string]any{},
		Hour:          now.Hour(),
		Weekday:       now.Weekday().String(),
		BusinessHours: isBusinessHours(now),
	}

	recent, err := b.store.ListRecentObservations(ctx, obs.UserID, 100)
	if err != nil {
		zap.L().Warn("observation history unavailable", zap.Error(err))
	} else {
		byType := map[string]int{}
		byPriority := map[string]int{}
		for _, o := range recent {
			byType[o.Type]++
			byPriority[string(o.Priority)]++
		}
		dc.UserState["recent_observations"] = len(recent)
		dc.UserState["observations_by_type"] = byType
		dc.UserState["observations_by_priority"] = byPriority
	}

	leadID, _ := obs.Data["lead_id"].(string)
	if leadID == "" {
		return dc
	}

	profile, err := b.store.GetProfile(ctx, obs.UserID, leadID)
	if err != nil && !eris.Is(err, store.ErrNotFound) {
		zap.L().Warn("lead snapshot unavailable", zap.Error(err))
	}
	dc.LeadSnapshot = profile

	comms, err := b.store.ListOutreach(ctx, store.OutreachFilter{
		UserID: obs.UserID,
		LeadID: leadID,
		Limit:  5,
	})
	if err != nil {
		zap.L().Warn("communication history unavailable", zap.Error(err))
		return dc
	}
	for _, m := range comms {
		dc.RecentComms = append(dc.RecentComms, commSummary{
			Status:  m.Status,
			Intent:  m.Intent,
			Channel: m.Channel,
			SentAt:  m.SentAt,
			Text:    model.Summarize(m.Text),
		})
	}
	return dc
}

// isBusinessHours reports 09:00..18:00 Monday through Friday.
func isBusinessHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return t.Hour() >= 9 && t.Hour() < 18
}
