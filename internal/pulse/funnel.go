package pulse

import (
	"context"
	"sort"
	"time"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// AccurateFunnel reports conversion rates computed strictly over confirmed
// rows. Unconfirmed, stale and skipped rows are counted but never enter a
// rate denominator.
type AccurateFunnel struct {
	Total       int `json:"total"`
	Confirmed   int `json:"confirmed"`
	Unconfirmed int `json:"unconfirmed"`
	Stale       int `json:"stale"`
	Skipped     int `json:"skipped"`

	Opened  int `json:"opened"`
	Replied int `json:"replied"`
	Ghosted int `json:"ghosted"`

	OpenRate  float64 `json:"open_rate"`
	ReplyRate float64 `json:"reply_rate"`
	GhostRate float64 `json:"ghost_rate"`

	// DataQualityScore buckets the confirmation ratio: 100/80/60/40/20.
	DataQualityScore int `json:"data_quality_score"`
}

// BuildAccurateFunnel computes the funnel over the given rows.
func BuildAccurateFunnel(rows []model.OutreachMessage) *AccurateFunnel {
	f := &AccurateFunnel{Total: len(rows)}

	for _, m := range rows {
		switch {
		case m.Status == model.StatusStale:
			f.Stale++
			continue
		case m.Status == model.StatusSkipped || m.CheckInSkipped:
			f.Skipped++
			continue
		case !m.CheckInCompleted:
			f.Unconfirmed++
			continue
		}
		f.Confirmed++
		switch m.Status {
		case model.StatusSeen:
			f.Opened++
		case model.StatusReplied:
			f.Opened++
			f.Replied++
		case model.StatusGhosted:
			f.Opened++
			f.Ghosted++
		}
	}

	if f.Confirmed > 0 {
		f.OpenRate = float64(f.Opened) / float64(f.Confirmed)
	}
	if f.Opened > 0 {
		f.ReplyRate = float64(f.Replied) / float64(f.Opened)
		f.GhostRate = float64(f.Ghosted) / float64(f.Opened)
	}
	if f.Total > 0 {
		f.DataQualityScore = dataQualityScore(float64(f.Confirmed) / float64(f.Total))
	}
	return f
}

func dataQualityScore(ratio float64) int {
	switch {
	case ratio >= 0.9:
		return 100
	case ratio >= 0.7:
		return 80
	case ratio >= 0.5:
		return 60
	case ratio >= 0.3:
		return 40
	default:
		return 20
	}
}

// IntentStats is the funnel for one intent group.
type IntentStats struct {
	Intent    model.Intent `json:"intent"`
	Sent      int          `json:"sent"`
	Seen      int          `json:"seen"`
	Replied   int          `json:"replied"`
	Ghosted   int          `json:"ghosted"`
	ReplyRate float64      `json:"reply_rate"`
	GhostRate float64      `json:"ghost_rate"`
}

// CoachingLevel grades one intent against the user's average.
type CoachingLevel string

const (
	CoachingStrong  CoachingLevel = "strong"
	CoachingAverage CoachingLevel = "average"
	CoachingWeak    CoachingLevel = "weak"
)

// CoachingInsight is one tip attached to an intent group.
type CoachingInsight struct {
	Intent model.Intent  `json:"intent"`
	Level  CoachingLevel `json:"level"`
	Tip    string        `json:"tip"`
}

// IntentFunnel breaks performance down by conversational intent.
type IntentFunnel struct {
	Intents     []IntentStats     `json:"intents"`
	BestIntent  model.Intent      `json:"best_intent,omitempty"`
	WorstIntent model.Intent      `json:"worst_intent,omitempty"`
	Coaching    []CoachingInsight `json:"coaching,omitempty"`
}

// minSendsForRanking gates best/worst selection and the coaching average.
const minSendsForRanking = 5

// BuildIntentFunnel groups rows by intent and computes per-group rates,
// best/worst intents and coaching insights.
func BuildIntentFunnel(rows []model.OutreachMessage) *IntentFunnel {
	byIntent := map[model.Intent]*IntentStats{}
	for _, m := range rows {
		st, ok := byIntent[m.Intent]
		if !ok {
			st = &IntentStats{Intent: m.Intent}
			byIntent[m.Intent] = st
		}
		st.Sent++
		switch m.Status {
		case model.StatusSeen:
			st.Seen++
		case model.StatusReplied:
			st.Seen++
			st.Replied++
		case model.StatusGhosted:
			st.Seen++
			st.Ghosted++
		}
	}

	f := &IntentFunnel{}
	for _, st := range byIntent {
		if st.Seen > 0 {
			st.ReplyRate = float64(st.Replied) / float64(st.Seen)
			st.GhostRate = float64(st.Ghosted) / float64(st.Seen)
		}
		f.Intents = append(f.Intents, *st)
	}
	sort.Slice(f.Intents, func(i, j int) bool {
		return f.Intents[i].Intent < f.Intents[j].Intent
	})

	// Best and worst are picked only among intents with enough volume.
	var avgSum float64
	var avgN int
	bestRate, worstRate := -1.0, 2.0
	for _, st := range f.Intents {
		if st.Sent < minSendsForRanking {
			continue
		}
		avgSum += st.ReplyRate
		avgN++
		if st.ReplyRate > bestRate {
			bestRate = st.ReplyRate
			f.BestIntent = st.Intent
		}
		if st.ReplyRate < worstRate {
			worstRate = st.ReplyRate
			f.WorstIntent = st.Intent
		}
	}

	if avgN > 0 {
		avg := avgSum / float64(avgN)
		for _, st := range f.Intents {
			if st.Sent < 3 {
				continue
			}
			level := CoachingAverage
			switch {
			case st.ReplyRate >= 1.3*avg:
				level = CoachingStrong
			case st.ReplyRate < 0.7*avg:
				level = CoachingWeak
			}
			f.Coaching = append(f.Coaching, CoachingInsight{
				Intent: st.Intent,
				Level:  level,
				Tip:    coachingTip(st.Intent, level),
			})
		}
	}
	return f
}

// coachingTips holds the canned guidance per (intent, level).
var coachingTips = map[model.Intent]map[CoachingLevel]string{
	model.IntentIntro: {
		CoachingStrong:  "Your intros land well. Keep the first message short and personal.",
		CoachingAverage: "Intros are solid. Try referencing something specific about the lead.",
		CoachingWeak:    "Intros underperform. Drop the pitch from the first message and ask one question instead.",
	},
	model.IntentDiscovery: {
		CoachingStrong:  "Discovery questions are getting answers. Double down on open questions.",
		CoachingAverage: "Discovery is average. Ask about the lead's situation before the offer.",
		CoachingWeak:    "Discovery messages get ignored. Shorten them and ask one question at a time.",
	},
	model.IntentPitch: {
		CoachingStrong:  "Pitches convert. Your value framing works, keep the structure.",
		CoachingAverage: "Pitches are average. Lead with the outcome, not the product.",
		CoachingWeak:    "Pitches ghost often. Warm the lead up with value before pitching.",
	},
	model.IntentScheduling: {
		CoachingStrong:  "Scheduling works. Offering two concrete slots is doing its job.",
		CoachingAverage: "Scheduling is average. Offer two concrete time slots instead of asking when.",
		CoachingWeak:    "Scheduling stalls. Propose a specific day and time and make saying yes easy.",
	},
	model.IntentClosing: {
		CoachingStrong:  "Closing messages land. Keep the direct ask.",
		CoachingAverage: "Closing is average. Restate the value once, then ask plainly.",
		CoachingWeak:    "Closing messages get silence. Reduce pressure and give an easy next step.",
	},
	model.IntentFollowUp: {
		CoachingStrong:  "Follow-ups revive conversations. Your cadence fits your leads.",
		CoachingAverage: "Follow-ups are average. Add new value in each follow-up instead of checking in.",
		CoachingWeak:    "Follow-ups get ignored. Never send a bare bump, attach something useful.",
	},
	model.IntentReactivation: {
		CoachingStrong:  "Reactivations work. The pattern interrupt is doing its job.",
		CoachingAverage: "Reactivations are average. Reference what changed since you last spoke.",
		CoachingWeak:    "Reactivations fall flat. Acknowledge the silence directly and lower the stakes.",
	},
}

func coachingTip(intent model.Intent, level CoachingLevel) string {
	if tips, ok := coachingTips[intent]; ok {
		if tip, ok := tips[level]; ok {
			return tip
		}
	}
	return "Review recent conversations for this intent and adjust the message style."
}

// Funnels loads the window of outreach rows and computes both funnel views.
func (e *Engine) Funnels(ctx context.Context, userID string, days int) (*AccurateFunnel, *IntentFunnel, error) {
	if days <= 0 {
		days = 30
	}
	since := e.nowFunc().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	rows, err := e.store.ListOutreach(ctx, store.OutreachFilter{
		UserID:    userID,
		SentAfter: &since,
	})
	if err != nil {
		return nil, nil, err
	}
	return BuildAccurateFunnel(rows), BuildIntentFunnel(rows), nil
}
