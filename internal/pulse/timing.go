package pulse

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// Timing is the derived per-lead pacing: how long to wait before checking
// in, when silence counts as ghosting, and which way response times are
// moving.
type Timing struct {
	AvgResponseTimeHours *float64
	CheckInHours         float64
	GhostThresholdHours  float64
	Trend                model.ResponseTrend
}

// engagementMultiplier scales the check-in interval by engagement level.
// Highly engaged leads get checked on sooner relative to their own pace.
func engagementMultiplier(level int) float64 {
	switch level {
	case 5:
		return 2.0
	case 4:
		return 2.5
	case 3, 2:
		return 3.0
	default:
		return 4.0
	}
}

// ComputeTiming derives check-in and ghost thresholds from the lead's
// observed response times. With no history both fall back to defaults.
func ComputeTiming(responseTimesHours []float64, engagementLevel int) Timing {
	if len(responseTimesHours) == 0 {
		return Timing{
			CheckInHours:        model.DefaultCheckInHours,
			GhostThresholdHours: model.DefaultGhostThresholdHours,
			Trend:               model.TrendStable,
		}
	}

	var sum float64
	for _, h := range responseTimesHours {
		sum += h
	}
	avg := sum / float64(len(responseTimesHours))

	return Timing{
		AvgResponseTimeHours: &avg,
		CheckInHours:         model.ClampCheckInHours(avg * engagementMultiplier(engagementLevel)),
		GhostThresholdHours:  model.ClampGhostThresholdHours(avg * 3),
		Trend:                responseTrend(responseTimesHours),
	}
}

// responseTrend compares the mean of the last three responses to the three
// before them. Fewer than six samples reads as stable.
func responseTrend(times []float64) model.ResponseTrend {
	if len(times) < 6 {
		return model.TrendStable
	}
	recent := mean(times[len(times)-3:])
	previous := mean(times[len(times)-6 : len(times)-3])
	if previous == 0 {
		return model.TrendStable
	}
	switch {
	case recent < 0.8*previous:
		return model.TrendFaster
	case recent > 1.2*previous:
		return model.TrendSlower
	default:
		return model.TrendStable
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// RefreshTiming recomputes the lead's timing from response history and
// persists it into the behavior profile.
func (e *Engine) RefreshTiming(ctx context.Context, userID, leadID string, responseTimesHours []float64) (*model.LeadBehaviorProfile, error) {
	profile, err := e.store.GetProfile(ctx, userID, leadID)
	if eris.Is(err, store.ErrNotFound) {
		profile = &model.LeadBehaviorProfile{
			UserID:          userID,
			LeadID:          leadID,
			Mood:            model.MoodUnknown,
			EngagementLevel: 3,
		}
	} else if err != nil {
		return nil, err
	}

	timing := ComputeTiming(responseTimesHours, profile.EngagementLevel)
	profile.AvgResponseTimeHours = timing.AvgResponseTimeHours
	profile.PredictedCheckInHours = timing.CheckInHours
	profile.PredictedGhostThresholdHrs = timing.GhostThresholdHours
	profile.ResponseTimeTrend = timing.Trend
	profile.AnalyzedAt = e.nowFunc().UTC()

	if err := e.store.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
