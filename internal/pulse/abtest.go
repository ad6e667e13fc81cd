package pulse

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// fallbackVariant is used when neither the lead nor the campaign has
// variant history.
const fallbackVariant = "A"

// BestVariant picks the template variant to send a lead, in order of
// preference: the lead's own best mood match, the campaign's best variant
// for that mood, then the fallback.
func (e *Engine) BestVariant(ctx context.Context, userID, leadID, campaignID string) (string, error) {
	mood := model.MoodUnknown

	profile, err := e.store.GetProfile(ctx, userID, leadID)
	switch {
	case err == nil:
		mood = profile.Mood
		if v, ok := profile.BestTemplateMoodMatch[mood]; ok && v != "" {
			return v, nil
		}
	case !eris.Is(err, store.ErrNotFound):
		return "", err
	}

	if campaignID != "" {
		stats, err := e.store.ListCampaignVariantStats(ctx, campaignID)
		if err != nil {
			return "", err
		}
		if v := bestVariantForMood(stats, mood); v != "" {
			return v, nil
		}
	}
	return fallbackVariant, nil
}

// bestVariantForMood returns the variant with the highest reply rate for
// the mood, empty when there is no data.
func bestVariantForMood(stats []store.VariantMoodStat, mood model.Mood) string {
	best := ""
	bestRate := -1.0
	for _, st := range stats {
		if st.Mood != mood || st.SentCount == 0 {
			continue
		}
		rate := st.ReplyRate()
		// Deterministic on ties: lowest variant name wins.
		if rate > bestRate || (rate == bestRate && st.Variant < best) {
			bestRate = rate
			best = st.Variant
		}
	}
	return best
}

// RecordAssignment logs the variant assignment event and then bumps the
// template's send counter. If the event insert fails the counter is left
// untouched.
func (e *Engine) RecordAssignment(ctx context.Context, a *store.ABAssignment) error {
	if err := e.store.InsertABAssignment(ctx, a); err != nil {
		return err
	}
	if err := e.store.IncrementTemplateCounters(ctx, a.TemplateID, 1, 0); err != nil {
		// The assignment event is already durable; the counter catches up on
		// the next send.
		zap.L().Warn("template send counter increment failed",
			zap.String("template_id", a.TemplateID), zap.Error(err))
	}
	return nil
}

// RecordConversion bumps the template's conversion counter after a ghosted
// lead replies to a template follow-up.
func (e *Engine) RecordConversion(ctx context.Context, templateID string) error {
	return e.store.IncrementTemplateCounters(ctx, templateID, 0, 1)
}
