package brain

import (
	"context"
	"sort"
	"time"

	"github.com/salesflow-ai/pulse/internal/model"
)

// Pattern summarizes how one action type has been performing.
type Pattern struct {
	ActionType  model.ActionType `json:"action_type"`
	Samples     int              `json:"samples"`
	SuccessRate float64          `json:"success_rate"`
	Label       string           `json:"label"`
}

// minPatternSamples is the volume gate for pattern labeling.
const minPatternSamples = 5

// AnalyzePatterns groups executed decisions by action type over the window
// and labels each group with enough samples.
func (b *Brain) AnalyzePatterns(ctx context.Context, userID string, days int) ([]Pattern, error) {
	if days <= 0 {
		days = 30
	}
	since := b.nowFunc().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	decisions, err := b.store.ListExecutedDecisions(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	type tally struct{ total, succeeded int }
	byAction := map[model.ActionType]*tally{}
	for _, d := range decisions {
		t, ok := byAction[d.ActionType]
		if !ok {
			t = &tally{}
			byAction[d.ActionType] = t
		}
		t.total++
		if success, _ := d.Result["success"].(bool); success {
			t.succeeded++
		}
	}

	var patterns []Pattern
	for at, t := range byAction {
		if t.total < minPatternSamples {
			continue
		}
		rate := float64(t.succeeded) / float64(t.total)
		label := "mixed results"
		switch {
		case rate >= 0.8:
			label = "works well"
		case rate < 0.5:
			label = "needs improvement"
		}
		patterns = append(patterns, Pattern{
			ActionType:  at,
			Samples:     t.total,
			SuccessRate: rate,
			Label:       label,
		})
	}
	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].ActionType < patterns[j].ActionType
	})
	return patterns, nil
}
