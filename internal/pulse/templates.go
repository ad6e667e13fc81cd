package pulse

import (
	"context"
	"math"
	"sort"

	"github.com/salesflow-ai/pulse/internal/model"
)

// TemplateContext is the lead situation follow-up templates are ranked for.
type TemplateContext struct {
	Mood           model.Mood
	Decision       model.DecisionTendency
	GhostType      model.GhostType
	HoursSinceSeen float64
}

// ScoredTemplate pairs a template with its computed score.
type ScoredTemplate struct {
	Template model.GhostBusterTemplate `json:"template"`
	Score    float64                   `json:"score"`
}

// softGhostStrategies and hardGhostStrategies grade strategy fit per ghost
// type. A soft ghost gets gentle re-engagement; a hard ghost needs a pattern
// interrupt.
var (
	softGhostStrategies = map[model.Strategy]float64{
		model.StrategyValueAdd:   3,
		model.StrategyStoryReply: 3,
		model.StrategyVoiceNote:  3,
		model.StrategyTakeaway:   -1,
	}
	hardGhostStrategies = map[model.Strategy]float64{
		model.StrategyGhostBuster: 3,
		model.StrategyTakeaway:    3,
		model.StrategyDirectAsk:   3,
		model.StrategyValueAdd:    -1,
	}
)

// ScoreTemplates ranks active templates for the given lead context and
// returns at most the top five. Templates whose days_since_ghost window has
// passed are dropped. Ties break by success rate, then id, so the ranking
// is deterministic.
func ScoreTemplates(templates []model.GhostBusterTemplate, tc TemplateContext) []ScoredTemplate {
	maxDays := int(math.Floor(tc.HoursSinceSeen/24)) + 3

	strategies := softGhostStrategies
	if tc.GhostType == model.GhostHard {
		strategies = hardGhostStrategies
	}

	var scored []ScoredTemplate
	for _, t := range templates {
		if !t.IsActive {
			continue
		}
		if t.DaysSinceGhost > maxDays {
			continue
		}

		var score float64
		for _, m := range t.WorksForMood {
			if m == tc.Mood {
				score += 2
				break
			}
		}
		for _, d := range t.WorksForDecision {
			if d == tc.Decision {
				score += 2
				break
			}
		}
		score += strategies[t.Strategy]
		score += t.SuccessRate / 20

		scored = append(scored, ScoredTemplate{Template: t, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Template.SuccessRate != scored[j].Template.SuccessRate {
			return scored[i].Template.SuccessRate > scored[j].Template.SuccessRate
		}
		return scored[i].Template.ID < scored[j].Template.ID
	})

	if len(scored) > 5 {
		scored = scored[:5]
	}
	return scored
}

// SuggestTemplates loads the user's active templates and ranks them for the
// lead's current behavior profile and ghost state.
func (e *Engine) SuggestTemplates(ctx context.Context, userID string, tc TemplateContext) ([]ScoredTemplate, error) {
	templates, err := e.store.ListTemplates(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return ScoreTemplates(templates, tc), nil
}
