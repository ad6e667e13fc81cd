package pulse

import (
	"fmt"
	"testing"

	"github.com/salesflow-ai/pulse/internal/model"
)

func TestScoreTemplates_HardGhostRanking(t *testing.T) {
	// A skeptical, undecided lead hard-ghosted 4 days ago. The takeaway
	// template matches on both axes and strategy; the value_add one matches
	// both axes but its strategy works against a hard ghost.
	tc := TemplateContext{
		Mood:           model.MoodSkeptical,
		Decision:       model.TendencyUndecided,
		GhostType:      model.GhostHard,
		HoursSinceSeen: 96,
	}
	templates := []model.GhostBusterTemplate{
		{
			ID:               "t1",
			Strategy:         model.StrategyValueAdd,
			WorksForMood:     []model.Mood{model.MoodSkeptical},
			WorksForDecision: []model.DecisionTendency{model.TendencyUndecided},
			SuccessRate:      40,
			IsActive:         true,
		},
		{
			ID:               "t2",
			Strategy:         model.StrategyTakeaway,
			WorksForMood:     []model.Mood{model.MoodSkeptical},
			WorksForDecision: []model.DecisionTendency{model.TendencyUndecided},
			SuccessRate:      40,
			IsActive:         true,
		},
	}

	got := ScoreTemplates(templates, tc)
	if len(got) != 2 {
		t.Fatalf("expected 2 scored templates, got %d", len(got))
	}
	if got[0].Template.ID != "t2" {
		t.Errorf("expected takeaway template first, got %s", got[0].Template.ID)
	}
	// 2 (mood) + 2 (decision) + 3 (strategy) + 40/20 = 9
	if got[0].Score != 9 {
		t.Errorf("expected score 9 for t2, got %v", got[0].Score)
	}
	// 2 + 2 - 1 + 2 = 5
	if got[1].Score != 5 {
		t.Errorf("expected score 5 for t1, got %v", got[1].Score)
	}
}

func TestScoreTemplates_DropsExpiredWindow(t *testing.T) {
	// 96h since seen allows templates up to 4+3 = 7 days.
	tc := TemplateContext{GhostType: model.GhostSoft, HoursSinceSeen: 96}
	templates := []model.GhostBusterTemplate{
		{ID: "in", Strategy: model.StrategyValueAdd, DaysSinceGhost: 7, IsActive: true},
		{ID: "out", Strategy: model.StrategyValueAdd, DaysSinceGhost: 8, IsActive: true},
		{ID: "inactive", Strategy: model.StrategyValueAdd, IsActive: false},
	}

	got := ScoreTemplates(templates, tc)
	if len(got) != 1 || got[0].Template.ID != "in" {
		t.Fatalf("expected only the in-window active template, got %+v", got)
	}
}

func TestScoreTemplates_DeterministicTieBreak(t *testing.T) {
	tc := TemplateContext{GhostType: model.GhostSoft}
	templates := []model.GhostBusterTemplate{
		{ID: "b", Strategy: model.StrategyValueAdd, SuccessRate: 20, IsActive: true},
		{ID: "a", Strategy: model.StrategyValueAdd, SuccessRate: 20, IsActive: true},
		{ID: "c", Strategy: model.StrategyStoryReply, SuccessRate: 40, IsActive: true},
	}

	got := ScoreTemplates(templates, tc)
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	// c wins on success rate (same strategy score); a before b by id.
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if got[i].Template.ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].Template.ID)
		}
	}
}

func TestScoreTemplates_TopFive(t *testing.T) {
	tc := TemplateContext{GhostType: model.GhostSoft}
	var templates []model.GhostBusterTemplate
	for i := 0; i < 8; i++ {
		templates = append(templates, model.GhostBusterTemplate{
			ID:          fmt.Sprintf("t%d", i),
			Strategy:    model.StrategyValueAdd,
			SuccessRate: float64(i * 10),
			IsActive:    true,
		})
	}

	got := ScoreTemplates(templates, tc)
	if len(got) != 5 {
		t.Fatalf("expected 5 templates, got %d", len(got))
	}
	if got[0].Template.ID != "t7" {
		t.Errorf("expected highest success rate first, got %s", got[0].Template.ID)
	}
}
