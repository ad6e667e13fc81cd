package pulse

import "github.com/salesflow-ai/pulse/internal/model"

// ClassifyGhost grades how severely a lead has gone silent. Activity signals
// (the lead was seen online or posted) harden the classification in the
// 72..120 h band: silence while visibly active is a deliberate ghost.
func ClassifyGhost(hoursSinceSeen float64, leadOnlineSince, leadPostedSince bool) model.GhostType {
	switch {
	case hoursSinceSeen > 120:
		return model.GhostHard
	case hoursSinceSeen > 72:
		if leadOnlineSince || leadPostedSince {
			return model.GhostHard
		}
		return model.GhostSoft
	default:
		return model.GhostSoft
	}
}

// RecommendStrategy maps a ghost type to the follow-up approach and its
// rationale.
func RecommendStrategy(t model.GhostType) (model.Strategy, string) {
	if t == model.GhostHard {
		return model.StrategyTakeaway, "pattern interrupt needed"
	}
	return model.StrategyValueAdd, "soft ghost, no pressure"
}
