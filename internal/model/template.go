package model

import (
	"strings"
	"time"
)

// Strategy names a follow-up approach for re-engaging a silent lead.
type Strategy string

const (
	StrategyValueAdd    Strategy = "value_add"
	StrategyStoryReply  Strategy = "story_reply"
	StrategyVoiceNote   Strategy = "voice_note"
	StrategyTakeaway    Strategy = "takeaway"
	StrategyGhostBuster Strategy = "ghost_buster"
	StrategyDirectAsk   Strategy = "direct_ask"
)

// GhostBusterTemplate is a reusable follow-up message template. Text may
// contain a {name} placeholder substituted at send time.
type GhostBusterTemplate struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id"`
	Text     string   `json:"text"`
	Strategy Strategy `json:"strategy"`

	WorksForMood     []Mood             `json:"works_for_mood"`
	WorksForDecision []DecisionTendency `json:"works_for_decision"`

	// DaysSinceGhost is the intended elapsed-days window for the template;
	// 0 means the template is not time-bound.
	DaysSinceGhost int `json:"days_since_ghost,omitempty"`

	SuccessRate     float64 `json:"success_rate"` // 0..100
	SentCount       int     `json:"sent_count"`
	ConversionCount int     `json:"conversion_count"`
	IsActive        bool    `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Personalize substitutes the {name} placeholder in the template text.
func (t GhostBusterTemplate) Personalize(name string) string {
	return strings.ReplaceAll(t.Text, "{name}", name)
}
