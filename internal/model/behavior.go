package model

import "time"

// Mood is the lead's emotional read from the latest analysis.
type Mood string

const (
	MoodPositive     Mood = "positive"
	MoodEnthusiastic Mood = "enthusiastic"
	MoodNeutral      Mood = "neutral"
	MoodCautious     Mood = "cautious"
	MoodStressed     Mood = "stressed"
	MoodSkeptical    Mood = "skeptical"
	MoodAnnoyed      Mood = "annoyed"
	MoodUnknown      Mood = "unknown"
)

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool {
	switch m {
	case MoodPositive, MoodEnthusiastic, MoodNeutral, MoodCautious,
		MoodStressed, MoodSkeptical, MoodAnnoyed, MoodUnknown:
		return true
	}
	return false
}

// Trajectory describes the direction of a tracked signal over time.
type Trajectory string

const (
	TrajectoryImproving Trajectory = "improving"
	TrajectoryStable    Trajectory = "stable"
	TrajectoryDeclining Trajectory = "declining"
)

// DecisionTendency is where the lead is leaning on the offer.
type DecisionTendency string

const (
	TendencyLeaningYes DecisionTendency = "leaning_yes"
	TendencyLeaningNo  DecisionTendency = "leaning_no"
	TendencyUndecided  DecisionTendency = "undecided"
	TendencyDeferred   DecisionTendency = "deferred"
	TendencyCommitted  DecisionTendency = "committed"
	TendencyRejected   DecisionTendency = "rejected"
)

// Valid reports whether d is a known decision tendency.
func (d DecisionTendency) Valid() bool {
	switch d {
	case TendencyLeaningYes, TendencyLeaningNo, TendencyUndecided,
		TendencyDeferred, TendencyCommitted, TendencyRejected:
		return true
	}
	return false
}

// WordsVsBehavior grades how well the lead's statements match their actions.
type WordsVsBehavior string

const (
	CoherenceConsistent WordsVsBehavior = "consistent"
	CoherenceMinor      WordsVsBehavior = "minor_inconsistency"
	CoherenceMajor      WordsVsBehavior = "major_inconsistency"
)

// ResponseTrend describes whether the lead is answering faster or slower.
type ResponseTrend string

const (
	TrendFaster ResponseTrend = "faster"
	TrendStable ResponseTrend = "stable"
	TrendSlower ResponseTrend = "slower"
)

// Dynamic timing bounds. Predicted check-in hours are clamped to
// [MinCheckInHours, MaxCheckInHours] and ghost thresholds to
// [MinGhostThresholdHours, MaxGhostThresholdHours] for every profile row.
const (
	MinCheckInHours        = 6.0
	MaxCheckInHours        = 72.0
	MinGhostThresholdHours = 8.0
	MaxGhostThresholdHours = 168.0

	// DefaultCheckInHours applies when no behavior profile exists for a lead.
	DefaultCheckInHours = 24.0
	// DefaultGhostThresholdHours applies when there is no response history.
	DefaultGhostThresholdHours = 48.0
)

// ClampCheckInHours bounds a predicted check-in interval.
func ClampCheckInHours(h float64) float64 {
	return clamp(h, MinCheckInHours, MaxCheckInHours)
}

// ClampGhostThresholdHours bounds a predicted ghost threshold.
func ClampGhostThresholdHours(h float64) float64 {
	return clamp(h, MinGhostThresholdHours, MaxGhostThresholdHours)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Recommendations is the strategic guidance section of a behavior profile.
type Recommendations struct {
	Approach      string   `json:"approach"`
	Tone          string   `json:"tone"`
	MessageLength string   `json:"message_length"`
	Timing        string   `json:"timing"`
	Avoid         []string `json:"avoid"`
	Do            []string `json:"do"`
}

// LeadBehaviorProfile is per-lead derived state, one row per
// (user_id, lead_id), upserted on every new conversation analysis.
type LeadBehaviorProfile struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	LeadID string `json:"lead_id"`

	Mood                Mood       `json:"mood"`
	MoodConfidence      float64    `json:"mood_confidence"`
	SentimentTrajectory Trajectory `json:"sentiment_trajectory"`

	EngagementLevel      int        `json:"engagement_level"` // 1..5
	AsksQuestions        bool       `json:"asks_questions"`
	ProactiveContact     bool       `json:"proactive_contact"`
	UsesEmojis           bool       `json:"uses_emojis"`
	EngagementTrajectory Trajectory `json:"engagement_trajectory"`

	DecisionTendency   DecisionTendency `json:"decision_tendency"`
	CommitmentStrength int              `json:"commitment_strength"` // 1..5
	ObjectionsRaised   []string         `json:"objections_raised"`
	BuyingSignals      []string         `json:"buying_signals"`
	HesitationSignals  []string         `json:"hesitation_signals"`

	TrustLevel       int               `json:"trust_level"` // 1..5
	RiskFlags        []string          `json:"risk_flags"`
	RiskDescriptions map[string]string `json:"risk_descriptions"`

	ReliabilityScore int             `json:"reliability_score"` // 1..5
	CoherenceNotes   string          `json:"coherence_notes"`
	WordsVsBehavior  WordsVsBehavior `json:"words_vs_behavior"`

	CommunicationStyle string `json:"communication_style"`
	Formality          string `json:"formality"`

	Recommendations Recommendations `json:"recommendations"`

	AvgResponseTimeHours        *float64      `json:"avg_response_time_hours,omitempty"`
	PredictedCheckInHours       float64       `json:"predicted_check_in_hours"`
	PredictedGhostThresholdHrs  float64       `json:"predicted_ghost_threshold_hours"`
	ResponseTimeTrend           ResponseTrend `json:"response_time_trend"`

	BestTemplateVariant   string          `json:"best_template_variant,omitempty"`
	BestTemplateMoodMatch map[Mood]string `json:"best_template_mood_match,omitempty"`

	KeyInsights []string  `json:"key_insights,omitempty"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
