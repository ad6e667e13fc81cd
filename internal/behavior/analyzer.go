// Package behavior turns raw conversation text into structured lead
// behavior profiles.
package behavior

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// ErrAnalysisFailed is returned when the model reply cannot be parsed into a
// profile. The surrounding outreach flow continues without a fresh profile.
var ErrAnalysisFailed = eris.New("behavior: analysis failed")

// Analyzer runs conversation analysis through the gateway and persists the
// resulting profile.
type Analyzer struct {
	gateway *llm.Gateway
	store   store.Store
	nowFunc func() time.Time
}

// NewAnalyzer wires the analyzer to the gateway and store.
func NewAnalyzer(g *llm.Gateway, st store.Store) *Analyzer {
	return &Analyzer{gateway: g, store: st, nowFunc: time.Now}
}

// WithNow injects a clock for tests.
func (a *Analyzer) WithNow(now func() time.Time) *Analyzer {
	a.nowFunc = now
	return a
}

// AnalyzeRequest carries one conversation to analyze.
type AnalyzeRequest struct {
	UserID       string
	LeadID       string
	Conversation string
	PriorProfile *model.LeadBehaviorProfile
	Context      map[string]any
}

// analysisPayload is the strict reply contract of the behavior_analysis
// skill.
type analysisPayload struct {
	Emotion struct {
		Mood                string  `json:"mood"`
		Confidence          float64 `json:"confidence"`
		SentimentTrajectory string  `json:"sentiment_trajectory"`
	} `json:"emotion_analysis"`
	Engagement struct {
		Level            int    `json:"level"`
		AsksQuestions    bool   `json:"asks_questions"`
		ProactiveContact bool   `json:"proactive_contact"`
		UsesEmojis       bool   `json:"uses_emojis"`
		Trajectory       string `json:"trajectory"`
	} `json:"engagement_analysis"`
	Decision struct {
		Tendency           string   `json:"tendency"`
		CommitmentStrength int      `json:"commitment_strength"`
		ObjectionsRaised   []string `json:"objections_raised"`
		BuyingSignals      []string `json:"buying_signals"`
		HesitationSignals  []string `json:"hesitation_signals"`
	} `json:"decision_analysis"`
	Trust struct {
		Level            int               `json:"level"`
		RiskFlags        []string          `json:"risk_flags"`
		RiskDescriptions map[string]string `json:"risk_descriptions"`
	} `json:"trust_analysis"`
	Coherence struct {
		ReliabilityScore int    `json:"reliability_score"`
		Notes            string `json:"notes"`
		WordsVsBehavior  string `json:"words_vs_behavior"`
	} `json:"coherence_analysis"`
	Communication struct {
		Style     string `json:"style"`
		Formality string `json:"formality"`
	} `json:"communication_style"`
	Recommendations model.Recommendations `json:"strategic_recommendations"`
	Timing          struct {
		AvgResponseTimeHours         *float64 `json:"avg_response_time_hours"`
		PredictedCheckInHours        float64  `json:"predicted_check_in_hours"`
		PredictedGhostThresholdHours float64  `json:"predicted_ghost_threshold_hours"`
		ResponseTimeTrend            string   `json:"response_time_trend"`
	} `json:"dynamic_timing"`
	KeyInsights []string `json:"key_insights"`
}

// Analyze runs the behavior_analysis skill over the conversation, parses the
// reply and upserts the lead's profile.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*model.LeadBehaviorProfile, error) {
	input := map[string]any{
		"conversation": req.Conversation,
	}
	if req.PriorProfile != nil {
		input["prior_profile"] = req.PriorProfile
	}
	if len(req.Context) > 0 {
		input["context"] = req.Context
	}

	result, err := a.gateway.Complete(ctx, llm.CallRequest{
		Skill:  llm.SkillBehaviorAnalysis,
		Input:  input,
		UserID: req.UserID,
		LeadID: req.LeadID,
	})
	if err != nil {
		return nil, err
	}

	payload, err := parseAnalysis(result.Content)
	if err != nil {
		zap.L().Warn("unparseable analysis reply",
			zap.String("lead_id", req.LeadID),
			zap.String("content", model.Summarize(result.Content)),
			zap.Error(err))
		return nil, eris.Wrap(ErrAnalysisFailed, err.Error())
	}

	profile := a.toProfile(req, payload)
	if err := a.store.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// parseAnalysis decodes the model reply, tolerating markdown code fences
// around the JSON object.
func parseAnalysis(content string) (*analysisPayload, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, eris.New("no JSON object in reply")
	}

	var p analysisPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return nil, eris.Wrap(err, "decode analysis")
	}
	if p.Emotion.Mood == "" && p.Engagement.Level == 0 && p.Decision.Tendency == "" {
		return nil, eris.New("analysis sections missing")
	}
	return &p, nil
}

// toProfile maps the parsed payload onto a profile row, normalizing enums
// and clamping timing values.
func (a *Analyzer) toProfile(req AnalyzeRequest, p *analysisPayload) *model.LeadBehaviorProfile {
	now := a.nowFunc().UTC()

	profile := &model.LeadBehaviorProfile{
		UserID: req.UserID,
		LeadID: req.LeadID,

		Mood:                normalizeMood(p.Emotion.Mood),
		MoodConfidence:      p.Emotion.Confidence,
		SentimentTrajectory: normalizeTrajectory(p.Emotion.SentimentTrajectory),

		EngagementLevel:      clampScale(p.Engagement.Level),
		AsksQuestions:        p.Engagement.AsksQuestions,
		ProactiveContact:     p.Engagement.ProactiveContact,
		UsesEmojis:           p.Engagement.UsesEmojis,
		EngagementTrajectory: normalizeTrajectory(p.Engagement.Trajectory),

		DecisionTendency:   normalizeTendency(p.Decision.Tendency),
		CommitmentStrength: clampScale(p.Decision.CommitmentStrength),
		ObjectionsRaised:   p.Decision.ObjectionsRaised,
		BuyingSignals:      p.Decision.BuyingSignals,
		HesitationSignals:  p.Decision.HesitationSignals,

		TrustLevel:       clampScale(p.Trust.Level),
		RiskFlags:        p.Trust.RiskFlags,
		RiskDescriptions: p.Trust.RiskDescriptions,

		ReliabilityScore: clampScale(p.Coherence.ReliabilityScore),
		CoherenceNotes:   p.Coherence.Notes,
		WordsVsBehavior:  normalizeCoherence(p.Coherence.WordsVsBehavior),

		CommunicationStyle: p.Communication.Style,
		Formality:          p.Communication.Formality,

		Recommendations: p.Recommendations,

		AvgResponseTimeHours:       p.Timing.AvgResponseTimeHours,
		PredictedCheckInHours:      model.DefaultCheckInHours,
		PredictedGhostThresholdHrs: model.DefaultGhostThresholdHours,
		ResponseTimeTrend:          normalizeTrend(p.Timing.ResponseTimeTrend),

		KeyInsights: p.KeyInsights,
		AnalyzedAt:  now,
	}

	if req.PriorProfile != nil {
		profile.ID = req.PriorProfile.ID
		profile.CreatedAt = req.PriorProfile.CreatedAt
		profile.BestTemplateVariant = req.PriorProfile.BestTemplateVariant
		profile.BestTemplateMoodMatch = req.PriorProfile.BestTemplateMoodMatch
	}

	if p.Timing.PredictedCheckInHours > 0 {
		profile.PredictedCheckInHours = model.ClampCheckInHours(p.Timing.PredictedCheckInHours)
	}
	if p.Timing.PredictedGhostThresholdHours > 0 {
		profile.PredictedGhostThresholdHrs = model.ClampGhostThresholdHours(p.Timing.PredictedGhostThresholdHours)
	}

	return profile
}

func normalizeMood(s string) model.Mood {
	if m := model.Mood(s); m.Valid() {
		return m
	}
	return model.MoodUnknown
}

func normalizeTrajectory(s string) model.Trajectory {
	switch t := model.Trajectory(s); t {
	case model.TrajectoryImproving, model.TrajectoryStable, model.TrajectoryDeclining:
		return t
	}
	return model.TrajectoryStable
}

func normalizeTendency(s string) model.DecisionTendency {
	if d := model.DecisionTendency(s); d.Valid() {
		return d
	}
	return model.TendencyUndecided
}

func normalizeCoherence(s string) model.WordsVsBehavior {
	switch c := model.WordsVsBehavior(s); c {
	case model.CoherenceConsistent, model.CoherenceMinor, model.CoherenceMajor:
		return c
	}
	return model.CoherenceConsistent
}

func normalizeTrend(s string) model.ResponseTrend {
	switch t := model.ResponseTrend(s); t {
	case model.TrendFaster, model.TrendStable, model.TrendSlower:
		return t
	}
	return model.TrendStable
}

// clampScale bounds a 1..5 model-reported scale, mapping absent values to 3.
func clampScale(v int) int {
	if v == 0 {
		return 3
	}
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
