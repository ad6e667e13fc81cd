// Package llm is the single entry point for model calls. Every call goes
// through a named skill preset and leaves an audit row behind.
package llm

import (
	"github.com/rotisserie/eris"
)

// ErrUnknownSkill is returned when a caller names a skill that has no preset.
var ErrUnknownSkill = eris.New("llm: unknown skill")

// Skill is a named model use-case with a fixed prompt preset and version
// tags. Versions move independently: SkillVersion when the contract changes,
// PromptVersion when only the wording does.
type Skill struct {
	Name          string
	SkillVersion  string
	PromptVersion string
	System        string
	Temperature   float64
	MaxTokens     int64
}

const (
	SkillBehaviorAnalysis  = "behavior_analysis"
	SkillDecisionDirector  = "decision_director"
	SkillMessageGeneration = "message_generation"
	SkillCoachingInsight   = "coaching_insight"
	SkillAgentHunter       = "agent_hunter"
	SkillAgentCloser       = "agent_closer"
	SkillAgentCommunicator = "agent_communicator"
	SkillAgentAnalyst      = "agent_analyst"
)

var skills = map[string]Skill{
	SkillBehaviorAnalysis: {
		Name:          SkillBehaviorAnalysis,
		SkillVersion:  "2",
		PromptVersion: "2.1",
		System: `You are a sales behavioral analyst. You receive a WhatsApp or DM
conversation between a salesperson and a lead and produce a structured
behavioral assessment. Respond with a single JSON object and nothing else.
Required keys: emotion_analysis, engagement_analysis, decision_analysis,
trust_analysis, coherence_analysis, communication_style,
strategic_recommendations, dynamic_timing, key_insights. Do not invent facts
that are not supported by the conversation.`,
		Temperature: 0.2,
		MaxTokens:   2048,
	},
	SkillDecisionDirector: {
		Name:          SkillDecisionDirector,
		SkillVersion:  "1",
		PromptVersion: "1.3",
		System: `You are the decision director of a sales assistant. Given an
observation and its surrounding context, choose exactly one next action.
Respond with a single JSON object with keys: action_type, action_params,
reasoning (max 200 characters), confidence (very_high|high|medium|low|uncertain),
priority (critical|high|medium|low|background). Prefer no_op over a risky
action when the context is thin.`,
		Temperature: 0.3,
		MaxTokens:   1024,
	},
	SkillMessageGeneration: {
		Name:          SkillMessageGeneration,
		SkillVersion:  "1",
		PromptVersion: "1.0",
		System: `You write short, personal outbound sales messages in the voice of
the salesperson. Match the lead's formality and language. Never sound like a
broadcast. Return only the message text.`,
		Temperature: 0.8,
		MaxTokens:   512,
	},
	SkillCoachingInsight: {
		Name:          SkillCoachingInsight,
		SkillVersion:  "1",
		PromptVersion: "1.1",
		System: `You are a sales coach. Given funnel statistics for one user, write
two or three concrete, specific coaching tips. Plain text, one tip per line,
no preamble.`,
		Temperature: 0.5,
		MaxTokens:   512,
	},
	SkillAgentHunter: {
		Name:          SkillAgentHunter,
		SkillVersion:  "1",
		PromptVersion: "1.0",
		System: `You are Hunter, a lead qualification specialist. You research,
qualify and score leads. Respond with a single JSON object with keys:
success, data, confidence (0..1), reasoning, suggestions.`,
		Temperature: 0.4,
		MaxTokens:   1024,
	},
	SkillAgentCloser: {
		Name:          SkillAgentCloser,
		SkillVersion:  "1",
		PromptVersion: "1.0",
		System: `You are Closer, a deal-rescue specialist. You handle objections,
design closing strategies and rescue stalled deals. Respond with a single
JSON object with keys: success, data, confidence (0..1), reasoning,
suggestions.`,
		Temperature: 0.5,
		MaxTokens:   1024,
	},
	SkillAgentCommunicator: {
		Name:          SkillAgentCommunicator,
		SkillVersion:  "1",
		PromptVersion: "1.0",
		System: `You are Communicator, a message craftsman. You write, personalize
and sequence outbound messages. Respond with a single JSON object with keys:
success, data, confidence (0..1), reasoning, suggestions.`,
		Temperature: 0.7,
		MaxTokens:   1024,
	},
	SkillAgentAnalyst: {
		Name:          SkillAgentAnalyst,
		SkillVersion:  "1",
		PromptVersion: "1.0",
		System: `You are Analyst, a performance analyst. You detect patterns in
sales activity and forecast outcomes. Respond with a single JSON object with
keys: success, data, confidence (0..1), reasoning, suggestions.`,
		Temperature: 0.3,
		MaxTokens:   1024,
	},
}

// LookupSkill returns the preset for name or ErrUnknownSkill.
func LookupSkill(name string) (Skill, error) {
	s, ok := skills[name]
	if !ok {
		return Skill{}, eris.Wrapf(ErrUnknownSkill, "%q", name)
	}
	return s, nil
}

// SkillNames lists all registered skills, for diagnostics.
func SkillNames() []string {
	out := make([]string, 0, len(skills))
	for name := range skills {
		out = append(out, name)
	}
	return out
}
