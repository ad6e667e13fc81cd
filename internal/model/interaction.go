package model

import "time"

// Outcome tracks what eventually happened with a model-generated artifact.
// It is reported asynchronously, well after the original call.
type Outcome string

const (
	OutcomeUnknown       Outcome = "unknown"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeModified      Outcome = "modified"
	OutcomeUsedAsIs      Outcome = "used_as_is"
	OutcomeSentToLead    Outcome = "sent_to_lead"
	OutcomeLeadReplied   Outcome = "lead_replied"
	OutcomeMeetingBooked Outcome = "meeting_booked"
	OutcomeDealWon       Outcome = "deal_won"
	OutcomeDealLost      Outcome = "deal_lost"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeUnknown, OutcomeIgnored, OutcomeModified, OutcomeUsedAsIs,
		OutcomeSentToLead, OutcomeLeadReplied, OutcomeMeetingBooked,
		OutcomeDealWon, OutcomeDealLost:
		return true
	}
	return false
}

// AIInteraction is the audit row written for every model call. Request and
// response hold summaries only (first 500 chars), never full payloads.
type AIInteraction struct {
	ID            string `json:"id"`
	Skill         string `json:"skill"`
	SkillVersion  string `json:"skill_version"`
	PromptVersion string `json:"prompt_version"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Temperature   float64 `json:"temperature"`
	SessionID     string `json:"session_id"`

	UserID    string `json:"user_id,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	LeadID    string `json:"lead_id,omitempty"`

	RequestSummary  string `json:"request_summary"`
	ResponseSummary string `json:"response_summary"`

	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	LatencyMs    int64   `json:"latency_ms"`
	CostUSD      float64 `json:"cost_usd"`

	Outcome  Outcome `json:"outcome"`
	Rating   *int    `json:"rating,omitempty"`
	Feedback string  `json:"feedback,omitempty"`
	Used     bool    `json:"used"`

	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Summarize truncates s to at most 500 characters for interaction logging.
func Summarize(s string) string {
	const maxSummary = 500
	if len(s) <= maxSummary {
		return s
	}
	return s[:maxSummary]
}
