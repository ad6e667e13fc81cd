package model

import "time"

// Priority orders observations for the decision layer. Lower rank drains
// first.
type Priority string

const (
	PriorityCritical   Priority = "critical"
	PriorityHigh       Priority = "high"
	PriorityMedium     Priority = "medium"
	PriorityLow        Priority = "low"
	PriorityBackground Priority = "background"
)

// priorityRank maps priorities to numeric ranks for queue ordering.
var priorityRank = map[Priority]int{
	PriorityCritical:   0,
	PriorityHigh:       1,
	PriorityMedium:     2,
	PriorityLow:        3,
	PriorityBackground: 4,
}

// Rank returns the numeric rank of p; unknown priorities rank as background.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return priorityRank[PriorityBackground]
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Observation is a discrete event presented to the decision layer.
type Observation struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id"`
	CompanyID string         `json:"company_id,omitempty"`
	Source    string         `json:"source"`
	Priority  Priority       `json:"priority"`
}

// ActionType enumerates what the decision layer may do.
type ActionType string

const (
	ActionSendMessage        ActionType = "send_message"
	ActionSendEmail          ActionType = "send_email"
	ActionUpdateLeadStatus   ActionType = "update_lead_status"
	ActionCreateFollowup     ActionType = "create_followup"
	ActionScoreLead          ActionType = "score_lead"
	ActionGenerateContent    ActionType = "generate_content"
	ActionPersonalizeMessage ActionType = "personalize_message"
	ActionEscalateToHuman    ActionType = "escalate_to_human"
	ActionScheduleCheckIn    ActionType = "schedule_check_in"
	ActionNoOp               ActionType = "no_op"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionSendMessage, ActionSendEmail, ActionUpdateLeadStatus,
		ActionCreateFollowup, ActionScoreLead, ActionGenerateContent,
		ActionPersonalizeMessage, ActionEscalateToHuman,
		ActionScheduleCheckIn, ActionNoOp:
		return true
	}
	return false
}

// Confidence grades how sure the decision layer is about an action.
type Confidence string

const (
	ConfidenceVeryHigh  Confidence = "very_high"
	ConfidenceHigh      Confidence = "high"
	ConfidenceMedium    Confidence = "medium"
	ConfidenceLow       Confidence = "low"
	ConfidenceUncertain Confidence = "uncertain"
)

var confidenceOrder = []Confidence{
	ConfidenceVeryHigh, ConfidenceHigh, ConfidenceMedium,
	ConfidenceLow, ConfidenceUncertain,
}

// Valid reports whether c is a known confidence level.
func (c Confidence) Valid() bool {
	for _, v := range confidenceOrder {
		if v == c {
			return true
		}
	}
	return false
}

// Downgrade returns the next lower confidence level. Uncertain stays
// uncertain.
func (c Confidence) Downgrade() Confidence {
	for i, v := range confidenceOrder {
		if v == c && i < len(confidenceOrder)-1 {
			return confidenceOrder[i+1]
		}
	}
	return ConfidenceUncertain
}

// AutoExecutable reports whether c is trusted enough to run unattended.
// Only very_high and high qualify; everything else goes through approval.
func (c Confidence) AutoExecutable() bool {
	return c == ConfidenceVeryHigh || c == ConfidenceHigh
}

// Decision is the decision layer's persisted output: a structured,
// optionally human-approved proposal of an action. Rows are append-only
// except for the late approved/executed/result mutations.
type Decision struct {
	ID            string         `json:"id"`
	ObservationID string         `json:"observation_id"`
	UserID        string         `json:"user_id"`
	CompanyID     string         `json:"company_id,omitempty"`
	ActionType    ActionType     `json:"action_type"`
	ActionParams  map[string]any `json:"action_params"`
	Reasoning     string         `json:"reasoning"` // ≤200 chars
	Confidence    Confidence     `json:"confidence"`
	Priority      Priority       `json:"priority"`

	RequiresApproval bool  `json:"requires_approval"`
	Approved         *bool `json:"approved,omitempty"`
	Executed         bool  `json:"executed"`

	Result          map[string]any `json:"result,omitempty"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Executable reports whether the decision may be executed now: approval,
// when required, must have been granted, and a rejected decision never runs.
func (d Decision) Executable() bool {
	if d.Approved != nil && !*d.Approved {
		return false
	}
	if d.RequiresApproval {
		return d.Approved != nil && *d.Approved
	}
	return true
}
