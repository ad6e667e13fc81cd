// Package model defines the core entities of the outreach pulse system:
// outreach messages, lead behavior profiles, follow-up templates,
// observations and decisions.
package model

import "time"

// Channel is the medium an outreach message was sent over.
type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
	ChannelEmail     Channel = "email"
	ChannelLinkedIn  Channel = "linkedin"
	ChannelSMS       Channel = "sms"
	ChannelTelegram  Channel = "telegram"
	ChannelOther     Channel = "other"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWhatsApp, ChannelInstagram, ChannelEmail, ChannelLinkedIn,
		ChannelSMS, ChannelTelegram, ChannelOther:
		return true
	}
	return false
}

// MessageType classifies the role of an outreach message in a sequence.
type MessageType string

const (
	MessageInitial      MessageType = "initial"
	MessageFollowUp     MessageType = "follow_up"
	MessageGhostBuster  MessageType = "ghost_buster"
	MessageReactivation MessageType = "reactivation"
)

// Intent is the conversational purpose of an outreach.
type Intent string

const (
	IntentIntro        Intent = "intro"
	IntentDiscovery    Intent = "discovery"
	IntentPitch        Intent = "pitch"
	IntentScheduling   Intent = "scheduling"
	IntentClosing      Intent = "closing"
	IntentFollowUp     Intent = "follow_up"
	IntentReactivation Intent = "reactivation"
)

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool {
	switch i {
	case IntentIntro, IntentDiscovery, IntentPitch, IntentScheduling,
		IntentClosing, IntentFollowUp, IntentReactivation:
		return true
	}
	return false
}

// OutreachStatus is the lifecycle state of an outreach message.
type OutreachStatus string

const (
	StatusSent      OutreachStatus = "sent"
	StatusDelivered OutreachStatus = "delivered"
	StatusSeen      OutreachStatus = "seen"
	StatusReplied   OutreachStatus = "replied"
	StatusGhosted   OutreachStatus = "ghosted"
	StatusInvisible OutreachStatus = "invisible"
	StatusStale     OutreachStatus = "stale"
	StatusSkipped   OutreachStatus = "skipped"
)

// Valid reports whether s is a known status.
func (s OutreachStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// allowedTransitions is the outreach status state machine. A transition not
// listed here is rejected. Replied is terminal; ghosted can only recover to
// replied (reactivation via a follow-up reply).
var allowedTransitions = map[OutreachStatus][]OutreachStatus{
	StatusSent:      {StatusDelivered, StatusSeen, StatusReplied, StatusGhosted, StatusInvisible, StatusStale, StatusSkipped},
	StatusDelivered: {StatusSeen, StatusReplied, StatusGhosted, StatusInvisible, StatusStale, StatusSkipped},
	StatusSeen:      {StatusReplied, StatusGhosted},
	StatusReplied:   {},
	StatusGhosted:   {StatusReplied},
	StatusInvisible: {},
	StatusStale:     {},
	StatusSkipped:   {},
}

// CanTransition reports whether the state machine allows from → to.
// A no-op transition (from == to) is allowed and idempotent.
func CanTransition(from, to OutreachStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Pending reports whether the outreach is still awaiting a lead reaction.
func (s OutreachStatus) Pending() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusSeen
}

// StatusSource records who or what performed a status transition.
type StatusSource string

const (
	SourceUser         StatusSource = "user"
	SourceAutoInferred StatusSource = "auto_inferred"
	SourceChatImport   StatusSource = "chat_import"
	SourceBulkUpdate   StatusSource = "bulk_update"
	SourceBulkSkip     StatusSource = "bulk_skip"
)

// GhostType classifies how severely a lead has gone silent.
type GhostType string

const (
	GhostSoft GhostType = "soft"
	GhostHard GhostType = "hard"
)

// OutreachMessage is a single attempted outbound contact. Rows are kept
// forever for audit; status mutations go through the state machine.
type OutreachMessage struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	LeadID    string      `json:"lead_id,omitempty"`
	Channel   Channel     `json:"channel"`
	Text      string      `json:"text"`
	Type      MessageType `json:"message_type"`
	Intent    Intent      `json:"intent"`

	Status          OutreachStatus `json:"status"`
	StatusSource    StatusSource   `json:"status_source"`
	StatusUpdatedAt time.Time      `json:"status_updated_at"`
	AutoInferred    bool           `json:"auto_inferred"`
	InferenceReason string         `json:"inference_reason,omitempty"`

	SentAt      time.Time  `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	SeenAt      *time.Time `json:"seen_at,omitempty"`
	RepliedAt   *time.Time `json:"replied_at,omitempty"`

	CheckInDueAt         time.Time `json:"check_in_due_at"`
	CheckInHoursUsed     float64   `json:"check_in_hours_used"`
	CheckInCompleted     bool      `json:"check_in_completed"`
	CheckInSkipped       bool      `json:"check_in_skipped"`
	CheckInReminderCount int       `json:"check_in_reminder_count"`

	GhostType           GhostType  `json:"ghost_type,omitempty"`
	GhostDetectedAt     *time.Time `json:"ghost_detected_at,omitempty"`
	FollowUpSent        bool       `json:"follow_up_sent"`
	FollowUpMessageID   string     `json:"follow_up_message_id,omitempty"`
	SuggestedStrategy   Strategy   `json:"suggested_strategy,omitempty"`
	SuggestedFollowUp   string     `json:"suggested_follow_up_text,omitempty"`

	TemplateID      string `json:"template_id,omitempty"`
	TemplateVariant string `json:"template_variant,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
