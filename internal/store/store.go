// Package store is the persistence gateway for the outreach pulse system.
// It exposes typed operations over the hosted relational store plus an
// Execute escape hatch for analytical reads.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/resilience"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// Unavailable wraps transport-level failures that are safe to retry once
// with backoff. Upstream surfaces these as 503-equivalents.
type Unavailable struct {
	Err error
}

func (e *Unavailable) Error() string { return "store unavailable: " + e.Err.Error() }

func (e *Unavailable) Unwrap() error { return e.Err }

// OpError wraps non-retriable store failures (constraint violations, bad
// SQL, serialization errors).
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }

func (e *OpError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a retriable store failure.
func IsUnavailable(err error) bool {
	var u *Unavailable
	return errors.As(err, &u)
}

// classify wraps a driver error as Unavailable when transient, otherwise as
// an OpError for the named operation.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsTransient(err) {
		return &Unavailable{Err: err}
	}
	return &OpError{Op: op, Err: err}
}

// OutreachFilter specifies criteria for listing outreach messages.
type OutreachFilter struct {
	UserID            string
	LeadID            string
	Statuses          []model.OutreachStatus
	SentAfter         *time.Time
	SentBefore        *time.Time
	CheckInIncomplete bool // only rows with check_in_completed = false
	CheckInUnskipped  bool // only rows with check_in_skipped = false
	Limit             int
}

// VariantMoodStat is one row of campaign-level A/B performance by mood.
type VariantMoodStat struct {
	CampaignID string     `json:"campaign_id"`
	Variant    string     `json:"variant"`
	Mood       model.Mood `json:"mood"`
	SentCount  int        `json:"sent_count"`
	ReplyCount int        `json:"reply_count"`
}

// ReplyRate returns replies per send for the stat row, 0 when nothing sent.
func (s VariantMoodStat) ReplyRate() float64 {
	if s.SentCount == 0 {
		return 0
	}
	return float64(s.ReplyCount) / float64(s.SentCount)
}

// ABAssignment records which template variant a lead was assigned before
// the send counter moves. If this insert fails, the counter must not be
// incremented.
type ABAssignment struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	LeadID     string     `json:"lead_id"`
	TemplateID string     `json:"template_id"`
	Variant    string     `json:"variant"`
	Mood       model.Mood `json:"mood"`
	CampaignID string     `json:"campaign_id,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
}

// Store defines the persistence operations of the pulse system.
type Store interface {
	// Outreach lifecycle
	CreateOutreach(ctx context.Context, m *model.OutreachMessage) error
	GetOutreach(ctx context.Context, userID, id string) (*model.OutreachMessage, error)
	UpdateOutreach(ctx context.Context, m *model.OutreachMessage) error
	ListOutreach(ctx context.Context, f OutreachFilter) ([]model.OutreachMessage, error)

	// Behavior profiles
	GetProfile(ctx context.Context, userID, leadID string) (*model.LeadBehaviorProfile, error)
	UpsertProfile(ctx context.Context, p *model.LeadBehaviorProfile) error

	// Templates and A/B bookkeeping
	ListTemplates(ctx context.Context, userID string, activeOnly bool) ([]model.GhostBusterTemplate, error)
	IncrementTemplateCounters(ctx context.Context, templateID string, sentDelta, conversionDelta int) error
	InsertABAssignment(ctx context.Context, a *ABAssignment) error
	ListCampaignVariantStats(ctx context.Context, campaignID string) ([]VariantMoodStat, error)

	// Observations
	InsertObservation(ctx context.Context, o *model.Observation) error
	ListRecentObservations(ctx context.Context, userID string, limit int) ([]model.Observation, error)

	// Decisions
	InsertDecision(ctx context.Context, d *model.Decision) error
	GetDecision(ctx context.Context, id string) (*model.Decision, error)
	SetDecisionApproval(ctx context.Context, id string, approved bool) error
	MarkDecisionExecuted(ctx context.Context, id string, result map[string]any, executionMs int64) error
	ListExecutedDecisions(ctx context.Context, userID string, since time.Time) ([]model.Decision, error)

	// AI interaction audit
	InsertInteraction(ctx context.Context, i *model.AIInteraction) error
	MarkInteractionUsed(ctx context.Context, id string) error
	UpdateInteractionOutcome(ctx context.Context, id string, outcome model.Outcome, rating *int, feedback string) error

	// Execute is the escape hatch for analytical reads.
	Execute(ctx context.Context, sql string, args ...any) ([]map[string]any, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
