package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"

	"github.com/salesflow-ai/pulse/internal/model"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock, NewPostgresWithPool(mock)
}

func strptr(s string) *string { return &s }

// anyArgs builds n pgxmock.AnyArg matchers; pgxmock/v4 compares argument
// counts even when WithArgs is omitted, so "don't care" must be explicit.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

var outreachColumnNames = []string{
	"id", "user_id", "lead_id", "channel", "text", "message_type", "intent",
	"status", "status_source", "status_updated_at", "auto_inferred", "inference_reason",
	"sent_at", "delivered_at", "seen_at", "replied_at",
	"check_in_due_at", "check_in_hours_used", "check_in_completed", "check_in_skipped", "check_in_reminder_count",
	"ghost_type", "ghost_detected_at", "follow_up_sent", "follow_up_message_id", "suggested_strategy", "suggested_follow_up",
	"template_id", "template_variant", "created_at", "updated_at",
}

func TestPostgres_CreateOutreach_AssignsIdentity(t *testing.T) {
	mock, st := newMockStore(t)
	mock.ExpectExec(`INSERT INTO outreach_messages`).
		WithArgs(anyArgs(31)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	m := &model.OutreachMessage{
		UserID:           "u1",
		Channel:          model.ChannelWhatsApp,
		Text:             "hey, quick question",
		Type:             model.MessageInitial,
		Intent:           model.IntentIntro,
		Status:           model.StatusSent,
		StatusSource:     model.SourceUser,
		SentAt:           time.Now().UTC(),
		CheckInDueAt:     time.Now().UTC().Add(24 * time.Hour),
		CheckInHoursUsed: 24,
	}
	if err := st.CreateOutreach(context.Background(), m); err != nil {
		t.Fatalf("create outreach: %v", err)
	}
	if m.ID == "" {
		t.Error("expected an assigned id")
	}
	if m.CreatedAt.IsZero() || m.UpdatedAt.IsZero() || m.StatusUpdatedAt.IsZero() {
		t.Errorf("expected timestamps assigned: %+v", m)
	}
}

func TestPostgres_GetOutreach(t *testing.T) {
	mock, st := newMockStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sent := now.Add(-72 * time.Hour)
	seen := sent.Add(2 * time.Hour)
	ghosted := now.Add(-time.Hour)

	mock.ExpectQuery(`FROM outreach_messages WHERE id = \$1 AND user_id = \$2`).
		WithArgs("o1", "u1").
		WillReturnRows(pgxmock.NewRows(outreachColumnNames).AddRow(
			"o1", "u1", strptr("l1"), model.ChannelWhatsApp, "hey", model.MessageInitial, model.IntentIntro,
			model.StatusGhosted, model.SourceAutoInferred, now, true, strptr("check-in overdue"),
			sent, nil, &seen, nil,
			sent.Add(12*time.Hour), 12.0, true, false, 1,
			strptr("soft"), &ghosted, false, nil, strptr("value_add"), nil,
			nil, nil, sent, now,
		))

	m, err := st.GetOutreach(context.Background(), "u1", "o1")
	if err != nil {
		t.Fatalf("get outreach: %v", err)
	}
	if m.LeadID != "l1" || m.InferenceReason != "check-in overdue" {
		t.Errorf("nullable strings not dereferenced: %+v", m)
	}
	if m.GhostType != model.GhostSoft || m.SuggestedStrategy != model.StrategyValueAdd {
		t.Errorf("typed nullable columns not mapped: %+v", m)
	}
	if m.SeenAt == nil || !m.SeenAt.Equal(seen) || m.RepliedAt != nil {
		t.Errorf("nullable timestamps not mapped: %+v", m)
	}
	if m.TemplateID != "" || m.FollowUpMessageID != "" {
		t.Errorf("NULL columns must read as empty strings: %+v", m)
	}
}

func TestPostgres_GetOutreach_NotFound(t *testing.T) {
	mock, st := newMockStore(t)
	mock.ExpectQuery(`FROM outreach_messages WHERE id = \$1 AND user_id = \$2`).
		WithArgs("missing", "u1").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.GetOutreach(context.Background(), "u1", "missing")
	if !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_UpdateOutreach_NotFound(t *testing.T) {
	mock, st := newMockStore(t)
	mock.ExpectExec(`UPDATE outreach_messages SET`).
		WithArgs(anyArgs(20)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.UpdateOutreach(context.Background(), &model.OutreachMessage{ID: "gone", UserID: "u1"})
	if !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_ListOutreach_FilterPlaceholders(t *testing.T) {
	mock, st := newMockStore(t)
	mock.ExpectQuery(`FROM outreach_messages WHERE user_id = \$1 AND lead_id = \$2 AND status = ANY\(\$3\) ORDER BY sent_at DESC LIMIT \$4`).
		WithArgs("u1", "l1", []string{"sent", "delivered"}, 5).
		WillReturnRows(pgxmock.NewRows(outreachColumnNames))

	out, err := st.ListOutreach(context.Background(), OutreachFilter{
		UserID:   "u1",
		LeadID:   "l1",
		Statuses: []model.OutreachStatus{model.StatusSent, model.StatusDelivered},
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("list outreach: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no rows, got %d", len(out))
	}
}

func TestPostgres_GetProfile(t *testing.T) {
	mock, st := newMockStore(t)

	stored := &model.LeadBehaviorProfile{
		ID:     "p1",
		UserID: "u1",
		LeadID: "l1",
		Mood:   model.MoodSkeptical,
	}
	data, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal profile: %v", err)
	}
	mock.ExpectQuery(`SELECT data FROM lead_behavior_profiles WHERE user_id = \$1 AND lead_id = \$2`).
		WithArgs("u1", "l1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(data))

	p, err := st.GetProfile(context.Background(), "u1", "l1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.ID != "p1" || p.Mood != model.MoodSkeptical {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestPostgres_GetProfile_NotFound(t *testing.T) {
	mock, st := newMockStore(t)
	mock.ExpectQuery(`SELECT data FROM lead_behavior_profiles`).
		WithArgs("u1", "nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.GetProfile(context.Background(), "u1", "nobody")
	if !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_IncrementTemplateCounters(t *testing.T) {
	mock, st := newMockStore(t)
	mock.ExpectExec(`UPDATE ghost_buster_templates SET sent_count = sent_count \+ \$1`).
		WithArgs(1, 0, "t1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE ghost_buster_templates SET sent_count = sent_count \+ \$1`).
		WithArgs(0, 1, "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := context.Background()
	if err := st.IncrementTemplateCounters(ctx, "t1", 1, 0); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := st.IncrementTemplateCounters(ctx, "gone", 0, 1); !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_SetDecisionApproval_NotFound(t *testing.T) {
	mock, st := newMockStore(t)
	mock.ExpectExec(`UPDATE decisions SET approved = \$1`).
		WithArgs(true, "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.SetDecisionApproval(context.Background(), "gone", true)
	if !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_MarkDecisionExecuted_Immutable(t *testing.T) {
	mock, st := newMockStore(t)
	mock.ExpectExec(`WHERE id = \$3 AND executed = false`).
		WithArgs(pgxmock.AnyArg(), int64(250), "d1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`WHERE id = \$3 AND executed = false`).
		WithArgs(pgxmock.AnyArg(), int64(90), "d1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := context.Background()
	if err := st.MarkDecisionExecuted(ctx, "d1", map[string]any{"success": true}, 250); err != nil {
		t.Fatalf("first execution: %v", err)
	}
	// The guard leaves an already-executed row untouched.
	err := st.MarkDecisionExecuted(ctx, "d1", map[string]any{"success": false}, 90)
	if !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on re-execution, got %v", err)
	}
}
