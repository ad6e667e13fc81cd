package pulse

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pulse.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func createOutreach(t *testing.T, e *Engine, userID, leadID string) *model.OutreachMessage {
	t.Helper()
	msg, err := e.Create(context.Background(), CreateRequest{
		UserID:  userID,
		LeadID:  leadID,
		Text:    "hey, quick question",
		Channel: model.ChannelWhatsApp,
		Type:    model.MessageInitial,
		Intent:  model.IntentIntro,
	})
	if err != nil {
		t.Fatalf("create outreach: %v", err)
	}
	return msg
}

func TestEngine_Create_UsesProfileTiming(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e := NewEngine(st).WithNow(func() time.Time { return now })

	if err := st.UpsertProfile(ctx, &model.LeadBehaviorProfile{
		UserID:                     "u1",
		LeadID:                     "l1",
		Mood:                       model.MoodPositive,
		EngagementLevel:            4,
		PredictedCheckInHours:      12,
		PredictedGhostThresholdHrs: 36,
		ResponseTimeTrend:          model.TrendStable,
	}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	msg := createOutreach(t, e, "u1", "l1")
	if msg.CheckInHoursUsed != 12 {
		t.Errorf("expected profile check-in hours 12, got %v", msg.CheckInHoursUsed)
	}
	if want := now.Add(12 * time.Hour); !msg.CheckInDueAt.Equal(want) {
		t.Errorf("expected due at %v, got %v", want, msg.CheckInDueAt)
	}
	if msg.Status != model.StatusSent || msg.ID == "" {
		t.Errorf("unexpected row: %+v", msg)
	}
}

func TestEngine_Create_DefaultTimingWithoutProfile(t *testing.T) {
	st := newTestStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e := NewEngine(st).WithNow(func() time.Time { return now })

	msg := createOutreach(t, e, "u1", "unknown-lead")
	if msg.CheckInHoursUsed != model.DefaultCheckInHours {
		t.Errorf("expected default %v, got %v", model.DefaultCheckInHours, msg.CheckInHoursUsed)
	}
	if want := now.Add(24 * time.Hour); !msg.CheckInDueAt.Equal(want) {
		t.Errorf("expected due at %v, got %v", want, msg.CheckInDueAt)
	}
}

func TestEngine_Create_RejectsInvalidInput(t *testing.T) {
	st := newTestStore(t)
	e := NewEngine(st)

	_, err := e.Create(context.Background(), CreateRequest{
		UserID: "u1", Channel: "carrier_pigeon", Intent: model.IntentIntro,
	})
	if err == nil {
		t.Error("expected invalid channel to be rejected")
	}

	_, err = e.Create(context.Background(), CreateRequest{
		UserID: "u1", Channel: model.ChannelWhatsApp, Intent: "smalltalk",
	})
	if err == nil {
		t.Error("expected invalid intent to be rejected")
	}
}

func TestEngine_UpdateStatus_LateSeenBecomesGhosted(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e := NewEngine(st).WithNow(func() time.Time { return now })

	if err := st.UpsertProfile(ctx, &model.LeadBehaviorProfile{
		UserID:                     "u1",
		LeadID:                     "l1",
		Mood:                       model.MoodNeutral,
		EngagementLevel:            3,
		PredictedCheckInHours:      8,
		PredictedGhostThresholdHrs: 12,
		ResponseTimeTrend:          model.TrendStable,
	}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	msg := createOutreach(t, e, "u1", "l1")

	// The seen update arrives well past the lead's 12 h ghost threshold.
	now = now.Add(50 * time.Hour)
	got, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: msg.ID, To: model.StatusSeen})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got.Status != model.StatusGhosted {
		t.Fatalf("expected promotion to ghosted, got %s", got.Status)
	}
	// Never seen and no activity signals reads as a soft ghost.
	if got.GhostType != model.GhostSoft {
		t.Errorf("expected soft ghost, got %s", got.GhostType)
	}
	if got.GhostDetectedAt == nil || got.SuggestedStrategy != model.StrategyValueAdd {
		t.Errorf("expected ghost metadata stamped: %+v", got)
	}

	reloaded, err := e.Get(ctx, "u1", msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != model.StatusGhosted || reloaded.GhostType != model.GhostSoft {
		t.Errorf("promotion not persisted: %+v", reloaded)
	}
}

func TestEngine_UpdateStatus_InvalidTransitionPersistsNothing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := NewEngine(st)
	msg := createOutreach(t, e, "u1", "")

	if _, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: msg.ID, To: model.StatusReplied}); err != nil {
		t.Fatalf("sent → replied: %v", err)
	}

	_, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: msg.ID, To: model.StatusGhosted})
	if !eris.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	reloaded, err := e.Get(ctx, "u1", msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != model.StatusReplied || reloaded.GhostType != "" {
		t.Errorf("rejected transition leaked into storage: %+v", reloaded)
	}
}

func TestEngine_UpdateStatus_SameStatusIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := NewEngine(st)
	msg := createOutreach(t, e, "u1", "")

	got, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: msg.ID, To: model.StatusSent})
	if err != nil {
		t.Fatalf("sent → sent: %v", err)
	}
	if got.Status != model.StatusSent || !got.CheckInCompleted {
		t.Errorf("expected confirmed sent row, got %+v", got)
	}
}

func TestEngine_UpdateStatus_ReplyClearsGhostState(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := NewEngine(st)
	msg := createOutreach(t, e, "u1", "")

	if _, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: msg.ID, To: model.StatusGhosted}); err != nil {
		t.Fatalf("sent → ghosted: %v", err)
	}

	got, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: msg.ID, To: model.StatusReplied})
	if err != nil {
		t.Fatalf("ghosted → replied: %v", err)
	}
	if got.GhostType != "" || got.GhostDetectedAt != nil {
		t.Errorf("reactivation must clear ghost classification: %+v", got)
	}
	if got.RepliedAt == nil {
		t.Error("expected replied_at stamped")
	}
}

func TestEngine_BulkUpdateStatus_PartialSuccess(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := NewEngine(st)

	ok := createOutreach(t, e, "u1", "")
	settled := createOutreach(t, e, "u1", "")
	if _, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: settled.ID, To: model.StatusReplied}); err != nil {
		t.Fatalf("settle row: %v", err)
	}

	res := e.BulkUpdateStatus(ctx, "u1", []string{ok.ID, settled.ID, "missing"}, model.StatusSeen)
	if res.AffectedCount != 1 {
		t.Errorf("expected 1 affected, got %d", res.AffectedCount)
	}
	if len(res.Errors) != 2 {
		t.Errorf("expected 2 errors, got %v", res.Errors)
	}

	reloaded, _ := e.Get(ctx, "u1", ok.ID)
	if reloaded.Status != model.StatusSeen || reloaded.StatusSource != model.SourceBulkUpdate {
		t.Errorf("bulk transition not applied: %+v", reloaded)
	}
}

func TestEngine_BulkSkip_OnlyPendingRows(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := NewEngine(st)

	pending := createOutreach(t, e, "u1", "")
	done := createOutreach(t, e, "u1", "")
	if _, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: done.ID, To: model.StatusSeen}); err != nil {
		t.Fatalf("confirm row: %v", err)
	}

	res := e.BulkSkip(ctx, "u1", []string{pending.ID, done.ID})
	if res.AffectedCount != 1 || len(res.Errors) != 1 {
		t.Fatalf("expected 1 skipped and 1 error, got %+v", res)
	}

	reloaded, _ := e.Get(ctx, "u1", pending.ID)
	if reloaded.Status != model.StatusSkipped || !reloaded.CheckInSkipped {
		t.Errorf("skip not applied: %+v", reloaded)
	}
	if reloaded.CheckInCompleted {
		t.Error("a skip must not count as a completed check-in")
	}
}

func TestEngine_SweepStale(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := NewEngine(st).WithNow(func() time.Time { return now })

	old := createOutreach(t, e, "u1", "")
	confirmed := createOutreach(t, e, "u1", "")
	if _, err := e.UpdateStatus(ctx, TransitionRequest{UserID: "u1", ID: confirmed.ID, To: model.StatusSeen}); err != nil {
		t.Fatalf("confirm row: %v", err)
	}

	now = now.Add(8 * 24 * time.Hour)
	fresh := createOutreach(t, e, "u1", "")

	swept, err := e.SweepStale(ctx, "u1")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept, got %d", swept)
	}

	reloaded, _ := e.Get(ctx, "u1", old.ID)
	if reloaded.Status != model.StatusStale || !reloaded.AutoInferred {
		t.Errorf("expected stale auto-inferred row: %+v", reloaded)
	}
	if reloaded.StatusSource != model.SourceAutoInferred {
		t.Errorf("expected auto_inferred source, got %s", reloaded.StatusSource)
	}

	untouched, _ := e.Get(ctx, "u1", fresh.ID)
	if untouched.Status != model.StatusSent {
		t.Errorf("fresh row must not be swept: %+v", untouched)
	}

	// A second sweep in the same window is a no-op.
	swept, err = e.SweepStale(ctx, "u1")
	if err != nil || swept != 0 {
		t.Errorf("expected idempotent sweep, got %d, %v", swept, err)
	}
}

func TestEngine_InferFromImport(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := NewEngine(st)

	first := createOutreach(t, e, "u1", "l1")
	second := createOutreach(t, e, "u1", "l1")
	other := createOutreach(t, e, "u1", "l2")

	// No reply signal in the import: nothing changes.
	n, err := e.InferFromImport(ctx, ImportSignal{UserID: "u1", LeadID: "l1"})
	if err != nil || n != 0 {
		t.Fatalf("expected no inference without signal, got %d, %v", n, err)
	}

	n, err = e.InferFromImport(ctx, ImportSignal{UserID: "u1", LeadID: "l1", LatestSenderIsLead: true})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inferred rows, got %d", n)
	}

	for _, id := range []string{first.ID, second.ID} {
		got, _ := e.Get(ctx, "u1", id)
		if got.Status != model.StatusReplied || got.StatusSource != model.SourceChatImport {
			t.Errorf("expected inferred reply, got %+v", got)
		}
		if !got.AutoInferred || got.RepliedAt == nil {
			t.Errorf("expected inference metadata, got %+v", got)
		}
	}

	untouched, _ := e.Get(ctx, "u1", other.ID)
	if untouched.Status != model.StatusSent {
		t.Errorf("other lead must be untouched: %+v", untouched)
	}
}

func TestEngine_BestVariant(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := NewEngine(st)

	// No profile and no campaign: fallback.
	v, err := e.BestVariant(ctx, "u1", "l1", "")
	if err != nil || v != "A" {
		t.Fatalf("expected fallback A, got %q, %v", v, err)
	}

	// Campaign history for the unknown mood decides next.
	seed := `INSERT INTO campaign_variant_stats (campaign_id, variant, mood, sent_count, reply_count) VALUES (?,?,?,?,?)`
	for _, row := range [][]any{
		{"c1", "A", string(model.MoodUnknown), 10, 2},
		{"c1", "B", string(model.MoodUnknown), 10, 5},
		{"c1", "C", string(model.MoodPositive), 10, 9},
	} {
		if _, err := st.Execute(ctx, seed, row...); err != nil {
			t.Fatalf("seed stats: %v", err)
		}
	}
	v, err = e.BestVariant(ctx, "u1", "l1", "c1")
	if err != nil || v != "B" {
		t.Fatalf("expected campaign best B, got %q, %v", v, err)
	}

	// The lead's own mood match wins over everything.
	if err := st.UpsertProfile(ctx, &model.LeadBehaviorProfile{
		UserID:                "u1",
		LeadID:                "l1",
		Mood:                  model.MoodPositive,
		EngagementLevel:       4,
		BestTemplateMoodMatch: map[model.Mood]string{model.MoodPositive: "D"},
	}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	v, err = e.BestVariant(ctx, "u1", "l1", "c1")
	if err != nil || v != "D" {
		t.Fatalf("expected lead best D, got %q, %v", v, err)
	}
}

func TestEngine_RecordAssignment(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := NewEngine(st)

	if _, err := st.Execute(ctx, `INSERT INTO ghost_buster_templates
		(id, user_id, text, strategy, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		"t1", "u1", "still interested?", string(model.StrategyDirectAsk),
		time.Now().UTC(), time.Now().UTC()); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	err := e.RecordAssignment(ctx, &store.ABAssignment{
		UserID:     "u1",
		LeadID:     "l1",
		TemplateID: "t1",
		Variant:    "B",
		Mood:       model.MoodNeutral,
	})
	if err != nil {
		t.Fatalf("record assignment: %v", err)
	}

	rows, err := st.Execute(ctx, `SELECT sent_count FROM ghost_buster_templates WHERE id = ?`, "t1")
	if err != nil || len(rows) != 1 {
		t.Fatalf("read template: %v", err)
	}
	if n, ok := rows[0]["sent_count"].(int64); !ok || n != 1 {
		t.Errorf("expected sent_count 1, got %v", rows[0]["sent_count"])
	}
}
