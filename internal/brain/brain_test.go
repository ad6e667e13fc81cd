package brain

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"

	"github.com/salesflow-ai/pulse/internal/config"
	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/pulse"
	"github.com/salesflow-ai/pulse/internal/resilience"
	"github.com/salesflow-ai/pulse/internal/store"
	"github.com/salesflow-ai/pulse/pkg/anthropic"
	"github.com/salesflow-ai/pulse/pkg/whatsapp"
)

// fakeClient replays canned model replies and counts calls.
type fakeClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.reply}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func directorJSON(t *testing.T, reply directorReply) string {
	t.Helper()
	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	return string(data)
}

func testConfig(mode string) *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", TimeoutSecs: 5},
		RateLimit: config.RateLimitConfig{PerMinute: 60, PerHour: 1000},
		Cache:     config.CacheConfig{Enabled: true, TTLHours: 1, Capacity: 10},
		Brain:     config.BrainConfig{Mode: mode, BatchSize: 10},
	}
}

func newTestBrain(t *testing.T, mode string, client anthropic.Client) (*Brain, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "brain.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := testConfig(mode)
	gateway := llm.NewGateway(cfg, st).WithClient(client)
	engine := pulse.NewEngine(st)
	executor := NewExecutor(engine, gateway, whatsapp.StubSender{}, "+43")
	return NewBrain(cfg, st, gateway, executor), st
}

func TestBrain_ProcessOne_IdenticalObservationHitsCache(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{reply: directorJSON(t, directorReply{
		ShouldAct:    true,
		ActionType:   string(model.ActionNoOp),
		ActionParams: map[string]any{},
		Reasoning:    "routine acknowledgement",
		Confidence:   string(model.ConfidenceVeryHigh),
		Priority:     string(model.PriorityMedium),
	})}
	b, _ := newTestBrain(t, "supervised", client)

	obs := model.Observation{
		Type:     "lead_reply",
		Data:     map[string]any{"lead_id": "l1", "channel": "whatsapp"},
		UserID:   "u1",
		Source:   "api",
		Priority: model.PriorityMedium,
	}
	if err := b.Observe(ctx, &obs); err != nil {
		t.Fatalf("observe: %v", err)
	}

	first, err := b.ProcessOne(ctx, obs)
	if err != nil {
		t.Fatalf("first process: %v", err)
	}
	if first == nil || first.ActionType != model.ActionNoOp {
		t.Fatalf("unexpected decision: %+v", first)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", client.calls)
	}

	// Same type and data, new observation: must be served from cache.
	obs2 := model.Observation{
		Type:     "lead_reply",
		Data:     map[string]any{"channel": "whatsapp", "lead_id": "l1"},
		UserID:   "u1",
		Source:   "api",
		Priority: model.PriorityMedium,
	}
	if err := b.Observe(ctx, &obs2); err != nil {
		t.Fatalf("observe: %v", err)
	}
	second, err := b.ProcessOne(ctx, obs2)
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected cached decision without a model call, got %d calls", client.calls)
	}
	if second.ID == first.ID {
		t.Error("cached decision must get a fresh id")
	}
	if second.ObservationID != obs2.ID {
		t.Errorf("cached decision must bind to the new observation, got %s", second.ObservationID)
	}
	if rate := b.Cache().HitRate(); rate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", rate)
	}
}

func TestBrain_ProcessOne_ShouldNotActYieldsNoDecision(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{reply: directorJSON(t, directorReply{ShouldAct: false})}
	b, st := newTestBrain(t, "supervised", client)

	obs := model.Observation{Type: "heartbeat", Data: map[string]any{}, UserID: "u1", Source: "api", Priority: model.PriorityLow}
	if err := b.Observe(ctx, &obs); err != nil {
		t.Fatalf("observe: %v", err)
	}

	d, err := b.ProcessOne(ctx, obs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if d != nil {
		t.Fatalf("expected no decision, got %+v", d)
	}

	rows, err := st.Execute(ctx, `SELECT COUNT(*) AS n FROM decisions`)
	if err != nil {
		t.Fatalf("count decisions: %v", err)
	}
	if n, _ := rows[0]["n"].(int64); n != 0 {
		t.Errorf("expected no decision rows, got %d", n)
	}
}

func TestBrain_ProcessOne_NormalizesMalformedReply(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{reply: "```json\n" + directorJSON(t, directorReply{
		ShouldAct:  true,
		ActionType: "launch_rocket",
		Reasoning:  "unclear",
		Confidence: "extremely_sure",
		Priority:   "now",
	}) + "\n```"}
	b, _ := newTestBrain(t, "supervised", client)

	obs := model.Observation{Type: "odd", Data: map[string]any{}, UserID: "u1", Source: "api", Priority: model.PriorityHigh}
	if err := b.Observe(ctx, &obs); err != nil {
		t.Fatalf("observe: %v", err)
	}

	d, err := b.ProcessOne(ctx, obs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if d.ActionType != model.ActionEscalateToHuman {
		t.Errorf("unknown action must escalate, got %s", d.ActionType)
	}
	if d.Confidence != model.ConfidenceUncertain {
		t.Errorf("unknown confidence must read uncertain, got %s", d.Confidence)
	}
	if d.Priority != model.PriorityHigh {
		t.Errorf("unknown priority must inherit the observation's, got %s", d.Priority)
	}
	if !d.RequiresApproval {
		t.Error("uncertain decisions must require approval")
	}
	if d.Executed {
		t.Error("uncertain decisions must not auto-execute")
	}
}

func TestBrain_ProcessOne_UnparseableReply(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{reply: "I think you should probably follow up soon."}
	b, _ := newTestBrain(t, "supervised", client)

	obs := model.Observation{Type: "odd", Data: map[string]any{}, UserID: "u1", Source: "api", Priority: model.PriorityMedium}
	if _, err := b.ProcessOne(ctx, obs); !eris.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestBrain_ModePolicy(t *testing.T) {
	cases := []struct {
		mode       Mode
		confidence model.Confidence
		want       bool
	}{
		{ModePassive, model.ConfidenceVeryHigh, false},
		{ModeAdvisory, model.ConfidenceVeryHigh, false},
		{ModeSupervised, model.ConfidenceVeryHigh, true},
		{ModeSupervised, model.ConfidenceHigh, false},
		{ModeAutonomous, model.ConfidenceHigh, true},
		{ModeAutonomous, model.ConfidenceMedium, false},
		{ModeFullAuto, model.ConfidenceLow, true},
		{ModeFullAuto, model.ConfidenceUncertain, false},
	}
	for _, tc := range cases {
		if got := tc.mode.allowsAutoExecute(tc.confidence); got != tc.want {
			t.Errorf("%s/%s: got %v, want %v", tc.mode, tc.confidence, got, tc.want)
		}
	}
}

func TestParseMode_Default(t *testing.T) {
	if got := ParseMode("yolo"); got != ModeSupervised {
		t.Errorf("expected supervised fallback, got %s", got)
	}
	if got := ParseMode("full_auto"); got != ModeFullAuto {
		t.Errorf("expected full_auto, got %s", got)
	}
}

func TestBrain_SupervisedExecutesVeryHighOnly(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{reply: directorJSON(t, directorReply{
		ShouldAct:  true,
		ActionType: string(model.ActionNoOp),
		Reasoning:  "safe to act",
		Confidence: string(model.ConfidenceHigh),
		Priority:   string(model.PriorityMedium),
	})}
	b, st := newTestBrain(t, "supervised", client)

	obs := model.Observation{Type: "lead_reply", Data: map[string]any{"lead_id": "l9"}, UserID: "u1", Source: "api", Priority: model.PriorityMedium}
	if err := b.Observe(ctx, &obs); err != nil {
		t.Fatalf("observe: %v", err)
	}

	d, err := b.ProcessOne(ctx, obs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if d.Executed {
		t.Error("high confidence must not auto-execute under supervised mode")
	}

	// The same decision executes once a human approves it.
	approved, err := b.Approve(ctx, d.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.Executed {
		t.Error("approved decision must execute")
	}
	if ok, _ := approved.Result["success"].(bool); !ok {
		t.Errorf("expected success result, got %+v", approved.Result)
	}

	rows, err := st.Execute(ctx, `SELECT executed FROM decisions WHERE id = ?`, d.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("read decision: %v", err)
	}
	if n, _ := rows[0]["executed"].(int64); n != 1 {
		t.Errorf("execution not persisted: %v", rows[0]["executed"])
	}
}

func TestBrain_Reject(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{reply: directorJSON(t, directorReply{
		ShouldAct:  true,
		ActionType: string(model.ActionNoOp),
		Reasoning:  "maybe",
		Confidence: string(model.ConfidenceMedium),
		Priority:   string(model.PriorityLow),
	})}
	b, st := newTestBrain(t, "supervised", client)

	obs := model.Observation{Type: "lead_reply", Data: map[string]any{"lead_id": "l2"}, UserID: "u1", Source: "api", Priority: model.PriorityLow}
	if err := b.Observe(ctx, &obs); err != nil {
		t.Fatalf("observe: %v", err)
	}
	d, err := b.ProcessOne(ctx, obs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if err := b.Reject(ctx, d.ID, "not a good idea"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, err := st.GetDecision(ctx, d.ID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if got.Approved == nil || *got.Approved {
		t.Errorf("expected recorded rejection, got %+v", got.Approved)
	}
	if got.Executable() {
		t.Error("rejected decision must never be executable")
	}
}

func TestBrain_ProcessObservations_BreakerAbortsBatch(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{err: eris.New("provider down")}
	b, _ := newTestBrain(t, "supervised", client)

	for i := 0; i < 8; i++ {
		obs := model.Observation{Type: "lead_reply", Data: map[string]any{"i": i}, UserID: "u1", Source: "api", Priority: model.PriorityMedium}
		if err := b.Observe(ctx, &obs); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	processed, err := b.ProcessObservations(ctx)
	if !eris.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected circuit open abort, got %v", err)
	}
	if processed != 5 {
		t.Errorf("expected 5 processed before the breaker opened, got %d", processed)
	}
}

func TestBrain_ProcessObservations_DrainsQueue(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{reply: directorJSON(t, directorReply{ShouldAct: false})}
	b, _ := newTestBrain(t, "supervised", client)

	for i := 0; i < 3; i++ {
		obs := model.Observation{Type: "status_sync", Data: map[string]any{"i": i}, UserID: "u1", Source: "api", Priority: model.PriorityLow}
		if err := b.Observe(ctx, &obs); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	processed, err := b.ProcessObservations(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed != 3 {
		t.Errorf("expected 3 processed, got %d", processed)
	}
}

func TestParseDirectorReply(t *testing.T) {
	reply, err := parseDirectorReply("```json\n{\"should_act\": true, \"action_type\": \"no_op\"}\n```")
	if err != nil {
		t.Fatalf("fenced JSON should parse: %v", err)
	}
	if !reply.ShouldAct || reply.ActionType != "no_op" {
		t.Errorf("unexpected reply: %+v", reply)
	}

	if _, err := parseDirectorReply("no json here"); !eris.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}
