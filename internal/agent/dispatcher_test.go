package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/salesflow-ai/pulse/internal/config"
	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/store"
	"github.com/salesflow-ai/pulse/pkg/anthropic"
)

type fakeClient struct {
	reply   string
	lastReq anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.reply}},
		Usage:   anthropic.TokenUsage{InputTokens: 50, OutputTokens: 80},
	}, nil
}

func newTestDispatcher(t *testing.T, client anthropic.Client) *Dispatcher {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "agent.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", TimeoutSecs: 5},
		RateLimit: config.RateLimitConfig{PerMinute: 60, PerHour: 1000},
	}
	return NewDispatcher(llm.NewGateway(cfg, st).WithClient(client))
}

func TestRoute(t *testing.T) {
	cases := []struct {
		taskType string
		want     Name
	}{
		{"qualify_lead", Hunter},
		{"research_lead", Hunter},
		{"score_lead", Hunter},
		{"handle_objection", Closer},
		{"create_closing_strategy", Closer},
		{"rescue_deal", Closer},
		{"write_message", Communicator},
		{"personalize", Communicator},
		{"create_sequence", Communicator},
		{"analyze_performance", Analyst},
		{"detect_patterns", Analyst},
		{"forecast", Analyst},
		{"juggle", Communicator},
	}
	for _, tc := range cases {
		if got := Route(tc.taskType); got != tc.want {
			t.Errorf("Route(%q) = %s, want %s", tc.taskType, got, tc.want)
		}
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	client := &fakeClient{reply: `{
		"success": true,
		"data": {"score": 82},
		"confidence": 0.9,
		"reasoning": "strong buying signals",
		"suggestions": ["book a call"]
	}`}
	d := newTestDispatcher(t, client)

	res, err := d.Dispatch(context.Background(), Task{
		Type:   "qualify_lead",
		Input:  map[string]any{"lead_id": "l1"},
		UserID: "u1",
		LeadID: "l1",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Agent != Hunter {
		t.Errorf("expected hunter, got %s", res.Agent)
	}
	if !res.Success || res.Confidence != 0.9 {
		t.Errorf("unexpected result: %+v", res)
	}
	if score, _ := res.Data["score"].(float64); score != 82 {
		t.Errorf("expected score 82, got %v", res.Data["score"])
	}
	if res.Interaction == nil || res.Interaction.ID() == "" {
		t.Error("expected the audit handle attached")
	}

	skill, _ := llm.LookupSkill(llm.SkillAgentHunter)
	if client.lastReq.System != skill.System {
		t.Error("hunter tasks must use the hunter skill preset")
	}
}

func TestDispatcher_Dispatch_MalformedReplyDegrades(t *testing.T) {
	client := &fakeClient{reply: "I would qualify this lead as promising."}
	d := newTestDispatcher(t, client)

	res, err := d.Dispatch(context.Background(), Task{Type: "qualify_lead", UserID: "u1"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Success {
		t.Error("malformed reply must not read as success")
	}
	if res.Reasoning == "" {
		t.Error("raw reasoning must be preserved for the caller")
	}
}

func TestParseResult_ClampsConfidence(t *testing.T) {
	if r := parseResult(`{"success": true, "confidence": 7.5}`); r.Confidence != 1 {
		t.Errorf("expected clamp to 1, got %v", r.Confidence)
	}
	if r := parseResult(`{"success": true, "confidence": -3}`); r.Confidence != 0 {
		t.Errorf("expected clamp to 0, got %v", r.Confidence)
	}
}
