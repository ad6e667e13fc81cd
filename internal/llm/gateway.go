package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/salesflow-ai/pulse/internal/config"
	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/resilience"
	"github.com/salesflow-ai/pulse/internal/store"
	"github.com/salesflow-ai/pulse/pkg/anthropic"
)

// ErrNotConfigured is returned when no provider API key is set. Callers
// degrade to their non-model behavior instead of failing the request.
var ErrNotConfigured = eris.New("llm: no provider configured")

// ErrRateLimited is returned when the hourly call budget is exhausted.
var ErrRateLimited = eris.New("llm: hourly rate limit exhausted")

// CallRequest describes one model call through a skill preset.
type CallRequest struct {
	Skill     string
	Input     map[string]any // marshaled to JSON as the user message
	UserID    string
	CompanyID string
	LeadID    string
}

// CallResult is the gateway's reply: the model content plus the audit handle
// for late outcome reporting.
type CallResult struct {
	Content     string
	Usage       anthropic.TokenUsage
	Interaction *InteractionHandle
}

// Gateway is the single entry point to the model provider. It applies skill
// presets, rate limits, the retry policy and audit logging.
type Gateway struct {
	client    anthropic.Client
	store     store.Store
	model     string
	timeout   time.Duration
	minute    *rate.Limiter
	hourly    *rate.Limiter
	retry     resilience.RetryConfig
	sessionID string
}

// NewGateway builds a gateway from configuration. A missing API key yields a
// degraded gateway whose Complete returns ErrNotConfigured.
func NewGateway(cfg *config.Config, st store.Store) *Gateway {
	g := &Gateway{
		store:     st,
		model:     cfg.Anthropic.Model,
		timeout:   time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
		minute:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(max(cfg.RateLimit.PerMinute, 1))), cfg.RateLimit.PerMinute),
		hourly:    rate.NewLimiter(rate.Every(time.Hour/time.Duration(max(cfg.RateLimit.PerHour, 1))), cfg.RateLimit.PerHour),
		retry:     resilience.DefaultRetryConfig(),
		sessionID: uuid.NewString(),
	}
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("no anthropic api key, model capabilities degraded")
		return g
	}
	g.client = anthropic.NewClient(cfg.Anthropic.Key)
	return g
}

// WithClient injects a provider client, for tests.
func (g *Gateway) WithClient(c anthropic.Client) *Gateway {
	g.client = c
	return g
}

// Configured reports whether a provider is available.
func (g *Gateway) Configured() bool { return g.client != nil }

// Complete runs one model call: preset assembly, rate limiting, the provider
// call with retry, and the audit row. The audit write is best-effort and
// never masks the primary result or error.
func (g *Gateway) Complete(ctx context.Context, req CallRequest) (*CallResult, error) {
	skill, err := LookupSkill(req.Skill)
	if err != nil {
		return nil, err
	}
	if g.client == nil {
		return nil, ErrNotConfigured
	}

	input, err := json.Marshal(req.Input)
	if err != nil {
		return nil, eris.Wrap(err, "llm: marshal input")
	}

	if !g.hourly.Allow() {
		return nil, ErrRateLimited
	}
	if err := g.minute.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "llm: rate limit wait")
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temp := skill.Temperature
	msgReq := anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   skill.MaxTokens,
		System:      skill.System,
		Messages:    []anthropic.Message{{Role: "user", Content: string(input)}},
		Temperature: &temp,
	}

	start := time.Now()
	resp, err := resilience.DoVal(callCtx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, msgReq)
	})
	latency := time.Since(start).Milliseconds()

	row := &model.AIInteraction{
		Skill:          skill.Name,
		SkillVersion:   skill.SkillVersion,
		PromptVersion:  skill.PromptVersion,
		Provider:       "anthropic",
		Model:          g.model,
		Temperature:    skill.Temperature,
		SessionID:      g.sessionID,
		UserID:         req.UserID,
		CompanyID:      req.CompanyID,
		LeadID:         req.LeadID,
		RequestSummary: model.Summarize(string(input)),
		LatencyMs:      latency,
	}

	if err != nil {
		row.ErrorType = errorType(err)
		row.ErrorMessage = model.Summarize(err.Error())
		g.audit(ctx, row)
		return nil, eris.Wrapf(err, "llm: %s", skill.Name)
	}

	content := resp.Text()
	usage := resp.Usage
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		// Provider returned no usage stats.
		usage.InputTokens = int64(len(input) / 4)
		usage.OutputTokens = int64(len(content) / 4)
	}
	usage.LogCost(g.model, skill.Name)

	row.ResponseSummary = model.Summarize(content)
	row.InputTokens = int(usage.InputTokens)
	row.OutputTokens = int(usage.OutputTokens)
	row.CostUSD = usage.EstimateCost(g.model)
	g.audit(ctx, row)

	return &CallResult{
		Content:     content,
		Usage:       usage,
		Interaction: &InteractionHandle{id: row.ID, store: g.store},
	}, nil
}

// audit writes the interaction row, logging rather than returning failures.
func (g *Gateway) audit(ctx context.Context, row *model.AIInteraction) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if err := g.store.InsertInteraction(ctx, row); err != nil {
		zap.L().Error("interaction audit write failed",
			zap.String("skill", row.Skill),
			zap.Error(err))
	}
}

func errorType(err error) string {
	switch {
	case eris.Is(err, context.DeadlineExceeded):
		return "timeout"
	case resilience.IsTransient(err):
		return "transient"
	default:
		return "provider_error"
	}
}
