package brain

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/config"
	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/resilience"
	"github.com/salesflow-ai/pulse/internal/store"
)

// Mode controls how much the brain may do on its own.
type Mode string

const (
	ModePassive    Mode = "passive"
	ModeAdvisory   Mode = "advisory"
	ModeSupervised Mode = "supervised"
	ModeAutonomous Mode = "autonomous"
	ModeFullAuto   Mode = "full_auto"
)

// ParseMode validates a configured mode string, defaulting to supervised.
func ParseMode(s string) Mode {
	switch m := Mode(s); m {
	case ModePassive, ModeAdvisory, ModeSupervised, ModeAutonomous, ModeFullAuto:
		return m
	}
	zap.L().Warn("unknown brain mode, using supervised", zap.String("mode", s))
	return ModeSupervised
}

// allowsAutoExecute is the per-mode auto-execution policy.
func (m Mode) allowsAutoExecute(c model.Confidence) bool {
	switch m {
	case ModeSupervised:
		return c == model.ConfidenceVeryHigh
	case ModeAutonomous:
		return c.AutoExecutable()
	case ModeFullAuto:
		return c != model.ConfidenceUncertain
	default:
		return false
	}
}

// ErrParse is returned when the decision director's reply is not the
// expected JSON contract.
var ErrParse = eris.New("brain: unparseable decision reply")

// Brain consumes observations, decides through the gateway and optionally
// executes. A consecutive-error circuit breaker guards the pipeline.
type Brain struct {
	store      store.Store
	gateway    *llm.Gateway
	executor   *Executor
	cache      *DecisionCache
	queue      *ObservationQueue
	calibrator *Calibrator
	breaker    *resilience.Breaker
	mode       Mode
	batchSize  int
	nowFunc    func() time.Time
}

// NewBrain wires the decision layer from configuration.
func NewBrain(cfg *config.Config, st store.Store, gateway *llm.Gateway, executor *Executor) *Brain {
	var cache *DecisionCache
	if cfg.Cache.Enabled {
		cache = NewDecisionCache(time.Duration(cfg.Cache.TTLHours)*time.Hour, cfg.Cache.Capacity)
	}
	batch := cfg.Brain.BatchSize
	if batch <= 0 {
		batch = 10
	}
	return &Brain{
		store:      st,
		gateway:    gateway,
		executor:   executor,
		cache:      cache,
		queue:      NewObservationQueue(),
		calibrator: NewCalibrator(),
		breaker:    resilience.NewBreaker(5, 30*time.Second),
		mode:       ParseMode(cfg.Brain.Mode),
		batchSize:  batch,
		nowFunc:    time.Now,
	}
}

// WithNow injects a clock for tests.
func (b *Brain) WithNow(now func() time.Time) *Brain {
	b.nowFunc = now
	return b
}

// Mode returns the active mode.
func (b *Brain) Mode() Mode { return b.mode }

// Cache returns the decision cache, nil when caching is disabled.
func (b *Brain) Cache() *DecisionCache { return b.cache }

// Calibrator returns the confidence calibrator.
func (b *Brain) Calibrator() *Calibrator { return b.calibrator }

// Observe persists the observation and queues it for processing.
func (b *Brain) Observe(ctx context.Context, o *model.Observation) error {
	if !o.Priority.Valid() {
		o.Priority = model.PriorityMedium
	}
	if err := b.store.InsertObservation(ctx, o); err != nil {
		return err
	}
	b.queue.Put(*o)
	return nil
}

// ProcessObservations drains up to one batch from the queue. The batch
// aborts cleanly when the circuit breaker opens.
func (b *Brain) ProcessObservations(ctx context.Context) (int, error) {
	processed := 0
	for processed < b.batchSize {
		if err := b.breaker.Allow(); err != nil {
			zap.L().Warn("brain circuit open, batch aborted",
				zap.Int("processed", processed))
			return processed, err
		}

		obs, ok := b.queue.Get()
		if !ok {
			return processed, nil
		}

		if _, err := b.ProcessOne(ctx, obs); err != nil {
			b.breaker.Failure()
			zap.L().Error("observation processing failed",
				zap.String("observation_id", obs.ID),
				zap.String("type", obs.Type),
				zap.Error(err))
		} else {
			b.breaker.Success()
		}
		processed++
	}
	return processed, nil
}

// directorReply is the decision director's strict JSON contract.
type directorReply struct {
	ShouldAct          bool             `json:"should_act"`
	ActionType         string           `json:"action_type"`
	ActionParams       map[string]any   `json:"action_params"`
	Reasoning          string           `json:"reasoning"`
	Confidence         string           `json:"confidence"`
	Priority           string           `json:"priority"`
	AlternativeActions []map[string]any `json:"alternative_actions"`
}

// ProcessOne runs the full per-observation pipeline and returns the
// resulting decision, nil when the director chose not to act.
func (b *Brain) ProcessOne(ctx context.Context, obs model.Observation) (*model.Decision, error) {
	key := CacheKey(obs.Type, obs.Data)

	if b.cache != nil {
		if cached := b.cache.Get(key); cached != nil {
			cached.ObservationID = obs.ID
			cached.UserID = obs.UserID
			cached.CompanyID = obs.CompanyID
			if err := b.store.InsertDecision(ctx, cached); err != nil {
				return nil, err
			}
			zap.L().Debug("decision served from cache",
				zap.String("observation_id", obs.ID))
			return b.maybeExecute(ctx, cached), nil
		}
	}

	dc := b.gatherContext(ctx, obs)
	result, err := b.gateway.Complete(ctx, llm.CallRequest{
		Skill: llm.SkillDecisionDirector,
		Input: map[string]any{
			"observation": obs,
			"context":     dc,
		},
		UserID:    obs.UserID,
		CompanyID: obs.CompanyID,
	})
	if err != nil {
		return nil, err
	}

	reply, err := parseDirectorReply(result.Content)
	if err != nil {
		zap.L().Warn("director reply rejected",
			zap.String("content", model.Summarize(result.Content)),
			zap.Error(err))
		return nil, err
	}
	if !reply.ShouldAct {
		return nil, nil
	}

	decision := b.materialize(obs, reply)
	b.calibrator.Apply(decision)

	if err := b.store.InsertDecision(ctx, decision); err != nil {
		return nil, err
	}
	if b.cache != nil {
		b.cache.Put(key, *decision)
	}
	return b.maybeExecute(ctx, decision), nil
}

// materialize converts the director's reply to a Decision row, normalizing
// enums and enforcing the approval invariant.
func (b *Brain) materialize(obs model.Observation, reply *directorReply) *model.Decision {
	actionType := model.ActionType(reply.ActionType)
	if !actionType.Valid() {
		actionType = model.ActionEscalateToHuman
	}
	confidence := model.Confidence(reply.Confidence)
	if !confidence.Valid() {
		confidence = model.ConfidenceUncertain
	}
	priority := model.Priority(reply.Priority)
	if !priority.Valid() {
		priority = obs.Priority
	}

	reasoning := reply.Reasoning
	if len(reasoning) > 200 {
		reasoning = reasoning[:200]
	}

	return &model.Decision{
		ObservationID:    obs.ID,
		UserID:           obs.UserID,
		CompanyID:        obs.CompanyID,
		ActionType:       actionType,
		ActionParams:     reply.ActionParams,
		Reasoning:        reasoning,
		Confidence:       confidence,
		Priority:         priority,
		RequiresApproval: !confidence.AutoExecutable(),
	}
}

// maybeExecute runs the decision when mode and confidence allow. Execution
// failures feed calibration but never fail the pipeline.
func (b *Brain) maybeExecute(ctx context.Context, d *model.Decision) *model.Decision {
	if !b.mode.allowsAutoExecute(d.Confidence) || !d.Executable() {
		return d
	}

	result, elapsed, err := b.executor.Execute(ctx, d)
	if err != nil {
		b.calibrator.RecordFailure(d.ActionType)
		zap.L().Error("decision execution failed",
			zap.String("decision_id", d.ID),
			zap.String("action_type", string(d.ActionType)),
			zap.Error(err))
		return d
	}

	b.calibrator.RecordSuccess(d.ActionType)
	if err := b.store.MarkDecisionExecuted(ctx, d.ID, result, elapsed); err != nil {
		zap.L().Warn("execution result not persisted",
			zap.String("decision_id", d.ID), zap.Error(err))
		return d
	}
	d.Executed = true
	d.Result = result
	d.ExecutionTimeMs = elapsed
	return d
}

// parseDirectorReply decodes the model reply, tolerating code fences.
func parseDirectorReply(content string) (*directorReply, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, eris.Wrap(ErrParse, "no JSON object in reply")
	}
	var reply directorReply
	if err := json.Unmarshal([]byte(content[start:end+1]), &reply); err != nil {
		return nil, eris.Wrap(ErrParse, err.Error())
	}
	return &reply, nil
}

// Approve marks the decision approved and executes it.
func (b *Brain) Approve(ctx context.Context, id string) (*model.Decision, error) {
	if err := b.store.SetDecisionApproval(ctx, id, true); err != nil {
		return nil, err
	}
	d, err := b.store.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Executed {
		return d, nil
	}

	result, elapsed, err := b.executor.Execute(ctx, d)
	if err != nil {
		b.calibrator.RecordFailure(d.ActionType)
		return d, err
	}
	b.calibrator.RecordSuccess(d.ActionType)
	if err := b.store.MarkDecisionExecuted(ctx, d.ID, result, elapsed); err != nil {
		return d, err
	}
	d.Executed = true
	d.Result = result
	d.ExecutionTimeMs = elapsed
	return d, nil
}

// Reject marks the decision rejected; it will never execute.
func (b *Brain) Reject(ctx context.Context, id, reason string) error {
	if err := b.store.SetDecisionApproval(ctx, id, false); err != nil {
		return err
	}
	zap.L().Info("decision rejected",
		zap.String("decision_id", id),
		zap.String("reason", reason))
	return nil
}
