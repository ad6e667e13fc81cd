package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/salesflow-ai/pulse/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &Unavailable{Err: err}
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS outreach_messages (
	id                      TEXT PRIMARY KEY,
	user_id                 TEXT NOT NULL,
	lead_id                 TEXT,
	channel                 TEXT NOT NULL,
	text                    TEXT NOT NULL,
	message_type            TEXT NOT NULL,
	intent                  TEXT NOT NULL,
	status                  TEXT NOT NULL DEFAULT 'sent',
	status_source           TEXT NOT NULL DEFAULT 'user',
	status_updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	auto_inferred           BOOLEAN NOT NULL DEFAULT false,
	inference_reason        TEXT,
	sent_at                 TIMESTAMPTZ NOT NULL,
	delivered_at            TIMESTAMPTZ,
	seen_at                 TIMESTAMPTZ,
	replied_at              TIMESTAMPTZ,
	check_in_due_at         TIMESTAMPTZ NOT NULL,
	check_in_hours_used     DOUBLE PRECISION NOT NULL,
	check_in_completed      BOOLEAN NOT NULL DEFAULT false,
	check_in_skipped        BOOLEAN NOT NULL DEFAULT false,
	check_in_reminder_count INTEGER NOT NULL DEFAULT 0,
	ghost_type              TEXT,
	ghost_detected_at       TIMESTAMPTZ,
	follow_up_sent          BOOLEAN NOT NULL DEFAULT false,
	follow_up_message_id    TEXT,
	suggested_strategy      TEXT,
	suggested_follow_up     TEXT,
	template_id             TEXT,
	template_variant        TEXT,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_outreach_user ON outreach_messages(user_id, sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_outreach_lead ON outreach_messages(user_id, lead_id);
CREATE INDEX IF NOT EXISTS idx_outreach_status ON outreach_messages(status);

CREATE TABLE IF NOT EXISTS lead_behavior_profiles (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	lead_id     TEXT NOT NULL,
	data        JSONB NOT NULL,
	analyzed_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, lead_id)
);

CREATE TABLE IF NOT EXISTS ghost_buster_templates (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	text               TEXT NOT NULL,
	strategy           TEXT NOT NULL,
	works_for_mood     JSONB NOT NULL DEFAULT '[]',
	works_for_decision JSONB NOT NULL DEFAULT '[]',
	days_since_ghost   INTEGER NOT NULL DEFAULT 0,
	success_rate       DOUBLE PRECISION NOT NULL DEFAULT 0,
	sent_count         INTEGER NOT NULL DEFAULT 0,
	conversion_count   INTEGER NOT NULL DEFAULT 0,
	is_active          BOOLEAN NOT NULL DEFAULT true,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ab_assignments (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	lead_id     TEXT NOT NULL,
	template_id TEXT NOT NULL,
	variant     TEXT NOT NULL,
	mood        TEXT NOT NULL,
	campaign_id TEXT,
	assigned_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS campaign_variant_stats (
	campaign_id TEXT NOT NULL,
	variant     TEXT NOT NULL,
	mood        TEXT NOT NULL,
	sent_count  INTEGER NOT NULL DEFAULT 0,
	reply_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (campaign_id, variant, mood)
);

CREATE TABLE IF NOT EXISTS observations (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}',
	timestamp  TIMESTAMPTZ NOT NULL,
	user_id    TEXT NOT NULL,
	company_id TEXT,
	source     TEXT NOT NULL,
	priority   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_observations_user ON observations(user_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS decisions (
	id                TEXT PRIMARY KEY,
	observation_id    TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	company_id        TEXT,
	action_type       TEXT NOT NULL,
	action_params     JSONB NOT NULL DEFAULT '{}',
	reasoning         TEXT NOT NULL,
	confidence        TEXT NOT NULL,
	priority          TEXT NOT NULL,
	requires_approval BOOLEAN NOT NULL DEFAULT false,
	approved          BOOLEAN,
	executed          BOOLEAN NOT NULL DEFAULT false,
	result            JSONB,
	execution_time_ms BIGINT NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_decisions_user ON decisions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_action ON decisions(action_type);

CREATE TABLE IF NOT EXISTS ai_interactions (
	id               TEXT PRIMARY KEY,
	skill            TEXT NOT NULL,
	skill_version    TEXT NOT NULL,
	prompt_version   TEXT NOT NULL,
	provider         TEXT NOT NULL,
	model            TEXT NOT NULL,
	temperature      DOUBLE PRECISION NOT NULL,
	session_id       TEXT NOT NULL,
	user_id          TEXT,
	company_id       TEXT,
	lead_id          TEXT,
	request_summary  TEXT NOT NULL,
	response_summary TEXT NOT NULL,
	input_tokens     INTEGER NOT NULL DEFAULT 0,
	output_tokens    INTEGER NOT NULL DEFAULT 0,
	latency_ms       BIGINT NOT NULL DEFAULT 0,
	cost_usd         DOUBLE PRECISION NOT NULL DEFAULT 0,
	outcome          TEXT NOT NULL DEFAULT 'unknown',
	rating           INTEGER,
	feedback         TEXT,
	used             BOOLEAN NOT NULL DEFAULT false,
	error_type       TEXT,
	error_message    TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates all tables and indexes if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return classify("migrate", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

const outreachColumns = `id, user_id, lead_id, channel, text, message_type, intent,
	status, status_source, status_updated_at, auto_inferred, inference_reason,
	sent_at, delivered_at, seen_at, replied_at,
	check_in_due_at, check_in_hours_used, check_in_completed, check_in_skipped, check_in_reminder_count,
	ghost_type, ghost_detected_at, follow_up_sent, follow_up_message_id, suggested_strategy, suggested_follow_up,
	template_id, template_variant, created_at, updated_at`

// CreateOutreach inserts a new outreach row, assigning id and timestamps.
func (s *PostgresStore) CreateOutreach(ctx context.Context, m *model.OutreachMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.StatusUpdatedAt.IsZero() {
		m.StatusUpdatedAt = now
	}

	_, err := s.pool.Exec(ctx, `INSERT INTO outreach_messages (`+outreachColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31)`,
		m.ID, m.UserID, nilIfEmpty(m.LeadID), m.Channel, m.Text, m.Type, m.Intent,
		m.Status, m.StatusSource, m.StatusUpdatedAt, m.AutoInferred, nilIfEmpty(m.InferenceReason),
		m.SentAt, m.DeliveredAt, m.SeenAt, m.RepliedAt,
		m.CheckInDueAt, m.CheckInHoursUsed, m.CheckInCompleted, m.CheckInSkipped, m.CheckInReminderCount,
		nilIfEmpty(string(m.GhostType)), m.GhostDetectedAt, m.FollowUpSent, nilIfEmpty(m.FollowUpMessageID),
		nilIfEmpty(string(m.SuggestedStrategy)), nilIfEmpty(m.SuggestedFollowUp),
		nilIfEmpty(m.TemplateID), nilIfEmpty(m.TemplateVariant), m.CreatedAt, m.UpdatedAt,
	)
	return classify("create outreach", err)
}

// GetOutreach fetches a single outreach row scoped to its owner.
func (s *PostgresStore) GetOutreach(ctx context.Context, userID, id string) (*model.OutreachMessage, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+outreachColumns+` FROM outreach_messages WHERE id = $1 AND user_id = $2`, id, userID)
	m, err := scanOutreach(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get outreach", err)
	}
	return m, nil
}

// UpdateOutreach persists the mutable fields of an outreach row.
func (s *PostgresStore) UpdateOutreach(ctx context.Context, m *model.OutreachMessage) error {
	m.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `UPDATE outreach_messages SET
		status = $1, status_source = $2, status_updated_at = $3, auto_inferred = $4, inference_reason = $5,
		delivered_at = $6, seen_at = $7, replied_at = $8,
		check_in_completed = $9, check_in_skipped = $10, check_in_reminder_count = $11,
		ghost_type = $12, ghost_detected_at = $13, follow_up_sent = $14, follow_up_message_id = $15,
		suggested_strategy = $16, suggested_follow_up = $17, updated_at = $18
		WHERE id = $19 AND user_id = $20`,
		m.Status, m.StatusSource, m.StatusUpdatedAt, m.AutoInferred, nilIfEmpty(m.InferenceReason),
		m.DeliveredAt, m.SeenAt, m.RepliedAt,
		m.CheckInCompleted, m.CheckInSkipped, m.CheckInReminderCount,
		nilIfEmpty(string(m.GhostType)), m.GhostDetectedAt, m.FollowUpSent, nilIfEmpty(m.FollowUpMessageID),
		nilIfEmpty(string(m.SuggestedStrategy)), nilIfEmpty(m.SuggestedFollowUp), m.UpdatedAt,
		m.ID, m.UserID,
	)
	if err != nil {
		return classify("update outreach", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOutreach returns outreach rows matching the filter, newest first.
func (s *PostgresStore) ListOutreach(ctx context.Context, f OutreachFilter) ([]model.OutreachMessage, error) {
	query := `SELECT ` + outreachColumns + ` FROM outreach_messages WHERE user_id = $1`
	args := []any{f.UserID}

	if f.LeadID != "" {
		args = append(args, f.LeadID)
		query += ` AND lead_id = $` + itoa(len(args))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		query += ` AND status = ANY($` + itoa(len(args)) + `)`
	}
	if f.SentAfter != nil {
		args = append(args, *f.SentAfter)
		query += ` AND sent_at >= $` + itoa(len(args))
	}
	if f.SentBefore != nil {
		args = append(args, *f.SentBefore)
		query += ` AND sent_at < $` + itoa(len(args))
	}
	if f.CheckInIncomplete {
		query += ` AND check_in_completed = false`
	}
	if f.CheckInUnskipped {
		query += ` AND check_in_skipped = false`
	}
	query += ` ORDER BY sent_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list outreach", err)
	}
	defer rows.Close()

	var out []model.OutreachMessage
	for rows.Next() {
		m, err := scanOutreach(rows)
		if err != nil {
			return nil, classify("scan outreach", err)
		}
		out = append(out, *m)
	}
	return out, classify("list outreach", rows.Err())
}

// GetProfile fetches the behavior profile for (userID, leadID).
func (s *PostgresStore) GetProfile(ctx context.Context, userID, leadID string) (*model.LeadBehaviorProfile, error) {
	var data []byte
	row := s.pool.QueryRow(ctx,
		`SELECT data FROM lead_behavior_profiles WHERE user_id = $1 AND lead_id = $2`, userID, leadID)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get profile", err)
	}
	var p model.LeadBehaviorProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &OpError{Op: "decode profile", Err: err}
	}
	return &p, nil
}

// UpsertProfile inserts or replaces the behavior profile row for the lead.
func (s *PostgresStore) UpsertProfile(ctx context.Context, p *model.LeadBehaviorProfile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	data, err := json.Marshal(p)
	if err != nil {
		return &OpError{Op: "encode profile", Err: err}
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO lead_behavior_profiles (id, user_id, lead_id, data, analyzed_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id, lead_id) DO UPDATE SET
			data = EXCLUDED.data, analyzed_at = EXCLUDED.analyzed_at, updated_at = EXCLUDED.updated_at`,
		p.ID, p.UserID, p.LeadID, data, p.AnalyzedAt, p.CreatedAt, p.UpdatedAt,
	)
	return classify("upsert profile", err)
}

// ListTemplates returns the user's follow-up templates.
func (s *PostgresStore) ListTemplates(ctx context.Context, userID string, activeOnly bool) ([]model.GhostBusterTemplate, error) {
	query := `SELECT id, user_id, text, strategy, works_for_mood, works_for_decision,
		days_since_ghost, success_rate, sent_count, conversion_count, is_active, created_at, updated_at
		FROM ghost_buster_templates WHERE user_id = $1`
	if activeOnly {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, classify("list templates", err)
	}
	defer rows.Close()

	var out []model.GhostBusterTemplate
	for rows.Next() {
		var t model.GhostBusterTemplate
		var moods, decisions []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.Text, &t.Strategy, &moods, &decisions,
			&t.DaysSinceGhost, &t.SuccessRate, &t.SentCount, &t.ConversionCount,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, classify("scan template", err)
		}
		if err := json.Unmarshal(moods, &t.WorksForMood); err != nil {
			return nil, &OpError{Op: "decode template moods", Err: err}
		}
		if err := json.Unmarshal(decisions, &t.WorksForDecision); err != nil {
			return nil, &OpError{Op: "decode template decisions", Err: err}
		}
		out = append(out, t)
	}
	return out, classify("list templates", rows.Err())
}

// IncrementTemplateCounters atomically bumps the template counters. The
// single-statement increment avoids lost updates under concurrency.
func (s *PostgresStore) IncrementTemplateCounters(ctx context.Context, templateID string, sentDelta, conversionDelta int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE ghost_buster_templates
		SET sent_count = sent_count + $1, conversion_count = conversion_count + $2, updated_at = now()
		WHERE id = $3`, sentDelta, conversionDelta, templateID)
	if err != nil {
		return classify("increment template counters", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertABAssignment records a variant assignment event.
func (s *PostgresStore) InsertABAssignment(ctx context.Context, a *ABAssignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO ab_assignments (id, user_id, lead_id, template_id, variant, mood, campaign_id, assigned_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.UserID, a.LeadID, a.TemplateID, a.Variant, a.Mood, nilIfEmpty(a.CampaignID), a.AssignedAt)
	return classify("insert ab assignment", err)
}

// ListCampaignVariantStats returns campaign-level A/B performance rows.
func (s *PostgresStore) ListCampaignVariantStats(ctx context.Context, campaignID string) ([]VariantMoodStat, error) {
	rows, err := s.pool.Query(ctx, `SELECT campaign_id, variant, mood, sent_count, reply_count
		FROM campaign_variant_stats WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, classify("list campaign variant stats", err)
	}
	defer rows.Close()

	var out []VariantMoodStat
	for rows.Next() {
		var st VariantMoodStat
		if err := rows.Scan(&st.CampaignID, &st.Variant, &st.Mood, &st.SentCount, &st.ReplyCount); err != nil {
			return nil, classify("scan campaign variant stats", err)
		}
		out = append(out, st)
	}
	return out, classify("list campaign variant stats", rows.Err())
}

// InsertObservation persists an observation event.
func (s *PostgresStore) InsertObservation(ctx context.Context, o *model.Observation) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(o.Data)
	if err != nil {
		return &OpError{Op: "encode observation", Err: err}
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO observations (id, type, data, timestamp, user_id, company_id, source, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.Type, data, o.Timestamp, o.UserID, nilIfEmpty(o.CompanyID), o.Source, o.Priority)
	return classify("insert observation", err)
}

// ListRecentObservations returns the user's latest observations, newest
// first.
func (s *PostgresStore) ListRecentObservations(ctx context.Context, userID string, limit int) ([]model.Observation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `SELECT id, type, data, timestamp, user_id, company_id, source, priority
		FROM observations WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, classify("list observations", err)
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		var data []byte
		var companyID *string
		if err := rows.Scan(&o.ID, &o.Type, &data, &o.Timestamp, &o.UserID, &companyID, &o.Source, &o.Priority); err != nil {
			return nil, classify("scan observation", err)
		}
		if companyID != nil {
			o.CompanyID = *companyID
		}
		if err := json.Unmarshal(data, &o.Data); err != nil {
			return nil, &OpError{Op: "decode observation", Err: err}
		}
		out = append(out, o)
	}
	return out, classify("list observations", rows.Err())
}

// InsertDecision persists a new decision row.
func (s *PostgresStore) InsertDecision(ctx context.Context, d *model.Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	params, err := json.Marshal(d.ActionParams)
	if err != nil {
		return &OpError{Op: "encode decision params", Err: err}
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO decisions (id, observation_id, user_id, company_id, action_type,
		action_params, reasoning, confidence, priority, requires_approval, approved, executed, execution_time_ms, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.ID, d.ObservationID, d.UserID, nilIfEmpty(d.CompanyID), d.ActionType,
		params, d.Reasoning, d.Confidence, d.Priority, d.RequiresApproval, d.Approved, d.Executed,
		d.ExecutionTimeMs, d.CreatedAt, d.UpdatedAt)
	return classify("insert decision", err)
}

const decisionColumns = `id, observation_id, user_id, company_id, action_type, action_params,
	reasoning, confidence, priority, requires_approval, approved, executed, result, execution_time_ms, created_at, updated_at`

// GetDecision fetches one decision row by id.
func (s *PostgresStore) GetDecision(ctx context.Context, id string) (*model.Decision, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE id = $1`, id)
	d, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get decision", err)
	}
	return d, nil
}

// SetDecisionApproval records the human approval verdict.
func (s *PostgresStore) SetDecisionApproval(ctx context.Context, id string, approved bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE decisions SET approved = $1, updated_at = now() WHERE id = $2`, approved, id)
	if err != nil {
		return classify("set decision approval", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDecisionExecuted stores the execution result. The WHERE clause makes
// a second execution a no-op, so a persisted result is immutable.
func (s *PostgresStore) MarkDecisionExecuted(ctx context.Context, id string, result map[string]any, executionMs int64) error {
	data, err := json.Marshal(result)
	if err != nil {
		return &OpError{Op: "encode decision result", Err: err}
	}
	tag, err := s.pool.Exec(ctx, `UPDATE decisions
		SET executed = true, result = $1, execution_time_ms = $2, updated_at = now()
		WHERE id = $3 AND executed = false`, data, executionMs, id)
	if err != nil {
		return classify("mark decision executed", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExecutedDecisions returns executed decisions since the given time,
// for offline pattern analysis.
func (s *PostgresStore) ListExecutedDecisions(ctx context.Context, userID string, since time.Time) ([]model.Decision, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+decisionColumns+` FROM decisions
		WHERE user_id = $1 AND executed = true AND created_at >= $2 ORDER BY created_at DESC`, userID, since)
	if err != nil {
		return nil, classify("list executed decisions", err)
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, classify("scan decision", err)
		}
		out = append(out, *d)
	}
	return out, classify("list executed decisions", rows.Err())
}

// InsertInteraction writes an AI interaction audit row.
func (s *PostgresStore) InsertInteraction(ctx context.Context, i *model.AIInteraction) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	if i.Outcome == "" {
		i.Outcome = model.OutcomeUnknown
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO ai_interactions (id, skill, skill_version, prompt_version,
		provider, model, temperature, session_id, user_id, company_id, lead_id,
		request_summary, response_summary, input_tokens, output_tokens, latency_ms, cost_usd,
		outcome, rating, feedback, used, error_type, error_message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		i.ID, i.Skill, i.SkillVersion, i.PromptVersion,
		i.Provider, i.Model, i.Temperature, i.SessionID,
		nilIfEmpty(i.UserID), nilIfEmpty(i.CompanyID), nilIfEmpty(i.LeadID),
		i.RequestSummary, i.ResponseSummary, i.InputTokens, i.OutputTokens, i.LatencyMs, i.CostUSD,
		i.Outcome, i.Rating, nilIfEmpty(i.Feedback), i.Used,
		nilIfEmpty(i.ErrorType), nilIfEmpty(i.ErrorMessage), i.CreatedAt)
	return classify("insert interaction", err)
}

// MarkInteractionUsed flags the generated artifact as used.
func (s *PostgresStore) MarkInteractionUsed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE ai_interactions SET used = true WHERE id = $1`, id)
	if err != nil {
		return classify("mark interaction used", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateInteractionOutcome records the eventual outcome of a model output.
func (s *PostgresStore) UpdateInteractionOutcome(ctx context.Context, id string, outcome model.Outcome, rating *int, feedback string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ai_interactions SET outcome = $1, rating = $2, feedback = $3 WHERE id = $4`,
		outcome, rating, nilIfEmpty(feedback), id)
	if err != nil {
		return classify("update interaction outcome", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Execute runs an arbitrary analytical query and returns generic rows.
func (s *PostgresStore) Execute(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("execute", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, classify("execute scan", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, classify("execute", rows.Err())
}

// scanOutreach reads one outreach row from a pgx.Row or pgx.Rows.
func scanOutreach(row pgx.Row) (*model.OutreachMessage, error) {
	var m model.OutreachMessage
	var leadID, inferenceReason, ghostType, followUpID, strategy, suggested, templateID, variant *string
	err := row.Scan(&m.ID, &m.UserID, &leadID, &m.Channel, &m.Text, &m.Type, &m.Intent,
		&m.Status, &m.StatusSource, &m.StatusUpdatedAt, &m.AutoInferred, &inferenceReason,
		&m.SentAt, &m.DeliveredAt, &m.SeenAt, &m.RepliedAt,
		&m.CheckInDueAt, &m.CheckInHoursUsed, &m.CheckInCompleted, &m.CheckInSkipped, &m.CheckInReminderCount,
		&ghostType, &m.GhostDetectedAt, &m.FollowUpSent, &followUpID, &strategy, &suggested,
		&templateID, &variant, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.LeadID = deref(leadID)
	m.InferenceReason = deref(inferenceReason)
	m.GhostType = model.GhostType(deref(ghostType))
	m.FollowUpMessageID = deref(followUpID)
	m.SuggestedStrategy = model.Strategy(deref(strategy))
	m.SuggestedFollowUp = deref(suggested)
	m.TemplateID = deref(templateID)
	m.TemplateVariant = deref(variant)
	return &m, nil
}

func scanDecision(row pgx.Row) (*model.Decision, error) {
	var d model.Decision
	var companyID *string
	var params, result []byte
	err := row.Scan(&d.ID, &d.ObservationID, &d.UserID, &companyID, &d.ActionType, &params,
		&d.Reasoning, &d.Confidence, &d.Priority, &d.RequiresApproval, &d.Approved, &d.Executed,
		&result, &d.ExecutionTimeMs, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.CompanyID = deref(companyID)
	if err := json.Unmarshal(params, &d.ActionParams); err != nil {
		return nil, err
	}
	if result != nil {
		if err := json.Unmarshal(result, &d.Result); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

// nilIfEmpty returns nil for empty strings, allowing NULL storage.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itoa(n int) string { return strconv.Itoa(n) }
