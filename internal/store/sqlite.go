package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/salesflow-ai/pulse/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local and
// development deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	status_updated_at       DATETIME NOT NULL,
	auto_inferred           INTEGER NOT NULL DEFAULT 0,
	inference_reason        TEXT,
	sent_at                 DATETIME NOT NULL,
	delivered_at            DATETIME,
	seen_at                 DATETIME,
	replied_at              DATETIME,
	check_in_due_at         DATETIME NOT NULL,
	check_in_hours_used     REAL NOT NULL,
	check_in_completed      INTEGER NOT NULL DEFAULT 0,
	check_in_skipped        INTEGER NOT NULL DEFAULT 0,
	check_in_reminder_count INTEGER NOT NULL DEFAULT 0,
	ghost_type              TEXT,
	ghost_detected_at       DATETIME,
	follow_up_sent          INTEGER NOT NULL DEFAULT 0,
	follow_up_message_id    TEXT,
	suggested_strategy      TEXT,
	suggested_follow_up     TEXT,
	template_id             TEXT,
	template_variant        TEXT,
	created_at              DATETIME NOT NULL,
	updated_at              DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outreach_user ON outreach_messages(user_id, sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_outreach_lead ON outreach_messages(user_id, lead_id);

CREATE TABLE IF NOT EXISTS lead_behavior_profiles (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	lead_id     TEXT NOT NULL,
	data        TEXT NOT NULL,
	analyzed_at DATETIME NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	UNIQUE (user_id, lead_id)
);

CREATE TABLE IF NOT EXISTS ghost_buster_templates (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	text               TEXT NOT NULL,
	strategy           TEXT NOT NULL,
	works_for_mood     TEXT NOT NULL DEFAULT '[]',
	works_for_decision TEXT NOT NULL DEFAULT '[]',
	days_since_ghost   INTEGER NOT NULL DEFAULT 0,
	success_rate       REAL NOT NULL DEFAULT 0,
	sent_count         INTEGER NOT NULL DEFAULT 0,
	conversion_count   INTEGER NOT NULL DEFAULT 0,
	is_active          INTEGER NOT NULL DEFAULT 1,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ab_assignments (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	lead_id     TEXT NOT NULL,
	template_id TEXT NOT NULL,
	variant     TEXT NOT NULL,
	mood        TEXT NOT NULL,
	campaign_id TEXT,
	assigned_at DATETIME NOT NULL
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
	data       TEXT NOT NULL DEFAULT '{}',
	timestamp  DATETIME NOT NULL,
	user_id    TEXT NOT NULL,
	company_id TEXT,
	source     TEXT NOT NULL,
	priority   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id                TEXT PRIMARY KEY,
	observation_id    TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	company_id        TEXT,
	action_type       TEXT NOT NULL,
	action_params     TEXT NOT NULL DEFAULT '{}',
	reasoning         TEXT NOT NULL,
	confidence        TEXT NOT NULL,
	priority          TEXT NOT NULL,
	requires_approval INTEGER NOT NULL DEFAULT 0,
	approved          INTEGER,
	executed          INTEGER NOT NULL DEFAULT 0,
	result            TEXT,
	execution_time_ms INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_interactions (
	id               TEXT PRIMARY KEY,
	skill            TEXT NOT NULL,
	skill_version    TEXT NOT NULL,
	prompt_version   TEXT NOT NULL,
	provider         TEXT NOT NULL,
	model            TEXT NOT NULL,
	temperature      REAL NOT NULL,
	session_id       TEXT NOT NULL,
	user_id          TEXT,
	company_id       TEXT,
	lead_id          TEXT,
	request_summary  TEXT NOT NULL,
	response_summary TEXT NOT NULL,
	input_tokens     INTEGER NOT NULL DEFAULT 0,
	output_tokens    INTEGER NOT NULL DEFAULT 0,
	latency_ms       INTEGER NOT NULL DEFAULT 0,
	cost_usd         REAL NOT NULL DEFAULT 0,
	outcome          TEXT NOT NULL DEFAULT 'unknown',
	rating           INTEGER,
	feedback         TEXT,
	used             INTEGER NOT NULL DEFAULT 0,
	error_type       TEXT,
	error_message    TEXT,
	created_at       DATETIME NOT NULL
);
`

// Migrate creates all tables and indexes if missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return classify("migrate", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateOutreach inserts a new outreach row, assigning id and timestamps.
func (s *SQLiteStore) CreateOutreach(ctx context.Context, m *model.OutreachMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.StatusUpdatedAt.IsZero() {
		m.StatusUpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO outreach_messages (`+outreachColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.UserID, nilIfEmpty(m.LeadID), m.Channel, m.Text, m.Type, m.Intent,
		m.Status, m.StatusSource, m.StatusUpdatedAt, m.AutoInferred, nilIfEmpty(m.InferenceReason),
		m.SentAt, m.DeliveredAt, m.SeenAt, m.RepliedAt,
		m.CheckInDueAt, m.CheckInHoursUsed, m.CheckInCompleted, m.CheckInSkipped, m.CheckInReminderCount,
		nilIfEmpty(string(m.GhostType)), m.GhostDetectedAt, m.FollowUpSent, nilIfEmpty(m.FollowUpMessageID),
		nilIfEmpty(string(m.SuggestedStrategy)), nilIfEmpty(m.SuggestedFollowUp),
		nilIfEmpty(m.TemplateID), nilIfEmpty(m.TemplateVariant), m.CreatedAt, m.UpdatedAt)
	return classify("create outreach", err)
}

// GetOutreach fetches a single outreach row scoped to its owner.
func (s *SQLiteStore) GetOutreach(ctx context.Context, userID, id string) (*model.OutreachMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+outreachColumns+` FROM outreach_messages WHERE id = ? AND user_id = ?`, id, userID)
	m, err := scanOutreachSQL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get outreach", err)
	}
	return m, nil
}

// UpdateOutreach persists the mutable fields of an outreach row.
func (s *SQLiteStore) UpdateOutreach(ctx context.Context, m *model.OutreachMessage) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE outreach_messages SET
		status = ?, status_source = ?, status_updated_at = ?, auto_inferred = ?, inference_reason = ?,
		delivered_at = ?, seen_at = ?, replied_at = ?,
		check_in_completed = ?, check_in_skipped = ?, check_in_reminder_count = ?,
		ghost_type = ?, ghost_detected_at = ?, follow_up_sent = ?, follow_up_message_id = ?,
		suggested_strategy = ?, suggested_follow_up = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		m.Status, m.StatusSource, m.StatusUpdatedAt, m.AutoInferred, nilIfEmpty(m.InferenceReason),
		m.DeliveredAt, m.SeenAt, m.RepliedAt,
		m.CheckInCompleted, m.CheckInSkipped, m.CheckInReminderCount,
		nilIfEmpty(string(m.GhostType)), m.GhostDetectedAt, m.FollowUpSent, nilIfEmpty(m.FollowUpMessageID),
		nilIfEmpty(string(m.SuggestedStrategy)), nilIfEmpty(m.SuggestedFollowUp), m.UpdatedAt,
		m.ID, m.UserID)
	if err != nil {
		return classify("update outreach", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOutreach returns outreach rows matching the filter, newest first.
func (s *SQLiteStore) ListOutreach(ctx context.Context, f OutreachFilter) ([]model.OutreachMessage, error) {
	query := `SELECT ` + outreachColumns + ` FROM outreach_messages WHERE user_id = ?`
	args := []any{f.UserID}

	if f.LeadID != "" {
		query += ` AND lead_id = ?`
		args = append(args, f.LeadID)
	}
	if len(f.Statuses) > 0 {
		query += ` AND status IN (`
		for i, st := range f.Statuses {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, string(st))
		}
		query += `)`
	}
	if f.SentAfter != nil {
		query += ` AND sent_at >= ?`
		args = append(args, *f.SentAfter)
	}
	if f.SentBefore != nil {
		query += ` AND sent_at < ?`
		args = append(args, *f.SentBefore)
	}
	if f.CheckInIncomplete {
		query += ` AND check_in_completed = 0`
	}
	if f.CheckInUnskipped {
		query += ` AND check_in_skipped = 0`
	}
	query += ` ORDER BY sent_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list outreach", err)
	}
	defer rows.Close()

	var out []model.OutreachMessage
	for rows.Next() {
		m, err := scanOutreachSQL(rows)
		if err != nil {
			return nil, classify("scan outreach", err)
		}
		out = append(out, *m)
	}
	return out, classify("list outreach", rows.Err())
}

// GetProfile fetches the behavior profile for (userID, leadID).
func (s *SQLiteStore) GetProfile(ctx context.Context, userID, leadID string) (*model.LeadBehaviorProfile, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM lead_behavior_profiles WHERE user_id = ? AND lead_id = ?`, userID, leadID)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *model.LeadBehaviorProfile) error {
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO lead_behavior_profiles (id, user_id, lead_id, data, analyzed_at, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT (user_id, lead_id) DO UPDATE SET
			data = excluded.data, analyzed_at = excluded.analyzed_at, updated_at = excluded.updated_at`,
		p.ID, p.UserID, p.LeadID, data, p.AnalyzedAt, p.CreatedAt, p.UpdatedAt)
	return classify("upsert profile", err)
}

// ListTemplates returns the user's follow-up templates.
func (s *SQLiteStore) ListTemplates(ctx context.Context, userID string, activeOnly bool) ([]model.GhostBusterTemplate, error) {
	query := `SELECT id, user_id, text, strategy, works_for_mood, works_for_decision,
		days_since_ghost, success_rate, sent_count, conversion_count, is_active, created_at, updated_at
		FROM ghost_buster_templates WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, userID)
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

// IncrementTemplateCounters atomically bumps the template counters.
func (s *SQLiteStore) IncrementTemplateCounters(ctx context.Context, templateID string, sentDelta, conversionDelta int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE ghost_buster_templates
		SET sent_count = sent_count + ?, conversion_count = conversion_count + ?, updated_at = ?
		WHERE id = ?`, sentDelta, conversionDelta, time.Now().UTC(), templateID)
	if err != nil {
		return classify("increment template counters", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertABAssignment records a variant assignment event.
func (s *SQLiteStore) InsertABAssignment(ctx context.Context, a *ABAssignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO ab_assignments (id, user_id, lead_id, template_id, variant, mood, campaign_id, assigned_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.UserID, a.LeadID, a.TemplateID, a.Variant, a.Mood, nilIfEmpty(a.CampaignID), a.AssignedAt)
	return classify("insert ab assignment", err)
}

// ListCampaignVariantStats returns campaign-level A/B performance rows.
func (s *SQLiteStore) ListCampaignVariantStats(ctx context.Context, campaignID string) ([]VariantMoodStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT campaign_id, variant, mood, sent_count, reply_count
		FROM campaign_variant_stats WHERE campaign_id = ?`, campaignID)
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
func (s *SQLiteStore) InsertObservation(ctx context.Context, o *model.Observation) error {
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO observations (id, type, data, timestamp, user_id, company_id, source, priority)
		VALUES (?,?,?,?,?,?,?,?)`,
		o.ID, o.Type, data, o.Timestamp, o.UserID, nilIfEmpty(o.CompanyID), o.Source, o.Priority)
	return classify("insert observation", err)
}

// ListRecentObservations returns the user's latest observations.
func (s *SQLiteStore) ListRecentObservations(ctx context.Context, userID string, limit int) ([]model.Observation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, data, timestamp, user_id, company_id, source, priority
		FROM observations WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, classify("list observations", err)
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		var data []byte
		var companyID sql.NullString
		if err := rows.Scan(&o.ID, &o.Type, &data, &o.Timestamp, &o.UserID, &companyID, &o.Source, &o.Priority); err != nil {
			return nil, classify("scan observation", err)
		}
		o.CompanyID = companyID.String
		if err := json.Unmarshal(data, &o.Data); err != nil {
			return nil, &OpError{Op: "decode observation", Err: err}
		}
		out = append(out, o)
	}
	return out, classify("list observations", rows.Err())
}

// InsertDecision persists a new decision row.
func (s *SQLiteStore) InsertDecision(ctx context.Context, d *model.Decision) error {
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO decisions (id, observation_id, user_id, company_id, action_type,
		action_params, reasoning, confidence, priority, requires_approval, approved, executed, execution_time_ms, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.ObservationID, d.UserID, nilIfEmpty(d.CompanyID), d.ActionType,
		params, d.Reasoning, d.Confidence, d.Priority, d.RequiresApproval, d.Approved, d.Executed,
		d.ExecutionTimeMs, d.CreatedAt, d.UpdatedAt)
	return classify("insert decision", err)
}

// GetDecision fetches one decision row by id.
func (s *SQLiteStore) GetDecision(ctx context.Context, id string) (*model.Decision, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE id = ?`, id)
	d, err := scanDecisionSQL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get decision", err)
	}
	return d, nil
}

// SetDecisionApproval records the human approval verdict.
func (s *SQLiteStore) SetDecisionApproval(ctx context.Context, id string, approved bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET approved = ?, updated_at = ? WHERE id = ?`, approved, time.Now().UTC(), id)
	if err != nil {
		return classify("set decision approval", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDecisionExecuted stores the execution result; a second execution is a
// no-op so the persisted result is immutable.
func (s *SQLiteStore) MarkDecisionExecuted(ctx context.Context, id string, result map[string]any, executionMs int64) error {
	data, err := json.Marshal(result)
	if err != nil {
		return &OpError{Op: "encode decision result", Err: err}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE decisions
		SET executed = 1, result = ?, execution_time_ms = ?, updated_at = ?
		WHERE id = ? AND executed = 0`, data, executionMs, time.Now().UTC(), id)
	if err != nil {
		return classify("mark decision executed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExecutedDecisions returns executed decisions since the given time.
func (s *SQLiteStore) ListExecutedDecisions(ctx context.Context, userID string, since time.Time) ([]model.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+decisionColumns+` FROM decisions
		WHERE user_id = ? AND executed = 1 AND created_at >= ? ORDER BY created_at DESC`, userID, since)
	if err != nil {
		return nil, classify("list executed decisions", err)
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		d, err := scanDecisionSQL(rows)
		if err != nil {
			return nil, classify("scan decision", err)
		}
		out = append(out, *d)
	}
	return out, classify("list executed decisions", rows.Err())
}

// InsertInteraction writes an AI interaction audit row.
func (s *SQLiteStore) InsertInteraction(ctx context.Context, i *model.AIInteraction) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	if i.Outcome == "" {
		i.Outcome = model.OutcomeUnknown
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO ai_interactions (id, skill, skill_version, prompt_version,
		provider, model, temperature, session_id, user_id, company_id, lead_id,
		request_summary, response_summary, input_tokens, output_tokens, latency_ms, cost_usd,
		outcome, rating, feedback, used, error_type, error_message, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		i.ID, i.Skill, i.SkillVersion, i.PromptVersion,
		i.Provider, i.Model, i.Temperature, i.SessionID,
		nilIfEmpty(i.UserID), nilIfEmpty(i.CompanyID), nilIfEmpty(i.LeadID),
		i.RequestSummary, i.ResponseSummary, i.InputTokens, i.OutputTokens, i.LatencyMs, i.CostUSD,
		i.Outcome, i.Rating, nilIfEmpty(i.Feedback), i.Used,
		nilIfEmpty(i.ErrorType), nilIfEmpty(i.ErrorMessage), i.CreatedAt)
	return classify("insert interaction", err)
}

// MarkInteractionUsed flags the generated artifact as used.
func (s *SQLiteStore) MarkInteractionUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE ai_interactions SET used = 1 WHERE id = ?`, id)
	if err != nil {
		return classify("mark interaction used", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateInteractionOutcome records the eventual outcome of a model output.
func (s *SQLiteStore) UpdateInteractionOutcome(ctx context.Context, id string, outcome model.Outcome, rating *int, feedback string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ai_interactions SET outcome = ?, rating = ?, feedback = ? WHERE id = ?`,
		outcome, rating, nilIfEmpty(feedback), id)
	if err != nil {
		return classify("update interaction outcome", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Execute runs an arbitrary analytical query and returns generic rows.
func (s *SQLiteStore) Execute(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("execute", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, classify("execute columns", err)
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, classify("execute scan", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, classify("execute", rows.Err())
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutreachSQL(row rowScanner) (*model.OutreachMessage, error) {
	var m model.OutreachMessage
	var leadID, inferenceReason, ghostType, followUpID, strategy, suggested, templateID, variant sql.NullString
	err := row.Scan(&m.ID, &m.UserID, &leadID, &m.Channel, &m.Text, &m.Type, &m.Intent,
		&m.Status, &m.StatusSource, &m.StatusUpdatedAt, &m.AutoInferred, &inferenceReason,
		&m.SentAt, &m.DeliveredAt, &m.SeenAt, &m.RepliedAt,
		&m.CheckInDueAt, &m.CheckInHoursUsed, &m.CheckInCompleted, &m.CheckInSkipped, &m.CheckInReminderCount,
		&ghostType, &m.GhostDetectedAt, &m.FollowUpSent, &followUpID, &strategy, &suggested,
		&templateID, &variant, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.LeadID = leadID.String
	m.InferenceReason = inferenceReason.String
	m.GhostType = model.GhostType(ghostType.String)
	m.FollowUpMessageID = followUpID.String
	m.SuggestedStrategy = model.Strategy(strategy.String)
	m.SuggestedFollowUp = suggested.String
	m.TemplateID = templateID.String
	m.TemplateVariant = variant.String
	return &m, nil
}

func scanDecisionSQL(row rowScanner) (*model.Decision, error) {
	var d model.Decision
	var companyID sql.NullString
	var approved sql.NullBool
	var params []byte
	var result []byte
	err := row.Scan(&d.ID, &d.ObservationID, &d.UserID, &companyID, &d.ActionType, &params,
		&d.Reasoning, &d.Confidence, &d.Priority, &d.RequiresApproval, &approved, &d.Executed,
		&result, &d.ExecutionTimeMs, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.CompanyID = companyID.String
	if approved.Valid {
		v := approved.Bool
		d.Approved = &v
	}
	if err := json.Unmarshal(params, &d.ActionParams); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &d.Result); err != nil {
			return nil, err
		}
	}
	return &d, nil
}
