package pulse

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// BulkResult summarizes a bulk operation. Per-row failures never abort the
// batch; AffectedCount is the number of rows whose persisted state changed.
type BulkResult struct {
	AffectedCount int      `json:"affected_count"`
	Errors        []string `json:"errors,omitempty"`
}

// BulkUpdateStatus applies the same transition to many rows.
func (e *Engine) BulkUpdateStatus(ctx context.Context, userID string, ids []string, to model.OutreachStatus) BulkResult {
	var res BulkResult
	for _, id := range ids {
		_, err := e.UpdateStatus(ctx, TransitionRequest{
			UserID: userID,
			ID:     id,
			To:     to,
			Source: model.SourceBulkUpdate,
		})
		if err != nil {
			res.Errors = append(res.Errors, id+": "+err.Error())
			continue
		}
		res.AffectedCount++
	}
	return res
}

// BulkSkip marks rows as skipped. Only rows still awaiting a check-in are
// eligible; completed rows are reported as errors, not skipped.
func (e *Engine) BulkSkip(ctx context.Context, userID string, ids []string) BulkResult {
	var res BulkResult
	for _, id := range ids {
		msg, err := e.store.GetOutreach(ctx, userID, id)
		if err != nil {
			res.Errors = append(res.Errors, id+": "+err.Error())
			continue
		}
		if msg.CheckInCompleted {
			res.Errors = append(res.Errors, id+": check-in already completed")
			continue
		}
		if _, err := e.UpdateStatus(ctx, TransitionRequest{
			UserID: userID,
			ID:     id,
			To:     model.StatusSkipped,
			Source: model.SourceBulkSkip,
		}); err != nil {
			res.Errors = append(res.Errors, id+": "+err.Error())
			continue
		}
		res.AffectedCount++
	}
	return res
}

// staleAfter is how long an unanswered check-in may sit before the sweep
// marks the row stale.
const staleAfter = 7 * 24 * time.Hour

// SweepStale finds sent rows whose check-in never happened within seven
// days and marks them stale. Running the sweep twice in a window is a
// no-op for already swept rows.
func (e *Engine) SweepStale(ctx context.Context, userID string) (int, error) {
	cutoff := e.nowFunc().UTC().Add(-staleAfter)
	rows, err := e.store.ListOutreach(ctx, store.OutreachFilter{
		UserID:            userID,
		Statuses:          []model.OutreachStatus{model.StatusSent},
		SentBefore:        &cutoff,
		CheckInIncomplete: true,
		CheckInUnskipped:  true,
	})
	if err != nil {
		return 0, err
	}

	swept := 0
	now := e.nowFunc().UTC()
	for i := range rows {
		msg := &rows[i]
		msg.Status = model.StatusStale
		msg.StatusSource = model.SourceAutoInferred
		msg.StatusUpdatedAt = now
		msg.AutoInferred = true
		msg.InferenceReason = "No check-in after 7 days"
		msg.CheckInCompleted = true
		if err := e.store.UpdateOutreach(ctx, msg); err != nil {
			zap.L().Warn("stale sweep update failed",
				zap.String("id", msg.ID), zap.Error(err))
			continue
		}
		swept++
	}

	if swept > 0 {
		zap.L().Info("stale sweep complete",
			zap.String("user_id", userID), zap.Int("swept", swept))
	}
	return swept, nil
}
