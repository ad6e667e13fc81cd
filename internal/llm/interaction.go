package llm

import (
	"context"

	"github.com/salesflow-ai/pulse/internal/model"
	"github.com/salesflow-ai/pulse/internal/store"
)

// InteractionHandle lets callers report, well after the original call, what
// happened with a model-generated artifact.
type InteractionHandle struct {
	id    string
	store store.Store
}

// ID returns the audit row id.
func (h *InteractionHandle) ID() string { return h.id }

// MarkUsed flags the generated content as used by the salesperson.
func (h *InteractionHandle) MarkUsed(ctx context.Context) error {
	return h.store.MarkInteractionUsed(ctx, h.id)
}

// UpdateOutcome records the eventual outcome, with an optional 1..5 rating
// and free-text feedback.
func (h *InteractionHandle) UpdateOutcome(ctx context.Context, outcome model.Outcome, rating *int, feedback string) error {
	return h.store.UpdateInteractionOutcome(ctx, h.id, outcome, rating, feedback)
}
