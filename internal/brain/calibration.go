package brain

import (
	"sync"

	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/model"
)

// Calibration bounds and step sizes, in hundredths so threshold checks are
// exact. Failures weigh twice as much as successes, so a streak of failures
// degrades trust quickly and recovery is slow.
const (
	minAdjustment      = -30 // -0.30
	maxAdjustment      = 30  // +0.30
	failureStep        = -2  // -0.02
	successStep        = 1   // +0.01
	downgradeThreshold = -10 // -0.10
)

// Calibrator tracks per-action-type trust adjustments learned from
// execution outcomes.
type Calibrator struct {
	mu          sync.Mutex
	adjustments map[model.ActionType]int
}

// NewCalibrator creates an empty calibrator.
func NewCalibrator() *Calibrator {
	return &Calibrator{adjustments: make(map[model.ActionType]int)}
}

// RecordSuccess nudges the action type's adjustment up.
func (c *Calibrator) RecordSuccess(at model.ActionType) {
	c.record(at, successStep)
}

// RecordFailure nudges the action type's adjustment down.
func (c *Calibrator) RecordFailure(at model.ActionType) {
	c.record(at, failureStep)
}

func (c *Calibrator) record(at model.ActionType, step int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	adj := c.adjustments[at] + step
	if adj < minAdjustment {
		adj = minAdjustment
	}
	if adj > maxAdjustment {
		adj = maxAdjustment
	}
	c.adjustments[at] = adj
}

// Adjustment returns the current adjustment for the action type.
func (c *Calibrator) Adjustment(at model.ActionType) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.adjustments[at]) / 100
}

// Apply downgrades a decision whose action type has lost trust: one
// confidence level down and approval forced.
func (c *Calibrator) Apply(d *model.Decision) {
	c.mu.Lock()
	adj := c.adjustments[d.ActionType]
	c.mu.Unlock()
	if adj > downgradeThreshold {
		return
	}

	before := d.Confidence
	d.Confidence = d.Confidence.Downgrade()
	d.RequiresApproval = true
	zap.L().Info("confidence downgraded by calibration",
		zap.String("action_type", string(d.ActionType)),
		zap.Float64("adjustment", float64(adj)/100),
		zap.String("from", string(before)),
		zap.String("to", string(d.Confidence)),
	)
}
