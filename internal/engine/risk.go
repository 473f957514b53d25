package engine

import (
	"context"
	"fmt"

	"tradecopier/internal/models"
)

// RiskGate is the daily realised-loss check: the only rejection path in the
// base risk gate, auto-disabling the follower config on breach.
type RiskGate struct {
	gw Gateway
}

func NewRiskGate(gw Gateway) *RiskGate {
	return &RiskGate{gw: gw}
}

// Evaluate returns (approved, reason). A rejection with autoDisable=true
// also flips the config to inactive before returning.
func (r *RiskGate) Evaluate(ctx context.Context, cfg *models.CopierAccountConfig) (bool, string) {
	if cfg.DailyLossLimit == nil {
		return true, ""
	}

	sum, err := r.gw.SumRealisedPnLToday(ctx, cfg.SlaveAccountID)
	if err != nil {
		// A risk-gate read failure must not silently approve a trade it
		// couldn't actually evaluate.
		return false, fmt.Sprintf("risk gate query failed: %v", err)
	}

	limit := *cfg.DailyLossLimit
	if abs64(sum) < limit {
		return true, ""
	}

	reason := fmt.Sprintf("daily loss %.2f reached limit %.2f", sum, limit)
	if cfg.AutoDisable {
		if err := r.gw.DisableCopierAccountConfig(ctx, cfg.ID, reason); err != nil {
			reason = fmt.Sprintf("%s (auto-disable failed: %v)", reason, err)
		}
	}
	return false, reason
}

func abs64(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
