package engine

import "tradecopier/internal/models"

// defaultBalanceReference is the BALANCE_BASED denominator's fallback,
// overridable per deployment via config.BalanceBasedReferenceSize.
const defaultBalanceReference = 50000

// ScaleQuantity computes the follower order size from the master quantity,
// the follower's scaling config, and (for BALANCE_BASED) the follower
// account's current balance. The result is clamped to [0, maxContracts]
// when set.
func ScaleQuantity(masterQty int, cfg models.CopierAccountConfig, followerBalance, balanceReference float64) int {
	if balanceReference <= 0 {
		balanceReference = defaultBalanceReference
	}

	var q int
	switch cfg.ScalingType {
	case models.ScalingFixed:
		if cfg.FixedContracts != nil {
			q = *cfg.FixedContracts
		} else {
			q = masterQty
		}
	case models.ScalingPercentage:
		scale := 0.0
		if cfg.PercentageScale != nil {
			scale = *cfg.PercentageScale
		}
		q = int(float64(masterQty) * scale)
	case models.ScalingBalanceBased:
		q = int(float64(masterQty) * (followerBalance / balanceReference))
	default:
		q = masterQty
	}

	if q < 0 {
		q = 0
	}
	if cfg.MaxContracts != nil && q > *cfg.MaxContracts {
		q = *cfg.MaxContracts
	}
	return q
}
