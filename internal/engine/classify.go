package engine

import (
	"context"

	"tradecopier/internal/models"
)

// Classifier decides whether a master execution is an entry or an exit,
// based on the account's running net position in that symbol rather than
// any flag the broker reports.
type Classifier struct {
	gw Gateway
}

func NewClassifier(gw Gateway) *Classifier {
	return &Classifier{gw: gw}
}

// IsEntry reports whether exec moves the account's net position in symbol
// away from zero (or keeps the same sign while growing) — an entry — versus
// toward or through zero — an exit.
func (c *Classifier) IsEntry(ctx context.Context, accountID string, exec models.Execution) (bool, error) {
	net, err := c.gw.NetPosition(ctx, accountID, exec.Symbol)
	if err != nil {
		return false, err
	}

	delta := exec.Quantity
	if exec.Side == models.SideSell {
		delta = -delta
	}

	next := net + delta
	if net == 0 {
		return true, nil
	}
	sameSign := (net > 0) == (next > 0)
	growing := abs(next) >= abs(net)
	return sameSign && growing, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
