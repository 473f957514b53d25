package database

import (
	"context"

	"tradecopier/internal/models"
)

// PerformanceSummary is a window-function rollup over FILLED trades,
// windowed to the trailing N days.
type PerformanceSummary struct {
	TotalTrades      int
	ProfitableTrades int
	TotalPnL         float64
	WinRate          float64
	SharpeRatio      float64
	MaxDrawdown      float64
	DailyPnL         []float64
}

// GetCopierPerformance aggregates realised P&L across every fill (master and
// follower) attributed to one Copier over the trailing `days` days.
func (g *Gateway) GetCopierPerformance(ctx context.Context, copierID string, days int) (*PerformanceSummary, error) {
	query := `
		WITH trade_pnl AS (
			SELECT realised_pnl, filled_at
			FROM trades
			WHERE copier_id = $1
				AND status = $2
				AND filled_at >= NOW() - make_interval(days => $3)
			ORDER BY filled_at
		),
		daily_pnl AS (
			SELECT DATE(filled_at) AS trade_date, SUM(realised_pnl) AS daily_pnl
			FROM trade_pnl
			GROUP BY DATE(filled_at)
			ORDER BY trade_date
		),
		metrics AS (
			SELECT
				COUNT(*) AS total_trades,
				SUM(CASE WHEN realised_pnl > 0 THEN 1 ELSE 0 END) AS profitable_trades,
				SUM(realised_pnl) AS total_pnl,
				AVG(realised_pnl) AS avg_pnl,
				STDDEV(realised_pnl) AS pnl_stddev
			FROM trade_pnl
		)
		SELECT
			COALESCE(m.total_trades, 0),
			COALESCE(m.profitable_trades, 0),
			COALESCE(m.total_pnl, 0),
			CASE WHEN m.total_trades > 0 THEN m.profitable_trades::float / m.total_trades::float ELSE 0 END,
			CASE WHEN m.pnl_stddev > 0 THEN m.avg_pnl / m.pnl_stddev ELSE 0 END,
			COALESCE(array_agg(dp.daily_pnl ORDER BY dp.trade_date) FILTER (WHERE dp.daily_pnl IS NOT NULL), ARRAY[]::numeric[])
		FROM metrics m
		LEFT JOIN daily_pnl dp ON true
		GROUP BY m.total_trades, m.profitable_trades, m.total_pnl, m.avg_pnl, m.pnl_stddev`

	var summary PerformanceSummary
	row := g.pool.QueryRow(ctx, query, copierID, models.TradeFilled, days)
	if err := row.Scan(&summary.TotalTrades, &summary.ProfitableTrades, &summary.TotalPnL,
		&summary.WinRate, &summary.SharpeRatio, &summary.DailyPnL); err != nil {
		return nil, err
	}

	drawdown, err := g.maxDrawdown(ctx, "copier_id", copierID, days)
	if err == nil {
		summary.MaxDrawdown = drawdown
	}
	return &summary, nil
}

// GetAccountPerformance is the same rollup scoped to one follower account.
func (g *Gateway) GetAccountPerformance(ctx context.Context, accountID string, days int) (*PerformanceSummary, error) {
	query := `
		WITH trade_pnl AS (
			SELECT realised_pnl, filled_at
			FROM trades
			WHERE account_id = $1
				AND status = $2
				AND filled_at >= NOW() - make_interval(days => $3)
			ORDER BY filled_at
		),
		daily_pnl AS (
			SELECT DATE(filled_at) AS trade_date, SUM(realised_pnl) AS daily_pnl
			FROM trade_pnl
			GROUP BY DATE(filled_at)
			ORDER BY trade_date
		),
		metrics AS (
			SELECT
				COUNT(*) AS total_trades,
				SUM(CASE WHEN realised_pnl > 0 THEN 1 ELSE 0 END) AS profitable_trades,
				SUM(realised_pnl) AS total_pnl,
				AVG(realised_pnl) AS avg_pnl,
				STDDEV(realised_pnl) AS pnl_stddev
			FROM trade_pnl
		)
		SELECT
			COALESCE(m.total_trades, 0),
			COALESCE(m.profitable_trades, 0),
			COALESCE(m.total_pnl, 0),
			CASE WHEN m.total_trades > 0 THEN m.profitable_trades::float / m.total_trades::float ELSE 0 END,
			CASE WHEN m.pnl_stddev > 0 THEN m.avg_pnl / m.pnl_stddev ELSE 0 END,
			COALESCE(array_agg(dp.daily_pnl ORDER BY dp.trade_date) FILTER (WHERE dp.daily_pnl IS NOT NULL), ARRAY[]::numeric[])
		FROM metrics m
		LEFT JOIN daily_pnl dp ON true
		GROUP BY m.total_trades, m.profitable_trades, m.total_pnl, m.avg_pnl, m.pnl_stddev`

	var summary PerformanceSummary
	row := g.pool.QueryRow(ctx, query, accountID, models.TradeFilled, days)
	if err := row.Scan(&summary.TotalTrades, &summary.ProfitableTrades, &summary.TotalPnL,
		&summary.WinRate, &summary.SharpeRatio, &summary.DailyPnL); err != nil {
		return nil, err
	}

	drawdown, err := g.maxDrawdown(ctx, "account_id", accountID, days)
	if err == nil {
		summary.MaxDrawdown = drawdown
	}
	return &summary, nil
}

// maxDrawdown runs the running-max/running-pnl window pair generically over
// either scope column; both callers above share it.
func (g *Gateway) maxDrawdown(ctx context.Context, scopeColumn, scopeValue string, days int) (float64, error) {
	query := `
		WITH cumulative AS (
			SELECT filled_at,
				SUM(realised_pnl) OVER (ORDER BY filled_at) AS running_pnl
			FROM trades
			WHERE ` + scopeColumn + ` = $1
				AND status = $2
				AND filled_at >= NOW() - make_interval(days => $3)
			ORDER BY filled_at
		),
		running AS (
			SELECT filled_at, running_pnl,
				MAX(running_pnl) OVER (ORDER BY filled_at ROWS UNBOUNDED PRECEDING) AS running_max
			FROM cumulative
		)
		SELECT COALESCE(MIN(running_pnl - running_max), 0) FROM running`

	var drawdown float64
	err := g.pool.QueryRow(ctx, query, scopeValue, models.TradeFilled, days).Scan(&drawdown)
	return drawdown, err
}
