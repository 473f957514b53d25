// Package database is the Persistence Gateway: typed reads/writes of every
// entity with invariant enforcement, following the
// internal/database pattern of one exported method per operation over
// hand-written SQL.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"tradecopier/internal/models"
)

const uniqueViolation = "23505"

// Gateway wraps a pgxpool.Pool and exposes one method per typed
// read/write the engine, account manager and HTTP surface need.
type Gateway struct {
	pool *pgxpool.Pool
}

func NewGateway(databaseURL string) (*Gateway, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	log.Info().Msg("connected to PostgreSQL database")
	return &Gateway{pool: pool}, nil
}

func (g *Gateway) Close() { g.pool.Close() }

// asConflict maps a unique-violation SQLSTATE to the engine's ConflictError
// so callers can treat a conflict here as the idempotency signal for a replayed fill.
func asConflict(err error, constraint string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &models.ConflictError{Constraint: constraint}
	}
	return err
}

func asNotFound(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// --- TradingAccount -------------------------------------------------------

func (g *Gateway) CreateTradingAccount(ctx context.Context, a *models.TradingAccount) error {
	query := `
		INSERT INTO trading_accounts (id, user_id, firm, platform, account_number, nominal_size,
			current_balance, email, password, api_key, api_secret, is_connected, max_drawdown, daily_loss_limit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`
	err := g.pool.QueryRow(ctx, query,
		a.ID, a.UserID, a.Firm, a.Platform, a.AccountNumber, a.NominalSize,
		a.CurrentBalance, a.Credentials.Email, a.Credentials.Password, a.Credentials.APIKey,
		a.Credentials.APISecret, a.IsConnected, a.MaxDrawdown, a.DailyLossLimit,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return asConflict(err, "trading_accounts(user_id,firm,account_number)")
	}
	return nil
}

// UpsertTradingAccount implements createAccountsFromPlatform's per-account
// upsert keyed by (userId, firm, accountNumber).
func (g *Gateway) UpsertTradingAccount(ctx context.Context, a *models.TradingAccount) error {
	query := `
		INSERT INTO trading_accounts (id, user_id, firm, platform, account_number, nominal_size,
			current_balance, email, password, api_key, api_secret, is_connected, last_sync_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,true,NOW())
		ON CONFLICT (user_id, firm, account_number) DO UPDATE SET
			current_balance = EXCLUDED.current_balance,
			email = EXCLUDED.email,
			password = EXCLUDED.password,
			api_key = EXCLUDED.api_key,
			api_secret = EXCLUDED.api_secret,
			is_connected = true,
			last_sync_at = NOW(),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`
	return g.pool.QueryRow(ctx, query,
		a.ID, a.UserID, a.Firm, a.Platform, a.AccountNumber, a.NominalSize,
		a.CurrentBalance, a.Credentials.Email, a.Credentials.Password, a.Credentials.APIKey, a.Credentials.APISecret,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (g *Gateway) GetTradingAccount(ctx context.Context, id string) (*models.TradingAccount, error) {
	query := `
		SELECT id, user_id, firm, platform, account_number, nominal_size, current_balance,
			email, password, api_key, api_secret, is_connected, last_sync_at, error_message, max_drawdown,
			daily_loss_limit, created_at, updated_at
		FROM trading_accounts WHERE id = $1`
	var a models.TradingAccount
	err := g.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Firm, &a.Platform, &a.AccountNumber, &a.NominalSize, &a.CurrentBalance,
		&a.Credentials.Email, &a.Credentials.Password, &a.Credentials.APIKey, &a.Credentials.APISecret,
		&a.IsConnected, &a.LastSyncAt, &a.ErrorMessage,
		&a.MaxDrawdown, &a.DailyLossLimit, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, asNotFound(err, "TradingAccount", id)
	}
	return &a, nil
}

func (g *Gateway) ListTradingAccountsByUser(ctx context.Context, userID string) ([]models.TradingAccount, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, user_id, firm, platform, account_number, nominal_size, current_balance,
			email, password, api_key, api_secret, is_connected, last_sync_at, error_message, max_drawdown,
			daily_loss_limit, created_at, updated_at
		FROM trading_accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TradingAccount
	for rows.Next() {
		var a models.TradingAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Firm, &a.Platform, &a.AccountNumber, &a.NominalSize,
			&a.CurrentBalance, &a.Credentials.Email, &a.Credentials.Password, &a.Credentials.APIKey,
			&a.Credentials.APISecret, &a.IsConnected, &a.LastSyncAt,
			&a.ErrorMessage, &a.MaxDrawdown, &a.DailyLossLimit, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// UpdateTradingAccount applies an edit to an account's mutable fields:
// sizing, risk bounds, and credentials (re-supplied wholesale, the same
// shape persistence already stores them in).
func (g *Gateway) UpdateTradingAccount(ctx context.Context, a *models.TradingAccount) error {
	query := `
		UPDATE trading_accounts SET nominal_size=$1, current_balance=$2, email=$3, password=$4,
			api_key=$5, api_secret=$6, max_drawdown=$7, daily_loss_limit=$8, updated_at=NOW()
		WHERE id=$9
		RETURNING updated_at`
	err := g.pool.QueryRow(ctx, query,
		a.NominalSize, a.CurrentBalance, a.Credentials.Email, a.Credentials.Password,
		a.Credentials.APIKey, a.Credentials.APISecret, a.MaxDrawdown, a.DailyLossLimit, a.ID,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return asNotFound(err, "TradingAccount", a.ID)
	}
	return nil
}

func (g *Gateway) SetTradingAccountConnection(ctx context.Context, id string, connected bool, errMsg string) error {
	query := `UPDATE trading_accounts SET is_connected=$1, error_message=$2, last_sync_at=NOW(), updated_at=NOW() WHERE id=$3`
	_, err := g.pool.Exec(ctx, query, connected, errMsg, id)
	return err
}

// DeleteTradingAccount refuses to delete an account referenced as master or
// follower, reporting the referencing Copier names.
func (g *Gateway) DeleteTradingAccount(ctx context.Context, id string) error {
	rows, err := g.pool.Query(ctx, `
		SELECT name FROM copiers WHERE master_account_id = $1
		UNION
		SELECT c.name FROM copier_account_configs cac JOIN copiers c ON c.id = cac.copier_id
		WHERE cac.slave_account_id = $1`, id)
	if err != nil {
		return err
	}
	var referencing []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		referencing = append(referencing, name)
	}
	rows.Close()
	if len(referencing) > 0 {
		return &models.ValidationError{Field: "id", Reason: "account referenced by copiers: " + joinNames(referencing)}
	}

	_, err = g.pool.Exec(ctx, `DELETE FROM trading_accounts WHERE id = $1`, id)
	return err
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// --- Copier ---------------------------------------------------------------

func (g *Gateway) CreateCopier(ctx context.Context, c *models.Copier) error {
	query := `
		INSERT INTO copiers (id, user_id, organisation_id, name, master_account_id, status,
			latency_tolerance_ms, copy_entries, copy_exits, copy_modifications)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`
	return g.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.OrganisationID, c.Name, c.MasterAccountID, c.Status,
		c.LatencyToleranceMs, c.CopyEntries, c.CopyExits, c.CopyModifications,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (g *Gateway) GetCopier(ctx context.Context, id string) (*models.Copier, error) {
	query := `
		SELECT id, user_id, organisation_id, name, master_account_id, status,
			latency_tolerance_ms, copy_entries, copy_exits, copy_modifications, created_at, updated_at
		FROM copiers WHERE id = $1`
	var c models.Copier
	err := g.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.OrganisationID, &c.Name, &c.MasterAccountID, &c.Status,
		&c.LatencyToleranceMs, &c.CopyEntries, &c.CopyExits, &c.CopyModifications, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, asNotFound(err, "Copier", id)
	}
	return &c, nil
}

func (g *Gateway) ListCopiersByUser(ctx context.Context, userID string) ([]models.Copier, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, user_id, organisation_id, name, master_account_id, status,
			latency_tolerance_ms, copy_entries, copy_exits, copy_modifications, created_at, updated_at
		FROM copiers WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCopiers(rows)
}

// ListAllCopiers returns every copier regardless of status, for maintenance
// jobs that must cover STOPPED/PAUSED/ERROR copiers as well as ACTIVE ones.
func (g *Gateway) ListAllCopiers(ctx context.Context) ([]models.Copier, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, user_id, organisation_id, name, master_account_id, status,
			latency_tolerance_ms, copy_entries, copy_exits, copy_modifications, created_at, updated_at
		FROM copiers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCopiers(rows)
}

func (g *Gateway) ListCopiersByStatus(ctx context.Context, status models.CopierStatus) ([]models.Copier, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, user_id, organisation_id, name, master_account_id, status,
			latency_tolerance_ms, copy_entries, copy_exits, copy_modifications, created_at, updated_at
		FROM copiers WHERE status = $1`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCopiers(rows)
}

func scanCopiers(rows pgx.Rows) ([]models.Copier, error) {
	var out []models.Copier
	for rows.Next() {
		var c models.Copier
		if err := rows.Scan(&c.ID, &c.UserID, &c.OrganisationID, &c.Name, &c.MasterAccountID, &c.Status,
			&c.LatencyToleranceMs, &c.CopyEntries, &c.CopyExits, &c.CopyModifications, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (g *Gateway) UpdateCopierStatus(ctx context.Context, id string, status models.CopierStatus) error {
	_, err := g.pool.Exec(ctx, `UPDATE copiers SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

// UpdateCopier applies an edit to a Copier's mutable fields: name, latency
// tolerance, and the three copy filters. Status is never touched here — it
// only changes through the engine's state machine.
func (g *Gateway) UpdateCopier(ctx context.Context, c *models.Copier) error {
	query := `
		UPDATE copiers SET name=$1, latency_tolerance_ms=$2, copy_entries=$3, copy_exits=$4,
			copy_modifications=$5, updated_at=NOW()
		WHERE id=$6
		RETURNING updated_at`
	err := g.pool.QueryRow(ctx, query,
		c.Name, c.LatencyToleranceMs, c.CopyEntries, c.CopyExits, c.CopyModifications, c.ID,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return asNotFound(err, "Copier", c.ID)
	}
	return nil
}

// DeleteCopier removes a Copier; its configs, mappings and execution logs
// cascade per the schema's foreign keys, while its trades are kept with
// copier_id set to NULL.
func (g *Gateway) DeleteCopier(ctx context.Context, id string) error {
	_, err := g.pool.Exec(ctx, `DELETE FROM copiers WHERE id=$1`, id)
	return err
}

// --- CopierAccountConfig ---------------------------------------------------

func (g *Gateway) CreateCopierAccountConfig(ctx context.Context, c *models.CopierAccountConfig) error {
	query := `
		INSERT INTO copier_account_configs (id, copier_id, slave_account_id, scaling_type,
			fixed_contracts, percentage_scale, max_contracts, daily_loss_limit, auto_disable, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`
	err := g.pool.QueryRow(ctx, query,
		c.ID, c.CopierID, c.SlaveAccountID, c.ScalingType, c.FixedContracts, c.PercentageScale,
		c.MaxContracts, c.DailyLossLimit, c.AutoDisable, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return asConflict(err, "copier_account_configs(copier_id,slave_account_id)")
	}
	return nil
}

func (g *Gateway) GetActiveCopierAccountConfigs(ctx context.Context, copierID string) ([]models.CopierAccountConfig, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, copier_id, slave_account_id, scaling_type, fixed_contracts, percentage_scale,
			max_contracts, daily_loss_limit, auto_disable, is_active, disabled_reason, created_at, updated_at
		FROM copier_account_configs WHERE copier_id = $1 AND is_active = true`, copierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CopierAccountConfig
	for rows.Next() {
		var c models.CopierAccountConfig
		if err := rows.Scan(&c.ID, &c.CopierID, &c.SlaveAccountID, &c.ScalingType, &c.FixedContracts,
			&c.PercentageScale, &c.MaxContracts, &c.DailyLossLimit, &c.AutoDisable, &c.IsActive,
			&c.DisabledReason, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DisableCopierAccountConfig is the risk gate's atomic auto-disable update.
func (g *Gateway) DisableCopierAccountConfig(ctx context.Context, id, reason string) error {
	_, err := g.pool.Exec(ctx, `
		UPDATE copier_account_configs SET is_active=false, disabled_reason=$1, updated_at=NOW() WHERE id=$2`,
		reason, id)
	return err
}

// UpdateCopierAccountConfigBySlave edits one follower binding's scaling and
// risk fields, addressed the way the HTTP surface does: by its owning
// copier and follower account rather than its own id.
func (g *Gateway) UpdateCopierAccountConfigBySlave(ctx context.Context, copierID, slaveAccountID string, c *models.CopierAccountConfig) error {
	query := `
		UPDATE copier_account_configs SET scaling_type=$1, fixed_contracts=$2, percentage_scale=$3,
			max_contracts=$4, daily_loss_limit=$5, auto_disable=$6, is_active=$7, updated_at=NOW()
		WHERE copier_id=$8 AND slave_account_id=$9
		RETURNING id, disabled_reason, created_at, updated_at`
	err := g.pool.QueryRow(ctx, query,
		c.ScalingType, c.FixedContracts, c.PercentageScale, c.MaxContracts, c.DailyLossLimit,
		c.AutoDisable, c.IsActive, copierID, slaveAccountID,
	).Scan(&c.ID, &c.DisabledReason, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return asNotFound(err, "CopierAccountConfig", slaveAccountID)
	}
	c.CopierID = copierID
	c.SlaveAccountID = slaveAccountID
	return nil
}

// DeleteCopierAccountConfigBySlave removes one follower binding, addressed
// by its owning copier and follower account.
func (g *Gateway) DeleteCopierAccountConfigBySlave(ctx context.Context, copierID, slaveAccountID string) error {
	tag, err := g.pool.Exec(ctx, `
		DELETE FROM copier_account_configs WHERE copier_id=$1 AND slave_account_id=$2`, copierID, slaveAccountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Kind: "CopierAccountConfig", ID: slaveAccountID}
	}
	return nil
}

// --- Trade ------------------------------------------------------------------

// CreateTrade enforces the (account_id, external_trade_id) uniqueness
// invariant; a ConflictError here is the idempotency signal a caller must
// treat as "already recorded" and stop before any further side effect, not
// retry the insert or paper over it with the existing row.
func (g *Gateway) CreateTrade(ctx context.Context, t *models.Trade) error {
	query := `
		INSERT INTO trades (id, account_id, copier_id, symbol, side, type, quantity, entry_price,
			exit_price, stop_loss_price, take_profit_price, status, filled_at, realised_pnl,
			external_order_id, external_trade_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id, created_at, updated_at`
	err := g.pool.QueryRow(ctx, query,
		t.ID, t.AccountID, t.CopierID, t.Symbol, t.Side, t.Type, t.Quantity, t.EntryPrice,
		t.ExitPrice, t.StopLossPrice, t.TakeProfitPrice, t.Status, t.FilledAt, t.RealisedPnL,
		t.ExternalOrderID, t.ExternalTradeID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return asConflict(err, "trades(account_id,external_trade_id)")
	}
	return nil
}

// FindTradeByExternalOrderID locates a previously recorded Trade by the
// brokerage order id that filled it, used to resolve an order-modification
// event back to the master Trade it amends.
func (g *Gateway) FindTradeByExternalOrderID(ctx context.Context, accountID, externalOrderID string) (*models.Trade, error) {
	query := `
		SELECT id, account_id, copier_id, symbol, side, type, quantity, entry_price, exit_price,
			stop_loss_price, take_profit_price, status, filled_at, realised_pnl,
			external_order_id, external_trade_id, created_at, updated_at
		FROM trades WHERE account_id = $1 AND external_order_id = $2
		ORDER BY created_at DESC LIMIT 1`
	var t models.Trade
	err := g.pool.QueryRow(ctx, query, accountID, externalOrderID).Scan(
		&t.ID, &t.AccountID, &t.CopierID, &t.Symbol, &t.Side, &t.Type, &t.Quantity, &t.EntryPrice,
		&t.ExitPrice, &t.StopLossPrice, &t.TakeProfitPrice, &t.Status, &t.FilledAt, &t.RealisedPnL,
		&t.ExternalOrderID, &t.ExternalTradeID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, asNotFound(err, "Trade", externalOrderID)
	}
	return &t, nil
}

func (g *Gateway) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	query := `
		SELECT id, account_id, copier_id, symbol, side, type, quantity, entry_price, exit_price,
			stop_loss_price, take_profit_price, status, filled_at, realised_pnl,
			external_order_id, external_trade_id, created_at, updated_at
		FROM trades WHERE id = $1`
	var t models.Trade
	err := g.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.AccountID, &t.CopierID, &t.Symbol, &t.Side, &t.Type, &t.Quantity, &t.EntryPrice,
		&t.ExitPrice, &t.StopLossPrice, &t.TakeProfitPrice, &t.Status, &t.FilledAt, &t.RealisedPnL,
		&t.ExternalOrderID, &t.ExternalTradeID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, asNotFound(err, "Trade", id)
	}
	return &t, nil
}

// NetPosition sums signed quantity (BUY=+qty, SELL=-qty) across FILLED
// trades for one (accountId, symbol) pair, the entry/exit classifier's
// input.
func (g *Gateway) NetPosition(ctx context.Context, accountID, symbol string) (int, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN side = $1 THEN quantity ELSE -quantity END), 0)
		FROM trades WHERE account_id = $2 AND symbol = $3 AND status = $4`
	var net int
	err := g.pool.QueryRow(ctx, query, models.SideBuy, accountID, symbol, models.TradeFilled).Scan(&net)
	return net, err
}

// SumRealisedPnLToday is the risk gate's daily-loss query: realised P&L on
// FILLED trades for an account within the current UTC day.
func (g *Gateway) SumRealisedPnLToday(ctx context.Context, accountID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(realised_pnl), 0) FROM trades
		WHERE account_id = $1 AND status = $2 AND filled_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC') AT TIME ZONE 'UTC'`
	var sum float64
	err := g.pool.QueryRow(ctx, query, accountID, models.TradeFilled).Scan(&sum)
	return sum, err
}

func (g *Gateway) ListTradesByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Trade, error) {
	query := `
		SELECT id, account_id, copier_id, symbol, side, type, quantity, entry_price, exit_price,
			stop_loss_price, take_profit_price, status, filled_at, realised_pnl,
			external_order_id, external_trade_id, created_at, updated_at
		FROM trades WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := g.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.AccountID, &t.CopierID, &t.Symbol, &t.Side, &t.Type, &t.Quantity,
			&t.EntryPrice, &t.ExitPrice, &t.StopLossPrice, &t.TakeProfitPrice, &t.Status, &t.FilledAt,
			&t.RealisedPnL, &t.ExternalOrderID, &t.ExternalTradeID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ListTradesByCopier backs the trade-history endpoint's copier-scoped view:
// every Trade (master or follower) attributed to one Copier.
func (g *Gateway) ListTradesByCopier(ctx context.Context, copierID string, limit, offset int) ([]models.Trade, error) {
	query := `
		SELECT id, account_id, copier_id, symbol, side, type, quantity, entry_price, exit_price,
			stop_loss_price, take_profit_price, status, filled_at, realised_pnl,
			external_order_id, external_trade_id, created_at, updated_at
		FROM trades WHERE copier_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := g.pool.Query(ctx, query, copierID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.AccountID, &t.CopierID, &t.Symbol, &t.Side, &t.Type, &t.Quantity,
			&t.EntryPrice, &t.ExitPrice, &t.StopLossPrice, &t.TakeProfitPrice, &t.Status, &t.FilledAt,
			&t.RealisedPnL, &t.ExternalOrderID, &t.ExternalTradeID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// --- TradeMapping -----------------------------------------------------------

// CreateTradeMapping enforces the (masterTradeId, slaveAccountId) uniqueness
// invariant; a ConflictError here is the idempotency signal callers must
// treat as success, not failure.
func (g *Gateway) CreateTradeMapping(ctx context.Context, m *models.TradeMapping) error {
	query := `
		INSERT INTO trade_mappings (id, copier_id, master_trade_id, slave_account_id, slave_trade_id,
			status, synced_at, error_message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`
	err := g.pool.QueryRow(ctx, query,
		m.ID, m.CopierID, m.MasterTradeID, m.SlaveAccountID, m.SlaveTradeID, m.Status, m.SyncedAt, m.ErrorMessage,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return asConflict(err, "trade_mappings(master_trade_id,slave_account_id)")
	}
	return nil
}

// ListTradeMappingsByMasterTrade returns every follower mapping produced for
// one master Trade, the fan-out target list for a later order modification.
func (g *Gateway) ListTradeMappingsByMasterTrade(ctx context.Context, masterTradeID string) ([]models.TradeMapping, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, copier_id, master_trade_id, slave_account_id, slave_trade_id, status, synced_at,
			error_message, created_at, updated_at
		FROM trade_mappings WHERE master_trade_id = $1`, masterTradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TradeMapping
	for rows.Next() {
		var m models.TradeMapping
		if err := rows.Scan(&m.ID, &m.CopierID, &m.MasterTradeID, &m.SlaveAccountID, &m.SlaveTradeID,
			&m.Status, &m.SyncedAt, &m.ErrorMessage, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (g *Gateway) ListTradeMappingsByCopier(ctx context.Context, copierID string) ([]models.TradeMapping, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, copier_id, master_trade_id, slave_account_id, slave_trade_id, status, synced_at,
			error_message, created_at, updated_at
		FROM trade_mappings WHERE copier_id = $1 ORDER BY created_at DESC`, copierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TradeMapping
	for rows.Next() {
		var m models.TradeMapping
		if err := rows.Scan(&m.ID, &m.CopierID, &m.MasterTradeID, &m.SlaveAccountID, &m.SlaveTradeID,
			&m.Status, &m.SyncedAt, &m.ErrorMessage, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// --- ExecutionLog ------------------------------------------------------------

func (g *Gateway) CreateExecutionLog(ctx context.Context, e *models.ExecutionLog) error {
	query := `
		INSERT INTO execution_logs (id, copier_id, level, message, master_trade_id, slave_trade_id,
			slave_account_id, details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`
	return g.pool.QueryRow(ctx, query,
		e.ID, e.CopierID, e.Level, e.Message, e.MasterTradeID, e.SlaveTradeID, e.SlaveAccountID, e.Details,
	).Scan(&e.CreatedAt)
}

func (g *Gateway) ListExecutionLogsByCopier(ctx context.Context, copierID string, limit int) ([]models.ExecutionLog, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, copier_id, level, message, master_trade_id, slave_trade_id, slave_account_id,
			details, created_at
		FROM execution_logs WHERE copier_id = $1 ORDER BY created_at DESC LIMIT $2`, copierID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ExecutionLog
	for rows.Next() {
		var e models.ExecutionLog
		if err := rows.Scan(&e.ID, &e.CopierID, &e.Level, &e.Message, &e.MasterTradeID, &e.SlaveTradeID,
			&e.SlaveAccountID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteArchivedExecutionLogsForCopier implements the maintenance
// scheduler's nightly retention sweep: prune one copier's rows older than
// olderThan. Scoped to a single copier so the scheduler only ever deletes
// what it has just confirmed was archived to S3.
func (g *Gateway) DeleteArchivedExecutionLogsForCopier(ctx context.Context, copierID string, olderThan time.Time) (int64, error) {
	tag, err := g.pool.Exec(ctx, `DELETE FROM execution_logs WHERE copier_id = $1 AND created_at < $2`, copierID, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
