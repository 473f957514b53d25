package database_test

import (
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

// These tests exercise the uniqueness invariants declared in schema.sql
// against modernc.org/sqlite rather than a live Postgres instance: pgx only
// speaks the Postgres wire protocol, so the Gateway itself can't run here,
// but the constraint shapes (and what a driver reports when they're
// violated) are worth pinning down independently of it.

func openInvariantDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE trading_accounts (
			id TEXT PRIMARY KEY, user_id TEXT, firm TEXT, account_number TEXT,
			UNIQUE (user_id, firm, account_number)
		);
		CREATE TABLE copier_account_configs (
			id TEXT PRIMARY KEY, copier_id TEXT, slave_account_id TEXT,
			UNIQUE (copier_id, slave_account_id)
		);
		CREATE TABLE trade_mappings (
			id TEXT PRIMARY KEY, master_trade_id TEXT, slave_account_id TEXT,
			UNIQUE (master_trade_id, slave_account_id)
		);
		CREATE TABLE trades (
			id TEXT PRIMARY KEY, account_id TEXT, external_trade_id TEXT
		);
		CREATE UNIQUE INDEX trades_account_external_trade_uniq
			ON trades (account_id, external_trade_id) WHERE external_trade_id <> '';
	`
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

func TestTradingAccountUniquePerUserFirmAccountNumber(t *testing.T) {
	db := openInvariantDB(t)

	_, err := db.Exec(`INSERT INTO trading_accounts (id, user_id, firm, account_number) VALUES ('a1','u1','TOPSTEPX','1001')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO trading_accounts (id, user_id, firm, account_number) VALUES ('a2','u1','TOPSTEPX','1001')`)
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))

	// Same account number, different firm: allowed.
	_, err = db.Exec(`INSERT INTO trading_accounts (id, user_id, firm, account_number) VALUES ('a3','u1','ALPHA_FUTURES','1001')`)
	require.NoError(t, err)
}

func TestCopierAccountConfigUniquePerCopierAndSlaveAccount(t *testing.T) {
	db := openInvariantDB(t)

	_, err := db.Exec(`INSERT INTO copier_account_configs (id, copier_id, slave_account_id) VALUES ('c1','cp1','acc1')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO copier_account_configs (id, copier_id, slave_account_id) VALUES ('c2','cp1','acc1')`)
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))

	// Same slave account attached to a different copier: allowed.
	_, err = db.Exec(`INSERT INTO copier_account_configs (id, copier_id, slave_account_id) VALUES ('c3','cp2','acc1')`)
	require.NoError(t, err)
}

func TestTradeMappingUniquePerMasterTradeAndSlaveAccount(t *testing.T) {
	db := openInvariantDB(t)

	_, err := db.Exec(`INSERT INTO trade_mappings (id, master_trade_id, slave_account_id) VALUES ('m1','t1','acc1')`)
	require.NoError(t, err)

	// Replaying the same fan-out attempt hits the same constraint — this is
	// the idempotency signal the engine relies on.
	_, err = db.Exec(`INSERT INTO trade_mappings (id, master_trade_id, slave_account_id) VALUES ('m2','t1','acc1')`)
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))

	// Same master trade fanned out to a different follower: allowed.
	_, err = db.Exec(`INSERT INTO trade_mappings (id, master_trade_id, slave_account_id) VALUES ('m3','t1','acc2')`)
	require.NoError(t, err)
}

func TestTradeExternalIDUniqueOnlyWhenNonEmpty(t *testing.T) {
	db := openInvariantDB(t)

	_, err := db.Exec(`INSERT INTO trades (id, account_id, external_trade_id) VALUES ('t1','acc1','ext-1')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO trades (id, account_id, external_trade_id) VALUES ('t2','acc1','ext-1')`)
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))

	// Empty external_trade_id (synthetic/manual trades) never conflicts.
	_, err = db.Exec(`INSERT INTO trades (id, account_id, external_trade_id) VALUES ('t3','acc1','')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO trades (id, account_id, external_trade_id) VALUES ('t4','acc1','')`)
	require.NoError(t, err)
}
