package engine

import (
	"context"

	"github.com/google/uuid"

	"tradecopier/internal/adapter"
	"tradecopier/internal/models"
)

// DiscoveredAccount is one brokerage account surfaced by connectPlatform,
// with credential presence echoed back but no secret material.
type DiscoveredAccount struct {
	AccountNumber string  `json:"accountNumber"`
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
	HasEmail      bool    `json:"hasEmail"`
	HasAPIKey     bool    `json:"hasApiKey"`
}

// PlatformConnectionSummary is connectPlatform's return value.
type PlatformConnectionSummary struct {
	Accounts []DiscoveredAccount `json:"accounts"`
}

// ConnectionTestResult is testConnection's return value.
type ConnectionTestResult struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message"`
	Snapshot *models.AccountSnapshot `json:"snapshot,omitempty"`
}

// AccountManager owns discovery, batch create/update, and the connection
// lifecycle for TradingAccounts. ConnectPlatform and TestConnection connect,
// do their work, and disconnect; Connect opens a session on the registry's
// adapter instance and leaves it open until Disconnect.
type AccountManager struct {
	gw       Gateway
	registry *adapter.Registry
}

func NewAccountManager(gw Gateway, registry *adapter.Registry) *AccountManager {
	return &AccountManager{gw: gw, registry: registry}
}

// ConnectPlatform authenticates once against a platform/firm pair and lists
// whatever accounts that credential set can see. It persists nothing.
func (m *AccountManager) ConnectPlatform(ctx context.Context, platform models.Platform, firm models.Firm, creds models.Credentials) (*PlatformConnectionSummary, error) {
	a, err := m.registry.GetAdapter(platform, firm)
	if err != nil {
		return nil, err
	}

	if err := a.Connect(ctx, adapter.ConnectConfig{Credentials: creds}); err != nil {
		return nil, err
	}
	defer a.Disconnect()

	snapshots, err := a.GetAllAccounts(ctx)
	if err != nil {
		// Single-account fallback: some platforms only expose the
		// connected account, not a listing endpoint.
		single, singleErr := a.GetAccountInfo(ctx)
		if singleErr != nil {
			return nil, err
		}
		snapshots = []models.AccountSnapshot{*single}
	}

	summary := &PlatformConnectionSummary{Accounts: make([]DiscoveredAccount, 0, len(snapshots))}
	for _, s := range snapshots {
		summary.Accounts = append(summary.Accounts, DiscoveredAccount{
			AccountNumber: s.ExternalAccountID,
			Balance:       s.Balance,
			Equity:        s.Equity,
			HasEmail:      creds.Email != nil,
			HasAPIKey:     creds.APIKey != nil,
		})
	}
	return summary, nil
}

// CreateAccountsFromPlatform upserts a TradingAccount per discovered
// account, keyed by (userId, firm, accountNumber), storing the credentials
// that unlocked them.
func (m *AccountManager) CreateAccountsFromPlatform(ctx context.Context, userID string, platform models.Platform, firm models.Firm, discovered []DiscoveredAccount, creds models.Credentials) ([]models.TradingAccount, error) {
	out := make([]models.TradingAccount, 0, len(discovered))
	for _, d := range discovered {
		account := &models.TradingAccount{
			ID:             uuid.NewString(),
			UserID:         userID,
			Firm:           firm,
			Platform:       platform,
			AccountNumber:  d.AccountNumber,
			CurrentBalance: d.Balance,
			Credentials:    creds,
			IsConnected:    true,
		}
		if err := m.gw.UpsertTradingAccount(ctx, account); err != nil {
			return nil, err
		}
		out = append(out, *account)
	}
	return out, nil
}

// Connect opens a live session for one persisted TradingAccount.
func (m *AccountManager) Connect(ctx context.Context, accountID string) error {
	account, err := m.gw.GetTradingAccount(ctx, accountID)
	if err != nil {
		return err
	}

	a, err := m.registry.GetAdapter(account.Platform, account.Firm)
	if err != nil {
		return err
	}

	if err := a.Connect(ctx, adapter.ConnectConfig{
		Credentials:   account.Credentials,
		AccountNumber: account.AccountNumber,
	}); err != nil {
		_ = m.gw.SetTradingAccountConnection(ctx, accountID, false, err.Error())
		return err
	}
	return m.gw.SetTradingAccountConnection(ctx, accountID, true, "")
}

// Disconnect tears down the live session for one TradingAccount.
func (m *AccountManager) Disconnect(ctx context.Context, accountID string) error {
	account, err := m.gw.GetTradingAccount(ctx, accountID)
	if err != nil {
		return err
	}

	a, err := m.registry.GetAdapter(account.Platform, account.Firm)
	if err != nil {
		return err
	}

	if err := a.Disconnect(); err != nil {
		return err
	}
	return m.gw.SetTradingAccountConnection(ctx, accountID, false, "")
}

// TestConnection is a transient connect -> getAccountInfo -> disconnect
// round trip used to validate a credential set before it's stored.
func (m *AccountManager) TestConnection(ctx context.Context, platform models.Platform, firm models.Firm, creds models.Credentials, accountNumber string) *ConnectionTestResult {
	a, err := m.registry.GetAdapter(platform, firm)
	if err != nil {
		return &ConnectionTestResult{Success: false, Message: err.Error()}
	}

	if err := a.Connect(ctx, adapter.ConnectConfig{Credentials: creds, AccountNumber: accountNumber}); err != nil {
		return &ConnectionTestResult{Success: false, Message: err.Error()}
	}
	defer a.Disconnect()

	snapshot, err := a.GetAccountInfo(ctx)
	if err != nil {
		return &ConnectionTestResult{Success: false, Message: err.Error()}
	}

	return &ConnectionTestResult{Success: true, Message: "connection ok", Snapshot: snapshot}
}

// DeleteAccount removes a TradingAccount, refusing if it is still
// referenced as a master or follower by any Copier — the gateway enforces
// the guard and reports the referencing names.
func (m *AccountManager) DeleteAccount(ctx context.Context, accountID string) error {
	return m.gw.DeleteTradingAccount(ctx, accountID)
}
