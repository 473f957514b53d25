package engine

import (
	"context"

	"tradecopier/internal/models"
)

// Gateway is the subset of the persistence layer the engine package
// depends on. internal/database.Gateway satisfies it; tests substitute a
// stub so the state machine, risk gate and classifier can be exercised
// without a live Postgres instance.
type Gateway interface {
	GetCopier(ctx context.Context, id string) (*models.Copier, error)
	ListCopiersByStatus(ctx context.Context, status models.CopierStatus) ([]models.Copier, error)
	UpdateCopierStatus(ctx context.Context, id string, status models.CopierStatus) error

	GetTradingAccount(ctx context.Context, id string) (*models.TradingAccount, error)
	UpsertTradingAccount(ctx context.Context, a *models.TradingAccount) error
	SetTradingAccountConnection(ctx context.Context, id string, connected bool, errMsg string) error
	DeleteTradingAccount(ctx context.Context, id string) error

	GetActiveCopierAccountConfigs(ctx context.Context, copierID string) ([]models.CopierAccountConfig, error)
	DisableCopierAccountConfig(ctx context.Context, id, reason string) error

	CreateTrade(ctx context.Context, t *models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	FindTradeByExternalOrderID(ctx context.Context, accountID, externalOrderID string) (*models.Trade, error)
	CreateTradeMapping(ctx context.Context, m *models.TradeMapping) error
	ListTradeMappingsByMasterTrade(ctx context.Context, masterTradeID string) ([]models.TradeMapping, error)
	CreateExecutionLog(ctx context.Context, e *models.ExecutionLog) error

	NetPosition(ctx context.Context, accountID, symbol string) (int, error)
	SumRealisedPnLToday(ctx context.Context, accountID string) (float64, error)
}
