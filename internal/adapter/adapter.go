// Package adapter is the pluggable brokerage API abstraction: one Adapter
// per platform family, a shared transport helper for auth probing, endpoint
// discovery, reconnect/backoff and polling fallback, and a registry that
// resolves (platform, firm) pairs to adapter instances.
package adapter

import (
	"context"

	"tradecopier/internal/models"
)

// ConnectConfig carries everything an adapter needs to establish a session.
// Exactly one credential shape needs to be populated; the shared transport
// helper tries them in the order the connection protocol specifies.
type ConnectConfig struct {
	Credentials      models.Credentials
	AccountNumber    string
	Environment      string
	BaseURLOverride  string
	DiscoveryEnabled bool
}

// OrderUpdates carries the mutable subset of a TradeOrder that ModifyOrder
// accepts.
type OrderUpdates struct {
	Price           *float64
	Quantity        *int
	StopLossPrice   *float64
	TakeProfitPrice *float64
}

// TradeOrder is what the engine asks an adapter to place. Non-MARKET type
// and Price are preserved for forward compatibility even though the
// current engine always places MARKET on followers (see copyToFollower in
// engine/copy_engine.go).
type TradeOrder struct {
	Symbol          string
	Side            models.Side
	Type            models.OrderType
	Quantity        int
	Price           *float64
	StopLossPrice   *float64
	TakeProfitPrice *float64
}

// TradeUpdateFunc, PositionUpdateFunc and ModificationUpdateFunc are the
// normalised callbacks an adapter invokes regardless of the underlying wire
// shape.
type TradeUpdateFunc func(models.Execution)
type PositionUpdateFunc func(models.Position)
type ModificationUpdateFunc func(models.OrderModification)

// Disposer removes a previously registered callback.
type Disposer func()

// Adapter is the uniform brokerage interface every platform family
// implements. All adapters normalise vendor-specific side/status strings to
// the canonical enums in package models.
type Adapter interface {
	Identity() (models.Platform, models.Firm)

	Connect(ctx context.Context, cfg ConnectConfig) error
	Disconnect() error
	IsConnected() bool

	PlaceOrder(ctx context.Context, order TradeOrder) (*models.Execution, error)
	CancelOrder(ctx context.Context, externalOrderID string) error
	ModifyOrder(ctx context.Context, externalOrderID string, updates OrderUpdates) error
	ClosePosition(ctx context.Context, symbol string, side *models.Side) error

	GetAccountInfo(ctx context.Context) (*models.AccountSnapshot, error)
	GetAllAccounts(ctx context.Context) ([]models.AccountSnapshot, error)

	OnTradeUpdate(cb TradeUpdateFunc) Disposer
	OnPositionUpdate(cb PositionUpdateFunc) Disposer
	OnModification(cb ModificationUpdateFunc) Disposer
	Unsubscribe()
}
