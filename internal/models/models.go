// Package models holds the entities shared across the adapter, engine,
// persistence, and handler layers. Identifiers are opaque strings (UUIDs)
// rather than database-assigned integers, so the engine never has to round
// trip through a driver-specific numeric type.
package models

import "time"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type Firm string

const (
	FirmTopstepX          Firm = "TOPSTEPX"
	FirmAlphaFutures      Firm = "ALPHA_FUTURES"
	FirmMyFundedFutures   Firm = "MYFUNDED_FUTURES"
	FirmTakeProfitTrader  Firm = "TAKEPROFIT_TRADER"
	FirmTradefy           Firm = "TRADEFY"
)

type Platform string

const (
	PlatformRithmic     Platform = "RITHMIC"
	PlatformTradovate   Platform = "TRADOVATE"
	PlatformNinjaTrader Platform = "NINJATRADER"
	PlatformProjectX    Platform = "PROJECTX"
	PlatformOther       Platform = "OTHER"
)

type CopierStatus string

const (
	CopierStopped CopierStatus = "STOPPED"
	CopierActive  CopierStatus = "ACTIVE"
	CopierPaused  CopierStatus = "PAUSED"
	CopierError   CopierStatus = "ERROR"
)

type ScalingType string

const (
	ScalingFixed        ScalingType = "FIXED"
	ScalingPercentage   ScalingType = "PERCENTAGE"
	ScalingBalanceBased ScalingType = "BALANCE_BASED"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
	OrderStop   OrderType = "STOP"
)

type TradeStatus string

const (
	TradePending         TradeStatus = "PENDING"
	TradeFilled          TradeStatus = "FILLED"
	TradePartiallyFilled TradeStatus = "PARTIALLY_FILLED"
	TradeCancelled       TradeStatus = "CANCELLED"
	TradeRejected        TradeStatus = "REJECTED"
)

type MappingStatus string

const (
	MappingPending MappingStatus = "pending"
	MappingSynced  MappingStatus = "synced"
	MappingFailed  MappingStatus = "failed"
)

type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// User owns TradingAccounts and Copiers. Deleting a User cascades to both.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	CredentialHash string    `json:"-"`
	Role           Role      `json:"role"`
	TwoFactorOn    bool      `json:"twoFactorOn"`
	TwoFactorSecret string   `json:"-"`
	OrganisationID *string   `json:"organisationId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Organisation is a tenant grouping identified by a unique slug.
type Organisation struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credentials is the union of shapes a brokerage may accept. Exactly one
// combination needs to be populated; the adapter's connection protocol
// tries them in a fixed order (see internal/adapter).
type Credentials struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"-"`
	APIKey    *string `json:"apiKey,omitempty"`
	APISecret *string `json:"-"`
}

// TradingAccount is a brokerage account belonging to a User.
type TradingAccount struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	Firm            Firm           `json:"firm"`
	Platform        Platform       `json:"platform"`
	AccountNumber   string         `json:"accountNumber"`
	NominalSize     float64        `json:"nominalSize"`
	CurrentBalance  float64        `json:"currentBalance"`
	Credentials     Credentials    `json:"credentials"`
	IsConnected     bool           `json:"isConnected"`
	LastSyncAt      *time.Time     `json:"lastSyncAt,omitempty"`
	ErrorMessage    string         `json:"errorMessage,omitempty"`
	MaxDrawdown     *float64       `json:"maxDrawdown,omitempty"`
	DailyLossLimit  *float64       `json:"dailyLossLimit,omitempty"`
	AdditionalConfig map[string]interface{} `json:"additionalConfig,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Copier is a replication rule with one master account and N follower
// configs (CopierAccountConfig).
type Copier struct {
	ID                 string       `json:"id"`
	UserID              string       `json:"userId"`
	OrganisationID      *string      `json:"organisationId,omitempty"`
	Name                string       `json:"name"`
	MasterAccountID     string       `json:"masterAccountId"`
	Status              CopierStatus `json:"status"`
	LatencyToleranceMs  int          `json:"latencyToleranceMs"`
	CopyEntries         bool         `json:"copyEntries"`
	CopyExits           bool         `json:"copyExits"`
	CopyModifications   bool         `json:"copyModifications"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// CopierAccountConfig pairs a Copier with a follower TradingAccount. The
// (CopierID, SlaveAccountID) pair is unique — enforced by the persistence
// gateway, not in memory.
type CopierAccountConfig struct {
	ID               string      `json:"id"`
	CopierID         string      `json:"copierId"`
	SlaveAccountID   string      `json:"slaveAccountId"`
	ScalingType      ScalingType `json:"scalingType"`
	FixedContracts   *int        `json:"fixedContracts,omitempty"`
	PercentageScale  *float64    `json:"percentageScale,omitempty"`
	MaxContracts     *int        `json:"maxContracts,omitempty"`
	DailyLossLimit   *float64    `json:"dailyLossLimit,omitempty"`
	AutoDisable      bool        `json:"autoDisable"`
	IsActive         bool        `json:"isActive"`
	DisabledReason   string      `json:"disabledReason,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Trade is a recorded execution on one TradingAccount, optionally linked to
// a Copier (set-null on copier delete, but deleted with the account).
type Trade struct {
	ID               string      `json:"id"`
	AccountID        string      `json:"accountId"`
	CopierID         *string     `json:"copierId,omitempty"`
	Symbol           string      `json:"symbol"`
	Side             Side        `json:"side"`
	Type             OrderType   `json:"type"`
	Quantity         int         `json:"quantity"`
	EntryPrice       *float64    `json:"entryPrice,omitempty"`
	ExitPrice        *float64    `json:"exitPrice,omitempty"`
	StopLossPrice    *float64    `json:"stopLossPrice,omitempty"`
	TakeProfitPrice  *float64    `json:"takeProfitPrice,omitempty"`
	Status           TradeStatus `json:"status"`
	OpenedAt         *time.Time  `json:"openedAt,omitempty"`
	FilledAt         *time.Time  `json:"filledAt,omitempty"`
	ClosedAt         *time.Time  `json:"closedAt,omitempty"`
	RealisedPnL      *float64    `json:"realisedPnl,omitempty"`
	ExternalOrderID  string      `json:"externalOrderId,omitempty"`
	ExternalTradeID  string      `json:"externalTradeId,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// TradeMapping links one master Trade to one follower Trade (or to a
// failure record). (MasterTradeID, SlaveAccountID) is unique — this is the
// idempotency signal for a replayed master execution.
type TradeMapping struct {
	ID             string        `json:"id"`
	CopierID       string        `json:"copierId"`
	MasterTradeID  string        `json:"masterTradeId"`
	SlaveAccountID string        `json:"slaveAccountId"`
	SlaveTradeID   string        `json:"slaveTradeId,omitempty"`
	Status         MappingStatus `json:"status"`
	SyncedAt       *time.Time    `json:"syncedAt,omitempty"`
	ErrorMessage   string        `json:"errorMessage,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// RiskRule is a named threshold/action attached to a CopierAccountConfig.
type RiskRule struct {
	ID                     string    `json:"id"`
	CopierAccountConfigID  string    `json:"copierAccountConfigId"`
	Name                   string    `json:"name"`
	ThresholdValue         float64   `json:"thresholdValue"`
	Action                 string    `json:"action"`
	CreatedAt              time.Time `json:"createdAt"`
}

// ExecutionLog is an append-only audit entry. It dies with its Copier.
type ExecutionLog struct {
	ID             string                 `json:"id"`
	CopierID       string                 `json:"copierId"`
	Level          LogLevel               `json:"level"`
	Message        string                 `json:"message"`
	MasterTradeID  *string                `json:"masterTradeId,omitempty"`
	SlaveTradeID   *string                `json:"slaveTradeId,omitempty"`
	SlaveAccountID *string                `json:"slaveAccountId,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// Execution is the adapter-normalised representation of a fill, pushed
// through onTradeUpdate callbacks regardless of the underlying wire shape.
type Execution struct {
	AccountID       string
	Symbol          string
	Side            Side
	Type            OrderType
	Quantity        int
	Price           float64
	Status          TradeStatus
	ExternalOrderID string
	ExternalTradeID string
	FilledAt        time.Time
	StopLossPrice   *float64
	TakeProfitPrice *float64
	IsEntry         bool
}

// OrderModification is the adapter-normalised representation of a
// stop-loss/take-profit/quantity amendment to a resting or filled order,
// pushed through onModification callbacks. It carries only the fields that
// changed; nil means unchanged.
type OrderModification struct {
	AccountID       string
	ExternalOrderID string
	StopLossPrice   *float64
	TakeProfitPrice *float64
	Quantity        *int
	ModifiedAt      time.Time
}

// Position is a normalised open-position snapshot.
type Position struct {
	Symbol   string
	Side     Side
	Quantity int
	Price    float64
}

// AccountSnapshot is what getAccountInfo / getAllAccounts return.
type AccountSnapshot struct {
	ExternalAccountID string
	Balance           float64
	Equity            float64
	MarginUsed        float64
	Positions         []Position
}
