package engine_test

import (
	"context"
	"sync"

	"tradecopier/internal/engine"
	"tradecopier/internal/models"
)

// fakeGateway is an in-memory stand-in for the Postgres-backed Gateway,
// enforcing the same uniqueness invariants the real schema does so the
// engine's idempotency and fan-out behaviour can be exercised without a
// live database.
type fakeGateway struct {
	mu sync.Mutex

	copiers  map[string]*models.Copier
	accounts map[string]*models.TradingAccount
	configs  map[string][]models.CopierAccountConfig // keyed by copierID

	trades       []models.Trade
	mappings     []models.TradeMapping
	logs         []models.ExecutionLog
	pnlToday     map[string]float64
	netPositions map[string]int // accountID|symbol -> net qty
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		copiers:      make(map[string]*models.Copier),
		accounts:     make(map[string]*models.TradingAccount),
		configs:      make(map[string][]models.CopierAccountConfig),
		pnlToday:     make(map[string]float64),
		netPositions: make(map[string]int),
	}
}

func (f *fakeGateway) GetCopier(ctx context.Context, id string) (*models.Copier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.copiers[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "Copier", ID: id}
	}
	cp := *c
	return &cp, nil
}

func (f *fakeGateway) ListCopiersByStatus(ctx context.Context, status models.CopierStatus) ([]models.Copier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Copier
	for _, c := range f.copiers {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeGateway) UpdateCopierStatus(ctx context.Context, id string, status models.CopierStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.copiers[id]
	if !ok {
		return &models.NotFoundError{Kind: "Copier", ID: id}
	}
	c.Status = status
	return nil
}

func (f *fakeGateway) GetTradingAccount(ctx context.Context, id string) (*models.TradingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "TradingAccount", ID: id}
	}
	ac := *a
	return &ac, nil
}

func (f *fakeGateway) UpsertTradingAccount(ctx context.Context, a *models.TradingAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeGateway) SetTradingAccountConnection(ctx context.Context, id string, connected bool, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return &models.NotFoundError{Kind: "TradingAccount", ID: id}
	}
	a.IsConnected = connected
	a.ErrorMessage = errMsg
	return nil
}

func (f *fakeGateway) DeleteTradingAccount(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, id)
	return nil
}

func (f *fakeGateway) GetActiveCopierAccountConfigs(ctx context.Context, copierID string) ([]models.CopierAccountConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CopierAccountConfig
	for _, cfg := range f.configs[copierID] {
		if cfg.IsActive {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (f *fakeGateway) DisableCopierAccountConfig(ctx context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for copierID, cfgs := range f.configs {
		for i := range cfgs {
			if cfgs[i].ID == id {
				cfgs[i].IsActive = false
				cfgs[i].DisabledReason = reason
				f.configs[copierID] = cfgs
				return nil
			}
		}
	}
	return &models.NotFoundError{Kind: "CopierAccountConfig", ID: id}
}

func (f *fakeGateway) CreateTrade(ctx context.Context, t *models.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ExternalTradeID != "" {
		for _, existing := range f.trades {
			if existing.AccountID == t.AccountID && existing.ExternalTradeID == t.ExternalTradeID {
				return &models.ConflictError{Constraint: "trades_account_external_trade_uniq"}
			}
		}
	}
	f.trades = append(f.trades, *t)
	return nil
}

func (f *fakeGateway) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trades {
		if t.ID == id {
			tc := t
			return &tc, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "Trade", ID: id}
}

func (f *fakeGateway) FindTradeByExternalOrderID(ctx context.Context, accountID, externalOrderID string) (*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.trades) - 1; i >= 0; i-- {
		t := f.trades[i]
		if t.AccountID == accountID && t.ExternalOrderID == externalOrderID {
			tc := t
			return &tc, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "Trade", ID: externalOrderID}
}

func (f *fakeGateway) ListTradeMappingsByMasterTrade(ctx context.Context, masterTradeID string) ([]models.TradeMapping, error) {
	return f.mappingsFor(masterTradeID), nil
}

func (f *fakeGateway) CreateTradeMapping(ctx context.Context, m *models.TradeMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.mappings {
		if existing.MasterTradeID == m.MasterTradeID && existing.SlaveAccountID == m.SlaveAccountID {
			return &models.ConflictError{Constraint: "trade_mappings_master_trade_id_slave_account_id_key"}
		}
	}
	f.mappings = append(f.mappings, *m)
	return nil
}

func (f *fakeGateway) CreateExecutionLog(ctx context.Context, e *models.ExecutionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *e)
	return nil
}

func (f *fakeGateway) NetPosition(ctx context.Context, accountID, symbol string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.netPositions[accountID+"|"+symbol], nil
}

func (f *fakeGateway) SumRealisedPnLToday(ctx context.Context, accountID string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pnlToday[accountID], nil
}

// --- test-only helpers, not part of the engine.Gateway interface ---

func (f *fakeGateway) addCopier(c *models.Copier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copiers[c.ID] = c
}

func (f *fakeGateway) addAccount(a *models.TradingAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[a.ID] = a
}

func (f *fakeGateway) addConfig(cfg models.CopierAccountConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[cfg.CopierID] = append(f.configs[cfg.CopierID], cfg)
}

func (f *fakeGateway) configFor(copierID, slaveAccountID string) models.CopierAccountConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cfg := range f.configs[copierID] {
		if cfg.SlaveAccountID == slaveAccountID {
			return cfg
		}
	}
	return models.CopierAccountConfig{}
}

func (f *fakeGateway) mappingsFor(masterTradeID string) []models.TradeMapping {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TradeMapping
	for _, m := range f.mappings {
		if m.MasterTradeID == masterTradeID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeGateway) tradesFor(accountID string) []models.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Trade
	for _, t := range f.trades {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeGateway) setPnLToday(accountID string, sum float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pnlToday[accountID] = sum
}

func (f *fakeGateway) setNetPosition(accountID, symbol string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.netPositions[accountID+"|"+symbol] = qty
}

var _ engine.Gateway = (*fakeGateway)(nil)
