package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradecopier/internal/models"
)

// MockAdapter backs the registry's mock mode and the engine's test suite.
// It never opens a real connection; PushTrade/PushModification let tests drive
// it as if a push stream had delivered a frame, which is how engine tests
// reproduce fan-out scenarios without external services.
type MockAdapter struct {
	platform models.Platform
	firm     models.Firm

	mu        sync.Mutex
	connected bool
	accountNo string
	balance   float64

	placeOrderErr error

	onTrade        []TradeUpdateFunc
	onPosition     []PositionUpdateFunc
	onModification []ModificationUpdateFunc
}

func NewMockAdapter(platform models.Platform, firm models.Firm) *MockAdapter {
	return &MockAdapter{platform: platform, firm: firm, balance: 50000}
}

func (m *MockAdapter) Identity() (models.Platform, models.Firm) { return m.platform, m.firm }

func (m *MockAdapter) Connect(ctx context.Context, cfg ConnectConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	m.accountNo = cfg.AccountNumber
	return nil
}

func (m *MockAdapter) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.onTrade = nil
	m.onPosition = nil
	m.onModification = nil
	return nil
}

func (m *MockAdapter) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetBalance lets tests control the follower balance BALANCE_BASED scaling
// reads.
func (m *MockAdapter) SetBalance(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
}

// FailNextPlaceOrder makes the next PlaceOrder call return err, exercising
// the follower-placement-fails seed scenario.
func (m *MockAdapter) FailNextPlaceOrder(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeOrderErr = err
}

func (m *MockAdapter) PlaceOrder(ctx context.Context, order TradeOrder) (*models.Execution, error) {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil, &models.NotConnectedError{AccountID: m.accountNo}
	}
	if m.placeOrderErr != nil {
		err := m.placeOrderErr
		m.placeOrderErr = nil
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	price := 0.0
	if order.Price != nil {
		price = *order.Price
	}
	return &models.Execution{
		AccountID:       m.accountNo,
		Symbol:          order.Symbol,
		Side:            order.Side,
		Type:            order.Type,
		Quantity:        order.Quantity,
		Price:           price,
		Status:          models.TradeFilled,
		ExternalOrderID: uuid.NewString(),
		ExternalTradeID: uuid.NewString(),
		FilledAt:        time.Now(),
		StopLossPrice:   order.StopLossPrice,
		TakeProfitPrice: order.TakeProfitPrice,
	}, nil
}

func (m *MockAdapter) CancelOrder(ctx context.Context, externalOrderID string) error { return nil }

func (m *MockAdapter) ModifyOrder(ctx context.Context, externalOrderID string, updates OrderUpdates) error {
	return nil
}

func (m *MockAdapter) ClosePosition(ctx context.Context, symbol string, side *models.Side) error {
	return nil
}

func (m *MockAdapter) GetAccountInfo(ctx context.Context) (*models.AccountSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, &models.NotConnectedError{AccountID: m.accountNo}
	}
	return &models.AccountSnapshot{ExternalAccountID: m.accountNo, Balance: m.balance, Equity: m.balance}, nil
}

func (m *MockAdapter) GetAllAccounts(ctx context.Context) ([]models.AccountSnapshot, error) {
	snap, err := m.GetAccountInfo(ctx)
	if err != nil {
		return nil, err
	}
	return []models.AccountSnapshot{*snap}, nil
}

func (m *MockAdapter) OnTradeUpdate(cb TradeUpdateFunc) Disposer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTrade = append(m.onTrade, cb)
	idx := len(m.onTrade) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.onTrade) {
			m.onTrade = append(m.onTrade[:idx], m.onTrade[idx+1:]...)
		}
	}
}

func (m *MockAdapter) OnPositionUpdate(cb PositionUpdateFunc) Disposer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPosition = append(m.onPosition, cb)
	idx := len(m.onPosition) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.onPosition) {
			m.onPosition = append(m.onPosition[:idx], m.onPosition[idx+1:]...)
		}
	}
}

func (m *MockAdapter) OnModification(cb ModificationUpdateFunc) Disposer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onModification = append(m.onModification, cb)
	idx := len(m.onModification) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.onModification) {
			m.onModification = append(m.onModification[:idx], m.onModification[idx+1:]...)
		}
	}
}

func (m *MockAdapter) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTrade = nil
	m.onPosition = nil
	m.onModification = nil
}

// PushTrade delivers a synthetic execution to every registered trade
// callback, simulating a master fill arriving over the push stream.
func (m *MockAdapter) PushTrade(exec models.Execution) {
	m.mu.Lock()
	cbs := append([]TradeUpdateFunc{}, m.onTrade...)
	m.mu.Unlock()
	for _, cb := range cbs {
		cb(exec)
	}
}

// PushModification delivers a synthetic order amendment to every registered
// modification callback, simulating a stop/target/quantity amend arriving
// over the push stream.
func (m *MockAdapter) PushModification(mod models.OrderModification) {
	m.mu.Lock()
	cbs := append([]ModificationUpdateFunc{}, m.onModification...)
	m.mu.Unlock()
	for _, cb := range cbs {
		cb(mod)
	}
}
