package adapter

import (
	"context"
	"sync"
	"time"

	"tradecopier/internal/models"
)

// base implements everything common to every concrete adapter: connection
// lifecycle over a Transport, a push-stream/polling subscription, and
// order placement against the platform's order/cancel/modify/close paths.
// Concrete adapters embed base and supply platform constants plus a
// streamDecoder for wire-shape normalisation.
type base struct {
	platform models.Platform
	firm     models.Firm
	wsURLFor func(environment string) string

	transport *Transport
	decoder   streamDecoder

	mu        sync.Mutex
	connected bool
	accountNo string
	stream    *stream
}

func newBase(platform models.Platform, firm models.Firm, transport *Transport, decoder streamDecoder, wsURLFor func(string) string) *base {
	return &base{
		platform:  platform,
		firm:      firm,
		transport: transport,
		decoder:   decoder,
		wsURLFor:  wsURLFor,
	}
}

func (b *base) Identity() (models.Platform, models.Firm) { return b.platform, b.firm }

func (b *base) Connect(ctx context.Context, cfg ConnectConfig) error {
	if err := b.transport.Authenticate(ctx, cfg.AccountNumber, cfg); err != nil {
		return err
	}

	b.mu.Lock()
	b.accountNo = cfg.AccountNumber
	b.connected = true
	b.mu.Unlock()

	wsURL := ""
	if b.wsURLFor != nil {
		wsURL = b.wsURLFor(cfg.Environment)
	}
	resolved := b.transport.Resolved()
	var poll pollFetcher
	if resolved == nil || resolved.SessionToken == "" {
		poll = b.pollTrades
	}

	onExhausted := func() {
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
	}
	s := newStream(wsURL, cfg.AccountNumber, b.decoder, poll, onExhausted)
	b.mu.Lock()
	b.stream = s
	b.mu.Unlock()

	return s.start(ctx)
}

func (b *base) pollTrades(ctx context.Context) ([]models.Execution, error) {
	var out []struct {
		Symbol   string  `json:"symbol"`
		Side     string  `json:"side"`
		Quantity int     `json:"quantity"`
		Price    float64 `json:"price"`
		OrderID  string  `json:"orderId"`
		TradeID  string  `json:"tradeId"`
		Status   string  `json:"status"`
	}
	if err := b.transport.DoJSON(ctx, "GET", b.transport.TradesPath, nil, &out); err != nil {
		return nil, err
	}
	execs := make([]models.Execution, 0, len(out))
	for _, o := range out {
		execs = append(execs, models.Execution{
			AccountID:       b.accountNo,
			Symbol:          o.Symbol,
			Side:            normaliseSide(o.Side),
			Type:            models.OrderMarket,
			Quantity:        o.Quantity,
			Price:           o.Price,
			Status:          normaliseStatus(o.Status),
			ExternalOrderID: o.OrderID,
			ExternalTradeID: o.TradeID,
			FilledAt:        time.Now(),
		})
	}
	return execs, nil
}

func (b *base) Disconnect() error {
	b.mu.Lock()
	s := b.stream
	b.connected = false
	b.stream = nil
	b.mu.Unlock()

	if s != nil {
		s.clearCallbacks()
		s.stop()
	}
	b.transport.Reset()
	return nil
}

func (b *base) IsConnected() bool {
	b.mu.Lock()
	s := b.stream
	connected := b.connected
	b.mu.Unlock()
	if !connected {
		return false
	}
	if s == nil {
		return false
	}
	return s.isConnected()
}

func (b *base) PlaceOrder(ctx context.Context, order TradeOrder) (*models.Execution, error) {
	if !b.IsConnected() {
		return nil, &models.NotConnectedError{AccountID: b.accountNo}
	}
	body := map[string]interface{}{
		"symbol":   order.Symbol,
		"side":     string(order.Side),
		"type":     string(order.Type),
		"quantity": order.Quantity,
	}
	if order.Price != nil {
		body["price"] = *order.Price
	}
	if order.StopLossPrice != nil {
		body["stopLoss"] = *order.StopLossPrice
	}
	if order.TakeProfitPrice != nil {
		body["takeProfit"] = *order.TakeProfitPrice
	}

	var resp struct {
		OrderID string  `json:"orderId"`
		TradeID string  `json:"tradeId"`
		Status  string  `json:"status"`
		Price   float64 `json:"price"`
	}
	if err := b.transport.DoJSON(ctx, "POST", b.transport.OrderPath, body, &resp); err != nil {
		return nil, err
	}

	price := resp.Price
	if price == 0 && order.Price != nil {
		price = *order.Price
	}
	return &models.Execution{
		AccountID:       b.accountNo,
		Symbol:          order.Symbol,
		Side:            order.Side,
		Type:            order.Type,
		Quantity:        order.Quantity,
		Price:           price,
		Status:          normaliseStatus(resp.Status),
		ExternalOrderID: resp.OrderID,
		ExternalTradeID: resp.TradeID,
		FilledAt:        time.Now(),
		StopLossPrice:   order.StopLossPrice,
		TakeProfitPrice: order.TakeProfitPrice,
	}, nil
}

func (b *base) CancelOrder(ctx context.Context, externalOrderID string) error {
	if !b.IsConnected() {
		return &models.NotConnectedError{AccountID: b.accountNo}
	}
	return b.transport.DoJSON(ctx, "POST", b.transport.CancelPath, map[string]string{"orderId": externalOrderID}, nil)
}

func (b *base) ModifyOrder(ctx context.Context, externalOrderID string, updates OrderUpdates) error {
	if !b.IsConnected() {
		return &models.NotConnectedError{AccountID: b.accountNo}
	}
	body := map[string]interface{}{"orderId": externalOrderID}
	if updates.Price != nil {
		body["price"] = *updates.Price
	}
	if updates.Quantity != nil {
		body["quantity"] = *updates.Quantity
	}
	if updates.StopLossPrice != nil {
		body["stopLoss"] = *updates.StopLossPrice
	}
	if updates.TakeProfitPrice != nil {
		body["takeProfit"] = *updates.TakeProfitPrice
	}
	return b.transport.DoJSON(ctx, "POST", b.transport.ModifyPath, body, nil)
}

func (b *base) ClosePosition(ctx context.Context, symbol string, side *models.Side) error {
	if !b.IsConnected() {
		return &models.NotConnectedError{AccountID: b.accountNo}
	}
	body := map[string]interface{}{"symbol": symbol}
	if side != nil {
		body["side"] = string(*side)
	}
	return b.transport.DoJSON(ctx, "POST", b.transport.ClosePath, body, nil)
}

func (b *base) GetAccountInfo(ctx context.Context) (*models.AccountSnapshot, error) {
	if !b.IsConnected() {
		return nil, &models.NotConnectedError{AccountID: b.accountNo}
	}
	var resp struct {
		AccountID  string  `json:"accountId"`
		Balance    float64 `json:"balance"`
		Equity     float64 `json:"equity"`
		MarginUsed float64 `json:"marginUsed"`
		Positions  []struct {
			Symbol   string  `json:"symbol"`
			Side     string  `json:"side"`
			Quantity int     `json:"quantity"`
			Price    float64 `json:"price"`
		} `json:"positions"`
	}
	if err := b.transport.DoJSON(ctx, "GET", b.transport.AccountsPath, nil, &resp); err != nil {
		return nil, err
	}
	snap := &models.AccountSnapshot{
		ExternalAccountID: resp.AccountID,
		Balance:           resp.Balance,
		Equity:            resp.Equity,
		MarginUsed:        resp.MarginUsed,
	}
	for _, p := range resp.Positions {
		snap.Positions = append(snap.Positions, models.Position{
			Symbol:   p.Symbol,
			Side:     normaliseSide(p.Side),
			Quantity: p.Quantity,
			Price:    p.Price,
		})
	}
	return snap, nil
}

// GetAllAccounts falls back to [GetAccountInfo()] when the provider does
// not support enumeration across linked accounts.
func (b *base) GetAllAccounts(ctx context.Context) ([]models.AccountSnapshot, error) {
	var resp []struct {
		AccountID  string  `json:"accountId"`
		Balance    float64 `json:"balance"`
		Equity     float64 `json:"equity"`
		MarginUsed float64 `json:"marginUsed"`
	}
	if err := b.transport.DoJSON(ctx, "GET", b.transport.AccountsPath+"/all", nil, &resp); err != nil {
		single, err2 := b.GetAccountInfo(ctx)
		if err2 != nil {
			return nil, err2
		}
		return []models.AccountSnapshot{*single}, nil
	}
	out := make([]models.AccountSnapshot, 0, len(resp))
	for _, a := range resp {
		out = append(out, models.AccountSnapshot{
			ExternalAccountID: a.AccountID,
			Balance:           a.Balance,
			Equity:            a.Equity,
			MarginUsed:        a.MarginUsed,
		})
	}
	return out, nil
}

func (b *base) OnTradeUpdate(cb TradeUpdateFunc) Disposer {
	b.mu.Lock()
	s := b.stream
	b.mu.Unlock()
	if s == nil {
		return func() {}
	}
	return s.addTradeCallback(cb)
}

func (b *base) OnPositionUpdate(cb PositionUpdateFunc) Disposer {
	b.mu.Lock()
	s := b.stream
	b.mu.Unlock()
	if s == nil {
		return func() {}
	}
	return s.addPositionCallback(cb)
}

func (b *base) OnModification(cb ModificationUpdateFunc) Disposer {
	b.mu.Lock()
	s := b.stream
	b.mu.Unlock()
	if s == nil {
		return func() {}
	}
	return s.addModificationCallback(cb)
}

func (b *base) Unsubscribe() {
	b.mu.Lock()
	s := b.stream
	b.mu.Unlock()
	if s != nil {
		s.clearCallbacks()
	}
}

func normaliseSide(raw string) models.Side {
	switch raw {
	case "buy", "Buy", "BUY", "long", "Long":
		return models.SideBuy
	default:
		return models.SideSell
	}
}

func normaliseStatus(raw string) models.TradeStatus {
	switch raw {
	case "filled", "Filled", "FILLED":
		return models.TradeFilled
	case "partially_filled", "PartiallyFilled", "PARTIALLY_FILLED":
		return models.TradePartiallyFilled
	case "cancelled", "Cancelled", "CANCELLED", "canceled":
		return models.TradeCancelled
	case "rejected", "Rejected", "REJECTED":
		return models.TradeRejected
	default:
		return models.TradePending
	}
}
