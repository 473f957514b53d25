package adapter

import (
	"time"

	"tradecopier/internal/models"
)

// tradovateDecoder normalises Tradovate's frame-array push-stream shape
// ({e: "props", d: {entityType, eventType, entity}}).
type tradovateDecoder struct{}

func (tradovateDecoder) SubscribeFrame(accountNumber string) interface{} {
	return map[string]interface{}{
		"url":   "user/syncrequest",
		"body":  map[string]interface{}{"accountId": accountNumber},
	}
}

func (tradovateDecoder) DecodeTrade(frame map[string]interface{}) (models.Execution, bool) {
	d, ok := frame["d"].(map[string]interface{})
	if !ok || d["entityType"] != "fill" {
		return models.Execution{}, false
	}
	entity, ok := d["entity"].(map[string]interface{})
	if !ok {
		return models.Execution{}, false
	}
	symbol, _ := entity["contractName"].(string)
	side, _ := entity["action"].(string)
	qty, _ := entity["qty"].(float64)
	price, _ := entity["price"].(float64)
	orderID, _ := entity["orderId"].(string)
	tradeID, _ := entity["id"].(string)
	return models.Execution{
		Symbol:          symbol,
		Side:            normaliseSide(side),
		Type:            models.OrderMarket,
		Quantity:        int(qty),
		Price:           price,
		Status:          models.TradeFilled,
		ExternalOrderID: orderID,
		ExternalTradeID: tradeID,
	}, true
}

func (tradovateDecoder) DecodePosition(frame map[string]interface{}) (models.Position, bool) {
	d, ok := frame["d"].(map[string]interface{})
	if !ok || d["entityType"] != "position" {
		return models.Position{}, false
	}
	entity, ok := d["entity"].(map[string]interface{})
	if !ok {
		return models.Position{}, false
	}
	symbol, _ := entity["contractName"].(string)
	qty, _ := entity["netPos"].(float64)
	price, _ := entity["netPrice"].(float64)
	side := models.SideBuy
	if qty < 0 {
		side = models.SideSell
		qty = -qty
	}
	return models.Position{Symbol: symbol, Side: side, Quantity: int(qty), Price: price}, true
}

func (tradovateDecoder) DecodeModification(frame map[string]interface{}) (models.OrderModification, bool) {
	d, ok := frame["d"].(map[string]interface{})
	if !ok || d["entityType"] != "order" {
		return models.OrderModification{}, false
	}
	entity, ok := d["entity"].(map[string]interface{})
	if !ok {
		return models.OrderModification{}, false
	}
	orderID, _ := entity["id"].(string)
	mod := models.OrderModification{ExternalOrderID: orderID, ModifiedAt: time.Now()}
	if sl, ok := entity["stopPrice"].(float64); ok {
		mod.StopLossPrice = &sl
	}
	if tp, ok := entity["limitPrice"].(float64); ok {
		mod.TakeProfitPrice = &tp
	}
	if qty, ok := entity["qty"].(float64); ok {
		q := int(qty)
		mod.Quantity = &q
	}
	return mod, true
}

// NewTradovateAdapter serves TAKEPROFIT_TRADER and MYFUNDED_FUTURES for the
// TRADOVATE platform family.
func NewTradovateAdapter(firm models.Firm, cache DiscoveryCache, requestsPerMinute int, baseURLs []string) Adapter {
	transport := NewTransport(models.PlatformTradovate, baseURLs, requestsPerMinute, cache)
	wsURLFor := func(env string) string {
		if env == "live" {
			return "wss://live.tradovateapi.com/v1/websocket"
		}
		return "wss://demo.tradovateapi.com/v1/websocket"
	}
	return newBase(models.PlatformTradovate, firm, transport, tradovateDecoder{}, wsURLFor)
}
