package adapter

import (
	"time"

	"tradecopier/internal/models"
)

// ninjaTraderDecoder normalises NinjaTrader's {eventType, payload} bridge
// frames (the platform's native API is desktop-socket based; firms expose
// it over a thin bridge with a JSON envelope).
type ninjaTraderDecoder struct{}

func (ninjaTraderDecoder) SubscribeFrame(accountNumber string) interface{} {
	return map[string]interface{}{
		"eventType": "subscribe",
		"account":   accountNumber,
		"streams":   []string{"trades", "positions", "account"},
	}
}

func (ninjaTraderDecoder) DecodeTrade(frame map[string]interface{}) (models.Execution, bool) {
	if frame["eventType"] != "execution" {
		return models.Execution{}, false
	}
	payload, ok := frame["payload"].(map[string]interface{})
	if !ok {
		return models.Execution{}, false
	}
	symbol, _ := payload["instrument"].(string)
	side, _ := payload["marketPosition"].(string)
	qty, _ := payload["quantity"].(float64)
	price, _ := payload["price"].(float64)
	status, _ := payload["orderState"].(string)
	orderID, _ := payload["orderId"].(string)
	tradeID, _ := payload["executionId"].(string)
	return models.Execution{
		Symbol:          symbol,
		Side:            normaliseSide(side),
		Type:            models.OrderMarket,
		Quantity:        int(qty),
		Price:           price,
		Status:          normaliseStatus(status),
		ExternalOrderID: orderID,
		ExternalTradeID: tradeID,
	}, true
}

func (ninjaTraderDecoder) DecodePosition(frame map[string]interface{}) (models.Position, bool) {
	if frame["eventType"] != "position" {
		return models.Position{}, false
	}
	payload, ok := frame["payload"].(map[string]interface{})
	if !ok {
		return models.Position{}, false
	}
	symbol, _ := payload["instrument"].(string)
	side, _ := payload["marketPosition"].(string)
	qty, _ := payload["quantity"].(float64)
	price, _ := payload["avgPrice"].(float64)
	return models.Position{Symbol: symbol, Side: normaliseSide(side), Quantity: int(qty), Price: price}, true
}

func (ninjaTraderDecoder) DecodeModification(frame map[string]interface{}) (models.OrderModification, bool) {
	if frame["eventType"] != "orderModified" {
		return models.OrderModification{}, false
	}
	payload, ok := frame["payload"].(map[string]interface{})
	if !ok {
		return models.OrderModification{}, false
	}
	orderID, _ := payload["orderId"].(string)
	mod := models.OrderModification{ExternalOrderID: orderID, ModifiedAt: time.Now()}
	if sl, ok := payload["stopLoss"].(float64); ok {
		mod.StopLossPrice = &sl
	}
	if tp, ok := payload["takeProfit"].(float64); ok {
		mod.TakeProfitPrice = &tp
	}
	if qty, ok := payload["quantity"].(float64); ok {
		q := int(qty)
		mod.Quantity = &q
	}
	return mod, true
}

// NewNinjaTraderAdapter serves TAKEPROFIT_TRADER and MYFUNDED_FUTURES for
// the NINJATRADER platform family.
func NewNinjaTraderAdapter(firm models.Firm, cache DiscoveryCache, requestsPerMinute int, baseURLs []string) Adapter {
	transport := NewTransport(models.PlatformNinjaTrader, baseURLs, requestsPerMinute, cache)
	wsURLFor := func(env string) string {
		if env == "live" {
			return "wss://bridge.ninjatrader.example.com/ws"
		}
		return "wss://bridge-sim.ninjatrader.example.com/ws"
	}
	return newBase(models.PlatformNinjaTrader, firm, transport, ninjaTraderDecoder{}, wsURLFor)
}
