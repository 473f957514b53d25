package adapter

import (
	"time"

	"tradecopier/internal/models"
)

// projectXDecoder normalises ProjectX's {type, data} push-stream frames,
// the primary real integration for the TOPSTEPX firm.
type projectXDecoder struct{}

func (projectXDecoder) SubscribeFrame(accountNumber string) interface{} {
	return map[string]interface{}{
		"action":     "subscribe",
		"accountId":  accountNumber,
		"subscribeTo": []string{"trades", "positions", "account"},
	}
}

func (projectXDecoder) DecodeTrade(frame map[string]interface{}) (models.Execution, bool) {
	if frame["type"] != "trade" {
		return models.Execution{}, false
	}
	data, ok := frame["data"].(map[string]interface{})
	if !ok {
		return models.Execution{}, false
	}
	symbol, _ := data["contractSymbol"].(string)
	side, _ := data["side"].(string)
	qty, _ := data["size"].(float64)
	price, _ := data["fillPrice"].(float64)
	status, _ := data["status"].(string)
	orderID, _ := data["orderId"].(string)
	tradeID, _ := data["tradeId"].(string)
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

func (projectXDecoder) DecodePosition(frame map[string]interface{}) (models.Position, bool) {
	if frame["type"] != "position" {
		return models.Position{}, false
	}
	data, ok := frame["data"].(map[string]interface{})
	if !ok {
		return models.Position{}, false
	}
	symbol, _ := data["contractSymbol"].(string)
	side, _ := data["side"].(string)
	qty, _ := data["size"].(float64)
	price, _ := data["avgPrice"].(float64)
	return models.Position{Symbol: symbol, Side: normaliseSide(side), Quantity: int(qty), Price: price}, true
}

func (projectXDecoder) DecodeModification(frame map[string]interface{}) (models.OrderModification, bool) {
	if frame["type"] != "orderModified" {
		return models.OrderModification{}, false
	}
	data, ok := frame["data"].(map[string]interface{})
	if !ok {
		return models.OrderModification{}, false
	}
	orderID, _ := data["orderId"].(string)
	mod := models.OrderModification{ExternalOrderID: orderID, ModifiedAt: time.Now()}
	if sl, ok := data["stopLoss"].(float64); ok {
		mod.StopLossPrice = &sl
	}
	if tp, ok := data["takeProfit"].(float64); ok {
		mod.TakeProfitPrice = &tp
	}
	if size, ok := data["size"].(float64); ok {
		q := int(size)
		mod.Quantity = &q
	}
	return mod, true
}

// NewProjectXAdapter serves TOPSTEPX as the primary real integration for
// the PROJECTX platform family.
func NewProjectXAdapter(firm models.Firm, cache DiscoveryCache, requestsPerMinute int, baseURLs []string) Adapter {
	transport := NewTransport(models.PlatformProjectX, baseURLs, requestsPerMinute, cache)
	wsURLFor := func(env string) string {
		if env == "live" {
			return "wss://gateway.projectx.example.com/ws"
		}
		return "wss://gateway-demo.projectx.example.com/ws"
	}
	return newBase(models.PlatformProjectX, firm, transport, projectXDecoder{}, wsURLFor)
}
