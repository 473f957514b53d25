package adapter

import (
	"time"

	"tradecopier/internal/models"
)

// rithmicDecoder normalises Rithmic's {update_type, order}/{update_type,
// position} push-stream frames.
type rithmicDecoder struct{}

func (rithmicDecoder) SubscribeFrame(accountNumber string) interface{} {
	return map[string]interface{}{
		"op":      "subscribe",
		"account": accountNumber,
		"channels": []string{"trades", "positions", "account"},
	}
}

func (rithmicDecoder) DecodeTrade(frame map[string]interface{}) (models.Execution, bool) {
	if frame["update_type"] != "order" {
		return models.Execution{}, false
	}
	order, ok := frame["order"].(map[string]interface{})
	if !ok {
		return models.Execution{}, false
	}
	symbol, _ := order["symbol"].(string)
	side, _ := order["side"].(string)
	qty, _ := order["quantity"].(float64)
	price, _ := order["price"].(float64)
	status, _ := order["status"].(string)
	orderID, _ := order["order_id"].(string)
	tradeID, _ := order["trade_id"].(string)
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

func (rithmicDecoder) DecodePosition(frame map[string]interface{}) (models.Position, bool) {
	if frame["update_type"] != "position" {
		return models.Position{}, false
	}
	pos, ok := frame["position"].(map[string]interface{})
	if !ok {
		return models.Position{}, false
	}
	symbol, _ := pos["symbol"].(string)
	side, _ := pos["side"].(string)
	qty, _ := pos["quantity"].(float64)
	price, _ := pos["price"].(float64)
	return models.Position{Symbol: symbol, Side: normaliseSide(side), Quantity: int(qty), Price: price}, true
}

func (rithmicDecoder) DecodeModification(frame map[string]interface{}) (models.OrderModification, bool) {
	if frame["update_type"] != "order_modified" {
		return models.OrderModification{}, false
	}
	order, ok := frame["order"].(map[string]interface{})
	if !ok {
		return models.OrderModification{}, false
	}
	orderID, _ := order["order_id"].(string)
	mod := models.OrderModification{ExternalOrderID: orderID, ModifiedAt: time.Now()}
	if sl, ok := order["stop_loss"].(float64); ok {
		mod.StopLossPrice = &sl
	}
	if tp, ok := order["take_profit"].(float64); ok {
		mod.TakeProfitPrice = &tp
	}
	if qty, ok := order["quantity"].(float64); ok {
		q := int(qty)
		mod.Quantity = &q
	}
	return mod, true
}

// NewRithmicAdapter serves the RITHMIC platform family: TOPSTEPX as a
// mock/fallback plus TAKEPROFIT_TRADER, MYFUNDED_FUTURES, ALPHA_FUTURES and
// TRADEFY, per the Adapter Registry's platform/firm mapping.
func NewRithmicAdapter(firm models.Firm, cache DiscoveryCache, requestsPerMinute int, baseURLs []string) Adapter {
	transport := NewTransport(models.PlatformRithmic, baseURLs, requestsPerMinute, cache)
	wsURLFor := func(env string) string {
		if env == "live" {
			return "wss://rithmic.example.com/ws"
		}
		return "wss://rithmic-test.example.com/ws"
	}
	return newBase(models.PlatformRithmic, firm, transport, rithmicDecoder{}, wsURLFor)
}
