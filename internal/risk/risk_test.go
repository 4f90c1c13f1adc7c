package risk

import (
	"testing"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGateRejectsKillSwitch(t *testing.T) {
	gate := Gate{KillSwitch: true, MaxNotional: decimal.NewFromInt(10000)}
	err := gate.Evaluate(OrderCheck{
		Symbol: "AAPL",
		Side:   alpaca.Buy,
		Qty:    decimal.NewFromInt(1),
		Price:  decimal.NewFromInt(100),
	})
	assert.Error(t, err)
}

func TestGateRejectsZeroQuantity(t *testing.T) {
	gate := Gate{MaxNotional: decimal.NewFromInt(10000)}
	err := gate.Evaluate(OrderCheck{
		Symbol: "AAPL",
		Side:   alpaca.Buy,
		Qty:    decimal.Zero,
		Price:  decimal.NewFromInt(5000),
	})
	assert.Error(t, err)
}

func TestGateRejectsMaxNotional(t *testing.T) {
	gate := Gate{MaxNotional: decimal.NewFromInt(150)}
	err := gate.Evaluate(OrderCheck{
		Symbol: "AAPL",
		Side:   alpaca.Buy,
		Qty:    decimal.NewFromInt(2),
		Price:  decimal.NewFromInt(100),
	})
	assert.Error(t, err)
}

func TestGateApprovesValidOrder(t *testing.T) {
	gate := Gate{MaxNotional: decimal.NewFromInt(500)}
	err := gate.Evaluate(OrderCheck{
		Symbol: "AAPL",
		Side:   alpaca.Sell,
		Qty:    decimal.NewFromInt(4),
		Price:  decimal.NewFromInt(100),
	})
	assert.NoError(t, err)
}

func TestGateSkipsNotionalWhenUnset(t *testing.T) {
	gate := Gate{}
	err := gate.Evaluate(OrderCheck{
		Symbol: "AAPL",
		Side:   alpaca.Buy,
		Qty:    decimal.NewFromInt(1000),
		Price:  decimal.NewFromInt(1000),
	})
	assert.NoError(t, err)
}
