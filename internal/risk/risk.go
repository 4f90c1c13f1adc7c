package risk

import (
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// OrderCheck is the pre-submission view of an order the gate evaluates.
type OrderCheck struct {
	Symbol string
	Side   alpaca.Side
	Qty    decimal.Decimal
	Price  decimal.Decimal
}

// Gate performs last-line checks before any order leaves the process. A
// rejection is handled by the caller exactly like a synchronous broker
// rejection: log and hold state for the next trigger.
type Gate struct {
	MaxNotional decimal.Decimal
	KillSwitch  bool
}

func (g Gate) Evaluate(check OrderCheck) error {
	if g.KillSwitch {
		slog.Info("risk rejected", "symbol", check.Symbol, "reason", "kill_switch_enabled")
		return fmt.Errorf("kill_switch_enabled")
	}
	if !check.Qty.IsPositive() {
		slog.Info("risk rejected", "symbol", check.Symbol, "reason", "invalid_quantity", "qty", check.Qty)
		return fmt.Errorf("invalid_quantity")
	}
	notional := check.Price.Mul(check.Qty)
	if g.MaxNotional.IsPositive() && notional.GreaterThan(g.MaxNotional) {
		slog.Info("risk rejected", "symbol", check.Symbol, "reason", "max_notional_exceeded", "notional", notional, "max", g.MaxNotional)
		return fmt.Errorf("max_notional_exceeded")
	}
	return nil
}
