package broker

import (
	"context"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

type OrderUpdateHandler func(OrderUpdate)

// StreamTradeUpdates delivers execution events to handler until ctx is
// canceled. Events other than fill, partial fill, cancel and reject (e.g. the
// initial "new" acknowledgment) are logged and dropped. The SDK invokes the
// handler serially, preserving the broker's per-order emission order.
func (c *Client) StreamTradeUpdates(ctx context.Context, handler OrderUpdateHandler) error {
	return c.client.StreamTradeUpdates(ctx, func(update alpaca.TradeUpdate) {
		kind, ok := mapEvent(update.Event)
		if !ok {
			slog.Debug("ignoring trade update", "event", update.Event, "order_id", update.Order.ID)
			return
		}
		handler(OrderUpdate{
			Event: kind,
			Order: convertOrder(update.Order),
		})
	}, alpaca.StreamTradeUpdatesRequest{})
}

func mapEvent(event string) (EventKind, bool) {
	switch event {
	case "fill":
		return EventFill, true
	case "partial_fill":
		return EventPartialFill, true
	case "canceled":
		return EventCanceled, true
	case "rejected":
		return EventRejected, true
	default:
		return "", false
	}
}
