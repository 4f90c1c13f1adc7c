package broker

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// OrderRequest describes a new order to submit.
type OrderRequest struct {
	Symbol        string
	Qty           decimal.Decimal
	Side          alpaca.Side
	Type          alpaca.OrderType
	TimeInForce   alpaca.TimeInForce
	ClientOrderID string
	LimitPrice    *decimal.Decimal
}

// Order is the broker's view of an order, reduced to the fields the lifecycle
// tracks.
type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Side          alpaca.Side
	Type          alpaca.OrderType
	Qty           decimal.Decimal
	FilledQty     decimal.Decimal
	LimitPrice    *decimal.Decimal
	Status        string
	SubmittedAt   time.Time
}

// Position is a snapshot of currently held shares. The authoritative copy
// lives at the broker.
type Position struct {
	Symbol        string
	Qty           decimal.Decimal
	AvgEntryPrice decimal.Decimal
}

// Clock reports whether the market is currently open.
type Clock struct {
	Timestamp time.Time
	IsOpen    bool
	NextClose time.Time
}

// EventKind discriminates order update events from the trade stream.
type EventKind string

const (
	EventFill        EventKind = "fill"
	EventPartialFill EventKind = "partial_fill"
	EventCanceled    EventKind = "canceled"
	EventRejected    EventKind = "rejected"
)

// OrderUpdate is a typed execution event for one order.
type OrderUpdate struct {
	Event EventKind
	Order Order
}

// SubmissionError is a synchronous broker rejection of a new order request.
// It is recovered locally: the lifecycle falls back to its pre-submission
// intent and retries on the next trigger.
type SubmissionError struct {
	Symbol string
	Side   alpaca.Side
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s %s: %v", e.Side, e.Symbol, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
