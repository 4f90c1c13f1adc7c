package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"scalper/internal/broker"
	"scalper/internal/md"
	"scalper/internal/risk"
)

// fakeBroker records submissions and cancels, and tracks how many orders are
// open at once so tests can assert the one-open-order invariant across a whole
// event history.
type fakeBroker struct {
	submitted []broker.OrderRequest
	canceled  []string
	submitErr error
	cancelErr error
	position  *broker.Position
	getOrder  *broker.Order

	nextID       int
	open         map[string]bool
	maxOpen      int
	clockResults []broker.Clock
	clockErr     error
	positions    []broker.Position
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{open: map[string]bool{}}
}

func (f *fakeBroker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	f.nextID++
	id := fmt.Sprintf("order-%d", f.nextID)
	f.open[id] = true
	if n := len(f.open); n > f.maxOpen {
		f.maxOpen = n
	}
	return &broker.Order{
		ID:            id,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Qty:           req.Qty,
		LimitPrice:    req.LimitPrice,
		Status:        "new",
		SubmittedAt:   time.Now(),
	}, nil
}

func (f *fakeBroker) CancelOrder(ctx context.Context, orderID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, orderID)
	return nil
}

func (f *fakeBroker) GetOrder(ctx context.Context, orderID string) (*broker.Order, error) {
	if f.getOrder != nil {
		return f.getOrder, nil
	}
	return &broker.Order{ID: orderID}, nil
}

func (f *fakeBroker) GetPosition(ctx context.Context, symbol string) (*broker.Position, error) {
	return f.position, nil
}

func (f *fakeBroker) GetClock(ctx context.Context) (broker.Clock, error) {
	if f.clockErr != nil {
		return broker.Clock{}, f.clockErr
	}
	if len(f.clockResults) == 0 {
		return broker.Clock{IsOpen: true}, nil
	}
	clock := f.clockResults[0]
	if len(f.clockResults) > 1 {
		f.clockResults = f.clockResults[1:]
	}
	return clock, nil
}

func (f *fakeBroker) ListPositions(ctx context.Context) ([]broker.Position, error) {
	return f.positions, nil
}

// closeOrder marks a previously submitted order as off the book, mirroring the
// fill/cancel event a test is about to deliver.
func (f *fakeBroker) closeOrder(id string) {
	delete(f.open, id)
}

func (f *fakeBroker) lastSubmitted() broker.OrderRequest {
	return f.submitted[len(f.submitted)-1]
}

type fakeQuoter struct {
	price decimal.Decimal
	err   error
}

func (f *fakeQuoter) LastTrade(ctx context.Context, symbol string) (md.Trade, error) {
	if f.err != nil {
		return md.Trade{}, f.err
	}
	return md.Trade{Price: f.price, Timestamp: time.Now()}, nil
}

func testLifecycle(b Broker, q Quoter) *Lifecycle {
	return NewLifecycle(LifecycleParams{
		Symbol:        "AAPL",
		Lot:           decimal.NewFromInt(2000),
		StaleOrderAge: 2 * time.Minute,
		Cutoff:        15*time.Hour + 55*time.Minute,
		Location:      time.UTC,
		RunID:         "test",
	}, b, q, risk.Gate{}, nil, slog.Default().With("symbol", "AAPL"))
}

func buyOrder(id string, submittedAt time.Time) *broker.Order {
	limit := decimal.NewFromInt(100)
	return &broker.Order{
		ID:          id,
		Symbol:      "AAPL",
		Side:        alpaca.Buy,
		Type:        alpaca.Limit,
		Qty:         decimal.NewFromInt(20),
		LimitPrice:  &limit,
		Status:      "new",
		SubmittedAt: submittedAt,
	}
}

func heldPosition(qty int64, avgEntry string) *broker.Position {
	return &broker.Position{
		Symbol:        "AAPL",
		Qty:           decimal.NewFromInt(qty),
		AvgEntryPrice: decimal.RequireFromString(avgEntry),
	}
}

func updateFor(event broker.EventKind, order broker.Order) broker.OrderUpdate {
	return broker.OrderUpdate{Event: event, Order: order}
}
