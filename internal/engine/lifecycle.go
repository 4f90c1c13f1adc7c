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

// State is the position of one symbol in its buy-then-sell order cycle.
type State string

const (
	StateToBuy         State = "TO_BUY"
	StateBuySubmitted  State = "BUY_SUBMITTED"
	StateToSell        State = "TO_SELL"
	StateSellSubmitted State = "SELL_SUBMITTED"
)

// Broker is the trading capability set the lifecycle needs.
type Broker interface {
	SubmitOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (*broker.Order, error)
	GetPosition(ctx context.Context, symbol string) (*broker.Position, error)
}

// Quoter supplies last-trade prices for order pricing.
type Quoter interface {
	LastTrade(ctx context.Context, symbol string) (md.Trade, error)
}

// LifecycleParams configures one symbol's order lifecycle.
type LifecycleParams struct {
	Symbol string
	// Lot is the target dollar notional per buy order.
	Lot decimal.Decimal
	// StaleOrderAge is how long a buy order may rest before checkup cancels it.
	StaleOrderAge time.Duration
	// Cutoff is the end-of-day liquidation time as an offset from midnight in
	// Location (e.g. 15h55m for 15:55 exchange time).
	Cutoff   time.Duration
	Location *time.Location
	RunID    string
}

// Lifecycle owns the order and position for one symbol and drives them through
// the buy-then-sell state machine. It is not safe for concurrent use; the
// owning Agent serializes all calls behind its mutex.
type Lifecycle struct {
	symbol  string
	lot     decimal.Decimal
	broker  Broker
	quotes  Quoter
	gate    risk.Gate
	journal *Journal
	log     *slog.Logger

	staleAfter time.Duration
	cutoff     time.Duration
	loc        *time.Location
	runID      string
	clock      func() time.Time

	state    State
	order    *broker.Order
	position *broker.Position
	// cancelRequested debounces checkup-driven cancels: once a cancel has been
	// sent for the resting order, later checkups wait for the stream event
	// instead of canceling again.
	cancelRequested bool
	orderSeq        uint64
}

func NewLifecycle(params LifecycleParams, b Broker, q Quoter, gate risk.Gate, journal *Journal, log *slog.Logger) *Lifecycle {
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Lifecycle{
		symbol:     params.Symbol,
		lot:        params.Lot,
		broker:     b,
		quotes:     q,
		gate:       gate,
		journal:    journal,
		log:        log,
		staleAfter: params.StaleOrderAge,
		cutoff:     params.Cutoff,
		loc:        loc,
		runID:      params.RunID,
		clock:      time.Now,
		state:      StateToBuy,
	}
}

func (l *Lifecycle) State() State {
	return l.state
}

// OutOfMarket reports whether t is at or past the end-of-day cutoff in the
// exchange's local time.
func (l *Lifecycle) OutOfMarket(t time.Time) bool {
	local := t.In(l.loc)
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	return sinceMidnight >= l.cutoff
}

// HandleBuySignal reacts to a fresh crossover signal. Only meaningful in
// TO_BUY; any other state means an order pair is already in flight.
func (l *Lifecycle) HandleBuySignal(ctx context.Context) {
	if l.state != StateToBuy {
		return
	}
	l.submitBuy(ctx)
}

// OnOrderUpdate applies one execution event from the trade stream.
func (l *Lifecycle) OnOrderUpdate(ctx context.Context, update broker.OrderUpdate) {
	l.log.Info("order update", "event", update.Event, "order_id", update.Order.ID, "status", update.Order.Status)
	l.journal.Append(Entry{
		Symbol:  l.symbol,
		Kind:    EntryOrderUpdate,
		Event:   string(update.Event),
		OrderID: update.Order.ID,
	})

	switch update.Event {
	case broker.EventFill:
		l.clearOrder()
		switch l.state {
		case StateBuySubmitted:
			l.refreshPosition(ctx)
			l.transition(StateToSell)
			l.submitSell(ctx, false)
		case StateSellSubmitted:
			l.position = nil
			l.transition(StateToBuy)
		}

	case broker.EventPartialFill:
		l.refreshPosition(ctx)
		if order, err := l.broker.GetOrder(ctx, update.Order.ID); err != nil {
			l.log.Error("refresh partially filled order failed", "order_id", update.Order.ID, "error", err)
		} else {
			l.order = order
		}

	case broker.EventCanceled, broker.EventRejected:
		if update.Event == broker.EventRejected {
			l.log.Warn("order rejected", "order_id", update.Order.ID)
		}
		l.clearOrder()
		switch l.state {
		case StateBuySubmitted:
			// A partial fill before the cancel leaves shares to unwind.
			if l.position != nil {
				l.transition(StateToSell)
				l.submitSell(ctx, false)
			} else {
				l.transition(StateToBuy)
			}
		case StateSellSubmitted:
			// A dead sell still leaves an unwanted position; bail out at market.
			l.transition(StateToSell)
			l.submitSell(ctx, true)
		}
	}
}

// Checkup runs the periodic safety actions: refresh the cached position from
// the broker's bulk snapshot, cancel a buy order that has rested too long, and
// liquidate at the end-of-day cutoff.
func (l *Lifecycle) Checkup(ctx context.Context, pos *broker.Position, now time.Time) {
	switch {
	case l.position != nil && pos != nil:
		l.position = pos
	case l.position != nil:
		l.log.Warn("broker reports no position but lifecycle holds one", "state", l.state)
	case pos != nil && (l.state == StateToSell || l.state == StateSellSubmitted):
		// A failed position refresh at fill time can leave the cache empty
		// while the broker holds shares; adopt the snapshot so the sell and
		// end-of-day paths can run.
		l.log.Warn("adopting broker-reported position missing from cache", "state", l.state)
		l.position = pos
	}

	if l.order != nil && l.order.Side == alpaca.Buy && !l.cancelRequested &&
		now.Sub(l.order.SubmittedAt) > l.staleAfter {
		l.cancelStaleBuy(ctx)
	}

	if l.position == nil || !l.OutOfMarket(now) {
		return
	}
	switch {
	case l.state == StateToSell && l.order == nil:
		l.submitSell(ctx, true)
	case l.state == StateSellSubmitted && l.order != nil && l.order.Type == alpaca.Limit && !l.cancelRequested:
		// A resting limit sell won't liquidate us by the close: cancel it and
		// let the canceled event force the market resubmit.
		l.log.Info("canceling resting sell for end-of-day liquidation", "order_id", l.order.ID)
		l.requestCancel(ctx)
	}
}

func (l *Lifecycle) cancelStaleBuy(ctx context.Context) {
	logger := l.log.With("order_id", l.order.ID)
	if trade, err := l.quotes.LastTrade(ctx, l.symbol); err == nil {
		logger.Info("canceling missed buy order", "limit_price", l.order.LimitPrice, "current_price", trade.Price)
	} else {
		logger.Info("canceling missed buy order", "limit_price", l.order.LimitPrice)
	}
	l.requestCancel(ctx)
}

// requestCancel sends a fire-and-forget cancel; the state machine advances only
// when the canceled event arrives on the stream.
func (l *Lifecycle) requestCancel(ctx context.Context) {
	if err := l.broker.CancelOrder(ctx, l.order.ID); err != nil {
		l.log.Error("cancel request failed", "order_id", l.order.ID, "error", err)
		return
	}
	l.cancelRequested = true
	l.journal.Append(Entry{
		Symbol:  l.symbol,
		Kind:    EntryCancel,
		OrderID: l.order.ID,
	})
}

func (l *Lifecycle) submitBuy(ctx context.Context) {
	trade, err := l.quotes.LastTrade(ctx, l.symbol)
	if err != nil {
		l.log.Error("last trade lookup failed, skipping buy", "error", err)
		return
	}

	qty := l.lot.Div(trade.Price).Floor()
	if err := l.gate.Evaluate(risk.OrderCheck{
		Symbol: l.symbol,
		Side:   alpaca.Buy,
		Qty:    qty,
		Price:  trade.Price,
	}); err != nil {
		l.log.Info("buy not submitted", "reason", err, "qty", qty, "price", trade.Price)
		return
	}

	limit := trade.Price
	order, err := l.broker.SubmitOrder(ctx, broker.OrderRequest{
		Symbol:        l.symbol,
		Qty:           qty,
		Side:          alpaca.Buy,
		Type:          alpaca.Limit,
		TimeInForce:   alpaca.Day,
		ClientOrderID: l.nextClientOrderID(),
		LimitPrice:    &limit,
	})
	if err != nil {
		// Synchronous rejection: hold TO_BUY and let the next signal retry.
		l.log.Info("buy submission failed", "error", err)
		l.journal.Append(Entry{
			Symbol: l.symbol,
			Kind:   EntrySubmission,
			Side:   string(alpaca.Buy),
			Qty:    qty.String(),
			Error:  err.Error(),
		})
		return
	}

	l.order = order
	l.log.Info("submitted buy", "order_id", order.ID, "qty", qty, "limit_price", limit)
	l.journal.Append(Entry{
		Symbol:     l.symbol,
		Kind:       EntrySubmission,
		Side:       string(alpaca.Buy),
		Qty:        qty.String(),
		LimitPrice: limit.String(),
		OrderID:    order.ID,
	})
	l.transition(StateBuySubmitted)
}

func (l *Lifecycle) submitSell(ctx context.Context, bailout bool) {
	if l.position == nil {
		l.log.Warn("sell requested without a position")
		return
	}

	req := broker.OrderRequest{
		Symbol:        l.symbol,
		Qty:           l.position.Qty,
		Side:          alpaca.Sell,
		TimeInForce:   alpaca.Day,
		ClientOrderID: l.nextClientOrderID(),
	}
	var limitStr string
	if bailout {
		req.Type = alpaca.Market
	} else {
		trade, err := l.quotes.LastTrade(ctx, l.symbol)
		if err != nil {
			l.log.Error("last trade lookup failed, skipping sell", "error", err)
			return
		}
		// Never sell below cost basis plus one cent unless bailing out.
		costBasis := l.position.AvgEntryPrice
		limit := decimal.Max(costBasis.Add(decimal.New(1, -2)), trade.Price)
		req.Type = alpaca.Limit
		req.LimitPrice = &limit
		limitStr = limit.String()

		if err := l.gate.Evaluate(risk.OrderCheck{
			Symbol: l.symbol,
			Side:   alpaca.Sell,
			Qty:    req.Qty,
			Price:  limit,
		}); err != nil {
			l.log.Info("sell not submitted", "reason", err, "qty", req.Qty, "price", limit)
			return
		}
	}

	order, err := l.broker.SubmitOrder(ctx, req)
	if err != nil {
		// Hold TO_SELL; the next checkup or event retries.
		l.log.Error("sell submission failed", "bailout", bailout, "error", err)
		l.journal.Append(Entry{
			Symbol:  l.symbol,
			Kind:    EntrySubmission,
			Side:    string(alpaca.Sell),
			Qty:     req.Qty.String(),
			Bailout: bailout,
			Error:   err.Error(),
		})
		return
	}

	l.order = order
	l.log.Info("submitted sell", "order_id", order.ID, "qty", req.Qty, "limit_price", limitStr, "bailout", bailout)
	l.journal.Append(Entry{
		Symbol:     l.symbol,
		Kind:       EntrySubmission,
		Side:       string(alpaca.Sell),
		Qty:        req.Qty.String(),
		LimitPrice: limitStr,
		Bailout:    bailout,
		OrderID:    order.ID,
	})
	l.transition(StateSellSubmitted)
}

func (l *Lifecycle) refreshPosition(ctx context.Context) {
	pos, err := l.broker.GetPosition(ctx, l.symbol)
	if err != nil {
		l.log.Error("refresh position failed", "error", err)
		return
	}
	if pos == nil {
		l.log.Warn("refresh position returned no position")
		return
	}
	l.position = pos
}

func (l *Lifecycle) clearOrder() {
	l.order = nil
	l.cancelRequested = false
}

func (l *Lifecycle) transition(to State) {
	l.log.Info("transition", "from", l.state, "to", to)
	l.journal.Append(Entry{
		Symbol: l.symbol,
		Kind:   EntryTransition,
		From:   string(l.state),
		To:     string(to),
	})
	l.state = to
}

func (l *Lifecycle) nextClientOrderID() string {
	l.orderSeq++
	return fmt.Sprintf("%s-%s-%d", l.runID, l.symbol, l.orderSeq)
}
