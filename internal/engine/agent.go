package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scalper/internal/broker"
	"scalper/internal/md"
	"scalper/internal/strategy"
)

// Agent composes one symbol's bar series, signal evaluator and order
// lifecycle. The three work sources (bar stream, trade update stream, periodic
// checkup) run on separate goroutines, so every entry point serializes through
// one mutex; that keeps the at-most-one-open-order invariant and applies order
// updates in broker emission order.
type Agent struct {
	mu        sync.Mutex
	symbol    string
	series    *md.BarSeries
	evaluator strategy.Evaluator
	lifecycle *Lifecycle
	log       *slog.Logger
}

func NewAgent(symbol string, series *md.BarSeries, evaluator strategy.Evaluator, lifecycle *Lifecycle, log *slog.Logger) *Agent {
	return &Agent{
		symbol:    symbol,
		series:    series,
		evaluator: evaluator,
		lifecycle: lifecycle,
		log:       log,
	}
}

func (a *Agent) Symbol() string {
	return a.symbol
}

// OnBar appends one live bar and evaluates the entry signal. Signals are not
// evaluated until enough bars have accumulated, after the end-of-day cutoff,
// or while an order pair is already in flight.
func (a *Agent) OnBar(ctx context.Context, bar md.Bar) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, err := a.series.Append(bar)
	if err != nil {
		a.log.Warn("dropping bar", "error", err)
		return
	}

	if n < a.evaluator.MinBars() || a.lifecycle.OutOfMarket(a.lifecycle.clock()) {
		return
	}
	if a.lifecycle.State() != StateToBuy {
		return
	}
	if a.evaluator.Signal(a.series) {
		a.lifecycle.HandleBuySignal(ctx)
	}
}

// OnOrderUpdate applies one execution event for this symbol's order.
func (a *Agent) OnOrderUpdate(ctx context.Context, update broker.OrderUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lifecycle.OnOrderUpdate(ctx, update)
}

// Checkup runs the periodic safety actions against the given position
// snapshot (nil when the broker holds nothing for this symbol).
func (a *Agent) Checkup(ctx context.Context, pos *broker.Position, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lifecycle.Checkup(ctx, pos, now)
}
