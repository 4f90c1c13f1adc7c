package engine

import (
	"context"
	"log/slog"
	"time"

	"scalper/internal/broker"
	"scalper/internal/md"
)

// Fleet routes bars, execution events and checkups to the agent tracking each
// symbol. The routing table is built once at startup and never mutated.
type Fleet struct {
	agents map[string]*Agent
}

func NewFleet(agents []*Agent) *Fleet {
	bySymbol := make(map[string]*Agent, len(agents))
	for _, agent := range agents {
		bySymbol[agent.Symbol()] = agent
	}
	return &Fleet{agents: bySymbol}
}

func (f *Fleet) Symbols() []string {
	symbols := make([]string, 0, len(f.agents))
	for symbol := range f.agents {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// OnBar dispatches a live bar. Bars for untracked symbols are dropped.
func (f *Fleet) OnBar(ctx context.Context, bar md.Bar) {
	agent, ok := f.agents[bar.Symbol]
	if !ok {
		slog.Debug("dropping bar for untracked symbol", "symbol", bar.Symbol)
		return
	}
	agent.OnBar(ctx, bar)
}

// OnOrderUpdate dispatches an execution event by the order's symbol. Events
// for untracked symbols are dropped.
func (f *Fleet) OnOrderUpdate(ctx context.Context, update broker.OrderUpdate) {
	agent, ok := f.agents[update.Order.Symbol]
	if !ok {
		slog.Debug("dropping order update for untracked symbol", "symbol", update.Order.Symbol)
		return
	}
	agent.OnOrderUpdate(ctx, update)
}

// Checkup fans the broker's bulk position snapshot out to every agent, passing
// nil to agents whose symbol holds nothing.
func (f *Fleet) Checkup(ctx context.Context, positions []broker.Position, now time.Time) {
	bySymbol := make(map[string]broker.Position, len(positions))
	for _, pos := range positions {
		bySymbol[pos.Symbol] = pos
	}
	for symbol, agent := range f.agents {
		var pos *broker.Position
		if p, ok := bySymbol[symbol]; ok {
			pos = &p
		}
		agent.Checkup(ctx, pos, now)
	}
}
