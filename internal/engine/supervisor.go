package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scalper/internal/broker"
)

// ErrMarketClosed signals an orderly end of the trading session, not a fault.
var ErrMarketClosed = errors.New("market closed")

// SupervisorBroker is the capability set the periodic loop needs.
type SupervisorBroker interface {
	GetClock(ctx context.Context) (broker.Clock, error)
	ListPositions(ctx context.Context) ([]broker.Position, error)
}

// Supervisor drives the periodic safety checks: every tick it verifies the
// market is still open (terminating the session when it is not), fetches the
// bulk position snapshot and runs each agent's checkup.
type Supervisor struct {
	broker   SupervisorBroker
	fleet    *Fleet
	interval time.Duration
	clock    func() time.Time
}

func NewSupervisor(b SupervisorBroker, fleet *Fleet, interval time.Duration) *Supervisor {
	return &Supervisor{
		broker:   b,
		fleet:    fleet,
		interval: interval,
		clock:    time.Now,
	}
}

// Run ticks until the market closes (returns ErrMarketClosed) or ctx is
// canceled. Transient broker errors are logged and the loop keeps going.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Supervisor) tick(ctx context.Context) error {
	clock, err := s.broker.GetClock(ctx)
	if err != nil {
		slog.Error("market clock check failed", "error", err)
		return nil
	}
	if !clock.IsOpen {
		slog.Info("market is not open, ending session")
		return ErrMarketClosed
	}

	positions, err := s.broker.ListPositions(ctx)
	if err != nil {
		slog.Error("list positions failed", "error", err)
		return nil
	}
	s.fleet.Checkup(ctx, positions, s.clock())
	return nil
}
