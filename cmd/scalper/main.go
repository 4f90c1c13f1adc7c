package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"scalper/internal/broker"
	"scalper/internal/config"
	"scalper/internal/engine"
	"scalper/internal/md"
	"scalper/internal/risk"
	"scalper/internal/strategy"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "scalper SYMBOL [SYMBOL...]",
		Short:        "Intraday moving-average crossover scalping agent",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, args, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "path to config file (optional)")
	cmd.Flags().Float64("lot", 2000, "dollar notional per buy order")
	cmd.Flags().String("feed", "iex", "market data feed: iex or sip")
	cmd.Flags().Int("window", 20, "rolling mean window in bars")
	cmd.Flags().Duration("checkup-interval", 30*time.Second, "periodic safety check interval")
	cmd.Flags().Duration("stale-order-age", 2*time.Minute, "age after which a resting buy is canceled")
	cmd.Flags().String("cutoff-time", "15:55", "end-of-day liquidation time, exchange local")
	cmd.Flags().String("timezone", "America/New_York", "exchange timezone")
	cmd.Flags().Float64("max-notional", 0, "max notional per order, 0 disables the check")
	cmd.Flags().Bool("kill-switch", false, "if true, never place orders")
	cmd.Flags().String("journal-path", "journal.ndjson", "path to the trade journal")
	cmd.Flags().String("log-path", "scalper.log", "path to the log file")
	cmd.Flags().String("paper-base-url", "https://paper-api.alpaca.markets", "trading API base URL")

	return cmd
}

func run(cfg config.Config) error {
	logFile, err := os.OpenFile(cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), nil)))

	runID := generateRunID()
	journal, err := engine.NewJournal(cfg.JournalPath, runID)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			slog.Error("failed to close journal", "error", err)
		}
	}()

	trading := broker.New(cfg.APIKey, cfg.APISecret, cfg.PaperBaseURL)
	quotes := md.NewClient(cfg.APIKey, cfg.APISecret, cfg.Feed)
	gate := risk.Gate{
		MaxNotional: decimal.NewFromFloat(cfg.MaxNotional),
		KillSwitch:  cfg.KillSwitch,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		slog.Info("shutdown signal received")
		cancel()
	}()

	agents, err := buildAgents(ctx, cfg, trading, quotes, gate, journal, runID)
	if err != nil {
		return err
	}
	fleet := engine.NewFleet(agents)
	supervisor := engine.NewSupervisor(trading, fleet, cfg.CheckupInterval)

	slog.Info("starting fleet", "run_id", runID, "symbols", cfg.Symbols, "lot", cfg.Lot, "feed", cfg.Feed)

	errChan := make(chan error, 3)
	go func() {
		errChan <- supervisor.Run(ctx)
	}()
	go func() {
		errChan <- trading.StreamTradeUpdates(ctx, func(update broker.OrderUpdate) {
			fleet.OnOrderUpdate(ctx, update)
		})
	}()
	go func() {
		errChan <- md.StreamBars(ctx, cfg.APIKey, cfg.APISecret, cfg.Feed, cfg.Symbols, func(bar md.Bar) {
			fleet.OnBar(ctx, bar)
		})
	}()

	err = <-errChan
	cancel()

	switch {
	case errors.Is(err, engine.ErrMarketClosed):
		slog.Info("exiting: market is closed")
		return nil
	case errors.Is(err, context.Canceled):
		slog.Info("shutdown complete")
		return nil
	default:
		return err
	}
}

// buildAgents back-fills each symbol's bar series from the session open and
// assembles its lifecycle and evaluator.
func buildAgents(ctx context.Context, cfg config.Config, trading *broker.Client, quotes *md.Client, gate risk.Gate, journal *engine.Journal, runID string) ([]*engine.Agent, error) {
	now := time.Now().In(cfg.Location)
	sessionOpen := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, cfg.Location)

	agents := make([]*engine.Agent, 0, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		bars, err := quotes.HistoricalBars(ctx, symbol, sessionOpen, now)
		if err != nil {
			return nil, fmt.Errorf("back-fill %s: %w", symbol, err)
		}
		logger := slog.Default().With("symbol", symbol)
		lifecycle := engine.NewLifecycle(engine.LifecycleParams{
			Symbol:        symbol,
			Lot:           decimal.NewFromFloat(cfg.Lot),
			StaleOrderAge: cfg.StaleOrderAge,
			Cutoff:        cfg.Cutoff,
			Location:      cfg.Location,
			RunID:         runID,
		}, trading, quotes, gate, journal, logger)

		series := md.NewBarSeries(cfg.Window, bars)
		agents = append(agents, engine.NewAgent(symbol, series, strategy.NewCrossover(cfg.Window), lifecycle, logger))
		logger.Info("agent ready", "bars", series.Len())
	}
	return agents, nil
}

func generateRunID() string {
	return time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}
