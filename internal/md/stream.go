package md

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
)

type BarHandler func(Bar)

// StreamBars subscribes to live minute bars for the given symbols and invokes
// handler for each one. It blocks until ctx is canceled or the connection
// terminates. The SDK invokes the callback serially, so per-symbol bar order is
// preserved.
func StreamBars(ctx context.Context, apiKey, apiSecret, feed string, symbols []string, handler BarHandler) error {
	client := stream.NewStocksClient(
		parseFeed(feed),
		stream.WithCredentials(apiKey, apiSecret),
	)

	// Connect must be called before subscribing in this SDK version.
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect market data stream: %w", err)
	}

	if err := client.SubscribeToBars(func(bar stream.Bar) {
		handler(Bar{
			Symbol: bar.Symbol,
			Start:  bar.Timestamp,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}, symbols...); err != nil {
		return fmt.Errorf("subscribe to bars: %w", err)
	}

	slog.Info("subscribed to minute bars", "symbols", symbols)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-client.Terminated():
		return fmt.Errorf("market data stream terminated: %w", err)
	}
}
