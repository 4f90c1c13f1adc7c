package md

import (
	"context"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Trade is the latest trade printed for a symbol, used for order pricing.
type Trade struct {
	Price     decimal.Decimal
	Timestamp time.Time
}

// Client wraps the market data REST API behind the two calls the core needs:
// session back-fill and last-trade quotes.
type Client struct {
	client  *marketdata.Client
	feed    marketdata.Feed
	limiter *rate.Limiter
}

func NewClient(apiKey, apiSecret, feed string) *Client {
	return &Client{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		feed: parseFeed(feed),
		// Alpaca caps unsubscribed accounts at 200 requests/min.
		limiter: rate.NewLimiter(rate.Every(300*time.Millisecond), 10),
	}
}

// HistoricalBars returns the symbol's minute bars between start and end in
// ascending order.
func (c *Client) HistoricalBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := c.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneMin,
		Start:     start,
		End:       end,
		Feed:      c.feed,
	})
	if err != nil {
		slog.Error("fetch historical bars failed", "symbol", symbol, "error", err)
		return nil, err
	}

	bars := make([]Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, Bar{
			Symbol: symbol,
			Start:  b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	slog.Info("historical bars fetched", "symbol", symbol, "count", len(bars))
	return bars, nil
}

// LastTrade returns the most recent trade for the symbol.
func (c *Client) LastTrade(ctx context.Context, symbol string) (Trade, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Trade{}, err
	}
	trade, err := c.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: c.feed})
	if err != nil {
		slog.Error("fetch last trade failed", "symbol", symbol, "error", err)
		return Trade{}, err
	}
	return Trade{
		Price:     decimal.NewFromFloat(trade.Price),
		Timestamp: trade.Timestamp,
	}, nil
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
