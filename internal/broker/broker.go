package broker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"golang.org/x/time/rate"
)

// Client wraps the trading API. All REST calls share one rate limiter so a
// busy fleet stays under the broker's request cap.
type Client struct {
	client  *alpaca.Client
	limiter *rate.Limiter
}

func New(apiKey, apiSecret, baseURL string) *Client {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}
	return &Client{
		client:  alpaca.NewClient(opts),
		limiter: rate.NewLimiter(rate.Every(300*time.Millisecond), 10),
	}
}

// SubmitOrder places a new order. Synchronous rejections come back as a
// *SubmissionError.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	qty := req.Qty
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		ClientOrderID: req.ClientOrderID,
		LimitPrice:    req.LimitPrice,
	}

	order, err := c.client.PlaceOrder(orderReq)
	if err != nil {
		slog.Error("place order failed", "symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "type", req.Type, "error", err)
		return nil, &SubmissionError{Symbol: req.Symbol, Side: req.Side, Err: err}
	}

	slog.Info("place order success", "order_id", order.ID, "symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "type", req.Type, "status", order.Status)
	converted := convertOrder(*order)
	return &converted, nil
}

// CancelOrder requests cancellation. Fire-and-forget: the caller waits for the
// canceled event on the trade update stream, not for this call.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.client.CancelOrder(orderID); err != nil {
		slog.Error("cancel order failed", "order_id", orderID, "error", err)
		return err
	}
	slog.Info("cancel order requested", "order_id", orderID)
	return nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	order, err := c.client.GetOrder(orderID)
	if err != nil {
		slog.Error("fetch order failed", "order_id", orderID, "error", err)
		return nil, err
	}
	converted := convertOrder(*order)
	return &converted, nil
}

// GetPosition returns the held position for symbol, or nil when none is held.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	pos, err := c.client.GetPosition(symbol)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, nil
		}
		slog.Error("fetch position failed", "symbol", symbol, "error", err)
		return nil, err
	}
	return &Position{
		Symbol:        pos.Symbol,
		Qty:           pos.Qty,
		AvgEntryPrice: pos.AvgEntryPrice,
	}, nil
}

func (c *Client) ListPositions(ctx context.Context) ([]Position, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := c.client.GetPositions()
	if err != nil {
		slog.Error("list positions failed", "error", err)
		return nil, err
	}
	positions := make([]Position, 0, len(raw))
	for _, pos := range raw {
		positions = append(positions, Position{
			Symbol:        pos.Symbol,
			Qty:           pos.Qty,
			AvgEntryPrice: pos.AvgEntryPrice,
		})
	}
	return positions, nil
}

func (c *Client) GetClock(ctx context.Context) (Clock, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Clock{}, err
	}
	clock, err := c.client.GetClock()
	if err != nil {
		slog.Error("fetch market clock failed", "error", err)
		return Clock{}, err
	}
	return Clock{
		Timestamp: clock.Timestamp,
		IsOpen:    clock.IsOpen,
		NextClose: clock.NextClose,
	}, nil
}

func convertOrder(order alpaca.Order) Order {
	converted := Order{
		ID:            order.ID,
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Type:          order.Type,
		FilledQty:     order.FilledQty,
		LimitPrice:    order.LimitPrice,
		Status:        string(order.Status),
		SubmittedAt:   order.SubmittedAt,
	}
	if order.Qty != nil {
		converted.Qty = *order.Qty
	}
	return converted
}
