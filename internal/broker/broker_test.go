package broker

import (
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapEvent(t *testing.T) {
	cases := []struct {
		event string
		kind  EventKind
		ok    bool
	}{
		{"fill", EventFill, true},
		{"partial_fill", EventPartialFill, true},
		{"canceled", EventCanceled, true},
		{"rejected", EventRejected, true},
		{"new", "", false},
		{"pending_new", "", false},
		{"replaced", "", false},
	}
	for _, tc := range cases {
		kind, ok := mapEvent(tc.event)
		assert.Equal(t, tc.ok, ok, tc.event)
		assert.Equal(t, tc.kind, kind, tc.event)
	}
}

func TestConvertOrder(t *testing.T) {
	qty := decimal.NewFromInt(5)
	limit := decimal.RequireFromString("123.45")
	submittedAt := time.Date(2024, 3, 1, 14, 31, 0, 0, time.UTC)

	converted := convertOrder(alpaca.Order{
		ID:            "oid-1",
		ClientOrderID: "coid-1",
		Symbol:        "AAPL",
		Side:          alpaca.Buy,
		Type:          alpaca.Limit,
		Qty:           &qty,
		FilledQty:     decimal.NewFromInt(2),
		LimitPrice:    &limit,
		Status:        "partially_filled",
		SubmittedAt:   submittedAt,
	})

	assert.Equal(t, "oid-1", converted.ID)
	assert.Equal(t, "AAPL", converted.Symbol)
	assert.Equal(t, alpaca.Buy, converted.Side)
	assert.True(t, converted.Qty.Equal(qty))
	assert.True(t, converted.FilledQty.Equal(decimal.NewFromInt(2)))
	require.NotNil(t, converted.LimitPrice)
	assert.True(t, converted.LimitPrice.Equal(limit))
	assert.Equal(t, submittedAt, converted.SubmittedAt)
}

func TestConvertOrderNilQty(t *testing.T) {
	converted := convertOrder(alpaca.Order{ID: "oid-2"})
	assert.True(t, converted.Qty.IsZero())
}

func TestSubmissionErrorUnwraps(t *testing.T) {
	inner := errors.New("insufficient buying power")
	err := &SubmissionError{Symbol: "AAPL", Side: alpaca.Buy, Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "AAPL")
}
