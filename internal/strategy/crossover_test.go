package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalper/internal/md"
)

func seriesFromCloses(t *testing.T, window int, closes []float64) *md.BarSeries {
	t.Helper()
	start := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	series := md.NewBarSeries(window, nil)
	for i, c := range closes {
		_, err := series.Append(md.Bar{
			Symbol: "AAPL",
			Start:  start.Add(time.Duration(i) * time.Minute),
			Close:  c,
		})
		require.NoError(t, err)
	}
	return series
}

func TestCrossoverSignalsUpwardCross(t *testing.T) {
	// 19 flat bars, a dip below the mean, then a close back above it.
	closes := make([]float64, 0, 21)
	for i := 0; i < 19; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 95, 110)

	series := seriesFromCloses(t, 20, closes)
	assert.True(t, NewCrossover(20).Signal(series))
}

func TestCrossoverNoSignalWhenAlwaysBelow(t *testing.T) {
	closes := make([]float64, 0, 25)
	for i := 0; i < 25; i++ {
		closes = append(closes, 100-float64(i)*0.5)
	}

	series := seriesFromCloses(t, 20, closes)
	assert.False(t, NewCrossover(20).Signal(series))
}

func TestCrossoverNoSignalWhenAlwaysAbove(t *testing.T) {
	closes := make([]float64, 0, 25)
	for i := 0; i < 25; i++ {
		closes = append(closes, 100+float64(i)*0.5)
	}

	series := seriesFromCloses(t, 20, closes)
	assert.False(t, NewCrossover(20).Signal(series))
}

func TestCrossoverRequiresMinBars(t *testing.T) {
	closes := make([]float64, 0, 20)
	for i := 0; i < 19; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 110)

	// Exactly 20 bars: one short of the 21 the evaluator needs.
	series := seriesFromCloses(t, 20, closes)
	evaluator := NewCrossover(20)
	assert.Equal(t, 21, evaluator.MinBars())
	assert.False(t, evaluator.Signal(series))
}
