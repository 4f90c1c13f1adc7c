package md

import (
	"fmt"
	"math"
	"time"
)

// Bar is one minute of aggregated trading activity for a symbol.
type Bar struct {
	Symbol string
	Start  time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume uint64
}

// BarSeries is an append-only sequence of minute bars, strictly increasing by
// Start. It maintains a rolling sum of closes so the window mean is updated in
// O(1) per append instead of rescanning the window. Bars accumulate for the
// session; a trading day of minute bars stays small enough that nothing is
// evicted.
type BarSeries struct {
	window int
	bars   []Bar
	means  []float64
	sum    float64
}

// NewBarSeries returns a series that maintains a rolling mean of close prices
// over the given window. history is appended in order; bars violating the
// ordering invariant are skipped.
func NewBarSeries(window int, history []Bar) *BarSeries {
	s := &BarSeries{
		window: window,
		bars:   make([]Bar, 0, len(history)),
		means:  make([]float64, 0, len(history)),
	}
	for _, bar := range history {
		_, _ = s.Append(bar)
	}
	return s
}

// Append adds one bar and returns the updated length. A bar whose start is not
// strictly after the last appended start is rejected.
func (s *BarSeries) Append(bar Bar) (int, error) {
	if n := len(s.bars); n > 0 && !bar.Start.After(s.bars[n-1].Start) {
		return n, fmt.Errorf("bar start %s not after last start %s",
			bar.Start.Format(time.RFC3339), s.bars[n-1].Start.Format(time.RFC3339))
	}
	s.bars = append(s.bars, bar)
	s.sum += bar.Close
	if len(s.bars) > s.window {
		s.sum -= s.bars[len(s.bars)-1-s.window].Close
	}
	if len(s.bars) >= s.window {
		s.means = append(s.means, s.sum/float64(s.window))
	} else {
		s.means = append(s.means, math.NaN())
	}
	return len(s.bars), nil
}

func (s *BarSeries) Len() int {
	return len(s.bars)
}

func (s *BarSeries) Window() int {
	return s.window
}

// Close returns the close price at position i (0-based, oldest first).
func (s *BarSeries) Close(i int) float64 {
	return s.bars[i].Close
}

// Mean returns the rolling mean of close at position i, or NaN when fewer than
// window observations precede it.
func (s *BarSeries) Mean(i int) float64 {
	return s.means[i]
}
