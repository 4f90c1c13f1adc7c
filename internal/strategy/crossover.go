package strategy

import (
	"math"

	"scalper/internal/md"
)

// Crossover detects an upward cross of the close price through its rolling
// mean: the previous close was below its mean and the latest close is above
// its mean.
type Crossover struct {
	Window int
}

func NewCrossover(window int) Crossover {
	return Crossover{Window: window}
}

func (c Crossover) Signal(series *md.BarSeries) bool {
	n := series.Len()
	if n < c.MinBars() {
		return false
	}

	prevClose, prevMean := series.Close(n-2), series.Mean(n-2)
	lastClose, lastMean := series.Close(n-1), series.Mean(n-1)
	if math.IsNaN(prevMean) || math.IsNaN(lastMean) {
		return false
	}
	return prevClose < prevMean && lastClose > lastMean
}

// MinBars is Window+1: the signal compares two consecutive positions that both
// need a full window behind them.
func (c Crossover) MinBars() int {
	return c.Window + 1
}
