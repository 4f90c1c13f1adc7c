package strategy

import "scalper/internal/md"

// Evaluator decides whether a bar series shows an entry signal. Implementations
// are pure: they read the series and hold no mutable state.
type Evaluator interface {
	// Signal reports whether the series' latest bar completes a buy setup.
	Signal(series *md.BarSeries) bool

	// MinBars is the series length below which Signal must not fire.
	MinBars() int
}
