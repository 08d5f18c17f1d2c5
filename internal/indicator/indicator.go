package indicator

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Indicator is a pure function from a bar history to an aligned derived
// series. Implementations are stateless given their configured parameters.
type Indicator interface {
	// Name returns the type name of the indicator.
	Name() types.IndicatorType
	// WarmUp returns the minimum number of bars required before the
	// indicator produces a defined value. Output values before warm-up are
	// NaN, not zero.
	WarmUp() int
	// Compute maps the full bar history to an aligned output series. It
	// fails with an insufficient-history error when fewer bars than WarmUp
	// are supplied.
	Compute(bars []types.Bar) (types.IndicatorSeries, error)
}

func symbolOf(bars []types.Bar) string {
	if len(bars) == 0 {
		return ""
	}

	return bars[0].Symbol
}

func timesOf(bars []types.Bar) []time.Time {
	times := make([]time.Time, len(bars))
	for i, bar := range bars {
		times[i] = bar.Time
	}

	return times
}
