package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// DualRSI is a short-lookback oscillator that averages two relative strength
// index outputs of different lookback lengths. The fast leg reacts to recent
// swings while the slow leg anchors the reading.
type DualRSI struct {
	fastPeriod int
	slowPeriod int
}

// NewDualRSI creates the oscillator. The slow period must be at least the
// fast period.
func NewDualRSI(fastPeriod, slowPeriod int) (*DualRSI, error) {
	if fastPeriod <= 0 || slowPeriod <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "dual_rsi periods must be positive, got fast=%d slow=%d", fastPeriod, slowPeriod)
	}

	if slowPeriod < fastPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "dual_rsi slow period %d must be >= fast period %d", slowPeriod, fastPeriod)
	}

	return &DualRSI{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}, nil
}

// NewDualRSIFromParams builds a DualRSI from named parameters.
// Expected: fast_period (int), slow_period (int).
func NewDualRSIFromParams(params map[string]any) (Indicator, error) {
	fast, err := intParam(params, "fast_period")
	if err != nil {
		return nil, err
	}

	slow, err := intParam(params, "slow_period")
	if err != nil {
		return nil, err
	}

	return NewDualRSI(fast, slow)
}

// Name returns the type name of the indicator.
func (d *DualRSI) Name() types.IndicatorType {
	return types.IndicatorTypeDualRSI
}

// WarmUp returns the minimum bar count before the first defined value. The
// slow leg dominates: an RSI of period p needs p+1 bars for its first value.
func (d *DualRSI) WarmUp() int {
	return d.slowPeriod + 1
}

// Compute implements the Indicator interface.
func (d *DualRSI) Compute(bars []types.Bar) (types.IndicatorSeries, error) {
	if len(bars) < d.WarmUp() {
		return types.IndicatorSeries{}, errors.Wrapf(
			errors.ErrCodeInsufficientHistory,
			errors.NewInsufficientHistoryErrorf(d.WarmUp(), len(bars), symbolOf(bars),
				"dual_rsi(%d,%d) needs %d bars, have %d", d.fastPeriod, d.slowPeriod, d.WarmUp(), len(bars)),
			"insufficient history for dual_rsi(%d,%d)", d.fastPeriod, d.slowPeriod,
		)
	}

	fast := rollingRSI(bars, d.fastPeriod)
	slow := rollingRSI(bars, d.slowPeriod)
	series := types.NewIndicatorSeries(string(d.Name()), timesOf(bars), d.WarmUp())

	for i := range bars {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
			continue
		}

		series.Values[i] = (fast[i] + slow[i]) / 2
	}

	return series, nil
}

// rollingRSI computes a Wilder-smoothed RSI for every bar index. Indexes
// before the first full period are NaN.
func rollingRSI(bars []types.Bar, period int) []float64 {
	values := make([]float64, len(bars))
	for i := range values {
		values[i] = math.NaN()
	}

	if len(bars) < period+1 {
		return values
	}

	avgGain := 0.0
	avgLoss := 0.0

	// Seed the first averages from the initial window.
	for i := 1; i <= period; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	values[period] = rsiFromAverages(avgGain, avgLoss)

	// Wilder's smoothing for the remainder of the series.
	for i := period + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close

		gain := 0.0
		loss := 0.0

		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		values[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return values
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
