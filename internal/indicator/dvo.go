package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// DVO is a composite oscillator: the ratio of the close to the midpoint of
// high and low, smoothed by a moving average, then converted to a rolling
// percentile rank over a long lookback and scaled to 0-100.
type DVO struct {
	smoothPeriod int
	lookback     int
}

// NewDVO creates the oscillator with the given smoothing period and
// percentile-rank lookback.
func NewDVO(smoothPeriod, lookback int) (*DVO, error) {
	if smoothPeriod <= 0 || lookback <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "dvo periods must be positive, got smooth=%d lookback=%d", smoothPeriod, lookback)
	}

	return &DVO{
		smoothPeriod: smoothPeriod,
		lookback:     lookback,
	}, nil
}

// NewDVOFromParams builds a DVO from named parameters.
// Expected: smooth_period (int), lookback (int).
func NewDVOFromParams(params map[string]any) (Indicator, error) {
	smooth, err := intParam(params, "smooth_period")
	if err != nil {
		return nil, err
	}

	lookback, err := intParam(params, "lookback")
	if err != nil {
		return nil, err
	}

	return NewDVO(smooth, lookback)
}

// Name returns the type name of the indicator.
func (d *DVO) Name() types.IndicatorType {
	return types.IndicatorTypeDVO
}

// WarmUp returns the minimum bar count before the first defined value: the
// smoothed ratio needs smoothPeriod bars, and the percentile rank needs
// lookback smoothed values.
func (d *DVO) WarmUp() int {
	return d.smoothPeriod + d.lookback - 1
}

// Compute implements the Indicator interface.
func (d *DVO) Compute(bars []types.Bar) (types.IndicatorSeries, error) {
	if len(bars) < d.WarmUp() {
		return types.IndicatorSeries{}, errors.Wrapf(
			errors.ErrCodeInsufficientHistory,
			errors.NewInsufficientHistoryErrorf(d.WarmUp(), len(bars), symbolOf(bars),
				"dvo(%d,%d) needs %d bars, have %d", d.smoothPeriod, d.lookback, d.WarmUp(), len(bars)),
			"insufficient history for dvo(%d,%d)", d.smoothPeriod, d.lookback,
		)
	}

	// Ratio of close to the bar midpoint. A zero-range bar contributes a
	// neutral ratio of 1.
	ratios := make([]float64, len(bars))

	for i, bar := range bars {
		mid := bar.Midpoint()
		if mid == 0 {
			ratios[i] = 1
		} else {
			ratios[i] = bar.Close / mid
		}
	}

	// Smooth the ratio with a simple moving average.
	smoothed := make([]float64, len(bars))
	for i := range smoothed {
		smoothed[i] = math.NaN()
	}

	sum := 0.0

	for i, ratio := range ratios {
		sum += ratio
		if i >= d.smoothPeriod {
			sum -= ratios[i-d.smoothPeriod]
		}

		if i >= d.smoothPeriod-1 {
			smoothed[i] = sum / float64(d.smoothPeriod)
		}
	}

	// Percentile rank of the current smoothed value within its trailing
	// lookback window, scaled to 0-100.
	series := types.NewIndicatorSeries(string(d.Name()), timesOf(bars), d.WarmUp())

	for i := d.WarmUp() - 1; i < len(bars); i++ {
		current := smoothed[i]
		below := 0

		for j := i - d.lookback + 1; j <= i; j++ {
			if smoothed[j] <= current {
				below++
			}
		}

		series.Values[i] = 100 * float64(below) / float64(d.lookback)
	}

	return series, nil
}
