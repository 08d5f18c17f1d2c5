package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SMA implements the simple moving average: the arithmetic mean of the last
// n closes.
type SMA struct {
	period int
}

// NewSMA creates a simple moving average indicator with the given period.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "sma period must be a positive integer, got %d", period)
	}

	return &SMA{period: period}, nil
}

// NewSMAFromParams builds an SMA from named parameters. Expected: period (int).
func NewSMAFromParams(params map[string]any) (Indicator, error) {
	period, err := intParam(params, "period")
	if err != nil {
		return nil, err
	}

	return NewSMA(period)
}

// Name returns the type name of the indicator.
func (s *SMA) Name() types.IndicatorType {
	return types.IndicatorTypeSMA
}

// WarmUp returns the minimum bar count before the first defined value.
func (s *SMA) WarmUp() int {
	return s.period
}

// Compute implements the Indicator interface. A rolling sum keeps the pass
// linear in the number of bars.
func (s *SMA) Compute(bars []types.Bar) (types.IndicatorSeries, error) {
	if len(bars) < s.period {
		return types.IndicatorSeries{}, errors.Wrapf(
			errors.ErrCodeInsufficientHistory,
			errors.NewInsufficientHistoryErrorf(s.period, len(bars), symbolOf(bars),
				"sma(%d) needs %d bars, have %d", s.period, s.period, len(bars)),
			"insufficient history for sma(%d)", s.period,
		)
	}

	series := types.NewIndicatorSeries(string(s.Name()), timesOf(bars), s.period)

	sum := 0.0

	for i, bar := range bars {
		sum += bar.Close
		if i >= s.period {
			sum -= bars[i-s.period].Close
		}

		if i >= s.period-1 {
			series.Values[i] = sum / float64(s.period)
		}
	}

	return series, nil
}
