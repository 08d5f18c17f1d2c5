package types

import (
	"math"
	"time"
)

type IndicatorType string

const (
	IndicatorTypeSMA     IndicatorType = "sma"
	IndicatorTypeDualRSI IndicatorType = "dual_rsi"
	IndicatorTypeDVO     IndicatorType = "dvo"
)

// IndicatorSeries is a named derived series aligned to a bar sequence by
// index. Values before the indicator's warm-up length are NaN, never zero.
type IndicatorSeries struct {
	// Name is the column name the series is registered under.
	Name string
	// Times holds the bar timestamps the values align to.
	Times []time.Time
	// Values holds one value per bar; NaN marks the undefined warm-up prefix.
	Values []float64
	// WarmUp is the number of leading bars with undefined values.
	WarmUp int
}

// NewIndicatorSeries allocates a series of the given length with every value
// initialized to NaN.
func NewIndicatorSeries(name string, times []time.Time, warmUp int) IndicatorSeries {
	values := make([]float64, len(times))
	for i := range values {
		values[i] = math.NaN()
	}

	return IndicatorSeries{
		Name:   name,
		Times:  times,
		Values: values,
		WarmUp: warmUp,
	}
}

// Len returns the number of bars the series spans.
func (s IndicatorSeries) Len() int {
	return len(s.Values)
}

// Defined reports whether the value at index i is defined.
func (s IndicatorSeries) Defined(i int) bool {
	return i >= 0 && i < len(s.Values) && !math.IsNaN(s.Values[i])
}

// At returns the value at index i. Out-of-range indexes return NaN.
func (s IndicatorSeries) At(i int) float64 {
	if i < 0 || i >= len(s.Values) {
		return math.NaN()
	}

	return s.Values[i]
}
