package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// barsFromCloses builds a daily bar series where each bar's open, high, low
// and close all equal the given close price.
func barsFromCloses(symbol string, closes []float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: symbol,
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}

	return bars
}

type SMATestSuite struct {
	suite.Suite
}

func TestSMASuite(t *testing.T) {
	suite.Run(t, new(SMATestSuite))
}

func (suite *SMATestSuite) TestInvalidPeriod() {
	_, err := NewSMA(0)
	suite.Assert().Error(err)
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = NewSMA(-3)
	suite.Assert().Error(err)
}

func (suite *SMATestSuite) TestInsufficientHistory() {
	sma, err := NewSMA(10)
	suite.Require().NoError(err)

	_, err = sma.Compute(barsFromCloses("AAPL", []float64{1, 2, 3}))
	suite.Assert().Error(err)
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeInsufficientHistory))
}

func (suite *SMATestSuite) TestWarmUpPrefixIsNaN() {
	sma, err := NewSMA(3)
	suite.Require().NoError(err)

	series, err := sma.Compute(barsFromCloses("AAPL", []float64{1, 2, 3, 4, 5}))
	suite.Require().NoError(err)

	suite.Assert().True(math.IsNaN(series.Values[0]))
	suite.Assert().True(math.IsNaN(series.Values[1]))
	suite.Assert().False(series.Defined(0))
	suite.Assert().False(series.Defined(1))
	suite.Assert().True(series.Defined(2))
}

func (suite *SMATestSuite) TestKnownValues() {
	sma, err := NewSMA(3)
	suite.Require().NoError(err)

	series, err := sma.Compute(barsFromCloses("AAPL", []float64{1, 2, 3, 4, 5}))
	suite.Require().NoError(err)

	suite.Assert().InDelta(2.0, series.Values[2], 1e-9)
	suite.Assert().InDelta(3.0, series.Values[3], 1e-9)
	suite.Assert().InDelta(4.0, series.Values[4], 1e-9)
}

func (suite *SMATestSuite) TestDeterministic() {
	sma, err := NewSMA(5)
	suite.Require().NoError(err)

	bars := barsFromCloses("AAPL", []float64{10, 11, 9, 12, 13, 14, 8, 15, 16, 10})

	first, err := sma.Compute(bars)
	suite.Require().NoError(err)

	second, err := sma.Compute(bars)
	suite.Require().NoError(err)

	for i := range first.Values {
		if math.IsNaN(first.Values[i]) {
			suite.Assert().True(math.IsNaN(second.Values[i]))
			continue
		}

		suite.Assert().Equal(first.Values[i], second.Values[i])
	}
}
