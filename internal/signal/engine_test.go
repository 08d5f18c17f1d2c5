package signal

import (
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SignalEngineTestSuite struct {
	suite.Suite
	engine *Engine
}

func (suite *SignalEngineTestSuite) SetupTest() {
	suite.engine = NewEngine()
}

func TestSignalEngineSuite(t *testing.T) {
	suite.Run(t, new(SignalEngineTestSuite))
}

// seriesOf builds an aligned column from explicit values; NaN marks an
// undefined bar.
func seriesOf(name string, values []float64) types.IndicatorSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(values))

	for i := range values {
		times[i] = start.AddDate(0, 0, i)
	}

	return types.IndicatorSeries{
		Name:   name,
		Times:  times,
		Values: values,
		WarmUp: 0,
	}
}

func (suite *SignalEngineTestSuite) trueBars(name string, length int) []int {
	var fired []int

	for i := 0; i < length; i++ {
		ok, err := suite.engine.True(name, i)
		suite.Require().NoError(err)

		if ok {
			fired = append(fired, i)
		}
	}

	return fired
}

func (suite *SignalEngineTestSuite) TestDuplicateColumn() {
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("fast", []float64{1, 2, 3})))

	err := suite.engine.AddColumn(seriesOf("fast", []float64{4, 5, 6}))
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeSignalAlreadyExists))
}

func (suite *SignalEngineTestSuite) TestLengthMismatch() {
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("fast", []float64{1, 2, 3})))

	err := suite.engine.AddColumn(seriesOf("slow", []float64{1, 2}))
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *SignalEngineTestSuite) TestUnknownColumn() {
	_, err := suite.engine.Column("missing")
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeUnknownSignalColumn))

	err = suite.engine.AddComparison("cmp", "missing", "also_missing", RelationGT)
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeUnknownSignalColumn))
}

func (suite *SignalEngineTestSuite) TestComparison() {
	nan := math.NaN()
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("fast", []float64{nan, 2, 3, 1, 5})))
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("slow", []float64{nan, 1, 4, 1, 2})))

	suite.Require().NoError(suite.engine.AddComparison("fast_gt_slow", "fast", "slow", RelationGT))

	// NaN operands are false, ties are false under gt.
	suite.Assert().Equal([]int{1, 4}, suite.trueBars("fast_gt_slow", 5))
}

func (suite *SignalEngineTestSuite) TestComparisonInvalidRelation() {
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("fast", []float64{1, 2})))
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("slow", []float64{1, 2})))

	err := suite.engine.AddComparison("cmp", "fast", "slow", Relation("ne"))
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidRelation))
}

func (suite *SignalEngineTestSuite) TestCrossoverFiresOnTransitionOnly() {
	// fast crosses above slow at index 2 and stays above through index 4.
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("fast", []float64{1, 1, 3, 4, 5, 2})))
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("slow", []float64{2, 2, 2, 2, 2, 3})))

	suite.Require().NoError(suite.engine.AddCrossover("golden", "fast", "slow", DirectionAbove))
	suite.Require().NoError(suite.engine.AddCrossover("death", "fast", "slow", DirectionBelow))

	suite.Assert().Equal([]int{2}, suite.trueBars("golden", 6))
	suite.Assert().Equal([]int{5}, suite.trueBars("death", 6))
}

func (suite *SignalEngineTestSuite) TestCrossoverFirstBarNeverFires() {
	// Relation already holds on the first bar: no prior bar, no transition.
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("fast", []float64{3, 4, 5})))
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("slow", []float64{1, 1, 1})))

	suite.Require().NoError(suite.engine.AddCrossover("cross", "fast", "slow", DirectionAbove))

	suite.Assert().Empty(suite.trueBars("cross", 3))
}

func (suite *SignalEngineTestSuite) TestCrossoverUndefinedPriorSuppressed() {
	nan := math.NaN()
	// The prior bar is undefined at index 2, so the apparent transition
	// there cannot be determined and must not fire.
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("fast", []float64{1, nan, 3, 4})))
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("slow", []float64{2, 2, 2, 2})))

	suite.Require().NoError(suite.engine.AddCrossover("cross", "fast", "slow", DirectionAbove))

	suite.Assert().Empty(suite.trueBars("cross", 4))
}

func (suite *SignalEngineTestSuite) TestThresholdLevel() {
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("osc", []float64{10, 30, 80, 90, 40})))

	suite.Require().NoError(suite.engine.AddThreshold("overbought", "osc", RelationGTE, 80, ModeLevel))

	suite.Assert().Equal([]int{2, 3}, suite.trueBars("overbought", 5))
}

func (suite *SignalEngineTestSuite) TestThresholdCross() {
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("osc", []float64{10, 30, 80, 90, 40, 85})))

	suite.Require().NoError(suite.engine.AddThreshold("overbought_cross", "osc", RelationGTE, 80, ModeCross))

	// Fires on the transition into the zone only, and can re-fire after
	// leaving the zone.
	suite.Assert().Equal([]int{2, 5}, suite.trueBars("overbought_cross", 6))
}

func (suite *SignalEngineTestSuite) TestThresholdCrossSustainedConditionFiresOnce() {
	// An oscillator pinned below the threshold for the whole series signals
	// exactly once, on its first qualifying bar.
	values := make([]float64, 130)
	for i := range values {
		values[i] = 15
	}

	suite.Require().NoError(suite.engine.AddColumn(seriesOf("osc", values)))
	suite.Require().NoError(suite.engine.AddThreshold("oversold", "osc", RelationLT, 20, ModeCross))

	suite.Assert().Equal([]int{0}, suite.trueBars("oversold", len(values)))
}

func (suite *SignalEngineTestSuite) TestThresholdCrossAfterWarmUp() {
	nan := math.NaN()
	// The first defined bar already qualifies: it is the first qualifying
	// bar of the stretch and fires.
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("osc", []float64{nan, nan, 15, 14, 25, 16})))
	suite.Require().NoError(suite.engine.AddThreshold("oversold", "osc", RelationLT, 20, ModeCross))

	suite.Assert().Equal([]int{2, 5}, suite.trueBars("oversold", 6))
}

func (suite *SignalEngineTestSuite) TestThresholdInvalidMode() {
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("osc", []float64{10, 30})))

	err := suite.engine.AddThreshold("bad", "osc", RelationGT, 50, Mode("edge"))
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *SignalEngineTestSuite) TestOscillatorReEntryScenario() {
	// An oscillator wandering around a 30/70 band: entries cross below 30,
	// exits cross above 70. Each zone visit fires exactly once.
	values := []float64{50, 40, 25, 20, 28, 35, 60, 75, 80, 65, 28, 22, 40, 72}
	suite.Require().NoError(suite.engine.AddColumn(seriesOf("osc", values)))

	suite.Require().NoError(suite.engine.AddThreshold("oversold", "osc", RelationLT, 30, ModeCross))
	suite.Require().NoError(suite.engine.AddThreshold("overbought", "osc", RelationGT, 70, ModeCross))

	suite.Assert().Equal([]int{2, 10}, suite.trueBars("oversold", len(values)))
	suite.Assert().Equal([]int{7, 13}, suite.trueBars("overbought", len(values)))
}
