package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
	position *Position
}

func (suite *PositionTestSuite) SetupTest() {
	suite.position = &Position{
		Symbol: "AAPL",
	}
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) TestBuyAppendsLot() {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	realized := suite.position.Apply(100, 50.0, at)

	suite.Assert().Equal(0.0, realized)
	suite.Assert().Equal(100.0, suite.position.Quantity)
	suite.Assert().Len(suite.position.Lots, 1)
	suite.Assert().Equal(at, suite.position.OpenTimestamp)
}

func (suite *PositionTestSuite) TestFIFOMatching() {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	suite.position.Apply(100, 50.0, at)
	suite.position.Apply(100, 60.0, at.Add(time.Hour))

	// Selling 150 consumes the 50-dollar lot fully and half of the
	// 60-dollar lot.
	realized := suite.position.Apply(-150, 70.0, at.Add(2*time.Hour))

	// 100*(70-50) + 50*(70-60) = 2500
	suite.Assert().InDelta(2500.0, realized, 1e-9)
	suite.Assert().Equal(50.0, suite.position.Quantity)
	suite.Assert().Len(suite.position.Lots, 1)
	suite.Assert().Equal(60.0, suite.position.Lots[0].Price)
}

func (suite *PositionTestSuite) TestFullLiquidation() {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	suite.position.Apply(100, 50.0, at)
	realized := suite.position.Apply(-100, 45.0, at.Add(time.Hour))

	suite.Assert().InDelta(-500.0, realized, 1e-9)
	suite.Assert().Equal(0.0, suite.position.Quantity)
	suite.Assert().Empty(suite.position.Lots)
}

func (suite *PositionTestSuite) TestAverageEntryPrice() {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	suite.Assert().Equal(0.0, suite.position.AverageEntryPrice())

	suite.position.Apply(100, 50.0, at)
	suite.position.Apply(100, 60.0, at.Add(time.Hour))

	suite.Assert().InDelta(55.0, suite.position.AverageEntryPrice(), 1e-9)
}

func (suite *PositionTestSuite) TestUnrealizedPnL() {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	suite.Assert().Equal(0.0, suite.position.UnrealizedPnL(100.0))

	suite.position.Apply(100, 50.0, at)
	suite.position.Apply(50, 60.0, at.Add(time.Hour))

	// 100*(65-50) + 50*(65-60) = 1750
	suite.Assert().InDelta(1750.0, suite.position.UnrealizedPnL(65.0), 1e-9)
}

func (suite *PositionTestSuite) TestExposure() {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	suite.position.Apply(100, 50.0, at)

	suite.Assert().InDelta(5500.0, suite.position.Exposure(55.0), 1e-9)
}

func TestBarMidpoint(t *testing.T) {
	bar := Bar{
		Symbol: "AAPL",
		High:   110.0,
		Low:    90.0,
	}

	assert.InDelta(t, 100.0, bar.Midpoint(), 1e-9)
}

func TestPriceFieldOf(t *testing.T) {
	bar := Bar{
		Open:  10.0,
		High:  12.0,
		Low:   9.0,
		Close: 11.0,
	}

	tests := []struct {
		field    PriceField
		expected float64
	}{
		{PriceFieldOpen, 10.0},
		{PriceFieldHigh, 12.0},
		{PriceFieldLow, 9.0},
		{PriceFieldClose, 11.0},
	}

	for _, tc := range tests {
		t.Run(string(tc.field), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.field.Of(bar))
		})
	}
}
