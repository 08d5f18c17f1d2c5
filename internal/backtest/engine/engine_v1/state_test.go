package engine

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type BacktestStateTestSuite struct {
	suite.Suite
	state  *BacktestState
	logger *logger.Logger
}

func (suite *BacktestStateTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()

	var err error
	suite.state, err = NewBacktestState(suite.logger)
	suite.Require().NoError(err)
	suite.Require().NotNil(suite.state)
}

func (suite *BacktestStateTestSuite) TearDownSuite() {
	if suite.state != nil {
		suite.state.Close()
	}
}

func (suite *BacktestStateTestSuite) SetupTest() {
	err := suite.state.Initialize(10000)
	suite.Require().NoError(err)
}

func (suite *BacktestStateTestSuite) TearDownTest() {
	err := suite.state.Cleanup()
	suite.Require().NoError(err)
}

func TestBacktestStateSuite(t *testing.T) {
	suite.Run(t, new(BacktestStateTestSuite))
}

func (suite *BacktestStateTestSuite) buyFill(quantity, price float64, at time.Time) Fill {
	return Fill{
		IntentID: "intent-buy",
		Symbol:   "AAPL",
		Quantity: quantity,
		Price:    price,
		Time:     at,
		Fee:      1.0,
		RuleName: "enter_long",
		Reason:   types.Reason{Reason: types.IntentReasonEntry, Message: "test"},
	}
}

func (suite *BacktestStateTestSuite) sellFill(quantity, price float64, at time.Time) Fill {
	return Fill{
		IntentID: "intent-sell",
		Symbol:   "AAPL",
		Quantity: -quantity,
		Price:    price,
		Time:     at,
		Fee:      1.0,
		RuleName: "exit_long",
		Reason:   types.Reason{Reason: types.IntentReasonExit, Message: "test"},
	}
}

func (suite *BacktestStateTestSuite) TestApplyFillTracksPosition() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tx, err := suite.state.ApplyFill(suite.buyFill(100, 50, at))
	suite.Require().NoError(err)

	suite.Assert().Equal(100.0, tx.Quantity)
	suite.Assert().Equal(0.0, tx.RealizedPnL)

	position := suite.state.GetPosition("AAPL")
	suite.Assert().Equal(100.0, position.Quantity)
	suite.Assert().Equal(at, position.OpenTimestamp)
}

func (suite *BacktestStateTestSuite) TestPositionEqualsSumOfTransactions() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.ApplyFill(suite.buyFill(100, 50, at))
	suite.Require().NoError(err)

	_, err = suite.state.ApplyFill(suite.buyFill(50, 55, at.AddDate(0, 0, 1)))
	suite.Require().NoError(err)

	_, err = suite.state.ApplyFill(suite.sellFill(120, 60, at.AddDate(0, 0, 2)))
	suite.Require().NoError(err)

	transactions, err := suite.state.GetAllTransactions()
	suite.Require().NoError(err)
	suite.Require().Len(transactions, 3)

	sum := 0.0
	for _, tx := range transactions {
		sum += tx.Quantity
	}

	suite.Assert().InDelta(sum, suite.state.GetPosition("AAPL").Quantity, 1e-9)
}

func (suite *BacktestStateTestSuite) TestRealizedPnLIsFIFO() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.ApplyFill(suite.buyFill(100, 50, at))
	suite.Require().NoError(err)

	_, err = suite.state.ApplyFill(suite.buyFill(100, 60, at.AddDate(0, 0, 1)))
	suite.Require().NoError(err)

	tx, err := suite.state.ApplyFill(suite.sellFill(150, 70, at.AddDate(0, 0, 2)))
	suite.Require().NoError(err)

	// 100*(70-50) + 50*(70-60) = 2500 on the FIFO basis.
	suite.Assert().InDelta(2500.0, tx.RealizedPnL, 1e-9)
}

func (suite *BacktestStateTestSuite) TestEquityIdentity() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.ApplyFill(suite.buyFill(100, 50, at))
	suite.Require().NoError(err)

	bar := types.Bar{
		Symbol: "AAPL",
		Time:   at,
		Open:   50,
		High:   56,
		Low:    49,
		Close:  55,
		Volume: 1000,
	}

	snapshot, err := suite.state.AppendSnapshot(bar)
	suite.Require().NoError(err)

	// equity = initial + realized (net of fees) + unrealized, on every bar.
	suite.Assert().InDelta(snapshot.Equity, 10000+snapshot.RealizedPnL+snapshot.UnrealizedPnL, 1e-9)
	suite.Assert().InDelta(500.0, snapshot.UnrealizedPnL, 1e-9)
	suite.Assert().InDelta(-1.0, snapshot.RealizedPnL, 1e-9)
	suite.Assert().Equal(100.0, snapshot.PositionQuantity)
}

func (suite *BacktestStateTestSuite) TestFlatAfterRoundTrip() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.ApplyFill(suite.buyFill(100, 50, at))
	suite.Require().NoError(err)

	_, err = suite.state.ApplyFill(suite.sellFill(100, 55, at.AddDate(0, 0, 1)))
	suite.Require().NoError(err)

	position := suite.state.GetPosition("AAPL")
	suite.Assert().Equal(0.0, position.Quantity)
	suite.Assert().Empty(position.Lots)

	account := suite.state.GetAccountState(at.AddDate(0, 0, 1), map[string]float64{"AAPL": 55})
	// 500 gross realized minus 2 in fees.
	suite.Assert().InDelta(498.0, account.RealizedPnL, 1e-9)
	suite.Assert().InDelta(0.0, account.UnrealizedPnL, 1e-9)
	suite.Assert().InDelta(10498.0, account.FinalEquity, 1e-9)
	suite.Assert().Empty(account.OpenPositions)
}

func (suite *BacktestStateTestSuite) TestSnapshotsPersisted() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		bar := types.Bar{
			Symbol: "AAPL",
			Time:   at.AddDate(0, 0, i),
			Open:   50,
			High:   51,
			Low:    49,
			Close:  50,
			Volume: 1000,
		}

		_, err := suite.state.AppendSnapshot(bar)
		suite.Require().NoError(err)
	}

	snapshots, err := suite.state.GetSnapshots()
	suite.Require().NoError(err)
	suite.Assert().Len(snapshots, 3)

	for _, snapshot := range snapshots {
		suite.Assert().InDelta(10000.0, snapshot.Equity, 1e-9)
	}
}

func (suite *BacktestStateTestSuite) TestGetStats() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	// Winning round trip.
	_, err := suite.state.ApplyFill(suite.buyFill(100, 50, at))
	suite.Require().NoError(err)
	_, err = suite.state.ApplyFill(suite.sellFill(100, 60, at.AddDate(0, 0, 1)))
	suite.Require().NoError(err)

	// Losing round trip.
	_, err = suite.state.ApplyFill(suite.buyFill(100, 60, at.AddDate(0, 0, 2)))
	suite.Require().NoError(err)
	_, err = suite.state.ApplyFill(suite.sellFill(100, 55, at.AddDate(0, 0, 3)))
	suite.Require().NoError(err)

	stats, err := suite.state.GetStats(at.AddDate(0, 0, 3), map[string]float64{"AAPL": 55})
	suite.Require().NoError(err)
	suite.Require().Len(stats, 1)

	result := stats[0]
	suite.Assert().Equal("AAPL", result.Symbol)
	suite.Assert().Equal(4, result.TradeResult.NumberOfTransactions)
	suite.Assert().Equal(1, result.TradeResult.NumberOfWinningExits)
	suite.Assert().Equal(1, result.TradeResult.NumberOfLosingExits)
	suite.Assert().InDelta(0.5, result.TradeResult.WinRate, 1e-9)
	suite.Assert().InDelta(4.0, result.TotalFees, 1e-9)
}

func (suite *BacktestStateTestSuite) TestWrite() {
	tmpDir := suite.T().TempDir()
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.ApplyFill(suite.buyFill(100, 50, at))
	suite.Require().NoError(err)

	bar := types.Bar{Symbol: "AAPL", Time: at, Open: 50, High: 51, Low: 49, Close: 50, Volume: 1000}
	_, err = suite.state.AppendSnapshot(bar)
	suite.Require().NoError(err)

	err = suite.state.Write(tmpDir)
	suite.Require().NoError(err)

	suite.Assert().FileExists(tmpDir + "/transactions.parquet")
	suite.Assert().FileExists(tmpDir + "/snapshots.parquet")
}
