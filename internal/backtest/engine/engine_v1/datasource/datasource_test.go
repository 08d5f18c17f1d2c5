package datasource

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
	"github.com/stretchr/testify/suite"
)

type DataSourceTestSuite struct {
	suite.Suite
	bars []types.Bar
}

func (suite *DataSourceTestSuite) SetupSuite() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.bars = make([]types.Bar, 5)

	for i := range suite.bars {
		price := 100.0 + float64(i)
		suite.bars[i] = types.Bar{
			Symbol: "AAPL",
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + 0.5,
			Volume: 1000,
		}
	}
}

func TestDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DataSourceTestSuite))
}

func (suite *DataSourceTestSuite) collect(source DataSource, start, end optional.Option[time.Time]) []types.Bar {
	var bars []types.Bar

	for bar, err := range source.ReadAll(start, end) {
		suite.Require().NoError(err)

		bars = append(bars, bar)
	}

	return bars
}

func (suite *DataSourceTestSuite) TestInMemoryReadAllSortsByTime() {
	shuffled := []types.Bar{suite.bars[3], suite.bars[0], suite.bars[4], suite.bars[1], suite.bars[2]}
	source := NewInMemoryDataSource(shuffled)

	bars := suite.collect(source, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().Len(bars, 5)

	for i := 1; i < len(bars); i++ {
		suite.Assert().True(bars[i-1].Time.Before(bars[i].Time))
	}
}

func (suite *DataSourceTestSuite) TestInMemoryTimeWindow() {
	source := NewInMemoryDataSource(suite.bars)

	// The window bounds are inclusive on both ends.
	start := optional.Some(suite.bars[1].Time)
	end := optional.Some(suite.bars[3].Time)

	count, err := source.Count(start, end)
	suite.Require().NoError(err)
	suite.Assert().Equal(3, count)

	bars := suite.collect(source, start, end)
	suite.Require().Len(bars, 3)
	suite.Assert().Equal(suite.bars[1].Time, bars[0].Time)
	suite.Assert().Equal(suite.bars[3].Time, bars[2].Time)
}

func (suite *DataSourceTestSuite) TestInMemoryReadLastData() {
	source := NewInMemoryDataSource(suite.bars)

	last, err := source.ReadLastData("AAPL")
	suite.Require().NoError(err)
	suite.Assert().Equal(suite.bars[4].Time, last.Time)

	_, err = source.ReadLastData("MSFT")
	suite.Assert().Error(err)
}

func (suite *DataSourceTestSuite) TestDuckDBRoundTrip() {
	parquetPath := filepath.Join(suite.T().TempDir(), "AAPL.parquet")

	w := writer.NewDuckDBWriter(parquetPath)
	suite.Require().NoError(w.Initialize())

	for _, bar := range suite.bars {
		suite.Require().NoError(w.Write(bar))
	}

	outputPath, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Require().Equal(parquetPath, outputPath)
	suite.Require().NoError(w.Close())

	source, err := NewDuckDBDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)

	defer source.Close()

	suite.Require().NoError(source.Initialize(parquetPath))

	count, err := source.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Assert().Equal(len(suite.bars), count)

	bars := suite.collect(source, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().Len(bars, len(suite.bars))
	suite.Assert().Equal(suite.bars[0].Open, bars[0].Open)
	suite.Assert().Equal(suite.bars[4].Close, bars[4].Close)

	last, err := source.ReadLastData("AAPL")
	suite.Require().NoError(err)
	suite.Assert().Equal(suite.bars[4].Close, last.Close)
}

func (suite *DataSourceTestSuite) TestDuckDBTimeWindow() {
	parquetPath := filepath.Join(suite.T().TempDir(), "AAPL.parquet")

	w := writer.NewDuckDBWriter(parquetPath)
	suite.Require().NoError(w.Initialize())

	for _, bar := range suite.bars {
		suite.Require().NoError(w.Write(bar))
	}

	_, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Require().NoError(w.Close())

	source, err := NewDuckDBDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)

	defer source.Close()

	suite.Require().NoError(source.Initialize(parquetPath))

	start := optional.Some(suite.bars[2].Time)

	count, err := source.Count(start, optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Assert().Equal(3, count)

	bars := suite.collect(source, start, optional.None[time.Time]())
	suite.Require().Len(bars, 3)
	suite.Assert().WithinDuration(suite.bars[2].Time, bars[0].Time, 0)
}
