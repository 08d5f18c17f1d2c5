package datasource

import (
	"iter"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DataSource is the read-only time series store: it holds ordered OHLC(V)
// bars per instrument, loaded fully before a simulation starts. Bars are
// immutable once loaded.
type DataSource interface {
	// Initialize loads market data from the given path. Parquet and CSV
	// files are supported.
	Initialize(path string) error
	// ReadAll yields every bar in chronological order, optionally bounded
	// by the start and end times.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) iter.Seq2[types.Bar, error]
	// ReadLastData returns the final bar for a symbol.
	ReadLastData(symbol string) (types.Bar, error)
	// Count returns the number of bars within the optional time bounds.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the data source.
	Close() error
}
