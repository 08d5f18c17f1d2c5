package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
)

// OnProcessDataCallback is called for each bar processed.
type OnProcessDataCallback func(current int, total int) error

// OnRunEndCallback is called after results have been written (always called
// once the bar loop started, even on error).
type OnRunEndCallback func(resultFolderPath string, err error)

// LifecycleCallbacks holds the lifecycle callback functions for the backtest
// engine. All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnProcessData *OnProcessDataCallback
	OnRunEnd      *OnRunEndCallback
}

type Engine interface {
	// Initialize the engine with the given engine configuration (YAML).
	Initialize(config string) error
	// SetStrategyPath sets the path to the strategy configuration file.
	SetStrategyPath(path string) error
	// SetStrategyContent sets the strategy configuration directly from string
	// content. This is an alternative to SetStrategyPath for programmatic use.
	SetStrategyContent(config string) error
	// SetDataPath sets the path to the market data file (parquet or csv).
	SetDataPath(path string) error
	// SetResultsFolder sets the output directory for saving backtest results.
	SetResultsFolder(folder string) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// Run executes the backtest. The context can be used to cancel the run.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
