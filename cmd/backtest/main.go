package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	backtest "github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// backtestAction wires the engine together from the CLI flags and runs one
// backtest: engine config + strategy config + data file in, results folder out.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	strategyPath := cmd.String("strategy")
	dataPath := cmd.String("data")
	resultsFolder := cmd.String("output")

	config, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read engine config: %w", err)
	}

	backtester := engine.NewBacktestEngineV1()

	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	if err := backtester.SetStrategyPath(strategyPath); err != nil {
		return fmt.Errorf("failed to load strategy config: %w", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	source, err := datasource.NewDuckDBDataSource(":memory:", log)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}

	if err := backtester.SetDataSource(source); err != nil {
		return err
	}

	if err := backtester.SetDataPath(dataPath); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(resultsFolder); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onProcessData := backtest.OnProcessDataCallback(func(current, total int) error {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Backtesting"),
				progressbar.OptionShowCount(),
			)
		}

		return bar.Set(current)
	})

	onRunEnd := backtest.OnRunEndCallback(func(resultFolderPath string, err error) {
		if bar != nil {
			bar.Finish()
		}

		if err == nil {
			fmt.Printf("\nResults written to %s\n", resultFolderPath)
		}
	})

	return backtester.Run(ctx, backtest.LifecycleCallbacks{
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	})
}

func main() {
	// .env is optional; flags and environment variables take over when absent.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run a backtest for a strategy config over a historical data file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the engine configuration YAML",
				Value:    "config/backtest.yaml",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "strategy",
				Aliases:  []string{"s"},
				Usage:    "Path to the strategy configuration YAML",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the market data file (parquet or csv)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Path to the results output directory",
				Value:    "results",
				Required: false,
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
