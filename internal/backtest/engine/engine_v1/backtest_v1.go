package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/rule"
	"github.com/rxtech-lab/argo-backtest/internal/signal"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1 struct {
	config            BacktestEngineV1Config
	strategyPath      string
	strategyContent   string
	dataPath          string
	resultsFolder     string
	log               *logger.Logger
	indicatorRegistry indicator.Registry
	state             *BacktestState
	datasource        datasource.DataSource
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:            EmptyConfig(),
		strategyPath:      "",
		strategyContent:   "",
		dataPath:          "",
		resultsFolder:     "",
		log:               nil,
		indicatorRegistry: nil,
		state:             nil,
		datasource:        nil,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	err := yaml.Unmarshal([]byte(config), &b.config)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	if b.config.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "initial capital must be positive, got %f", b.config.InitialCapital)
	}

	var loggerError error

	b.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	b.log.Debug("Backtest engine initialized",
		zap.String("config", config),
	)

	b.indicatorRegistry = indicator.NewRegistry()

	b.state, err = NewBacktestState(b.log)
	if err != nil {
		return fmt.Errorf("failed to create backtest state: %w", err)
	}

	return nil
}

// SetStrategyPath implements engine.Engine.
func (b *BacktestEngineV1) SetStrategyPath(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		b.log.Error("Failed to read strategy config",
			zap.String("path", path),
			zap.Error(err),
		)

		return err
	}

	b.strategyPath = path
	b.strategyContent = string(content)

	return nil
}

// SetStrategyContent implements engine.Engine.
func (b *BacktestEngineV1) SetStrategyContent(config string) error {
	b.strategyPath = ""
	b.strategyContent = config

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		b.log.Error("Failed to get absolute path",
			zap.String("path", path),
			zap.Error(err),
		)

		return err
	}

	b.dataPath = absPath
	b.log.Debug("Data path set",
		zap.String("path", absPath),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(dataSource datasource.DataSource) error {
	b.datasource = dataSource

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

// Run implements engine.Engine. It loads the bar history, computes every
// indicator column, derives the signal columns, then replays the bars in
// order: pending order intents are evaluated against each bar before the
// bar's own signals are allowed to queue new intents, so no order ever
// executes on information from its own signal bar.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) error {
	if err := b.preRunCheck(); err != nil {
		return err
	}

	strategyConfig, err := strategy.Load(b.strategyContent)
	if err != nil {
		return err
	}

	if err := b.state.Initialize(b.config.InitialCapital); err != nil {
		return fmt.Errorf("failed to initialize state: %w", err)
	}

	if b.dataPath != "" {
		if err := b.datasource.Initialize(b.dataPath); err != nil {
			return fmt.Errorf("failed to initialize data source: %w", err)
		}
	}

	bars, err := b.loadBars()
	if err != nil {
		return err
	}

	if len(bars) == 0 {
		return errors.New(errors.ErrCodeDataNotFound, "no bars in the selected period")
	}

	signals, err := b.buildSignals(strategyConfig, bars)
	if err != nil {
		return err
	}

	rules, err := buildRules(strategyConfig)
	if err != nil {
		return err
	}

	ruleEngine, err := rule.NewEngine(signals, rules)
	if err != nil {
		return err
	}

	commissionFee := commission_fee.GetCommissionFeeHandler(b.config.Broker)
	simulator := NewExecutionSimulator(b.state, commissionFee, b.config.DecimalPrecision, b.log)

	resultFolderPath := b.resultFolder(strategyConfig)

	runErr := b.runBarLoop(ctx, bars, strategyConfig, ruleEngine, simulator, callbacks)
	if runErr == nil {
		runErr = b.writeResults(bars[len(bars)-1], resultFolderPath)
	}

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(resultFolderPath, runErr)
	}

	if cleanupErr := b.state.Cleanup(); cleanupErr != nil && runErr == nil {
		runErr = cleanupErr
	}

	return runErr
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.log == nil || b.state == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine is not initialized")
	}

	if b.strategyContent == "" {
		return errors.New(errors.ErrCodeBacktestNoStrategy, "no strategy config set")
	}

	if b.datasource == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "no data source set")
	}

	if b.resultsFolder == "" {
		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	return nil
}

func (b *BacktestEngineV1) loadBars() ([]types.Bar, error) {
	count, err := b.datasource.Count(b.config.StartTime, b.config.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to get data count: %w", err)
	}

	bars := make([]types.Bar, 0, count)

	for bar, err := range b.datasource.ReadAll(b.config.StartTime, b.config.EndTime) {
		if err != nil {
			return nil, fmt.Errorf("failed to read data: %w", err)
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// buildSignals computes every indicator column over the full bar history and
// registers the derived signal columns in declaration order. Indicator
// computations are independent of each other and run concurrently.
func (b *BacktestEngineV1) buildSignals(cfg strategy.Config, bars []types.Bar) (*signal.Engine, error) {
	signals := signal.NewEngine()

	series := make([]types.IndicatorSeries, len(cfg.Indicators))
	computeErrs := make([]error, len(cfg.Indicators))

	var wg sync.WaitGroup

	for i, indicatorConfig := range cfg.Indicators {
		instance, err := b.indicatorRegistry.Create(types.IndicatorType(indicatorConfig.Type), indicatorConfig.Params)
		if err != nil {
			return nil, err
		}

		wg.Add(1)

		go func(i int, name string, instance indicator.Indicator) {
			defer wg.Done()

			computed, err := instance.Compute(bars)
			if err != nil {
				computeErrs[i] = err

				return
			}

			// The registry name of the indicator is replaced with the
			// column name declared in the strategy config.
			computed.Name = name
			series[i] = computed
		}(i, indicatorConfig.Name, instance)
	}

	wg.Wait()

	for i, err := range computeErrs {
		if err != nil {
			return nil, fmt.Errorf("failed to compute indicator %s: %w", cfg.Indicators[i].Name, err)
		}
	}

	for _, s := range series {
		if err := signals.AddColumn(s); err != nil {
			return nil, err
		}
	}

	for _, signalConfig := range cfg.Signals {
		if err := signalConfig.ApplySignal(signals); err != nil {
			return nil, err
		}
	}

	return signals, nil
}

func buildRules(cfg strategy.Config) ([]rule.Rule, error) {
	rules := make([]rule.Rule, 0, len(cfg.Rules))

	for _, ruleConfig := range cfg.Rules {
		built, err := ruleConfig.BuildRule(cfg.TradeQuantity)
		if err != nil {
			return nil, err
		}

		rules = append(rules, built)
	}

	return rules, nil
}

func (b *BacktestEngineV1) runBarLoop(
	ctx context.Context,
	bars []types.Bar,
	cfg strategy.Config,
	ruleEngine *rule.Engine,
	simulator *ExecutionSimulator,
	callbacks engine.LifecycleCallbacks,
) error {
	total := len(bars)

	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Fill pending intents queued on earlier bars first, then let
		// this bar's signals queue new ones.
		if _, err := simulator.ProcessBar(bar); err != nil {
			return err
		}

		position := b.state.GetPosition(cfg.Symbol)

		intents, err := ruleEngine.Evaluate(i, bar, position)
		if err != nil {
			return err
		}

		simulator.Queue(intents)

		if _, err := b.state.AppendSnapshot(bar); err != nil {
			return err
		}

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(i+1, total); err != nil {
				return err
			}
		}
	}

	simulator.DropRemaining()

	return nil
}

func (b *BacktestEngineV1) writeResults(finalBar types.Bar, resultFolderPath string) error {
	if err := os.MkdirAll(resultFolderPath, 0755); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}

	if err := b.state.Write(resultFolderPath); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	markPrices := map[string]float64{finalBar.Symbol: finalBar.Close}

	stats, err := b.state.GetStats(finalBar.Time, markPrices)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	statsPath := filepath.Join(resultFolderPath, "stats.yaml")
	if err := types.WriteRunStats(statsPath, stats); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}

	b.log.Info("Backtest results written",
		zap.String("folder", resultFolderPath),
	)

	return nil
}

func (b *BacktestEngineV1) resultFolder(cfg strategy.Config) string {
	name := cfg.Name
	if name == "" {
		name = "strategy"
	}

	dataName := "data"
	if b.dataPath != "" {
		dataName = strings.TrimSuffix(filepath.Base(b.dataPath), filepath.Ext(b.dataPath))
	}

	return filepath.Join(b.resultsFolder, fmt.Sprintf("%s_%s", dataName, name))
}
