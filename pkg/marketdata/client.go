// Package marketdata downloads historical bar data from external providers
// and stores it as Parquet files the backtest engine can read directly.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderAlpaca  ProviderType = "alpaca"
)

// WriterType defines the type of market data writer.
type WriterType string

const (
	WriterDuckDB WriterType = "duckdb"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType    ProviderType `validate:"required,oneof=polygon alpaca"`
	WriterType      WriterType   `validate:"required,oneof=duckdb"`
	DataPath        string       `validate:"required"`
	PolygonApiKey   string       `validate:"required_if=ProviderType polygon"`
	AlpacaApiKey    string       `validate:"required_if=ProviderType alpaca"`
	AlpacaApiSecret string       `validate:"required_if=ProviderType alpaca"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Ticker     string          `validate:"required"`
	StartDate  time.Time       `validate:"required"`
	EndDate    time.Time       `validate:"required,gtfield=StartDate"`
	Multiplier int             `validate:"required,min=1"`
	Timespan   models.Timespan `validate:"required"`
}

// Client is the market data client responsible for downloading data from
// providers and storing it using writers.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	var marketProvider provider.Provider

	var err error

	switch config.ProviderType {
	case ProviderPolygon:
		marketProvider, err = provider.NewPolygonClient(config.PolygonApiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Polygon client: %w", err)
		}
	case ProviderAlpaca:
		marketProvider, err = provider.NewAlpacaClient(provider.AlpacaCredentials{
			APIKey:    config.AlpacaApiKey,
			APISecret: config.AlpacaApiSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Alpaca client: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.ProviderType)
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download initiates a market data download with the given parameters and
// returns the path of the written Parquet file. The context can be used to
// cancel the download operation.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", fmt.Errorf("invalid download parameters: %w", err)
	}

	marketWriter, err := c.setupWriter(params)
	if err != nil {
		return "", fmt.Errorf("failed to setup writer: %w", err)
	}

	c.provider.ConfigWriter(marketWriter)

	path, err := c.provider.Download(
		ctx,
		params.Ticker,
		params.StartDate,
		params.EndDate,
		params.Multiplier,
		params.Timespan,
		c.onProgress,
	)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	return path, nil
}

// setupWriter builds the appropriate market data writer based on configuration.
func (c *Client) setupWriter(params DownloadParams) (writer.MarketDataWriter, error) {
	switch c.config.WriterType {
	case WriterDuckDB:
		// Filename: TICKER_START_END_MULTIPLIER_TIMESPAN.parquet
		outputFileName := fmt.Sprintf("%s_%s_%s_%d_%s.parquet",
			params.Ticker,
			params.StartDate.Format("2006-01-02"),
			params.EndDate.Format("2006-01-02"),
			params.Multiplier,
			params.Timespan)
		outputPath := filepath.Join(c.config.DataPath, outputFileName)

		if _, err := os.Stat(c.config.DataPath); os.IsNotExist(err) {
			if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data path %s: %w", c.config.DataPath, err)
			}
		}

		return writer.NewDuckDBWriter(outputPath), nil
	default:
		return nil, fmt.Errorf("unsupported writer type: %s", c.config.WriterType)
	}
}
