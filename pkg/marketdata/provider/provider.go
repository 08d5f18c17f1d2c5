package provider

import (
	"context"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderAlpaca  ProviderType = "alpaca"
)

type OnDownloadProgress = func(current float64, total float64, message string)

type Provider interface {
	// ConfigWriter configures the writer the downloaded bars are streamed
	// into. It could be a file, a database, etc.
	ConfigWriter(writer writer.MarketDataWriter)
	// Download downloads bars for the given ticker and date range and
	// returns the path the writer finalized to. The context can be used to
	// cancel the download operation.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error)
}

// AlpacaCredentials holds the API key pair for the Alpaca data API.
type AlpacaCredentials struct {
	APIKey    string
	APISecret string
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires API key string config")
		}

		return NewPolygonClient(apiKey)
	case ProviderAlpaca:
		credentials, ok := config.(AlpacaCredentials)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "alpaca provider requires AlpacaCredentials config")
		}

		return NewAlpacaClient(credentials)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
