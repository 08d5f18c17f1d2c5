package provider

import (
	"context"
	"fmt"
	"log"
	"time"

	alpacadata "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
)

// AlpacaClient downloads historical bars via the Alpaca market-data API.
type AlpacaClient struct {
	client *alpacadata.Client
	writer writer.MarketDataWriter
}

func NewAlpacaClient(credentials AlpacaCredentials) (Provider, error) {
	if credentials.APIKey == "" || credentials.APISecret == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "alpaca API key and secret are required")
	}

	client := alpacadata.NewClient(alpacadata.ClientOpts{
		APIKey:    credentials.APIKey,
		APISecret: credentials.APISecret,
	})

	return &AlpacaClient{
		client: client,
		writer: nil,
	}, nil
}

func (c *AlpacaClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

func (c *AlpacaClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeInvalidProvider, "no writer configured for AlpacaClient, call ConfigWriter first")
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	err = c.writer.Initialize()
	if err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	defer func() {
		if cerr := c.writer.Close(); cerr != nil {
			if err == nil {
				err = fmt.Errorf("error closing writer: %w", cerr)
			} else {
				log.Printf("Error closing writer after another error: %v", cerr)
			}
		}
	}()

	bars, err := c.client.GetBars(ticker, alpacadata.GetBarsRequest{
		TimeFrame: timeFrameFor(multiplier, timespan),
		Start:     startDate,
		End:       endDate,
	})
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch alpaca bars for %s", ticker)
	}

	total := float64(len(bars))

	for i, ab := range bars {
		bar := types.Bar{
			Symbol: ticker,
			Time:   ab.Timestamp,
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: float64(ab.Volume),
		}

		if err = c.writer.Write(bar); err != nil {
			return "", fmt.Errorf("failed to write data: %w", err)
		}

		if onProgress != nil && (i+1)%1000 == 0 {
			onProgress(float64(i+1), total, fmt.Sprintf("Downloading %s", ticker))
		}
	}

	log.Printf("Finished downloading %d data points for %s.", len(bars), ticker)

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}

// timeFrameFor translates the polygon-style multiplier and timespan unit
// into the Alpaca bar timeframe.
func timeFrameFor(multiplier int, timespan models.Timespan) alpacadata.TimeFrame {
	switch timespan {
	case models.Minute:
		return alpacadata.NewTimeFrame(multiplier, alpacadata.Min)
	case models.Hour:
		return alpacadata.NewTimeFrame(multiplier, alpacadata.Hour)
	case models.Week:
		return alpacadata.OneWeek
	case models.Month:
		return alpacadata.OneMonth
	default:
		return alpacadata.OneDay
	}
}
