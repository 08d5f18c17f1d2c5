package marketdata

import (
	alpacadata "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/polygon-io/client-go/rest/models"
)

type Timespan string

const (
	TimespanOneMinute      Timespan = "1m"
	TimespanFiveMinutes    Timespan = "5m"
	TimespanFifteenMinutes Timespan = "15m"
	TimespanThirtyMinutes  Timespan = "30m"
	TimespanOneHour        Timespan = "1h"
	TimespanFourHours      Timespan = "4h"
	TimespanOneDay         Timespan = "1d"
	TimespanOneWeek        Timespan = "1w"
	TimespanOneMonth       Timespan = "1M"
)

func (t Timespan) Multiplier() int {
	switch t {
	case TimespanFiveMinutes:
		return 5
	case TimespanFifteenMinutes:
		return 15
	case TimespanThirtyMinutes:
		return 30
	case TimespanFourHours:
		return 4
	default:
		return 1
	}
}

// Timespan maps the interval to the Polygon aggregate timespan unit.
func (t Timespan) Timespan() models.Timespan {
	switch t {
	case TimespanOneMinute, TimespanFiveMinutes, TimespanFifteenMinutes, TimespanThirtyMinutes:
		return models.Minute
	case TimespanOneHour, TimespanFourHours:
		return models.Hour
	case TimespanOneDay:
		return models.Day
	case TimespanOneWeek:
		return models.Week
	case TimespanOneMonth:
		return models.Month
	default:
		return models.Day
	}
}

// TimeFrame maps the interval to the Alpaca bar timeframe.
func (t Timespan) TimeFrame() alpacadata.TimeFrame {
	switch t.Timespan() {
	case models.Minute:
		return alpacadata.NewTimeFrame(t.Multiplier(), alpacadata.Min)
	case models.Hour:
		return alpacadata.NewTimeFrame(t.Multiplier(), alpacadata.Hour)
	case models.Week:
		return alpacadata.OneWeek
	case models.Month:
		return alpacadata.OneMonth
	default:
		return alpacadata.OneDay
	}
}
