package types

import "time"

// Bar is one OHLC(V) record for one instrument at one timestamp. Bars are
// immutable once loaded; a series is strictly increasing in time.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// PriceField selects which price of a bar an order intent executes against.
type PriceField string

const (
	PriceFieldOpen  PriceField = "open"
	PriceFieldHigh  PriceField = "high"
	PriceFieldLow   PriceField = "low"
	PriceFieldClose PriceField = "close"
)

// Of returns the selected price of the given bar. Unknown fields fall back
// to the close price.
func (f PriceField) Of(bar Bar) float64 {
	switch f {
	case PriceFieldOpen:
		return bar.Open
	case PriceFieldHigh:
		return bar.High
	case PriceFieldLow:
		return bar.Low
	case PriceFieldClose:
		return bar.Close
	default:
		return bar.Close
	}
}

// Midpoint returns the midpoint of the bar's high and low.
func (b Bar) Midpoint() float64 {
	return (b.High + b.Low) / 2
}
