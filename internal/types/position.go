package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one FIFO cost-basis lot of an open position.
type Lot struct {
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	Price    float64 `yaml:"price" json:"price" csv:"price"`
}

// Position is the per-instrument running quantity and FIFO cost basis,
// derived from the ordered sequence of transactions. It is mutated only by
// applying a transaction.
type Position struct {
	Symbol string `yaml:"symbol" json:"symbol" csv:"symbol"`
	// Quantity equals the signed sum of all applied transactions.
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	// Lots holds the open FIFO lots, oldest first.
	Lots          []Lot     `yaml:"lots" json:"lots" csv:"-"`
	OpenTimestamp time.Time `yaml:"open_timestamp" json:"open_timestamp" csv:"open_timestamp"`
}

// Apply folds a signed fill into the position and returns the realized P&L
// for any quantity that reduced existing lots, matched FIFO. Buys append a
// lot; sells consume lots oldest-first.
func (p *Position) Apply(quantity, price float64, at time.Time) float64 {
	if quantity > 0 {
		if p.Quantity == 0 {
			p.OpenTimestamp = at
		}

		p.Lots = append(p.Lots, Lot{Quantity: quantity, Price: price})
		p.Quantity += quantity

		return 0
	}

	remaining := -quantity
	realized := decimal.Zero
	exitPrice := decimal.NewFromFloat(price)

	for remaining > 0 && len(p.Lots) > 0 {
		lot := &p.Lots[0]

		matched := lot.Quantity
		if matched > remaining {
			matched = remaining
		}

		matchedDec := decimal.NewFromFloat(matched)
		entryDec := matchedDec.Mul(decimal.NewFromFloat(lot.Price))
		exitDec := matchedDec.Mul(exitPrice)
		realized = realized.Add(exitDec.Sub(entryDec))

		lot.Quantity -= matched
		remaining -= matched

		if lot.Quantity <= 0 {
			p.Lots = p.Lots[1:]
		}
	}

	p.Quantity += quantity

	result, _ := realized.Float64()

	return result
}

// AverageEntryPrice returns the quantity-weighted average price of the open
// FIFO lots. Zero when flat.
func (p *Position) AverageEntryPrice() float64 {
	if p.Quantity == 0 {
		return 0
	}

	total := decimal.Zero
	qty := decimal.Zero

	for _, lot := range p.Lots {
		lotQty := decimal.NewFromFloat(lot.Quantity)
		total = total.Add(lotQty.Mul(decimal.NewFromFloat(lot.Price)))
		qty = qty.Add(lotQty)
	}

	if qty.IsZero() {
		return 0
	}

	result, _ := total.Div(qty).Float64()

	return result
}

// Exposure returns the dollar value of the open position at the given price.
func (p *Position) Exposure(price float64) float64 {
	result, _ := decimal.NewFromFloat(p.Quantity).Mul(decimal.NewFromFloat(price)).Float64()

	return result
}

// UnrealizedPnL returns the open-position profit against the given mark
// price, computed on the FIFO lot basis.
func (p *Position) UnrealizedPnL(markPrice float64) float64 {
	if p.Quantity == 0 {
		return 0
	}

	mark := decimal.NewFromFloat(markPrice)
	total := decimal.Zero

	for _, lot := range p.Lots {
		lotQty := decimal.NewFromFloat(lot.Quantity)
		total = total.Add(lotQty.Mul(mark.Sub(decimal.NewFromFloat(lot.Price))))
	}

	result, _ := total.Float64()

	return result
}
