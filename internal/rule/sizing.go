package rule

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SizingPolicy converts a trade signal into an order quantity. Policies are
// selected per rule at configuration time and validated before the run
// starts.
type SizingPolicy interface {
	// Validate fails with ErrCodeInvalidSizing when the policy can never
	// produce a valid quantity.
	Validate() error
	// Apply stamps the sizing onto an order intent: either a fixed quantity
	// or a fill-time exposure cap.
	Apply(intent *types.OrderIntent)
	// AllowsAddOn reports whether re-entry signals while already in a
	// position may generate incremental intents.
	AllowsAddOn() bool
}

// FixedQuantity always trades the same share count. Sustained entry signals
// do not pyramid under this policy.
type FixedQuantity struct {
	Qty float64
}

// Validate implements SizingPolicy.
func (f FixedQuantity) Validate() error {
	if f.Qty <= 0 || math.IsInf(f.Qty, 0) || math.IsNaN(f.Qty) {
		return errors.Newf(errors.ErrCodeInvalidSizing, "fixed quantity must be a positive finite number, got %f", f.Qty)
	}

	return nil
}

// Apply implements SizingPolicy.
func (f FixedQuantity) Apply(intent *types.OrderIntent) {
	intent.Quantity = f.Qty
}

// AllowsAddOn implements SizingPolicy.
func (f FixedQuantity) AllowsAddOn() bool {
	return false
}

// MaxDollarExposure sizes each entry up to a maximum dollar exposure:
// quantity = floor((max - current exposure) / fill price), clamped to zero
// once at or above the cap. Because the reference price is the next bar's
// fill price, the arithmetic runs at fill time in the execution simulator.
type MaxDollarExposure struct {
	Max float64
}

// Validate implements SizingPolicy.
func (m MaxDollarExposure) Validate() error {
	if m.Max <= 0 || math.IsInf(m.Max, 0) || math.IsNaN(m.Max) {
		return errors.Newf(errors.ErrCodeInvalidSizing, "max exposure must be a positive finite number, got %f", m.Max)
	}

	return nil
}

// Apply implements SizingPolicy.
func (m MaxDollarExposure) Apply(intent *types.OrderIntent) {
	intent.MaxExposure = optional.Some(m.Max)
}

// AllowsAddOn implements SizingPolicy.
func (m MaxDollarExposure) AllowsAddOn() bool {
	return true
}
