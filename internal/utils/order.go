package utils

import (
	"math"
)

// AddOnQuantity computes the incremental share count for a max-dollar-exposure
// entry: floor((maxExposure - currentExposure) / price), clamped to zero when
// the position is already at or above the cap. Non-finite inputs yield zero.
func AddOnQuantity(maxExposure, currentExposure, price float64) float64 {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}

	headroom := maxExposure - currentExposure
	if headroom <= 0 {
		return 0
	}

	quantity := math.Floor(headroom / price)
	if quantity < 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return 0
	}

	return quantity
}

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}
