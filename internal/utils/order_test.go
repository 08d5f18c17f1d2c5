package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddOnQuantity(t *testing.T) {
	tests := []struct {
		name            string
		maxExposure     float64
		currentExposure float64
		price           float64
		expected        float64
	}{
		{
			name:            "flat position uses full cap",
			maxExposure:     10000,
			currentExposure: 0,
			price:           100,
			expected:        100,
		},
		{
			name:            "partial headroom rounds down",
			maxExposure:     10000,
			currentExposure: 5050,
			price:           100,
			expected:        49,
		},
		{
			name:            "at cap yields zero",
			maxExposure:     10000,
			currentExposure: 10000,
			price:           100,
			expected:        0,
		},
		{
			name:            "above cap clamps to zero",
			maxExposure:     10000,
			currentExposure: 12000,
			price:           100,
			expected:        0,
		},
		{
			name:            "zero price yields zero",
			maxExposure:     10000,
			currentExposure: 0,
			price:           0,
			expected:        0,
		},
		{
			name:            "nan price yields zero",
			maxExposure:     10000,
			currentExposure: 0,
			price:           math.NaN(),
			expected:        0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AddOnQuantity(tc.maxExposure, tc.currentExposure, tc.price))
		})
	}
}

func TestRoundToDecimalPrecision(t *testing.T) {
	assert.Equal(t, 1.23, RoundToDecimalPrecision(1.2399, 2))
	assert.Equal(t, 1.0, RoundToDecimalPrecision(1.99, 0))
	assert.Equal(t, 0.0, RoundToDecimalPrecision(0.9, 0))
}
