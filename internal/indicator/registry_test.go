package indicator

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	registry := NewRegistry()

	names := registry.ListIndicators()
	assert.Len(t, names, 3)
	assert.Contains(t, names, types.IndicatorTypeSMA)
	assert.Contains(t, names, types.IndicatorTypeDualRSI)
	assert.Contains(t, names, types.IndicatorTypeDVO)
}

func TestRegistryCreate(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name      string
		indicator types.IndicatorType
		params    map[string]any
		wantErr   errors.ErrorCode
	}{
		{
			name:      "sma with int period",
			indicator: types.IndicatorTypeSMA,
			params:    map[string]any{"period": 20},
		},
		{
			name:      "sma with yaml float period",
			indicator: types.IndicatorTypeSMA,
			params:    map[string]any{"period": float64(20)},
		},
		{
			name:      "sma missing period",
			indicator: types.IndicatorTypeSMA,
			params:    map[string]any{},
			wantErr:   errors.ErrCodeMissingParameter,
		},
		{
			name:      "sma string period",
			indicator: types.IndicatorTypeSMA,
			params:    map[string]any{"period": "20"},
			wantErr:   errors.ErrCodeInvalidParameter,
		},
		{
			name:      "dual rsi",
			indicator: types.IndicatorTypeDualRSI,
			params:    map[string]any{"fast_period": 2, "slow_period": 5},
		},
		{
			name:      "dvo",
			indicator: types.IndicatorTypeDVO,
			params:    map[string]any{"smooth_period": 2, "lookback": 126},
		},
		{
			name:      "unknown indicator",
			indicator: types.IndicatorType("macd"),
			params:    map[string]any{},
			wantErr:   errors.ErrCodeIndicatorNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			instance, err := registry.Create(tc.indicator, tc.params)

			if tc.wantErr != 0 {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tc.wantErr))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.indicator, instance.Name())
		})
	}
}

func TestRegistryDuplicateFactory(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterFactory(types.IndicatorTypeSMA, NewSMAFromParams)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndicatorAlreadyExists))
}
