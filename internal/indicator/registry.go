package indicator

import (
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Factory builds an indicator from named numeric parameters. Unknown or
// invalid parameters fail at configuration-load time, before any bar is
// processed.
type Factory func(params map[string]any) (Indicator, error)

// Registry resolves indicator type names to factories.
type Registry interface {
	RegisterFactory(name types.IndicatorType, factory Factory) error
	Create(name types.IndicatorType, params map[string]any) (Indicator, error)
	ListIndicators() []types.IndicatorType
}

// RegistryV1 is the default thread-safe registry implementation.
type RegistryV1 struct {
	factories map[types.IndicatorType]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a registry pre-populated with all built-in indicators.
func NewRegistry() Registry {
	r := &RegistryV1{
		factories: make(map[types.IndicatorType]Factory),
		mu:        sync.RWMutex{},
	}

	// Built-ins cannot collide on an empty registry.
	_ = r.RegisterFactory(types.IndicatorTypeSMA, NewSMAFromParams)
	_ = r.RegisterFactory(types.IndicatorTypeDualRSI, NewDualRSIFromParams)
	_ = r.RegisterFactory(types.IndicatorTypeDVO, NewDVOFromParams)

	return r
}

// RegisterFactory adds an indicator factory to the registry.
func (r *RegistryV1) RegisterFactory(name types.IndicatorType, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Create resolves the named factory and builds an indicator with the given
// parameters. Unknown names fail fast.
func (r *RegistryV1) Create(name types.IndicatorType, params map[string]any) (Indicator, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", name)
	}

	return factory(params)
}

// ListIndicators returns all registered indicator type names.
func (r *RegistryV1) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// intParam extracts a positive integer parameter, accepting YAML's int or
// float decodings.
func intParam(params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeMissingParameter, "missing parameter %q", key)
	}

	var value int

	switch v := raw.(type) {
	case int:
		value = v
	case float64:
		value = int(v)
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be an integer, got %T", key, raw)
	}

	if value <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "parameter %q must be a positive integer, got %d", key, value)
	}

	return value, nil
}
