// Package signal evaluates boolean conditions over indicator outputs.
//
// The engine holds named columns: indicator series registered by the
// orchestrator and derived signal columns built from them. Signal columns are
// 0/1 series aligned to the bar sequence; an undefined (NaN) operand always
// yields false, and a crossover can never fire on the first bar of a series
// because no prior value exists.
package signal

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Relation is a pairwise comparison operator.
type Relation string

const (
	RelationGT  Relation = "gt"
	RelationGTE Relation = "gte"
	RelationLT  Relation = "lt"
	RelationLTE Relation = "lte"
	RelationEQ  Relation = "eq"
)

// Direction selects which transition a crossover fires on.
type Direction string

const (
	// DirectionAbove fires on the bar where A moves from not-above to above B.
	DirectionAbove Direction = "above"
	// DirectionBelow fires on the bar where A moves from not-below to below B.
	DirectionBelow Direction = "below"
)

// Mode controls threshold semantics.
type Mode string

const (
	// ModeLevel is true on every bar the relation holds.
	ModeLevel Mode = "level"
	// ModeCross is true only on the first qualifying bar of each contiguous
	// qualifying stretch.
	ModeCross Mode = "cross"
)

// Engine holds the named columns of one simulation run. Columns are computed
// eagerly over the full series when added; the orchestrator replays them
// bar-by-bar through the rule engine.
type Engine struct {
	columns map[string]types.IndicatorSeries
	length  int
}

// NewEngine creates an empty signal engine.
func NewEngine() *Engine {
	return &Engine{
		columns: make(map[string]types.IndicatorSeries),
		length:  0,
	}
}

// AddColumn registers a pre-computed series (typically an indicator output)
// under its name.
func (e *Engine) AddColumn(series types.IndicatorSeries) error {
	if _, exists := e.columns[series.Name]; exists {
		return errors.Newf(errors.ErrCodeSignalAlreadyExists, "column %s already registered", series.Name)
	}

	if e.length == 0 {
		e.length = series.Len()
	} else if series.Len() != e.length {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"column %s length %d does not match engine length %d", series.Name, series.Len(), e.length)
	}

	e.columns[series.Name] = series

	return nil
}

// Column resolves a column by name. Unknown names fail with
// ErrCodeUnknownSignalColumn.
func (e *Engine) Column(name string) (types.IndicatorSeries, error) {
	series, exists := e.columns[name]
	if !exists {
		return types.IndicatorSeries{}, errors.Newf(errors.ErrCodeUnknownSignalColumn, "signal column %s is not registered", name)
	}

	return series, nil
}

// HasColumn reports whether a column is registered.
func (e *Engine) HasColumn(name string) bool {
	_, exists := e.columns[name]

	return exists
}

// True reports whether the named signal column is true at bar index i.
// Undefined values are false.
func (e *Engine) True(name string, i int) (bool, error) {
	series, err := e.Column(name)
	if err != nil {
		return false, err
	}

	value := series.At(i)

	return !math.IsNaN(value) && value == 1, nil
}

// AddComparison registers a 0/1 column that is true at bar t when
// relation(A[t], B[t]) holds. Undefined operands yield false.
func (e *Engine) AddComparison(name, columnA, columnB string, relation Relation) error {
	a, err := e.Column(columnA)
	if err != nil {
		return err
	}

	b, err := e.Column(columnB)
	if err != nil {
		return err
	}

	if err := validateRelation(relation); err != nil {
		return err
	}

	series := boolSeries(name, a)
	for i := 0; i < a.Len(); i++ {
		if relationHolds(relation, a.At(i), b.At(i)) {
			series.Values[i] = 1
		}
	}

	return e.AddColumn(series)
}

// AddCrossover registers a 0/1 column that is true exactly on the bar where
// the A-versus-B relation transitions into the given direction, never on
// every bar the relation holds. The first bar is always false.
func (e *Engine) AddCrossover(name, columnA, columnB string, direction Direction) error {
	a, err := e.Column(columnA)
	if err != nil {
		return err
	}

	b, err := e.Column(columnB)
	if err != nil {
		return err
	}

	relation, err := relationFor(direction)
	if err != nil {
		return err
	}

	series := boolSeries(name, a)
	for i := 1; i < a.Len(); i++ {
		now := relationHolds(relation, a.At(i), b.At(i))
		prior := relationHolds(relation, a.At(i-1), b.At(i-1))

		// Both operands of the prior bar must be defined for a transition
		// to be determined.
		if now && !prior && a.Defined(i-1) && b.Defined(i-1) {
			series.Values[i] = 1
		}
	}

	return e.AddColumn(series)
}

// AddThreshold registers a 0/1 column comparing a column against a constant.
// ModeLevel is true on every qualifying bar; ModeCross restricts to the
// transition bar only.
func (e *Engine) AddThreshold(name, column string, relation Relation, constant float64, mode Mode) error {
	src, err := e.Column(column)
	if err != nil {
		return err
	}

	if err := validateRelation(relation); err != nil {
		return err
	}

	if mode != ModeLevel && mode != ModeCross {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "threshold %s has unknown mode %q", name, mode)
	}

	series := boolSeries(name, src)

	for i := 0; i < src.Len(); i++ {
		now := relationHolds(relation, src.At(i), constant)
		if !now {
			continue
		}

		if mode == ModeLevel {
			series.Values[i] = 1

			continue
		}

		// Cross mode: fire on the first qualifying bar of each contiguous
		// qualifying stretch. A condition that holds for a hundred bars in a
		// row signals once, not a hundred times.
		if i > 0 && src.Defined(i-1) && relationHolds(relation, src.At(i-1), constant) {
			continue
		}

		series.Values[i] = 1
	}

	return e.AddColumn(series)
}

func boolSeries(name string, template types.IndicatorSeries) types.IndicatorSeries {
	series := types.NewIndicatorSeries(name, template.Times, 0)
	for i := range series.Values {
		series.Values[i] = 0
	}

	return series
}

func relationHolds(relation Relation, a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}

	switch relation {
	case RelationGT:
		return a > b
	case RelationGTE:
		return a >= b
	case RelationLT:
		return a < b
	case RelationLTE:
		return a <= b
	case RelationEQ:
		return a == b
	default:
		return false
	}
}

func validateRelation(relation Relation) error {
	switch relation {
	case RelationGT, RelationGTE, RelationLT, RelationLTE, RelationEQ:
		return nil
	default:
		return errors.Newf(errors.ErrCodeInvalidRelation, "unknown relation %q", relation)
	}
}

func relationFor(direction Direction) (Relation, error) {
	switch direction {
	case DirectionAbove:
		return RelationGT, nil
	case DirectionBelow:
		return RelationLT, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidRelation, "unknown crossover direction %q", direction)
	}
}
