// Package rule maps signal transitions to order intents.
//
// The engine runs a FLAT/LONG state machine per instrument: entry rules move
// FLAT to LONG, exit rules liquidate the whole live position, and entry
// signals that fire while already LONG generate incremental add-on intents
// only when the rule's sizing policy allows it. Exit rules are always
// evaluated before entry rules on the same bar so capital and positions are
// freed first.
package rule

import (
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/signal"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Kind distinguishes entry from exit rules.
type Kind string

const (
	KindEntry Kind = "entry"
	KindExit  Kind = "exit"
)

// Rule binds a signal column to an order-generation policy.
type Rule struct {
	Name         string
	Kind         Kind
	SignalColumn string
	OrderType    types.OrderType
	// PriceField is the next-bar price a market intent executes at.
	PriceField types.PriceField
	// LimitOffset shifts the signal bar's close to build a limit price for
	// LIMIT and STOP_LIMIT intents, as a signed fraction (-0.01 bids 1%
	// below the close).
	LimitOffset optional.Option[float64]
	// StopOffset builds the stop price for STOP_LIMIT intents the same way.
	StopOffset optional.Option[float64]
	Sizing     SizingPolicy
	// Replace cancels other not-yet-filled intents for the same bar on the
	// same instrument when this rule fires.
	Replace bool
}

// Engine evaluates the configured rules against the signal engine's columns.
type Engine struct {
	rules   []Rule
	signals *signal.Engine
}

// NewEngine creates a rule engine over the given signal engine. Rules are
// validated eagerly: unknown signal columns and invalid sizing policies fail
// here, before any bar is processed.
func NewEngine(signals *signal.Engine, rules []Rule) (*Engine, error) {
	for _, r := range rules {
		if r.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidRule, "rule has no name")
		}

		if r.Kind != KindEntry && r.Kind != KindExit {
			return nil, errors.Newf(errors.ErrCodeInvalidRule, "rule %s has unknown kind %q", r.Name, r.Kind)
		}

		if !signals.HasColumn(r.SignalColumn) {
			return nil, errors.Newf(errors.ErrCodeUnknownSignalColumn,
				"rule %s references unregistered signal column %s", r.Name, r.SignalColumn)
		}

		if r.Kind == KindEntry {
			if r.Sizing == nil {
				return nil, errors.Newf(errors.ErrCodeInvalidSizing, "entry rule %s has no sizing policy", r.Name)
			}

			if err := r.Sizing.Validate(); err != nil {
				return nil, err
			}
		}
	}

	// Exits before entries is the tie-break for same-bar firing.
	ordered := make([]Rule, 0, len(rules))

	for _, r := range rules {
		if r.Kind == KindExit {
			ordered = append(ordered, r)
		}
	}

	for _, r := range rules {
		if r.Kind == KindEntry {
			ordered = append(ordered, r)
		}
	}

	return &Engine{
		rules:   ordered,
		signals: signals,
	}, nil
}

// Evaluate runs the state machine for bar index i and returns the intents
// generated from that bar's signals, exits first. The position passed in is
// the live position after the bar's fills.
func (e *Engine) Evaluate(i int, bar types.Bar, position types.Position) ([]types.OrderIntent, error) {
	var intents []types.OrderIntent

	for _, r := range e.rules {
		fired, err := e.signals.True(r.SignalColumn, i)
		if err != nil {
			return nil, err
		}

		if !fired {
			continue
		}

		switch r.Kind {
		case KindExit:
			// LONG -> FLAT only; exit signals while flat are ignored.
			if position.Quantity <= 0 {
				continue
			}

			intents = append(intents, e.buildIntent(r, bar, types.SideSell, types.IntentReasonExit, true))
		case KindEntry:
			if position.Quantity > 0 && !r.Sizing.AllowsAddOn() {
				continue
			}

			reason := types.IntentReasonEntry
			if position.Quantity > 0 {
				reason = types.IntentReasonAddOn
			}

			intent := e.buildIntent(r, bar, types.SideBuy, reason, false)
			r.Sizing.Apply(&intent)
			intents = append(intents, intent)
		}
	}

	return intents, nil
}

func (e *Engine) buildIntent(r Rule, bar types.Bar, side types.Side, reason string, liquidateAll bool) types.OrderIntent {
	intent := types.OrderIntent{
		ID:           uuid.New().String(),
		Symbol:       bar.Symbol,
		Side:         side,
		OrderType:    r.OrderType,
		LiquidateAll: liquidateAll,
		PriceField:   r.PriceField,
		Replace:      r.Replace,
		CreatedAt:    bar.Time,
		Reason: types.Reason{
			Reason:  reason,
			Message: "signal " + r.SignalColumn + " fired",
		},
		RuleName: r.Name,
	}

	if r.LimitOffset.IsSome() {
		intent.LimitPrice = optional.Some(bar.Close * (1 + r.LimitOffset.Unwrap()))
	}

	if r.StopOffset.IsSome() {
		intent.StopPrice = optional.Some(bar.Close * (1 + r.StopOffset.Unwrap()))
	}

	return intent
}
