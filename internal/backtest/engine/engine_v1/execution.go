package engine

import (
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"go.uber.org/zap"
)

// ExecutionSimulator applies queued order intents against subsequent bar
// prices. An intent generated using information through bar t can only fill
// on bar t+1 or later; the orchestrator queues intents after a bar is fully
// processed, and the simulator additionally guards against same-bar fills so
// the no-lookahead invariant holds even if an intent is misqueued.
type ExecutionSimulator struct {
	state            *BacktestState
	commission       commission_fee.CommissionFee
	logger           *logger.Logger
	decimalPrecision int
	pending          []types.OrderIntent
}

// NewExecutionSimulator creates a simulator writing fills into the given
// ledger state.
func NewExecutionSimulator(state *BacktestState, commission commission_fee.CommissionFee, decimalPrecision int, logger *logger.Logger) *ExecutionSimulator {
	return &ExecutionSimulator{
		state:            state,
		commission:       commission,
		logger:           logger,
		decimalPrecision: decimalPrecision,
		pending:          []types.OrderIntent{},
	}
}

// Queue adds freshly generated intents to the pending book. An intent with
// the replace flag first cancels other not-yet-filled intents scheduled from
// the same bar on the same instrument.
func (s *ExecutionSimulator) Queue(intents []types.OrderIntent) {
	for _, intent := range intents {
		if intent.Replace {
			s.pending = slices.DeleteFunc(s.pending, func(p types.OrderIntent) bool {
				cancelled := p.Symbol == intent.Symbol && p.CreatedAt.Equal(intent.CreatedAt)
				if cancelled {
					s.logger.Debug("Intent cancelled by replacing intent",
						zap.String("cancelled", p.ID),
						zap.String("replaced_by", intent.ID),
					)
				}

				return cancelled
			})
		}

		s.pending = append(s.pending, intent)
	}
}

// PendingCount returns the number of unfilled intents.
func (s *ExecutionSimulator) PendingCount() int {
	return len(s.pending)
}

// ProcessBar evaluates every pending intent against the new bar and returns
// the transactions recorded for fills. Market intents always fill in full at
// the configured price field; limit and stop-limit intents fill only when
// their price condition is met within the bar's high-low range and otherwise
// stay pending.
func (s *ExecutionSimulator) ProcessBar(bar types.Bar) ([]types.Transaction, error) {
	if len(s.pending) == 0 {
		return nil, nil
	}

	var remaining []types.OrderIntent

	var transactions []types.Transaction

	for _, intent := range s.pending {
		// No-lookahead guard: never fill on the bar the intent was
		// generated from.
		if !intent.CreatedAt.Before(bar.Time) {
			remaining = append(remaining, intent)

			continue
		}

		if intent.Symbol != bar.Symbol {
			remaining = append(remaining, intent)

			continue
		}

		fillPrice, fillable, keepPending := s.evaluate(&intent, bar)
		if !fillable {
			if keepPending {
				remaining = append(remaining, intent)
			}

			continue
		}

		tx, filled, err := s.fill(intent, bar, fillPrice)
		if err != nil {
			return nil, err
		}

		if filled {
			transactions = append(transactions, tx)
		}
	}

	s.pending = remaining

	return transactions, nil
}

// evaluate decides whether an intent fills within this bar, and at what
// price. The third return reports whether an unfilled intent remains
// pending for later bars.
func (s *ExecutionSimulator) evaluate(intent *types.OrderIntent, bar types.Bar) (float64, bool, bool) {
	switch intent.OrderType {
	case types.OrderTypeMarket:
		return intent.PriceField.Of(bar), true, false

	case types.OrderTypeStopLimit:
		stop := intent.StopPrice.Unwrap()

		// The stop arms once the bar's range touches it; the intent then
		// behaves as a plain limit order from this bar on.
		armed := (intent.Side == types.SideBuy && bar.High >= stop) ||
			(intent.Side == types.SideSell && bar.Low <= stop)
		if !armed {
			return 0, false, true
		}

		intent.OrderType = types.OrderTypeLimit

		return s.evaluateLimit(*intent, bar)

	case types.OrderTypeLimit:
		return s.evaluateLimit(*intent, bar)

	default:
		return 0, false, false
	}
}

func (s *ExecutionSimulator) evaluateLimit(intent types.OrderIntent, bar types.Bar) (float64, bool, bool) {
	limit := intent.LimitPrice.Unwrap()

	if intent.Side == types.SideBuy {
		// A bar opening at or below the limit fills at the open; otherwise
		// the limit must be inside the bar's range.
		if bar.Open <= limit {
			return bar.Open, true, false
		}

		if bar.Low <= limit {
			return limit, true, false
		}

		return 0, false, true
	}

	if bar.Open >= limit {
		return bar.Open, true, false
	}

	if bar.High >= limit {
		return limit, true, false
	}

	return 0, false, true
}

// fill resolves the intent quantity at the fill price and records the
// transaction. Intents that resolve to zero quantity (liquidating a flat
// position, or an exposure cap already reached) are silently consumed.
func (s *ExecutionSimulator) fill(intent types.OrderIntent, bar types.Bar, fillPrice float64) (types.Transaction, bool, error) {
	position := s.state.GetPosition(intent.Symbol)

	var quantity float64

	switch {
	case intent.LiquidateAll:
		quantity = position.Quantity
	case intent.MaxExposure.IsSome():
		quantity = utils.AddOnQuantity(intent.MaxExposure.Unwrap(), position.Exposure(fillPrice), fillPrice)
	default:
		quantity = intent.Quantity
	}

	quantity = utils.RoundToDecimalPrecision(quantity, s.decimalPrecision)
	if quantity <= 0 {
		s.logger.Debug("Intent resolved to zero quantity",
			zap.String("intent", intent.ID),
			zap.String("rule", intent.RuleName),
		)

		return types.Transaction{}, false, nil
	}

	signed := quantity
	if intent.Side == types.SideSell {
		signed = -quantity
	}

	tx, err := s.state.ApplyFill(Fill{
		IntentID: intent.ID,
		Symbol:   intent.Symbol,
		Quantity: signed,
		Price:    fillPrice,
		Time:     bar.Time,
		Fee:      s.commission.Calculate(quantity),
		RuleName: intent.RuleName,
		Reason:   intent.Reason,
	})
	if err != nil {
		return types.Transaction{}, false, err
	}

	return tx, true, nil
}

// DropRemaining drops every pending intent. Called after the final bar:
// an intent generated on the last bar of the series has no next bar to fill
// on and is dropped, never recorded in the ledger.
func (s *ExecutionSimulator) DropRemaining() {
	for _, intent := range s.pending {
		s.logger.Debug("Dropping unfilled intent at end of series",
			zap.String("intent", intent.ID),
			zap.String("rule", intent.RuleName),
			zap.Time("created_at", intent.CreatedAt),
		)
	}

	s.pending = []types.OrderIntent{}
}
