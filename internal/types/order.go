package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type Side string

type OrderType string

type IntentStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

const (
	IntentStatusPending   IntentStatus = "PENDING"
	IntentStatusFilled    IntentStatus = "FILLED"
	IntentStatusCancelled IntentStatus = "CANCELLED"
	IntentStatusDropped   IntentStatus = "DROPPED"
)

const (
	IntentReasonEntry       string = "entry_signal"
	IntentReasonExit        string = "exit_signal"
	IntentReasonAddOn       string = "add_on_signal"
	IntentReasonEndOfSeries string = "end_of_series"
)

// Reason records why an order intent was generated.
type Reason struct {
	Reason  string `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	Message string `yaml:"message" json:"message" csv:"message"`
}

// OrderIntent is the output of the rule engine: a request to trade, generated
// using information available through bar t and eligible to fill on bar t+1
// or later. Intents are consumed once by the execution simulator and then
// discarded.
type OrderIntent struct {
	ID        string    `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	Symbol    string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side      Side      `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	OrderType OrderType `yaml:"order_type" json:"order_type" csv:"order_type" validate:"required,oneof=MARKET LIMIT STOP_LIMIT"`
	// Quantity is the number of shares to trade. Ignored when LiquidateAll
	// is set.
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity" validate:"gte=0"`
	// LiquidateAll closes exactly the live position size at fill time
	// ("orderqty = all"), not a fixed quantity.
	LiquidateAll bool `yaml:"liquidate_all" json:"liquidate_all" csv:"liquidate_all"`
	// MaxExposure defers sizing to fill time: quantity becomes
	// floor((max - current exposure) / fill price), clamped to zero when the
	// position is already at or above the cap.
	MaxExposure optional.Option[float64] `yaml:"max_exposure" json:"max_exposure" csv:"max_exposure"`
	// PriceField is the price of the next bar the intent executes at for
	// market orders.
	PriceField PriceField `yaml:"price_field" json:"price_field" csv:"price_field" validate:"required,oneof=open high low close"`
	// LimitPrice is required for LIMIT and STOP_LIMIT intents.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price" csv:"limit_price"`
	// StopPrice arms a STOP_LIMIT intent once touched within a bar's range.
	StopPrice optional.Option[float64] `yaml:"stop_price" json:"stop_price" csv:"stop_price"`
	// Replace cancels other not-yet-filled intents scheduled for the same
	// bar on the same instrument when the intent is queued.
	Replace bool `yaml:"replace" json:"replace" csv:"replace"`
	// CreatedAt is the timestamp of the bar whose data generated the intent.
	CreatedAt time.Time `yaml:"created_at" json:"created_at" csv:"created_at" validate:"required"`
	Reason    Reason    `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	RuleName  string    `yaml:"rule_name" json:"rule_name" csv:"rule_name" validate:"required"`
}

// Validate validates the OrderIntent struct.
func (oi *OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(oi); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderIntent, "invalid order intent", err)
	}

	if !oi.LiquidateAll && oi.MaxExposure.IsNone() && oi.Quantity <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrderIntent, "intent %s has no quantity, sizing cap, or liquidate_all", oi.ID)
	}

	if oi.OrderType != OrderTypeMarket && oi.LimitPrice.IsNone() {
		return errors.Newf(errors.ErrCodeInvalidOrderIntent, "%s intent %s requires a limit price", oi.OrderType, oi.ID)
	}

	if oi.OrderType == OrderTypeStopLimit && oi.StopPrice.IsNone() {
		return errors.Newf(errors.ErrCodeInvalidOrderIntent, "stop-limit intent %s requires a stop price", oi.ID)
	}

	return nil
}

// Transaction is a realized fill. Transactions are immutable once recorded
// and totally ordered by timestamp; the ledger only ever appends them.
type Transaction struct {
	ID     string `yaml:"id" json:"id" csv:"id"`
	Symbol string `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	// Quantity is signed: positive for buys, negative for sells.
	Quantity float64   `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required"`
	Price    float64   `yaml:"price" json:"price" csv:"price" validate:"required,gt=0"`
	Time     time.Time `yaml:"time" json:"time" csv:"time" validate:"required"`
	Fee      float64   `yaml:"fee" json:"fee" csv:"fee" validate:"gte=0"`
	// RealizedPnL is the FIFO-basis profit realized by any quantity this
	// transaction closed. Zero for pure entries.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	IntentID    string  `yaml:"intent_id" json:"intent_id" csv:"intent_id"`
	RuleName    string  `yaml:"rule_name" json:"rule_name" csv:"rule_name"`
	Reason      Reason  `yaml:"reason" json:"reason" csv:"reason"`
}
