// Package strategy defines the declarative configuration of a backtest
// strategy: indicator definitions, signal definitions, and trading rules.
// The configuration is consumed once at setup and immutable for a run;
// every cross-reference is resolved and validated before the first bar is
// simulated.
package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/rule"
	"github.com/rxtech-lab/argo-backtest/internal/signal"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full description of one strategy.
type Config struct {
	Name    string `yaml:"name" json:"name" validate:"required"`
	Symbol  string `yaml:"symbol" json:"symbol" validate:"required"`
	// TradeQuantity is the default share count used by rules without an
	// explicit sizing block.
	TradeQuantity float64           `yaml:"trade_quantity" json:"trade_quantity" validate:"gte=0"`
	Indicators    []IndicatorConfig `yaml:"indicators" json:"indicators" validate:"required,min=1,dive"`
	Signals       []SignalConfig    `yaml:"signals" json:"signals" validate:"required,min=1,dive"`
	Rules         []RuleConfig      `yaml:"rules" json:"rules" validate:"required,min=1,dive"`
}

// IndicatorConfig declares one named indicator column.
type IndicatorConfig struct {
	// Name is the column name the indicator output is registered under.
	Name string `yaml:"name" json:"name" validate:"required"`
	// Type resolves against the indicator registry.
	Type string `yaml:"type" json:"type" validate:"required"`
	// Params are the named numeric parameters of the indicator.
	Params map[string]any `yaml:"params" json:"params"`
}

// SignalConfig declares one derived signal column.
type SignalConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Op   string `yaml:"op" json:"op" validate:"required,oneof=comparison crossover threshold formula"`

	// Comparison and crossover operands.
	ColumnA string `yaml:"column_a" json:"column_a"`
	ColumnB string `yaml:"column_b" json:"column_b"`

	// Relation for comparison and threshold (gt, gte, lt, lte, eq).
	Relation string `yaml:"relation" json:"relation"`
	// Direction for crossover (above, below).
	Direction string `yaml:"direction" json:"direction"`

	// Threshold operands.
	Column   string  `yaml:"column" json:"column"`
	Constant float64 `yaml:"constant" json:"constant"`
	// Mode is "level" or "cross" for thresholds.
	Mode string `yaml:"mode" json:"mode"`

	// Formula expression and its optional cross restriction.
	Expr  *ExprConfig `yaml:"expr" json:"expr"`
	Cross bool        `yaml:"cross" json:"cross"`
}

// ExprConfig is the YAML shape of a boolean formula node.
type ExprConfig struct {
	Op     string       `yaml:"op" json:"op" validate:"required,oneof=and or not ref"`
	Column string       `yaml:"column" json:"column"`
	Args   []ExprConfig `yaml:"args" json:"args"`
}

// RuleConfig declares one trading rule.
type RuleConfig struct {
	Name   string `yaml:"name" json:"name" validate:"required"`
	Kind   string `yaml:"kind" json:"kind" validate:"required,oneof=entry exit"`
	Signal string `yaml:"signal" json:"signal" validate:"required"`
	// OrderType defaults to market.
	OrderType string `yaml:"order_type" json:"order_type"`
	// PriceField is the next-bar price point the intent executes at.
	// Defaults to open.
	PriceField  string        `yaml:"price_field" json:"price_field"`
	LimitOffset *float64      `yaml:"limit_offset" json:"limit_offset"`
	StopOffset  *float64      `yaml:"stop_offset" json:"stop_offset"`
	Sizing      *SizingConfig `yaml:"sizing" json:"sizing"`
	Replace     bool          `yaml:"replace" json:"replace"`
}

// SizingConfig selects the order-sizing policy for an entry rule.
type SizingConfig struct {
	Policy string `yaml:"policy" json:"policy" validate:"required,oneof=fixed_quantity max_dollar_exposure"`
	// Quantity is the share count for the fixed_quantity policy.
	Quantity float64 `yaml:"quantity" json:"quantity"`
	// MaxExposure is the dollar cap for the max_dollar_exposure policy.
	MaxExposure float64 `yaml:"max_exposure" json:"max_exposure"`
}

// Load parses and validates a strategy configuration from YAML content.
func Load(content string) (Config, error) {
	var cfg Config

	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse strategy config", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
	}

	return cfg, nil
}

// ApplySignal registers the configured signal column on the engine. Signals
// are applied in declaration order so later definitions can reference
// earlier ones.
func (c SignalConfig) ApplySignal(e *signal.Engine) error {
	switch c.Op {
	case "comparison":
		return e.AddComparison(c.Name, c.ColumnA, c.ColumnB, signal.Relation(c.Relation))
	case "crossover":
		return e.AddCrossover(c.Name, c.ColumnA, c.ColumnB, signal.Direction(c.Direction))
	case "threshold":
		mode := signal.Mode(c.Mode)
		if c.Mode == "" {
			mode = signal.ModeLevel
		}

		return e.AddThreshold(c.Name, c.Column, signal.Relation(c.Relation), c.Constant, mode)
	case "formula":
		if c.Expr == nil {
			return errors.Newf(errors.ErrCodeInvalidFormula, "formula signal %s has no expression", c.Name)
		}

		expr, err := c.Expr.Build()
		if err != nil {
			return err
		}

		return e.AddFormula(c.Name, expr, c.Cross)
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "signal %s has unknown op %q", c.Name, c.Op)
	}
}

// Build converts the YAML expression shape into the typed expression tree.
func (c ExprConfig) Build() (signal.Expr, error) {
	switch c.Op {
	case "ref":
		if c.Column == "" {
			return nil, errors.New(errors.ErrCodeInvalidFormula, "ref node has no column")
		}

		return signal.Ref{Column: c.Column}, nil
	case "not":
		if len(c.Args) != 1 {
			return nil, errors.Newf(errors.ErrCodeInvalidFormula, "not node expects 1 argument, got %d", len(c.Args))
		}

		inner, err := c.Args[0].Build()
		if err != nil {
			return nil, err
		}

		return signal.Not{Inner: inner}, nil
	case "and", "or":
		if len(c.Args) != 2 {
			return nil, errors.Newf(errors.ErrCodeInvalidFormula, "%s node expects 2 arguments, got %d", c.Op, len(c.Args))
		}

		left, err := c.Args[0].Build()
		if err != nil {
			return nil, err
		}

		right, err := c.Args[1].Build()
		if err != nil {
			return nil, err
		}

		if c.Op == "and" {
			return signal.And{Left: left, Right: right}, nil
		}

		return signal.Or{Left: left, Right: right}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidFormula, "unknown expression op %q", c.Op)
	}
}

// BuildRule converts the rule configuration into an executable rule. The
// strategy-level trade quantity is the fallback sizing for entry rules
// without an explicit sizing block.
func (c RuleConfig) BuildRule(defaultQuantity float64) (rule.Rule, error) {
	orderType := types.OrderTypeMarket

	switch c.OrderType {
	case "", "market":
	case "limit":
		orderType = types.OrderTypeLimit
	case "stop_limit":
		orderType = types.OrderTypeStopLimit
	default:
		return rule.Rule{}, errors.Newf(errors.ErrCodeInvalidRule, "rule %s has unknown order type %q", c.Name, c.OrderType)
	}

	priceField := types.PriceFieldOpen
	if c.PriceField != "" {
		priceField = types.PriceField(c.PriceField)
	}

	built := rule.Rule{
		Name:         c.Name,
		Kind:         rule.Kind(c.Kind),
		SignalColumn: c.Signal,
		OrderType:    orderType,
		PriceField:   priceField,
		Replace:      c.Replace,
	}

	if c.LimitOffset != nil {
		built.LimitOffset = optional.Some(*c.LimitOffset)
	}

	if c.StopOffset != nil {
		built.StopOffset = optional.Some(*c.StopOffset)
	}

	if built.Kind == rule.KindEntry {
		sizing, err := c.buildSizing(defaultQuantity)
		if err != nil {
			return rule.Rule{}, err
		}

		built.Sizing = sizing
	}

	return built, nil
}

func (c RuleConfig) buildSizing(defaultQuantity float64) (rule.SizingPolicy, error) {
	if c.Sizing == nil {
		return rule.FixedQuantity{Qty: defaultQuantity}, nil
	}

	switch c.Sizing.Policy {
	case "fixed_quantity":
		return rule.FixedQuantity{Qty: c.Sizing.Quantity}, nil
	case "max_dollar_exposure":
		return rule.MaxDollarExposure{Max: c.Sizing.MaxExposure}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidSizing, "rule %s has unknown sizing policy %q", c.Name, c.Sizing.Policy)
	}
}
