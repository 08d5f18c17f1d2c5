package signal

import (
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Expr is a typed boolean expression tree over named signal columns, built
// once at configuration time and evaluated per bar without any runtime
// string parsing.
type Expr interface {
	// Validate checks every referenced column against the engine. Unknown
	// columns fail fast, before any bar is evaluated.
	Validate(e *Engine) error
	// Eval evaluates the expression at bar index i.
	Eval(e *Engine, i int) bool
}

// Ref is a leaf referencing a named boolean column.
type Ref struct {
	Column string
}

// And is the conjunction of two expressions.
type And struct {
	Left  Expr
	Right Expr
}

// Or is the disjunction of two expressions.
type Or struct {
	Left  Expr
	Right Expr
}

// Not negates an expression.
type Not struct {
	Inner Expr
}

// Validate implements Expr.
func (r Ref) Validate(e *Engine) error {
	if !e.HasColumn(r.Column) {
		return errors.Newf(errors.ErrCodeUnknownSignalColumn, "formula references unknown signal column %s", r.Column)
	}

	return nil
}

// Eval implements Expr. Undefined values are false.
func (r Ref) Eval(e *Engine, i int) bool {
	truth, err := e.True(r.Column, i)
	if err != nil {
		return false
	}

	return truth
}

// Validate implements Expr.
func (a And) Validate(e *Engine) error {
	if err := a.Left.Validate(e); err != nil {
		return err
	}

	return a.Right.Validate(e)
}

// Eval implements Expr.
func (a And) Eval(e *Engine, i int) bool {
	return a.Left.Eval(e, i) && a.Right.Eval(e, i)
}

// Validate implements Expr.
func (o Or) Validate(e *Engine) error {
	if err := o.Left.Validate(e); err != nil {
		return err
	}

	return o.Right.Validate(e)
}

// Eval implements Expr.
func (o Or) Eval(e *Engine, i int) bool {
	return o.Left.Eval(e, i) || o.Right.Eval(e, i)
}

// Validate implements Expr.
func (n Not) Validate(e *Engine) error {
	return n.Inner.Validate(e)
}

// Eval implements Expr.
func (n Not) Eval(e *Engine, i int) bool {
	return !n.Inner.Eval(e, i)
}

// AddFormula registers a 0/1 column computed from a boolean expression over
// previously registered columns. When cross is set the result is restricted
// to transition bars only.
func (e *Engine) AddFormula(name string, expr Expr, cross bool) error {
	if expr == nil {
		return errors.Newf(errors.ErrCodeInvalidFormula, "formula %s has no expression", name)
	}

	if err := expr.Validate(e); err != nil {
		return err
	}

	if e.length == 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "formula %s added before any column", name)
	}

	values := make([]bool, e.length)
	for i := 0; i < e.length; i++ {
		values[i] = expr.Eval(e, i)
	}

	// Reuse any registered column's timestamps; all columns are aligned.
	var template string
	for column := range e.columns {
		template = column

		break
	}

	base, err := e.Column(template)
	if err != nil {
		return err
	}

	series := boolSeries(name, base)

	for i := 0; i < e.length; i++ {
		if !values[i] {
			continue
		}

		if cross && (i == 0 || values[i-1]) {
			continue
		}

		series.Values[i] = 1
	}

	return e.AddColumn(series)
}
