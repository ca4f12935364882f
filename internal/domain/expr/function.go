package expr

import "github.com/xacmlgo/pdp/internal/domain/evalctx"

// Arity bounds the argument count a Function accepts. Max of -1 means
// unbounded (e.g. string-concatenate, n-of, logical and/or).
type Arity struct {
	Min int
	Max int
}

func (a Arity) accepts(n int) bool {
	if n < a.Min {
		return false
	}
	return a.Max < 0 || n <= a.Max
}

// Function is one entry of the standard function catalog: a URI, its
// static return shape, and the Go closure implementing it. Eval receives
// the raw argument Expressions (not pre-evaluated results) so that
// short-circuit functions (and, or, n-of) control their own evaluation
// order and can avoid propagating an Indeterminate from an argument they
// never needed to inspect.
type Function struct {
	URI string
	Arity Arity
	ReturnType string
	ReturnsBag bool
	Eval func(ctx *evalctx.RequestContext, args []Expression) EvaluationResult
}
