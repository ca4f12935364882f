// Package expr implements the evaluable expression tree:
// AttributeValue, AttributeDesignator, AttributeSelector, Apply, and
// VariableReference, sharing one Expression interface with a single
// Evaluate dispatch point rather than a deep type hierarchy.
package expr

import (
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// EvaluationResult is the tagged union every Expression.Evaluate call
// returns: either a Value, a Bag, or an Indeterminate Status. Once
// Indeterminate is false, IsBag selects whether Bag or Value holds the
// result.
type EvaluationResult struct {
	Indeterminate bool
	Status decision.Status

	IsBag bool
	Value value.Value
	Bag value.Bag

	// FuncRef is set only by a FunctionReference node, naming a function
	// without applying it — the form higher-order functions (any-of,
	// all-of, map,...) take as their first argument.
	FuncRef *Function
}

// Val wraps a single Value as a non-bag EvaluationResult.
func Val(v value.Value) EvaluationResult {
	return EvaluationResult{Value: v}
}

// BagResult wraps a Bag as a bag EvaluationResult.
func BagResult(b value.Bag) EvaluationResult {
	return EvaluationResult{IsBag: true, Bag: b}
}

// Indet builds an Indeterminate EvaluationResult carrying st.
func Indet(st decision.Status) EvaluationResult {
	return EvaluationResult{Indeterminate: true, Status: st}
}

// DataType reports the dataType URI of the result, valid only when not
// Indeterminate.
func (r EvaluationResult) DataType() string {
	if r.IsBag {
		return r.Bag.Type
	}
	return r.Value.Type
}
