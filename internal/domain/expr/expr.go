package expr

import "github.com/xacmlgo/pdp/internal/domain/evalctx"

// Expression is the single interface every node of the evaluable
// expression tree implements: AttributeValue, AttributeDesignator,
// AttributeSelector, Apply, and VariableReference all dispatch through
// this one Evaluate method rather than a node-type hierarchy, so new
// Function arities never require new node kinds.
type Expression interface {
	Evaluate(ctx *evalctx.RequestContext) EvaluationResult

	// DataType reports the dataType URI this node's non-bag result would
	// carry, known statically from policy-load-time parsing.
	DataType() string

	// ReturnsBag reports whether Evaluate produces a Bag rather than a
	// single Value.
	ReturnsBag() bool
}
