package expr

import (
	"fmt"

	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
)

// Apply invokes a Function against its argument expressions. Argument
// arity is validated once at construction (NewApply); a runtime type
// mismatch surfaces from the Function's own Eval as
// Indeterminate(processing-error).
type Apply struct {
	Fn *Function
	Args []Expression
}

// NewApply builds an Apply node, failing at policy-load time if args'
// count falls outside fn's declared Arity.
func NewApply(fn *Function, args []Expression) (*Apply, error) {
	if !fn.Arity.accepts(len(args)) {
		return nil, fmt.Errorf("expr: function %s takes %d..%d args, got %d", fn.URI, fn.Arity.Min, fn.Arity.Max, len(args))
	}
	return &Apply{Fn: fn, Args: args}, nil
}

func (a *Apply) Evaluate(ctx *evalctx.RequestContext) (result EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			// A Function implementation panicking on an unexpected
			// payload (e.g. a type-assertion on a malformed bag) must
			// not crash the PDP; surface it as a processing error.
			result = Indet(decision.ProcessingError(fmt.Sprintf("function %s: %v", a.Fn.URI, r)))
		}
	}()
	return a.Fn.Eval(ctx, a.Args)
}

func (a *Apply) DataType() string { return a.Fn.ReturnType }
func (a *Apply) ReturnsBag() bool { return a.Fn.ReturnsBag }

// EvalArgsStrict evaluates every arg and returns Indeterminate
// immediately if any is Indeterminate — the "all other functions"
// default propagation rule non-short-circuit functions use.
func EvalArgsStrict(ctx *evalctx.RequestContext, args []Expression) ([]EvaluationResult, *EvaluationResult) {
	out := make([]EvaluationResult, len(args))
	for i, arg := range args {
		r := arg.Evaluate(ctx)
		if r.Indeterminate {
			return nil, &r
		}
		out[i] = r
	}
	return out, nil
}
