package fn

import (
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

func boolResult(b bool) expr.EvaluationResult {
	return expr.Val(value.Of(value.TypeBoolean, b))
}

func indetf(msg string) expr.EvaluationResult {
	return expr.Indet(decision.ProcessingError(msg))
}

// evalScalar evaluates e and requires a non-bag Value result.
func evalScalar(ctx *evalctx.RequestContext, e expr.Expression) (value.Value, *expr.EvaluationResult) {
	r := e.Evaluate(ctx)
	if r.Indeterminate {
		return value.Value{}, &r
	}
	if r.IsBag {
		bad := indetf("expected a single value, got a bag")
		return value.Value{}, &bad
	}
	return r.Value, nil
}

func evalBag(ctx *evalctx.RequestContext, e expr.Expression) (value.Bag, *expr.EvaluationResult) {
	r := e.Evaluate(ctx)
	if r.Indeterminate {
		return value.Bag{}, &r
	}
	if !r.IsBag {
		bad := indetf("expected a bag, got a single value")
		return value.Bag{}, &bad
	}
	return r.Bag, nil
}

func evalBool(ctx *evalctx.RequestContext, e expr.Expression) (bool, *expr.EvaluationResult) {
	v, errRes := evalScalar(ctx, e)
	if errRes != nil {
		return false, errRes
	}
	b, ok := v.Payload.(bool)
	if !ok {
		bad := indetf("expected boolean")
		return false, &bad
	}
	return b, nil
}

// integerAsInt extracts a Go int from an integer-typed Value, for
// functions (n-of, bag-size comparisons) that need a small count rather
// than full big.Int arithmetic.
func integerAsInt(v value.Value) (int, *expr.EvaluationResult) {
	if v.Type != value.TypeInteger {
		bad := indetf("expected integer")
		return 0, &bad
	}
	bi := v.Payload.(interface{ Int64() int64 })
	return int(bi.Int64()), nil
}

// simpleBinary builds a two-argument Function over dataType that always
// evaluates both arguments strictly (non-short-circuit default rule).
func simpleBinary(uri, dataType string, f func(a, b value.Value) expr.EvaluationResult) *expr.Function {
	return &expr.Function{
		URI:        uri,
		Arity:      expr.Arity{Min: 2, Max: 2},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			a, errRes := evalScalar(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			b, errRes := evalScalar(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			if a.Type != dataType || b.Type != dataType {
				return indetf("type mismatch in " + uri)
			}
			return f(a, b)
		},
	}
}
