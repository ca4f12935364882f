package fn

import (
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

func init() {
	register(&expr.Function{
		URI: "urn:oasis:names:tc:xacml:1.0:function:not",
		Arity: expr.Arity{Min: 1, Max: 1},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			b, errRes := evalBool(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			return boolResult(!b)
		},
	})

	// and short-circuits on the first false argument without evaluating
	// the rest — an Indeterminate later argument must not surface once a
	// determining false has already been found.
	register(&expr.Function{
		URI: "urn:oasis:names:tc:xacml:1.0:function:and",
		Arity: expr.Arity{Min: 0, Max: -1},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			var pendingIndet *expr.EvaluationResult
			for _, a := range args {
				r := a.Evaluate(ctx)
				if r.Indeterminate {
					if pendingIndet == nil {
						rc := r
						pendingIndet = &rc
					}
					continue
				}
				b, ok := r.Value.Payload.(bool)
				if !ok {
					return indetf("and: non-boolean argument")
				}
				if !b {
					return boolResult(false)
				}
			}
			if pendingIndet != nil {
				return *pendingIndet
			}
			return boolResult(true)
		},
	})

	// or short-circuits on the first true argument.
	register(&expr.Function{
		URI: "urn:oasis:names:tc:xacml:1.0:function:or",
		Arity: expr.Arity{Min: 0, Max: -1},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			var pendingIndet *expr.EvaluationResult
			for _, a := range args {
				r := a.Evaluate(ctx)
				if r.Indeterminate {
					if pendingIndet == nil {
						rc := r
						pendingIndet = &rc
					}
					continue
				}
				b, ok := r.Value.Payload.(bool)
				if !ok {
					return indetf("or: non-boolean argument")
				}
				if b {
					return boolResult(true)
				}
			}
			if pendingIndet != nil {
				return *pendingIndet
			}
			return boolResult(false)
		},
	})

	// n-of(n, b1..bk) is true once n of the booleans are true; it stops
	// evaluating further arguments the moment that threshold is met.
	register(&expr.Function{
		URI: "urn:oasis:names:tc:xacml:1.0:function:n-of",
		Arity: expr.Arity{Min: 1, Max: -1},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			nVal, errRes := evalScalar(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			need, errRes2 := integerAsInt(nVal)
			if errRes2 != nil {
				return *errRes2
			}
			count := 0
			var pendingIndet *expr.EvaluationResult
			for _, a := range args[1:] {
				if count >= need {
					break
				}
				r := a.Evaluate(ctx)
				if r.Indeterminate {
					if pendingIndet == nil {
						rc := r
						pendingIndet = &rc
					}
					continue
				}
				b, ok := r.Value.Payload.(bool)
				if !ok {
					return indetf("n-of: non-boolean argument")
				}
				if b {
					count++
				}
			}
			if count >= need {
				return boolResult(true)
			}
			if pendingIndet != nil {
				return *pendingIndet
			}
			return boolResult(false)
		},
	})
}
