package fn

import (
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// funcRefArg extracts the Function a higher-order call's leading
// argument names, failing with processing-error if it is not actually a
// FunctionReference.
func funcRefArg(ctx *evalctx.RequestContext, e expr.Expression) (*expr.Function, *expr.EvaluationResult) {
	r := e.Evaluate(ctx)
	if r.Indeterminate {
		return nil, &r
	}
	if r.FuncRef == nil {
		bad := indetf("higher-order function: expected a function reference")
		return nil, &bad
	}
	return r.FuncRef, nil
}

func applyBoolFn(ctx *evalctx.RequestContext, f *expr.Function, a, b value.Value) (bool, *expr.EvaluationResult) {
	res := f.Eval(ctx, []expr.Expression{expr.NewLiteral(a), expr.NewLiteral(b)})
	if res.Indeterminate {
		return false, &res
	}
	bv, ok := res.Value.Payload.(bool)
	if !ok {
		bad := indetf("higher-order function: predicate did not return boolean")
		return false, &bad
	}
	return bv, nil
}

func init() {
	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:any-of",
		Arity:      expr.Arity{Min: 3, Max: 3},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			f, errRes := funcRefArg(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			v, errRes := evalScalar(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			bag, errRes := evalBag(ctx, args[2])
			if errRes != nil {
				return *errRes
			}
			for _, x := range bag.Values {
				ok, errRes := applyBoolFn(ctx, f, v, x)
				if errRes != nil {
					return *errRes
				}
				if ok {
					return boolResult(true)
				}
			}
			return boolResult(false)
		},
	})

	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:all-of",
		Arity:      expr.Arity{Min: 3, Max: 3},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			f, errRes := funcRefArg(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			v, errRes := evalScalar(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			bag, errRes := evalBag(ctx, args[2])
			if errRes != nil {
				return *errRes
			}
			for _, x := range bag.Values {
				ok, errRes := applyBoolFn(ctx, f, v, x)
				if errRes != nil {
					return *errRes
				}
				if !ok {
					return boolResult(false)
				}
			}
			return boolResult(true)
		},
	})

	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:any-of-any",
		Arity:      expr.Arity{Min: 3, Max: 3},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			f, b1, b2, errRes := twoBagsWithFn(ctx, args)
			if errRes != nil {
				return *errRes
			}
			for _, x := range b1.Values {
				for _, y := range b2.Values {
					ok, errRes := applyBoolFn(ctx, f, x, y)
					if errRes != nil {
						return *errRes
					}
					if ok {
						return boolResult(true)
					}
				}
			}
			return boolResult(false)
		},
	})

	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:all-of-any",
		Arity:      expr.Arity{Min: 3, Max: 3},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			f, b1, b2, errRes := twoBagsWithFn(ctx, args)
			if errRes != nil {
				return *errRes
			}
			for _, x := range b1.Values {
				found := false
				for _, y := range b2.Values {
					ok, errRes := applyBoolFn(ctx, f, x, y)
					if errRes != nil {
						return *errRes
					}
					if ok {
						found = true
						break
					}
				}
				if !found {
					return boolResult(false)
				}
			}
			return boolResult(true)
		},
	})

	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:any-of-all",
		Arity:      expr.Arity{Min: 3, Max: 3},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			f, b1, b2, errRes := twoBagsWithFn(ctx, args)
			if errRes != nil {
				return *errRes
			}
			for _, x := range b1.Values {
				all := true
				for _, y := range b2.Values {
					ok, errRes := applyBoolFn(ctx, f, x, y)
					if errRes != nil {
						return *errRes
					}
					if !ok {
						all = false
						break
					}
				}
				if all {
					return boolResult(true)
				}
			}
			return boolResult(false)
		},
	})

	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:all-of-all",
		Arity:      expr.Arity{Min: 3, Max: 3},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			f, b1, b2, errRes := twoBagsWithFn(ctx, args)
			if errRes != nil {
				return *errRes
			}
			for _, x := range b1.Values {
				for _, y := range b2.Values {
					ok, errRes := applyBoolFn(ctx, f, x, y)
					if errRes != nil {
						return *errRes
					}
					if !ok {
						return boolResult(false)
					}
				}
			}
			return boolResult(true)
		},
	})

	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:3.0:function:map",
		Arity:      expr.Arity{Min: 2, Max: 2},
		ReturnsBag: true,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			f, errRes := funcRefArg(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			bag, errRes := evalBag(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			out := make([]value.Value, 0, bag.Size())
			outType := f.ReturnType // an empty input bag maps to an empty bag of f's return type
			for _, x := range bag.Values {
				res := f.Eval(ctx, []expr.Expression{expr.NewLiteral(x)})
				if res.Indeterminate {
					return res
				}
				out = append(out, res.Value)
				outType = res.Value.Type
			}
			return expr.BagResult(value.NewBag(outType, out...))
		},
	})
}

func twoBagsWithFn(ctx *evalctx.RequestContext, args []expr.Expression) (*expr.Function, value.Bag, value.Bag, *expr.EvaluationResult) {
	f, errRes := funcRefArg(ctx, args[0])
	if errRes != nil {
		return nil, value.Bag{}, value.Bag{}, errRes
	}
	b1, errRes := evalBag(ctx, args[1])
	if errRes != nil {
		return nil, value.Bag{}, value.Bag{}, errRes
	}
	b2, errRes := evalBag(ctx, args[2])
	if errRes != nil {
		return nil, value.Bag{}, value.Bag{}, errRes
	}
	return f, b1, b2, nil
}
