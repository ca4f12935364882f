package fn

import (
	"math"
	"math/big"

	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// unaryFunc builds a single-argument Function expecting argType and
// returning returnType (the same for every arithmetic unary function
// except the integer<->double conversions).
func unaryFunc(uri, argType string, f func(v value.Value) expr.EvaluationResult) *expr.Function {
	return unaryFuncConvert(uri, argType, argType, f)
}

func unaryFuncConvert(uri, argType, returnType string, f func(v value.Value) expr.EvaluationResult) *expr.Function {
	return &expr.Function{
		URI:        uri,
		Arity:      expr.Arity{Min: 1, Max: 1},
		ReturnType: returnType,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			v, errRes := evalScalar(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			if v.Type != argType {
				return indetf("type mismatch in " + uri)
			}
			return f(v)
		},
	}
}

// simpleBinaryTyped is simpleBinary with a caller-chosen return dataType
// (simpleBinary itself always returns boolean, which arithmetic functions
// don't).
func simpleBinaryTyped(uri, dataType string, f func(a, b value.Value) expr.EvaluationResult) *expr.Function {
	return &expr.Function{
		URI:        uri,
		Arity:      expr.Arity{Min: 2, Max: 2},
		ReturnType: dataType,
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

// integerFold folds a variadic integer-add/integer-multiply over 2+ args.
func integerFold(combine func(acc, v *big.Int) *big.Int) func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
	return func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
		first, errRes := evalScalar(ctx, args[0])
		if errRes != nil {
			return *errRes
		}
		if first.Type != value.TypeInteger {
			return indetf("integer arithmetic: type mismatch")
		}
		acc := new(big.Int).Set(first.Payload.(*big.Int))
		for _, a := range args[1:] {
			v, errRes := evalScalar(ctx, a)
			if errRes != nil {
				return *errRes
			}
			if v.Type != value.TypeInteger {
				return indetf("integer arithmetic: type mismatch")
			}
			acc = combine(acc, v.Payload.(*big.Int))
		}
		return expr.Val(value.Of(value.TypeInteger, acc))
	}
}

// doubleFold folds a variadic double-add/double-multiply over 2+ args.
func doubleFold(combine func(acc, v float64) float64) func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
	return func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
		first, errRes := evalScalar(ctx, args[0])
		if errRes != nil {
			return *errRes
		}
		if first.Type != value.TypeDouble {
			return indetf("double arithmetic: type mismatch")
		}
		acc := first.Payload.(float64)
		for _, a := range args[1:] {
			v, errRes := evalScalar(ctx, a)
			if errRes != nil {
				return *errRes
			}
			if v.Type != value.TypeDouble {
				return indetf("double arithmetic: type mismatch")
			}
			acc = combine(acc, v.Payload.(float64))
		}
		return expr.Val(value.Of(value.TypeDouble, acc))
	}
}

func init() {
	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:integer-add",
		Arity:      expr.Arity{Min: 2, Max: -1},
		ReturnType: value.TypeInteger,
		Eval:       integerFold(func(acc, v *big.Int) *big.Int { return new(big.Int).Add(acc, v) }),
	})
	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:integer-multiply",
		Arity:      expr.Arity{Min: 2, Max: -1},
		ReturnType: value.TypeInteger,
		Eval:       integerFold(func(acc, v *big.Int) *big.Int { return new(big.Int).Mul(acc, v) }),
	})
	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:double-add",
		Arity:      expr.Arity{Min: 2, Max: -1},
		ReturnType: value.TypeDouble,
		Eval:       doubleFold(func(acc, v float64) float64 { return acc + v }),
	})
	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:1.0:function:double-multiply",
		Arity:      expr.Arity{Min: 2, Max: -1},
		ReturnType: value.TypeDouble,
		Eval:       doubleFold(func(acc, v float64) float64 { return acc * v }),
	})

	register(simpleBinaryTyped("urn:oasis:names:tc:xacml:1.0:function:integer-subtract", value.TypeInteger, func(a, b value.Value) expr.EvaluationResult {
		return expr.Val(value.Of(value.TypeInteger, new(big.Int).Sub(a.Payload.(*big.Int), b.Payload.(*big.Int))))
	}))
	register(simpleBinaryTyped("urn:oasis:names:tc:xacml:1.0:function:double-subtract", value.TypeDouble, func(a, b value.Value) expr.EvaluationResult {
		return expr.Val(value.Of(value.TypeDouble, a.Payload.(float64)-b.Payload.(float64)))
	}))
	register(simpleBinaryTyped("urn:oasis:names:tc:xacml:1.0:function:double-divide", value.TypeDouble, func(a, b value.Value) expr.EvaluationResult {
		bf := b.Payload.(float64)
		if bf == 0 {
			return indetf("double-divide: division by zero")
		}
		return expr.Val(value.Of(value.TypeDouble, a.Payload.(float64)/bf))
	}))
	register(simpleBinaryTyped("urn:oasis:names:tc:xacml:1.0:function:integer-divide", value.TypeInteger, func(a, b value.Value) expr.EvaluationResult {
		bi := b.Payload.(*big.Int)
		if bi.Sign() == 0 {
			return indetf("integer-divide: division by zero")
		}
		return expr.Val(value.Of(value.TypeInteger, new(big.Int).Quo(a.Payload.(*big.Int), bi)))
	}))
	register(simpleBinaryTyped("urn:oasis:names:tc:xacml:1.0:function:integer-mod", value.TypeInteger, func(a, b value.Value) expr.EvaluationResult {
		bi := b.Payload.(*big.Int)
		if bi.Sign() == 0 {
			return indetf("integer-mod: division by zero")
		}
		return expr.Val(value.Of(value.TypeInteger, new(big.Int).Rem(a.Payload.(*big.Int), bi)))
	}))

	register(unaryFunc("urn:oasis:names:tc:xacml:1.0:function:integer-abs", value.TypeInteger, func(v value.Value) expr.EvaluationResult {
		return expr.Val(value.Of(value.TypeInteger, new(big.Int).Abs(v.Payload.(*big.Int))))
	}))
	register(unaryFunc("urn:oasis:names:tc:xacml:1.0:function:double-abs", value.TypeDouble, func(v value.Value) expr.EvaluationResult {
		return expr.Val(value.Of(value.TypeDouble, math.Abs(v.Payload.(float64))))
	}))
	register(unaryFuncConvert("urn:oasis:names:tc:xacml:1.0:function:integer-to-double", value.TypeInteger, value.TypeDouble, func(v value.Value) expr.EvaluationResult {
		f, _ := new(big.Float).SetInt(v.Payload.(*big.Int)).Float64()
		return expr.Val(value.Of(value.TypeDouble, f))
	}))
	register(unaryFuncConvert("urn:oasis:names:tc:xacml:1.0:function:double-to-integer", value.TypeDouble, value.TypeInteger, func(v value.Value) expr.EvaluationResult {
		f := v.Payload.(float64)
		bi, _ := big.NewFloat(math.Trunc(f)).Int(nil)
		return expr.Val(value.Of(value.TypeInteger, bi))
	}))
}
