package fn

import (
	"strings"

	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

func init() {
	register(unaryFunc("urn:oasis:names:tc:xacml:1.0:function:string-normalize-space", value.TypeString, func(v value.Value) expr.EvaluationResult {
		return expr.Val(value.Of(value.TypeString, strings.TrimSpace(v.Payload.(string))))
	}))
	register(unaryFunc("urn:oasis:names:tc:xacml:1.0:function:string-normalize-to-lower-case", value.TypeString, func(v value.Value) expr.EvaluationResult {
		return expr.Val(value.Of(value.TypeString, strings.ToLower(v.Payload.(string))))
	}))

	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:3.0:function:string-concatenate",
		Arity:      expr.Arity{Min: 2, Max: -1},
		ReturnType: value.TypeString,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			var b strings.Builder
			for _, a := range args {
				v, errRes := evalScalar(ctx, a)
				if errRes != nil {
					return *errRes
				}
				if v.Type != value.TypeString {
					return indetf("string-concatenate: type mismatch")
				}
				b.WriteString(v.Payload.(string))
			}
			return expr.Val(value.Of(value.TypeString, b.String()))
		},
	})

	register(&expr.Function{
		URI:        "urn:oasis:names:tc:xacml:3.0:function:string-substring",
		Arity:      expr.Arity{Min: 3, Max: 3},
		ReturnType: value.TypeString,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			sv, errRes := evalScalar(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			if sv.Type != value.TypeString {
				return indetf("string-substring: expected string")
			}
			beginVal, errRes := evalScalar(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			begin, errRes := integerAsInt(beginVal)
			if errRes != nil {
				return *errRes
			}
			endVal, errRes := evalScalar(ctx, args[2])
			if errRes != nil {
				return *errRes
			}
			end, errRes := integerAsInt(endVal)
			if errRes != nil {
				return *errRes
			}
			s := sv.Payload.(string)
			if end < 0 {
				end = len(s)
			}
			if begin < 0 || begin > len(s) || end > len(s) || end < begin {
				return indetf("string-substring: index out of range")
			}
			return expr.Val(value.Of(value.TypeString, s[begin:end]))
		},
	})
}
