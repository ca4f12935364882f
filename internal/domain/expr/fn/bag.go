package fn

import (
	"strconv"

	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// allPrimitiveTypes lists every dataType the bag-function family is
// generated for, one function set per type.
var allPrimitiveTypes = []string{
	value.TypeString, value.TypeBoolean, value.TypeInteger, value.TypeDouble,
	value.TypeDate, value.TypeTime, value.TypeDateTime, value.TypeAnyURI,
	value.TypeHexBinary, value.TypeBase64, value.TypeDayTimeDur,
	value.TypeYearMonDur, value.TypeRFC822Name, value.TypeX500Name,
}

// shortName maps a dataType URI to the identifier XACML uses as the
// function-name prefix (e.g. "string", "dayTimeDuration").
var shortName = map[string]string{
	value.TypeString: "string",
	value.TypeBoolean: "boolean",
	value.TypeInteger: "integer",
	value.TypeDouble: "double",
	value.TypeDate: "date",
	value.TypeTime: "time",
	value.TypeDateTime: "dateTime",
	value.TypeAnyURI: "anyURI",
	value.TypeHexBinary: "hexBinary",
	value.TypeBase64: "base64Binary",
	value.TypeDayTimeDur: "dayTimeDuration",
	value.TypeYearMonDur: "yearMonthDuration",
	value.TypeRFC822Name: "rfc822Name",
	value.TypeX500Name: "x500Name",
}

func bagURI(version, name string) string {
	return "urn:oasis:names:tc:xacml:" + version + ":function:" + name
}

func init() {
	for _, dt := range allPrimitiveTypes {
		dataType := dt
		name := shortName[dt]
		version := "1.0"
		if dataType == value.TypeDayTimeDur || dataType == value.TypeYearMonDur {
			version = "2.0"
		}

		register(&expr.Function{
			URI: bagURI(version, name+"-bag"),
			Arity: expr.Arity{Min: 0, Max: -1},
			ReturnType: dataType,
			ReturnsBag: true,
			Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
				values := make([]value.Value, 0, len(args))
				for _, a := range args {
					v, errRes := evalScalar(ctx, a)
					if errRes != nil {
						return *errRes
					}
					if v.Type != dataType {
						return indetf(name + "-bag: type mismatch")
					}
					values = append(values, v)
				}
				return expr.BagResult(value.NewBag(dataType, values...))
			},
		})

		register(&expr.Function{
			URI: bagURI(version, name+"-bag-size"),
			Arity: expr.Arity{Min: 1, Max: 1},
			ReturnType: value.TypeInteger,
			Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
				b, errRes := evalBag(ctx, args[0])
				if errRes != nil {
					return *errRes
				}
				return expr.Val(value.MustNew(value.TypeInteger, strconv.Itoa(b.Size())))
			},
		})

		register(&expr.Function{
			URI: bagURI(version, name+"-is-in"),
			Arity: expr.Arity{Min: 2, Max: 2},
			ReturnType: value.TypeBoolean,
			Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
				v, errRes := evalScalar(ctx, args[0])
				if errRes != nil {
					return *errRes
				}
				b, errRes := evalBag(ctx, args[1])
				if errRes != nil {
					return *errRes
				}
				return boolResult(b.Contains(v))
			},
		})

		register(&expr.Function{
			URI: bagURI(version, name+"-one-and-only"),
			Arity: expr.Arity{Min: 1, Max: 1},
			ReturnType: dataType,
			Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
				b, errRes := evalBag(ctx, args[0])
				if errRes != nil {
					return *errRes
				}
				v, err := b.OneAndOnly()
				if err != nil {
					return indetf(err.Error())
				}
				return expr.Val(v)
			},
		})

		register(bagBinaryOp(bagURI(version, name+"-intersection"), dataType, true, value.Intersection))
		register(bagBinaryOp(bagURI(version, name+"-union"), dataType, true, value.Union))
		register(bagBoolOp(bagURI(version, name+"-subset"), dataType, value.Subset))
		register(bagBoolOp(bagURI(version, name+"-set-equals"), dataType, value.SetEquals))
	}
}

func bagBinaryOp(uri, dataType string, returnsBag bool, f func(a, b value.Bag) value.Bag) *expr.Function {
	return &expr.Function{
		URI: uri,
		Arity: expr.Arity{Min: 2, Max: 2},
		ReturnType: dataType,
		ReturnsBag: returnsBag,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			a, errRes := evalBag(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			b, errRes := evalBag(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			return expr.BagResult(f(a, b))
		},
	}
}

func bagBoolOp(uri, dataType string, f func(a, b value.Bag) bool) *expr.Function {
	return &expr.Function{
		URI: uri,
		Arity: expr.Arity{Min: 2, Max: 2},
		ReturnType: value.TypeBoolean,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			a, errRes := evalBag(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			b, errRes := evalBag(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			return boolResult(f(a, b))
		},
	}
}
