// Regex matching uses Go's stdlib regexp (RE2), the closest practical
// approximation of XPath 2.0 regex semantics available. Patterns RE2
// rejects (backreferences, lookaround) surface as
// Indeterminate(processing-error).
package fn

import (
	"regexp"

	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

var regexMatchTypes = map[string]string{
	"urn:oasis:names:tc:xacml:1.0:function:string-regexp-match":   value.TypeString,
	"urn:oasis:names:tc:xacml:2.0:function:anyURI-regexp-match":   value.TypeAnyURI,
	"urn:oasis:names:tc:xacml:2.0:function:rfc822Name-regexp-match": value.TypeRFC822Name,
	"urn:oasis:names:tc:xacml:2.0:function:x500Name-regexp-match":   value.TypeX500Name,
}

func init() {
	for uri, dt := range regexMatchTypes {
		dataType := dt
		register(&expr.Function{
			URI:        uri,
			Arity:      expr.Arity{Min: 2, Max: 2},
			ReturnType: value.TypeBoolean,
			Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
				patternVal, errRes := evalScalar(ctx, args[0])
				if errRes != nil {
					return *errRes
				}
				if patternVal.Type != value.TypeString {
					return indetf("regexp-match: pattern must be a string")
				}
				subject, errRes := evalScalar(ctx, args[1])
				if errRes != nil {
					return *errRes
				}
				if subject.Type != dataType {
					return indetf("regexp-match: type mismatch")
				}
				re, err := regexp.Compile(patternVal.Payload.(string))
				if err != nil {
					return indetf("regexp-match: invalid pattern: " + err.Error())
				}
				return boolResult(re.MatchString(subject.String()))
			},
		})
	}
}
