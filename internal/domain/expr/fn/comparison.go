package fn

import (
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// comparisonOp is one of the four ordering relations applied to the
// result of value.Compare.
type comparisonOp func(cmp int) bool

var comparisonOps = map[string]comparisonOp{
	"greater-than": func(c int) bool { return c > 0 },
	"greater-than-or-equal": func(c int) bool { return c >= 0 },
	"less-than": func(c int) bool { return c < 0 },
	"less-than-or-equal": func(c int) bool { return c <= 0 },
}

// comparableDataTypes are the numeric and temporal types carrying the
// four ordering functions. dateTime comparison is on absolute instant,
// which value.Compare(DateTimeVal) already implements.
var comparableDataTypes = map[string]string{
	"integer": value.TypeInteger,
	"double": value.TypeDouble,
	"date": value.TypeDate,
	"time": value.TypeTime,
	"dateTime": value.TypeDateTime,
}

func init() {
	for typeName, dataType := range comparableDataTypes {
		for opName, op := range comparisonOps {
			uri := "urn:oasis:names:tc:xacml:1.0:function:" + typeName + "-" + opName
			dt := dataType
			compare := op
			register(simpleBinary(uri, dt, func(a, b value.Value) expr.EvaluationResult {
				c, err := value.Compare(a, b)
				if err != nil {
					return indetf(err.Error())
				}
				return boolResult(compare(c))
			}))
		}
	}
}
