package fn

import (
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// equalityURIs pairs each primitive dataType's XACML *-equal function
// URI with the dataType it compares.
var equalityURIs = map[string]string{
	"urn:oasis:names:tc:xacml:1.0:function:string-equal": value.TypeString,
	"urn:oasis:names:tc:xacml:1.0:function:boolean-equal": value.TypeBoolean,
	"urn:oasis:names:tc:xacml:1.0:function:integer-equal": value.TypeInteger,
	"urn:oasis:names:tc:xacml:1.0:function:double-equal": value.TypeDouble,
	"urn:oasis:names:tc:xacml:1.0:function:date-equal": value.TypeDate,
	"urn:oasis:names:tc:xacml:1.0:function:time-equal": value.TypeTime,
	"urn:oasis:names:tc:xacml:1.0:function:dateTime-equal": value.TypeDateTime,
	"urn:oasis:names:tc:xacml:1.0:function:anyURI-equal": value.TypeAnyURI,
	"urn:oasis:names:tc:xacml:1.0:function:hexBinary-equal": value.TypeHexBinary,
	"urn:oasis:names:tc:xacml:1.0:function:base64Binary-equal": value.TypeBase64,
	"urn:oasis:names:tc:xacml:2.0:function:dayTimeDuration-equal": value.TypeDayTimeDur,
	"urn:oasis:names:tc:xacml:2.0:function:yearMonthDuration-equal": value.TypeYearMonDur,
	"urn:oasis:names:tc:xacml:1.0:function:rfc822Name-equal": value.TypeRFC822Name,
	"urn:oasis:names:tc:xacml:1.0:function:x500Name-equal": value.TypeX500Name,
}

func init() {
	for uri, dt := range equalityURIs {
		dataType := dt
		register(simpleBinary(uri, dataType, func(a, b value.Value) expr.EvaluationResult {
			return boolResult(value.Equal(a, b))
		}))
	}
}
