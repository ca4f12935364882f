// Package value implements the XACML typed attribute value model: a
// registry of dataType URIs, each with a parser, canonicalizer, equality
// predicate and (where the type is ordered) a comparison function, plus
// the Bag multiset built on top of it.
package value

import "fmt"

// DataType URIs recognized by this PDP. These match the XACML 3.0 core
// data-type identifiers verbatim so policy and request XML can reference
// them directly.
const (
	TypeString     = "http://www.w3.org/2001/XMLSchema#string"
	TypeBoolean    = "http://www.w3.org/2001/XMLSchema#boolean"
	TypeInteger    = "http://www.w3.org/2001/XMLSchema#integer"
	TypeDouble     = "http://www.w3.org/2001/XMLSchema#double"
	TypeDate       = "http://www.w3.org/2001/XMLSchema#date"
	TypeTime       = "http://www.w3.org/2001/XMLSchema#time"
	TypeDateTime   = "http://www.w3.org/2001/XMLSchema#dateTime"
	TypeAnyURI     = "http://www.w3.org/2001/XMLSchema#anyURI"
	TypeHexBinary  = "http://www.w3.org/2001/XMLSchema#hexBinary"
	TypeBase64     = "http://www.w3.org/2001/XMLSchema#base64Binary"
	TypeDayTimeDur = "urn:oasis:names:tc:xacml:2.0:data-type:dayTimeDuration"
	TypeYearMonDur = "urn:oasis:names:tc:xacml:2.0:data-type:yearMonthDuration"
	TypeRFC822Name = "urn:oasis:names:tc:xacml:1.0:data-type:rfc822Name"
	TypeX500Name   = "urn:oasis:names:tc:xacml:1.0:data-type:x500Name"
)

// Payload is the canonical in-memory representation carried by a Value.
// The concrete Go type stored depends on DataType; callers type-assert
// after checking Value.Type.
type Payload interface{}

// DataType describes one XACML primitive type: how to parse a literal,
// how two parsed values compare for equality, and (if ordered) how they
// compare for ordering.
type DataType struct {
	URI string

	// Parse converts a literal (as it appears in AttributeValue content
	// or Request XML) into a canonical Payload. A parse failure must be
	// treated by the caller as a policy-load error (for AttributeValue
	// literals baked into a policy) or a syntax-error Indeterminate (for
	// runtime request data).
	Parse func(literal string) (Payload, error)

	// Format renders a Payload back to its canonical literal form, used
	// by the XML serializer and by error messages.
	Format func(p Payload) string

	// Equal reports whether two Payloads of this DataType denote the
	// same value.
	Equal func(a, b Payload) bool

	// Less reports a < b for ordered types. Nil for types with no
	// defined ordering (string, boolean, anyURI, hexBinary, base64Binary,
	// rfc822Name, x500Name).
	Less func(a, b Payload) (bool, error)
}

var registry = map[string]*DataType{}

// Register adds (or replaces) a DataType in the global registry. Called
// from each datatype's init().
func Register(dt *DataType) {
	registry[dt.URI] = dt
}

// Lookup returns the DataType for a dataType URI, or false if unknown.
func Lookup(uri string) (*DataType, bool) {
	dt, ok := registry[uri]
	return dt, ok
}

// MustLookup panics if uri is not registered; reserved for call sites
// that only ever see URIs validated at policy-load time.
func MustLookup(uri string) *DataType {
	dt, ok := registry[uri]
	if !ok {
		panic(fmt.Sprintf("value: unregistered dataType %q", uri))
	}
	return dt
}
