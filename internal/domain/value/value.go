package value

import "fmt"

// Value is a single typed attribute value: a dataType URI paired with its
// parsed Payload. Values are immutable once constructed.
type Value struct {
	Type    string
	Payload Payload
}

// New parses literal as dataType and returns the resulting Value. The
// error, when non-nil, is a syntax error — callers decide whether that
// means a policy-load failure (AttributeValue) or an Indeterminate(syntax-error)
// (request data).
func New(dataType, literal string) (Value, error) {
	dt, ok := Lookup(dataType)
	if !ok {
		return Value{}, fmt.Errorf("value: unknown dataType %q", dataType)
	}
	p, err := dt.Parse(literal)
	if err != nil {
		return Value{}, fmt.Errorf("value: invalid literal %q for %s: %w", literal, dataType, err)
	}
	return Value{Type: dataType, Payload: p}, nil
}

// MustNew is New but panics on error; reserved for literals baked into
// Go code (tests, default policies) that are known-good.
func MustNew(dataType, literal string) Value {
	v, err := New(dataType, literal)
	if err != nil {
		panic(err)
	}
	return v
}

// Of wraps an already-parsed Payload as a Value of dataType, without
// re-parsing. Used when a function computes a new Payload directly
// (e.g. arithmetic results).
func Of(dataType string, p Payload) Value {
	return Value{Type: dataType, Payload: p}
}

// String renders the Value using its DataType's Format function.
func (v Value) String() string {
	dt, ok := Lookup(v.Type)
	if !ok {
		return fmt.Sprintf("<unknown:%v>", v.Payload)
	}
	return dt.Format(v.Payload)
}

// Equal reports whether two Values are equal: same dataType and equal
// Payload per that dataType's Equal predicate.
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	dt, ok := Lookup(a.Type)
	if !ok {
		return false
	}
	return dt.Equal(a.Payload, b.Payload)
}

// Compare orders a and b, returning -1, 0, 1. Returns an error if the
// dataType has no ordering or the values are incomparable (e.g. NaN).
func Compare(a, b Value) (int, error) {
	if a.Type != b.Type {
		return 0, fmt.Errorf("value: cannot compare %s with %s", a.Type, b.Type)
	}
	dt, ok := Lookup(a.Type)
	if !ok {
		return 0, fmt.Errorf("value: unknown dataType %q", a.Type)
	}
	if dt.Less == nil {
		return 0, fmt.Errorf("value: dataType %q has no ordering", a.Type)
	}
	if dt.Equal(a.Payload, b.Payload) {
		return 0, nil
	}
	lt, err := dt.Less(a.Payload, b.Payload)
	if err != nil {
		return 0, err
	}
	if lt {
		return -1, nil
	}
	return 1, nil
}
