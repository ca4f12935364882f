package value

import "fmt"

// Bag is an unordered multiset of Values sharing one DataType. An empty
// bag (size 0) is a legal, distinct value from "no bag at all" — see
// expr.AttributeDesignator semantics. Bags are never nested.
type Bag struct {
	Type   string
	Values []Value
}

// NewBag constructs a Bag of dataType from the given values. It does not
// validate that every value's Type matches dataType; callers that build
// bags from external input should validate first.
func NewBag(dataType string, values ...Value) Bag {
	return Bag{Type: dataType, Values: values}
}

// EmptyBag returns a zero-size Bag of dataType.
func EmptyBag(dataType string) Bag {
	return Bag{Type: dataType, Values: nil}
}

// Size returns the number of values in the bag.
func (b Bag) Size() int { return len(b.Values) }

// Contains reports whether v is present in the bag (by value equality).
func (b Bag) Contains(v Value) bool {
	for _, e := range b.Values {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// OneAndOnly returns the bag's sole element. Fails with a processing
// error if the bag's size is not exactly 1.
func (b Bag) OneAndOnly() (Value, error) {
	if len(b.Values) != 1 {
		return Value{}, fmt.Errorf("value: one-and-only requires bag size 1, got %d", len(b.Values))
	}
	return b.Values[0], nil
}

// Union returns the multiset union of a and b (all elements from both,
// duplicates preserved).
func Union(a, b Bag) Bag {
	out := make([]Value, 0, len(a.Values)+len(b.Values))
	out = append(out, a.Values...)
	out = append(out, b.Values...)
	return Bag{Type: a.Type, Values: out}
}

// Intersection returns the multiset intersection of a and b: every
// element of a that appears (by value) anywhere in b, deduplicated to
// set semantics as XACML's bag functions require for *-intersection.
func Intersection(a, b Bag) Bag {
	var out []Value
	for _, av := range a.Values {
		if b.Contains(av) && !containsValue(out, av) {
			out = append(out, av)
		}
	}
	return Bag{Type: a.Type, Values: out}
}

// Subset reports whether every distinct element of a is present in b.
func Subset(a, b Bag) bool {
	for _, av := range a.Values {
		if !b.Contains(av) {
			return false
		}
	}
	return true
}

// SetEquals reports whether a and b contain the same distinct elements,
// ignoring multiplicity and order.
func SetEquals(a, b Bag) bool {
	return Subset(a, b) && Subset(b, a)
}

func containsValue(vs []Value, v Value) bool {
	for _, e := range vs {
		if Equal(e, v) {
			return true
		}
	}
	return false
}
