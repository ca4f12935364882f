// Package fn implements the XACML 3.0 standard function catalog: one
// file per function group, each registering its entries into a
// load-time-resolved table keyed by function URI. A Policy loader calls
// Lookup once per Apply element while building the policy tree; nothing
// in the hot evaluate path does string dispatch.
package fn

import "github.com/xacmlgo/pdp/internal/domain/expr"

var registry = map[string]*expr.Function{}

// register adds fn to the catalog, panicking on a duplicate URI — a
// programming error in this package, never reachable from policy data.
func register(f *expr.Function) {
	if _, exists := registry[f.URI]; exists {
		panic("fn: duplicate function URI " + f.URI)
	}
	registry[f.URI] = f
}

// Lookup returns the Function registered for uri, or false if the URI is
// not a recognized standard function. Policy loaders call this when
// building an Apply node from a policy document's FunctionId.
func Lookup(uri string) (*expr.Function, bool) {
	f, ok := registry[uri]
	return f, ok
}

// URIs lists every registered function URI.
func URIs() []string {
	out := make([]string, 0, len(registry))
	for u := range registry {
		out = append(out, u)
	}
	return out
}
