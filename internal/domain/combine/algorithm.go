// Package combine implements the XACML 3.0 rule- and policy-combining
// algorithms: deny-overrides, permit-overrides,
// first-applicable, only-one-applicable, deny-unless-permit,
// permit-unless-deny, and their ordered-* siblings. Every algorithm has
// the same Go shape — func([]decision.Child) (decision.Result,
// decision.Status) — keyed into one registry by combining-algorithm URI,
// so a Policy/PolicySet only ever holds the URI string until load time
// resolves it to a callable — the same "avoid string dispatch in the hot
// path" discipline applied to higher-order functions.
package combine

import "github.com/xacmlgo/pdp/internal/domain/decision"

// Algorithm reduces the per-child Results (and their Status, for
// missing-attribute propagation) of a Policy's Rules or a PolicySet's
// children to one parent Result. children is always
// supplied in syntactic document order; ordered-* and unordered variants
// of the same base algorithm are the same Go func here because this
// evaluator has no concurrent per-child evaluation to reorder, so the
// result is always identical to document-order evaluation.
type Algorithm func(children []decision.Child) (decision.Result, decision.Status)

var registry = map[string]Algorithm{}

func register(uri string, alg Algorithm) {
	registry[uri] = alg
}

// Lookup returns the Algorithm registered for a combining-algorithm URI
// (rule- or policy-combining, they share this one table since the
// reduction logic is identical), or false if uri is unrecognized. A
// Policy/PolicySet loader rejects unknown combining-algorithm URIs at
// load time.
func Lookup(uri string) (Algorithm, bool) {
	alg, ok := registry[uri]
	return alg, ok
}

// mergeIndeterminateStatus folds the Status of every child whose Result
// is Indeterminate into one Status, so the final Response's missing-attribute
// detail lists every descriptor observed on the winning decision path.
func mergeIndeterminateStatus(children []decision.Child) decision.Status {
	st := decision.OK
	for _, c := range children {
		if c.Result.IsIndeterminate() {
			st = decision.Merge(st, c.Status)
		}
	}
	return st
}

// statusOf merges the Status of every child equal to want.
func statusOf(children []decision.Child, want decision.Result) decision.Status {
	st := decision.OK
	for _, c := range children {
		if c.Result == want {
			st = decision.Merge(st, c.Status)
		}
	}
	return st
}
