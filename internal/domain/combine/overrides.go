package combine

import "github.com/xacmlgo/pdp/internal/domain/decision"

// denyOverrides implements the XACML 3.0 normative deny-overrides
// reduction: any firm Deny wins outright; otherwise an Indeterminate{DP}
// (or an Indeterminate{D} alongside a Permit/Indeterminate{P}, which is
// just as ambiguous) propagates as Indeterminate{DP}; a lone
// Indeterminate{D} propagates as itself; only once no Deny-shaped
// ambiguity remains does a Permit win.
func denyOverrides(children []decision.Child) (decision.Result, decision.Status) {
	var sawDeny, sawD, sawDP, sawP, sawPermit bool
	for _, c := range children {
		switch c.Result {
		case decision.Deny:
			sawDeny = true
		case decision.IndeterminateDP:
			sawDP = true
		case decision.IndeterminateD:
			sawD = true
		case decision.Permit:
			sawPermit = true
		case decision.IndeterminateP:
			sawP = true
		}
	}
	// A firm Deny always wins, but its Status still folds in every
	// Indeterminate sibling's detail (e.g. a missing-attribute descriptor
	// from a Permit-flavoured rule that never got to fire) so the
	// Response surfaces what a caller could supply to change the
	// outcome, not just the winning rule's own OK status.
	if sawDeny {
		return decision.Deny, decision.Merge(statusOf(children, decision.Deny), mergeIndeterminateStatus(children))
	}
	if sawDP {
		return decision.IndeterminateDP, mergeIndeterminateStatus(children)
	}
	if sawD && (sawPermit || sawP) {
		return decision.IndeterminateDP, mergeIndeterminateStatus(children)
	}
	if sawD {
		return decision.IndeterminateD, mergeIndeterminateStatus(children)
	}
	if sawPermit {
		return decision.Permit, statusOf(children, decision.Permit)
	}
	if sawP {
		return decision.IndeterminateP, mergeIndeterminateStatus(children)
	}
	return decision.NotApplicable, decision.OK
}

// permitOverrides is denyOverrides with Permit/Deny roles swapped.
func permitOverrides(children []decision.Child) (decision.Result, decision.Status) {
	var sawPermit, sawP, sawDP, sawD, sawDeny bool
	for _, c := range children {
		switch c.Result {
		case decision.Permit:
			sawPermit = true
		case decision.IndeterminateDP:
			sawDP = true
		case decision.IndeterminateP:
			sawP = true
		case decision.Deny:
			sawDeny = true
		case decision.IndeterminateD:
			sawD = true
		}
	}
	if sawPermit {
		return decision.Permit, decision.Merge(statusOf(children, decision.Permit), mergeIndeterminateStatus(children))
	}
	if sawDP {
		return decision.IndeterminateDP, mergeIndeterminateStatus(children)
	}
	if sawP && (sawDeny || sawD) {
		return decision.IndeterminateDP, mergeIndeterminateStatus(children)
	}
	if sawP {
		return decision.IndeterminateP, mergeIndeterminateStatus(children)
	}
	if sawDeny {
		return decision.Deny, statusOf(children, decision.Deny)
	}
	if sawD {
		return decision.IndeterminateD, mergeIndeterminateStatus(children)
	}
	return decision.NotApplicable, decision.OK
}

func init() {
	register("urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:deny-overrides", denyOverrides)
	register("urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:deny-overrides", denyOverrides)
	register("urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:ordered-deny-overrides", denyOverrides)
	register("urn:oasis:names:tc:xacml:3.0:policy-combining-algorithm:ordered-deny-overrides", denyOverrides)

	register("urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:permit-overrides", permitOverrides)
	register("urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:permit-overrides", permitOverrides)
	register("urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:ordered-permit-overrides", permitOverrides)
	register("urn:oasis:names:tc:xacml:3.0:policy-combining-algorithm:ordered-permit-overrides", permitOverrides)
}
