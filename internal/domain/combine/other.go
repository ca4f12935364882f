package combine

import "github.com/xacmlgo/pdp/internal/domain/decision"

// firstApplicable returns the first child result that is not
// NotApplicable, in document order. Its Status is that child's own
// Status — there is no merging across children since only one child's
// result ever surfaces.
func firstApplicable(children []decision.Child) (decision.Result, decision.Status) {
	for _, c := range children {
		if c.Result != decision.NotApplicable {
			return c.Result, c.Status
		}
	}
	return decision.NotApplicable, decision.OK
}

// onlyOneApplicable requires exactly one child to be applicable
// (Result != NotApplicable); a second applicable child makes the parent
// Indeterminate{DP} since either could have been the intended decision.
// This is a policy-combining-only algorithm in the XACML 3.0 schema (no
// rule-combining URI exists for it).
func onlyOneApplicable(children []decision.Child) (decision.Result, decision.Status) {
	var applicable []decision.Child
	for _, c := range children {
		if c.Result.IsIndeterminate() {
			return decision.IndeterminateDP, c.Status
		}
		if c.Result != decision.NotApplicable {
			applicable = append(applicable, c)
		}
	}
	switch len(applicable) {
	case 0:
		return decision.NotApplicable, decision.OK
	case 1:
		return applicable[0].Result, applicable[0].Status
	default:
		return decision.IndeterminateDP, decision.ProcessingError("only-one-applicable: more than one child applicable")
	}
}

// denyUnlessPermit never produces Indeterminate or NotApplicable: any
// Permit wins, otherwise Deny — fail-closed by construction. The
// fallback Deny folds in both any
// firm-Deny child's own Status (itself already a merged status, when
// that child is a nested Policy/PolicySet whose own combining absorbed
// an Indeterminate) and any directly Indeterminate child's Status, so a
// missing-attribute descriptor survives however many combining levels
// sit between the Rule that saw it and the root.
func denyUnlessPermit(children []decision.Child) (decision.Result, decision.Status) {
	for _, c := range children {
		if c.Result == decision.Permit {
			return decision.Permit, statusOf(children, decision.Permit)
		}
	}
	return decision.Deny, decision.Merge(statusOf(children, decision.Deny), mergeIndeterminateStatus(children))
}

// permitUnlessDeny is denyUnlessPermit with Permit/Deny swapped.
func permitUnlessDeny(children []decision.Child) (decision.Result, decision.Status) {
	for _, c := range children {
		if c.Result == decision.Deny {
			return decision.Deny, statusOf(children, decision.Deny)
		}
	}
	return decision.Permit, decision.Merge(statusOf(children, decision.Permit), mergeIndeterminateStatus(children))
}

func init() {
	register("urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:first-applicable", firstApplicable)
	register("urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:first-applicable", firstApplicable)

	register("urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:only-one-applicable", onlyOneApplicable)

	register("urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-unless-permit", denyUnlessPermit)
	register("urn:oasis:names:tc:xacml:3.0:policy-combining-algorithm:deny-unless-permit", denyUnlessPermit)

	register("urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:permit-unless-deny", permitUnlessDeny)
	register("urn:oasis:names:tc:xacml:3.0:policy-combining-algorithm:permit-unless-deny", permitUnlessDeny)
}
