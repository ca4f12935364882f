package combine

import (
	"testing"

	"github.com/xacmlgo/pdp/internal/domain/decision"
)

func child(r decision.Result) decision.Child {
	return decision.Child{Result: r}
}

func TestDenyOverridesAnyDenyWins(t *testing.T) {
	alg, ok := Lookup("urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:deny-overrides")
	if !ok {
		t.Fatal("deny-overrides not registered")
	}
	r, _ := alg([]decision.Child{child(decision.Permit), child(decision.Deny)})
	if r != decision.Deny {
		t.Fatalf("got %v, want Deny", r)
	}
}

func TestDenyOverridesMonotonic(t *testing.T) {
	alg, _ := Lookup("urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:deny-overrides")
	base := []decision.Child{child(decision.Deny), child(decision.NotApplicable)}
	withMorePermits := append(append([]decision.Child{}, base...), child(decision.Permit))
	r1, _ := alg(base)
	r2, _ := alg(withMorePermits)
	if r1 != decision.Deny || r2 != decision.Deny {
		t.Fatalf("adding a Permit child must never turn a Deny into a Permit: got %v, %v", r1, r2)
	}
}

func TestDenyOverridesIndeterminateDWithPermitEscalatesToDP(t *testing.T) {
	alg, _ := Lookup("urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:deny-overrides")
	r, _ := alg([]decision.Child{child(decision.IndeterminateD), child(decision.Permit)})
	if r != decision.IndeterminateDP {
		t.Fatalf("got %v, want IndeterminateDP", r)
	}
}

func TestPermitOverridesAnyPermitWins(t *testing.T) {
	alg, _ := Lookup("urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:permit-overrides")
	r, _ := alg([]decision.Child{child(decision.Deny), child(decision.Permit)})
	if r != decision.Permit {
		t.Fatalf("got %v, want Permit", r)
	}
}

func TestFirstApplicableSkipsNotApplicable(t *testing.T) {
	alg, _ := Lookup("urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:first-applicable")
	r, _ := alg([]decision.Child{child(decision.NotApplicable), child(decision.Deny), child(decision.Permit)})
	if r != decision.Deny {
		t.Fatalf("got %v, want Deny (first non-NotApplicable)", r)
	}
}

func TestOnlyOneApplicableTwoApplicableIsIndeterminate(t *testing.T) {
	alg, _ := Lookup("urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:only-one-applicable")
	r, _ := alg([]decision.Child{child(decision.Permit), child(decision.Deny)})
	if !r.IsIndeterminate() {
		t.Fatalf("got %v, want an Indeterminate flavour", r)
	}
}

func TestOnlyOneApplicableSingleMatch(t *testing.T) {
	alg, _ := Lookup("urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:only-one-applicable")
	r, _ := alg([]decision.Child{child(decision.NotApplicable), child(decision.Permit)})
	if r != decision.Permit {
		t.Fatalf("got %v, want Permit", r)
	}
}

func TestDenyUnlessPermitNeverIndeterminate(t *testing.T) {
	alg, _ := Lookup("urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-unless-permit")
	r, _ := alg([]decision.Child{child(decision.IndeterminateP), child(decision.NotApplicable)})
	if r != decision.Deny {
		t.Fatalf("got %v, want Deny", r)
	}
	r2, _ := alg([]decision.Child{child(decision.Permit), child(decision.IndeterminateD)})
	if r2 != decision.Permit {
		t.Fatalf("got %v, want Permit", r2)
	}
}

func TestPermitUnlessDenySymmetric(t *testing.T) {
	alg, _ := Lookup("urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:permit-unless-deny")
	r, _ := alg([]decision.Child{child(decision.Deny), child(decision.Permit)})
	if r != decision.Deny {
		t.Fatalf("got %v, want Deny", r)
	}
}
