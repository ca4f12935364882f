package policytree

// PolicyFinder resolves PolicyIdReference/PolicySetIdReference handles
// at evaluation time. The PDP's immutable loaded-policy snapshot backs
// this; policytree itself never holds direct pointers between
// referencing nodes, so a PolicySet can be built before every Policy it
// names has finished loading.
type PolicyFinder interface {
	ResolvePolicy(id string) (*Policy, bool)
	ResolvePolicySet(id string) (*PolicySet, bool)
}

// Evaluable is implemented by every node a PolicySet can combine:
// Policy, PolicySet, PolicyIdReference, PolicySetIdReference.
type Evaluable interface {
	NodeID() string
	Eval(ctx EvalContext, finder PolicyFinder) EvalOutcome
}
