package policytree

import (
	"github.com/xacmlgo/pdp/internal/domain/combine"
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
)

// EvalContext is the handle every policytree node evaluates against.
// Aliased rather than re-declared so policytree never needs its own
// copy of evalctx.RequestContext's cache/memo machinery.
type EvalContext = *evalctx.RequestContext

// EvalOutcome is the result of evaluating a Rule, Policy, or PolicySet:
// the combined Result and Status, any Obligations/Advice that survived
// fail-closed escalation, and the identifiers of every Policy/PolicySet
// that contributed to it (for Response.policyIdentifiers).
type EvalOutcome struct {
	Result decision.Result
	Status decision.Status
	Obligations []ResolvedObligation
	Advice []ResolvedAdvice
	PolicyIDs []string
}

// Policy is the XACML Policy container: a Target, a set of
// Rules combined by a rule-combining algorithm, and the Policy's own
// obligation/advice expressions.
type Policy struct {
	ID string
	Version string
	Target *Target // nil or empty Target always matches
	Rules []*Rule
	Combining combine.Algorithm

	Obligations []*ObligationExpression
	Advice []*AdviceExpression
}

func (p *Policy) NodeID() string { return p.ID }

// Eval runs the full Policy-evaluation procedure: Target match, then
// rule-combining, then obligation/advice collection with fail-closed
// escalation on an Indeterminate assignment.
func (p *Policy) Eval(ctx EvalContext, _ PolicyFinder) EvalOutcome {
	if p.Target != nil {
		m, st := p.Target.Evaluate(ctx)
		switch m {
		case NoMatch:
			return EvalOutcome{Result: decision.NotApplicable, Status: decision.OK}
		case MatchIndeterminate:
			// A Policy's Target could have gated Rules of either effect,
			// so an Indeterminate Target is Indeterminate{DP} regardless
			// of what the Rules beneath it would have decided.
			return EvalOutcome{Result: decision.IndeterminateDP, Status: st}
		}
	}

	children := make([]decision.Child, len(p.Rules))
	for i, r := range p.Rules {
		res, st := r.Evaluate(ctx)
		children[i] = decision.Child{ID: r.ID, Result: res, Status: st}
	}
	result, status := p.Combining(children)

	// A Rule's own ObligationExpressions only bubble up when that Rule's
	// effect is the one the Policy actually settled on:
	// a Rule that lost the combining algorithm never contributes.
	obligations := append([]*ObligationExpression{}, p.Obligations...)
	advice := append([]*AdviceExpression{}, p.Advice...)
	if !result.IsIndeterminate() && result != decision.NotApplicable {
		for i, r := range p.Rules {
			if children[i].Result == result {
				obligations = append(obligations, r.Obligations...)
				advice = append(advice, r.Advice...)
			}
		}
	}
	// contributingIDs stays nil: Rule IDs never appear in a
	// PolicyIdentifierList, only Policy/PolicySet identifiers do.
	return finishOutcome(ctx, p.ID, result, status, obligations, advice, nil, nil, nil)
}

// PolicySet is the XACML PolicySet container: a Target, a list of
// children (Policy, nested PolicySet, or a lazy reference resolved by
// finder), a policy-combining algorithm, and the PolicySet's own
// obligation/advice expressions.
type PolicySet struct {
	ID string
	Version string
	Target *Target
	Children []Evaluable
	Combining combine.Algorithm

	Obligations []*ObligationExpression
	Advice []*AdviceExpression
}

func (ps *PolicySet) NodeID() string { return ps.ID }

func (ps *PolicySet) Eval(ctx EvalContext, finder PolicyFinder) EvalOutcome {
	if ps.Target != nil {
		m, st := ps.Target.Evaluate(ctx)
		switch m {
		case NoMatch:
			return EvalOutcome{Result: decision.NotApplicable, Status: decision.OK}
		case MatchIndeterminate:
			return EvalOutcome{Result: decision.IndeterminateDP, Status: st}
		}
	}

	children := make([]decision.Child, len(ps.Children))
	outcomes := make([]EvalOutcome, len(ps.Children))
	for i, c := range ps.Children {
		o := c.Eval(ctx, finder)
		outcomes[i] = o
		children[i] = decision.Child{ID: c.NodeID(), Result: o.Result, Status: o.Status}
	}
	result, status := ps.Combining(children)

	// A child's resolved obligations/advice already reflect that child's
	// own fail-closed escalation; they bubble up only when the child's
	// result is the one the PolicySet settled on.
	var ids []string
	var childObligations []ResolvedObligation
	var childAdvice []ResolvedAdvice
	for i, o := range outcomes {
		if children[i].Result == decision.NotApplicable {
			continue
		}
		ids = append(ids, o.PolicyIDs...)
		if children[i].Result == result {
			childObligations = append(childObligations, o.Obligations...)
			childAdvice = append(childAdvice, o.Advice...)
		}
	}
	return finishOutcome(ctx, ps.ID, result, status, ps.Obligations, ps.Advice, childObligations, childAdvice, ids)
}

// PolicyIdReference is a lazy handle to a Policy resolved by the
// PolicyFinder at evaluation time, never a direct pointer, so PolicySets
// can be built before every Policy they reference has finished loading.
type PolicyIdReference struct {
	PolicyID string
	Version string // version constraint as written; resolution is by PolicyID alone and does not check it
}

func (r *PolicyIdReference) NodeID() string { return r.PolicyID }

func (r *PolicyIdReference) Eval(ctx EvalContext, finder PolicyFinder) EvalOutcome {
	p, ok := finder.ResolvePolicy(r.PolicyID)
	if !ok {
		return EvalOutcome{
			Result: decision.IndeterminateDP,
			Status: decision.ProcessingError("unresolved PolicyIdReference " + r.PolicyID),
		}
	}
	return p.Eval(ctx, finder)
}

// PolicySetIdReference is PolicyIdReference's PolicySet counterpart.
type PolicySetIdReference struct {
	PolicySetID string
	Version string
}

func (r *PolicySetIdReference) NodeID() string { return r.PolicySetID }

func (r *PolicySetIdReference) Eval(ctx EvalContext, finder PolicyFinder) EvalOutcome {
	ps, ok := finder.ResolvePolicySet(r.PolicySetID)
	if !ok {
		return EvalOutcome{
			Result: decision.IndeterminateDP,
			Status: decision.ProcessingError("unresolved PolicySetIdReference " + r.PolicySetID),
		}
	}
	return ps.Eval(ctx, finder)
}

// finishOutcome applies obligation/advice collection on top of a
// combined (result, status), escalating the decision if
// any obligation's assignments can't be evaluated — an obligation must
// never be silently dropped because evaluating it failed. extraObligations
// and extraAdvice are already-resolved values bubbled up from child
// elements (PolicySet children); they are appended unconditionally since
// each child already applied its own fail-closed escalation.
func finishOutcome(ctx EvalContext, ownID string, result decision.Result, status decision.Status, obligations []*ObligationExpression, advice []*AdviceExpression, extraObligations []ResolvedObligation, extraAdvice []ResolvedAdvice, contributingIDs []string) EvalOutcome {
	ids := append([]string{ownID}, contributingIDs...)
	if result == decision.NotApplicable || result.IsIndeterminate() {
		return EvalOutcome{Result: result, Status: status, PolicyIDs: ids}
	}

	resolvedObligations, obSt, obIndet := collectObligations(ctx, obligations, result)
	if obIndet {
		escalated := decision.IndeterminateP
		if result == decision.Deny {
			escalated = decision.IndeterminateD
		}
		return EvalOutcome{Result: escalated, Status: obSt, PolicyIDs: ids}
	}
	resolvedObligations = append(resolvedObligations, extraObligations...)

	resolvedAdvice, _, adIndet := collectAdvice(ctx, advice, result)
	if adIndet {
		// Advice failures are informational only: drop the
		// advice, keep the decision.
		resolvedAdvice = nil
	}
	resolvedAdvice = append(resolvedAdvice, extraAdvice...)

	return EvalOutcome{
		Result: result,
		Status: status,
		Obligations: resolvedObligations,
		Advice: resolvedAdvice,
		PolicyIDs: ids,
	}
}
