package xacmlxml

import (
	"bytes"
	"fmt"

	"github.com/xacmlgo/pdp/internal/domain/combine"
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/expr/fn"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
)

// LoadResult accumulates every Policy and PolicySet a document load
// produced, flattened out of whatever nesting the XML used, so a
// PolicyFinder can resolve a PolicyIdReference/PolicySetIdReference
// regardless of whether its target was declared top-level or inline
// inside a PolicySet.
type LoadResult struct {
	Policies []*policytree.Policy
	PolicySets []*policytree.PolicySet
	// Roots holds one entry per document compiled, in the order
	// compiled — the element a PDP's root combining algorithm combines
	// directly.
	Roots []policytree.Evaluable
}

func (lr *LoadResult) addPolicy(p *policytree.Policy) { lr.Policies = append(lr.Policies, p) }

func (lr *LoadResult) addPolicySet(ps *policytree.PolicySet) {
	lr.PolicySets = append(lr.PolicySets, ps)
}

// CompileDocument compiles one Policy or PolicySet document (its root
// element already parsed into a *node) and registers every Policy and
// PolicySet encountered, inline or not, into lr.
func CompileDocument(root *node, lr *LoadResult) (policytree.Evaluable, error) {
	switch root.name {
	case "Policy":
		p, err := compilePolicy(root)
		if err != nil {
			return nil, err
		}
		lr.addPolicy(p)
		return p, nil
	case "PolicySet":
		return compilePolicySet(root, lr)
	default:
		return nil, fmt.Errorf("xacmlxml: document root must be Policy or PolicySet, got %q", root.name)
	}
}

// LoadPolicyDocuments parses and compiles every document in docs (each
// the raw bytes of one Policy or PolicySet XML file), returning the
// flattened Policies/PolicySets plus one Roots entry per document.
// Malformed XML, an unknown dataType/function/combining-algorithm URI,
// or a structurally invalid element is a load-time error here; it never
// surfaces as a per-request Indeterminate the way a runtime evaluation
// failure does.
func LoadPolicyDocuments(docs [][]byte) (*LoadResult, error) {
	lr := &LoadResult{}
	for i, doc := range docs {
		root, err := parseXML(bytes.NewReader(doc))
		if err != nil {
			return nil, fmt.Errorf("xacmlxml: document %d: %w", i, err)
		}
		ev, err := CompileDocument(root, lr)
		if err != nil {
			return nil, fmt.Errorf("xacmlxml: document %d: %w", i, err)
		}
		lr.Roots = append(lr.Roots, ev)
	}
	return lr, nil
}

func compileTarget(n *node) (*policytree.Target, error) {
	tn := n.child("Target")
	if tn == nil {
		return nil, nil
	}
	var anyOfs []*policytree.AnyOf
	for _, aon := range tn.childrenNamed("AnyOf") {
		ao, err := compileAnyOf(aon)
		if err != nil {
			return nil, err
		}
		anyOfs = append(anyOfs, ao)
	}
	return &policytree.Target{AnyOfs: anyOfs}, nil
}

func compileAnyOf(n *node) (*policytree.AnyOf, error) {
	var allOfs []*policytree.AllOf
	for _, aln := range n.childrenNamed("AllOf") {
		al, err := compileAllOf(aln)
		if err != nil {
			return nil, err
		}
		allOfs = append(allOfs, al)
	}
	return &policytree.AnyOf{AllOfs: allOfs}, nil
}

func compileAllOf(n *node) (*policytree.AllOf, error) {
	var matches []*policytree.Match
	for _, mn := range n.childrenNamed("Match") {
		m, err := compileMatch(mn)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return &policytree.AllOf{Matches: matches}, nil
}

// compileMatch expects exactly the two children a XACML Match carries:
// one AttributeValue (the literal) and one AttributeDesignator or
// AttributeSelector (the designator side), in either order.
func compileMatch(n *node) (*policytree.Match, error) {
	matchFn, ok := fn.Lookup(n.attr("MatchId"))
	if !ok {
		return nil, fmt.Errorf("xacmlxml: unknown MatchId %q", n.attr("MatchId"))
	}
	var literal *expr.AttributeValue
	var designator expr.Expression
	c := newExprCompiler()
	for _, child := range n.children {
		compiled, err := c.compile(child)
		if err != nil {
			return nil, fmt.Errorf("xacmlxml: Match: %w", err)
		}
		if v, ok := compiled.(*expr.AttributeValue); ok {
			literal = v
			continue
		}
		designator = compiled
	}
	if literal == nil || designator == nil {
		return nil, fmt.Errorf("xacmlxml: Match must have one AttributeValue and one designator/selector")
	}
	return &policytree.Match{Fn: matchFn, Literal: literal, Designator: designator}, nil
}

func parseEffect(s string) (decision.Effect, bool) {
	switch s {
	case "Permit":
		return decision.EffectPermit, true
	case "Deny":
		return decision.EffectDeny, true
	default:
		return "", false
	}
}

// compileRule compiles one Rule element using vc's already-populated
// variable table, so the Rule's Condition and obligation/advice
// assignments can reference the enclosing Policy's VariableDefinitions
// regardless of document order.
func compileRule(n *node, vc *exprCompiler) (*policytree.Rule, error) {
	effect, ok := parseEffect(n.attr("Effect"))
	if !ok {
		return nil, fmt.Errorf("xacmlxml: Rule %s has invalid Effect %q", n.attr("RuleId"), n.attr("Effect"))
	}
	target, err := compileTarget(n)
	if err != nil {
		return nil, err
	}
	rule := &policytree.Rule{ID: n.attr("RuleId"), Effect: effect, Target: target}

	if cn := n.child("Condition"); cn != nil {
		if len(cn.children) != 1 {
			return nil, fmt.Errorf("xacmlxml: Condition in rule %s must have exactly one expression child", rule.ID)
		}
		body, err := vc.compile(cn.children[0])
		if err != nil {
			return nil, fmt.Errorf("xacmlxml: Rule %s Condition: %w", rule.ID, err)
		}
		rule.Condition = &policytree.Condition{Expr: body}
	}

	obligations, err := compileObligationExpressions(n.child("ObligationExpressions"), vc)
	if err != nil {
		return nil, err
	}
	rule.Obligations = obligations

	advice, err := compileAdviceExpressions(n.child("AdviceExpressions"), vc)
	if err != nil {
		return nil, err
	}
	rule.Advice = advice
	return rule, nil
}

func compileAssignmentExpression(n *node, vc *exprCompiler) (policytree.AttributeAssignmentExpression, error) {
	if len(n.children) != 1 {
		return policytree.AttributeAssignmentExpression{}, fmt.Errorf("xacmlxml: AttributeAssignmentExpression %s must have exactly one expression child", n.attr("AttributeId"))
	}
	body, err := vc.compile(n.children[0])
	if err != nil {
		return policytree.AttributeAssignmentExpression{}, err
	}
	return policytree.AttributeAssignmentExpression{
		AttributeID: n.attr("AttributeId"),
		Category: n.attr("Category"),
		DataType: n.attr("DataType"),
		Issuer: n.attr("Issuer"),
		Expr: body,
	}, nil
}

func compileObligationExpressions(n *node, vc *exprCompiler) ([]*policytree.ObligationExpression, error) {
	if n == nil {
		return nil, nil
	}
	var out []*policytree.ObligationExpression
	for _, on := range n.childrenNamed("ObligationExpression") {
		fulfillOn, ok := parseEffect(on.attr("FulfillOn"))
		if !ok {
			return nil, fmt.Errorf("xacmlxml: ObligationExpression %s has invalid FulfillOn %q", on.attr("ObligationId"), on.attr("FulfillOn"))
		}
		var assigns []policytree.AttributeAssignmentExpression
		for _, an := range on.childrenNamed("AttributeAssignmentExpression") {
			a, err := compileAssignmentExpression(an, vc)
			if err != nil {
				return nil, err
			}
			assigns = append(assigns, a)
		}
		out = append(out, &policytree.ObligationExpression{ID: on.attr("ObligationId"), FulfillOn: fulfillOn, Assignments: assigns})
	}
	return out, nil
}

func compileAdviceExpressions(n *node, vc *exprCompiler) ([]*policytree.AdviceExpression, error) {
	if n == nil {
		return nil, nil
	}
	var out []*policytree.AdviceExpression
	for _, an := range n.childrenNamed("AdviceExpression") {
		appliesTo, ok := parseEffect(an.attr("AppliesTo"))
		if !ok {
			return nil, fmt.Errorf("xacmlxml: AdviceExpression %s has invalid AppliesTo %q", an.attr("AdviceId"), an.attr("AppliesTo"))
		}
		var assigns []policytree.AttributeAssignmentExpression
		for _, aan := range an.childrenNamed("AttributeAssignmentExpression") {
			a, err := compileAssignmentExpression(aan, vc)
			if err != nil {
				return nil, err
			}
			assigns = append(assigns, a)
		}
		out = append(out, &policytree.AdviceExpression{ID: an.attr("AdviceId"), AppliesTo: appliesTo, Assignments: assigns})
	}
	return out, nil
}

func compilePolicy(n *node) (*policytree.Policy, error) {
	alg, ok := combine.Lookup(n.attr("RuleCombiningAlgId"))
	if !ok {
		return nil, fmt.Errorf("xacmlxml: Policy %s: unknown RuleCombiningAlgId %q", n.attr("PolicyId"), n.attr("RuleCombiningAlgId"))
	}
	target, err := compileTarget(n)
	if err != nil {
		return nil, err
	}

	vc := newExprCompiler()
	if err := vc.registerVariableDefinitions(n.childrenNamed("VariableDefinition")); err != nil {
		return nil, err
	}

	var rules []*policytree.Rule
	for _, rn := range n.childrenNamed("Rule") {
		r, err := compileRule(rn, vc)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	obligations, err := compileObligationExpressions(n.child("ObligationExpressions"), vc)
	if err != nil {
		return nil, err
	}
	advice, err := compileAdviceExpressions(n.child("AdviceExpressions"), vc)
	if err != nil {
		return nil, err
	}

	return &policytree.Policy{
		ID: n.attr("PolicyId"),
		Version: n.attr("Version"),
		Target: target,
		Rules: rules,
		Combining: alg,
		Obligations: obligations,
		Advice: advice,
	}, nil
}

// compilePolicySet compiles a PolicySet element, recursing into inline
// Policy/PolicySet children and registering every Policy/PolicySet
// encountered (inline or not) into lr so external PolicyIdReferences can
// still resolve them.
func compilePolicySet(n *node, lr *LoadResult) (*policytree.PolicySet, error) {
	alg, ok := combine.Lookup(n.attr("PolicyCombiningAlgId"))
	if !ok {
		return nil, fmt.Errorf("xacmlxml: PolicySet %s: unknown PolicyCombiningAlgId %q", n.attr("PolicySetId"), n.attr("PolicyCombiningAlgId"))
	}
	target, err := compileTarget(n)
	if err != nil {
		return nil, err
	}

	var children []policytree.Evaluable
	for _, child := range n.children {
		switch child.name {
		case "Policy":
			p, err := compilePolicy(child)
			if err != nil {
				return nil, err
			}
			lr.addPolicy(p)
			children = append(children, p)
		case "PolicySet":
			ps, err := compilePolicySet(child, lr)
			if err != nil {
				return nil, err
			}
			children = append(children, ps)
		case "PolicyIdReference":
			children = append(children, &policytree.PolicyIdReference{PolicyID: child.trimmedText(), Version: child.attr("Version")})
		case "PolicySetIdReference":
			children = append(children, &policytree.PolicySetIdReference{PolicySetID: child.trimmedText(), Version: child.attr("Version")})
		}
	}

	vc := newExprCompiler()
	obligations, err := compileObligationExpressions(n.child("ObligationExpressions"), vc)
	if err != nil {
		return nil, err
	}
	advice, err := compileAdviceExpressions(n.child("AdviceExpressions"), vc)
	if err != nil {
		return nil, err
	}

	ps := &policytree.PolicySet{
		ID: n.attr("PolicySetId"),
		Version: n.attr("Version"),
		Target: target,
		Children: children,
		Combining: alg,
		Obligations: obligations,
		Advice: advice,
	}
	lr.addPolicySet(ps)
	return ps, nil
}
