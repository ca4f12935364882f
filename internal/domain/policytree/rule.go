package policytree

import (
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
)

// Condition wraps the boolean Expression gating a Rule.
type Condition struct {
	Expr expr.Expression
}

func (c *Condition) evaluate(ctx *evalctx.RequestContext) (bool, decision.Status, bool) {
	res := c.Expr.Evaluate(ctx)
	if res.Indeterminate {
		return false, res.Status, true
	}
	if res.IsBag {
		return false, decision.ProcessingError("condition must evaluate to a single boolean value"), true
	}
	b, ok := res.Value.Payload.(bool)
	if !ok {
		return false, decision.ProcessingError("condition must evaluate to boolean"), true
	}
	return b, decision.OK, false
}

// Rule is the leaf of the policy tree: an effect, an optional target, an
// optional condition, and its own obligation/advice expressions.
type Rule struct {
	ID string
	Effect decision.Effect
	Target *Target // nil or empty Target always matches
	Condition *Condition
	Obligations []*ObligationExpression
	Advice []*AdviceExpression
}

// Evaluate runs this Rule's target and condition against ctx, following
// the 3-step rule-evaluation procedure: NoMatch target -> NotApplicable;
// Indeterminate target or condition -> Indeterminate flavoured by the
// Rule's own Effect; matching target with false condition ->
// NotApplicable; matching target with true condition -> the Rule's
// Effect.
func (r *Rule) Evaluate(ctx *evalctx.RequestContext) (decision.Result, decision.Status) {
	if r.Target != nil {
		m, st := r.Target.Evaluate(ctx)
		switch m {
		case NoMatch:
			return decision.NotApplicable, decision.OK
		case MatchIndeterminate:
			return r.indeterminateFlavour(), st
		}
	}
	if r.Condition == nil {
		return decision.Result(r.Effect), decision.OK
	}
	ok, st, indet := r.Condition.evaluate(ctx)
	if indet {
		return r.indeterminateFlavour(), st
	}
	if !ok {
		return decision.NotApplicable, decision.OK
	}
	return decision.Result(r.Effect), decision.OK
}

func (r *Rule) indeterminateFlavour() decision.Result {
	if r.Effect == decision.EffectDeny {
		return decision.IndeterminateD
	}
	return decision.IndeterminateP
}
