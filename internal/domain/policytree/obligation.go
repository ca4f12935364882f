package policytree

import (
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// AttributeAssignmentExpression is one assignment inside an
// ObligationExpression/AdviceExpression: a target attribute descriptor
// plus the Expression producing its value.
type AttributeAssignmentExpression struct {
	AttributeID string
	Category string
	DataType string
	Issuer string
	Expr expr.Expression
}

// ResolvedAssignment is an AttributeAssignmentExpression after
// evaluation, carrying the concrete Value it produced.
type ResolvedAssignment struct {
	AttributeID string
	Category string
	Issuer string
	Value value.Value
}

// ObligationExpression is fulfilled only when the enclosing element's
// final decision equals FulfillOn.
type ObligationExpression struct {
	ID string
	FulfillOn decision.Effect
	Assignments []AttributeAssignmentExpression
}

// AdviceExpression is attached whenever the enclosing element's final
// decision equals AppliesTo; unlike obligations, a failure evaluating
// advice is informational and does not promote the decision.
type AdviceExpression struct {
	ID string
	AppliesTo decision.Effect
	Assignments []AttributeAssignmentExpression
}

// ResolvedObligation is an ObligationExpression after assignment
// evaluation.
type ResolvedObligation struct {
	ID string
	Assignments []ResolvedAssignment
}

// ResolvedAdvice is an AdviceExpression after assignment evaluation.
type ResolvedAdvice struct {
	ID string
	Assignments []ResolvedAssignment
}

// evalAssignments evaluates every assignment expression, returning an
// Indeterminate status (never partial results) the moment any one fails
// — fail-closed: an obligation must never be silently
// dropped because one of its assignments couldn't be computed.
func evalAssignments(ctx *evalctx.RequestContext, exprs []AttributeAssignmentExpression) ([]ResolvedAssignment, decision.Status, bool) {
	out := make([]ResolvedAssignment, 0, len(exprs))
	for _, a := range exprs {
		res := a.Expr.Evaluate(ctx)
		if res.Indeterminate {
			return nil, res.Status, true
		}
		if res.IsBag {
			return nil, decision.ProcessingError("obligation/advice assignment must not be a bag"), true
		}
		out = append(out, ResolvedAssignment{
			AttributeID: a.AttributeID,
			Category: a.Category,
			Issuer: a.Issuer,
			Value: res.Value,
		})
	}
	return out, decision.OK, false
}

// collectObligations evaluates every obligation whose FulfillOn matches
// result. If any fails, it reports that failure so the caller can
// promote the enclosing decision to Indeterminate.
func collectObligations(ctx *evalctx.RequestContext, obligations []*ObligationExpression, result decision.Result) ([]ResolvedObligation, decision.Status, bool) {
	var out []ResolvedObligation
	for _, o := range obligations {
		if decision.Result(o.FulfillOn) != result {
			continue
		}
		assignments, st, indet := evalAssignments(ctx, o.Assignments)
		if indet {
			return nil, st, true
		}
		out = append(out, ResolvedObligation{ID: o.ID, Assignments: assignments})
	}
	return out, decision.OK, false
}

func collectAdvice(ctx *evalctx.RequestContext, advice []*AdviceExpression, result decision.Result) ([]ResolvedAdvice, decision.Status, bool) {
	var out []ResolvedAdvice
	for _, a := range advice {
		if decision.Result(a.AppliesTo) != result {
			continue
		}
		assignments, st, indet := evalAssignments(ctx, a.Assignments)
		if indet {
			return nil, st, true
		}
		out = append(out, ResolvedAdvice{ID: a.ID, Assignments: assignments})
	}
	return out, decision.OK, false
}
