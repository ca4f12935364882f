// Package policytree implements the XACML policy tree: Target/Match
// predicates, Rule/Policy/PolicySet containers, and
// obligation/advice expressions. References between policies are lazy
// PolicyRef handles resolved by a PolicyFinder at evaluation time, never
// direct pointers, so a PolicySet can be built before every Policy it
// references has loaded.
package policytree

import (
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
)

// MatchResult is the 3-valued outcome of evaluating a Match, AllOf,
// AnyOf, or Target against a RequestContext.
type MatchResult int

const (
	NoMatch MatchResult = iota
	IsMatch
	MatchIndeterminate
)

// Match applies a binary match Function to one literal AttributeValue
// and the bag an AttributeDesignator/Selector produces: Match if any
// bag element satisfies the function.
type Match struct {
	Fn *expr.Function
	Literal *expr.AttributeValue
	Designator expr.Expression // AttributeDesignator or AttributeSelector
}

// Evaluate returns this Match's 3-valued result against ctx.
func (m *Match) Evaluate(ctx *evalctx.RequestContext) (MatchResult, decision.Status) {
	res := m.Designator.Evaluate(ctx)
	if res.Indeterminate {
		return MatchIndeterminate, res.Status
	}
	if !res.IsBag {
		return MatchIndeterminate, decision.ProcessingError("match: designator did not return a bag")
	}
	for _, v := range res.Bag.Values {
		r := m.Fn.Eval(ctx, []expr.Expression{m.Literal, expr.NewLiteral(v)})
		if r.Indeterminate {
			return MatchIndeterminate, r.Status
		}
		if b, ok := r.Value.Payload.(bool); ok && b {
			return IsMatch, decision.OK
		}
	}
	return NoMatch, decision.OK
}

// AllOf is a conjunction of Matches.
type AllOf struct {
	Matches []*Match
}

func (a *AllOf) Evaluate(ctx *evalctx.RequestContext) (MatchResult, decision.Status) {
	if len(a.Matches) == 0 {
		return IsMatch, decision.OK
	}
	sawIndeterminate := false
	var st decision.Status
	for _, m := range a.Matches {
		r, s := m.Evaluate(ctx)
		switch r {
		case NoMatch:
			return NoMatch, decision.OK
		case MatchIndeterminate:
			sawIndeterminate = true
			st = s
		}
	}
	if sawIndeterminate {
		return MatchIndeterminate, st
	}
	return IsMatch, decision.OK
}

// AnyOf is a disjunction of AllOfs.
type AnyOf struct {
	AllOfs []*AllOf
}

func (a *AnyOf) Evaluate(ctx *evalctx.RequestContext) (MatchResult, decision.Status) {
	if len(a.AllOfs) == 0 {
		return IsMatch, decision.OK
	}
	sawIndeterminate := false
	var st decision.Status
	for _, ao := range a.AllOfs {
		r, s := ao.Evaluate(ctx)
		switch r {
		case IsMatch:
			return IsMatch, decision.OK
		case MatchIndeterminate:
			sawIndeterminate = true
			st = s
		}
	}
	if sawIndeterminate {
		return MatchIndeterminate, st
	}
	return NoMatch, decision.OK
}

// Target is a conjunction of AnyOfs. An empty Target always matches.
type Target struct {
	AnyOfs []*AnyOf
}

func (t *Target) Evaluate(ctx *evalctx.RequestContext) (MatchResult, decision.Status) {
	if len(t.AnyOfs) == 0 {
		return IsMatch, decision.OK
	}
	sawIndeterminate := false
	var st decision.Status
	for _, ao := range t.AnyOfs {
		r, s := ao.Evaluate(ctx)
		switch r {
		case NoMatch:
			return NoMatch, decision.OK
		case MatchIndeterminate:
			sawIndeterminate = true
			st = s
		}
	}
	if sawIndeterminate {
		return MatchIndeterminate, st
	}
	return IsMatch, decision.OK
}
