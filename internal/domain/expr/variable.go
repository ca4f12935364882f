package expr

import (
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
)

// VariableDefinition names one expression a Policy's VariableReferences
// may resolve to.
type VariableDefinition struct {
	ID   string
	Expr Expression
}

// VariableReference resolves to a VariableDefinition in its enclosing
// Policy. Def is filled in by the policy loader's second pass (variables
// may reference each other regardless of document order), never by the
// Expression itself. A nil Def at evaluation time surfaces as a
// processing error rather than a nil dereference.
type VariableReference struct {
	ID  string
	Def *VariableDefinition
}

func (v *VariableReference) Evaluate(ctx *evalctx.RequestContext) EvaluationResult {
	if v.Def == nil {
		return Indet(decision.ProcessingError("unresolved VariableReference " + v.ID))
	}
	key := "variable:" + v.ID
	if cached, ok := ctx.Memo(key); ok {
		return cached.(EvaluationResult)
	}
	result := v.Def.Expr.Evaluate(ctx)
	ctx.SetMemo(key, result)
	return result
}

func (v *VariableReference) DataType() string {
	if v.Def == nil {
		return ""
	}
	return v.Def.Expr.DataType()
}

func (v *VariableReference) ReturnsBag() bool {
	if v.Def == nil {
		return false
	}
	return v.Def.Expr.ReturnsBag()
}
