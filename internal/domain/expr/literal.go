package expr

import (
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// Literal wraps an already-parsed Value as an Expression, used to
// rewrap a bag element as a single-value argument when a higher-order
// function applies another Function pointwise.
// Unlike AttributeValue it never parses — the Value is already known-good.
type Literal struct{ v value.Value }

// NewLiteral wraps v.
func NewLiteral(v value.Value) *Literal { return &Literal{v: v} }

func (l *Literal) Evaluate(_ *evalctx.RequestContext) EvaluationResult { return Val(l.v) }
func (l *Literal) DataType() string { return l.v.Type }
func (l *Literal) ReturnsBag() bool { return false }

// FunctionReference names a Function without applying it — the
// "function reference" form XACML's higher-order functions take as
// their leading argument.
type FunctionReference struct{ Fn *Function }

// NewFunctionReference wraps fn as an unapplied reference.
func NewFunctionReference(fn *Function) *FunctionReference { return &FunctionReference{Fn: fn} }

func (f *FunctionReference) Evaluate(_ *evalctx.RequestContext) EvaluationResult {
	return EvaluationResult{FuncRef: f.Fn}
}
func (f *FunctionReference) DataType() string { return "" }
func (f *FunctionReference) ReturnsBag() bool { return false }
