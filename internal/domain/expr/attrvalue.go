package expr

import (
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// AttributeValue is a literal value baked into a policy. Its literal is
// parsed eagerly at construction (NewAttributeValue); parse failure is a
// policy-load error, never an Indeterminate seen by an evaluating request.
type AttributeValue struct {
	v value.Value
}

// NewAttributeValue parses literal as dataType, returning the error a
// policy loader should treat as a load-time failure.
func NewAttributeValue(dataType, literal string) (*AttributeValue, error) {
	v, err := value.New(dataType, literal)
	if err != nil {
		return nil, err
	}
	return &AttributeValue{v: v}, nil
}

func (a *AttributeValue) Evaluate(_ *evalctx.RequestContext) EvaluationResult { return Val(a.v) }
func (a *AttributeValue) DataType() string { return a.v.Type }
func (a *AttributeValue) ReturnsBag() bool { return false }

// Value exposes the underlying literal value, used by Match evaluation
// (policytree) which needs the literal side of a comparison directly.
func (a *AttributeValue) Value() value.Value { return a.v }
