package expr

import (
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/evalctx/xpathlite"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// AttributeSelector applies an xpathlite Path to a Request category's
// <Content> fragment, wrapping every matched node's text as dataType.
// Unsupported path syntax is a load-time error from NewAttributeSelector;
// a path that is syntactically fine but addresses no Content (missing
// category, or no Content element at all) follows the same
// empty-vs-MustBePresent rule as AttributeDesignator.
type AttributeSelector struct {
	Category string
	Path *xpathlite.Path
	RawPath string
	Type string
	MustBePresent bool
}

// NewAttributeSelector compiles path via xpathlite.Parse; a parse error
// here is a policy-load failure, matching AttributeValue's eager-parse
// contract.
func NewAttributeSelector(category, path, dataType string, mustBePresent bool) (*AttributeSelector, error) {
	p, err := xpathlite.Parse(path)
	if err != nil {
		return nil, err
	}
	return &AttributeSelector{Category: category, Path: p, RawPath: path, Type: dataType, MustBePresent: mustBePresent}, nil
}

func (s *AttributeSelector) Evaluate(ctx *evalctx.RequestContext) EvaluationResult {
	content, ok := ctx.GetContent(s.Category)
	if !ok {
		return s.missingOrEmpty()
	}
	texts, err := xpathlite.Eval(content, s.Path)
	if err != nil {
		return Indet(decision.SyntaxError(err.Error()))
	}
	if len(texts) == 0 {
		return s.missingOrEmpty()
	}
	values := make([]value.Value, 0, len(texts))
	for _, t := range texts {
		v, err := value.New(s.Type, t)
		if err != nil {
			return Indet(decision.SyntaxError(err.Error()))
		}
		values = append(values, v)
	}
	return BagResult(value.NewBag(s.Type, values...))
}

func (s *AttributeSelector) missingOrEmpty() EvaluationResult {
	if s.MustBePresent {
		return Indet(decision.MissingAttribute(decision.MissingAttributeDetail{
			Category: s.Category,
			AttrID: s.RawPath,
			DataType: s.Type,
		}))
	}
	return BagResult(value.EmptyBag(s.Type))
}

func (s *AttributeSelector) DataType() string { return s.Type }
func (s *AttributeSelector) ReturnsBag() bool { return true }
