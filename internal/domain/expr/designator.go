package expr

import (
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// AttributeDesignator looks up a bag of values by (category, id,
// dataType, issuer?) in the Request Context. An empty result is either a
// legal empty bag or an Indeterminate(missing-attribute), depending on
// MustBePresent.
type AttributeDesignator struct {
	Category string
	AttributeID string
	Type string
	Issuer string
	MustBePresent bool
}

func (d *AttributeDesignator) Evaluate(ctx *evalctx.RequestContext) EvaluationResult {
	bag := ctx.GetAttribute(d.Category, d.AttributeID, d.Type, d.Issuer)
	if bag.Size() == 0 && d.MustBePresent {
		return Indet(decision.MissingAttribute(decision.MissingAttributeDetail{
			Category: d.Category,
			AttrID: d.AttributeID,
			DataType: d.Type,
			Issuer: d.Issuer,
		}))
	}
	if bag.Type == "" {
		bag = value.EmptyBag(d.Type)
	}
	return BagResult(bag)
}

func (d *AttributeDesignator) DataType() string { return d.Type }
func (d *AttributeDesignator) ReturnsBag() bool { return true }
