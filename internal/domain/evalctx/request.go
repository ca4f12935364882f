// Package evalctx implements the per-evaluation Request Context: the
// parsed Request, the attribute-finder chain, and a cache scoped
// strictly to one RequestContext value rather than any package-level
// store.
package evalctx

import "github.com/xacmlgo/pdp/internal/domain/value"

// Standard XACML 3.0 attribute categories.
const (
	CategorySubject = "urn:oasis:names:tc:xacml:1.0:subject-category:access-subject"
	CategoryResource = "urn:oasis:names:tc:xacml:3.0:attribute-category:resource"
	CategoryAction = "urn:oasis:names:tc:xacml:3.0:attribute-category:action"
	CategoryEnvironment = "urn:oasis:names:tc:xacml:3.0:attribute-category:environment"
)

// EnvironmentCurrentDateTime is the well-known attribute id of the
// evaluation's current dateTime. RequestContext.CurrentDateTime reads it
// from the Request and falls back to the Context's fixed instant; the
// fallback is not added to the Request, so an AttributeDesignator on this
// id sees only what the Request or a finder supplies.
const EnvironmentCurrentDateTime = "urn:oasis:names:tc:xacml:1.0:environment:current-dateTime"

// Attribute is one Request attribute: a typed bag of values under a
// category, identified by id and optionally scoped to an issuer.
type Attribute struct {
	Category string
	ID string
	DataType string
	Issuer string
	Values value.Bag
	IncludeInResult bool
}

// AttributesGroup is the parsed contents of one <Attributes> element:
// its category, any attributes it carries, and an optional raw XML
// <Content> fragment for AttributeSelector evaluation.
type AttributesGroup struct {
	Category string
	Attributes []Attribute
	Content string
	HasContent bool
}

// Request is the fully parsed XACML Request: attribute groups indexed
// by category (duplicate groups for the same category are merged by
// the loader), plus the two top-level flags.
type Request struct {
	Groups map[string]*AttributesGroup
	ReturnPolicyIdList bool
	CombinedDecision bool
}

// NewRequest returns an empty Request ready to accept merged groups.
func NewRequest() *Request {
	return &Request{Groups: make(map[string]*AttributesGroup)}
}

// AddGroup merges g into the Request. A second group for an
// already-seen category has its attributes appended and its Content
// adopted only if the existing group had none.
func (r *Request) AddGroup(g *AttributesGroup) {
	existing, ok := r.Groups[g.Category]
	if !ok {
		r.Groups[g.Category] = g
		return
	}
	existing.Attributes = append(existing.Attributes, g.Attributes...)
	if !existing.HasContent && g.HasContent {
		existing.Content = g.Content
		existing.HasContent = true
	}
}

// Content returns the raw <Content> fragment for category, if any.
func (r *Request) Content(category string) (string, bool) {
	g, ok := r.Groups[category]
	if !ok || !g.HasContent {
		return "", false
	}
	return g.Content, true
}
