package policytree

import (
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// TargetLiteral is one (category, attributeId, literal) triple harvested
// from an equality Match in a Target, the unit the optional Bloom
// pre-selector indexes.
type TargetLiteral struct {
	Category string
	AttributeID string
	Literal string
}

// equalityFunctionSuffix is how every standard *-equal function URI ends.
// Only equality Matches are safe to index, since a Bloom miss on a
// non-equality function (e.g. *-greater-than) says nothing about whether
// that Match would actually succeed.
const equalityFunctionSuffix = "-equal"

// Literals returns every (category, attributeId, literal) triple an
// equality Match in t addresses, plus whether every Match in t used an
// equality function. ok is false the moment any Match uses a
// non-equality function or a non-AttributeDesignator operand — callers
// (the Bloom pre-filter) must not index, and must never prune, a Target
// that isn't purely equality-based: a miss must only prune, never admit.
func (t *Target) Literals() (triples []TargetLiteral, ok bool) {
	if t == nil {
		return nil, false
	}
	ok = true
	for _, ao := range t.AnyOfs {
		// An empty AnyOf or AllOf matches trivially, so a Target
		// containing one can match with no equality literal hit at all;
		// such a Target must never be indexed.
		if len(ao.AllOfs) == 0 {
			return nil, false
		}
		for _, allOf := range ao.AllOfs {
			if len(allOf.Matches) == 0 {
				return nil, false
			}
			for _, m := range allOf.Matches {
				d, isDesignator := m.Designator.(*expr.AttributeDesignator)
				if !isDesignator || !hasEqualitySuffix(m.Fn.URI) {
					ok = false
					continue
				}
				// Equal values of other types can print differently (zone
				// offsets, DN spacing, duration forms), so a literal's text
				// would not match the Request value's text.
				switch m.Literal.Value().Type {
				case value.TypeString, value.TypeBoolean, value.TypeInteger,
					value.TypeAnyURI, value.TypeHexBinary, value.TypeBase64:
				default:
					ok = false
					continue
				}
				triples = append(triples, TargetLiteral{
					Category: d.Category,
					AttributeID: d.AttributeID,
					Literal: m.Literal.Value().String(),
				})
			}
		}
	}
	return triples, ok
}

func hasEqualitySuffix(uri string) bool {
	if len(uri) < len(equalityFunctionSuffix) {
		return false
	}
	return uri[len(uri)-len(equalityFunctionSuffix):] == equalityFunctionSuffix
}
