// Package decision defines the Result, Effect and Status types shared
// by the expression library, policy tree, and combining
// algorithms — "Indeterminate as a first-class value" rather than
// exceptions used for control flow.
package decision

// Status codes for Indeterminate and NotApplicable results.
const (
	StatusOK = "urn:oasis:names:tc:xacml:1.0:status:ok"
	StatusMissingAttribute = "urn:oasis:names:tc:xacml:1.0:status:missing-attribute"
	StatusSyntaxError = "urn:oasis:names:tc:xacml:1.0:status:syntax-error"
	StatusProcessingError = "urn:oasis:names:tc:xacml:1.0:status:processing-error"
)

// MissingAttributeDetail names one attribute the evaluator could not
// find but needed, so a caller can retry with more data.
type MissingAttributeDetail struct {
	Category string
	AttrID string
	DataType string
	Issuer string
}

// Status carries a status code, an optional human message, and
// (for missing-attribute) structured detail.
type Status struct {
	Code string
	Message string
	MissingAttrs []MissingAttributeDetail
}

// OK is the canonical success status.
var OK = Status{Code: StatusOK}

// MissingAttribute builds a missing-attribute Status for one descriptor.
func MissingAttribute(d MissingAttributeDetail) Status {
	return Status{Code: StatusMissingAttribute, MissingAttrs: []MissingAttributeDetail{d}}
}

// SyntaxError builds a syntax-error Status with a message.
func SyntaxError(msg string) Status {
	return Status{Code: StatusSyntaxError, Message: msg}
}

// ProcessingError builds a processing-error Status with a message.
func ProcessingError(msg string) Status {
	return Status{Code: StatusProcessingError, Message: msg}
}

// Merge combines the missing-attribute details of two statuses, used
// when a combining algorithm needs to report every missing attribute
// observed on the winning decision path.
func Merge(a, b Status) Status {
	if a.Code == StatusOK {
		return b
	}
	if b.Code == StatusOK {
		return a
	}
	out := a
	out.MissingAttrs = append(append([]MissingAttributeDetail{}, a.MissingAttrs...), b.MissingAttrs...)
	return out
}
