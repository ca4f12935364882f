// Package audit contains domain types for the PDP's decision audit trail.
package audit

import (
	"encoding/json"
	"time"
)

// Decision constants mirror the four XACML decision results an audit
// record can carry.
const (
	DecisionPermit = "Permit"
	DecisionDeny = "Deny"
	DecisionNotApplicable = "NotApplicable"
	DecisionIndeterminate = "Indeterminate"
)

// AuditRecord represents a single evaluation as it passes through the
// PDP's decision audit trail. Its fields come from the Request/Response
// pair of one Evaluate call; none require a second lookup, so recording
// never blocks the evaluation itself. pdpd's decision handler sets
// Timestamp, SubjectID, ResourceID, Action, Decision and StatusCode;
// Signature is set by the signing decorator, and the other fields stay
// empty unless the code building the record sets them.
type AuditRecord struct {
	// Timestamp is when the evaluation completed.
	Timestamp time.Time
	// RequestID correlates this record with upstream request tracing.
	RequestID string

	// SubjectID is the subject category's primary identifier attribute,
	// when the Request supplied one (e.g. subject-id).
	SubjectID string
	// ResourceID is the resource category's primary identifier attribute
	// (e.g. resource-id), when present.
	ResourceID string
	// Action is the action-id attribute value from the Request's action
	// category, when present.
	Action string

	// Decision is one of the Decision* constants above.
	Decision string
	// StatusCode is the XACML Status code attached to the Response
	// as its full URN (e.g. "urn:oasis:names:tc:xacml:1.0:status:ok",
	// "urn:oasis:names:tc:xacml:1.0:status:missing-attribute").
	StatusCode string
	// Reason is a human-readable StatusMessage, populated for
	// Indeterminate decisions.
	Reason string

	// RuleID lists the node identifiers (Rule/Policy/PolicySet) whose
	// Obligations or Advice contributed to the final Decision.
	RuleID string
	// PolicyReferences holds every Policy/PolicySet identifier considered
	// applicable, populated only when the Request's ReturnPolicyIdList
	// flag was set.
	PolicyReferences []string

	// LatencyMicros is the evaluation latency in microseconds, measured
	// from RequestContext construction to Response assembly.
	LatencyMicros int64

	// Signature is the detached-JWS (ES256) signature over the canonical
	// encoding of this record, populated by the signing decorator when
	// audit.sign is enabled. Empty when signing is off.
	Signature string
}

// CanonicalBytes returns the JSON encoding this record is signed over:
// every field except Signature itself, so a verifier can recompute the
// same bytes from a stored (record, signature) pair without needing the
// signature to already be present.
func (r AuditRecord) CanonicalBytes() ([]byte, error) {
	r.Signature = ""
	return json.Marshal(r)
}
