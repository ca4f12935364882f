package pdp

import (
	"strings"
	"testing"
	"time"

	"github.com/xacmlgo/pdp/internal/adapter/outbound/xacmlxml"
	"github.com/xacmlgo/pdp/internal/domain/combine"
	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
)

// These fixtures form the running "medical.xml" example: one
// rule permits a task-authorization action when the resource's task_id is
// "medical" and its task_expires instant is still in the future, combined
// with deny-unless-permit so every other outcome (condition false, missing
// attribute, processing error) folds to a fail-closed Deny without ever
// needing a separate catch-all rule.
const medicalPolicyXML = `<?xml version="1.0" encoding="UTF-8"?>
<Policy xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17"
 PolicyId="urn:example:policy:medical-task-authorization"
 Version="1.0"
 RuleCombiningAlgId="urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-unless-permit">
 <Target>
 <AnyOf>
 <AllOf>
 <Match MatchId="urn:oasis:names:tc:xacml:1.0:function:string-equal">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">task-authorization</AttributeValue>
 <AttributeDesignator Category="urn:oasis:names:tc:xacml:3.0:attribute-category:action"
 AttributeId="urn:oasis:names:tc:xacml:1.0:action:action-id"
 DataType="http://www.w3.org/2001/XMLSchema#string" MustBePresent="true"/>
 </Match>
 </AllOf>
 </AnyOf>
 </Target>
 <Rule RuleId="permit-medical-task" Effect="Permit">
 <Condition>
 <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:and">
 <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:string-equal">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">medical</AttributeValue>
 <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:string-one-and-only">
 <AttributeDesignator Category="urn:oasis:names:tc:xacml:3.0:attribute-category:resource"
 AttributeId="urn:example:resource:task_id"
 DataType="http://www.w3.org/2001/XMLSchema#string" MustBePresent="true"/>
 </Apply>
 </Apply>
 <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:dateTime-greater-than">
 <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:dateTime-one-and-only">
 <AttributeDesignator Category="urn:oasis:names:tc:xacml:3.0:attribute-category:resource"
 AttributeId="urn:example:resource:task_expires"
 DataType="http://www.w3.org/2001/XMLSchema#dateTime" MustBePresent="true"/>
 </Apply>
 <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:dateTime-one-and-only">
 <AttributeDesignator Category="urn:oasis:names:tc:xacml:3.0:attribute-category:environment"
 AttributeId="urn:oasis:names:tc:xacml:1.0:environment:current-dateTime"
 DataType="http://www.w3.org/2001/XMLSchema#dateTime" MustBePresent="true"/>
 </Apply>
 </Apply>
 </Apply>
 </Condition>
 </Rule>
</Policy>`

// trainPolicyXML covers scenario 6: a bag with more than one value fed
// through one-and-only is a processing-error, which (like the medical
// policy's missing-attribute case) folds to Deny under deny-unless-permit.
const trainPolicyXML = `<?xml version="1.0" encoding="UTF-8"?>
<Policy xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17"
 PolicyId="urn:example:policy:train-authorization"
 Version="1.0"
 RuleCombiningAlgId="urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-unless-permit">
 <Target>
 <AnyOf>
 <AllOf>
 <Match MatchId="urn:oasis:names:tc:xacml:1.0:function:string-equal">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">train</AttributeValue>
 <AttributeDesignator Category="urn:oasis:names:tc:xacml:3.0:attribute-category:action"
 AttributeId="urn:oasis:names:tc:xacml:1.0:action:action-id"
 DataType="http://www.w3.org/2001/XMLSchema#string" MustBePresent="true"/>
 </Match>
 </AllOf>
 </AnyOf>
 </Target>
 <Rule RuleId="permit-train" Effect="Permit">
 <Condition>
 <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:string-equal">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">participant</AttributeValue>
 <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:string-one-and-only">
 <AttributeDesignator Category="urn:oasis:names:tc:xacml:1.0:subject-category:access-subject"
 AttributeId="urn:example:subject:task_role"
 DataType="http://www.w3.org/2001/XMLSchema#string" MustBePresent="true"/>
 </Apply>
 </Apply>
 </Condition>
 </Rule>
</Policy>`

func newFixturePDP(t *testing.T, now time.Time) *PDP {
	t.Helper()
	lr, err := xacmlxml.LoadPolicyDocuments([][]byte{[]byte(medicalPolicyXML), []byte(trainPolicyXML)})
	if err != nil {
		t.Fatalf("LoadPolicyDocuments: %v", err)
	}
	snap, err := BuildSnapshot(lr.Policies, lr.PolicySets, lr.Roots,
		"urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-unless-permit", false)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	p := New(WithClock(func() time.Time { return now }))
	p.Load(snap)
	return p
}

// taskAuthorizationRequest builds the scenario 1-4 Request XML. expiresAttr
// is the literal <Attribute> element for task_expires, or "" to omit it
// (scenario 4's missing-attribute case).
func taskAuthorizationRequest(expiresAttr, currentDateTime string) string {
	var buf strings.Builder
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<Request xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17">
 <Attributes Category="urn:oasis:names:tc:xacml:3.0:attribute-category:action">
 <Attribute AttributeId="urn:oasis:names:tc:xacml:1.0:action:action-id" IncludeInResult="false">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">task-authorization</AttributeValue>
 </Attribute>
 </Attributes>
 <Attributes Category="urn:oasis:names:tc:xacml:3.0:attribute-category:resource">
 <Attribute AttributeId="urn:example:resource:task_id" IncludeInResult="false">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">medical</AttributeValue>
 </Attribute>`)
	buf.WriteString(expiresAttr)
	buf.WriteString(`
 </Attributes>
 <Attributes Category="urn:oasis:names:tc:xacml:3.0:attribute-category:environment">
 <Attribute AttributeId="urn:oasis:names:tc:xacml:1.0:environment:current-dateTime" IncludeInResult="false">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#dateTime">`)
	buf.WriteString(currentDateTime)
	buf.WriteString(`</AttributeValue>
 </Attribute>
 </Attributes>
</Request>`)
	return buf.String()
}

func expiresAttribute(dateTime string) string {
	return `
 <Attribute AttributeId="urn:example:resource:task_expires" IncludeInResult="false">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#dateTime">` + dateTime + `</AttributeValue>
 </Attribute>`
}

const trainRequestTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Request xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17">
 <Attributes Category="urn:oasis:names:tc:xacml:3.0:attribute-category:action">
 <Attribute AttributeId="urn:oasis:names:tc:xacml:1.0:action:action-id" IncludeInResult="false">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">train</AttributeValue>
 </Attribute>
 </Attributes>
 <Attributes Category="urn:oasis:names:tc:xacml:1.0:subject-category:access-subject">
 <Attribute AttributeId="urn:example:subject:task_role" IncludeInResult="false">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">participant</AttributeValue>
 </Attribute>
 <Attribute AttributeId="urn:example:subject:task_role" IncludeInResult="false">
 <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">observer</AttributeValue>
 </Attribute>
 </Attributes>
</Request>`

var fixedNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// TestScenario1ValidTaskAuthorization is seed scenario 1.
func TestScenario1ValidTaskAuthorization(t *testing.T) {
	p := newFixturePDP(t, fixedNow)
	reqXML := taskAuthorizationRequest(expiresAttribute("2026-12-31T23:59:59Z"), "2025-01-01T00:00:00Z")
	req, err := xacmlxml.ParseRequestBytes([]byte(reqXML))
	if err != nil {
		t.Fatalf("ParseRequestBytes: %v", err)
	}
	resp := p.Evaluate(req)
	if resp.Decision != decision.Permit {
		t.Fatalf("got %v, want Permit", resp.Decision)
	}
}

// TestScenario2ExpiredTask is seed scenario 2.
func TestScenario2ExpiredTask(t *testing.T) {
	p := newFixturePDP(t, fixedNow)
	reqXML := taskAuthorizationRequest(expiresAttribute("2020-01-01T00:00:00Z"), "2025-01-01T00:00:00Z")
	req, err := xacmlxml.ParseRequestBytes([]byte(reqXML))
	if err != nil {
		t.Fatalf("ParseRequestBytes: %v", err)
	}
	resp := p.Evaluate(req)
	if resp.Decision != decision.Deny {
		t.Fatalf("got %v, want Deny", resp.Decision)
	}
}

// TestScenario3Boundary is seed scenario 3: task_expires equal
// to current-dateTime must Deny because the rule's comparison is strict >.
func TestScenario3Boundary(t *testing.T) {
	p := newFixturePDP(t, fixedNow)
	reqXML := taskAuthorizationRequest(expiresAttribute("2025-01-01T00:00:00Z"), "2025-01-01T00:00:00Z")
	req, err := xacmlxml.ParseRequestBytes([]byte(reqXML))
	if err != nil {
		t.Fatalf("ParseRequestBytes: %v", err)
	}
	resp := p.Evaluate(req)
	if resp.Decision != decision.Deny {
		t.Fatalf("got %v, want Deny", resp.Decision)
	}
}

// TestScenario4MissingAttribute is seed scenario 4: omitting
// task_expires (MustBePresent="true" on its designator) makes the rule
// Indeterminate{P}; deny-unless-permit folds that to Deny but must still
// surface the missing-attribute descriptor in the Response Status.
func TestScenario4MissingAttribute(t *testing.T) {
	p := newFixturePDP(t, fixedNow)
	reqXML := taskAuthorizationRequest("", "2025-01-01T00:00:00Z")
	req, err := xacmlxml.ParseRequestBytes([]byte(reqXML))
	if err != nil {
		t.Fatalf("ParseRequestBytes: %v", err)
	}
	resp := p.Evaluate(req)
	if resp.Decision != decision.Deny {
		t.Fatalf("got %v, want Deny", resp.Decision)
	}
	if len(resp.Status.MissingAttrs) != 1 {
		t.Fatalf("got %d missing-attribute details, want 1 (%+v)", len(resp.Status.MissingAttrs), resp.Status)
	}
	got := resp.Status.MissingAttrs[0]
	if got.Category != "urn:oasis:names:tc:xacml:3.0:attribute-category:resource" ||
		got.AttrID != "urn:example:resource:task_expires" ||
		got.DataType != "http://www.w3.org/2001/XMLSchema#dateTime" {
		t.Fatalf("unexpected missing-attribute detail: %+v", got)
	}
}

// TestScenario5MalformedDateTime is seed scenario 5. A
// malformed dateTime literal fails to parse before a Request ever reaches
// PDP.Evaluate; the caller (here, the test itself standing in for the
// HTTP façade) turns that parse error into an Indeterminate Response
// rather than ever letting it become a panic or a decision the combining
// algorithm never saw.
func TestScenario5MalformedDateTime(t *testing.T) {
	reqXML := taskAuthorizationRequest(expiresAttribute("not-a-date"), "2025-01-01T00:00:00Z")
	_, err := xacmlxml.ParseRequestBytes([]byte(reqXML))
	if err == nil {
		t.Fatal("ParseRequestBytes: want error for malformed dateTime literal, got nil")
	}
	resp := SyntaxErrorResponse(err)
	if resp.Decision.DecisionString() != "Indeterminate" {
		t.Fatalf("got %v, want Indeterminate", resp.Decision.DecisionString())
	}
}

// TestDateTimeWithoutTimezoneIsSyntaxError checks that a dateTime
// attribute literal without a timezone designator fails to parse the
// same way a malformed one does.
func TestDateTimeWithoutTimezoneIsSyntaxError(t *testing.T) {
	reqXML := taskAuthorizationRequest(expiresAttribute("2026-12-31T23:59:59"), "2025-01-01T00:00:00Z")
	_, err := xacmlxml.ParseRequestBytes([]byte(reqXML))
	if err == nil {
		t.Fatal("ParseRequestBytes: want error for timezone-less dateTime literal, got nil")
	}
}

// TestScenario6ConflictingMultiValuedAttribute is seed
// scenario 6: a two-element task_role bag fails one-and-only with a
// processing-error, which deny-unless-permit folds to Deny.
func TestScenario6ConflictingMultiValuedAttribute(t *testing.T) {
	p := newFixturePDP(t, fixedNow)
	req, err := xacmlxml.ParseRequestBytes([]byte(trainRequestTemplate))
	if err != nil {
		t.Fatalf("ParseRequestBytes: %v", err)
	}
	resp := p.Evaluate(req)
	if resp.Decision != decision.Deny {
		t.Fatalf("got %v, want Deny", resp.Decision)
	}
}

// TestConcurrentEvaluationsMatchSequential is concurrency
// property: N parallel requests on one PDP must equal running them
// sequentially, proving there is no cross-request mutable state.
func TestConcurrentEvaluationsMatchSequential(t *testing.T) {
	p := newFixturePDP(t, fixedNow)
	reqXML := taskAuthorizationRequest(expiresAttribute("2026-12-31T23:59:59Z"), "2025-01-01T00:00:00Z")

	const n = 64
	results := make([]decision.Result, n)
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			req, err := xacmlxml.ParseRequestBytes([]byte(reqXML))
			if err != nil {
				t.Errorf("ParseRequestBytes: %v", err)
				done <- i
				return
			}
			results[i] = p.Evaluate(req).Decision
			done <- i
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}
	for i, r := range results {
		if r != decision.Permit {
			t.Fatalf("result %d: got %v, want Permit", i, r)
		}
	}
}

// newFixturePDPBloom is newFixturePDP with the Target pre-selector on.
func newFixturePDPBloom(t *testing.T, now time.Time) *PDP {
	t.Helper()
	lr, err := xacmlxml.LoadPolicyDocuments([][]byte{[]byte(medicalPolicyXML), []byte(trainPolicyXML)})
	if err != nil {
		t.Fatalf("LoadPolicyDocuments: %v", err)
	}
	snap, err := BuildSnapshot(lr.Policies, lr.PolicySets, lr.Roots,
		"urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-unless-permit", true)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	p := New(WithClock(func() time.Time { return now }))
	p.Load(snap)
	return p
}

// TestBloomPreFilterNeverChangesDecision drives every seed scenario
// through a bloom-on and a bloom-off PDP built from the same documents:
// the pre-selector may only skip Target evaluations, never alter what
// they would have decided.
func TestBloomPreFilterNeverChangesDecision(t *testing.T) {
	plain := newFixturePDP(t, fixedNow)
	bloomed := newFixturePDPBloom(t, fixedNow)

	docs := []string{
		taskAuthorizationRequest(expiresAttribute("2026-12-31T23:59:59Z"), "2025-01-01T00:00:00Z"),
		taskAuthorizationRequest(expiresAttribute("2020-01-01T00:00:00Z"), "2025-01-01T00:00:00Z"),
		taskAuthorizationRequest(expiresAttribute("2025-01-01T00:00:00Z"), "2025-01-01T00:00:00Z"),
		taskAuthorizationRequest("", "2025-01-01T00:00:00Z"),
		trainRequestTemplate,
	}
	for i, doc := range docs {
		r1, err := xacmlxml.ParseRequestBytes([]byte(doc))
		if err != nil {
			t.Fatalf("doc %d: %v", i, err)
		}
		r2, err := xacmlxml.ParseRequestBytes([]byte(doc))
		if err != nil {
			t.Fatalf("doc %d: %v", i, err)
		}
		d1 := plain.Evaluate(r1).Decision
		d2 := bloomed.Evaluate(r2).Decision
		if d1 != d2 {
			t.Fatalf("doc %d: bloom off=%v, on=%v", i, d1, d2)
		}
	}
}

func TestBuildSnapshotRejectsUnresolvedReference(t *testing.T) {
	ps := &policytree.PolicySet{
		ID:        "urn:example:policyset:root",
		Children:  []policytree.Evaluable{&policytree.PolicyIdReference{PolicyID: "urn:example:policy:missing"}},
		Combining: mustAlg(t, "urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:deny-overrides"),
	}
	_, err := BuildSnapshot(nil, []*policytree.PolicySet{ps}, []policytree.Evaluable{ps},
		"urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:deny-overrides", false)
	if err == nil {
		t.Fatal("want load-time error for unresolved PolicyIdReference, got nil")
	}
}

func mustAlg(t *testing.T, uri string) combine.Algorithm {
	t.Helper()
	alg, ok := combine.Lookup(uri)
	if !ok {
		t.Fatalf("algorithm %s not registered", uri)
	}
	return alg
}
