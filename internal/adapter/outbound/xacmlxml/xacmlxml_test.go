package xacmlxml

import (
	"strings"
	"testing"

	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
)

func TestParseXMLStripsNamespacePrefix(t *testing.T) {
	root, err := parseXML(strings.NewReader(`<x:Policy xmlns:x="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17" PolicyId="p1"><x:Target/></x:Policy>`))
	if err != nil {
		t.Fatalf("parseXML: %v", err)
	}
	if root.name != "Policy" {
		t.Fatalf("got root name %q, want Policy", root.name)
	}
	if root.attr("PolicyId") != "p1" {
		t.Fatalf("got PolicyId %q, want p1", root.attr("PolicyId"))
	}
	if root.child("Target") == nil {
		t.Fatal("expected a Target child")
	}
}

func TestCompilePolicyRejectsUnknownCombiningAlgorithm(t *testing.T) {
	doc := `<Policy PolicyId="p1" Version="1.0" RuleCombiningAlgId="urn:example:nonexistent">
  <Rule RuleId="r1" Effect="Permit"/>
</Policy>`
	_, err := LoadPolicyDocuments([][]byte{[]byte(doc)})
	if err == nil {
		t.Fatal("want error for unknown RuleCombiningAlgId, got nil")
	}
}

func TestCompilePolicyRejectsUnknownFunction(t *testing.T) {
	doc := `<Policy PolicyId="p1" Version="1.0" RuleCombiningAlgId="urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:deny-overrides">
  <Rule RuleId="r1" Effect="Permit">
    <Condition>
      <Apply FunctionId="urn:example:no-such-function">
        <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#boolean">true</AttributeValue>
      </Apply>
    </Condition>
  </Rule>
</Policy>`
	_, err := LoadPolicyDocuments([][]byte{[]byte(doc)})
	if err == nil {
		t.Fatal("want error for unknown FunctionId, got nil")
	}
}

const simplePolicyDoc = `<Policy PolicyId="urn:example:policy:p1" Version="1.0"
         RuleCombiningAlgId="urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:deny-overrides">
  <Target>
    <AnyOf>
      <AllOf>
        <Match MatchId="urn:oasis:names:tc:xacml:1.0:function:string-equal">
          <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">read</AttributeValue>
          <AttributeDesignator Category="urn:oasis:names:tc:xacml:3.0:attribute-category:action"
                                AttributeId="urn:oasis:names:tc:xacml:1.0:action:action-id"
                                DataType="http://www.w3.org/2001/XMLSchema#string" MustBePresent="true"/>
        </Match>
      </AllOf>
    </AnyOf>
  </Target>
  <Rule RuleId="permit-read" Effect="Permit">
    <ObligationExpressions>
      <ObligationExpression ObligationId="urn:example:obligation:log" FulfillOn="Permit">
        <AttributeAssignmentExpression AttributeId="urn:example:attr:msg"
                                        Category="urn:oasis:names:tc:xacml:3.0:attribute-category:action"
                                        DataType="http://www.w3.org/2001/XMLSchema#string">
          <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">read granted</AttributeValue>
        </AttributeAssignmentExpression>
      </ObligationExpression>
    </ObligationExpressions>
  </Rule>
</Policy>`

func TestCompilePolicyRuleAndObligation(t *testing.T) {
	lr, err := LoadPolicyDocuments([][]byte{[]byte(simplePolicyDoc)})
	if err != nil {
		t.Fatalf("LoadPolicyDocuments: %v", err)
	}
	if len(lr.Policies) != 1 {
		t.Fatalf("got %d policies, want 1", len(lr.Policies))
	}
	p := lr.Policies[0]
	if p.ID != "urn:example:policy:p1" {
		t.Fatalf("got PolicyId %q", p.ID)
	}
	if len(p.Rules) != 1 || p.Rules[0].ID != "permit-read" {
		t.Fatalf("unexpected rules: %+v", p.Rules)
	}
	if p.Rules[0].Effect != decision.EffectPermit {
		t.Fatalf("got effect %q, want Permit", p.Rules[0].Effect)
	}
	if len(p.Rules[0].Obligations) != 1 || p.Rules[0].Obligations[0].ID != "urn:example:obligation:log" {
		t.Fatalf("unexpected obligations: %+v", p.Rules[0].Obligations)
	}
	if lr.Roots[0].(*policytree.Policy) != p {
		t.Fatal("Roots[0] should be the same *Policy instance compiled into Policies")
	}
}

func TestPolicySetResolvesInlineAndReferencedPolicies(t *testing.T) {
	doc := `<PolicySet PolicySetId="urn:example:policyset:root" Version="1.0"
             PolicyCombiningAlgId="urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:first-applicable">
  <Policy PolicyId="urn:example:policy:inline" Version="1.0"
          RuleCombiningAlgId="urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:deny-overrides">
    <Rule RuleId="r1" Effect="Permit"/>
  </Policy>
  <PolicyIdReference>urn:example:policy:external</PolicyIdReference>
</PolicySet>`
	lr, err := LoadPolicyDocuments([][]byte{[]byte(doc)})
	if err != nil {
		t.Fatalf("LoadPolicyDocuments: %v", err)
	}
	if len(lr.Policies) != 1 || lr.Policies[0].ID != "urn:example:policy:inline" {
		t.Fatalf("expected the inline Policy to be registered, got %+v", lr.Policies)
	}
	ps, ok := lr.Roots[0].(*policytree.PolicySet)
	if !ok {
		t.Fatalf("root is %T, want *policytree.PolicySet", lr.Roots[0])
	}
	if len(ps.Children) != 2 {
		t.Fatalf("got %d children, want 2 (inline Policy + PolicyIdReference)", len(ps.Children))
	}
	ref, ok := ps.Children[1].(*policytree.PolicyIdReference)
	if !ok || ref.PolicyID != "urn:example:policy:external" {
		t.Fatalf("unexpected second child: %+v", ps.Children[1])
	}
}

func TestParseRequestMergesMultiValuedAttribute(t *testing.T) {
	doc := `<Request xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17">
  <Attributes Category="urn:oasis:names:tc:xacml:1.0:subject-category:access-subject">
    <Attribute AttributeId="urn:example:subject:role" IncludeInResult="true">
      <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">participant</AttributeValue>
      <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">observer</AttributeValue>
    </Attribute>
  </Attributes>
</Request>`
	req, err := ParseRequestBytes([]byte(doc))
	if err != nil {
		t.Fatalf("ParseRequestBytes: %v", err)
	}
	g, ok := req.Groups["urn:oasis:names:tc:xacml:1.0:subject-category:access-subject"]
	if !ok {
		t.Fatal("missing subject group")
	}
	if len(g.Attributes) != 1 {
		t.Fatalf("got %d attributes, want 1 merged Attribute", len(g.Attributes))
	}
	if g.Attributes[0].Values.Size() != 2 {
		t.Fatalf("got bag size %d, want 2", g.Attributes[0].Values.Size())
	}
}

func TestParseRequestRejectsMissingDataType(t *testing.T) {
	doc := `<Request xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17">
  <Attributes Category="urn:oasis:names:tc:xacml:3.0:attribute-category:resource">
    <Attribute AttributeId="urn:example:resource:id" IncludeInResult="false">
      <AttributeValue>no-datatype</AttributeValue>
    </Attribute>
  </Attributes>
</Request>`
	_, err := ParseRequestBytes([]byte(doc))
	if err == nil {
		t.Fatal("want error for AttributeValue missing DataType, got nil")
	}
}

func TestWriteResponseIncludesStatusAndObligations(t *testing.T) {
	resp := ResponseFields{
		Decision: decision.Deny,
		Status: decision.MissingAttribute(decision.MissingAttributeDetail{
			Category: "urn:oasis:names:tc:xacml:3.0:attribute-category:resource",
			AttrID:   "urn:example:resource:task_expires",
			DataType: "http://www.w3.org/2001/XMLSchema#dateTime",
		}),
		Obligations: []policytree.ResolvedObligation{
			{ID: "urn:example:obligation:log"},
		},
	}
	out := string(WriteResponse(resp))
	if !strings.Contains(out, "<Decision>Deny</Decision>") {
		t.Fatalf("missing Decision element: %s", out)
	}
	if !strings.Contains(out, `MissingAttributeDetail Category="urn:oasis:names:tc:xacml:3.0:attribute-category:resource"`) {
		t.Fatalf("missing MissingAttributeDetail: %s", out)
	}
	if !strings.Contains(out, `Obligation ObligationId="urn:example:obligation:log"`) {
		t.Fatalf("missing Obligation element: %s", out)
	}
}

func TestWriteResponseOmitsEmptyObligationsAndAdvice(t *testing.T) {
	out := string(WriteResponse(ResponseFields{Decision: decision.Permit, Status: decision.OK}))
	if strings.Contains(out, "<Obligations>") || strings.Contains(out, "<AssociatedAdvice>") {
		t.Fatalf("expected no Obligations/AssociatedAdvice elements: %s", out)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	doc := `<Request xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17" ReturnPolicyIdList="true">
  <Attributes Category="urn:oasis:names:tc:xacml:3.0:attribute-category:resource">
    <Attribute AttributeId="urn:example:resource:task_id" Issuer="urn:example:issuer" IncludeInResult="true">
      <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">medical</AttributeValue>
    </Attribute>
    <Attribute AttributeId="urn:example:resource:task_expires" IncludeInResult="false">
      <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#dateTime">2026-12-31T23:59:59Z</AttributeValue>
    </Attribute>
  </Attributes>
  <Attributes Category="urn:oasis:names:tc:xacml:1.0:subject-category:access-subject">
    <Attribute AttributeId="urn:example:subject:role" IncludeInResult="false">
      <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">participant</AttributeValue>
      <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">observer</AttributeValue>
    </Attribute>
  </Attributes>
</Request>`
	first, err := ParseRequestBytes([]byte(doc))
	if err != nil {
		t.Fatalf("ParseRequestBytes: %v", err)
	}
	second, err := ParseRequestBytes(WriteRequest(first))
	if err != nil {
		t.Fatalf("reparse serialized request: %v", err)
	}

	if second.ReturnPolicyIdList != first.ReturnPolicyIdList || second.CombinedDecision != first.CombinedDecision {
		t.Fatal("request flags did not survive the round trip")
	}
	if len(second.Groups) != len(first.Groups) {
		t.Fatalf("got %d groups after round trip, want %d", len(second.Groups), len(first.Groups))
	}
	for category, g1 := range first.Groups {
		g2, ok := second.Groups[category]
		if !ok {
			t.Fatalf("category %s missing after round trip", category)
		}
		if len(g2.Attributes) != len(g1.Attributes) {
			t.Fatalf("category %s: got %d attributes, want %d", category, len(g2.Attributes), len(g1.Attributes))
		}
		for i, a1 := range g1.Attributes {
			a2 := g2.Attributes[i]
			if a2.ID != a1.ID || a2.Issuer != a1.Issuer || a2.IncludeInResult != a1.IncludeInResult {
				t.Errorf("attribute %s metadata changed across round trip", a1.ID)
			}
			if a2.Values.Size() != a1.Values.Size() {
				t.Errorf("attribute %s: bag size %d, want %d", a1.ID, a2.Values.Size(), a1.Values.Size())
			}
		}
	}
}
