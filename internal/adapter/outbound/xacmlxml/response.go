package xacmlxml

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
)

// ResponseFields is the wire-relevant subset of a PDP evaluation result,
// named separately from the pdp package's own Response type so this
// package (a loader/serializer, not an orchestrator) never has to import
// the service layer — callers copy the fields they already hold.
type ResponseFields struct {
	Decision           decision.Result
	Status             decision.Status
	Obligations        []policytree.ResolvedObligation
	Advice             []policytree.ResolvedAdvice
	EchoedAttributes   []evalctx.Attribute
	PolicyIdentifiers  []string
	ReturnPolicyIdList bool
}

// WriteResponse serializes resp to the XACML 3.0 <Response> wire format.
// It is hand-written against a bytes.Buffer rather than encoding/xml
// struct tags, matching parseXML's approach on the read side: a
// Response's Obligations/AssociatedAdvice/Attributes children are
// dynamically shaped (arbitrary AttributeAssignment count and
// dataType), which a fixed struct doesn't represent cleanly.
func WriteResponse(resp ResponseFields) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString(`<Response xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17">`)
	buf.WriteString("<Result>")
	fmt.Fprintf(&buf, "<Decision>%s</Decision>", escape(resp.Decision.DecisionString()))
	writeStatus(&buf, resp.Status)
	writeObligations(&buf, resp.Obligations)
	writeAdvice(&buf, resp.Advice)
	if len(resp.EchoedAttributes) > 0 {
		writeEchoedAttributes(&buf, resp.EchoedAttributes)
	}
	if resp.ReturnPolicyIdList {
		writePolicyIdentifierList(&buf, resp.PolicyIdentifiers)
	}
	buf.WriteString("</Result>")
	buf.WriteString("</Response>")
	return buf.Bytes()
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func writeStatus(buf *bytes.Buffer, st decision.Status) {
	buf.WriteString("<Status>")
	fmt.Fprintf(buf, `<StatusCode Value=%q/>`, st.Code)
	if st.Message != "" {
		fmt.Fprintf(buf, "<StatusMessage>%s</StatusMessage>", escape(st.Message))
	}
	for _, m := range st.MissingAttrs {
		buf.WriteString("<StatusDetail>")
		fmt.Fprintf(buf, `<MissingAttributeDetail Category=%q AttributeId=%q DataType=%q`, m.Category, m.AttrID, m.DataType)
		if m.Issuer != "" {
			fmt.Fprintf(buf, ` Issuer=%q`, m.Issuer)
		}
		buf.WriteString("/>")
		buf.WriteString("</StatusDetail>")
	}
	buf.WriteString("</Status>")
}

func writeAssignments(buf *bytes.Buffer, tag string, assigns []policytree.ResolvedAssignment) {
	for _, a := range assigns {
		fmt.Fprintf(buf, `<%s AttributeId=%q Category=%q DataType=%q`, tag, a.AttributeID, a.Category, a.Value.Type)
		if a.Issuer != "" {
			fmt.Fprintf(buf, ` Issuer=%q`, a.Issuer)
		}
		fmt.Fprintf(buf, ">%s</%s>", escape(a.Value.String()), tag)
	}
}

func writeObligations(buf *bytes.Buffer, obligations []policytree.ResolvedObligation) {
	if len(obligations) == 0 {
		return
	}
	buf.WriteString("<Obligations>")
	for _, o := range obligations {
		fmt.Fprintf(buf, `<Obligation ObligationId=%q>`, o.ID)
		writeAssignments(buf, "AttributeAssignment", o.Assignments)
		buf.WriteString("</Obligation>")
	}
	buf.WriteString("</Obligations>")
}

func writeAdvice(buf *bytes.Buffer, advice []policytree.ResolvedAdvice) {
	if len(advice) == 0 {
		return
	}
	buf.WriteString("<AssociatedAdvice>")
	for _, a := range advice {
		fmt.Fprintf(buf, `<Advice AdviceId=%q>`, a.ID)
		writeAssignments(buf, "AttributeAssignment", a.Assignments)
		buf.WriteString("</Advice>")
	}
	buf.WriteString("</AssociatedAdvice>")
}

func writeEchoedAttributes(buf *bytes.Buffer, attrs []evalctx.Attribute) {
	byCategory := map[string][]evalctx.Attribute{}
	var order []string
	for _, a := range attrs {
		if _, seen := byCategory[a.Category]; !seen {
			order = append(order, a.Category)
		}
		byCategory[a.Category] = append(byCategory[a.Category], a)
	}
	for _, category := range order {
		fmt.Fprintf(buf, `<Attributes Category=%q>`, category)
		for _, a := range byCategory[category] {
			fmt.Fprintf(buf, `<Attribute AttributeId=%q IncludeInResult="true">`, a.ID)
			for _, v := range a.Values.Values {
				fmt.Fprintf(buf, `<AttributeValue DataType=%q>%s</AttributeValue>`, v.Type, escape(v.String()))
			}
			buf.WriteString("</Attribute>")
		}
		buf.WriteString("</Attributes>")
	}
}

func writePolicyIdentifierList(buf *bytes.Buffer, ids []string) {
	buf.WriteString("<PolicyIdentifierList>")
	for _, id := range ids {
		fmt.Fprintf(buf, `<PolicyIdReference>%s</PolicyIdReference>`, escape(id))
	}
	buf.WriteString("</PolicyIdentifierList>")
}
