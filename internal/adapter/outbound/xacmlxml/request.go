package xacmlxml

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// ParseRequest decodes a XACML 3.0 <Request> document into an
// evalctx.Request. A malformed document or an unknown AttributeValue
// dataType is returned as an error; callers at the HTTP boundary turn
// that into an Indeterminate(syntax-error) Response rather than letting
// it reach PDP.Evaluate.
func ParseRequest(r io.Reader) (*evalctx.Request, error) {
	root, err := parseXML(r)
	if err != nil {
		return nil, err
	}
	if root.name != "Request" {
		return nil, fmt.Errorf("xacmlxml: expected Request root element, got %q", root.name)
	}

	req := evalctx.NewRequest()
	req.ReturnPolicyIdList = root.attrBool("ReturnPolicyIdList", false)
	req.CombinedDecision = root.attrBool("CombinedDecision", false)

	for _, an := range root.childrenNamed("Attributes") {
		group, err := parseAttributesGroup(an)
		if err != nil {
			return nil, err
		}
		req.AddGroup(group)
	}
	return req, nil
}

// ParseRequestBytes is ParseRequest over an in-memory document.
func ParseRequestBytes(data []byte) (*evalctx.Request, error) {
	return ParseRequest(bytes.NewReader(data))
}

func parseAttributesGroup(n *node) (*evalctx.AttributesGroup, error) {
	group := &evalctx.AttributesGroup{Category: n.attr("Category")}
	if cn := n.child("Content"); cn != nil {
		group.Content = renderContent(cn)
		group.HasContent = true
	}
	for _, attrNode := range n.childrenNamed("Attribute") {
		attr, err := parseAttribute(group.Category, attrNode)
		if err != nil {
			return nil, err
		}
		group.Attributes = append(group.Attributes, attr)
	}
	return group, nil
}

// parseAttribute merges every AttributeValue under one <Attribute>
// element into a single bag: an AttributeId repeated within one category
// forms one multi-valued bag, not several distinct attributes.
func parseAttribute(category string, n *node) (evalctx.Attribute, error) {
	id := n.attr("AttributeId")
	dataType := ""
	values := n.childrenNamed("AttributeValue")
	parsed := make([]value.Value, 0, len(values))
	for _, vn := range values {
		dt := vn.attr("DataType")
		if dt == "" {
			return evalctx.Attribute{}, fmt.Errorf("xacmlxml: Attribute %s: AttributeValue missing DataType", id)
		}
		dataType = dt
		v, err := value.New(dt, vn.trimmedText())
		if err != nil {
			return evalctx.Attribute{}, fmt.Errorf("xacmlxml: Attribute %s: %w", id, err)
		}
		parsed = append(parsed, v)
	}
	return evalctx.Attribute{
		Category: category,
		ID: id,
		DataType: dataType,
		Issuer: n.attr("Issuer"),
		Values: value.NewBag(dataType, parsed...),
		IncludeInResult: n.attrBool("IncludeInResult", false),
	}, nil
}

// WriteRequest serializes req back to the XACML 3.0 <Request> wire
// format, the inverse of ParseRequest modulo whitespace and attribute
// ordering within a category. Categories are written in sorted order so
// output is deterministic regardless of map iteration.
func WriteRequest(req *evalctx.Request) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintf(&buf, `<Request xmlns="urn:oasis:names:tc:xacml:3.0:core:schema:wd-17" ReturnPolicyIdList=%q CombinedDecision=%q>`,
		boolAttr(req.ReturnPolicyIdList), boolAttr(req.CombinedDecision))

	categories := make([]string, 0, len(req.Groups))
	for c := range req.Groups {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		g := req.Groups[category]
		fmt.Fprintf(&buf, `<Attributes Category=%q>`, category)
		if g.HasContent {
			buf.WriteString("<Content>")
			buf.WriteString(g.Content)
			buf.WriteString("</Content>")
		}
		for _, a := range g.Attributes {
			fmt.Fprintf(&buf, `<Attribute AttributeId=%q`, a.ID)
			if a.Issuer != "" {
				fmt.Fprintf(&buf, ` Issuer=%q`, a.Issuer)
			}
			if a.IncludeInResult {
				buf.WriteString(` IncludeInResult="true"`)
			}
			buf.WriteByte('>')
			for _, v := range a.Values.Values {
				fmt.Fprintf(&buf, `<AttributeValue DataType=%q>%s</AttributeValue>`, v.Type, escape(v.String()))
			}
			buf.WriteString("</Attribute>")
		}
		buf.WriteString("</Attributes>")
	}
	buf.WriteString("</Request>")
	return buf.Bytes()
}

func boolAttr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// renderContent re-serializes a <Content> element's children back to
// XML text, preserved as an opaque fragment for AttributeSelector/
// xpathlite evaluation — the loader never interprets Content itself.
func renderContent(n *node) string {
	var buf bytes.Buffer
	for _, c := range n.children {
		writeNode(&buf, c)
	}
	return buf.String()
}

func writeNode(buf *bytes.Buffer, n *node) {
	buf.WriteByte('<')
	buf.WriteString(n.name)
	for k, v := range n.attrs {
		fmt.Fprintf(buf, " %s=%q", k, v)
	}
	if len(n.children) == 0 && n.trimmedText() == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	buf.WriteString(n.text)
	for _, c := range n.children {
		writeNode(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(n.name)
	buf.WriteByte('>')
}
