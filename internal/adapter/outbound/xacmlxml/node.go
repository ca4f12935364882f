// Package xacmlxml implements the Request/Response and Policy/PolicySet
// XML loaders using encoding/xml (stdlib): no
// repository in the retrieval pack ships a XACML- or general schema-
// validating XML library, and the recursive, deeply polymorphic shape
// of Target/Apply/Condition trees is most naturally built from a small
// generic element tree rather than fixed struct tags, the way a
// hand-rolled schema-less parser would. See DESIGN.md for the
// stdlib-vs-library tradeoff this package documents.
package xacmlxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// node is a generic XML element: its local name (namespace prefix
// stripped, since this loader accepts any prefix bound to the XACML
// namespace), its attributes by local name, its text content, and its
// child elements in document order. Building the whole document into
// this shape first, then compiling it into Policy/Request structures in
// a second pass, keeps the recursive descent for Target/Apply/Condition
// trees in one place instead of duplicated across ad-hoc
// xml.Decoder.Token loops.
type node struct {
	name string
	attrs map[string]string
	text string
	children []*node
}

func localName(n xml.Name) string { return n.Local }

// parseXML decodes r into a single root node.
func parseXML(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	var stack []*node
	var root *node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xacmlxml: malformed XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: localName(t.Name), attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.attrs[localName(a.Name)] = a.Value
			}
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.children = append(top.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("xacmlxml: unbalanced end element %s", t.Name.Local)
			}
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = n
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("xacmlxml: empty document")
	}
	return root, nil
}

// child returns the first direct child element named name, or nil.
func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// childrenNamed returns every direct child element named name.
func (n *node) childrenNamed(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// attr returns the named attribute, or "" if absent.
func (n *node) attr(name string) string { return n.attrs[name] }

// attrBool parses a boolean attribute, defaulting to def when absent.
func (n *node) attrBool(name string, def bool) bool {
	v, ok := n.attrs[name]
	if !ok {
		return def
	}
	return strings.TrimSpace(v) == "true" || v == "1"
}

// trimmedText returns the element's character data with surrounding
// whitespace removed — AttributeValue/literal content should not be
// sensitive to the document's indentation.
func (n *node) trimmedText() string { return strings.TrimSpace(n.text) }
