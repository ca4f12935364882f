// Package xpathlite implements the small XPath subset AttributeSelector
// needs to address nodes inside a Request <Content> fragment: child-axis
// steps ("/a/b/c"), an attribute-equality predicate on a step
// ("b[@name='x']"), and a terminal text() selecting character data. The
// parser splits the expression into steps and parses each step's
// optional predicate; anything outside that grammar is a ParseError.
package xpathlite

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Step is one parsed path component.
type Step struct {
	Name      string // child element name, or "" for the text() terminal
	IsText    bool
	PredAttr  string // attribute name of an [@attr='val'] predicate, if any
	PredValue string
	HasPred   bool
}

// Path is a parsed XPath-subset expression: a sequence of Steps applied
// left to right from the document root.
type Path struct {
	Steps []Step
}

// ParseError reports the expression and the reason it could not be
// parsed; AttributeSelector turns this into Indeterminate(syntax-error).
type ParseError struct {
	Expr   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xpathlite: cannot parse %q: %s", e.Expr, e.Reason)
}

// Parse compiles expr into a Path. Only a leading "/" absolute path of
// "/name" or "/name[@attr='val']" steps, optionally ending in "/text()",
// is supported; anything else is a ParseError.
func Parse(expr string) (*Path, error) {
	raw := strings.TrimSpace(expr)
	if !strings.HasPrefix(raw, "/") {
		return nil, &ParseError{Expr: expr, Reason: "must be an absolute path starting with '/'"}
	}
	parts := strings.Split(strings.TrimPrefix(raw, "/"), "/")
	path := &Path{}
	for i, part := range parts {
		if part == "" {
			return nil, &ParseError{Expr: expr, Reason: "empty step"}
		}
		if part == "text()" {
			if i != len(parts)-1 {
				return nil, &ParseError{Expr: expr, Reason: "text() must be the final step"}
			}
			path.Steps = append(path.Steps, Step{IsText: true})
			continue
		}
		step, err := parseStep(part)
		if err != nil {
			return nil, &ParseError{Expr: expr, Reason: err.Error()}
		}
		path.Steps = append(path.Steps, step)
	}
	if len(path.Steps) == 0 {
		return nil, &ParseError{Expr: expr, Reason: "no steps"}
	}
	return path, nil
}

func parseStep(s string) (Step, error) {
	bracket := strings.IndexByte(s, '[')
	if bracket < 0 {
		return Step{Name: s}, nil
	}
	if !strings.HasSuffix(s, "]") {
		return Step{}, fmt.Errorf("unterminated predicate in step %q", s)
	}
	name := s[:bracket]
	pred := s[bracket+1 : len(s)-1]
	if !strings.HasPrefix(pred, "@") {
		return Step{}, fmt.Errorf("unsupported predicate %q (only [@attr='val'] is supported)", pred)
	}
	eq := strings.IndexByte(pred, '=')
	if eq < 0 {
		return Step{}, fmt.Errorf("predicate %q missing '='", pred)
	}
	attr := pred[1:eq]
	val := strings.Trim(pred[eq+1:], `'"`)
	return Step{Name: name, HasPred: true, PredAttr: attr, PredValue: val}, nil
}

// node is a minimal parsed XML element: its name, attributes, character
// data, and children, enough to walk a Path against.
type node struct {
	Name    string
	Attrs   map[string]string
	Text    string
	Content []*node
}

func parseXML(fragment string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(fragment))
	var root, cur *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{Name: t.Name.Local, Attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if cur != nil {
				cur.Content = append(cur.Content, n)
			} else {
				root = n
			}
			stack = append(stack, n)
			cur = n
		case xml.CharData:
			if cur != nil {
				cur.Text += string(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 0 {
				cur = stack[len(stack)-1]
			} else {
				cur = nil
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("xpathlite: empty or malformed content fragment")
	}
	return root, nil
}

// Eval applies path to an XML content fragment and returns the literal
// text of every matching node: element text content, or the element's
// own text for a trailing text() step. Matching starts at the fragment's
// root element, which the first path step must name.
func Eval(fragment string, path *Path) ([]string, error) {
	root, err := parseXML(fragment)
	if err != nil {
		return nil, err
	}
	if len(path.Steps) == 0 {
		return nil, fmt.Errorf("xpathlite: empty path")
	}
	first := path.Steps[0]
	if first.IsText {
		return []string{strings.TrimSpace(root.Text)}, nil
	}
	if first.Name != root.Name || !matchesPredicate(root, first) {
		return nil, nil
	}
	return walk([]*node{root}, path.Steps[1:])
}

func matchesPredicate(n *node, s Step) bool {
	if !s.HasPred {
		return true
	}
	return n.Attrs[s.PredAttr] == s.PredValue
}

func walk(current []*node, steps []Step) ([]string, error) {
	if len(steps) == 0 {
		out := make([]string, 0, len(current))
		for _, n := range current {
			out = append(out, strings.TrimSpace(n.Text))
		}
		return out, nil
	}
	step := steps[0]
	if step.IsText {
		out := make([]string, 0, len(current))
		for _, n := range current {
			out = append(out, strings.TrimSpace(n.Text))
		}
		return out, nil
	}
	var next []*node
	for _, n := range current {
		for _, c := range n.Content {
			if c.Name == step.Name && matchesPredicate(c, step) {
				next = append(next, c)
			}
		}
	}
	return walk(next, steps[1:])
}
