package xacmlxml

import (
	"fmt"

	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/expr/fn"
)

// exprCompiler compiles the XML expression tree (AttributeValue,
// AttributeDesignator, AttributeSelector, Apply, VariableReference,
// Function) into expr.Expression nodes. VariableDefinitions are
// registered by ID before their bodies are compiled, so forward and
// circular-looking (but not actually circular) VariableReferences
// resolve via a shared pointer rather than requiring document order.
type exprCompiler struct {
	variables map[string]*expr.VariableDefinition
}

func newExprCompiler() *exprCompiler {
	return &exprCompiler{variables: map[string]*expr.VariableDefinition{}}
}

// compile dispatches on n's element name. Every expression-shaped
// element XACML 3.0 core defines nests exactly this way; an unrecognized
// element name is a policy-load error.
func (c *exprCompiler) compile(n *node) (expr.Expression, error) {
	switch n.name {
	case "AttributeValue":
		dt := n.attr("DataType")
		v, err := expr.NewAttributeValue(dt, n.trimmedText())
		if err != nil {
			return nil, fmt.Errorf("xacmlxml: AttributeValue: %w", err)
		}
		return v, nil
	case "AttributeDesignator":
		return &expr.AttributeDesignator{
			Category: n.attr("Category"),
			AttributeID: n.attr("AttributeId"),
			Type: n.attr("DataType"),
			Issuer: n.attr("Issuer"),
			MustBePresent: n.attrBool("MustBePresent", false),
		}, nil
	case "AttributeSelector":
		sel, err := expr.NewAttributeSelector(n.attr("Category"), n.attr("Path"), n.attr("DataType"), n.attrBool("MustBePresent", false))
		if err != nil {
			return nil, fmt.Errorf("xacmlxml: AttributeSelector: %w", err)
		}
		return sel, nil
	case "Apply":
		return c.compileApply(n)
	case "Function":
		f, ok := fn.Lookup(n.attr("FunctionId"))
		if !ok {
			return nil, fmt.Errorf("xacmlxml: unknown function %q", n.attr("FunctionId"))
		}
		return expr.NewFunctionReference(f), nil
	case "VariableReference":
		id := n.attr("VariableId")
		def, ok := c.variables[id]
		if !ok {
			return nil, fmt.Errorf("xacmlxml: VariableReference to undeclared variable %q", id)
		}
		return &expr.VariableReference{ID: id, Def: def}, nil
	default:
		return nil, fmt.Errorf("xacmlxml: unsupported expression element %q", n.name)
	}
}

func (c *exprCompiler) compileApply(n *node) (expr.Expression, error) {
	f, ok := fn.Lookup(n.attr("FunctionId"))
	if !ok {
		return nil, fmt.Errorf("xacmlxml: unknown function %q", n.attr("FunctionId"))
	}
	args := make([]expr.Expression, 0, len(n.children))
	for _, child := range n.children {
		arg, err := c.compile(child)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	apply, err := expr.NewApply(f, args)
	if err != nil {
		return nil, fmt.Errorf("xacmlxml: Apply %s: %w", n.attr("FunctionId"), err)
	}
	return apply, nil
}

// registerVariableDefinitions declares every VariableId in defs so
// later VariableReferences (regardless of document
// position) can resolve to a shared *expr.VariableDefinition, then fills
// in each one's Expr in a second pass.
func (c *exprCompiler) registerVariableDefinitions(defs []*node) error {
	for _, d := range defs {
		c.variables[d.attr("VariableId")] = &expr.VariableDefinition{ID: d.attr("VariableId")}
	}
	for _, d := range defs {
		if len(d.children) != 1 {
			return fmt.Errorf("xacmlxml: VariableDefinition %s must have exactly one expression child", d.attr("VariableId"))
		}
		body, err := c.compile(d.children[0])
		if err != nil {
			return fmt.Errorf("xacmlxml: VariableDefinition %s: %w", d.attr("VariableId"), err)
		}
		c.variables[d.attr("VariableId")].Expr = body
	}
	return nil
}
