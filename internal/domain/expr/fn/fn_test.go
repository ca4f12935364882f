package fn

import (
	"testing"
	"time"

	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

func newCtx() *evalctx.RequestContext {
	return evalctx.New(evalctx.NewRequest(), time.Now())
}

func lit(dt, literal string) expr.Expression {
	av, err := expr.NewAttributeValue(dt, literal)
	if err != nil {
		panic(err)
	}
	return av
}

func mustBool(t *testing.T, res expr.EvaluationResult) bool {
	t.Helper()
	if res.Indeterminate {
		t.Fatalf("unexpected Indeterminate: %+v", res.Status)
	}
	b, ok := res.Value.Payload.(bool)
	if !ok {
		t.Fatalf("expected boolean result, got %+v", res.Value)
	}
	return b
}

func TestStringEqual(t *testing.T) {
	f, ok := Lookup("urn:oasis:names:tc:xacml:1.0:function:string-equal")
	if !ok {
		t.Fatal("string-equal not registered")
	}
	res := f.Eval(newCtx(), []expr.Expression{lit(value.TypeString, "a"), lit(value.TypeString, "a")})
	if !mustBool(t, res) {
		t.Fatalf("expected true")
	}
}

func TestIntegerGreaterThan(t *testing.T) {
	f, ok := Lookup("urn:oasis:names:tc:xacml:1.0:function:integer-greater-than")
	if !ok {
		t.Fatal("integer-greater-than not registered")
	}
	res := f.Eval(newCtx(), []expr.Expression{lit(value.TypeInteger, "5"), lit(value.TypeInteger, "3")})
	if !mustBool(t, res) {
		t.Fatalf("expected 5 > 3")
	}
}

func TestIntegerAddVariadic(t *testing.T) {
	f, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:integer-add")
	res := f.Eval(newCtx(), []expr.Expression{
		lit(value.TypeInteger, "1"), lit(value.TypeInteger, "2"), lit(value.TypeInteger, "3"),
	})
	if res.Indeterminate || !value.Equal(res.Value, value.MustNew(value.TypeInteger, "6")) {
		t.Fatalf("expected 6, got %+v", res)
	}
}

func TestIntegerDivideByZeroIsIndeterminate(t *testing.T) {
	f, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:integer-divide")
	res := f.Eval(newCtx(), []expr.Expression{lit(value.TypeInteger, "1"), lit(value.TypeInteger, "0")})
	if !res.Indeterminate {
		t.Fatalf("expected Indeterminate on division by zero")
	}
}

// indetExpr evaluates to Indeterminate whenever called.
type indetExpr struct{}

func (indetExpr) Evaluate(ctx *evalctx.RequestContext) expr.EvaluationResult {
	return indetf("boom")
}
func (indetExpr) DataType() string { return value.TypeBoolean }
func (indetExpr) ReturnsBag() bool { return false }

func TestAndShortCircuitsOnFalseBeforeIndeterminate(t *testing.T) {
	f, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:and")
	res := f.Eval(newCtx(), []expr.Expression{lit(value.TypeBoolean, "false"), indetExpr{}})
	if res.Indeterminate {
		t.Fatalf("expected determinate false, and must not propagate a never-needed Indeterminate")
	}
	if mustBool(t, res) {
		t.Fatalf("expected false")
	}
}

func TestAndPropagatesIndeterminateWhenNoFalseFound(t *testing.T) {
	f, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:and")
	res := f.Eval(newCtx(), []expr.Expression{lit(value.TypeBoolean, "true"), indetExpr{}})
	if !res.Indeterminate {
		t.Fatalf("expected Indeterminate when no false short-circuits")
	}
}

func TestOrShortCircuitsOnTrue(t *testing.T) {
	f, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:or")
	res := f.Eval(newCtx(), []expr.Expression{lit(value.TypeBoolean, "true"), indetExpr{}})
	if res.Indeterminate || !mustBool(t, res) {
		t.Fatalf("expected determinate true")
	}
}

func TestStringBagAndIsIn(t *testing.T) {
	bagFn, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:string-bag")
	bagRes := bagFn.Eval(newCtx(), []expr.Expression{lit(value.TypeString, "a"), lit(value.TypeString, "b")})
	if bagRes.Indeterminate || bagRes.Bag.Size() != 2 {
		t.Fatalf("expected bag of size 2, got %+v", bagRes)
	}

	isInFn, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:string-is-in")
	isInExpr := &memoExpr{res: bagRes}
	res := isInFn.Eval(newCtx(), []expr.Expression{lit(value.TypeString, "a"), isInExpr})
	if !mustBool(t, res) {
		t.Fatalf("expected 'a' to be in bag {a, b}")
	}
}

func TestAnyOfMatchesFunctionAgainstBag(t *testing.T) {
	eq, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:string-equal")
	anyOf, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:any-of")
	bagFn, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:string-bag")

	ctx := newCtx()
	bagExpr := &memoExpr{res: bagFn.Eval(ctx, []expr.Expression{lit(value.TypeString, "x"), lit(value.TypeString, "y")})}
	res := anyOf.Eval(ctx, []expr.Expression{
		expr.NewFunctionReference(eq),
		lit(value.TypeString, "y"),
		bagExpr,
	})
	if !mustBool(t, res) {
		t.Fatalf("expected any-of to find a match")
	}
}

type memoExpr struct{ res expr.EvaluationResult }

func (m *memoExpr) Evaluate(_ *evalctx.RequestContext) expr.EvaluationResult { return m.res }
func (m *memoExpr) DataType() string                                        { return m.res.DataType() }
func (m *memoExpr) ReturnsBag() bool                                        { return m.res.IsBag }

func TestStringNormalizeSpaceAndLowerCase(t *testing.T) {
	norm, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:string-normalize-space")
	res := norm.Eval(newCtx(), []expr.Expression{lit(value.TypeString, "  Hi  ")})
	if res.Value.Payload.(string) != "Hi" {
		t.Fatalf("expected trimmed string, got %q", res.Value.Payload)
	}

	lower, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:string-normalize-to-lower-case")
	res2 := lower.Eval(newCtx(), []expr.Expression{lit(value.TypeString, "HI")})
	if res2.Value.Payload.(string) != "hi" {
		t.Fatalf("expected lowercase string, got %q", res2.Value.Payload)
	}
}

func TestRegexpMatch(t *testing.T) {
	re, _ := Lookup("urn:oasis:names:tc:xacml:1.0:function:string-regexp-match")
	res := re.Eval(newCtx(), []expr.Expression{lit(value.TypeString, "^a.*z$"), lit(value.TypeString, "abcz")})
	if !mustBool(t, res) {
		t.Fatalf("expected regex match")
	}
}

func TestDateTimeAddDayTimeDuration(t *testing.T) {
	addFn, _ := Lookup("urn:oasis:names:tc:xacml:3.0:function:dateTime-add-dayTimeDuration")
	res := addFn.Eval(newCtx(), []expr.Expression{
		lit(value.TypeDateTime, "2025-01-01T00:00:00Z"),
		lit(value.TypeDayTimeDur, "P1D"),
	})
	if res.Indeterminate {
		t.Fatalf("unexpected Indeterminate: %+v", res.Status)
	}
	want := value.MustNew(value.TypeDateTime, "2025-01-02T00:00:00Z")
	if !value.Equal(res.Value, want) {
		t.Fatalf("expected 2025-01-02, got %s", res.Value.String())
	}
}
