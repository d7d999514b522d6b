package parser_test

import (
	"testing"

	"github.com/sandrolain/jpath/pkg/ast"
	"github.com/sandrolain/jpath/pkg/errs"
	"github.com/sandrolain/jpath/pkg/functions"
	"github.com/sandrolain/jpath/pkg/parser"
)

func parseExpr(t *testing.T, src string) *ast.Node {
	t.Helper()
	compiled, err := parser.Parse(src, functions.New())
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", src, err)
	}
	return compiled.Root()
}

func expectParseError(t *testing.T, src string, kind errs.Kind) *errs.Error {
	t.Helper()
	_, err := parser.Parse(src, functions.New())
	if err == nil {
		t.Fatalf("Parse(%q): expected error, got none", src)
	}
	e, ok := err.(*errs.Error)
	if !ok {
		t.Fatalf("Parse(%q): error is not *errs.Error: %v", src, err)
	}
	if e.Kind != kind {
		t.Fatalf("Parse(%q): kind = %s, want %s", src, e.Kind, kind)
	}
	return e
}

func TestParseIdentity(t *testing.T) {
	n := parseExpr(t, "@")
	if n.Kind != ast.CurrentNode {
		t.Fatalf("kind = %v, want CurrentNode", n.Kind)
	}
}

func TestParseField(t *testing.T) {
	n := parseExpr(t, "foo")
	if n.Kind != ast.Field || n.Name != "foo" {
		t.Fatalf("got %+v, want Field(foo)", n)
	}
}

func TestParseSubExpression(t *testing.T) {
	n := parseExpr(t, "foo.bar")
	if n.Kind != ast.SubExpression {
		t.Fatalf("kind = %v, want SubExpression", n.Kind)
	}
	if n.Left.Kind != ast.Field || n.Left.Name != "foo" {
		t.Fatalf("left = %+v, want Field(foo)", n.Left)
	}
	if n.Right.Kind != ast.Field || n.Right.Name != "bar" {
		t.Fatalf("right = %+v, want Field(bar)", n.Right)
	}
}

func TestParseIndex(t *testing.T) {
	n := parseExpr(t, "foo[0]")
	if n.Kind != ast.IndexExpression {
		t.Fatalf("kind = %v, want IndexExpression", n.Kind)
	}
	if n.Right.Kind != ast.Index || n.Right.IndexValue != 0 {
		t.Fatalf("right = %+v, want Index(0)", n.Right)
	}
}

func TestParseNegativeIndex(t *testing.T) {
	n := parseExpr(t, "foo[-1]")
	if n.Right.Kind != ast.Index || n.Right.IndexValue != -1 {
		t.Fatalf("right = %+v, want Index(-1)", n.Right)
	}
}

func TestParseSlice(t *testing.T) {
	n := parseExpr(t, "foo[1:3:2]")
	if n.Kind != ast.Projection {
		t.Fatalf("kind = %v, want Projection (slice starts a projection)", n.Kind)
	}
	idx := n.Left
	if idx.Kind != ast.IndexExpression || idx.Right.Kind != ast.Slice {
		t.Fatalf("left = %+v, want IndexExpression(Slice)", idx)
	}
	s := idx.Right
	if *s.SliceStart != 1 || *s.SliceStop != 3 || *s.SliceStep != 2 {
		t.Fatalf("slice = {%d,%d,%d}", *s.SliceStart, *s.SliceStop, *s.SliceStep)
	}
}

func TestParseFlatten(t *testing.T) {
	n := parseExpr(t, "foo[]")
	if n.Kind != ast.Projection {
		t.Fatalf("kind = %v, want Projection", n.Kind)
	}
	if n.Left.Kind != ast.Flatten {
		t.Fatalf("left = %+v, want Flatten", n.Left)
	}
}

func TestParseWildcardProjection(t *testing.T) {
	n := parseExpr(t, "foo[*].bar")
	if n.Kind != ast.Projection {
		t.Fatalf("kind = %v, want Projection", n.Kind)
	}
	if n.Right.Kind != ast.Field || n.Right.Name != "bar" {
		t.Fatalf("right = %+v, want Field(bar)", n.Right)
	}
}

func TestParseValueProjection(t *testing.T) {
	n := parseExpr(t, "*.bar")
	if n.Kind != ast.ValueProjection {
		t.Fatalf("kind = %v, want ValueProjection", n.Kind)
	}
	if n.Left.Kind != ast.Identity {
		t.Fatalf("left = %+v, want Identity", n.Left)
	}
}

func TestParseFilterProjection(t *testing.T) {
	n := parseExpr(t, "foo[?x==`1`].y")
	if n.Kind != ast.FilterProjection {
		t.Fatalf("kind = %v, want FilterProjection", n.Kind)
	}
	if n.Predicate.Kind != ast.Comparator || n.Predicate.Op != ast.OpEq {
		t.Fatalf("predicate = %+v, want Comparator(==)", n.Predicate)
	}
	if n.Right.Kind != ast.Field || n.Right.Name != "y" {
		t.Fatalf("right = %+v, want Field(y)", n.Right)
	}
}

func TestParseMultiSelectList(t *testing.T) {
	n := parseExpr(t, "[a, b, c]")
	if n.Kind != ast.MultiSelectList || len(n.Items) != 3 {
		t.Fatalf("got %+v, want MultiSelectList with 3 items", n)
	}
}

func TestParseMultiSelectHash(t *testing.T) {
	n := parseExpr(t, "{a: foo, b: bar}")
	if n.Kind != ast.MultiSelectHash || len(n.Pairs) != 2 {
		t.Fatalf("got %+v, want MultiSelectHash with 2 pairs", n)
	}
	if n.Pairs[0].Key != "a" || n.Pairs[1].Key != "b" {
		t.Fatalf("pairs = %+v", n.Pairs)
	}
}

func TestParsePipeAndOrAnd(t *testing.T) {
	n := parseExpr(t, "foo[*].a | [0]")
	if n.Kind != ast.Pipe {
		t.Fatalf("kind = %v, want Pipe", n.Kind)
	}

	n = parseExpr(t, "a || b")
	if n.Kind != ast.OrExpression {
		t.Fatalf("kind = %v, want OrExpression", n.Kind)
	}

	n = parseExpr(t, "a && b")
	if n.Kind != ast.AndExpression {
		t.Fatalf("kind = %v, want AndExpression", n.Kind)
	}
}

func TestParseNotExpression(t *testing.T) {
	n := parseExpr(t, "!foo")
	if n.Kind != ast.NotExpression {
		t.Fatalf("kind = %v, want NotExpression", n.Kind)
	}
}

func TestParseExpressionReference(t *testing.T) {
	n := parseExpr(t, "&foo.bar")
	if n.Kind != ast.ExpressionReference {
		t.Fatalf("kind = %v, want ExpressionReference", n.Kind)
	}
}

func TestParseFunctionExpression(t *testing.T) {
	n := parseExpr(t, "length(foo)")
	if n.Kind != ast.FunctionExpression || n.Name != "length" || len(n.Args) != 1 {
		t.Fatalf("got %+v, want FunctionExpression(length, 1 arg)", n)
	}
}

func TestParseUnknownFunctionIsParseTimeError(t *testing.T) {
	expectParseError(t, "totally_not_a_function(@)", errs.UnknownFunction)
}

func TestParseWrongArityIsParseTimeError(t *testing.T) {
	expectParseError(t, "abs(@, @)", errs.InvalidArity)
}

func TestParseVariadicArityError(t *testing.T) {
	expectParseError(t, "not_null()", errs.VariadicArity)
}

func TestParseQuotedIdentifierCannotBeFunctionName(t *testing.T) {
	expectParseError(t, `"length"(foo)`, errs.ParseError)
}

func TestParseUnexpectedTokenError(t *testing.T) {
	e := expectParseError(t, "foo]baz", errs.ParseError)
	if e.Position != 3 {
		t.Fatalf("position = %d, want 3", e.Position)
	}
}

func TestParseIncompleteExpressionError(t *testing.T) {
	e := expectParseError(t, "foo.", errs.IncompleteExpression)
	if e.Position != 4 {
		t.Fatalf("position = %d, want 4", e.Position)
	}
}

func TestParseDeterminism(t *testing.T) {
	const src = "foo[?x==`1`].bar | sort_by(@, &baz)[0]"
	a := parseExpr(t, src)
	b := parseExpr(t, src)
	if !structurallyEqual(a, b) {
		t.Fatalf("Parse(%q) is not deterministic across repeated calls", src)
	}
}

func structurallyEqual(a, b *ast.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Name != b.Name || a.IndexValue != b.IndexValue || a.Op != b.Op {
		return false
	}
	if len(a.Items) != len(b.Items) || len(a.Args) != len(b.Args) || len(a.Pairs) != len(b.Pairs) {
		return false
	}
	for i := range a.Items {
		if !structurallyEqual(a.Items[i], b.Items[i]) {
			return false
		}
	}
	for i := range a.Args {
		if !structurallyEqual(a.Args[i], b.Args[i]) {
			return false
		}
	}
	for i := range a.Pairs {
		if a.Pairs[i].Key != b.Pairs[i].Key || !structurallyEqual(a.Pairs[i].Expr, b.Pairs[i].Expr) {
			return false
		}
	}
	return structurallyEqual(a.Left, b.Left) && structurallyEqual(a.Right, b.Right) &&
		structurallyEqual(a.Child, b.Child) && structurallyEqual(a.Predicate, b.Predicate)
}

func TestParseMaxNestingDepth(t *testing.T) {
	src := ""
	for i := 0; i < 50; i++ {
		src += "["
	}
	src += "0"
	for i := 0; i < 50; i++ {
		src += "]"
	}
	_, err := parser.Parse(src, functions.New(), parser.WithMaxDepth(10))
	if err == nil {
		t.Fatal("expected nesting-depth error with a tight WithMaxDepth limit")
	}
}
