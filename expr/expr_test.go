package expr

import (
	"testing"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

func mustCompile(t *testing.T, src string, ctx Context) frame.Expr {
	t.Helper()
	n, err := Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	c, err := Compile(n, ctx)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return c
}

func TestArithmeticAndComparison(t *testing.T) {
	ctx := Context{DeclaredColumns: map[string]model.ColumnType{"amount": model.ColumnInteger}}
	c := mustCompile(t, "amount * 2 > 10", ctx)
	v, err := c.Eval(frame.Row{"amount": 6})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v != true {
		t.Fatalf("expected true, got %v", v)
	}
	v, err = c.Eval(frame.Row{"amount": 4})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v != false {
		t.Fatalf("expected false, got %v", v)
	}
}

func TestLogicalOperators(t *testing.T) {
	ctx := Context{DeclaredColumns: map[string]model.ColumnType{
		"a": model.ColumnBoolean, "b": model.ColumnBoolean,
	}}
	c := mustCompile(t, "a AND NOT b", ctx)
	v, err := c.Eval(frame.Row{"a": true, "b": false})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v != true {
		t.Fatalf("expected true, got %v", v)
	}
}

func TestUnknownColumnIsCompileError(t *testing.T) {
	ctx := Context{DeclaredColumns: map[string]model.ColumnType{}}
	n, err := Parse("missing_column = 1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = Compile(n, ctx)
	if err == nil {
		t.Fatal("expected compile error for unknown column")
	}
	ce, ok := err.(CompileError)
	if !ok {
		t.Fatalf("expected CompileError, got %T", err)
	}
	if ce.Kind != ErrUnknownColumn {
		t.Fatalf("expected ErrUnknownColumn, got %s", ce.Kind)
	}
}

func TestNormalizeUpdateExprPrefixesBareIdents(t *testing.T) {
	out, err := NormalizeUpdateExpr("amount + 1")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out != "input.amount + 1" {
		t.Fatalf("expected bare ident prefixed with input., got %q", out)
	}
}

func TestNormalizeUpdateExprLeavesStringLiteralsAlone(t *testing.T) {
	out, err := NormalizeUpdateExpr(`"input.amount" + 1`)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out != `"input.amount" + 1` {
		t.Fatalf("expected quoted ident left untouched, got %q", out)
	}
}
