package assign

import (
	"testing"

	"github.com/tabkit/pipeline/expr"
)

func TestRewriteReplacesAliasedReferenceWithSuffixedName(t *testing.T) {
	symbols := SymbolTable{
		WorkingColumns:   map[string]bool{"amount": true},
		JoinAliasColumns: map[string]map[string]bool{"rates": {"rate": true}},
	}
	out, err := Rewrite("amount * rates.rate", symbols)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if out != "amount * rate_rates" {
		t.Fatalf("expected amount * rate_rates, got %q", out)
	}
}

func TestRewriteUnknownAliasIsCompileError(t *testing.T) {
	symbols := SymbolTable{WorkingColumns: map[string]bool{}}
	_, err := Rewrite("missing.rate", symbols)
	if err == nil {
		t.Fatal("expected error")
	}
	ce, ok := err.(expr.CompileError)
	if !ok || ce.Kind != expr.ErrUnknownAlias {
		t.Fatalf("expected ErrUnknownAlias, got %#v", err)
	}
}

func TestRewriteUnknownAliasedColumnIsCompileError(t *testing.T) {
	symbols := SymbolTable{JoinAliasColumns: map[string]map[string]bool{"rates": {"rate": true}}}
	_, err := Rewrite("rates.missing", symbols)
	if err == nil {
		t.Fatal("expected error")
	}
	ce, ok := err.(expr.CompileError)
	if !ok || ce.Kind != expr.ErrUnknownAliasedColumn {
		t.Fatalf("expected ErrUnknownAliasedColumn, got %#v", err)
	}
}

func TestRewriteUnknownWorkingColumnIsCompileError(t *testing.T) {
	symbols := SymbolTable{WorkingColumns: map[string]bool{"amount": true}}
	_, err := Rewrite("missing_column + 1", symbols)
	if err == nil {
		t.Fatal("expected error")
	}
	ce, ok := err.(expr.CompileError)
	if !ok || ce.Kind != expr.ErrUnknownColumn {
		t.Fatalf("expected ErrUnknownColumn, got %#v", err)
	}
}

func TestRewriteLeavesFunctionCallNameAlone(t *testing.T) {
	symbols := SymbolTable{WorkingColumns: map[string]bool{"amount": true}}
	out, err := Rewrite("ROUND(amount, 2)", symbols)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if out != "ROUND ( amount , 2 )" {
		t.Fatalf("unexpected rewrite of function call, got %q", out)
	}
}
