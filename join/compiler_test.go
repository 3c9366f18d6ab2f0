package join

import (
	"testing"

	"github.com/tabkit/pipeline/model"
)

func TestValidateAliasRejectsConflicts(t *testing.T) {
	seen := map[string]bool{}
	if err := ValidateAlias("rates", "working", seen); err != nil {
		t.Fatalf("expected valid alias, got %v", err)
	}
	if err := ValidateAlias("rates", "working", seen); err == nil {
		t.Fatal("expected duplicate alias error")
	}
	if err := ValidateAlias("working", "working", map[string]bool{}); err == nil {
		t.Fatal("expected alias-conflicts-working error")
	}
	if err := ValidateAlias("1bad", "working", map[string]bool{}); err == nil {
		t.Fatal("expected invalid alias error")
	}
}

func TestCompileExtractsKeyPairAndRightFilter(t *testing.T) {
	workingColumns := map[string]bool{"currency": true, "id": true}
	plan, err := Compile(`currency = rates.currency AND rates.active = TRUE`, "rates", workingColumns)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(plan.Keys) != 1 || plan.Keys[0].Left != "currency" || plan.Keys[0].Right != "currency" {
		t.Fatalf("expected one currency=currency key pair, got %+v", plan.Keys)
	}
	if len(plan.RightFilters) != 1 {
		t.Fatalf("expected one alias-scoped filter, got %+v", plan.RightFilters)
	}
}

func TestCompileRejectsMixedNonEqualityPredicate(t *testing.T) {
	workingColumns := map[string]bool{"amount": true}
	_, err := Compile(`amount > rates.threshold`, "rates", workingColumns)
	if err == nil {
		t.Fatal("expected rejected predicate error")
	}
	jerr, ok := err.(Error)
	if !ok || jerr.Kind != ErrRejectedPredicate {
		t.Fatalf("expected ErrRejectedPredicate, got %#v", err)
	}
}

func TestCompileRequiresAtLeastOneKeyPair(t *testing.T) {
	workingColumns := map[string]bool{}
	_, err := Compile(`rates.active = TRUE`, "rates", workingColumns)
	if err == nil {
		t.Fatal("expected no-key-predicate error")
	}
	jerr, ok := err.(Error)
	if !ok || jerr.Kind != ErrNoKeyPredicate {
		t.Fatalf("expected ErrNoKeyPredicate, got %#v", err)
	}
}

func TestSuffixColumnsSkipsKeysAndDetectsConflicts(t *testing.T) {
	schema := model.TableSchema{Columns: []model.ColumnDef{
		{Name: "currency", Type: model.ColumnString},
		{Name: "rate", Type: model.ColumnDecimal},
	}}
	keyColumns := map[string]bool{"currency": true}
	existing := map[string]bool{}

	rename, err := SuffixColumns(schema, "rates", keyColumns, existing)
	if err != nil {
		t.Fatalf("suffix: %v", err)
	}
	if _, ok := rename["currency"]; ok {
		t.Fatal("key column must not be renamed")
	}
	if rename["rate"] != "rate_rates" {
		t.Fatalf("expected rate_rates, got %q", rename["rate"])
	}

	existing["rate_rates"] = true
	_, err = SuffixColumns(schema, "rates", map[string]bool{}, existing)
	if err == nil {
		t.Fatal("expected column suffix conflict error")
	}
}
