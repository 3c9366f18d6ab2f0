package memloader

import (
	"context"
	"testing"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/resolver"
)

func TestLoadReturnsSeededRowsUnderSchema(t *testing.T) {
	l := New()
	l.Seed("warehouse", "", "sales", []frame.Row{{"id": 1}, {"id": 2}})

	schema := model.TableSchema{Columns: []model.ColumnDef{{Name: "id", Type: model.ColumnInteger}}}
	loc := resolver.ResolvedLocation{DatasourceID: "warehouse", Table: "sales"}

	f, err := l.Load(context.Background(), loc, schema)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rows, err := f.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 seeded rows, got %d", len(rows))
	}
	got, err := f.Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if len(got.Columns) != 1 || got.Columns[0].Name != "id" {
		t.Fatalf("expected schema to mirror the requested table schema, got %+v", got)
	}
}

func TestLoadMissingFixtureIsError(t *testing.T) {
	l := New()
	_, err := l.Load(context.Background(), resolver.ResolvedLocation{DatasourceID: "warehouse", Table: "missing"}, model.TableSchema{})
	if err == nil {
		t.Fatal("expected an error for an unseeded fixture")
	}
}
