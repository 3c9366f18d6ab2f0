package temporal

import (
	"testing"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
)

func TestApplyPeriodModeFiltersByIdentifier(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{
		{Name: "id", Type: model.ColumnInteger},
		{Name: model.ColPeriod, Type: model.ColumnString},
	}}
	rows := []frame.Row{
		{"id": 1, model.ColPeriod: "2026-01"},
		{"id": 2, model.ColPeriod: "2026-02"},
	}
	f := memframe.New(schema, rows)

	out, err := Apply(f, model.TemporalPeriod, model.Period{Identifier: "2026-01"}, time.Time{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, err := out.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != 1 {
		t.Fatalf("expected only the 2026-01 row, got %+v", got)
	}
}

func TestApplyPeriodModeMissingColumnIsError(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{{Name: "id", Type: model.ColumnInteger}}}
	f := memframe.New(schema, nil)

	_, err := Apply(f, model.TemporalPeriod, model.Period{Identifier: "2026-01"}, time.Time{})
	if err == nil {
		t.Fatal("expected missing-column error")
	}
	terr, ok := err.(Error)
	if !ok {
		t.Fatalf("expected temporal.Error, got %T", err)
	}
	if terr.Column != model.ColPeriod {
		t.Fatalf("expected %q, got %q", model.ColPeriod, terr.Column)
	}
}

func TestApplySoftDeleteDropsDeletedRows(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{
		{Name: "id", Type: model.ColumnInteger},
		{Name: model.ColDeleted, Type: model.ColumnBoolean},
	}}
	rows := []frame.Row{
		{"id": 1, model.ColDeleted: false},
		{"id": 2, model.ColDeleted: true},
		{"id": 3, model.ColDeleted: nil},
	}
	f := memframe.New(schema, rows)

	out, err := Apply(f, "", model.Period{}, time.Time{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, err := out.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving rows, got %+v", got)
	}
}

func TestApplyBitemporalKeepsOpenAndInRangeRows(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{
		{Name: "id", Type: model.ColumnInteger},
		{Name: model.ColPeriodFrom, Type: model.ColumnString},
		{Name: model.ColPeriodTo, Type: model.ColumnString},
	}}
	rows := []frame.Row{
		{"id": 1, model.ColPeriodFrom: "2026-01-01", model.ColPeriodTo: nil},
		{"id": 2, model.ColPeriodFrom: "2026-01-01", model.ColPeriodTo: "2026-02-01"},
		{"id": 3, model.ColPeriodFrom: "2026-03-01", model.ColPeriodTo: nil},
	}
	f := memframe.New(schema, rows)
	asOf, err := time.Parse("2006-01-02", "2026-01-15")
	if err != nil {
		t.Fatalf("parse asOf: %v", err)
	}

	out, err := Apply(f, model.TemporalBitemporal, model.Period{}, asOf)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, err := out.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != 1 {
		t.Fatalf("expected only the still-open, in-range row, got %+v", got)
	}
}
