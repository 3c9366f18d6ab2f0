package ops

import (
	"testing"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
)

func TestUpdateAppliesAssignmentUnconditionally(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{
		{Name: "amount", Type: model.ColumnInteger},
	}}
	f := memframe.New(schema, []frame.Row{{"amount": 10}})

	spec := model.UpdateSpec{Assignments: []model.Assignment{{Column: "amount", Expression: "amount + 1"}}}
	out, err := Update(spec, UpdateInput{Working: f, RunTimestamp: time.Now()})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	rows, err := out.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if rows[0]["amount"] != 11.0 && rows[0]["amount"] != 11 {
		t.Fatalf("expected amount incremented to 11, got %+v", rows[0]["amount"])
	}
}

func TestUpdateSelectorGuardsAssignment(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{
		{Name: "amount", Type: model.ColumnInteger},
		{Name: "flag", Type: model.ColumnBoolean},
	}}
	rows := []frame.Row{
		{"amount": 10, "flag": true},
		{"amount": 20, "flag": false},
	}
	f := memframe.New(schema, rows)

	spec := model.UpdateSpec{
		Selector:    "flag = TRUE",
		Assignments: []model.Assignment{{Column: "amount", Expression: "0"}},
	}
	out, err := Update(spec, UpdateInput{Working: f, RunTimestamp: time.Now()})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := out.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, r := range got {
		if r["flag"] == true && r["amount"] != 0.0 && r["amount"] != 0 {
			t.Fatalf("expected selected row zeroed, got %+v", r)
		}
		if r["flag"] == false && r["amount"] != 20 {
			t.Fatalf("expected unselected row untouched, got %+v", r)
		}
	}
}

func TestUpdateAssignmentCreatesNewDerivedColumn(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{
		{Name: "amount_local", Type: model.ColumnInteger},
		{Name: "rate_fx", Type: model.ColumnInteger},
	}}
	rows := []frame.Row{{"amount_local": 10, "rate_fx": 2}}
	f := memframe.New(schema, rows)

	spec := model.UpdateSpec{
		Assignments: []model.Assignment{{Column: "amount_reporting", Expression: "amount_local * rate_fx"}},
	}
	runAt := time.Now()
	out, err := Update(spec, UpdateInput{Working: f, RunTimestamp: runAt})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := out.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0]["amount_reporting"] != 20.0 && got[0]["amount_reporting"] != 20 {
		t.Fatalf("expected new derived column amount_reporting=20, got %+v", got[0])
	}
	if got[0]["amount_local"] != 10 {
		t.Fatalf("expected pre-existing column to survive, got %+v", got[0])
	}
	if got[0][model.ColUpdatedAt] != runAt {
		t.Fatalf("expected _updated_at stamped with the run timestamp, got %+v", got[0][model.ColUpdatedAt])
	}
}

func TestUpdateStampsUpdatedAtOnlyForSelectedRows(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{
		{Name: "amount", Type: model.ColumnInteger},
		{Name: "flag", Type: model.ColumnBoolean},
		{Name: model.ColUpdatedAt, Type: model.ColumnDatetime},
	}}
	before := time.Now().Add(-time.Hour)
	rows := []frame.Row{
		{"amount": 10, "flag": true, model.ColUpdatedAt: before},
		{"amount": 20, "flag": false, model.ColUpdatedAt: before},
	}
	f := memframe.New(schema, rows)

	spec := model.UpdateSpec{
		Selector:    "flag = TRUE",
		Assignments: []model.Assignment{{Column: "amount", Expression: "0"}},
	}
	runAt := time.Now()
	out, err := Update(spec, UpdateInput{Working: f, RunTimestamp: runAt})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := out.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, r := range got {
		if r["flag"] == true && r[model.ColUpdatedAt] != runAt {
			t.Fatalf("expected selected row's _updated_at stamped, got %+v", r)
		}
		if r["flag"] == false && r[model.ColUpdatedAt] != before {
			t.Fatalf("expected unselected row's _updated_at untouched, got %+v", r)
		}
	}
}

func TestUpdateRejectsReservedTarget(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{{Name: model.ColRowID, Type: model.ColumnString}}}
	f := memframe.New(schema, []frame.Row{{model.ColRowID: "abc"}})

	spec := model.UpdateSpec{Assignments: []model.Assignment{{Column: model.ColRowID, Expression: `"x"`}}}
	_, err := Update(spec, UpdateInput{Working: f, RunTimestamp: time.Now()})
	if err == nil {
		t.Fatal("expected reserved target error")
	}
	uerr, ok := err.(UpdateError)
	if !ok || uerr.Kind != ErrUpdateReservedTarget {
		t.Fatalf("expected ErrUpdateReservedTarget, got %#v", err)
	}
}
