package ops

import (
	"testing"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
)

func TestAppendStampsSystemColumnsAndConcatenates(t *testing.T) {
	workingSchema := frame.Schema{Columns: []frame.Column{
		{Name: "id", Type: model.ColumnInteger},
		{Name: model.ColRowID, Type: model.ColumnString},
		{Name: model.ColSourceDatasetID, Type: model.ColumnString},
		{Name: model.ColSourceTable, Type: model.ColumnString},
		{Name: model.ColCreatedAt, Type: model.ColumnDatetime},
		{Name: model.ColUpdatedAt, Type: model.ColumnDatetime},
		{Name: model.ColOperationSeq, Type: model.ColumnInteger},
		{Name: model.ColCreatedByProject, Type: model.ColumnString},
		{Name: model.ColCreatedByRun, Type: model.ColumnString},
		{Name: model.ColDeleted, Type: model.ColumnBoolean},
	}}
	working := memframe.New(workingSchema, []frame.Row{{"id": 1}})

	sourceSchema := frame.Schema{Columns: []frame.Column{
		{Name: "id", Type: model.ColumnInteger},
	}}
	source := memframe.New(sourceSchema, []frame.Row{{"id": 2}, {"id": 3}})

	out, err := Append(model.AppendSpec{}, AppendInput{
		Working:         working,
		Source:          source,
		SourceDatasetID: "ds1",
		SourceTable:     "sales",
		RunTimestamp:    time.Now(),
		RunID:           "run-1",
		ProjectID:       "proj-1",
		OperationSeq:    1,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	rows, err := out.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (1 existing + 2 appended), got %d", len(rows))
	}
	for _, r := range rows {
		if r["id"] == 1 {
			continue // the pre-existing working row is untouched
		}
		if r[model.ColRowID] == nil || r[model.ColRowID] == "" {
			t.Fatalf("expected appended row to carry a row id, got %+v", r)
		}
		if r[model.ColSourceDatasetID] != "ds1" {
			t.Fatalf("expected source dataset id stamped, got %+v", r)
		}
		if r[model.ColCreatedByRun] != "run-1" {
			t.Fatalf("expected run id stamped, got %+v", r)
		}
		if r[model.ColCreatedAt] != r[model.ColUpdatedAt] {
			t.Fatalf("expected _created_at == _updated_at on a freshly appended row, got %+v", r)
		}
	}
}

func TestAppendSchemaMismatchIsError(t *testing.T) {
	workingSchema := frame.Schema{Columns: []frame.Column{{Name: "id", Type: model.ColumnInteger}}}
	working := memframe.New(workingSchema, nil)

	sourceSchema := frame.Schema{Columns: []frame.Column{
		{Name: "id", Type: model.ColumnInteger},
		{Name: "extra", Type: model.ColumnString},
	}}
	source := memframe.New(sourceSchema, []frame.Row{{"id": 1, "extra": "x"}})

	_, err := Append(model.AppendSpec{}, AppendInput{Working: working, Source: source, RunTimestamp: time.Now()})
	if err == nil {
		t.Fatal("expected schema mismatch error")
	}
	aerr, ok := err.(AppendError)
	if !ok || aerr.Kind != ErrAppendSchemaMismatch {
		t.Fatalf("expected ErrAppendSchemaMismatch, got %#v", err)
	}
}
