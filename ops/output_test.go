package ops

import (
	"context"
	"testing"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/writer"
)

type recordingWriter struct {
	dest   writer.Destination
	schema model.TableSchema
	rows   []frame.Row
}

func (w *recordingWriter) Write(ctx context.Context, dest writer.Destination, schema model.TableSchema, f frame.Frame) error {
	rows, err := f.Collect()
	if err != nil {
		return err
	}
	w.dest, w.schema, w.rows = dest, schema, rows
	return nil
}

func TestOutputFiltersDeletedAndProjectsColumns(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{
		{Name: "id", Type: model.ColumnInteger},
		{Name: "amount", Type: model.ColumnInteger},
		{Name: model.ColDeleted, Type: model.ColumnBoolean},
	}}
	rows := []frame.Row{
		{"id": 1, "amount": 10, model.ColDeleted: false},
		{"id": 2, "amount": 20, model.ColDeleted: true},
	}
	f := memframe.New(schema, rows)

	spec := model.OutputSpec{
		Destination: model.OutputDestination{Kind: model.DestinationTable, Table: "sales_out"},
		Columns:     []string{"id", "amount"},
	}
	w := &recordingWriter{}
	tableSchema, err := Output(context.Background(), spec, OutputInput{Working: f, Writer: w, RunTimestamp: time.Now()})
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if tableSchema.Name != "sales_out" {
		t.Fatalf("expected table name sales_out, got %q", tableSchema.Name)
	}
	if len(w.rows) != 1 || w.rows[0]["id"] != 1 {
		t.Fatalf("expected only the non-deleted row written, got %+v", w.rows)
	}
	if _, ok := w.rows[0][model.ColDeleted]; ok {
		t.Fatalf("expected _deleted column dropped by projection, got %+v", w.rows[0])
	}
}

func TestOutputMissingColumnIsError(t *testing.T) {
	schema := frame.Schema{Columns: []frame.Column{{Name: "id", Type: model.ColumnInteger}}}
	f := memframe.New(schema, nil)

	spec := model.OutputSpec{Columns: []string{"missing"}}
	w := &recordingWriter{}
	_, err := Output(context.Background(), spec, OutputInput{Working: f, Writer: w, RunTimestamp: time.Now()})
	if err == nil {
		t.Fatal("expected error")
	}
	oerr, ok := err.(OutputError)
	if !ok || oerr.Kind != ErrOutputColumnMissing {
		t.Fatalf("expected ErrOutputColumnMissing, got %#v", err)
	}
}
