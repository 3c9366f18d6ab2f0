package filewriter

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/writer"
)

func TestWriteProducesCSVWithHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	schema := frame.Schema{Columns: []frame.Column{
		{Name: "id", Type: model.ColumnInteger},
		{Name: "name", Type: model.ColumnString},
	}}
	f := memframe.New(schema, []frame.Row{
		{"id": 1, "name": "alpha"},
		{"id": 2, "name": "beta"},
	})

	tableSchema := model.TableSchema{Columns: []model.ColumnDef{
		{Name: "id", Type: model.ColumnInteger},
		{Name: "name", Type: model.ColumnString},
	}}

	err := w.Write(context.Background(), writer.Destination{Path: "out.csv"}, tableSchema, f)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	buf, err := os.ReadFile(dir + "/out.csv")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(buf)
	if !strings.Contains(content, "id,name") {
		t.Fatalf("expected header row, got %q", content)
	}
	if !strings.Contains(content, "1,alpha") || !strings.Contains(content, "2,beta") {
		t.Fatalf("expected data rows, got %q", content)
	}
}

func TestWriteMissingPathIsError(t *testing.T) {
	w := New(t.TempDir())
	f := memframe.New(frame.Schema{}, nil)
	err := w.Write(context.Background(), writer.Destination{}, model.TableSchema{}, f)
	if err == nil {
		t.Fatal("expected error for missing destination path")
	}
}
