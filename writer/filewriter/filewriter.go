// Package filewriter writes a frame to CSV, the plain-file analogue of
// sqlwriter's table writer (see SPEC_FULL.md §6).
package filewriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/writer"
)

// Writer writes CSV files rooted at a configured base directory.
type Writer struct {
	BaseDir string
}

// New returns a Writer rooted at baseDir.
func New(baseDir string) *Writer { return &Writer{BaseDir: baseDir} }

func (w *Writer) Write(ctx context.Context, dest writer.Destination, schema model.TableSchema, f frame.Frame) error {
	if dest.Path == "" {
		return fmt.Errorf("filewriter: destination has no path")
	}
	path := dest.Path
	if w.BaseDir != "" {
		path = w.BaseDir + "/" + path
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("filewriter: create %s: %w", path, err)
	}
	defer out.Close()

	cw := csv.NewWriter(out)
	names := schema.ColumnNames()
	if err := cw.Write(names); err != nil {
		return err
	}

	rows, err := f.Collect()
	if err != nil {
		return fmt.Errorf("filewriter: collect rows: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(names))
		for i, name := range names {
			record[i] = fmt.Sprint(row[name])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
