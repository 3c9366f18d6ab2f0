// Package fileloader reads a Path-strategy resolved location from CSV,
// the plain-file analogue of the teacher's database/file dry-run backend
// (see SPEC_FULL.md §6).
package fileloader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/resolver"
)

// Loader reads CSV files rooted at a configured base directory.
type Loader struct {
	BaseDir string
}

// New returns a Loader rooted at baseDir.
func New(baseDir string) *Loader { return &Loader{BaseDir: baseDir} }

func (l *Loader) Load(ctx context.Context, location resolver.ResolvedLocation, schema model.TableSchema) (frame.Frame, error) {
	if location.Path == "" {
		return nil, fmt.Errorf("fileloader: resolved location has no path")
	}
	path := location.Path
	if l.BaseDir != "" {
		path = l.BaseDir + "/" + path
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fileloader: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("fileloader: read header of %s: %w", path, err)
	}

	var rows []frame.Row
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		row := make(frame.Row, len(header))
		for i, name := range header {
			if i >= len(record) {
				continue
			}
			col, ok := schema.Column(name)
			if !ok {
				row[name] = record[i]
				continue
			}
			row[name] = castCSVValue(record[i], col.Type)
		}
		rows = append(rows, row)
	}

	cols := make([]frame.Column, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = frame.Column{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return memframe.New(frame.Schema{Columns: cols}, rows), nil
}

func castCSVValue(raw string, t model.ColumnType) frame.Value {
	if raw == "" {
		return nil
	}
	switch t {
	case model.ColumnInteger:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case model.ColumnDecimal:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case model.ColumnBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case model.ColumnDate:
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			return d
		}
	case model.ColumnDatetime:
		if d, err := time.Parse(time.RFC3339, raw); err == nil {
			return d
		}
	}
	return raw
}
