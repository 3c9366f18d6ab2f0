// Package sqlloader reads a Table-strategy resolved location from any of
// the four SQL backends via database/sql, mirroring the teacher's
// per-adapter schema readers collapsed behind one driver-agnostic query
// path (see SPEC_FULL.md §6).
package sqlloader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/resolver"
)

// Loader reads rows through a shared *sql.DB connection pool.
type Loader struct {
	DB *sql.DB
}

// New wraps an already-open connection.
func New(db *sql.DB) *Loader { return &Loader{DB: db} }

func (l *Loader) Load(ctx context.Context, location resolver.ResolvedLocation, schema model.TableSchema) (frame.Frame, error) {
	table := location.Table
	if location.Schema != "" {
		table = location.Schema + "." + table
	}
	if table == "" {
		return nil, fmt.Errorf("sqlloader: resolved location has no table")
	}

	names := schema.ColumnNames()
	query := "SELECT " + joinIdents(names) + " FROM " + table

	rows, err := l.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlloader: query %s: %w", table, err)
	}
	defer rows.Close()

	var out []frame.Row
	for rows.Next() {
		scanTargets := make([]any, len(names))
		values := make([]any, len(names))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("sqlloader: scan %s: %w", table, err)
		}
		row := make(frame.Row, len(names))
		for i, name := range names {
			row[name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cols := make([]frame.Column, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = frame.Column{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return memframe.New(frame.Schema{Columns: cols}, out), nil
}

func joinIdents(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
