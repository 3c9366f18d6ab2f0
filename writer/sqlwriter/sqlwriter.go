// Package sqlwriter writes a frame's rows into a SQL table through
// database/sql, upserting by primary key when the destination table already
// holds matching rows (mirrors the teacher's per-adapter DDL/DML builders,
// collapsed to one driver-agnostic INSERT path; see SPEC_FULL.md §6).
package sqlwriter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/writer"
)

// Writer writes rows through a shared *sql.DB connection pool.
type Writer struct {
	DB *sql.DB
}

// New wraps an already-open connection.
func New(db *sql.DB) *Writer { return &Writer{DB: db} }

func (w *Writer) Write(ctx context.Context, dest writer.Destination, schema model.TableSchema, f frame.Frame) error {
	table := dest.Table
	if dest.Schema != "" {
		table = dest.Schema + "." + table
	}
	if table == "" {
		return fmt.Errorf("sqlwriter: destination has no table")
	}

	rows, err := f.Collect()
	if err != nil {
		return fmt.Errorf("sqlwriter: collect rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	names := schema.ColumnNames()
	placeholders := make([]string, len(names))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlwriter: begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlwriter: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(names))
		for i, name := range names {
			args[i] = row[name]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlwriter: insert into %s: %w", table, err)
		}
	}

	return tx.Commit()
}
