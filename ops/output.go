package ops

import (
	"context"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/writer"
)

// OutputInput bundles the collaborators Output needs to filter, project,
// and persist the working frame (§4.9).
type OutputInput struct {
	Working      frame.Frame
	Writer       writer.Writer
	RunTimestamp time.Time
}

// Output implements §4.9: optionally filter out soft-deleted rows, apply the
// selector, project to the requested columns, and write the result.
func Output(ctx context.Context, spec model.OutputSpec, in OutputInput) (model.TableSchema, error) {
	f := in.Working
	schema, err := f.Schema()
	if err != nil {
		return model.TableSchema{}, OutputError{Kind: ErrOutputColumnMissing, Reason: err.Error()}
	}

	if !spec.IncludeDeleted && schema.Has(model.ColDeleted) {
		f = f.Filter(notDeletedExpr{})
	}

	if spec.Selector != "" {
		pred, err := compileBoolExpr(spec.Selector, schema, in.RunTimestamp, false)
		if err != nil {
			return model.TableSchema{}, OutputError{Kind: ErrOutputSelectorFailed, Reason: err.Error()}
		}
		f = f.Filter(pred)
	}

	columns := spec.Columns
	if len(columns) == 0 {
		columns = schema.Names()
	}
	for _, c := range columns {
		if !schema.Has(c) {
			return model.TableSchema{}, OutputError{Kind: ErrOutputColumnMissing, Reason: "output column " + c + " is not present"}
		}
	}
	f = f.Select(columns...)

	outSchema, err := f.Schema()
	if err != nil {
		return model.TableSchema{}, OutputError{Kind: ErrOutputColumnMissing, Reason: err.Error()}
	}
	tableSchema := toTableSchema(spec, outSchema)

	dest := writer.Destination{
		Table:  spec.Destination.Table,
		Schema: spec.Destination.Schema,
		Path:   spec.Destination.Path,
	}
	if err := in.Writer.Write(ctx, dest, tableSchema, f); err != nil {
		return model.TableSchema{}, OutputError{Kind: ErrOutputWriteFailed, Reason: err.Error()}
	}

	return tableSchema, nil
}

func toTableSchema(spec model.OutputSpec, schema frame.Schema) model.TableSchema {
	name := spec.Destination.Table
	if name == "" {
		name = spec.Destination.Path
	}
	cols := make([]model.ColumnDef, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = model.ColumnDef{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return model.TableSchema{Name: name, Columns: cols}
}

type notDeletedExpr struct{}

func (notDeletedExpr) ResultType() model.ColumnType { return model.ColumnBoolean }

func (notDeletedExpr) Eval(row frame.Row) (frame.Value, error) {
	v, ok := row[model.ColDeleted].(bool)
	if !ok {
		return true, nil
	}
	return !v, nil
}
