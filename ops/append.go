package ops

import (
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/idgen"
	"github.com/tabkit/pipeline/model"
)

// AppendInput bundles everything Append needs beyond the spec itself: the
// already-loaded, already-temporally-filtered source frame, the working
// frame it appends onto, and the run-scoped identifiers injected into every
// newly appended row (§4.5).
type AppendInput struct {
	Working         frame.Frame
	Source          frame.Frame
	SourceDatasetID model.DatasetID
	SourceTable     string
	RunTimestamp    time.Time
	RunID           string
	ProjectID       string
	OperationSeq    int
}

// Append implements §4.5: filter the source by its selector, optionally
// aggregate it, stamp system columns, and concatenate onto the working
// frame.
func Append(spec model.AppendSpec, in AppendInput) (frame.Frame, error) {
	src := in.Source

	if spec.SourceSelector != "" {
		schema, err := src.Schema()
		if err != nil {
			return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: err.Error()}
		}
		pred, err := compileBoolExpr(spec.SourceSelector, schema, in.RunTimestamp, false)
		if err != nil {
			return nil, AppendError{Kind: ErrAppendSelectorFailed, Reason: err.Error()}
		}
		src = src.Filter(pred)
	}

	if spec.Aggregation != nil {
		aggregated, err := Aggregate(*spec.Aggregation, AggregateInput{
			Working:         src,
			RunTimestamp:    in.RunTimestamp,
			SourceDatasetID: in.SourceDatasetID,
			SourceTable:     in.SourceTable,
		})
		if err != nil {
			return nil, AppendError{Kind: ErrAppendSelectorFailed, Reason: err.Error()}
		}
		src = aggregated
	}

	stamped, err := stampAppendedRows(src, in)
	if err != nil {
		return nil, err
	}

	workingSchema, err := in.Working.Schema()
	if err != nil {
		return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: err.Error()}
	}
	stampedSchema, err := stamped.Schema()
	if err != nil {
		return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: err.Error()}
	}
	aligned, err := alignSchema(stamped, stampedSchema, workingSchema)
	if err != nil {
		return nil, err
	}

	return in.Working.Concat(aligned), nil
}

// stampAppendedRows injects the lineage system columns §3 requires on every
// row an Append introduces.
func stampAppendedRows(src frame.Frame, in AppendInput) (frame.Frame, error) {
	rows, err := src.Collect()
	if err != nil {
		return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: err.Error()}
	}
	schema, err := src.Schema()
	if err != nil {
		return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: err.Error()}
	}

	stampedRows := make([]frame.Row, len(rows))
	for i, row := range rows {
		out := make(frame.Row, len(row)+7)
		for k, v := range row {
			out[k] = v
		}
		rowID, err := idgen.RowID()
		if err != nil {
			return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: err.Error()}
		}
		out[model.ColRowID] = rowID
		out[model.ColSourceDatasetID] = string(in.SourceDatasetID)
		out[model.ColSourceTable] = in.SourceTable
		out[model.ColCreatedAt] = in.RunTimestamp
		out[model.ColUpdatedAt] = in.RunTimestamp
		out[model.ColOperationSeq] = in.OperationSeq
		out[model.ColCreatedByProject] = in.ProjectID
		out[model.ColCreatedByRun] = in.RunID
		if _, ok := out[model.ColDeleted]; !ok {
			out[model.ColDeleted] = false
		}
		stampedRows[i] = out
	}

	cols := append([]frame.Column{}, schema.Columns...)
	cols = appendSystemColumnsIfMissing(cols)
	return memframe.New(frame.Schema{Columns: cols}, stampedRows), nil
}

func appendSystemColumnsIfMissing(cols []frame.Column) []frame.Column {
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c.Name] = true
	}
	add := func(name string, t model.ColumnType) {
		if !have[name] {
			cols = append(cols, systemColumn(name, t))
			have[name] = true
		}
	}
	add(model.ColRowID, model.ColumnString)
	add(model.ColSourceDatasetID, model.ColumnString)
	add(model.ColSourceTable, model.ColumnString)
	add(model.ColCreatedAt, model.ColumnDatetime)
	add(model.ColUpdatedAt, model.ColumnDatetime)
	add(model.ColOperationSeq, model.ColumnInteger)
	add(model.ColCreatedByProject, model.ColumnString)
	add(model.ColCreatedByRun, model.ColumnString)
	add(model.ColDeleted, model.ColumnBoolean)
	return cols
}

// alignSchema reorders/null-fills src's rows to match target's column set,
// failing if src carries a column target lacks or a shared column's type
// disagrees.
func alignSchema(src frame.Frame, srcSchema, target frame.Schema) (frame.Frame, error) {
	for _, c := range srcSchema.Columns {
		tc, ok := target.Column(c.Name)
		if !ok {
			return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: "source column " + c.Name + " is not present on the working table"}
		}
		if tc.Type != "" && c.Type != "" && tc.Type != c.Type {
			return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: "column " + c.Name + " type mismatch: " + string(c.Type) + " vs " + string(tc.Type)}
		}
	}
	rows, err := src.Collect()
	if err != nil {
		return nil, AppendError{Kind: ErrAppendSchemaMismatch, Reason: err.Error()}
	}
	aligned := make([]frame.Row, len(rows))
	for i, row := range rows {
		out := make(frame.Row, len(target.Columns))
		for _, c := range target.Columns {
			out[c.Name] = row[c.Name]
		}
		aligned[i] = out
	}
	return memframe.New(target, aligned), nil
}
