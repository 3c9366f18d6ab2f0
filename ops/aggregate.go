package ops

import (
	"time"

	"github.com/tabkit/pipeline/expr"
	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/idgen"
	"github.com/tabkit/pipeline/model"
)

// AggregateInput bundles the frame an Aggregate step runs against and the
// lineage identifiers stamped onto the summary rows it produces (§4.7 step
// 5). SourceDatasetID/SourceTable name the dataset the summary rows are
// attributed to, the same way AppendInput does for appended rows.
type AggregateInput struct {
	Working         frame.Frame
	RunTimestamp    time.Time
	SourceDatasetID model.DatasetID
	SourceTable     string
}

// Aggregate implements §4.7: drop soft-deleted rows, optionally filter by
// selector, validate the group-by columns exist, parse each
// `column = FUNC(col|*)` aggregation, group the filtered rows, null-fill
// every source column the grouping doesn't account for, inject system
// columns into the resulting summary rows, and concatenate the summary
// onto the original, unfiltered detail rows.
func Aggregate(spec model.AggregateSpec, in AggregateInput) (frame.Frame, error) {
	detail := in.Working
	schema, err := detail.Schema()
	if err != nil {
		return nil, AggregateError{Reason: err.Error()}
	}

	// filtered narrows the rows that feed the grouping; detail (the full,
	// unfiltered frame) is what the summary rows get concatenated onto, so
	// a selector or soft-delete filter here never drops existing rows.
	filtered := detail
	if schema.Has(model.ColDeleted) {
		filtered = filtered.Filter(aggregateSoftDeleteExpr())
	}

	if spec.Selector != "" {
		pred, err := compileBoolExpr(spec.Selector, schema, in.RunTimestamp, false)
		if err != nil {
			return nil, AggregateError{Kind: ErrAggregateSelectorFailed, Reason: err.Error()}
		}
		filtered = filtered.Filter(pred)
	}

	for _, col := range spec.GroupBy {
		if !schema.Has(col) {
			return nil, AggregateError{Kind: ErrAggregateGroupColumnMissing, Reason: "group-by column " + col + " is not present"}
		}
	}
	grouped := make(map[string]bool, len(spec.GroupBy))
	for _, col := range spec.GroupBy {
		grouped[col] = true
	}

	aggs := make([]frame.AggExpr, len(spec.Aggregations))
	aggInputs := make(map[string]bool, len(spec.Aggregations))
	aggOutputs := make(map[string]bool, len(spec.Aggregations))
	for i, a := range spec.Aggregations {
		kind, input, err := expr.ParseAggregateExpr(a.Expression)
		if err != nil {
			return nil, AggregateError{Kind: ErrAggregateExprFailed, Reason: a.Column + ": " + err.Error()}
		}
		if input != "" && !schema.Has(input) {
			return nil, AggregateError{Kind: ErrAggregateExprFailed, Reason: "aggregate input column " + input + " is not present"}
		}
		typ := model.ColumnDecimal
		if kind == frame.AggCount || kind == frame.AggCountAll {
			typ = model.ColumnInteger
		} else if c, ok := schema.Column(input); ok {
			typ = c.Type
		}
		aggs[i] = frame.AggExpr{Output: a.Column, Kind: kind, Input: input, Type: typ}
		if input != "" {
			aggInputs[input] = true
		}
		aggOutputs[a.Column] = true
	}

	summary := filtered.GroupByAgg(spec.GroupBy, aggs)
	summarySchema, err := summary.Schema()
	if err != nil {
		return nil, AggregateError{Reason: err.Error()}
	}

	// Step 4: null-fill every source column the group-by/aggregations don't
	// already account for, so the summary rows carry every detail column.
	nullFill := make(map[string]frame.Expr)
	summaryCols := append([]frame.Column{}, summarySchema.Columns...)
	for _, c := range schema.Columns {
		if grouped[c.Name] || aggInputs[c.Name] || aggOutputs[c.Name] || model.IsSystemColumn(c.Name) {
			continue
		}
		if summarySchema.Has(c.Name) {
			continue
		}
		nullFill[c.Name] = nullExpr{typ: c.Type}
		summaryCols = append(summaryCols, frame.Column{Name: c.Name, Type: c.Type, Nullable: true})
	}
	if len(nullFill) > 0 {
		summary = summary.WithColumns(nullFill)
	}

	// Step 5: inject system columns into the summary rows. Row ids are
	// generated per row, so this is the execution boundary materializing the
	// summary rather than chaining further lazy Frame operations.
	rows, err := summary.Collect()
	if err != nil {
		return nil, AggregateError{Kind: ErrAggregateExecutionFailed, Reason: err.Error()}
	}
	stamped := make([]frame.Row, len(rows))
	for i, row := range rows {
		out := make(frame.Row, len(row)+7)
		for k, v := range row {
			out[k] = v
		}
		rowID, err := idgen.RowID()
		if err != nil {
			return nil, AggregateError{Kind: ErrAggregateExecutionFailed, Reason: err.Error()}
		}
		out[model.ColRowID] = rowID
		out[model.ColCreatedAt] = in.RunTimestamp
		out[model.ColUpdatedAt] = in.RunTimestamp
		out[model.ColSourceDatasetID] = string(in.SourceDatasetID)
		out[model.ColSourceTable] = in.SourceTable
		out[model.ColDeleted] = false
		if _, ok := out[model.ColPeriod]; !ok {
			out[model.ColPeriod] = nil
		}
		stamped[i] = out
	}
	summaryCols = appendSystemColumnsIfMissing(summaryCols)
	summaryFrame := memframe.New(frame.Schema{Columns: summaryCols}, stamped)

	// Step 6: align both the original detail rows and the summary rows onto
	// their union schema and concatenate.
	target := schema
	for _, c := range summaryCols {
		if !target.Has(c.Name) {
			target = target.With(c)
		}
	}
	detailAligned, err := alignAggregateSchema(detail, schema, target)
	if err != nil {
		return nil, err
	}
	summaryAligned, err := alignAggregateSchema(summaryFrame, frame.Schema{Columns: summaryCols}, target)
	if err != nil {
		return nil, err
	}

	return detailAligned.Concat(summaryAligned), nil
}

// alignAggregateSchema reorders/null-fills rows to match target's column
// set, mirroring alignSchema in append.go but tagging failures as
// AggregateError so errtax classifies them under the aggregate family.
func alignAggregateSchema(src frame.Frame, srcSchema, target frame.Schema) (frame.Frame, error) {
	for _, c := range srcSchema.Columns {
		tc, ok := target.Column(c.Name)
		if !ok {
			return nil, AggregateError{Kind: ErrAggregateExecutionFailed, Reason: "column " + c.Name + " is not present on the aggregate target schema"}
		}
		if tc.Type != "" && c.Type != "" && tc.Type != c.Type {
			return nil, AggregateError{Kind: ErrAggregateExecutionFailed, Reason: "column " + c.Name + " type mismatch: " + string(c.Type) + " vs " + string(tc.Type)}
		}
	}
	rows, err := src.Collect()
	if err != nil {
		return nil, AggregateError{Kind: ErrAggregateExecutionFailed, Reason: err.Error()}
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

// aggregateSoftDeleteExpr filters out rows where _deleted is TRUE, treating
// null or a missing value as not deleted.
func aggregateSoftDeleteExpr() frame.Expr {
	return aggFn(func(row frame.Row) (frame.Value, error) {
		v, ok := row[model.ColDeleted].(bool)
		if !ok {
			return true, nil
		}
		return !v, nil
	})
}

type aggFn func(frame.Row) (frame.Value, error)

func (f aggFn) Eval(row frame.Row) (frame.Value, error) { return f(row) }
func (f aggFn) ResultType() model.ColumnType            { return model.ColumnBoolean }
