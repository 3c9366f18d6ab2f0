package ops

import (
	"time"

	"github.com/tabkit/pipeline/expr"
	"github.com/tabkit/pipeline/expr/assign"
	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

// UpdateInput bundles the post-join working frame and the join aliases that
// attached to it, so assignment and selector expressions can validate and
// rewrite `alias.column` references (§4.6, §4.8).
type UpdateInput struct {
	Working      frame.Frame
	AliasColumns map[string]map[string]bool
	RunTimestamp time.Time
}

const inputPrefix = "input."

// Update implements §4.6: compile the selector (if any), snapshot every
// working column under `input.<name>` so assignments read pre-update
// values, apply each assignment in turn (widening the result schema with
// any brand-new derived columns an assignment targets), stamp
// `_updated_at` on every selector-matched row, then drop the snapshot
// columns.
func Update(spec model.UpdateSpec, in UpdateInput) (frame.Frame, error) {
	working := in.Working
	schema, err := working.Schema()
	if err != nil {
		return nil, UpdateError{Kind: ErrUpdateSelectorFailed, Reason: err.Error()}
	}

	symbols := assign.SymbolTable{
		WorkingColumns:   make(map[string]bool, len(schema.Columns)),
		JoinAliasColumns: in.AliasColumns,
	}
	for _, c := range schema.Columns {
		symbols.WorkingColumns[c.Name] = true
	}

	var selectorPred frame.Expr
	if spec.Selector != "" {
		rewritten, err := assign.Rewrite(spec.Selector, symbols)
		if err != nil {
			return nil, UpdateError{Kind: ErrUpdateSelectorFailed, Reason: err.Error()}
		}
		selectorPred, err = compileBoolExpr(rewritten, schema, in.RunTimestamp, false)
		if err != nil {
			return nil, UpdateError{Kind: ErrUpdateSelectorFailed, Reason: err.Error()}
		}
	}

	snapshotCols := make(map[string]frame.Expr, len(schema.Columns))
	declared := declaredColumns(schema)
	for _, c := range schema.Columns {
		name := c.Name
		declared[inputPrefix+name] = c.Type
		snapshotCols[inputPrefix+name] = identExpr{name: name, typ: c.Type}
	}
	snapshotted := working.WithColumns(snapshotCols)

	resultColumns := schema.Names()
	haveResultColumn := make(map[string]bool, len(resultColumns))
	for _, name := range resultColumns {
		haveResultColumn[name] = true
	}

	updated := snapshotted
	for _, a := range spec.Assignments {
		if model.ReservedUpdateTargets[a.Column] {
			return nil, UpdateError{Kind: ErrUpdateReservedTarget, Column: a.Column, Reason: "system columns cannot be assignment targets"}
		}
		rewritten, err := assign.Rewrite(a.Expression, symbols)
		if err != nil {
			return nil, UpdateError{Kind: ErrUpdateAssignmentFailed, Column: a.Column, Reason: err.Error()}
		}
		normalized, err := expr.NormalizeUpdateExpr(rewritten)
		if err != nil {
			return nil, UpdateError{Kind: ErrUpdateAssignmentFailed, Column: a.Column, Reason: err.Error()}
		}
		node, err := expr.Parse(normalized)
		if err != nil {
			return nil, UpdateError{Kind: ErrUpdateAssignmentFailed, Column: a.Column, Reason: err.Error()}
		}
		compiled, err := expr.Compile(node, expr.Context{RunTimestamp: in.RunTimestamp, DeclaredColumns: declared})
		if err != nil {
			return nil, UpdateError{Kind: ErrUpdateAssignmentFailed, Column: a.Column, Reason: err.Error()}
		}
		if selectorPred != nil {
			original := frame.Expr(nullExpr{typ: compiled.ResultType()})
			if haveResultColumn[a.Column] {
				original = identExpr{name: a.Column, typ: compiled.ResultType()}
			}
			compiled = guardedExpr{pred: selectorPred, then: compiled, original: original}
		}
		updated = updated.WithColumns(map[string]frame.Expr{a.Column: compiled})
		if !haveResultColumn[a.Column] {
			resultColumns = append(resultColumns, a.Column)
			haveResultColumn[a.Column] = true
		}
	}

	var updatedAt frame.Expr = constExpr{value: in.RunTimestamp, typ: model.ColumnDatetime}
	if selectorPred != nil {
		updatedAt = guardedExpr{pred: selectorPred, then: updatedAt, original: identExpr{name: model.ColUpdatedAt, typ: model.ColumnDatetime}}
	}
	updated = updated.WithColumns(map[string]frame.Expr{model.ColUpdatedAt: updatedAt})
	if !haveResultColumn[model.ColUpdatedAt] {
		resultColumns = append(resultColumns, model.ColUpdatedAt)
	}

	return updated.Select(resultColumns...), nil
}

// identExpr evaluates to a fixed column's current row value.
type identExpr struct {
	name string
	typ  model.ColumnType
}

func (e identExpr) Eval(row frame.Row) (frame.Value, error) { return row[e.name], nil }
func (e identExpr) ResultType() model.ColumnType            { return e.typ }

// constExpr evaluates to the same fixed value for every row.
type constExpr struct {
	value frame.Value
	typ   model.ColumnType
}

func (e constExpr) Eval(row frame.Row) (frame.Value, error) { return e.value, nil }
func (e constExpr) ResultType() model.ColumnType            { return e.typ }

// nullExpr evaluates to null for every row, used as a guarded assignment's
// fallback when the target column has no pre-update value to fall back to.
type nullExpr struct {
	typ model.ColumnType
}

func (e nullExpr) Eval(row frame.Row) (frame.Value, error) { return nil, nil }
func (e nullExpr) ResultType() model.ColumnType            { return e.typ }

// guardedExpr only applies `then` to rows the selector matches, otherwise
// keeps the row's current value for the column being assigned.
type guardedExpr struct {
	pred     frame.Expr
	then     frame.Expr
	original frame.Expr
}

func (e guardedExpr) ResultType() model.ColumnType { return e.then.ResultType() }

func (e guardedExpr) Eval(row frame.Row) (frame.Value, error) {
	v, err := e.pred.Eval(row)
	if err != nil {
		return nil, err
	}
	if match, _ := v.(bool); match {
		return e.then.Eval(row)
	}
	return e.original.Eval(row)
}
