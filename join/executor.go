package join

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tabkit/pipeline/expr/joincond"
	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/loader"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/resolver"
	"github.com/tabkit/pipeline/store"
	"github.com/tabkit/pipeline/temporal"
)

// ResolveDataset pins the join's target dataset version and rejects a
// disabled dataset (§4.8 step 2).
func ResolveDataset(ctx context.Context, s store.Store, j model.UpdateJoin) (model.Dataset, error) {
	d, err := s.GetDataset(ctx, j.DatasetID, j.DatasetVersion)
	if err != nil {
		return model.Dataset{}, Error{Kind: ErrJoinDatasetNotFound, Alias: j.Alias, Reason: err.Error()}
	}
	if err := d.EnsureSelectable(); err != nil {
		return model.Dataset{}, Error{Kind: ErrJoinDatasetDisabled, Alias: j.Alias, Reason: err.Error()}
	}
	return d, nil
}

// Execute runs one UpdateJoin end to end: compiles the join condition,
// resolves the join dataset's location via the precedence chain, loads and
// temporally filters it, applies any join-side filters, suffixes its
// non-key columns, and left-joins it onto working.
func Execute(
	ctx context.Context,
	j model.UpdateJoin,
	working frame.Frame,
	workingColumns map[string]bool,
	workingTable string,
	seenAliases map[string]bool,
	s store.Store,
	ld loader.Loader,
	resolvers []model.Resolver,
	project *model.Project,
	cal model.Calendar,
	periods []model.Period,
	runPeriod model.Period,
	runStartFn func() (string, error),
) (frame.Frame, model.JoinDatasetSnapshot, error) {
	if err := ValidateAlias(j.Alias, workingTable, seenAliases); err != nil {
		return nil, model.JoinDatasetSnapshot{}, err
	}

	plan, err := Compile(j.On, j.Alias, workingColumns)
	if err != nil {
		return nil, model.JoinDatasetSnapshot{}, err
	}

	dataset, err := ResolveDataset(ctx, s, j)
	if err != nil {
		return nil, model.JoinDatasetSnapshot{}, err
	}

	lookup := func(id string) (model.Resolver, bool) {
		r, err := s.GetResolver(ctx, id)
		return r, err == nil
	}
	req := resolver.Request{Period: runPeriod, Table: dataset.MainTable.Name, DatasetID: dataset.ID}
	result, source, err := resolveLocation(ctx, req, project, &dataset, resolvers, lookup, cal, periods)
	if err != nil {
		return nil, model.JoinDatasetSnapshot{}, err
	}
	if len(result.Locations) == 0 {
		return nil, model.JoinDatasetSnapshot{}, Error{Kind: ErrLoadFailed, Alias: j.Alias, Reason: "resolver produced no locations for the join dataset"}
	}

	joinFrame, err := ld.Load(ctx, result.Locations[0], dataset.MainTable)
	if err != nil {
		return nil, model.JoinDatasetSnapshot{}, Error{Kind: ErrLoadFailed, Alias: j.Alias, Reason: err.Error()}
	}

	if dataset.MainTable.TemporalMode != "" && dataset.MainTable.TemporalMode != model.TemporalSnapshot {
		start, err := runStartFn()
		if err != nil {
			return nil, model.JoinDatasetSnapshot{}, Error{Kind: ErrLoadFailed, Alias: j.Alias, Reason: err.Error()}
		}
		t, err := temporal.ParseBound(start)
		if err != nil {
			return nil, model.JoinDatasetSnapshot{}, Error{Kind: ErrLoadFailed, Alias: j.Alias, Reason: err.Error()}
		}
		joinFrame, err = temporal.Apply(joinFrame, dataset.MainTable.TemporalMode, runPeriod, t)
		if err != nil {
			return nil, model.JoinDatasetSnapshot{}, Error{Kind: ErrLoadFailed, Alias: j.Alias, Reason: err.Error()}
		}
	}

	for _, f := range plan.RightFilters {
		pred, err := compileJoinCondExpr(f, j.Alias)
		if err != nil {
			return nil, model.JoinDatasetSnapshot{}, err
		}
		joinFrame = joinFrame.Filter(pred)
	}

	keyColumns := make(map[string]bool)
	for _, k := range plan.Keys {
		keyColumns[k.Right] = true
	}
	rename, err := SuffixColumns(dataset.MainTable, j.Alias, keyColumns, workingColumns)
	if err != nil {
		return nil, model.JoinDatasetSnapshot{}, err
	}
	joinFrame = joinFrame.Rename(rename)

	joined := working.Join(joinFrame, plan.Keys)

	snapshot := model.JoinDatasetSnapshot{
		Alias:          j.Alias,
		DatasetID:      dataset.ID,
		DatasetVersion: dataset.Version,
		ResolverSource: source,
	}
	return joined, snapshot, nil
}

func resolveLocation(ctx context.Context, req resolver.Request, project *model.Project, dataset *model.Dataset, resolvers []model.Resolver, lookup resolver.ResolverLookup, cal model.Calendar, periods []model.Period) (resolver.Result, model.ResolverSource, error) {
	res, err := resolver.ResolveWithPrecedence(req, project, dataset, resolvers, lookup, cal, periods)
	if err != nil {
		return resolver.Result{}, "", err
	}
	return res, res.Diagnostic.ResolverSource, nil
}

// compileJoinCondExpr turns one classified right-side joincond.Node into a
// frame.Expr evaluable against the joined alias's raw (pre-rename) rows.
func compileJoinCondExpr(n joincond.Node, alias string) (frame.Expr, error) {
	return jcExpr{node: n, alias: alias}, nil
}

type jcExpr struct {
	node  joincond.Node
	alias string
}

func (e jcExpr) ResultType() model.ColumnType { return model.ColumnBoolean }

func (e jcExpr) Eval(row frame.Row) (frame.Value, error) {
	return evalJoinCond(e.node, e.alias, row)
}

func evalJoinCond(n joincond.Node, alias string, row frame.Row) (bool, error) {
	switch t := n.(type) {
	case joincond.Logical:
		left, err := evalJoinCond(t.Left, alias, row)
		if err != nil {
			return false, err
		}
		if t.Op == joincond.OpAnd && !left {
			return false, nil
		}
		if t.Op == joincond.OpOr && left {
			return true, nil
		}
		return evalJoinCond(t.Right, alias, row)
	case joincond.Comparison:
		lv, err := evalJoinCondValue(t.Left, alias, row)
		if err != nil {
			return false, err
		}
		rv, err := evalJoinCondValue(t.Right, alias, row)
		if err != nil {
			return false, err
		}
		return compareJoinCondValues(lv, t.Op, rv), nil
	}
	return false, fmt.Errorf("join condition: unexpected node %T", n)
}

func evalJoinCondValue(n joincond.Node, alias string, row frame.Row) (frame.Value, error) {
	switch t := n.(type) {
	case joincond.Reference:
		name := t.Name
		if len(name) > len(alias)+1 && name[:len(alias)+1] == alias+"." {
			name = name[len(alias)+1:]
		}
		return row[name], nil
	case joincond.StringLiteral:
		return t.Value, nil
	case joincond.BooleanLiteral:
		return t.Value, nil
	case joincond.NumberLiteral:
		if n, err := strconv.ParseInt(t.Text, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("join condition: unexpected literal node %T", n)
}

func compareJoinCondValues(l frame.Value, op joincond.CompareOp, r frame.Value) bool {
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if lok && rok {
		switch op {
		case joincond.OpEq:
			return lf == rf
		case joincond.OpNeq:
			return lf != rf
		case joincond.OpLt:
			return lf < rf
		case joincond.OpLte:
			return lf <= rf
		case joincond.OpGt:
			return lf > rf
		case joincond.OpGte:
			return lf >= rf
		}
	}
	ls := fmt.Sprint(l)
	rs := fmt.Sprint(r)
	switch op {
	case joincond.OpEq:
		return ls == rs
	case joincond.OpNeq:
		return ls != rs
	default:
		return false
	}
}

func toFloat(v frame.Value) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
