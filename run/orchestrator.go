// Package run implements the Run Orchestrator (§4.10): it drives a
// Project's operations in order against a resolved, temporally filtered
// input dataset, dispatching each to the matching operator in package ops.
package run

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/join"
	"github.com/tabkit/pipeline/loader"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/ops"
	"github.com/tabkit/pipeline/resolver"
	"github.com/tabkit/pipeline/store"
	"github.com/tabkit/pipeline/temporal"
	"github.com/tabkit/pipeline/writer"
)

// Error is the closed RunError taxonomy wrapping a failed operation with
// its position in the project's operation list (§4.10).
type Error struct {
	OperationIndex int
	Kind           model.OperationKind
	Err            error
}

func (e Error) Error() string {
	return fmt.Sprintf("run: operation %d (%s): %v", e.OperationIndex, e.Kind, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// Orchestrator wires the store/loader/writer boundaries the run needs.
type Orchestrator struct {
	Store    store.Store
	Loader   loader.Loader
	Writer   writer.Writer
	Calendar model.Calendar
	Periods  []model.Period

	// Logger receives structured progress and resolver-diagnostic events.
	// A nil Logger is treated as zap.NewNop(), so callers that don't care
	// about logging (tests, the harness) never need to set it.
	Logger *zap.Logger
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Execute runs project's operations in order for runPeriod, returning the
// completed Run record and its final working frame.
func (o *Orchestrator) Execute(ctx context.Context, project model.Project, runPeriod model.Period, runID string, startedAt time.Time) (*model.Run, frame.Frame, error) {
	dataset, err := o.Store.GetDataset(ctx, project.InputDatasetID, versionPtr(project.InputDatasetVersion))
	if err != nil {
		return nil, nil, fmt.Errorf("run: load input dataset: %w", err)
	}
	if err := dataset.EnsureSelectable(); err != nil {
		return nil, nil, err
	}

	resolvers, err := o.Store.ListResolvers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("run: list resolvers: %w", err)
	}
	lookup := func(id string) (model.Resolver, bool) {
		r, err := o.Store.GetResolver(ctx, id)
		return r, err == nil
	}

	req := resolver.Request{Period: runPeriod, Table: dataset.MainTable.Name, DatasetID: dataset.ID}
	result, err := resolver.ResolveWithPrecedence(req, &project, &dataset, resolvers, lookup, o.Calendar, o.Periods)
	if err != nil {
		return nil, nil, err
	}
	if result.Diagnostic.Outcome != resolver.OutcomeSuccess {
		o.logger().Warn("resolver diagnostic", zap.Object("diagnostic", result.Diagnostic))
	}

	working, err := o.loadAndFilter(ctx, result.Locations, dataset, runPeriod, startedAt)
	if err != nil {
		return nil, nil, err
	}

	o.logger().Info("run starting", zap.String("run_id", runID), zap.String("project_id", project.ID), zap.Int("operations", len(project.Operations)))

	run := &model.Run{
		ID:     runID,
		Status: model.RunRunning,
		ProjectSnapshot: model.ProjectSnapshot{
			ProjectID:           project.ID,
			ProjectVersion:      project.Version,
			InputDatasetVersion: dataset.Version,
			ResolverVersions:    map[string]int{result.Diagnostic.ResolverID: 1},
		},
		PeriodIDs: []string{runPeriod.Identifier},
		StartedAt: startedAt,
	}

	seq := 0
	for i, op := range project.Operations {
		working, err = o.dispatch(ctx, op, working, project, run, runPeriod, dataset.MainTable.Name, &seq, startedAt)
		if err != nil {
			run.Status = model.RunFailed
			o.Store.UpdateRunStatus(ctx, runID, run.Status)
			o.logger().Error("run failed", zap.String("run_id", runID), zap.Int("operation_index", i), zap.String("operation_kind", string(op.Kind)), zap.Error(err))
			return run, nil, Error{OperationIndex: i, Kind: op.Kind, Err: err}
		}
	}

	run.Status = model.RunSucceeded
	o.Store.UpdateRunStatus(ctx, runID, run.Status)
	o.logger().Info("run succeeded", zap.String("run_id", runID))
	return run, working, nil
}

func (o *Orchestrator) loadAndFilter(ctx context.Context, locations []resolver.ResolvedLocation, dataset model.Dataset, runPeriod model.Period, startedAt time.Time) (frame.Frame, error) {
	var frames []frame.Frame
	for _, loc := range locations {
		f, err := o.Loader.Load(ctx, loc, dataset.MainTable)
		if err != nil {
			return nil, fmt.Errorf("run: load %s: %w", dataset.MainTable.Name, err)
		}
		filtered, err := temporal.Apply(f, dataset.MainTable.TemporalMode, runPeriod, startedAt)
		if err != nil {
			return nil, err
		}
		frames = append(frames, filtered)
	}
	if len(frames) == 0 {
		return memframe.New(frame.Schema{}, nil), nil
	}
	head := frames[0]
	if len(frames) > 1 {
		head = head.Concat(frames[1:]...)
	}
	return head, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, op model.Operation, working frame.Frame, project model.Project, run *model.Run, runPeriod model.Period, workingTable string, seq *int, now time.Time) (frame.Frame, error) {
	switch op.Kind {
	case model.OpAppend:
		return o.dispatchAppend(ctx, *op.Append, working, project, run, runPeriod, seq, now)
	case model.OpUpdate:
		return o.dispatchUpdate(ctx, *op.Update, working, project, run, runPeriod, workingTable, now)
	case model.OpAggregate:
		return ops.Aggregate(*op.Aggregate, ops.AggregateInput{
			Working:         working,
			RunTimestamp:    now,
			SourceDatasetID: project.InputDatasetID,
			SourceTable:     workingTable,
		})
	case model.OpOutput:
		return o.dispatchOutput(ctx, *op.Output, working, now)
	}
	return nil, fmt.Errorf("run: unknown operation kind %q", op.Kind)
}

func (o *Orchestrator) dispatchAppend(ctx context.Context, spec model.AppendSpec, working frame.Frame, project model.Project, run *model.Run, runPeriod model.Period, seq *int, now time.Time) (frame.Frame, error) {
	srcDataset, err := o.Store.GetDataset(ctx, spec.Source.DatasetID, spec.Source.Version)
	if err != nil {
		return nil, err
	}
	if err := srcDataset.EnsureSelectable(); err != nil {
		return nil, err
	}

	resolvers, err := o.Store.ListResolvers(ctx)
	if err != nil {
		return nil, err
	}
	lookup := func(id string) (model.Resolver, bool) {
		r, err := o.Store.GetResolver(ctx, id)
		return r, err == nil
	}
	req := resolver.Request{Period: runPeriod, Table: srcDataset.MainTable.Name, DatasetID: srcDataset.ID}
	result, err := resolver.ResolveWithPrecedence(req, &project, &srcDataset, resolvers, lookup, o.Calendar, o.Periods)
	if err != nil {
		return nil, err
	}
	srcFrame, err := o.loadAndFilter(ctx, result.Locations, srcDataset, runPeriod, now)
	if err != nil {
		return nil, err
	}

	*seq++
	return ops.Append(spec, ops.AppendInput{
		Working:         working,
		Source:          srcFrame,
		SourceDatasetID: srcDataset.ID,
		SourceTable:     srcDataset.MainTable.Name,
		RunTimestamp:    now,
		RunID:           run.ID,
		ProjectID:       project.ID,
		OperationSeq:    *seq,
	})
}

func (o *Orchestrator) dispatchUpdate(ctx context.Context, spec model.UpdateSpec, working frame.Frame, project model.Project, run *model.Run, runPeriod model.Period, workingTable string, now time.Time) (frame.Frame, error) {
	aliasColumns := make(map[string]map[string]bool, len(spec.Joins))
	seenAliases := make(map[string]bool)
	workingSchema, err := working.Schema()
	if err != nil {
		return nil, err
	}
	workingColumns := make(map[string]bool, len(workingSchema.Columns))
	for _, c := range workingSchema.Columns {
		workingColumns[c.Name] = true
	}

	resolvers, err := o.Store.ListResolvers(ctx)
	if err != nil {
		return nil, err
	}

	for _, j := range spec.Joins {
		joined, snapshot, err := join.Execute(ctx, j, working, workingColumns, workingTable, seenAliases,
			o.Store, o.Loader, resolvers, &project, o.Calendar, o.Periods, runPeriod, func() (string, error) {
				return now.Format("2006-01-02T15:04:05"), nil
			})
		if err != nil {
			return nil, err
		}
		working = joined
		run.AppendSnapshot(snapshot)

		joinedDataset, dsErr := o.Store.GetDataset(ctx, j.DatasetID, j.DatasetVersion)
		if dsErr == nil {
			cols := make(map[string]bool, len(joinedDataset.MainTable.Columns))
			for _, c := range joinedDataset.MainTable.Columns {
				cols[c.Name] = true
			}
			aliasColumns[j.Alias] = cols
		}

		newSchema, err := working.Schema()
		if err != nil {
			return nil, err
		}
		workingColumns = make(map[string]bool, len(newSchema.Columns))
		for _, c := range newSchema.Columns {
			workingColumns[c.Name] = true
		}
	}

	return ops.Update(spec, ops.UpdateInput{Working: working, AliasColumns: aliasColumns, RunTimestamp: now})
}

func (o *Orchestrator) dispatchOutput(ctx context.Context, spec model.OutputSpec, working frame.Frame, now time.Time) (frame.Frame, error) {
	schema, err := ops.Output(ctx, spec, ops.OutputInput{Working: working, Writer: o.Writer, RunTimestamp: now})
	if err != nil {
		return nil, err
	}
	if spec.RegisterAsDataset != nil {
		if _, err := o.Store.RegisterDataset(ctx, model.Dataset{
			Status:    model.DatasetActive,
			MainTable: schema,
		}); err != nil {
			o.logger().Warn("output registration failed",
				zap.String("dataset_name", spec.RegisterAsDataset.Name),
				zap.String("reason", ops.OutputError{Kind: ops.ErrOutputRegisterFailed, Reason: err.Error()}.Error()))
		}
	}
	return working, nil
}

func versionPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
