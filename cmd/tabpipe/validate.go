package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabkit/pipeline/expr"
	"github.com/tabkit/pipeline/expr/joincond"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/store"
)

// validateProject compiles every expression a Project references -
// selectors, assignments, aggregations, join conditions, and the
// when_expression of whichever resolver rules apply to its input dataset -
// without loading any rows or writing any output. It returns every compile
// failure it finds; unlike Execute, it does not stop at the first error so
// the caller can see everything wrong with the project at once.
func validateProject(ctx context.Context, st store.Store, project model.Project) []error {
	var version *int
	if project.InputDatasetVersion != 0 {
		version = &project.InputDatasetVersion
	}
	dataset, err := st.GetDataset(ctx, project.InputDatasetID, version)
	if err != nil {
		return []error{fmt.Errorf("load input dataset %s: %w", project.InputDatasetID, err)}
	}

	declared := declaredColumns(dataset.MainTable)
	var errs []error

	for name, src := range project.Selectors {
		if _, err := compileBool(src, declared); err != nil {
			errs = append(errs, fmt.Errorf("selector %q: %w", name, err))
		}
	}

	for i, op := range project.Operations {
		switch op.Kind {
		case model.OpAppend:
			if op.Append == nil {
				continue
			}
			if op.Append.SourceSelector != "" {
				if _, err := compileBool(op.Append.SourceSelector, declared); err != nil {
					errs = append(errs, fmt.Errorf("operation %d append source_selector: %w", i, err))
				}
			}
			if op.Append.Aggregation != nil {
				errs = append(errs, validateAggregate(*op.Append.Aggregation, declared, fmt.Sprintf("operation %d append aggregation", i))...)
			}
		case model.OpUpdate:
			if op.Update == nil {
				continue
			}
			errs = append(errs, validateUpdate(*op.Update, declared, i)...)
		case model.OpAggregate:
			if op.Aggregate == nil {
				continue
			}
			errs = append(errs, validateAggregate(*op.Aggregate, declared, fmt.Sprintf("operation %d aggregate", i))...)
		case model.OpOutput:
			if op.Output == nil {
				continue
			}
			if op.Output.Selector != "" {
				if _, err := compileBool(op.Output.Selector, declared); err != nil {
					errs = append(errs, fmt.Errorf("operation %d output selector: %w", i, err))
				}
			}
		default:
			errs = append(errs, fmt.Errorf("operation %d: unknown operation kind %q", i, op.Kind))
		}
	}

	resolverID := dataset.ResolverID
	if override, ok := project.ResolverOverrides[project.InputDatasetID]; ok {
		resolverID = override
	}
	if resolverID != "" {
		res, err := st.GetResolver(ctx, resolverID)
		if err != nil {
			errs = append(errs, fmt.Errorf("load resolver %s: %w", resolverID, err))
		} else {
			errs = append(errs, validateResolverRules(res)...)
		}
	}

	return errs
}

func validateUpdate(spec model.UpdateSpec, declared map[string]model.ColumnType, opIndex int) []error {
	var errs []error
	if spec.Selector != "" {
		if _, err := compileBool(spec.Selector, declared); err != nil {
			errs = append(errs, fmt.Errorf("operation %d update selector: %w", opIndex, err))
		}
	}
	for _, j := range spec.Joins {
		if _, err := joincond.Parse(j.On); err != nil {
			errs = append(errs, fmt.Errorf("operation %d update join %q: %w", opIndex, j.Alias, err))
		}
	}
	for _, a := range spec.Assignments {
		if _, err := compileValue(a.Expression, declared); err != nil {
			errs = append(errs, fmt.Errorf("operation %d update assignment %s: %w", opIndex, a.Column, err))
		}
	}
	return errs
}

func validateAggregate(spec model.AggregateSpec, declared map[string]model.ColumnType, label string) []error {
	var errs []error
	if spec.Selector != "" {
		if _, err := compileBool(spec.Selector, declared); err != nil {
			errs = append(errs, fmt.Errorf("%s selector: %w", label, err))
		}
	}
	for _, col := range spec.GroupBy {
		if _, ok := declared[col]; !ok {
			errs = append(errs, fmt.Errorf("%s group_by: unknown column %q", label, col))
		}
	}
	for _, a := range spec.Aggregations {
		if _, _, err := expr.ParseAggregateExpr(a.Expression); err != nil {
			errs = append(errs, fmt.Errorf("%s aggregation %s: %w", label, a.Column, err))
		}
	}
	return errs
}

func validateResolverRules(res model.Resolver) []error {
	var errs []error
	ctx := expr.Context{
		DeclaredColumns: map[string]model.ColumnType{
			"period": model.ColumnString, "table": model.ColumnString,
			"dataset": model.ColumnString, "data_level": model.ColumnString,
		},
	}
	for _, rule := range res.Rules {
		if rule.WhenExpression == "" {
			continue
		}
		if _, err := compileWith(rule.WhenExpression, ctx); err != nil {
			errs = append(errs, fmt.Errorf("resolver %s rule %q when_expression: %w", res.ID, rule.Name, err))
		}
	}
	return errs
}

func declaredColumns(schema model.TableSchema) map[string]model.ColumnType {
	cols := make(map[string]model.ColumnType, len(schema.Columns))
	for _, c := range schema.Columns {
		cols[c.Name] = c.Type
	}
	return cols
}

func compileBool(src string, declared map[string]model.ColumnType) (any, error) {
	return compileWith(src, expr.Context{DeclaredColumns: declared})
}

func compileValue(src string, declared map[string]model.ColumnType) (any, error) {
	return compileWith(src, expr.Context{DeclaredColumns: declared, AllowAggregates: true})
}

func compileWith(src string, ctx expr.Context) (any, error) {
	n, err := expr.Parse(src)
	if err != nil {
		return nil, err
	}
	compiled, err := expr.Compile(n, ctx)
	if err != nil {
		return nil, err
	}
	return compiled, nil
}

// runValidate loads the configured project and compiles it without
// executing a run, printing every error it finds to stderr.
func runValidate(ctx context.Context, logger *zap.Logger, st store.Store, projectID string) bool {
	project, err := st.GetProject(ctx, projectID)
	if err != nil {
		logger.Error("load project", zap.String("project_id", projectID), zap.Error(err))
		return false
	}
	errs := validateProject(ctx, st, project)
	for _, e := range errs {
		logger.Error("validation failed", zap.String("project_id", projectID), zap.Error(e))
	}
	if len(errs) == 0 {
		logger.Info("project validated", zap.String("project_id", projectID), zap.Int("operations", len(project.Operations)))
	}
	return len(errs) == 0
}
