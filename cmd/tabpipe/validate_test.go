package main

import (
	"context"
	"testing"

	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/store/memstore"
)

func testDataset() model.Dataset {
	return model.Dataset{
		ID:      "sales",
		Version: 1,
		Status:  model.DatasetActive,
		MainTable: model.TableSchema{
			Name: "sales",
			Columns: []model.ColumnDef{
				{Name: "id", Type: model.ColumnInteger},
				{Name: "amount", Type: model.ColumnDecimal},
				{Name: "region", Type: model.ColumnString},
			},
		},
	}
}

func testProject() model.Project {
	return model.Project{
		ID:             "proj-1",
		InputDatasetID: "sales",
		Operations: []model.Operation{
			{
				Kind: model.OpUpdate,
				Update: &model.UpdateSpec{
					Selector:    `region = "US"`,
					Assignments: []model.Assignment{{Column: "amount", Expression: "amount * 2"}},
				},
			},
			{
				Kind: model.OpAggregate,
				Aggregate: &model.AggregateSpec{
					GroupBy:      []string{"region"},
					Aggregations: []model.AggExpr{{Column: "total", Expression: "SUM(amount)"}},
				},
			},
		},
	}
}

func TestValidateProjectAcceptsWellFormedProject(t *testing.T) {
	st := memstore.New()
	st.Seed([]model.Dataset{testDataset()}, []model.Project{testProject()}, nil)

	errs := validateProject(context.Background(), st, testProject())
	if len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestValidateProjectReportsUnknownColumn(t *testing.T) {
	st := memstore.New()
	st.Seed([]model.Dataset{testDataset()}, nil, nil)

	project := testProject()
	project.Operations[0].Update.Assignments[0].Expression = "missing_column * 2"

	errs := validateProject(context.Background(), st, project)
	if len(errs) == 0 {
		t.Fatal("expected a validation error for the unknown column")
	}
}

func TestValidateProjectReportsUnknownGroupByColumn(t *testing.T) {
	st := memstore.New()
	st.Seed([]model.Dataset{testDataset()}, nil, nil)

	project := testProject()
	project.Operations[1].Aggregate.GroupBy = []string{"missing_region"}

	errs := validateProject(context.Background(), st, project)
	if len(errs) == 0 {
		t.Fatal("expected a validation error for the unknown group_by column")
	}
}

func TestValidateProjectReportsBadResolverRule(t *testing.T) {
	dataset := testDataset()
	dataset.ResolverID = "r1"
	st := memstore.New()
	st.Seed([]model.Dataset{dataset}, nil, []model.Resolver{{
		ID:     "r1",
		Status: model.ResolverActive,
		Rules: []model.Rule{
			{Name: "bad", WhenExpression: "missing_field = 1", DataLevel: "any"},
		},
	}})

	errs := validateProject(context.Background(), st, testProject())
	if len(errs) == 0 {
		t.Fatal("expected a validation error for the resolver rule's when_expression")
	}
}
