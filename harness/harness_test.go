package harness

import (
	"context"
	"testing"
)

func baseScenario() Scenario {
	return Scenario{
		Name: "sales passthrough",
		Datasets: []DatasetFixture{
			{
				ID: "sales", Status: "active", ResolverID: "r1",
				TableName: "sales", TemporalMode: "",
				DatasourceID: "warehouse",
				Columns: []ColumnFixture{
					{Name: "id", Type: "integer"},
					{Name: "amount", Type: "integer"},
				},
				Rows: []map[string]any{
					{"id": 1, "amount": 10},
					{"id": 2, "amount": 20},
				},
			},
		},
		Resolvers: []ResolverFixture{
			{
				ID: "r1", Status: "active",
				Rules: []RuleFixture{
					{Name: "default", DataLevel: "any", DatasourceID: "warehouse"},
				},
			},
		},
		Calendar: CalendarFixture{
			ID:     "fiscal",
			Levels: []LevelFixture{{Name: "month"}},
			Periods: []PeriodFixture{
				{Identifier: "2026-01", Level: "month"},
			},
		},
		Project: ProjectFixture{
			ID:             "proj-1",
			InputDatasetID: "sales",
		},
		RequestPeriod: "2026-01",
		Expected: Expected{
			Rows: []map[string]any{
				{"id": 1, "amount": 10},
				{"id": 2, "amount": 20},
			},
			MatchMode: "exact",
		},
	}
}

func TestRunPassthroughScenarioMatchesExpectedRows(t *testing.T) {
	outcome, err := Run(context.Background(), baseScenario())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Err != nil {
		t.Fatalf("unexpected run failure: %v (tag=%s)", outcome.Err, outcome.Tag)
	}
	if !outcome.Passed {
		t.Fatalf("expected scenario to pass, mismatches: %+v", outcome.Mismatches)
	}
}

func TestRunDetectsRowMismatch(t *testing.T) {
	s := baseScenario()
	s.Expected.Rows = []map[string]any{{"id": 1, "amount": 999}}
	s.Expected.MatchMode = "subset"

	outcome, err := Run(context.Background(), s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Passed {
		t.Fatal("expected scenario to fail on mismatched amount")
	}
	foundMissing := false
	for _, m := range outcome.Mismatches {
		if m.Kind == MismatchMissing {
			foundMissing = true
		}
	}
	if !foundMissing {
		t.Fatalf("expected a RowMissing mismatch, got %+v", outcome.Mismatches)
	}
}
