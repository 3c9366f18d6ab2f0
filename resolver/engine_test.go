package resolver

import (
	"testing"

	"github.com/tabkit/pipeline/model"
)

func TestResolveNoExpansionRendersTable(t *testing.T) {
	r := model.Resolver{
		ID: "r1",
		Rules: []model.Rule{
			{Name: "default", DataLevel: "any", Strategy: model.Strategy{
				Kind: model.StrategyTable, DatasourceID: "warehouse", Table: "{table_name}_{period_id}",
			}},
		},
	}
	req := Request{Period: model.Period{Identifier: "2026-01", Level: "month"}, Table: "sales", DatasetID: "ds1"}

	result, err := Resolve(req, r, model.Calendar{}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Locations) != 1 {
		t.Fatalf("expected 1 location, got %d", len(result.Locations))
	}
	if result.Locations[0].Table != "sales_2026-01" {
		t.Fatalf("expected rendered table name, got %q", result.Locations[0].Table)
	}
	if result.Diagnostic.Outcome != OutcomeSuccess {
		t.Fatalf("expected success outcome, got %s", result.Diagnostic.Outcome)
	}
}

func TestResolveRuleSelectionStopsAtFirstMatch(t *testing.T) {
	r := model.Resolver{
		ID: "r1",
		Rules: []model.Rule{
			{Name: "monthly", WhenExpression: `data_level = "month"`, DataLevel: "any",
				Strategy: model.Strategy{Kind: model.StrategyTable, Table: "monthly_table"}},
			{Name: "fallback", DataLevel: "any",
				Strategy: model.Strategy{Kind: model.StrategyTable, Table: "fallback_table"}},
		},
	}
	req := Request{Period: model.Period{Identifier: "2026-01", Level: "month"}, Table: "sales", DatasetID: "ds1"}

	result, err := Resolve(req, r, model.Calendar{}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Locations[0].Table != "monthly_table" {
		t.Fatalf("expected first matching rule to win, got %q", result.Locations[0].Table)
	}
	if len(result.Diagnostic.EvaluatedRules) != 2 {
		t.Fatalf("expected both rules recorded, got %+v", result.Diagnostic.EvaluatedRules)
	}
	if !result.Diagnostic.EvaluatedRules[0].Matched {
		t.Fatalf("expected first rule to be marked matched")
	}
	if result.Diagnostic.EvaluatedRules[1].Matched {
		t.Fatalf("expected second rule to be marked unmatched (already resolved)")
	}
}

func TestResolveNoMatchingRuleIsError(t *testing.T) {
	r := model.Resolver{
		ID: "r1",
		Rules: []model.Rule{
			{Name: "monthly", WhenExpression: `data_level = "month"`, DataLevel: "any",
				Strategy: model.Strategy{Kind: model.StrategyTable, Table: "monthly_table"}},
		},
	}
	req := Request{Period: model.Period{Identifier: "2026-Q1", Level: "quarter"}, Table: "sales", DatasetID: "ds1"}

	_, err := Resolve(req, r, model.Calendar{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	rerr, ok := err.(Error)
	if !ok {
		t.Fatalf("expected resolver.Error, got %T", err)
	}
	if rerr.Kind != ErrNoMatchingRule {
		t.Fatalf("expected ErrNoMatchingRule, got %s", rerr.Kind)
	}
}

func TestResolveExpandsAcrossPeriods(t *testing.T) {
	cal := model.Calendar{ID: "fiscal", Levels: []model.Level{
		{Name: "quarter"}, {Name: "month", ParentLevel: "quarter"},
	}}
	periods := []model.Period{
		{Identifier: "2026-Q1", Level: "quarter"},
		{Identifier: "2026-01", ParentID: "2026-Q1", Sequence: 1, Level: "month"},
		{Identifier: "2026-02", ParentID: "2026-Q1", Sequence: 2, Level: "month"},
	}
	r := model.Resolver{
		ID: "r1",
		Rules: []model.Rule{
			{Name: "monthly", DataLevel: "month",
				Strategy: model.Strategy{Kind: model.StrategyTable, Table: "{table_name}_{period_id}"}},
		},
	}
	req := Request{Period: model.Period{Identifier: "2026-Q1", Level: "quarter"}, Table: "sales", DatasetID: "ds1"}

	result, err := Resolve(req, r, cal, periods)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Locations) != 2 {
		t.Fatalf("expected 2 expanded locations, got %d", len(result.Locations))
	}
	if result.Locations[0].Table != "sales_2026-01" || result.Locations[1].Table != "sales_2026-02" {
		t.Fatalf("unexpected rendered tables: %+v", result.Locations)
	}
}

func TestResolveCatalogStrategyPopulatesCatalogResponse(t *testing.T) {
	r := model.Resolver{
		ID: "r1",
		Rules: []model.Rule{
			{Name: "default", DataLevel: "any", Strategy: model.Strategy{
				Kind:     model.StrategyCatalog,
				Endpoint: "https://api.example.com/{table_name}",
				Method:   "POST",
				Auth:     "Bearer token-{period_id}",
				Params:   map[string]any{"period": "{period_id}"},
				Headers:  map[string]any{"X-Dataset": "{dataset_id}"},
			}},
		},
	}
	req := Request{Period: model.Period{Identifier: "2026-01", Level: "month"}, Table: "sales", DatasetID: "ds1"}

	result, err := Resolve(req, r, model.Calendar{}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	loc := result.Locations[0]
	if loc.Path != "https://api.example.com/sales" {
		t.Fatalf("expected rendered endpoint, got %q", loc.Path)
	}
	cr := loc.CatalogResponse
	if cr == nil {
		t.Fatal("expected CatalogResponse to be populated")
	}
	if cr["method"] != "POST" {
		t.Fatalf("expected rendered method, got %v", cr["method"])
	}
	if cr["auth"] != "Bearer token-2026-01" {
		t.Fatalf("expected rendered auth, got %v", cr["auth"])
	}
	params, ok := cr["params"].(map[string]any)
	if !ok || params["period"] != "2026-01" {
		t.Fatalf("expected rendered params, got %v", cr["params"])
	}
	headers, ok := cr["headers"].(map[string]any)
	if !ok || headers["X-Dataset"] != "ds1" {
		t.Fatalf("expected rendered headers, got %v", cr["headers"])
	}
}
