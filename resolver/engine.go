package resolver

import (
	"fmt"

	"github.com/tabkit/pipeline/calendar"
	"github.com/tabkit/pipeline/expr"
	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

// Resolve is the contract-compatible entry point with an implicit
// dataset-reference source (§4.3).
func Resolve(request Request, r model.Resolver, cal model.Calendar, periods []model.Period) (Result, error) {
	return ResolveWithSource(request, r, cal, periods, model.SourceDatasetReference)
}

// ResolveWithSource lets the caller supply the resolver source tag used for
// lineage (§4.3).
func ResolveWithSource(request Request, r model.Resolver, cal model.Calendar, periods []model.Period, source model.ResolverSource) (Result, error) {
	diag := Diagnostic{ResolverID: r.ID, ResolverSource: source}

	rule, err := selectRule(request, r.Rules, &diag)
	if err != nil {
		return Result{}, err
	}

	expanded, err := calendar.Expand(request.Period, cal, periods, rule.DataLevel)
	if err != nil {
		diag.Outcome = OutcomePeriodExpansionFailure
		return Result{}, Error{Kind: ErrPeriodExpansionFailed, Reason: err.Error(), Diagnostic: &diag}
	}

	locations := make([]ResolvedLocation, 0, len(expanded))
	identifiers := make([]string, 0, len(expanded))
	for _, p := range expanded {
		loc, err := renderLocation(*rule, request, p, r.ID)
		if err != nil {
			diag.Outcome = OutcomeTemplateRenderError
			return Result{}, Error{Kind: ErrTemplateRenderFailed, Reason: err.Error(), Diagnostic: &diag}
		}
		locations = append(locations, loc)
		identifiers = append(identifiers, p.Identifier)
	}

	diag.ExpandedPeriods = identifiers
	diag.Outcome = OutcomeSuccess
	return Result{Locations: locations, Diagnostic: diag}, nil
}

// selectRule evaluates rules in declaration order (§4.3 "Rule selection"),
// recording a RuleEvaluation per rule, and returns the first match.
func selectRule(request Request, rules []model.Rule, diag *Diagnostic) (*model.Rule, error) {
	matchedIdx := -1
	for i, rule := range rules {
		if matchedIdx >= 0 {
			diag.EvaluatedRules = append(diag.EvaluatedRules, RuleEvaluation{
				RuleName: rule.Name, Matched: false, Reason: "earlier rule already matched",
			})
			continue
		}
		if rule.WhenExpression == "" {
			diag.EvaluatedRules = append(diag.EvaluatedRules, RuleEvaluation{
				RuleName: rule.Name, Matched: true, Reason: "no when_expression",
			})
			matchedIdx = i
			continue
		}
		source := rule.WhenExpression
		ok, err := evalWhenExpression(source, request, rule.DataLevel)
		if err != nil {
			return nil, Error{Kind: ErrInvalidExpression, RuleName: rule.Name, Reason: err.Error()}
		}
		reason := "did not match"
		if ok {
			reason = "matched when_expression"
			matchedIdx = i
		}
		evaluated := source
		diag.EvaluatedRules = append(diag.EvaluatedRules, RuleEvaluation{
			RuleName: rule.Name, Matched: ok, Reason: reason, EvaluatedExpression: &evaluated,
		})
	}
	if matchedIdx < 0 {
		diag.Outcome = OutcomeNoMatchingRule
		return nil, Error{Kind: ErrNoMatchingRule, Diagnostic: diag}
	}
	return &rules[matchedIdx], nil
}

func evalWhenExpression(source string, request Request, dataLevel string) (bool, error) {
	n, err := expr.Parse(source)
	if err != nil {
		return false, err
	}
	ctx := expr.Context{
		DeclaredColumns: map[string]model.ColumnType{
			"period": model.ColumnString, "table": model.ColumnString,
			"dataset": model.ColumnString, "data_level": model.ColumnString,
		},
	}
	compiled, err := expr.Compile(n, ctx)
	if err != nil {
		return false, err
	}
	row := frame.Row{
		"period": request.Period.Identifier, "table": request.Table,
		"dataset": string(request.DatasetID), "data_level": dataLevel,
	}
	v, err := compiled.Eval(row)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("when_expression did not evaluate to a boolean")
	}
	return b, nil
}

func renderLocation(rule model.Rule, request Request, period model.Period, resolverID string) (ResolvedLocation, error) {
	ctx := templateContext{
		PeriodID: period.Identifier, PeriodName: period.Identifier,
		TableName: request.Table, DatasetID: string(request.DatasetID),
		DatasourceID: rule.Strategy.DatasourceID,
	}
	loc := ResolvedLocation{
		PeriodIdentifier: period.Identifier, ResolverID: resolverID, RuleName: rule.Name,
		DatasourceID: rule.Strategy.DatasourceID,
	}
	switch rule.Strategy.Kind {
	case model.StrategyPath:
		p, err := renderEncoded(rule.Strategy.Path, ctx)
		if err != nil {
			return ResolvedLocation{}, err
		}
		loc.Path = p
	case model.StrategyTable:
		t, err := renderPlain(rule.Strategy.Table, ctx)
		if err != nil {
			return ResolvedLocation{}, err
		}
		loc.Table = t
		if rule.Strategy.Schema != "" {
			s, err := renderPlain(rule.Strategy.Schema, ctx)
			if err != nil {
				return ResolvedLocation{}, err
			}
			loc.Schema = s
		}
	case model.StrategyCatalog:
		ep, err := renderEncoded(rule.Strategy.Endpoint, ctx)
		if err != nil {
			return ResolvedLocation{}, err
		}
		loc.Path = ep
		method, err := renderEncoded(rule.Strategy.Method, ctx)
		if err != nil {
			return ResolvedLocation{}, err
		}
		response := map[string]any{"method": method}
		if rule.Strategy.Auth != "" {
			auth, err := renderEncoded(rule.Strategy.Auth, ctx)
			if err != nil {
				return ResolvedLocation{}, err
			}
			response["auth"] = auth
		}
		if rule.Strategy.Params != nil {
			params, err := renderJSONValue(mapToAny(rule.Strategy.Params), ctx)
			if err != nil {
				return ResolvedLocation{}, err
			}
			response["params"] = params
		}
		if rule.Strategy.Headers != nil {
			headers, err := renderJSONValue(mapToAny(rule.Strategy.Headers), ctx)
			if err != nil {
				return ResolvedLocation{}, err
			}
			response["headers"] = headers
		}
		loc.CatalogResponse = response
	}
	return loc, nil
}

func mapToAny(m map[string]any) any { return m }
