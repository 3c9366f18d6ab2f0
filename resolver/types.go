// Package resolver implements the resolver engine: rule evaluation,
// precedence selection, period expansion dispatch, template rendering, and
// diagnostic capture (§4.3).
package resolver

import "github.com/tabkit/pipeline/model"

// Request is the caller-supplied resolution request.
type Request struct {
	Period    model.Period
	Table     string
	DatasetID model.DatasetID
	Dataset   string // human-readable dataset name, for rule context
}

// Outcome tags the terminal state of a resolution attempt (§4.3 diagnostic).
type Outcome string

const (
	OutcomeSuccess               Outcome = "Success"
	OutcomeNoMatchingRule        Outcome = "NoMatchingRule"
	OutcomePeriodExpansionFailure Outcome = "PeriodExpansionFailure"
	OutcomeTemplateRenderError   Outcome = "TemplateRenderError"
)

// RuleEvaluation is one entry of ResolutionDiagnostic.EvaluatedRules.
type RuleEvaluation struct {
	RuleName             string
	Matched              bool
	Reason               string
	EvaluatedExpression *string
}

// Diagnostic is the structured record captured for every resolve (§4.3).
type Diagnostic struct {
	ResolverID      string
	ResolverSource  model.ResolverSource
	EvaluatedRules []RuleEvaluation
	ExpandedPeriods []string
	Outcome         Outcome
}

// ResolvedLocation is one expanded period's resolved target (§4.3).
type ResolvedLocation struct {
	DatasourceID      string
	Path              string
	Table             string
	Schema            string
	PeriodIdentifier string
	ResolverID        string
	RuleName          string
	CatalogResponse   map[string]any
}

// Result is the successful outcome of a resolve* call: the resolved
// locations for every expanded period plus the diagnostic trail.
type Result struct {
	Locations  []ResolvedLocation
	Diagnostic Diagnostic
}
