package model

// ResolverStatus mirrors DatasetStatus for resolvers (§4.3 precedence only
// considers Active resolvers).
type ResolverStatus string

const (
	ResolverActive   ResolverStatus = "active"
	ResolverDisabled ResolverStatus = "disabled"
)

// StrategyKind tags which variant of Strategy is populated.
type StrategyKind string

const (
	StrategyPath    StrategyKind = "path"
	StrategyTable   StrategyKind = "table"
	StrategyCatalog StrategyKind = "catalog"
)

// Strategy is a Rule's resolution target (§3).
type Strategy struct {
	Kind StrategyKind

	// Path
	DatasourceID string
	Path         string

	// Table (reuses DatasourceID above)
	Table  string
	Schema string

	// Catalog
	Endpoint string
	Method   string
	Auth     string
	Params   map[string]any
	Headers  map[string]any
}

// Rule is one entry of a Resolver (§3).
type Rule struct {
	Name           string
	WhenExpression string // optional boolean expression source
	DataLevel      string // "any" means "do not expand"
	Strategy       Strategy
}

// Resolver is an ordered list of Rules (§3).
type Resolver struct {
	ID        string
	Status    ResolverStatus
	IsDefault bool
	Rules     []Rule
}
