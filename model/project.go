package model

// MaterializationMode controls whether a Project's output is persisted
// eagerly or computed at request time. The engine treats both the same way
// internally; it is a hint consumed by the orchestrator's caller.
type MaterializationMode string

const (
	MaterializationEager   MaterializationMode = "eager"
	MaterializationRuntime MaterializationMode = "runtime"
)

// OperationKind tags which operator executes an Operation.
type OperationKind string

const (
	OpAppend    OperationKind = "append"
	OpUpdate    OperationKind = "update"
	OpAggregate OperationKind = "aggregate"
	OpOutput    OperationKind = "output"
)

// Operation is one step of a Project's pipeline. Exactly one of the typed
// spec fields is populated, matching Kind.
type Operation struct {
	Kind      OperationKind
	Append    *AppendSpec
	Update    *UpdateSpec
	Aggregate *AggregateSpec
	Output    *OutputSpec
}

// Project is a versioned, ordered pipeline over a single input dataset.
type Project struct {
	ID                   string
	Version              int
	InputDatasetID       DatasetID
	InputDatasetVersion  int
	Materialization      MaterializationMode
	Operations           []Operation
	Selectors            map[string]string   // name -> expression source
	ResolverOverrides     map[DatasetID]string // dataset id -> resolver id
}

// AppendSpec is the Append operator's input (§4.5).
type AppendSpec struct {
	Source         DatasetRef
	SourceSelector string // optional boolean expression source
	Aggregation    *AggregateSpec
}

// UpdateJoin is one runtime join attached to an Update operation (§4.8).
type UpdateJoin struct {
	Alias          string
	DatasetID      DatasetID
	DatasetVersion *int
	On             string // join-condition expression source
}

// Assignment is one `column = expression` pair in an Update.
type Assignment struct {
	Column     string
	Expression string
}

// UpdateSpec is the Update operator's input (§4.6).
type UpdateSpec struct {
	Selector    string // optional boolean expression source
	Joins       []UpdateJoin
	Assignments []Assignment
}

// AggExpr is one `column = FUNC(...)` aggregation output.
type AggExpr struct {
	Column     string
	Expression string
}

// AggregateSpec is the Aggregate operator's input (§4.7), also reused as the
// optional aggregation step inside AppendSpec.
type AggregateSpec struct {
	GroupBy      []string
	Aggregations []AggExpr
	Selector     string // optional boolean expression source
}

// OutputDestinationKind tags which variant of OutputDestination is set.
type OutputDestinationKind string

const (
	DestinationTable    OutputDestinationKind = "table"
	DestinationLocation OutputDestinationKind = "location"
)

// OutputDestination is the Output operator's write target (§4.9).
type OutputDestination struct {
	Kind         OutputDestinationKind
	DatasourceID string // Table
	Table        string // Table
	Schema       string // Table, optional
	Path         string // Location
}

// RegisterAsDataset requests that a successful write register a new dataset
// version (§4.9 post-write).
type RegisterAsDataset struct {
	Name string
}

// OutputSpec is the Output operator's input (§4.9).
type OutputSpec struct {
	Destination      OutputDestination
	Selector         string // optional boolean expression source
	Columns          []string
	IncludeDeleted   bool
	RegisterAsDataset *RegisterAsDataset
}
