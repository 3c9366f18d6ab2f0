package model

import "time"

// RunStatus is the Run status machine (§3): Queued -> Running -> {Succeeded, Failed}.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// ResolverSource tags which precedence tier selected a resolver (§4.3).
type ResolverSource string

const (
	SourceProjectOverride ResolverSource = "project_override"
	SourceDatasetReference ResolverSource = "dataset_reference"
	SourceSystemDefault   ResolverSource = "system_default"
)

// ProjectSnapshot freezes the dataset/resolver versions a Run observed at
// start, so later reads (e.g. for lineage display) are stable.
type ProjectSnapshot struct {
	ProjectID           string
	ProjectVersion      int
	InputDatasetVersion int
	ResolverVersions    map[string]int
}

// JoinDatasetSnapshot records one successful runtime join for lineage (§4.8).
type JoinDatasetSnapshot struct {
	Alias          string
	DatasetID      DatasetID
	DatasetVersion int
	ResolverSource ResolverSource
}

// Run is created per execution of a Project.
type Run struct {
	ID               string
	ProjectSnapshot  ProjectSnapshot
	PeriodIDs        []string
	Status           RunStatus
	StartedAt        time.Time
	ResolverSnapshots []JoinDatasetSnapshot
}

// AppendSnapshot appends one join's lineage record to the run.
func (r *Run) AppendSnapshot(s JoinDatasetSnapshot) {
	r.ResolverSnapshots = append(r.ResolverSnapshots, s)
}

// SystemColumn names, reserved across every operator (§3). These MUST NOT be
// assignment targets in user operations.
const (
	ColRowID             = "_row_id"
	ColDeleted           = "_deleted"
	ColCreatedAt         = "_created_at"
	ColUpdatedAt         = "_updated_at"
	ColSourceDatasetID   = "_source_dataset_id"
	ColSourceTable       = "_source_table"
	ColOperationSeq      = "_operation_seq"
	ColPeriod            = "_period"
	ColPeriodFrom        = "_period_from"
	ColPeriodTo          = "_period_to"
	ColLabels            = "_labels"
	ColValidFrom         = "_valid_from"
	ColValidTo           = "_valid_to"
	ColCreatedByProject  = "_created_by_project_id"
	ColCreatedByRun      = "_created_by_run_id"
)

// ReservedUpdateTargets is the set of system columns an Update's assignments
// must never target (§4.6 step 1).
var ReservedUpdateTargets = map[string]bool{
	ColRowID:            true,
	ColSourceDatasetID:  true,
	ColSourceTable:      true,
	ColCreatedAt:        true,
	ColUpdatedAt:        true,
	ColDeleted:          true,
	ColLabels:           true,
	ColPeriod:           true,
	ColPeriodFrom:       true,
	ColPeriodTo:         true,
	ColValidFrom:        true,
	ColValidTo:          true,
	ColCreatedByProject: true,
	ColCreatedByRun:     true,
}

// IsSystemColumn reports whether name starts with an underscore, the prefix
// every reserved system column uses; it does not check name against the
// reserved list itself. The aggregate operator's null-fill pass uses it.
func IsSystemColumn(name string) bool {
	return len(name) > 0 && name[0] == '_'
}
