// Package model holds the pipeline engine's data model: datasets, projects,
// calendars, periods, resolvers, and runs. These types are read-only views
// handed to the engine by a Store implementation (see package store); the
// engine never mutates them in place.
package model

import "fmt"

// DatasetStatus is the lifecycle state of a Dataset.
type DatasetStatus string

const (
	DatasetActive   DatasetStatus = "active"
	DatasetDisabled DatasetStatus = "disabled"
)

// TemporalMode selects which system columns a table's temporal filter uses.
type TemporalMode string

const (
	TemporalSnapshot   TemporalMode = "snapshot"
	TemporalPeriod     TemporalMode = "period"
	TemporalBitemporal TemporalMode = "bitemporal"
)

// ColumnType is the engine's portable column type tag (§4.9 schema
// extraction maps column-algebra dtypes onto this set).
type ColumnType string

const (
	ColumnString      ColumnType = "string"
	ColumnInteger     ColumnType = "integer"
	ColumnDecimal     ColumnType = "decimal"
	ColumnBoolean     ColumnType = "boolean"
	ColumnDate        ColumnType = "date"
	ColumnDatetime    ColumnType = "datetime"
	ColumnUnsupported ColumnType = "unsupported"
)

// ColumnDef is one ordered column in a table schema.
type ColumnDef struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// TableSchema describes a dataset's main table or a named lookup.
type TableSchema struct {
	Name         string
	TemporalMode TemporalMode // empty means TemporalSnapshot
	Columns      []ColumnDef
}

// ColumnNames returns the schema's column names in declared order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column definition by name.
func (s TableSchema) Column(name string) (ColumnDef, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// DatasetID identifies a dataset independent of version.
type DatasetID string

// Dataset is a versioned, schema-bearing data asset.
type Dataset struct {
	ID             DatasetID
	Version        int
	Status         DatasetStatus
	ResolverID     string // optional; empty means "no dataset-level resolver"
	MainTable      TableSchema
	Lookups        map[string]TableSchema // named join targets
	NaturalKeyCols []string
}

// EnsureSelectable returns an error if the dataset must not be selected as a
// join/source target (§3 invariant: disabled datasets are a hard error).
func (d Dataset) EnsureSelectable() error {
	if d.Status == DatasetDisabled {
		return fmt.Errorf("dataset %s version %d is disabled and cannot be selected", d.ID, d.Version)
	}
	return nil
}

// DatasetRef pins a dataset by id and an optional version (nil means
// "latest active").
type DatasetRef struct {
	DatasetID DatasetID
	Version   *int
}
