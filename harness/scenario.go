// Package harness parses and executes scenario fixtures end to end against
// the in-memory reference backends (memstore, memloader, memframe), the way
// the teacher's testutil package drives a Database implementation through a
// declarative test case (grounded on testutil's scenario runner and the
// original implementation's comparator; see SPEC_FULL.md §6).
package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/util"
)

// ColumnFixture declares one column of a fixture table.
type ColumnFixture struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// DatasetFixture seeds one dataset version and its row data.
type DatasetFixture struct {
	ID             string            `yaml:"id"`
	Status         string            `yaml:"status"`
	ResolverID     string            `yaml:"resolver_id"`
	TableName      string            `yaml:"table_name"`
	TemporalMode   string            `yaml:"temporal_mode"`
	Columns        []ColumnFixture   `yaml:"columns"`
	NaturalKeyCols []string          `yaml:"natural_key_columns"`
	DatasourceID   string            `yaml:"datasource_id"`
	Rows           []map[string]any `yaml:"rows"`
}

// ResolverFixture seeds one resolver definition.
type ResolverFixture struct {
	ID        string            `yaml:"id"`
	Status    string            `yaml:"status"`
	IsDefault bool              `yaml:"is_default"`
	Rules     []RuleFixture     `yaml:"rules"`
}

// RuleFixture is one resolver rule.
type RuleFixture struct {
	Name           string `yaml:"name"`
	WhenExpression string `yaml:"when"`
	DataLevel      string `yaml:"data_level"`
	StrategyKind   string `yaml:"strategy_kind"`
	DatasourceID   string `yaml:"datasource_id"`
}

// CalendarFixture seeds the calendar hierarchy and period instances.
type CalendarFixture struct {
	ID      string           `yaml:"id"`
	Levels  []LevelFixture   `yaml:"levels"`
	Periods []PeriodFixture  `yaml:"periods"`
}

type LevelFixture struct {
	Name              string `yaml:"name"`
	ParentLevel       string `yaml:"parent_level"`
	IdentifierPattern string `yaml:"identifier_pattern"`
}

type PeriodFixture struct {
	Identifier string `yaml:"identifier"`
	ParentID   string `yaml:"parent_id"`
	Sequence   int    `yaml:"sequence"`
	Level      string `yaml:"level"`
}

// ProjectFixture declares the project under test, reusing model.Project
// directly since its fields are already YAML-unmarshalable primitives.
type ProjectFixture struct {
	ID                  string                 `yaml:"id"`
	InputDatasetID      string                 `yaml:"input_dataset_id"`
	InputDatasetVersion int                    `yaml:"input_dataset_version"`
	Operations          []model.Operation      `yaml:"operations"`
	Selectors           map[string]string      `yaml:"selectors"`
	ResolverOverrides    map[string]string      `yaml:"resolver_overrides"`
}

// Expected is the scenario's expected outcome.
type Expected struct {
	Rows      []map[string]any `yaml:"rows"`
	MatchMode string           `yaml:"match_mode"` // "exact" or "subset"
	ErrorTag  string           `yaml:"error_tag"`  // non-empty means the run must fail with this errtax.Tag
}

// Scenario is one complete, self-contained test fixture.
type Scenario struct {
	Name          string            `yaml:"name"`
	Datasets      []DatasetFixture  `yaml:"datasets"`
	Resolvers     []ResolverFixture `yaml:"resolvers"`
	Calendar      CalendarFixture   `yaml:"calendar"`
	Project       ProjectFixture    `yaml:"project"`
	RequestPeriod string            `yaml:"request_period"`
	Expected      Expected          `yaml:"expected"`
}

// LoadScenario reads and parses one scenario YAML file.
func LoadScenario(path string) (Scenario, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("harness: read %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return Scenario{}, fmt.Errorf("harness: parse %s: %w", path, err)
	}
	return s, nil
}

func columnType(name string) model.ColumnType {
	switch name {
	case "integer":
		return model.ColumnInteger
	case "decimal":
		return model.ColumnDecimal
	case "boolean":
		return model.ColumnBoolean
	case "date":
		return model.ColumnDate
	case "datetime":
		return model.ColumnDatetime
	case "string", "":
		return model.ColumnString
	default:
		return model.ColumnUnsupported
	}
}

func (f DatasetFixture) schema() model.TableSchema {
	cols := util.TransformSlice(f.Columns, func(c ColumnFixture) model.ColumnDef {
		return model.ColumnDef{Name: c.Name, Type: columnType(c.Type), Nullable: c.Nullable}
	})
	mode := model.TemporalSnapshot
	switch f.TemporalMode {
	case "period":
		mode = model.TemporalPeriod
	case "bitemporal":
		mode = model.TemporalBitemporal
	}
	return model.TableSchema{Name: f.TableName, TemporalMode: mode, Columns: cols}
}

func (f DatasetFixture) toDataset() model.Dataset {
	status := model.DatasetActive
	if f.Status == "disabled" {
		status = model.DatasetDisabled
	}
	return model.Dataset{
		ID:             model.DatasetID(f.ID),
		Status:         status,
		ResolverID:     f.ResolverID,
		MainTable:      f.schema(),
		NaturalKeyCols: f.NaturalKeyCols,
	}
}

func (f DatasetFixture) toRows() []frame.Row {
	rows := make([]frame.Row, len(f.Rows))
	for i, r := range f.Rows {
		row := make(frame.Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		rows[i] = row
	}
	return rows
}

func (f ResolverFixture) toResolver() model.Resolver {
	status := model.ResolverActive
	if f.Status == "disabled" {
		status = model.ResolverDisabled
	}
	rules := make([]model.Rule, len(f.Rules))
	for i, r := range f.Rules {
		kind := model.StrategyTable
		switch r.StrategyKind {
		case "path":
			kind = model.StrategyPath
		case "catalog":
			kind = model.StrategyCatalog
		}
		rules[i] = model.Rule{
			Name: r.Name, WhenExpression: r.WhenExpression, DataLevel: r.DataLevel,
			Strategy: model.Strategy{Kind: kind, DatasourceID: r.DatasourceID, Table: "{table_name}"},
		}
	}
	return model.Resolver{ID: f.ID, Status: status, IsDefault: f.IsDefault, Rules: rules}
}

func (f CalendarFixture) toCalendar() (model.Calendar, []model.Period) {
	levels := util.TransformSlice(f.Levels, func(l LevelFixture) model.Level {
		return model.Level{Name: l.Name, ParentLevel: l.ParentLevel, IdentifierPattern: l.IdentifierPattern}
	})
	periods := util.TransformSlice(f.Periods, func(p PeriodFixture) model.Period {
		return model.Period{Identifier: p.Identifier, ParentID: p.ParentID, Sequence: p.Sequence, Level: p.Level}
	})
	return model.Calendar{ID: f.ID, Levels: levels}, periods
}

func findPeriod(periods []model.Period, identifier string) (model.Period, bool) {
	for _, p := range periods {
		if p.Identifier == identifier {
			return p, true
		}
	}
	return model.Period{}, false
}
