// Package frame defines the lazy column-algebra backend contract the engine
// programs against (spec §6, design note in §9). The core never depends on
// a concrete backend; it sequences Frame operations and only forces
// evaluation at a Collect boundary, the way the teacher's schema package
// builds a DDL plan before ever touching a live database connection.
package frame

import (
	"fmt"

	"github.com/tabkit/pipeline/model"
)

// Value is a single cell value. nil represents SQL-style NULL.
type Value any

// Row is a materialized row, keyed by column name.
type Row map[string]Value

// Column describes one column of a Schema.
type Column struct {
	Name     string
	Type     model.ColumnType
	Nullable bool
}

// Schema is an ordered column list, mirroring model.TableSchema but scoped
// to what a Frame carries at a given point in the pipeline (it may include
// system columns the dataset schema does not declare).
type Schema struct {
	Columns []Column
}

// Names returns column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Has reports whether a column exists.
func (s Schema) Has(name string) bool {
	_, ok := s.Column(name)
	return ok
}

// Column looks up a column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// With returns a copy of the schema with col appended or replacing an
// existing column of the same name.
func (s Schema) With(col Column) Schema {
	out := make([]Column, 0, len(s.Columns)+1)
	replaced := false
	for _, c := range s.Columns {
		if c.Name == col.Name {
			out = append(out, col)
			replaced = true
			continue
		}
		out = append(out, c)
	}
	if !replaced {
		out = append(out, col)
	}
	return Schema{Columns: out}
}

// Without returns a copy of the schema with the named column removed.
func (s Schema) Without(name string) Schema {
	out := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return Schema{Columns: out}
}

// AggKind enumerates the aggregation functions the backend must support,
// matching the expression sublanguage's aggregate functions (§4.1).
type AggKind string

const (
	AggSum      AggKind = "sum"
	AggCount    AggKind = "count"
	AggCountAll AggKind = "count_all"
	AggAvg      AggKind = "avg"
	AggMin      AggKind = "min"
	AggMax      AggKind = "max"
)

// AggExpr is one `output_name = FUNC(input_column)` aggregation request;
// Input is empty for AggCountAll.
type AggExpr struct {
	Output string
	Kind   AggKind
	Input  string
	Type   model.ColumnType
}

// Expr is a compiled, backend-evaluable row expression. The expr package
// compiles the sublanguage AST down to this interface; Frame implementations
// only need to know how to Eval it per row (or vectorize internally).
type Expr interface {
	// Eval computes the expression's value for one row given the current
	// schema-qualified row contents.
	Eval(row Row) (Value, error)
	// ResultType returns the statically-known result type, if the compiler
	// could determine one ("" if unknown/dynamic).
	ResultType() model.ColumnType
}

// Frame is a lazy, immutable tabular value. Every method returns a new
// Frame; nothing is mutated in place, and nothing is evaluated until
// Collect (or Schema, which implementations may need to partially evaluate
// to resolve inferred types, but must not do so eagerly for row data).
type Frame interface {
	Schema() (Schema, error)
	Filter(pred Expr) Frame
	Select(columns ...string) Frame
	WithColumns(cols map[string]Expr) Frame
	// Join performs a left join against other on key pairs (left column name
	// -> right column name), per the runtime join compiler (§4.8).
	Join(other Frame, keys []KeyPair) Frame
	// GroupByAgg groups by the named columns and computes aggregations
	// (§4.7 step 3).
	GroupByAgg(groupBy []string, aggs []AggExpr) Frame
	// Concat vertically stacks this frame with others; all must share the
	// same column set (callers are responsible for prior schema alignment).
	Concat(others ...Frame) Frame
	// Rename returns a frame with columns renamed per the given map.
	Rename(mapping map[string]string) Frame
	Collect() ([]Row, error)
}

// KeyPair is one equality join key (left column name, right column name).
type KeyPair struct {
	Left  string
	Right string
}

// ErrMissingColumn is returned by backends when an operation references a
// column absent from the frame's schema.
type ErrMissingColumn struct {
	Column string
}

func (e ErrMissingColumn) Error() string {
	return fmt.Sprintf("column not found: %s", e.Column)
}
