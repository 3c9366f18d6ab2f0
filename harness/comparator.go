package harness

import (
	"fmt"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/util"
)

// MismatchKind classifies why a scenario's actual outcome diverged from its
// expectation, mirroring the original implementation's comparator result
// variants (data/trace/schema).
type MismatchKind string

const (
	MismatchData    MismatchKind = "DataMismatch"
	MismatchTrace   MismatchKind = "TraceMismatch"
	MismatchSchema  MismatchKind = "SchemaMismatch"
	MismatchMissing MismatchKind = "RowMissing"
	MismatchExtra   MismatchKind = "RowExtra"
)

// Mismatch is one discrepancy found by Compare.
type Mismatch struct {
	Kind    MismatchKind
	Detail  string
}

func (m Mismatch) String() string { return fmt.Sprintf("%s: %s", m.Kind, m.Detail) }

// MatchMode selects whether expected rows must equal the actual rowset
// exactly, or merely be present within it (subset).
type MatchMode string

const (
	MatchExact  MatchMode = "exact"
	MatchSubset MatchMode = "subset"
)

// Compare checks got (the run's actual output rows) against want under mode,
// returning every mismatch found (empty means the scenario passed).
func Compare(got frame.Frame, want []map[string]any, mode MatchMode) ([]Mismatch, error) {
	if mode == "" {
		mode = MatchExact
	}
	schema, err := got.Schema()
	if err != nil {
		return nil, err
	}
	gotRows, err := got.Collect()
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	for _, w := range want {
		if !containsRow(gotRows, w) {
			mismatches = append(mismatches, Mismatch{Kind: MismatchMissing, Detail: fmt.Sprintf("expected row not found: %v", w)})
		}
	}
	if mode == MatchExact {
		for _, g := range gotRows {
			if !containsRow(rowsOf(want), rowOf(g, schema)) {
				mismatches = append(mismatches, Mismatch{Kind: MismatchExtra, Detail: fmt.Sprintf("unexpected row present: %v", g)})
			}
		}
	}
	return mismatches, nil
}

func rowOf(r frame.Row, schema frame.Schema) map[string]any {
	m := make(map[string]any, len(schema.Columns))
	for _, c := range schema.Columns {
		m[c.Name] = r[c.Name]
	}
	return m
}

func rowsOf(want []map[string]any) []frame.Row {
	rows := make([]frame.Row, len(want))
	for i, w := range want {
		row := make(frame.Row, len(w))
		for k, v := range w {
			row[k] = v
		}
		rows[i] = row
	}
	return rows
}

func containsRow(rows []frame.Row, want map[string]any) bool {
	for _, r := range rows {
		if rowMatches(r, want) {
			return true
		}
	}
	return false
}

// rowMatches reports whether every field named in want equals the
// corresponding field of r (a subset comparison at the field level; callers
// needing exact-row comparison pass a want map with every column present).
func rowMatches(r frame.Row, want map[string]any) bool {
	for k, wv := range want {
		if !valueEqual(r[k], wv) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case int:
		bf, ok := toFloat(b)
		return ok && float64(av) == bf
	case int64:
		bf, ok := toFloat(b)
		return ok && float64(av) == bf
	case float64:
		bf, ok := toFloat(b)
		return ok && av == bf
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// SchemaDiff reports column-level differences between an actual and an
// expected schema, used to raise a SchemaMismatch before a data comparison
// is even attempted.
func SchemaDiff(got, want frame.Schema) []Mismatch {
	var mismatches []Mismatch
	gotNames := make(map[string]frame.Column, len(got.Columns))
	for _, c := range got.Columns {
		gotNames[c.Name] = c
	}
	wantSet := make(map[string]bool, len(want.Columns))
	for _, c := range want.Columns {
		wantSet[c.Name] = true
		gc, ok := gotNames[c.Name]
		if !ok {
			mismatches = append(mismatches, Mismatch{Kind: MismatchSchema, Detail: fmt.Sprintf("missing column %q", c.Name)})
			continue
		}
		if gc.Type != c.Type {
			mismatches = append(mismatches, Mismatch{Kind: MismatchSchema, Detail: fmt.Sprintf("column %q: expected type %s, got %s", c.Name, c.Type, gc.Type)})
		}
	}
	for _, name := range util.SortedKeys(gotNames) {
		if !wantSet[name] {
			mismatches = append(mismatches, Mismatch{Kind: MismatchSchema, Detail: fmt.Sprintf("unexpected column %q", name)})
		}
	}
	return mismatches
}
