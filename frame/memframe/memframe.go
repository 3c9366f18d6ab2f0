// Package memframe is the reference, in-memory implementation of
// frame.Frame. It backs the engine's unit tests and the bundled scenario
// harness (see package harness); it is not meant to scale, only to give the
// core something real to run against, the way the teacher's
// database/file.Database backs dry-run diffing without a live connection.
package memframe

import (
	"fmt"
	"sort"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/util"
)

type memFrame struct {
	schemaFn func() (frame.Schema, error)
	rowsFn   func() ([]frame.Row, error)
}

// New builds a Frame from a fixed schema and row set.
func New(schema frame.Schema, rows []frame.Row) frame.Frame {
	return &memFrame{
		schemaFn: func() (frame.Schema, error) { return schema, nil },
		rowsFn:   func() ([]frame.Row, error) { return rows, nil },
	}
}

func (f *memFrame) Schema() (frame.Schema, error) { return f.schemaFn() }

func (f *memFrame) Collect() ([]frame.Row, error) { return f.rowsFn() }

func (f *memFrame) Filter(pred frame.Expr) frame.Frame {
	return &memFrame{
		schemaFn: f.schemaFn,
		rowsFn: func() ([]frame.Row, error) {
			rows, err := f.rowsFn()
			if err != nil {
				return nil, err
			}
			out := make([]frame.Row, 0, len(rows))
			for _, r := range rows {
				v, err := pred.Eval(r)
				if err != nil {
					return nil, err
				}
				if b, ok := v.(bool); ok && b {
					out = append(out, r)
				}
			}
			return out, nil
		},
	}
}

func (f *memFrame) Select(columns ...string) frame.Frame {
	return &memFrame{
		schemaFn: func() (frame.Schema, error) {
			s, err := f.schemaFn()
			if err != nil {
				return frame.Schema{}, err
			}
			out := frame.Schema{}
			for _, name := range columns {
				col, ok := s.Column(name)
				if !ok {
					return frame.Schema{}, frame.ErrMissingColumn{Column: name}
				}
				out.Columns = append(out.Columns, col)
			}
			return out, nil
		},
		rowsFn: func() ([]frame.Row, error) {
			rows, err := f.rowsFn()
			if err != nil {
				return nil, err
			}
			out := make([]frame.Row, len(rows))
			for i, r := range rows {
				nr := make(frame.Row, len(columns))
				for _, name := range columns {
					nr[name] = r[name]
				}
				out[i] = nr
			}
			return out, nil
		},
	}
}

func (f *memFrame) WithColumns(cols map[string]frame.Expr) frame.Frame {
	names := util.SortedKeys(cols)
	return &memFrame{
		schemaFn: func() (frame.Schema, error) {
			s, err := f.schemaFn()
			if err != nil {
				return frame.Schema{}, err
			}
			for _, name := range names {
				typ := cols[name].ResultType()
				if typ == "" {
					typ = model.ColumnUnsupported
				}
				s = s.With(frame.Column{Name: name, Type: typ, Nullable: true})
			}
			return s, nil
		},
		rowsFn: func() ([]frame.Row, error) {
			rows, err := f.rowsFn()
			if err != nil {
				return nil, err
			}
			out := make([]frame.Row, len(rows))
			for i, r := range rows {
				nr := make(frame.Row, len(r)+len(names))
				for k, v := range r {
					nr[k] = v
				}
				for _, name := range names {
					v, err := cols[name].Eval(r)
					if err != nil {
						return nil, fmt.Errorf("with_columns %s: %w", name, err)
					}
					nr[name] = v
				}
				out[i] = nr
			}
			return out, nil
		},
	}
}

func (f *memFrame) Join(other frame.Frame, keys []frame.KeyPair) frame.Frame {
	return &memFrame{
		schemaFn: func() (frame.Schema, error) {
			ls, err := f.schemaFn()
			if err != nil {
				return frame.Schema{}, err
			}
			rs, err := other.Schema()
			if err != nil {
				return frame.Schema{}, err
			}
			out := ls
			for _, c := range rs.Columns {
				out = out.With(c)
			}
			return out, nil
		},
		rowsFn: func() ([]frame.Row, error) {
			left, err := f.rowsFn()
			if err != nil {
				return nil, err
			}
			right, err := collectFrame(other)
			if err != nil {
				return nil, err
			}
			rs, err := other.Schema()
			if err != nil {
				return nil, err
			}
			out := make([]frame.Row, 0, len(left))
			for _, lr := range left {
				matched := false
				for _, rr := range right {
					if keysEqual(lr, rr, keys) {
						matched = true
						out = append(out, mergeRows(lr, rr))
					}
				}
				if !matched {
					nr := mergeRows(lr, nil)
					for _, c := range rs.Columns {
						if _, ok := nr[c.Name]; !ok {
							nr[c.Name] = nil
						}
					}
					out = append(out, nr)
				}
			}
			return out, nil
		},
	}
}

func (f *memFrame) GroupByAgg(groupBy []string, aggs []frame.AggExpr) frame.Frame {
	return &memFrame{
		schemaFn: func() (frame.Schema, error) {
			s, err := f.schemaFn()
			if err != nil {
				return frame.Schema{}, err
			}
			out := frame.Schema{}
			for _, g := range groupBy {
				col, ok := s.Column(g)
				if !ok {
					return frame.Schema{}, frame.ErrMissingColumn{Column: g}
				}
				out.Columns = append(out.Columns, col)
			}
			for _, a := range aggs {
				out.Columns = append(out.Columns, frame.Column{Name: a.Output, Type: a.Type, Nullable: true})
			}
			return out, nil
		},
		rowsFn: func() ([]frame.Row, error) {
			rows, err := f.rowsFn()
			if err != nil {
				return nil, err
			}
			type bucket struct {
				key  []Value
				rows []frame.Row
			}
			order := []string{}
			groups := map[string]*bucket{}
			for _, r := range rows {
				key := make([]Value, len(groupBy))
				for i, g := range groupBy {
					key[i] = r[g]
				}
				k := fmt.Sprint(key)
				b, ok := groups[k]
				if !ok {
					b = &bucket{key: key}
					groups[k] = b
					order = append(order, k)
				}
				b.rows = append(b.rows, r)
			}
			sort.Strings(order)
			out := make([]frame.Row, 0, len(order))
			for _, k := range order {
				b := groups[k]
				nr := make(frame.Row, len(groupBy)+len(aggs))
				for i, g := range groupBy {
					nr[g] = b.key[i]
				}
				for _, a := range aggs {
					nr[a.Output] = computeAgg(a, b.rows)
				}
				out = append(out, nr)
			}
			return out, nil
		},
	}
}

func (f *memFrame) Concat(others ...frame.Frame) frame.Frame {
	return &memFrame{
		schemaFn: f.schemaFn,
		rowsFn: func() ([]frame.Row, error) {
			rows, err := f.rowsFn()
			if err != nil {
				return nil, err
			}
			out := append([]frame.Row{}, rows...)
			for _, o := range others {
				r2, err := collectFrame(o)
				if err != nil {
					return nil, err
				}
				out = append(out, r2...)
			}
			return out, nil
		},
	}
}

func (f *memFrame) Rename(mapping map[string]string) frame.Frame {
	return &memFrame{
		schemaFn: func() (frame.Schema, error) {
			s, err := f.schemaFn()
			if err != nil {
				return frame.Schema{}, err
			}
			out := frame.Schema{}
			for _, c := range s.Columns {
				if newName, ok := mapping[c.Name]; ok {
					c.Name = newName
				}
				out.Columns = append(out.Columns, c)
			}
			return out, nil
		},
		rowsFn: func() ([]frame.Row, error) {
			rows, err := f.rowsFn()
			if err != nil {
				return nil, err
			}
			out := make([]frame.Row, len(rows))
			for i, r := range rows {
				nr := make(frame.Row, len(r))
				for k, v := range r {
					if newName, ok := mapping[k]; ok {
						nr[newName] = v
					} else {
						nr[k] = v
					}
				}
				out[i] = nr
			}
			return out, nil
		},
	}
}

type Value = frame.Value

func collectFrame(f frame.Frame) ([]frame.Row, error) { return f.Collect() }

func keysEqual(l, r frame.Row, keys []frame.KeyPair) bool {
	for _, k := range keys {
		lv, rv := l[k.Left], r[k.Right]
		if lv == nil || rv == nil {
			return false
		}
		if fmt.Sprint(lv) != fmt.Sprint(rv) {
			return false
		}
	}
	return true
}

func mergeRows(l, r frame.Row) frame.Row {
	out := make(frame.Row, len(l)+len(r))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range r {
		out[k] = v
	}
	return out
}
