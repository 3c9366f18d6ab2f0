// Package temporal applies soft-delete and period/bitemporal filtering to a
// loaded frame before joins and operations run (§4.4).
package temporal

import (
	"fmt"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

// Error names the missing-column hard error required by §4.4.
type Error struct{ Column string }

func (e Error) Error() string {
	return fmt.Sprintf("temporal filter: required column %q is missing", e.Column)
}

// Apply runs the temporal filter for mode against f, using runPeriod for
// Period mode and runStart for Bitemporal mode (§4.4).
func Apply(f frame.Frame, mode model.TemporalMode, runPeriod model.Period, runStart time.Time) (frame.Frame, error) {
	schema, err := f.Schema()
	if err != nil {
		return nil, err
	}

	if schema.Has(model.ColDeleted) {
		f = f.Filter(softDeleteExpr())
	}

	switch mode {
	case model.TemporalPeriod:
		if !schema.Has(model.ColPeriod) {
			return nil, Error{Column: model.ColPeriod}
		}
		return f.Filter(periodExpr(runPeriod.Identifier)), nil
	case model.TemporalBitemporal:
		if !schema.Has(model.ColPeriodFrom) {
			return nil, Error{Column: model.ColPeriodFrom}
		}
		if !schema.Has(model.ColPeriodTo) {
			return nil, Error{Column: model.ColPeriodTo}
		}
		return f.Filter(bitemporalExpr(runStart)), nil
	default:
		return f, nil
	}
}

type fn func(frame.Row) (frame.Value, error)

func (f fn) Eval(row frame.Row) (frame.Value, error)    { return f(row) }
func (f fn) ResultType() model.ColumnType               { return model.ColumnBoolean }

// softDeleteExpr implements `(_deleted == TRUE).fill_null(false).not`:
// filter rows where _deleted is not TRUE, treating null as false.
func softDeleteExpr() frame.Expr {
	return fn(func(row frame.Row) (frame.Value, error) {
		v, ok := row[model.ColDeleted].(bool)
		if !ok {
			return true, nil // null or wrong type preserves the row
		}
		return !v, nil
	})
}

func periodExpr(identifier string) frame.Expr {
	return fn(func(row frame.Row) (frame.Value, error) {
		v, _ := row[model.ColPeriod].(string)
		return v == identifier, nil
	})
}

// bitemporalExpr implements `_period_from <= t AND (_period_to IS NULL OR
// _period_to > t)` with the widening/timezone rules of §4.4 step 3.
func bitemporalExpr(t time.Time) frame.Expr {
	return fn(func(row frame.Row) (frame.Value, error) {
		from, err := asTime(row[model.ColPeriodFrom])
		if err != nil {
			return nil, err
		}
		if from.After(t) {
			return false, nil
		}
		toVal := row[model.ColPeriodTo]
		if toVal == nil {
			return true, nil
		}
		to, err := asTime(toVal)
		if err != nil {
			return nil, err
		}
		if zonesConflict(from, to) {
			return nil, fmt.Errorf("ComputeError: _period_from and _period_to carry differing time zones")
		}
		return to.After(t), nil
	})
}

// zonesConflict reports the §4.4 step 3 ComputeError condition: both bounds
// carry an explicit, differing time zone.
func zonesConflict(a, b time.Time) bool {
	za, oa := a.Zone()
	zb, ob := b.Zone()
	if za == "" || zb == "" {
		return false
	}
	return oa != ob
}

// ParseBound parses a _period_from/_period_to bound, accepting YYYY-MM-DD,
// full ISO-8601 with timezone, or naive YYYY-MM-DDTHH:MM:SS (§4.4).
func ParseBound(s string) (time.Time, error) {
	return asTime(s)
}

func asTime(v frame.Value) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		layouts := []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}
		var lastErr error
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			} else {
				lastErr = err
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse temporal bound %q: %w", t, lastErr)
	case nil:
		return time.Time{}, fmt.Errorf("temporal bound is null")
	default:
		return time.Time{}, fmt.Errorf("unsupported temporal bound type %T", v)
	}
}
