package memframe

import (
	"github.com/tabkit/pipeline/frame"
)

func computeAgg(a frame.AggExpr, rows []frame.Row) frame.Value {
	switch a.Kind {
	case frame.AggCountAll:
		return int64(len(rows))
	case frame.AggCount:
		var n int64
		for _, r := range rows {
			if r[a.Input] != nil {
				n++
			}
		}
		return n
	case frame.AggSum:
		sum, any := 0.0, false
		for _, r := range rows {
			if f, ok := toFloat(r[a.Input]); ok {
				sum += f
				any = true
			}
		}
		if !any {
			return nil
		}
		return sum
	case frame.AggAvg:
		sum, n := 0.0, 0
		for _, r := range rows {
			if f, ok := toFloat(r[a.Input]); ok {
				sum += f
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return sum / float64(n)
	case frame.AggMin:
		var best float64
		set := false
		for _, r := range rows {
			if f, ok := toFloat(r[a.Input]); ok {
				if !set || f < best {
					best, set = f, true
				}
			}
		}
		if !set {
			return nil
		}
		return best
	case frame.AggMax:
		var best float64
		set := false
		for _, r := range rows {
			if f, ok := toFloat(r[a.Input]); ok {
				if !set || f > best {
					best, set = f, true
				}
			}
		}
		if !set {
			return nil
		}
		return best
	default:
		return nil
	}
}

func toFloat(v frame.Value) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
