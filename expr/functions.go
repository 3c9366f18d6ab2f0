package expr

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

const dateLayout = "2006-01-02"

// aggregateFuncs is the set of functions only legal when
// Context.AllowAggregates is true (§4.1).
var aggregateFuncs = map[string]bool{
	"SUM": true, "COUNT": true, "COUNT_ALL": true, "AVG": true, "MIN_AGG": true, "MAX_AGG": true,
}

func compileCall(c Call, ctx Context) (frame.Expr, error) {
	if aggregateFuncs[c.Name] {
		if !ctx.AllowAggregates {
			return nil, CompileError{Kind: ErrInvalidAggregateCtx, Reason: c.Name + " is only valid in an aggregate-enabled context"}
		}
		// Aggregate functions are lowered by the aggregate operator directly
		// against the column-algebra backend's GroupByAgg (§4.7); row-level
		// Compile only needs to validate arity/shape here so a misuse inside
		// a non-aggregate expression is still caught at compile time.
		return compileAggregatePlaceholder(c, ctx)
	}

	args := make([]frame.Expr, len(c.Args))
	for i, a := range c.Args {
		ce, err := Compile(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = ce
	}

	switch c.Name {
	case "IF":
		if len(args) != 3 {
			return nil, arityErr("IF", 3, len(args))
		}
		typ := args[1].ResultType()
		return &compiled{typ: typ, eval: func(row frame.Row) (frame.Value, error) {
			cv, err := args[0].Eval(row)
			if err != nil {
				return nil, err
			}
			cb, _ := asBool(cv)
			if cb {
				return args[1].Eval(row)
			}
			return args[2].Eval(row)
		}}, nil
	case "AND", "OR":
		if len(args) < 1 {
			return nil, arityErr(c.Name, 1, len(args))
		}
		isAnd := c.Name == "AND"
		return &compiled{typ: model.ColumnBoolean, eval: func(row frame.Row) (frame.Value, error) {
			result := isAnd
			for _, a := range args {
				v, err := a.Eval(row)
				if err != nil {
					return nil, err
				}
				b, _ := asBool(v)
				if isAnd && !b {
					return false, nil
				}
				if !isAnd && b {
					return true, nil
				}
				result = b
			}
			return result, nil
		}}, nil
	case "NOT":
		if len(args) != 1 {
			return nil, arityErr("NOT", 1, len(args))
		}
		return &compiled{typ: model.ColumnBoolean, eval: func(row frame.Row) (frame.Value, error) {
			v, err := args[0].Eval(row)
			if err != nil {
				return nil, err
			}
			b, _ := asBool(v)
			return !b, nil
		}}, nil
	case "ISNULL":
		if len(args) != 1 {
			return nil, arityErr("ISNULL", 1, len(args))
		}
		return &compiled{typ: model.ColumnBoolean, eval: func(row frame.Row) (frame.Value, error) {
			v, err := args[0].Eval(row)
			if err != nil {
				return nil, err
			}
			return v == nil, nil
		}}, nil
	case "COALESCE":
		if len(args) < 1 {
			return nil, arityErr("COALESCE", 1, len(args))
		}
		return &compiled{typ: args[0].ResultType(), eval: func(row frame.Row) (frame.Value, error) {
			for _, a := range args {
				v, err := a.Eval(row)
				if err != nil {
					return nil, err
				}
				if v != nil {
					return v, nil
				}
			}
			return nil, nil
		}}, nil
	case "ABS":
		if len(args) != 1 {
			return nil, arityErr("ABS", 1, len(args))
		}
		return numUnary(args[0], math.Abs), nil
	case "FLOOR":
		if len(args) != 1 {
			return nil, arityErr("FLOOR", 1, len(args))
		}
		return numUnary(args[0], math.Floor), nil
	case "CEIL":
		if len(args) != 1 {
			return nil, arityErr("CEIL", 1, len(args))
		}
		return numUnary(args[0], math.Ceil), nil
	case "ROUND":
		if len(args) != 1 && len(args) != 2 {
			return nil, arityErr("ROUND", 1, len(args))
		}
		decimals := 0
		if len(args) == 2 {
			lit, ok := c.Args[1].(IntLit)
			if !ok {
				return nil, CompileError{Kind: ErrInvalidExpression, Reason: "ROUND decimals must be a numeric literal"}
			}
			decimals = int(lit.Value)
		}
		return &compiled{typ: model.ColumnDecimal, eval: func(row frame.Row) (frame.Value, error) {
			v, err := args[0].Eval(row)
			if err != nil || v == nil {
				return nil, err
			}
			f, ok := asFloat(v)
			if !ok {
				return nil, fmt.Errorf("ROUND requires a numeric operand")
			}
			mult := math.Pow(10, float64(decimals))
			return math.Round(f*mult) / mult, nil
		}}, nil
	case "MOD":
		if len(args) != 2 {
			return nil, arityErr("MOD", 2, len(args))
		}
		return numBinary(args[0], args[1], math.Mod), nil
	case "MIN":
		if len(args) != 2 {
			return nil, arityErr("MIN", 2, len(args))
		}
		return numBinary(args[0], args[1], math.Min), nil
	case "MAX":
		if len(args) != 2 {
			return nil, arityErr("MAX", 2, len(args))
		}
		return numBinary(args[0], args[1], math.Max), nil
	case "CONCAT":
		if len(args) < 1 {
			return nil, arityErr("CONCAT", 1, len(args))
		}
		return &compiled{typ: model.ColumnString, eval: func(row frame.Row) (frame.Value, error) {
			var b strings.Builder
			for _, a := range args {
				v, err := a.Eval(row)
				if err != nil {
					return nil, err
				}
				b.WriteString(fmt.Sprint(v))
			}
			return b.String(), nil
		}}, nil
	case "UPPER":
		return strUnary(args, "UPPER", strings.ToUpper)
	case "LOWER":
		return strUnary(args, "LOWER", strings.ToLower)
	case "TRIM":
		return strUnary(args, "TRIM", strings.TrimSpace)
	case "LEN":
		if len(args) != 1 {
			return nil, arityErr("LEN", 1, len(args))
		}
		return &compiled{typ: model.ColumnInteger, eval: func(row frame.Row) (frame.Value, error) {
			v, err := args[0].Eval(row)
			if err != nil || v == nil {
				return nil, err
			}
			s, ok := asString(v)
			if !ok {
				return nil, fmt.Errorf("LEN requires a string operand")
			}
			return int64(len([]rune(s))), nil
		}}, nil
	case "LEFT", "RIGHT":
		if len(args) != 2 {
			return nil, arityErr(c.Name, 2, len(args))
		}
		isLeft := c.Name == "LEFT"
		return &compiled{typ: model.ColumnString, eval: func(row frame.Row) (frame.Value, error) {
			sv, err := args[0].Eval(row)
			if err != nil {
				return nil, err
			}
			nv, err := args[1].Eval(row)
			if err != nil {
				return nil, err
			}
			if sv == nil || nv == nil {
				return nil, nil
			}
			s, _ := asString(sv)
			n, _ := asFloat(nv)
			r := []rune(s)
			count := int(n)
			if count > len(r) {
				count = len(r)
			}
			if count < 0 {
				count = 0
			}
			if isLeft {
				return string(r[:count]), nil
			}
			return string(r[len(r)-count:]), nil
		}}, nil
	case "CONTAINS":
		if len(args) != 2 {
			return nil, arityErr("CONTAINS", 2, len(args))
		}
		return &compiled{typ: model.ColumnBoolean, eval: func(row frame.Row) (frame.Value, error) {
			hv, err := args[0].Eval(row)
			if err != nil {
				return nil, err
			}
			nv, err := args[1].Eval(row)
			if err != nil {
				return nil, err
			}
			if hv == nil || nv == nil {
				return nil, nil
			}
			h, _ := asString(hv)
			n, _ := asString(nv)
			return strings.Contains(h, n), nil
		}}, nil
	case "REPLACE":
		if len(args) != 3 {
			return nil, arityErr("REPLACE", 3, len(args))
		}
		return &compiled{typ: model.ColumnString, eval: func(row frame.Row) (frame.Value, error) {
			sv, err := args[0].Eval(row)
			if err != nil {
				return nil, err
			}
			fv, err := args[1].Eval(row)
			if err != nil {
				return nil, err
			}
			tv, err := args[2].Eval(row)
			if err != nil {
				return nil, err
			}
			if sv == nil || fv == nil || tv == nil {
				return nil, nil
			}
			s, _ := asString(sv)
			from, _ := asString(fv)
			to, _ := asString(tv)
			return strings.ReplaceAll(s, from, to), nil
		}}, nil
	case "DATE":
		if len(args) != 1 {
			return nil, arityErr("DATE", 1, len(args))
		}
		return &compiled{typ: model.ColumnDate, eval: func(row frame.Row) (frame.Value, error) {
			v, err := args[0].Eval(row)
			if err != nil || v == nil {
				return nil, err
			}
			s, ok := asString(v)
			if !ok {
				return nil, fmt.Errorf("DATE requires a string operand")
			}
			t, err := time.Parse(dateLayout, s)
			if err != nil {
				return nil, fmt.Errorf("DATE: %w", err)
			}
			return t, nil
		}}, nil
	case "YEAR", "MONTH", "DAY":
		if len(args) != 1 {
			return nil, arityErr(c.Name, 1, len(args))
		}
		name := c.Name
		return &compiled{typ: model.ColumnInteger, eval: func(row frame.Row) (frame.Value, error) {
			t, ok, err := evalDate(args[0], row)
			if err != nil || !ok {
				return nil, err
			}
			switch name {
			case "YEAR":
				return int64(t.Year()), nil
			case "MONTH":
				return int64(t.Month()), nil
			default:
				return int64(t.Day()), nil
			}
		}}, nil
	case "DATEDIFF":
		if len(args) != 2 {
			return nil, arityErr("DATEDIFF", 2, len(args))
		}
		return &compiled{typ: model.ColumnInteger, eval: func(row frame.Row) (frame.Value, error) {
			a, ok1, err := evalDate(args[0], row)
			if err != nil {
				return nil, err
			}
			b, ok2, err := evalDate(args[1], row)
			if err != nil {
				return nil, err
			}
			if !ok1 || !ok2 {
				return nil, nil
			}
			return int64(a.Sub(b).Hours() / 24), nil
		}}, nil
	case "DATEADD":
		if len(args) != 2 {
			return nil, arityErr("DATEADD", 2, len(args))
		}
		return &compiled{typ: model.ColumnDate, eval: func(row frame.Row) (frame.Value, error) {
			t, ok, err := evalDate(args[0], row)
			if err != nil || !ok {
				return nil, err
			}
			dv, err := args[1].Eval(row)
			if err != nil || dv == nil {
				return nil, err
			}
			days, ok := asFloat(dv)
			if !ok {
				return nil, fmt.Errorf("DATEADD requires a numeric day count")
			}
			return t.AddDate(0, 0, int(days)), nil
		}}, nil
	case "TODAY":
		if len(args) != 0 {
			return nil, arityErr("TODAY", 0, len(args))
		}
		ts := ctx.RunTimestamp
		return &compiled{typ: model.ColumnDate, eval: func(frame.Row) (frame.Value, error) {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location()), nil
		}}, nil
	}
	return nil, CompileError{Kind: ErrInvalidExpression, Reason: "unknown function " + c.Name}
}

// compileAggregatePlaceholder validates arity for aggregate functions used
// inside a row expression compiled outside GroupByAgg (e.g. an assignment
// that legally references a pre-aggregated column by name, not the function
// call itself). It never actually runs a row-wise aggregation.
func compileAggregatePlaceholder(c Call, ctx Context) (frame.Expr, error) {
	if c.Name == "COUNT_ALL" {
		if len(c.Args) != 0 {
			return nil, arityErr("COUNT_ALL", 0, len(c.Args))
		}
	} else if len(c.Args) != 1 {
		return nil, arityErr(c.Name, 1, len(c.Args))
	}
	return nil, CompileError{Kind: ErrInvalidExpression, Reason: c.Name + " may only appear as a top-level aggregation expression"}
}

func evalDate(e frame.Expr, row frame.Row) (time.Time, bool, error) {
	v, err := e.Eval(row)
	if err != nil || v == nil {
		return time.Time{}, false, err
	}
	switch t := v.(type) {
	case time.Time:
		return t, true, nil
	case string:
		parsed, err := time.Parse(dateLayout, t)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("expected a date: %w", err)
		}
		return parsed, true, nil
	default:
		return time.Time{}, false, fmt.Errorf("expected a date, got %T", v)
	}
}

func numUnary(e frame.Expr, fn func(float64) float64) frame.Expr {
	return &compiled{typ: model.ColumnDecimal, eval: func(row frame.Row) (frame.Value, error) {
		v, err := e.Eval(row)
		if err != nil || v == nil {
			return nil, err
		}
		f, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("expected a numeric operand, got %T", v)
		}
		return fn(f), nil
	}}
}

func numBinary(a, b frame.Expr, fn func(float64, float64) float64) frame.Expr {
	return &compiled{typ: model.ColumnDecimal, eval: func(row frame.Row) (frame.Value, error) {
		av, err := a.Eval(row)
		if err != nil {
			return nil, err
		}
		bv, err := b.Eval(row)
		if err != nil {
			return nil, err
		}
		if av == nil || bv == nil {
			return nil, nil
		}
		af, ok1 := asFloat(av)
		bf, ok2 := asFloat(bv)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("expected numeric operands")
		}
		return fn(af, bf), nil
	}}
}

func strUnary(args []frame.Expr, name string, fn func(string) string) (frame.Expr, error) {
	if len(args) != 1 {
		return nil, arityErr(name, 1, len(args))
	}
	return &compiled{typ: model.ColumnString, eval: func(row frame.Row) (frame.Value, error) {
		v, err := args[0].Eval(row)
		if err != nil || v == nil {
			return nil, err
		}
		s, ok := asString(v)
		if !ok {
			return nil, fmt.Errorf("%s requires a string operand", name)
		}
		return fn(s), nil
	}}, nil
}

func arityErr(name string, want, got int) error {
	return CompileError{Kind: ErrInvalidExpression, Reason: fmt.Sprintf("%s expects %d argument(s), got %d", name, want, got)}
}
