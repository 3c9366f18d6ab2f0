package expr

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

// Context is the compilation context described in §4.1: the run timestamp
// (today() is fixed to this), whether aggregate functions are legal here,
// the declared column set with types, and the selectors map used for
// {{NAME}} interpolation upstream of compilation (kept here only so
// aggregate/selector-aware callers can thread it through).
type Context struct {
	RunTimestamp    time.Time
	AllowAggregates bool
	DeclaredColumns map[string]model.ColumnType
	Selectors       map[string]string
}

// compiled is the frame.Expr produced by Compile.
type compiled struct {
	eval func(row frame.Row) (frame.Value, error)
	typ  model.ColumnType
}

func (c *compiled) Eval(row frame.Row) (frame.Value, error) { return c.eval(row) }
func (c *compiled) ResultType() model.ColumnType             { return c.typ }

// Compile lowers a parsed AST node to a backend-evaluable frame.Expr (§4.1
// "compiler, lowering to the column-algebra backend").
func Compile(n Node, ctx Context) (frame.Expr, error) {
	switch v := n.(type) {
	case Ident:
		return compileIdent(v, ctx)
	case IntLit:
		val := v.Value
		return &compiled{typ: model.ColumnInteger, eval: func(frame.Row) (frame.Value, error) { return val, nil }}, nil
	case DecimalLit:
		f, err := strconv.ParseFloat(v.Text, 64)
		if err != nil {
			return nil, CompileError{Kind: ErrInvalidExpression, Reason: err.Error()}
		}
		return &compiled{typ: model.ColumnDecimal, eval: func(frame.Row) (frame.Value, error) { return f, nil }}, nil
	case StringLit:
		s := v.Value
		return &compiled{typ: model.ColumnString, eval: func(frame.Row) (frame.Value, error) { return s, nil }}, nil
	case BoolLit:
		b := v.Value
		return &compiled{typ: model.ColumnBoolean, eval: func(frame.Row) (frame.Value, error) { return b, nil }}, nil
	case NullLit:
		return &compiled{eval: func(frame.Row) (frame.Value, error) { return nil, nil }}, nil
	case UnaryOp:
		return compileUnary(v, ctx)
	case BinOp:
		return compileBinOp(v, ctx)
	case Call:
		return compileCall(v, ctx)
	}
	return nil, CompileError{Kind: ErrInvalidExpression, Reason: fmt.Sprintf("unsupported node %T", n)}
}

func compileIdent(id Ident, ctx Context) (frame.Expr, error) {
	name := id.Name
	typ, ok := ctx.DeclaredColumns[name]
	if !ok {
		return nil, CompileError{Kind: ErrUnknownColumn, Column: name}
	}
	return &compiled{typ: typ, eval: func(row frame.Row) (frame.Value, error) {
		return row[name], nil
	}}, nil
}

func compileUnary(u UnaryOp, ctx Context) (frame.Expr, error) {
	operand, err := Compile(u.Operand, ctx)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "-":
		return &compiled{typ: operand.ResultType(), eval: func(row frame.Row) (frame.Value, error) {
			v, err := operand.Eval(row)
			if err != nil || v == nil {
				return nil, err
			}
			f, ok := asFloat(v)
			if !ok {
				return nil, fmt.Errorf("unary '-' requires a numeric operand")
			}
			return -f, nil
		}}, nil
	case "NOT":
		return &compiled{typ: model.ColumnBoolean, eval: func(row frame.Row) (frame.Value, error) {
			v, err := operand.Eval(row)
			if err != nil {
				return nil, err
			}
			b, _ := asBool(v)
			return !b, nil
		}}, nil
	}
	return nil, CompileError{Kind: ErrInvalidExpression, Reason: "unknown unary op " + u.Op}
}

func compileBinOp(b BinOp, ctx Context) (frame.Expr, error) {
	left, err := Compile(b.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Compile(b.Right, ctx)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case "AND":
		return &compiled{typ: model.ColumnBoolean, eval: func(row frame.Row) (frame.Value, error) {
			lv, err := left.Eval(row)
			if err != nil {
				return nil, err
			}
			lb, _ := asBool(lv)
			if !lb {
				return false, nil
			}
			rv, err := right.Eval(row)
			if err != nil {
				return nil, err
			}
			rb, _ := asBool(rv)
			return rb, nil
		}}, nil
	case "OR":
		return &compiled{typ: model.ColumnBoolean, eval: func(row frame.Row) (frame.Value, error) {
			lv, err := left.Eval(row)
			if err != nil {
				return nil, err
			}
			lb, _ := asBool(lv)
			if lb {
				return true, nil
			}
			rv, err := right.Eval(row)
			if err != nil {
				return nil, err
			}
			rb, _ := asBool(rv)
			return rb, nil
		}}, nil
	case "=", "!=", "<", "<=", ">", ">=":
		return &compiled{typ: model.ColumnBoolean, eval: func(row frame.Row) (frame.Value, error) {
			lv, err := left.Eval(row)
			if err != nil {
				return nil, err
			}
			rv, err := right.Eval(row)
			if err != nil {
				return nil, err
			}
			return compareValues(b.Op, lv, rv)
		}}, nil
	case "+", "-", "*", "/", "%":
		typ := model.ColumnDecimal
		if left.ResultType() == model.ColumnInteger && right.ResultType() == model.ColumnInteger && (b.Op == "+" || b.Op == "-" || b.Op == "*") {
			typ = model.ColumnInteger
		}
		op := b.Op
		return &compiled{typ: typ, eval: func(row frame.Row) (frame.Value, error) {
			lv, err := left.Eval(row)
			if err != nil {
				return nil, err
			}
			rv, err := right.Eval(row)
			if err != nil {
				return nil, err
			}
			if lv == nil || rv == nil {
				return nil, nil
			}
			lf, ok1 := asFloat(lv)
			rf, ok2 := asFloat(rv)
			if !ok1 || !ok2 {
				if op == "+" {
					if ls, ok := lv.(string); ok {
						if rs, ok := rv.(string); ok {
							return ls + rs, nil
						}
					}
				}
				return nil, fmt.Errorf("arithmetic operator %q requires numeric operands", op)
			}
			switch op {
			case "+":
				return lf + rf, nil
			case "-":
				return lf - rf, nil
			case "*":
				return lf * rf, nil
			case "/":
				if rf == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				return lf / rf, nil
			case "%":
				if rf == 0 {
					return nil, fmt.Errorf("modulo by zero")
				}
				return math.Mod(lf, rf), nil
			}
			return nil, nil
		}}, nil
	}
	return nil, CompileError{Kind: ErrInvalidExpression, Reason: "unknown operator " + b.Op}
}

func asBool(v frame.Value) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat(v frame.Value) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asString(v frame.Value) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func compareValues(op string, l, r frame.Value) (frame.Value, error) {
	if l == nil || r == nil {
		switch op {
		case "=":
			return l == nil && r == nil, nil
		case "!=":
			return !(l == nil && r == nil), nil
		default:
			return nil, nil
		}
	}
	if lf, ok := asFloat(l); ok {
		if rf, ok := asFloat(r); ok {
			return numCompare(op, lf, rf), nil
		}
	}
	if ls, ok := asString(l); ok {
		if rs, ok := asString(r); ok {
			return strCompare(op, ls, rs), nil
		}
	}
	if lb, ok := l.(bool); ok {
		if rb, ok := r.(bool); ok {
			switch op {
			case "=":
				return lb == rb, nil
			case "!=":
				return lb != rb, nil
			}
		}
	}
	if lt, ok := l.(time.Time); ok {
		if rt, ok := r.(time.Time); ok {
			return timeCompare(op, lt, rt), nil
		}
	}
	return nil, fmt.Errorf("cannot compare %T with %T", l, r)
}

func numCompare(op string, l, r float64) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func strCompare(op string, l, r string) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func timeCompare(op string, l, r time.Time) bool {
	switch op {
	case "=":
		return l.Equal(r)
	case "!=":
		return !l.Equal(r)
	case "<":
		return l.Before(r)
	case "<=":
		return l.Before(r) || l.Equal(r)
	case ">":
		return l.After(r)
	case ">=":
		return l.After(r) || l.Equal(r)
	}
	return false
}
