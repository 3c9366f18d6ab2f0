package expr

import (
	"fmt"

	"github.com/tabkit/pipeline/frame"
)

var aggKindByName = map[string]frame.AggKind{
	"SUM":      frame.AggSum,
	"COUNT":    frame.AggCount,
	"AVG":      frame.AggAvg,
	"MIN_AGG":  frame.AggMin,
	"MAX_AGG":  frame.AggMax,
}

// ParseAggregateExpr parses and validates a top-level aggregation expression
// of the restricted shape `FUNC(col)` or `COUNT(*)` required by the
// Aggregate operator (§4.7): "expressions of form FUNC(col|*) with FUNC ∈
// {SUM, COUNT, AVG, MIN_AGG, MAX_AGG}; only COUNT(*) may use *".
func ParseAggregateExpr(src string) (kind frame.AggKind, input string, err error) {
	n, err := Parse(src)
	if err != nil {
		return "", "", err
	}
	call, ok := n.(Call)
	if !ok {
		return "", "", fmt.Errorf("aggregation expression must be of the form FUNC(column)")
	}
	if call.Name == "COUNT_ALL" {
		return frame.AggCountAll, "", nil
	}
	k, ok := aggKindByName[call.Name]
	if !ok {
		return "", "", fmt.Errorf("unsupported aggregation function %q", call.Name)
	}
	if len(call.Args) != 1 {
		return "", "", fmt.Errorf("%s expects exactly one argument", call.Name)
	}
	id, ok := call.Args[0].(Ident)
	if !ok || id.Name == "*" {
		return "", "", fmt.Errorf("only COUNT(*) may use '*'; %s requires a column reference", call.Name)
	}
	return k, id.Name, nil
}
