package ops

import (
	"time"

	"github.com/tabkit/pipeline/expr"
	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

func declaredColumns(schema frame.Schema) map[string]model.ColumnType {
	out := make(map[string]model.ColumnType, len(schema.Columns))
	for _, c := range schema.Columns {
		out[c.Name] = c.Type
	}
	return out
}

// compileBoolExpr compiles a selector/when expression against a frame's
// schema, allowing aggregate functions only where the caller is itself the
// aggregate operator's group-level context.
func compileBoolExpr(src string, schema frame.Schema, runTimestamp time.Time, allowAggregates bool) (frame.Expr, error) {
	node, err := expr.Parse(src)
	if err != nil {
		return nil, err
	}
	return expr.Compile(node, expr.Context{
		RunTimestamp:    runTimestamp,
		AllowAggregates: allowAggregates,
		DeclaredColumns: declaredColumns(schema),
	})
}

func systemColumn(name string, col model.ColumnType) frame.Column {
	return frame.Column{Name: name, Type: col, Nullable: true}
}
