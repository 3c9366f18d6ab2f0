// Package assign implements the assignment-expression compiler (§4.1, §4.8
// "Column suffixing"): it walks an expression's reference spans, validates
// each `alias.column` against a symbol table, and rewrites it to
// `<column>_<alias>` so the rewritten source can be compiled as an ordinary
// row expression against the post-join working frame.
package assign

import (
	"fmt"
	"strings"

	"github.com/tabkit/pipeline/expr"
)

// SymbolTable is the validation context for one assignment expression.
type SymbolTable struct {
	WorkingColumns    map[string]bool
	JoinAliasColumns map[string]map[string]bool // alias -> set<column>
}

// Rewrite validates and rewrites src per §4.1's assignment compiler,
// returning the expression source with every `alias.column` reference
// replaced by `column_alias` and every bare identifier checked against
// WorkingColumns.
func Rewrite(src string, symbols SymbolTable) (string, error) {
	toks, err := expr.Tokenize(src)
	if err != nil {
		return "", expr.CompileError{Kind: expr.ErrInvalidExpression, Reason: err.Error()}
	}
	var b strings.Builder
	for i, t := range toks {
		if t.Kind == expr.TokEOF {
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		if t.Kind == expr.TokString {
			// Quoted dotted strings are skipped (left as string literals).
			b.WriteByte('"')
			b.WriteString(t.Value)
			b.WriteByte('"')
			continue
		}
		if t.Kind == expr.TokIdent {
			next := toks[i+1]
			if next.Kind == expr.TokLParen {
				b.WriteString(t.Text) // function name, skipped
				continue
			}
			rewritten, err := rewriteReference(t.Text, symbols)
			if err != nil {
				return "", err
			}
			b.WriteString(rewritten)
			continue
		}
		b.WriteString(t.Text)
	}
	return b.String(), nil
}

func rewriteReference(name string, symbols SymbolTable) (string, error) {
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		alias, column := name[:dot], name[dot+1:]
		cols, ok := symbols.JoinAliasColumns[alias]
		if !ok {
			return "", expr.CompileError{Kind: expr.ErrUnknownAlias, Alias: alias}
		}
		if !cols[column] {
			return "", expr.CompileError{Kind: expr.ErrUnknownAliasedColumn, Alias: alias, Column: column}
		}
		return fmt.Sprintf("%s_%s", column, alias), nil
	}
	if !symbols.WorkingColumns[name] {
		return "", expr.CompileError{Kind: expr.ErrUnknownColumn, Column: name}
	}
	return name, nil
}
