package expr

import "strings"

// NormalizeUpdateExpr rewrites bare identifiers that are not functions,
// boolean keywords, or dotted references to `input.<name>`, so an Update
// assignment can read the pre-update value of the column it writes (§4.1
// "Update-expression normalization"). Quoted strings are preserved verbatim.
func NormalizeUpdateExpr(src string) (string, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return "", ExpressionError{Message: err.Error()}
	}
	var b strings.Builder
	for i, t := range toks {
		if t.Kind == TokEOF {
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		if t.Kind == TokIdent && !strings.Contains(t.Text, ".") {
			next := toks[i+1]
			if next.Kind == TokLParen {
				b.WriteString(t.Text) // function call name, left untouched
			} else {
				b.WriteString("input.")
				b.WriteString(t.Text)
			}
			continue
		}
		if t.Kind == TokString {
			b.WriteByte('"')
			b.WriteString(escapeString(t.Value))
			b.WriteByte('"')
			continue
		}
		b.WriteString(t.Text)
	}
	return b.String(), nil
}

func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(s)
}
