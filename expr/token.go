package expr

// TokenKind enumerates the expression sublanguage's lexical classes (§4.1).
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokInt
	TokDecimal
	TokString
	TokTrue
	TokFalse
	TokNull
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokEq
	TokEqEq
	TokNeq
	TokNeqAngle // <>
	TokLt
	TokLte
	TokGt
	TokGte
	TokAnd
	TokOr
	TokNot
	TokLParen
	TokRParen
	TokComma
)

// Token is one lexical token with its source position (1-based line/column,
// matching the UnexpectedToken{token, line, column} error shape in §4.1).
type Token struct {
	Kind   TokenKind
	Text   string // raw/unescaped source text
	Value  string // for TokString: the unescaped literal value
	Line   int
	Column int
}

func (t Token) String() string {
	if t.Kind == TokEOF {
		return "<eof>"
	}
	return t.Text
}

var keywords = map[string]TokenKind{
	"TRUE":  TokTrue,
	"FALSE": TokFalse,
	"NULL":  TokNull,
	"AND":   TokAnd,
	"OR":    TokOr,
	"NOT":   TokNot,
}
