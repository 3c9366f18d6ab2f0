package expr

import "fmt"

// UnexpectedToken is the parser's syntax error shape (§4.1, §7). Expected
// names the production(s) the parser wanted; Token.String() renders "<eof>"
// at end of input.
type UnexpectedToken struct {
	Token    Token
	Expected string
}

func (e UnexpectedToken) Error() string {
	return fmt.Sprintf("unexpected token %s at line %d column %d, expected %s",
		e.Token, e.Token.Line, e.Token.Column, e.Expected)
}

// CompileError is the closed taxonomy for semantic analysis failures (§7).
type CompileError struct {
	Kind   CompileErrorKind
	Alias  string
	Column string
	Reason string
}

type CompileErrorKind string

const (
	ErrUnknownAlias         CompileErrorKind = "UnknownAlias"
	ErrUnknownAliasedColumn CompileErrorKind = "UnknownAliasedColumn"
	ErrUnknownColumn        CompileErrorKind = "UnknownColumn"
	ErrInvalidExpression    CompileErrorKind = "InvalidExpression"
	ErrInvalidAggregateCtx  CompileErrorKind = "InvalidAggregateContext"
)

func (e CompileError) Error() string {
	switch e.Kind {
	case ErrUnknownAliasedColumn:
		return fmt.Sprintf("%s: unknown column %q on alias %q", e.Kind, e.Column, e.Alias)
	case ErrUnknownAlias:
		return fmt.Sprintf("%s: unknown alias %q", e.Kind, e.Alias)
	case ErrUnknownColumn:
		return fmt.Sprintf("%s: unknown column %q", e.Kind, e.Column)
	default:
		if e.Reason != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
		}
		return string(e.Kind)
	}
}

// ExpressionError wraps a lexer/parser/compile failure for an expression
// field (§7 ExpressionError). EmptyExpression is returned for blank
// expression sources before even attempting to lex.
type ExpressionError struct {
	Empty   bool
	Message string
}

func (e ExpressionError) Error() string {
	if e.Empty {
		return "EmptyExpression"
	}
	return e.Message
}
