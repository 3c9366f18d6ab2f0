// Package joincond implements the join-condition grammar used by the
// runtime join compiler (§4.8): a restricted subset of the expression
// sublanguage with Comparison/Logical nodes over References and literals.
// Function calls and NULL are rejected here, unlike the main expression
// grammar.
package joincond

import (
	"fmt"

	"github.com/tabkit/pipeline/expr"
)

// Node is a join-condition AST node.
type Node interface{ node() }

type CompareOp string

const (
	OpEq  CompareOp = "="
	OpNeq CompareOp = "!="
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
)

type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// Comparison is `left op right`.
type Comparison struct {
	Left  Node
	Op    CompareOp
	Right Node
}

func (Comparison) node() {}

// Logical is `left AND/OR right`.
type Logical struct {
	Left  Node
	Op    LogicalOp
	Right Node
}

func (Logical) node() {}

// Reference is a bare or dotted column reference (e.g. `fx.rate`).
type Reference struct{ Name string }

func (Reference) node() {}

type StringLiteral struct{ Value string }

func (StringLiteral) node() {}

type NumberLiteral struct{ Text string }

func (NumberLiteral) node() {}

type BooleanLiteral struct{ Value bool }

func (BooleanLiteral) node() {}

// InvalidJoinCondition is the closed error for this grammar (§7 JoinError).
type InvalidJoinCondition struct{ Reason string }

func (e InvalidJoinCondition) Error() string { return "InvalidJoinCondition: " + e.Reason }

type parser struct {
	toks []expr.Token
	pos  int
}

// Parse parses a join-condition expression.
func Parse(src string) (Node, error) {
	toks, err := expr.Tokenize(src)
	if err != nil {
		return nil, InvalidJoinCondition{Reason: err.Error()}
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != expr.TokEOF {
		return nil, InvalidJoinCondition{Reason: fmt.Sprintf("unexpected token %s", p.cur())}
	}
	return n, nil
}

func (p *parser) cur() expr.Token { return p.toks[p.pos] }
func (p *parser) advance() expr.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == expr.TokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Logical{Left: left, Op: OpOr, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == expr.TokAnd {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = Logical{Left: left, Op: OpAnd, Right: right}
	}
	return left, nil
}

var cmpOps = map[expr.TokenKind]CompareOp{
	expr.TokEq:       OpEq,
	expr.TokEqEq:     OpEq,
	expr.TokNeq:      OpNeq,
	expr.TokNeqAngle: OpNeq,
	expr.TokLt:       OpLt,
	expr.TokLte:      OpLte,
	expr.TokGt:       OpGt,
	expr.TokGte:      OpGte,
}

func (p *parser) parseComparison() (Node, error) {
	if p.cur().Kind == expr.TokLParen {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != expr.TokRParen {
			return nil, InvalidJoinCondition{Reason: "expected ')'"}
		}
		p.advance()
		return inner, nil
	}
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	op, ok := cmpOps[p.cur().Kind]
	if !ok {
		return nil, InvalidJoinCondition{Reason: fmt.Sprintf("expected comparison operator, got %s", p.cur())}
	}
	p.advance()
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return Comparison{Left: left, Op: op, Right: right}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.cur()
	switch t.Kind {
	case expr.TokIdent:
		p.advance()
		if p.cur().Kind == expr.TokLParen {
			return nil, InvalidJoinCondition{Reason: "function calls are not allowed in a join condition"}
		}
		return Reference{Name: t.Text}, nil
	case expr.TokString:
		p.advance()
		return StringLiteral{Value: t.Value}, nil
	case expr.TokInt, expr.TokDecimal:
		p.advance()
		return NumberLiteral{Text: t.Text}, nil
	case expr.TokTrue:
		p.advance()
		return BooleanLiteral{Value: true}, nil
	case expr.TokFalse:
		p.advance()
		return BooleanLiteral{Value: false}, nil
	case expr.TokNull:
		return nil, InvalidJoinCondition{Reason: "NULL is not allowed in a join condition"}
	case expr.TokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != expr.TokRParen {
			return nil, InvalidJoinCondition{Reason: "expected ')'"}
		}
		p.advance()
		return inner, nil
	}
	return nil, InvalidJoinCondition{Reason: fmt.Sprintf("unexpected token %s", t)}
}
