package parser

import (
	"strconv"

	"github.com/keeldb/keel/pkg/token"
)

// Special expression parsing: CASE, CAST, EXISTS, parenthesized
// expressions, subqueries, type names.
//
// Grammar:
//
//	case_expr     → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
//	cast_expr     → CAST "(" expr AS type_name ")"
//	exists_expr   → [NOT] EXISTS "(" select_stmt ")"
//	paren_expr    → "(" expr ")" | "(" select_stmt ")" | "(" expr "," expr_list ")"
//	type_name     → identifier ["(" NUMBER ("," NUMBER)* ")"] (ARRAY | "[" "]")*

// parseCaseExpr parses a CASE expression.
func (p *Parser) parseCaseExpr() Expr {
	start := p.token.Pos
	p.expect(token.CASE)
	caseExpr := &CaseExpr{}

	// Simple CASE: CASE expr WHEN ...
	if !p.check(token.WHEN) {
		caseExpr.Operand = p.parseExpression()
	}

	// WHEN clauses
	for p.match(token.WHEN) {
		when := WhenClause{}
		when.Condition = p.parseExpression()
		p.expect(token.THEN)
		when.Result = p.parseExpression()
		caseExpr.Whens = append(caseExpr.Whens, when)
	}

	if len(caseExpr.Whens) == 0 {
		p.addError(ErrUnexpectedToken, p.token.Type, token.WHEN)
	}

	// ELSE clause
	if p.match(token.ELSE) {
		caseExpr.Else = p.parseExpression()
	}

	p.expect(token.END)
	caseExpr.Span = p.spanFrom(start)
	return caseExpr
}

// parseCastExpr parses a CAST expression.
func (p *Parser) parseCastExpr() Expr {
	start := p.token.Pos
	p.expect(token.CAST)
	p.expect(token.LPAREN)

	cast := &CastExpr{}
	cast.Expr = p.parseExpression()

	p.expect(token.AS)
	cast.Type = p.parseTypeName()

	p.expect(token.RPAREN)
	cast.Span = p.spanFrom(start)
	return cast
}

// parseTypeName parses a type name with optional parameters and array
// suffixes: VARCHAR(255), DECIMAL(10, 2), INT ARRAY, TEXT[].
func (p *Parser) parseTypeName() *TypeName {
	start := p.token.Pos
	tn := &TypeName{}

	if !p.check(token.IDENT) {
		p.addError(ErrExpectedTypeName, p.token.Type)
		tn.Span = p.token.Span()
		return tn
	}
	tn.Name = p.token.Literal
	p.nextToken()

	// Size parameters like VARCHAR(255) or DECIMAL(10, 2)
	if p.match(token.LPAREN) {
		for {
			if !p.check(token.NUMBER) {
				p.addError(ErrUnexpectedToken, p.token.Type, token.NUMBER)
				break
			}
			n, err := strconv.Atoi(p.token.Literal)
			if err != nil {
				p.addError(ErrInvalidTypeParam, p.token.Literal)
			}
			tn.Params = append(tn.Params, n)
			p.nextToken()

			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}

	// Array suffixes: INT ARRAY, INT[], INT[][]
	for {
		switch {
		case p.match(token.ARRAY):
			tn.Array++
		case p.check(token.LBRACKET) && p.checkPeek(token.RBRACKET):
			p.nextToken()
			p.nextToken()
			tn.Array++
		default:
			tn.Span = p.spanFrom(start)
			return tn
		}
	}
}

// parseParenExpr parses a parenthesized expression, scalar subquery,
// or bare row value constructor.
func (p *Parser) parseParenExpr() Expr {
	start := p.token.Pos
	p.expect(token.LPAREN)

	// Check if this is a subquery
	if p.check(token.SELECT) || p.check(token.WITH) {
		subquery := &SubqueryExpr{Select: p.parseSelectStmt()}
		p.expect(token.RPAREN)
		subquery.Span = p.spanFrom(start)
		return subquery
	}

	expr := p.parseExpression()

	// Row value constructor: (a, b, c)
	if p.check(token.COMMA) {
		row := &RowExpr{Items: []Expr{expr}}
		for p.match(token.COMMA) {
			row.Items = append(row.Items, p.parseExpression())
		}
		p.expect(token.RPAREN)
		row.Span = p.spanFrom(start)
		return row
	}

	p.expect(token.RPAREN)
	paren := &ParenExpr{Expr: expr}
	paren.Span = p.spanFrom(start)
	return paren
}

// parseExistsExpr parses an EXISTS expression. The NOT EXISTS form
// widens the span at the call site.
func (p *Parser) parseExistsExpr(not bool) *ExistsExpr {
	start := p.token.Pos
	p.expect(token.EXISTS)

	p.expect(token.LPAREN)
	exists := &ExistsExpr{Not: not, Select: p.parseSelectStmt()}
	p.expect(token.RPAREN)

	exists.Span = p.spanFrom(start)
	return exists
}
