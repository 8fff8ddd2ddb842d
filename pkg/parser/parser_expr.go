package parser

import (
	"github.com/keeldb/keel/pkg/token"
)

// Expression precedence parsing using a Pratt parser.
//
// Precedence levels, lowest to highest:
//
//	precOr          OR
//	precAnd         AND
//	precNot         NOT (prefix)
//	precPredicate   BETWEEN, IN, LIKE, IS
//	precComparison  =, !=, <, >, <=, >=
//	precAddition    +, -, ||
//	precMultiply    *, /, %
//	precUnary       -, + (prefix)
//
// All binary operators are left-associative. Prefix NOT takes its
// operand at precNot, so NOT a = b reads as NOT (a = b) while
// NOT a AND b reads as (NOT a) AND b.
const (
	precNone = iota
	precOr
	precAnd
	precNot
	precPredicate
	precComparison
	precAddition
	precMultiply
	precUnary
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(precNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	// Parse prefix (unary operators and primary expressions)
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	// Parse infix operators while their precedence is >= minPrecedence
	for {
		prec := p.infixPrecedence()
		if prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case token.NOT:
		// NOT EXISTS gets its own node rather than a unary wrapper
		if p.checkPeek(token.EXISTS) {
			start := p.token.Pos
			p.nextToken()
			exists := p.parseExistsExpr(true)
			exists.Span = p.spanFrom(start)
			return exists
		}
		start := p.token.Pos
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precNot)
		unary := &UnaryExpr{Op: token.NOT, Expr: expr}
		unary.Span = p.spanFrom(start)
		return unary

	case token.MINUS:
		start := p.token.Pos
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precUnary)
		unary := &UnaryExpr{Op: token.MINUS, Expr: expr}
		unary.Span = p.spanFrom(start)
		return unary

	case token.PLUS:
		start := p.token.Pos
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precUnary)
		unary := &UnaryExpr{Op: token.PLUS, Expr: expr}
		unary.Span = p.spanFrom(start)
		return unary

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an
// infix operator, or precNone if it is not one.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.IS, token.IN, token.BETWEEN, token.LIKE:
		return precPredicate
	case token.NOT:
		// NOT as infix (for NOT IN, NOT BETWEEN, NOT LIKE)
		return precPredicate
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return precComparison
	case token.PLUS, token.MINUS, token.DPIPE:
		return precAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precMultiply
	default:
		return precNone
	}
}

// parseInfixExpr parses an infix expression given the left operand and current precedence.
func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	// Handle special infix operators first
	switch p.token.Type {
	case token.NOT:
		// NOT IN, NOT BETWEEN, NOT LIKE
		return p.parseNotInfixExpr(left)

	case token.IS:
		return p.parseIsExpr(left)

	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, false)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, false)

	case token.LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, false)
	}

	// Standard binary operators
	op := p.token
	p.nextToken()

	// Parse right operand with higher precedence (left-associative)
	right := p.parseExpressionWithPrecedence(prec + 1)

	bin := &BinaryExpr{Left: left, Op: op.Type, Right: right}
	bin.Span = p.exprSpanFrom(left)
	return bin
}

// exprSpanFrom returns the span from the start of left to the end of
// the last consumed token.
func (p *Parser) exprSpanFrom(left Expr) token.Span {
	return token.Span{Start: left.GetSpan().Start, End: p.prev.End}
}

// parseNotInfixExpr handles NOT as an infix modifier (NOT IN, NOT BETWEEN, NOT LIKE).
func (p *Parser) parseNotInfixExpr(left Expr) Expr {
	p.nextToken() // consume NOT

	switch p.token.Type {
	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, true)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, true)

	case token.LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, true)

	default:
		p.addError(ErrExpectedNotOperand)
		return left
	}
}

// parseIsExpr parses IS [NOT] NULL / IS [NOT] TRUE / IS [NOT] FALSE.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.nextToken() // consume IS

	isNot := p.match(token.NOT)

	switch p.token.Type {
	case token.NULL:
		p.nextToken()
		isNull := &IsNullExpr{Expr: left, Not: isNot}
		isNull.Span = p.exprSpanFrom(left)
		return isNull

	case token.TRUE:
		p.nextToken()
		isBool := &IsBoolExpr{Expr: left, Not: isNot, Value: true}
		isBool.Span = p.exprSpanFrom(left)
		return isBool

	case token.FALSE:
		p.nextToken()
		isBool := &IsBoolExpr{Expr: left, Not: isNot, Value: false}
		isBool.Span = p.exprSpanFrom(left)
		return isBool

	default:
		p.addError(ErrExpectedIsOperand)
		return left
	}
}

// parseInExpr parses an IN expression.
func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	p.expect(token.LPAREN)
	in := &InExpr{Expr: left, Not: not}

	// Check if it's a subquery
	if p.check(token.SELECT) || p.check(token.WITH) {
		in.Query = p.parseSelectStmt()
	} else {
		// List of values
		in.Values = p.parseExpressionList()
	}

	p.expect(token.RPAREN)
	in.Span = p.exprSpanFrom(left)
	return in
}

// parseBetweenExpr parses a BETWEEN expression.
func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	between := &BetweenExpr{Expr: left, Not: not}
	// Parse bounds at addition precedence to avoid capturing AND
	between.Low = p.parseExpressionWithPrecedence(precAddition)
	p.expect(token.AND)
	between.High = p.parseExpressionWithPrecedence(precAddition)
	between.Span = p.exprSpanFrom(left)
	return between
}

// parseLikeExpr parses a LIKE expression.
func (p *Parser) parseLikeExpr(left Expr, not bool) Expr {
	like := &LikeExpr{Expr: left, Not: not}
	// Parse pattern at addition precedence
	like.Pattern = p.parseExpressionWithPrecedence(precAddition)
	like.Span = p.exprSpanFrom(left)
	return like
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []Expr {
	var exprs []Expr

	for {
		expr := p.parseExpression()
		exprs = append(exprs, expr)

		if !p.match(token.COMMA) {
			break
		}
	}

	return exprs
}
