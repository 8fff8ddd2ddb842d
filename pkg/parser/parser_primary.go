package parser

import (
	"github.com/keeldb/keel/pkg/token"
)

// Primary expression parsing: literals, column refs, function calls,
// constructors.
//
// Grammar:
//
//	primary       → literal | column_ref | func_call | paren_expr | case_expr
//	              | cast_expr | exists_expr | array_ctor | row_ctor
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL
//	column_ref    → [table "."] column | [schema "." table "."] column
//	func_call     → identifier "(" [DISTINCT] [args | "*"] ")"
//	                [FILTER "(" WHERE expr ")"] [OVER window_spec]
//	args          → arg ("," arg)*
//	arg           → expr | identifier "=>" expr
//	array_ctor    → ARRAY "[" [expr_list] "]"
//	row_ctor      → ROW "(" [expr_list] ")" | "(" expr "," expr_list ")"

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case token.NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		lit.Span = p.token.Span()
		p.nextToken()
		return lit

	case token.STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		lit.Span = p.token.Span()
		p.nextToken()
		return lit

	case token.TRUE:
		lit := &Literal{Type: LiteralBool, Value: "true"}
		lit.Span = p.token.Span()
		p.nextToken()
		return lit

	case token.FALSE:
		lit := &Literal{Type: LiteralBool, Value: "false"}
		lit.Span = p.token.Span()
		p.nextToken()
		return lit

	case token.NULL:
		lit := &Literal{Type: LiteralNull, Value: "null"}
		lit.Span = p.token.Span()
		p.nextToken()
		return lit

	case token.CASE:
		return p.parseCaseExpr()

	case token.CAST:
		return p.parseCastExpr()

	case token.EXISTS:
		return p.parseExistsExpr(false)

	case token.ARRAY:
		return p.parseArrayExpr()

	case token.ROW:
		return p.parseRowExpr()

	case token.IDENT:
		return p.parseIdentifierExpr()

	case token.LPAREN:
		return p.parseParenExpr()

	case token.STAR:
		// COUNT(*) and SELECT * contexts
		star := &StarExpr{}
		star.Span = p.token.Span()
		p.nextToken()
		return star

	default:
		p.addError(ErrExpectedExpr, p.token.Type)
		// Advance so recovery makes progress, but never past a
		// statement boundary.
		if !p.check(token.SEMICOLON) && !p.check(token.EOF) {
			p.nextToken()
		}
		return nil
	}
}

// parseIdentifierExpr parses an identifier which could be a column ref or function call.
func (p *Parser) parseIdentifierExpr() Expr {
	first := p.token
	p.nextToken()

	// Check if it's a function call
	if p.check(token.LPAREN) {
		return p.parseFuncCall(first)
	}

	// Qualified column reference: table.column or schema.table.column
	if p.check(token.DOT) {
		return p.parseQualifiedColumnRef(first)
	}

	// Simple column reference
	ref := &ColumnRef{Column: first.Literal}
	ref.Span = first.Span()
	return ref
}

// parseQualifiedColumnRef parses a qualified column reference.
func (p *Parser) parseQualifiedColumnRef(first token.Token) Expr {
	parts := []string{first.Literal}

	for p.match(token.DOT) {
		// Check for table.*
		if p.check(token.STAR) {
			star := &StarExpr{Table: parts[len(parts)-1]}
			star.Span = token.Span{Start: first.Pos, End: p.token.End}
			p.nextToken()
			return star
		}

		if !p.check(token.IDENT) {
			p.addError(ErrUnexpectedToken, p.token.Type, token.IDENT)
			break
		}
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}

	// Build column reference
	ref := &ColumnRef{}
	switch len(parts) {
	case 2:
		ref.Table = parts[0]
		ref.Column = parts[1]
	case 3:
		// schema.table.column - keep the table.column pair
		ref.Table = parts[1]
		ref.Column = parts[2]
	default:
		ref.Column = parts[len(parts)-1]
	}
	ref.Span = token.Span{Start: first.Pos, End: p.prev.End}
	return ref
}

// parseFuncCall parses a function call.
func (p *Parser) parseFuncCall(name token.Token) Expr {
	fn := &FuncCall{Name: name.Literal}

	p.expect(token.LPAREN)

	// Handle COUNT(*) or other aggregate(*)
	if p.check(token.STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(token.RPAREN) {
		// Check for DISTINCT / ALL
		if p.match(token.DISTINCT) {
			fn.Distinct = true
		} else {
			p.match(token.ALL)
		}

		// Parse arguments; named arguments use name => expr
		for {
			if p.check(token.IDENT) && p.checkPeek(token.ARROW) {
				arg := NamedArg{Name: p.parseIdent()}
				p.expect(token.ARROW)
				arg.Value = p.parseExpression()
				fn.NamedArgs = append(fn.NamedArgs, arg)
			} else {
				fn.Args = append(fn.Args, p.parseExpression())
			}

			if !p.match(token.COMMA) {
				break
			}
		}
	}

	p.expect(token.RPAREN)

	// FILTER clause (for aggregates)
	if p.match(token.FILTER) {
		p.expect(token.LPAREN)
		p.expect(token.WHERE)
		fn.Filter = p.parseExpression()
		p.expect(token.RPAREN)
	}

	// OVER clause (window function)
	if p.match(token.OVER) {
		fn.Window = p.parseWindowSpec()
	}

	fn.Span = token.Span{Start: name.Pos, End: p.prev.End}
	return fn
}

// parseArrayExpr parses an ARRAY[...] constructor. An empty ARRAY[]
// parses; the analyzer decides whether its type can be inferred.
func (p *Parser) parseArrayExpr() Expr {
	start := p.token.Pos
	p.expect(token.ARRAY)
	p.expect(token.LBRACKET)

	arr := &ArrayExpr{}
	if !p.check(token.RBRACKET) {
		arr.Elems = p.parseExpressionList()
	}
	p.expect(token.RBRACKET)

	arr.Span = p.spanFrom(start)
	return arr
}

// parseRowExpr parses a ROW(...) constructor.
func (p *Parser) parseRowExpr() Expr {
	start := p.token.Pos
	p.expect(token.ROW)
	p.expect(token.LPAREN)

	row := &RowExpr{}
	if !p.check(token.RPAREN) {
		row.Items = p.parseExpressionList()
	}
	p.expect(token.RPAREN)

	row.Span = p.spanFrom(start)
	return row
}
