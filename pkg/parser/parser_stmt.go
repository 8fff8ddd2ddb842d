package parser

import (
	"github.com/keeldb/keel/pkg/token"
)

// SELECT statement parsing: WITH clause, CTEs, SELECT body, SELECT
// list, ORDER BY.
//
// Grammar:
//
//	select_stmt   → [WITH [RECURSIVE] cte_list] select_body
//	cte_list      → cte ("," cte)*
//	cte           → identifier ["(" ident_list ")"] AS "(" select_stmt ")"
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL|DISTINCT] select_body]
//	select_core   → SELECT [DISTINCT|ALL] select_list
//	                [FROM from_clause] [WHERE expr]
//	                [GROUP BY expr_list] [HAVING expr]
//	                [WINDOW window_defs] [ORDER BY order_list]
//	                [LIMIT expr] [OFFSET expr]
//	window_defs   → identifier AS window_spec ("," identifier AS window_spec)*
//	select_list   → select_item ("," select_item)*
//	select_item   → "*" | table "." "*" | expr [AS identifier]
//	order_list    → order_item ("," order_item)*
//	order_item    → expr [ASC|DESC] [NULLS FIRST|LAST]

// parseSelectStmt parses a complete SELECT statement.
func (p *Parser) parseSelectStmt() *SelectStmt {
	start := p.token.Pos
	stmt := &SelectStmt{}

	// Optional WITH clause
	if p.check(token.WITH) {
		stmt.With = p.parseWithClause()
	}

	// Required SELECT body
	stmt.Body = p.parseSelectBody()

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseWithClause parses a WITH clause with CTEs.
func (p *Parser) parseWithClause() *WithClause {
	start := p.token.Pos
	p.expect(token.WITH)
	with := &WithClause{}

	// Optional RECURSIVE
	if p.match(token.RECURSIVE) {
		with.Recursive = true
	}

	// Parse CTE list
	for {
		cte := p.parseCTE()
		with.CTEs = append(with.CTEs, cte)

		if !p.match(token.COMMA) {
			break
		}
	}

	with.Span = p.spanFrom(start)
	return with
}

// parseCTE parses a single CTE.
func (p *Parser) parseCTE() *CTE {
	start := p.token.Pos
	cte := &CTE{}

	cte.Name = p.parseIdent()

	// Optional column aliases
	if p.match(token.LPAREN) {
		cte.Columns = p.parseIdentList()
		p.expect(token.RPAREN)
	}

	p.expect(token.AS)

	// ( select_stmt )
	p.expect(token.LPAREN)
	cte.Select = p.parseSelectStmt()
	p.expect(token.RPAREN)

	cte.Span = p.spanFrom(start)
	return cte
}

// parseSelectBody parses a SELECT body with possible set operations.
func (p *Parser) parseSelectBody() *SelectBody {
	start := p.token.Pos
	body := &SelectBody{}
	body.Left = p.parseSelectCore()

	// Check for set operations
	if p.check(token.UNION) || p.check(token.INTERSECT) || p.check(token.EXCEPT) {
		switch p.token.Type {
		case token.UNION:
			p.nextToken()
			body.Op = SetOpUnion
		case token.INTERSECT:
			p.nextToken()
			body.Op = SetOpIntersect
		case token.EXCEPT:
			p.nextToken()
			body.Op = SetOpExcept
		}

		if p.match(token.ALL) {
			body.All = true
		} else {
			p.match(token.DISTINCT) // optional, the default
		}

		// Parse the right side (recursively for chained operations)
		body.Right = p.parseSelectBody()
	}

	body.Span = p.spanFrom(start)
	return body
}

// parseSelectCore parses a single SELECT clause.
func (p *Parser) parseSelectCore() *SelectCore {
	start := p.token.Pos
	p.expect(token.SELECT)
	core := &SelectCore{}

	// DISTINCT / ALL
	if p.match(token.DISTINCT) {
		core.Distinct = true
	} else {
		p.match(token.ALL) // optional, consume if present
	}

	// SELECT list
	core.Columns = p.parseSelectList()

	// Optional clauses in fixed ANSI order
	if p.match(token.FROM) {
		core.From = p.parseFromClause()
	}

	if p.match(token.WHERE) {
		core.Where = p.parseExpression()
	}

	if p.match(token.GROUP) {
		p.expect(token.BY)
		core.GroupBy = p.parseExpressionList()
	}

	if p.match(token.HAVING) {
		core.Having = p.parseExpression()
	}

	if p.match(token.WINDOW) {
		core.Windows = p.parseWindowDefs()
	}

	if p.match(token.ORDER) {
		p.expect(token.BY)
		core.OrderBy = p.parseOrderByList()
	}

	if p.match(token.LIMIT) {
		core.Limit = p.parseExpression()
	}

	if p.match(token.OFFSET) {
		core.Offset = p.parseExpression()
	}

	core.Span = p.spanFrom(start)
	return core
}

// parseWindowDefs parses the named window list of a WINDOW clause.
func (p *Parser) parseWindowDefs() []WindowDef {
	var defs []WindowDef

	for {
		def := WindowDef{}
		def.Name = p.parseIdent()
		p.expect(token.AS)
		def.Spec = p.parseWindowSpec()
		defs = append(defs, def)

		if !p.match(token.COMMA) {
			break
		}
	}

	return defs
}

// parseSelectList parses the list of SELECT items.
func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem

	for {
		item := p.parseSelectItem()
		items = append(items, item)

		if !p.match(token.COMMA) {
			break
		}
	}

	return items
}

// parseSelectItem parses a single SELECT item.
func (p *Parser) parseSelectItem() SelectItem {
	item := SelectItem{}
	start := p.token.Pos

	// Check for *
	if p.check(token.STAR) {
		item.Star = true
		p.nextToken()
		item.Span = p.spanFrom(start)
		return item
	}

	// Check for table.* pattern using 3-token lookahead (no rollback needed)
	if p.check(token.IDENT) && p.checkPeek(token.DOT) && p.checkPeek2(token.STAR) {
		item.TableStar = p.token.Literal
		p.nextToken() // consume identifier
		p.nextToken() // consume DOT
		p.nextToken() // consume STAR
		item.Span = p.spanFrom(start)
		return item
	}

	// Regular expression
	item.Expr = p.parseExpression()

	// Optional alias
	if p.match(token.AS) {
		if p.check(token.IDENT) {
			item.Alias = p.token.Literal
			p.nextToken()
		} else {
			p.addError(ErrExpectedAlias)
		}
	} else if p.check(token.IDENT) {
		// Alias without AS
		item.Alias = p.token.Literal
		p.nextToken()
	}

	item.Span = p.spanFrom(start)
	return item
}

// parseOrderByList parses a list of ORDER BY items.
func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem

	for {
		item := p.parseOrderByItem()
		items = append(items, item)

		if !p.match(token.COMMA) {
			break
		}
	}

	return items
}

// parseOrderByItem parses a single ORDER BY item.
func (p *Parser) parseOrderByItem() OrderByItem {
	item := OrderByItem{}
	item.Expr = p.parseExpression()

	// ASC / DESC
	if p.match(token.ASC) {
		item.Desc = false
	} else if p.match(token.DESC) {
		item.Desc = true
	}

	// NULLS FIRST / LAST
	if p.match(token.NULLS) {
		if p.match(token.FIRST) {
			b := true
			item.NullsFirst = &b
		} else if p.match(token.LAST) {
			b := false
			item.NullsFirst = &b
		}
	}

	return item
}
