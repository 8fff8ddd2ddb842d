package parser

import (
	"github.com/keeldb/keel/pkg/token"
)

// FROM clause parsing: table references, derived tables, lateral
// subqueries, JOINs.
//
// Grammar:
//
//	from_clause   → table_ref (join)*
//	table_ref     → table_name | derived_table | lateral_table
//	table_name    → [catalog "."] [schema "."] identifier [[AS] identifier]
//	derived_table → "(" select_stmt ")" [[AS] identifier]
//	lateral_table → LATERAL "(" select_stmt ")" [[AS] identifier]
//	join          → [NATURAL] join_type JOIN table_ref [ON expr | USING "(" ident_list ")"]
//	              | "," table_ref
//	join_type     → [INNER] | LEFT [OUTER] | RIGHT [OUTER] | FULL [OUTER] | CROSS

// parseFromClause parses the FROM clause.
func (p *Parser) parseFromClause() *FromClause {
	start := p.token.Pos
	from := &FromClause{}
	from.Source = p.parseTableRef()

	// Parse JOINs
	for {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}

	from.Span = p.spanFrom(start)
	return from
}

// parseTableRef parses a table reference.
func (p *Parser) parseTableRef() TableRef {
	// LATERAL subquery
	if p.check(token.LATERAL) {
		return p.parseLateralTable()
	}

	// Derived table (subquery)
	if p.check(token.LPAREN) {
		return p.parseDerivedTable()
	}

	// Simple table name
	return p.parseTableName()
}

// parseTableName parses a table name with optional schema/catalog and
// alias.
func (p *Parser) parseTableName() *TableName {
	start := p.token.Pos
	table := &TableName{}

	if !p.check(token.IDENT) {
		p.addError(ErrUnexpectedToken, p.token.Type, token.IDENT)
		table.Span = p.token.Span()
		return table
	}

	p.parseQualifiedName(table)

	// Optional alias
	if p.match(token.AS) {
		if p.check(token.IDENT) {
			table.Alias = p.token.Literal
			p.nextToken()
		} else {
			p.addError(ErrExpectedAlias)
		}
	} else if p.check(token.IDENT) {
		table.Alias = p.token.Literal
		p.nextToken()
	}

	table.Span = p.spanFrom(start)
	return table
}

// parseObjectName parses a possibly qualified object name without
// consuming a trailing alias. DDL targets and INSERT use this.
func (p *Parser) parseObjectName() *TableName {
	start := p.token.Pos
	table := &TableName{}

	if !p.check(token.IDENT) {
		p.addError(ErrUnexpectedToken, p.token.Type, token.IDENT)
		table.Span = p.token.Span()
		return table
	}

	p.parseQualifiedName(table)
	table.Span = p.spanFrom(start)
	return table
}

// parseQualifiedName fills in a dotted catalog.schema.name chain.
func (p *Parser) parseQualifiedName(table *TableName) {
	parts := []string{p.token.Literal}
	p.nextToken()

	for p.match(token.DOT) {
		if !p.check(token.IDENT) {
			p.addError(ErrUnexpectedToken, p.token.Type, token.IDENT)
			break
		}
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}

	switch len(parts) {
	case 1:
		table.Name = parts[0]
	case 2:
		table.Schema = parts[0]
		table.Name = parts[1]
	default:
		table.Catalog = parts[0]
		table.Schema = parts[1]
		table.Name = parts[2]
	}
}

// parseDerivedTable parses a derived table (subquery in FROM).
func (p *Parser) parseDerivedTable() *DerivedTable {
	start := p.token.Pos
	p.expect(token.LPAREN)
	derived := &DerivedTable{}
	derived.Select = p.parseSelectStmt()
	p.expect(token.RPAREN)

	if p.match(token.AS) {
		if p.check(token.IDENT) {
			derived.Alias = p.token.Literal
			p.nextToken()
		} else {
			p.addError(ErrExpectedAlias)
		}
	} else if p.check(token.IDENT) {
		derived.Alias = p.token.Literal
		p.nextToken()
	}

	derived.Span = p.spanFrom(start)
	return derived
}

// parseLateralTable parses a LATERAL subquery.
func (p *Parser) parseLateralTable() *LateralTable {
	start := p.token.Pos
	p.expect(token.LATERAL)
	p.expect(token.LPAREN)
	lateral := &LateralTable{}
	lateral.Select = p.parseSelectStmt()
	p.expect(token.RPAREN)

	if p.match(token.AS) {
		if p.check(token.IDENT) {
			lateral.Alias = p.token.Literal
			p.nextToken()
		} else {
			p.addError(ErrExpectedAlias)
		}
	} else if p.check(token.IDENT) {
		lateral.Alias = p.token.Literal
		p.nextToken()
	}

	lateral.Span = p.spanFrom(start)
	return lateral
}

// parseJoin parses a JOIN clause. Returns nil when the current token
// does not start a join.
func (p *Parser) parseJoin() *Join {
	start := p.token.Pos
	join := &Join{}

	// Comma join (implicit cross join)
	if p.match(token.COMMA) {
		join.Type = JoinComma
		join.Right = p.parseTableRef()
		join.Span = p.spanFrom(start)
		return join
	}

	// NATURAL modifier
	if p.match(token.NATURAL) {
		join.Natural = true
	}

	switch {
	case p.match(token.INNER):
		join.Type = JoinInner
	case p.match(token.LEFT):
		p.match(token.OUTER)
		join.Type = JoinLeft
	case p.match(token.RIGHT):
		p.match(token.OUTER)
		join.Type = JoinRight
	case p.match(token.FULL):
		p.match(token.OUTER)
		join.Type = JoinFull
	case p.match(token.CROSS):
		join.Type = JoinCross
	case p.check(token.JOIN):
		// Plain JOIN = INNER JOIN
		join.Type = JoinInner
	default:
		if join.Natural {
			p.addError(ErrUnexpectedToken, p.token.Type, token.JOIN)
		}
		return nil
	}

	if !p.expect(token.JOIN) {
		return nil
	}

	join.Right = p.parseTableRef()
	p.parseJoinCondition(join)
	join.Span = p.spanFrom(start)
	return join
}

// parseJoinCondition handles ON/USING/NATURAL validation. NATURAL and
// CROSS joins carry no condition; the analyzer derives NATURAL join
// columns from the catalog.
func (p *Parser) parseJoinCondition(join *Join) {
	switch {
	case join.Natural:
		if p.check(token.ON) {
			p.addError(ErrNaturalJoinOn)
		}
		if p.check(token.USING) {
			p.addError(ErrNaturalJoinUsing)
		}
	case join.Type == JoinCross:
		// no condition
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.match(token.USING):
		join.Using = p.parseUsingColumns()
	}
}

// parseUsingColumns parses the column list in USING (col1, col2, ...).
func (p *Parser) parseUsingColumns() []Ident {
	p.expect(token.LPAREN)
	cols := p.parseIdentList()
	p.expect(token.RPAREN)
	return cols
}
