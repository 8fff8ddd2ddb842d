package parser

import (
	"github.com/keeldb/keel/pkg/token"
)

// DML statement parsing: INSERT, UPDATE, DELETE, MERGE.
//
// Grammar:
//
//	insert_stmt  → INSERT INTO object_name ["(" ident_list ")"]
//	               (VALUES value_row ("," value_row)* | select_stmt)
//	value_row    → "(" expr_list ")"
//	update_stmt  → UPDATE table_name SET assignments [WHERE expr]
//	assignments  → identifier "=" expr ("," identifier "=" expr)*
//	delete_stmt  → DELETE FROM table_name [WHERE expr]
//	merge_stmt   → MERGE INTO table_name USING table_ref ON expr merge_when+
//	merge_when   → WHEN [NOT] MATCHED [AND expr] THEN merge_action
//	merge_action → UPDATE SET assignments | DELETE
//	             | INSERT ["(" ident_list ")"] VALUES value_row
//
// WHEN MATCHED allows UPDATE and DELETE, WHEN NOT MATCHED allows
// INSERT; the mismatches are grammar errors, not analyzer errors.

// parseInsertStmt parses an INSERT statement.
func (p *Parser) parseInsertStmt() Statement {
	start := p.token.Pos
	p.expect(token.INSERT)
	p.expect(token.INTO)

	stmt := &InsertStmt{}
	stmt.Table = p.parseObjectName()

	// Optional explicit column list
	if p.match(token.LPAREN) {
		stmt.Columns = p.parseIdentList()
		p.expect(token.RPAREN)
	}

	switch {
	case p.match(token.VALUES):
		for {
			stmt.Values = append(stmt.Values, p.parseValueRow())
			if !p.match(token.COMMA) {
				break
			}
		}
	case p.check(token.SELECT) || p.check(token.WITH):
		stmt.Query = p.parseSelectStmt()
	default:
		p.addError(ErrUnexpectedToken, p.token.Type, token.VALUES)
	}

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseValueRow parses one parenthesized VALUES row.
func (p *Parser) parseValueRow() []Expr {
	p.expect(token.LPAREN)
	row := p.parseExpressionList()
	p.expect(token.RPAREN)
	return row
}

// parseUpdateStmt parses an UPDATE statement.
func (p *Parser) parseUpdateStmt() Statement {
	start := p.token.Pos
	p.expect(token.UPDATE)

	stmt := &UpdateStmt{}
	stmt.Table = p.parseTableName()

	p.expect(token.SET)
	stmt.Set = p.parseAssignments()

	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseAssignments parses a comma-separated SET assignment list.
func (p *Parser) parseAssignments() []Assignment {
	var assigns []Assignment

	for {
		assign := Assignment{Column: p.parseIdent()}
		p.expect(token.EQ)
		assign.Value = p.parseExpression()
		assigns = append(assigns, assign)

		if !p.match(token.COMMA) {
			break
		}
	}

	return assigns
}

// parseDeleteStmt parses a DELETE statement.
func (p *Parser) parseDeleteStmt() Statement {
	start := p.token.Pos
	p.expect(token.DELETE)
	p.expect(token.FROM)

	stmt := &DeleteStmt{}
	stmt.Table = p.parseTableName()

	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseMergeStmt parses a MERGE statement.
func (p *Parser) parseMergeStmt() Statement {
	start := p.token.Pos
	p.expect(token.MERGE)
	p.expect(token.INTO)

	stmt := &MergeStmt{}
	stmt.Target = p.parseTableName()

	p.expect(token.USING)
	stmt.Source = p.parseTableRef()

	p.expect(token.ON)
	stmt.On = p.parseExpression()

	for p.check(token.WHEN) {
		stmt.Whens = append(stmt.Whens, p.parseMergeWhen())
	}
	if len(stmt.Whens) == 0 {
		p.addError(ErrUnexpectedToken, p.token.Type, token.WHEN)
	}

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseMergeWhen parses one WHEN [NOT] MATCHED arm.
func (p *Parser) parseMergeWhen() *MergeWhen {
	start := p.token.Pos
	p.expect(token.WHEN)

	when := &MergeWhen{Matched: true}
	if p.match(token.NOT) {
		when.Matched = false
	}
	p.expect(token.MATCHED)

	if p.match(token.AND) {
		when.Condition = p.parseExpression()
	}

	p.expect(token.THEN)
	when.Action = p.parseMergeAction(when.Matched)

	when.Span = p.spanFrom(start)
	return when
}

// parseMergeAction parses the action of a WHEN arm and checks it is
// legal for the arm.
func (p *Parser) parseMergeAction(matched bool) MergeAction {
	switch {
	case p.check(token.UPDATE):
		if !matched {
			p.addError(ErrMergeNotMatched, token.UPDATE)
		}
		p.nextToken()
		p.expect(token.SET)
		return &MergeUpdate{Set: p.parseAssignments()}

	case p.check(token.DELETE):
		if !matched {
			p.addError(ErrMergeNotMatched, token.DELETE)
		}
		p.nextToken()
		return &MergeDelete{}

	case p.check(token.INSERT):
		if matched {
			p.addError(ErrMergeMatchedInsert)
		}
		p.nextToken()
		insert := &MergeInsert{}
		if p.match(token.LPAREN) {
			insert.Columns = p.parseIdentList()
			p.expect(token.RPAREN)
		}
		p.expect(token.VALUES)
		p.expect(token.LPAREN)
		insert.Values = p.parseExpressionList()
		p.expect(token.RPAREN)
		return insert

	default:
		p.addError(ErrExpectedMergeAction, p.token.Type)
		return nil
	}
}
