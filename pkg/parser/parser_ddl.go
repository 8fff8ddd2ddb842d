package parser

import (
	"github.com/keeldb/keel/pkg/token"
)

// DDL statement parsing: CREATE, ALTER, DROP for tables, views,
// indexes, and functions.
//
// Grammar:
//
//	create_stmt     → CREATE (create_table | create_view | create_index | create_function)
//	create_table    → TABLE [IF NOT EXISTS] object_name "(" table_elem ("," table_elem)* ")"
//	table_elem      → column_def | PRIMARY KEY "(" ident_list ")"
//	column_def      → identifier type_name [NOT NULL] [PRIMARY KEY]
//	create_view     → VIEW [IF NOT EXISTS] object_name ["(" ident_list ")"] AS select_stmt
//	create_index    → [UNIQUE] INDEX [IF NOT EXISTS] identifier ON object_name "(" ident_list ")"
//	create_function → [AGGREGATE|WINDOW] FUNCTION identifier "(" [type_name_list] ")" RETURNS type_name
//	alter_stmt      → ALTER TABLE object_name alter_action
//	                | ALTER (VIEW|INDEX|FUNCTION) object_name RENAME TO identifier
//	alter_action    → ADD [COLUMN] column_def
//	                | DROP [COLUMN] [IF EXISTS] identifier
//	                | RENAME COLUMN identifier TO identifier
//	                | RENAME TO identifier
//	drop_stmt       → DROP (TABLE|VIEW|INDEX|FUNCTION) [IF EXISTS] object_name

// parseCreateStmt dispatches on the object kind after CREATE.
func (p *Parser) parseCreateStmt() Statement {
	start := p.token.Pos
	p.expect(token.CREATE)

	switch p.token.Type {
	case token.TABLE:
		return p.parseCreateTable(start)
	case token.VIEW:
		return p.parseCreateView(start)
	case token.UNIQUE, token.INDEX:
		return p.parseCreateIndex(start)
	case token.AGGREGATE, token.WINDOW, token.FUNCTION:
		return p.parseCreateFunction(start)
	default:
		p.addError(ErrExpectedCreateKind, p.token.Type)
		return nil
	}
}

// parseCreateTable parses CREATE TABLE.
func (p *Parser) parseCreateTable(start token.Position) Statement {
	p.expect(token.TABLE)

	stmt := &CreateTableStmt{}
	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Name = p.parseObjectName()

	p.expect(token.LPAREN)
	for {
		if p.check(token.PRIMARY) {
			p.nextToken()
			p.expect(token.KEY)
			p.expect(token.LPAREN)
			stmt.PrimaryKey = p.parseIdentList()
			p.expect(token.RPAREN)
		} else {
			stmt.Columns = append(stmt.Columns, p.parseColumnDef())
		}

		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseColumnDef parses one column definition.
func (p *Parser) parseColumnDef() *ColumnDef {
	def := &ColumnDef{}
	def.Name = p.parseIdent()
	def.Type = p.parseTypeName()

	for {
		switch {
		case p.match(token.NOT):
			p.expect(token.NULL)
			def.NotNull = true
		case p.match(token.PRIMARY):
			p.expect(token.KEY)
			def.PrimaryKey = true
		default:
			return def
		}
	}
}

// parseCreateView parses CREATE VIEW.
func (p *Parser) parseCreateView(start token.Position) Statement {
	p.expect(token.VIEW)

	stmt := &CreateViewStmt{}
	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Name = p.parseObjectName()

	// Optional column aliases
	if p.match(token.LPAREN) {
		stmt.Columns = p.parseIdentList()
		p.expect(token.RPAREN)
	}

	p.expect(token.AS)
	stmt.Query = p.parseSelectStmt()

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseCreateIndex parses CREATE [UNIQUE] INDEX.
func (p *Parser) parseCreateIndex(start token.Position) Statement {
	stmt := &CreateIndexStmt{}
	stmt.Unique = p.match(token.UNIQUE)
	p.expect(token.INDEX)

	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Name = p.parseIdent()

	p.expect(token.ON)
	stmt.Table = p.parseObjectName()

	p.expect(token.LPAREN)
	stmt.Columns = p.parseIdentList()
	p.expect(token.RPAREN)

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseCreateFunction parses the signature registration form of
// CREATE FUNCTION. There is no function body; only the name, the
// parameter types, and the return type are declared.
func (p *Parser) parseCreateFunction(start token.Position) Statement {
	stmt := &CreateFunctionStmt{Class: FuncScalar}
	switch {
	case p.match(token.AGGREGATE):
		stmt.Class = FuncAggregate
	case p.match(token.WINDOW):
		stmt.Class = FuncWindow
	}
	p.expect(token.FUNCTION)

	stmt.Name = p.parseIdent()

	p.expect(token.LPAREN)
	if !p.check(token.RPAREN) {
		for {
			stmt.Params = append(stmt.Params, p.parseTypeName())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)

	p.expect(token.RETURNS)
	stmt.Returns = p.parseTypeName()

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseAlterStmt parses ALTER statements.
func (p *Parser) parseAlterStmt() Statement {
	start := p.token.Pos
	p.expect(token.ALTER)

	switch p.token.Type {
	case token.TABLE:
		p.nextToken()
		stmt := &AlterTableStmt{}
		stmt.Table = p.parseObjectName()
		stmt.Action = p.parseAlterAction()
		stmt.Span = p.spanFrom(start)
		return stmt

	case token.VIEW, token.INDEX, token.FUNCTION:
		stmt := &AlterRenameStmt{Kind: objectKindFor(p.token.Type)}
		p.nextToken()
		stmt.Name = p.parseObjectName()
		p.expect(token.RENAME)
		p.expect(token.TO)
		stmt.To = p.parseIdent()
		stmt.Span = p.spanFrom(start)
		return stmt

	default:
		p.addError(ErrExpectedAlterKind, p.token.Type)
		return nil
	}
}

// parseAlterAction parses the single action of an ALTER TABLE.
func (p *Parser) parseAlterAction() AlterAction {
	switch {
	case p.match(token.ADD):
		p.match(token.COLUMN)
		return &AddColumn{Column: p.parseColumnDef()}

	case p.match(token.DROP):
		p.match(token.COLUMN)
		action := &DropColumn{}
		action.IfExists = p.parseIfExists()
		action.Name = p.parseIdent()
		return action

	case p.match(token.RENAME):
		if p.match(token.COLUMN) {
			action := &RenameColumn{From: p.parseIdent()}
			p.expect(token.TO)
			action.To = p.parseIdent()
			return action
		}
		p.expect(token.TO)
		return &RenameTable{To: p.parseIdent()}

	default:
		p.addError(ErrExpectedAlterAction, p.token.Type)
		return nil
	}
}

// parseDropStmt parses DROP statements.
func (p *Parser) parseDropStmt() Statement {
	start := p.token.Pos
	p.expect(token.DROP)

	stmt := &DropStmt{}
	switch p.token.Type {
	case token.TABLE, token.VIEW, token.INDEX, token.FUNCTION:
		stmt.Kind = objectKindFor(p.token.Type)
		p.nextToken()
	default:
		p.addError(ErrExpectedDropKind, p.token.Type)
	}

	stmt.IfExists = p.parseIfExists()
	stmt.Name = p.parseObjectName()

	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseIfNotExists consumes an IF NOT EXISTS clause if present.
func (p *Parser) parseIfNotExists() bool {
	if !p.match(token.IF) {
		return false
	}
	p.expect(token.NOT)
	p.expect(token.EXISTS)
	return true
}

// parseIfExists consumes an IF EXISTS clause if present.
func (p *Parser) parseIfExists() bool {
	if !p.match(token.IF) {
		return false
	}
	p.expect(token.EXISTS)
	return true
}

// objectKindFor maps an object-kind keyword to its ObjectKind.
func objectKindFor(t token.TokenType) ObjectKind {
	switch t {
	case token.VIEW:
		return ObjectView
	case token.INDEX:
		return ObjectIndex
	case token.FUNCTION:
		return ObjectFunction
	default:
		return ObjectTable
	}
}
