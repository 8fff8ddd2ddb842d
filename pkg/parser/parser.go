// Package parser turns SQL text into an AST.
//
// # Usage
//
//	stmts, diags := parser.ParseStatements("SELECT a, b FROM t; DELETE FROM t")
//	if len(diags) > 0 {
//	    // handle diagnostics
//	}
//
// Parsing never fails hard. Lexer and parser problems are reported as
// diagnostics; after a syntax error the parser resynchronizes at the
// next statement boundary, so a bad statement costs one ParseError and
// the statements after it still parse.
//
// # Grammar Overview
//
// The parser implements a recursive descent parser for an ANSI SQL core:
//
//	script        → statement (";" statement)*
//	statement     → select_stmt | insert_stmt | update_stmt | delete_stmt
//	              | merge_stmt | create_stmt | alter_stmt | drop_stmt
//	select_stmt   → [WITH [RECURSIVE] cte_list] select_body
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL|DISTINCT] select_body]
//	select_core   → SELECT [DISTINCT|ALL] select_list [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	                [WINDOW window_defs] [ORDER BY order_list]
//	                [LIMIT expr] [OFFSET expr]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/token"
)

// Parser parses SQL into an AST.
type Parser struct {
	lexer *Lexer
	token token.Token // current token
	peek  token.Token // lookahead token
	peek2 token.Token // second lookahead token
	prev  token.Token // last consumed token, for span ends

	diags  diag.Diagnostics
	failed bool // a ParseError was already recorded for this statement
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single SQL statement and returns it with any
// diagnostics. A trailing semicolon is allowed; further statements are
// a parse error.
func Parse(sql string) (Statement, diag.Diagnostics) {
	p := NewParser(sql)
	stmt := p.parseStatement()
	p.endStatement()
	if !p.check(token.EOF) {
		p.addError(ErrUnexpectedToken, p.token.Type, "end of input")
	}
	return stmt, p.diagnostics()
}

// ParseStatements parses a semicolon-separated batch and returns the
// statements in source order. A statement that fails to parse is
// omitted from the result; its ParseError is in the diagnostics and
// parsing resumes at the next semicolon.
func ParseStatements(sql string) ([]Statement, diag.Diagnostics) {
	p := NewParser(sql)
	var stmts []Statement
	for !p.check(token.EOF) {
		if p.match(token.SEMICOLON) {
			continue
		}
		before := len(p.diags)
		stmt := p.parseStatement()
		p.endStatement()
		if stmt != nil && len(p.diags) == before {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, p.diagnostics()
}

// parseStatement dispatches on the leading keyword.
func (p *Parser) parseStatement() Statement {
	switch p.token.Type {
	case token.WITH, token.SELECT:
		return p.parseSelectStmt()
	case token.INSERT:
		return p.parseInsertStmt()
	case token.UPDATE:
		return p.parseUpdateStmt()
	case token.DELETE:
		return p.parseDeleteStmt()
	case token.MERGE:
		return p.parseMergeStmt()
	case token.CREATE:
		return p.parseCreateStmt()
	case token.ALTER:
		return p.parseAlterStmt()
	case token.DROP:
		return p.parseDropStmt()
	default:
		p.addError(ErrExpectedStatement, p.token.Type)
		return nil
	}
}

// endStatement consumes the statement terminator. After an error it
// skips ahead to the next semicolon so the following statement starts
// clean.
func (p *Parser) endStatement() {
	if !p.check(token.SEMICOLON) && !p.check(token.EOF) {
		p.addError(ErrUnexpectedToken, p.token.Type, token.SEMICOLON)
	}
	for !p.check(token.SEMICOLON) && !p.check(token.EOF) {
		p.nextToken()
	}
	p.match(token.SEMICOLON)
	p.failed = false
}

// diagnostics merges lexer and parser diagnostics in source order.
func (p *Parser) diagnostics() diag.Diagnostics {
	all := append(diag.Diagnostics{}, p.lexer.Diagnostics()...)
	all = append(all, p.diags...)
	if len(all) == 0 {
		return nil
	}
	all.Sort()
	return all
}

// ---------- Token Helpers ----------

// nextToken advances to the next token. ILLEGAL tokens are dropped
// here; the lexer already reported them.
func (p *Parser) nextToken() {
	p.prev = p.token
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
	for p.peek2.Type == token.ILLEGAL {
		p.peek2 = p.lexer.NextToken()
	}
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t token.TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(ErrUnexpectedToken, p.token.Type, t)
	return false
}

// addError records a ParseError at the current token. Only the first
// error per statement is kept; everything after it in the same
// statement is noise from the same root cause.
func (p *Parser) addError(format string, args ...any) {
	p.addErrorAt(p.token.Span(), format, args...)
}

// addErrorAt records a ParseError at the given span.
func (p *Parser) addErrorAt(span token.Span, format string, args ...any) {
	if p.failed {
		return
	}
	p.failed = true
	p.diags = append(p.diags, diag.New(diag.ParseError, span, format, args...))
}

// spanFrom returns the span from start to the end of the last
// consumed token.
func (p *Parser) spanFrom(start token.Position) token.Span {
	return token.Span{Start: start, End: p.prev.End}
}

// ---------- Name Helpers ----------

// parseIdent consumes an identifier token.
func (p *Parser) parseIdent() Ident {
	if !p.check(token.IDENT) {
		p.addError(ErrUnexpectedToken, p.token.Type, token.IDENT)
		return Ident{Span: p.token.Span()}
	}
	id := Ident{Name: p.token.Literal, Span: p.token.Span()}
	p.nextToken()
	return id
}

// parseIdentList parses a comma-separated identifier list.
func (p *Parser) parseIdentList() []Ident {
	var ids []Ident
	for {
		ids = append(ids, p.parseIdent())
		if !p.match(token.COMMA) {
			break
		}
	}
	return ids
}
