// Package analyzer resolves and type-checks parsed statements against
// a catalog. Every column reference is bound to its source relation,
// every function call to a concrete overload, and every expression to
// a result type; violations are collected as diagnostics in one pass
// over the tree rather than reported one at a time.
//
// An analysis never mutates the catalog, and each call owns its own
// scope state, so any number of analyses may share one catalog
// concurrently.
package analyzer

import (
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/token"
	"github.com/keeldb/keel/pkg/types"
)

// clause identifies which part of a query an expression sits in, for
// the context rules on aggregate and window calls.
type clause int

const (
	clauseNone clause = iota
	clauseWhere
	clauseGroupBy
	clauseHaving
	clauseSelect
	clauseOrderBy
	clauseJoinOn
	clauseLimit
	clauseValues
	clauseSet
	clauseMergeWhen
)

var clauseNames = map[clause]string{
	clauseNone:      "this context",
	clauseWhere:     "WHERE",
	clauseGroupBy:   "GROUP BY",
	clauseHaving:    "HAVING",
	clauseSelect:    "the select list",
	clauseOrderBy:   "ORDER BY",
	clauseJoinOn:    "JOIN conditions",
	clauseLimit:     "LIMIT",
	clauseValues:    "VALUES",
	clauseSet:       "UPDATE",
	clauseMergeWhen: "MERGE WHEN conditions",
}

func (c clause) String() string {
	if name, ok := clauseNames[c]; ok {
		return name
	}
	return "this context"
}

// queryContext tracks per-query-core state: the clause currently being
// typed, whether an aggregate has been seen, and the named windows in
// scope. Each SELECT core (subqueries included) gets its own context,
// so an aggregate inside a WHERE subquery validates against the
// subquery's clauses, not the enclosing WHERE.
type queryContext struct {
	clause       clause
	inAggregate  bool
	sawAggregate bool
	windows      map[string]*parser.WindowSpec
	windowSpans  map[string]token.Span
}

// analysis is the transient state of one Analyze call.
type analysis struct {
	catalog *catalog.Catalog
	scope   *scope
	query   []*queryContext
	diags   diag.Diagnostics
	res     *ResolvedStatement
}

// Analyze resolves and type-checks one statement against the catalog.
// It returns either the fully annotated statement or a non-empty
// diagnostic list, never both. A nil catalog behaves like an empty
// one.
func Analyze(stmt parser.Statement, cat *catalog.Catalog) (*ResolvedStatement, diag.Diagnostics) {
	if cat == nil {
		cat = emptyCatalog
	}
	a := &analysis{
		catalog: cat,
		res:     newResolvedStatement(stmt),
	}
	a.analyzeStatement(stmt)
	if len(a.diags) > 0 {
		a.diags.Sort()
		return nil, a.diags
	}
	return a.res, nil
}

var emptyCatalog = func() *catalog.Catalog {
	c, err := catalog.NewBuilder().Build()
	if err != nil {
		panic(err)
	}
	return c
}()

func (a *analysis) analyzeStatement(stmt parser.Statement) {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		a.res.Columns = a.analyzeSelectStmt(s)
	case *parser.InsertStmt:
		a.analyzeInsert(s)
	case *parser.UpdateStmt:
		a.analyzeUpdate(s)
	case *parser.DeleteStmt:
		a.analyzeDelete(s)
	case *parser.MergeStmt:
		a.analyzeMerge(s)
	case *parser.CreateTableStmt:
		a.analyzeCreateTable(s)
	case *parser.CreateViewStmt:
		a.analyzeCreateView(s)
	case *parser.CreateIndexStmt:
		a.analyzeCreateIndex(s)
	case *parser.CreateFunctionStmt:
		a.analyzeCreateFunction(s)
	case *parser.AlterTableStmt:
		a.analyzeAlterTable(s)
	case *parser.AlterRenameStmt:
		a.analyzeAlterRename(s)
	case *parser.DropStmt:
		a.analyzeDrop(s)
	}
}

// ---------- scope and context plumbing ----------

func (a *analysis) pushScope() *scope {
	a.scope = newScope(a.scope)
	return a.scope
}

func (a *analysis) pushBarrierScope() *scope {
	s := newScope(a.scope)
	s.barrier = true
	a.scope = s
	return s
}

func (a *analysis) popScope() {
	a.scope = a.scope.parent
}

func (a *analysis) pushQuery() *queryContext {
	ctx := &queryContext{clause: clauseNone}
	a.query = append(a.query, ctx)
	return ctx
}

func (a *analysis) popQuery() {
	a.query = a.query[:len(a.query)-1]
}

// currentQuery returns the innermost query context, nil outside any
// SELECT core (INSERT values, DDL defaults).
func (a *analysis) currentQuery() *queryContext {
	if len(a.query) == 0 {
		return nil
	}
	return a.query[len(a.query)-1]
}

func (a *analysis) setClause(c clause) clause {
	ctx := a.currentQuery()
	if ctx == nil {
		return clauseNone
	}
	prev := ctx.clause
	ctx.clause = c
	return prev
}

func (a *analysis) restoreClause(c clause) {
	if ctx := a.currentQuery(); ctx != nil {
		ctx.clause = c
	}
}

// ---------- diagnostics ----------

func (a *analysis) errorf(kind diag.Kind, span token.Span, format string, args ...any) {
	a.diags = append(a.diags, diag.New(kind, span, format, args...))
}

func (a *analysis) addDiag(d diag.Diagnostic) {
	a.diags = append(a.diags, d)
}

// record annotates an expression with its resolved type and returns
// the type for the caller's convenience.
func (a *analysis) record(e parser.Expr, t types.Type) types.Type {
	a.res.ExprTypes[e] = t
	return t
}

func invalid() types.Type {
	return types.Type{}
}
