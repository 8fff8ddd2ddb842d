package analyzer

import (
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/types"
)

// OutputColumn is one column of a statement's result shape.
type OutputColumn struct {
	Name     string
	Type     types.Type
	Nullable bool
}

// Binding records where a column reference resolved: the relation it
// came from, the ordinal within that relation, and the column type.
type Binding struct {
	Relation string // effective relation name (alias if present)
	Table    string // underlying catalog table, "" for computed columns
	Column   string // column name as declared
	Ordinal  int
	Type     types.Type
	Nullable bool

	// Correlated is set when the reference resolved in an enclosing
	// query's scope rather than the subquery's own FROM items.
	Correlated bool
}

// ResolvedCall records the overload a function call resolved to.
type ResolvedCall struct {
	Name      string // catalog spelling
	Signature catalog.Signature
}

// ResolvedStatement is the analyzer's output: the statement paired
// with the annotations consumers need to generate plans without
// re-deriving anything. The annotation maps are keyed by node
// identity, the way go/types annotates go/ast trees.
type ResolvedStatement struct {
	Stmt parser.Statement

	// Columns is the statement's result shape. For queries it is the
	// projected column list; for CREATE TABLE and CREATE VIEW it is
	// the defined shape. Statements that produce no rows leave it
	// empty.
	Columns []OutputColumn

	ExprTypes map[parser.Expr]types.Type
	Bindings  map[*parser.ColumnRef]*Binding
	Calls     map[*parser.FuncCall]*ResolvedCall
}

func newResolvedStatement(stmt parser.Statement) *ResolvedStatement {
	return &ResolvedStatement{
		Stmt:      stmt,
		ExprTypes: make(map[parser.Expr]types.Type),
		Bindings:  make(map[*parser.ColumnRef]*Binding),
		Calls:     make(map[*parser.FuncCall]*ResolvedCall),
	}
}

// TypeOf returns the resolved type of an expression. Expressions the
// analysis never reached report the Invalid sentinel.
func (r *ResolvedStatement) TypeOf(e parser.Expr) types.Type {
	return r.ExprTypes[e]
}

// BindingOf returns the resolution record for a column reference.
func (r *ResolvedStatement) BindingOf(ref *parser.ColumnRef) (*Binding, bool) {
	b, ok := r.Bindings[ref]
	return b, ok
}

// SignatureOf returns the overload a call resolved to.
func (r *ResolvedStatement) SignatureOf(call *parser.FuncCall) (*ResolvedCall, bool) {
	c, ok := r.Calls[call]
	return c, ok
}
