package lineage

import (
	"strings"

	"github.com/keeldb/keel/pkg/parser"
)

// exprLineage computes the value lineage of one expression: the base
// columns it draws from and the functions applied along the way. The
// caller fills in the output name.
func (e *extractor) exprLineage(expr parser.Expr) ColumnLineage {
	if ref, ok := bareRef(expr); ok {
		if lin, ok := e.refLineage(ref); ok {
			return lin
		}
	}

	w := &walker{e: e, set: newSourceSet()}
	w.walk(expr)
	lin := ColumnLineage{
		Sources:   w.set.sorted(),
		Functions: sortedNames(w.funcs),
	}
	if len(lin.Sources) == 0 {
		lin.Transform = Constant
	} else {
		lin.Transform = Expression
	}
	return lin
}

// refLineage resolves a column reference through its binding. The
// frame's view of the relation is preferred, so references into CTEs
// and derived tables inherit the lineage of the column they name, and
// a USING-merged column carries both sides the same way star
// expansion reports it. References with no mirrored relation, like
// DML target columns, fall back to the binding's base table.
func (e *extractor) refLineage(ref *parser.ColumnRef) (ColumnLineage, bool) {
	b, ok := e.res.BindingOf(ref)
	if !ok {
		return ColumnLineage{}, false
	}
	if b.Relation != "" {
		if r, ok := e.frame.findRel(b.Relation); ok {
			if col, ok := r.column(b.Column); ok {
				lin := col.lin
				lin.Name = ""
				return lin, true
			}
		}
	}
	if b.Table != "" {
		e.tables[b.Table] = struct{}{}
		return ColumnLineage{
			Transform: Direct,
			Sources:   []SourceColumn{{Table: b.Table, Column: b.Column}},
		}, true
	}
	if b.Relation == "" {
		return ColumnLineage{}, false
	}
	return ColumnLineage{Transform: Expression}, true
}

// bareRef unwraps parentheses around a plain column reference.
func bareRef(expr parser.Expr) (*parser.ColumnRef, bool) {
	for {
		switch ex := expr.(type) {
		case *parser.ColumnRef:
			return ex, true
		case *parser.ParenExpr:
			expr = ex.Expr
		default:
			return nil, false
		}
	}
}

// walker accumulates the sources and functions of one expression tree.
type walker struct {
	e     *extractor
	set   *sourceSet
	funcs map[string]struct{}
}

func (w *walker) addFunc(name string) {
	if w.funcs == nil {
		w.funcs = make(map[string]struct{})
	}
	w.funcs[name] = struct{}{}
}

func (w *walker) merge(lin ColumnLineage) {
	w.set.add(lin.Sources...)
	for _, fn := range lin.Functions {
		w.addFunc(fn)
	}
}

// walk visits every expression that feeds the value. Window partition
// and order keys count: they pick the rows a window function sees.
func (w *walker) walk(expr parser.Expr) {
	switch ex := expr.(type) {
	case nil:
		return

	case *parser.ColumnRef:
		if lin, ok := w.e.refLineage(ex); ok {
			w.merge(lin)
		}

	case *parser.Literal, *parser.StarExpr:
		// no inputs

	case *parser.BinaryExpr:
		w.walk(ex.Left)
		w.walk(ex.Right)

	case *parser.UnaryExpr:
		w.walk(ex.Expr)

	case *parser.FuncCall:
		w.funcCall(ex)

	case *parser.CaseExpr:
		w.walk(ex.Operand)
		for _, when := range ex.Whens {
			w.walk(when.Condition)
			w.walk(when.Result)
		}
		w.walk(ex.Else)

	case *parser.CastExpr:
		w.walk(ex.Expr)

	case *parser.InExpr:
		w.walk(ex.Expr)
		for _, v := range ex.Values {
			w.walk(v)
		}
		if ex.Query != nil {
			w.subquery(ex.Query)
		}

	case *parser.BetweenExpr:
		w.walk(ex.Expr)
		w.walk(ex.Low)
		w.walk(ex.High)

	case *parser.IsNullExpr:
		w.walk(ex.Expr)

	case *parser.IsBoolExpr:
		w.walk(ex.Expr)

	case *parser.LikeExpr:
		w.walk(ex.Expr)
		w.walk(ex.Pattern)

	case *parser.ParenExpr:
		w.walk(ex.Expr)

	case *parser.SubqueryExpr:
		w.subquery(ex.Select)

	case *parser.ExistsExpr:
		w.subquery(ex.Select)

	case *parser.ArrayExpr:
		for _, el := range ex.Elems {
			w.walk(el)
		}

	case *parser.RowExpr:
		for _, item := range ex.Items {
			w.walk(item)
		}
	}
}

func (w *walker) funcCall(call *parser.FuncCall) {
	w.addFunc(w.e.callName(call))
	for _, arg := range call.Args {
		w.walk(arg)
	}
	for _, arg := range call.NamedArgs {
		w.walk(arg.Value)
	}
	w.walk(call.Filter)
	if call.Window != nil {
		w.windowSpec(call.Window)
	}
}

func (w *walker) windowSpec(spec *parser.WindowSpec) {
	if spec.Name != "" {
		if named, ok := w.e.windows[strings.ToLower(spec.Name)]; ok {
			w.windowSpec(named)
		}
	}
	for _, p := range spec.PartitionBy {
		w.walk(p)
	}
	for _, item := range spec.OrderBy {
		w.walk(item.Expr)
	}
	if spec.Frame != nil {
		if spec.Frame.Start != nil {
			w.walk(spec.Frame.Start.Offset)
		}
		if spec.Frame.End != nil {
			w.walk(spec.Frame.End.Offset)
		}
	}
}

// subquery folds a nested query's projection into the surrounding
// value: the tables it reads are recorded statement-wide, its output
// sources flow into whatever expression embeds it.
func (w *walker) subquery(sel *parser.SelectStmt) {
	for _, col := range w.e.selectStmt(sel) {
		w.merge(ColumnLineage{Sources: col.Sources, Functions: col.Functions})
	}
}

// callName prefers the catalog spelling the call resolved to.
func (e *extractor) callName(call *parser.FuncCall) string {
	if c, ok := e.res.SignatureOf(call); ok {
		return c.Name
	}
	return strings.ToLower(call.Name)
}

// resultName derives the output column label the way result shapes
// are named: alias first, then a name the expression implies.
func resultName(e parser.Expr, alias string) string {
	if alias != "" {
		return alias
	}
	switch ex := e.(type) {
	case *parser.ColumnRef:
		return ex.Column
	case *parser.FuncCall:
		return strings.ToLower(ex.Name)
	case *parser.CastExpr:
		return strings.ToLower(ex.Type.Name)
	case *parser.ExistsExpr:
		return "exists"
	case *parser.CaseExpr:
		return "case"
	case *parser.ParenExpr:
		return resultName(ex.Expr, "")
	}
	return "?column?"
}
