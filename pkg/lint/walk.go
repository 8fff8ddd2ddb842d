package lint

import "github.com/keeldb/keel/pkg/parser"

// walk visits every AST node reachable from node in pre-order:
// statements, nested selects, cores, table references, joins, and
// expressions. fn returning false skips the node's children. Subquery
// interiors hang off their *parser.SelectStmt node, so a rule that
// must not cross scope boundaries returns false there.
func walk(node any, fn func(any) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *parser.SelectStmt:
		if n.With != nil {
			for _, cte := range n.With.CTEs {
				if cte.Select != nil {
					walk(cte.Select, fn)
				}
			}
		}
		if n.Body != nil {
			walk(n.Body, fn)
		}

	case *parser.SelectBody:
		if n.Left != nil {
			walk(n.Left, fn)
		}
		if n.Right != nil {
			walk(n.Right, fn)
		}

	case *parser.SelectCore:
		for _, item := range n.Columns {
			walk(item.Expr, fn)
		}
		if n.From != nil {
			walk(n.From, fn)
		}
		walk(n.Where, fn)
		for _, e := range n.GroupBy {
			walk(e, fn)
		}
		walk(n.Having, fn)
		for _, def := range n.Windows {
			walkWindowSpec(def.Spec, fn)
		}
		for _, item := range n.OrderBy {
			walk(item.Expr, fn)
		}
		walk(n.Limit, fn)
		walk(n.Offset, fn)

	case *parser.FromClause:
		walk(n.Source, fn)
		for _, join := range n.Joins {
			walk(join, fn)
		}

	case *parser.Join:
		walk(n.Right, fn)
		walk(n.Condition, fn)

	case *parser.DerivedTable:
		if n.Select != nil {
			walk(n.Select, fn)
		}

	case *parser.LateralTable:
		if n.Select != nil {
			walk(n.Select, fn)
		}

	case *parser.InsertStmt:
		if n.Query != nil {
			walk(n.Query, fn)
		}
		for _, row := range n.Values {
			for _, e := range row {
				walk(e, fn)
			}
		}

	case *parser.UpdateStmt:
		for _, a := range n.Set {
			walk(a.Value, fn)
		}
		walk(n.Where, fn)

	case *parser.DeleteStmt:
		walk(n.Where, fn)

	case *parser.MergeStmt:
		walk(n.Source, fn)
		walk(n.On, fn)
		for _, when := range n.Whens {
			walk(when.Condition, fn)
			switch act := when.Action.(type) {
			case *parser.MergeUpdate:
				for _, a := range act.Set {
					walk(a.Value, fn)
				}
			case *parser.MergeInsert:
				for _, v := range act.Values {
					walk(v, fn)
				}
			}
		}

	case *parser.CreateViewStmt:
		if n.Query != nil {
			walk(n.Query, fn)
		}

	case *parser.BinaryExpr:
		walk(n.Left, fn)
		walk(n.Right, fn)
	case *parser.UnaryExpr:
		walk(n.Expr, fn)
	case *parser.FuncCall:
		for _, arg := range n.Args {
			walk(arg, fn)
		}
		for _, arg := range n.NamedArgs {
			walk(arg.Value, fn)
		}
		walk(n.Filter, fn)
		walkWindowSpec(n.Window, fn)
	case *parser.CaseExpr:
		walk(n.Operand, fn)
		for _, w := range n.Whens {
			walk(w.Condition, fn)
			walk(w.Result, fn)
		}
		walk(n.Else, fn)
	case *parser.CastExpr:
		walk(n.Expr, fn)
	case *parser.InExpr:
		walk(n.Expr, fn)
		for _, v := range n.Values {
			walk(v, fn)
		}
		if n.Query != nil {
			walk(n.Query, fn)
		}
	case *parser.BetweenExpr:
		walk(n.Expr, fn)
		walk(n.Low, fn)
		walk(n.High, fn)
	case *parser.IsNullExpr:
		walk(n.Expr, fn)
	case *parser.IsBoolExpr:
		walk(n.Expr, fn)
	case *parser.LikeExpr:
		walk(n.Expr, fn)
		walk(n.Pattern, fn)
	case *parser.ParenExpr:
		walk(n.Expr, fn)
	case *parser.SubqueryExpr:
		if n.Select != nil {
			walk(n.Select, fn)
		}
	case *parser.ExistsExpr:
		if n.Select != nil {
			walk(n.Select, fn)
		}
	case *parser.ArrayExpr:
		for _, el := range n.Elems {
			walk(el, fn)
		}
	case *parser.RowExpr:
		for _, it := range n.Items {
			walk(it, fn)
		}
	}
}

func walkWindowSpec(spec *parser.WindowSpec, fn func(any) bool) {
	if spec == nil {
		return
	}
	for _, e := range spec.PartitionBy {
		walk(e, fn)
	}
	for _, item := range spec.OrderBy {
		walk(item.Expr, fn)
	}
	if spec.Frame != nil {
		if spec.Frame.Start != nil {
			walk(spec.Frame.Start.Offset, fn)
		}
		if spec.Frame.End != nil {
			walk(spec.Frame.End.Offset, fn)
		}
	}
}

// collectCores gathers every SELECT core in the statement, nested
// selects included.
func collectCores(stmt parser.Statement) []*parser.SelectCore {
	var cores []*parser.SelectCore
	walk(stmt, func(node any) bool {
		if core, ok := node.(*parser.SelectCore); ok {
			cores = append(cores, core)
		}
		return true
	})
	return cores
}

// collectBodies gathers every set-operation body node.
func collectBodies(stmt parser.Statement) []*parser.SelectBody {
	var bodies []*parser.SelectBody
	walk(stmt, func(node any) bool {
		if body, ok := node.(*parser.SelectBody); ok {
			bodies = append(bodies, body)
		}
		return true
	})
	return bodies
}

// collectJoins gathers every join in the statement.
func collectJoins(stmt parser.Statement) []*parser.Join {
	var joins []*parser.Join
	walk(stmt, func(node any) bool {
		if join, ok := node.(*parser.Join); ok {
			joins = append(joins, join)
		}
		return true
	})
	return joins
}

// qualifiedRefs returns the table-qualified column references in an
// expression, without crossing into subquery scopes.
func qualifiedRefs(e parser.Expr) []*parser.ColumnRef {
	var refs []*parser.ColumnRef
	walk(e, func(node any) bool {
		switch n := node.(type) {
		case *parser.SelectStmt:
			return false
		case *parser.ColumnRef:
			if n.Table != "" {
				refs = append(refs, n)
			}
		}
		return true
	})
	return refs
}

// refName is the name a table reference answers to in conditions: the
// alias when present, the bare table name otherwise.
func refName(ref parser.TableRef) string {
	switch t := ref.(type) {
	case *parser.TableName:
		if t.Alias != "" {
			return t.Alias
		}
		return t.Name
	case *parser.DerivedTable:
		return t.Alias
	case *parser.LateralTable:
		return t.Alias
	default:
		return ""
	}
}
