package format

import (
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/token"
)

func (p *Printer) formatStatement(stmt parser.Statement) {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		p.formatSelectStmt(s)
	case *parser.InsertStmt:
		p.formatInsertStmt(s)
	case *parser.UpdateStmt:
		p.formatUpdateStmt(s)
	case *parser.DeleteStmt:
		p.formatDeleteStmt(s)
	case *parser.MergeStmt:
		p.formatMergeStmt(s)
	case *parser.CreateTableStmt:
		p.formatCreateTableStmt(s)
	case *parser.CreateViewStmt:
		p.formatCreateViewStmt(s)
	case *parser.CreateIndexStmt:
		p.formatCreateIndexStmt(s)
	case *parser.CreateFunctionStmt:
		p.formatCreateFunctionStmt(s)
	case *parser.AlterTableStmt:
		p.formatAlterTableStmt(s)
	case *parser.AlterRenameStmt:
		p.formatAlterRenameStmt(s)
	case *parser.DropStmt:
		p.formatDropStmt(s)
	}
}

// ---------- SELECT ----------

func (p *Printer) formatSelectStmt(stmt *parser.SelectStmt) {
	if stmt == nil {
		return
	}

	if stmt.With != nil {
		p.formatWithClause(stmt.With)
	}

	if stmt.Body != nil {
		p.formatSelectBody(stmt.Body)
	}
}

func (p *Printer) formatWithClause(with *parser.WithClause) {
	p.kw(token.WITH)
	if with.Recursive {
		p.space()
		p.kw(token.RECURSIVE)
	}
	p.writeln()

	p.indent()
	p.formatList(len(with.CTEs), func(i int) {
		cte := with.CTEs[i]
		p.name(cte.Name.Name)
		if len(cte.Columns) > 0 {
			p.write(" (")
			p.formatIdentList(cte.Columns)
			p.write(")")
		}
		p.space()
		p.kw(token.AS)
		p.write(" (")
		p.writeln()

		p.indent()
		p.formatSelectStmt(cte.Select)
		p.dedent()

		p.write(")")
	}, ",", true)
	p.writeln()
	p.dedent()
}

func (p *Printer) formatSelectBody(body *parser.SelectBody) {
	if body == nil {
		return
	}

	p.formatSelectCore(body.Left)

	if body.Op != parser.SetOpNone {
		switch body.Op {
		case parser.SetOpUnion:
			p.kw(token.UNION)
		case parser.SetOpIntersect:
			p.kw(token.INTERSECT)
		case parser.SetOpExcept:
			p.kw(token.EXCEPT)
		}
		if body.All {
			p.space()
			p.kw(token.ALL)
		}

		p.writeln()
		p.formatSelectBody(body.Right)
	}
}

func (p *Printer) formatSelectCore(sc *parser.SelectCore) {
	if sc == nil {
		return
	}

	p.kw(token.SELECT)
	if sc.Distinct {
		p.space()
		p.kw(token.DISTINCT)
	}
	p.writeln()

	p.indent()
	p.formatList(len(sc.Columns), func(i int) { p.formatSelectItem(sc.Columns[i]) }, ",", true)
	p.writeln()
	p.dedent()

	if sc.From != nil {
		p.kw(token.FROM)
		p.space()
		p.formatFromClause(sc.From)
		p.writeln()
	}

	p.formatWhere(sc.Where)

	if len(sc.GroupBy) > 0 {
		p.kw(token.GROUP, token.BY)
		p.writeln()
		p.indent()
		p.formatList(len(sc.GroupBy), func(i int) { p.formatExpr(sc.GroupBy[i]) }, ",", true)
		p.dedent()
		p.writeln()
	}

	if sc.Having != nil {
		p.kw(token.HAVING)
		p.writeln()
		p.indent()
		p.formatExpr(sc.Having)
		p.dedent()
		p.writeln()
	}

	if len(sc.Windows) > 0 {
		p.kw(token.WINDOW)
		p.writeln()
		p.indent()
		p.formatList(len(sc.Windows), func(i int) {
			def := sc.Windows[i]
			p.name(def.Name.Name)
			p.space()
			p.kw(token.AS)
			p.space()
			switch {
			case def.Spec == nil:
			case def.Spec.Name != "":
				// A definition by reference to another named window.
				p.name(def.Spec.Name)
			default:
				p.formatWindowParens(def.Spec)
			}
		}, ",", true)
		p.dedent()
		p.writeln()
	}

	if len(sc.OrderBy) > 0 {
		p.kw(token.ORDER, token.BY)
		p.writeln()
		p.indent()
		p.formatList(len(sc.OrderBy), func(i int) { p.formatOrderByItem(sc.OrderBy[i]) }, ",", true)
		p.dedent()
		p.writeln()
	}

	if sc.Limit != nil {
		p.kw(token.LIMIT)
		p.space()
		p.formatExpr(sc.Limit)
		p.writeln()
	}

	if sc.Offset != nil {
		p.kw(token.OFFSET)
		p.space()
		p.formatExpr(sc.Offset)
		p.writeln()
	}
}

func (p *Printer) formatWhere(where parser.Expr) {
	if where == nil {
		return
	}
	p.kw(token.WHERE)
	p.writeln()
	p.indent()
	p.formatExpr(where)
	p.dedent()
	p.writeln()
}

func (p *Printer) formatSelectItem(item parser.SelectItem) {
	if item.Star {
		p.write("*")
		return
	}
	if item.TableStar != "" {
		p.name(item.TableStar)
		p.write(".*")
		return
	}

	p.formatExpr(item.Expr)
	if item.Alias != "" {
		p.space()
		p.kw(token.AS)
		p.space()
		p.name(item.Alias)
	}
}

func (p *Printer) formatFromClause(from *parser.FromClause) {
	if from == nil {
		return
	}

	p.formatTableRef(from.Source)

	for _, join := range from.Joins {
		p.writeln()
		p.formatJoin(join)
	}
}

func (p *Printer) formatTableRef(ref parser.TableRef) {
	switch t := ref.(type) {
	case *parser.TableName:
		p.formatTableName(t)
	case *parser.DerivedTable:
		p.formatDerivedTable(t)
	case *parser.LateralTable:
		p.formatLateralTable(t)
	}
}

func (p *Printer) formatTableName(t *parser.TableName) {
	if t == nil {
		return
	}
	if t.Catalog != "" {
		p.name(t.Catalog)
		p.write(".")
	}
	if t.Schema != "" {
		p.name(t.Schema)
		p.write(".")
	}
	p.name(t.Name)
	if t.Alias != "" {
		p.space()
		p.kw(token.AS)
		p.space()
		p.name(t.Alias)
	}
}

func (p *Printer) formatDerivedTable(t *parser.DerivedTable) {
	p.write("(")
	p.writeln()
	p.indent()
	p.formatSelectStmt(t.Select)
	p.dedent()
	p.write(")")
	if t.Alias != "" {
		p.space()
		p.kw(token.AS)
		p.space()
		p.name(t.Alias)
	}
}

func (p *Printer) formatLateralTable(t *parser.LateralTable) {
	p.kw(token.LATERAL)
	p.write(" (")
	p.writeln()
	p.indent()
	p.formatSelectStmt(t.Select)
	p.dedent()
	p.write(")")
	if t.Alias != "" {
		p.space()
		p.kw(token.AS)
		p.space()
		p.name(t.Alias)
	}
}

func (p *Printer) formatJoin(join *parser.Join) {
	if join == nil {
		return
	}

	if join.Natural {
		p.kw(token.NATURAL)
		p.space()
	}

	switch join.Type {
	case parser.JoinInner:
		// Plain "JOIN" for inner (most common, cleaner output)
		p.kw(token.JOIN)
	case parser.JoinComma:
		p.write(",")
	default:
		p.keyword(string(join.Type))
		p.space()
		p.kw(token.JOIN)
	}
	p.space()

	p.formatTableRef(join.Right)

	if len(join.Using) > 0 {
		p.writeln()
		p.indent()
		p.kw(token.USING)
		p.write(" (")
		p.formatIdentList(join.Using)
		p.write(")")
		p.dedent()
	} else if join.Condition != nil {
		p.writeln()
		p.indent()
		p.kw(token.ON)
		p.space()
		p.formatExpr(join.Condition)
		p.dedent()
	}
	// NATURAL JOIN has neither ON nor USING - nothing to add
}

func (p *Printer) formatOrderByItem(item parser.OrderByItem) {
	p.formatExpr(item.Expr)
	if item.Desc {
		p.space()
		p.kw(token.DESC)
	}
	if item.NullsFirst != nil {
		p.space()
		p.kw(token.NULLS)
		p.space()
		if *item.NullsFirst {
			p.kw(token.FIRST)
		} else {
			p.kw(token.LAST)
		}
	}
}

func (p *Printer) formatIdentList(idents []parser.Ident) {
	for i, id := range idents {
		if i > 0 {
			p.write(", ")
		}
		p.name(id.Name)
	}
}

func (p *Printer) formatExprList(exprs []parser.Expr) {
	p.formatList(len(exprs), func(i int) { p.formatExpr(exprs[i]) }, ", ", false)
}

// ---------- DML ----------

func (p *Printer) formatInsertStmt(stmt *parser.InsertStmt) {
	p.kw(token.INSERT, token.INTO)
	p.space()
	p.formatTableName(stmt.Table)
	if len(stmt.Columns) > 0 {
		p.write(" (")
		p.formatIdentList(stmt.Columns)
		p.write(")")
	}
	p.writeln()

	if stmt.Query != nil {
		p.formatSelectStmt(stmt.Query)
		return
	}

	p.kw(token.VALUES)
	p.writeln()
	p.indent()
	p.formatList(len(stmt.Values), func(i int) {
		p.write("(")
		p.formatExprList(stmt.Values[i])
		p.write(")")
	}, ",", true)
	p.dedent()
	p.writeln()
}

func (p *Printer) formatUpdateStmt(stmt *parser.UpdateStmt) {
	p.kw(token.UPDATE)
	p.space()
	p.formatTableName(stmt.Table)
	p.writeln()

	p.kw(token.SET)
	p.writeln()
	p.indent()
	p.formatList(len(stmt.Set), func(i int) { p.formatAssignment(stmt.Set[i]) }, ",", true)
	p.dedent()
	p.writeln()

	p.formatWhere(stmt.Where)
}

func (p *Printer) formatDeleteStmt(stmt *parser.DeleteStmt) {
	p.kw(token.DELETE, token.FROM)
	p.space()
	p.formatTableName(stmt.Table)
	p.writeln()

	p.formatWhere(stmt.Where)
}

func (p *Printer) formatAssignment(a parser.Assignment) {
	p.name(a.Column.Name)
	p.write(" = ")
	p.formatExpr(a.Value)
}

func (p *Printer) formatMergeStmt(stmt *parser.MergeStmt) {
	p.kw(token.MERGE, token.INTO)
	p.space()
	p.formatTableName(stmt.Target)
	p.writeln()

	p.kw(token.USING)
	p.space()
	p.formatTableRef(stmt.Source)
	p.writeln()
	p.indent()
	p.kw(token.ON)
	p.space()
	p.formatExpr(stmt.On)
	p.dedent()
	p.writeln()

	for _, when := range stmt.Whens {
		p.formatMergeWhen(when)
	}
}

func (p *Printer) formatMergeWhen(when *parser.MergeWhen) {
	p.kw(token.WHEN)
	p.space()
	if !when.Matched {
		p.kw(token.NOT)
		p.space()
	}
	p.kw(token.MATCHED)
	if when.Condition != nil {
		p.space()
		p.kw(token.AND)
		p.space()
		p.formatExpr(when.Condition)
	}
	p.space()
	p.kw(token.THEN)
	p.writeln()
	p.indent()

	switch act := when.Action.(type) {
	case *parser.MergeUpdate:
		p.kw(token.UPDATE, token.SET)
		p.writeln()
		p.indent()
		p.formatList(len(act.Set), func(i int) { p.formatAssignment(act.Set[i]) }, ",", true)
		p.dedent()
	case *parser.MergeDelete:
		p.kw(token.DELETE)
	case *parser.MergeInsert:
		p.kw(token.INSERT)
		if len(act.Columns) > 0 {
			p.write(" (")
			p.formatIdentList(act.Columns)
			p.write(")")
		}
		p.space()
		p.kw(token.VALUES)
		p.write(" (")
		p.formatExprList(act.Values)
		p.write(")")
	}

	p.dedent()
	p.writeln()
}

// ---------- DDL ----------

func (p *Printer) formatCreateTableStmt(stmt *parser.CreateTableStmt) {
	p.kw(token.CREATE, token.TABLE)
	p.space()
	if stmt.IfNotExists {
		p.kw(token.IF, token.NOT, token.EXISTS)
		p.space()
	}
	p.formatTableName(stmt.Name)
	p.write(" (")
	p.writeln()

	p.indent()
	count := len(stmt.Columns)
	if len(stmt.PrimaryKey) > 0 {
		count++
	}
	p.formatList(count, func(i int) {
		if i < len(stmt.Columns) {
			p.formatColumnDef(stmt.Columns[i])
			return
		}
		p.kw(token.PRIMARY, token.KEY)
		p.write(" (")
		p.formatIdentList(stmt.PrimaryKey)
		p.write(")")
	}, ",", true)
	p.dedent()
	p.writeln()
	p.write(")")
	p.writeln()
}

func (p *Printer) formatColumnDef(def *parser.ColumnDef) {
	p.name(def.Name.Name)
	p.space()
	p.formatTypeName(def.Type)
	if def.NotNull {
		p.space()
		p.kw(token.NOT, token.NULL)
	}
	if def.PrimaryKey {
		p.space()
		p.kw(token.PRIMARY, token.KEY)
	}
}

func (p *Printer) formatCreateViewStmt(stmt *parser.CreateViewStmt) {
	p.kw(token.CREATE, token.VIEW)
	p.space()
	if stmt.IfNotExists {
		p.kw(token.IF, token.NOT, token.EXISTS)
		p.space()
	}
	p.formatTableName(stmt.Name)
	if len(stmt.Columns) > 0 {
		p.write(" (")
		p.formatIdentList(stmt.Columns)
		p.write(")")
	}
	p.space()
	p.kw(token.AS)
	p.writeln()
	p.formatSelectStmt(stmt.Query)
}

func (p *Printer) formatCreateIndexStmt(stmt *parser.CreateIndexStmt) {
	p.kw(token.CREATE)
	p.space()
	if stmt.Unique {
		p.kw(token.UNIQUE)
		p.space()
	}
	p.kw(token.INDEX)
	p.space()
	if stmt.IfNotExists {
		p.kw(token.IF, token.NOT, token.EXISTS)
		p.space()
	}
	p.name(stmt.Name.Name)
	p.space()
	p.kw(token.ON)
	p.space()
	p.formatTableName(stmt.Table)
	p.write(" (")
	p.formatIdentList(stmt.Columns)
	p.write(")")
	p.writeln()
}

func (p *Printer) formatCreateFunctionStmt(stmt *parser.CreateFunctionStmt) {
	p.kw(token.CREATE)
	p.space()
	switch stmt.Class {
	case parser.FuncAggregate:
		p.kw(token.AGGREGATE)
		p.space()
	case parser.FuncWindow:
		p.kw(token.WINDOW)
		p.space()
	}
	p.kw(token.FUNCTION)
	p.space()
	p.name(stmt.Name.Name)
	p.write("(")
	p.formatList(len(stmt.Params), func(i int) { p.formatTypeName(stmt.Params[i]) }, ", ", false)
	p.write(")")
	p.space()
	p.kw(token.RETURNS)
	p.space()
	p.formatTypeName(stmt.Returns)
	p.writeln()
}

func (p *Printer) formatAlterTableStmt(stmt *parser.AlterTableStmt) {
	p.kw(token.ALTER, token.TABLE)
	p.space()
	p.formatTableName(stmt.Table)
	p.space()

	switch act := stmt.Action.(type) {
	case *parser.AddColumn:
		p.kw(token.ADD, token.COLUMN)
		p.space()
		p.formatColumnDef(act.Column)
	case *parser.DropColumn:
		p.kw(token.DROP, token.COLUMN)
		p.space()
		if act.IfExists {
			p.kw(token.IF, token.EXISTS)
			p.space()
		}
		p.name(act.Name.Name)
	case *parser.RenameColumn:
		p.kw(token.RENAME, token.COLUMN)
		p.space()
		p.name(act.From.Name)
		p.space()
		p.kw(token.TO)
		p.space()
		p.name(act.To.Name)
	case *parser.RenameTable:
		p.kw(token.RENAME, token.TO)
		p.space()
		p.name(act.To.Name)
	}
	p.writeln()
}

func (p *Printer) formatAlterRenameStmt(stmt *parser.AlterRenameStmt) {
	p.kw(token.ALTER)
	p.space()
	p.keyword(string(stmt.Kind))
	p.space()
	p.formatTableName(stmt.Name)
	p.space()
	p.kw(token.RENAME, token.TO)
	p.space()
	p.name(stmt.To.Name)
	p.writeln()
}

func (p *Printer) formatDropStmt(stmt *parser.DropStmt) {
	p.kw(token.DROP)
	p.space()
	p.keyword(string(stmt.Kind))
	p.space()
	if stmt.IfExists {
		p.kw(token.IF, token.EXISTS)
		p.space()
	}
	p.formatTableName(stmt.Name)
	p.writeln()
}
