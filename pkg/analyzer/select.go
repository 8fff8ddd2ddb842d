package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/token"
	"github.com/keeldb/keel/pkg/types"
)

// analyzeSelectStmt analyzes a query: its WITH clause, set-operation
// body, and trailing clauses. It returns the query's output columns.
func (a *analysis) analyzeSelectStmt(stmt *parser.SelectStmt) []OutputColumn {
	if stmt.With != nil {
		a.pushScope()
		defer a.popScope()
		a.analyzeWith(stmt.With)
	}
	return a.analyzeSelectBody(stmt.Body)
}

// analyzeSubquery analyzes a subquery used inside an expression. The
// subquery's cores chain their scopes under the current one, so
// correlated references to enclosing columns resolve.
func (a *analysis) analyzeSubquery(sel *parser.SelectStmt) []OutputColumn {
	return a.analyzeSelectStmt(sel)
}

// ---------- WITH ----------

func (a *analysis) analyzeWith(with *parser.WithClause) {
	for _, cte := range with.CTEs {
		cols := a.analyzeCTE(with.Recursive, cte)

		if len(cte.Columns) > 0 {
			if len(cte.Columns) != len(cols) {
				a.errorf(diag.ArityError, cte.Name.Span,
					"WITH query %q has %d columns available but %d columns specified",
					cte.Name.Name, len(cols), len(cte.Columns))
			}
			cols = renameColumns(cols, cte.Columns)
		}

		rel := &relation{
			kind:    RelCTE,
			name:    cte.Name.Name,
			columns: toRelColumns(cols),
			span:    cte.Name.Span,
		}
		if prev, ok := a.scope.declareCTE(cte.Name.Name, rel, cte.Name.Span); !ok {
			a.addDiag(diag.New(diag.DuplicateDefinition, cte.Name.Span,
				"WITH query name %q specified more than once", cte.Name.Name).
				WithRelated(prev, "first defined here"))
		}
	}
}

// analyzeCTE analyzes one CTE body and returns its raw output
// columns. Under RECURSIVE, the anchor term is analyzed first and the
// CTE registered before the recursive terms, which is what makes
// self-reference resolve; each recursive term's column types must
// then coerce to the anchor's.
func (a *analysis) analyzeCTE(recursive bool, cte *parser.CTE) []OutputColumn {
	// CTE bodies resolve against the catalog and earlier CTEs only,
	// never against enclosing query columns.
	a.pushBarrierScope()
	defer a.popScope()

	sel := cte.Select
	if sel == nil || sel.Body == nil {
		return nil
	}
	if sel.With != nil {
		a.pushScope()
		defer a.popScope()
		a.analyzeWith(sel.With)
	}

	body := sel.Body
	if !recursive || body.Op == parser.SetOpNone || body.Right == nil {
		return a.analyzeSelectBody(body)
	}

	anchor := a.analyzeSelectCore(body.Left)
	named := renameColumns(anchor, cte.Columns)
	a.scope.declareCTE(cte.Name.Name, &relation{
		kind:    RelCTE,
		name:    cte.Name.Name,
		columns: toRelColumns(named),
		span:    cte.Name.Span,
	}, cte.Name.Span)

	for cur := body.Right; cur != nil; cur = cur.Right {
		arm := a.analyzeSelectCore(cur.Left)
		a.checkRecursiveArm(cte, anchor, arm, cur.Left)
	}
	return anchor
}

func (a *analysis) checkRecursiveArm(cte *parser.CTE, anchor, arm []OutputColumn, core *parser.SelectCore) {
	if len(arm) != len(anchor) {
		a.errorf(diag.ArityError, core.Span,
			"recursive query %q must have the same number of columns in all its terms", cte.Name.Name)
		return
	}
	for i := range arm {
		if arm[i].Type.IsInvalid() || anchor[i].Type.IsInvalid() {
			continue
		}
		if !types.Coerces(arm[i].Type, anchor[i].Type) {
			a.errorf(diag.TypeMismatch, core.Span,
				"recursive query %q column %d has type %s where type %s is expected",
				cte.Name.Name, i+1, arm[i].Type, anchor[i].Type)
		}
	}
}

// renameColumns applies CTE or view column aliases; extra or missing
// aliases are reported by the caller.
func renameColumns(cols []OutputColumn, names []parser.Ident) []OutputColumn {
	if len(names) == 0 {
		return cols
	}
	out := make([]OutputColumn, len(cols))
	copy(out, cols)
	for i := range out {
		if i < len(names) {
			out[i].Name = names[i].Name
		}
	}
	return out
}

func toRelColumns(cols []OutputColumn) []relColumn {
	out := make([]relColumn, len(cols))
	for i, c := range cols {
		out[i] = relColumn{name: c.Name, typ: c.Type, nullable: c.Nullable}
	}
	return out
}

// ---------- set operations ----------

func (a *analysis) analyzeSelectBody(body *parser.SelectBody) []OutputColumn {
	if body == nil {
		return nil
	}
	cols := a.analyzeSelectCore(body.Left)
	op := body.Op
	for cur := body.Right; cur != nil; cur = cur.Right {
		right := a.analyzeSelectCore(cur.Left)
		cols = a.mergeSetOp(cols, right, op, cur.Left)
		op = cur.Op
	}
	return cols
}

// mergeSetOp aligns the two sides of a set operation: same column
// count, pairwise common types. Names come from the first query.
func (a *analysis) mergeSetOp(left, right []OutputColumn, op parser.SetOpType, core *parser.SelectCore) []OutputColumn {
	if len(left) != len(right) {
		a.errorf(diag.ArityError, core.Span, "each %s query must have the same number of columns", op)
		return left
	}
	out := make([]OutputColumn, len(left))
	for i := range left {
		out[i] = left[i]
		out[i].Nullable = left[i].Nullable || right[i].Nullable
		if left[i].Type.IsInvalid() || right[i].Type.IsInvalid() {
			out[i].Type = invalid()
			continue
		}
		merged, ok := types.Common(left[i].Type, right[i].Type)
		if !ok {
			a.errorf(diag.TypeMismatch, core.Span, "%s types %s and %s cannot be matched", op, left[i].Type, right[i].Type)
			out[i].Type = invalid()
			continue
		}
		out[i].Type = merged
	}
	return out
}

// ---------- SELECT core ----------

func (a *analysis) analyzeSelectCore(core *parser.SelectCore) []OutputColumn {
	a.pushQuery()
	defer a.popQuery()
	a.pushScope()
	defer a.popScope()

	if core.From != nil {
		a.analyzeFrom(core.From)
	}

	if core.Where != nil {
		prev := a.setClause(clauseWhere)
		a.typeExprBool(core.Where, "WHERE")
		a.restoreClause(prev)
	}

	// GROUP BY ordinals point into the select list, which is not
	// analyzed yet; hold them until it is.
	var groupKeys map[string]bool
	var groupOrdinals []parser.Expr
	if len(core.GroupBy) > 0 {
		prev := a.setClause(clauseGroupBy)
		groupKeys = make(map[string]bool, len(core.GroupBy))
		for _, e := range core.GroupBy {
			if _, ok := literalOrdinal(e); ok {
				groupOrdinals = append(groupOrdinals, e)
				continue
			}
			a.typeExpr(e)
			groupKeys[a.exprKey(e)] = true
		}
		a.restoreClause(prev)
	}

	// Named windows are declared before the select list so OVER w
	// references resolve regardless of clause order in the source.
	a.analyzeWindowDefs(core.Windows)

	prev := a.setClause(clauseSelect)
	items := a.analyzeSelectItems(core)
	a.restoreClause(prev)

	for _, e := range groupOrdinals {
		n, _ := literalOrdinal(e)
		if n < 1 || n > len(items.cols) {
			a.errorf(diag.UnknownIdentifier, e.GetSpan(), "GROUP BY position %d is not in select list", n)
			a.record(e, invalid())
			continue
		}
		groupKeys[items.keys[n-1]] = true
		a.record(e, items.cols[n-1].Type)
	}

	if core.Having != nil {
		prev := a.setClause(clauseHaving)
		a.typeExprBool(core.Having, "HAVING")
		a.restoreClause(prev)
	}

	plainOrder := a.analyzeOrderBy(core, items)

	if core.Limit != nil {
		a.checkLimitExpr(core.Limit, "LIMIT")
	}
	if core.Offset != nil {
		a.checkLimitExpr(core.Offset, "OFFSET")
	}

	a.enforceGrouping(core, groupKeys, items, plainOrder)

	return items.cols
}

func (a *analysis) checkLimitExpr(e parser.Expr, what string) {
	prev := a.setClause(clauseLimit)
	defer a.restoreClause(prev)
	t := a.typeExpr(e)
	if t.IsInvalid() || types.Coerces(t, types.Of(types.Int64)) {
		return
	}
	a.errorf(diag.TypeMismatch, e.GetSpan(), "argument of %s must be type %s, not type %s", what, types.Of(types.Int64), t)
}

// ---------- select list ----------

// selectItems carries the analyzed select list: the output columns,
// the name index ORDER BY resolves aliases against, the raw
// expressions the grouping pass re-checks, and one grouping
// fingerprint per output column for GROUP BY ordinals.
type selectItems struct {
	cols     []OutputColumn
	aliasIdx map[string]int
	exprs    []parser.Expr
	stars    []starCheck
	keys     []string
}

type starCheck struct {
	span token.Span
	hits []columnHit
}

func (a *analysis) analyzeSelectItems(core *parser.SelectCore) *selectItems {
	items := &selectItems{aliasIdx: make(map[string]int)}
	for i := range core.Columns {
		item := &core.Columns[i]
		switch {
		case item.Star:
			if len(a.scope.relations) == 0 {
				a.errorf(diag.UnknownIdentifier, item.Span, "SELECT * with no tables specified is not valid")
				continue
			}
			hits := a.scope.visibleColumns()
			a.expandStar(items, hits, item.Span)

		case item.TableStar != "":
			rel, ok := a.scope.findRelation(item.TableStar)
			if !ok {
				a.errorf(diag.UnknownIdentifier, item.Span,
					"missing FROM-clause entry for table %q", item.TableStar)
				continue
			}
			hits := make([]columnHit, len(rel.columns))
			for ord := range rel.columns {
				hits[ord] = columnHit{rel: rel, ordinal: ord}
			}
			a.expandStar(items, hits, item.Span)

		default:
			t := a.typeExpr(item.Expr)
			name := outputName(item.Expr, item.Alias)
			a.addOutputColumn(items, OutputColumn{
				Name:     name,
				Type:     t,
				Nullable: a.nullableExpr(item.Expr),
			}, a.exprKey(item.Expr))
			items.exprs = append(items.exprs, item.Expr)
		}
	}
	return items
}

func (a *analysis) expandStar(items *selectItems, hits []columnHit, span token.Span) {
	for _, hit := range hits {
		col := hit.rel.columns[hit.ordinal]
		a.addOutputColumn(items,
			OutputColumn{Name: col.name, Type: col.typ, Nullable: col.nullable},
			columnKey(hit.rel, hit.ordinal))
	}
	items.stars = append(items.stars, starCheck{span: span, hits: hits})
}

func (a *analysis) addOutputColumn(items *selectItems, col OutputColumn, groupKey string) {
	key := strings.ToLower(col.Name)
	if _, exists := items.aliasIdx[key]; !exists {
		items.aliasIdx[key] = len(items.cols)
	}
	items.cols = append(items.cols, col)
	items.keys = append(items.keys, groupKey)
}

// outputName derives the result column name the way engines label
// computed columns: the alias, a referenced column's own name, a
// function or cast target name, else the anonymous placeholder.
func outputName(e parser.Expr, alias string) string {
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
		return outputName(ex.Expr, "")
	}
	return "?column?"
}

// ---------- ORDER BY ----------

// analyzeOrderBy resolves ORDER BY items: ordinals and output-column
// names first, input columns as the fallback. It returns the
// expressions that resolved as plain expressions, for the grouping
// pass.
func (a *analysis) analyzeOrderBy(core *parser.SelectCore, items *selectItems) []parser.Expr {
	if len(core.OrderBy) == 0 {
		return nil
	}
	prev := a.setClause(clauseOrderBy)
	defer a.restoreClause(prev)

	var plain []parser.Expr
	for i := range core.OrderBy {
		e := core.OrderBy[i].Expr

		if n, ok := literalOrdinal(e); ok {
			if n < 1 || n > len(items.cols) {
				a.errorf(diag.UnknownIdentifier, e.GetSpan(), "ORDER BY position %d is not in select list", n)
				a.record(e, invalid())
			} else {
				a.record(e, items.cols[n-1].Type)
			}
			continue
		}

		if ref, ok := bareColumnRef(e); ok {
			if idx, exists := items.aliasIdx[strings.ToLower(ref.Column)]; exists {
				col := items.cols[idx]
				a.res.Bindings[ref] = &Binding{
					Column:   col.Name,
					Ordinal:  idx,
					Type:     col.Type,
					Nullable: col.Nullable,
				}
				a.record(e, col.Type)
				continue
			}
		}

		a.typeExpr(e)
		plain = append(plain, e)
	}
	return plain
}

// literalOrdinal matches a bare integer literal, the ordinal form of
// ORDER BY.
func literalOrdinal(e parser.Expr) (int, bool) {
	lit, ok := e.(*parser.Literal)
	if !ok || lit.Type != parser.LiteralNumber {
		return 0, false
	}
	n, err := strconv.Atoi(lit.Value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// bareColumnRef matches an unqualified, unparenthesized column
// reference, the only form that resolves against output names.
func bareColumnRef(e parser.Expr) (*parser.ColumnRef, bool) {
	ref, ok := e.(*parser.ColumnRef)
	if !ok || ref.Table != "" {
		return nil, false
	}
	return ref, true
}

// ---------- grouping enforcement ----------

// enforceGrouping applies the grouped-query rule: once a query groups
// (explicit GROUP BY, an aggregate anywhere, or a HAVING clause),
// every select-list, HAVING, and ORDER BY expression must be built
// from grouping expressions, constants, and aggregates.
func (a *analysis) enforceGrouping(core *parser.SelectCore, groupKeys map[string]bool, items *selectItems, plainOrder []parser.Expr) {
	ctx := a.currentQuery()
	grouped := len(groupKeys) > 0 || ctx.sawAggregate || core.Having != nil
	if !grouped {
		return
	}

	for _, e := range items.exprs {
		a.checkGrouped(e, groupKeys)
	}
	for _, star := range items.stars {
		for _, hit := range star.hits {
			key := columnKey(hit.rel, hit.ordinal)
			if !groupKeys[key] {
				a.errorf(diag.GroupingError, star.span,
					"column %q must appear in the GROUP BY clause or be used in an aggregate function",
					hit.rel.effectiveName()+"."+hit.rel.columns[hit.ordinal].name)
			}
		}
	}
	if core.Having != nil {
		a.checkGrouped(core.Having, groupKeys)
	}
	for _, e := range plainOrder {
		a.checkGrouped(e, groupKeys)
	}
}

// checkGrouped walks an expression, stopping at aggregate calls and
// reporting any column reference that is neither grouped nor under an
// aggregate.
func (a *analysis) checkGrouped(e parser.Expr, groupKeys map[string]bool) {
	if e == nil || groupKeys[a.exprKey(e)] {
		return
	}
	switch ex := e.(type) {
	case *parser.Literal:
	case *parser.ColumnRef:
		b, ok := a.res.Bindings[ex]
		if !ok {
			return // unresolved, already diagnosed
		}
		display := ex.Column
		if b.Relation != "" {
			display = b.Relation + "." + b.Column
		}
		a.errorf(diag.GroupingError, ex.Span,
			"column %q must appear in the GROUP BY clause or be used in an aggregate function", display)
	case *parser.ParenExpr:
		a.checkGrouped(ex.Expr, groupKeys)
	case *parser.UnaryExpr:
		a.checkGrouped(ex.Expr, groupKeys)
	case *parser.BinaryExpr:
		a.checkGrouped(ex.Left, groupKeys)
		a.checkGrouped(ex.Right, groupKeys)
	case *parser.BetweenExpr:
		a.checkGrouped(ex.Expr, groupKeys)
		a.checkGrouped(ex.Low, groupKeys)
		a.checkGrouped(ex.High, groupKeys)
	case *parser.InExpr:
		a.checkGrouped(ex.Expr, groupKeys)
		for _, v := range ex.Values {
			a.checkGrouped(v, groupKeys)
		}
	case *parser.LikeExpr:
		a.checkGrouped(ex.Expr, groupKeys)
		a.checkGrouped(ex.Pattern, groupKeys)
	case *parser.IsNullExpr:
		a.checkGrouped(ex.Expr, groupKeys)
	case *parser.IsBoolExpr:
		a.checkGrouped(ex.Expr, groupKeys)
	case *parser.CaseExpr:
		a.checkGrouped(ex.Operand, groupKeys)
		for _, when := range ex.Whens {
			a.checkGrouped(when.Condition, groupKeys)
			a.checkGrouped(when.Result, groupKeys)
		}
		a.checkGrouped(ex.Else, groupKeys)
	case *parser.CastExpr:
		a.checkGrouped(ex.Expr, groupKeys)
	case *parser.ArrayExpr:
		for _, el := range ex.Elems {
			a.checkGrouped(el, groupKeys)
		}
	case *parser.RowExpr:
		for _, item := range ex.Items {
			a.checkGrouped(item, groupKeys)
		}
	case *parser.FuncCall:
		a.checkGroupedCall(ex, groupKeys)
	}
	// Subqueries pass: their references were resolved in their own
	// scopes.
}

func (a *analysis) checkGroupedCall(call *parser.FuncCall, groupKeys map[string]bool) {
	if resolved, ok := a.res.Calls[call]; ok {
		if resolved.Signature.Kind == catalog.Aggregate && call.Window == nil {
			return // aggregate arguments live below the grouping
		}
	}
	for _, arg := range call.Args {
		a.checkGrouped(arg, groupKeys)
	}
	for _, named := range call.NamedArgs {
		a.checkGrouped(named.Value, groupKeys)
	}
	if call.Window != nil && call.Window.Name == "" {
		for _, e := range call.Window.PartitionBy {
			a.checkGrouped(e, groupKeys)
		}
		for _, item := range call.Window.OrderBy {
			a.checkGrouped(item.Expr, groupKeys)
		}
	}
}

// ---------- expression fingerprints ----------

// exprKey renders an expression to a canonical string so GROUP BY
// matching is syntactic: two spellings of the same resolved column
// produce one key. Node kinds without a composition rule get a
// pointer-unique key and never match.
func (a *analysis) exprKey(e parser.Expr) string {
	switch ex := e.(type) {
	case *parser.ParenExpr:
		return a.exprKey(ex.Expr)
	case *parser.ColumnRef:
		if b, ok := a.res.Bindings[ex]; ok {
			return fmt.Sprintf("c:%s:%d", strings.ToLower(b.Relation), b.Ordinal)
		}
		return "c?:" + strings.ToLower(ex.Table) + "." + strings.ToLower(ex.Column)
	case *parser.Literal:
		return fmt.Sprintf("l:%d:%s", ex.Type, ex.Value)
	case *parser.UnaryExpr:
		return fmt.Sprintf("u%s(%s)", ex.Op, a.exprKey(ex.Expr))
	case *parser.BinaryExpr:
		return fmt.Sprintf("b%s(%s,%s)", ex.Op, a.exprKey(ex.Left), a.exprKey(ex.Right))
	case *parser.CastExpr:
		return fmt.Sprintf("cast(%s:%s)", a.exprKey(ex.Expr), a.res.ExprTypes[ex])
	case *parser.FuncCall:
		if ex.Window != nil || ex.Filter != nil {
			return fmt.Sprintf("%p", ex)
		}
		parts := make([]string, 0, len(ex.Args))
		for _, arg := range ex.Args {
			parts = append(parts, a.exprKey(arg))
		}
		marker := ""
		if ex.Distinct {
			marker = "distinct:"
		}
		if ex.Star {
			marker += "*"
		}
		return fmt.Sprintf("f:%s(%s%s)", strings.ToLower(ex.Name), marker, strings.Join(parts, ","))
	case *parser.BetweenExpr:
		return fmt.Sprintf("btw%v(%s,%s,%s)", ex.Not, a.exprKey(ex.Expr), a.exprKey(ex.Low), a.exprKey(ex.High))
	case *parser.IsNullExpr:
		return fmt.Sprintf("isnull%v(%s)", ex.Not, a.exprKey(ex.Expr))
	case *parser.IsBoolExpr:
		return fmt.Sprintf("isbool%v%v(%s)", ex.Not, ex.Value, a.exprKey(ex.Expr))
	case *parser.LikeExpr:
		return fmt.Sprintf("like%v(%s,%s)", ex.Not, a.exprKey(ex.Expr), a.exprKey(ex.Pattern))
	}
	return fmt.Sprintf("%p", e)
}

func columnKey(rel *relation, ordinal int) string {
	return fmt.Sprintf("c:%s:%d", strings.ToLower(rel.effectiveName()), ordinal)
}

// ---------- named windows ----------

func (a *analysis) analyzeWindowDefs(defs []parser.WindowDef) {
	if len(defs) == 0 {
		return
	}
	ctx := a.currentQuery()
	ctx.windows = make(map[string]*parser.WindowSpec, len(defs))
	ctx.windowSpans = make(map[string]token.Span, len(defs))

	prev := a.setClause(clauseSelect)
	defer a.restoreClause(prev)

	for i := range defs {
		def := &defs[i]
		key := strings.ToLower(def.Name.Name)
		if first, dup := ctx.windowSpans[key]; dup {
			a.addDiag(diag.New(diag.DuplicateDefinition, def.Name.Span,
				"window %q is already defined", def.Name.Name).
				WithRelated(first, "first defined here"))
		} else {
			ctx.windows[key] = def.Spec
			ctx.windowSpans[key] = def.Name.Span
		}
		a.analyzeWindowSpec(def.Spec, def.Name.Span)
	}
}

// ---------- FROM ----------

func (a *analysis) analyzeFrom(from *parser.FromClause) {
	a.analyzeTableRef(from.Source)
	for _, join := range from.Joins {
		right := a.analyzeTableRef(join.Right)
		a.analyzeJoin(join, right)
	}
}

// analyzeTableRef resolves one FROM item and registers its relation
// in the current scope.
func (a *analysis) analyzeTableRef(ref parser.TableRef) *relation {
	var rel *relation
	switch tr := ref.(type) {
	case *parser.TableName:
		rel = a.relationForTable(tr)

	case *parser.DerivedTable:
		// A plain derived table cannot see its FROM siblings or the
		// enclosing query; only LATERAL opens that up.
		a.pushBarrierScope()
		cols := a.analyzeSelectStmt(tr.Select)
		a.popScope()
		rel = &relation{
			kind:    RelDerived,
			name:    tr.Alias,
			alias:   tr.Alias,
			columns: toRelColumns(cols),
			span:    tr.GetSpan(),
		}

	case *parser.LateralTable:
		cols := a.analyzeSelectStmt(tr.Select)
		rel = &relation{
			kind:    RelDerived,
			name:    tr.Alias,
			alias:   tr.Alias,
			columns: toRelColumns(cols),
			span:    tr.GetSpan(),
		}
	}
	if rel == nil {
		return nil
	}

	if name := rel.effectiveName(); name != "" {
		if prev, dup := a.scope.findRelation(name); dup {
			a.addDiag(diag.New(diag.DuplicateDefinition, rel.span,
				"table name %q specified more than once", name).
				WithRelated(prev.span, "first used here"))
		}
	}
	a.scope.addRelation(rel)
	return rel
}

// relationForTable resolves a table name to a CTE or catalog table.
// Unknown tables produce one diagnostic and an opaque relation, so
// every column referenced through them resolves to the sentinel
// instead of its own error.
func (a *analysis) relationForTable(tr *parser.TableName) *relation {
	if tr.Schema == "" && tr.Catalog == "" {
		if cteRel, ok := a.scope.lookupCTE(tr.Name); ok {
			return cloneRelation(cteRel, tr.Alias, tr.Span)
		}
	}

	tbl, ok := a.lookupTable(tr)
	if !ok {
		name := displayTableName(tr)
		msg := withSuggestion("relation "+strconv.Quote(name)+" does not exist",
			tr.Name, a.knownRelationNames())
		a.errorf(diag.UnknownIdentifier, tr.Span, "%s", msg)
		return &relation{kind: RelTable, name: tr.Name, alias: tr.Alias, opaque: true, span: tr.Span}
	}

	cols := make([]relColumn, len(tbl.Columns))
	for i, c := range tbl.Columns {
		cols[i] = relColumn{name: c.Name, typ: c.Type, nullable: c.Nullable}
	}
	return &relation{
		kind:    RelTable,
		name:    tr.Name,
		alias:   tr.Alias,
		table:   tbl.Name,
		columns: cols,
		span:    tr.Span,
	}
}

// lookupTable tries the qualified spelling first, then the bare name;
// the catalog itself is a single namespace.
func (a *analysis) lookupTable(tr *parser.TableName) (*catalog.Table, bool) {
	if tr.Schema != "" {
		if tbl, ok := a.catalog.Table(tr.Schema + "." + tr.Name); ok {
			return tbl, true
		}
	}
	return a.catalog.Table(tr.Name)
}

func displayTableName(tr *parser.TableName) string {
	parts := make([]string, 0, 3)
	if tr.Catalog != "" {
		parts = append(parts, tr.Catalog)
	}
	if tr.Schema != "" {
		parts = append(parts, tr.Schema)
	}
	parts = append(parts, tr.Name)
	return strings.Join(parts, ".")
}

func (a *analysis) knownRelationNames() []string {
	tables := a.catalog.Tables()
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	for s := a.scope; s != nil; s = s.parent {
		for _, rel := range s.ctes {
			names = append(names, rel.name)
		}
	}
	return names
}

func cloneRelation(rel *relation, alias string, span token.Span) *relation {
	cols := make([]relColumn, len(rel.columns))
	copy(cols, rel.columns)
	out := *rel
	out.columns = cols
	out.alias = alias
	out.span = span
	return &out
}

// ---------- joins ----------

func (a *analysis) analyzeJoin(join *parser.Join, right *relation) {
	left := a.scope.relations[:len(a.scope.relations)-1]

	switch {
	case join.Natural:
		a.mergeNatural(join, left, right)
	case len(join.Using) > 0:
		a.mergeUsing(join, left, right)
	case join.Condition != nil:
		prev := a.setClause(clauseJoinOn)
		a.typeExprBool(join.Condition, "JOIN/ON")
		a.restoreClause(prev)
	}

	switch join.Type {
	case parser.JoinLeft:
		if right != nil {
			right.markNullable()
		}
	case parser.JoinRight:
		for _, rel := range left {
			rel.markNullable()
		}
	case parser.JoinFull:
		for _, rel := range left {
			rel.markNullable()
		}
		if right != nil {
			right.markNullable()
		}
	}
}

// mergeUsing validates USING columns against both sides and hides the
// right-side copies, so the join column resolves unqualified to a
// single merged column.
func (a *analysis) mergeUsing(join *parser.Join, left []*relation, right *relation) {
	for _, col := range join.Using {
		lrel, lord, lok := findInRelations(left, col.Name)
		if !lok {
			a.errorf(diag.UnknownIdentifier, col.Span,
				"column %q specified in USING clause does not exist in left table", col.Name)
		}
		var rord int
		var rok bool
		if right != nil {
			rord, rok = right.column(col.Name)
			if !rok {
				a.errorf(diag.UnknownIdentifier, col.Span,
					"column %q specified in USING clause does not exist in right table", col.Name)
			}
		}
		if !lok || !rok {
			continue
		}
		lt := lrel.columns[lord].typ
		rt := right.columns[rord].typ
		if !lt.IsInvalid() && !rt.IsInvalid() {
			if _, ok := types.Common(lt, rt); !ok {
				a.errorf(diag.TypeMismatch, col.Span,
					"USING column %q has types %s and %s which cannot be matched", col.Name, lt, rt)
			}
		}
		right.columns[rord].hidden = true
	}
}

// mergeNatural joins on every column name the two sides share.
func (a *analysis) mergeNatural(join *parser.Join, left []*relation, right *relation) {
	if right == nil {
		return
	}
	for rord := range right.columns {
		name := right.columns[rord].name
		lrel, lord, ok := findInRelations(left, name)
		if !ok {
			continue
		}
		lt := lrel.columns[lord].typ
		rt := right.columns[rord].typ
		if !lt.IsInvalid() && !rt.IsInvalid() {
			if _, match := types.Common(lt, rt); !match {
				a.errorf(diag.TypeMismatch, join.Span,
					"NATURAL JOIN column %q has types %s and %s which cannot be matched", name, lt, rt)
			}
		}
		right.columns[rord].hidden = true
	}
}

// findInRelations locates a column by name across a join's left side,
// skipping columns already hidden by earlier USING merges.
func findInRelations(rels []*relation, name string) (*relation, int, bool) {
	for _, rel := range rels {
		if ord, ok := rel.column(name); ok && !rel.columns[ord].hidden {
			return rel, ord, true
		}
	}
	return nil, 0, false
}
