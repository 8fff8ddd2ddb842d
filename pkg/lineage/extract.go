package lineage

import (
	"strings"

	"github.com/keeldb/keel/pkg/analyzer"
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/parser"
)

// extractor is the transient state of one Extract call.
type extractor struct {
	res    *analyzer.ResolvedStatement
	cat    *catalog.Catalog
	tables map[string]struct{}
	conds  *sourceSet

	frame   *frame
	windows map[string]*parser.WindowSpec // named windows of the current core
}

// rel mirrors one FROM item: the columns it exposes, each carrying the
// lineage of its value. Explicit references resolve through the
// analyzer's bindings; this model only serves star expansion and
// tracing through CTEs and derived tables.
type rel struct {
	name string // effective name (alias if present)
	cols []relCol
}

type relCol struct {
	lin ColumnLineage

	// hidden marks the right-side duplicate of a USING or NATURAL
	// join column, skipped by star expansion.
	hidden bool
}

// column finds an exposed column by name, hidden ones included.
func (r *rel) column(name string) (*relCol, bool) {
	for i := range r.cols {
		if strings.EqualFold(r.cols[i].lin.Name, name) {
			return &r.cols[i], true
		}
	}
	return nil, false
}

// frame is one query level's FROM items plus the CTEs declared there.
// Lookups that miss walk to the parent frame, which is how correlated
// references and enclosing CTEs resolve.
type frame struct {
	parent *frame
	rels   []*rel
	ctes   map[string]*rel
}

func (e *extractor) pushFrame() {
	e.frame = &frame{parent: e.frame}
}

func (e *extractor) popFrame() {
	e.frame = e.frame.parent
}

// findRel resolves an effective relation name across the frame chain.
func (f *frame) findRel(name string) (*rel, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if r, ok := cur.findRelHere(name); ok {
			return r, true
		}
	}
	return nil, false
}

// findRelHere resolves a relation name at this frame level only.
func (f *frame) findRelHere(name string) (*rel, bool) {
	if f == nil {
		return nil, false
	}
	for _, r := range f.rels {
		if strings.EqualFold(r.name, name) {
			return r, true
		}
	}
	return nil, false
}

func (f *frame) lookupCTE(name string) (*rel, bool) {
	key := strings.ToLower(name)
	for cur := f; cur != nil; cur = cur.parent {
		if r, ok := cur.ctes[key]; ok {
			return r, true
		}
	}
	return nil, false
}

// declare registers a CTE's output lineage at the current frame.
func (e *extractor) declare(name string, cols []ColumnLineage) {
	if e.frame.ctes == nil {
		e.frame.ctes = make(map[string]*rel)
	}
	e.frame.ctes[strings.ToLower(name)] = &rel{name: name, cols: toRelCols(cols)}
}

// ---------- statements ----------

func (e *extractor) statement(stmt parser.Statement) *Report {
	rep := &Report{}
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		rep.Columns = e.selectStmt(s)

	case *parser.InsertStmt:
		rep.Target = e.targetName(s.Table)
		rep.Columns = e.insert(s)

	case *parser.UpdateStmt:
		rep.Target = e.targetName(s.Table)
		rep.Columns = e.update(s)

	case *parser.DeleteStmt:
		rep.Target = e.targetName(s.Table)
		e.noteTable(s.Table)
		e.condition(s.Where)

	case *parser.MergeStmt:
		rep.Target = e.targetName(s.Target)
		rep.Columns = e.merge(s)

	case *parser.CreateViewStmt:
		rep.Target = displayName(s.Name)
		rep.Columns = rename(e.selectStmt(s.Query), s.Columns)

	case *parser.CreateTableStmt:
		rep.Target = displayName(s.Name)

	case *parser.CreateIndexStmt:
		rep.Target = s.Name.Name
		e.noteTable(s.Table)

	case *parser.CreateFunctionStmt:
		rep.Target = s.Name.Name

	case *parser.AlterTableStmt:
		rep.Target = e.targetName(s.Table)

	case *parser.AlterRenameStmt:
		rep.Target = displayName(s.Name)

	case *parser.DropStmt:
		rep.Target = displayName(s.Name)
	}
	return rep
}

// ---------- queries ----------

// selectStmt computes a query's output lineage: its WITH clause, then
// the set-operation body.
func (e *extractor) selectStmt(sel *parser.SelectStmt) []ColumnLineage {
	if sel == nil || sel.Body == nil {
		return nil
	}
	if sel.With != nil {
		e.pushFrame()
		defer e.popFrame()
		e.withClause(sel.With)
	}
	return e.selectBody(sel.Body)
}

func (e *extractor) withClause(with *parser.WithClause) {
	for _, cte := range with.CTEs {
		cols := rename(e.cteColumns(with.Recursive, cte), cte.Columns)
		e.declare(cte.Name.Name, cols)
	}
}

// cteColumns computes one CTE body's output lineage. Under RECURSIVE,
// the anchor term is extracted first and the CTE registered before the
// recursive terms, so self-reference resolves; each further term's
// sources fold into the anchor's columns.
func (e *extractor) cteColumns(recursive bool, cte *parser.CTE) []ColumnLineage {
	e.pushFrame()
	defer e.popFrame()

	sel := cte.Select
	if sel == nil || sel.Body == nil {
		return nil
	}
	if sel.With != nil {
		e.pushFrame()
		defer e.popFrame()
		e.withClause(sel.With)
	}

	body := sel.Body
	if !recursive || body.Op == parser.SetOpNone || body.Right == nil {
		return e.selectBody(body)
	}

	anchor := e.selectCore(body.Left)
	named := rename(append([]ColumnLineage(nil), anchor...), cte.Columns)
	e.declare(cte.Name.Name, named)

	for cur := body.Right; cur != nil; cur = cur.Right {
		arm := e.selectCore(cur.Left)
		for i := range anchor {
			if i < len(arm) {
				anchor[i] = combine(anchor[i], arm[i])
			}
		}
	}
	return anchor
}

// selectBody folds set operations positionally: the left side's names
// win, and a column that can come from either branch carries both
// branches' sources.
func (e *extractor) selectBody(body *parser.SelectBody) []ColumnLineage {
	cols := e.selectCore(body.Left)
	if body.Op != parser.SetOpNone && body.Right != nil {
		right := e.selectBody(body.Right)
		for i := range cols {
			if i < len(right) {
				cols[i] = combine(cols[i], right[i])
			}
		}
	}
	return cols
}

func (e *extractor) selectCore(core *parser.SelectCore) []ColumnLineage {
	e.pushFrame()
	defer e.popFrame()
	prevWin := e.windows
	e.windows = namedWindows(core)
	defer func() { e.windows = prevWin }()

	if core.From != nil {
		e.fromClause(core.From)
	}
	e.condition(core.Where)
	e.condition(core.Having)

	var out []ColumnLineage
	for i := range core.Columns {
		item := &core.Columns[i]
		switch {
		case item.Star:
			for _, r := range e.frame.rels {
				for j := range r.cols {
					if r.cols[j].hidden {
						continue
					}
					out = append(out, r.cols[j].lin)
				}
			}

		case item.TableStar != "":
			// A qualified star exposes hidden join duplicates too,
			// matching how the columns resolve with a qualifier.
			if r, ok := e.frame.findRelHere(item.TableStar); ok {
				for j := range r.cols {
					out = append(out, r.cols[j].lin)
				}
			}

		default:
			lin := e.exprLineage(item.Expr)
			lin.Name = resultName(item.Expr, item.Alias)
			out = append(out, lin)
		}
	}
	return out
}

func namedWindows(core *parser.SelectCore) map[string]*parser.WindowSpec {
	if len(core.Windows) == 0 {
		return nil
	}
	m := make(map[string]*parser.WindowSpec, len(core.Windows))
	for _, def := range core.Windows {
		m[strings.ToLower(def.Name.Name)] = def.Spec
	}
	return m
}

// condition records every column a filtering expression touches.
func (e *extractor) condition(expr parser.Expr) {
	if expr == nil {
		return
	}
	lin := e.exprLineage(expr)
	e.conds.add(lin.Sources...)
}

// ---------- FROM ----------

func (e *extractor) fromClause(from *parser.FromClause) {
	e.tableRef(from.Source)
	for _, join := range from.Joins {
		right := e.tableRef(join.Right)
		e.join(join, right)
	}
}

// tableRef mirrors one FROM item into the current frame.
func (e *extractor) tableRef(ref parser.TableRef) *rel {
	var r *rel
	switch tr := ref.(type) {
	case *parser.TableName:
		r = e.relForTable(tr)
	case *parser.DerivedTable:
		r = &rel{name: tr.Alias, cols: toRelCols(e.selectStmt(tr.Select))}
	case *parser.LateralTable:
		r = &rel{name: tr.Alias, cols: toRelCols(e.selectStmt(tr.Select))}
	}
	if r != nil {
		e.frame.rels = append(e.frame.rels, r)
	}
	return r
}

// relForTable resolves a table name to a CTE or catalog table. An
// unresolvable name yields a relation with no columns rather than an
// error: lineage degrades, it never fails.
func (e *extractor) relForTable(tr *parser.TableName) *rel {
	if tr.Schema == "" && tr.Catalog == "" {
		if cte, ok := e.frame.lookupCTE(tr.Name); ok {
			return cloneRel(cte, tr.Alias)
		}
	}

	tbl, ok := e.lookupTable(tr)
	if !ok {
		return &rel{name: effectiveName(tr.Name, tr.Alias)}
	}
	e.tables[tbl.Name] = struct{}{}

	cols := make([]relCol, len(tbl.Columns))
	for i, c := range tbl.Columns {
		cols[i] = relCol{lin: ColumnLineage{
			Name:      c.Name,
			Transform: Direct,
			Sources:   []SourceColumn{{Table: tbl.Name, Column: c.Name}},
		}}
	}
	return &rel{name: effectiveName(tr.Name, tr.Alias), cols: cols}
}

// lookupTable tries the qualified spelling first, then the bare name;
// the catalog itself is a single namespace.
func (e *extractor) lookupTable(tr *parser.TableName) (*catalog.Table, bool) {
	if e.cat == nil {
		return nil, false
	}
	if tr.Schema != "" {
		if tbl, ok := e.cat.Table(tr.Schema + "." + tr.Name); ok {
			return tbl, true
		}
	}
	return e.cat.Table(tr.Name)
}

// noteTable records a table read for statements that scan their
// target: UPDATE, DELETE, and MERGE all read the rows they modify.
func (e *extractor) noteTable(tr *parser.TableName) {
	if tbl, ok := e.lookupTable(tr); ok {
		e.tables[tbl.Name] = struct{}{}
	}
}

// targetName resolves a written table to its catalog spelling, falling
// back to the name as written.
func (e *extractor) targetName(tr *parser.TableName) string {
	if tbl, ok := e.lookupTable(tr); ok {
		return tbl.Name
	}
	return displayName(tr)
}

// ---------- joins ----------

func (e *extractor) join(join *parser.Join, right *rel) {
	left := e.frame.rels[:len(e.frame.rels)-1]

	switch {
	case join.Natural:
		e.mergeNatural(left, right)
	case len(join.Using) > 0:
		e.mergeUsing(join.Using, left, right)
	case join.Condition != nil:
		e.condition(join.Condition)
	}
}

// mergeUsing hides the right-side copy of each USING column and folds
// its sources into the surviving left column. Both sides also count as
// condition inputs: the implied equality gates the joined rows.
func (e *extractor) mergeUsing(using []parser.Ident, left []*rel, right *rel) {
	for _, ident := range using {
		lcol, _ := findCol(left, ident.Name)
		var rcol *relCol
		if right != nil {
			rcol, _ = right.column(ident.Name)
		}
		e.coalesce(lcol, rcol)
	}
}

// mergeNatural joins on every column name the two sides share.
func (e *extractor) mergeNatural(left []*rel, right *rel) {
	if right == nil {
		return
	}
	for i := range right.cols {
		rcol := &right.cols[i]
		lcol, ok := findCol(left, rcol.lin.Name)
		if !ok {
			continue
		}
		e.coalesce(lcol, rcol)
	}
}

// coalesce merges one joined column pair: the right copy is hidden,
// the left carries both sides' sources from then on.
func (e *extractor) coalesce(lcol, rcol *relCol) {
	if lcol != nil {
		e.conds.add(lcol.lin.Sources...)
	}
	if rcol != nil {
		e.conds.add(rcol.lin.Sources...)
		rcol.hidden = true
	}
	if lcol != nil && rcol != nil {
		lcol.lin = combine(lcol.lin, rcol.lin)
	}
}

// findCol locates a column by name across a join's left side, skipping
// columns already hidden by earlier merges.
func findCol(rels []*rel, name string) (*relCol, bool) {
	for _, r := range rels {
		if col, ok := r.column(name); ok && !col.hidden {
			return col, true
		}
	}
	return nil, false
}

// ---------- DML ----------

// insert names inserted columns after the target and traces each from
// the query projection or the VALUES expressions feeding it.
func (e *extractor) insert(stmt *parser.InsertStmt) []ColumnLineage {
	names := e.insertNames(stmt.Table, stmt.Columns)

	if stmt.Query != nil {
		cols := e.selectStmt(stmt.Query)
		for i := range cols {
			if i < len(names) {
				cols[i].Name = names[i]
			}
		}
		return cols
	}

	out := make([]ColumnLineage, len(names))
	for i, name := range names {
		out[i] = ColumnLineage{Name: name, Transform: Constant}
	}
	seeded := make([]bool, len(out))
	for _, row := range stmt.Values {
		for j, val := range row {
			if j >= len(out) {
				break
			}
			lin := e.exprLineage(val)
			lin.Name = out[j].Name
			if seeded[j] {
				out[j] = combine(out[j], lin)
			} else {
				out[j] = lin
				seeded[j] = true
			}
		}
	}
	return out
}

// insertNames resolves the inserted column names: the explicit list,
// or the target's full column set.
func (e *extractor) insertNames(tr *parser.TableName, explicit []parser.Ident) []string {
	if len(explicit) > 0 {
		names := make([]string, len(explicit))
		for i, id := range explicit {
			names[i] = id.Name
		}
		return names
	}
	if tbl, ok := e.lookupTable(tr); ok {
		names := make([]string, len(tbl.Columns))
		for i, c := range tbl.Columns {
			names[i] = c.Name
		}
		return names
	}
	return nil
}

func (e *extractor) update(stmt *parser.UpdateStmt) []ColumnLineage {
	e.noteTable(stmt.Table)
	out := e.assignments(stmt.Set, nil, nil)
	e.condition(stmt.Where)
	return out
}

// merge reads both the target and the source relation; every arm's
// assignments and inserted values fold into one column list keyed by
// target column.
func (e *extractor) merge(stmt *parser.MergeStmt) []ColumnLineage {
	e.pushFrame()
	defer e.popFrame()
	e.noteTable(stmt.Target)
	e.tableRef(stmt.Source)
	e.condition(stmt.On)

	var out []ColumnLineage
	idx := make(map[string]int)
	for _, when := range stmt.Whens {
		e.condition(when.Condition)
		switch act := when.Action.(type) {
		case *parser.MergeUpdate:
			out = e.assignments(act.Set, out, idx)
		case *parser.MergeInsert:
			names := e.insertNames(stmt.Target, act.Columns)
			for j, val := range act.Values {
				if j >= len(names) {
					break
				}
				lin := e.exprLineage(val)
				lin.Name = names[j]
				out = fold(out, idx, lin)
			}
		}
	}
	return out
}

// assignments traces SET pairs to the columns feeding each value.
// With a fold index it merges into an existing column list; without
// one it appends in order.
func (e *extractor) assignments(set []parser.Assignment, out []ColumnLineage, idx map[string]int) []ColumnLineage {
	for i := range set {
		lin := e.exprLineage(set[i].Value)
		lin.Name = set[i].Column.Name
		if idx == nil {
			out = append(out, lin)
		} else {
			out = fold(out, idx, lin)
		}
	}
	return out
}

// fold merges a column lineage into the list, keyed case-insensitively
// by name, keeping first-seen order.
func fold(out []ColumnLineage, idx map[string]int, lin ColumnLineage) []ColumnLineage {
	key := strings.ToLower(lin.Name)
	if at, ok := idx[key]; ok {
		out[at] = combine(out[at], lin)
		return out
	}
	idx[key] = len(out)
	return append(out, lin)
}

// ---------- helpers ----------

func toRelCols(cols []ColumnLineage) []relCol {
	out := make([]relCol, len(cols))
	for i, c := range cols {
		out[i] = relCol{lin: c}
	}
	return out
}

func cloneRel(src *rel, alias string) *rel {
	cols := make([]relCol, len(src.cols))
	copy(cols, src.cols)
	return &rel{name: effectiveName(src.name, alias), cols: cols}
}

func effectiveName(name, alias string) string {
	if alias != "" {
		return alias
	}
	return name
}

func displayName(tr *parser.TableName) string {
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

// rename applies declared column aliases positionally, leaving excess
// columns under their derived names.
func rename(cols []ColumnLineage, names []parser.Ident) []ColumnLineage {
	for i := range cols {
		if i < len(names) {
			cols[i].Name = names[i].Name
		}
	}
	return cols
}
