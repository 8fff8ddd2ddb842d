package analyzer

import (
	"fmt"
	"strings"

	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/token"
	"github.com/keeldb/keel/pkg/types"
)

// ---------- INSERT ----------

func (a *analysis) analyzeInsert(stmt *parser.InsertStmt) {
	rel := a.relationForTable(stmt.Table)
	targets := a.insertTargets(rel, stmt.Columns)

	if stmt.Query != nil {
		cols := a.analyzeSelectStmt(stmt.Query)
		a.checkInsertArity(rel, stmt.Columns, targets, len(cols), stmt.Query.Span)
		for i := 0; i < len(cols) && i < len(targets); i++ {
			a.checkInsertValueType(targets[i], cols[i].Type, stmt.Query.Span)
		}
		return
	}

	// VALUES expressions resolve against nothing: there is no row
	// context to pull columns from.
	a.pushScope()
	defer a.popScope()
	a.pushQuery()
	defer a.popQuery()
	a.setClause(clauseValues)

	raggedReported := false
	for i, row := range stmt.Values {
		if i == 0 {
			a.checkInsertArity(rel, stmt.Columns, targets, len(row), rowSpan(row, stmt.Span))
		} else if len(row) != len(stmt.Values[0]) && !raggedReported {
			a.errorf(diag.ArityError, rowSpan(row, stmt.Span), "VALUES lists must all be the same length")
			raggedReported = true
		}
		for j, val := range row {
			t := a.typeExpr(val)
			if j < len(targets) {
				a.checkInsertValueType(targets[j], t, val.GetSpan())
			}
		}
	}
}

// insertTargets resolves the explicit column list, or defaults to the
// table's full column set. Misses and duplicates are diagnosed but
// keep a placeholder in the result, so arity checks still line up
// with what was written.
func (a *analysis) insertTargets(rel *relation, cols []parser.Ident) []relColumn {
	if len(cols) == 0 {
		if rel.opaque {
			return nil
		}
		out := make([]relColumn, len(rel.columns))
		copy(out, rel.columns)
		return out
	}

	seen := make(map[string]token.Span, len(cols))
	out := make([]relColumn, 0, len(cols))
	for _, col := range cols {
		key := strings.ToLower(col.Name)
		if first, dup := seen[key]; dup {
			a.addDiag(diag.New(diag.DuplicateDefinition, col.Span,
				"column %q specified more than once", col.Name).
				WithRelated(first, "first listed here"))
		} else {
			seen[key] = col.Span
		}
		ord, ok := rel.column(col.Name)
		if !ok {
			a.errorf(diag.UnknownIdentifier, col.Span, "%s",
				withSuggestion(fmt.Sprintf("column %q of relation %q does not exist", col.Name, rel.effectiveName()),
					col.Name, relColumnNames(rel)))
			out = append(out, relColumn{name: col.Name})
			continue
		}
		out = append(out, rel.columns[ord])
	}
	return out
}

func (a *analysis) checkInsertArity(rel *relation, explicit []parser.Ident, targets []relColumn, n int, span token.Span) {
	if rel.opaque && len(explicit) == 0 {
		return
	}
	if n > len(targets) {
		a.errorf(diag.ArityError, span, "INSERT has more expressions than target columns")
	} else if n < len(targets) {
		a.errorf(diag.ArityError, span, "INSERT has more target columns than expressions")
	}
}

func (a *analysis) checkInsertValueType(target relColumn, t types.Type, span token.Span) {
	if t.IsInvalid() || target.typ.IsInvalid() {
		return
	}
	if !types.Coerces(t, target.typ) {
		a.errorf(diag.TypeMismatch, span,
			"column %q is of type %s but expression is of type %s", target.name, target.typ, t)
	}
}

func rowSpan(row []parser.Expr, fallback token.Span) token.Span {
	if len(row) == 0 {
		return fallback
	}
	return token.Span{Start: row[0].GetSpan().Start, End: row[len(row)-1].GetSpan().End}
}

// ---------- UPDATE ----------

func (a *analysis) analyzeUpdate(stmt *parser.UpdateStmt) {
	a.pushScope()
	defer a.popScope()
	a.pushQuery()
	defer a.popQuery()

	rel := a.relationForTable(stmt.Table)
	a.scope.addRelation(rel)

	prev := a.setClause(clauseSet)
	a.checkAssignments(rel, stmt.Set)
	a.restoreClause(prev)

	if stmt.Where != nil {
		prev := a.setClause(clauseWhere)
		a.typeExprBool(stmt.Where, "WHERE")
		a.restoreClause(prev)
	}
}

// checkAssignments validates SET pairs: each column must exist on the
// target, be assigned once, and accept its value's type. Values are
// typed with the target relation in scope, so they may reference
// other columns of the row.
func (a *analysis) checkAssignments(rel *relation, set []parser.Assignment) {
	seen := make(map[string]token.Span, len(set))
	for i := range set {
		asg := &set[i]
		key := strings.ToLower(asg.Column.Name)
		if first, dup := seen[key]; dup {
			a.addDiag(diag.New(diag.DuplicateDefinition, asg.Column.Span,
				"multiple assignments to same column %q", asg.Column.Name).
				WithRelated(first, "first assigned here"))
		} else {
			seen[key] = asg.Column.Span
		}

		ord, ok := rel.column(asg.Column.Name)
		if !ok {
			a.errorf(diag.UnknownIdentifier, asg.Column.Span, "%s",
				withSuggestion(fmt.Sprintf("column %q of relation %q does not exist", asg.Column.Name, rel.effectiveName()),
					asg.Column.Name, relColumnNames(rel)))
		}

		t := a.typeExpr(asg.Value)
		if !ok || rel.opaque {
			continue
		}
		target := rel.columns[ord]
		if !t.IsInvalid() && !target.typ.IsInvalid() && !types.Coerces(t, target.typ) {
			a.errorf(diag.TypeMismatch, asg.Value.GetSpan(),
				"column %q is of type %s but expression is of type %s", asg.Column.Name, target.typ, t)
		}
	}
}

func relColumnNames(rel *relation) []string {
	out := make([]string, 0, len(rel.columns))
	for i := range rel.columns {
		if !rel.columns[i].hidden {
			out = append(out, rel.columns[i].name)
		}
	}
	return out
}

// ---------- DELETE ----------

func (a *analysis) analyzeDelete(stmt *parser.DeleteStmt) {
	a.pushScope()
	defer a.popScope()
	a.pushQuery()
	defer a.popQuery()

	a.scope.addRelation(a.relationForTable(stmt.Table))

	if stmt.Where != nil {
		prev := a.setClause(clauseWhere)
		a.typeExprBool(stmt.Where, "WHERE")
		a.restoreClause(prev)
	}
}

// ---------- MERGE ----------

// analyzeMerge resolves the target and source relations into one
// scope; every arm sees both. The parser already rejected actions on
// the wrong side of MATCHED.
func (a *analysis) analyzeMerge(stmt *parser.MergeStmt) {
	a.pushScope()
	defer a.popScope()
	a.pushQuery()
	defer a.popQuery()

	target := a.relationForTable(stmt.Target)
	a.scope.addRelation(target)
	a.analyzeTableRef(stmt.Source)

	if stmt.On != nil {
		prev := a.setClause(clauseJoinOn)
		a.typeExprBool(stmt.On, "MERGE/ON")
		a.restoreClause(prev)
	}

	for _, when := range stmt.Whens {
		if when.Condition != nil {
			prev := a.setClause(clauseMergeWhen)
			a.typeExprBool(when.Condition, "MERGE/WHEN AND")
			a.restoreClause(prev)
		}
		switch act := when.Action.(type) {
		case *parser.MergeUpdate:
			prev := a.setClause(clauseSet)
			a.checkAssignments(target, act.Set)
			a.restoreClause(prev)
		case *parser.MergeInsert:
			a.checkMergeInsert(target, when, act)
		}
	}
}

func (a *analysis) checkMergeInsert(target *relation, when *parser.MergeWhen, act *parser.MergeInsert) {
	cols := a.insertTargets(target, act.Columns)
	if !target.opaque || len(act.Columns) > 0 {
		if len(act.Values) > len(cols) {
			a.errorf(diag.ArityError, when.Span, "INSERT has more expressions than target columns")
		} else if len(act.Values) < len(cols) {
			a.errorf(diag.ArityError, when.Span, "INSERT has more target columns than expressions")
		}
	}

	prev := a.setClause(clauseValues)
	defer a.restoreClause(prev)
	for j, val := range act.Values {
		t := a.typeExpr(val)
		if j < len(cols) {
			a.checkInsertValueType(cols[j], t, val.GetSpan())
		}
	}
}
