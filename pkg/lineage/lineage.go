// Package lineage traces analyzed statements back to the catalog
// columns that feed them. For each output column it reports the base
// table columns the value descends from, following references through
// CTEs, derived tables, and set operations; columns consumed by
// filters and join predicates are collected separately, so callers can
// tell what shapes a value apart from what gates the rows.
//
// Extraction works on the analyzer's output: column references resolve
// through the recorded bindings, never by re-deriving scope rules.
package lineage

import (
	"sort"

	"github.com/keeldb/keel/pkg/analyzer"
	"github.com/keeldb/keel/pkg/catalog"
)

// Transform describes how an output column relates to its sources.
type Transform int

const (
	// Direct marks a bare column reference passed through unchanged.
	Direct Transform = iota
	// Expression marks a value computed from one or more columns.
	Expression
	// Constant marks a value with no column inputs at all.
	Constant
)

var transformNames = map[Transform]string{
	Direct:     "direct",
	Expression: "expression",
	Constant:   "constant",
}

func (t Transform) String() string {
	if name, ok := transformNames[t]; ok {
		return name
	}
	return "unknown"
}

// SourceColumn identifies one catalog column a value descends from.
type SourceColumn struct {
	Table  string
	Column string
}

func (s SourceColumn) String() string {
	return s.Table + "." + s.Column
}

// ColumnLineage traces one output column of a statement.
type ColumnLineage struct {
	Name      string
	Transform Transform
	Sources   []SourceColumn // sorted, deduplicated
	Functions []string       // functions applied along the way, sorted
}

// Report is the lineage of one analyzed statement.
type Report struct {
	// Target is the object a write-style statement modifies: the
	// table for DML, the created or dropped object for DDL. Queries
	// leave it empty.
	Target string

	// Columns traces the statement's output: the projection of a
	// query or view, the assigned and inserted columns of DML.
	Columns []ColumnLineage

	// Tables lists every catalog table the statement reads, sorted.
	// Subqueries and CTE bodies count; a pure INSERT target does not.
	Tables []string

	// Conditions lists the columns consumed by WHERE, HAVING, and
	// join predicates anywhere in the statement: they gate which rows
	// exist without necessarily appearing in any output value.
	Conditions []SourceColumn
}

// Extract computes the lineage of an analyzed statement. The catalog
// must be the one the statement was analyzed against; it supplies
// column lists for star expansion, and nil behaves like an empty one.
// A nil resolved statement yields a nil report.
func Extract(res *analyzer.ResolvedStatement, cat *catalog.Catalog) *Report {
	if res == nil {
		return nil
	}
	e := &extractor{
		res:    res,
		cat:    cat,
		tables: make(map[string]struct{}),
		conds:  newSourceSet(),
	}
	rep := e.statement(res.Stmt)

	rep.Tables = make([]string, 0, len(e.tables))
	for name := range e.tables {
		rep.Tables = append(rep.Tables, name)
	}
	sort.Strings(rep.Tables)
	if len(rep.Tables) == 0 {
		rep.Tables = nil
	}
	rep.Conditions = e.conds.sorted()
	return rep
}

// combine folds two lineages of the same output position into one.
// Directness survives only when both sides pass through the same
// single column; a value that can come from different places counts
// as computed.
func combine(a, b ColumnLineage) ColumnLineage {
	set := newSourceSet()
	set.add(a.Sources...)
	set.add(b.Sources...)
	out := ColumnLineage{
		Name:      a.Name,
		Sources:   set.sorted(),
		Functions: mergeNames(a.Functions, b.Functions),
	}
	switch {
	case len(out.Sources) == 0:
		out.Transform = Constant
	case a.Transform == Direct && b.Transform == Direct && len(out.Sources) == 1:
		out.Transform = Direct
	default:
		out.Transform = Expression
	}
	return out
}

// ---------- source sets ----------

type sourceSet struct {
	m map[SourceColumn]struct{}
}

func newSourceSet() *sourceSet {
	return &sourceSet{m: make(map[SourceColumn]struct{})}
}

func (s *sourceSet) add(cols ...SourceColumn) {
	for _, c := range cols {
		s.m[c] = struct{}{}
	}
}

func (s *sourceSet) sorted() []SourceColumn {
	if len(s.m) == 0 {
		return nil
	}
	out := make([]SourceColumn, 0, len(s.m))
	for c := range s.m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Column < out[j].Column
	})
	return out
}

func mergeNames(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	set := make(map[string]struct{}, len(a)+len(b))
	for _, n := range a {
		set[n] = struct{}{}
	}
	for _, n := range b {
		set[n] = struct{}{}
	}
	return sortedNames(set)
}

func sortedNames(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
