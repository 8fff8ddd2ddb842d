package analyzer

import (
	"strings"

	"github.com/keeldb/keel/pkg/token"
	"github.com/keeldb/keel/pkg/types"
)

// RelationKind indicates what a scope relation was built from.
type RelationKind int

const (
	// RelTable is a catalog table brought in by a FROM item.
	RelTable RelationKind = iota
	// RelCTE is a common table expression.
	RelCTE
	// RelDerived is a subquery in FROM.
	RelDerived
)

// relColumn is one column a relation exposes to name resolution.
type relColumn struct {
	name     string
	typ      types.Type
	nullable bool

	// hidden marks the right-side duplicate of a USING or NATURAL
	// join column: still addressable with a qualifier, skipped by
	// star expansion and unqualified lookup.
	hidden bool
}

// relation is one FROM item's contribution to a scope: its effective
// name and the ordered columns it exposes.
type relation struct {
	kind    RelationKind
	name    string // base table or CTE name
	alias   string
	table   string // catalog table name, "" for CTEs and derived tables
	columns []relColumn
	span    token.Span // the FROM item, for "could refer to" notes

	// opaque marks a relation whose table was not found. It accepts
	// any column name with the sentinel type, so one unknown table
	// produces one diagnostic instead of one per column reference.
	opaque bool
}

// effectiveName returns the name used to qualify this relation's
// columns: the alias if present, the base name otherwise.
func (r *relation) effectiveName() string {
	if r.alias != "" {
		return r.alias
	}
	return r.name
}

// column returns the ordinal of the named column, hidden ones
// included. Opaque relations synthesize a hidden sentinel-typed
// column for any name asked of them.
func (r *relation) column(name string) (int, bool) {
	for i := range r.columns {
		if strings.EqualFold(r.columns[i].name, name) {
			return i, true
		}
	}
	if r.opaque {
		r.columns = append(r.columns, relColumn{name: name, nullable: true, hidden: true})
		return len(r.columns) - 1, true
	}
	return 0, false
}

// scope is one level of the name-resolution stack: the relations of a
// single query's FROM clause plus the CTEs declared at that level.
// Lookups that miss walk to the parent scope, which is how correlated
// subqueries see enclosing columns.
type scope struct {
	parent    *scope
	relations []*relation

	ctes     map[string]*relation
	cteSpans map[string]token.Span

	// barrier stops column lookup from reaching enclosing scopes.
	// A derived table's body sits behind a barrier (only LATERAL may
	// correlate from inside FROM); CTE lookup is not blocked.
	barrier bool
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent}
}

// declareCTE registers a CTE at this scope level. The previous span is
// returned when the name is already taken, so the caller can point the
// duplicate diagnostic at the first definition.
func (s *scope) declareCTE(name string, rel *relation, span token.Span) (token.Span, bool) {
	if s.ctes == nil {
		s.ctes = make(map[string]*relation)
		s.cteSpans = make(map[string]token.Span)
	}
	key := strings.ToLower(name)
	if prev, exists := s.cteSpans[key]; exists {
		return prev, false
	}
	s.ctes[key] = rel
	s.cteSpans[key] = span
	return token.Span{}, true
}

// lookupCTE finds a CTE by name, searching enclosing scopes. CTEs stay
// visible behind derived-table barriers.
func (s *scope) lookupCTE(name string) (*relation, bool) {
	key := strings.ToLower(name)
	for cur := s; cur != nil; cur = cur.parent {
		if rel, ok := cur.ctes[key]; ok {
			return rel, true
		}
	}
	return nil, false
}

// addRelation appends a FROM item's relation to this scope level.
func (s *scope) addRelation(rel *relation) {
	s.relations = append(s.relations, rel)
}

// findRelation resolves a qualifier to a relation in this scope level
// only.
func (s *scope) findRelation(name string) (*relation, bool) {
	for _, rel := range s.relations {
		if strings.EqualFold(rel.effectiveName(), name) {
			return rel, true
		}
	}
	return nil, false
}

// columnHit is one candidate resolution of an unqualified name.
type columnHit struct {
	rel     *relation
	ordinal int
}

// lookupResult is the outcome of a column lookup across the scope
// chain.
type lookupResult struct {
	rel        *relation
	ordinal    int
	correlated bool // found in an enclosing scope

	ambiguous []columnHit // two or more candidates at one level
	qualifier bool        // the qualifier itself did not resolve
}

// lookupColumn resolves a possibly-qualified column reference. A
// qualified name searches for the relation first; an unqualified name
// collects candidates across all relations of one scope level and
// reports two or more as ambiguous. Hidden join duplicates never
// count as candidates, which is how USING collapses a join column to
// a single unqualified name.
func (s *scope) lookupColumn(qualifier, name string) (lookupResult, bool) {
	correlated := false
	for cur := s; cur != nil; cur = cur.parent {
		if qualifier != "" {
			if rel, ok := cur.findRelation(qualifier); ok {
				if ord, ok := rel.column(name); ok {
					return lookupResult{rel: rel, ordinal: ord, correlated: correlated}, true
				}
				// Qualifier matched, column did not; stop here so the
				// diagnostic names this relation's columns.
				return lookupResult{rel: rel, correlated: correlated}, false
			}
		} else {
			var hits []columnHit
			for _, rel := range cur.relations {
				if rel.opaque {
					continue
				}
				if ord, ok := rel.column(name); ok && !rel.columns[ord].hidden {
					hits = append(hits, columnHit{rel: rel, ordinal: ord})
				}
			}
			if len(hits) == 1 {
				return lookupResult{rel: hits[0].rel, ordinal: hits[0].ordinal, correlated: correlated}, true
			}
			if len(hits) > 1 {
				return lookupResult{ambiguous: hits}, false
			}
			// With no concrete match, let an opaque relation absorb
			// the name rather than stack a second diagnostic on it.
			for _, rel := range cur.relations {
				if rel.opaque {
					ord, _ := rel.column(name)
					return lookupResult{rel: rel, ordinal: ord, correlated: correlated}, true
				}
			}
		}
		if cur.barrier {
			break
		}
		correlated = true
	}
	if qualifier != "" {
		return lookupResult{qualifier: true}, false
	}
	return lookupResult{}, false
}

// visibleColumns returns the star expansion of this scope level:
// every non-hidden column of every relation, in FROM order.
func (s *scope) visibleColumns() []columnHit {
	if s == nil {
		return nil
	}
	var out []columnHit
	for _, rel := range s.relations {
		for i := range rel.columns {
			if rel.columns[i].hidden {
				continue
			}
			out = append(out, columnHit{rel: rel, ordinal: i})
		}
	}
	return out
}

// columnNames returns every non-hidden column name visible at this
// scope level, for suggestion probes.
func (s *scope) columnNames() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, rel := range s.relations {
		for i := range rel.columns {
			if !rel.columns[i].hidden {
				out = append(out, rel.columns[i].name)
			}
		}
	}
	return out
}

// relationNames returns the effective names of this scope level's
// relations.
func (s *scope) relationNames() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.relations))
	for i, rel := range s.relations {
		out[i] = rel.effectiveName()
	}
	return out
}

// markNullable flags every column of the relation as nullable. Outer
// joins apply it to their null-extended side.
func (r *relation) markNullable() {
	for i := range r.columns {
		r.columns[i].nullable = true
	}
}
