package lint

import (
	"fmt"
	"strings"

	"github.com/keeldb/keel/pkg/parser"
)

// ST01 flags CASE expressions nested inside CASE expressions.
var ST01 = RuleDef{
	ID:          "ST01",
	Name:        "structure.nested-case",
	Group:       "structure",
	Description: "nested CASE expressions are hard to follow",
	Severity:    SeverityHint,
	Check:       checkNestedCase,
}

// ST02 flags ordinal references in GROUP BY and ORDER BY.
var ST02 = RuleDef{
	ID:          "ST02",
	Name:        "structure.ordinal-ref",
	Group:       "structure",
	Description: "ordinal references break when the select list changes",
	Severity:    SeverityHint,
	Check:       checkOrdinalRef,
}

func init() {
	Register(ST01)
	Register(ST02)
}

func checkNestedCase(ctx *Context) []Finding {
	var findings []Finding
	walk(ctx.Stmt, func(node any) bool {
		outer, ok := node.(*parser.CaseExpr)
		if !ok {
			return true
		}
		if !containsCase(outer) {
			return true
		}
		findings = append(findings, Finding{
			RuleID:   ST01.ID,
			Severity: ST01.Severity,
			Message:  "nested CASE expressions are hard to follow; flatten the branches or split the expression",
			Span:     outer.Span,
		})
		// One finding per outermost nest is enough.
		return false
	})
	return findings
}

// containsCase reports whether any branch of outer holds another CASE,
// without descending into subqueries.
func containsCase(outer *parser.CaseExpr) bool {
	found := false
	walk(outer, func(node any) bool {
		switch n := node.(type) {
		case *parser.SelectStmt:
			return false
		case *parser.CaseExpr:
			if n != outer {
				found = true
				return false
			}
		}
		return !found
	})
	return found
}

func checkOrdinalRef(ctx *Context) []Finding {
	var findings []Finding
	for _, core := range collectCores(ctx.Stmt) {
		for _, e := range core.GroupBy {
			if n, ok := ordinal(e); ok {
				findings = append(findings, ordinalFinding("GROUP BY", n, e))
			}
		}
		for _, item := range core.OrderBy {
			if n, ok := ordinal(item.Expr); ok {
				findings = append(findings, ordinalFinding("ORDER BY", n, item.Expr))
			}
		}
	}
	return findings
}

func ordinal(e parser.Expr) (string, bool) {
	lit, ok := e.(*parser.Literal)
	if !ok || lit.Type != parser.LiteralNumber || strings.ContainsAny(lit.Value, ".eE") {
		return "", false
	}
	return lit.Value, true
}

func ordinalFinding(clause, n string, e parser.Expr) Finding {
	return Finding{
		RuleID:   ST02.ID,
		Severity: ST02.Severity,
		Message:  fmt.Sprintf("%s %s breaks silently when the select list changes; use the column name", clause, n),
		Span:     e.GetSpan(),
	}
}
