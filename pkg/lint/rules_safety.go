package lint

import (
	"fmt"

	"github.com/keeldb/keel/pkg/parser"
)

// SF01 flags UPDATE statements with no WHERE clause.
var SF01 = RuleDef{
	ID:          "SF01",
	Name:        "safety.update-where",
	Group:       "safety",
	Description: "UPDATE without WHERE modifies every row",
	Severity:    SeverityWarning,
	Check:       checkUpdateWhere,
}

// SF02 flags DELETE statements with no WHERE clause.
var SF02 = RuleDef{
	ID:          "SF02",
	Name:        "safety.delete-where",
	Group:       "safety",
	Description: "DELETE without WHERE removes every row",
	Severity:    SeverityWarning,
	Check:       checkDeleteWhere,
}

func init() {
	Register(SF01)
	Register(SF02)
}

func checkUpdateWhere(ctx *Context) []Finding {
	stmt, ok := ctx.Stmt.(*parser.UpdateStmt)
	if !ok || stmt.Where != nil {
		return nil
	}
	return []Finding{{
		RuleID:   SF01.ID,
		Severity: SF01.Severity,
		Message:  fmt.Sprintf("UPDATE without a WHERE clause modifies every row of %q", stmt.Table.Name),
		Span:     stmt.Span,
	}}
}

func checkDeleteWhere(ctx *Context) []Finding {
	stmt, ok := ctx.Stmt.(*parser.DeleteStmt)
	if !ok || stmt.Where != nil {
		return nil
	}
	return []Finding{{
		RuleID:   SF02.ID,
		Severity: SF02.Severity,
		Message:  fmt.Sprintf("DELETE without a WHERE clause removes every row of %q", stmt.Table.Name),
		Span:     stmt.Span,
	}}
}
