package lint

import (
	"fmt"

	"github.com/keeldb/keel/pkg/parser"
)

// CV01 flags star projections.
var CV01 = RuleDef{
	ID:          "CV01",
	Name:        "convention.select-star",
	Group:       "convention",
	Description: "star projection hides the column contract",
	Severity:    SeverityInfo,
}

// CV02 flags explicit ELSE NULL in CASE expressions.
var CV02 = RuleDef{
	ID:          "CV02",
	Name:        "convention.else-null",
	Group:       "convention",
	Description: "ELSE NULL is the implicit CASE default",
	Severity:    SeverityHint,
}

// Check functions are attached here rather than in the literals so the
// rule vars and the functions that report under them may refer to each
// other without an initialization cycle.
func init() {
	CV01.Check = checkSelectStar
	CV02.Check = checkElseNull
	Register(CV01)
	Register(CV02)
}

func checkSelectStar(ctx *Context) []Finding {
	var findings []Finding
	for _, core := range collectCores(ctx.Stmt) {
		for _, item := range core.Columns {
			if !item.Star && item.TableStar == "" {
				continue
			}
			msg := "star projection hides the column contract; list the columns explicitly"
			if item.TableStar != "" {
				msg = fmt.Sprintf("%q hides the column contract; list the columns explicitly", item.TableStar+".*")
			} else if n, ok := starWidth(ctx, core); ok {
				msg = fmt.Sprintf("star projection hides the column contract; list the %d columns explicitly", n)
			}
			findings = append(findings, Finding{
				RuleID:   CV01.ID,
				Severity: CV01.Severity,
				Message:  msg,
				Span:     item.Span,
			})
		}
	}
	return findings
}

// starWidth reports how many columns a lone star expands to, when the
// statement was analyzed and the core is the whole output. A set
// operation or an extra select item would make the resolved width
// describe more than this star.
func starWidth(ctx *Context, core *parser.SelectCore) (int, bool) {
	if ctx.Resolved == nil || len(core.Columns) != 1 {
		return 0, false
	}
	stmt, ok := ctx.Stmt.(*parser.SelectStmt)
	if !ok || stmt.Body == nil || stmt.Body.Op != parser.SetOpNone || stmt.Body.Left != core {
		return 0, false
	}
	return len(ctx.Resolved.Columns), true
}

func checkElseNull(ctx *Context) []Finding {
	var findings []Finding
	walk(ctx.Stmt, func(node any) bool {
		caseExpr, ok := node.(*parser.CaseExpr)
		if !ok {
			return true
		}
		lit, ok := caseExpr.Else.(*parser.Literal)
		if ok && lit.Type == parser.LiteralNull {
			findings = append(findings, Finding{
				RuleID:   CV02.ID,
				Severity: CV02.Severity,
				Message:  "ELSE NULL is the implicit CASE default and can be dropped",
				Span:     caseExpr.Span,
			})
		}
		return true
	})
	return findings
}
