package lint

import (
	"fmt"
	"strings"

	"github.com/keeldb/keel/pkg/parser"
)

// AM01 flags comma joins, which are cross products in disguise.
var AM01 = RuleDef{
	ID:          "AM01",
	Name:        "ambiguous.comma-join",
	Group:       "ambiguous",
	Description: "comma join is an implicit cross product",
	Severity:    SeverityWarning,
}

// AM02 flags join conditions that never touch the joined relation.
var AM02 = RuleDef{
	ID:          "AM02",
	Name:        "ambiguous.join-condition",
	Group:       "ambiguous",
	Description: "join condition does not reference the joined relation",
	Severity:    SeverityWarning,
}

// AM03 flags bare UNION, whose duplicate removal is often unintended.
var AM03 = RuleDef{
	ID:          "AM03",
	Name:        "ambiguous.union",
	Group:       "ambiguous",
	Description: "UNION without ALL silently removes duplicate rows",
	Severity:    SeverityInfo,
}

// AM04 flags DISTINCT combined with GROUP BY.
var AM04 = RuleDef{
	ID:          "AM04",
	Name:        "ambiguous.distinct-group-by",
	Group:       "ambiguous",
	Description: "DISTINCT is redundant when GROUP BY is present",
	Severity:    SeverityWarning,
}

// Check functions are attached here rather than in the literals so the
// rule vars and the functions that report under them may refer to each
// other without an initialization cycle.
func init() {
	AM01.Check = checkCommaJoin
	AM02.Check = checkJoinCondition
	AM03.Check = checkBareUnion
	AM04.Check = checkDistinctGroupBy
	Register(AM01)
	Register(AM02)
	Register(AM03)
	Register(AM04)
}

func checkCommaJoin(ctx *Context) []Finding {
	var findings []Finding
	for _, join := range collectJoins(ctx.Stmt) {
		if join.Type != parser.JoinComma {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   AM01.ID,
			Severity: AM01.Severity,
			Message:  "comma join is an implicit cross product; write CROSS JOIN or add a join condition",
			Span:     join.Span,
		})
	}
	return findings
}

func checkJoinCondition(ctx *Context) []Finding {
	var findings []Finding
	for _, join := range collectJoins(ctx.Stmt) {
		if join.Condition == nil {
			continue
		}
		name := refName(join.Right)
		if name == "" {
			continue
		}
		refs := qualifiedRefs(join.Condition)
		if len(refs) == 0 {
			// Unqualified conditions are legal and common; the
			// analyzer resolves them, so stay quiet.
			continue
		}
		touched := false
		for _, ref := range refs {
			if strings.EqualFold(ref.Table, name) {
				touched = true
				break
			}
		}
		if !touched {
			findings = append(findings, Finding{
				RuleID:   AM02.ID,
				Severity: AM02.Severity,
				Message:  fmt.Sprintf("join condition does not reference the joined relation %q", name),
				Span:     join.Span,
			})
		}
	}
	return findings
}

func checkBareUnion(ctx *Context) []Finding {
	var findings []Finding
	for _, body := range collectBodies(ctx.Stmt) {
		if body.Op != parser.SetOpUnion || body.All {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   AM03.ID,
			Severity: AM03.Severity,
			Message:  "UNION removes duplicate rows; write UNION ALL if duplicates should be kept",
			Span:     body.Span,
		})
	}
	return findings
}

func checkDistinctGroupBy(ctx *Context) []Finding {
	var findings []Finding
	for _, core := range collectCores(ctx.Stmt) {
		if !core.Distinct || len(core.GroupBy) == 0 {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   AM04.ID,
			Severity: AM04.Severity,
			Message:  "DISTINCT is redundant here; GROUP BY already returns one row per group",
			Span:     core.Span,
		})
	}
	return findings
}
