package lint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeldb/keel/pkg/analyzer"
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/lint"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/types"
)

func mustParse(t *testing.T, sql string) parser.Statement {
	t.Helper()
	stmt, diags := parser.Parse(sql)
	require.Empty(t, diags, "parse %q", sql)
	return stmt
}

// runRule lints sql and keeps only the findings of one rule.
func runRule(t *testing.T, sql, ruleID string) []lint.Finding {
	t.Helper()
	var out []lint.Finding
	for _, f := range lint.Lint(mustParse(t, sql)) {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}
	return out
}

// ---------- Registry ----------

func TestRegistryAll(t *testing.T) {
	all := lint.All()
	require.NotEmpty(t, all)

	for i, rule := range all {
		assert.NotEmpty(t, rule.ID)
		assert.Contains(t, rule.Name, ".", "rule names are group.name")
		assert.NotNil(t, rule.Check, "rule %s has no check", rule.ID)
		if i > 0 {
			assert.Less(t, all[i-1].ID, rule.ID, "rules ordered by ID")
		}
	}
	assert.Equal(t, len(all), lint.Count())
}

func TestRegistryByID(t *testing.T) {
	rule, ok := lint.ByID("SF01")
	require.True(t, ok)
	assert.Equal(t, "safety.update-where", rule.Name)
	assert.Equal(t, lint.SeverityWarning, rule.Severity)

	_, ok = lint.ByID("ZZ99")
	assert.False(t, ok)
}

func TestRegistryByGroup(t *testing.T) {
	safety := lint.ByGroup("safety")
	require.Len(t, safety, 2)
	assert.Equal(t, "SF01", safety[0].ID)
	assert.Equal(t, "SF02", safety[1].ID)

	assert.Empty(t, lint.ByGroup("nope"))
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "error", lint.SeverityError.String())
	assert.Equal(t, "warning", lint.SeverityWarning.String())
	assert.Equal(t, "info", lint.SeverityInfo.String())
	assert.Equal(t, "hint", lint.SeverityHint.String())
}

// ---------- Safety ----------

func TestUpdateWithoutWhere(t *testing.T) {
	findings := runRule(t, "UPDATE users SET name = 'x'", "SF01")
	require.Len(t, findings, 1)
	assert.Equal(t, lint.SeverityWarning, findings[0].Severity)
	assert.Equal(t, `UPDATE without a WHERE clause modifies every row of "users"`, findings[0].Message)

	assert.Empty(t, runRule(t, "UPDATE users SET name = 'x' WHERE id = 1", "SF01"))
}

func TestDeleteWithoutWhere(t *testing.T) {
	findings := runRule(t, "DELETE FROM users", "SF02")
	require.Len(t, findings, 1)
	assert.Equal(t, `DELETE without a WHERE clause removes every row of "users"`, findings[0].Message)

	assert.Empty(t, runRule(t, "DELETE FROM users WHERE id = 1", "SF02"))
}

// ---------- Ambiguity ----------

func TestCommaJoin(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantDiag bool
	}{
		{"comma join", "SELECT id FROM users, orders", true},
		{"explicit cross join", "SELECT id FROM users CROSS JOIN orders", false},
		{"inner join", "SELECT id FROM users JOIN orders ON users.id = orders.user_id", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runRule(t, tt.sql, "AM01")
			if tt.wantDiag {
				assert.NotEmpty(t, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestJoinConditionTouchesJoined(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantDiag bool
	}{
		{"condition ignores joined table", "SELECT 1 FROM users AS u JOIN orders AS o ON u.id = u.age", true},
		{"condition uses joined alias", "SELECT 1 FROM users AS u JOIN orders AS o ON u.id = o.user_id", false},
		{"condition uses table name", "SELECT 1 FROM users JOIN orders ON users.id = orders.user_id", false},
		{"unqualified condition", "SELECT 1 FROM users JOIN orders ON id = user_id", false},
		{"using join", "SELECT 1 FROM users AS u JOIN orders AS o USING (id)", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runRule(t, tt.sql, "AM02")
			if tt.wantDiag {
				require.Len(t, got, 1)
				assert.Equal(t, `join condition does not reference the joined relation "o"`, got[0].Message)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestBareUnion(t *testing.T) {
	findings := runRule(t, "SELECT id FROM users UNION SELECT id FROM orders", "AM03")
	require.Len(t, findings, 1)
	assert.Equal(t, lint.SeverityInfo, findings[0].Severity)

	assert.Empty(t, runRule(t, "SELECT id FROM users UNION ALL SELECT id FROM orders", "AM03"))
	assert.Empty(t, runRule(t, "SELECT id FROM users INTERSECT SELECT id FROM orders", "AM03"))
}

func TestDistinctWithGroupBy(t *testing.T) {
	findings := runRule(t, "SELECT DISTINCT status FROM orders GROUP BY status", "AM04")
	require.Len(t, findings, 1)

	assert.Empty(t, runRule(t, "SELECT DISTINCT status FROM orders", "AM04"))
	assert.Empty(t, runRule(t, "SELECT status FROM orders GROUP BY status", "AM04"))
}

// ---------- Convention ----------

func TestSelectStar(t *testing.T) {
	findings := runRule(t, "SELECT * FROM users", "CV01")
	require.Len(t, findings, 1)
	assert.Equal(t, lint.SeverityInfo, findings[0].Severity)
	assert.Equal(t, "star projection hides the column contract; list the columns explicitly", findings[0].Message)

	findings = runRule(t, "SELECT u.* FROM users AS u", "CV01")
	require.Len(t, findings, 1)
	assert.Equal(t, `"u.*" hides the column contract; list the columns explicitly`, findings[0].Message)

	assert.Empty(t, runRule(t, "SELECT id, name FROM users", "CV01"))
}

func TestSelectStarInSubquery(t *testing.T) {
	findings := runRule(t, "SELECT id FROM (SELECT * FROM users) AS u", "CV01")
	assert.Len(t, findings, 1)
}

func TestSelectStarResolvedWidth(t *testing.T) {
	cat, err := catalog.Builtins().
		AddTable(catalog.Table{
			Name: "users",
			Columns: []catalog.Column{
				{Name: "id", Type: types.Of(types.Int32)},
				{Name: "name", Type: types.Of(types.Text)},
				{Name: "email", Type: types.Of(types.Text), Nullable: true},
			},
		}).
		Build()
	require.NoError(t, err)

	stmt := mustParse(t, "SELECT * FROM users")
	res, diags := analyzer.Analyze(stmt, cat)
	require.Empty(t, diags)

	var found []lint.Finding
	for _, f := range lint.LintResolved(stmt, res) {
		if f.RuleID == "CV01" {
			found = append(found, f)
		}
	}
	require.Len(t, found, 1)
	assert.Equal(t, "star projection hides the column contract; list the 3 columns explicitly", found[0].Message)
}

func TestElseNull(t *testing.T) {
	sql := "SELECT CASE WHEN age > 21 THEN 'adult' ELSE NULL END FROM users"
	findings := runRule(t, sql, "CV02")
	require.Len(t, findings, 1)
	assert.Equal(t, lint.SeverityHint, findings[0].Severity)

	assert.Empty(t, runRule(t, "SELECT CASE WHEN age > 21 THEN 'adult' END FROM users", "CV02"))
	assert.Empty(t, runRule(t, "SELECT CASE WHEN age > 21 THEN 'adult' ELSE 'minor' END FROM users", "CV02"))
}

// ---------- Structure ----------

func TestNestedCase(t *testing.T) {
	sql := "SELECT CASE WHEN k > 0 THEN CASE WHEN v > 0 THEN 1 ELSE 2 END ELSE 3 END FROM t"
	findings := runRule(t, sql, "ST01")
	require.Len(t, findings, 1, "one finding per outermost nest")

	flat := "SELECT CASE WHEN k > 0 THEN 1 WHEN v > 0 THEN 2 ELSE 3 END FROM t"
	assert.Empty(t, runRule(t, flat, "ST01"))
}

func TestNestedCaseAcrossSubquery(t *testing.T) {
	// A CASE whose branch selects a CASE in a subquery is two scopes,
	// not one nest.
	sql := "SELECT CASE WHEN k > 0 THEN (SELECT CASE WHEN v > 0 THEN 1 END FROM t) END FROM t"
	assert.Empty(t, runRule(t, sql, "ST01"))
}

func TestOrdinalReferences(t *testing.T) {
	sql := "SELECT status, count(*) FROM orders GROUP BY 1 ORDER BY 2"
	findings := runRule(t, sql, "ST02")
	require.Len(t, findings, 2)
	assert.Equal(t, "GROUP BY 1 breaks silently when the select list changes; use the column name", findings[0].Message)
	assert.Equal(t, "ORDER BY 2 breaks silently when the select list changes; use the column name", findings[1].Message)

	assert.Empty(t, runRule(t, "SELECT status FROM orders GROUP BY status ORDER BY status", "ST02"))
	assert.Empty(t, runRule(t, "SELECT price * 1.5 FROM items ORDER BY price", "ST02"))
}

// ---------- Ordering ----------

func TestFindingsOrderedBySpan(t *testing.T) {
	findings := lint.Lint(mustParse(t, "SELECT * FROM users, orders"))
	require.GreaterOrEqual(t, len(findings), 2)

	for i := 1; i < len(findings); i++ {
		prev, cur := findings[i-1], findings[i]
		ok := prev.Span.Start.Offset < cur.Span.Start.Offset ||
			(prev.Span.Start.Offset == cur.Span.Start.Offset && prev.RuleID <= cur.RuleID)
		assert.True(t, ok, "findings out of order: %s before %s", prev.RuleID, cur.RuleID)
	}
	assert.Equal(t, "CV01", findings[0].RuleID, "star projection comes first in source order")
}

func TestLintNilStatement(t *testing.T) {
	assert.Empty(t, lint.Lint(nil))
}
