package analyzer_test

import (
	"testing"

	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exprType analyzes a query and returns its first output column type.
func exprType(t *testing.T, sql string) types.Type {
	t.Helper()
	res := analyzeOK(t, sql)
	require.NotEmpty(t, res.Columns, "no output columns for %q", sql)
	return res.Columns[0].Type
}

// ---------- Literal Tests ----------

func TestLiteralTypes(t *testing.T) {
	tests := []struct {
		expr string
		kind types.Kind
	}{
		{"1", types.Int32},
		{"2147483647", types.Int32},
		{"2147483648", types.Int64},
		{"9223372036854775807", types.Int64},
		{"99999999999999999999", types.Numeric},
		{"1.5", types.Numeric},
		{"2e10", types.Float64},
		{"'abc'", types.Text},
		{"true", types.Bool},
		{"NULL", types.Null},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.kind, exprType(t, "SELECT "+tt.expr).Kind)
		})
	}
}

// ---------- Operator Tests ----------

func TestOperatorTypes(t *testing.T) {
	tests := []struct {
		expr string
		kind types.Kind
	}{
		{"1 + 2", types.Int32},
		{"1 + 2.5", types.Numeric},
		{"2 * 3", types.Int32},
		{"1 / 2", types.Int32},
		{"7 % 3", types.Int32},
		{"-5", types.Int32},
		{"NULL + 1", types.Int32},
		{"'a' || 'b'", types.Text},
		{"1 = 2", types.Bool},
		{"1 < 2.5", types.Bool},
		{"'x' <> 'y'", types.Bool},
		{"true AND false", types.Bool},
		{"NOT true", types.Bool},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.kind, exprType(t, "SELECT "+tt.expr).Kind)
		})
	}
}

func TestOperatorMismatches(t *testing.T) {
	tests := []struct {
		sql     string
		message string
	}{
		{"SELECT 1 + 'x'", "operator + cannot be applied"},
		{"SELECT 'a' AND true", "operator AND cannot be applied"},
		{"SELECT 1 < 'x'", "operator < cannot be applied"},
		{"SELECT NOT 5", "operator NOT cannot be applied"},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			diags := analyzeFails(t, tt.sql, diag.TypeMismatch)
			assert.Contains(t, firstMessage(diags), tt.message)
		})
	}
}

func TestInvalidSentinelStopsCascade(t *testing.T) {
	// One unknown column inside a larger expression must produce
	// exactly one diagnostic, not one per enclosing operator.
	diags := analyzeFails(t, "SELECT nosuch + 1 + 2 * 3 FROM t", diag.UnknownIdentifier)
	assert.Len(t, diags, 1)
}

// ---------- Overload Resolution Tests ----------

func TestOverloadResolution(t *testing.T) {
	assert.Equal(t, types.Int32, exprType(t, "SELECT f(5)").Kind)
	assert.Equal(t, types.Text, exprType(t, "SELECT f('x')").Kind)
}

func TestOverloadNoMatch(t *testing.T) {
	diags := analyzeFails(t, "SELECT f(5, 'x')", diag.NoMatchingFunction)
	assert.Contains(t, firstMessage(diags), "function f(INT, TEXT) does not exist")

	diags = analyzeFails(t, "SELECT f(1.5)", diag.NoMatchingFunction)
	assert.Contains(t, firstMessage(diags), "function f(NUMERIC) does not exist")
}

func TestOverloadAmbiguous(t *testing.T) {
	// NULL is one coercion step from both overloads.
	diags := analyzeFails(t, "SELECT f(NULL)", diag.AmbiguousOverload)
	assert.Contains(t, firstMessage(diags), "function f(NULL) is not unique")
}

func TestUnknownFunction(t *testing.T) {
	diags := analyzeFails(t, "SELECT shout('x')", diag.NoMatchingFunction)
	assert.Contains(t, firstMessage(diags), `function "shout" does not exist`)
}

func TestUnknownFunctionSuggestion(t *testing.T) {
	diags := analyzeFails(t, "SELECT uppers('x')", diag.NoMatchingFunction)
	assert.Contains(t, firstMessage(diags), `did you mean "upper"?`)
}

func TestCountStar(t *testing.T) {
	assert.Equal(t, types.Int64, exprType(t, "SELECT count(*) FROM t").Kind)

	diags := analyzeFails(t, "SELECT sum(*) FROM t", diag.NoMatchingFunction)
	require.Len(t, diags, 1)
	assert.Contains(t, firstMessage(diags), "sum(*) is not supported")
}

// ---------- Aggregate Context Tests ----------

func TestAggregateContextErrors(t *testing.T) {
	tests := []struct {
		sql     string
		message string
	}{
		{"SELECT k FROM t WHERE sum(v) > 10", "aggregate functions are not allowed in WHERE"},
		{"SELECT sum(sum(v)) FROM t", "aggregate function calls cannot be nested"},
		{"SELECT k FROM t GROUP BY sum(v)", "aggregate functions are not allowed in GROUP BY"},
		{"SELECT a.x FROM a JOIN b ON sum(a.x) = b.x", "aggregate functions are not allowed in JOIN conditions"},
		{"SELECT k FROM t LIMIT count(*)", "aggregate functions are not allowed in LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			diags := analyzeFails(t, tt.sql, diag.GroupingError)
			assert.Contains(t, firstMessage(diags), tt.message)
		})
	}
}

// ---------- Window Call Tests ----------

func TestWindowCalls(t *testing.T) {
	assert.Equal(t, types.Int64, exprType(t, "SELECT row_number() OVER (ORDER BY v) FROM t").Kind)
	assert.Equal(t, types.Int64, exprType(t, "SELECT sum(v) OVER (PARTITION BY k) FROM t").Kind)
	assert.Equal(t, types.Int64,
		exprType(t, "SELECT row_number() OVER w FROM t WINDOW w AS (PARTITION BY k ORDER BY v)").Kind)
}

func TestWindowCallErrors(t *testing.T) {
	tests := []struct {
		sql     string
		kind    diag.Kind
		message string
	}{
		{"SELECT row_number() FROM t", diag.GroupingError,
			"window function row_number requires an OVER clause"},
		{"SELECT length(name) OVER () FROM users", diag.GroupingError,
			"OVER specified, but length is not a window function nor an aggregate function"},
		{"SELECT k FROM t WHERE row_number() OVER () > 1", diag.GroupingError,
			"window functions are not allowed in WHERE"},
		{"SELECT sum(row_number() OVER ()) FROM t", diag.GroupingError,
			"aggregate function calls cannot contain window function calls"},
		{"SELECT length(DISTINCT name) FROM users", diag.GroupingError,
			"DISTINCT specified, but length is not an aggregate function"},
		{"SELECT length(name) FILTER (WHERE true) FROM users", diag.GroupingError,
			"FILTER specified, but length is not an aggregate function"},
		{"SELECT count(DISTINCT v) OVER () FROM t", diag.GroupingError,
			"DISTINCT is not implemented for window functions"},
		{"SELECT row_number() OVER missing FROM t", diag.UnknownIdentifier,
			`window "missing" does not exist`},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			diags := analyzeFails(t, tt.sql, tt.kind)
			assert.Contains(t, firstMessage(diags), tt.message)
		})
	}
}

func TestFilterClause(t *testing.T) {
	assert.Equal(t, types.Int64, exprType(t, "SELECT count(*) FILTER (WHERE k > 0) FROM t").Kind)

	diags := analyzeFails(t, "SELECT count(*) FILTER (WHERE k + 1) FROM t", diag.TypeMismatch)
	assert.Contains(t, firstMessage(diags), "argument of FILTER must be type BOOLEAN, not type INT")
}

func TestFrameOffsets(t *testing.T) {
	analyzeOK(t, "SELECT sum(v) OVER (ORDER BY k ROWS BETWEEN 1 PRECEDING AND CURRENT ROW) FROM t")
	analyzeOK(t, "SELECT sum(v) OVER (ORDER BY k RANGE BETWEEN 1 PRECEDING AND CURRENT ROW) FROM t")

	diags := analyzeFails(t,
		"SELECT sum(v) OVER (ORDER BY k ROWS BETWEEN 'x' PRECEDING AND CURRENT ROW) FROM t",
		diag.TypeMismatch)
	assert.Contains(t, firstMessage(diags), "window frame offset cannot be type TEXT")
}

// ---------- CAST Tests ----------

func TestCastTypes(t *testing.T) {
	assert.Equal(t, types.Int64, exprType(t, "SELECT CAST(1 AS BIGINT)").Kind)
	assert.Equal(t, types.Int32, exprType(t, "SELECT CAST('10' AS INT)").Kind)
	assert.Equal(t, types.Text, exprType(t, "SELECT CAST(id AS TEXT) FROM users").Kind)
	assert.Equal(t, types.Date, exprType(t, "SELECT CAST('2024-01-15' AS DATE)").Kind)
	assert.Equal(t, types.Uuid, exprType(t, "SELECT CAST('123e4567-e89b-12d3-a456-426614174000' AS UUID)").Kind)
	assert.Equal(t, types.Timestamp, exprType(t, "SELECT CAST('2024-01-15 10:30:00' AS TIMESTAMP)").Kind)
}

func TestCastLiteralValidation(t *testing.T) {
	tests := []string{
		"SELECT CAST('abc' AS INT)",
		"SELECT CAST('2024-02-30' AS DATE)",
		"SELECT CAST('25:99:00' AS TIME)",
		"SELECT CAST('not-a-uuid' AS UUID)",
		"SELECT CAST('yesterday' AS TIMESTAMP)",
	}
	for _, sql := range tests {
		t.Run(sql, func(t *testing.T) {
			diags := analyzeFails(t, sql, diag.TypeMismatch)
			assert.Contains(t, firstMessage(diags), "invalid input syntax for type")
		})
	}
}

func TestCastUnknownType(t *testing.T) {
	analyzeFails(t, "SELECT CAST(1 AS wibble)", diag.UnknownIdentifier)
}

// ---------- CASE Tests ----------

func TestCaseTypes(t *testing.T) {
	assert.Equal(t, types.Int32, exprType(t, "SELECT CASE WHEN true THEN 1 ELSE 2 END").Kind)
	assert.Equal(t, types.Numeric, exprType(t, "SELECT CASE WHEN true THEN 1 ELSE 2.5 END").Kind)
	assert.Equal(t, types.Text, exprType(t, "SELECT CASE k WHEN 1 THEN 'a' ELSE 'b' END FROM t").Kind)
}

func TestCaseMismatches(t *testing.T) {
	diags := analyzeFails(t, "SELECT CASE WHEN true THEN 1 ELSE 'x' END", diag.TypeMismatch)
	assert.Contains(t, firstMessage(diags), "CASE types INT and TEXT cannot be matched")

	diags = analyzeFails(t, "SELECT CASE k WHEN 'x' THEN 1 END FROM t", diag.TypeMismatch)
	assert.Contains(t, firstMessage(diags), "CASE operand of type INT cannot be compared to TEXT")
}

// ---------- Predicate Tests ----------

func TestPredicateTypes(t *testing.T) {
	tests := []struct {
		sql  string
		kind types.Kind
	}{
		{"SELECT 2 BETWEEN 1 AND 3", types.Bool},
		{"SELECT 'b' IN ('a', 'b')", types.Bool},
		{"SELECT k IN (SELECT v FROM t) FROM t", types.Bool},
		{"SELECT name LIKE 'A%' FROM users", types.Bool},
		{"SELECT email IS NULL FROM users", types.Bool},
		{"SELECT true IS NOT FALSE", types.Bool},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.kind, exprType(t, tt.sql).Kind)
		})
	}
}

func TestPredicateMismatches(t *testing.T) {
	tests := []struct {
		sql     string
		kind    diag.Kind
		message string
	}{
		{"SELECT 2 BETWEEN 1 AND 'x'", diag.TypeMismatch, "BETWEEN operands"},
		{"SELECT 1 IN (1, 'x')", diag.TypeMismatch, "IN operand"},
		{"SELECT k IN (SELECT k, v FROM t) FROM t", diag.ArityError, "subquery must return only one column"},
		{"SELECT 5 LIKE 'x'", diag.TypeMismatch, "LIKE requires text operands"},
		{"SELECT 1 IS TRUE", diag.TypeMismatch, "argument of IS"},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			diags := analyzeFails(t, tt.sql, tt.kind)
			assert.Contains(t, firstMessage(diags), tt.message)
		})
	}
}

// ---------- Subquery Expression Tests ----------

func TestScalarSubquery(t *testing.T) {
	assert.Equal(t, types.Int32, exprType(t, "SELECT (SELECT 1)").Kind)
	assert.Equal(t, types.Bool, exprType(t, "SELECT EXISTS (SELECT 1 FROM t)").Kind)

	diags := analyzeFails(t, "SELECT (SELECT 1, 2)", diag.ArityError)
	assert.Contains(t, firstMessage(diags), "subquery must return only one column")
}

// ---------- Array and Row Tests ----------

func TestArrayTypes(t *testing.T) {
	at := exprType(t, "SELECT ARRAY[1, 2]")
	require.Equal(t, types.Array, at.Kind)
	require.NotNil(t, at.Elem)
	assert.Equal(t, types.Int32, at.Elem.Kind)

	at = exprType(t, "SELECT ARRAY[1, 2.5]")
	require.NotNil(t, at.Elem)
	assert.Equal(t, types.Numeric, at.Elem.Kind)

	diags := analyzeFails(t, "SELECT ARRAY[1, 'x']", diag.TypeMismatch)
	assert.Contains(t, firstMessage(diags), "ARRAY types")
}

func TestRowTypes(t *testing.T) {
	rt := exprType(t, "SELECT (1, 'a', true)")
	require.Equal(t, types.Row, rt.Kind)
	require.Len(t, rt.Fields, 3)
	assert.Equal(t, types.Int32, rt.Fields[0].Type.Kind)
	assert.Equal(t, types.Text, rt.Fields[1].Type.Kind)
	assert.Equal(t, types.Bool, rt.Fields[2].Type.Kind)
}

// ---------- Nullability Tests ----------

func TestOutputNullability(t *testing.T) {
	tests := []struct {
		sql      string
		nullable bool
	}{
		{"SELECT count(*) FROM t", false},
		{"SELECT sum(v) FROM t", true},
		{"SELECT coalesce(v, 0) FROM t", false},
		{"SELECT coalesce(v) FROM t", true},
		{"SELECT k + 1 FROM t", false},
		{"SELECT v + 1 FROM t", true},
		{"SELECT v IS NULL FROM t", false},
		{"SELECT CASE WHEN k > 0 THEN 1 END FROM t", true},
		{"SELECT CASE WHEN k > 0 THEN 1 ELSE 0 END FROM t", false},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			res := analyzeOK(t, tt.sql)
			require.NotEmpty(t, res.Columns)
			assert.Equal(t, tt.nullable, res.Columns[0].Nullable)
		})
	}
}
