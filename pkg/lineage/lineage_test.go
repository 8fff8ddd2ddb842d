package lineage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeldb/keel/pkg/analyzer"
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/lineage"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/types"
)

// ---------- Test Helpers ----------

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Builtins().
		AddTable(catalog.Table{
			Name: "users",
			Columns: []catalog.Column{
				{Name: "id", Type: types.Of(types.Int32)},
				{Name: "email", Type: types.Of(types.Text)},
				{Name: "city", Type: types.Of(types.Text), Nullable: true},
			},
			PrimaryKey: []string{"id"},
		}).
		AddTable(catalog.Table{
			Name: "orders",
			Columns: []catalog.Column{
				{Name: "id", Type: types.Of(types.Int32)},
				{Name: "user_id", Type: types.Of(types.Int32)},
				{Name: "total", Type: types.Of(types.Numeric)},
				{Name: "placed_at", Type: types.Of(types.Timestamp), Nullable: true},
			},
			PrimaryKey: []string{"id"},
		}).
		Build()
	require.NoError(t, err)
	return cat
}

// extract parses, analyzes, and computes lineage for one statement,
// failing the test on any diagnostic along the way.
func extract(t *testing.T, cat *catalog.Catalog, sql string) *lineage.Report {
	t.Helper()
	stmt, diags := parser.Parse(sql)
	require.Empty(t, diags, "parse: %s", sql)
	res, diags := analyzer.Analyze(stmt, cat)
	require.Empty(t, diags, "analyze: %s", sql)
	rep := lineage.Extract(res, cat)
	require.NotNil(t, rep)
	return rep
}

func src(table, column string) lineage.SourceColumn {
	return lineage.SourceColumn{Table: table, Column: column}
}

// ---------- Queries ----------

func TestSelectColumns(t *testing.T) {
	rep := extract(t, testCatalog(t), "SELECT id, email AS contact, upper(city) FROM users")
	require.Len(t, rep.Columns, 3)

	assert.Equal(t, "id", rep.Columns[0].Name)
	assert.Equal(t, lineage.Direct, rep.Columns[0].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[0].Sources)

	assert.Equal(t, "contact", rep.Columns[1].Name)
	assert.Equal(t, lineage.Direct, rep.Columns[1].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("users", "email")}, rep.Columns[1].Sources)

	assert.Equal(t, "upper", rep.Columns[2].Name)
	assert.Equal(t, lineage.Expression, rep.Columns[2].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("users", "city")}, rep.Columns[2].Sources)
	assert.Equal(t, []string{"upper"}, rep.Columns[2].Functions)

	assert.Equal(t, []string{"users"}, rep.Tables)
	assert.Empty(t, rep.Conditions)
	assert.Empty(t, rep.Target)
}

func TestSelectStar(t *testing.T) {
	rep := extract(t, testCatalog(t), "SELECT * FROM users")
	require.Len(t, rep.Columns, 3)
	for i, name := range []string{"id", "email", "city"} {
		assert.Equal(t, name, rep.Columns[i].Name)
		assert.Equal(t, lineage.Direct, rep.Columns[i].Transform)
		assert.Equal(t, []lineage.SourceColumn{src("users", name)}, rep.Columns[i].Sources)
	}
}

func TestStarAcrossJoin(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT * FROM users u JOIN orders o ON o.user_id = u.id")
	require.Len(t, rep.Columns, 7)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[0].Sources)
	assert.Equal(t, []lineage.SourceColumn{src("orders", "id")}, rep.Columns[3].Sources)

	assert.Equal(t, []string{"orders", "users"}, rep.Tables)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "user_id"), src("users", "id")},
		rep.Conditions)
}

func TestUsingMergesJoinColumn(t *testing.T) {
	rep := extract(t, testCatalog(t), "SELECT * FROM users JOIN orders USING (id)")

	// The right-side copy is hidden, so the star yields six columns
	// and the surviving one descends from both sides.
	require.Len(t, rep.Columns, 6)
	assert.Equal(t, "id", rep.Columns[0].Name)
	assert.Equal(t, lineage.Expression, rep.Columns[0].Transform)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "id"), src("users", "id")},
		rep.Columns[0].Sources)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "id"), src("users", "id")},
		rep.Conditions)

	rep = extract(t, testCatalog(t), "SELECT id FROM users JOIN orders USING (id)")
	require.Len(t, rep.Columns, 1)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "id"), src("users", "id")},
		rep.Columns[0].Sources)
}

func TestTableStarKeepsQualifiedCopy(t *testing.T) {
	rep := extract(t, testCatalog(t), "SELECT orders.* FROM users JOIN orders USING (id)")
	require.Len(t, rep.Columns, 4)
	assert.Equal(t, "id", rep.Columns[0].Name)
	assert.Equal(t, lineage.Direct, rep.Columns[0].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("orders", "id")}, rep.Columns[0].Sources)
}

func TestExpressionMath(t *testing.T) {
	rep := extract(t, testCatalog(t), "SELECT total * 2 + user_id AS score FROM orders")
	require.Len(t, rep.Columns, 1)
	col := rep.Columns[0]
	assert.Equal(t, "score", col.Name)
	assert.Equal(t, lineage.Expression, col.Transform)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "total"), src("orders", "user_id")},
		col.Sources)
	assert.Empty(t, col.Functions)
}

func TestConstants(t *testing.T) {
	rep := extract(t, testCatalog(t), "SELECT 1 AS one, 'x' FROM users")
	require.Len(t, rep.Columns, 2)
	assert.Equal(t, "one", rep.Columns[0].Name)
	assert.Equal(t, lineage.Constant, rep.Columns[0].Transform)
	assert.Empty(t, rep.Columns[0].Sources)
	assert.Equal(t, "?column?", rep.Columns[1].Name)
	assert.Equal(t, lineage.Constant, rep.Columns[1].Transform)

	// The scan still reads the table even with no column inputs.
	assert.Equal(t, []string{"users"}, rep.Tables)
}

func TestAggregates(t *testing.T) {
	rep := extract(t, testCatalog(t), "SELECT count(*) AS n, sum(total) AS spend FROM orders")
	require.Len(t, rep.Columns, 2)

	assert.Equal(t, lineage.Constant, rep.Columns[0].Transform, "count(*) has no column inputs")
	assert.Equal(t, []string{"count"}, rep.Columns[0].Functions)

	assert.Equal(t, lineage.Expression, rep.Columns[1].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("orders", "total")}, rep.Columns[1].Sources)
	assert.Equal(t, []string{"sum"}, rep.Columns[1].Functions)
}

func TestCaseBranches(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT CASE WHEN o.total > 100 THEN u.city ELSE 'none' END FROM orders o, users u")
	require.Len(t, rep.Columns, 1)
	col := rep.Columns[0]
	assert.Equal(t, "case", col.Name)
	assert.Equal(t, lineage.Expression, col.Transform)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "total"), src("users", "city")},
		col.Sources)
}

func TestWindowKeys(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT sum(total) OVER (PARTITION BY user_id ORDER BY placed_at) FROM orders")
	require.Len(t, rep.Columns, 1)
	assert.Equal(t,
		[]lineage.SourceColumn{
			src("orders", "placed_at"),
			src("orders", "total"),
			src("orders", "user_id"),
		},
		rep.Columns[0].Sources, "partition and order keys feed the windowed value")
	assert.Equal(t, []string{"sum"}, rep.Columns[0].Functions)
}

func TestNamedWindow(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT sum(total) OVER w FROM orders WINDOW w AS (PARTITION BY user_id)")
	require.Len(t, rep.Columns, 1)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "total"), src("orders", "user_id")},
		rep.Columns[0].Sources)
}

func TestCTETraceThrough(t *testing.T) {
	rep := extract(t, testCatalog(t), `
		WITH spend AS (SELECT user_id, sum(total) AS t FROM orders GROUP BY user_id)
		SELECT u.email, s.t FROM users u JOIN spend s ON s.user_id = u.id`)
	require.Len(t, rep.Columns, 2)

	assert.Equal(t, "email", rep.Columns[0].Name)
	assert.Equal(t, lineage.Direct, rep.Columns[0].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("users", "email")}, rep.Columns[0].Sources)

	assert.Equal(t, "t", rep.Columns[1].Name)
	assert.Equal(t, lineage.Expression, rep.Columns[1].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("orders", "total")}, rep.Columns[1].Sources)
	assert.Equal(t, []string{"sum"}, rep.Columns[1].Functions)

	assert.Equal(t, []string{"orders", "users"}, rep.Tables)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "user_id"), src("users", "id")},
		rep.Conditions)
}

func TestCTEColumnAliases(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"WITH names(uid, mail) AS (SELECT id, email FROM users) SELECT mail FROM names")
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, "mail", rep.Columns[0].Name)
	assert.Equal(t, lineage.Direct, rep.Columns[0].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("users", "email")}, rep.Columns[0].Sources)
}

func TestDerivedTable(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT d.n FROM (SELECT id + 1 AS n FROM users) d")
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, "n", rep.Columns[0].Name)
	assert.Equal(t, lineage.Expression, rep.Columns[0].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[0].Sources)
}

func TestScalarSubquery(t *testing.T) {
	rep := extract(t, testCatalog(t), `
		SELECT email,
		       (SELECT max(total) FROM orders WHERE orders.user_id = users.id) AS top
		FROM users`)
	require.Len(t, rep.Columns, 2)

	top := rep.Columns[1]
	assert.Equal(t, "top", top.Name)
	assert.Equal(t, lineage.Expression, top.Transform)
	assert.Equal(t, []lineage.SourceColumn{src("orders", "total")}, top.Sources)
	assert.Equal(t, []string{"max"}, top.Functions)

	assert.Equal(t, []string{"orders", "users"}, rep.Tables)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "user_id"), src("users", "id")},
		rep.Conditions)
}

func TestExistsFeedsConditions(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT id FROM users WHERE EXISTS (SELECT 1 FROM orders WHERE orders.user_id = users.id)")
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, lineage.Direct, rep.Columns[0].Transform)
	assert.Equal(t, []string{"orders", "users"}, rep.Tables)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "user_id"), src("users", "id")},
		rep.Conditions)
}

func TestInSubquery(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT email FROM users WHERE id IN (SELECT user_id FROM orders)")
	assert.Equal(t, []string{"orders", "users"}, rep.Tables)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "user_id"), src("users", "id")},
		rep.Conditions)
}

func TestUnionMergesBranches(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT id FROM users UNION SELECT user_id FROM orders")
	require.Len(t, rep.Columns, 1)
	col := rep.Columns[0]
	assert.Equal(t, "id", col.Name, "left branch names the column")
	assert.Equal(t, lineage.Expression, col.Transform)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "user_id"), src("users", "id")},
		col.Sources)
}

func TestUnionSameSourceStaysDirect(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"SELECT id FROM users UNION SELECT id FROM users")
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, lineage.Direct, rep.Columns[0].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[0].Sources)
}

func TestRecursiveCTE(t *testing.T) {
	rep := extract(t, testCatalog(t), `
		WITH RECURSIVE nums(n) AS (
			SELECT 1
			UNION ALL
			SELECT n + 1 FROM nums WHERE n < 10
		)
		SELECT n FROM nums`)
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, "n", rep.Columns[0].Name)
	assert.Equal(t, lineage.Constant, rep.Columns[0].Transform)
	assert.Empty(t, rep.Columns[0].Sources)
	assert.Empty(t, rep.Tables)
}

// ---------- DML ----------

func TestInsertSelect(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"INSERT INTO orders (id, user_id) SELECT id, id FROM users")
	assert.Equal(t, "orders", rep.Target)
	require.Len(t, rep.Columns, 2)

	assert.Equal(t, "id", rep.Columns[0].Name)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[0].Sources)
	assert.Equal(t, "user_id", rep.Columns[1].Name)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[1].Sources)

	assert.Equal(t, []string{"users"}, rep.Tables, "a pure insert target is not read")
}

func TestInsertValues(t *testing.T) {
	rep := extract(t, testCatalog(t), "INSERT INTO users VALUES (1, 'a', 'b')")
	assert.Equal(t, "users", rep.Target)
	require.Len(t, rep.Columns, 3)
	for i, name := range []string{"id", "email", "city"} {
		assert.Equal(t, name, rep.Columns[i].Name)
		assert.Equal(t, lineage.Constant, rep.Columns[i].Transform)
	}
	assert.Empty(t, rep.Tables)
}

func TestUpdate(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"UPDATE orders SET total = total * 2 WHERE user_id = 5")
	assert.Equal(t, "orders", rep.Target)
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, "total", rep.Columns[0].Name)
	assert.Equal(t, lineage.Expression, rep.Columns[0].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("orders", "total")}, rep.Columns[0].Sources)

	assert.Equal(t, []lineage.SourceColumn{src("orders", "user_id")}, rep.Conditions)
	assert.Equal(t, []string{"orders"}, rep.Tables, "update reads the rows it modifies")
}

func TestDelete(t *testing.T) {
	rep := extract(t, testCatalog(t), "DELETE FROM users WHERE id = 1")
	assert.Equal(t, "users", rep.Target)
	assert.Empty(t, rep.Columns)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Conditions)
	assert.Equal(t, []string{"users"}, rep.Tables)
}

func TestMerge(t *testing.T) {
	rep := extract(t, testCatalog(t), `
		MERGE INTO orders o USING users u ON o.user_id = u.id
		WHEN MATCHED THEN UPDATE SET total = o.total + 1
		WHEN NOT MATCHED THEN INSERT (id, user_id) VALUES (u.id, u.id)`)
	assert.Equal(t, "orders", rep.Target)
	assert.Equal(t, []string{"orders", "users"}, rep.Tables)
	assert.Equal(t,
		[]lineage.SourceColumn{src("orders", "user_id"), src("users", "id")},
		rep.Conditions)

	require.Len(t, rep.Columns, 3)
	assert.Equal(t, "total", rep.Columns[0].Name)
	assert.Equal(t, []lineage.SourceColumn{src("orders", "total")}, rep.Columns[0].Sources)
	assert.Equal(t, "id", rep.Columns[1].Name)
	assert.Equal(t, lineage.Direct, rep.Columns[1].Transform)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[1].Sources)
	assert.Equal(t, "user_id", rep.Columns[2].Name)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[2].Sources)
}

// ---------- DDL ----------

func TestCreateView(t *testing.T) {
	rep := extract(t, testCatalog(t),
		"CREATE VIEW tops (uid, contact) AS SELECT id, email FROM users")
	assert.Equal(t, "tops", rep.Target)
	require.Len(t, rep.Columns, 2)
	assert.Equal(t, "uid", rep.Columns[0].Name)
	assert.Equal(t, []lineage.SourceColumn{src("users", "id")}, rep.Columns[0].Sources)
	assert.Equal(t, "contact", rep.Columns[1].Name)
	assert.Equal(t, []lineage.SourceColumn{src("users", "email")}, rep.Columns[1].Sources)
	assert.Equal(t, []string{"users"}, rep.Tables)
}

func TestCreateIndexReadsTable(t *testing.T) {
	rep := extract(t, testCatalog(t), "CREATE INDEX users_city ON users (city)")
	assert.Equal(t, "users_city", rep.Target)
	assert.Equal(t, []string{"users"}, rep.Tables)
	assert.Empty(t, rep.Columns)
}

func TestCreateTable(t *testing.T) {
	rep := extract(t, testCatalog(t), "CREATE TABLE audit (id INT NOT NULL)")
	assert.Equal(t, "audit", rep.Target)
	assert.Empty(t, rep.Columns)
	assert.Empty(t, rep.Tables)
}

func TestDrop(t *testing.T) {
	rep := extract(t, testCatalog(t), "DROP TABLE users")
	assert.Equal(t, "users", rep.Target)
	assert.Empty(t, rep.Tables)
}

// ---------- Edge Cases ----------

func TestExtractNilResolved(t *testing.T) {
	assert.Nil(t, lineage.Extract(nil, testCatalog(t)))
}

func TestNilCatalog(t *testing.T) {
	stmt, diags := parser.Parse("SELECT 1 AS one")
	require.Empty(t, diags)
	res, diags := analyzer.Analyze(stmt, nil)
	require.Empty(t, diags)

	rep := lineage.Extract(res, nil)
	require.NotNil(t, rep)
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, "one", rep.Columns[0].Name)
	assert.Equal(t, lineage.Constant, rep.Columns[0].Transform)
	assert.Empty(t, rep.Tables)
}

func TestTransformString(t *testing.T) {
	assert.Equal(t, "direct", lineage.Direct.String())
	assert.Equal(t, "expression", lineage.Expression.String())
	assert.Equal(t, "constant", lineage.Constant.String())
	assert.Equal(t, "users.id", src("users", "id").String())
}
