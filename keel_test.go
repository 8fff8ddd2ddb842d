package keel_test

import (
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeldb/keel"
	"github.com/keeldb/keel/internal/testutil"
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/diag"
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
				{Name: "email", Type: types.Of(types.Text), Nullable: true},
			},
			PrimaryKey: []string{"id"},
		}).
		AddTable(catalog.Table{
			Name: "orders",
			Columns: []catalog.Column{
				{Name: "id", Type: types.Of(types.Int32)},
				{Name: "user_id", Type: types.Of(types.Int32)},
				{Name: "total", Type: types.Of(types.Numeric)},
			},
			PrimaryKey: []string{"id"},
		}).
		Build()
	require.NoError(t, err)
	return cat
}

func newFrontend(t *testing.T) *keel.Frontend {
	t.Helper()
	return keel.New(keel.Config{Catalog: testCatalog(t)})
}

// ---------- Check ----------

func TestCheckBatch(t *testing.T) {
	f := newFrontend(t)
	res := f.Check("SELECT id, email FROM users; SELECT count(*) FROM orders")

	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	require.Len(t, res.Statements, 2)

	first := res.Statements[0]
	require.NotNil(t, first.Resolved)
	require.Len(t, first.Resolved.Columns, 2)
	assert.Equal(t, "id", first.Resolved.Columns[0].Name)
	assert.Equal(t, types.Int32, first.Resolved.Columns[0].Type.Kind)
	assert.Equal(t, "email", first.Resolved.Columns[1].Name)
	assert.True(t, first.Resolved.Columns[1].Nullable)

	second := res.Statements[1]
	require.NotNil(t, second.Resolved)
	require.Len(t, second.Resolved.Columns, 1)
	assert.Equal(t, "count", second.Resolved.Columns[0].Name)
	assert.Equal(t, types.Int64, second.Resolved.Columns[0].Type.Kind)
}

func TestCheckCollectsFindings(t *testing.T) {
	f := newFrontend(t)
	res := f.Check("SELECT nope FROM users; SELECT id FROM users")

	assert.False(t, res.OK())
	require.Len(t, res.Statements, 2)

	bad := res.Statements[0]
	assert.Nil(t, bad.Resolved)
	assert.True(t, bad.Diags.HasKind(diag.UnknownIdentifier))

	good := res.Statements[1]
	assert.NotNil(t, good.Resolved)
	assert.Empty(t, good.Diags, "clean statements resolve even when siblings fail")

	assert.True(t, res.Diagnostics.HasKind(diag.UnknownIdentifier))
}

func TestCheckParseErrors(t *testing.T) {
	f := newFrontend(t)
	res := f.Check("SELEC id FROM users; SELECT id FROM users")

	assert.False(t, res.OK())
	require.Len(t, res.Statements, 1, "unparsable statements are omitted")
	assert.NotNil(t, res.Statements[0].Resolved)
	assert.True(t, res.Diagnostics.HasKind(diag.ParseError))
}

func TestCheckEmptyBatch(t *testing.T) {
	f := newFrontend(t)
	for _, sql := range []string{"", "  ", ";;"} {
		res := f.Check(sql)
		assert.True(t, res.OK())
		assert.Empty(t, res.Statements)
	}
}

func TestCheckDiagnosticsSorted(t *testing.T) {
	f := newFrontend(t)
	res := f.Check("SELECT nope FROM users; SELECT wat FROM orders")

	require.Len(t, res.Diagnostics, 2)
	assert.Less(t, res.Diagnostics[0].Span.Start.Offset, res.Diagnostics[1].Span.Start.Offset)
}

// ---------- Caching ----------

func TestCheckCachesByText(t *testing.T) {
	f := newFrontend(t)
	first := f.Check("SELECT id FROM users")
	again := f.Check("SELECT id FROM users")
	other := f.Check("SELECT email FROM users")

	assert.Same(t, first, again, "identical text returns the cached result")
	assert.NotSame(t, first, other)
}

func TestCheckCacheDisabled(t *testing.T) {
	f := keel.New(keel.Config{Catalog: testCatalog(t), CacheSize: -1})
	first := f.Check("SELECT id FROM users")
	again := f.Check("SELECT id FROM users")

	assert.NotSame(t, first, again)
}

func TestCheckCacheHitLogged(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	f := keel.New(keel.Config{Catalog: testCatalog(t), Logger: logger})

	f.Check("SELECT id FROM users")
	assert.NotContains(t, logs.String(), "analysis cache hit")
	f.Check("SELECT id FROM users")
	assert.Contains(t, logs.String(), "analysis cache hit")
}

// ---------- Parse ----------

func TestParse(t *testing.T) {
	f := newFrontend(t)
	stmts, diags := f.Parse("SELECT 1; SELECT 2")
	require.Empty(t, diags)
	assert.Len(t, stmts, 2)

	_, diags = f.Parse("SELECT FROM")
	assert.True(t, diags.HasKind(diag.ParseError))
}

// ---------- Describe ----------

func TestDescribe(t *testing.T) {
	f := newFrontend(t)
	cols, diags := f.Describe("SELECT id, email FROM users")
	require.Empty(t, diags)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, types.Text, cols[1].Type.Kind)
}

func TestDescribeLastStatement(t *testing.T) {
	f := newFrontend(t)
	cols, diags := f.Describe("SELECT 1; SELECT total FROM orders")
	require.Empty(t, diags)
	require.Len(t, cols, 1)
	assert.Equal(t, "total", cols[0].Name)
	assert.Equal(t, types.Numeric, cols[0].Type.Kind)
}

func TestDescribeWithFindings(t *testing.T) {
	f := newFrontend(t)
	cols, diags := f.Describe("SELECT nope FROM users")
	assert.Nil(t, cols)
	assert.True(t, diags.HasKind(diag.UnknownIdentifier))
}

func TestDescribeEmptyBatch(t *testing.T) {
	f := newFrontend(t)
	cols, diags := f.Describe("")
	assert.Nil(t, cols)
	assert.Empty(t, diags)
}

// ---------- Concurrency ----------

func TestCheckConcurrent(t *testing.T) {
	f := newFrontend(t)
	inputs := []struct {
		sql string
		ok  bool
	}{
		{"SELECT id, email FROM users", true},
		{"SELECT count(*) FROM orders GROUP BY user_id", true},
		{"SELECT nope FROM users", false},
		{"SELECT u.id, o.total FROM users u JOIN orders o ON o.user_id = u.id", true},
	}

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				in := inputs[i%len(inputs)]
				res := f.Check(in.sql)
				if res.OK() != in.ok {
					return fmt.Errorf("%q: ok = %v, want %v (diags: %v)", in.sql, res.OK(), in.ok, res.Diagnostics)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
