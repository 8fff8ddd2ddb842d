package introspect_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeldb/keel/internal/testutil"
	"github.com/keeldb/keel/pkg/introspect"
	"github.com/keeldb/keel/pkg/types"
)

func mockReader(t *testing.T) (*introspect.InfoSchema, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return introspect.New(db, "public", nil), mock
}

func expectColumns(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public").
		WillReturnRows(rows)
}

func expectKeys(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("FROM information_schema.table_constraints").
		WithArgs("public").
		WillReturnRows(rows)
}

func columnRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "is_nullable"})
}

func keyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"table_name", "column_name"})
}

// ---------- ReadCatalog ----------

func TestReadCatalog(t *testing.T) {
	r, mock := mockReader(t)
	expectColumns(mock, columnRows().
		AddRow("orders", "id", "bigint", "NO").
		AddRow("orders", "user_id", "bigint", "NO").
		AddRow("orders", "total", "numeric(10,2)", "YES").
		AddRow("users", "id", "bigint", "NO").
		AddRow("users", "email", "character varying(320)", "NO").
		AddRow("users", "age", "integer", "YES"))
	expectKeys(mock, keyRows().
		AddRow("orders", "id").
		AddRow("orders", "user_id").
		AddRow("users", "id"))

	cat, err := r.ReadCatalog(context.Background())
	require.NoError(t, err)

	users, ok := cat.Table("users")
	require.True(t, ok)
	require.Len(t, users.Columns, 3)
	assert.Equal(t, []string{"id", "email", "age"}, []string{
		users.Columns[0].Name, users.Columns[1].Name, users.Columns[2].Name,
	})
	assert.Equal(t, []string{"id"}, users.PrimaryKey)

	email, _, ok := users.Column("email")
	require.True(t, ok)
	assert.True(t, types.NewVarchar(320).Equal(email.Type))
	assert.False(t, email.Nullable)

	age, _, ok := users.Column("age")
	require.True(t, ok)
	assert.Equal(t, types.Int32, age.Type.Kind)
	assert.True(t, age.Nullable)

	orders, ok := cat.Table("orders")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "user_id"}, orders.PrimaryKey, "composite keys keep ordinal order")

	total, _, ok := orders.Column("total")
	require.True(t, ok)
	assert.True(t, types.NewNumeric(10, 2).Equal(total.Type))

	_, ok = cat.Function("count")
	assert.True(t, ok, "builtins are seeded by default")
}

func TestReadCatalogWithoutBuiltins(t *testing.T) {
	r, mock := mockReader(t)
	r.IncludeBuiltins = false
	expectColumns(mock, columnRows().AddRow("t", "k", "integer", "NO"))
	expectKeys(mock, keyRows())

	cat, err := r.ReadCatalog(context.Background())
	require.NoError(t, err)

	_, ok := cat.Table("t")
	assert.True(t, ok)
	_, ok = cat.Function("count")
	assert.False(t, ok)
}

func TestReadCatalogKeepsUnmappedColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	logger, logs := testutil.NewCaptureLogger()
	r := introspect.New(db, "public", logger)

	expectColumns(mock, columnRows().
		AddRow("shapes", "id", "bigint", "NO").
		AddRow("shapes", "boundary", "geometry", "YES"))
	expectKeys(mock, keyRows())

	cat, err := r.ReadCatalog(context.Background())
	require.NoError(t, err)

	shapes, ok := cat.Table("shapes")
	require.True(t, ok)
	require.Len(t, shapes.Columns, 2)

	boundary, _, ok := shapes.Column("boundary")
	require.True(t, ok)
	assert.Equal(t, types.Invalid, boundary.Type.Kind, "unmapped types keep the column, untyped")

	assert.Contains(t, logs.String(), "unmapped column type")
	assert.Contains(t, logs.String(), "boundary")
}

// ---------- Errors ----------

func TestReadCatalogColumnQueryError(t *testing.T) {
	r, mock := mockReader(t)
	mock.ExpectQuery("FROM information_schema.columns").WillReturnError(assert.AnError)

	_, err := r.ReadCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query column metadata")
}

func TestReadCatalogKeyQueryError(t *testing.T) {
	r, mock := mockReader(t)
	expectColumns(mock, columnRows().AddRow("t", "k", "integer", "NO"))
	mock.ExpectQuery("FROM information_schema.table_constraints").WillReturnError(assert.AnError)

	_, err := r.ReadCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query key metadata")
}

func TestNotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, r *introspect.InfoSchema) error
	}{
		{
			name: "read catalog without connection",
			operation: func(ctx context.Context, r *introspect.InfoSchema) error {
				_, err := r.ReadCatalog(ctx)
				return err
			},
		},
		{
			name: "tables without connection",
			operation: func(ctx context.Context, r *introspect.InfoSchema) error {
				_, err := r.Tables(ctx)
				return err
			},
		},
		{
			name: "keys without connection",
			operation: func(ctx context.Context, r *introspect.InfoSchema) error {
				_, err := r.PrimaryKeys(ctx)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.operation(context.Background(), &introspect.InfoSchema{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not established")
		})
	}
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&introspect.InfoSchema{}).Close(), "close without connection")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	assert.NoError(t, introspect.New(db, "public", nil).Close())
}
