package duckdb_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/introspect/duckdb"
	"github.com/keeldb/keel/pkg/types"
)

func mockReader(t *testing.T) (*duckdb.Introspector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return duckdb.New(db, nil), mock
}

// ---------- Construction ----------

func TestNew(t *testing.T) {
	r, _ := mockReader(t)
	assert.Equal(t, duckdb.DefaultSchema, r.Schema)
	assert.True(t, r.IncludeBuiltins)
}

// ---------- ReadCatalog ----------

func TestReadCatalog(t *testing.T) {
	r, mock := mockReader(t)
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "is_nullable"}).
			AddRow("events", "id", "BIGINT", "NO").
			AddRow("events", "region", "VARCHAR", "NO").
			AddRow("events", "payload", "JSON", "YES"))
	mock.ExpectQuery("FROM duckdb_constraints").
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "columns"}).
			AddRow("events", "id,region"))
	mock.ExpectQuery("FROM duckdb_functions").
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"function_name", "function_type", "parameter_types", "return_type", "variadic"}).
			AddRow("shout", "scalar", "VARCHAR", "VARCHAR", false).
			AddRow("shout", "scalar", "VARCHAR,INTEGER", "VARCHAR", false).
			AddRow("total", "aggregate", "DECIMAL(18,3)", "DECIMAL(18,3)", false).
			AddRow("glue", "scalar", "VARCHAR", "VARCHAR", true).
			AddRow("weird", "scalar", "GEOMETRY", "VARCHAR", false).
			AddRow("noargs", "scalar", "", "INTEGER", false))

	cat, err := r.ReadCatalog(context.Background())
	require.NoError(t, err)

	events, ok := cat.Table("events")
	require.True(t, ok)
	require.Len(t, events.Columns, 3)
	assert.Equal(t, []string{"id", "region"}, events.PrimaryKey, "key columns split from the joined list")

	payload, _, ok := events.Column("payload")
	require.True(t, ok)
	assert.Equal(t, types.Json, payload.Type.Kind)

	shout, ok := cat.Function("shout")
	require.True(t, ok)
	require.Len(t, shout.Overloads, 2, "overloads group under one function")
	assert.Equal(t, catalog.Scalar, shout.Overloads[0].Kind)
	require.Len(t, shout.Overloads[1].Params, 2)
	assert.Equal(t, types.Int32, shout.Overloads[1].Params[1].Kind)

	total, ok := cat.Function("total")
	require.True(t, ok)
	assert.Equal(t, catalog.Aggregate, total.Overloads[0].Kind)
	assert.True(t, types.NewNumeric(18, 3).Equal(total.Overloads[0].Result))

	glue, ok := cat.Function("glue")
	require.True(t, ok)
	assert.True(t, glue.Overloads[0].Variadic)

	noargs, ok := cat.Function("noargs")
	require.True(t, ok)
	assert.Empty(t, noargs.Overloads[0].Params)

	_, ok = cat.Function("weird")
	assert.False(t, ok, "overloads with unmapped types are skipped")

	_, ok = cat.Function("count")
	assert.True(t, ok, "builtins are seeded by default")
}

func TestFunctionsQueryError(t *testing.T) {
	r, mock := mockReader(t)
	mock.ExpectQuery("FROM duckdb_functions").WillReturnError(assert.AnError)

	_, err := r.Functions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query function metadata")
}

func TestNotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, r *duckdb.Introspector) error
	}{
		{
			name: "read catalog without connection",
			operation: func(ctx context.Context, r *duckdb.Introspector) error {
				_, err := r.ReadCatalog(ctx)
				return err
			},
		},
		{
			name: "keys without connection",
			operation: func(ctx context.Context, r *duckdb.Introspector) error {
				_, err := r.PrimaryKeys(ctx)
				return err
			},
		},
		{
			name: "functions without connection",
			operation: func(ctx context.Context, r *duckdb.Introspector) error {
				_, err := r.Functions(ctx)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.operation(context.Background(), &duckdb.Introspector{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not established")
		})
	}
}
