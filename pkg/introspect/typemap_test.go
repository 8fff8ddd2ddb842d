package introspect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeldb/keel/pkg/introspect"
	"github.com/keeldb/keel/pkg/types"
)

// ---------- Engine type spellings ----------

func TestMapType(t *testing.T) {
	tests := []struct {
		dbType string
		want   types.Type
	}{
		{"integer", types.Of(types.Int32)},
		{"BIGINT", types.Of(types.Int64)},
		{"boolean", types.Of(types.Bool)},
		{"text", types.Of(types.Text)},
		{"uuid", types.Of(types.Uuid)},
		{"bytea", types.Of(types.Blob)},
		{"jsonb", types.Of(types.Json)},
		{"numeric(18,3)", types.NewNumeric(18, 3)},

		// PostgreSQL spellings
		{"character varying(80)", types.NewVarchar(80)},
		{"double precision", types.Of(types.Float64)},
		{"timestamp with time zone", types.Of(types.Timestamp)},
		{"timestamp without time zone", types.Of(types.Timestamp)},
		{"time without time zone", types.Of(types.Time)},
		{"bigserial", types.Of(types.Int64)},

		// SQLite declared types
		{"DATETIME", types.Of(types.Timestamp)},
		{"NVARCHAR(60)", types.NewVarchar(60)},
		{"CLOB", types.Of(types.Text)},

		// DuckDB
		{"TINYINT", types.Of(types.Int16)},
		{"UINTEGER", types.Of(types.Int64)},
		{"HUGEINT", types.Of(types.Numeric)},

		// Arrays
		{"integer[]", types.NewArray(types.Of(types.Int32))},
		{"text[]", types.NewArray(types.Of(types.Text))},
		{"character varying(10)[]", types.NewArray(types.NewVarchar(10))},
		{"VARCHAR ARRAY", types.NewArray(types.Of(types.Varchar))},
	}
	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			got, ok := introspect.MapType(tt.dbType)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestMapTypeUnmapped(t *testing.T) {
	for _, dbType := range []string{"geometry", "USER-DEFINED", "tsvector", ""} {
		t.Run(dbType, func(t *testing.T) {
			_, ok := introspect.MapType(dbType)
			assert.False(t, ok)
		})
	}
}
