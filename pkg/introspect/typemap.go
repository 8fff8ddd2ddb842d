package introspect

import (
	"strings"

	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/schema"
	"github.com/keeldb/keel/pkg/types"
)

// bare resolves builtin type names only. Building an empty catalog
// cannot fail.
var bare = func() *catalog.Catalog {
	c, err := catalog.NewBuilder().Build()
	if err != nil {
		panic(err)
	}
	return c
}()

// canonical rewrites engine-specific type spellings to names the type
// system knows. Keys are lowercase, parameter lists stripped.
var canonical = map[string]string{
	// PostgreSQL
	"character varying":           "varchar",
	"bpchar":                      "varchar",
	"double precision":            "double",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamp",
	"timestamptz":                 "timestamp",
	"time without time zone":      "time",
	"time with time zone":         "time",
	"timetz":                      "time",
	"serial":                      "int",
	"bigserial":                   "bigint",
	"smallserial":                 "smallint",

	// SQLite declared affinities and common DDL spellings
	"datetime": "timestamp",
	"nvarchar": "varchar",
	"clob":     "text",

	// DuckDB
	"tinyint":   "smallint",
	"utinyint":  "smallint",
	"usmallint": "int",
	"uinteger":  "bigint",
	"ubigint":   "numeric",
	"hugeint":   "numeric",
	"uhugeint":  "numeric",
}

// MapType maps an engine-reported column type to the frontend type
// system. The second result is false when the spelling has no
// mapping; callers decide whether to skip or keep such columns.
func MapType(dbType string) (types.Type, bool) {
	typ, err := schema.ParseType(bare, normalize(dbType))
	if err != nil {
		return types.Type{}, false
	}
	return typ, true
}

// normalize lowercases, rewrites known spellings, and turns []-style
// array suffixes into the form ParseType reads.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if elem, ok := strings.CutSuffix(s, "[]"); ok {
		return normalize(elem) + " array"
	}

	base, params := s, ""
	if i := strings.IndexByte(s, '('); i >= 0 {
		base, params = strings.TrimSpace(s[:i]), s[i:]
	}
	if c, ok := canonical[base]; ok {
		base = c
	}
	return base + params
}
