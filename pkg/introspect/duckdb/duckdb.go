// Package duckdb reads catalogs from DuckDB databases. Tables come
// from information_schema; primary keys and user-defined functions
// come from DuckDB's own duckdb_constraints() and duckdb_functions()
// tables.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/introspect"
)

// DefaultSchema is the schema introspected when none is configured.
const DefaultSchema = "main"

// Introspector reads a DuckDB catalog.
type Introspector struct {
	introspect.InfoSchema
}

// New returns an introspector over an existing connection. If logger
// is nil, a discard logger is used.
func New(db *sql.DB, logger *slog.Logger) *Introspector {
	return &Introspector{InfoSchema: *introspect.New(db, DefaultSchema, logger)}
}

// Open opens a DuckDB database and returns an introspector over it.
// Use ":memory:" as the path for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Introspector, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return New(db, logger), nil
}

// ReadCatalog reads tables, primary keys, and user-defined functions
// and builds a catalog from them.
func (r *Introspector) ReadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	tables, err := r.Tables(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := r.PrimaryKeys(ctx)
	if err != nil {
		return nil, err
	}
	funcs, err := r.Functions(ctx)
	if err != nil {
		return nil, err
	}

	b := catalog.NewBuilder()
	if r.IncludeBuiltins {
		b = catalog.Builtins()
	}
	for i := range tables {
		tables[i].PrimaryKey = keys[tables[i].Name]
		b.AddTable(tables[i])
	}
	for _, f := range funcs {
		b.AddFunction(f)
	}
	return b.Build()
}

// PrimaryKeys reads primary-key column lists from
// duckdb_constraints(), keyed by table name.
func (r *Introspector) PrimaryKeys(ctx context.Context) (map[string][]string, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT table_name, array_to_string(constraint_column_names, ',')
		FROM duckdb_constraints()
		WHERE constraint_type = 'PRIMARY KEY' AND schema_name = ?
	`, r.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query key metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string][]string)
	for rows.Next() {
		var table, columns string
		if err := rows.Scan(&table, &columns); err != nil {
			return nil, fmt.Errorf("failed to scan key metadata: %w", err)
		}
		if columns != "" {
			keys[table] = strings.Split(columns, ",")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating key metadata: %w", err)
	}
	return keys, nil
}

// Functions reads user-defined scalar and aggregate functions from
// duckdb_functions(). Overloads whose types have no mapping are
// skipped rather than registered half-typed.
func (r *Introspector) Functions(ctx context.Context) ([]catalog.Function, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT
			function_name,
			function_type,
			array_to_string(parameter_types, ','),
			coalesce(return_type, ''),
			varargs IS NOT NULL
		FROM duckdb_functions()
		WHERE NOT internal
			AND schema_name = ?
			AND function_type IN ('scalar', 'aggregate')
		ORDER BY function_name
	`, r.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query function metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	overloads := make(map[string][]catalog.Signature)
	for rows.Next() {
		var name, ftype, params, ret string
		var variadic bool
		if err := rows.Scan(&name, &ftype, &params, &ret, &variadic); err != nil {
			return nil, fmt.Errorf("failed to scan function metadata: %w", err)
		}

		sig, ok := r.signature(ftype, params, ret, variadic)
		if !ok {
			if r.Logger != nil {
				r.Logger.Warn("unmapped function signature",
					slog.String("function", name),
					slog.String("parameters", params),
					slog.String("returns", ret))
			}
			continue
		}
		if _, seen := overloads[name]; !seen {
			names = append(names, name)
		}
		overloads[name] = append(overloads[name], sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating function metadata: %w", err)
	}

	funcs := make([]catalog.Function, 0, len(names))
	for _, name := range names {
		funcs = append(funcs, catalog.Function{Name: name, Overloads: overloads[name]})
	}
	return funcs, nil
}

func (r *Introspector) signature(ftype, params, ret string, variadic bool) (catalog.Signature, bool) {
	kind := catalog.Scalar
	if ftype == "aggregate" {
		kind = catalog.Aggregate
	}

	result, ok := introspect.MapType(ret)
	if !ok {
		return catalog.Signature{}, false
	}
	sig := catalog.Signature{Result: result, Kind: kind, Variadic: variadic}
	if params != "" {
		for _, p := range strings.Split(params, ",") {
			typ, ok := introspect.MapType(p)
			if !ok {
				return catalog.Signature{}, false
			}
			sig.Params = append(sig.Params, typ)
		}
	}
	return sig, true
}

var _ introspect.Introspector = (*Introspector)(nil)
