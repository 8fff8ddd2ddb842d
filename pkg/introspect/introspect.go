// Package introspect builds catalogs from live databases. The generic
// InfoSchema reader works against any database/sql driver whose engine
// exposes information_schema; the sqlite, postgres, and duckdb
// subpackages front the engines that need their own queries or
// drivers. Introspection is read-only: nothing here executes DDL or
// touches data.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/keeldb/keel/pkg/catalog"
)

// Introspector builds a catalog from a live database.
type Introspector interface {
	ReadCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// InfoSchema reads table shapes from information_schema.columns and
// primary keys from the standard constraint tables. Engine subpackages
// embed it and override what their engine does differently.
type InfoSchema struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Schema filters information_schema by table_schema.
	Schema string

	// Placeholder formats the nth query parameter. Defaults to "?".
	Placeholder func(n int) string

	// IncludeBuiltins seeds the catalog with the ANSI builtin
	// functions.
	IncludeBuiltins bool
}

// New returns a reader over an existing connection, with the builtin
// function seed enabled. If logger is nil, a discard logger is used.
func New(db *sql.DB, schema string, logger *slog.Logger) *InfoSchema {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &InfoSchema{DB: db, Schema: schema, Logger: logger, IncludeBuiltins: true}
}

// Close closes the database connection.
func (r *InfoSchema) Close() error {
	if r.DB != nil {
		if r.Logger != nil {
			r.Logger.Debug("closing database connection")
		}
		return r.DB.Close()
	}
	return nil
}

// ReadCatalog reads every table in the configured schema and builds a
// catalog from them.
func (r *InfoSchema) ReadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	tables, err := r.Tables(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := r.PrimaryKeys(ctx)
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
	return b.Build()
}

// Tables reads the column shape of every table and view in the
// configured schema, without primary keys.
func (r *InfoSchema) Tables(ctx context.Context) ([]catalog.Table, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query := fmt.Sprintf(`
		SELECT
			table_name,
			column_name,
			data_type,
			is_nullable
		FROM information_schema.columns
		WHERE table_schema = %s
		ORDER BY table_name, ordinal_position
	`, r.placeholder(1))

	rows, err := r.DB.QueryContext(ctx, query, r.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []catalog.Table
	index := make(map[string]int)
	for rows.Next() {
		var table, column, dbType, nullable string
		if err := rows.Scan(&table, &column, &dbType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}

		// Unmapped types stay the invalid sentinel: the analyzer still
		// resolves references to the column, it just stops typing
		// expressions over it.
		typ, ok := MapType(dbType)
		if !ok && r.Logger != nil {
			r.Logger.Warn("unmapped column type",
				slog.String("table", table),
				slog.String("column", column),
				slog.String("type", dbType))
		}

		idx, seen := index[table]
		if !seen {
			idx = len(tables)
			index[table] = idx
			tables = append(tables, catalog.Table{Name: table})
		}
		tables[idx].Columns = append(tables[idx].Columns, catalog.Column{
			Name:     column,
			Type:     typ,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return tables, nil
}

// PrimaryKeys reads the primary-key column lists of the configured
// schema, keyed by table name. Columns keep their key ordinal order.
func (r *InfoSchema) PrimaryKeys(ctx context.Context) (map[string][]string, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query := fmt.Sprintf(`
		SELECT
			tc.table_name,
			kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = %s
		ORDER BY tc.table_name, kcu.ordinal_position
	`, r.placeholder(1))

	rows, err := r.DB.QueryContext(ctx, query, r.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query key metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string][]string)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("failed to scan key metadata: %w", err)
		}
		keys[table] = append(keys[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating key metadata: %w", err)
	}
	return keys, nil
}

func (r *InfoSchema) placeholder(n int) string {
	if r.Placeholder != nil {
		return r.Placeholder(n)
	}
	return "?"
}

var _ Introspector = (*InfoSchema)(nil)
