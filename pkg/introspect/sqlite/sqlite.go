// Package sqlite reads catalogs from SQLite databases using the pure
// Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/introspect"
)

// Introspector reads a SQLite catalog. SQLite has no
// information_schema, so tables come from sqlite_master and columns
// from PRAGMA table_info.
type Introspector struct {
	DB     *sql.DB
	Logger *slog.Logger

	// IncludeBuiltins seeds the catalog with the ANSI builtin
	// functions.
	IncludeBuiltins bool
}

// New returns an introspector over an existing connection, with the
// builtin function seed enabled. If logger is nil, a discard logger
// is used.
func New(db *sql.DB, logger *slog.Logger) *Introspector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{DB: db, Logger: logger, IncludeBuiltins: true}
}

// Open opens a SQLite database and returns an introspector over it.
// Use ":memory:" as the path for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Introspector, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return New(db, logger), nil
}

// Close closes the database connection.
func (r *Introspector) Close() error {
	if r.DB != nil {
		if r.Logger != nil {
			r.Logger.Debug("closing database connection")
		}
		return r.DB.Close()
	}
	return nil
}

// ReadCatalog reads every table and view and builds a catalog from
// them.
func (r *Introspector) ReadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	names, err := r.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	b := catalog.NewBuilder()
	if r.IncludeBuiltins {
		b = catalog.Builtins()
	}
	for _, name := range names {
		tbl, err := r.table(ctx, name)
		if err != nil {
			return nil, err
		}
		b.AddTable(tbl)
	}
	return b.Build()
}

func (r *Introspector) tableNames(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query table list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table list: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table list: %w", err)
	}
	return names, nil
}

// table reads one table's shape. PRAGMA does not take parameters, but
// name came out of sqlite_master so it names a real object.
func (r *Introspector) table(ctx context.Context, name string) (catalog.Table, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return catalog.Table{}, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tbl := catalog.Table{Name: name}
	type keyCol struct {
		name string
		ord  int
	}
	var keys []keyCol
	for rows.Next() {
		var cid, notNull, pk int
		var colName, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return catalog.Table{}, fmt.Errorf("failed to scan column metadata: %w", err)
		}

		typ, ok := introspect.MapType(colType)
		if !ok && r.Logger != nil {
			r.Logger.Warn("unmapped column type",
				slog.String("table", name),
				slog.String("column", colName),
				slog.String("type", colType))
		}
		tbl.Columns = append(tbl.Columns, catalog.Column{
			Name:     colName,
			Type:     typ,
			Nullable: notNull == 0 && pk == 0,
		})
		if pk > 0 {
			keys = append(keys, keyCol{name: colName, ord: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return catalog.Table{}, fmt.Errorf("error iterating column metadata: %w", err)
	}

	// pk in table_info is the column's 1-based position in the key.
	sort.Slice(keys, func(i, j int) bool { return keys[i].ord < keys[j].ord })
	for _, k := range keys {
		tbl.PrimaryKey = append(tbl.PrimaryKey, k.name)
	}
	return tbl, nil
}

var _ introspect.Introspector = (*Introspector)(nil)
