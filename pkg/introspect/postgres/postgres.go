// Package postgres reads catalogs from PostgreSQL databases over the
// pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/keeldb/keel/pkg/introspect"
)

// DefaultSchema is the schema introspected when none is configured.
const DefaultSchema = "public"

// Introspector reads a PostgreSQL catalog through the standard
// information_schema reader with $N placeholders.
type Introspector struct {
	introspect.InfoSchema
}

// New returns an introspector over an existing connection. If logger
// is nil, a discard logger is used.
func New(db *sql.DB, logger *slog.Logger) *Introspector {
	r := introspect.New(db, DefaultSchema, logger)
	r.Placeholder = func(n int) string { return fmt.Sprintf("$%d", n) }
	return &Introspector{InfoSchema: *r}
}

// Open connects to PostgreSQL with the given DSN and returns an
// introspector over the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Introspector, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return New(db, logger), nil
}

var _ introspect.Introspector = (*Introspector)(nil)
