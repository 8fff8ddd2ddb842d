// Package keel is a SQL front end: a tokenizer, parser, and semantic
// analyzer that turn query text into resolved, type-checked statement
// trees against a caller-supplied catalog. Frontend is the batch entry
// point; the pkg subdirectories expose each stage on its own.
package keel

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/keeldb/keel/pkg/analyzer"
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/parser"
)

// DefaultCacheSize is the number of checked batches kept when the
// configuration does not say otherwise.
const DefaultCacheSize = 256

// Config configures a Frontend.
type Config struct {
	// Catalog is the schema statements resolve against. nil behaves
	// like an empty catalog.
	Catalog *catalog.Catalog

	// CacheSize is the number of checked batches kept, keyed by their
	// full text. 0 means DefaultCacheSize; a negative size disables
	// caching.
	CacheSize int

	// Logger receives debug records. nil discards them.
	Logger *slog.Logger
}

// Frontend checks semicolon-separated batches against one catalog.
// It is safe for concurrent use: the catalog is immutable, the cache
// is internally locked, and cached Results are shared read-only.
type Frontend struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
	cache   *lru.Cache[string, *Result]
}

// Checked is one parsed statement's outcome: the resolved statement
// when it is clean, otherwise its findings.
type Checked struct {
	Stmt     parser.Statement
	Resolved *analyzer.ResolvedStatement
	Diags    diag.Diagnostics
}

// Result is the outcome of checking a batch. Statements holds every
// statement that parsed, in source order; Diagnostics holds every
// finding in the batch, parse errors included, in source order.
// Results coming out of the cache are shared; treat them as read-only.
type Result struct {
	Statements  []Checked
	Diagnostics diag.Diagnostics
}

// OK reports whether the batch checked clean.
func (r *Result) OK() bool {
	return len(r.Diagnostics) == 0
}

// New returns a Frontend over the configured catalog.
func New(cfg Config) *Frontend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f := &Frontend{catalog: cfg.Catalog, logger: logger}

	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[string, *Result](size)
		if err != nil {
			panic(err) // size is positive here
		}
		f.cache = cache
	}
	return f
}

// Check parses and analyzes a batch, returning the cached Result when
// the same text was checked before.
func (f *Frontend) Check(sql string) *Result {
	if f.cache != nil {
		if res, ok := f.cache.Get(sql); ok {
			f.logger.Debug("analysis cache hit", slog.Int("statements", len(res.Statements)))
			return res
		}
	}
	res := f.check(sql)
	if f.cache != nil {
		f.cache.Add(sql, res)
	}
	return res
}

func (f *Frontend) check(sql string) *Result {
	stmts, parseDiags := parser.ParseStatements(sql)
	res := &Result{Diagnostics: parseDiags}
	for _, stmt := range stmts {
		resolved, diags := analyzer.Analyze(stmt, f.catalog)
		res.Statements = append(res.Statements, Checked{
			Stmt:     stmt,
			Resolved: resolved,
			Diags:    diags,
		})
		res.Diagnostics = append(res.Diagnostics, diags...)
	}
	res.Diagnostics.Sort()
	return res
}

// Parse parses a batch without analyzing it.
func (f *Frontend) Parse(sql string) ([]parser.Statement, diag.Diagnostics) {
	return parser.ParseStatements(sql)
}

// Describe checks a batch and returns the result shape of its last
// statement. A batch with findings describes to nil plus those
// findings; an empty batch describes to nil.
func (f *Frontend) Describe(sql string) ([]analyzer.OutputColumn, diag.Diagnostics) {
	res := f.Check(sql)
	if len(res.Diagnostics) > 0 {
		return nil, res.Diagnostics
	}
	if len(res.Statements) == 0 {
		return nil, nil
	}
	return res.Statements[len(res.Statements)-1].Resolved.Columns, nil
}

// Catalog returns the catalog statements resolve against.
func (f *Frontend) Catalog() *catalog.Catalog {
	return f.catalog
}
