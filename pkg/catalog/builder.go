package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keeldb/keel/pkg/types"
)

// Registration errors reported by Build.
var (
	ErrDuplicateTable    = errors.New("table already registered")
	ErrDuplicateFunction = errors.New("function already registered")
	ErrDuplicateAlias    = errors.New("type alias already registered")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrUnknownKeyColumn  = errors.New("primary key references unknown column")
	ErrNoColumns         = errors.New("table has no columns")
	ErrNoOverloads       = errors.New("function has no overloads")
)

// Builder accumulates schema registrations and freezes them into an
// immutable Catalog. Registration never fails eagerly; Build validates
// everything and reports all problems at once.
type Builder struct {
	tables  []Table
	funcs   []Function
	aliases []aliasDef
}

type aliasDef struct {
	name string
	typ  types.Type
}

// NewBuilder returns an empty catalog builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddTable registers a table. Columns keep their declaration order.
func (b *Builder) AddTable(t Table) *Builder {
	b.tables = append(b.tables, t)
	return b
}

// AddFunction registers a function with its overloads.
func (b *Builder) AddFunction(f Function) *Builder {
	b.funcs = append(b.funcs, f)
	return b
}

// AddTypeAlias registers a user-defined type alias.
func (b *Builder) AddTypeAlias(name string, typ types.Type) *Builder {
	b.aliases = append(b.aliases, aliasDef{name: name, typ: typ})
	return b
}

// Build validates all registrations and returns the frozen catalog.
// Duplicate names, duplicate columns, and dangling primary-key
// references are all reported together.
func (b *Builder) Build() (*Catalog, error) {
	c := &Catalog{
		tables:  make(map[string]*Table, len(b.tables)),
		funcs:   make(map[string]*Function, len(b.funcs)),
		aliases: make(map[string]types.Type, len(b.aliases)),
	}

	var errs []error
	for i := range b.tables {
		t := b.tables[i]
		key := strings.ToLower(t.Name)
		if _, exists := c.tables[key]; exists {
			errs = append(errs, fmt.Errorf("table %q: %w", t.Name, ErrDuplicateTable))
			continue
		}
		if err := indexTable(&t); err != nil {
			errs = append(errs, fmt.Errorf("table %q: %w", t.Name, err))
			continue
		}
		c.tables[key] = &t
		c.tableOrder = append(c.tableOrder, key)
	}

	for i := range b.funcs {
		f := b.funcs[i]
		key := strings.ToLower(f.Name)
		if _, exists := c.funcs[key]; exists {
			errs = append(errs, fmt.Errorf("function %q: %w", f.Name, ErrDuplicateFunction))
			continue
		}
		if len(f.Overloads) == 0 {
			errs = append(errs, fmt.Errorf("function %q: %w", f.Name, ErrNoOverloads))
			continue
		}
		c.funcs[key] = &f
		c.funcOrder = append(c.funcOrder, key)
	}

	for _, a := range b.aliases {
		key := strings.ToLower(a.name)
		if _, exists := c.aliases[key]; exists {
			errs = append(errs, fmt.Errorf("type alias %q: %w", a.name, ErrDuplicateAlias))
			continue
		}
		c.aliases[key] = a.typ
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// indexTable builds the column lookup map and validates column and
// primary-key integrity.
func indexTable(t *Table) error {
	if len(t.Columns) == 0 {
		return ErrNoColumns
	}
	t.byName = make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		key := strings.ToLower(col.Name)
		if _, exists := t.byName[key]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		t.byName[key] = i
	}
	for _, pk := range t.PrimaryKey {
		if _, ok := t.byName[strings.ToLower(pk)]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKeyColumn, pk)
		}
	}
	return nil
}
