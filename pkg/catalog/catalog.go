// Package catalog describes the schema the analyzer resolves against:
// tables with their ordered columns, functions with their overload
// signatures, and user-defined type aliases. A Catalog is built once
// through a Builder, is immutable afterwards, and may be shared by any
// number of concurrent analyses.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keeldb/keel/pkg/types"
)

// Column is one column of a table: name, type, and nullability.
type Column struct {
	Name     string
	Type     types.Type
	Nullable bool
}

// Table is a named relation with ordered columns and an optional
// primary-key column set.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string

	byName map[string]int
}

// Column returns the column with the given name (case-insensitive)
// along with its ordinal position.
func (t *Table) Column(name string) (Column, int, bool) {
	idx, ok := t.byName[strings.ToLower(name)]
	if !ok {
		return Column{}, 0, false
	}
	return t.Columns[idx], idx, true
}

// FunctionKind distinguishes how a function participates in a query.
type FunctionKind int

const (
	Scalar FunctionKind = iota
	Aggregate
	Window
)

func (k FunctionKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Aggregate:
		return "aggregate"
	case Window:
		return "window"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Signature is one overload of a function. When Variadic is set the
// last parameter type accepts one or more trailing arguments.
type Signature struct {
	Params   []types.Type
	Result   types.Type
	Kind     FunctionKind
	Variadic bool
}

// String renders the signature as name-less SQL, e.g. (INT, TEXT) -> TEXT.
func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	suffix := ""
	if s.Variadic {
		suffix = "..."
	}
	return "(" + strings.Join(params, ", ") + suffix + ") -> " + s.Result.String()
}

// Function is a named function with one or more overloads.
type Function struct {
	Name      string
	Overloads []Signature
}

// Catalog is the immutable registry handed to the analyzer. Lookups
// are case-insensitive; the original spelling is preserved on the
// registered objects.
type Catalog struct {
	tables  map[string]*Table
	funcs   map[string]*Function
	aliases map[string]types.Type

	tableOrder []string
	funcOrder  []string
}

// Table returns the registered table with the given name.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[strings.ToLower(name)]
	return t, ok
}

// Function returns the registered function with the given name.
func (c *Catalog) Function(name string) (*Function, bool) {
	f, ok := c.funcs[strings.ToLower(name)]
	return f, ok
}

// Tables returns all registered tables sorted by name.
func (c *Catalog) Tables() []*Table {
	names := make([]string, len(c.tableOrder))
	copy(names, c.tableOrder)
	sort.Strings(names)
	out := make([]*Table, len(names))
	for i, n := range names {
		out[i] = c.tables[n]
	}
	return out
}

// Functions returns all registered functions sorted by name.
func (c *Catalog) Functions() []*Function {
	names := make([]string, len(c.funcOrder))
	copy(names, c.funcOrder)
	sort.Strings(names)
	out := make([]*Function, len(names))
	for i, n := range names {
		out[i] = c.funcs[n]
	}
	return out
}

// Aliases returns the registered type aliases keyed by their
// lowercase names.
func (c *Catalog) Aliases() map[string]types.Type {
	out := make(map[string]types.Type, len(c.aliases))
	for k, v := range c.aliases {
		out[k] = v
	}
	return out
}

// ResolveType maps a SQL type name to a concrete type. User-defined
// aliases take precedence over builtin names; builtin names accept
// size parameters (VARCHAR(10), NUMERIC(10,2)) while aliases do not.
func (c *Catalog) ResolveType(name string, params []int) (types.Type, error) {
	if alias, ok := c.aliases[strings.ToLower(name)]; ok {
		if len(params) > 0 {
			return types.Type{}, fmt.Errorf("type alias %q does not accept parameters", name)
		}
		return alias, nil
	}
	kind, ok := types.Lookup(name)
	if !ok {
		return types.Type{}, fmt.Errorf("type %q does not exist", name)
	}
	typ := types.Of(kind)
	switch kind {
	case types.Numeric:
		if len(params) > 2 {
			return types.Type{}, fmt.Errorf("type %q accepts at most precision and scale", name)
		}
		if len(params) > 0 {
			typ.Precision = params[0]
		}
		if len(params) > 1 {
			typ.Scale = params[1]
		}
	case types.Varchar, types.Binary:
		if len(params) > 1 {
			return types.Type{}, fmt.Errorf("type %q accepts at most a length", name)
		}
		if len(params) > 0 {
			typ.Length = params[0]
		}
	default:
		if len(params) > 0 {
			return types.Type{}, fmt.Errorf("type %q does not accept parameters", name)
		}
	}
	return typ, nil
}
