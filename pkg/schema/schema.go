// Package schema loads catalog definitions from YAML schema files.
// A schema file declares tables, functions, and type aliases; Load
// turns one into a ready catalog, layering file values over defaults
// and environment overrides the same way project configuration does.
// Export writes a catalog back out, so a catalog obtained elsewhere
// (introspection, the builder API) can be snapshotted to a file and
// reloaded.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/types"
)

// File is the decoded form of a schema file.
type File struct {
	// IncludeBuiltins seeds the catalog with the ANSI builtin
	// functions before the file's own definitions are added.
	IncludeBuiltins bool `koanf:"include_builtins"`

	// TypeAliases maps alias names to type expressions, e.g.
	// "money": "NUMERIC(19,4)". Aliases resolve against the builtin
	// type names only, not against each other.
	TypeAliases map[string]string `koanf:"type_aliases"`

	Tables    []TableDef    `koanf:"tables"`
	Functions []FunctionDef `koanf:"functions"`
}

// TableDef declares one table.
type TableDef struct {
	Name       string      `koanf:"name"`
	Columns    []ColumnDef `koanf:"columns"`
	PrimaryKey []string    `koanf:"primary_key"`
}

// ColumnDef declares one column. Columns are nullable unless marked
// not_null or named in the table's primary key.
type ColumnDef struct {
	Name    string     `koanf:"name"`
	Type    types.Type `koanf:"type"`
	NotNull bool       `koanf:"not_null"`
}

// FunctionDef declares one function. Kind applies to all of its
// overloads.
type FunctionDef struct {
	Name      string               `koanf:"name"`
	Kind      catalog.FunctionKind `koanf:"kind"`
	Overloads []OverloadDef        `koanf:"overloads"`
}

// OverloadDef declares one signature of a function.
type OverloadDef struct {
	Params   []types.Type `koanf:"params"`
	Returns  types.Type   `koanf:"returns"`
	Variadic bool         `koanf:"variadic"`
}

// FromFile builds the catalog a File describes. The file's type
// aliases are registered first, then its tables and functions, on top
// of the builtin seed when IncludeBuiltins is set.
func FromFile(f *File) (*catalog.Catalog, error) {
	aliases, err := resolveAliases(f.TypeAliases)
	if err != nil {
		return nil, err
	}

	b := catalog.NewBuilder()
	if f.IncludeBuiltins {
		b = catalog.Builtins()
	}
	for name, typ := range aliases {
		b.AddTypeAlias(name, typ)
	}
	for _, t := range f.Tables {
		tab, err := t.table()
		if err != nil {
			return nil, err
		}
		b.AddTable(tab)
	}
	for _, fn := range f.Functions {
		def, err := fn.function()
		if err != nil {
			return nil, err
		}
		b.AddFunction(def)
	}
	return b.Build()
}

func (d TableDef) table() (catalog.Table, error) {
	if d.Name == "" {
		return catalog.Table{}, fmt.Errorf("table has no name")
	}
	cols := make([]catalog.Column, len(d.Columns))
	for i, c := range d.Columns {
		if c.Name == "" {
			return catalog.Table{}, fmt.Errorf("table %q: column %d has no name", d.Name, i+1)
		}
		switch c.Type.Kind {
		case types.Invalid:
			return catalog.Table{}, fmt.Errorf("table %q: column %q has no type", d.Name, c.Name)
		case types.Any:
			return catalog.Table{}, fmt.Errorf("table %q: column %q: ANY is not a column type", d.Name, c.Name)
		}
		cols[i] = catalog.Column{Name: c.Name, Type: c.Type, Nullable: !c.NotNull}
	}
	// Key columns are implicitly NOT NULL, as in CREATE TABLE.
	for _, pk := range d.PrimaryKey {
		for i := range cols {
			if strings.EqualFold(cols[i].Name, pk) {
				cols[i].Nullable = false
			}
		}
	}
	return catalog.Table{Name: d.Name, Columns: cols, PrimaryKey: d.PrimaryKey}, nil
}

func (d FunctionDef) function() (catalog.Function, error) {
	if d.Name == "" {
		return catalog.Function{}, fmt.Errorf("function has no name")
	}
	overloads := make([]catalog.Signature, len(d.Overloads))
	for i, o := range d.Overloads {
		switch o.Returns.Kind {
		case types.Invalid:
			return catalog.Function{}, fmt.Errorf("function %q: overload %d has no return type", d.Name, i+1)
		case types.Any:
			return catalog.Function{}, fmt.Errorf("function %q: overload %d: ANY is not a return type", d.Name, i+1)
		}
		for j, p := range o.Params {
			if p.Kind == types.Invalid {
				return catalog.Function{}, fmt.Errorf("function %q: overload %d: parameter %d has no type", d.Name, i+1, j+1)
			}
		}
		overloads[i] = catalog.Signature{
			Params:   o.Params,
			Result:   o.Returns,
			Kind:     d.Kind,
			Variadic: o.Variadic,
		}
	}
	return catalog.Function{Name: d.Name, Overloads: overloads}, nil
}

// ParseType parses a type expression such as "INT", "VARCHAR(10)",
// "NUMERIC(19,4)", or "TEXT ARRAY" against the catalog's type names
// and aliases. "ANY" names the signature wildcard; FromFile accepts it
// in parameter position only.
func ParseType(c *catalog.Catalog, spec string) (types.Type, error) {
	s := strings.TrimSpace(spec)
	if len(s) > len(" array") && strings.EqualFold(s[len(s)-len(" array"):], " array") {
		elem, err := ParseType(c, s[:len(s)-len(" array")])
		if err != nil {
			return types.Type{}, err
		}
		return types.NewArray(elem), nil
	}

	name := s
	var params []int
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return types.Type{}, fmt.Errorf("malformed type %q", spec)
		}
		name = strings.TrimSpace(s[:open])
		for _, part := range strings.Split(s[open+1:len(s)-1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return types.Type{}, fmt.Errorf("malformed type %q: %w", spec, err)
			}
			params = append(params, n)
		}
	}
	if name == "" {
		return types.Type{}, fmt.Errorf("missing type name in %q", spec)
	}
	if strings.EqualFold(name, "any") {
		if len(params) > 0 {
			return types.Type{}, fmt.Errorf("type %q does not accept parameters", name)
		}
		return types.Of(types.Any), nil
	}
	return c.ResolveType(name, params)
}

// resolveAliases resolves alias definitions against the builtin type
// names alone, so aliases cannot depend on each other or on load order.
func resolveAliases(specs map[string]string) (map[string]types.Type, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	bare, err := catalog.NewBuilder().Build()
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.Type, len(specs))
	for name, spec := range specs {
		typ, err := ParseType(bare, spec)
		if err != nil {
			return nil, fmt.Errorf("type alias %q: %w", name, err)
		}
		out[name] = typ
	}
	return out, nil
}

func parseFunctionKind(s string) (catalog.FunctionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scalar":
		return catalog.Scalar, nil
	case "aggregate":
		return catalog.Aggregate, nil
	case "window":
		return catalog.Window, nil
	}
	return 0, fmt.Errorf("unknown function kind %q", s)
}
