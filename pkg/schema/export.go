package schema

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keeldb/keel/pkg/catalog"
)

// Export renders the catalog as a schema file. The snapshot is
// self-contained: every table, function, and type alias is listed and
// include_builtins is off, so loading it back reproduces the catalog
// exactly whether or not it started from the builtin seed.
func Export(c *catalog.Catalog) ([]byte, error) {
	doc := fileDoc{
		Tables:    make([]tableDoc, 0, len(c.Tables())),
		Functions: make([]functionDoc, 0, len(c.Functions())),
	}

	if aliases := c.Aliases(); len(aliases) > 0 {
		doc.TypeAliases = make(map[string]string, len(aliases))
		for name, typ := range aliases {
			doc.TypeAliases[name] = typ.String()
		}
	}

	for _, t := range c.Tables() {
		td := tableDoc{
			Name:       t.Name,
			Columns:    make([]columnDoc, len(t.Columns)),
			PrimaryKey: t.PrimaryKey,
		}
		for i, col := range t.Columns {
			td.Columns[i] = columnDoc{
				Name:    col.Name,
				Type:    col.Type.String(),
				NotNull: !col.Nullable,
			}
		}
		doc.Tables = append(doc.Tables, td)
	}

	for _, f := range c.Functions() {
		fd := functionDoc{
			Name:      f.Name,
			Overloads: make([]overloadDoc, len(f.Overloads)),
		}
		// Kind is uniform across a function's overloads; the first
		// one decides, and the scalar default is left implicit.
		if kind := f.Overloads[0].Kind; kind != catalog.Scalar {
			fd.Kind = kind.String()
		}
		for i, sig := range f.Overloads {
			od := overloadDoc{
				Returns:  sig.Result.String(),
				Variadic: sig.Variadic,
			}
			for _, p := range sig.Params {
				od.Params = append(od.Params, p.String())
			}
			fd.Overloads[i] = od
		}
		doc.Functions = append(doc.Functions, fd)
	}

	return yaml.Marshal(&doc)
}

// Save writes the catalog to path as a schema file.
func Save(c *catalog.Catalog, path string) error {
	data, err := Export(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type fileDoc struct {
	IncludeBuiltins bool              `yaml:"include_builtins"`
	TypeAliases     map[string]string `yaml:"type_aliases,omitempty"`
	Tables          []tableDoc        `yaml:"tables,omitempty"`
	Functions       []functionDoc     `yaml:"functions,omitempty"`
}

type tableDoc struct {
	Name       string      `yaml:"name"`
	Columns    []columnDoc `yaml:"columns"`
	PrimaryKey []string    `yaml:"primary_key,omitempty"`
}

type columnDoc struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	NotNull bool   `yaml:"not_null,omitempty"`
}

type functionDoc struct {
	Name      string        `yaml:"name"`
	Kind      string        `yaml:"kind,omitempty"`
	Overloads []overloadDoc `yaml:"overloads"`
}

type overloadDoc struct {
	Params   []string `yaml:"params,omitempty"`
	Returns  string   `yaml:"returns"`
	Variadic bool     `yaml:"variadic,omitempty"`
}
