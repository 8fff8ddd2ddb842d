package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/types"
)

// EnvPrefix is the prefix for environment variables that override
// schema file values, e.g. KEEL_SCHEMA_INCLUDE_BUILTINS=false.
const EnvPrefix = "KEEL_SCHEMA_"

// Load reads a schema file and builds the catalog it describes.
func Load(path string) (*catalog.Catalog, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

// ReadFile parses a schema file into its File form without building
// the catalog. Values layer in priority order: defaults, then the
// file, then KEEL_SCHEMA_* environment variables.
func ReadFile(path string) (*File, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"include_builtins": true,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load the schema file
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading schema file %s: %w", path, err)
	}

	// 3. Load environment variables
	// Transform: KEEL_SCHEMA_INCLUDE_BUILTINS -> include_builtins
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Aliases must be known before column and parameter types decode.
	var aliasSpecs map[string]string
	if err := k.Unmarshal("type_aliases", &aliasSpecs); err != nil {
		return nil, fmt.Errorf("unable to decode type aliases: %w", err)
	}
	resolver, err := aliasCatalog(aliasSpecs)
	if err != nil {
		return nil, err
	}

	var f File
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				typeHook(resolver),
				kindHook,
			),
			Result:           &f,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode schema: %w", err)
	}
	return &f, nil
}

// aliasCatalog builds a table-less catalog that resolves the given
// aliases alongside the builtin type names.
func aliasCatalog(specs map[string]string) (*catalog.Catalog, error) {
	resolved, err := resolveAliases(specs)
	if err != nil {
		return nil, err
	}
	b := catalog.NewBuilder()
	for name, typ := range resolved {
		b.AddTypeAlias(name, typ)
	}
	return b.Build()
}

var (
	typeType = reflect.TypeOf(types.Type{})
	kindType = reflect.TypeOf(catalog.FunctionKind(0))
)

// typeHook decodes "VARCHAR(10)"-style strings into types.Type values,
// resolving alias names through the given catalog.
func typeHook(resolver *catalog.Catalog) mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != typeType || from.Kind() != reflect.String {
			return data, nil
		}
		return ParseType(resolver, data.(string))
	}
}

// kindHook decodes "scalar", "aggregate", or "window" into a
// catalog.FunctionKind.
func kindHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != kindType || from.Kind() != reflect.String {
		return data, nil
	}
	return parseFunctionKind(data.(string))
}
