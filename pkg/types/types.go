// Package types defines the SQL type system: a closed set of column types
// and the implicit-coercion lattice used for comparisons, set-operation
// column alignment, and function overload resolution.
package types

import (
	"fmt"
	"strings"
)

// Kind identifies a SQL type. The zero value is Invalid, the error
// sentinel assigned to expressions whose type could not be resolved.
type Kind int

const (
	Invalid Kind = iota
	Null         // type of the bare NULL literal; unifies with any type
	Bool
	Int16
	Int32
	Int64
	Numeric
	Float32
	Float64
	Varchar
	Text
	Binary
	Blob
	Date
	Time
	Timestamp
	Interval
	Json
	Uuid
	Array
	Row

	// Any is a signature wildcard: every type coerces to it. It never
	// appears as a value or column type, only as a function parameter.
	Any
)

// kindNames maps kinds to their canonical SQL spellings.
var kindNames = map[Kind]string{
	Invalid:   "INVALID",
	Null:      "NULL",
	Bool:      "BOOLEAN",
	Int16:     "SMALLINT",
	Int32:     "INT",
	Int64:     "BIGINT",
	Numeric:   "NUMERIC",
	Float32:   "REAL",
	Float64:   "DOUBLE",
	Varchar:   "VARCHAR",
	Text:      "TEXT",
	Binary:    "BINARY",
	Blob:      "BLOB",
	Date:      "DATE",
	Time:      "TIME",
	Timestamp: "TIMESTAMP",
	Interval:  "INTERVAL",
	Json:      "JSON",
	Uuid:      "UUID",
	Array:     "ARRAY",
	Row:       "ROW",
	Any:       "ANY",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", k)
}

// Field is one named component of a ROW type.
type Field struct {
	Name string
	Type Type
}

// Type is a SQL type: a kind plus the parameters some kinds carry.
// Precision/Scale apply to Numeric (0 means unspecified), Length to
// Varchar and Binary (0 means unbounded), Elem to Array, Fields to Row.
// The zero value is the Invalid sentinel.
type Type struct {
	Kind      Kind
	Precision int
	Scale     int
	Length    int
	Elem      *Type
	Fields    []Field
}

// Of returns the unparameterized type of the given kind.
func Of(k Kind) Type {
	return Type{Kind: k}
}

// NewNumeric returns a NUMERIC type with the given precision and scale.
func NewNumeric(precision, scale int) Type {
	return Type{Kind: Numeric, Precision: precision, Scale: scale}
}

// NewVarchar returns a VARCHAR type with the given maximum length.
func NewVarchar(length int) Type {
	return Type{Kind: Varchar, Length: length}
}

// NewArray returns an ARRAY type over the given element type.
func NewArray(elem Type) Type {
	return Type{Kind: Array, Elem: &elem}
}

// NewRow returns a ROW type with the given ordered fields.
func NewRow(fields ...Field) Type {
	return Type{Kind: Row, Fields: fields}
}

// String renders the type in SQL syntax, e.g. NUMERIC(10,2) or INT ARRAY.
func (t Type) String() string {
	switch t.Kind {
	case Numeric:
		if t.Precision > 0 && t.Scale > 0 {
			return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale)
		}
		if t.Precision > 0 {
			return fmt.Sprintf("NUMERIC(%d)", t.Precision)
		}
		return "NUMERIC"
	case Varchar:
		if t.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", t.Length)
		}
		return "VARCHAR"
	case Binary:
		if t.Length > 0 {
			return fmt.Sprintf("BINARY(%d)", t.Length)
		}
		return "BINARY"
	case Array:
		if t.Elem != nil {
			return t.Elem.String() + " ARRAY"
		}
		return "ARRAY"
	case Row:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + " " + f.Type.String()
		}
		return "ROW(" + strings.Join(parts, ", ") + ")"
	default:
		return t.Kind.String()
	}
}

// Equal reports whether two types are structurally identical,
// parameters included.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Precision != other.Precision || t.Scale != other.Scale || t.Length != other.Length {
		return false
	}
	if (t.Elem == nil) != (other.Elem == nil) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*other.Elem) {
		return false
	}
	if len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i].Name != other.Fields[i].Name || !t.Fields[i].Type.Equal(other.Fields[i].Type) {
			return false
		}
	}
	return true
}

// IsInvalid reports whether the type is the error sentinel.
func (t Type) IsInvalid() bool {
	return t.Kind == Invalid
}

// IsNumeric reports whether the type participates in arithmetic.
func (t Type) IsNumeric() bool {
	switch t.Kind {
	case Int16, Int32, Int64, Numeric, Float32, Float64:
		return true
	}
	return false
}

// IsString reports whether the type holds character data.
func (t Type) IsString() bool {
	return t.Kind == Varchar || t.Kind == Text
}

// IsTemporal reports whether the type holds date/time data.
func (t Type) IsTemporal() bool {
	switch t.Kind {
	case Date, Time, Timestamp, Interval:
		return true
	}
	return false
}

// typeAliases maps lowercase SQL type names to kinds. Multiple spellings
// resolve to the same kind, e.g. DECIMAL and NUMERIC.
var typeAliases = map[string]Kind{
	"smallint":  Int16,
	"int2":      Int16,
	"int":       Int32,
	"integer":   Int32,
	"int4":      Int32,
	"bigint":    Int64,
	"int8":      Int64,
	"numeric":   Numeric,
	"decimal":   Numeric,
	"real":      Float32,
	"float4":    Float32,
	"double":    Float64,
	"float":     Float64,
	"float8":    Float64,
	"varchar":   Varchar,
	"char":      Varchar,
	"character": Varchar,
	"text":      Text,
	"string":    Text,
	"binary":    Binary,
	"varbinary": Binary,
	"blob":      Blob,
	"bytea":     Blob,
	"date":      Date,
	"time":      Time,
	"timestamp": Timestamp,
	"interval":  Interval,
	"json":      Json,
	"jsonb":     Json,
	"uuid":      Uuid,
	"boolean":   Bool,
	"bool":      Bool,
}

// Lookup resolves a SQL type name to its kind. Matching is
// case-insensitive and covers common alternate spellings.
func Lookup(name string) (Kind, bool) {
	k, ok := typeAliases[strings.ToLower(name)]
	return k, ok
}
