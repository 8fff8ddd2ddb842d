package catalog

import "github.com/keeldb/keel/pkg/types"

// valueKinds are the kinds the polymorphic builtins (MIN, COALESCE,
// LAG, ...) are instantiated over. Each gets its own overload; the
// coercion cost model then picks the closest one for the argument.
var valueKinds = []types.Kind{
	types.Int64,
	types.Numeric,
	types.Float64,
	types.Text,
	types.Date,
	types.Time,
	types.Timestamp,
	types.Bool,
	types.Uuid,
}

func sig(kind FunctionKind, result types.Kind, params ...types.Kind) Signature {
	s := Signature{Result: types.Of(result), Kind: kind}
	for _, p := range params {
		s.Params = append(s.Params, types.Of(p))
	}
	return s
}

func variadic(kind FunctionKind, result types.Kind, params ...types.Kind) Signature {
	s := sig(kind, result, params...)
	s.Variadic = true
	return s
}

// perKind instantiates (T, extra...) -> T for every value kind.
func perKind(kind FunctionKind, extra ...types.Kind) []Signature {
	sigs := make([]Signature, 0, len(valueKinds))
	for _, k := range valueKinds {
		params := append([]types.Kind{k}, extra...)
		sigs = append(sigs, sig(kind, k, params...))
	}
	return sigs
}

// Builtins returns a Builder pre-seeded with the ANSI core functions:
// the standard aggregates, the ranking and value window functions, and
// the common string, numeric, and null-handling scalars. Embedders add
// their tables and any extra functions, then Build.
func Builtins() *Builder {
	b := NewBuilder()

	// Aggregates. COUNT(*) resolves against the zero-argument overload.
	b.AddFunction(Function{Name: "count", Overloads: []Signature{
		sig(Aggregate, types.Int64),
		sig(Aggregate, types.Int64, types.Any),
	}})
	b.AddFunction(Function{Name: "sum", Overloads: []Signature{
		sig(Aggregate, types.Int64, types.Int64),
		sig(Aggregate, types.Numeric, types.Numeric),
		sig(Aggregate, types.Float64, types.Float64),
	}})
	b.AddFunction(Function{Name: "avg", Overloads: []Signature{
		sig(Aggregate, types.Numeric, types.Int64),
		sig(Aggregate, types.Numeric, types.Numeric),
		sig(Aggregate, types.Float64, types.Float64),
	}})
	b.AddFunction(Function{Name: "min", Overloads: perKind(Aggregate)})
	b.AddFunction(Function{Name: "max", Overloads: perKind(Aggregate)})

	// Window functions.
	b.AddFunction(Function{Name: "row_number", Overloads: []Signature{sig(Window, types.Int64)}})
	b.AddFunction(Function{Name: "rank", Overloads: []Signature{sig(Window, types.Int64)}})
	b.AddFunction(Function{Name: "dense_rank", Overloads: []Signature{sig(Window, types.Int64)}})
	b.AddFunction(Function{Name: "ntile", Overloads: []Signature{sig(Window, types.Int32, types.Int32)}})
	b.AddFunction(Function{Name: "lag", Overloads: append(perKind(Window), perKind(Window, types.Int64)...)})
	b.AddFunction(Function{Name: "lead", Overloads: append(perKind(Window), perKind(Window, types.Int64)...)})
	b.AddFunction(Function{Name: "first_value", Overloads: perKind(Window)})
	b.AddFunction(Function{Name: "last_value", Overloads: perKind(Window)})

	// String scalars.
	b.AddFunction(Function{Name: "length", Overloads: []Signature{sig(Scalar, types.Int32, types.Text)}})
	b.AddFunction(Function{Name: "upper", Overloads: []Signature{sig(Scalar, types.Text, types.Text)}})
	b.AddFunction(Function{Name: "lower", Overloads: []Signature{sig(Scalar, types.Text, types.Text)}})
	b.AddFunction(Function{Name: "trim", Overloads: []Signature{sig(Scalar, types.Text, types.Text)}})
	b.AddFunction(Function{Name: "substring", Overloads: []Signature{
		sig(Scalar, types.Text, types.Text, types.Int64),
		sig(Scalar, types.Text, types.Text, types.Int64, types.Int64),
	}})
	b.AddFunction(Function{Name: "concat", Overloads: []Signature{variadic(Scalar, types.Text, types.Text)}})

	// Numeric scalars.
	b.AddFunction(Function{Name: "abs", Overloads: []Signature{
		sig(Scalar, types.Int32, types.Int32),
		sig(Scalar, types.Int64, types.Int64),
		sig(Scalar, types.Numeric, types.Numeric),
		sig(Scalar, types.Float64, types.Float64),
	}})
	b.AddFunction(Function{Name: "round", Overloads: []Signature{
		sig(Scalar, types.Numeric, types.Numeric),
		sig(Scalar, types.Numeric, types.Numeric, types.Int64),
		sig(Scalar, types.Float64, types.Float64),
	}})
	b.AddFunction(Function{Name: "floor", Overloads: []Signature{
		sig(Scalar, types.Numeric, types.Numeric),
		sig(Scalar, types.Float64, types.Float64),
	}})
	b.AddFunction(Function{Name: "ceil", Overloads: []Signature{
		sig(Scalar, types.Numeric, types.Numeric),
		sig(Scalar, types.Float64, types.Float64),
	}})

	// Null handling and time.
	b.AddFunction(Function{Name: "coalesce", Overloads: coalesceSigs()})
	b.AddFunction(Function{Name: "nullif", Overloads: nullifSigs()})
	b.AddFunction(Function{Name: "now", Overloads: []Signature{sig(Scalar, types.Timestamp)}})

	return b
}

func coalesceSigs() []Signature {
	sigs := make([]Signature, 0, len(valueKinds)+1)
	for _, k := range valueKinds {
		sigs = append(sigs, variadic(Scalar, k, k))
	}
	return append(sigs, variadic(Scalar, types.Json, types.Json))
}

func nullifSigs() []Signature {
	sigs := make([]Signature, 0, len(valueKinds))
	for _, k := range valueKinds {
		sigs = append(sigs, sig(Scalar, k, k, k))
	}
	return sigs
}
