package types

// numericRank orders the widening chain SMALLINT → INT → BIGINT →
// NUMERIC → DOUBLE. REAL sits outside the chain: it only widens to
// DOUBLE, and no integer widens to it.
var numericRank = map[Kind]int{
	Int16:   1,
	Int32:   2,
	Int64:   3,
	Numeric: 4,
	Float64: 5,
}

// Coerces reports whether a value of type from may be implicitly
// converted to type to. The relation is reflexive and transitive and
// never narrowing. NULL coerces to anything. The Invalid sentinel
// satisfies every check so a single resolution failure does not
// cascade into spurious diagnostics upstream.
func Coerces(from, to Type) bool {
	if from.Kind == Invalid || to.Kind == Invalid {
		return true
	}
	if from.Kind == Null || to.Kind == Any {
		return true
	}
	if from.Kind == to.Kind {
		return coercesSameKind(from, to)
	}
	switch from.Kind {
	case Int16, Int32, Int64, Numeric, Float64:
		toRank, ok := numericRank[to.Kind]
		if !ok {
			return false
		}
		return numericRank[from.Kind] <= toRank
	case Float32:
		return to.Kind == Float64
	case Varchar:
		return to.Kind == Text
	case Binary:
		return to.Kind == Blob
	case Date:
		return to.Kind == Timestamp
	}
	return false
}

func coercesSameKind(from, to Type) bool {
	switch from.Kind {
	case Array:
		if from.Elem == nil || to.Elem == nil {
			return true
		}
		return Coerces(*from.Elem, *to.Elem)
	case Row:
		if len(from.Fields) != len(to.Fields) {
			return false
		}
		for i := range from.Fields {
			if !Coerces(from.Fields[i].Type, to.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	// Length/precision parameters are advisory and never block coercion
	// between two values of the same kind.
	return true
}

// lubLadder lists the candidate upper bounds tried, narrowest first,
// when two different kinds need a common type.
var lubLadder = []Kind{Int32, Int64, Numeric, Float64, Text, Blob, Timestamp}

// Common returns the least upper bound of a and b on the coercion
// lattice, used to type comparison operands and to align set-operation
// columns. The result is symmetric in its arguments. ok is false when
// the types are unrelated (e.g. ARRAY vs ROW).
func Common(a, b Type) (Type, bool) {
	if a.Kind == Invalid || b.Kind == Invalid {
		return Type{}, true
	}
	if a.Kind == Null {
		return b, true
	}
	if b.Kind == Null {
		return a, true
	}
	if a.Kind == b.Kind {
		return mergeSameKind(a, b)
	}
	for _, k := range lubLadder {
		c := Type{Kind: k}
		if Coerces(a, c) && Coerces(b, c) {
			return c, true
		}
	}
	return Type{}, false
}

func mergeSameKind(a, b Type) (Type, bool) {
	switch a.Kind {
	case Array:
		if a.Elem == nil {
			return b, true
		}
		if b.Elem == nil {
			return a, true
		}
		elem, ok := Common(*a.Elem, *b.Elem)
		if !ok {
			return Type{}, false
		}
		return NewArray(elem), true
	case Row:
		if len(a.Fields) != len(b.Fields) {
			return Type{}, false
		}
		fields := make([]Field, len(a.Fields))
		for i := range a.Fields {
			ft, ok := Common(a.Fields[i].Type, b.Fields[i].Type)
			if !ok {
				return Type{}, false
			}
			name := a.Fields[i].Name
			if name != b.Fields[i].Name {
				name = ""
			}
			fields[i] = Field{Name: name, Type: ft}
		}
		return Type{Kind: Row, Fields: fields}, true
	case Numeric:
		return Type{Kind: Numeric, Precision: mergeParam(a.Precision, b.Precision), Scale: mergeParam(a.Scale, b.Scale)}, true
	case Varchar, Binary:
		return Type{Kind: a.Kind, Length: mergeParam(a.Length, b.Length)}, true
	}
	return Of(a.Kind), true
}

// mergeParam widens two optional size parameters: unspecified (0) wins,
// otherwise the larger of the two.
func mergeParam(x, y int) int {
	if x == 0 || y == 0 {
		return 0
	}
	if x > y {
		return x
	}
	return y
}

// anyCost sits above the longest widening distance on the numeric
// tower so concrete overloads always beat an ANY parameter.
const anyCost = 5

// CoercionCost reports whether from coerces to to and how far the
// conversion travels: 0 for the same kind, the rank distance on the
// numeric tower for numeric widenings, anyCost for the ANY wildcard,
// and 1 for every other single-step widening (including NULL against
// any parameter). Overload resolution prefers lower totals.
func CoercionCost(from, to Type) (int, bool) {
	if from.Kind == to.Kind {
		return 0, true
	}
	if !Coerces(from, to) {
		return 0, false
	}
	if to.Kind == Any {
		return anyCost, true
	}
	fromRank, fromOK := numericRank[from.Kind]
	toRank, toOK := numericRank[to.Kind]
	if fromOK && toOK {
		return toRank - fromRank, true
	}
	return 1, true
}
