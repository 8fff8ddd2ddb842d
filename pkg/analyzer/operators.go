package analyzer

import (
	"github.com/keeldb/keel/pkg/token"
	"github.com/keeldb/keel/pkg/types"
)

// Operator typing. Each operator accepts a fixed family of operand
// types; anything outside the family is a TypeMismatch. The Invalid
// sentinel short-circuits before these tables are consulted.

// comparisonOps require a common type for their operands and yield
// BOOLEAN.
var comparisonOps = map[token.TokenType]bool{
	token.EQ: true,
	token.NE: true,
	token.LT: true,
	token.LE: true,
	token.GT: true,
	token.GE: true,
}

// binaryResult types op applied to (l, r). ok is false when the
// operand family does not admit the pair.
func binaryResult(op token.TokenType, l, r types.Type) (types.Type, bool) {
	switch op {
	case token.AND, token.OR:
		if coercesToBool(l) && coercesToBool(r) {
			return types.Of(types.Bool), true
		}
		return types.Type{}, false

	case token.PLUS, token.MINUS:
		if t, ok := temporalArith(op, l, r); ok {
			return t, true
		}
		return numericArith(l, r)

	case token.STAR, token.SLASH:
		if l.Kind == types.Interval && r.IsNumeric() {
			return types.Of(types.Interval), true
		}
		if op == token.STAR && l.IsNumeric() && r.Kind == types.Interval {
			return types.Of(types.Interval), true
		}
		return numericArith(l, r)

	case token.PERCENT:
		return numericArith(l, r)

	case token.DPIPE:
		if l.IsString() && r.IsString() {
			return types.Of(types.Text), true
		}
		if l.Kind == types.Array && r.Kind == types.Array {
			return types.Common(l, r)
		}
		return types.Type{}, false
	}

	if comparisonOps[op] {
		if _, ok := types.Common(l, r); ok {
			return types.Of(types.Bool), true
		}
		return types.Type{}, false
	}

	return types.Type{}, false
}

// numericArith widens two numeric operands to their common type.
func numericArith(l, r types.Type) (types.Type, bool) {
	if nullOrNumeric(l) && nullOrNumeric(r) {
		return types.Common(l, r)
	}
	return types.Type{}, false
}

// temporalArith covers date/time arithmetic: a temporal shifted by an
// interval keeps its flavor (a date widens to timestamp), two points
// subtract to an interval, and intervals add among themselves.
func temporalArith(op token.TokenType, l, r types.Type) (types.Type, bool) {
	switch {
	case l.IsTemporal() && l.Kind != types.Interval && r.Kind == types.Interval:
		if l.Kind == types.Date {
			return types.Of(types.Timestamp), true
		}
		return types.Of(l.Kind), true
	case op == token.PLUS && l.Kind == types.Interval && r.IsTemporal() && r.Kind != types.Interval:
		if r.Kind == types.Date {
			return types.Of(types.Timestamp), true
		}
		return types.Of(r.Kind), true
	case l.Kind == types.Interval && r.Kind == types.Interval:
		return types.Of(types.Interval), true
	case op == token.MINUS && l.IsTemporal() && r.Kind == l.Kind && l.Kind != types.Interval:
		return types.Of(types.Interval), true
	}
	return types.Type{}, false
}

// unaryResult types a prefix operator application.
func unaryResult(op token.TokenType, operand types.Type) (types.Type, bool) {
	switch op {
	case token.MINUS, token.PLUS:
		if operand.Kind == types.Null || operand.IsNumeric() || operand.Kind == types.Interval {
			return operand, true
		}
	case token.NOT:
		if coercesToBool(operand) {
			return types.Of(types.Bool), true
		}
	}
	return types.Type{}, false
}

func coercesToBool(t types.Type) bool {
	return types.Coerces(t, types.Of(types.Bool))
}

func nullOrNumeric(t types.Type) bool {
	return t.Kind == types.Null || t.IsNumeric()
}
