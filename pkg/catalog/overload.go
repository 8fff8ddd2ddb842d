package catalog

import "github.com/keeldb/keel/pkg/types"

// Resolution is the outcome of overload resolution.
type Resolution int

const (
	Resolved Resolution = iota
	NoMatch
	Ambiguous
)

// ResolveOverload selects the overload of fn whose parameters accept
// every argument via implicit coercion, preferring the signature with
// the smallest total coercion cost (see types.CoercionCost). Two
// candidates at the same minimal cost are Ambiguous; no candidate at
// all is NoMatch.
func ResolveOverload(fn *Function, args []types.Type) (Signature, Resolution) {
	best := Signature{}
	bestCost := -1
	tied := false

	for _, sig := range fn.Overloads {
		cost, ok := matchCost(sig, args)
		if !ok {
			continue
		}
		switch {
		case bestCost < 0 || cost < bestCost:
			best = sig
			bestCost = cost
			tied = false
		case cost == bestCost:
			tied = true
		}
	}

	if bestCost < 0 {
		return Signature{}, NoMatch
	}
	if tied {
		return Signature{}, Ambiguous
	}
	return best, Resolved
}

// matchCost reports whether the arguments fit the signature and how
// many implicit coercions that takes.
func matchCost(sig Signature, args []types.Type) (int, bool) {
	if sig.Variadic {
		if len(args) < len(sig.Params) {
			return 0, false
		}
	} else if len(args) != len(sig.Params) {
		return 0, false
	}

	cost := 0
	for i, arg := range args {
		param := sig.Params[len(sig.Params)-1]
		if i < len(sig.Params) {
			param = sig.Params[i]
		}
		c, ok := types.CoercionCost(arg, param)
		if !ok {
			return 0, false
		}
		cost += c
	}
	return cost, true
}
