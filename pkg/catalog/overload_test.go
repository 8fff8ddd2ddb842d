package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/types"
)

// twoOverloads is F(int) -> int, F(varchar) -> varchar.
func twoOverloads() *catalog.Function {
	return &catalog.Function{Name: "F", Overloads: []catalog.Signature{
		{Params: []types.Type{types.Of(types.Int32)}, Result: types.Of(types.Int32)},
		{Params: []types.Type{types.Of(types.Varchar)}, Result: types.Of(types.Varchar)},
	}}
}

func TestResolveExactMatch(t *testing.T) {
	sig, res := catalog.ResolveOverload(twoOverloads(), []types.Type{types.Of(types.Int32)})
	require.Equal(t, catalog.Resolved, res)
	assert.Equal(t, types.Int32, sig.Result.Kind)

	sig, res = catalog.ResolveOverload(twoOverloads(), []types.Type{types.Of(types.Varchar)})
	require.Equal(t, catalog.Resolved, res)
	assert.Equal(t, types.Varchar, sig.Result.Kind)
}

func TestResolveArityMismatch(t *testing.T) {
	_, res := catalog.ResolveOverload(twoOverloads(), []types.Type{
		types.Of(types.Int32), types.Of(types.Varchar),
	})
	assert.Equal(t, catalog.NoMatch, res)

	_, res = catalog.ResolveOverload(twoOverloads(), nil)
	assert.Equal(t, catalog.NoMatch, res)
}

func TestResolveNoCoerciblePath(t *testing.T) {
	_, res := catalog.ResolveOverload(twoOverloads(), []types.Type{types.Of(types.Bool)})
	assert.Equal(t, catalog.NoMatch, res)
}

func TestResolvePrefersFewestCoercions(t *testing.T) {
	fn := &catalog.Function{Name: "G", Overloads: []catalog.Signature{
		{Params: []types.Type{types.Of(types.Int64)}, Result: types.Of(types.Int64)},
		{Params: []types.Type{types.Of(types.Float64)}, Result: types.Of(types.Float64)},
	}}

	// INT widens to both; BIGINT is the shorter trip.
	sig, res := catalog.ResolveOverload(fn, []types.Type{types.Of(types.Int32)})
	require.Equal(t, catalog.Resolved, res)
	assert.Equal(t, types.Int64, sig.Result.Kind)
}

func TestResolveNullArgumentAmbiguous(t *testing.T) {
	// NULL coerces to both parameter types at the same cost.
	_, res := catalog.ResolveOverload(twoOverloads(), []types.Type{types.Of(types.Null)})
	assert.Equal(t, catalog.Ambiguous, res)
}

func TestResolveVariadic(t *testing.T) {
	fn := &catalog.Function{Name: "concat", Overloads: []catalog.Signature{
		{Params: []types.Type{types.Of(types.Text)}, Result: types.Of(types.Text), Variadic: true},
	}}

	_, res := catalog.ResolveOverload(fn, []types.Type{
		types.Of(types.Text), types.Of(types.Text), types.Of(types.Varchar),
	})
	assert.Equal(t, catalog.Resolved, res)

	// The variadic parameter still needs at least one argument.
	_, res = catalog.ResolveOverload(fn, nil)
	assert.Equal(t, catalog.NoMatch, res)
}

func TestBuiltins(t *testing.T) {
	cat, err := catalog.Builtins().Build()
	require.NoError(t, err)

	count, ok := cat.Function("count")
	require.True(t, ok)

	// COUNT(*) resolves through the zero-argument overload.
	sig, res := catalog.ResolveOverload(count, nil)
	require.Equal(t, catalog.Resolved, res)
	assert.Equal(t, types.Int64, sig.Result.Kind)
	assert.Equal(t, catalog.Aggregate, sig.Kind)

	// COUNT over any argument type.
	_, res = catalog.ResolveOverload(count, []types.Type{types.Of(types.Uuid)})
	assert.Equal(t, catalog.Resolved, res)

	minFn, ok := cat.Function("min")
	require.True(t, ok)
	sig, res = catalog.ResolveOverload(minFn, []types.Type{types.Of(types.Int32)})
	require.Equal(t, catalog.Resolved, res)
	assert.Equal(t, types.Int64, sig.Result.Kind, "INT argument picks the closest numeric overload")

	rowNumber, ok := cat.Function("row_number")
	require.True(t, ok)
	assert.Equal(t, catalog.Window, rowNumber.Overloads[0].Kind)

	substr, ok := cat.Function("substring")
	require.True(t, ok)
	_, res = catalog.ResolveOverload(substr, []types.Type{
		types.Of(types.Text), types.Of(types.Int32), types.Of(types.Int32),
	})
	assert.Equal(t, catalog.Resolved, res)
}
