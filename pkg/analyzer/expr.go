package analyzer

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/token"
	"github.com/keeldb/keel/pkg/types"
)

// typeExpr types an expression bottom-up and records the result. An
// unresolvable sub-expression yields the Invalid sentinel, which
// suppresses checks in every enclosing expression so one root cause
// produces one diagnostic.
func (a *analysis) typeExpr(e parser.Expr) types.Type {
	t := a.typeExprInner(e)
	a.res.ExprTypes[e] = t
	return t
}

func (a *analysis) typeExprInner(e parser.Expr) types.Type {
	switch ex := e.(type) {
	case *parser.Literal:
		return literalType(ex)
	case *parser.ColumnRef:
		return a.typeColumnRef(ex)
	case *parser.ParenExpr:
		return a.typeExpr(ex.Expr)
	case *parser.UnaryExpr:
		return a.typeUnary(ex)
	case *parser.BinaryExpr:
		return a.typeBinary(ex)
	case *parser.BetweenExpr:
		return a.typeBetween(ex)
	case *parser.InExpr:
		return a.typeIn(ex)
	case *parser.LikeExpr:
		return a.typeLike(ex)
	case *parser.IsNullExpr:
		a.typeExpr(ex.Expr)
		return types.Of(types.Bool)
	case *parser.IsBoolExpr:
		return a.typeIsBool(ex)
	case *parser.CaseExpr:
		return a.typeCase(ex)
	case *parser.CastExpr:
		return a.typeCast(ex)
	case *parser.FuncCall:
		return a.typeFuncCall(ex)
	case *parser.SubqueryExpr:
		return a.typeScalarSubquery(ex)
	case *parser.ExistsExpr:
		a.analyzeSubquery(ex.Select)
		return types.Of(types.Bool)
	case *parser.ArrayExpr:
		return a.typeArray(ex)
	case *parser.RowExpr:
		return a.typeRow(ex)
	case *parser.StarExpr:
		a.errorf(diag.TypeMismatch, ex.Span, "star expansion is only allowed in the select list")
		return invalid()
	}
	return invalid()
}

// typeExprBool types an expression that a clause requires to be
// boolean, e.g. WHERE or a join condition.
func (a *analysis) typeExprBool(e parser.Expr, what string) {
	t := a.typeExpr(e)
	if t.IsInvalid() || coercesToBool(t) {
		return
	}
	a.errorf(diag.TypeMismatch, e.GetSpan(), "argument of %s must be type %s, not type %s", what, types.Of(types.Bool), t)
}

// ---------- literals and references ----------

func literalType(lit *parser.Literal) types.Type {
	switch lit.Type {
	case parser.LiteralNumber:
		return numberLiteralType(lit.Value)
	case parser.LiteralString:
		return types.Of(types.Text)
	case parser.LiteralBool:
		return types.Of(types.Bool)
	case parser.LiteralNull:
		return types.Of(types.Null)
	}
	return invalid()
}

// numberLiteralType picks the narrowest type that holds the literal:
// INT, then BIGINT, then NUMERIC for integers too wide for int64;
// an exponent makes it DOUBLE, a decimal point NUMERIC.
func numberLiteralType(text string) types.Type {
	if strings.ContainsAny(text, "eE") {
		return types.Of(types.Float64)
	}
	if strings.Contains(text, ".") {
		return types.Of(types.Numeric)
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return types.Of(types.Numeric)
	}
	if v >= -1<<31 && v < 1<<31 {
		return types.Of(types.Int32)
	}
	return types.Of(types.Int64)
}

func (a *analysis) typeColumnRef(ref *parser.ColumnRef) types.Type {
	if a.scope == nil {
		a.errorf(diag.UnknownIdentifier, ref.Span, "column %q does not exist", ref.Column)
		return invalid()
	}
	res, ok := a.scope.lookupColumn(ref.Table, ref.Column)
	if ok {
		col := res.rel.columns[res.ordinal]
		a.res.Bindings[ref] = &Binding{
			Relation:   res.rel.effectiveName(),
			Table:      res.rel.table,
			Column:     col.name,
			Ordinal:    res.ordinal,
			Type:       col.typ,
			Nullable:   col.nullable,
			Correlated: res.correlated,
		}
		return col.typ
	}

	switch {
	case len(res.ambiguous) > 0:
		d := diag.New(diag.AmbiguousIdentifier, ref.Span, "column reference %q is ambiguous", ref.Column)
		for _, hit := range res.ambiguous {
			d = d.WithRelated(hit.rel.span, "could refer to %s.%s", hit.rel.effectiveName(), hit.rel.columns[hit.ordinal].name)
		}
		a.addDiag(d)
	case res.qualifier:
		msg := withSuggestion(
			"missing FROM-clause entry for table "+strconv.Quote(ref.Table),
			ref.Table, a.scope.relationNames())
		a.errorf(diag.UnknownIdentifier, ref.Span, "%s", msg)
	case res.rel != nil:
		cols := make([]string, len(res.rel.columns))
		for i := range res.rel.columns {
			cols[i] = res.rel.columns[i].name
		}
		msg := withSuggestion(
			"column "+res.rel.effectiveName()+"."+ref.Column+" does not exist",
			ref.Column, cols)
		a.errorf(diag.UnknownIdentifier, ref.Span, "%s", msg)
	default:
		msg := withSuggestion(
			"column "+strconv.Quote(ref.Column)+" does not exist",
			ref.Column, a.scope.columnNames())
		a.errorf(diag.UnknownIdentifier, ref.Span, "%s", msg)
	}
	return invalid()
}

// ---------- operators ----------

func (a *analysis) typeUnary(ex *parser.UnaryExpr) types.Type {
	operand := a.typeExpr(ex.Expr)
	if operand.IsInvalid() {
		return invalid()
	}
	t, ok := unaryResult(ex.Op, operand)
	if !ok {
		a.errorf(diag.TypeMismatch, ex.Span, "operator %s cannot be applied to %s", ex.Op, operand)
		return invalid()
	}
	return t
}

func (a *analysis) typeBinary(ex *parser.BinaryExpr) types.Type {
	l := a.typeExpr(ex.Left)
	r := a.typeExpr(ex.Right)
	if l.IsInvalid() || r.IsInvalid() {
		return invalid()
	}
	t, ok := binaryResult(ex.Op, l, r)
	if !ok {
		a.errorf(diag.TypeMismatch, ex.Span, "operator %s cannot be applied to %s and %s", ex.Op, l, r)
		return invalid()
	}
	return t
}

func (a *analysis) typeBetween(ex *parser.BetweenExpr) types.Type {
	t := a.typeExpr(ex.Expr)
	lo := a.typeExpr(ex.Low)
	hi := a.typeExpr(ex.High)
	if t.IsInvalid() || lo.IsInvalid() || hi.IsInvalid() {
		return invalid()
	}
	if _, ok := types.Common(t, lo); !ok {
		a.errorf(diag.TypeMismatch, ex.Low.GetSpan(), "BETWEEN operands %s and %s cannot be compared", t, lo)
		return invalid()
	}
	if _, ok := types.Common(t, hi); !ok {
		a.errorf(diag.TypeMismatch, ex.High.GetSpan(), "BETWEEN operands %s and %s cannot be compared", t, hi)
		return invalid()
	}
	return types.Of(types.Bool)
}

func (a *analysis) typeIn(ex *parser.InExpr) types.Type {
	t := a.typeExpr(ex.Expr)

	if ex.Query != nil {
		cols := a.analyzeSubquery(ex.Query)
		if len(cols) != 1 {
			a.errorf(diag.ArityError, ex.Query.Span, "subquery must return only one column")
			return invalid()
		}
		if t.IsInvalid() || cols[0].Type.IsInvalid() {
			return invalid()
		}
		if _, ok := types.Common(t, cols[0].Type); !ok {
			a.errorf(diag.TypeMismatch, ex.Span, "IN operand of type %s cannot be compared to %s", t, cols[0].Type)
			return invalid()
		}
		return types.Of(types.Bool)
	}

	ok := !t.IsInvalid()
	for _, v := range ex.Values {
		vt := a.typeExpr(v)
		if vt.IsInvalid() {
			ok = false
			continue
		}
		if !ok {
			continue
		}
		if _, match := types.Common(t, vt); !match {
			a.errorf(diag.TypeMismatch, v.GetSpan(), "IN operand of type %s cannot be compared to %s", t, vt)
			ok = false
		}
	}
	if !ok {
		return invalid()
	}
	return types.Of(types.Bool)
}

func (a *analysis) typeLike(ex *parser.LikeExpr) types.Type {
	t := a.typeExpr(ex.Expr)
	p := a.typeExpr(ex.Pattern)
	if t.IsInvalid() || p.IsInvalid() {
		return invalid()
	}
	if !stringy(t) || !stringy(p) {
		a.errorf(diag.TypeMismatch, ex.Span, "LIKE requires text operands, not %s and %s", t, p)
		return invalid()
	}
	return types.Of(types.Bool)
}

func stringy(t types.Type) bool {
	return t.Kind == types.Null || t.IsString()
}

func (a *analysis) typeIsBool(ex *parser.IsBoolExpr) types.Type {
	t := a.typeExpr(ex.Expr)
	if !t.IsInvalid() && !coercesToBool(t) {
		a.errorf(diag.TypeMismatch, ex.Span, "argument of IS %s must be type %s, not type %s",
			strings.ToUpper(strconv.FormatBool(ex.Value)), types.Of(types.Bool), t)
		return invalid()
	}
	return types.Of(types.Bool)
}

// ---------- CASE, CAST, constructors ----------

func (a *analysis) typeCase(ex *parser.CaseExpr) types.Type {
	var operand types.Type
	if ex.Operand != nil {
		operand = a.typeExpr(ex.Operand)
	}

	result := types.Of(types.Null)
	ok := true
	for _, when := range ex.Whens {
		if ex.Operand != nil {
			wt := a.typeExpr(when.Condition)
			if !operand.IsInvalid() && !wt.IsInvalid() {
				if _, match := types.Common(operand, wt); !match {
					a.errorf(diag.TypeMismatch, when.Condition.GetSpan(), "CASE operand of type %s cannot be compared to %s", operand, wt)
				}
			}
		} else {
			a.typeExprBool(when.Condition, "CASE/WHEN")
		}
		result, ok = a.mergeBranch(result, a.typeExpr(when.Result), when.Result, ok)
	}
	if ex.Else != nil {
		result, ok = a.mergeBranch(result, a.typeExpr(ex.Else), ex.Else, ok)
	}
	if !ok {
		return invalid()
	}
	return result
}

// mergeBranch folds one CASE branch result into the running common
// type, reporting the first pair that cannot be matched.
func (a *analysis) mergeBranch(acc, t types.Type, at parser.Expr, ok bool) (types.Type, bool) {
	if !ok || t.IsInvalid() || acc.IsInvalid() {
		return invalid(), false
	}
	merged, match := types.Common(acc, t)
	if !match {
		a.errorf(diag.TypeMismatch, at.GetSpan(), "CASE types %s and %s cannot be matched", acc, t)
		return invalid(), false
	}
	return merged, true
}

func (a *analysis) typeCast(ex *parser.CastExpr) types.Type {
	inner := a.typeExpr(ex.Expr)
	target := a.resolveTypeName(ex.Type)
	if target.IsInvalid() || inner.IsInvalid() {
		return target
	}
	a.checkCastLiteral(ex, target)
	return target
}

// checkCastLiteral validates string-literal contents cast to types
// with a constrained text form, so CAST('not-a-uuid' AS UUID) fails
// during analysis rather than at evaluation time.
func (a *analysis) checkCastLiteral(ex *parser.CastExpr, target types.Type) {
	lit, ok := ex.Expr.(*parser.Literal)
	if !ok || lit.Type != parser.LiteralString {
		return
	}

	var err error
	switch target.Kind {
	case types.Uuid:
		_, err = uuid.Parse(lit.Value)
	case types.Date:
		_, err = time.Parse("2006-01-02", lit.Value)
	case types.Time:
		_, err = time.Parse("15:04:05", lit.Value)
	case types.Timestamp:
		err = parseTimestamp(lit.Value)
	case types.Int16, types.Int32, types.Int64:
		_, err = strconv.ParseInt(lit.Value, 10, 64)
	case types.Numeric, types.Float32, types.Float64:
		_, err = strconv.ParseFloat(lit.Value, 64)
	default:
		return
	}
	if err != nil {
		a.errorf(diag.TypeMismatch, lit.Span, "invalid input syntax for type %s: %q",
			strings.ToLower(target.Kind.String()), lit.Value)
	}
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(v string) error {
	var err error
	for _, layout := range timestampLayouts {
		if _, err = time.Parse(layout, v); err == nil {
			return nil
		}
	}
	return err
}

// resolveTypeName maps a source-written type to a concrete type,
// applying catalog aliases and ARRAY suffixes.
func (a *analysis) resolveTypeName(tn *parser.TypeName) types.Type {
	t, err := a.catalog.ResolveType(tn.Name, tn.Params)
	if err != nil {
		a.errorf(diag.UnknownIdentifier, tn.Span, "%s", err)
		return invalid()
	}
	for i := 0; i < tn.Array; i++ {
		t = types.NewArray(t)
	}
	return t
}

func (a *analysis) typeScalarSubquery(ex *parser.SubqueryExpr) types.Type {
	cols := a.analyzeSubquery(ex.Select)
	if len(cols) != 1 {
		a.errorf(diag.ArityError, ex.Select.Span, "subquery must return only one column")
		return invalid()
	}
	return cols[0].Type
}

func (a *analysis) typeArray(ex *parser.ArrayExpr) types.Type {
	if len(ex.Elems) == 0 {
		return types.Type{Kind: types.Array}
	}
	elem := a.typeExpr(ex.Elems[0])
	for _, e := range ex.Elems[1:] {
		t := a.typeExpr(e)
		if elem.IsInvalid() || t.IsInvalid() {
			elem = invalid()
			continue
		}
		merged, ok := types.Common(elem, t)
		if !ok {
			a.errorf(diag.TypeMismatch, e.GetSpan(), "ARRAY types %s and %s cannot be matched", elem, t)
			elem = invalid()
			continue
		}
		elem = merged
	}
	if elem.IsInvalid() {
		return invalid()
	}
	return types.NewArray(elem)
}

func (a *analysis) typeRow(ex *parser.RowExpr) types.Type {
	fields := make([]types.Field, len(ex.Items))
	for i, item := range ex.Items {
		fields[i] = types.Field{Type: a.typeExpr(item)}
	}
	return types.NewRow(fields...)
}

// ---------- function calls ----------

func (a *analysis) typeFuncCall(call *parser.FuncCall) types.Type {
	fn, found := a.catalog.Function(call.Name)

	argTypes := a.typeCallArgs(call, fn)

	if call.Filter != nil {
		a.typeFilter(call, fn)
	}
	if call.Window != nil {
		a.analyzeWindowSpec(call.Window, call.Span)
	}

	if !found {
		msg := withSuggestion("function "+strconv.Quote(call.Name)+" does not exist",
			call.Name, a.functionNames())
		a.errorf(diag.NoMatchingFunction, call.Span, "%s", msg)
		return invalid()
	}

	if call.Star && !strings.EqualFold(call.Name, "count") {
		a.errorf(diag.NoMatchingFunction, call.Span, "%s(*) is not supported", call.Name)
		return invalid()
	}

	a.checkCallShape(call, fn)

	for _, t := range argTypes {
		if t.IsInvalid() {
			return invalid()
		}
	}

	sig, outcome := catalog.ResolveOverload(fn, argTypes)
	switch outcome {
	case catalog.NoMatch:
		a.errorf(diag.NoMatchingFunction, call.Span, "function %s(%s) does not exist", fn.Name, commaTypes(argTypes))
		return invalid()
	case catalog.Ambiguous:
		a.errorf(diag.AmbiguousOverload, call.Span, "function %s(%s) is not unique", fn.Name, commaTypes(argTypes))
		return invalid()
	}

	a.res.Calls[call] = &ResolvedCall{Name: fn.Name, Signature: sig}

	result := sig.Result
	if result.Kind == types.Any {
		result = commonOf(argTypes)
	}
	return result
}

// typeCallArgs types the positional and named arguments. Aggregate
// arguments are typed under the in-aggregate flag so nested aggregate
// calls are caught.
func (a *analysis) typeCallArgs(call *parser.FuncCall, fn *catalog.Function) []types.Type {
	inAggregate := fn != nil && aggregateCall(call, fn)
	ctx := a.currentQuery()
	if inAggregate && ctx != nil {
		prev := ctx.inAggregate
		ctx.inAggregate = true
		defer func() { ctx.inAggregate = prev }()
	}

	argTypes := make([]types.Type, 0, len(call.Args)+len(call.NamedArgs))
	for _, arg := range call.Args {
		argTypes = append(argTypes, a.typeExpr(arg))
	}
	// Named arguments type-check positionally after the positional
	// ones; signatures carry no parameter names to match against.
	for _, named := range call.NamedArgs {
		argTypes = append(argTypes, a.typeExpr(named.Value))
	}
	return argTypes
}

// aggregateCall reports whether the call invokes fn as an aggregate:
// an aggregate function without OVER. With OVER it computes over a
// window instead and follows the window rules.
func aggregateCall(call *parser.FuncCall, fn *catalog.Function) bool {
	return functionKind(fn) == catalog.Aggregate && call.Window == nil
}

// functionKind assumes all overloads share the function's kind.
func functionKind(fn *catalog.Function) catalog.FunctionKind {
	if len(fn.Overloads) == 0 {
		return catalog.Scalar
	}
	return fn.Overloads[0].Kind
}

func (a *analysis) typeFilter(call *parser.FuncCall, fn *catalog.Function) {
	ctx := a.currentQuery()
	if ctx != nil {
		prev := ctx.inAggregate
		ctx.inAggregate = true
		defer func() { ctx.inAggregate = prev }()
	}
	a.typeExprBool(call.Filter, "FILTER")
	if fn != nil && functionKind(fn) != catalog.Aggregate {
		a.errorf(diag.GroupingError, call.Span, "FILTER specified, but %s is not an aggregate function", fn.Name)
	}
}

// checkCallShape validates the call form against the function's kind:
// DISTINCT belongs to aggregates, window functions demand an OVER
// clause, and aggregates obey the clause-context rules.
func (a *analysis) checkCallShape(call *parser.FuncCall, fn *catalog.Function) {
	kind := functionKind(fn)

	if call.Distinct && kind != catalog.Aggregate {
		a.errorf(diag.GroupingError, call.Span, "DISTINCT specified, but %s is not an aggregate function", fn.Name)
	}

	if call.Window != nil {
		if kind == catalog.Scalar {
			a.errorf(diag.GroupingError, call.Span, "OVER specified, but %s is not a window function nor an aggregate function", fn.Name)
			return
		}
		if call.Distinct {
			a.errorf(diag.GroupingError, call.Span, "DISTINCT is not implemented for window functions")
		}
		a.checkWindowContext(call)
		return
	}

	switch kind {
	case catalog.Window:
		a.errorf(diag.GroupingError, call.Span, "window function %s requires an OVER clause", fn.Name)
	case catalog.Aggregate:
		a.checkAggregateContext(call)
	}
}

// checkAggregateContext enforces where plain aggregate calls may
// appear: the select list, HAVING, or ORDER BY of a query, never
// nested in another aggregate.
func (a *analysis) checkAggregateContext(call *parser.FuncCall) {
	ctx := a.currentQuery()
	if ctx == nil {
		a.errorf(diag.GroupingError, call.Span, "aggregate functions are not allowed here")
		return
	}
	if ctx.inAggregate {
		a.errorf(diag.GroupingError, call.Span, "aggregate function calls cannot be nested")
		return
	}
	switch ctx.clause {
	case clauseWhere, clauseGroupBy, clauseJoinOn, clauseLimit, clauseValues, clauseSet, clauseMergeWhen:
		a.errorf(diag.GroupingError, call.Span, "aggregate functions are not allowed in %s", ctx.clause)
	default:
		ctx.sawAggregate = true
	}
}

// checkWindowContext enforces where window calls may appear: only the
// select list and ORDER BY, never inside an aggregate's arguments.
func (a *analysis) checkWindowContext(call *parser.FuncCall) {
	ctx := a.currentQuery()
	if ctx == nil {
		a.errorf(diag.GroupingError, call.Span, "window functions are not allowed here")
		return
	}
	if ctx.inAggregate {
		a.errorf(diag.GroupingError, call.Span, "aggregate function calls cannot contain window function calls")
		return
	}
	switch ctx.clause {
	case clauseSelect, clauseOrderBy:
	default:
		a.errorf(diag.GroupingError, call.Span, "window functions are not allowed in %s", ctx.clause)
	}
}

// analyzeWindowSpec types the expressions of an OVER clause. A bare
// name must refer to a window defined by the query's WINDOW clause.
func (a *analysis) analyzeWindowSpec(spec *parser.WindowSpec, span token.Span) {
	if spec.Name != "" {
		ctx := a.currentQuery()
		if ctx == nil || ctx.windows[strings.ToLower(spec.Name)] == nil {
			a.errorf(diag.UnknownIdentifier, span, "window %q does not exist", spec.Name)
		}
		return
	}
	for _, e := range spec.PartitionBy {
		a.typeExpr(e)
	}
	for _, item := range spec.OrderBy {
		a.typeExpr(item.Expr)
	}
	if spec.Frame != nil {
		a.checkFrameBound(spec.Frame, spec.Frame.Start)
		a.checkFrameBound(spec.Frame, spec.Frame.End)
	}
}

// checkFrameBound requires ROWS and GROUPS offsets to be integers;
// RANGE offsets may also be intervals for temporal orderings.
func (a *analysis) checkFrameBound(frame *parser.FrameSpec, bound *parser.FrameBound) {
	if bound == nil || bound.Offset == nil {
		return
	}
	t := a.typeExpr(bound.Offset)
	if t.IsInvalid() {
		return
	}
	switch frame.Type {
	case parser.FrameRange:
		if t.IsNumeric() || t.Kind == types.Interval || t.Kind == types.Null {
			return
		}
	default:
		if types.Coerces(t, types.Of(types.Int64)) {
			return
		}
	}
	a.errorf(diag.TypeMismatch, bound.Offset.GetSpan(), "window frame offset cannot be type %s", t)
}

// ---------- helpers ----------

func (a *analysis) functionNames() []string {
	fns := a.catalog.Functions()
	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = fn.Name
	}
	return names
}

func commaTypes(ts []types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func commonOf(ts []types.Type) types.Type {
	if len(ts) == 0 {
		return invalid()
	}
	acc := ts[0]
	for _, t := range ts[1:] {
		merged, ok := types.Common(acc, t)
		if !ok {
			return ts[0]
		}
		acc = merged
	}
	return acc
}

// ---------- nullability ----------

// nullableExpr estimates whether an expression can produce NULL, for
// the output schema. The estimate errs toward nullable: strict
// operators propagate operand nullability, predicates on NULL inputs
// yield NULL, and anything unknown is assumed nullable.
func (a *analysis) nullableExpr(e parser.Expr) bool {
	switch ex := e.(type) {
	case *parser.Literal:
		return ex.Type == parser.LiteralNull
	case *parser.ColumnRef:
		b, ok := a.res.Bindings[ex]
		return !ok || b.Nullable
	case *parser.ParenExpr:
		return a.nullableExpr(ex.Expr)
	case *parser.UnaryExpr:
		return a.nullableExpr(ex.Expr)
	case *parser.BinaryExpr:
		return a.nullableExpr(ex.Left) || a.nullableExpr(ex.Right)
	case *parser.CastExpr:
		return a.nullableExpr(ex.Expr)
	case *parser.BetweenExpr:
		return a.nullableExpr(ex.Expr) || a.nullableExpr(ex.Low) || a.nullableExpr(ex.High)
	case *parser.LikeExpr:
		return a.nullableExpr(ex.Expr) || a.nullableExpr(ex.Pattern)
	case *parser.InExpr:
		if ex.Query != nil {
			return true
		}
		nullable := a.nullableExpr(ex.Expr)
		for _, v := range ex.Values {
			nullable = nullable || a.nullableExpr(v)
		}
		return nullable
	case *parser.IsNullExpr, *parser.IsBoolExpr, *parser.ExistsExpr:
		// IS predicates and EXISTS are three-valued-logic killers:
		// they always produce a definite boolean.
		return false
	case *parser.CaseExpr:
		if ex.Else == nil {
			return true
		}
		for _, when := range ex.Whens {
			if a.nullableExpr(when.Result) {
				return true
			}
		}
		return a.nullableExpr(ex.Else)
	case *parser.ArrayExpr, *parser.RowExpr:
		return false
	case *parser.FuncCall:
		return a.nullableCall(ex)
	}
	return true
}

func (a *analysis) nullableCall(call *parser.FuncCall) bool {
	if strings.EqualFold(call.Name, "count") {
		return false
	}
	if strings.EqualFold(call.Name, "coalesce") {
		// COALESCE is NULL only when every argument is.
		for _, arg := range call.Args {
			if !a.nullableExpr(arg) {
				return false
			}
		}
		return true
	}
	resolved, ok := a.res.Calls[call]
	if !ok {
		return true
	}
	switch resolved.Signature.Kind {
	case catalog.Aggregate, catalog.Window:
		// Aggregates over zero rows and value window functions can
		// yield NULL; COUNT is handled above.
		return true
	}
	// Builtin scalars are strict: NULL in, NULL out.
	for _, arg := range call.Args {
		if a.nullableExpr(arg) {
			return true
		}
	}
	for _, named := range call.NamedArgs {
		if a.nullableExpr(named.Value) {
			return true
		}
	}
	return false
}
