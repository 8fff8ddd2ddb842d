package format

import (
	"strconv"
	"strings"

	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/token"
)

const complexityThreshold = 5

func (p *Printer) formatExpr(e parser.Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *parser.Literal:
		p.formatLiteral(expr)
	case *parser.ColumnRef:
		p.formatColumnRef(expr)
	case *parser.BinaryExpr:
		p.formatBinaryExpr(expr)
	case *parser.UnaryExpr:
		p.formatUnaryExpr(expr)
	case *parser.FuncCall:
		p.formatFuncCall(expr)
	case *parser.CaseExpr:
		p.formatCaseExpr(expr)
	case *parser.CastExpr:
		p.formatCastExpr(expr)
	case *parser.InExpr:
		p.formatInExpr(expr)
	case *parser.BetweenExpr:
		p.formatBetweenExpr(expr)
	case *parser.IsNullExpr:
		p.formatIsNullExpr(expr)
	case *parser.IsBoolExpr:
		p.formatIsBoolExpr(expr)
	case *parser.LikeExpr:
		p.formatLikeExpr(expr)
	case *parser.ParenExpr:
		p.formatParenExpr(expr)
	case *parser.SubqueryExpr:
		p.formatSubqueryExpr(expr)
	case *parser.ExistsExpr:
		p.formatExistsExpr(expr)
	case *parser.StarExpr:
		p.formatStarExpr(expr)
	case *parser.ArrayExpr:
		p.formatArrayExpr(expr)
	case *parser.RowExpr:
		p.formatRowExpr(expr)
	}
}

func (p *Printer) exprComplexity(e parser.Expr) int {
	if e == nil {
		return 0
	}

	switch expr := e.(type) {
	case *parser.Literal, *parser.ColumnRef, *parser.StarExpr:
		return 1
	case *parser.BinaryExpr:
		return 1 + p.exprComplexity(expr.Left) + p.exprComplexity(expr.Right)
	case *parser.UnaryExpr:
		return 1 + p.exprComplexity(expr.Expr)
	case *parser.FuncCall:
		score := 2
		for _, arg := range expr.Args {
			score += p.exprComplexity(arg)
		}
		return score
	case *parser.ParenExpr:
		return p.exprComplexity(expr.Expr)
	case *parser.CaseExpr:
		score := 2
		for _, w := range expr.Whens {
			score += p.exprComplexity(w.Condition) + p.exprComplexity(w.Result)
		}
		return score
	default:
		return 1
	}
}

func isLogicalOp(op token.TokenType) bool {
	return op == token.AND || op == token.OR
}

func (p *Printer) formatLiteral(lit *parser.Literal) {
	switch lit.Type {
	case parser.LiteralString:
		p.write("'")
		p.write(strings.ReplaceAll(lit.Value, "'", "''"))
		p.write("'")
	case parser.LiteralBool:
		if strings.EqualFold(lit.Value, "true") {
			p.kw(token.TRUE)
		} else {
			p.kw(token.FALSE)
		}
	case parser.LiteralNull:
		p.kw(token.NULL)
	default:
		p.write(lit.Value)
	}
}

func (p *Printer) formatColumnRef(col *parser.ColumnRef) {
	if col.Table != "" {
		p.name(col.Table)
		p.write(".")
	}
	p.name(col.Column)
}

func (p *Printer) formatBinaryExpr(expr *parser.BinaryExpr) {
	shouldBreak := p.exprComplexity(expr) > complexityThreshold && isLogicalOp(expr.Op)

	p.formatExpr(expr.Left)

	if shouldBreak {
		p.writeln()
		p.kw(expr.Op)
		p.space()
	} else {
		p.space()
		p.kw(expr.Op)
		p.space()
	}

	p.formatExpr(expr.Right)
}

func (p *Printer) formatUnaryExpr(expr *parser.UnaryExpr) {
	p.kw(expr.Op)
	if expr.Op == token.NOT {
		p.space()
	}
	p.formatExpr(expr.Expr)
}

func (p *Printer) formatFuncCall(fn *parser.FuncCall) {
	p.name(fn.Name)
	p.write("(")

	if fn.Distinct {
		p.kw(token.DISTINCT)
		p.space()
	}

	if fn.Star {
		p.write("*")
	} else {
		count := len(fn.Args) + len(fn.NamedArgs)
		p.formatList(count, func(i int) {
			if i < len(fn.Args) {
				p.formatExpr(fn.Args[i])
				return
			}
			arg := fn.NamedArgs[i-len(fn.Args)]
			p.name(arg.Name.Name)
			p.write(" => ")
			p.formatExpr(arg.Value)
		}, ", ", false)
	}

	p.write(")")

	if fn.Filter != nil {
		p.space()
		p.kw(token.FILTER)
		p.write(" (")
		p.kw(token.WHERE)
		p.space()
		p.formatExpr(fn.Filter)
		p.write(")")
	}

	if fn.Window != nil {
		p.space()
		p.formatWindowSpec(fn.Window)
	}
}

func (p *Printer) formatWindowSpec(w *parser.WindowSpec) {
	p.kw(token.OVER)

	// A named reference only round-trips bare: the parenthesized form
	// cannot carry a base window name.
	if w.Name != "" {
		p.space()
		p.name(w.Name)
		return
	}

	p.space()
	p.formatWindowParens(w)
}

func (p *Printer) formatWindowParens(w *parser.WindowSpec) {
	p.write("(")

	if len(w.PartitionBy) > 0 {
		p.writeln()
		p.indent()
		p.kw(token.PARTITION, token.BY)
		p.space()
		p.formatList(len(w.PartitionBy), func(i int) { p.formatExpr(w.PartitionBy[i]) }, ", ", false)
		p.dedent()
	}

	if len(w.OrderBy) > 0 {
		p.writeln()
		p.indent()
		p.kw(token.ORDER, token.BY)
		p.space()
		p.formatList(len(w.OrderBy), func(i int) { p.formatOrderByItem(w.OrderBy[i]) }, ", ", false)
		p.dedent()
	}

	if w.Frame != nil {
		p.writeln()
		p.indent()
		p.formatFrameSpec(w.Frame)
		p.dedent()
	}

	p.write(")")
}

func (p *Printer) formatFrameSpec(f *parser.FrameSpec) {
	p.keyword(string(f.Type))
	p.space()

	if f.End != nil {
		p.kw(token.BETWEEN)
		p.space()
		p.formatFrameBound(f.Start)
		p.space()
		p.kw(token.AND)
		p.space()
		p.formatFrameBound(f.End)
		return
	}

	p.formatFrameBound(f.Start)
}

func (p *Printer) formatFrameBound(b *parser.FrameBound) {
	if b == nil {
		return
	}
	switch b.Type {
	case parser.FrameUnboundedPreceding:
		p.kw(token.UNBOUNDED, token.PRECEDING)
	case parser.FrameUnboundedFollowing:
		p.kw(token.UNBOUNDED, token.FOLLOWING)
	case parser.FrameCurrentRow:
		p.kw(token.CURRENT, token.ROW)
	case parser.FrameExprPreceding:
		p.formatExpr(b.Offset)
		p.space()
		p.kw(token.PRECEDING)
	case parser.FrameExprFollowing:
		p.formatExpr(b.Offset)
		p.space()
		p.kw(token.FOLLOWING)
	}
}

func (p *Printer) formatCaseExpr(c *parser.CaseExpr) {
	p.kw(token.CASE)

	if c.Operand != nil {
		p.space()
		p.formatExpr(c.Operand)
	}

	p.writeln()
	p.indent()

	for _, w := range c.Whens {
		p.kw(token.WHEN)
		p.space()
		p.formatExpr(w.Condition)
		p.space()
		p.kw(token.THEN)
		p.space()
		p.formatExpr(w.Result)
		p.writeln()
	}

	if c.Else != nil {
		p.kw(token.ELSE)
		p.space()
		p.formatExpr(c.Else)
		p.writeln()
	}

	p.dedent()
	p.kw(token.END)
}

func (p *Printer) formatCastExpr(c *parser.CastExpr) {
	p.kw(token.CAST)
	p.write("(")
	p.formatExpr(c.Expr)
	p.space()
	p.kw(token.AS)
	p.space()
	p.formatTypeName(c.Type)
	p.write(")")
}

func (p *Printer) formatTypeName(t *parser.TypeName) {
	if t == nil {
		return
	}

	if isPlainName(t.Name) {
		p.keyword(t.Name)
	} else {
		p.name(t.Name)
	}

	if len(t.Params) > 0 {
		p.write("(")
		for i, n := range t.Params {
			if i > 0 {
				p.write(", ")
			}
			p.write(strconv.Itoa(n))
		}
		p.write(")")
	}

	for i := 0; i < t.Array; i++ {
		p.space()
		p.kw(token.ARRAY)
	}
}

func (p *Printer) formatInExpr(in *parser.InExpr) {
	p.formatExpr(in.Expr)
	if in.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.IN)
	p.write(" (")

	if in.Query != nil {
		p.writeln()
		p.indent()
		p.formatSelectStmt(in.Query)
		p.dedent()
	} else {
		p.formatExprList(in.Values)
	}

	p.write(")")
}

func (p *Printer) formatBetweenExpr(b *parser.BetweenExpr) {
	p.formatExpr(b.Expr)
	if b.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.BETWEEN)
	p.space()
	p.formatExpr(b.Low)
	p.space()
	p.kw(token.AND)
	p.space()
	p.formatExpr(b.High)
}

func (p *Printer) formatIsNullExpr(is *parser.IsNullExpr) {
	p.formatExpr(is.Expr)
	p.space()
	p.kw(token.IS)
	if is.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.NULL)
}

func (p *Printer) formatIsBoolExpr(is *parser.IsBoolExpr) {
	p.formatExpr(is.Expr)
	p.space()
	p.kw(token.IS)
	if is.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	if is.Value {
		p.kw(token.TRUE)
	} else {
		p.kw(token.FALSE)
	}
}

func (p *Printer) formatLikeExpr(like *parser.LikeExpr) {
	p.formatExpr(like.Expr)
	if like.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.LIKE)
	p.space()
	p.formatExpr(like.Pattern)
}

func (p *Printer) formatParenExpr(paren *parser.ParenExpr) {
	p.write("(")
	p.formatExpr(paren.Expr)
	p.write(")")
}

func (p *Printer) formatSubqueryExpr(sq *parser.SubqueryExpr) {
	p.write("(")
	p.writeln()
	p.indent()
	p.formatSelectStmt(sq.Select)
	p.dedent()
	p.write(")")
}

func (p *Printer) formatExistsExpr(ex *parser.ExistsExpr) {
	if ex.Not {
		p.kw(token.NOT)
		p.space()
	}
	p.kw(token.EXISTS)
	p.write(" (")
	p.writeln()
	p.indent()
	p.formatSelectStmt(ex.Select)
	p.dedent()
	p.write(")")
}

func (p *Printer) formatStarExpr(star *parser.StarExpr) {
	if star.Table != "" {
		p.name(star.Table)
		p.write(".")
	}
	p.write("*")
}

func (p *Printer) formatArrayExpr(arr *parser.ArrayExpr) {
	p.kw(token.ARRAY)
	p.write("[")
	p.formatExprList(arr.Elems)
	p.write("]")
}

func (p *Printer) formatRowExpr(row *parser.RowExpr) {
	p.kw(token.ROW)
	p.write("(")
	p.formatExprList(row.Items)
	p.write(")")
}
