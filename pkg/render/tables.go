package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/keeldb/keel/pkg/analyzer"
	"github.com/keeldb/keel/pkg/catalog"
	"github.com/keeldb/keel/pkg/diag"
)

// Summary writes a one-row-per-finding table with a trailing count.
func (r *Renderer) Summary(ds diag.Diagnostics) error {
	if len(ds) == 0 {
		_, err := fmt.Fprintln(r.w, "(0 findings)")
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Location", "Kind", "Message"})
	for _, d := range ds {
		tw.AppendRow(table.Row{
			fmt.Sprintf("%d:%d", d.Span.Start.Line, d.Span.Start.Column),
			d.Kind.String(),
			d.Message,
		})
	}
	tw.Render()
	_, err := fmt.Fprintf(r.w, "(%d findings)\n", len(ds))
	return err
}

// Shape writes a statement's result shape.
func (r *Renderer) Shape(cols []analyzer.OutputColumn) error {
	if len(cols) == 0 {
		_, err := fmt.Fprintln(r.w, "(no columns)")
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Column", "Type", "Nullable"})
	for _, col := range cols {
		tw.AppendRow(table.Row{col.Name, col.Type.String(), yesNo(col.Nullable)})
	}
	tw.Render()
	return nil
}

// Table writes one table's definition.
func (r *Renderer) Table(tbl *catalog.Table) error {
	_, _ = fmt.Fprintf(r.w, "Table: %s\n", tbl.Name)
	_, _ = fmt.Fprintln(r.w, strings.Repeat("-", 60))

	tw := table.NewWriter()
	tw.SetOutputMirror(r.w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Column", "Type", "Nullable", "Key"})
	for _, col := range tbl.Columns {
		key := ""
		if isKeyColumn(tbl, col.Name) {
			key = "(primary key)"
		}
		tw.AppendRow(table.Row{col.Name, col.Type.String(), yesNo(col.Nullable), key})
	}
	tw.Render()
	return nil
}

// Functions writes one row per overload.
func (r *Renderer) Functions(fns []*catalog.Function) error {
	if len(fns) == 0 {
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Function", "Kind", "Signature"})
	for _, f := range fns {
		for _, sig := range f.Overloads {
			tw.AppendRow(table.Row{f.Name, sig.Kind.String(), sig.String()})
		}
	}
	tw.Render()
	return nil
}

// Catalog writes every table, the type aliases, and the functions.
func (r *Renderer) Catalog(c *catalog.Catalog) error {
	for _, tbl := range c.Tables() {
		if err := r.Table(tbl); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(r.w)
	}

	if aliases := c.Aliases(); len(aliases) > 0 {
		names := make([]string, 0, len(aliases))
		for name := range aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		_, _ = fmt.Fprintln(r.w, "Type aliases:")
		for _, name := range names {
			_, _ = fmt.Fprintf(r.w, "  %s = %s\n", name, aliases[name])
		}
		_, _ = fmt.Fprintln(r.w)
	}

	return r.Functions(c.Functions())
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func isKeyColumn(tbl *catalog.Table, name string) bool {
	for _, k := range tbl.PrimaryKey {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
