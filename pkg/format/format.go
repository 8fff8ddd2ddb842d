// Package format renders parsed statements back as canonical SQL.
//
// The layout is deterministic: uppercase keywords, two-space indentation,
// one clause per line with clause bodies indented, subqueries indented
// inside their parentheses. Formatting already-formatted text reproduces
// it byte for byte, so the output is a stable canonical form for diffing
// and storage.
package format

import "github.com/keeldb/keel/pkg/parser"

// Format renders a statement in canonical form. The result always ends
// with exactly one newline. Any statement the parser accepts formats;
// the output parses back to an equivalent tree.
func Format(stmt parser.Statement) string {
	p := newPrinter()
	p.formatStatement(stmt)
	return p.String()
}
