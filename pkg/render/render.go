// Package render turns diagnostics and catalogs into human-readable
// reports: compiler-style source excerpts with carets, plus tabular
// summaries. Output is colored when the writer is a terminal.
package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/token"
)

// Renderer writes reports to a single destination. The zero value is
// not usable; construct with New or NewWithProfile.
type Renderer struct {
	w   io.Writer
	out *termenv.Output
}

// New returns a renderer over w. Color is enabled when w is a
// terminal, honoring NO_COLOR and CLICOLOR.
func New(w io.Writer) *Renderer {
	profile := termenv.Ascii
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		profile = termenv.EnvColorProfile()
	}
	return NewWithProfile(w, profile)
}

// NewWithProfile returns a renderer with a fixed color profile,
// bypassing terminal detection.
func NewWithProfile(w io.Writer, profile termenv.Profile) *Renderer {
	return &Renderer{
		w:   w,
		out: termenv.NewOutput(w, termenv.WithProfile(profile)),
	}
}

// Diagnostics writes a compiler-style report for each finding, with
// a blank line between findings.
func (r *Renderer) Diagnostics(src string, ds diag.Diagnostics) error {
	lines := sourceLines(src)
	var sb strings.Builder
	for i, d := range ds {
		if i > 0 {
			sb.WriteByte('\n')
		}
		r.diagnostic(&sb, lines, d)
	}
	_, err := io.WriteString(r.w, sb.String())
	return err
}

// Diagnostic writes a compiler-style report for one finding.
func (r *Renderer) Diagnostic(src string, d diag.Diagnostic) error {
	var sb strings.Builder
	r.diagnostic(&sb, sourceLines(src), d)
	_, err := io.WriteString(r.w, sb.String())
	return err
}

func (r *Renderer) diagnostic(sb *strings.Builder, lines []string, d diag.Diagnostic) {
	sb.WriteString(r.styled(d.Kind.String(), termenv.ANSIRed, true))
	sb.WriteString(r.bold(": " + d.Message))
	sb.WriteByte('\n')
	r.excerpt(sb, lines, d.Span, termenv.ANSIRed)

	for _, rel := range d.Related {
		sb.WriteString(r.styled("note", termenv.ANSICyan, true))
		sb.WriteString(": " + rel.Message)
		sb.WriteByte('\n')
		r.excerpt(sb, lines, rel.Span, termenv.ANSICyan)
	}
}

// excerpt writes the --> location line, the source line, and a caret
// line under the span. Spans outside the source render the location
// line only.
func (r *Renderer) excerpt(sb *strings.Builder, lines []string, span token.Span, color termenv.Color) {
	start := span.Start
	if !span.IsValid() {
		return
	}

	pad := strings.Repeat(" ", len(strconv.Itoa(start.Line)))
	sb.WriteString(pad)
	sb.WriteString(r.styled("--> ", termenv.ANSIBlue, true))
	sb.WriteString(fmt.Sprintf("%d:%d\n", start.Line, start.Column))

	if start.Line < 1 || start.Line > len(lines) {
		return
	}
	text := lines[start.Line-1]
	gutter := r.styled(" | ", termenv.ANSIBlue, true)

	sb.WriteString(pad)
	sb.WriteString(r.styled(" |", termenv.ANSIBlue, true))
	sb.WriteByte('\n')

	sb.WriteString(r.styled(strconv.Itoa(start.Line), termenv.ANSIBlue, true))
	sb.WriteString(gutter)
	sb.WriteString(text)
	sb.WriteByte('\n')

	sb.WriteString(pad)
	sb.WriteString(gutter)
	sb.WriteString(caretIndent(text, start.Column))
	sb.WriteString(r.styled(strings.Repeat("^", caretWidth(span, text)), color, true))
	sb.WriteByte('\n')
}

// caretIndent mirrors the source line's leading tabs so the carets
// line up under tab-indented text.
func caretIndent(text string, column int) string {
	var sb strings.Builder
	for i := 0; i < column-1; i++ {
		if i < len(text) && text[i] == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// caretWidth is the number of carets under the span's first line,
// clamped to the line end and never less than one.
func caretWidth(span token.Span, text string) int {
	width := 1
	if span.End.Line == span.Start.Line {
		width = span.End.Column - span.Start.Column
	} else {
		width = len(text) - span.Start.Column + 1
	}
	if limit := len(text) - span.Start.Column + 1; width > limit {
		width = limit
	}
	if width < 1 {
		width = 1
	}
	return width
}

func (r *Renderer) styled(s string, c termenv.Color, bold bool) string {
	st := r.out.String(s).Foreground(c)
	if bold {
		st = st.Bold()
	}
	return st.String()
}

func (r *Renderer) bold(s string) string {
	return r.out.String(s).Bold().String()
}

func sourceLines(src string) []string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
