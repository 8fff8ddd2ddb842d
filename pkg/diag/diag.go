// Package diag defines the diagnostic model shared by the lexer,
// parser, and analyzer. A diagnostic carries a kind, a message, the
// primary source span, and optional secondary spans for context.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keeldb/keel/pkg/token"
)

// Kind classifies a diagnostic by the stage and rule that produced it.
type Kind int

const (
	LexError Kind = iota
	ParseError
	UnknownIdentifier
	AmbiguousIdentifier
	TypeMismatch
	NoMatchingFunction
	AmbiguousOverload
	GroupingError
	DuplicateDefinition
	ArityError
)

var kindNames = map[Kind]string{
	LexError:            "lex error",
	ParseError:          "parse error",
	UnknownIdentifier:   "unknown identifier",
	AmbiguousIdentifier: "ambiguous identifier",
	TypeMismatch:        "type mismatch",
	NoMatchingFunction:  "no matching function",
	AmbiguousOverload:   "ambiguous overload",
	GroupingError:       "grouping error",
	DuplicateDefinition: "duplicate definition",
	ArityError:          "arity error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", k)
}

// RelatedInfo points at a secondary location that explains the primary
// finding, e.g. where a duplicate name was first defined.
type RelatedInfo struct {
	Span    token.Span
	Message string
}

// Diagnostic is one finding against the input text.
type Diagnostic struct {
	Kind    Kind
	Message string
	Span    token.Span
	Related []RelatedInfo
}

// New builds a diagnostic with a formatted message.
func New(kind Kind, span token.Span, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

// WithRelated returns a copy of the diagnostic with an extra secondary
// span attached.
func (d Diagnostic) WithRelated(span token.Span, format string, args ...any) Diagnostic {
	related := make([]RelatedInfo, len(d.Related), len(d.Related)+1)
	copy(related, d.Related)
	d.Related = append(related, RelatedInfo{
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	})
	return d
}

func (d Diagnostic) Error() string {
	pos := d.Span.Start
	return fmt.Sprintf("%s at line %d, column %d: %s", d.Kind, pos.Line, pos.Column, d.Message)
}

// Diagnostics is an ordered collection of findings. It implements
// error so a failed analysis can travel through ordinary error returns.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	msgs := make([]string, len(ds))
	for i, d := range ds {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// Sort orders the findings by primary span start offset, keeping the
// emission order for findings at the same offset.
func (ds Diagnostics) Sort() {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Span.Start.Offset < ds[j].Span.Start.Offset
	})
}

// HasKind reports whether any finding has the given kind.
func (ds Diagnostics) HasKind(k Kind) bool {
	for _, d := range ds {
		if d.Kind == k {
			return true
		}
	}
	return false
}

// CountKind returns the number of findings with the given kind.
func (ds Diagnostics) CountKind(k Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == k {
			n++
		}
	}
	return n
}
