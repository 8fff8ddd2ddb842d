// Package lint provides advisory style checks over parsed statements.
// Rules are data-driven definitions registered in a global registry;
// each inspects one statement and reports findings that point into the
// source with the same span model the analyzer's diagnostics use.
//
// Findings are advisory. The severity scale here is independent of the
// analyzer: a statement can be semantically valid and still collect
// lint findings, and linting never blocks analysis.
package lint

import (
	"sort"

	"github.com/keeldb/keel/pkg/analyzer"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/token"
)

// Severity indicates the importance of a finding.
type Severity int

// Severity levels for findings.
const (
	// SeverityError indicates an issue that should be fixed.
	SeverityError Severity = iota
	// SeverityWarning indicates a potential issue that should be reviewed.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
	// SeverityHint indicates a suggestion for improvement.
	SeverityHint
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Finding is one lint result.
type Finding struct {
	RuleID   string
	Severity Severity
	Message  string
	Span     token.Span
}

// Context carries what a rule may inspect. Resolved is nil when the
// statement is linted without semantic analysis; rules that can say
// more with analyzer output check for it and degrade gracefully.
type Context struct {
	Stmt     parser.Statement
	Resolved *analyzer.ResolvedStatement
}

// CheckFunc inspects one statement and reports findings.
// Rules are stateless; everything they see arrives through the context.
type CheckFunc func(ctx *Context) []Finding

// RuleDef is a data-driven rule definition.
type RuleDef struct {
	ID          string   // unique identifier, e.g. "SF01"
	Name        string   // dotted name, e.g. "safety.update-where"
	Group       string   // category, e.g. "safety", "ambiguous"
	Description string   // what the rule flags
	Severity    Severity // severity its findings carry
	Check       CheckFunc
}

// Lint runs every registered rule over a parsed statement.
func Lint(stmt parser.Statement) []Finding {
	return LintResolved(stmt, nil)
}

// LintResolved runs every registered rule, additionally handing rules
// the analyzer's output so resolution-aware checks can report more.
func LintResolved(stmt parser.Statement, res *analyzer.ResolvedStatement) []Finding {
	if stmt == nil {
		return nil
	}

	ctx := &Context{Stmt: stmt, Resolved: res}

	var findings []Finding
	for _, rule := range All() {
		findings = append(findings, rule.Check(ctx)...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Span.Start.Offset != findings[j].Span.Start.Offset {
			return findings[i].Span.Start.Offset < findings[j].Span.Start.Offset
		}
		return findings[i].RuleID < findings[j].RuleID
	})
	return findings
}
