package analyzer

import (
	"fmt"
	"strings"

	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/parser"
	"github.com/keeldb/keel/pkg/token"
	"github.com/keeldb/keel/pkg/types"
)

// ---------- CREATE TABLE ----------

func (a *analysis) analyzeCreateTable(stmt *parser.CreateTableStmt) {
	if _, exists := a.lookupTable(stmt.Name); exists && !stmt.IfNotExists {
		a.errorf(diag.DuplicateDefinition, stmt.Name.Span,
			"relation %q already exists", displayTableName(stmt.Name))
	}

	seen := make(map[string]token.Span, len(stmt.Columns))
	var pkSpan token.Span
	havePK := false
	cols := make([]OutputColumn, 0, len(stmt.Columns))

	for _, col := range stmt.Columns {
		key := strings.ToLower(col.Name.Name)
		if first, dup := seen[key]; dup {
			a.addDiag(diag.New(diag.DuplicateDefinition, col.Name.Span,
				"column %q specified more than once", col.Name.Name).
				WithRelated(first, "first defined here"))
		} else {
			seen[key] = col.Name.Span
		}

		t := a.resolveTypeName(col.Type)

		if col.PrimaryKey {
			if havePK {
				a.addDiag(diag.New(diag.DuplicateDefinition, col.Name.Span,
					"multiple primary keys for table %q are not allowed", stmt.Name.Name).
					WithRelated(pkSpan, "first primary key here"))
			} else {
				havePK, pkSpan = true, col.Name.Span
			}
		}

		cols = append(cols, OutputColumn{
			Name:     col.Name.Name,
			Type:     t,
			Nullable: !col.NotNull && !col.PrimaryKey,
		})
	}

	if len(stmt.PrimaryKey) > 0 {
		if havePK {
			a.addDiag(diag.New(diag.DuplicateDefinition, stmt.PrimaryKey[0].Span,
				"multiple primary keys for table %q are not allowed", stmt.Name.Name).
				WithRelated(pkSpan, "first primary key here"))
		}
		pkSeen := make(map[string]token.Span, len(stmt.PrimaryKey))
		for _, pk := range stmt.PrimaryKey {
			key := strings.ToLower(pk.Name)
			if first, dup := pkSeen[key]; dup {
				a.addDiag(diag.New(diag.DuplicateDefinition, pk.Span,
					"column %q appears twice in primary key constraint", pk.Name).
					WithRelated(first, "first listed here"))
				continue
			}
			pkSeen[key] = pk.Span

			found := false
			for i := range cols {
				if strings.EqualFold(cols[i].Name, pk.Name) {
					cols[i].Nullable = false
					found = true
					break
				}
			}
			if !found {
				a.errorf(diag.UnknownIdentifier, pk.Span,
					"column %q named in key does not exist", pk.Name)
			}
		}
	}

	a.res.Columns = cols
}

// ---------- CREATE VIEW ----------

func (a *analysis) analyzeCreateView(stmt *parser.CreateViewStmt) {
	if _, exists := a.lookupTable(stmt.Name); exists && !stmt.IfNotExists {
		a.errorf(diag.DuplicateDefinition, stmt.Name.Span,
			"relation %q already exists", displayTableName(stmt.Name))
	}

	cols := a.analyzeSelectStmt(stmt.Query)
	if len(stmt.Columns) > 0 && len(stmt.Columns) != len(cols) {
		a.errorf(diag.ArityError, stmt.Name.Span,
			"view %q has %d columns available but %d columns specified",
			stmt.Name.Name, len(cols), len(stmt.Columns))
	}
	a.res.Columns = renameColumns(cols, stmt.Columns)
}

// ---------- CREATE INDEX ----------

func (a *analysis) analyzeCreateIndex(stmt *parser.CreateIndexStmt) {
	rel := a.relationForTable(stmt.Table)

	seen := make(map[string]token.Span, len(stmt.Columns))
	for _, col := range stmt.Columns {
		key := strings.ToLower(col.Name)
		if first, dup := seen[key]; dup {
			a.addDiag(diag.New(diag.DuplicateDefinition, col.Span,
				"column %q specified more than once", col.Name).
				WithRelated(first, "first listed here"))
			continue
		}
		seen[key] = col.Span

		if rel.opaque {
			continue
		}
		if _, ok := rel.column(col.Name); !ok {
			a.errorf(diag.UnknownIdentifier, col.Span, "%s",
				withSuggestion(fmt.Sprintf("column %q does not exist", col.Name),
					col.Name, relColumnNames(rel)))
		}
	}
}

// ---------- CREATE FUNCTION ----------

func (a *analysis) analyzeCreateFunction(stmt *parser.CreateFunctionStmt) {
	params := make([]types.Type, len(stmt.Params))
	for i, p := range stmt.Params {
		params[i] = a.resolveTypeName(p)
	}
	if stmt.Returns != nil {
		a.resolveTypeName(stmt.Returns)
	}

	fn, ok := a.catalog.Function(stmt.Name.Name)
	if !ok {
		return
	}
	for _, sig := range fn.Overloads {
		if sameParams(sig.Params, params) {
			a.errorf(diag.DuplicateDefinition, stmt.Name.Span,
				"function %s(%s) already exists", fn.Name, commaTypes(params))
			return
		}
	}
}

func sameParams(a, b []types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// ---------- ALTER TABLE ----------

func (a *analysis) analyzeAlterTable(stmt *parser.AlterTableStmt) {
	rel := a.relationForTable(stmt.Table)

	switch act := stmt.Action.(type) {
	case *parser.AddColumn:
		a.resolveTypeName(act.Column.Type)
		if rel.opaque {
			return
		}
		if _, exists := rel.column(act.Column.Name.Name); exists {
			a.errorf(diag.DuplicateDefinition, act.Column.Name.Span,
				"column %q of relation %q already exists", act.Column.Name.Name, stmt.Table.Name)
		}

	case *parser.DropColumn:
		if rel.opaque || act.IfExists {
			return
		}
		if _, ok := rel.column(act.Name.Name); !ok {
			a.errorf(diag.UnknownIdentifier, act.Name.Span, "%s",
				withSuggestion(fmt.Sprintf("column %q of relation %q does not exist", act.Name.Name, stmt.Table.Name),
					act.Name.Name, relColumnNames(rel)))
		}

	case *parser.RenameColumn:
		if rel.opaque {
			return
		}
		if _, ok := rel.column(act.From.Name); !ok {
			a.errorf(diag.UnknownIdentifier, act.From.Span, "%s",
				withSuggestion(fmt.Sprintf("column %q of relation %q does not exist", act.From.Name, stmt.Table.Name),
					act.From.Name, relColumnNames(rel)))
		}
		if _, exists := rel.column(act.To.Name); exists {
			a.errorf(diag.DuplicateDefinition, act.To.Span,
				"column %q of relation %q already exists", act.To.Name, stmt.Table.Name)
		}

	case *parser.RenameTable:
		if _, exists := a.catalog.Table(act.To.Name); exists {
			a.errorf(diag.DuplicateDefinition, act.To.Span,
				"relation %q already exists", act.To.Name)
		}
	}
}

// ---------- ALTER VIEW/INDEX/FUNCTION RENAME ----------

// analyzeAlterRename checks renames of non-table objects. Views share
// the table namespace; indexes have no catalog registry, so only
// their syntax is validated.
func (a *analysis) analyzeAlterRename(stmt *parser.AlterRenameStmt) {
	switch stmt.Kind {
	case parser.ObjectView:
		if _, ok := a.lookupTable(stmt.Name); !ok {
			a.errorf(diag.UnknownIdentifier, stmt.Name.Span, "%s",
				withSuggestion(fmt.Sprintf("relation %q does not exist", displayTableName(stmt.Name)),
					stmt.Name.Name, a.knownRelationNames()))
			return
		}
		if _, exists := a.catalog.Table(stmt.To.Name); exists {
			a.errorf(diag.DuplicateDefinition, stmt.To.Span,
				"relation %q already exists", stmt.To.Name)
		}

	case parser.ObjectFunction:
		if _, ok := a.catalog.Function(stmt.Name.Name); !ok {
			a.errorf(diag.UnknownIdentifier, stmt.Name.Span, "%s",
				withSuggestion(fmt.Sprintf("function %q does not exist", stmt.Name.Name),
					stmt.Name.Name, a.functionNames()))
			return
		}
		if _, exists := a.catalog.Function(stmt.To.Name); exists {
			a.errorf(diag.DuplicateDefinition, stmt.To.Span,
				"function %q already exists", stmt.To.Name)
		}
	}
}

// ---------- DROP ----------

func (a *analysis) analyzeDrop(stmt *parser.DropStmt) {
	if stmt.IfExists {
		return
	}
	switch stmt.Kind {
	case parser.ObjectTable, parser.ObjectView:
		if _, ok := a.lookupTable(stmt.Name); !ok {
			a.errorf(diag.UnknownIdentifier, stmt.Name.Span, "%s",
				withSuggestion(fmt.Sprintf("%s %q does not exist", strings.ToLower(string(stmt.Kind)), displayTableName(stmt.Name)),
					stmt.Name.Name, a.knownRelationNames()))
		}

	case parser.ObjectFunction:
		if _, ok := a.catalog.Function(stmt.Name.Name); !ok {
			a.errorf(diag.UnknownIdentifier, stmt.Name.Span, "%s",
				withSuggestion(fmt.Sprintf("function %q does not exist", stmt.Name.Name),
					stmt.Name.Name, a.functionNames()))
		}
	}
}
