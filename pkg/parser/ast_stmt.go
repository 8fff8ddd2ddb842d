package parser

import (
	"github.com/keeldb/keel/pkg/token"
)

// ---------- SELECT ----------

// SelectStmt represents a complete SELECT statement with optional WITH clause.
type SelectStmt struct {
	NodeInfo
	With *WithClause
	Body *SelectBody
}

func (*SelectStmt) stmtNode() {}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	NodeInfo
	Recursive bool
	CTEs      []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	NodeInfo
	Name    Ident
	Columns []Ident // optional column aliases
	Select  *SelectStmt
}

// SelectBody represents the body of a SELECT with possible set operations.
type SelectBody struct {
	NodeInfo
	Left  *SelectCore
	Op    SetOpType   // UNION, INTERSECT, EXCEPT, or empty
	All   bool        // UNION ALL
	Right *SelectBody // For chained set operations
}

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpType constants for set operations in queries.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore represents the core SELECT clause.
type SelectCore struct {
	NodeInfo
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	Windows  []WindowDef // Named window definitions (WINDOW clause)
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
}

// WindowDef represents a named window definition in the WINDOW clause.
// Example: WINDOW w AS (PARTITION BY x ORDER BY y)
type WindowDef struct {
	Name Ident
	Spec *WindowSpec
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr   // Expression
	Alias     string // AS alias
	Span      token.Span
}

// FromClause represents the FROM clause.
type FromClause struct {
	NodeInfo
	Source TableRef
	Joins  []*Join
}

// Join represents a JOIN clause.
type Join struct {
	NodeInfo
	Type      JoinType
	Natural   bool // NATURAL JOIN modifier
	Right     TableRef
	Condition Expr    // ON clause (mutually exclusive with Using)
	Using     []Ident // USING (col1, col2) columns
}

// JoinType represents the type of join.
// The value is the SQL keyword (e.g., "LEFT", "INNER").
type JoinType string

// JoinType constants for the ANSI join kinds. JoinComma is the
// implicit cross join written with comma syntax.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
	JoinComma JoinType = ","
)

// OrderByItem represents an item in ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil means default, true = NULLS FIRST, false = NULLS LAST
}

// ---------- Table Reference Types ----------

// TableName represents a table name reference.
type TableName struct {
	NodeInfo
	Catalog string
	Schema  string
	Name    string
	Alias   string
}

func (*TableName) tableRefNode() {}

// DerivedTable represents a subquery in FROM clause.
type DerivedTable struct {
	NodeInfo
	Select *SelectStmt
	Alias  string
}

func (*DerivedTable) tableRefNode() {}

// LateralTable represents a LATERAL subquery.
type LateralTable struct {
	NodeInfo
	Select *SelectStmt
	Alias  string
}

func (*LateralTable) tableRefNode() {}

// ---------- DML ----------

// InsertStmt represents INSERT INTO with either VALUES rows or a
// SELECT source.
type InsertStmt struct {
	NodeInfo
	Table   *TableName
	Columns []Ident // optional explicit column list
	Values  [][]Expr
	Query   *SelectStmt
}

func (*InsertStmt) stmtNode() {}

// Assignment is one column = value pair in SET clauses.
type Assignment struct {
	Column Ident
	Value  Expr
}

// UpdateStmt represents UPDATE ... SET ... [WHERE ...].
type UpdateStmt struct {
	NodeInfo
	Table *TableName
	Set   []Assignment
	Where Expr
}

func (*UpdateStmt) stmtNode() {}

// DeleteStmt represents DELETE FROM ... [WHERE ...].
type DeleteStmt struct {
	NodeInfo
	Table *TableName
	Where Expr
}

func (*DeleteStmt) stmtNode() {}

// MergeStmt represents MERGE INTO target USING source ON condition
// with WHEN [NOT] MATCHED arms.
type MergeStmt struct {
	NodeInfo
	Target *TableName
	Source TableRef
	On     Expr
	Whens  []*MergeWhen
}

func (*MergeStmt) stmtNode() {}

// MergeWhen is one WHEN [NOT] MATCHED [AND condition] THEN action arm.
type MergeWhen struct {
	NodeInfo
	Matched   bool
	Condition Expr // optional AND condition
	Action    MergeAction
}

// MergeAction is the action of a WHEN arm: update, delete, or insert.
type MergeAction interface {
	mergeActionNode()
}

// MergeUpdate represents THEN UPDATE SET assignments.
type MergeUpdate struct {
	Set []Assignment
}

func (*MergeUpdate) mergeActionNode() {}

// MergeDelete represents THEN DELETE.
type MergeDelete struct{}

func (*MergeDelete) mergeActionNode() {}

// MergeInsert represents THEN INSERT [(columns)] VALUES (exprs).
type MergeInsert struct {
	Columns []Ident
	Values  []Expr
}

func (*MergeInsert) mergeActionNode() {}

// ---------- DDL ----------

// ObjectKind names the kind of schema object a DDL statement targets.
type ObjectKind string

// ObjectKind constants for DDL statements.
const (
	ObjectTable    ObjectKind = "TABLE"
	ObjectView     ObjectKind = "VIEW"
	ObjectIndex    ObjectKind = "INDEX"
	ObjectFunction ObjectKind = "FUNCTION"
)

// ColumnDef is one column definition in CREATE TABLE or ALTER TABLE
// ADD COLUMN.
type ColumnDef struct {
	Name       Ident
	Type       *TypeName
	NotNull    bool
	PrimaryKey bool // column-level PRIMARY KEY
}

// CreateTableStmt represents CREATE TABLE with column definitions and
// an optional table-level primary key.
type CreateTableStmt struct {
	NodeInfo
	IfNotExists bool
	Name        *TableName
	Columns     []*ColumnDef
	PrimaryKey  []Ident // table-level PRIMARY KEY (cols)
}

func (*CreateTableStmt) stmtNode() {}

// CreateViewStmt represents CREATE VIEW [(columns)] AS select.
type CreateViewStmt struct {
	NodeInfo
	IfNotExists bool
	Name        *TableName
	Columns     []Ident
	Query       *SelectStmt
}

func (*CreateViewStmt) stmtNode() {}

// CreateIndexStmt represents CREATE [UNIQUE] INDEX ON table (columns).
type CreateIndexStmt struct {
	NodeInfo
	Unique      bool
	IfNotExists bool
	Name        Ident
	Table       *TableName
	Columns     []Ident
}

func (*CreateIndexStmt) stmtNode() {}

// FuncClass is the declared class of a created function.
type FuncClass string

// FuncClass constants for CREATE FUNCTION.
const (
	FuncScalar    FuncClass = "SCALAR"
	FuncAggregate FuncClass = "AGGREGATE"
	FuncWindow    FuncClass = "WINDOW"
)

// CreateFunctionStmt registers a function signature:
// CREATE [AGGREGATE|WINDOW] FUNCTION name(types) RETURNS type.
type CreateFunctionStmt struct {
	NodeInfo
	Class   FuncClass
	Name    Ident
	Params  []*TypeName
	Returns *TypeName
}

func (*CreateFunctionStmt) stmtNode() {}

// AlterTableStmt represents ALTER TABLE with one action.
type AlterTableStmt struct {
	NodeInfo
	Table  *TableName
	Action AlterAction
}

func (*AlterTableStmt) stmtNode() {}

// AlterAction is the closed set of ALTER TABLE actions.
type AlterAction interface {
	alterActionNode()
}

// AddColumn represents ADD COLUMN definition.
type AddColumn struct {
	Column *ColumnDef
}

func (*AddColumn) alterActionNode() {}

// DropColumn represents DROP COLUMN name.
type DropColumn struct {
	IfExists bool
	Name     Ident
}

func (*DropColumn) alterActionNode() {}

// RenameColumn represents RENAME COLUMN old TO new.
type RenameColumn struct {
	From Ident
	To   Ident
}

func (*RenameColumn) alterActionNode() {}

// RenameTable represents RENAME TO new.
type RenameTable struct {
	To Ident
}

func (*RenameTable) alterActionNode() {}

// AlterRenameStmt represents ALTER VIEW|INDEX|FUNCTION name RENAME TO
// new. Table renames go through AlterTableStmt.
type AlterRenameStmt struct {
	NodeInfo
	Kind ObjectKind
	Name *TableName
	To   Ident
}

func (*AlterRenameStmt) stmtNode() {}

// DropStmt represents DROP TABLE|VIEW|INDEX|FUNCTION [IF EXISTS] name.
type DropStmt struct {
	NodeInfo
	Kind     ObjectKind
	IfExists bool
	Name     *TableName
}

func (*DropStmt) stmtNode() {}
