package analyzer_test

import (
	"testing"

	"github.com/keeldb/keel/pkg/diag"
	"github.com/keeldb/keel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- CREATE TABLE Tests ----------

func TestCreateTable(t *testing.T) {
	res := analyzeOK(t, "CREATE TABLE pets (id int PRIMARY KEY, name text NOT NULL, owner_id int)")
	require.Len(t, res.Columns, 3)
	assert.Equal(t, "id", res.Columns[0].Name)
	assert.Equal(t, types.Int32, res.Columns[0].Type.Kind)
	assert.False(t, res.Columns[0].Nullable, "primary key column is not nullable")
	assert.False(t, res.Columns[1].Nullable)
	assert.True(t, res.Columns[2].Nullable)
}

func TestCreateTableTypeParameters(t *testing.T) {
	res := analyzeOK(t, "CREATE TABLE x (a bigint, b varchar(10), c numeric(8, 2))")
	require.Len(t, res.Columns, 3)
	assert.Equal(t, types.Int64, res.Columns[0].Type.Kind)
	assert.Equal(t, types.Varchar, res.Columns[1].Type.Kind)
	assert.Equal(t, 10, res.Columns[1].Type.Length)
	assert.Equal(t, types.Numeric, res.Columns[2].Type.Kind)
	assert.Equal(t, 8, res.Columns[2].Type.Precision)
	assert.Equal(t, 2, res.Columns[2].Type.Scale)
}

func TestCreateTableCompositeKey(t *testing.T) {
	res := analyzeOK(t, "CREATE TABLE pairs (a int, b int, PRIMARY KEY (a, b))")
	assert.False(t, res.Columns[0].Nullable)
	assert.False(t, res.Columns[1].Nullable)
}

func TestCreateTableDuplicateColumn(t *testing.T) {
	diags := analyzeFails(t, "CREATE TABLE x (a int, a text)", diag.DuplicateDefinition)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, `column "a" specified more than once`)
	assert.Len(t, diags[0].Related, 1)
}

func TestCreateTableMultiplePrimaryKeys(t *testing.T) {
	diags := analyzeFails(t, "CREATE TABLE x (a int PRIMARY KEY, b int PRIMARY KEY)", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `multiple primary keys for table "x" are not allowed`)

	diags = analyzeFails(t, "CREATE TABLE x (a int PRIMARY KEY, b int, PRIMARY KEY (b))", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `multiple primary keys for table "x" are not allowed`)
}

func TestCreateTableKeyColumns(t *testing.T) {
	diags := analyzeFails(t, "CREATE TABLE x (a int, PRIMARY KEY (a, a))", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `column "a" appears twice in primary key constraint`)

	diags = analyzeFails(t, "CREATE TABLE x (a int, PRIMARY KEY (zz))", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `column "zz" named in key does not exist`)
}

func TestCreateTableExisting(t *testing.T) {
	diags := analyzeFails(t, "CREATE TABLE users (id int)", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `relation "users" already exists`)

	analyzeOK(t, "CREATE TABLE IF NOT EXISTS users (id int)")
}

func TestCreateTableUnknownType(t *testing.T) {
	diags := analyzeFails(t, "CREATE TABLE x (a wibble)", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `type "wibble" does not exist`)
}

// ---------- CREATE VIEW Tests ----------

func TestCreateView(t *testing.T) {
	res := analyzeOK(t, "CREATE VIEW adults AS SELECT id, name FROM users WHERE age >= 18")
	require.Len(t, res.Columns, 2)
	assert.Equal(t, "id", res.Columns[0].Name)
	assert.Equal(t, "name", res.Columns[1].Name)
}

func TestCreateViewColumnAliases(t *testing.T) {
	res := analyzeOK(t, "CREATE VIEW pairs(a, b) AS SELECT k, v FROM t")
	require.Len(t, res.Columns, 2)
	assert.Equal(t, "a", res.Columns[0].Name)
	assert.Equal(t, "b", res.Columns[1].Name)
}

func TestCreateViewAliasArity(t *testing.T) {
	diags := analyzeFails(t, "CREATE VIEW v(a) AS SELECT k, v FROM t", diag.ArityError)
	assert.Contains(t, firstMessage(diags), `view "v" has 2 columns available but 1 columns specified`)
}

func TestCreateViewExisting(t *testing.T) {
	diags := analyzeFails(t, "CREATE VIEW users AS SELECT 1", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `relation "users" already exists`)

	analyzeOK(t, "CREATE VIEW IF NOT EXISTS users AS SELECT 1")
}

// ---------- CREATE INDEX Tests ----------

func TestCreateIndex(t *testing.T) {
	analyzeOK(t, "CREATE INDEX idx_users_email ON users (email)")
	analyzeOK(t, "CREATE UNIQUE INDEX idx_orders ON orders (user_id, placed_at)")
}

func TestCreateIndexUnknownTable(t *testing.T) {
	diags := analyzeFails(t, "CREATE INDEX i ON nosuch (a)", diag.UnknownIdentifier)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, `relation "nosuch" does not exist`)
}

func TestCreateIndexUnknownColumn(t *testing.T) {
	diags := analyzeFails(t, "CREATE INDEX i ON users (emails)", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `column "emails" does not exist`)
	assert.Contains(t, firstMessage(diags), `did you mean "email"?`)
}

func TestCreateIndexDuplicateColumn(t *testing.T) {
	diags := analyzeFails(t, "CREATE INDEX i ON users (id, id)", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `column "id" specified more than once`)
}

// ---------- CREATE FUNCTION Tests ----------

func TestCreateFunction(t *testing.T) {
	analyzeOK(t, "CREATE FUNCTION shout(text) RETURNS text")
	analyzeOK(t, "CREATE AGGREGATE FUNCTION total(int) RETURNS bigint")

	// A new overload of an existing function is fine.
	analyzeOK(t, "CREATE FUNCTION f(date) RETURNS int")
}

func TestCreateFunctionExistingOverload(t *testing.T) {
	diags := analyzeFails(t, "CREATE FUNCTION f(int) RETURNS int", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), "function f(INT) already exists")
}

// ---------- ALTER TABLE Tests ----------

func TestAlterTableAddColumn(t *testing.T) {
	analyzeOK(t, "ALTER TABLE t ADD COLUMN w text")

	diags := analyzeFails(t, "ALTER TABLE t ADD COLUMN k int", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `column "k" of relation "t" already exists`)
}

func TestAlterTableDropColumn(t *testing.T) {
	analyzeOK(t, "ALTER TABLE t DROP COLUMN v")
	analyzeOK(t, "ALTER TABLE t DROP COLUMN IF EXISTS zz")

	diags := analyzeFails(t, "ALTER TABLE t DROP COLUMN zz", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `column "zz" of relation "t" does not exist`)
}

func TestAlterTableRenameColumn(t *testing.T) {
	analyzeOK(t, "ALTER TABLE t RENAME COLUMN v TO w")

	diags := analyzeFails(t, "ALTER TABLE t RENAME COLUMN zz TO w", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `column "zz" of relation "t" does not exist`)

	diags = analyzeFails(t, "ALTER TABLE t RENAME COLUMN k TO v", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `column "v" of relation "t" already exists`)
}

func TestAlterTableRename(t *testing.T) {
	analyzeOK(t, "ALTER TABLE t RENAME TO t2")

	diags := analyzeFails(t, "ALTER TABLE t RENAME TO users", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `relation "users" already exists`)
}

func TestAlterTableUnknown(t *testing.T) {
	diags := analyzeFails(t, "ALTER TABLE nosuch ADD COLUMN a int", diag.UnknownIdentifier)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, `relation "nosuch" does not exist`)
}

// ---------- ALTER RENAME Tests ----------

func TestAlterViewRename(t *testing.T) {
	analyzeOK(t, "ALTER VIEW users RENAME TO people")

	diags := analyzeFails(t, "ALTER VIEW nosuch RENAME TO x", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `relation "nosuch" does not exist`)

	diags = analyzeFails(t, "ALTER VIEW users RENAME TO orders", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `relation "orders" already exists`)
}

func TestAlterFunctionRename(t *testing.T) {
	analyzeOK(t, "ALTER FUNCTION f RENAME TO g")

	diags := analyzeFails(t, "ALTER FUNCTION nosuch RENAME TO g", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `function "nosuch" does not exist`)

	diags = analyzeFails(t, "ALTER FUNCTION f RENAME TO count", diag.DuplicateDefinition)
	assert.Contains(t, firstMessage(diags), `function "count" already exists`)
}

func TestAlterIndexRename(t *testing.T) {
	// Indexes are not tracked, so any rename passes.
	analyzeOK(t, "ALTER INDEX whatever RENAME TO something")
}

// ---------- DROP Tests ----------

func TestDropStatements(t *testing.T) {
	analyzeOK(t, "DROP TABLE t")
	analyzeOK(t, "DROP TABLE IF EXISTS nosuch")
	analyzeOK(t, "DROP VIEW users")
	analyzeOK(t, "DROP FUNCTION f")
	analyzeOK(t, "DROP FUNCTION IF EXISTS nosuch")
	analyzeOK(t, "DROP INDEX anything")
}

func TestDropUnknown(t *testing.T) {
	diags := analyzeFails(t, "DROP TABLE nosuch", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `table "nosuch" does not exist`)

	diags = analyzeFails(t, "DROP VIEW nosuch", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `view "nosuch" does not exist`)

	diags = analyzeFails(t, "DROP FUNCTION nosuch", diag.UnknownIdentifier)
	assert.Contains(t, firstMessage(diags), `function "nosuch" does not exist`)
}
