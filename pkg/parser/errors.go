package parser

// Common error messages.
const (
	ErrUnexpectedToken     = "unexpected token %s, expected %s"
	ErrExpectedStatement   = "unexpected token %s at start of statement"
	ErrExpectedExpr        = "unexpected token %s in expression"
	ErrExpectedTypeName    = "unexpected token %s, expected a type name"
	ErrInvalidTypeParam    = "invalid type parameter %q"
	ErrExpectedIsOperand   = "expected NULL, TRUE, or FALSE after IS"
	ErrExpectedNotOperand  = "expected IN, BETWEEN, or LIKE after NOT"
	ErrExpectedAlias       = "expected alias after AS"
	ErrNaturalJoinOn       = "NATURAL JOIN cannot have ON clause"
	ErrNaturalJoinUsing    = "NATURAL JOIN cannot have USING clause"
	ErrExpectedMergeAction = "expected UPDATE, DELETE, or INSERT after THEN, got %s"
	ErrMergeMatchedInsert  = "INSERT is not allowed in a WHEN MATCHED branch"
	ErrMergeNotMatched     = "%s is not allowed in a WHEN NOT MATCHED branch"
	ErrExpectedCreateKind  = "unexpected token %s after CREATE, expected TABLE, VIEW, INDEX, or FUNCTION"
	ErrExpectedAlterKind   = "unexpected token %s after ALTER, expected TABLE, VIEW, INDEX, or FUNCTION"
	ErrExpectedAlterAction = "unexpected token %s, expected ADD, DROP, or RENAME"
	ErrExpectedDropKind    = "unexpected token %s after DROP, expected TABLE, VIEW, INDEX, or FUNCTION"
)
