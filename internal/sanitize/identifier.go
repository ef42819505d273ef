// Package sanitize quotes and validates the table and column identifiers
// that flow in from schema definitions before they are spliced into SQL.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches a valid unquoted lowercase SQL identifier.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reservedWords is the canonical PostgreSQL reserved-word set this store
// refuses as a bare identifier. Not exhaustive of every word Postgres
// reserves in every context; a practical subset typical of the "reserved"
// category in the Postgres keyword table.
var reservedWords = map[string]struct{}{
	"ALL": {}, "ANALYSE": {}, "ANALYZE": {}, "AND": {}, "ANY": {}, "ARRAY": {},
	"AS": {}, "ASC": {}, "ASYMMETRIC": {}, "BOTH": {}, "CASE": {}, "CAST": {},
	"CHECK": {}, "COLLATE": {}, "COLUMN": {}, "CONSTRAINT": {}, "CREATE": {},
	"CURRENT_CATALOG": {}, "CURRENT_DATE": {}, "CURRENT_ROLE": {}, "CURRENT_TIME": {},
	"CURRENT_TIMESTAMP": {}, "CURRENT_USER": {}, "DEFAULT": {}, "DEFERRABLE": {},
	"DESC": {}, "DISTINCT": {}, "DO": {}, "ELSE": {}, "END": {}, "EXCEPT": {},
	"FALSE": {}, "FETCH": {}, "FOR": {}, "FOREIGN": {}, "FROM": {}, "GRANT": {},
	"GROUP": {}, "HAVING": {}, "IN": {}, "INITIALLY": {}, "INTERSECT": {}, "INTO": {},
	"LATERAL": {}, "LEADING": {}, "LIMIT": {}, "LOCALTIME": {}, "LOCALTIMESTAMP": {},
	"NOT": {}, "NULL": {}, "OFFSET": {}, "ON": {}, "ONLY": {}, "OR": {}, "ORDER": {},
	"PLACING": {}, "PRIMARY": {}, "REFERENCES": {}, "RETURNING": {}, "SELECT": {},
	"SESSION_USER": {}, "SOME": {}, "SYMMETRIC": {}, "TABLE": {}, "THEN": {}, "TO": {},
	"TRAILING": {}, "TRUE": {}, "UNION": {}, "UNIQUE": {}, "USER": {}, "USING": {},
	"VARIADIC": {}, "WHEN": {}, "WHERE": {}, "WINDOW": {}, "WITH": {},
	"CURRENT": {}, "GROUPS": {}, "ILIKE": {}, "LIKE": {}, "OVERLAPS": {}, "SIMILAR": {},
	"VARYING": {}, "AUTHORIZATION": {}, "BINARY": {}, "FREEZE": {}, "NATURAL": {},
	"OUTER": {}, "VERBOSE": {}, "ISNULL": {}, "NOTNULL": {}, "CONCURRENTLY": {},
	"NONE": {}, "CROSS": {}, "FULL": {}, "INNER": {}, "JOIN": {}, "LEFT": {}, "RIGHT": {},
}

// Quote wraps an identifier in double quotes, doubling any embedded double
// quote so the result is always safe to splice verbatim into SQL text.
func Quote(identifier string) string {
	escaped := strings.ReplaceAll(identifier, `"`, `""`)
	return `"` + escaped + `"`
}

// Validate checks that name is safe to use as a bare table or column
// identifier: lowercase snake_case, not a reserved keyword, and not one of
// the caller-supplied reserved column names (typically the auto-managed
// columns of the owning table).
func Validate(name string, reservedColumns []string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("identifier %q is invalid: must start with a lowercase letter and contain only lowercase letters, numbers, and underscores", name)
	}
	if _, ok := reservedWords[strings.ToUpper(name)]; ok {
		return fmt.Errorf("identifier %q is a PostgreSQL reserved keyword and cannot be used", name)
	}
	for _, col := range reservedColumns {
		if name == col {
			return fmt.Errorf("column name %q is reserved and cannot be used", name)
		}
	}
	return nil
}
