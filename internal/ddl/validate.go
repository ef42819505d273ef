package ddl

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// validate round-trips stmt through a real PostgreSQL-grammar parser before
// it is handed to the driver, catching a malformed statement before it
// reaches the wire.
func validate(stmt string) (string, error) {
	if _, err := pg_query.Parse(stmt); err != nil {
		return "", fmt.Errorf("generated statement failed to parse: %w", err)
	}
	return stmt, nil
}
