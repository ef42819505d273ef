// Package orderby compiles a list of requested sort fields and directions
// into a validated PostgreSQL ORDER BY clause.
package orderby

import (
	"fmt"
	"strings"

	"objectstore/internal/sanitize"
)

// systemFields are always sortable regardless of the schema's own columns.
var systemFields = map[string]struct{}{
	"id":         {},
	"createdAt":  {},
	"updatedAt":  {},
	"created_at": {},
	"updated_at": {},
}

// fieldToSQL maps the two camelCase system aliases to their physical
// snake_case column names. Every other field name passes through unchanged.
func fieldToSQL(field string) string {
	switch field {
	case "createdAt":
		return "created_at"
	case "updatedAt":
		return "updated_at"
	default:
		return field
	}
}

// Build compiles sortBy/sortOrder into an ORDER BY clause (without the
// "ORDER BY" keywords). columns lists the schema's own column names, used to
// validate non-system sort fields. When sortBy is empty, the default
// "created_at ASC" is returned. sortOrder entries correspond positionally to
// sortBy entries; a missing entry defaults to ASC.
func Build(sortBy []string, sortOrder []string, columns []string) (string, error) {
	if len(sortBy) == 0 {
		return "created_at ASC", nil
	}

	columnSet := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		columnSet[c] = struct{}{}
	}

	parts := make([]string, 0, len(sortBy))
	for i, field := range sortBy {
		sqlField := fieldToSQL(field)

		_, isSystem := systemFields[field]
		if !isSystem {
			_, isSystem = systemFields[sqlField]
		}
		_, isSchemaColumn := columnSet[field]

		if !isSystem && !isSchemaColumn {
			return "", fmt.Errorf("invalid sort field: %q. Must be a system field (id, createdAt, updatedAt) or a schema column", field)
		}

		order := "ASC"
		if i < len(sortOrder) && sortOrder[i] != "" {
			order = strings.ToUpper(sortOrder[i])
		}
		if order != "ASC" && order != "DESC" {
			return "", fmt.Errorf("invalid sort order: %q. Must be \"asc\" or \"desc\"", order)
		}

		parts = append(parts, fmt.Sprintf("%s %s", sanitize.Quote(sqlField), order))
	}

	return strings.Join(parts, ", "), nil
}
