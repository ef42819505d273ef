package ddl

import (
	"fmt"

	"objectstore/internal/coltype"
	"objectstore/internal/sanitize"
)

// Diff computes the minimal ALTER TABLE statement sequence that transforms a
// table carrying the oldColumns set into one carrying newColumns, matching
// columns by name. Statements are returned in application order: additions,
// then drops, then per-column alterations (type, nullability, default) in
// newColumns order. unique-flag changes are not diffed.
func Diff(table string, oldColumns, newColumns []Column) ([]string, error) {
	oldByName := make(map[string]Column, len(oldColumns))
	for _, c := range oldColumns {
		oldByName[c.Name] = c
	}
	newByName := make(map[string]Column, len(newColumns))
	for _, c := range newColumns {
		newByName[c.Name] = c
	}

	var statements []string
	quotedTable := sanitize.Quote(table)

	for _, c := range newColumns {
		if _, ok := oldByName[c.Name]; ok {
			continue
		}
		formatted, err := formatColumn(c)
		if err != nil {
			return nil, err
		}
		statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quotedTable, formatted))
	}

	for _, c := range oldColumns {
		if _, ok := newByName[c.Name]; ok {
			continue
		}
		statements = append(statements, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quotedTable, sanitize.Quote(c.Name)))
	}

	for _, newCol := range newColumns {
		oldCol, ok := oldByName[newCol.Name]
		if !ok {
			continue
		}
		quotedCol := sanitize.Quote(newCol.Name)

		if !sameType(oldCol.Type, newCol.Type) {
			sqlType, err := coltype.SQLType(newCol.Type, newCol.Name, sanitize.Quote)
			if err != nil {
				return nil, err
			}
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", quotedTable, quotedCol, sqlType))
		}

		if oldCol.Nullable != newCol.Nullable {
			if newCol.Nullable {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", quotedTable, quotedCol))
			} else {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", quotedTable, quotedCol))
			}
		}

		if oldCol.Default != newCol.Default {
			if newCol.Default == "" {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", quotedTable, quotedCol))
			} else {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", quotedTable, quotedCol, newCol.Default))
			}
		}
	}

	for i, stmt := range statements {
		validated, err := validate(stmt)
		if err != nil {
			return nil, err
		}
		statements[i] = validated
	}

	return statements, nil
}

func sameType(a, b coltype.ColumnType) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case coltype.Decimal:
		return a.Precision == b.Precision && a.Scale == b.Scale
	case coltype.Enum:
		if len(a.Values) != len(b.Values) {
			return false
		}
		for i := range a.Values {
			if a.Values[i] != b.Values[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}
