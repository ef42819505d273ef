// Package ddl generates the CREATE TABLE, DROP TABLE, CREATE INDEX, and
// ALTER TABLE diff statements that materialize a schema's column set as a
// physical PostgreSQL table.
package ddl

import (
	"fmt"
	"strings"

	"objectstore/internal/coltype"
	"objectstore/internal/sanitize"
)

// Column describes one user-defined column as carried by a schema.
type Column struct {
	Name    string
	Type    coltype.ColumnType
	Nullable bool
	Unique   bool
	Default  string // raw SQL expression, empty if unset
}

// Index describes one user-requested index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// TableOptions controls the auto-managed columns a table carries.
type TableOptions struct {
	AutoManaged bool // emit id/created_at/updated_at
	SoftDelete  bool // emit deleted BOOLEAN DEFAULT FALSE
}

// AutoManagedColumnNames returns the reserved column names carried when
// opts.AutoManaged/SoftDelete are set, for use with sanitize.Validate's
// reservedColumns argument.
func AutoManagedColumnNames(opts TableOptions) []string {
	names := []string{}
	if opts.AutoManaged {
		names = append(names, "id", "created_at", "updated_at")
	}
	if opts.SoftDelete {
		names = append(names, "deleted")
	}
	return names
}

func formatColumn(c Column) (string, error) {
	sqlType, err := coltype.SQLType(c.Type, c.Name, sanitize.Quote)
	if err != nil {
		return "", fmt.Errorf("column %q: %w", c.Name, err)
	}
	var b strings.Builder
	b.WriteString(sanitize.Quote(c.Name))
	b.WriteString(" ")
	b.WriteString(sqlType)
	if c.Unique {
		b.WriteString(" UNIQUE")
	}
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String(), nil
}

// CreateTable emits the CREATE TABLE statement for table with the given
// user columns and options, in the canonical column order: auto id, user
// columns, created_at/updated_at, deleted.
func CreateTable(table string, columns []Column, opts TableOptions) (string, error) {
	var parts []string

	if opts.AutoManaged {
		parts = append(parts, `"id" VARCHAR(255) PRIMARY KEY DEFAULT gen_random_uuid()`)
	}

	for _, c := range columns {
		formatted, err := formatColumn(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, formatted)
	}

	if opts.AutoManaged {
		parts = append(parts, `"created_at" TIMESTAMPTZ DEFAULT NOW()`)
		parts = append(parts, `"updated_at" TIMESTAMPTZ DEFAULT NOW()`)
	}

	if opts.SoftDelete {
		parts = append(parts, `"deleted" BOOLEAN DEFAULT FALSE`)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("cannot create table %q with no columns", table)
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", sanitize.Quote(table), strings.Join(parts, ",\n  "))
	return validate(stmt)
}

// DropTable emits DROP TABLE IF EXISTS ... CASCADE.
func DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", sanitize.Quote(table))
}

// CreateIndex emits CREATE [UNIQUE] INDEX for idx on table.
func CreateIndex(table string, idx Index) (string, error) {
	if len(idx.Columns) == 0 {
		return "", fmt.Errorf("index %q: must name at least one column", idx.Name)
	}
	quotedCols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		quotedCols[i] = sanitize.Quote(c)
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	indexName := fmt.Sprintf("%s_%s", table, idx.Name)
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)",
		unique, sanitize.Quote(indexName), sanitize.Quote(table), strings.Join(quotedCols, ", "))
	return validate(stmt)
}

// DefaultIndex emits the CREATE INDEX statement every new table receives,
// ordered by created_at DESC, partial on deleted=FALSE when soft-delete is
// enabled.
func DefaultIndex(table string, softDelete bool) string {
	indexName := fmt.Sprintf("idx_%s_default", table)
	stmt := fmt.Sprintf(`CREATE INDEX %s ON %s(created_at DESC)`, sanitize.Quote(indexName), sanitize.Quote(table))
	if softDelete {
		stmt += ` WHERE deleted = FALSE`
	}
	return stmt
}
