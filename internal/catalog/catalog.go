// Package catalog implements CRUD over the metadata table that records
// every schema the store knows about, and materializes each one as a
// physical PostgreSQL table via the ddl package.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"objectstore/internal/apperr"
	"objectstore/internal/ddl"
	"objectstore/internal/instrument"
	"objectstore/internal/sanitize"
	"objectstore/internal/store"
)

// Catalog owns the metadata table and an in-process cache of its rows,
// keyed by schema name. CreateSchema adds the new schema to the cache;
// UpdateSchema and DeleteSchema drop the affected entry; reads that miss
// fall through to the database and repopulate it.
type Catalog struct {
	store      *store.Store
	table      string
	softDelete bool
	autoID     bool

	mu   sync.RWMutex
	byName map[string]*Schema
}

// New constructs a Catalog bound to table (typically the configured
// metadata_table, default "__schema").
func New(st *store.Store, table string, softDelete bool, autoID bool) *Catalog {
	return &Catalog{
		store:      st,
		table:      table,
		softDelete: softDelete,
		autoID:     autoID,
		byName:     make(map[string]*Schema),
	}
}

// EnsureTable creates the metadata table if it does not already exist.
func (c *Catalog) EnsureTable(ctx context.Context) error {
	deletedCol := ""
	if c.softDelete {
		deletedCol = `"deleted" BOOLEAN NOT NULL DEFAULT FALSE,`
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  "id" VARCHAR(255) PRIMARY KEY,
  "name" TEXT NOT NULL,
  "description" TEXT,
  "table_name" TEXT NOT NULL,
  "columns" JSONB NOT NULL,
  "indexes" JSONB,
  %s
  "created_at" TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  "updated_at" TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, sanitize.Quote(c.table), deletedCol)

	if _, err := c.store.Pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure metadata table: %w", err)
	}

	uniqueName := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ("name")`,
		sanitize.Quote(c.table+"_name_idx"), sanitize.Quote(c.table))
	uniqueTable := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ("table_name")`,
		sanitize.Quote(c.table+"_table_name_idx"), sanitize.Quote(c.table))
	if _, err := c.store.Pool.Exec(ctx, uniqueName); err != nil {
		return fmt.Errorf("create metadata name index: %w", err)
	}
	if _, err := c.store.Pool.Exec(ctx, uniqueTable); err != nil {
		return fmt.Errorf("create metadata table_name index: %w", err)
	}
	return nil
}

func (c *Catalog) reservedColumnNames() []string {
	opts := ddl.TableOptions{AutoManaged: c.autoID, SoftDelete: c.softDelete}
	return ddl.AutoManagedColumnNames(opts)
}

func (c *Catalog) validateColumns(columns []ColumnDefinition) error {
	if len(columns) == 0 {
		return fmt.Errorf("schema must declare at least one column")
	}
	reserved := c.reservedColumnNames()
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if err := sanitize.Validate(col.Name, reserved); err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	return nil
}

// CreateSchema inserts the metadata row then materializes the physical
// table, default index, and every user index, in that order.
func (c *Catalog) CreateSchema(ctx context.Context, req CreateRequest) (*Schema, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "catalog.create_schema")
	span.SetEntity("schema", req.Name)
	defer span.End()

	schema, err := c.createSchema(ctx, req)
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	span.SetStatus("ok")
	instrument.GetInstrumenter(ctx).EmitBusinessEvent(ctx, "schema.created", "schema", schema.ID, nil)
	return schema, nil
}

func (c *Catalog) createSchema(ctx context.Context, req CreateRequest) (*Schema, error) {
	if err := sanitize.Validate(req.Name, nil); err != nil {
		return nil, apperr.New(apperr.Validation, fmt.Sprintf("invalid schema name %q", req.Name), err)
	}
	if err := sanitize.Validate(req.TableName, nil); err != nil {
		return nil, apperr.New(apperr.Validation, fmt.Sprintf("invalid table name %q", req.TableName), err)
	}
	if err := c.validateColumns(req.Columns); err != nil {
		return nil, apperr.New(apperr.Validation, "invalid column definitions", err)
	}

	if existing, _ := c.GetSchema(ctx, req.Name); existing != nil {
		return nil, apperr.New(apperr.Conflict, fmt.Sprintf("schema %q already exists", req.Name), nil)
	}
	if existing, _ := c.SchemaByTable(ctx, req.TableName); existing != nil {
		return nil, apperr.New(apperr.Conflict, fmt.Sprintf("table %q is already in use", req.TableName), nil)
	}

	id := uuid.New().String()
	columnsJSON, err := json.Marshal(req.Columns)
	if err != nil {
		return nil, apperr.New(apperr.Serialization, "encode columns", err)
	}
	indexesJSON, err := json.Marshal(req.Indexes)
	if err != nil {
		return nil, apperr.New(apperr.Serialization, "encode indexes", err)
	}

	insert := fmt.Sprintf(
		`INSERT INTO %s ("id","name","description","table_name","columns","indexes") VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at, updated_at`,
		sanitize.Quote(c.table))
	row := c.store.Pool.QueryRow(ctx, insert, id, req.Name, req.Description, req.TableName, columnsJSON, indexesJSON)
	var createdAt, updatedAt time.Time
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		mapped := store.MapError(err)
		if mapped != err {
			return nil, apperr.New(apperr.Conflict, fmt.Sprintf("schema %q already exists", req.Name), mapped)
		}
		return nil, apperr.New(apperr.Database, "insert schema metadata", err)
	}

	tableOpts := ddl.TableOptions{AutoManaged: c.autoID, SoftDelete: c.softDelete}
	createStmt, err := ddl.CreateTable(req.TableName, toDDLColumns(req.Columns), tableOpts)
	if err != nil {
		return nil, apperr.New(apperr.Database, "generate create table statement", err)
	}
	if _, err := c.store.Pool.Exec(ctx, createStmt); err != nil {
		return nil, apperr.New(apperr.Database, fmt.Sprintf("create table %q", req.TableName), err)
	}

	if _, err := c.store.Pool.Exec(ctx, ddl.DefaultIndex(req.TableName, c.softDelete)); err != nil {
		return nil, apperr.New(apperr.Database, "create default index", err)
	}

	for _, idx := range toDDLIndexes(req.Indexes) {
		stmt, err := ddl.CreateIndex(req.TableName, idx)
		if err != nil {
			return nil, apperr.New(apperr.Validation, fmt.Sprintf("index %q", idx.Name), err)
		}
		if _, err := c.store.Pool.Exec(ctx, stmt); err != nil {
			return nil, apperr.New(apperr.Database, fmt.Sprintf("create index %q", idx.Name), err)
		}
	}

	schema := &Schema{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		TableName:   req.TableName,
		Columns:     req.Columns,
		Indexes:     req.Indexes,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	c.cache(schema)
	return schema, nil
}

func (c *Catalog) cache(s *Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[s.Name] = s
}

func (c *Catalog) invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byName, name)
}

func (c *Catalog) cached(name string) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byName[name]
	return s, ok
}

func (c *Catalog) whereNotDeleted() string {
	if c.softDelete {
		return `"deleted" = FALSE AND `
	}
	return ""
}

func (c *Catalog) scanSchema(row map[string]any) (*Schema, error) {
	s := &Schema{}
	s.ID, _ = row["id"].(string)
	s.Name, _ = row["name"].(string)
	if desc, ok := row["description"].(string); ok {
		s.Description = desc
	}
	s.TableName, _ = row["table_name"].(string)
	if createdAt, ok := row["created_at"].(time.Time); ok {
		s.CreatedAt = createdAt
	}
	if updatedAt, ok := row["updated_at"].(time.Time); ok {
		s.UpdatedAt = updatedAt
	}

	columnsRaw, err := json.Marshal(row["columns"])
	if err != nil {
		return nil, fmt.Errorf("re-encode columns: %w", err)
	}
	if err := json.Unmarshal(columnsRaw, &s.Columns); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}

	if row["indexes"] != nil {
		indexesRaw, err := json.Marshal(row["indexes"])
		if err != nil {
			return nil, fmt.Errorf("re-encode indexes: %w", err)
		}
		if err := json.Unmarshal(indexesRaw, &s.Indexes); err != nil {
			return nil, fmt.Errorf("decode indexes: %w", err)
		}
	}

	return s, nil
}

// GetSchema returns the schema named name, or *apperr.Error{SchemaNotFound}.
func (c *Catalog) GetSchema(ctx context.Context, name string) (*Schema, error) {
	if s, ok := c.cached(name); ok {
		return s, nil
	}
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s"name" = $1`, sanitize.Quote(c.table), c.whereNotDeleted())
	row, err := store.QueryRow(ctx, c.store.Pool, query, name)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.New(apperr.SchemaNotFound, fmt.Sprintf("schema %q not found", name), nil)
		}
		return nil, apperr.New(apperr.Database, "query schema", err)
	}
	schema, err := c.scanSchema(row)
	if err != nil {
		return nil, apperr.New(apperr.Serialization, "decode schema row", err)
	}
	c.cache(schema)
	return schema, nil
}

// GetSchemaByID returns the schema with the given id.
func (c *Catalog) GetSchemaByID(ctx context.Context, id string) (*Schema, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s"id" = $1`, sanitize.Quote(c.table), c.whereNotDeleted())
	row, err := store.QueryRow(ctx, c.store.Pool, query, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.New(apperr.SchemaNotFound, fmt.Sprintf("schema with id %q not found", id), nil)
		}
		return nil, apperr.New(apperr.Database, "query schema", err)
	}
	schema, err := c.scanSchema(row)
	if err != nil {
		return nil, apperr.New(apperr.Serialization, "decode schema row", err)
	}
	c.cache(schema)
	return schema, nil
}

// SchemaByTable returns the schema whose table_name equals tableName.
func (c *Catalog) SchemaByTable(ctx context.Context, tableName string) (*Schema, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s"table_name" = $1`, sanitize.Quote(c.table), c.whereNotDeleted())
	row, err := store.QueryRow(ctx, c.store.Pool, query, tableName)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.New(apperr.SchemaNotFound, fmt.Sprintf("no schema backed by table %q", tableName), nil)
		}
		return nil, apperr.New(apperr.Database, "query schema", err)
	}
	schema, err := c.scanSchema(row)
	if err != nil {
		return nil, apperr.New(apperr.Serialization, "decode schema row", err)
	}
	c.cache(schema)
	return schema, nil
}

// ListSchemas returns every non-deleted schema, newest first.
func (c *Catalog) ListSchemas(ctx context.Context) ([]*Schema, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %sTRUE ORDER BY "created_at" DESC`, sanitize.Quote(c.table), c.whereNotDeleted())
	rows, err := store.QueryRows(ctx, c.store.Pool, query)
	if err != nil {
		return nil, apperr.New(apperr.Database, "list schemas", err)
	}
	schemas := make([]*Schema, 0, len(rows))
	for _, row := range rows {
		s, err := c.scanSchema(row)
		if err != nil {
			return nil, apperr.New(apperr.Serialization, "decode schema row", err)
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// UpdateSchema applies the fields present in upd to the named schema,
// running the ALTER TABLE diff when Columns changed, and returns the
// updated schema.
func (c *Catalog) UpdateSchema(ctx context.Context, name string, upd UpdateRequest) (*Schema, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "catalog.update_schema")
	span.SetEntity("schema", name)
	defer span.End()

	schema, err := c.updateSchema(ctx, name, upd)
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	span.SetStatus("ok")
	instrument.GetInstrumenter(ctx).EmitBusinessEvent(ctx, "schema.updated", "schema", schema.ID, nil)
	return schema, nil
}

func (c *Catalog) updateSchema(ctx context.Context, name string, upd UpdateRequest) (*Schema, error) {
	existing, err := c.GetSchema(ctx, name)
	if err != nil {
		return nil, err
	}

	sets := []string{`"updated_at" = NOW()`}
	args := []any{}
	argN := 1

	if upd.Description != nil {
		argN++
		sets = append(sets, fmt.Sprintf(`"description" = $%d`, argN))
		args = append(args, *upd.Description)
	}

	var alterStatements []string
	if upd.Columns != nil {
		if err := c.validateColumns(upd.Columns); err != nil {
			return nil, apperr.New(apperr.Validation, "invalid column definitions", err)
		}
		alterStatements, err = ddl.Diff(existing.TableName, toDDLColumns(existing.Columns), toDDLColumns(upd.Columns))
		if err != nil {
			return nil, apperr.New(apperr.Database, "compute alter table diff", err)
		}
		columnsJSON, err := json.Marshal(upd.Columns)
		if err != nil {
			return nil, apperr.New(apperr.Serialization, "encode columns", err)
		}
		argN++
		sets = append(sets, fmt.Sprintf(`"columns" = $%d`, argN))
		args = append(args, columnsJSON)
	}

	if upd.Indexes != nil {
		indexesJSON, err := json.Marshal(upd.Indexes)
		if err != nil {
			return nil, apperr.New(apperr.Serialization, "encode indexes", err)
		}
		argN++
		sets = append(sets, fmt.Sprintf(`"indexes" = $%d`, argN))
		args = append(args, indexesJSON)
	}

	for _, stmt := range alterStatements {
		if _, err := c.store.Pool.Exec(ctx, stmt); err != nil {
			return nil, apperr.New(apperr.Database, "apply alter table statement", err)
		}
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE "name" = $1 RETURNING updated_at`,
		sanitize.Quote(c.table), joinSets(sets))
	finalArgs := append([]any{name}, args...)
	row := c.store.Pool.QueryRow(ctx, query, finalArgs...)
	var updatedAt time.Time
	if err := row.Scan(&updatedAt); err != nil {
		return nil, apperr.New(apperr.Database, "update schema metadata", err)
	}

	c.invalidate(name)
	return c.GetSchema(ctx, name)
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

// DeleteSchema removes the named schema: soft-delete flips the deleted
// flag on the metadata row and leaves the physical table intact; hard
// delete drops the table then removes the metadata row.
func (c *Catalog) DeleteSchema(ctx context.Context, name string) error {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "catalog.delete_schema")
	span.SetEntity("schema", name)
	defer span.End()

	if err := c.deleteSchema(ctx, name); err != nil {
		span.SetStatus("error")
		return err
	}
	span.SetStatus("ok")
	instrument.GetInstrumenter(ctx).EmitBusinessEvent(ctx, "schema.deleted", "schema", name, nil)
	return nil
}

func (c *Catalog) deleteSchema(ctx context.Context, name string) error {
	existing, err := c.GetSchema(ctx, name)
	if err != nil {
		return err
	}

	if c.softDelete {
		query := fmt.Sprintf(`UPDATE %s SET "deleted" = TRUE, "updated_at" = NOW() WHERE "name" = $1`, sanitize.Quote(c.table))
		if _, err := c.store.Pool.Exec(ctx, query, name); err != nil {
			return apperr.New(apperr.Database, "soft delete schema", err)
		}
	} else {
		if _, err := c.store.Pool.Exec(ctx, ddl.DropTable(existing.TableName)); err != nil {
			return apperr.New(apperr.Database, "drop table", err)
		}
		query := fmt.Sprintf(`DELETE FROM %s WHERE "name" = $1`, sanitize.Quote(c.table))
		if _, err := c.store.Pool.Exec(ctx, query, name); err != nil {
			return apperr.New(apperr.Database, "delete schema metadata", err)
		}
	}

	c.invalidate(name)
	return nil
}
