package instance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"objectstore/internal/apperr"
	"objectstore/internal/catalog"
	"objectstore/internal/coltype"
	"objectstore/internal/condition"
	"objectstore/internal/instrument"
	"objectstore/internal/orderby"
	"objectstore/internal/sanitize"
	"objectstore/internal/store"
)

// Engine validates, binds, and executes single-row CRUD against
// schema-owned tables, routing reads through the condition and order-by
// compilers.
type Engine struct {
	store      *store.Store
	catalog    *catalog.Catalog
	softDelete bool
	autoID     bool
	autoTimestamps bool
}

// New constructs an Engine bound to st and cat, with the store-wide
// soft-delete and auto-column settings.
func New(st *store.Store, cat *catalog.Catalog, softDelete, autoID, autoTimestamps bool) *Engine {
	return &Engine{store: st, catalog: cat, softDelete: softDelete, autoID: autoID, autoTimestamps: autoTimestamps}
}

func (e *Engine) selectColumns(schema *catalog.Schema) []string {
	var cols []string
	if e.autoID {
		cols = append(cols, "id")
	}
	for _, c := range schema.Columns {
		cols = append(cols, c.Name)
	}
	if e.autoTimestamps {
		cols = append(cols, "created_at", "updated_at")
	}
	return cols
}

func (e *Engine) whereNotDeletedPrefix() string {
	if e.softDelete {
		return `"deleted" = FALSE AND `
	}
	return ""
}

// CreateInstance validates properties against schema's declared columns,
// assigns an id if auto-id is enabled, inserts the row, and returns the id.
func (e *Engine) CreateInstance(ctx context.Context, schemaName string, properties map[string]any) (string, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "instance.create_instance")
	span.SetEntity(schemaName, "")
	defer span.End()

	id, err := e.createInstance(ctx, schemaName, properties)
	if err != nil {
		span.SetStatus("error")
		return "", err
	}
	span.SetStatus("ok")
	instrument.GetInstrumenter(ctx).EmitBusinessEvent(ctx, "instance.created", schemaName, id, nil)
	return id, nil
}

func (e *Engine) createInstance(ctx context.Context, schemaName string, properties map[string]any) (string, error) {
	schema, err := e.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return "", err
	}

	var colNames []string
	var placeholders []string
	var args []any
	argN := 0

	if e.autoID {
		id := uuid.New().String()
		colNames = append(colNames, sanitize.Quote("id"))
		argN++
		placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
		args = append(args, id)
	}

	for _, col := range schema.Columns {
		v, present := properties[col.Name]
		if !present {
			if !col.Nullable && col.Default == "" {
				return "", apperr.New(apperr.Validation, fmt.Sprintf("column %q is required", col.Name), nil)
			}
			continue
		}
		if v == nil {
			if !col.Nullable {
				return "", apperr.New(apperr.Validation, fmt.Sprintf("column %q cannot be null", col.Name), nil)
			}
			colNames = append(colNames, sanitize.Quote(col.Name))
			argN++
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, nil)
			continue
		}
		if err := coltype.ValidateValue(col.Type, v); err != nil {
			return "", apperr.New(apperr.Validation, fmt.Sprintf("column %q: %v", col.Name, err), nil)
		}
		bound, cast, err := bindValue(col.Type, v)
		if err != nil {
			return "", apperr.New(apperr.Validation, fmt.Sprintf("column %q: %v", col.Name, err), nil)
		}
		colNames = append(colNames, sanitize.Quote(col.Name))
		argN++
		placeholders = append(placeholders, fmt.Sprintf("$%d%s", argN, cast))
		args = append(args, bound)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sanitize.Quote(schema.TableName), joinStrings(colNames, ", "), joinStrings(placeholders, ", "))

	if _, err := e.store.Pool.Exec(ctx, insert, args...); err != nil {
		mapped := store.MapError(err)
		if mapped != err {
			return "", apperr.New(apperr.Conflict, "unique constraint violated", mapped)
		}
		return "", apperr.New(apperr.Database, "insert instance", err)
	}

	if e.autoID {
		return args[0].(string), nil
	}
	return "", nil
}

func (e *Engine) materialize(schema *catalog.Schema, row map[string]any) *Instance {
	inst := &Instance{
		SchemaID:   schema.ID,
		SchemaName: schema.Name,
		Properties: make(map[string]any),
	}
	if id, ok := row["id"].(string); ok {
		inst.ID = id
	}
	if createdAt, ok := row["created_at"].(time.Time); ok {
		inst.CreatedAt = createdAt
	}
	if updatedAt, ok := row["updated_at"].(time.Time); ok {
		inst.UpdatedAt = updatedAt
	}
	for _, col := range schema.Columns {
		if v, ok := row[col.Name]; ok && v != nil {
			inst.Properties[col.Name] = v
		}
	}
	return inst
}

// GetInstance returns the instance with the given id, or *apperr.Error{InstanceNotFound}.
func (e *Engine) GetInstance(ctx context.Context, schemaName, id string) (*Instance, error) {
	schema, err := e.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	cols := quoteAll(e.selectColumns(schema))
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s"id" = $1`,
		joinStrings(cols, ", "), sanitize.Quote(schema.TableName), e.whereNotDeletedPrefix())
	row, err := store.QueryRow(ctx, e.store.Pool, query, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.New(apperr.InstanceNotFound, fmt.Sprintf("instance %q not found", id), nil)
		}
		return nil, apperr.New(apperr.Database, "query instance", err)
	}
	return e.materialize(schema, row), nil
}

// InstanceExists reports whether any row satisfies f.
func (e *Engine) InstanceExists(ctx context.Context, f SimpleFilter) (bool, error) {
	schema, err := e.catalog.GetSchema(ctx, f.SchemaName)
	if err != nil {
		return false, err
	}
	req := ReduceSimpleFilter(f)
	whereClause, params, err := e.compileWhere(req.Condition)
	if err != nil {
		return false, apperr.New(apperr.InvalidCondition, "compile filter condition", err)
	}
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s)`, sanitize.Quote(schema.TableName), whereClause)
	row, err := store.QueryRow(ctx, e.store.Pool, query, params...)
	if err != nil {
		return false, apperr.New(apperr.Database, "check instance existence", err)
	}
	exists, _ := row["exists"].(bool)
	return exists, nil
}

// QueryInstances applies the reduction in ReduceSimpleFilter then delegates
// to FilterInstances.
func (e *Engine) QueryInstances(ctx context.Context, f SimpleFilter) ([]*Instance, int, error) {
	return e.FilterInstances(ctx, f.SchemaName, ReduceSimpleFilter(f))
}

func (e *Engine) compileWhere(expr *condition.Expression) (string, []any, error) {
	offset := 1
	condClause := "TRUE"
	var params []any
	if expr != nil {
		clause, p, err := condition.Compile(*expr, &offset)
		if err != nil {
			return "", nil, err
		}
		condClause = clause
		params = p
	}
	return e.whereNotDeletedPrefix() + condClause, params, nil
}

// FilterInstances runs req's condition and sort against schemaName's table,
// returning the page of matching rows plus the total count ignoring
// pagination.
func (e *Engine) FilterInstances(ctx context.Context, schemaName string, req FilterRequest) ([]*Instance, int, error) {
	schema, err := e.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return nil, 0, err
	}

	whereClause, params, err := e.compileWhere(req.Condition)
	if err != nil {
		return nil, 0, apperr.New(apperr.InvalidCondition, "compile filter condition", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) AS total FROM %s WHERE %s`, sanitize.Quote(schema.TableName), whereClause)
	countRow, err := store.QueryRow(ctx, e.store.Pool, countQuery, params...)
	if err != nil {
		return nil, 0, apperr.New(apperr.Database, "count instances", err)
	}
	total := toInt(countRow["total"])

	orderClause, err := orderby.Build(req.SortBy, req.SortOrder, schema.ColumnNames())
	if err != nil {
		return nil, 0, apperr.New(apperr.Validation, "invalid sort request", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	cols := quoteAll(e.selectColumns(schema))
	limitParam := len(params) + 1
	offsetParam := len(params) + 2
	dataQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		joinStrings(cols, ", "), sanitize.Quote(schema.TableName), whereClause, orderClause, limitParam, offsetParam)
	dataParams := append(append([]any{}, params...), limit, req.Offset)

	rows, err := store.QueryRows(ctx, e.store.Pool, dataQuery, dataParams...)
	if err != nil {
		return nil, 0, apperr.New(apperr.Database, "query instances", err)
	}

	instances := make([]*Instance, 0, len(rows))
	for _, row := range rows {
		instances = append(instances, e.materialize(schema, row))
	}
	return instances, total, nil
}

// UpdateInstance validates and binds every present property, updates the
// row, and returns *apperr.Error{InstanceNotFound} if no row matched.
func (e *Engine) UpdateInstance(ctx context.Context, schemaName, id string, properties map[string]any) error {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "instance.update_instance")
	span.SetEntity(schemaName, id)
	defer span.End()

	if err := e.updateInstance(ctx, schemaName, id, properties); err != nil {
		span.SetStatus("error")
		return err
	}
	span.SetStatus("ok")
	instrument.GetInstrumenter(ctx).EmitBusinessEvent(ctx, "instance.updated", schemaName, id, nil)
	return nil
}

func (e *Engine) updateInstance(ctx context.Context, schemaName, id string, properties map[string]any) error {
	schema, err := e.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	argN := 0

	for _, col := range schema.Columns {
		v, present := properties[col.Name]
		if !present {
			continue
		}
		if v == nil {
			if !col.Nullable {
				return apperr.New(apperr.Validation, fmt.Sprintf("column %q cannot be null", col.Name), nil)
			}
			argN++
			sets = append(sets, fmt.Sprintf(`%s = $%d`, sanitize.Quote(col.Name), argN))
			args = append(args, nil)
			continue
		}
		if err := coltype.ValidateValue(col.Type, v); err != nil {
			return apperr.New(apperr.Validation, fmt.Sprintf("column %q: %v", col.Name, err), nil)
		}
		bound, cast, err := bindValue(col.Type, v)
		if err != nil {
			return apperr.New(apperr.Validation, fmt.Sprintf("column %q: %v", col.Name, err), nil)
		}
		argN++
		sets = append(sets, fmt.Sprintf(`%s = $%d%s`, sanitize.Quote(col.Name), argN, cast))
		args = append(args, bound)
	}

	if e.autoTimestamps {
		sets = append(sets, `"updated_at" = NOW()`)
	}

	if len(sets) == 0 || (e.autoTimestamps && len(sets) == 1) {
		return nil
	}

	argN++
	idPlaceholder := argN
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s"id" = $%d`,
		sanitize.Quote(schema.TableName), joinStrings(sets, ", "), e.whereNotDeletedPrefix(), idPlaceholder)

	affected, err := store.Exec(ctx, e.store.Pool, query, args...)
	if err != nil {
		return apperr.New(apperr.Database, "update instance", err)
	}
	if affected == 0 {
		return apperr.New(apperr.InstanceNotFound, fmt.Sprintf("instance %q not found", id), nil)
	}
	return nil
}

// DeleteInstance soft- or hard-deletes the instance, returning
// *apperr.Error{InstanceNotFound} if no row matched.
func (e *Engine) DeleteInstance(ctx context.Context, schemaName, id string) error {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "instance.delete_instance")
	span.SetEntity(schemaName, id)
	defer span.End()

	if err := e.deleteInstance(ctx, schemaName, id); err != nil {
		span.SetStatus("error")
		return err
	}
	span.SetStatus("ok")
	instrument.GetInstrumenter(ctx).EmitBusinessEvent(ctx, "instance.deleted", schemaName, id, nil)
	return nil
}

func (e *Engine) deleteInstance(ctx context.Context, schemaName, id string) error {
	schema, err := e.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return err
	}

	var query string
	if e.softDelete {
		updated := ""
		if e.autoTimestamps {
			updated = `, "updated_at" = NOW()`
		}
		query = fmt.Sprintf(`UPDATE %s SET "deleted" = TRUE%s WHERE "id" = $1 AND "deleted" = FALSE`, sanitize.Quote(schema.TableName), updated)
	} else {
		query = fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1`, sanitize.Quote(schema.TableName))
	}

	affected, err := store.Exec(ctx, e.store.Pool, query, id)
	if err != nil {
		return apperr.New(apperr.Database, "delete instance", err)
	}
	if affected == 0 {
		return apperr.New(apperr.InstanceNotFound, fmt.Sprintf("instance %q not found", id), nil)
	}
	return nil
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = sanitize.Quote(n)
	}
	return out
}

func joinStrings(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += sep + p
	}
	return out
}

func toInt(v any) int {
	switch val := v.(type) {
	case int64:
		return int(val)
	case int32:
		return int(val)
	case int:
		return val
	default:
		return 0
	}
}
