package bulk

import (
	"context"
	"fmt"

	"objectstore/internal/apperr"
	"objectstore/internal/coltype"
	"objectstore/internal/condition"
	"objectstore/internal/sanitize"
	"objectstore/internal/store"
)

func (t *Transactor) whereNotDeletedPrefix() string {
	if t.softDelete {
		return `"deleted" = FALSE AND `
	}
	return ""
}

// UpdateInstances validates and binds properties once, then applies them to
// every row matched by cond inside a single transaction.
func (t *Transactor) UpdateInstances(ctx context.Context, schemaName string, properties map[string]any, cond *condition.Expression) (int64, error) {
	schema, err := t.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return 0, err
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
				return 0, apperr.New(apperr.Validation, fmt.Sprintf("column %q cannot be null", col.Name), nil)
			}
			argN++
			sets = append(sets, fmt.Sprintf(`%s = $%d`, sanitize.Quote(col.Name), argN))
			args = append(args, nil)
			continue
		}
		if err := coltype.ValidateValue(col.Type, v); err != nil {
			return 0, apperr.New(apperr.Validation, fmt.Sprintf("column %q: %v", col.Name, err), nil)
		}
		bound, cast, err := bindValue(col.Type, v)
		if err != nil {
			return 0, apperr.New(apperr.Validation, fmt.Sprintf("column %q: %v", col.Name, err), nil)
		}
		argN++
		sets = append(sets, fmt.Sprintf(`%s = $%d%s`, sanitize.Quote(col.Name), argN, cast))
		args = append(args, bound)
	}

	if t.autoTimestamps {
		sets = append(sets, `"updated_at" = NOW()`)
	}
	if len(sets) == 0 || (t.autoTimestamps && len(sets) == 1) {
		return 0, nil
	}

	whereClause, whereParams, err := t.compileWhereAt(cond, &argN)
	if err != nil {
		return 0, apperr.New(apperr.InvalidCondition, "compile update condition", err)
	}
	args = append(args, whereParams...)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s`, sanitize.Quote(schema.TableName), joinStrings(sets, ", "), whereClause)

	tx, err := t.store.BeginTx(ctx)
	if err != nil {
		return 0, apperr.New(apperr.Database, "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	affected, err := store.Exec(ctx, tx, query, args...)
	if err != nil {
		return 0, apperr.New(apperr.Database, "bulk update instances", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.New(apperr.Database, "commit transaction", err)
	}
	return affected, nil
}

// DeleteInstances soft- or hard-deletes every row matched by cond inside a
// single transaction.
func (t *Transactor) DeleteInstances(ctx context.Context, schemaName string, cond *condition.Expression) (int64, error) {
	schema, err := t.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return 0, err
	}

	argN := 0
	var query string
	var args []any

	if t.softDelete {
		updated := ""
		if t.autoTimestamps {
			updated = `, "updated_at" = NOW()`
		}
		whereClause, whereParams, err := t.compileWhereAt(cond, &argN)
		if err != nil {
			return 0, apperr.New(apperr.InvalidCondition, "compile delete condition", err)
		}
		query = fmt.Sprintf(`UPDATE %s SET "deleted" = TRUE%s WHERE %s`,
			sanitize.Quote(schema.TableName), updated, whereClause)
		args = whereParams
	} else {
		whereClause, whereParams, err := t.compileWhereAt(cond, &argN)
		if err != nil {
			return 0, apperr.New(apperr.InvalidCondition, "compile delete condition", err)
		}
		query = fmt.Sprintf(`DELETE FROM %s WHERE %s`, sanitize.Quote(schema.TableName), whereClause)
		args = whereParams
	}

	tx, err := t.store.BeginTx(ctx)
	if err != nil {
		return 0, apperr.New(apperr.Database, "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	affected, err := store.Exec(ctx, tx, query, args...)
	if err != nil {
		return 0, apperr.New(apperr.Database, "bulk delete instances", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.New(apperr.Database, "commit transaction", err)
	}
	return affected, nil
}

// compileWhereAt compiles cond starting placeholders at *argN+1, advancing
// argN by the number of parameters consumed, and prefixes the soft-delete
// guard so DeleteInstances can fold it into its own WHERE without double
// guarding.
func (t *Transactor) compileWhereAt(cond *condition.Expression, argN *int) (string, []any, error) {
	offset := *argN + 1
	clause := "TRUE"
	var params []any
	if cond != nil {
		c, p, err := condition.Compile(*cond, &offset)
		if err != nil {
			return "", nil, err
		}
		clause = c
		params = p
	}
	*argN = offset - 1
	return t.whereNotDeletedPrefix() + clause, params, nil
}
