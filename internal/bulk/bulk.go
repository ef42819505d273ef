// Package bulk implements chunked, transactional multi-row insert, upsert,
// update, and delete against a schema-owned table, using the condition
// compiler for the update/delete predicate.
package bulk

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"objectstore/internal/apperr"
	"objectstore/internal/catalog"
	"objectstore/internal/coltype"
	"objectstore/internal/sanitize"
	"objectstore/internal/store"
)

// maxParamsPerStatement bounds how many bind parameters one multi-row
// INSERT may carry; PostgreSQL's protocol limit is 65535, but batches are
// kept well under it to leave headroom for driver overhead.
const maxParamsPerStatement = 32000

// Transactor runs multi-row mutations against schema-owned tables inside a
// single transaction per call.
type Transactor struct {
	store          *store.Store
	catalog        *catalog.Catalog
	softDelete     bool
	autoID         bool
	autoTimestamps bool
}

// New constructs a Transactor bound to st and cat.
func New(st *store.Store, cat *catalog.Catalog, softDelete, autoID, autoTimestamps bool) *Transactor {
	return &Transactor{store: st, catalog: cat, softDelete: softDelete, autoID: autoID, autoTimestamps: autoTimestamps}
}

// validateRows runs coltype.ValidateValue over every column of every row
// concurrently, bounded by an errgroup, and returns the error of the first
// row check to fail (which names that row's index); this is not necessarily
// the lowest offending index, and the other checks are not cancelled.
func validateRows(schema *catalog.Schema, rows []map[string]any) error {
	g := new(errgroup.Group)
	g.SetLimit(16)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			for _, col := range schema.Columns {
				v, present := row[col.Name]
				if !present {
					if !col.Nullable && col.Default == "" {
						return fmt.Errorf("row %d: column %q is required", i, col.Name)
					}
					continue
				}
				if v == nil {
					if !col.Nullable {
						return fmt.Errorf("row %d: column %q cannot be null", i, col.Name)
					}
					continue
				}
				if err := coltype.ValidateValue(col.Type, v); err != nil {
					return fmt.Errorf("row %d: column %q: %w", i, col.Name, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// CreateInstances validates every row, then inserts them in chunked,
// multi-row INSERT statements inside a single transaction.
func (t *Transactor) CreateInstances(ctx context.Context, schemaName string, propsList []map[string]any) (int64, error) {
	schema, err := t.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return 0, err
	}
	if len(propsList) == 0 {
		return 0, nil
	}
	if err := validateRows(schema, propsList); err != nil {
		return 0, apperr.New(apperr.Validation, "bulk create validation failed", err)
	}

	return t.insertChunked(ctx, schema, propsList, nil)
}

// UpsertInstances validates every row, then inserts them with an
// ON CONFLICT clause over conflictCols, chunked inside a single
// transaction.
func (t *Transactor) UpsertInstances(ctx context.Context, schemaName string, propsList []map[string]any, conflictCols []string) (int64, error) {
	schema, err := t.catalog.GetSchema(ctx, schemaName)
	if err != nil {
		return 0, err
	}
	if len(propsList) == 0 {
		return 0, nil
	}
	if err := t.validateConflictCols(schema, conflictCols); err != nil {
		return 0, apperr.New(apperr.Validation, "invalid conflict columns", err)
	}
	if err := validateRows(schema, propsList); err != nil {
		return 0, apperr.New(apperr.Validation, "bulk upsert validation failed", err)
	}

	return t.insertChunked(ctx, schema, propsList, conflictCols)
}

func (t *Transactor) validateConflictCols(schema *catalog.Schema, conflictCols []string) error {
	if len(conflictCols) == 0 {
		return fmt.Errorf("conflict_cols must name at least one column")
	}
	valid := map[string]struct{}{"id": {}}
	for _, c := range schema.Columns {
		valid[c.Name] = struct{}{}
	}
	for _, c := range conflictCols {
		if _, ok := valid[c]; !ok {
			return fmt.Errorf("conflict column %q is not id or a declared column", c)
		}
	}
	return nil
}

func (t *Transactor) insertChunked(ctx context.Context, schema *catalog.Schema, propsList []map[string]any, conflictCols []string) (int64, error) {
	colNames := make([]string, 0, len(schema.Columns)+1)
	if t.autoID {
		colNames = append(colNames, "id")
	}
	for _, c := range schema.Columns {
		colNames = append(colNames, c.Name)
	}

	paramsPerRow := len(colNames)
	chunkSize := maxParamsPerStatement / paramsPerRow
	if chunkSize < 1 {
		chunkSize = 1
	}

	tx, err := t.store.BeginTx(ctx)
	if err != nil {
		return 0, apperr.New(apperr.Database, "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	for start := 0; start < len(propsList); start += chunkSize {
		end := start + chunkSize
		if end > len(propsList) {
			end = len(propsList)
		}
		chunk := propsList[start:end]

		stmt, args, err := buildInsertStatement(schema, colNames, chunk, conflictCols, t.autoID, t.autoTimestamps)
		if err != nil {
			return 0, apperr.New(apperr.Validation, "build insert statement", err)
		}

		affected, err := store.Exec(ctx, tx, stmt, args...)
		if err != nil {
			mapped := store.MapError(err)
			if mapped != err {
				return 0, apperr.New(apperr.Conflict, "unique constraint violated", mapped)
			}
			return 0, apperr.New(apperr.Database, "bulk insert chunk", err)
		}
		total += affected
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.New(apperr.Database, "commit transaction", err)
	}
	return total, nil
}

func buildInsertStatement(schema *catalog.Schema, colNames []string, chunk []map[string]any, conflictCols []string, autoID, autoTimestamps bool) (string, []any, error) {
	columnTypes := make(map[string]coltype.ColumnType, len(schema.Columns))
	for _, c := range schema.Columns {
		columnTypes[c.Name] = c.Type
	}

	var valueGroups []string
	var args []any
	argN := 0

	for _, row := range chunk {
		var placeholders []string
		for _, name := range colNames {
			if name == "id" && autoID {
				argN++
				placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
				args = append(args, uuid.New().String())
				continue
			}
			ct := columnTypes[name]
			v := row[name]
			bound, cast, err := bindValue(ct, v)
			if err != nil {
				return "", nil, fmt.Errorf("column %q: %w", name, err)
			}
			argN++
			placeholders = append(placeholders, fmt.Sprintf("$%d%s", argN, cast))
			args = append(args, bound)
		}
		valueGroups = append(valueGroups, "("+joinStrings(placeholders, ", ")+")")
	}

	quotedCols := make([]string, len(colNames))
	for i, n := range colNames {
		quotedCols[i] = sanitize.Quote(n)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		sanitize.Quote(schema.TableName), joinStrings(quotedCols, ", "), joinStrings(valueGroups, ", "))

	if conflictCols != nil {
		stmt += buildConflictClause(schema, conflictCols, autoTimestamps)
	}

	return stmt, args, nil
}

func buildConflictClause(schema *catalog.Schema, conflictCols []string, autoTimestamps bool) string {
	quotedConflict := make([]string, len(conflictCols))
	conflictSet := make(map[string]struct{}, len(conflictCols))
	for i, c := range conflictCols {
		quotedConflict[i] = sanitize.Quote(c)
		conflictSet[c] = struct{}{}
	}

	var updateCols []string
	for _, c := range schema.Columns {
		if _, ok := conflictSet[c.Name]; !ok {
			updateCols = append(updateCols, c.Name)
		}
	}
	// id is never part of a non-conflict SET list: it is immutable once assigned.
	updateCols = removeString(updateCols, "id")

	if len(updateCols) == 0 {
		return fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", joinStrings(quotedConflict, ", "))
	}

	var sets []string
	for _, c := range updateCols {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", sanitize.Quote(c), sanitize.Quote(c)))
	}
	if autoTimestamps {
		sets = append(sets, `"updated_at" = NOW()`)
	}

	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", joinStrings(quotedConflict, ", "), joinStrings(sets, ", "))
}

func removeString(items []string, target string) []string {
	out := items[:0]
	for _, s := range items {
		if s != target {
			out = append(out, s)
		}
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
