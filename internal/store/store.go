// Package store wraps a pgx connection pool with the thin query/exec/scan
// helpers every other component binds its generated SQL through.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"objectstore/internal/config"
)

// ErrNotFound is returned by QueryRow when the query produces no rows.
var ErrNotFound = errors.New("not found")

// ErrUniqueViolation is returned by MapError when the underlying driver
// reports a unique constraint violation (SQLSTATE 23505).
var ErrUniqueViolation = errors.New("unique constraint violation")

// Querier is implemented by both *pgxpool.Pool and pgx.Tx, letting callers
// write code that works uniformly inside or outside an explicit transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store owns the connection pool shared across all store components.
type Store struct {
	Pool *pgxpool.Pool
}

// New opens a pool against cfg.DatabaseURL and verifies connectivity.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database_url: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{Pool: pool}, nil
}

// FromPool adopts an already-constructed pool, for callers embedding the
// store into a larger application that manages its own pgxpool lifecycle.
func FromPool(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.Pool.Close()
}

// BeginTx starts a new transaction; used exclusively by the Bulk Transactor.
func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.Pool.Begin(ctx)
}

// QueryRows executes a query and returns each row as a map keyed by column
// name, with driver-specific types normalized to JSON-friendly Go values.
func QueryRows(ctx context.Context, q Querier, sql string, args ...any) ([]map[string]any, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]any

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan values: %w", err)
		}
		row := make(map[string]any, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = normalizeValue(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return results, nil
}

// QueryRow executes a query and returns its single row, or ErrNotFound.
func QueryRow(ctx context.Context, q Querier, sql string, args ...any) (map[string]any, error) {
	rows, err := QueryRows(ctx, q, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Exec executes a statement and returns the number of rows affected.
func Exec(ctx context.Context, q Querier, sql string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MapError translates a driver error into a well-known sentinel when one
// applies (currently only unique-constraint violations), leaving every
// other error unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
	}
	if strings.Contains(err.Error(), "23505") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

// normalizeValue converts pgx-specific wire types into JSON-serializable Go
// values, so every layer above the store can treat a row purely as
// map[string]any.
func normalizeValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err == nil && f.Valid {
			return f.Float64
		}
		return nil
	case pgtype.UUID:
		if val.Valid {
			b := val.Bytes
			return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
		}
		return nil
	default:
		return v
	}
}
